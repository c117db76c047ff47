package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"expense-manager/internal/errs"
	"expense-manager/internal/model"
	"expense-manager/internal/report"
	"expense-manager/internal/service"
	"expense-manager/internal/token"
)

type fakeAuth struct {
	registerErr error
	loginErr    error
	lastEmail   string
	lastLogout  string
	lastUserID  uuid.UUID
	pwdCalls    int
}

func (f *fakeAuth) Register(_ context.Context, email, _ string) (string, error) {
	if f.registerErr != nil {
		return "", f.registerErr
	}
	f.lastEmail = email
	return uuid.Must(uuid.NewV4()).String(), nil
}

func (f *fakeAuth) LoginWithIP(_ context.Context, email, _, _ string) (model.Tokens, error) {
	if f.loginErr != nil {
		return model.Tokens{}, f.loginErr
	}
	f.lastEmail = email
	return model.Tokens{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(time.Minute),
	}, nil
}

func (f *fakeAuth) Refresh(_ context.Context, refreshToken string) (string, time.Time, error) {
	if refreshToken != "refresh" {
		return "", time.Time{}, errs.ErrInvalidToken
	}
	return "access2", time.Now().Add(time.Minute), nil
}

func (f *fakeAuth) Logout(_ context.Context, tokenStr string) error {
	f.lastLogout = tokenStr
	return nil
}

func (f *fakeAuth) ChangePassword(_ context.Context, userID uuid.UUID, _, _ string) error {
	f.lastUserID = userID
	f.pwdCalls++
	return nil
}

func (f *fakeAuth) Deactivate(_ context.Context, userID uuid.UUID) error {
	f.lastUserID = userID
	return nil
}

type fakeLedger struct {
	recordErr error
	voidErr   error
	lastOwner uuid.UUID
	lastReq   service.RecordExpense
	lastVoid  uuid.UUID
}

func (f *fakeLedger) Record(_ context.Context, owner uuid.UUID, req service.RecordExpense) (*model.Expense, error) {
	if f.recordErr != nil {
		return nil, f.recordErr
	}
	f.lastOwner = owner
	f.lastReq = req
	amount, err := model.ParseAmount(req.Amount)
	if err != nil {
		return nil, err
	}
	return &model.Expense{
		ID:          uuid.Must(uuid.NewV4()),
		OwnerID:     owner,
		Description: req.Description,
		Amount:      amount,
		Currency:    "EUR",
		Category:    model.NormalizeCategory(req.Category),
		OccurredAt:  req.OccurredAt,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

func (f *fakeLedger) Void(_ context.Context, owner, expenseID uuid.UUID) error {
	if f.voidErr != nil {
		return f.voidErr
	}
	f.lastOwner = owner
	f.lastVoid = expenseID
	return nil
}

type fakeReports struct {
	lastOwner  uuid.UUID
	lastPeriod model.Period
	err        error
}

func (f *fakeReports) Document(_ context.Context, owner uuid.UUID, period model.Period) (*report.DocumentModel, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastOwner = owner
	f.lastPeriod = period
	return &report.DocumentModel{
		Title:   "Expense report " + period.Key(),
		Columns: []string{"Category", "Amount"},
		Pages:   []report.Page{{Number: 1, Footer: "Page 1 of 1"}},
	}, nil
}

type memRevocations struct {
	mu      sync.Mutex
	revoked map[uuid.UUID]struct{}
}

func (m *memRevocations) Revoke(_ context.Context, id uuid.UUID, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.revoked == nil {
		m.revoked = map[uuid.UUID]struct{}{}
	}
	m.revoked[id] = struct{}{}
	return nil
}

func (m *memRevocations) IsRevoked(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[id]
	return ok, nil
}

func (m *memRevocations) RaiseWatermark(context.Context, uuid.UUID, time.Time) error {
	return nil
}

func (m *memRevocations) Watermark(context.Context, uuid.UUID) (time.Time, bool, error) {
	return time.Time{}, false, nil
}

func (m *memRevocations) PruneExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}

type testEnv struct {
	router  *gin.Engine
	auth    *fakeAuth
	ledger  *fakeLedger
	reports *fakeReports
	tokens  *token.Service
	userID  uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	tokens, err := token.NewService([]byte("0123456789abcdef0123456789abcdef"), "HS256", &memRevocations{})
	if err != nil {
		t.Fatalf("token service: %v", err)
	}
	env := &testEnv{
		auth:    &fakeAuth{},
		ledger:  &fakeLedger{},
		reports: &fakeReports{},
		tokens:  tokens,
		userID:  uuid.Must(uuid.NewV4()),
	}
	srv := New(env.auth, env.ledger, env.reports, tokens, zap.NewNop())
	env.router = srv.Router()
	return env
}

func (e *testEnv) accessToken(t *testing.T) string {
	t.Helper()
	tok, _, err := e.tokens.Issue(e.userID, time.Minute, model.TokenAccess)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode response: %v (%s)", err, w.Body.String())
	}
	return m
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": "a@b.c", "password": "secret"})
	if w.Code != http.StatusCreated {
		t.Fatalf("code=%d body=%s", w.Code, w.Body.String())
	}
	if decodeBody(t, w)["user_id"] == "" {
		t.Fatalf("want user_id in response")
	}
	if env.auth.lastEmail != "a@b.c" {
		t.Fatalf("email not passed through: %q", env.auth.lastEmail)
	}

	w = env.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": "", "password": ""})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty fields: code=%d", w.Code)
	}

	env.auth.registerErr = errs.ErrAlreadyExists
	w = env.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": "a@b.c", "password": "x"})
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate: code=%d", w.Code)
	}

	// service-level validation failures are the caller's fault, not ours
	env.auth.registerErr = fmt.Errorf("malformed email: %w", errs.ErrValidation)
	w = env.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": "not-an-email", "password": "x"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("malformed email: code=%d", w.Code)
	}
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "a@b.c", "password": "secret"})
	if w.Code != http.StatusOK {
		t.Fatalf("code=%d body=%s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["access_token"] != "access" || body["refresh_token"] != "refresh" {
		t.Fatalf("unexpected tokens: %v", body)
	}

	env.auth.loginErr = errs.ErrInvalidCredentials
	if w := env.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "a@b.c", "password": "bad"}); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad creds: code=%d", w.Code)
	}

	env.auth.loginErr = errs.ErrRateLimited
	if w := env.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "a@b.c", "password": "bad"}); w.Code != http.StatusTooManyRequests {
		t.Fatalf("rate limited: code=%d", w.Code)
	}
}

func TestRefresh(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/auth/refresh", "", gin.H{"refresh_token": "refresh"})
	if w.Code != http.StatusOK {
		t.Fatalf("code=%d body=%s", w.Code, w.Body.String())
	}
	if decodeBody(t, w)["access_token"] != "access2" {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}

	if w := env.do(t, http.MethodPost, "/api/v1/auth/refresh", "", gin.H{"refresh_token": "nope"}); w.Code != http.StatusUnauthorized {
		t.Fatalf("bad refresh: code=%d", w.Code)
	}
}

func TestRequireAuth(t *testing.T) {
	env := newTestEnv(t)

	if w := env.do(t, http.MethodPost, "/api/v1/expenses", "", gin.H{}); w.Code != http.StatusUnauthorized {
		t.Fatalf("no header: code=%d", w.Code)
	}
	if w := env.do(t, http.MethodPost, "/api/v1/expenses", "not.a.jwt", gin.H{}); w.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: code=%d", w.Code)
	}

	refresh, _, err := env.tokens.Issue(env.userID, time.Minute, model.TokenRefresh)
	if err != nil {
		t.Fatalf("issue refresh: %v", err)
	}
	if w := env.do(t, http.MethodPost, "/api/v1/auth/logout", refresh, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("refresh token on access route: code=%d", w.Code)
	}
}

func TestLogoutPassesRawToken(t *testing.T) {
	env := newTestEnv(t)
	tok := env.accessToken(t)

	w := env.do(t, http.MethodPost, "/api/v1/auth/logout", tok, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("code=%d body=%s", w.Code, w.Body.String())
	}
	if env.auth.lastLogout != tok {
		t.Fatalf("logout got %q, want presented token", env.auth.lastLogout)
	}
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/auth/password", env.accessToken(t),
		gin.H{"current_password": "old", "new_password": "new"})
	if w.Code != http.StatusNoContent {
		t.Fatalf("code=%d body=%s", w.Code, w.Body.String())
	}
	if env.auth.pwdCalls != 1 || env.auth.lastUserID != env.userID {
		t.Fatalf("service not called with authenticated user")
	}
}

func TestDeactivateAccount(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodDelete, "/api/v1/auth/account", env.accessToken(t), nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("code=%d body=%s", w.Code, w.Body.String())
	}
	if env.auth.lastUserID != env.userID {
		t.Fatalf("deactivate not called with authenticated user")
	}
}

func TestRecordExpense(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/expenses", env.accessToken(t), gin.H{
		"description": "lunch",
		"amount":      "18,50",
		"category":    "dining",
		"occurred_at": "2025-03-10",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("code=%d body=%s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	if body["amount"] != "18.50" || body["category"] != "dining" || body["occurred_at"] != "2025-03-10" {
		t.Fatalf("unexpected body: %v", body)
	}
	if env.ledger.lastOwner != env.userID {
		t.Fatalf("owner not taken from token")
	}

	w = env.do(t, http.MethodPost, "/api/v1/expenses", env.accessToken(t), gin.H{
		"amount": "10.00", "category": "dining", "occurred_at": "10/03/2025",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad date: code=%d", w.Code)
	}

	env.ledger.recordErr = errs.ErrInvalidAmount
	w = env.do(t, http.MethodPost, "/api/v1/expenses", env.accessToken(t), gin.H{
		"amount": "-5", "category": "dining", "occurred_at": "2025-03-10",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid amount: code=%d", w.Code)
	}
}

func TestVoidExpense(t *testing.T) {
	env := newTestEnv(t)
	id := uuid.Must(uuid.NewV4())

	w := env.do(t, http.MethodDelete, "/api/v1/expenses/"+id.String(), env.accessToken(t), nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("code=%d body=%s", w.Code, w.Body.String())
	}
	if env.ledger.lastVoid != id {
		t.Fatalf("void id mismatch")
	}

	if w := env.do(t, http.MethodDelete, "/api/v1/expenses/not-a-uuid", env.accessToken(t), nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad id: code=%d", w.Code)
	}

	env.ledger.voidErr = errs.ErrNotFound
	if w := env.do(t, http.MethodDelete, "/api/v1/expenses/"+id.String(), env.accessToken(t), nil); w.Code != http.StatusNotFound {
		t.Fatalf("foreign id: code=%d", w.Code)
	}
}

func TestReportMonth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/reports/2025/3", env.accessToken(t), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("code=%d body=%s", w.Code, w.Body.String())
	}
	want := model.MonthPeriod(2025, time.March)
	if !env.reports.lastPeriod.Start.Equal(want.Start) || !env.reports.lastPeriod.End.Equal(want.End) {
		t.Fatalf("period mismatch: %v", env.reports.lastPeriod)
	}

	if w := env.do(t, http.MethodGet, "/api/v1/reports/2025/13", env.accessToken(t), nil); w.Code != http.StatusBadRequest {
		t.Fatalf("month 13: code=%d", w.Code)
	}
}

func TestReportRange(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/reports?from=2025-03-01&to=2025-03-15", env.accessToken(t), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("code=%d body=%s", w.Code, w.Body.String())
	}
	wantEnd := time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC)
	if !env.reports.lastPeriod.End.Equal(wantEnd) {
		t.Fatalf("end date not inclusive: %v", env.reports.lastPeriod.End)
	}

	if w := env.do(t, http.MethodGet, "/api/v1/reports?from=2025-03-15&to=2025-03-01", env.accessToken(t), nil); w.Code != http.StatusBadRequest {
		t.Fatalf("inverted range: code=%d", w.Code)
	}
	if w := env.do(t, http.MethodGet, "/api/v1/reports?from=2025-03-01", env.accessToken(t), nil); w.Code != http.StatusBadRequest {
		t.Fatalf("missing to: code=%d", w.Code)
	}
}
