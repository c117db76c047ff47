package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"

	"expense-manager/internal/errs"
	"expense-manager/internal/limiter"
	"expense-manager/internal/model"
	"expense-manager/internal/repository"
)

type fakeUsers struct {
	mu      sync.Mutex
	byEmail map[string]*model.User

	createErr error
	getErr    error
}

var _ repository.UserRepository = (*fakeUsers)(nil)

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byEmail: map[string]*model.User{}}
}

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if _, exists := f.byEmail[u.Email]; exists {
		return errs.ErrAlreadyExists
	}
	cpy := *u
	cpy.CreatedAt = time.Now()
	f.byEmail[u.Email] = &cpy
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byEmail {
		if u.ID == id {
			c := *u
			return &c, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byEmail[email]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *u
	return &c, nil
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id uuid.UUID, pwdHash []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byEmail {
		if u.ID == id && u.Active() {
			u.PwdHash = append([]byte(nil), pwdHash...)
			return nil
		}
	}
	return errs.ErrNotFound
}

func (f *fakeUsers) Deactivate(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byEmail {
		if u.ID == id && u.Active() {
			now := time.Now()
			u.DeactivatedAt = &now
			return nil
		}
	}
	return errs.ErrNotFound
}

type fakeLimiter struct {
	allowOK  bool
	allowErr error

	failBlocked bool

	allowCalls   int
	failureCalls int
	successCalls int
}

var _ limiter.Limiter = (*fakeLimiter)(nil)

func (l *fakeLimiter) Allow(context.Context, string, []byte) (bool, time.Duration, error) {
	l.allowCalls++
	return l.allowOK, 0, l.allowErr
}

func (l *fakeLimiter) Success(context.Context, string, []byte) error {
	l.successCalls++
	return nil
}

func (l *fakeLimiter) Failure(context.Context, string, []byte) (bool, time.Duration, error) {
	l.failureCalls++
	return l.failBlocked, 0, nil
}

type fakeRevocations struct {
	mu         sync.Mutex
	revoked    map[uuid.UUID]time.Time
	watermarks map[uuid.UUID]time.Time
}

var _ repository.RevocationStore = (*fakeRevocations)(nil)

func newFakeRevocations() *fakeRevocations {
	return &fakeRevocations{
		revoked:    map[uuid.UUID]time.Time{},
		watermarks: map[uuid.UUID]time.Time{},
	}
}

func (f *fakeRevocations) Revoke(_ context.Context, tokenID uuid.UUID, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.revoked[tokenID] = expiresAt
	return nil
}

func (f *fakeRevocations) IsRevoked(_ context.Context, tokenID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.revoked[tokenID]
	return ok, nil
}

func (f *fakeRevocations) RaiseWatermark(_ context.Context, subject uuid.UUID, ts time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if cur, ok := f.watermarks[subject]; !ok || ts.After(cur) {
		f.watermarks[subject] = ts
	}
	return nil
}

func (f *fakeRevocations) Watermark(_ context.Context, subject uuid.UUID) (time.Time, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ts, ok := f.watermarks[subject]
	return ts, ok, nil
}

func (f *fakeRevocations) PruneExpired(_ context.Context, now time.Time) (int64, error) {
	return 0, nil
}

type ledgerEntry struct {
	e        model.Expense
	voidedAt *time.Time
}

type fakeLedger struct {
	mu      sync.Mutex
	entries []ledgerEntry
	now     func() time.Time

	appendErr error
}

var _ repository.LedgerRepository = (*fakeLedger)(nil)

func newFakeLedger() *fakeLedger {
	return &fakeLedger{now: time.Now}
}

func (f *fakeLedger) Append(_ context.Context, e *model.Expense) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	e.CreatedAt = f.now()
	f.entries = append(f.entries, ledgerEntry{e: *e})
	return nil
}

func (f *fakeLedger) Void(_ context.Context, owner, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.entries {
		if f.entries[i].e.ID == id && f.entries[i].e.OwnerID == owner && f.entries[i].voidedAt == nil {
			ts := f.now()
			f.entries[i].voidedAt = &ts
			return nil
		}
	}
	return errs.ErrNotFound
}

func (f *fakeLedger) ListFor(_ context.Context, owner uuid.UUID, period model.Period, asOf time.Time) ([]model.Expense, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Expense
	for _, le := range f.entries {
		e := le.e
		if e.OwnerID != owner || !period.Contains(e.OccurredAt) || e.CreatedAt.After(asOf) {
			continue
		}
		e.Voided = le.voidedAt != nil && !le.voidedAt.After(asOf)
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.Before(out[j].OccurredAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (f *fakeLedger) LatestChangeAt(_ context.Context, owner uuid.UUID, period model.Period) (time.Time, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest time.Time
	var found bool
	for _, le := range f.entries {
		if le.e.OwnerID != owner || !period.Contains(le.e.OccurredAt) {
			continue
		}
		found = true
		if le.e.CreatedAt.After(latest) {
			latest = le.e.CreatedAt
		}
		if le.voidedAt != nil && le.voidedAt.After(latest) {
			latest = *le.voidedAt
		}
	}
	return latest, found, nil
}
