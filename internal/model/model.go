// Package model defines domain entities used by services and repositories.
package model

import (
	"fmt"
	"time"

	"github.com/gofrs/uuid/v5"
)

// User represents an account. Passwords are stored only as self-describing
// hash records (algorithm, cost, salt and digest in one encoded string).
type User struct {
	ID            uuid.UUID // PK
	Email         string    // unique, stored lowercase
	PwdHash       []byte    // bcrypt record
	CreatedAt     time.Time
	DeactivatedAt *time.Time // soft-delete marker, nil while active
}

// Active reports whether the account may authenticate.
func (u *User) Active() bool {
	return u.DeactivatedAt == nil
}

// TokenKind distinguishes short-lived access tokens from refresh tokens.
type TokenKind string

const (
	TokenAccess  TokenKind = "access"
	TokenRefresh TokenKind = "refresh"
)

// Tokens collects the issued access/refresh pair.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time // access token expiry (for diagnostics)
}

// Expense is a single immutable ledger entry. Only the voided flag may change
// after creation; voided entries stay on record for audit but are excluded
// from aggregation.
type Expense struct {
	ID          uuid.UUID // PK
	OwnerID     uuid.UUID // FK -> users.id
	Description string
	Amount      Money
	Currency    string // ISO-4217, fixed per deployment
	Category    Category
	OccurredAt  time.Time // date, UTC midnight
	CreatedAt   time.Time
	Voided      bool
}

// Period is a half-open date interval [Start, End) in UTC.
type Period struct {
	Start time.Time
	End   time.Time
}

// MonthPeriod returns the period covering one calendar month.
func MonthPeriod(year int, month time.Month) Period {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Period{Start: start, End: start.AddDate(0, 1, 0)}
}

// Contains reports whether t falls inside the interval.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// Valid reports whether the interval is non-empty.
func (p Period) Valid() bool {
	return p.Start.Before(p.End)
}

// Key returns a stable representation usable as a cache-key component.
func (p Period) Key() string {
	return fmt.Sprintf("%s..%s", p.Start.Format("2006-01-02"), p.End.Format("2006-01-02"))
}

// LineItem is one category subtotal within a report.
type LineItem struct {
	Category Category
	Subtotal Money
}

// ReportModel is the aggregation result for one owner and period. Line items
// are ordered by descending subtotal, ties broken by category name, and the
// grand total always equals the sum of the subtotals.
type ReportModel struct {
	Owner       uuid.UUID
	Period      Period
	Currency    string
	LineItems   []LineItem
	GrandTotal  Money
	GeneratedAt time.Time
}
