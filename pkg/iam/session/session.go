package session

import (
	"net/http"
	"time"

	"github.com/Abraxas-365/keygate/pkg/errx"
	"github.com/Abraxas-365/keygate/pkg/kernel"
)

// ============================================================================
// Entities
// ============================================================================

// AccountSession is one signed-in device of an account. Refresh replaces the
// token pair in place and keeps the id.
type AccountSession struct {
	ID                       kernel.SessionID `db:"id" json:"id"`
	AccountID                kernel.AccountID `db:"account_id" json:"account_id"`
	AccessToken              string           `db:"access_token" json:"-"`
	RefreshToken             string           `db:"refresh_token" json:"-"`
	StartDate                time.Time        `db:"start_date" json:"start_date"`
	AccessTokenCreationDate  time.Time        `db:"access_token_creation_date" json:"access_token_creation_date"`
	RefreshTokenCreationDate time.Time        `db:"refresh_token_creation_date" json:"refresh_token_creation_date"`
	LastUsageDate            time.Time        `db:"last_usage_date" json:"last_usage_date"`
}

// Expired reports whether a credential created at created with the given
// lifetime is expired at now. The boundary is inclusive.
func Expired(created time.Time, lifetime time.Duration, now time.Time) bool {
	return !now.Before(created.Add(lifetime))
}

func (s *AccountSession) AccessExpired(lifetime time.Duration, now time.Time) bool {
	return Expired(s.AccessTokenCreationDate, lifetime, now)
}

func (s *AccountSession) RefreshExpired(lifetime time.Duration, now time.Time) bool {
	return Expired(s.RefreshTokenCreationDate, lifetime, now)
}

// Info is the token-free view of a session returned to its owner.
type Info struct {
	ID            kernel.SessionID `json:"id"`
	StartDate     time.Time        `json:"start_date"`
	LastUsageDate time.Time        `json:"last_usage_date"`
	Current       bool             `json:"current"`
}

func (s *AccountSession) ToInfo(current kernel.SessionID) Info {
	return Info{
		ID:            s.ID,
		StartDate:     s.StartDate,
		LastUsageDate: s.LastUsageDate,
		Current:       s.ID == current,
	}
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("SESSION")

var (
	CodeSessionNotFound = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Session not found")
	CodeInvalidGrant    = ErrRegistry.Register("INVALID_GRANT", errx.TypeAuthorization, http.StatusUnauthorized, "wrong data")
)

func ErrSessionNotFound() *errx.Error { return ErrRegistry.New(CodeSessionNotFound) }

// ErrInvalidGrant is the single outcome of every rejected grant.
func ErrInvalidGrant() *errx.Error { return ErrRegistry.New(CodeInvalidGrant) }
