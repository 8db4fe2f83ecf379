package token

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/http"

	"github.com/Abraxas-365/keygate/pkg/errx"
	"github.com/google/uuid"
)

const (
	// TokenBytes is the amount of randomness behind every opaque token.
	TokenBytes = 64

	// DefaultMaxAttempts bounds every uniqueness loop.
	DefaultMaxAttempts = 16
)

var ErrRegistry = errx.NewRegistry("TOKEN")

var (
	CodeTokenExhausted        = ErrRegistry.Register("TOKEN_EXHAUSTED", errx.TypeInternal, http.StatusInternalServerError, "Could not allocate a unique value")
	CodeRandomnessFailed      = ErrRegistry.Register("RANDOMNESS_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Secure randomness unavailable")
	CodeUniquenessCheckFailed = ErrRegistry.Register("UNIQUENESS_CHECK_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Uniqueness check failed")
)

func ErrTokenExhausted() *errx.Error   { return ErrRegistry.New(CodeTokenExhausted) }
func ErrRandomnessFailed() *errx.Error { return ErrRegistry.New(CodeRandomnessFailed) }

// ExistsFunc reports whether value is already taken. A non-nil error means the
// store could not be consulted and aborts the allocation.
type ExistsFunc func(ctx context.Context, value string) (bool, error)

// RandomToken returns 64 random bytes encoded as unpadded base64url.
func RandomToken() (string, error) {
	b := make([]byte, TokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", ErrRegistry.NewWithCause(CodeRandomnessFailed, err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Generator allocates store-unique tokens and ids with a bounded re-roll loop.
type Generator struct {
	maxAttempts int
	newToken    func() (string, error)
	newID       func() (string, error)
}

// Option customises a Generator.
type Option func(*Generator)

// WithMaxAttempts caps the re-roll loop.
func WithMaxAttempts(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// WithTokenSource replaces the random token source.
func WithTokenSource(fn func() (string, error)) Option {
	return func(g *Generator) { g.newToken = fn }
}

// WithIDSource replaces the id source.
func WithIDSource(fn func() (string, error)) Option {
	return func(g *Generator) { g.newID = fn }
}

func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		maxAttempts: DefaultMaxAttempts,
		newToken:    RandomToken,
		newID: func() (string, error) {
			return uuid.NewString(), nil
		},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Unique returns a random token that exists does not report as taken.
func (g *Generator) Unique(ctx context.Context, exists ExistsFunc) (string, error) {
	return g.allocate(ctx, g.newToken, exists, nil)
}

// UniqueID is Unique over uuid candidates.
func (g *Generator) UniqueID(ctx context.Context, exists ExistsFunc) (string, error) {
	return g.allocate(ctx, g.newID, exists, nil)
}

// UniquePair returns two untaken tokens that also differ from each other.
func (g *Generator) UniquePair(ctx context.Context, exists ExistsFunc) (first, second string, err error) {
	first, err = g.allocate(ctx, g.newToken, exists, nil)
	if err != nil {
		return "", "", err
	}
	second, err = g.allocate(ctx, g.newToken, exists, func(candidate string) bool {
		return candidate != first
	})
	if err != nil {
		return "", "", err
	}
	return first, second, nil
}

func (g *Generator) allocate(ctx context.Context, source func() (string, error), exists ExistsFunc, accept func(string) bool) (string, error) {
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		candidate, err := source()
		if err != nil {
			return "", err
		}
		if accept != nil && !accept(candidate) {
			continue
		}

		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", ErrRegistry.NewWithCause(CodeUniquenessCheckFailed, err)
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", ErrTokenExhausted().WithDetail("attempts", g.maxAttempts)
}
