package auth

import (
	"context"

	"github.com/Abraxas-365/keygate/pkg/kernel"
)

// AuditService define el contrato para registrar eventos de autenticación
type AuditService interface {
	LogSignIn(ctx context.Context, grantType string, accountID kernel.AccountID, success bool, ip string, userAgent string)
	LogSignOut(ctx context.Context, accountID kernel.AccountID, sessionID kernel.SessionID, all bool, ip string)
	LogSignUp(ctx context.Context, accountID kernel.AccountID, success bool, ip string)
	LogCodeIssued(ctx context.Context, accountID kernel.AccountID, ip string)
}

// Throttle limita los intentos fallidos de inicio de sesión por clave
type Throttle interface {
	// Allow indica si la clave todavía puede intentar
	Allow(ctx context.Context, key string) (bool, error)
	// Fail registra un intento fallido
	Fail(ctx context.Context, key string) error
	// Reset limpia el contador tras un inicio de sesión correcto
	Reset(ctx context.Context, key string) error
}

// NopThrottle nunca limita
type NopThrottle struct{}

func (NopThrottle) Allow(context.Context, string) (bool, error) { return true, nil }
func (NopThrottle) Fail(context.Context, string) error          { return nil }
func (NopThrottle) Reset(context.Context, string) error         { return nil }
