package kernel

// ============================================================================
// Context Types
// ============================================================================

// AuthContext is what the bearer middleware injects into every protected request.
type AuthContext struct {
	AccountID AccountID `json:"account_id"`
	SessionID SessionID `json:"session_id"`
}

// IsValid reports whether both identifiers were resolved.
func (ac *AuthContext) IsValid() bool {
	return ac != nil && !ac.AccountID.IsEmpty() && !ac.SessionID.IsEmpty()
}

// ============================================================================
// Context Keys
// ============================================================================

type ContextKey string

const (
	// AuthContextKey stores the *AuthContext
	AuthContextKey ContextKey = "auth_context"

	// AccountContextKey stores the AccountID of the bearer
	AccountContextKey ContextKey = "account_id"

	// SessionContextKey stores the SessionID of the bearer
	SessionContextKey ContextKey = "session_id"

	// RequestIDKey stores the request id
	RequestIDKey ContextKey = "request_id"
)
