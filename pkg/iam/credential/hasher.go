package credential

import (
	"context"
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"net/http"

	"github.com/Abraxas-365/keygate/pkg/asyncx"
	"github.com/Abraxas-365/keygate/pkg/errx"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// DefaultIterations is the PBKDF2 work factor used when none is configured.
	DefaultIterations = 100_000

	// KeyLength is both the salt length and the derived key length (SHA-512 output).
	KeyLength = sha512.Size
)

var ErrRegistry = errx.NewRegistry("CREDENTIAL")

var (
	CodeSaltGenerationFailed = ErrRegistry.Register("SALT_GENERATION_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Salt generation failed")
)

func ErrSaltGenerationFailed() *errx.Error { return ErrRegistry.New(CodeSaltGenerationFailed) }

// Hasher derives password hashes with PBKDF2-HMAC-SHA512.
type Hasher struct {
	iterations int
}

// NewHasher returns a Hasher; iterations below DefaultIterations are raised to it.
func NewHasher(iterations int) *Hasher {
	if iterations < DefaultIterations {
		iterations = DefaultIterations
	}
	return &Hasher{iterations: iterations}
}

// Hash salts and derives password, returning base64url hash and salt.
func (h *Hasher) Hash(password string) (hash, salt string, err error) {
	saltBytes := make([]byte, KeyLength)
	if _, err := rand.Read(saltBytes); err != nil {
		return "", "", ErrRegistry.NewWithCause(CodeSaltGenerationFailed, err)
	}

	derived := h.derive(password, saltBytes)
	return base64.URLEncoding.EncodeToString(derived), base64.URLEncoding.EncodeToString(saltBytes), nil
}

// Verify re-derives password with the stored salt and compares in constant time.
// A salt that is not valid base64url never verifies.
func (h *Hasher) Verify(password, salt, expectedHash string) bool {
	saltBytes, err := base64.URLEncoding.DecodeString(salt)
	if err != nil {
		return false
	}

	actual := base64.URLEncoding.EncodeToString(h.derive(password, saltBytes))
	return subtle.ConstantTimeCompare([]byte(actual), []byte(expectedHash)) == 1
}

// HashAsync runs Hash off the calling goroutine.
func (h *Hasher) HashAsync(ctx context.Context, password string) (hash, salt string, err error) {
	type pair struct{ hash, salt string }
	p, err := asyncx.Run(func() (pair, error) {
		hs, sl, err := h.Hash(password)
		return pair{hs, sl}, err
	}).AwaitCtx(ctx)
	return p.hash, p.salt, err
}

// VerifyAsync runs Verify off the calling goroutine.
func (h *Hasher) VerifyAsync(ctx context.Context, password, salt, expectedHash string) (bool, error) {
	return asyncx.Run(func() (bool, error) {
		return h.Verify(password, salt, expectedHash), nil
	}).AwaitCtx(ctx)
}

func (h *Hasher) derive(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, h.iterations, KeyLength, sha512.New)
}
