package iam

import (
	"context"

	"github.com/Abraxas-365/keygate/pkg/kernel"
	"github.com/gofiber/fiber/v2"
)

// AuthFrom returns the identity the bearer middleware stored on c.
func AuthFrom(c *fiber.Ctx) (*kernel.AuthContext, error) {
	authContext, ok := c.Locals(kernel.AuthContextKey).(*kernel.AuthContext)
	if !ok || !authContext.IsValid() {
		return nil, ErrUnauthorized()
	}
	return authContext, nil
}

// SetAuth stores the bearer identity on c under every key handlers read.
func SetAuth(c *fiber.Ctx, authContext *kernel.AuthContext) {
	c.Locals(kernel.AuthContextKey, authContext)
	c.Locals(kernel.AccountContextKey, authContext.AccountID)
	c.Locals(kernel.SessionContextKey, authContext.SessionID)

	ctx := context.WithValue(c.UserContext(), kernel.AccountContextKey, authContext.AccountID)
	c.SetUserContext(context.WithValue(ctx, kernel.SessionContextKey, authContext.SessionID))
}
