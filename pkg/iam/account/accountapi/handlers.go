package accountapi

import (
	"github.com/Abraxas-365/keygate/pkg/errx"
	"github.com/Abraxas-365/keygate/pkg/iam"
	"github.com/Abraxas-365/keygate/pkg/iam/account/accountsrv"
	"github.com/Abraxas-365/keygate/pkg/kernel"
	"github.com/gofiber/fiber/v2"
)

// ProfileHandlers serves the caller's identity and public profiles.
type ProfileHandlers struct {
	service *accountsrv.ProfileService
}

func NewProfileHandlers(service *accountsrv.ProfileService) *ProfileHandlers {
	return &ProfileHandlers{service: service}
}

type UpdateInfoRequest struct {
	Info string `json:"info"`
}

// RegisterRoutes mounts /api/user and /api/profiles behind the bearer middleware.
func (h *ProfileHandlers) RegisterRoutes(app fiber.Router, authMiddleware fiber.Handler) {
	// /api/user is shared with the session routes, so the middleware goes per route
	user := app.Group("/api/user")
	user.Get("/my_id", authMiddleware, h.MyID)
	user.Get("/my_nickname", authMiddleware, h.MyNickname)

	profiles := app.Group("/api/profiles", authMiddleware)
	profiles.Get("/:account_id", h.GetProfile)
	profiles.Patch("/:account_id", h.UpdateInfo)
}

// MyID answers the caller's account id as plain text.
func (h *ProfileHandlers) MyID(c *fiber.Ctx) error {
	auth, err := iam.AuthFrom(c)
	if err != nil {
		return err
	}
	return c.SendString(auth.AccountID.String())
}

func (h *ProfileHandlers) MyNickname(c *fiber.Ctx) error {
	auth, err := iam.AuthFrom(c)
	if err != nil {
		return err
	}

	nickname, err := h.service.Nickname(c.Context(), auth.AccountID)
	if err != nil {
		return err
	}
	return c.SendString(nickname)
}

func (h *ProfileHandlers) GetProfile(c *fiber.Ctx) error {
	if _, err := iam.AuthFrom(c); err != nil {
		return err
	}

	profile, err := h.service.GetProfile(c.Context(), kernel.NewAccountID(c.Params("account_id")))
	if err != nil {
		return err
	}
	return c.JSON(iam.OK(profile))
}

func (h *ProfileHandlers) UpdateInfo(c *fiber.Ctx) error {
	auth, err := iam.AuthFrom(c)
	if err != nil {
		return err
	}

	var req UpdateInfoRequest
	if err := c.BodyParser(&req); err != nil {
		return errx.Validation("invalid request body")
	}

	profile, err := h.service.UpdateInfo(c.Context(), auth.AccountID, kernel.NewAccountID(c.Params("account_id")), req.Info)
	if err != nil {
		return err
	}
	return c.JSON(iam.OK(profile))
}
