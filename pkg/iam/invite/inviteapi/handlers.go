package inviteapi

import (
	"github.com/Abraxas-365/keygate/pkg/errx"
	"github.com/Abraxas-365/keygate/pkg/iam"
	"github.com/Abraxas-365/keygate/pkg/iam/invite"
	"github.com/Abraxas-365/keygate/pkg/iam/invite/invitesrv"
	"github.com/Abraxas-365/keygate/pkg/kernel"
	"github.com/gofiber/fiber/v2"
)

// InviteHandlers exposes invite CRUD over HTTP.
type InviteHandlers struct {
	service *invitesrv.InviteService
}

func NewInviteHandlers(service *invitesrv.InviteService) *InviteHandlers {
	return &InviteHandlers{service: service}
}

// RegisterRoutes mounts /api/invites behind the bearer middleware.
func (h *InviteHandlers) RegisterRoutes(app fiber.Router, authMiddleware fiber.Handler) {
	invites := app.Group("/api/invites", authMiddleware)

	invites.Post("/", h.CreateInvite)
	invites.Get("/", h.ListInvites)
	invites.Get("/:id", h.GetInvite)
	invites.Put("/:id", h.UpdateInvite)
	invites.Delete("/:id", h.DeleteInvite)
}

func (h *InviteHandlers) CreateInvite(c *fiber.Ctx) error {
	auth, err := iam.AuthFrom(c)
	if err != nil {
		return err
	}

	var req invite.CreateInviteRequest
	if err := c.BodyParser(&req); err != nil {
		return errx.Validation("invalid request body")
	}

	inv, err := h.service.CreateInvite(c.Context(), auth.AccountID, req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(iam.OK(inv))
}

func (h *InviteHandlers) ListInvites(c *fiber.Ctx) error {
	auth, err := iam.AuthFrom(c)
	if err != nil {
		return err
	}

	opts := kernel.PaginationOptions{
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", 20),
	}

	page, err := h.service.ListInvites(c.Context(), auth.AccountID, opts)
	if err != nil {
		return err
	}
	return c.JSON(iam.OK(page))
}

func (h *InviteHandlers) GetInvite(c *fiber.Ctx) error {
	auth, err := iam.AuthFrom(c)
	if err != nil {
		return err
	}

	inv, err := h.service.GetInvite(c.Context(), auth.AccountID, c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(iam.OK(inv))
}

func (h *InviteHandlers) UpdateInvite(c *fiber.Ctx) error {
	auth, err := iam.AuthFrom(c)
	if err != nil {
		return err
	}

	var req invite.UpdateInviteRequest
	if err := c.BodyParser(&req); err != nil {
		return errx.Validation("invalid request body")
	}

	inv, err := h.service.UpdateInvite(c.Context(), auth.AccountID, c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(iam.OK(inv))
}

func (h *InviteHandlers) DeleteInvite(c *fiber.Ctx) error {
	auth, err := iam.AuthFrom(c)
	if err != nil {
		return err
	}

	if err := h.service.DeleteInvite(c.Context(), auth.AccountID, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
