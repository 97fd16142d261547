package rest

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/lista-crm/sites-platform/internal/application"
	"github.com/lista-crm/sites-platform/internal/application/dto"
	"github.com/lista-crm/sites-platform/internal/application/errs"
	"github.com/lista-crm/sites-platform/internal/application/resolver"
	"github.com/lista-crm/sites-platform/internal/infra/auth"
)

type Server struct {
	commands *application.Collection
	resolver *resolver.Resolver
}

func NewServer(commands *application.Collection, res *resolver.Resolver) *Server {
	return &Server{commands: commands, resolver: res}
}

func RegisterHandlers(app *fiber.App, s *Server, authCfg auth.Config) {
	api := app.Group("/api", auth.Middleware(authCfg))
	api.Post("/sites", s.CreateSite)
	api.Get("/sites/:id", s.GetSite)
	api.Get("/sites/:id/draft", s.GetDraft)
	api.Put("/sites/:id/draft", s.UpdateDraft)
	api.Post("/sites/:id/publish", s.PublishSite)
	api.Post("/sites/:id/preview-session", s.CreatePreviewSession)

	app.Get("/internal/resolve", s.ResolveHost)
}

func (s *Server) CreateSite(c *fiber.Ctx) error {
	var req dto.CreateSiteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	resp, err := s.commands.CreateSite.Execute(c.UserContext(), &req)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (s *Server) GetSite(c *fiber.Ctx) error {
	siteID, err := siteIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	resp, err := s.commands.GetSite.Query(c.UserContext(), siteID)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}

func (s *Server) GetDraft(c *fiber.Ctx) error {
	siteID, err := siteIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	resp, err := s.commands.GetDraft.Query(c.UserContext(), siteID)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}

func (s *Server) UpdateDraft(c *fiber.Ctx) error {
	siteID, err := siteIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	var req dto.UpdateDraftRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	resp, err := s.commands.UpdateDraft.Execute(c.UserContext(), siteID, &req)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}

func (s *Server) PublishSite(c *fiber.Ctx) error {
	siteID, err := siteIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	resp, err := s.commands.PublishSite.Execute(c.UserContext(), siteID)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}

func (s *Server) CreatePreviewSession(c *fiber.Ctx) error {
	siteID, err := siteIDParam(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: err.Error()})
	}

	resp, err := s.commands.CreatePreviewSession.Execute(c.UserContext(), siteID)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(resp)
}

// ResolveHost exposes the resolver to theme SSR backends so they can load
// the site context for an incoming host.
func (s *Server) ResolveHost(c *fiber.Ctx) error {
	host := c.Query("host")
	if host == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "host query parameter is required"})
	}

	record, err := s.resolver.Resolve(c.UserContext(), host)
	if err != nil {
		return errorResponse(c, err)
	}
	if record == nil {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: "site not found"})
	}

	return c.Status(fiber.StatusOK).JSON(record)
}

func siteIDParam(c *fiber.Ctx) (uint64, error) {
	return strconv.ParseUint(c.Params("id"), 10, 64)
}

func errorResponse(c *fiber.Ctx, err error) error {
	var notFound errs.NotFoundError
	if errors.As(err, &notFound) {
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	var conflict errs.ConflictError
	if errors.As(err, &conflict) {
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Error: err.Error()})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: err.Error()})
}
