package pipeline

import (
	"errors"
	"strconv"

	"table-sync/core/logger"
	"table-sync/core/reconcile"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for pipelines.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers the pipeline routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/pipelines")
	group.Get("/", h.HandleList)
	group.Get("/:name/plan", h.HandlePlan)
	group.Post("/:name/sync", h.HandleSync)
	group.Get("/:name/runs", h.HandleRuns)
}

// HandleList lists the configured pipelines.
func (h *Handler) HandleList(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"pipelines": h.service.Definitions()})
}

// HandlePlan returns the diff a sync would apply, without writing.
func (h *Handler) HandlePlan(c *fiber.Ctx) error {
	l := logger.WithRayID(h.logger, c)
	name := c.Params("name")

	plans, err := h.service.Plan(c.UserContext(), name)
	if err != nil {
		l.Error("Plan failed", zap.String("pipeline", name), zap.Error(err))
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error(), "plans": plans})
	}
	return c.JSON(fiber.Map{"pipeline": name, "plans": plans})
}

// HandleSync runs one pass of the pipeline.
func (h *Handler) HandleSync(c *fiber.Ctx) error {
	l := logger.WithRayID(h.logger, c)
	name := c.Params("name")
	l.Info("Triggering sync", zap.String("pipeline", name))

	reports, err := h.service.Run(c.UserContext(), name)
	if err != nil {
		l.Error("Sync failed", zap.String("pipeline", name), zap.Error(err))
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error(), "reports": reports})
	}
	return c.JSON(fiber.Map{"pipeline": name, "reports": reports})
}

// HandleRuns lists recorded passes. The limit query parameter caps the result.
func (h *Handler) HandleRuns(c *fiber.Ctx) error {
	name := c.Params("name")
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "limit must be a non-negative integer"})
		}
		limit = n
	}

	runs, err := h.service.Runs(c.UserContext(), name, limit)
	if err != nil {
		logger.WithRayID(h.logger, c).Error("Listing runs failed", zap.String("pipeline", name), zap.Error(err))
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"pipeline": name, "runs": runs})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrUnknownPipeline):
		return fiber.StatusNotFound
	case errors.Is(err, ErrHistoryDisabled):
		return fiber.StatusServiceUnavailable
	case errors.Is(err, reconcile.ErrConfiguration):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, reconcile.ErrFetch), errors.Is(err, reconcile.ErrPermissionDenied):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}
