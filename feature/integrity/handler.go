package integrity

import (
	"errors"

	"table-sync/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for integrity checks.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the integrity routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/integrity")
	group.Get("/", h.HandleIntegrityCheck)
	group.Get("/storage", h.HandleStorageCheck)
	group.Get("/history", h.HandleHistoryCheck)
	group.Get("/pipelines", h.HandlePipelinesCheck)
}

func errorEntry(err error) fiber.Map {
	status := "error"
	if errors.Is(err, ErrStorageDisabled) || errors.Is(err, ErrHistoryDisabled) {
		status = "disabled"
	}
	return fiber.Map{"status": status, "error": err.Error()}
}

// HandleIntegrityCheck runs all checks.
func (h *Handler) HandleIntegrityCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	l.Info("Triggering all integrity checks")

	ctx := c.UserContext()
	report := make(map[string]any)

	if storageReport, err := h.service.CheckStorage(ctx); err != nil {
		report["storage"] = errorEntry(err)
	} else {
		report["storage"] = storageReport
	}

	if historyReport, err := h.service.CheckHistory(ctx); err != nil {
		report["history"] = errorEntry(err)
	} else {
		report["history"] = historyReport
	}

	report["pipelines"] = h.service.CheckPipelines(ctx)

	return c.JSON(report)
}

// HandleStorageCheck checks and optionally creates the snapshot bucket.
func (h *Handler) HandleStorageCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	fix := c.Query("fix") == "true"

	report, err := h.service.CheckStorage(c.UserContext())
	if err != nil {
		l.Error("Storage check failed", zap.Error(err))
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}

	if !report.Exists && fix {
		l.Info("Attempting to create snapshot bucket")
		if err := h.service.FixStorage(c.UserContext()); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":   "Failed to create bucket",
				"details": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"status": "fixed", "bucket": report.Bucket})
	}

	return c.JSON(report)
}

// HandleHistoryCheck checks and optionally migrates the history table.
func (h *Handler) HandleHistoryCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	fix := c.Query("fix") == "true"

	report, err := h.service.CheckHistory(c.UserContext())
	if err != nil {
		l.Error("History check failed", zap.Error(err))
		return c.Status(statusFor(err)).JSON(fiber.Map{"error": err.Error()})
	}

	if len(report.MissingColumns) > 0 {
		l.Warn("History table is missing columns", zap.Strings("missing", report.MissingColumns))

		if fix {
			if err := h.service.FixHistory(c.UserContext()); err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error":   "Failed to migrate history table",
					"details": err.Error(),
					"missing": report.MissingColumns,
				})
			}
			return c.JSON(fiber.Map{"status": "fixed", "fixed": report.MissingColumns})
		}
	}

	return c.JSON(report)
}

// HandlePipelinesCheck plans every pipeline without writing.
func (h *Handler) HandlePipelinesCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	l.Info("Starting pipelines check")

	reports := h.service.CheckPipelines(c.UserContext())
	return c.JSON(fiber.Map{"pipelines": reports})
}

func statusFor(err error) int {
	if errors.Is(err, ErrStorageDisabled) || errors.Is(err, ErrHistoryDisabled) {
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}
