package integrity

import (
	"errors"

	"mlwh-sync/core/logger"
	"mlwh-sync/core/utils"

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
	group.Get("/warehouse", h.HandleWarehouseCheck)
	group.Get("/target", h.HandleTargetCheck)
	group.Get("/archive", h.HandleArchiveCheck)
}

// HandleIntegrityCheck runs every check. It answers 503 when any check
// failed.
func (h *Handler) HandleIntegrityCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	l.Info("Triggering all integrity checks")

	report := h.service.CheckAll(c.UserContext())
	if !report.OK() {
		l.Warn("Integrity checks failed",
			zap.String("warehouse", report.Warehouse.Status),
			zap.String("target", report.Target.Status),
			zap.String("archive", report.Archive.Status),
		)
		return c.Status(fiber.StatusServiceUnavailable).JSON(report)
	}
	return c.JSON(report)
}

// HandleWarehouseCheck compares the warehouse schema with the platform
// queries.
func (h *Handler) HandleWarehouseCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	report, err := h.service.CheckWarehouse()
	if err != nil {
		return h.fail(c, l, "Warehouse check failed", err)
	}
	if !report.Matched {
		l.Warn("Warehouse schema mismatch")
	}
	return c.JSON(report)
}

// HandleTargetCheck pings the target store.
func (h *Handler) HandleTargetCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	if err := h.service.CheckTarget(c.UserContext()); err != nil {
		return h.fail(c, l, "Target check failed", err)
	}
	return c.JSON(fiber.Map{"status": StatusOK})
}

// HandleArchiveCheck checks and optionally creates the report bucket.
func (h *Handler) HandleArchiveCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	fix := utils.ToBool(c.Query("fix"))

	report, err := h.service.CheckArchive(c.UserContext(), fix)
	if err != nil {
		return h.fail(c, l, "Archive check failed", err)
	}
	if report.Created {
		return c.JSON(fiber.Map{"status": "fixed", "bucket": report.Bucket})
	}
	return c.JSON(fiber.Map{"status": "checked", "bucket": report.Bucket, "exists": report.Exists})
}

func (h *Handler) fail(c *fiber.Ctx, l *zap.Logger, msg string, err error) error {
	if errors.Is(err, ErrNotConfigured) {
		return c.Status(fiber.StatusNotImplemented).JSON(fiber.Map{"error": err.Error()})
	}
	l.Error(msg, zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}
