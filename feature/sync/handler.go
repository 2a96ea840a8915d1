package sync

import (
	"errors"
	"strings"

	"mlwh-sync/core/logger"
	"mlwh-sync/core/reconcile"
	"mlwh-sync/core/storage"
	"mlwh-sync/core/target"
	"mlwh-sync/core/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for sync runs.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers the sync routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/sync")
	group.Post("/", h.HandleRun)
	group.Get("/last", h.HandleLast)
	group.Get("/reports", h.HandleReports)
	group.Get("/reports/:id", h.HandleReport)
}

// HandleRun triggers a run and returns its summary.
func (h *Handler) HandleRun(c *fiber.Ctx) error {
	l := logger.WithRayID(h.logger, c)

	req := Request{
		Platforms:      queryList(c, "platform"),
		Studies:        queryList(c, "study"),
		DryRun:         utils.ToBool(c.Query("dry_run")),
		ForceRegressed: utils.ToBool(c.Query("force_regressed")),
	}
	l.Info("Sync requested",
		zap.Strings("platforms", req.Platforms),
		zap.Strings("studies", req.Studies),
		zap.Bool("dry_run", req.DryRun),
	)

	summary, shared, err := h.service.RunDetached(c.UserContext(), req)
	switch {
	case errors.Is(err, target.ErrNoStudies):
		return c.JSON(fiber.Map{"status": "skipped", "reason": err.Error()})
	case errors.Is(err, reconcile.ErrUnknownPlatform), errors.Is(err, reconcile.ErrNoAdapters):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case err != nil:
		l.Error("Sync failed to start", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": err.Error()})
	}

	status := "ok"
	if runErr := summary.Err(); runErr != nil {
		status = "failed"
		l.Warn("Sync finished with errors", zap.Error(runErr))
	}
	return c.JSON(fiber.Map{
		"status":  status,
		"shared":  shared,
		"summary": summary,
	})
}

// HandleLast returns the most recent run summary.
func (h *Handler) HandleLast(c *fiber.Ctx) error {
	summary := h.service.Last()
	if summary == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no run yet"})
	}
	return c.JSON(summary)
}

// HandleReports lists archived reports.
func (h *Handler) HandleReports(c *fiber.Ctx) error {
	reports, err := h.service.Reports(c.UserContext(), c.QueryInt("limit", 50))
	if err != nil {
		return h.archiveError(c, err)
	}
	return c.JSON(fiber.Map{"reports": reports})
}

// HandleReport returns one archived report.
func (h *Handler) HandleReport(c *fiber.Ctx) error {
	summary, err := h.service.Report(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.archiveError(c, err)
	}
	return c.JSON(summary)
}

func (h *Handler) archiveError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ErrArchiveDisabled):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, storage.ErrReportNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	logger.WithRayID(h.logger, c).Error("Report query failed", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
}

// queryList collects a repeated or comma-separated query parameter.
func queryList(c *fiber.Ctx, name string) []string {
	var out []string
	for _, raw := range c.Context().QueryArgs().PeekMulti(name) {
		for _, v := range strings.Split(string(raw), ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}
