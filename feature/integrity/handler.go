package integrity

import (
	"treesync/core/logger"

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
	group.Get("/store", h.HandleStoreCheck)
	group.Get("/bucket", h.HandleBucketCheck)
	group.Get("/local", h.HandleLocalCheck)
}

// HandleIntegrityCheck triggers all integrity checks.
// @Summary Run All Integrity Checks
// @Description Checks the tree store schema, the mirrored bucket and the synced directory.
// @Tags integrity
// @Accept json
// @Produce json
// @Param fix query boolean false "Repair failing checks"
// @Success 200 {object} integrity.Report "Combined Report"
// @Router /integrity [get]
func (h *Handler) HandleIntegrityCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	l.Info("Triggering all integrity checks")

	report := h.service.CheckAll(c.UserContext(), c.Query("fix") == "true")
	if !report.Healthy {
		l.Warn("Integrity checks failed", zap.Any("errors", report.Errors))
	}
	return c.JSON(report)
}

// HandleStoreCheck checks and optionally migrates the tree store.
// @Summary Check Tree Store
// @Description Checks that the tree store tables have every column. Optionally migrates them.
// @Tags integrity
// @Accept json
// @Produce json
// @Param fix query boolean false "Migrate the tables"
// @Success 200 {object} checks.StoreReport "Store Report"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /integrity/store [get]
func (h *Handler) HandleStoreCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	fix := c.Query("fix") == "true"

	report, err := h.service.CheckStore()
	if err != nil {
		l.Error("Store check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	if !report.Matched && fix {
		l.Info("Attempting to migrate tree store")
		if err := h.service.FixStore(c.UserContext()); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":   "Failed to migrate tree store",
				"details": err.Error(),
			})
		}
		if report, err = h.service.CheckStore(); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		}
	}

	return c.JSON(report)
}

// HandleBucketCheck checks and optionally creates the bucket.
// @Summary Check Bucket
// @Description Checks that the mirrored bucket exists. Optionally creates it.
// @Tags integrity
// @Accept json
// @Produce json
// @Param fix query boolean false "Create the bucket"
// @Success 200 {object} checks.BucketReport "Bucket Report"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /integrity/bucket [get]
func (h *Handler) HandleBucketCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	fix := c.Query("fix") == "true"
	ctx := c.UserContext()

	report, err := h.service.CheckBucket(ctx)
	if err != nil {
		l.Error("Bucket check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	if !report.Exists {
		l.Warn("Bucket missing", zap.String("bucket", report.Bucket))
		if fix {
			if err := h.service.FixBucket(ctx); err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error":   "Failed to create bucket",
					"details": err.Error(),
				})
			}
			report.Exists = true
		}
	}

	return c.JSON(report)
}

// HandleLocalCheck checks and optionally creates the synced directory.
// @Summary Check Local Directory
// @Description Checks that the synced directory exists. Optionally creates it.
// @Tags integrity
// @Accept json
// @Produce json
// @Param fix query boolean false "Create the directory"
// @Success 200 {object} checks.LocalReport "Local Report"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /integrity/local [get]
func (h *Handler) HandleLocalCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	fix := c.Query("fix") == "true"

	report, err := h.service.CheckLocal()
	if err != nil {
		l.Error("Local check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	if !report.Exists && fix {
		if err := h.service.FixLocal(); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":   "Failed to create directory",
				"details": err.Error(),
			})
		}
		report.Exists = true
	}

	return c.JSON(report)
}
