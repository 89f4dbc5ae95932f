package inspect

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"treesync/core/logger"
	"treesync/core/reconcile"
	"treesync/core/tree"
)

// NodeView is a node with its path from the sync root.
type NodeView[I tree.ID, A comparable] struct {
	tree.Model[I, A]
	Path string `json:"path"`
}

// Handler handles HTTP requests for one engine.
type Handler[I tree.ID, A comparable] struct {
	engine *reconcile.Engine[I, A]
	codec  tree.AltCodec[A]
	logger *zap.Logger
}

// NewHandler creates a new HTTP handler.
func NewHandler[I tree.ID, A comparable](engine *reconcile.Engine[I, A], codec tree.AltCodec[A], logger *zap.Logger) *Handler[I, A] {
	return &Handler[I, A]{engine: engine, codec: codec, logger: logger}
}

// RegisterRoutes registers the inspection routes.
func (h *Handler[I, A]) RegisterRoutes(r fiber.Router) {
	r.Get("/nodes/:id", h.HandleGetNode)
	r.Get("/nodes/:id/children", h.HandleGetChildren)
	r.Get("/alt/:volume/*", h.HandleGetByAltID)
	r.Get("/operations", h.HandleDrainOperations)
	r.Get("/stats", h.HandleGetStats)
	r.Post("/passes", h.HandleRunPass)
}

// HandleGetNode returns one node.
// @Summary Get Node
// @Description Get a node of the adapter tree and its path.
// @Tags inspect
// @Produce json
// @Param side path string true "Engine side (local or remote)"
// @Param id path int true "Node ID"
// @Success 200 {object} map[string]interface{} "Node"
// @Failure 404 {object} map[string]string "Not Found"
// @Router /{side}/nodes/{id} [get]
func (h *Handler[I, A]) HandleGetNode(c *fiber.Ctx) error {
	id, err := parseID[I](c.Params("id"))
	if err != nil {
		return badRequest(c, err)
	}
	m, ok, err := h.engine.Node(c.UserContext(), id)
	if err != nil {
		return h.failed(c, "Node lookup failed", err)
	}
	if !ok {
		return notFound(c)
	}
	return h.view(c, m)
}

// HandleGetChildren returns the direct children of a node.
// @Summary List Children
// @Description List the direct children of a directory node.
// @Tags inspect
// @Produce json
// @Param side path string true "Engine side (local or remote)"
// @Param id path int true "Node ID"
// @Success 200 {array} map[string]interface{} "Children"
// @Failure 404 {object} map[string]string "Not Found"
// @Router /{side}/nodes/{id}/children [get]
func (h *Handler[I, A]) HandleGetChildren(c *fiber.Ctx) error {
	id, err := parseID[I](c.Params("id"))
	if err != nil {
		return badRequest(c, err)
	}
	ctx := c.UserContext()
	if _, ok, err := h.engine.Node(ctx, id); err != nil {
		return h.failed(c, "Node lookup failed", err)
	} else if !ok {
		return notFound(c)
	}
	children, err := h.engine.Children(ctx, id)
	if err != nil {
		return h.failed(c, "Children lookup failed", err)
	}
	return c.JSON(children)
}

// HandleGetByAltID returns the node holding an external id.
// @Summary Get Node By External ID
// @Description Look a node up by volume and external id.
// @Tags inspect
// @Produce json
// @Param side path string true "Engine side (local or remote)"
// @Param volume path int true "Volume ID"
// @Param alt path string true "External ID"
// @Success 200 {object} map[string]interface{} "Node"
// @Failure 404 {object} map[string]string "Not Found"
// @Router /{side}/alt/{volume}/{alt} [get]
func (h *Handler[I, A]) HandleGetByAltID(c *fiber.Ctx) error {
	volume, err := strconv.ParseUint(c.Params("volume"), 10, 32)
	if err != nil {
		return badRequest(c, err)
	}
	id, err := h.codec.Decode(c.Params("*"))
	if err != nil {
		return badRequest(c, err)
	}
	alt := tree.AltID[A]{VolumeID: tree.VolumeID(volume), ID: id}
	if !alt.HasID() {
		return badRequest(c, errors.New("external id is required"))
	}

	m, ok, err := h.engine.NodeByAltID(c.UserContext(), alt)
	if err != nil {
		return h.failed(c, "Node lookup failed", err)
	}
	if !ok {
		return notFound(c)
	}
	return h.view(c, m)
}

// HandleDrainOperations returns and clears the committed operation log.
// @Summary Drain Operations
// @Description Return the operations committed since the last drain.
// @Tags inspect
// @Produce json
// @Param side path string true "Engine side (local or remote)"
// @Success 200 {array} map[string]interface{} "Operations"
// @Router /{side}/operations [get]
func (h *Handler[I, A]) HandleDrainOperations(c *fiber.Ctx) error {
	ops, err := h.engine.Drain(c.UserContext())
	if err != nil {
		return h.failed(c, "Operation drain failed", err)
	}
	if ops == nil {
		ops = []tree.Operation[I, A]{}
	}
	return c.JSON(ops)
}

// HandleGetStats returns engine counters.
// @Summary Get Stats
// @Description Pass counters and the last pass result.
// @Tags inspect
// @Produce json
// @Param side path string true "Engine side (local or remote)"
// @Success 200 {object} reconcile.Stats "Stats"
// @Router /{side}/stats [get]
func (h *Handler[I, A]) HandleGetStats(c *fiber.Ctx) error {
	stats, err := h.engine.Stats(c.UserContext())
	if err != nil {
		return h.failed(c, "Stats failed", err)
	}
	return c.JSON(stats)
}

// HandleRunPass runs one pass and returns its result.
// @Summary Run Pass
// @Description Run a full or dirty pass immediately.
// @Tags inspect
// @Produce json
// @Param side path string true "Engine side (local or remote)"
// @Param mode query string false "full or dirty (default dirty)"
// @Success 200 {object} reconcile.PassResult "Pass Result"
// @Failure 500 {object} map[string]string "Internal Server Error"
// @Router /{side}/passes [post]
func (h *Handler[I, A]) HandleRunPass(c *fiber.Ctx) error {
	var mode reconcile.PassMode
	switch c.Query("mode", "dirty") {
	case "full":
		mode = reconcile.PassFull
	case "dirty":
		mode = reconcile.PassDirty
	default:
		return badRequest(c, errors.New("mode must be full or dirty"))
	}

	l := logger.WithRayID(h.logger, c)
	res, err := h.engine.RunPass(c.UserContext(), mode)
	if err != nil {
		return h.failed(c, "Pass failed", err)
	}
	l.Info("Pass requested", zap.Stringer("mode", mode), zap.Int("created", res.Created),
		zap.Int("updated", res.Updated), zap.Int("deleted", res.Deleted))
	return c.JSON(res)
}

func (h *Handler[I, A]) view(c *fiber.Ctx, m tree.Model[I, A]) error {
	p, err := h.engine.Path(c.UserContext(), m.ID)
	if err != nil {
		return h.failed(c, "Path lookup failed", err)
	}
	return c.JSON(NodeView[I, A]{Model: m, Path: p})
}

func (h *Handler[I, A]) failed(c *fiber.Ctx, msg string, err error) error {
	status := fiber.StatusInternalServerError
	if errors.Is(err, reconcile.ErrSchedulerClosed) || errors.Is(err, context.Canceled) {
		status = fiber.StatusServiceUnavailable
	}
	logger.WithRayID(h.logger, c).Error(msg, zap.Error(err))
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func parseID[I tree.ID](s string) (I, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v < 0 {
		return 0, errors.New("invalid node id")
	}
	return I(v), nil
}

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
}

func notFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "node not found"})
}
