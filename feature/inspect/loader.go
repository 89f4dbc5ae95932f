package inspect

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"treesync/core/reconcile"
	"treesync/core/tree"
)

// Feature implements the loader.Feature interface for one engine side.
type Feature[I tree.ID, A comparable] struct {
	side    string
	enabled bool
	handler *Handler[I, A]
}

// NewFeature creates the inspection feature for side.
func NewFeature[I tree.ID, A comparable](side string, engine *reconcile.Engine[I, A], codec tree.AltCodec[A], logger *zap.Logger, enabled bool) *Feature[I, A] {
	return &Feature[I, A]{
		side:    side,
		enabled: enabled,
		handler: NewHandler(engine, codec, logger),
	}
}

// Name returns the name of the feature.
func (f *Feature[I, A]) Name() string {
	return "inspect-" + f.side
}

// IsEnabled checks if the feature is enabled.
func (f *Feature[I, A]) IsEnabled() bool {
	return f.enabled
}

// Load registers the feature's routes.
func (f *Feature[I, A]) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app.Group("/" + f.side))
	return nil
}
