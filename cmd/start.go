package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"treesync/core/loader"
	"treesync/core/logger"
	"treesync/core/middleware/auth"
	"treesync/core/middleware/rayid"
	"treesync/core/tree"
	"treesync/feature/inspect"
	"treesync/feature/integrity"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "treesync/docs/swagger"
)

// @title treesync API
// @version 1.0
// @description Inspection API for the treesync engines.
// @host localhost:8080
// @BasePath /

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the sync engines and the inspection server",
	Long:  `Runs the engines of the selected sides continuously and serves the inspection API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		rt, err := bootstrap(ctx, sideFlag)
		if err != nil {
			return err
		}
		defer rt.Close()
		logg := rt.logger

		app, err := newServer(rt)
		if err != nil {
			return err
		}

		// Start Server
		if rt.cfg.Server.Enabled {
			go func() {
				logg.Info("Starting server", zap.String("addr", rt.cfg.Server.Addr()))
				if err := app.Listen(rt.cfg.Server.Addr()); err != nil {
					logg.Error("Server failed", zap.Error(err))
					cancel()
				}
			}()
		}

		done := make(chan error, 1)
		go func() { done <- rt.serve(ctx) }()

		// Graceful Shutdown
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		select {
		case <-c:
		case <-ctx.Done():
		}
		logg.Info("Shutting down...")
		cancel()
		_ = app.Shutdown()
		return <-done
	},
}

// newServer builds the HTTP app with the inspection features of every open side.
func newServer(rt *runtime) (*fiber.App, error) {
	logg := rt.logger
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	mgr := loader.NewManager()
	mgr.Register(integrity.NewFeature(integrity.NewService(integrity.Options{
		DB:        rt.db,
		Client:    rt.storage,
		Bucket:    rt.cfg.Storage.Bucket,
		Region:    rt.cfg.Storage.Region,
		Prefix:    rt.cfg.Remote.Prefix,
		Fs:        afero.NewOsFs(),
		LocalPath: rt.cfg.Local.Path,
	}, logg)))
	if rt.local != nil {
		mgr.Register(inspect.NewFeature(sideLocal, rt.local, tree.Uint64Codec{}, logger.Named(logg, sideLocal), true))
	}
	if rt.remote != nil {
		mgr.Register(inspect.NewFeature(sideRemote, rt.remote, tree.StringCodec{}, logger.Named(logg, sideRemote), true))
	}

	// RayID must be first to trace everything
	app.Use(rayid.New())

	app.Use(func(c *fiber.Ctx) error {
		l := logger.WithRayID(logg, c)
		l.Info("Request started",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("ip", c.IP()),
		)
		err := c.Next()
		if err != nil {
			l.Error("Request error", zap.Error(err))
		}
		return err
	})

	// Swagger Documentation (Public)
	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Use(auth.New(auth.Config{ApiKey: rt.cfg.Server.ApiKey}))

	loaded, err := mgr.LoadAll(app)
	if err != nil {
		return nil, fmt.Errorf("failed to load features: %w", err)
	}
	logg.Info("Features loaded", zap.Strings("features", loaded))
	return app, nil
}

func init() {
	RootCmd.AddCommand(startCmd)
}
