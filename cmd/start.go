package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"table-sync/core/loader"
	"table-sync/core/logger"
	"table-sync/core/middleware/auth"
	"table-sync/core/middleware/rayid"
	"table-sync/feature/integrity"
	"table-sync/feature/pipeline"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the table sync server",
	Long:  `Starts the HTTP server exposing the configured pipelines.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		logg := d.logger
		defer logg.Sync()
		zap.ReplaceGlobals(logg)

		app := fiber.New(fiber.Config{
			DisableStartupMessage: true,
			ReadTimeout:           time.Duration(d.cfg.Server.ReadTimeoutSeconds) * time.Second,
		})

		mgr := loader.NewManager()
		mgr.Register(pipeline.NewFeature(d.service, logg))
		mgr.Register(integrity.NewFeature(d.integrityOptions(), logg))

		// RayID first so every log line can be traced
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

		app.Get("/health", func(c *fiber.Ctx) error {
			return c.JSON(fiber.Map{"status": "ok"})
		})

		app.Use(auth.New(auth.Config{ApiKey: d.cfg.Server.ApiKey}))

		if err := mgr.LoadAll(app); err != nil {
			return err
		}

		go func() {
			logg.Info("Starting server",
				zap.String("port", d.cfg.Server.Port),
				zap.Strings("pipelines", d.service.Names()))
			if err := app.Listen(d.cfg.Server.Addr()); err != nil {
				logg.Fatal("Server failed to start", zap.Error(err))
			}
		}()

		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logg.Info("Shutting down server...")
		return app.Shutdown()
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
