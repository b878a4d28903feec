// Command bridge runs the NFC bridge core: it brings up a PN532 controller
// (real I2C hardware or the in-memory mock), a Session Manager driving it,
// and the HTTP facade in front of that manager.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	pn532 "github.com/nfcbridge/core"
	"github.com/nfcbridge/core/internal/api"
	"github.com/nfcbridge/core/internal/config"
	applogger "github.com/nfcbridge/core/internal/logger"
	"github.com/nfcbridge/core/internal/session"
	"github.com/nfcbridge/core/transport/i2c"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := applogger.New(cfg.Logger.Level)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = log.Sync() }()
	sugar := log.Sugar()
	pn532.SetDebugLogger(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	controller, err := buildController(ctx, cfg, sugar)
	if err != nil {
		return fmt.Errorf("failed to build controller: %w", err)
	}
	defer func() { _ = controller.Close() }()

	mgr := session.New(controller, session.Config{
		SessionTimeout: cfg.PN532.SessionTimeout(),
		TaggingTimeout: cfg.PN532.TaggingTimeout(),
	}, sugar)
	mgr.Start(ctx)
	defer mgr.Shutdown()

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				code = fiberErr.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": "internal error", "message": err.Error()})
		},
	})
	app.Use(recover.New())
	api.SetupRoutes(app, mgr, sugar)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	errCh := make(chan error, 1)
	go func() {
		sugar.Infow("bridge listening", "addr", addr, "mock", cfg.PN532.UseMock)
		errCh <- app.Listen(addr)
	}()

	select {
	case <-ctx.Done():
		sugar.Info("shutting down")
		return app.Shutdown()
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	}
}

func buildController(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (pn532.Controller, error) {
	if cfg.PN532.UseMock {
		mock := pn532.NewMockController()
		if err := mock.Initialize(ctx); err != nil {
			return nil, fmt.Errorf("failed to initialize mock controller: %w", err)
		}
		return mock, nil
	}

	busName := fmt.Sprintf("/dev/i2c-%d", cfg.PN532.I2CBus)
	transport, err := i2c.New(busName)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %s: %w", busName, err)
	}

	device, err := pn532.New(transport,
		pn532.WithTimeout(cfg.PN532.ReadyTimeout()),
		pn532.WithMaxRetries(cfg.PN532.MaxRetries),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create device: %w", err)
	}

	if err := device.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize PN532: %w", err)
	}

	log.Infow("PN532 initialized", "firmware", device.FirmwareVersion())
	return device, nil
}
