package server

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/config"
	"github.com/sofianhamiti/amazon-sagemaker-pipelines-mlflow/pkg/contract"
)

const (
	bodyLimit      = 512 * 1024 * 1024
	readBufferSize = 16384
)

func newErrorHandler(log *logrus.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var e *contract.Error
		if !errors.As(err, &e) {
			code := contract.ErrorCodeInternalError

			var f *fiber.Error
			if errors.As(err, &f) {
				switch f.Code {
				case fiber.StatusBadRequest:
					code = contract.ErrorCodeBadRequest
				case fiber.StatusServiceUnavailable:
					code = contract.ErrorCodeServiceUnderMaintenance
				case fiber.StatusNotFound:
					code = contract.ErrorCodeEndpointNotFound
				}
			}

			e = contract.NewError(code, err.Error())
		}

		var fn func(format string, args ...any)

		switch e.StatusCode() {
		case fiber.StatusBadRequest:
			fn = log.Infof
		case fiber.StatusServiceUnavailable:
			fn = log.Warnf
		case fiber.StatusNotFound:
			fn = log.Debugf
		default:
			fn = log.Errorf
		}

		fn("Error encountered in %s %s: %s", c.Method(), c.Path(), err)

		return c.Status(e.StatusCode()).JSON(e)
	}
}

func NewApp(log *logrus.Logger, cfg *config.Config, services *Services) (*fiber.App, error) {
	app := fiber.New(fiber.Config{
		BodyLimit:             bodyLimit,
		ReadBufferSize:        readBufferSize,
		ReadTimeout:           5 * time.Second,
		WriteTimeout:          600 * time.Second,
		IdleTimeout:           120 * time.Second,
		ServerHeader:          "mlflow/" + cfg.Version,
		DisableStartupMessage: true,
		UnescapePath:          true,
		ErrorHandler:          newErrorHandler(log),
	})

	app.Use(compress.New())
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(logger.New(logger.Config{
		Format: "${status} - ${latency} ${method} ${path}\n",
		Output: log.WriterLevel(logrus.DebugLevel),
	}))

	apiApp, err := newAPIApp(log, services)
	if err != nil {
		return nil, err
	}

	app.Mount("/api/2.0", apiApp)
	app.Mount("/ajax-api/2.0", apiApp)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})
	app.Get("/version", func(c *fiber.Ctx) error {
		return c.SendString(cfg.Version)
	})

	return app, nil
}

func newAPIApp(log *logrus.Logger, services *Services) (*fiber.App, error) {
	app := fiber.New(fiber.Config{
		BodyLimit:    bodyLimit,
		UnescapePath: true,
		ErrorHandler: newErrorHandler(log),
	})

	parser, err := NewHTTPRequestParser()
	if err != nil {
		return nil, err
	}

	RegisterRoutes(app, services, parser)

	return app, nil
}
