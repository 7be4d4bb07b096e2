package server

import (
	"context"
	"errors"
	"mime"
	"path/filepath"
	"time"

	"compliance-assistant-be/internal/bootstrap"
	"compliance-assistant-be/internal/config"
	"compliance-assistant-be/internal/metrics"
	"compliance-assistant-be/internal/pkg/serverutils"
	"compliance-assistant-be/pkg/objectstore"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	app       *fiber.App
	cfg       *config.Config
	container *bootstrap.Container
}

func New(cfg *config.Config, container *bootstrap.Container) *Server {
	// Multipart overhead on top of the largest accepted document
	bodyLimit := cfg.Storage.MaxFileSize + 1024*1024

	app := fiber.New(fiber.Config{
		BodyLimit:    bodyLimit,
		ErrorHandler: serverutils.ErrorHandlerMiddleware(),
	})

	// Middleware
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.App.CorsAllowedOrigins,
		AllowCredentials: true,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization",
	}))

	// OpenTelemetry tracing middleware (traces all HTTP requests)
	app.Use(otelfiber.Middleware())

	metrics.Register()
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/healthz", func(ctx *fiber.Ctx) error {
		return ctx.JSON(serverutils.SuccessResponse("ok", fiber.Map{"workspaces": container.Sessions.Count()}))
	})
	app.Get("/files/signed", signedFileHandler(container.Objects))

	container.RegisterRoutes(app)

	return &Server{
		app:       app,
		cfg:       cfg,
		container: container,
	}
}

func (s *Server) GetApp() *fiber.App {
	return s.app
}

func (s *Server) Run() error {
	s.container.Logger.Info("Server", "Server is running", map[string]interface{}{"url": "http://localhost:" + s.cfg.App.Port})
	return s.app.Listen(":" + s.cfg.App.Port)
}

// Shutdown stops accepting requests and waits for in-flight ones up to timeout.
func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.app.ShutdownWithContext(ctx)
}

// signedFileHandler serves objects behind the tokens minted by CreateSignedURL.
func signedFileHandler(objects *objectstore.LocalStore) fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		token := ctx.Query("token")
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Missing token")
		}
		objectPath, err := objects.VerifySignedToken(token)
		if err != nil {
			return fiber.NewError(fiber.StatusForbidden, "Invalid or expired link")
		}

		data, err := objects.Download(ctx.UserContext(), objectPath)
		if err != nil {
			if errors.Is(err, objectstore.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "File not found")
			}
			return err
		}

		contentType := mime.TypeByExtension(filepath.Ext(objectPath))
		if contentType == "" {
			contentType = fiber.MIMEOctetStream
		}
		ctx.Set(fiber.HeaderContentType, contentType)
		ctx.Set(fiber.HeaderContentDisposition, "inline; filename=\""+filepath.Base(objectPath)+"\"")
		return ctx.Send(data)
	}
}
