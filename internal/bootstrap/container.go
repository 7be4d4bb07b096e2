package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"compliance-assistant-be/internal/config"
	"compliance-assistant-be/internal/controller"
	"compliance-assistant-be/internal/handler"
	"compliance-assistant-be/internal/pkg/logger"
	"compliance-assistant-be/internal/pkg/serverutils"
	"compliance-assistant-be/internal/repository/memory"
	"compliance-assistant-be/internal/repository/unitofwork"
	"compliance-assistant-be/internal/service"
	"compliance-assistant-be/internal/websocket"
	"compliance-assistant-be/pkg/events"
	"compliance-assistant-be/pkg/identity"
	"compliance-assistant-be/pkg/kv"
	pktNats "compliance-assistant-be/pkg/nats"
	"compliance-assistant-be/pkg/objectstore"
	"compliance-assistant-be/pkg/rag/client"
	"compliance-assistant-be/pkg/rag/deepsearch"
	"compliance-assistant-be/pkg/rag/orchestrator"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	RagController        controller.IRagController
	CanvasController     controller.ICanvasController
	DocumentController   controller.IDocumentController // nil without a database
	AuthController       controller.IAuthController
	PreferenceController controller.IPreferenceController
	ProxyController      controller.IProxyController

	// WebSockets & Notification
	NotificationHandler *handler.NotificationHandler
	StreamHandler       *handler.StreamHandler
	WebSocketHub        *websocket.Hub
	NotificationService *service.NotificationService

	Objects  *objectstore.LocalStore
	Sessions *memory.SessionRepository
	Logger   logger.ILogger

	bus     *events.Bus
	store   kv.Store
	rdb     *redis.Client
	natsPub *pktNats.Publisher
}

// NewContainer wires every collaborator. db may be nil, in which case
// documents are disabled and canvas history lives in the key-value store.
func NewContainer(db *gorm.DB, cfg *config.Config) (*Container, error) {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	if cfg.App.JwtSecret == "" {
		sysLogger.Warn("Bootstrap", "JWT_SECRET is empty, every token will be rejected", nil)
	}

	var uowFactory unitofwork.RepositoryFactory
	if db != nil {
		uowFactory = unitofwork.NewRepositoryFactory(db)
	}

	// 2. Redis (shared by the key-value store and the hub)
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		sysLogger.Warn("Bootstrap", "Failed to parse Redis URL, using direct Addr", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{Addr: cfg.App.RedisURL}
	}
	rdb := redis.NewClient(opt)
	redisUp := true
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		sysLogger.Warn("Bootstrap", "Failed to connect to Redis, cluster fan-out disabled", map[string]interface{}{"error": err.Error()})
		redisUp = false
	}

	store, err := newStore(cfg.Store, rdb, redisUp)
	if err != nil {
		return nil, err
	}
	if cfg.Store.KeyPrefix != "" {
		store = kv.WithPrefix(store, cfg.Store.KeyPrefix)
	}
	sysLogger.Info("Bootstrap", "Key-value store ready", map[string]interface{}{"driver": cfg.Store.Driver})

	// 3. Event Bus and NATS
	bus := events.NewBus(sysLogger)

	var forwarder events.Publisher
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL, sysLogger)
	if err != nil {
		sysLogger.Warn("Bootstrap", "Failed to connect to NATS Publisher", map[string]interface{}{"error": err.Error()})
		natsPub = nil
	} else {
		forwarder = natsPub
	}

	// 4. RAG backend
	ragClient := client.New(client.Options{
		BaseURL:           cfg.Rag.BaseURL,
		SimpleTimeout:     cfg.Rag.SimpleTimeout,
		SummaryTimeout:    cfg.Rag.SummaryTimeout,
		DeepSearchTimeout: cfg.Rag.DeepSearchTimeout,
		HealthTimeout:     cfg.Rag.HealthTimeout,
		RateLimit:         cfg.Rag.RateLimitPerSecond,
		RateBurst:         cfg.Rag.RateLimitBurst,
		Logger:            sysLogger,
	})

	sessions := memory.NewSessionRepository(service.NewWorkspaceFactory(service.WorkspaceDeps{
		Store:        store,
		Querier:      ragClient,
		Streamer:     orchestrator.ClientStreamer{Client: ragClient},
		Publisher:    bus,
		UowFactory:   uowFactory,
		CacheTTL:     cfg.Rag.CacheTTL,
		HistoryLimit: cfg.Rag.HistoryLimit,
		RetryPolicy: orchestrator.RetryPolicy{
			MaxRetries: cfg.Rag.MaxRetries,
			BaseDelay:  cfg.Rag.RetryBaseDelay,
		},
		Logger: sysLogger,
	}), memory.DefaultWorkspaceTTL)

	// 5. Services
	ragService := service.NewRagService(sessions, deepsearch.NewOrchestrator(ragClient, bus, sysLogger), ragClient, sysLogger)
	canvasService := service.NewCanvasService(sessions)
	preferenceService := service.NewPreferenceService(store)

	identityProvider := identity.NewGoTrueClient(cfg.Identity.BaseURL, cfg.Identity.APIKey, &http.Client{Timeout: cfg.Rag.HealthTimeout * 3}, sysLogger)
	authService := service.NewAuthService(identityProvider, sessions, cfg.App.ClientURL, sysLogger)

	objects, err := objectstore.NewLocalStore(cfg.Storage.RootDir, cfg.App.BaseURL+"/files/signed", cfg.App.JwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to open object store: %w", err)
	}

	// 6. Notification System Infrastructure
	wsLogger := logger.NewIsolatedLogger("logs/notification.log")
	var hubRedis *redis.Client
	if redisUp {
		hubRedis = rdb
	}
	hostname, _ := os.Hostname()
	wsHub := websocket.NewHub(hubRedis, hostname+"-"+uuid.NewString(), wsLogger)
	notifService := service.NewNotificationService(bus, wsHub, forwarder, wsLogger)

	// 7. Controllers
	auth := serverutils.JwtMiddleware(cfg.App.JwtSecret)

	c := &Container{
		RagController:        controller.NewRagController(ragService, auth),
		CanvasController:     controller.NewCanvasController(canvasService, auth),
		AuthController:       controller.NewAuthController(authService, auth),
		PreferenceController: controller.NewPreferenceController(preferenceService, auth),
		ProxyController:      controller.NewProxyController(ragClient, sysLogger),

		NotificationHandler: handler.NewNotificationHandler(wsHub, bus, cfg.App.JwtSecret, auth, wsLogger),
		StreamHandler:       handler.NewStreamHandler(ragService, cfg.App.JwtSecret, sysLogger),
		WebSocketHub:        wsHub,
		NotificationService: notifService,

		Objects:  objects,
		Sessions: sessions,
		Logger:   sysLogger,

		bus:     bus,
		store:   store,
		rdb:     rdb,
		natsPub: natsPub,
	}

	if uowFactory != nil {
		documentService := service.NewDocumentService(uowFactory, objects, bus, cfg.Storage.MaxFileSize, cfg.Storage.SignedURLTTL, sysLogger)
		c.DocumentController = controller.NewDocumentController(documentService, auth)
	} else {
		sysLogger.Warn("Bootstrap", "No database configured, document routes disabled", nil)
	}

	return c, nil
}

// Start launches the background workers. They stop when ctx is done.
func (c *Container) Start(ctx context.Context) error {
	go c.WebSocketHub.Run(ctx)
	return c.NotificationService.Start(ctx)
}

// RegisterRoutes mounts the proxy at the root and everything else under /api.
func (c *Container) RegisterRoutes(app *fiber.App) {
	c.ProxyController.RegisterRoutes(app)

	api := app.Group("/api")
	c.AuthController.RegisterRoutes(api)
	c.RagController.RegisterRoutes(api)
	c.CanvasController.RegisterRoutes(api)
	c.PreferenceController.RegisterRoutes(api)
	if c.DocumentController != nil {
		c.DocumentController.RegisterRoutes(api)
	}

	c.StreamHandler.RegisterRoutes(api)
	c.NotificationHandler.RegisterRoutes(api)
}

// Close releases every connection the container opened.
func (c *Container) Close() error {
	var result *multierror.Error

	c.Sessions.Flush()
	if err := c.bus.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if c.natsPub != nil {
		if err := c.natsPub.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := c.store.Close(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := c.rdb.Close(); err != nil && err != redis.ErrClosed {
		result = multierror.Append(result, err)
	}
	_ = c.Logger.Sync()

	return result.ErrorOrNil()
}

func newStore(cfg config.StoreConfig, rdb *redis.Client, redisUp bool) (kv.Store, error) {
	switch cfg.Driver {
	case "redis":
		if !redisUp {
			return nil, fmt.Errorf("store driver redis selected but redis is unreachable")
		}
		return kv.NewRedisStore(rdb), nil
	case "badger":
		s, err := kv.NewBadgerStore(cfg.BadgerPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open badger store at %s: %w", cfg.BadgerPath, err)
		}
		return s, nil
	case "", "memory":
		return kv.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
