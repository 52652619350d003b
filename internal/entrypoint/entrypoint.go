package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mrlokans/library/internal/audit"
	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/database"
	auditrepo "github.com/mrlokans/library/internal/database/audit"
	"github.com/mrlokans/library/internal/database/books"
	"github.com/mrlokans/library/internal/database/lendings"
	notificationrepo "github.com/mrlokans/library/internal/database/notifications"
	"github.com/mrlokans/library/internal/database/readers"
	"github.com/mrlokans/library/internal/database/users"
	http_controllers "github.com/mrlokans/library/internal/http"
	"github.com/mrlokans/library/internal/lending"
	"github.com/mrlokans/library/internal/mailer"
	"github.com/mrlokans/library/internal/notifications"
	"github.com/mrlokans/library/internal/scheduler"
	"github.com/mrlokans/library/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// App holds the wired services shared by the server and the CLI commands.
type App struct {
	Config        *config.Config
	Logger        *zap.Logger
	DB            *database.Database
	Books         *books.Repository
	Readers       *readers.Repository
	Lendings      *lendings.Repository
	Notifications *notificationrepo.Repository
	Audit         *audit.Service
	Lending       *lending.Service
	Auth          *auth.Service

	// Dispatcher is nil when SMTP is not configured.
	Dispatcher *notifications.Dispatcher
}

// NewApp opens the database and wires the domain services. It starts no
// background work.
func NewApp(cfg *config.Config, logger *zap.Logger) (*App, error) {
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	app := &App{
		Config:        cfg,
		Logger:        logger,
		DB:            db,
		Books:         books.NewRepository(db.DB),
		Readers:       readers.NewRepository(db.DB),
		Lendings:      lendings.NewRepository(db.DB),
		Notifications: notificationrepo.NewRepository(db.DB),
	}

	app.Audit = audit.NewService(auditrepo.NewRepository(db.DB), logger)
	app.Lending = lending.NewService(app.Books, app.Readers, app.Lendings, app.Audit, logger, lending.Options{
		PreventDuplicateOpen: cfg.Lending.PreventDuplicateOpen,
	})
	app.Auth = auth.NewService(users.NewRepository(db.DB), auth.NewTokenIssuer(cfg.Auth), cfg.Auth, app.Audit)

	if cfg.SMTP.Configured() {
		m, err := mailer.NewSMTPMailer(cfg.SMTP)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize mailer: %w", err)
		}
		app.Dispatcher = notifications.NewDispatcher(app.Lendings, app.Notifications, m, app.Audit, logger, notifications.Options{
			ThresholdDays: cfg.Notifications.OverdueThresholdDays,
			Cooldown:      cfg.Notifications.Cooldown,
			Workers:       cfg.Notifications.Workers,
		})
	}

	return app, nil
}

// Close waits for pending audit writes and closes the database.
func (a *App) Close() error {
	a.Audit.Wait()
	return a.DB.Close()
}

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting server at %s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// kill -2 is SIGINT, the default kill sends SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server Shutdown: %v", err)
	}

	if onShutdown != nil {
		onShutdown(ctx)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Library v%s", version)

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	app, err := NewApp(cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	if app.Dispatcher == nil {
		log.Printf("WARNING: SMTP is not configured. Overdue reminders are disabled. Set 'SMTP_HOST' and 'SMTP_FROM' to enable.")
	}

	hasUsers, err := app.Auth.HasUsers(context.Background())
	if err != nil {
		log.Fatalf("Failed to check users: %v", err)
	}
	if !hasUsers {
		log.Printf("No users found. POST /api/auth/signup to create the administrator account.")
	}

	authController := auth.NewAuthController(app.Auth, cfg.Auth)
	authMiddleware := auth.NewMiddleware(app.Auth.Tokens())

	routerCfg := http_controllers.RouterConfig{
		Database:       app.DB,
		Books:          app.Books,
		Readers:        app.Readers,
		Lending:        app.Lending,
		Auditor:        app.Audit,
		AuditLog:       app.Audit,
		AuthController: authController,
		AuthMiddleware: authMiddleware,
		Notifications:  app.Notifications,
		ClientOrigin:   cfg.CORS.ClientOrigin,
		SecureCookies:  cfg.Auth.SecureCookies,
		Version:        version,
	}
	if app.Dispatcher != nil {
		routerCfg.Reminders = app.Dispatcher
	}

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	// Task queue
	var taskClient *tasks.Client
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.ConfigFrom(cfg.Tasks), logger)
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}

		if app.Dispatcher != nil {
			taskClient.Register(tasks.NewSendOverdueRemindersQueue(app.Dispatcher, logger))
		}
		taskClient.Register(
			tasks.NewCleanupNotificationsQueue(app.Notifications, cfg.Notifications.Cooldown, logger),
			tasks.NewCleanupAuditEventsQueue(app.Audit, logger),
		)

		go taskClient.Start(bgCtx)

		routerCfg.TaskQueue = taskClient
		routerCfg.TaskRegistry = tasks.NewRegistry(tasks.RegistryOptions{
			Reminders:                 app.Dispatcher != nil,
			NotificationRetentionDays: cfg.Notifications.RetentionDays,
			NotificationCooldown:      cfg.Notifications.Cooldown,
			AuditRetentionDays:        cfg.Audit.RetentionDays,
		})
	}

	// Schedulers
	var overdueScheduler *scheduler.OverdueReminderScheduler
	if app.Dispatcher != nil && cfg.Scheduler.OverdueEnabled {
		overdueScheduler = scheduler.NewOverdueReminderScheduler(app.Dispatcher, cfg.Scheduler.OverdueSchedule, logger)
		if err := overdueScheduler.Start(bgCtx); err != nil {
			log.Fatalf("Failed to start overdue reminder scheduler: %v", err)
		}
		routerCfg.Scheduler = overdueScheduler
	}

	var retentionScheduler *scheduler.RetentionScheduler
	if taskClient != nil && cfg.Scheduler.RetentionEnabled {
		retentionScheduler = scheduler.NewRetentionScheduler(taskClient, cfg.Scheduler.RetentionSchedule,
			cfg.Notifications.RetentionDays, cfg.Audit.RetentionDays, logger)
		if err := retentionScheduler.Start(bgCtx); err != nil {
			log.Fatalf("Failed to start retention scheduler: %v", err)
		}
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		if overdueScheduler != nil {
			overdueScheduler.Stop()
		}
		if retentionScheduler != nil {
			retentionScheduler.Stop()
		}
		if taskClient != nil {
			taskClient.Stop(ctx)
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}
		bgCancel()
		authController.Stop()
	}

	Serve(router, cfg, onShutdown)
}
