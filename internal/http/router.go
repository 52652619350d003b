package http

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/entities"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// Everything except the health endpoints lives under /api.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	router.Use(auth.SecurityHeadersMiddleware())
	if cfg.SecureCookies {
		router.Use(auth.StrictTransportSecurityMiddleware())
	}

	if origins := splitOrigins(cfg.ClientOrigin); len(origins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     origins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders:    []string{"Retry-After"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Health endpoints
	health := NewHealthController(cfg.Database, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/ping", health.Ping)

	api := router.Group("/api")
	mw := cfg.AuthMiddleware

	if cfg.AuthController != nil {
		cfg.AuthController.RegisterRoutes(api, mw)
	}

	protected := api.Group("")
	protected.Use(mw.Handler())
	adminOnly := mw.RequireRole(entities.UserRoleAdmin)

	// Books API endpoints
	booksController := NewBooksController(cfg.Books, cfg.Auditor)
	protected.GET("/books", booksController.GetAllBooks)
	protected.GET("/books/:id", booksController.GetBook)
	protected.POST("/books", booksController.CreateBook)
	protected.PUT("/books/:id", booksController.UpdateBook)
	protected.DELETE("/books/:id", booksController.DeleteBook)

	// Readers API endpoints
	readersController := NewReadersController(cfg.Readers, cfg.Auditor)
	protected.GET("/readers", readersController.GetAllReaders)
	protected.GET("/readers/:id", readersController.GetReader)
	protected.POST("/readers", readersController.CreateReader)
	protected.PUT("/readers/:id", readersController.UpdateReader)
	protected.DELETE("/readers/:id", readersController.DeleteReader)

	// Lending endpoints
	lendingsController := NewLendingsController(cfg.Lending)
	protected.GET("/lendings", lendingsController.GetAllLendings)
	protected.GET("/lendings/overdue", lendingsController.GetOverdueLendings)
	protected.GET("/lendings/reader/:readerId", lendingsController.GetLendingsByReader)
	protected.GET("/lendings/book/:bookId", lendingsController.GetLendingsByBook)
	protected.POST("/lendings/lend", lendingsController.LendBook)
	protected.PUT("/lendings/return/:id", lendingsController.ReturnBook)

	// Notification endpoints
	if cfg.Notifications != nil {
		notificationsController := NewNotificationsController(cfg.Reminders, cfg.Notifications, cfg.Scheduler)
		protected.POST("/notifications/send-overdue-notifications", notificationsController.SendOverdueNotifications)
		protected.GET("/notifications", notificationsController.GetNotifications)
		protected.GET("/notifications/scheduler", notificationsController.SchedulerStatus)
		protected.POST("/notifications/scheduler/pause", adminOnly, notificationsController.PauseScheduler)
		protected.POST("/notifications/scheduler/resume", adminOnly, notificationsController.ResumeScheduler)
	}

	// Task management endpoints
	if cfg.TaskQueue != nil && cfg.TaskRegistry != nil {
		tasksController := NewTasksController(cfg.TaskQueue, cfg.TaskRegistry)
		protected.GET("/tasks/types", tasksController.ListTaskTypes)
		protected.GET("/tasks/:id", tasksController.GetTaskStatus)
		protected.POST("/tasks/:type/run", adminOnly, tasksController.RunTask)
	}

	// Audit log
	if cfg.AuditLog != nil {
		auditController := NewAuditController(cfg.AuditLog)
		protected.GET("/audit", adminOnly, auditController.GetAuditEvents)
	}

	return router
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}
