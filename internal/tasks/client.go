package tasks

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikestefanello/backlite"
	"go.uber.org/zap"
)

// Client wraps backlite to provide task queue functionality.
type Client struct {
	client *backlite.Client
	db     *sql.DB
	config Config
	logger *zap.Logger

	mu      sync.RWMutex
	started bool
}

// DatabasePath returns the path of the queue database that lives next to the
// main database, e.g. ./library.db -> ./library-tasks.db.
func DatabasePath(mainDBPath string) string {
	dir := filepath.Dir(mainDBPath)
	base := filepath.Base(mainDBPath)
	ext := filepath.Ext(base)
	return filepath.Join(dir, base[:len(base)-len(ext)]+"-tasks"+ext)
}

// NewClient creates a new task queue client with a dedicated SQLite database.
func NewClient(mainDBPath string, cfg Config, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("tasks")

	db, err := sql.Open("sqlite3", DatabasePath(mainDBPath)+"?_journal=WAL&_timeout=5000&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open tasks database: %w", err)
	}

	db.SetMaxOpenConns(cfg.Workers + 5)
	db.SetMaxIdleConns(cfg.Workers + 2)
	db.SetConnMaxLifetime(time.Hour)

	client, err := backlite.NewClient(backlite.ClientConfig{
		DB:              db,
		NumWorkers:      cfg.Workers,
		ReleaseAfter:    cfg.ReleaseAfter,
		CleanupInterval: cfg.CleanupInterval,
		Logger:          &zapLogger{logger: logger.Sugar()},
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create backlite client: %w", err)
	}

	if err := client.Install(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to install backlite schema: %w", err)
	}

	return &Client{
		client: client,
		db:     db,
		config: cfg,
		logger: logger,
	}, nil
}

// Register registers task queues with the client.
// Must be called before Start().
func (c *Client) Register(queues ...backlite.Queue) {
	for _, q := range queues {
		c.client.Register(q)
	}
}

// Start begins processing tasks. Use Stop() for graceful shutdown.
func (c *Client) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	c.logger.Info("task queue started", zap.Int("workers", c.config.Workers))
	c.client.Start(ctx)
}

// Stop gracefully shuts down the task queue, waiting for active tasks to complete.
// Returns true if all workers finished before the context deadline.
func (c *Client) Stop(ctx context.Context) bool {
	c.mu.RLock()
	started := c.started
	c.mu.RUnlock()
	if !started {
		return true
	}

	success := c.client.Stop(ctx)
	if success {
		c.logger.Info("task queue stopped gracefully")
	} else {
		c.logger.Warn("task queue stopped with timeout, some tasks may not have completed")
	}
	return success
}

// Close releases all resources. Should be called after Stop().
func (c *Client) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Enqueue adds tasks to their queues and returns the generated task IDs.
func (c *Client) Enqueue(tasks ...backlite.Task) ([]string, error) {
	return c.client.Add(tasks...).Save()
}

// Status returns the status of a task by ID.
func (c *Client) Status(ctx context.Context, taskID string) (backlite.TaskStatus, error) {
	return c.client.Status(ctx, taskID)
}

// StatusString renders a backlite status for API responses.
func StatusString(status backlite.TaskStatus) string {
	switch status {
	case backlite.TaskStatusPending:
		return "pending"
	case backlite.TaskStatusRunning:
		return "running"
	case backlite.TaskStatusSuccess:
		return "success"
	case backlite.TaskStatusFailure:
		return "failure"
	case backlite.TaskStatusNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// zapLogger implements backlite.Logger on top of zap.
type zapLogger struct {
	logger *zap.SugaredLogger
}

func (l *zapLogger) Info(message string, params ...any) {
	l.logger.Infow(message, params...)
}

func (l *zapLogger) Error(message string, params ...any) {
	l.logger.Errorw(message, params...)
}
