package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/entrypoint"
)

// SendOverdueCommand runs one reminder batch and exits. Useful from an
// external cron when the in-process scheduler is disabled.
type SendOverdueCommand struct {
	Verbose bool
}

func NewSendOverdueCommand() *SendOverdueCommand {
	return &SendOverdueCommand{}
}

func (cmd *SendOverdueCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("send-overdue", flag.ContinueOnError)
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Enable verbose logging")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s send-overdue [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Email reminders for every lending past the overdue threshold.\n\n")
		fs.PrintDefaults()
	}
	return fs.Parse(args)
}

func (cmd *SendOverdueCommand) Run() error {
	cfg := config.NewConfig()
	if !cfg.SMTP.Configured() {
		return errors.New("SMTP is not configured: set SMTP_HOST and SMTP_FROM")
	}

	logger := zap.NewNop()
	if cmd.Verbose {
		l, err := entrypoint.NewLogger(config.Log{Level: "debug", Format: "console"})
		if err != nil {
			return err
		}
		logger = l
	}
	defer logger.Sync()

	app, err := entrypoint.NewApp(cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	result, err := app.Dispatcher.Run(context.Background())
	if err != nil {
		return err
	}

	fmt.Printf("Scanned: %d\n", result.Scanned)
	fmt.Printf("Sent:    %d\n", result.Sent)
	fmt.Printf("Skipped: %d\n", result.Skipped)
	fmt.Printf("Failed:  %d\n", result.Failed)
	for _, f := range result.Failures {
		fmt.Printf("  lending %s: %s\n", f.LendingToken, f.Reason)
	}
	if result.Failed > 0 {
		return fmt.Errorf("%d reminder(s) failed", result.Failed)
	}
	return nil
}
