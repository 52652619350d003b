package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/database"
)

// MigrateCommand applies, rolls back or reports schema migrations.
type MigrateCommand struct {
	DatabasePath string
	Action       string
}

func NewMigrateCommand() *MigrateCommand {
	return &MigrateCommand{}
}

// ParseFlags parses command line flags. The first positional argument is the
// action: up (default), down, status or version.
func (cmd *MigrateCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.StringVar(&cmd.DatabasePath, "db", config.NewConfig().Database.Path, "Path to the database file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s migrate [options] [up|down|status|version]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	cmd.Action = "up"
	if fs.NArg() > 0 {
		cmd.Action = fs.Arg(0)
	}
	switch cmd.Action {
	case "up", "down", "status", "version":
		return nil
	default:
		return fmt.Errorf("unknown migrate action %q", cmd.Action)
	}
}

func (cmd *MigrateCommand) Run() error {
	db, err := database.Connect(cmd.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	switch cmd.Action {
	case "up":
		n, err := db.MigrateUp(ctx)
		if err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
		fmt.Printf("Applied %d migration(s)\n", n)

	case "down":
		if err := db.MigrateDown(ctx); err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}

	case "status":
		statuses, err := db.MigrationStatus(ctx)
		if err != nil {
			return fmt.Errorf("migration status: %w", err)
		}
		for _, s := range statuses {
			state := "pending"
			if s.Applied {
				state = "applied " + s.AppliedAt.Format(time.RFC3339)
			}
			fmt.Printf("%5d  %-45s %s\n", s.Version, s.Path, state)
		}

	case "version":
		v, err := db.SchemaVersion(ctx)
		if err != nil {
			return fmt.Errorf("schema version: %w", err)
		}
		fmt.Printf("Schema version: %d\n", v)
	}
	return nil
}
