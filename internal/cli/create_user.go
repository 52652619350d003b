package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/database"
	"github.com/mrlokans/library/internal/database/users"
	"github.com/mrlokans/library/internal/entities"
)

// CreateUserCommand creates a staff account without going through the API.
type CreateUserCommand struct {
	Name     string
	Email    string
	Password string
	Role     string
}

func NewCreateUserCommand() *CreateUserCommand {
	return &CreateUserCommand{}
}

func (cmd *CreateUserCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("create-user", flag.ContinueOnError)
	fs.StringVar(&cmd.Name, "name", "", "Display name")
	fs.StringVar(&cmd.Email, "email", "", "Login email")
	fs.StringVar(&cmd.Password, "password", "", "Password (at least 12 characters)")
	fs.StringVar(&cmd.Role, "role", string(entities.UserRoleLibrarian), "Role: admin or librarian")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s create-user -name NAME -email EMAIL -password PASSWORD [-role admin|librarian]\n\n", os.Args[0])
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}
	if cmd.Email == "" || cmd.Password == "" {
		return errors.New("-email and -password are required")
	}
	return nil
}

func (cmd *CreateUserCommand) Run() error {
	cfg := config.NewConfig()

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	svc := auth.NewService(users.NewRepository(db.DB), auth.NewTokenIssuer(cfg.Auth), cfg.Auth, nil)
	user, err := svc.CreateUser(context.Background(), cmd.Name, cmd.Email, cmd.Password, entities.UserRole(cmd.Role))
	if err != nil {
		return err
	}

	fmt.Printf("Created %s %s (id %d)\n", user.Role, user.Email, user.ID)
	return nil
}
