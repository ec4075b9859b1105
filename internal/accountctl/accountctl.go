// Package accountctl implements the operator commands that manage accounts
// directly against the credential store.
package accountctl

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/iudanet/eduhub/internal/iocli"
	"github.com/iudanet/eduhub/internal/models"
	"github.com/iudanet/eduhub/internal/server/auth"
)

// PasswordEnv overrides the interactive password prompt.
const PasswordEnv = "EDUHUB_ACCOUNT_PASSWORD"

var (
	ErrUnknownCommand   = errors.New("unknown command")
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrEmptyPassword    = errors.New("password cannot be empty")
)

// Accounts is the subset of the auth service the commands drive.
type Accounts interface {
	Register(ctx context.Context, in auth.RegisterInput) (*models.PublicUser, error)
	ResetPassword(ctx context.Context, email, newPassword string) error
}

type Cli struct {
	io       iocli.IO
	accounts Accounts
	getenv   func(string) string
}

func New(console iocli.IO, accounts Accounts) *Cli {
	return &Cli{io: console, accounts: accounts, getenv: os.Getenv}
}

// Run dispatches args[0] to a command.
func (c *Cli) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		c.PrintUsage()
		return ErrUnknownCommand
	}

	switch args[0] {
	case "create":
		return c.runCreate(ctx, args[1:])
	case "reset-password":
		return c.runResetPassword(ctx, args[1:])
	case "help":
		c.PrintUsage()
		return nil
	default:
		c.PrintUsage()
		return fmt.Errorf("%w: %s", ErrUnknownCommand, args[0])
	}
}

func (c *Cli) runCreate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var in auth.RegisterInput
	var userType, passwordFile string
	fs.StringVar(&in.Username, "username", "", "login name")
	fs.StringVar(&in.Email, "email", "", "email address")
	fs.StringVar(&in.FullName, "name", "", "full name")
	fs.StringVar(&in.Phone, "phone", "", "phone number")
	fs.StringVar(&userType, "type", string(models.UserTypeUser), "account type: user, admin, moderator or super-admin")
	fs.StringVar(&passwordFile, "password-file", "", "file containing the password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	in.UserType = models.UserType(userType)

	var err error
	if in.Username == "" {
		if in.Username, err = c.io.ReadInput("Username: "); err != nil {
			return fmt.Errorf("failed to read username: %w", err)
		}
	}
	if in.Email == "" {
		if in.Email, err = c.io.ReadInput("Email: "); err != nil {
			return fmt.Errorf("failed to read email: %w", err)
		}
	}
	if in.FullName == "" {
		if in.FullName, err = c.io.ReadInput("Full name: "); err != nil {
			return fmt.Errorf("failed to read full name: %w", err)
		}
	}

	if in.Password, err = c.readPassword(passwordFile); err != nil {
		return err
	}

	user, err := c.accounts.Register(ctx, in)
	if err != nil {
		return err
	}

	c.io.Println("Account created")
	c.io.Printf("ID:       %s\n", user.ID)
	c.io.Printf("Username: %s\n", user.Username)
	c.io.Printf("Email:    %s\n", user.Email)
	c.io.Printf("Type:     %s\n", user.UserType)
	return nil
}

func (c *Cli) runResetPassword(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reset-password", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var email, passwordFile string
	fs.StringVar(&email, "email", "", "email of the account")
	fs.StringVar(&passwordFile, "password-file", "", "file containing the new password")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var err error
	if email == "" {
		if email, err = c.io.ReadInput("Email: "); err != nil {
			return fmt.Errorf("failed to read email: %w", err)
		}
	}

	password, err := c.readPassword(passwordFile)
	if err != nil {
		return err
	}

	if err := c.accounts.ResetPassword(ctx, email, password); err != nil {
		return err
	}

	c.io.Println("Password reset; existing sessions were ended")
	return nil
}

// readPassword takes the password from, in order: the environment,
// a file, an interactive prompt with confirmation.
func (c *Cli) readPassword(file string) (string, error) {
	if pw := c.getenv(PasswordEnv); pw != "" {
		return pw, nil
	}

	if file != "" {
		content, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read password file: %w", err)
		}
		pw := strings.TrimSpace(string(content))
		if pw == "" {
			return "", fmt.Errorf("password file is empty")
		}
		return pw, nil
	}

	pw, err := c.io.ReadPassword("Password: ")
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if pw == "" {
		return "", ErrEmptyPassword
	}

	confirm, err := c.io.ReadPassword("Confirm password: ")
	if err != nil {
		return "", fmt.Errorf("failed to read confirmation: %w", err)
	}
	if pw != confirm {
		return "", ErrPasswordMismatch
	}

	return pw, nil
}

func (c *Cli) PrintUsage() {
	c.io.Println("EduHub account tool")
	c.io.Println()
	c.io.Println("Usage:")
	c.io.Println("  eduhub-accountctl [OPTIONS] COMMAND [ARGS]")
	c.io.Println()
	c.io.Println("Options are the server storage flags (-storage, -db) and EDUHUB_* variables.")
	c.io.Println()
	c.io.Println("Commands:")
	c.io.Println("  create          Create an account (-username -email -name -phone -type -password-file)")
	c.io.Println("  reset-password  Set a new password and end sessions (-email -password-file)")
	c.io.Println("  help            Show this help")
	c.io.Println()
	c.io.Println("Password priority:")
	c.io.Println("  1. " + PasswordEnv + " environment variable")
	c.io.Println("  2. -password-file")
	c.io.Println("  3. Interactive prompt")
}
