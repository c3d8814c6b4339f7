// Package cli implements the storefront operator tool: bootstrapping an
// admin account, applying migrations and purging spent one-time codes.
package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/minimart/storefront/internal/common"
	"github.com/minimart/storefront/internal/flagx"
	"github.com/minimart/storefront/internal/server/models"
	"github.com/minimart/storefront/internal/server/services"
)

// ErrUsage is returned for a missing or unknown sub-command.
var ErrUsage = errors.New("usage error")

type AdminEnsurer interface {
	EnsureAdmin(ctx context.Context, username, email, password string) (*models.Account, bool, error)
}

type TokenPurger interface {
	PurgeTokens(ctx context.Context) (services.PurgeResult, error)
}

// MigrateFunc applies the schema migrations.
type MigrateFunc func(ctx context.Context) error

type App struct {
	admin   AdminEnsurer
	purger  TokenPurger
	migrate MigrateFunc
	reader  *bufio.Reader
	out     io.Writer
}

func NewApp(admin AdminEnsurer, purger TokenPurger, migrate MigrateFunc, in io.Reader, out io.Writer) *App {
	return &App{admin: admin, purger: purger, migrate: migrate, reader: bufio.NewReader(in), out: out}
}

// Run executes the sub-command named by args[0].
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.usage()
		return ErrUsage
	}

	switch args[0] {
	case "create-admin":
		return a.createAdmin(ctx, args[1:])
	case "migrate":
		if err := a.migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		fmt.Fprintln(a.out, "Migrations applied")
		return nil
	case "purge-tokens":
		return a.purgeTokens(ctx)
	case "help", "-h", "--help":
		a.usage()
		return nil
	default:
		fmt.Fprintln(a.out, "Unknown command:", args[0])
		a.usage()
		return ErrUsage
	}
}

func (a *App) usage() {
	fmt.Fprintln(a.out, "Usage: minimart-cli <command> [flags]")
	fmt.Fprintln(a.out, "Commands:")
	fmt.Fprintln(a.out, "  create-admin [-username name] [-email address]  create or promote an admin account")
	fmt.Fprintln(a.out, "  migrate                                          apply database migrations")
	fmt.Fprintln(a.out, "  purge-tokens                                     delete expired and used one-time codes")
}

func (a *App) createAdmin(ctx context.Context, args []string) error {
	var username, email string
	fs := flag.NewFlagSet("create-admin", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&username, "username", "", "admin username")
	fs.StringVar(&email, "email", "", "admin email")
	if err := fs.Parse(flagx.FilterArgs(args, []string{"-username", "--username", "-email", "--email"})); err != nil {
		return err
	}

	var err error
	if username == "" {
		if username, err = GetSimpleText(a.reader, "Username", a.out); err != nil {
			return err
		}
	}
	if email == "" {
		if email, err = GetSimpleText(a.reader, "Email", a.out); err != nil {
			return err
		}
	}
	if username == "" || email == "" {
		return fmt.Errorf("%w: username and email are required", common.ErrorValidation)
	}

	password, err := a.readNewPassword()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	account, created, err := a.admin.EnsureAdmin(ctx, username, email, string(password))
	if err != nil {
		return fmt.Errorf("create-admin: %w", err)
	}

	if created {
		fmt.Fprintf(a.out, "Admin %s created (id %s)\n", account.Username, account.ID)
	} else {
		fmt.Fprintf(a.out, "Account %s promoted to admin, password reset\n", account.Username)
	}
	return nil
}

// readNewPassword asks twice and returns the password once both match.
func (a *App) readNewPassword() ([]byte, error) {
	first, err := GetPassword("Enter password", a.out)
	if err != nil {
		return nil, err
	}
	second, err := GetPassword("Repeat password", a.out)
	if err != nil {
		common.WipeByteArray(first)
		return nil, err
	}
	defer common.WipeByteArray(second)

	if len(first) == 0 {
		return nil, fmt.Errorf("%w: password is required", common.ErrorValidation)
	}
	if !bytes.Equal(first, second) {
		common.WipeByteArray(first)
		return nil, fmt.Errorf("%w: passwords do not match", common.ErrorValidation)
	}
	return first, nil
}

func (a *App) purgeTokens(ctx context.Context) error {
	res, err := a.purger.PurgeTokens(ctx)
	if err != nil {
		return fmt.Errorf("purge-tokens: %w", err)
	}
	fmt.Fprintf(a.out, "Purged %d registration, %d login and %d reset codes\n", res.Registration, res.Login, res.Reset)
	return nil
}
