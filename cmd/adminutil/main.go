// Command adminutil runs operator tasks against the Postgres store.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/sudo-init-do/servicehub/internal/config"
	"github.com/sudo-init-do/servicehub/internal/db"
	"github.com/sudo-init-do/servicehub/internal/directory"
	"github.com/sudo-init-do/servicehub/internal/logger"
	"github.com/sudo-init-do/servicehub/internal/user"
)

func main() {
	app := &cli.App{
		Name:  "adminutil",
		Usage: "servicehub operator tasks",
		Commands: []*cli.Command{
			migrateCmd,
			seedDirectoryCmd,
			addRoleCmd,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// withPool connects, which also applies migrations, and hands the pool to fn.
func withPool(cctx *cli.Context, fn func(ctx context.Context, pool *pgxpool.Pool, log zerolog.Logger) error) error {
	cfg, err := config.LoadDB()
	if err != nil {
		return err
	}
	log := logger.New(os.Getenv("APP_ENV"))
	pool, err := db.New(cctx.Context, cfg, log)
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(cctx.Context, pool, log)
}

var migrateCmd = &cli.Command{
	Name:  "migrate",
	Usage: "apply the schema migrations",
	Action: func(cctx *cli.Context) error {
		return withPool(cctx, func(context.Context, *pgxpool.Pool, zerolog.Logger) error {
			fmt.Println("schema is up to date")
			return nil
		})
	},
}

var seedDirectoryCmd = &cli.Command{
	Name:  "seed-directory",
	Usage: "load the built-in service provider listings into an empty directory",
	Action: func(cctx *cli.Context) error {
		return withPool(cctx, func(ctx context.Context, pool *pgxpool.Pool, _ zerolog.Logger) error {
			n, err := directory.Seed(ctx, directory.NewPGStore(pool), time.Now())
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Println("directory already has listings, nothing seeded")
				return nil
			}
			fmt.Printf("seeded %d directory listings\n", n)
			return nil
		})
	},
}

var addRoleFlags struct {
	email string
	role  string
}

var addRoleCmd = &cli.Command{
	Name:  "add-role",
	Usage: "grant a role to an existing user",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:        "email",
			Usage:       "email of the user",
			Required:    true,
			Destination: &addRoleFlags.email,
		},
		&cli.StringFlag{
			Name:        "role",
			Usage:       "customer or provider",
			Required:    true,
			Destination: &addRoleFlags.role,
		},
	},
	Action: func(cctx *cli.Context) error {
		return withPool(cctx, func(ctx context.Context, pool *pgxpool.Pool, _ zerolog.Logger) error {
			u, err := addRole(ctx, user.NewPGStore(pool), addRoleFlags.email, addRoleFlags.role)
			if err != nil {
				return err
			}
			fmt.Printf("%s now has roles %s\n", u.Email, strings.Join(u.Roles.Strings(), ", "))
			return nil
		})
	},
}

func addRole(ctx context.Context, users user.Store, email, rawRole string) (user.User, error) {
	role, err := user.ParseRole(rawRole)
	if err != nil {
		return user.User{}, err
	}
	u, err := users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return user.User{}, fmt.Errorf("find %s: %w", email, err)
	}
	return users.AddRole(ctx, u.ID, role)
}
