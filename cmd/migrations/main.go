package main

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/bookhub/pkg/config"
	"github.com/shishobooks/bookhub/pkg/database"
	"github.com/shishobooks/bookhub/pkg/migrations"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v2"
)

func main() {
	log := logger.New()

	cfg, err := config.New()
	if err != nil {
		log.Err(err).Fatal("config error")
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Err(err).Fatal("database error")
	}
	defer db.Close()

	m := &migrator{migrate.NewMigrator(db, migrations.Migrations), log}

	app := &cli.App{
		Name:  "migrations",
		Usage: "manage the bookhub database schema",
		Commands: []*cli.Command{
			{Name: "init", Usage: "create the migration bookkeeping tables", Action: m.runInit},
			{Name: "migrate", Usage: "apply every pending migration", Action: m.runMigrate},
			{Name: "rollback", Usage: "roll back the last migration group", Action: m.runRollback},
			{Name: "status", Usage: "print applied and pending migrations", Action: m.runStatus},
			{
				Name:      "create",
				Usage:     "create a Go migration",
				ArgsUsage: "<words of the name>",
				Action:    m.runCreate,
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Err(err).Fatal("migrations command failed")
	}
}

type migrator struct {
	*migrate.Migrator
	log logger.Logger
}

func (m *migrator) runInit(c *cli.Context) error {
	return errors.WithStack(m.Init(c.Context))
}

func (m *migrator) runMigrate(c *cli.Context) error {
	if err := m.Init(c.Context); err != nil {
		return errors.WithStack(err)
	}
	group, err := m.Migrate(c.Context)
	if err != nil {
		return errors.WithStack(err)
	}
	if group.IsZero() {
		m.log.Info("no new migrations to run")
		return nil
	}
	m.log.Info("migrated", logger.Data{"group_id": group.ID, "migrations": group.Migrations.String()})
	return nil
}

func (m *migrator) runRollback(c *cli.Context) error {
	group, err := m.Rollback(c.Context)
	if err != nil {
		return errors.WithStack(err)
	}
	if group.IsZero() {
		m.log.Info("no groups to roll back")
		return nil
	}
	m.log.Info("rolled back", logger.Data{"group_id": group.ID, "migrations": group.Migrations.String()})
	return nil
}

func (m *migrator) runStatus(c *cli.Context) error {
	ms, err := m.MigrationsWithStatus(c.Context)
	if err != nil {
		return errors.WithStack(err)
	}
	m.log.Info("migration status", logger.Data{
		"all":        ms.String(),
		"unapplied":  ms.Unapplied().String(),
		"last_group": ms.LastGroup().String(),
	})
	return nil
}

func (m *migrator) runCreate(c *cli.Context) error {
	name := strings.Join(c.Args().Slice(), "_")
	if name == "" {
		return errors.New("a migration name is required")
	}
	mf, err := m.CreateGoMigration(c.Context, name, migrate.WithGoTemplate(migrationTemplate))
	if err != nil {
		return errors.WithStack(err)
	}
	m.log.Info("created migration", logger.Data{"name": mf.Name, "path": mf.Path})
	return nil
}

const migrationTemplate = `package %s

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec("")
		return errors.WithStack(err)
	}

	down := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec("")
		return errors.WithStack(err)
	}

	Migrations.MustRegister(up, down)
}
`
