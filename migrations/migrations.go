package migrations

import (
	"database/sql"
	"embed"
	"fmt"

	// ensure "pgx" driver is loaded
	_ "github.com/jackc/pgx/v4/stdlib"
	migrate "github.com/rubenv/sql-migrate"

	"github.com/danthegoodman1/marksplit/gologger"
)

var (
	//go:embed *.sql
	migrations embed.FS

	ErrMigrationsNotRun = fmt.Errorf("not all migrations applied")

	logger = gologger.NewComponentLogger("migrations")
)

func migrationSet() (migrate.EmbedFileSystemMigrationSource, migrate.MigrationSet) {
	src := migrate.EmbedFileSystemMigrationSource{
		FileSystem: migrations,
		Root:       ".",
	}
	ms := migrate.MigrationSet{
		TableName: "migrations",
	}
	return src, ms
}

func RunMigrations(crdbDsn string) (int, error) {
	db, err := sql.Open("pgx", crdbDsn)
	if err != nil {
		return 0, err
	}
	defer db.Close()
	src, ms := migrationSet()
	n, err := ms.Exec(db, "postgres", src, migrate.Up)
	if err != nil {
		return n, fmt.Errorf("error in ms.Exec: %w", err)
	}
	logger.Info().Int("applied", n).Msg("ran migrations")
	return n, nil
}

func CheckMigrations(crdbDsn string) error {
	db, err := sql.Open("pgx", crdbDsn)
	if err != nil {
		return err
	}
	defer db.Close()
	src, ms := migrationSet()
	migration, _, err := ms.PlanMigration(db, "postgres", src, migrate.Up, 0)
	if err != nil {
		return err
	}
	if len(migration) > 0 {
		for _, mig := range migration {
			logger.Warn().Str("migrationID", mig.Id).Msg("missing migration")
		}
		return ErrMigrationsNotRun
	}
	return nil
}
