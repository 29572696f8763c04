package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// migrasjon is one schema step, read from a numbered .sql file.
type migrasjon struct {
	versjon int
	navn    string
	sql     string
}

// Migrator applies the numbered .sql files in a directory exactly once, in
// version order. Applied versions are tracked in schema_migrations.
type Migrator struct {
	db     *DB
	logger *zap.Logger
}

// NewMigrator creates a migrator on an open database.
func NewMigrator(db *DB, logger *zap.Logger) *Migrator {
	return &Migrator{
		db:     db,
		logger: logger,
	}
}

// RunMigrations applies every pending migration under migrationsDir. Each
// migration runs in its own transaction together with its bookkeeping row,
// so a failed step leaves the schema at the previous version.
func (m *Migrator) RunMigrations(migrationsDir string) error {
	m.logger.Info("Kjører databasemigrasjoner", zap.String("dir", migrationsDir))

	if _, err := m.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`); err != nil {
		return fmt.Errorf("opprett schema_migrations: %w", err)
	}

	kjorte, err := m.kjorteVersjoner()
	if err != nil {
		return fmt.Errorf("les kjørte migrasjoner: %w", err)
	}

	migrasjoner, err := lesMigrasjoner(migrationsDir)
	if err != nil {
		return fmt.Errorf("les migrasjoner: %w", err)
	}

	for _, mig := range migrasjoner {
		if kjorte[mig.versjon] {
			continue
		}
		m.logger.Info("Kjører migrasjon",
			zap.Int("versjon", mig.versjon),
			zap.String("navn", mig.navn))
		if err := m.kjor(mig); err != nil {
			return fmt.Errorf("migrasjon %d (%s): %w", mig.versjon, mig.navn, err)
		}
	}

	m.logger.Info("Databasemigrasjoner fullført")
	return nil
}

func (m *Migrator) kjorteVersjoner() (map[int]bool, error) {
	rows, err := m.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	kjorte := make(map[int]bool)
	for rows.Next() {
		var versjon int
		if err := rows.Scan(&versjon); err != nil {
			return nil, err
		}
		kjorte[versjon] = true
	}
	return kjorte, rows.Err()
}

// lesMigrasjoner reads the .sql files directly under dir, sorted by the
// numeric prefix of the filename. Two files with the same version is a
// configuration error.
func lesMigrasjoner(dir string) ([]migrasjon, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	sett := make(map[int]string)
	var migrasjoner []migrasjon
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		versjon, navn, err := tolkFilnavn(entry.Name())
		if err != nil {
			return nil, err
		}
		if annen, finnes := sett[versjon]; finnes {
			return nil, fmt.Errorf("versjon %d er brukt av både %s og %s", versjon, annen, entry.Name())
		}
		sett[versjon] = entry.Name()

		innhold, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("les %s: %w", entry.Name(), err)
		}
		migrasjoner = append(migrasjoner, migrasjon{
			versjon: versjon,
			navn:    navn,
			sql:     string(innhold),
		})
	}

	sort.Slice(migrasjoner, func(i, j int) bool {
		return migrasjoner[i].versjon < migrasjoner[j].versjon
	})
	return migrasjoner, nil
}

// tolkFilnavn splits "001_init.sql" into version 1 and name "init".
func tolkFilnavn(filnavn string) (int, string, error) {
	var versjon int
	if _, err := fmt.Sscanf(filnavn, "%d", &versjon); err != nil {
		return 0, "", fmt.Errorf("migrasjonsfil uten versjonsprefiks: %s", filnavn)
	}
	navn := strings.TrimSuffix(filnavn, ".sql")
	if _, rest, funnet := strings.Cut(navn, "_"); funnet {
		navn = rest
	}
	return versjon, navn, nil
}

func (m *Migrator) kjor(mig migrasjon) error {
	return m.db.WithTransaction(func(tx *sql.Tx) error {
		if _, err := tx.Exec(mig.sql); err != nil {
			return err
		}
		_, err := tx.Exec(
			"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
			mig.versjon,
			mig.navn,
		)
		return err
	})
}
