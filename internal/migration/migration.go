package migration

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/cleberrangel/leads-admin-api/internal/logger"
)

// Migration representa uma migração de banco de dados
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// Migrator gerencia as migrações do banco de dados
type Migrator struct {
	db         *sql.DB
	migrations []Migration
}

// NewMigrator cria um novo migrator
func NewMigrator(db *sql.DB) *Migrator {
	return &Migrator{
		db:         db,
		migrations: getAllMigrations(),
	}
}

// Run executa todas as migrações pendentes, em ordem de versão
func (m *Migrator) Run(ctx context.Context) error {
	log := logger.Get(ctx)

	if err := m.createMigrationsTable(ctx); err != nil {
		return fmt.Errorf("erro ao criar tabela de migrações: %w", err)
	}

	currentVersion, err := m.CurrentVersion(ctx)
	if err != nil {
		return fmt.Errorf("erro ao obter versão atual: %w", err)
	}

	log.Info().Int("current_version", currentVersion).Msg("Versão atual do banco de dados")

	for _, migration := range Pending(m.migrations, currentVersion) {
		log.Info().
			Int("version", migration.Version).
			Str("name", migration.Name).
			Msg("Executando migração")

		if err := m.runMigration(ctx, migration); err != nil {
			return fmt.Errorf("erro ao executar migração %d (%s): %w",
				migration.Version, migration.Name, err)
		}
	}

	return nil
}

// Pending retorna as migrações acima de current, ordenadas por versão
func Pending(migrations []Migration, current int) []Migration {
	sorted := append([]Migration(nil), migrations...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Version < sorted[j].Version
	})

	var out []Migration
	for _, mg := range sorted {
		if mg.Version > current {
			out = append(out, mg)
		}
	}
	return out
}

// createMigrationsTable cria a tabela de controle de migrações
func (m *Migrator) createMigrationsTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT NOW()
		)
	`
	_, err := m.db.ExecContext(ctx, query)
	return err
}

// CurrentVersion obtém a versão atual do banco
func (m *Migrator) CurrentVersion(ctx context.Context) (int, error) {
	var version int
	err := m.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, err
	}
	return version, nil
}

// runMigration executa uma migração dentro de uma transação
func (m *Migrator) runMigration(ctx context.Context, migration Migration) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, migration.Up); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, applied_at) VALUES ($1, $2)",
		migration.Version, time.Now(),
	); err != nil {
		return err
	}

	return tx.Commit()
}
