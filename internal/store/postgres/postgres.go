// Package postgres serves the configured review sites from PostgreSQL, for
// setups where several machines share one site list.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/dshills/reviewdeck/internal/review"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrSiteNotFound is returned when removing a label that does not exist.
var ErrSiteNotFound = errors.New("site not found")

// SiteStore reads and edits the site list stored in PostgreSQL.
type SiteStore struct {
	db *sql.DB
}

// New opens a connection to the PostgreSQL database at the given URL,
// configures the connection pool, and runs any pending migrations.
func New(databaseURL string) (*SiteStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SiteStore{db: db}, nil
}

// NewWithDB wraps an already migrated database handle.
func NewWithDB(db *sql.DB) *SiteStore {
	return &SiteStore{db: db}
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (s *SiteStore) Close() error {
	return s.db.Close()
}

// ListSites returns the sites in display order.
func (s *SiteStore) ListSites(ctx context.Context) ([]review.Site, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT label, url, type FROM sites ORDER BY position, label`)
	if err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}
	defer rows.Close()

	sites := []review.Site{}
	for rows.Next() {
		var site review.Site
		var typ string
		if err := rows.Scan(&site.Label, &site.URL, &typ); err != nil {
			return nil, fmt.Errorf("scan site: %w", err)
		}
		site.Type = review.SiteType(typ)
		sites = append(sites, site.Normalize())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}
	return sites, nil
}

// AddSite appends a site after the existing ones.
func (s *SiteStore) AddSite(ctx context.Context, site review.Site) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sites (label, url, type, position)
		 VALUES ($1, $2, $3, (SELECT COALESCE(MAX(position), 0) + 1 FROM sites))`,
		site.Label, site.URL, string(site.Type),
	)
	if err != nil {
		return fmt.Errorf("add site %s: %w", site.Label, err)
	}
	return nil
}

// RemoveSite deletes the site with the given label.
func (s *SiteStore) RemoveSite(ctx context.Context, label string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sites WHERE label = $1`, label)
	if err != nil {
		return fmt.Errorf("remove site %s: %w", label, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("remove site %s: %w", label, err)
	}
	if n == 0 {
		return fmt.Errorf("remove site %s: %w", label, ErrSiteNotFound)
	}
	return nil
}
