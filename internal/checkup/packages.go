package checkup

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// Package is a named check-up bundle with its default task list.
type Package struct {
	Name  string
	Tasks []string
}

// PackageRepository reads check-up package definitions. It runs over
// database/sql so it can share the connection the migrator uses.
type PackageRepository struct {
	db *sql.DB
}

// NewPackageRepository creates a package repository.
func NewPackageRepository(db *sql.DB) *PackageRepository {
	return &PackageRepository{db: db}
}

// List returns all configured packages ordered by name.
func (r *PackageRepository) List(ctx context.Context) ([]Package, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name, tasks FROM checkup_packages ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("checkup: list packages: %w", err)
	}
	defer rows.Close()

	var out []Package
	for rows.Next() {
		var p Package
		if err := rows.Scan(&p.Name, pq.Array(&p.Tasks)); err != nil {
			return nil, fmt.Errorf("checkup: scan package: %w", err)
		}
		if p.Tasks == nil {
			p.Tasks = []string{}
		}
		out = append(out, p)
	}
	if out == nil {
		out = []Package{}
	}
	return out, rows.Err()
}

// TasksForPackage returns the task list configured for the named package.
// Unknown packages fall back to the default task list so registration
// never fails on a misspelled package name.
func (r *PackageRepository) TasksForPackage(ctx context.Context, name string) ([]string, error) {
	if r == nil || r.db == nil {
		return DefaultTasks(), nil
	}
	var tasks []string
	err := r.db.QueryRowContext(ctx, `
		SELECT tasks FROM checkup_packages WHERE name = $1`, name).Scan(pq.Array(&tasks))
	if err == sql.ErrNoRows {
		return DefaultTasks(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("checkup: tasks for package: %w", err)
	}
	if len(tasks) == 0 {
		return DefaultTasks(), nil
	}
	return tasks, nil
}

// Upsert creates or replaces a package definition.
func (r *PackageRepository) Upsert(ctx context.Context, p Package) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO checkup_packages (name, tasks)
		VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET tasks = EXCLUDED.tasks`,
		p.Name, pq.Array(p.Tasks))
	if err != nil {
		return fmt.Errorf("checkup: upsert package: %w", err)
	}
	return nil
}
