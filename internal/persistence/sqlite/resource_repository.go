package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/workplace-reservations/internal/persistence"
)

// ResourceRepository implements persistence.ResourceRepository using SQLite.
type ResourceRepository struct {
	db *DB
}

// NewResourceRepository creates a new SQLite resource repository.
func NewResourceRepository(db *DB) *ResourceRepository {
	return &ResourceRepository{db: db}
}

// CreateResource inserts a new catalog entry.
func (r *ResourceRepository) CreateResource(ctx context.Context, resource persistence.Resource) error {
	if resource.ID == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO resources (id, kind, name, location, capacity, facilities, plate_number, fuel_type, transmission, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.handle.ExecContext(ctx, query,
		resource.ID,
		string(resource.Kind),
		resource.Name,
		nullString(resource.Location),
		resource.Capacity,
		nullString(resource.Facilities),
		nullString(resource.PlateNumber),
		nullString(resource.FuelType),
		nullString(resource.Transmission),
		resource.CreatedAt.Format(time.RFC3339),
		resource.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return mapError(err)
	}
	return nil
}

// GetResource retrieves a resource by ID.
func (r *ResourceRepository) GetResource(ctx context.Context, id string) (persistence.Resource, error) {
	if id == "" {
		return persistence.Resource{}, persistence.ErrNotFound
	}

	query := `
		SELECT id, kind, name, location, capacity, facilities, plate_number, fuel_type, transmission, created_at, updated_at
		FROM resources
		WHERE id = ?
	`

	resource, err := scanResource(r.db.handle.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Resource{}, persistence.ErrNotFound
		}
		return persistence.Resource{}, mapError(err)
	}
	return resource, nil
}

// ListResources lists resources, optionally restricted to one kind, ordered
// by name.
func (r *ResourceRepository) ListResources(ctx context.Context, kind persistence.ResourceKind) ([]persistence.Resource, error) {
	query := `
		SELECT id, kind, name, location, capacity, facilities, plate_number, fuel_type, transmission, created_at, updated_at
		FROM resources
	`
	args := make([]any, 0, 1)
	if kind != "" {
		query += " WHERE kind = ?"
		args = append(args, string(kind))
	}
	query += " ORDER BY name ASC, id ASC"

	rows, err := r.db.handle.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	var resources []persistence.Resource
	for rows.Next() {
		resource, err := scanResource(rows)
		if err != nil {
			return nil, mapError(err)
		}
		resources = append(resources, resource)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}

	return resources, nil
}

// DeleteResource removes a catalog entry by ID.
func (r *ResourceRepository) DeleteResource(ctx context.Context, id string) error {
	result, err := r.db.handle.ExecContext(ctx, "DELETE FROM resources WHERE id = ?", id)
	if err != nil {
		return mapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResource(row rowScanner) (persistence.Resource, error) {
	var resource persistence.Resource
	var kind, createdAtStr, updatedAtStr string
	var location, facilities, plate, fuel, transmission sql.NullString

	err := row.Scan(
		&resource.ID,
		&kind,
		&resource.Name,
		&location,
		&resource.Capacity,
		&facilities,
		&plate,
		&fuel,
		&transmission,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return persistence.Resource{}, err
	}

	resource.Kind = persistence.ResourceKind(kind)
	resource.Location = fromNullString(location)
	resource.Facilities = fromNullString(facilities)
	resource.PlateNumber = fromNullString(plate)
	resource.FuelType = fromNullString(fuel)
	resource.Transmission = fromNullString(transmission)

	if resource.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return persistence.Resource{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if resource.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return persistence.Resource{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return resource, nil
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func fromNullString(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	clone := value.String
	return &clone
}
