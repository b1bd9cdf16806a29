package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/clubware/billing-service/internal/apperrors"
	"github.com/clubware/billing-service/internal/models"
	"github.com/clubware/billing-service/internal/session"
	"github.com/clubware/billing-service/internal/sqltemplate"
)

// LocationRepository owns the SQL for the location table, the root of the
// location -> account -> member ownership chain.
type LocationRepository struct{}

func NewLocationRepository() *LocationRepository {
	return &LocationRepository{}
}

const locationSelectSQL = `
SELECT
    guid,
    name,
    address,
    city,
    locale,
    postal_code,
    created_utc
FROM location`

func (r *LocationRepository) queryLocations(ctx context.Context, s *session.Session, tmpl *sqltemplate.Template) ([]models.Location, error) {
	query, args, err := tmpl.Build()
	if err != nil {
		return nil, err
	}
	rows, err := s.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.FromStore("failed to query locations", err)
	}
	defer rows.Close()

	var locations []models.Location
	for rows.Next() {
		var l models.Location
		err := rows.Scan(
			&l.Guid, &l.Name, &l.Address, &l.City,
			&l.Locale, &l.PostalCode, &l.CreatedUtc,
		)
		if err != nil {
			return nil, apperrors.Fatal("failed to scan location row", err)
		}
		locations = append(locations, l)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.FromStore("failed to iterate locations", err)
	}
	return locations, nil
}

func (r *LocationRepository) List(ctx context.Context, s *session.Session) ([]models.Location, error) {
	return r.queryLocations(ctx, s, sqltemplate.New(locationSelectSQL))
}

// GetByGuid returns one location or (nil, nil) when absent.
func (r *LocationRepository) GetByGuid(ctx context.Context, s *session.Session, guid uuid.UUID) (*models.Location, error) {
	tmpl := sqltemplate.New(locationSelectSQL)
	if err := tmpl.Where("guid = :guid", map[string]any{"guid": guid}); err != nil {
		return nil, err
	}
	locations, err := r.queryLocations(ctx, s, tmpl)
	if err != nil {
		return nil, err
	}
	if len(locations) == 0 {
		return nil, nil
	}
	return &locations[0], nil
}

// GetForUpdate resolves and locks a location row, returning its internal
// key for cascade statements. (nil, nil) when absent.
func (r *LocationRepository) GetForUpdate(ctx context.Context, s *session.Session, guid uuid.UUID) (*models.Location, error) {
	tmpl := sqltemplate.New(`
SELECT
    uid,
    guid,
    name,
    address,
    city,
    locale,
    postal_code,
    created_utc
FROM location
WHERE guid = :guid
FOR UPDATE`)
	if err := tmpl.Bind("guid", guid); err != nil {
		return nil, err
	}
	query, args, err := tmpl.Build()
	if err != nil {
		return nil, err
	}

	var l models.Location
	err = s.QueryRowContext(ctx, query, args...).Scan(
		&l.UID, &l.Guid, &l.Name, &l.Address, &l.City,
		&l.Locale, &l.PostalCode, &l.CreatedUtc,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.FromStore("failed to get location", err)
	}
	return &l, nil
}

func (r *LocationRepository) Insert(ctx context.Context, s *session.Session, l *models.Location) (int64, error) {
	tmpl := sqltemplate.New(`
INSERT INTO location (
    guid,
    name,
    address,
    city,
    locale,
    postal_code,
    created_utc
) VALUES (
    :guid,
    :name,
    :address,
    :city,
    :locale,
    :postalCode,
    :createdUtc
)`)
	err := tmpl.BindAll(map[string]any{
		"guid":       l.Guid,
		"name":       l.Name,
		"address":    l.Address,
		"city":       l.City,
		"locale":     l.Locale,
		"postalCode": l.PostalCode,
		"createdUtc": l.CreatedUtc,
	})
	if err != nil {
		return 0, err
	}
	return execAffected(ctx, s, tmpl, "failed to insert location")
}

// DeleteByUID removes exactly one location row. Accounts and members must
// already be gone; the service performs the cascade in the same transaction.
func (r *LocationRepository) DeleteByUID(ctx context.Context, s *session.Session, uid int64) (int64, error) {
	tmpl := sqltemplate.New(`DELETE FROM location WHERE uid = :uid`)
	if err := tmpl.Bind("uid", uid); err != nil {
		return 0, err
	}
	return execAffected(ctx, s, tmpl, "failed to delete location")
}
