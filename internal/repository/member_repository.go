package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/clubware/billing-service/internal/apperrors"
	"github.com/clubware/billing-service/internal/models"
	"github.com/clubware/billing-service/internal/session"
	"github.com/clubware/billing-service/internal/sqltemplate"
)

// MemberRepository owns the SQL for the member table.
type MemberRepository struct{}

func NewMemberRepository() *MemberRepository {
	return &MemberRepository{}
}

// The list view left-joins account so members whose account reference has
// gone stale are still returned rather than silently dropped.
const memberSelectSQL = `
SELECT
    member.guid,
    account.guid,
    member.first_name,
    member.last_name,
    member.address,
    member.city,
    member.locale,
    member.postal_code,
    member."primary",
    member.disabled,
    member.joined_date_utc,
    member.cancel_date_utc,
    member.cancelled,
    member.created_utc
FROM member
LEFT JOIN account ON member.account_uid = account.uid`

func (r *MemberRepository) queryMembers(ctx context.Context, s *session.Session, tmpl *sqltemplate.Template) ([]models.Member, error) {
	query, args, err := tmpl.Build()
	if err != nil {
		return nil, err
	}
	rows, err := s.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.FromStore("failed to query members", err)
	}
	defer rows.Close()

	var members []models.Member
	for rows.Next() {
		var m models.Member
		var accountGuid uuid.NullUUID
		var cancelDate sql.NullTime
		err := rows.Scan(
			&m.Guid, &accountGuid, &m.FirstName, &m.LastName,
			&m.Address, &m.City, &m.Locale, &m.PostalCode,
			&m.Primary, &m.Disabled, &m.JoinedDateUtc,
			&cancelDate, &m.Cancelled, &m.CreatedUtc,
		)
		if err != nil {
			return nil, apperrors.Fatal("failed to scan member row", err)
		}
		if accountGuid.Valid {
			m.AccountGuid = accountGuid.UUID
		}
		if cancelDate.Valid {
			t := cancelDate.Time
			m.CancelDateUtc = &t
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.FromStore("failed to iterate members", err)
	}
	return members, nil
}

// List returns every member, orphans included.
func (r *MemberRepository) List(ctx context.Context, s *session.Session) ([]models.Member, error) {
	return r.queryMembers(ctx, s, sqltemplate.New(memberSelectSQL))
}

// ListByAccountGuid returns the members enrolled under one account.
func (r *MemberRepository) ListByAccountGuid(ctx context.Context, s *session.Session, accountGuid uuid.UUID) ([]models.Member, error) {
	tmpl := sqltemplate.New(memberSelectSQL)
	if err := tmpl.Where("account.guid = :accountGuid", map[string]any{"accountGuid": accountGuid}); err != nil {
		return nil, err
	}
	return r.queryMembers(ctx, s, tmpl)
}

// HasPrimary reports whether the account already has an active primary
// member. Callers must hold the account row lock (GetForUpdate) so the
// check-then-insert pair is race-free at read committed.
func (r *MemberRepository) HasPrimary(ctx context.Context, s *session.Session, accountUID int64) (bool, error) {
	tmpl := sqltemplate.New(`
SELECT EXISTS (
    SELECT 1 FROM member
    WHERE account_uid = :accountUid
      AND "primary"
      AND NOT cancelled
)`)
	if err := tmpl.Bind("accountUid", accountUID); err != nil {
		return false, err
	}
	query, args, err := tmpl.Build()
	if err != nil {
		return false, err
	}
	var exists bool
	if err := s.QueryRowContext(ctx, query, args...).Scan(&exists); err != nil {
		return false, apperrors.FromStore("failed to check for primary member", err)
	}
	return exists, nil
}

// Insert writes one member row under the given account.
func (r *MemberRepository) Insert(ctx context.Context, s *session.Session, m *models.Member, accountUID int64) (int64, error) {
	tmpl := sqltemplate.New(`
INSERT INTO member (
    guid,
    account_uid,
    first_name,
    last_name,
    address,
    city,
    locale,
    postal_code,
    "primary",
    disabled,
    joined_date_utc,
    cancelled,
    created_utc
) VALUES (
    :guid,
    :accountUid,
    :firstName,
    :lastName,
    :address,
    :city,
    :locale,
    :postalCode,
    :primary,
    :disabled,
    :joinedDateUtc,
    :cancelled,
    :createdUtc
)`)
	err := tmpl.BindAll(map[string]any{
		"guid":          m.Guid,
		"accountUid":    accountUID,
		"firstName":     m.FirstName,
		"lastName":      m.LastName,
		"address":       m.Address,
		"city":          m.City,
		"locale":        m.Locale,
		"postalCode":    m.PostalCode,
		"primary":       m.Primary,
		"disabled":      m.Disabled,
		"joinedDateUtc": m.JoinedDateUtc,
		"cancelled":     m.Cancelled,
		"createdUtc":    m.CreatedUtc,
	})
	if err != nil {
		return 0, err
	}
	return execAffected(ctx, s, tmpl, "failed to insert member")
}

// DeleteByGuid removes exactly the targeted member row and nothing else.
func (r *MemberRepository) DeleteByGuid(ctx context.Context, s *session.Session, guid uuid.UUID) (int64, error) {
	tmpl := sqltemplate.New(`DELETE FROM member WHERE guid = :guid`)
	if err := tmpl.Bind("guid", guid); err != nil {
		return 0, err
	}
	return execAffected(ctx, s, tmpl, "failed to delete member")
}

// DeleteByAccountUID removes an account's members, optionally sparing the
// primary member.
func (r *MemberRepository) DeleteByAccountUID(ctx context.Context, s *session.Session, accountUID int64, excludePrimary bool) (int64, error) {
	tmpl := sqltemplate.New(`DELETE FROM member`)
	if err := tmpl.Where("account_uid = :accountUid", map[string]any{"accountUid": accountUID}); err != nil {
		return 0, err
	}
	if excludePrimary {
		if err := tmpl.Where(`NOT "primary"`, nil); err != nil {
			return 0, err
		}
	}
	return execAffected(ctx, s, tmpl, "failed to delete members for account")
}

// DeleteByLocationUID removes every member under every account of a
// location, for the location cascade.
func (r *MemberRepository) DeleteByLocationUID(ctx context.Context, s *session.Session, locationUID int64) (int64, error) {
	tmpl := sqltemplate.New(`
DELETE FROM member
WHERE account_uid IN (SELECT uid FROM account WHERE location_uid = :locationUid)`)
	if err := tmpl.Bind("locationUid", locationUID); err != nil {
		return 0, err
	}
	return execAffected(ctx, s, tmpl, "failed to delete members for location")
}

// GetByGuid returns a single member or (nil, nil) when absent.
func (r *MemberRepository) GetByGuid(ctx context.Context, s *session.Session, guid uuid.UUID) (*models.Member, error) {
	tmpl := sqltemplate.New(memberSelectSQL)
	if err := tmpl.Where("member.guid = :guid", map[string]any{"guid": guid}); err != nil {
		return nil, err
	}
	members, err := r.queryMembers(ctx, s, tmpl)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, nil
	}
	return &members[0], nil
}
