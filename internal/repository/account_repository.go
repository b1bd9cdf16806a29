package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/clubware/billing-service/internal/apperrors"
	"github.com/clubware/billing-service/internal/models"
	"github.com/clubware/billing-service/internal/session"
	"github.com/clubware/billing-service/internal/sqltemplate"
)

// AccountRepository owns the SQL for the account table. Methods execute on a
// caller-provided session so the service layer controls the transaction
// boundary.
type AccountRepository struct{}

func NewAccountRepository() *AccountRepository {
	return &AccountRepository{}
}

const accountSelectSQL = `
SELECT
    account.guid,
    location.guid,
    account.status,
    account.account_type,
    account.payment_amount,
    account.pend_cancel,
    account.created_utc,
    account.period_start_utc,
    account.period_end_utc,
    account.next_billing_utc
FROM account
JOIN location ON account.location_uid = location.uid`

func scanAccount(rows *sql.Rows) (*models.Account, error) {
	var a models.Account
	err := rows.Scan(
		&a.Guid, &a.LocationGuid, &a.Status, &a.AccountType,
		&a.PaymentAmount, &a.PendCancel, &a.CreatedUtc,
		&a.PeriodStartUtc, &a.PeriodEndUtc, &a.NextBillingUtc,
	)
	if err != nil {
		return nil, apperrors.Fatal("failed to scan account row", err)
	}
	return &a, nil
}

func (r *AccountRepository) queryAccounts(ctx context.Context, s *session.Session, tmpl *sqltemplate.Template) ([]models.Account, error) {
	query, args, err := tmpl.Build()
	if err != nil {
		return nil, err
	}
	rows, err := s.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.FromStore("failed to query accounts", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.FromStore("failed to iterate accounts", err)
	}
	return accounts, nil
}

// List returns every account joined to its owning location.
func (r *AccountRepository) List(ctx context.Context, s *session.Session) ([]models.Account, error) {
	return r.queryAccounts(ctx, s, sqltemplate.New(accountSelectSQL))
}

// GetByGuid returns the account with the given external identifier, or
// (nil, nil) when no such account exists.
func (r *AccountRepository) GetByGuid(ctx context.Context, s *session.Session, guid uuid.UUID) (*models.Account, error) {
	tmpl := sqltemplate.New(accountSelectSQL)
	if err := tmpl.Where("account.guid = :guid", map[string]any{"guid": guid}); err != nil {
		return nil, err
	}
	accounts, err := r.queryAccounts(ctx, s, tmpl)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, nil
	}
	return &accounts[0], nil
}

// GetForUpdate reads the full write model and locks the row for the rest of
// the transaction. Returns (nil, nil) when the account does not exist.
func (r *AccountRepository) GetForUpdate(ctx context.Context, s *session.Session, guid uuid.UUID) (*models.Account, error) {
	tmpl := sqltemplate.New(`
SELECT
    uid,
    location_uid,
    guid,
    status,
    account_type,
    payment_amount,
    pend_cancel,
    created_utc,
    period_start_utc,
    period_end_utc,
    next_billing_utc
FROM account
WHERE guid = :guid
FOR UPDATE`)
	if err := tmpl.Bind("guid", guid); err != nil {
		return nil, err
	}
	query, args, err := tmpl.Build()
	if err != nil {
		return nil, err
	}

	var a models.Account
	err = s.QueryRowContext(ctx, query, args...).Scan(
		&a.UID, &a.LocationUID, &a.Guid, &a.Status, &a.AccountType,
		&a.PaymentAmount, &a.PendCancel, &a.CreatedUtc,
		&a.PeriodStartUtc, &a.PeriodEndUtc, &a.NextBillingUtc,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.FromStore("failed to get account", err)
	}
	return &a, nil
}

// Insert writes one account row, resolving the owning location by its
// external identifier. A missing location surfaces as a constraint violation
// from the store.
func (r *AccountRepository) Insert(ctx context.Context, s *session.Session, a *models.Account) (int64, error) {
	tmpl := sqltemplate.New(`
INSERT INTO account (
    guid,
    location_uid,
    status,
    account_type,
    payment_amount,
    pend_cancel,
    created_utc,
    period_start_utc,
    period_end_utc,
    next_billing_utc
) VALUES (
    :guid,
    (SELECT uid FROM location WHERE guid = :locationGuid),
    :status,
    :accountType,
    :paymentAmount,
    :pendCancel,
    :createdUtc,
    :periodStartUtc,
    :periodEndUtc,
    :nextBillingUtc
)`)
	err := tmpl.BindAll(map[string]any{
		"guid":           a.Guid,
		"locationGuid":   a.LocationGuid,
		"status":         a.Status,
		"accountType":    a.AccountType,
		"paymentAmount":  a.PaymentAmount,
		"pendCancel":     a.PendCancel,
		"createdUtc":     a.CreatedUtc,
		"periodStartUtc": a.PeriodStartUtc,
		"periodEndUtc":   a.PeriodEndUtc,
		"nextBillingUtc": a.NextBillingUtc,
	})
	if err != nil {
		return 0, err
	}
	return execAffected(ctx, s, tmpl, "failed to insert account")
}

// Update rewrites the mutable fields of one account.
func (r *AccountRepository) Update(ctx context.Context, s *session.Session, a *models.Account) (int64, error) {
	tmpl := sqltemplate.New(`
UPDATE account SET
    status = :status,
    account_type = :accountType,
    payment_amount = :paymentAmount,
    pend_cancel = :pendCancel,
    period_start_utc = :periodStartUtc,
    period_end_utc = :periodEndUtc,
    next_billing_utc = :nextBillingUtc
WHERE guid = :guid`)
	err := tmpl.BindAll(map[string]any{
		"guid":           a.Guid,
		"status":         a.Status,
		"accountType":    a.AccountType,
		"paymentAmount":  a.PaymentAmount,
		"pendCancel":     a.PendCancel,
		"periodStartUtc": a.PeriodStartUtc,
		"periodEndUtc":   a.PeriodEndUtc,
		"nextBillingUtc": a.NextBillingUtc,
	})
	if err != nil {
		return 0, err
	}
	return execAffected(ctx, s, tmpl, "failed to update account")
}

// DeleteByUID removes exactly one account row. Members must already be gone;
// the service performs the cascade inside the same transaction.
func (r *AccountRepository) DeleteByUID(ctx context.Context, s *session.Session, uid int64) (int64, error) {
	tmpl := sqltemplate.New(`DELETE FROM account WHERE uid = :uid`)
	if err := tmpl.Bind("uid", uid); err != nil {
		return 0, err
	}
	return execAffected(ctx, s, tmpl, "failed to delete account")
}

// DeleteByLocationUID removes every account owned by a location, for the
// location cascade.
func (r *AccountRepository) DeleteByLocationUID(ctx context.Context, s *session.Session, locationUID int64) (int64, error) {
	tmpl := sqltemplate.New(`DELETE FROM account WHERE location_uid = :locationUid`)
	if err := tmpl.Bind("locationUid", locationUID); err != nil {
		return 0, err
	}
	return execAffected(ctx, s, tmpl, "failed to delete accounts for location")
}

// execAffected builds and executes a mutation, returning the affected row
// count.
func execAffected(ctx context.Context, s *session.Session, tmpl *sqltemplate.Template, errMsg string) (int64, error) {
	query, args, err := tmpl.Build()
	if err != nil {
		return 0, err
	}
	result, err := s.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, apperrors.FromStore(errMsg, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Fatal(fmt.Sprintf("%s: rows affected", errMsg), err)
	}
	return affected, nil
}
