package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/clubware/billing-service/internal/apperrors"
	"github.com/clubware/billing-service/internal/events"
	"github.com/clubware/billing-service/internal/models"
	"github.com/clubware/billing-service/internal/repository"
	"github.com/clubware/billing-service/internal/session"
)

// AccountService owns the transaction boundary for every account operation.
// Each method acquires one session, defers its release and commits only on
// the success path, so any early return rolls the whole operation back.
type AccountService struct {
	sessions  *session.Factory
	accounts  *repository.AccountRepository
	members   *repository.MemberRepository
	publisher *events.Publisher
}

func NewAccountService(
	sessions *session.Factory,
	accounts *repository.AccountRepository,
	members *repository.MemberRepository,
	publisher *events.Publisher,
) *AccountService {
	return &AccountService{
		sessions:  sessions,
		accounts:  accounts,
		members:   members,
		publisher: publisher,
	}
}

// NextBillingFrom computes the billing timestamp that follows start.
func NextBillingFrom(start time.Time) time.Time {
	return start.AddDate(0, 1, 0)
}

func (s *AccountService) List(ctx context.Context) ([]models.Account, error) {
	sess, err := s.sessions.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Release()

	accounts, err := s.accounts.List(ctx, sess)
	if err != nil {
		return nil, err
	}
	if err := sess.Commit(); err != nil {
		return nil, err
	}
	return accounts, nil
}

// GetByGuid returns (nil, nil) for an unknown identifier; absence is not an
// error here, the caller decides how to respond.
func (s *AccountService) GetByGuid(ctx context.Context, guid uuid.UUID) (*models.Account, error) {
	sess, err := s.sessions.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Release()

	account, err := s.accounts.GetByGuid(ctx, sess, guid)
	if err != nil {
		return nil, err
	}
	if err := sess.Commit(); err != nil {
		return nil, err
	}
	return account, nil
}

// Create assigns the external identifier and timestamps, inserts exactly one
// row and commits. The first billing date is always one month after creation.
func (s *AccountService) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	if account.LocationGuid == uuid.Nil {
		return nil, apperrors.Validation("locationGuid is required")
	}
	if account.AccountType == "" {
		return nil, apperrors.Validation("accountType is required")
	}
	if account.PaymentAmount < 0 {
		return nil, apperrors.Validation("paymentAmount must not be negative")
	}
	if account.Status == "" {
		account.Status = models.StatusActive
	}
	if !account.Status.Valid() {
		return nil, apperrors.Validation("unknown account status %q", account.Status)
	}

	now := time.Now().UTC()
	account.Guid = uuid.New()
	account.CreatedUtc = now
	account.NextBillingUtc = NextBillingFrom(now)
	if account.PeriodStartUtc.IsZero() {
		account.PeriodStartUtc = now
	}
	if account.PeriodEndUtc.IsZero() {
		account.PeriodEndUtc = account.NextBillingUtc
	}

	sess, err := s.sessions.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Release()

	affected, err := s.accounts.Insert(ctx, sess, account)
	if err != nil {
		return nil, err
	}
	if affected != 1 {
		return nil, apperrors.Conflict("unable to add account")
	}
	if err := sess.Commit(); err != nil {
		return nil, err
	}

	s.publish(events.AccountEventsStream, events.AccountCreated, events.AccountCreatedEvent{
		AccountGuid:    account.Guid,
		LocationGuid:   account.LocationGuid,
		AccountType:    account.AccountType,
		NextBillingUtc: account.NextBillingUtc,
	})
	return account, nil
}

// Update reads the existing row and applies the mutation inside one session.
// A miss on the read fails with NotFound before anything is written; a
// zero-row update after a successful read means a concurrent delete won the
// race and surfaces as Conflict rather than being swallowed.
func (s *AccountService) Update(ctx context.Context, guid uuid.UUID, account *models.Account) (*models.Account, error) {
	sess, err := s.sessions.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Release()

	existing, err := s.accounts.GetForUpdate(ctx, sess, guid)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, apperrors.NotFound("account not found")
	}

	updated := *existing
	if account.Status != "" {
		if !account.Status.Valid() {
			return nil, apperrors.Validation("unknown account status %q", account.Status)
		}
		if !existing.Status.CanTransitionTo(account.Status) {
			return nil, apperrors.Conflict("account status cannot change from %s to %s", existing.Status, account.Status)
		}
		updated.Status = account.Status
	}
	if account.AccountType != "" {
		updated.AccountType = account.AccountType
	}
	if account.PaymentAmount < 0 {
		return nil, apperrors.Validation("paymentAmount must not be negative")
	}
	updated.PaymentAmount = account.PaymentAmount
	updated.PendCancel = account.PendCancel
	if !account.PeriodStartUtc.IsZero() {
		updated.PeriodStartUtc = account.PeriodStartUtc
	}
	if !account.PeriodEndUtc.IsZero() {
		updated.PeriodEndUtc = account.PeriodEndUtc
	}

	periodChanged := !updated.PeriodStartUtc.Equal(existing.PeriodStartUtc) ||
		!updated.PeriodEndUtc.Equal(existing.PeriodEndUtc)
	switch {
	case periodChanged:
		updated.NextBillingUtc = NextBillingFrom(updated.PeriodStartUtc)
	case !account.NextBillingUtc.IsZero():
		updated.NextBillingUtc = account.NextBillingUtc
	}

	affected, err := s.accounts.Update(ctx, sess, &updated)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		// The locked read pins the row, so zero rows here means an
		// out-of-band delete between the two statements.
		return nil, apperrors.Conflict("account was deleted concurrently")
	}
	if err := sess.Commit(); err != nil {
		return nil, err
	}

	s.publish(events.AccountEventsStream, events.AccountUpdated, events.AccountUpdatedEvent{
		AccountGuid: updated.Guid,
		Status:      string(updated.Status),
		PendCancel:  updated.PendCancel,
	})
	return &updated, nil
}

// DeleteByGuid removes the account and every one of its members atomically.
// Members go first so the foreign key never dangles mid-transaction.
func (s *AccountService) DeleteByGuid(ctx context.Context, guid uuid.UUID) error {
	sess, err := s.sessions.Acquire(ctx)
	if err != nil {
		return err
	}
	defer sess.Release()

	account, err := s.accounts.GetForUpdate(ctx, sess, guid)
	if err != nil {
		return err
	}
	if account == nil {
		return apperrors.Conflict("unable to delete account")
	}

	membersRemoved, err := s.members.DeleteByAccountUID(ctx, sess, account.UID, false)
	if err != nil {
		return err
	}
	affected, err := s.accounts.DeleteByUID(ctx, sess, account.UID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperrors.Conflict("unable to delete account")
	}
	if err := sess.Commit(); err != nil {
		return err
	}

	s.publish(events.AccountEventsStream, events.AccountDeleted, events.AccountDeletedEvent{
		AccountGuid:    account.Guid,
		MembersRemoved: membersRemoved,
	})
	return nil
}

// ListMembers returns the members enrolled under an account. A deleted or
// unknown account yields an empty list, matching the join semantics.
func (s *AccountService) ListMembers(ctx context.Context, accountGuid uuid.UUID) ([]models.Member, error) {
	sess, err := s.sessions.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Release()

	members, err := s.members.ListByAccountGuid(ctx, sess, accountGuid)
	if err != nil {
		return nil, err
	}
	if err := sess.Commit(); err != nil {
		return nil, err
	}
	return members, nil
}

// DeleteNonPrimaryMembers removes every member of the account except the
// primary one. Zero removals fail with Conflict so the caller can tell the
// request had no effect.
func (s *AccountService) DeleteNonPrimaryMembers(ctx context.Context, accountGuid uuid.UUID) (int64, error) {
	sess, err := s.sessions.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer sess.Release()

	account, err := s.accounts.GetForUpdate(ctx, sess, accountGuid)
	if err != nil {
		return 0, err
	}
	if account == nil {
		return 0, apperrors.Conflict("account %s does not exist", accountGuid)
	}

	affected, err := s.members.DeleteByAccountUID(ctx, sess, account.UID, true)
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		return 0, apperrors.Conflict("account has no non-primary members")
	}
	if err := sess.Commit(); err != nil {
		return 0, err
	}
	return affected, nil
}

func (s *AccountService) publish(stream, eventType string, data any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(context.Background(), stream, eventType, data); err != nil {
		log.Printf("Failed to publish %s event: %v", eventType, err)
	}
}
