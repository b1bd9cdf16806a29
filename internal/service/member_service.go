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

// MemberService owns the transaction boundary for member operations and the
// single-primary-member invariant.
type MemberService struct {
	sessions  *session.Factory
	members   *repository.MemberRepository
	accounts  *repository.AccountRepository
	publisher *events.Publisher
}

func NewMemberService(
	sessions *session.Factory,
	members *repository.MemberRepository,
	accounts *repository.AccountRepository,
	publisher *events.Publisher,
) *MemberService {
	return &MemberService{
		sessions:  sessions,
		members:   members,
		accounts:  accounts,
		publisher: publisher,
	}
}

func (s *MemberService) List(ctx context.Context) ([]models.Member, error) {
	sess, err := s.sessions.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Release()

	members, err := s.members.List(ctx, sess)
	if err != nil {
		return nil, err
	}
	if err := sess.Commit(); err != nil {
		return nil, err
	}
	return members, nil
}

// GetByGuid returns (nil, nil) for an unknown identifier.
func (s *MemberService) GetByGuid(ctx context.Context, guid uuid.UUID) (*models.Member, error) {
	sess, err := s.sessions.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Release()

	member, err := s.members.GetByGuid(ctx, sess, guid)
	if err != nil {
		return nil, err
	}
	if err := sess.Commit(); err != nil {
		return nil, err
	}
	return member, nil
}

// Create enrolls a member under an account. The primary check and the insert
// run in the same transaction while holding the account row lock, so two
// concurrent primary creates for one account serialize and the loser gets a
// Conflict. The partial unique index on member is the backstop.
func (s *MemberService) Create(ctx context.Context, member *models.Member) (*models.Member, error) {
	if member.AccountGuid == uuid.Nil {
		return nil, apperrors.Validation("accountGuid is required")
	}
	if member.FirstName == "" {
		return nil, apperrors.Validation("firstName is required")
	}
	if member.LastName == "" {
		return nil, apperrors.Validation("lastName is required")
	}

	sess, err := s.sessions.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Release()

	account, err := s.accounts.GetForUpdate(ctx, sess, member.AccountGuid)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, apperrors.Conflict("account %s does not exist", member.AccountGuid)
	}

	if member.Primary {
		hasPrimary, err := s.members.HasPrimary(ctx, sess, account.UID)
		if err != nil {
			return nil, err
		}
		if hasPrimary {
			return nil, apperrors.Conflict("account already has a primary member")
		}
	}

	now := time.Now().UTC()
	member.Guid = uuid.New()
	member.CreatedUtc = now
	member.Disabled = false
	member.Cancelled = false
	member.CancelDateUtc = nil
	if member.JoinedDateUtc.IsZero() {
		member.JoinedDateUtc = now
	}

	affected, err := s.members.Insert(ctx, sess, member, account.UID)
	if err != nil {
		return nil, err
	}
	if affected != 1 {
		return nil, apperrors.Conflict("unable to add member")
	}
	if err := sess.Commit(); err != nil {
		return nil, err
	}

	s.publish(events.MemberEventsStream, events.MemberCreated, events.MemberCreatedEvent{
		MemberGuid:  member.Guid,
		AccountGuid: member.AccountGuid,
		Primary:     member.Primary,
	})
	return member, nil
}

// DeleteByGuid removes exactly the targeted member row. Account and location
// rows are never touched from here.
func (s *MemberService) DeleteByGuid(ctx context.Context, guid uuid.UUID) error {
	sess, err := s.sessions.Acquire(ctx)
	if err != nil {
		return err
	}
	defer sess.Release()

	affected, err := s.members.DeleteByGuid(ctx, sess, guid)
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperrors.Conflict("unable to delete member")
	}
	if err := sess.Commit(); err != nil {
		return err
	}

	s.publish(events.MemberEventsStream, events.MemberDeleted, events.MemberDeletedEvent{
		MemberGuid: guid,
	})
	return nil
}

func (s *MemberService) publish(stream, eventType string, data any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(context.Background(), stream, eventType, data); err != nil {
		log.Printf("Failed to publish %s event: %v", eventType, err)
	}
}
