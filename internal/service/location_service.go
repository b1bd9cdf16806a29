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

// LocationService manages the root of the ownership chain. Deleting a
// location cascades through its accounts and their members inside one
// transaction.
type LocationService struct {
	sessions  *session.Factory
	locations *repository.LocationRepository
	accounts  *repository.AccountRepository
	members   *repository.MemberRepository
	publisher *events.Publisher
}

func NewLocationService(
	sessions *session.Factory,
	locations *repository.LocationRepository,
	accounts *repository.AccountRepository,
	members *repository.MemberRepository,
	publisher *events.Publisher,
) *LocationService {
	return &LocationService{
		sessions:  sessions,
		locations: locations,
		accounts:  accounts,
		members:   members,
		publisher: publisher,
	}
}

func (s *LocationService) List(ctx context.Context) ([]models.Location, error) {
	sess, err := s.sessions.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Release()

	locations, err := s.locations.List(ctx, sess)
	if err != nil {
		return nil, err
	}
	if err := sess.Commit(); err != nil {
		return nil, err
	}
	return locations, nil
}

// GetByGuid returns (nil, nil) for an unknown identifier.
func (s *LocationService) GetByGuid(ctx context.Context, guid uuid.UUID) (*models.Location, error) {
	sess, err := s.sessions.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Release()

	location, err := s.locations.GetByGuid(ctx, sess, guid)
	if err != nil {
		return nil, err
	}
	if err := sess.Commit(); err != nil {
		return nil, err
	}
	return location, nil
}

func (s *LocationService) Create(ctx context.Context, location *models.Location) (*models.Location, error) {
	if location.Name == "" {
		return nil, apperrors.Validation("name is required")
	}

	location.Guid = uuid.New()
	location.CreatedUtc = time.Now().UTC()

	sess, err := s.sessions.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer sess.Release()

	affected, err := s.locations.Insert(ctx, sess, location)
	if err != nil {
		return nil, err
	}
	if affected != 1 {
		return nil, apperrors.Conflict("unable to add location")
	}
	if err := sess.Commit(); err != nil {
		return nil, err
	}

	s.publish(events.LocationEventsStream, events.LocationCreated, events.LocationCreatedEvent{
		LocationGuid: location.Guid,
		Name:         location.Name,
		City:         location.City,
	})
	return location, nil
}

// DeleteByGuid removes a location and everything under it: members first,
// then accounts, then the location itself, all in one transaction. No exit
// path can leave an orphaned account or member.
func (s *LocationService) DeleteByGuid(ctx context.Context, guid uuid.UUID) error {
	sess, err := s.sessions.Acquire(ctx)
	if err != nil {
		return err
	}
	defer sess.Release()

	location, err := s.locations.GetForUpdate(ctx, sess, guid)
	if err != nil {
		return err
	}
	if location == nil {
		return apperrors.NotFound("location not found")
	}

	membersRemoved, err := s.members.DeleteByLocationUID(ctx, sess, location.UID)
	if err != nil {
		return err
	}
	accountsRemoved, err := s.accounts.DeleteByLocationUID(ctx, sess, location.UID)
	if err != nil {
		return err
	}
	affected, err := s.locations.DeleteByUID(ctx, sess, location.UID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperrors.Conflict("unable to delete location")
	}
	if err := sess.Commit(); err != nil {
		return err
	}

	s.publish(events.LocationEventsStream, events.LocationDeleted, events.LocationDeletedEvent{
		LocationGuid:    location.Guid,
		AccountsRemoved: accountsRemoved,
		MembersRemoved:  membersRemoved,
	})
	return nil
}

func (s *LocationService) publish(stream, eventType string, data any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(context.Background(), stream, eventType, data); err != nil {
		log.Printf("Failed to publish %s event: %v", eventType, err)
	}
}
