package events

import (
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	LocationCreated = "location.created"
	LocationDeleted = "location.deleted"

	AccountCreated = "account.created"
	AccountUpdated = "account.updated"
	AccountDeleted = "account.deleted"

	MemberCreated = "member.created"
	MemberDeleted = "member.deleted"
)

// Stream names
const (
	LocationEventsStream = "location.events"
	AccountEventsStream  = "account.events"
	MemberEventsStream   = "member.events"
)

// Base event structure
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// Location events
type LocationCreatedEvent struct {
	LocationGuid uuid.UUID `json:"locationGuid"`
	Name         string    `json:"name"`
	City         string    `json:"city"`
}

type LocationDeletedEvent struct {
	LocationGuid    uuid.UUID `json:"locationGuid"`
	AccountsRemoved int64     `json:"accountsRemoved"`
	MembersRemoved  int64     `json:"membersRemoved"`
}

// Account events
type AccountCreatedEvent struct {
	AccountGuid    uuid.UUID `json:"accountGuid"`
	LocationGuid   uuid.UUID `json:"locationGuid"`
	AccountType    string    `json:"accountType"`
	NextBillingUtc time.Time `json:"nextBillingUtc"`
}

type AccountUpdatedEvent struct {
	AccountGuid uuid.UUID `json:"accountGuid"`
	Status      string    `json:"status"`
	PendCancel  bool      `json:"pendCancel"`
}

type AccountDeletedEvent struct {
	AccountGuid    uuid.UUID `json:"accountGuid"`
	MembersRemoved int64     `json:"membersRemoved"`
}

// Member events
type MemberCreatedEvent struct {
	MemberGuid  uuid.UUID `json:"memberGuid"`
	AccountGuid uuid.UUID `json:"accountGuid"`
	Primary     bool      `json:"primary"`
}

type MemberDeletedEvent struct {
	MemberGuid uuid.UUID `json:"memberGuid"`
}
