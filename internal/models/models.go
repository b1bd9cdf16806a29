package models

import (
	"time"

	"github.com/google/uuid"
)

// AccountStatus is the billing lifecycle state of an account.
type AccountStatus string

const (
	StatusActive        AccountStatus = "active"
	StatusPendingCancel AccountStatus = "pending_cancel"
	StatusCancelled     AccountStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s AccountStatus) Valid() bool {
	switch s {
	case StatusActive, StatusPendingCancel, StatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo enforces the one-way lifecycle
// active -> pending_cancel -> cancelled. A status may always "transition"
// to itself (no-op update); cancelled is terminal.
func (s AccountStatus) CanTransitionTo(next AccountStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case StatusActive:
		return next == StatusPendingCancel || next == StatusCancelled
	case StatusPendingCancel:
		return next == StatusCancelled
	}
	return false
}

// Location is the physical site that owns accounts. UID is the internal
// surrogate key and never leaves this service; Guid is the external identifier.
type Location struct {
	UID        int64     `json:"-"`
	Guid       uuid.UUID `json:"guid"`
	Name       string    `json:"name"`
	Address    string    `json:"address"`
	City       string    `json:"city"`
	Locale     string    `json:"locale"`
	PostalCode string    `json:"postalCode"`
	CreatedUtc time.Time `json:"createdUtc"`
}

type Account struct {
	UID            int64         `json:"-"`
	Guid           uuid.UUID     `json:"guid"`
	LocationUID    int64         `json:"-"`
	LocationGuid   uuid.UUID     `json:"locationGuid"`
	Status         AccountStatus `json:"status"`
	AccountType    string        `json:"accountType"`
	PaymentAmount  float64       `json:"paymentAmount"`
	PendCancel     bool          `json:"pendCancel"`
	CreatedUtc     time.Time     `json:"createdUtc"`
	PeriodStartUtc time.Time     `json:"periodStartUtc"`
	PeriodEndUtc   time.Time     `json:"periodEndUtc"`
	NextBillingUtc time.Time     `json:"nextBillingUtc"`
}

type Member struct {
	UID           int64      `json:"-"`
	Guid          uuid.UUID  `json:"guid"`
	AccountUID    int64      `json:"-"`
	AccountGuid   uuid.UUID  `json:"accountGuid"`
	FirstName     string     `json:"firstName"`
	LastName      string     `json:"lastName"`
	Address       string     `json:"address"`
	City          string     `json:"city"`
	Locale        string     `json:"locale"`
	PostalCode    string     `json:"postalCode"`
	Primary       bool       `json:"primary"`
	Disabled      bool       `json:"disabled"`
	JoinedDateUtc time.Time  `json:"joinedDateUtc"`
	CancelDateUtc *time.Time `json:"cancelDateUtc,omitempty"`
	Cancelled     bool       `json:"cancelled"`
	CreatedUtc    time.Time  `json:"createdUtc"`
}
