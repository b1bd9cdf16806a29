package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clubware/billing-service/internal/apperrors"
	"github.com/clubware/billing-service/internal/models"
)

func TestNextBillingFrom(t *testing.T) {
	tests := []struct {
		start string
		want  string
	}{
		{"2026-01-15T10:30:00Z", "2026-02-15T10:30:00Z"},
		{"2026-12-01T00:00:00Z", "2027-01-01T00:00:00Z"},
		// Go normalizes Jan 31 + 1 month into March; that is the AddDate
		// contract and what the billing date is defined against.
		{"2026-01-31T09:00:00Z", "2026-03-03T09:00:00Z"},
	}
	for _, tt := range tests {
		start, _ := time.Parse(time.RFC3339, tt.start)
		want, _ := time.Parse(time.RFC3339, tt.want)
		if got := NextBillingFrom(start); !got.Equal(want) {
			t.Errorf("NextBillingFrom(%s) = %s, want %s", tt.start, got, want)
		}
	}
}

func TestCreateAccountValidation(t *testing.T) {
	svc := NewAccountService(nil, nil, nil, nil)

	_, err := svc.Create(context.Background(), &models.Account{AccountType: "family"})
	if apperrors.KindOf(err) != apperrors.KindValidation {
		t.Errorf("missing location should be a validation error, got %v", err)
	}

	_, err = svc.Create(context.Background(), &models.Account{LocationGuid: uuid.New()})
	if apperrors.KindOf(err) != apperrors.KindValidation {
		t.Errorf("missing account type should be a validation error, got %v", err)
	}

	_, err = svc.Create(context.Background(), &models.Account{
		LocationGuid: uuid.New(), AccountType: "family", PaymentAmount: -1,
	})
	if apperrors.KindOf(err) != apperrors.KindValidation {
		t.Errorf("negative payment should be a validation error, got %v", err)
	}

	_, err = svc.Create(context.Background(), &models.Account{
		LocationGuid: uuid.New(), AccountType: "family", Status: "frozen",
	})
	if apperrors.KindOf(err) != apperrors.KindValidation {
		t.Errorf("unknown status should be a validation error, got %v", err)
	}
}

func TestCreateAccountSetsBillingDate(t *testing.T) {
	env := newTestEnv(t)
	location := env.createLocation(t)

	account := env.createAccount(t, location)

	want := account.CreatedUtc.AddDate(0, 1, 0)
	if !account.NextBillingUtc.Equal(want) {
		t.Errorf("NextBillingUtc = %s, want created + 1 month = %s", account.NextBillingUtc, want)
	}

	// The persisted row agrees with the returned model.
	stored, err := env.accounts.GetByGuid(context.Background(), account.Guid)
	if err != nil {
		t.Fatalf("failed to read account back: %v", err)
	}
	if stored == nil {
		t.Fatal("account not found after create")
	}
	if !stored.NextBillingUtc.Equal(want) {
		t.Errorf("stored NextBillingUtc = %s, want %s", stored.NextBillingUtc, want)
	}
}

func TestCreateAccountUnknownLocationConflicts(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.accounts.Create(context.Background(), &models.Account{
		LocationGuid: uuid.New(),
		AccountType:  "family",
	})
	if apperrors.KindOf(err) != apperrors.KindConflict {
		t.Errorf("insert against a missing location should conflict, got %v", err)
	}
	if env.countRows(t, "account") != 0 {
		t.Error("failed insert must leave no rows behind")
	}
}

func TestGetAccountMissReturnsEmpty(t *testing.T) {
	env := newTestEnv(t)

	account, err := env.accounts.GetByGuid(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("miss should not be an error, got %v", err)
	}
	if account != nil {
		t.Errorf("expected nil account, got %+v", account)
	}
}

func TestUpdateAccountNotFoundWritesNothing(t *testing.T) {
	env := newTestEnv(t)
	location := env.createLocation(t)
	existing := env.createAccount(t, location)

	_, err := env.accounts.Update(context.Background(), uuid.New(), &models.Account{
		PaymentAmount: 999,
	})
	if apperrors.KindOf(err) != apperrors.KindNotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}

	stored, err := env.accounts.GetByGuid(context.Background(), existing.Guid)
	if err != nil || stored == nil {
		t.Fatalf("failed to read existing account: %v", err)
	}
	if stored.PaymentAmount != 100 {
		t.Errorf("unrelated account was modified: %+v", stored)
	}
}

func TestUpdateAccountRecomputesBillingOnPeriodChange(t *testing.T) {
	env := newTestEnv(t)
	location := env.createLocation(t)
	account := env.createAccount(t, location)

	newStart := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	updated, err := env.accounts.Update(context.Background(), account.Guid, &models.Account{
		PaymentAmount:  100,
		PeriodStartUtc: newStart,
		PeriodEndUtc:   newStart.AddDate(0, 1, 0),
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if !updated.NextBillingUtc.Equal(newStart.AddDate(0, 1, 0)) {
		t.Errorf("NextBillingUtc = %s, want period start + 1 month", updated.NextBillingUtc)
	}
}

func TestUpdateAccountStatusTransitions(t *testing.T) {
	env := newTestEnv(t)
	location := env.createLocation(t)
	account := env.createAccount(t, location)

	if _, err := env.accounts.Update(context.Background(), account.Guid, &models.Account{
		PaymentAmount: 100, Status: models.StatusPendingCancel,
	}); err != nil {
		t.Fatalf("active -> pending_cancel should be allowed: %v", err)
	}
	if _, err := env.accounts.Update(context.Background(), account.Guid, &models.Account{
		PaymentAmount: 100, Status: models.StatusCancelled,
	}); err != nil {
		t.Fatalf("pending_cancel -> cancelled should be allowed: %v", err)
	}

	_, err := env.accounts.Update(context.Background(), account.Guid, &models.Account{
		PaymentAmount: 100, Status: models.StatusActive,
	})
	if apperrors.KindOf(err) != apperrors.KindConflict {
		t.Errorf("reactivating a cancelled account should conflict, got %v", err)
	}
}

func TestDeleteAccountCascadesToItsMembersOnly(t *testing.T) {
	env := newTestEnv(t)
	location := env.createLocation(t)
	accountA := env.createAccount(t, location)
	accountB := env.createAccount(t, location)
	env.createMember(t, accountA, "Ada", true)
	env.createMember(t, accountA, "Ben", false)
	keep := env.createMember(t, accountB, "Cal", true)

	if err := env.accounts.DeleteByGuid(context.Background(), accountA.Guid); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	orphans, err := env.accounts.ListMembers(context.Background(), accountA.Guid)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(orphans) != 0 {
		t.Errorf("members of the deleted account survived: %+v", orphans)
	}

	remaining, err := env.accounts.ListMembers(context.Background(), accountB.Guid)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(remaining) != 1 || remaining[0].Guid != keep.Guid {
		t.Errorf("members of the other account were touched: %+v", remaining)
	}

	// The owning location is untouched.
	loc, err := env.locations.GetByGuid(context.Background(), location.Guid)
	if err != nil || loc == nil {
		t.Errorf("location should survive an account delete: %v", err)
	}
}

func TestDeleteMissingAccountConflicts(t *testing.T) {
	env := newTestEnv(t)

	err := env.accounts.DeleteByGuid(context.Background(), uuid.New())
	if apperrors.KindOf(err) != apperrors.KindConflict {
		t.Errorf("zero-row delete should conflict, got %v", err)
	}
}

func TestDeleteNonPrimaryMembersMissingAccountConflicts(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.accounts.DeleteNonPrimaryMembers(context.Background(), uuid.New())
	if apperrors.KindOf(err) != apperrors.KindConflict {
		t.Errorf("expected conflict for unknown account, got %v", err)
	}
}

func TestDeleteNonPrimaryMembersSparesPrimary(t *testing.T) {
	env := newTestEnv(t)
	location := env.createLocation(t)
	account := env.createAccount(t, location)
	primary := env.createMember(t, account, "Ada", true)
	env.createMember(t, account, "Ben", false)
	env.createMember(t, account, "Cam", false)

	removed, err := env.accounts.DeleteNonPrimaryMembers(context.Background(), account.Guid)
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed %d members, want 2", removed)
	}

	members, err := env.accounts.ListMembers(context.Background(), account.Guid)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(members) != 1 || members[0].Guid != primary.Guid {
		t.Errorf("primary member should be the sole survivor: %+v", members)
	}

	// A second pass has nothing to delete and reports it.
	_, err = env.accounts.DeleteNonPrimaryMembers(context.Background(), account.Guid)
	if apperrors.KindOf(err) != apperrors.KindConflict {
		t.Errorf("zero-row delete should conflict, got %v", err)
	}
}

func TestDeleteLocationCascadesTransitively(t *testing.T) {
	env := newTestEnv(t)
	location := env.createLocation(t)
	account := env.createAccount(t, location)
	env.createMember(t, account, "Ada", true)

	if err := env.locations.DeleteByGuid(context.Background(), location.Guid); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if n := env.countRows(t, "member"); n != 0 {
		t.Errorf("%d members orphaned", n)
	}
	if n := env.countRows(t, "account"); n != 0 {
		t.Errorf("%d accounts orphaned", n)
	}
	if n := env.countRows(t, "location"); n != 0 {
		t.Errorf("%d locations left", n)
	}
}

func TestAccountLifecycleScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	location := env.createLocation(t)

	account, err := env.accounts.Create(ctx, &models.Account{
		LocationGuid:  location.Guid,
		AccountType:   "family",
		PaymentAmount: 100,
	})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	if !account.NextBillingUtc.Equal(account.CreatedUtc.AddDate(0, 1, 0)) {
		t.Errorf("NextBillingUtc = %s, want creation + 1 month", account.NextBillingUtc)
	}

	if _, err := env.members.Create(ctx, &models.Member{
		AccountGuid: account.Guid, FirstName: "Maria", LastName: "Kovacs", Primary: true,
	}); err != nil {
		t.Fatalf("first primary member should succeed: %v", err)
	}

	_, err = env.members.Create(ctx, &models.Member{
		AccountGuid: account.Guid, FirstName: "Imre", LastName: "Kovacs", Primary: true,
	})
	if apperrors.KindOf(err) != apperrors.KindConflict {
		t.Fatalf("second primary member should conflict, got %v", err)
	}

	if err := env.accounts.DeleteByGuid(ctx, account.Guid); err != nil {
		t.Fatalf("delete account: %v", err)
	}
	members, err := env.accounts.ListMembers(ctx, account.Guid)
	if err != nil {
		t.Fatalf("list members: %v", err)
	}
	if len(members) != 0 {
		t.Errorf("expected no members after account delete, got %d", len(members))
	}
	loc, err := env.locations.GetByGuid(ctx, location.Guid)
	if err != nil || loc == nil {
		t.Errorf("location should still exist: %v", err)
	}
}

func TestUpdateValidatesBeforeWriting(t *testing.T) {
	env := newTestEnv(t)
	location := env.createLocation(t)
	account := env.createAccount(t, location)

	_, err := env.accounts.Update(context.Background(), account.Guid, &models.Account{
		Status: "frozen", PaymentAmount: 100,
	})
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) || appErr.Kind != apperrors.KindValidation {
		t.Errorf("unknown status should be a validation error, got %v", err)
	}
}
