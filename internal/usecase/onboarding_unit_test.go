package usecase

import (
	"context"
	"testing"

	"github.com/AudereSemper/kokoru-garden-api/internal/core/domain"
)

func TestBulkUpdateOnboardingAppliesToAll(t *testing.T) {
	f := newFixture(t)
	f.identities.add(localIdentity("id-1", "a@b.com", "Str0ngP@ss1"))
	f.identities.add(localIdentity("id-2", "c@d.com", "Str0ngP@ss1"))

	err := f.svc.BulkUpdateOnboarding(context.Background(), []string{"id-1", "id-2"}, 3, true)
	if err != nil {
		t.Fatalf("BulkUpdateOnboarding returned error: %v", err)
	}

	for _, id := range []string{"id-1", "id-2"} {
		stored := f.identities.get(id)
		if stored.OnboardingStep != 3 || !stored.HasCompletedOnboarding {
			t.Fatalf("identity %s not updated: step=%d completed=%v",
				id, stored.OnboardingStep, stored.HasCompletedOnboarding)
		}
	}
}

func TestBulkUpdateOnboardingAllOrNothing(t *testing.T) {
	f := newFixture(t)
	f.identities.add(localIdentity("id-1", "a@b.com", "Str0ngP@ss1"))

	err := f.svc.BulkUpdateOnboarding(context.Background(), []string{"id-1", "id-404"}, 3, true)
	if !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	stored := f.identities.get("id-1")
	if stored.OnboardingStep != 0 || stored.HasCompletedOnboarding {
		t.Fatal("no identity may change when one id is unknown")
	}
}

func TestBulkUpdateOnboardingRejectsEmptyAndNegative(t *testing.T) {
	f := newFixture(t)

	if err := f.svc.BulkUpdateOnboarding(context.Background(), nil, 1, false); !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("expected validation error for empty ids, got %v", err)
	}
	if err := f.svc.BulkUpdateOnboarding(context.Background(), []string{"id-1"}, -1, false); !domain.IsKind(err, domain.KindValidation) {
		t.Fatalf("expected validation error for negative step, got %v", err)
	}
}
