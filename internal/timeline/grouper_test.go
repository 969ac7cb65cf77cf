package timeline

import (
	"testing"
	"time"

	"github.com/prachikotadia/jobpulse-worker/internal/models"
)

func app(id, company, role string, status models.ApplicationStatus, received time.Time) models.Application {
	return models.Application{
		ID:         id,
		Company:    company,
		Role:       role,
		Status:     status,
		ReceivedAt: received,
	}
}

func TestGroup_ByCompanyAndRole(t *testing.T) {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	apps := []models.Application{
		app("1", "Acme", "Engineer", models.StatusApplied, base),
		app("2", "acme ", "Engineer", models.StatusInterview, base.AddDate(0, 0, 3)),
		app("3", "Initech", "Engineer", models.StatusApplied, base),
	}

	timelines := Group(apps)
	if len(timelines) != 2 {
		t.Fatalf("expected 2 timelines, got %d", len(timelines))
	}

	// "Acme" and "acme " normalize to the same key.
	if len(timelines[0].Entries) != 2 {
		t.Errorf("expected 2 entries for Acme, got %d", len(timelines[0].Entries))
	}
	if timelines[0].CurrentStatus != models.StatusInterview {
		t.Errorf("expected current status interview, got %s", timelines[0].CurrentStatus)
	}
}

func TestGroup_StatusPriorityOrdering(t *testing.T) {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	// Deliberately out of order: offer arrived before the interview note.
	apps := []models.Application{
		app("1", "Acme", "", models.StatusOffer, base.AddDate(0, 0, 1)),
		app("2", "Acme", "", models.StatusApplied, base),
		app("3", "Acme", "", models.StatusInterview, base.AddDate(0, 0, 2)),
	}

	timelines := Group(apps)
	if len(timelines) != 1 {
		t.Fatalf("expected 1 timeline, got %d", len(timelines))
	}

	got := timelines[0]
	want := []models.ApplicationStatus{models.StatusApplied, models.StatusInterview, models.StatusOffer}
	for i, status := range want {
		if got.Entries[i].Status != status {
			t.Errorf("entry %d: expected %s, got %s", i, status, got.Entries[i].Status)
		}
	}
	if got.CurrentStatus != models.StatusOffer {
		t.Errorf("expected current status offer, got %s", got.CurrentStatus)
	}
}

func TestGroup_EqualPriorityOrderedByTime(t *testing.T) {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	apps := []models.Application{
		app("2", "Acme", "", models.StatusApplied, base.AddDate(0, 0, 5)),
		app("1", "Acme", "", models.StatusApplied, base),
	}

	timelines := Group(apps)
	if timelines[0].Entries[0].ApplicationID != "1" {
		t.Errorf("expected earliest applied entry first, got %s", timelines[0].Entries[0].ApplicationID)
	}
}

func TestGroup_Empty(t *testing.T) {
	if got := Group(nil); len(got) != 0 {
		t.Errorf("expected no timelines for empty input, got %d", len(got))
	}
}
