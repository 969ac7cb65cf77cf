// Package timeline groups persisted applications into per-company,
// per-role timelines for read-time presentation. It never mutates rows.
package timeline

import (
	"sort"
	"strings"

	"github.com/prachikotadia/jobpulse-worker/internal/models"
)

// Entry is one classified message inside a timeline.
type Entry struct {
	ApplicationID string                   `json:"application_id"`
	Status        models.ApplicationStatus `json:"status"`
	Subject       string                   `json:"subject"`
	Sender        string                   `json:"sender"`
	ReceivedAt    string                   `json:"received_at"`
}

// CompanyTimeline is the grouped, ordered view for one (company, role) pair.
type CompanyTimeline struct {
	Company       string                   `json:"company"`
	Role          string                   `json:"role"`
	CurrentStatus models.ApplicationStatus `json:"current_status"`
	Entries       []Entry                  `json:"entries"`
}

// Group buckets applications by normalized (company, role) and orders each
// bucket by status priority, then received time ascending. The last entry's
// status is the pair's current status.
func Group(apps []models.Application) []CompanyTimeline {
	type key struct{ company, role string }

	buckets := make(map[key][]models.Application)
	var order []key
	for _, app := range apps {
		k := key{normalize(app.Company), normalize(app.Role)}
		if _, seen := buckets[k]; !seen {
			order = append(order, k)
		}
		buckets[k] = append(buckets[k], app)
	}

	timelines := make([]CompanyTimeline, 0, len(order))
	for _, k := range order {
		group := buckets[k]
		sort.SliceStable(group, func(i, j int) bool {
			pi, pj := models.TimelineRank[group[i].Status], models.TimelineRank[group[j].Status]
			if pi != pj {
				return pi < pj
			}
			return group[i].ReceivedAt.Before(group[j].ReceivedAt)
		})

		tl := CompanyTimeline{
			Company: group[0].Company,
			Role:    group[0].Role,
			Entries: make([]Entry, 0, len(group)),
		}
		for _, app := range group {
			tl.Entries = append(tl.Entries, Entry{
				ApplicationID: app.ID,
				Status:        app.Status,
				Subject:       app.Subject,
				Sender:        app.Sender,
				ReceivedAt:    app.ReceivedAt.Format("2006-01-02T15:04:05Z07:00"),
			})
		}
		tl.CurrentStatus = group[len(group)-1].Status
		timelines = append(timelines, tl)
	}

	return timelines
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
