package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/prachikotadia/jobpulse-worker/internal/classifier"
	"github.com/prachikotadia/jobpulse-worker/internal/company"
	"github.com/prachikotadia/jobpulse-worker/internal/models"
)

const (
	pageSize      = 500
	gmailQuery    = "in:inbox -in:spam"
	tokenLeeway   = 5 * time.Minute
	snippetMaxLen = 300
)

// SyncProcessor runs one sync job end to end: token refresh, delta-or-full
// message listing, the two-stage filter, company resolution, and the merge
// into application rows. One goroutine per job; all coordination with the
// outside world goes through Controller checkpoints.
type SyncProcessor struct {
	controller *Controller
	accounts   AccountStore
	states     SyncStateStore
	audits     AuditStore
	mail       MailClient
	heuristic  *classifier.Heuristic
	classifier *classifier.Classifier
	resolver   *company.Resolver

	newMerger func() *MergeEngine
	// maxMessages caps a full scan so a first sync of a huge mailbox
	// stays bounded.
	maxMessages int
}

func NewSyncProcessor(
	controller *Controller,
	accounts AccountStore,
	states SyncStateStore,
	apps ApplicationStore,
	audits AuditStore,
	mail MailClient,
	maxMessages int,
) *SyncProcessor {
	return &SyncProcessor{
		controller:  controller,
		accounts:    accounts,
		states:      states,
		audits:      audits,
		mail:        mail,
		heuristic:   classifier.NewHeuristic(),
		classifier:  classifier.New(),
		resolver:    company.NewResolver(),
		newMerger:   func() *MergeEngine { return NewMergeEngine(apps) },
		maxMessages: maxMessages,
	}
}

// Run executes the job and records the terminal state. Intended to be
// called in its own goroutine.
func (p *SyncProcessor) Run(ctx context.Context, job *models.SyncJob) {
	err := p.run(ctx, job)
	switch {
	case err == nil:
	case errors.Is(err, ErrCancelled):
		// CancelJob already finalized the row and released the lock.
		log.Printf("job %s: stopped at cancellation checkpoint", job.ID)
	default:
		log.Printf("job %s: sync failed: %v", job.ID, err)
		p.controller.FailJob(ctx, job, err)
	}
}

func (p *SyncProcessor) run(ctx context.Context, job *models.SyncJob) error {
	if err := p.controller.StartJob(ctx, job); err != nil {
		return err
	}

	token, err := p.ensureAccessToken(ctx, job)
	if err != nil {
		return err
	}

	state, err := p.states.Get(ctx, job.UserID)
	if err != nil {
		return fmt.Errorf("failed to load sync state: %w", err)
	}

	merger := p.newMerger()

	var newCursor string
	if state != nil && state.HistoryID != nil && *state.HistoryID != "" {
		newCursor, err = p.incrementalScan(ctx, job, token, *state.HistoryID, merger)
		if errors.Is(err, ErrStaleCursor) {
			p.controller.AppendLog(ctx, job, "warn", "history cursor expired, falling back to full scan")
			newCursor, err = p.fullScan(ctx, job, token, merger)
		}
	} else {
		p.controller.AppendLog(ctx, job, "info", "no sync cursor, performing full scan")
		newCursor, err = p.fullScan(ctx, job, token, merger)
	}
	if err != nil {
		return err
	}

	if err := merger.Flush(ctx); err != nil {
		return fmt.Errorf("final flush failed: %w", err)
	}
	if failed := merger.FailedWrites(); failed > 0 {
		job.MessagesStored -= failed
		job.MessagesSkipped += failed
		p.controller.AppendLog(ctx, job, "warn", fmt.Sprintf("%d applications could not be written", failed))
	}
	if err := p.controller.Checkpoint(ctx, job, models.PhaseFinalizing); err != nil {
		return err
	}
	return p.controller.CompleteJob(ctx, job, newCursor)
}

// ensureAccessToken returns a valid access token, refreshing and
// persisting it when the stored one is expired or close to it.
func (p *SyncProcessor) ensureAccessToken(ctx context.Context, job *models.SyncJob) (string, error) {
	account, err := p.accounts.GetByUserID(ctx, job.UserID)
	if err != nil {
		return "", fmt.Errorf("failed to load account: %w", err)
	}
	if account.RefreshToken == nil || *account.RefreshToken == "" {
		return "", fmt.Errorf("account has no refresh token: %w", ErrReauthRequired)
	}

	if !account.TokenExpired(tokenLeeway) && account.AccessToken != nil {
		return *account.AccessToken, nil
	}

	p.controller.AppendLog(ctx, job, "info", "refreshing access token")
	refreshed, err := p.mail.RefreshAccessToken(ctx, *account.RefreshToken)
	if err != nil {
		return "", fmt.Errorf("token refresh failed: %w", err)
	}
	refreshToken := *account.RefreshToken
	if refreshed.RefreshToken != "" {
		refreshToken = refreshed.RefreshToken
	}
	if err := p.accounts.UpdateTokens(ctx, account.ID, refreshed.AccessToken, refreshToken, refreshed.ExpiresAt); err != nil {
		log.Printf("job %s: failed to persist refreshed tokens: %v", job.ID, err)
	}
	return refreshed.AccessToken, nil
}

// fullScan pages through the whole matching mailbox up to the message cap
// and returns the post-scan history cursor.
func (p *SyncProcessor) fullScan(ctx context.Context, job *models.SyncJob, token string, merger *MergeEngine) (string, error) {
	pageToken := ""
	for {
		page, err := p.mail.ListMessageIDs(ctx, token, gmailQuery, pageToken, pageSize)
		if err != nil {
			return "", fmt.Errorf("failed to list messages: %w", err)
		}

		ids := page.MessageIDs
		if remaining := p.maxMessages - job.MessagesFetched; len(ids) > remaining {
			ids = ids[:remaining]
		}
		if err := p.processPage(ctx, job, token, merger, ids); err != nil {
			return "", err
		}

		if page.NextPageToken == "" || job.MessagesFetched >= p.maxMessages {
			break
		}
		pageToken = page.NextPageToken
	}

	cursor, err := p.mail.CurrentHistoryID(ctx, token)
	if err != nil {
		// A missing cursor only downgrades the next sync to full scan.
		log.Printf("job %s: failed to read current history id: %v", job.ID, err)
		return "", nil
	}
	return cursor, nil
}

// incrementalScan walks the change log since the stored cursor and
// returns the newest cursor observed.
func (p *SyncProcessor) incrementalScan(ctx context.Context, job *models.SyncJob, token, historyID string, merger *MergeEngine) (string, error) {
	p.controller.AppendLog(ctx, job, "info", "performing incremental sync")

	latest := ""
	pageToken := ""
	for {
		page, err := p.mail.ListHistory(ctx, token, historyID, pageToken)
		if err != nil {
			if errors.Is(err, ErrStaleCursor) {
				return "", err
			}
			return "", fmt.Errorf("failed to list history: %w", err)
		}
		if page.HistoryID != "" {
			latest = page.HistoryID
		}

		if err := p.processPage(ctx, job, token, merger, page.MessageIDs); err != nil {
			return "", err
		}

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
	}

	if latest == "" {
		latest = historyID
	}
	return latest, nil
}

// processPage runs the per-message pipeline over one page of IDs, then
// flushes and checkpoints. Individual message failures are skipped;
// authorization failures abort the sync.
func (p *SyncProcessor) processPage(ctx context.Context, job *models.SyncJob, token string, merger *MergeEngine, ids []string) error {
	if len(ids) == 0 {
		return p.controller.Checkpoint(ctx, job, models.PhaseFetching)
	}

	for _, id := range ids {
		msg, err := p.mail.FetchMessage(ctx, token, id)
		if err != nil {
			if errors.Is(err, ErrReauthRequired) {
				return fmt.Errorf("fetch message %s: %w", id, err)
			}
			job.MessagesSkipped++
			log.Printf("job %s: failed to fetch message %s: %v", job.ID, id, err)
			continue
		}
		job.MessagesFetched++
		p.processMessage(ctx, job, merger, msg)
	}

	if err := merger.Flush(ctx); err != nil {
		return fmt.Errorf("batch flush failed: %w", err)
	}
	return p.controller.Checkpoint(ctx, job, models.PhaseStoring)
}

// processMessage applies stage 1, stage 2, company resolution, and the
// merge to a single message, updating the job counters in place.
func (p *SyncProcessor) processMessage(ctx context.Context, job *models.SyncJob, merger *MergeEngine, msg *models.EmailMessage) {
	score, reasons := p.heuristic.Score(msg)
	decision := p.heuristic.Decide(score)
	p.recordAudit(ctx, job, msg.ID, models.AuditStageHeuristic,
		decision != classifier.DecisionReject, float64(score), strings.Join(reasons, "; "))
	if decision == classifier.DecisionReject {
		job.MessagesSkipped++
		return
	}

	result := p.classifier.Classify(msg)
	p.recordAudit(ctx, job, msg.ID, models.AuditStageClassifier,
		result.Category != models.StatusExcluded, result.Confidence, result.Explanation)
	if result.Category == models.StatusExcluded {
		job.MessagesSkipped++
		return
	}

	job.MessagesClassified++
	key := string(result.Category)
	if count, ok := job.CategoryCounts[key].(int); ok {
		job.CategoryCounts[key] = count + 1
	} else if count, ok := job.CategoryCounts[key].(float64); ok {
		job.CategoryCounts[key] = int(count) + 1
	} else {
		job.CategoryCounts[key] = 1
	}

	extraction := p.resolver.Resolve(msg)
	app := buildApplication(job.UserID, msg, result, extraction)
	res, err := merger.Merge(ctx, app)
	if err != nil {
		job.MessagesSkipped++
		log.Printf("job %s: merge failed for message %s: %v", job.ID, msg.ID, err)
		return
	}
	if res.Created || res.Updated {
		job.MessagesStored++
	}
}

func (p *SyncProcessor) recordAudit(ctx context.Context, job *models.SyncJob, messageID, stage string, accepted bool, score float64, reason string) {
	audit := models.FilterAudit{
		ID:             uuid.New().String(),
		JobID:          job.ID,
		GmailMessageID: messageID,
		Stage:          stage,
		Accepted:       accepted,
		Score:          score,
		Reason:         reason,
		CreatedAt:      time.Now(),
	}
	if err := p.audits.Record(ctx, audit); err != nil {
		log.Printf("job %s: failed to record filter audit: %v", job.ID, err)
	}
}

func buildApplication(userID string, msg *models.EmailMessage, result classifier.Result, extraction company.Extraction) *models.Application {
	snippet := msg.Snippet
	if len(snippet) > snippetMaxLen {
		snippet = snippet[:snippetMaxLen]
	}

	app := &models.Application{
		ID:                uuid.New().String(),
		UserID:            userID,
		GmailMessageID:    msg.ID,
		ThreadID:          msg.ThreadID,
		Company:           extraction.Name,
		CompanyConfidence: extraction.Confidence,
		CompanySource:     extraction.Source,
		Role:              classifier.ExtractRole(msg.Subject),
		Status:            result.Category,
		Subject:           msg.Subject,
		Snippet:           snippet,
		Sender:            msg.From,
		ReceivedAt:        msg.Date,
		LastUpdatedAt:     msg.Date,
	}
	if extraction.ATSProvider != "" {
		provider := extraction.ATSProvider
		app.ATSProvider = &provider
	}
	if len(extraction.Candidates) > 0 {
		candidates := make([]interface{}, 0, len(extraction.Candidates))
		for _, c := range extraction.Candidates {
			candidates = append(candidates, map[string]interface{}{
				"name":       c.Name,
				"confidence": c.Confidence,
				"source":     c.Source,
			})
		}
		app.CompanyCandidates = models.JSONB{"candidates": candidates}
	}
	return app
}
