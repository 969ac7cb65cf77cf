package service

// In-memory store and mail-client fakes shared by the service tests.

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prachikotadia/jobpulse-worker/internal/models"
)

type memJobStore struct {
	mu      sync.Mutex
	jobs    map[string]*models.SyncJob
	logs    map[string][]models.SyncJobLog
	nextSeq map[string]int64
}

func newMemJobStore() *memJobStore {
	return &memJobStore{
		jobs:    make(map[string]*models.SyncJob),
		logs:    make(map[string][]models.SyncJobLog),
		nextSeq: make(map[string]int64),
	}
}

func (s *memJobStore) Create(_ context.Context, job *models.SyncJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *job
	s.jobs[job.ID] = &cp
	return nil
}

func (s *memJobStore) GetByID(_ context.Context, jobID string) (*models.SyncJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	cp := *job
	return &cp, nil
}

func (s *memJobStore) Update(_ context.Context, job *models.SyncJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; !ok {
		return ErrJobNotFound
	}
	cp := *job
	// Terminal statuses set by a concurrent cancel are never overwritten
	// by a late checkpoint, mirroring the conditional SQL update.
	if s.jobs[job.ID].Status == models.JobStatusCancelled && !job.Status.IsTerminal() {
		return nil
	}
	s.jobs[job.ID] = &cp
	return nil
}

func (s *memJobStore) AppendLog(_ context.Context, jobID, level, message string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq := s.nextSeq[jobID]
	if seq == 0 {
		seq = 1
	}
	s.nextSeq[jobID] = seq + 1
	s.logs[jobID] = append(s.logs[jobID], models.SyncJobLog{
		ID:        fmt.Sprintf("%s-%d", jobID, seq),
		JobID:     jobID,
		Seq:       seq,
		Level:     level,
		Message:   message,
		CreatedAt: time.Now(),
	})
	return seq, nil
}

func (s *memJobStore) GetLogs(_ context.Context, jobID string, afterSeq int64) ([]models.SyncJobLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.SyncJobLog
	for _, l := range s.logs[jobID] {
		if l.Seq > afterSeq {
			out = append(out, l)
		}
	}
	return out, nil
}

type memStateStore struct {
	mu     sync.Mutex
	states map[string]*models.SyncState
}

func newMemStateStore() *memStateStore {
	return &memStateStore{states: make(map[string]*models.SyncState)}
}

func (s *memStateStore) Get(_ context.Context, userID string) (*models.SyncState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[userID]
	if !ok {
		return nil, nil
	}
	cp := *state
	return &cp, nil
}

func (s *memStateStore) AcquireLock(_ context.Context, userID, jobID string, expiresAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[userID]
	if !ok {
		state = &models.SyncState{UserID: userID, CreatedAt: time.Now()}
		s.states[userID] = state
	}
	if state.LockActive(time.Now()) {
		return false, nil
	}
	state.LockJobID = &jobID
	state.LockExpiresAt = &expiresAt
	state.UpdatedAt = time.Now()
	return true, nil
}

func (s *memStateStore) RefreshLock(_ context.Context, userID, jobID string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[userID]
	if !ok || state.LockJobID == nil || *state.LockJobID != jobID {
		return errors.New("lock not held")
	}
	state.LockExpiresAt = &expiresAt
	return nil
}

func (s *memStateStore) ReleaseLock(_ context.Context, userID, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[userID]
	if !ok || state.LockJobID == nil || *state.LockJobID != jobID {
		return nil
	}
	state.LockJobID = nil
	state.LockExpiresAt = nil
	return nil
}

func (s *memStateStore) AdvanceCursor(_ context.Context, userID, historyID string, syncedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.states[userID]
	if !ok {
		state = &models.SyncState{UserID: userID}
		s.states[userID] = state
	}
	state.HistoryID = &historyID
	state.LastSyncedAt = &syncedAt
	return nil
}

type memAppStore struct {
	mu    sync.Mutex
	byMsg map[string]*models.Application
	byID  map[string]*models.Application

	bulkErr   error
	upsertErr map[string]error // keyed by gmail message id
	bulkCalls int
}

func newMemAppStore() *memAppStore {
	return &memAppStore{
		byMsg:     make(map[string]*models.Application),
		byID:      make(map[string]*models.Application),
		upsertErr: make(map[string]error),
	}
}

func (s *memAppStore) GetByMessageID(_ context.Context, gmailMessageID string) (*models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.byMsg[gmailMessageID]
	if !ok {
		return nil, nil
	}
	cp := *app
	return &cp, nil
}

func (s *memAppStore) Upsert(_ context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertLocked(app)
}

func (s *memAppStore) upsertLocked(app *models.Application) error {
	if err := s.upsertErr[app.GmailMessageID]; err != nil {
		return err
	}
	cp := *app
	if prev, ok := s.byMsg[app.GmailMessageID]; ok {
		cp.ID = prev.ID
	}
	s.byMsg[cp.GmailMessageID] = &cp
	s.byID[cp.ID] = &cp
	return nil
}

func (s *memAppStore) BulkUpsert(_ context.Context, apps []models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bulkCalls++
	if s.bulkErr != nil {
		return s.bulkErr
	}
	for i := range apps {
		if err := s.upsertLocked(&apps[i]); err != nil {
			return err
		}
	}
	return nil
}

func (s *memAppStore) ListByUser(_ context.Context, userID string) ([]models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Application
	for _, app := range s.byMsg {
		if app.UserID == userID {
			out = append(out, *app)
		}
	}
	return out, nil
}

func (s *memAppStore) ListStale(_ context.Context, status models.ApplicationStatus, before time.Time) ([]models.Application, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Application
	for _, app := range s.byMsg {
		if app.Status == status && app.LastUpdatedAt.Before(before) {
			out = append(out, *app)
		}
	}
	return out, nil
}

func (s *memAppStore) HasSibling(_ context.Context, userID, company, excludeID string, statuses []models.ApplicationStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, app := range s.byMsg {
		if app.UserID != userID || app.Company != company || app.ID == excludeID {
			continue
		}
		for _, status := range statuses {
			if app.Status == status {
				return true, nil
			}
		}
	}
	return false, nil
}

func (s *memAppStore) UpdateStatus(_ context.Context, id string, status models.ApplicationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.byID[id]
	if !ok {
		return errors.New("application not found")
	}
	app.Status = status
	return nil
}

func (s *memAppStore) DeleteByUser(_ context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted int64
	for msgID, app := range s.byMsg {
		if app.UserID == userID {
			delete(s.byMsg, msgID)
			delete(s.byID, app.ID)
			deleted++
		}
	}
	return deleted, nil
}

type memAccountStore struct {
	mu      sync.Mutex
	account *models.Account
}

func (s *memAccountStore) GetByUserID(_ context.Context, userID string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.account == nil || s.account.UserID != userID {
		return nil, errors.New("account not found")
	}
	cp := *s.account
	return &cp, nil
}

func (s *memAccountStore) UpdateTokens(_ context.Context, accountID, accessToken, refreshToken string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.account == nil || s.account.ID != accountID {
		return errors.New("account not found")
	}
	s.account.AccessToken = &accessToken
	s.account.RefreshToken = &refreshToken
	s.account.AccessTokenExpiresAt = &expiresAt
	return nil
}

type memAuditStore struct {
	mu     sync.Mutex
	audits []models.FilterAudit
}

func (s *memAuditStore) Record(_ context.Context, audit models.FilterAudit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audits = append(s.audits, audit)
	return nil
}

// fakeMail serves scripted pages and synthesizes message bodies from a
// template, so large pagination scenarios need no per-message fixtures.
type fakeMail struct {
	mu           sync.Mutex
	pages        []MessagePage
	historyPages []HistoryPage
	staleHistory bool
	listCalls    int
	historyCalls int
	fetched      map[string]int
	currentHist  string
	refresh      *TokenRefreshResult
	refreshErr   error
	message      func(id string) *models.EmailMessage
}

func newFakeMail() *fakeMail {
	return &fakeMail{
		fetched:     make(map[string]int),
		currentHist: "hist-100",
		message:     appliedMessage,
	}
}

// appliedMessage builds a message that passes stage 1 and classifies as
// applied.
func appliedMessage(id string) *models.EmailMessage {
	return &models.EmailMessage{
		ID:       id,
		ThreadID: "thread-" + id,
		Subject:  "Thank you for applying to Acme",
		Snippet:  "We have received your application",
		From:     "Acme Careers <no-reply@greenhouse.io>",
		BodyText: "We have received your application for the Software Engineer position. It is under review.",
		Date:     time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fakeMail) ListMessageIDs(_ context.Context, _, _, _ string, _ int64) (*MessagePage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listCalls >= len(f.pages) {
		return &MessagePage{}, nil
	}
	page := f.pages[f.listCalls]
	f.listCalls++
	return &page, nil
}

func (f *fakeMail) ListHistory(_ context.Context, _, _, _ string) (*HistoryPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.staleHistory {
		return nil, ErrStaleCursor
	}
	if f.historyCalls >= len(f.historyPages) {
		return &HistoryPage{}, nil
	}
	page := f.historyPages[f.historyCalls]
	f.historyCalls++
	return &page, nil
}

func (f *fakeMail) FetchMessage(_ context.Context, _, messageID string) (*models.EmailMessage, error) {
	f.mu.Lock()
	f.fetched[messageID]++
	f.mu.Unlock()
	return f.message(messageID), nil
}

func (f *fakeMail) CurrentHistoryID(_ context.Context, _ string) (string, error) {
	return f.currentHist, nil
}

func (f *fakeMail) RefreshAccessToken(_ context.Context, _ string) (*TokenRefreshResult, error) {
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	if f.refresh != nil {
		return f.refresh, nil
	}
	return &TokenRefreshResult{AccessToken: "fresh-token", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func messageIDs(prefix string, n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("%s-%04d", prefix, i)
	}
	return ids
}
