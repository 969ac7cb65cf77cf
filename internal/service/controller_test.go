package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prachikotadia/jobpulse-worker/internal/models"
)

func newTestController() (*Controller, *memJobStore, *memStateStore) {
	jobs := newMemJobStore()
	states := newMemStateStore()
	return NewController(jobs, states, 10*time.Minute), jobs, states
}

func TestCreateJob_SecondStartReturnsExistingJob(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestController()

	first, err := c.CreateJob(ctx, "user-1", "acct-1")
	if err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	if first.Status != models.JobStatusQueued {
		t.Errorf("expected queued, got %s", first.Status)
	}

	second, err := c.CreateJob(ctx, "user-1", "acct-1")
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	if second == nil || second.ID != first.ID {
		t.Errorf("expected the existing job to be returned")
	}
}

func TestCreateJob_ConcurrentStartsAdmitExactlyOne(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestController()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.CreateJob(ctx, "user-1", "acct-1")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrAlreadyRunning):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("expected exactly one admitted start, got %d", succeeded)
	}
}

func TestCreateJob_DifferentUsersDoNotContend(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestController()

	if _, err := c.CreateJob(ctx, "user-1", "acct-1"); err != nil {
		t.Fatalf("create for user-1 failed: %v", err)
	}
	if _, err := c.CreateJob(ctx, "user-2", "acct-2"); err != nil {
		t.Fatalf("create for user-2 failed: %v", err)
	}
}

func TestCreateJob_ExpiredLockTakeover(t *testing.T) {
	ctx := context.Background()
	c, jobs, states := newTestController()

	stale, err := c.CreateJob(ctx, "user-1", "acct-1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Simulate a crashed worker: the lock expiry lapses without a heartbeat.
	states.mu.Lock()
	past := time.Now().Add(-time.Minute)
	states.states["user-1"].LockExpiresAt = &past
	states.mu.Unlock()

	fresh, err := c.CreateJob(ctx, "user-1", "acct-1")
	if err != nil {
		t.Fatalf("takeover create failed: %v", err)
	}
	if fresh.ID == stale.ID {
		t.Fatal("expected a new job after lock takeover")
	}

	abandoned, err := jobs.GetByID(ctx, stale.ID)
	if err != nil {
		t.Fatalf("failed to load abandoned job: %v", err)
	}
	if abandoned.Status != models.JobStatusFailed {
		t.Errorf("expected abandoned job failed, got %s", abandoned.Status)
	}
	if abandoned.ErrorMessage == nil || *abandoned.ErrorMessage == "" {
		t.Error("expected abandoned job to carry an error message")
	}
}

func TestCheckpoint_RefreshesHeartbeatAndLock(t *testing.T) {
	ctx := context.Background()
	c, _, states := newTestController()

	job, err := c.CreateJob(ctx, "user-1", "acct-1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := c.StartJob(ctx, job); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	job.MessagesFetched = 100
	job.MessagesClassified = 40
	if err := c.Checkpoint(ctx, job, models.PhaseClassifying); err != nil {
		t.Fatalf("checkpoint failed: %v", err)
	}

	if job.HeartbeatAt == nil {
		t.Fatal("expected heartbeat to be set")
	}
	if job.RatePerSecond <= 0 {
		t.Errorf("expected a positive rate, got %f", job.RatePerSecond)
	}

	state, _ := states.Get(ctx, "user-1")
	if !state.LockActive(time.Now().Add(5 * time.Minute)) {
		t.Error("expected lock expiry to be pushed out by the checkpoint")
	}
}

func TestCheckpoint_ObservesCancellation(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newTestController()

	job, err := c.CreateJob(ctx, "user-1", "acct-1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := c.StartJob(ctx, job); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := c.CancelJob(ctx, job.ID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	if err := c.Checkpoint(ctx, job, models.PhaseStoring); !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
}

func TestCheckpoint_DetectsLostLock(t *testing.T) {
	ctx := context.Background()
	c, _, states := newTestController()

	job, err := c.CreateJob(ctx, "user-1", "acct-1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := c.StartJob(ctx, job); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	// Another job took the lock over.
	states.mu.Lock()
	other := "other-job"
	states.states["user-1"].LockJobID = &other
	states.mu.Unlock()

	if err := c.Checkpoint(ctx, job, models.PhaseStoring); !errors.Is(err, ErrLockLost) {
		t.Fatalf("expected ErrLockLost, got %v", err)
	}
}

func TestCompleteJob_AdvancesCursorAndReleasesLock(t *testing.T) {
	ctx := context.Background()
	c, _, states := newTestController()

	job, err := c.CreateJob(ctx, "user-1", "acct-1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := c.StartJob(ctx, job); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := c.CompleteJob(ctx, job, "hist-42"); err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	if job.Status != models.JobStatusCompleted {
		t.Errorf("expected completed, got %s", job.Status)
	}
	state, _ := states.Get(ctx, "user-1")
	if state.HistoryID == nil || *state.HistoryID != "hist-42" {
		t.Error("expected cursor advanced to hist-42")
	}
	if state.LockJobID != nil {
		t.Error("expected lock released after completion")
	}
	if state.LastSyncedAt == nil {
		t.Error("expected last_synced_at recorded")
	}
}

func TestFailJob_ReleasesLockWithoutAdvancingCursor(t *testing.T) {
	ctx := context.Background()
	c, jobs, states := newTestController()

	job, err := c.CreateJob(ctx, "user-1", "acct-1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := c.StartJob(ctx, job); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	c.FailJob(ctx, job, errors.New("mailbox reauthorization required"))

	stored, _ := jobs.GetByID(ctx, job.ID)
	if stored.Status != models.JobStatusFailed {
		t.Errorf("expected failed, got %s", stored.Status)
	}
	state, _ := states.Get(ctx, "user-1")
	if state.HistoryID != nil {
		t.Error("expected cursor untouched on failure")
	}
	if state.LockJobID != nil {
		t.Error("expected lock released on failure")
	}
}

func TestAppendLog_SequencesAreStrictlyIncreasing(t *testing.T) {
	ctx := context.Background()
	c, jobs, _ := newTestController()

	job, err := c.CreateJob(ctx, "user-1", "acct-1")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	c.AppendLog(ctx, job, "info", "one")
	c.AppendLog(ctx, job, "info", "two")

	logs, err := jobs.GetLogs(ctx, job.ID, 0)
	if err != nil {
		t.Fatalf("get logs failed: %v", err)
	}
	if len(logs) < 3 { // creation log plus the two above
		t.Fatalf("expected at least 3 log lines, got %d", len(logs))
	}
	for i := 1; i < len(logs); i++ {
		if logs[i].Seq <= logs[i-1].Seq {
			t.Fatalf("log seq not strictly increasing: %d then %d", logs[i-1].Seq, logs[i].Seq)
		}
	}

	tail, err := jobs.GetLogs(ctx, job.ID, logs[0].Seq)
	if err != nil {
		t.Fatalf("get logs failed: %v", err)
	}
	if len(tail) != len(logs)-1 {
		t.Errorf("after_seq filter returned %d lines, expected %d", len(tail), len(logs)-1)
	}
}
