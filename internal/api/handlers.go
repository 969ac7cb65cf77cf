package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/prachikotadia/jobpulse-worker/internal/service"
	"github.com/prachikotadia/jobpulse-worker/internal/timeline"
)

type syncStartRequest struct {
	UserID    string `json:"user_id" binding:"required"`
	UserEmail string `json:"user_email"`
	AccountID string `json:"account_id"`
}

// handleSyncStart creates a job and launches the worker goroutine. A sync
// already running for the user is a conflict, answered with the running
// job's ID so the client can attach to it.
func (s *Server) handleSyncStart(c *gin.Context) {
	var req syncStartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	job, err := s.control.CreateJob(c.Request.Context(), req.UserID, req.AccountID)
	if err != nil {
		if errors.Is(err, service.ErrAlreadyRunning) {
			resp := gin.H{"error": "a sync is already running for this user"}
			if job != nil {
				resp["job_id"] = job.ID
			}
			c.JSON(http.StatusConflict, resp)
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start sync"})
		return
	}

	// The job outlives this request; detach it from the request context.
	go s.processor.Run(context.Background(), job)

	c.JSON(http.StatusAccepted, gin.H{
		"job_id": job.ID,
		"status": job.Status,
	})
}

// handleSyncStatus summarizes the user's sync state: cursor freshness and
// whether a job currently holds the lock.
func (s *Server) handleSyncStatus(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	state, err := s.states.Get(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load sync state"})
		return
	}

	resp := gin.H{
		"user_id":          userID,
		"sync_running":     false,
		"has_synced":       false,
		"incremental_sync": false,
	}
	if state != nil {
		if state.LastSyncedAt != nil {
			resp["has_synced"] = true
			resp["last_synced_at"] = state.LastSyncedAt
		}
		resp["incremental_sync"] = state.HistoryID != nil && *state.HistoryID != ""
		if state.LockActive(time.Now()) {
			resp["sync_running"] = true
			resp["job_id"] = *state.LockJobID
		}
	}
	c.JSON(http.StatusOK, resp)
}

// jobIDParam validates the path parameter. Frontend polling bugs send
// literal "undefined" and "null"; both are client errors, not lookups.
func jobIDParam(c *gin.Context) (string, bool) {
	jobID := c.Param("job_id")
	if jobID == "" || jobID == "undefined" || jobID == "null" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return "", false
	}
	return jobID, true
}

func (s *Server) handleSyncProgress(c *gin.Context) {
	jobID, ok := jobIDParam(c)
	if !ok {
		return
	}

	job, err := s.jobs.GetByID(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load job"})
		return
	}

	resp := gin.H{
		"job_id":              job.ID,
		"status":              job.Status,
		"phase":               job.Phase,
		"messages_fetched":    job.MessagesFetched,
		"messages_classified": job.MessagesClassified,
		"messages_stored":     job.MessagesStored,
		"messages_skipped":    job.MessagesSkipped,
		"category_counts":     job.CategoryCounts,
		"rate_per_second":     job.RatePerSecond,
		"eta_seconds":         job.ETASeconds,
		"started_at":          job.StartedAt,
		"finished_at":         job.FinishedAt,
	}
	if job.ErrorMessage != nil {
		resp["error_message"] = *job.ErrorMessage
	}
	c.JSON(http.StatusOK, resp)
}

// handleSyncLogs returns log lines after the given sequence number, for
// incremental polling.
func (s *Server) handleSyncLogs(c *gin.Context) {
	jobID, ok := jobIDParam(c)
	if !ok {
		return
	}

	afterSeq := int64(0)
	if raw := c.Query("after_seq"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "after_seq must be a non-negative integer"})
			return
		}
		afterSeq = parsed
	}

	if _, err := s.jobs.GetByID(c.Request.Context(), jobID); err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load job"})
		return
	}

	logs, err := s.jobs.GetLogs(c.Request.Context(), jobID, afterSeq)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load logs"})
		return
	}

	lines := make([]gin.H, 0, len(logs))
	lastSeq := afterSeq
	for _, l := range logs {
		lines = append(lines, gin.H{
			"seq":        l.Seq,
			"level":      l.Level,
			"message":    l.Message,
			"created_at": l.CreatedAt,
		})
		lastSeq = l.Seq
	}
	c.JSON(http.StatusOK, gin.H{
		"job_id":   jobID,
		"logs":     lines,
		"last_seq": lastSeq,
	})
}

func (s *Server) handleSyncCancel(c *gin.Context) {
	jobID, ok := jobIDParam(c)
	if !ok {
		return
	}

	if err := s.control.CancelJob(c.Request.Context(), jobID); err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cancel job"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"job_id": jobID, "status": "cancelled"})
}

func (s *Server) handleTimeline(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	apps, err := s.apps.ListByUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load applications"})
		return
	}

	timelines := timeline.Group(apps)
	c.JSON(http.StatusOK, gin.H{
		"user_id":   userID,
		"count":     len(timelines),
		"timelines": timelines,
	})
}

// handleClearApplications wipes the user's rows so the next sync rebuilds
// from scratch.
func (s *Server) handleClearApplications(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	deleted, err := s.apps.DeleteByUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete applications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "deleted": deleted})
}
