package service

import (
	"context"
	"errors"
	"time"

	"github.com/prachikotadia/jobpulse-worker/internal/models"
)

// Sentinel conditions surfaced by the mail client. Reauth errors are never
// retried; a stale cursor makes the processor fall back to a full scan.
var (
	ErrReauthRequired = errors.New("mailbox reauthorization required")
	ErrStaleCursor    = errors.New("history cursor is stale")
)

// MailClient is the boundary to the mail provider. The processor owns the
// pagination loop; the client only fetches one page or one message at a time.
type MailClient interface {
	ListMessageIDs(ctx context.Context, accessToken, query, pageToken string, maxResults int64) (*MessagePage, error)
	ListHistory(ctx context.Context, accessToken, historyID, pageToken string) (*HistoryPage, error)
	FetchMessage(ctx context.Context, accessToken, messageID string) (*models.EmailMessage, error)
	CurrentHistoryID(ctx context.Context, accessToken string) (string, error)
	RefreshAccessToken(ctx context.Context, refreshToken string) (*TokenRefreshResult, error)
}

// MessagePage is one page of a full mailbox scan.
type MessagePage struct {
	MessageIDs    []string
	NextPageToken string
}

// HistoryPage is one page of an incremental change-log scan.
type HistoryPage struct {
	MessageIDs    []string
	NextPageToken string
	HistoryID     string // latest cursor observed on this page
}

type TokenRefreshResult struct {
	AccessToken  string
	ExpiresAt    time.Time
	RefreshToken string // May be same or new
}
