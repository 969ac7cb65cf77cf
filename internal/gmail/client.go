package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/prachikotadia/jobpulse-worker/internal/models"
	"github.com/prachikotadia/jobpulse-worker/internal/retry"
	"github.com/prachikotadia/jobpulse-worker/internal/service"
)

type Client struct {
	clientID     string
	clientSecret string
	retryPolicy  retry.Policy
}

func NewClient(clientID, clientSecret string) *Client {
	return &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		retryPolicy:  retry.Default(isTransient),
	}
}

// isTransient reports whether a Gmail API error is worth retrying.
// Credential and stale-cursor conditions are terminal for the call.
func isTransient(err error) bool {
	if err == nil {
		return false
	}
	if gErr, ok := err.(*googleapi.Error); ok {
		return gErr.Code == http.StatusTooManyRequests || gErr.Code >= 500
	}
	// Plain network errors are treated as transient.
	return true
}

// mapError translates provider errors into the service-level sentinels.
// 401/403 means the stored credential is expired or under-scoped.
func mapError(err error, staleOn404 bool) error {
	gErr, ok := err.(*googleapi.Error)
	if !ok {
		return err
	}
	switch {
	case gErr.Code == http.StatusUnauthorized || gErr.Code == http.StatusForbidden:
		return fmt.Errorf("%w: %v", service.ErrReauthRequired, err)
	case staleOn404 && gErr.Code == http.StatusNotFound:
		return fmt.Errorf("%w: %v", service.ErrStaleCursor, err)
	}
	return err
}

func (c *Client) newService(ctx context.Context, accessToken string) (*gmail.Service, error) {
	token := &oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}
	svc, err := gmail.NewService(ctx, option.WithTokenSource(oauth2.StaticTokenSource(token)))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return svc, nil
}

// ListMessageIDs fetches one page of message IDs for a full scan.
func (c *Client) ListMessageIDs(ctx context.Context, accessToken, query, pageToken string, maxResults int64) (*service.MessagePage, error) {
	gmailService, err := c.newService(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	var listResp *gmail.ListMessagesResponse
	err = c.retryPolicy.Do(ctx, func() error {
		listCall := gmailService.Users.Messages.List("me").Q(query).MaxResults(maxResults)
		if pageToken != "" {
			listCall = listCall.PageToken(pageToken)
		}
		listResp, err = listCall.Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, mapError(err, false)
	}

	messageIDs := make([]string, 0, len(listResp.Messages))
	for _, msg := range listResp.Messages {
		messageIDs = append(messageIDs, msg.Id)
	}

	return &service.MessagePage{
		MessageIDs:    messageIDs,
		NextPageToken: listResp.NextPageToken,
	}, nil
}

// ListHistory fetches one page of the change log since the given cursor.
// A rejected cursor surfaces as service.ErrStaleCursor so the caller can
// fall back to a full scan.
func (c *Client) ListHistory(ctx context.Context, accessToken, historyID, pageToken string) (*service.HistoryPage, error) {
	gmailService, err := c.newService(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	startID, err := strconv.ParseUint(historyID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed history id %q", service.ErrStaleCursor, historyID)
	}

	var histResp *gmail.ListHistoryResponse
	err = c.retryPolicy.Do(ctx, func() error {
		histCall := gmailService.Users.History.List("me").
			StartHistoryId(startID).
			HistoryTypes("messageAdded")
		if pageToken != "" {
			histCall = histCall.PageToken(pageToken)
		}
		histResp, err = histCall.Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, mapError(err, true)
	}

	page := &service.HistoryPage{
		NextPageToken: histResp.NextPageToken,
		HistoryID:     strconv.FormatUint(histResp.HistoryId, 10),
	}
	seen := make(map[string]bool)
	for _, hist := range histResp.History {
		for _, added := range hist.MessagesAdded {
			if added.Message == nil || seen[added.Message.Id] {
				continue
			}
			seen[added.Message.Id] = true
			page.MessageIDs = append(page.MessageIDs, added.Message.Id)
		}
	}

	return page, nil
}

// FetchMessage fetches and parses a single full message.
func (c *Client) FetchMessage(ctx context.Context, accessToken, messageID string) (*models.EmailMessage, error) {
	gmailService, err := c.newService(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	var fullMsg *gmail.Message
	err = c.retryPolicy.Do(ctx, func() error {
		fullMsg, err = gmailService.Users.Messages.Get("me", messageID).Format("full").Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, mapError(err, false)
	}

	emailMsg := c.parseMessage(fullMsg)
	return &emailMsg, nil
}

// CurrentHistoryID returns the mailbox's latest history cursor, stored
// after a full scan so the next sync can be incremental.
func (c *Client) CurrentHistoryID(ctx context.Context, accessToken string) (string, error) {
	gmailService, err := c.newService(ctx, accessToken)
	if err != nil {
		return "", err
	}

	var profile *gmail.Profile
	err = c.retryPolicy.Do(ctx, func() error {
		profile, err = gmailService.Users.GetProfile("me").Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", mapError(err, false)
	}

	return strconv.FormatUint(profile.HistoryId, 10), nil
}

// parseMessage parses a Gmail message into the pipeline's EmailMessage form
func (c *Client) parseMessage(msg *gmail.Message) models.EmailMessage {
	emailMsg := models.EmailMessage{
		ID:         msg.Id,
		ThreadID:   msg.ThreadId,
		Snippet:    msg.Snippet,
		Labels:     msg.LabelIds,
		RawHeaders: make(map[string]string),
	}

	// Parse internal date (milliseconds since epoch)
	if msg.InternalDate > 0 {
		emailMsg.InternalDate = time.UnixMilli(msg.InternalDate)
	}

	if msg.Payload != nil {
		for _, header := range msg.Payload.Headers {
			emailMsg.RawHeaders[header.Name] = header.Value

			switch header.Name {
			case "Subject":
				emailMsg.Subject = header.Value
			case "From":
				emailMsg.From = header.Value
			case "Reply-To":
				emailMsg.ReplyTo = header.Value
			case "Date":
				parsedDate, err := parseEmailDate(header.Value)
				if err != nil {
					log.Printf("Warning: failed to parse date '%s': %v", header.Value, err)
				} else {
					emailMsg.Date = parsedDate
				}
			}
		}

		bodyText, bodyHTML := c.extractBodies(msg.Payload)
		emailMsg.BodyText = bodyText
		emailMsg.BodyHTML = bodyHTML
	}

	if emailMsg.Date.IsZero() {
		emailMsg.Date = emailMsg.InternalDate
	}

	return emailMsg
}

// extractBodies extracts both text and HTML bodies from message payload
func (c *Client) extractBodies(payload *gmail.MessagePart) (string, string) {
	var textPlain, textHTML string

	// Check if body is in the main payload
	if payload.Body != nil && payload.Body.Data != "" {
		decoded, err := base64.URLEncoding.DecodeString(payload.Body.Data)
		if err == nil {
			switch payload.MimeType {
			case "text/plain":
				textPlain = string(decoded)
			case "text/html":
				textHTML = string(decoded)
			}
		}
	}

	// Recursively extract from parts
	c.extractBodiesFromParts(payload.Parts, &textPlain, &textHTML)

	return textPlain, textHTML
}

// extractBodiesFromParts recursively extracts text and HTML from message parts
func (c *Client) extractBodiesFromParts(parts []*gmail.MessagePart, textPlain, textHTML *string) {
	for _, part := range parts {
		if part.Body != nil && part.Body.Data != "" {
			decoded, err := base64.URLEncoding.DecodeString(part.Body.Data)
			if err == nil {
				if part.MimeType == "text/plain" && *textPlain == "" {
					*textPlain = string(decoded)
				} else if part.MimeType == "text/html" && *textHTML == "" {
					*textHTML = string(decoded)
				}
			}
		}

		// Recursively check nested parts
		if len(part.Parts) > 0 {
			c.extractBodiesFromParts(part.Parts, textPlain, textHTML)
		}
	}
}

// RefreshAccessToken refreshes the OAuth2 access token
func (c *Client) RefreshAccessToken(ctx context.Context, refreshToken string) (*service.TokenRefreshResult, error) {
	config := &oauth2.Config{
		ClientID:     c.clientID,
		ClientSecret: c.clientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL: "https://oauth2.googleapis.com/token",
		},
	}

	token := &oauth2.Token{
		RefreshToken: refreshToken,
	}

	tokenSource := config.TokenSource(ctx, token)
	newToken, err := tokenSource.Token()
	if err != nil {
		// A dead refresh token means the user must reconnect the mailbox.
		return nil, fmt.Errorf("%w: %v", service.ErrReauthRequired, err)
	}

	result := &service.TokenRefreshResult{
		AccessToken: newToken.AccessToken,
		ExpiresAt:   newToken.Expiry,
	}

	// Check if refresh token was rotated
	if newToken.RefreshToken != "" && newToken.RefreshToken != refreshToken {
		result.RefreshToken = newToken.RefreshToken
	} else {
		result.RefreshToken = refreshToken // Keep the same refresh token
	}

	log.Printf("Token refreshed successfully, expires at: %s", result.ExpiresAt)

	return result, nil
}

// parseEmailDate parses various email date formats
func parseEmailDate(dateStr string) (time.Time, error) {
	// Common email date formats
	formats := []string{
		time.RFC1123Z,
		time.RFC1123,
		"Mon, 2 Jan 2006 15:04:05 -0700",
		"Mon, 2 Jan 2006 15:04:05 MST",
		"2 Jan 2006 15:04:05 -0700",
		time.RFC3339,
	}

	// Clean up the date string
	dateStr = strings.TrimSpace(dateStr)

	// Remove timezone name in parentheses (e.g., "(UTC)", "(PST)")
	// Gmail sometimes adds this after the numeric offset
	if idx := strings.Index(dateStr, " ("); idx != -1 {
		dateStr = dateStr[:idx]
	}

	for _, format := range formats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse date: %s", dateStr)
}
