package models

import (
	"strings"
	"time"
)

// EmailMessage is the parsed form of one Gmail message, the input to the
// filter/classifier/resolver pipeline. Classification is a pure function
// of this struct.
type EmailMessage struct {
	ID           string
	ThreadID     string
	Subject      string
	From         string
	ReplyTo      string
	Date         time.Time
	InternalDate time.Time
	BodyText     string
	BodyHTML     string
	Snippet      string
	Labels       []string
	RawHeaders   map[string]string
}

// IsBulk reports whether the message carries a bulk-mail header signal
// (Precedence: bulk/list or a List-Unsubscribe header).
func (m *EmailMessage) IsBulk() bool {
	if _, ok := m.RawHeaders["List-Unsubscribe"]; ok {
		return true
	}
	prec := strings.ToLower(m.RawHeaders["Precedence"])
	return prec == "bulk" || prec == "list"
}

// Body returns the plain-text body, falling back to HTML when no
// text part was present.
func (m *EmailMessage) Body() string {
	if m.BodyText != "" {
		return m.BodyText
	}
	return m.BodyHTML
}

// SenderDomain extracts the lowercased domain of the From address
// (or ReplyTo when From has none).
func (m *EmailMessage) SenderDomain() string {
	for _, addr := range []string{m.From, m.ReplyTo} {
		if d := domainOf(addr); d != "" {
			return d
		}
	}
	return ""
}

func domainOf(addr string) string {
	at := strings.LastIndex(addr, "@")
	if at < 0 {
		return ""
	}
	domain := addr[at+1:]
	if end := strings.IndexAny(domain, "> \t"); end >= 0 {
		domain = domain[:end]
	}
	return strings.ToLower(strings.TrimSpace(domain))
}

// SenderDisplayName returns the display-name part of the From header,
// e.g. `Acme Recruiting <no-reply@acme.com>` yields "Acme Recruiting".
func (m *EmailMessage) SenderDisplayName() string {
	from := m.From
	lt := strings.Index(from, "<")
	if lt < 0 {
		return ""
	}
	name := strings.TrimSpace(from[:lt])
	return strings.Trim(name, `" `)
}
