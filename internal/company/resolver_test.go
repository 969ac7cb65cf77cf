package company

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prachikotadia/jobpulse-worker/internal/models"
)

func TestResolve_DirectDomainMapping(t *testing.T) {
	r := NewResolver()
	msg := &models.EmailMessage{From: "Google Careers <jobs@google.com>"}

	// Pure function of message content: every invocation is identical.
	for i := 0; i < 3; i++ {
		got := r.Resolve(msg)
		assert.Equal(t, "Google", got.Name)
		assert.GreaterOrEqual(t, got.Confidence, 95)
		assert.Equal(t, SourceDomain, got.Source)
	}
}

func TestResolve_SubdomainOfCuratedDomain(t *testing.T) {
	r := NewResolver()
	msg := &models.EmailMessage{From: "noreply@careers.google.com"}

	got := r.Resolve(msg)
	assert.Equal(t, "Google", got.Name)
	assert.Equal(t, SourceDomain, got.Source)
}

func TestResolve_ATSViaDisplayName(t *testing.T) {
	r := NewResolver()
	msg := &models.EmailMessage{From: "Initech via Greenhouse <no-reply@greenhouse.io>"}

	got := r.Resolve(msg)
	assert.Equal(t, "Initech", got.Name)
	assert.Equal(t, 80, got.Confidence)
	assert.Equal(t, SourceATSBranding, got.Source)
	assert.Equal(t, "greenhouse", got.ATSProvider)
}

func TestResolve_ATSBodySlug(t *testing.T) {
	r := NewResolver()
	msg := &models.EmailMessage{
		From:     "no-reply@ashbyhq.com",
		BodyText: "View your application: https://jobs.ashbyhq.com/acme-corp/12345",
	}

	got := r.Resolve(msg)
	assert.Equal(t, "Acme Corp", got.Name)
	assert.Equal(t, SourceATSBranding, got.Source)
	assert.Equal(t, "ashby", got.ATSProvider)
}

func TestResolve_ATSWithoutSlugKeepsProvider(t *testing.T) {
	r := NewResolver()
	msg := &models.EmailMessage{From: "no-reply@greenhouse.io"}

	got := r.Resolve(msg)
	assert.Equal(t, models.CompanyUnknown, got.Name)
	assert.Zero(t, got.Confidence)
	assert.Equal(t, "greenhouse", got.ATSProvider)
}

func TestResolve_SignatureMention(t *testing.T) {
	r := NewResolver()
	msg := &models.EmailMessage{
		From:     "recruiter@smallco.example",
		BodyText: "Thank you for your interest in the position at Initech. We will be in touch.\n\nBest,\nThe Initech Team",
	}

	got := r.Resolve(msg)
	assert.Equal(t, "Initech", got.Name)
	assert.Equal(t, SourceSignature, got.Source)
	assert.GreaterOrEqual(t, got.Confidence, DefaultMinConfidence)
}

func TestResolve_DenylistEnforcement(t *testing.T) {
	r := NewResolver()
	// A generic display name with no other signal must never be
	// accepted as a company.
	msg := &models.EmailMessage{From: `Hiring Team <hiring@gmail.com>`}

	got := r.Resolve(msg)
	require.Equal(t, models.CompanyUnknown, got.Name)
	assert.Zero(t, got.Confidence)
	assert.Equal(t, SourceUnknown, got.Source)
}

func TestResolve_LowConfidenceCandidatesRecorded(t *testing.T) {
	r := NewResolver()
	msg := &models.EmailMessage{From: "Vandelay Recruiting <no-reply@vandelay-mail.example>"}

	got := r.Resolve(msg)

	// Display-name and domain-fallback candidates both score below the
	// strict cutoff: the result is Unknown but the audit trail survives.
	require.Equal(t, models.CompanyUnknown, got.Name)
	require.Len(t, got.Candidates, 2)
	assert.Equal(t, "Vandelay", got.Candidates[0].Name)
	assert.Equal(t, SourceSenderName, got.Candidates[0].Source)
	assert.Equal(t, SourceDomain, got.Candidates[1].Source)
}

func TestResolve_LenientThresholdUsesFallback(t *testing.T) {
	r := &Resolver{MinConfidence: 40}
	msg := &models.EmailMessage{From: "noreply@careers.initech.example"}

	got := r.Resolve(msg)
	assert.Equal(t, "Initech", got.Name)
	assert.Equal(t, 40, got.Confidence)
}

func TestFallbackFromDomain(t *testing.T) {
	tests := []struct {
		domain string
		want   string
	}{
		{"careers.initech.example", "Initech"},
		{"jobs.mail.acme-corp.io", "Acme Corp"},
		{"gmail.com", ""},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, fallbackFromDomain(tt.domain), "domain %q", tt.domain)
	}
}

func TestCleanCandidate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hiring Team", ""},
		{"Acme Recruiting", "Acme"},
		{"  Initech.  ", "Initech"},
		{"HR", ""},
		{"X", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, cleanCandidate(tt.in), "input %q", tt.in)
	}
}
