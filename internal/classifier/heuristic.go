package classifier

import (
	"fmt"
	"strings"

	"github.com/prachikotadia/jobpulse-worker/internal/company"
	"github.com/prachikotadia/jobpulse-worker/internal/models"
)

// Stage-1 decision outcomes.
type Decision int

const (
	DecisionReject Decision = iota
	DecisionLowConfidence
	DecisionAccept
)

// Stage-1 scoring weights and thresholds. The filter is tuned for recall:
// anything with plausible job-related intent passes through to stage 2.
const (
	subjectPhraseWeight = 3
	snippetPhraseWeight = 2
	atsDomainBonus      = 4
	bulkDomainPenalty   = -5
	bulkHeaderPenalty   = -3
	comboBonus          = 2

	acceptThreshold = 4
	rejectThreshold = -3
)

// Heuristic is the stage-1 high-recall filter.
type Heuristic struct{}

func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

// Score computes the signed stage-1 score and the matched reasons.
func (h *Heuristic) Score(msg *models.EmailMessage) (int, []string) {
	score := 0
	var reasons []string

	subject := strings.ToLower(msg.Subject)
	snippet := strings.ToLower(msg.Snippet)

	subjectHit := false
	snippetHit := false
	for _, phrase := range positivePhrases {
		if strings.Contains(subject, phrase) {
			score += subjectPhraseWeight
			subjectHit = true
			reasons = append(reasons, fmt.Sprintf("subject matched %q", phrase))
		}
		if strings.Contains(snippet, phrase) {
			score += snippetPhraseWeight
			snippetHit = true
			reasons = append(reasons, fmt.Sprintf("snippet matched %q", phrase))
		}
	}
	if subjectHit && snippetHit {
		score += comboBonus
		reasons = append(reasons, "subject and snippet both positive")
	}

	domain := msg.SenderDomain()
	if provider, ok := company.DetectATS(domain); ok {
		score += atsDomainBonus
		reasons = append(reasons, fmt.Sprintf("ATS sender domain (%s)", provider))
	}
	for _, bulk := range bulkSenderDomains {
		if domain == bulk || strings.HasSuffix(domain, "."+bulk) {
			score += bulkDomainPenalty
			reasons = append(reasons, fmt.Sprintf("bulk sender domain %q", bulk))
			break
		}
	}
	if msg.IsBulk() {
		score += bulkHeaderPenalty
		reasons = append(reasons, "bulk mail header")
	}

	return score, reasons
}

// Decide maps a stage-1 score onto accept / reject / low-confidence.
// Low-confidence messages are still handed to stage 2 for adjudication.
func (h *Heuristic) Decide(score int) Decision {
	switch {
	case score >= acceptThreshold:
		return DecisionAccept
	case score <= rejectThreshold:
		return DecisionReject
	default:
		return DecisionLowConfidence
	}
}
