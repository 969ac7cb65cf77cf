// Package classifier implements the two-stage email filter: a cheap
// high-recall heuristic pass and a high-precision keyword classifier that
// assigns exactly one lifecycle category per message.
package classifier

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/prachikotadia/jobpulse-worker/internal/models"
)

const (
	// MinConfidence is the stage-2 gate: anything below is excluded.
	// The pipeline is deliberately biased toward exclusion over false
	// inclusion.
	MinConfidence = 0.5

	subjectWeight    = 2.0
	bodyWeight       = 1.0
	multiSignalBoost = 1.15
)

// Result is the stage-2 output, consumed immediately by the merge engine.
type Result struct {
	Category    models.ApplicationStatus
	Confidence  float64
	Signals     []string
	Explanation string
}

// Classifier is the stage-2 high-precision pass. It is a pure function of
// message content; the rule tables are read-only after startup.
type Classifier struct{}

func New() *Classifier {
	return &Classifier{}
}

// Classify assigns exactly one lifecycle category to a message, or the
// excluded sentinel.
func (c *Classifier) Classify(msg *models.EmailMessage) Result {
	subject := strings.ToLower(msg.Subject)
	body := strings.ToLower(msg.Body())
	sender := strings.ToLower(msg.From)

	// Hard exclusion wins over any positive signal found elsewhere.
	if reason, excluded := c.excluded(subject, body, sender, msg); excluded {
		return Result{
			Category:    models.StatusExcluded,
			Confidence:  0,
			Signals:     []string{reason},
			Explanation: fmt.Sprintf("Excluded: %s", reason),
		}
	}

	best := Result{Category: models.StatusExcluded}
	for _, rule := range categoryRules {
		score, signals := scoreCategory(rule, subject, body)
		if score > best.Confidence {
			best = Result{Category: rule.category, Confidence: score, Signals: signals}
		}
	}

	// Confidence gate, plus the explicit application-intent requirement.
	if best.Confidence < MinConfidence || !hasIntentKeyword(subject, body) {
		return Result{
			Category:    models.StatusExcluded,
			Confidence:  0,
			Signals:     best.Signals,
			Explanation: fmt.Sprintf("Excluded: best score %.2f below threshold or no application-intent keyword", best.Confidence),
		}
	}

	best.Explanation = fmt.Sprintf("Classified as %s (confidence %.2f): %s",
		best.Category, best.Confidence, strings.Join(best.Signals, "; "))
	return best
}

// excluded applies the hard-exclusion patterns and the bulk-mail signal.
func (c *Classifier) excluded(subject, body, sender string, msg *models.EmailMessage) (string, bool) {
	for _, pattern := range exclusionPatterns {
		if strings.Contains(subject, pattern) || strings.Contains(body, pattern) {
			return fmt.Sprintf("matched exclusion pattern %q", pattern), true
		}
	}
	for _, pattern := range exclusionSenders {
		if strings.Contains(sender, pattern) {
			return fmt.Sprintf("sender matched exclusion %q", pattern), true
		}
	}
	if msg.IsBulk() {
		return "bulk mail signal", true
	}
	return "", false
}

// scoreCategory accumulates weighted keyword matches (subject counts double),
// normalizes by the category's maximum attainable score, applies the
// multi-signal boost and the fixed priority boost, and clamps to 1.0.
func scoreCategory(rule categoryRule, subject, body string) (float64, []string) {
	raw := 0.0
	var signals []string
	for _, kw := range rule.keywords {
		if strings.Contains(subject, kw.phrase) {
			raw += kw.weight * subjectWeight
			signals = append(signals, fmt.Sprintf("subject: %q", kw.phrase))
		} else if strings.Contains(body, kw.phrase) {
			raw += kw.weight * bodyWeight
			signals = append(signals, fmt.Sprintf("body: %q", kw.phrase))
		}
	}
	if raw == 0 {
		return 0, nil
	}

	score := raw / rule.maxScore
	if len(signals) > 1 {
		score *= multiSignalBoost
	}
	score += rule.boost
	if score > 1.0 {
		score = 1.0
	}
	return score, signals
}

func hasIntentKeyword(subject, body string) bool {
	for _, kw := range intentKeywords {
		if strings.Contains(subject, kw) || strings.Contains(body, kw) {
			return true
		}
	}
	return false
}

// rolePatterns pull a role string out of common subject shapes, e.g.
// "Your application for Senior Engineer at Acme".
var rolePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)application (?:for|to) (?:the )?(.+?)(?: position| role| at |\z|[-|(])`),
	regexp.MustCompile(`(?i)for the (.+?) (?:position|role|opening)`),
	regexp.MustCompile(`(?i)interview (?:for|:) (?:the )?(.+?)(?: position| role| at |\z|[-|(])`),
	regexp.MustCompile(`(?i)re: (.+?) (?:position|role|opening)`),
}

// ExtractRole returns a best-effort role string from the subject, empty
// when no pattern matches.
func ExtractRole(subject string) string {
	for _, re := range rolePatterns {
		if m := re.FindStringSubmatch(subject); len(m) > 1 {
			role := strings.TrimSpace(m[1])
			role = strings.Trim(role, `"'.,`)
			if role != "" && len(role) <= 80 {
				return role
			}
		}
	}
	return ""
}
