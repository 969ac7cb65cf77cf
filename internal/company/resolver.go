// Package company derives a normalized hiring-company name for a message
// through a fixed-priority pipeline of extraction strategies, each tagged
// with a confidence score and a source for auditability.
package company

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/prachikotadia/jobpulse-worker/internal/models"
)

// Extraction source tags.
const (
	SourceDomain      = "DOMAIN"
	SourceATSBranding = "ATS_BRANDING"
	SourceSignature   = "SIGNATURE"
	SourceSenderName  = "SENDER_NAME"
	SourceUnknown     = "UNKNOWN"
)

// DefaultMinConfidence is the strict cutoff: any candidate scoring below
// it is recorded but resolves to Unknown.
const DefaultMinConfidence = 70

// Candidate is a considered-but-not-returned extraction, kept for tuning.
type Candidate struct {
	Name       string `json:"name"`
	Confidence int    `json:"confidence"`
	Source     string `json:"source"`
}

// Extraction is the resolver output.
type Extraction struct {
	Name        string
	Confidence  int
	Source      string
	ATSProvider string
	Candidates  []Candidate
}

// Resolver resolves company names. Stateless apart from read-only tables;
// the same message always yields the same result.
type Resolver struct {
	MinConfidence int
}

func NewResolver() *Resolver {
	return &Resolver{MinConfidence: DefaultMinConfidence}
}

// DetectATS resolves a sender domain against the ATS table, allowing
// subdomain matches (e.g. us.greenhouse-mail.io).
func DetectATS(domain string) (string, bool) {
	if provider, ok := ATSDomains[domain]; ok {
		return provider, true
	}
	for ats, provider := range ATSDomains {
		if strings.HasSuffix(domain, "."+ats) {
			return provider, true
		}
	}
	return "", false
}

// Resolve runs the strategies in fixed priority order, returning early on
// a confident hit. Results under MinConfidence fall through to Unknown
// with the candidate recorded.
func (r *Resolver) Resolve(msg *models.EmailMessage) Extraction {
	var candidates []Candidate
	domain := msg.SenderDomain()

	// 1. Direct domain mapping.
	if name, ok := lookupCompanyDomain(domain); ok {
		return Extraction{Name: name, Confidence: 95, Source: SourceDomain, Candidates: candidates}
	}

	// 2. ATS branding recovery.
	if provider, ok := DetectATS(domain); ok {
		if name := r.recoverFromATS(msg, provider); name != "" {
			return Extraction{Name: name, Confidence: 80, Source: SourceATSBranding, ATSProvider: provider, Candidates: candidates}
		}
		// ATS detected but the company is not recoverable: keep the
		// provider on the Unknown result.
		return Extraction{Name: models.CompanyUnknown, Confidence: 0, Source: SourceUnknown, ATSProvider: provider, Candidates: candidates}
	}

	// 3. Signature / explicit body mention.
	if name, conf := extractFromBody(msg.Body()); name != "" {
		if conf >= r.MinConfidence {
			return Extraction{Name: name, Confidence: conf, Source: SourceSignature, Candidates: candidates}
		}
		candidates = append(candidates, Candidate{Name: name, Confidence: conf, Source: SourceSignature})
	}

	// 4. Sender display-name heuristics.
	if name, conf := extractFromDisplayName(msg.SenderDisplayName()); name != "" {
		if conf >= r.MinConfidence {
			return Extraction{Name: name, Confidence: conf, Source: SourceSenderName, Candidates: candidates}
		}
		candidates = append(candidates, Candidate{Name: name, Confidence: conf, Source: SourceSenderName})
	}

	// 5. Domain-based fallback.
	if name := fallbackFromDomain(domain); name != "" {
		conf := 40
		if conf >= r.MinConfidence {
			return Extraction{Name: name, Confidence: conf, Source: SourceDomain, Candidates: candidates}
		}
		candidates = append(candidates, Candidate{Name: name, Confidence: conf, Source: SourceDomain})
	}

	// 6. Default.
	return Extraction{Name: models.CompanyUnknown, Confidence: 0, Source: SourceUnknown, Candidates: candidates}
}

func lookupCompanyDomain(domain string) (string, bool) {
	if name, ok := companyDomains[domain]; ok {
		return name, true
	}
	// careers.google.com resolves through its registrable parent.
	for parent, name := range companyDomains {
		if strings.HasSuffix(domain, "."+parent) {
			return name, true
		}
	}
	return "", false
}

// atsSlugPatterns recover a company slug from job-board URLs in the body.
var atsSlugPatterns = map[string][]*regexp.Regexp{
	"greenhouse": {
		regexp.MustCompile(`greenhouse\.io/(?:embed/job_app\?for=)?([a-z0-9-]{2,40})`),
	},
	"lever": {
		regexp.MustCompile(`jobs\.lever\.co/([a-z0-9-]{2,40})`),
	},
	"ashby": {
		regexp.MustCompile(`jobs\.ashbyhq\.com/([a-z0-9-]{2,40})`),
	},
	"workday": {
		regexp.MustCompile(`([a-z0-9-]{2,40})\.(?:wd\d+\.)?myworkdayjobs\.com`),
		regexp.MustCompile(`([a-z0-9-]{2,40})\.myworkdaysite\.com`),
	},
	"smartrecruiters": {
		regexp.MustCompile(`smartrecruiters\.com/([A-Za-z0-9]{2,40})`),
	},
}

// viaPattern matches "Acme via Greenhouse" style display names.
var viaPattern = regexp.MustCompile(`^(.{2,60}?)\s+via\s+`)

// recoverFromATS tries, in order: the "Company via ATS" display-name
// pattern, a URL slug in the body, and the unsubscribe-link path.
func (r *Resolver) recoverFromATS(msg *models.EmailMessage, provider string) string {
	if m := viaPattern.FindStringSubmatch(msg.SenderDisplayName()); len(m) > 1 {
		if name := cleanCandidate(m[1]); name != "" {
			return name
		}
	}

	body := strings.ToLower(msg.Body())
	for _, re := range atsSlugPatterns[provider] {
		if m := re.FindStringSubmatch(body); len(m) > 1 {
			if name := cleanCandidate(titleCaseSlug(m[1])); name != "" {
				return name
			}
		}
	}

	if unsub, ok := msg.RawHeaders["List-Unsubscribe"]; ok {
		if name := slugFromUnsubscribe(unsub); name != "" {
			return name
		}
	}

	return ""
}

// slugFromUnsubscribe pulls the first meaningful path segment out of an
// unsubscribe URL, e.g. <https://hire.lever.co/acme/unsubscribe>.
var unsubPathPattern = regexp.MustCompile(`https?://[^/>\s]+/([a-z0-9-]{2,40})`)

func slugFromUnsubscribe(header string) string {
	m := unsubPathPattern.FindStringSubmatch(strings.ToLower(header))
	if len(m) < 2 {
		return ""
	}
	return cleanCandidate(titleCaseSlug(m[1]))
}

// Signature patterns scanned over the head and tail of the body. Each
// carries its own confidence.
var signaturePatterns = []struct {
	re   *regexp.Regexp
	conf int
}{
	{regexp.MustCompile(`(?:^|\s)[Tt]he ([A-Z][\w&.-]*(?: [A-Z][\w&.-]*){0,2}) (?:[Tt]eam|[Rr]ecruiting [Tt]eam|[Hh]iring [Tt]eam|HR [Tt]eam)`), 85},
	{regexp.MustCompile(`([A-Z][\w&.-]*(?: [A-Z][\w&.-]*){0,2}) (?:[Rr]ecruiting|[Tt]alent [Aa]cquisition|HR) [Tt]eam`), 80},
	{regexp.MustCompile(`(?:position|role|opportunity) (?:at|with) ([A-Z][\w&.-]*(?: [A-Z][\w&.-]*){0,2})`), 75},
	{regexp.MustCompile(`(?:at|from|with) ([A-Z][\w&.-]*(?: [A-Z][\w&.-]*){0,2})[.,!\n]`), 60},
}

const (
	bodyHeadLen = 1000
	bodyTailLen = 500
)

// extractFromBody scans the first ~1000 and last ~500 characters of the
// body for explicit company mentions.
func extractFromBody(body string) (string, int) {
	if body == "" {
		return "", 0
	}
	region := body
	if len(body) > bodyHeadLen {
		region = body[:bodyHeadLen]
		tailStart := len(body) - bodyTailLen
		if tailStart > bodyHeadLen {
			region += "\n" + body[tailStart:]
		}
	}

	for _, sp := range signaturePatterns {
		if m := sp.re.FindStringSubmatch(region); len(m) > 1 {
			if name := cleanCandidate(m[1]); name != "" {
				return name, sp.conf
			}
		}
	}
	return "", 0
}

var parenPattern = regexp.MustCompile(`\(([^)]{2,40})\)`)

// extractFromDisplayName applies the parenthetical and plain display-name
// heuristics, filtered against the generic-word denylist.
func extractFromDisplayName(display string) (string, int) {
	if display == "" {
		return "", 0
	}

	if m := parenPattern.FindStringSubmatch(display); len(m) > 1 {
		if name := cleanCandidate(m[1]); name != "" {
			return name, 70
		}
	}

	if name := cleanCandidate(display); name != "" {
		return name, 60
	}
	return "", 0
}

// fallbackFromDomain strips personal domains and generic subdomain
// prefixes, then title-cases the remainder.
func fallbackFromDomain(domain string) string {
	if domain == "" || personalDomains[domain] {
		return ""
	}

	stripped := domain
	for changed := true; changed; {
		changed = false
		for _, prefix := range genericPrefixes {
			if strings.HasPrefix(stripped, prefix) {
				stripped = strings.TrimPrefix(stripped, prefix)
				changed = true
			}
		}
	}

	if dot := strings.Index(stripped, "."); dot > 0 {
		stripped = stripped[:dot]
	}
	return cleanCandidate(titleCaseSlug(stripped))
}

// cleanCandidate strips denylisted generic words from a candidate and
// rejects anything that has nothing left. Denylisted words are never
// accepted as a company name.
func cleanCandidate(raw string) string {
	raw = strings.TrimSpace(strings.Trim(raw, `"'.,`))
	if raw == "" {
		return ""
	}

	words := strings.Fields(raw)
	kept := make([]string, 0, len(words))
	for _, w := range words {
		if denylist[strings.ToLower(w)] {
			continue
		}
		kept = append(kept, w)
	}
	if len(kept) == 0 {
		return ""
	}
	name := strings.Join(kept, " ")
	if len(name) < 2 || len(name) > 60 {
		return ""
	}
	return name
}

// titleCaseSlug turns "acme-corp" into "Acme Corp".
func titleCaseSlug(slug string) string {
	parts := strings.FieldsFunc(slug, func(r rune) bool { return r == '-' || r == '_' })
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}

// String implements fmt.Stringer for log lines.
func (e Extraction) String() string {
	return fmt.Sprintf("%s (%d, %s)", e.Name, e.Confidence, e.Source)
}
