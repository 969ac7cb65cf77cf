package classifier

import "github.com/prachikotadia/jobpulse-worker/internal/models"

// Rule tables for both filter stages. This is the single source of truth:
// variants are edited here as data, never forked into separate code paths.
// Bump RulesVersion when the tables change so audit rows stay comparable.
const RulesVersion = "2024-07"

// bulkSenderDomains are job boards and newsletter platforms whose mail is
// almost never a lifecycle event for a specific application.
var bulkSenderDomains = []string{
	"linkedin.com",
	"indeed.com",
	"glassdoor.com",
	"ziprecruiter.com",
	"monster.com",
	"dice.com",
	"wellfound.com",
	"substack.com",
	"medium.com",
	"mailchimp.com",
	"sendgrid.net",
}

// positivePhrases feed the stage-1 recall filter. Subject hits weigh more
// than snippet hits.
var positivePhrases = []string{
	"your application",
	"thank you for applying",
	"application received",
	"application to",
	"interview",
	"phone screen",
	"next steps",
	"hiring team",
	"recruiter",
	"recruiting",
	"offer letter",
	"assessment",
	"coding challenge",
	"candidacy",
	"position",
	"talent acquisition",
}

// exclusionPatterns are checked against subject, body, and sender before
// any positive scoring. A hit is final: exclusion always wins.
var exclusionPatterns = []string{
	"job alert",
	"jobs for you",
	"recommended jobs",
	"new jobs posted",
	"top job picks",
	"job recommendations",
	"daily digest",
	"weekly digest",
	"newsletter",
	"career fair",
	"webinar",
	"who's viewed your profile",
	"profile views",
	"premium subscription",
	"boost your profile",
	"hiring in your area",
	"open enrollment",
	"benefits enrollment",
	"payroll",
	"timesheet",
}

// exclusionSenders are sender substrings that mark list/alert traffic.
var exclusionSenders = []string{
	"jobalerts",
	"job-alerts",
	"jobs-noreply",
	"alerts@",
	"digest@",
	"marketing@",
	"news@",
	"newsletter@",
}

// intentKeywords: a message with none of these anywhere in its text is
// never classified, whatever else matched.
var intentKeywords = []string{
	"application",
	"applied",
	"apply",
	"interview",
	"offer",
	"candidate",
	"candidacy",
	"position",
	"recruiter",
	"recruiting",
	"hiring",
}

// categoryRule is one lifecycle category's scoring table. MaxScore is the
// normalization denominator: the highest raw score a single realistic
// message is expected to reach for this category.
type categoryRule struct {
	category models.ApplicationStatus
	keywords []weightedPhrase
	maxScore float64
	boost    float64 // fixed priority boost, reflects real-world terminality
}

type weightedPhrase struct {
	phrase string
	weight float64
}

// categoryRules are evaluated in this order; with strictly-greater
// comparison the order itself is the deterministic tie-break:
// rejected > offer > interview > applied > uncertain.
var categoryRules = []categoryRule{
	{
		category: models.StatusRejected,
		maxScore: 2.4,
		boost:    0.10,
		keywords: []weightedPhrase{
			{"unfortunately", 0.8},
			{"we have decided to move forward with other candidates", 1.0},
			{"not to move forward", 1.0},
			{"we will not be moving forward", 1.0},
			{"decided not to proceed", 1.0},
			{"other candidates", 0.6},
			{"not selected", 0.9},
			{"wish you the best", 0.4},
			{"future opportunities", 0.4},
			{"keep your resume on file", 0.6},
		},
	},
	{
		category: models.StatusOffer,
		maxScore: 2.4,
		boost:    0.08,
		keywords: []weightedPhrase{
			{"offer letter", 1.0},
			{"pleased to offer", 1.0},
			{"excited to offer", 1.0},
			{"extend an offer", 1.0},
			{"congratulations", 0.7},
			{"compensation package", 0.7},
			{"start date", 0.5},
			{"background check", 0.4},
			{"onboarding", 0.4},
		},
	},
	{
		category: models.StatusInterview,
		maxScore: 2.4,
		boost:    0.05,
		keywords: []weightedPhrase{
			{"interview", 0.9},
			{"schedule a call", 0.8},
			{"phone screen", 1.0},
			{"technical screen", 1.0},
			{"availability", 0.5},
			{"coding challenge", 0.9},
			{"take-home assignment", 0.9},
			{"online assessment", 0.9},
			{"meet the team", 0.6},
			{"next round", 0.8},
		},
	},
	{
		category: models.StatusApplied,
		maxScore: 2.4,
		boost:    0.02,
		keywords: []weightedPhrase{
			{"thank you for applying", 1.0},
			{"application received", 1.0},
			{"we have received your application", 1.0},
			{"application has been submitted", 1.0},
			{"successfully submitted", 0.9},
			{"your application to", 0.8},
			{"application confirmation", 0.8},
			{"under review", 0.6},
		},
	},
	{
		category: models.StatusUncertain,
		maxScore: 2.4,
		boost:    0.0,
		keywords: []weightedPhrase{
			{"your application", 0.6},
			{"hiring team", 0.5},
			{"talent acquisition", 0.5},
			{"recruiter", 0.5},
			{"regarding your candidacy", 0.7},
			{"update on your application", 0.8},
		},
	},
}
