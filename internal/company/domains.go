package company

// Curated sender-domain to company-name table. A direct hit is the highest
// confidence signal the resolver has.
var companyDomains = map[string]string{
	"google.com":     "Google",
	"alphabet.com":   "Alphabet",
	"meta.com":       "Meta",
	"fb.com":         "Meta",
	"amazon.com":     "Amazon",
	"amazon.jobs":    "Amazon",
	"apple.com":      "Apple",
	"microsoft.com":  "Microsoft",
	"netflix.com":    "Netflix",
	"stripe.com":     "Stripe",
	"airbnb.com":     "Airbnb",
	"uber.com":       "Uber",
	"lyft.com":       "Lyft",
	"salesforce.com": "Salesforce",
	"oracle.com":     "Oracle",
	"ibm.com":        "IBM",
	"intel.com":      "Intel",
	"nvidia.com":     "NVIDIA",
	"adobe.com":      "Adobe",
	"shopify.com":    "Shopify",
	"square.com":     "Square",
	"block.xyz":      "Block",
	"spotify.com":    "Spotify",
	"dropbox.com":    "Dropbox",
	"atlassian.com":  "Atlassian",
	"slack.com":      "Slack",
	"zoom.us":        "Zoom",
	"palantir.com":   "Palantir",
	"databricks.com": "Databricks",
	"snowflake.com":  "Snowflake",
	"coinbase.com":   "Coinbase",
	"robinhood.com":  "Robinhood",
	"doordash.com":   "DoorDash",
	"instacart.com":  "Instacart",
	"pinterest.com":  "Pinterest",
	"reddit.com":     "Reddit",
	"twilio.com":     "Twilio",
	"cloudflare.com": "Cloudflare",
	"datadoghq.com":  "Datadog",
	"mongodb.com":    "MongoDB",
	"elastic.co":     "Elastic",
	"gitlab.com":     "GitLab",
	"github.com":     "GitHub",
}

// ATSDomains maps applicant-tracking-system sender domains to the
// provider tag recorded on extractions. Shared with the stage-1 filter so
// the two stages can never drift apart.
var ATSDomains = map[string]string{
	"greenhouse.io":         "greenhouse",
	"greenhouse-mail.io":    "greenhouse",
	"lever.co":              "lever",
	"hire.lever.co":         "lever",
	"myworkday.com":         "workday",
	"myworkdaysite.com":     "workday",
	"ashbyhq.com":           "ashby",
	"icims.com":             "icims",
	"talent.icims.com":      "icims",
	"smartrecruiters.com":   "smartrecruiters",
	"jobvite.com":           "jobvite",
	"bamboohr.com":          "bamboohr",
	"taleo.net":             "taleo",
	"successfactors.com":    "successfactors",
	"recruitee.com":         "recruitee",
	"workablemail.com":      "workable",
	"breezy-mail.com":       "breezy",
	"applytojob.com":        "jazzhr",
	"hirebridgemail.com":    "hirebridge",
	"wd1.myworkdaysite.com": "workday",
}

// personalDomains never identify a hiring company.
var personalDomains = map[string]bool{
	"gmail.com":      true,
	"googlemail.com": true,
	"yahoo.com":      true,
	"outlook.com":    true,
	"hotmail.com":    true,
	"live.com":       true,
	"icloud.com":     true,
	"me.com":         true,
	"aol.com":        true,
	"proton.me":      true,
	"protonmail.com": true,
}

// genericPrefixes are subdomain prefixes stripped before the domain-based
// fallback title-cases what remains.
var genericPrefixes = []string{
	"careers.",
	"jobs.",
	"mail.",
	"email.",
	"hello.",
	"team.",
	"notify.",
	"notifications.",
	"no-reply.",
	"noreply.",
	"apply.",
	"talent.",
	"hr.",
	"recruiting.",
	"boards.",
	"app.",
	"us.",
	"eu.",
}

// denylist holds generic words that are never accepted as a company name,
// alone or as the whole of a candidate.
var denylist = map[string]bool{
	"hiring":        true,
	"recruiting":    true,
	"recruitment":   true,
	"talent":        true,
	"team":          true,
	"hr":            true,
	"careers":       true,
	"career":        true,
	"jobs":          true,
	"job":           true,
	"noreply":       true,
	"no-reply":      true,
	"notifications": true,
	"notification":  true,
	"support":       true,
	"info":          true,
	"admin":         true,
	"mail":          true,
	"the":           true,
	"acquisition":   true,
	"people":        true,
	"staffing":      true,
}
