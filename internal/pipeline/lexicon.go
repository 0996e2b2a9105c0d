package pipeline

import "regexp"

// Lexical marker tables used by the dimension scorers. All matching is done
// against lowercased, HTML-stripped text.

// painMarkers signal frustration or urgency in the thread text.
var painMarkers = []string{
	"frustrated",
	"frustrating",
	"annoying",
	"infuriating",
	"hate",
	"sick of",
	"tired of",
	"fed up",
	"drives me crazy",
	"driving me crazy",
	"wasting hours",
	"waste of time",
	"painful",
	"nightmare",
	"struggling",
	"desperate",
	"urgent",
	"urgently",
	"asap",
	"killing me",
}

// paymentIntentPhrases indicate willingness to pay. Each phrase is matched
// against the token stream so a preceding negation can be detected.
var paymentIntentPhrases = [][]string{
	{"willing", "to", "pay"},
	{"would", "pay"},
	{"happy", "to", "pay"},
	{"gladly", "pay"},
	{"pay", "for", "this"},
	{"take", "my", "money"},
	{"shut", "up", "and", "take"},
	{"worth", "paying"},
	{"budget", "for"},
	{"subscribe"},
	{"subscription"},
}

// negationTokens flip a payment-intent phrase from a positive into a
// negative signal when found within the lookback window.
var negationTokens = map[string]bool{
	"not":     true,
	"no":      true,
	"never":   true,
	"nobody":  true,
	"without": true,
	"barely":  true,
	"hardly":  true,
}

// b2bMarkers and b2cMarkers drive the asymmetric segment weighting:
// business buyers have materially higher willingness-to-pay.
var b2bMarkers = []string{
	"our team",
	"our company",
	"my business",
	"my agency",
	"our clients",
	"for clients",
	"enterprise",
	"b2b",
	"employees",
	"invoice",
	"invoicing",
	"procurement",
	"my startup",
}

var b2cMarkers = []string{
	"for myself",
	"personal use",
	"my family",
	"my hobby",
	"side project",
	"b2c",
	"as a consumer",
}

// priceFigureRe matches explicit price figures like "$50", "$9.99/mo",
// "20 usd" or "15 dollars".
var priceFigureRe = regexp.MustCompile(`\$\s*\d+(?:\.\d{1,2})?(?:\s*/\s*(?:mo|month|yr|year|user|seat|wk|week))?|\b\d+\s*(?:usd|dollars)\b`)

// noSolutionMarkers signal an unserved market gap.
var noSolutionMarkers = []string{
	"no existing solution",
	"nothing out there",
	"nothing exists",
	"doesn't exist",
	"does not exist",
	"can't find any",
	"cant find any",
	"couldn't find anything",
	"no tool does",
	"wish there was",
	"wish there were",
	"why is there no",
	"surprised there's no",
}

// incumbentNames are commonly named existing products. A mention counts
// against the market-gap dimension.
var incumbentNames = []string{
	"notion",
	"airtable",
	"zapier",
	"excel",
	"google sheets",
	"salesforce",
	"hubspot",
	"trello",
	"asana",
	"slack",
	"jira",
	"monday.com",
	"clickup",
	"quickbooks",
	"shopify",
	"calendly",
}

// complexityMarker is one class of build complexity detected in the text.
// Each detected class deducts its penalty from technical feasibility.
type complexityMarker struct {
	Label   string
	Hints   []string
	Penalty float64
}

var complexityMarkers = []complexityMarker{
	{
		Label:   "third_party_integration",
		Hints:   []string{"integrate with", "integration with", "api integration", "sync with", "connects to", "third-party", "third party api"},
		Penalty: 15,
	},
	{
		Label:   "real_time",
		Hints:   []string{"real-time", "real time", "realtime", "live updates", "instantly updates", "websocket"},
		Penalty: 20,
	},
	{
		Label:   "regulated_data",
		Hints:   []string{"hipaa", "gdpr", "pci", "phi", "regulated", "medical records", "patient data", "financial records", "soc 2"},
		Penalty: 25,
	},
}

// functionSentenceMarkers locate the "what it does" sentence for the
// text-heuristic function-count strategy.
var functionSentenceMarkers = []string{
	"i need",
	"i want",
	"i just want",
	"looking for",
	"need a tool",
	"need an app",
	"it should",
	"it would",
	"tool that",
	"app that",
	"something that",
	"that lets me",
	"able to",
}
