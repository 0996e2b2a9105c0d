package pipeline

import "strings"

// The scoring engine is a set of pure, deterministic functions over the
// candidate's sanitized text and engagement metrics. Missing signals default
// their contribution to 0; nothing here returns an error.

// prepareText builds the lowercased, HTML-stripped haystack all lexical
// scorers match against.
func prepareText(c Candidate) string {
	return strings.ToLower(cleanText(c.Title) + "\n" + HTMLToText(c.Body))
}

// ComputeScores evaluates the five text/metric dimensions plus the
// simplicity score derived from coreFunctions.
func ComputeScores(c Candidate, coreFunctions int, cfg *Config) DimensionScores {
	text := prepareText(c)

	spread := 0
	if strings.TrimSpace(c.SourceCategory) != "" {
		spread = 1
	}

	return DimensionScores{
		MarketDemand:          scoreMarketDemand(c.Engagement, spread),
		PainIntensity:         scorePainIntensity(text),
		MonetizationPotential: scoreMonetization(text, cfg.Monetization),
		MarketGap:             scoreMarketGap(text),
		TechnicalFeasibility:  scoreTechnicalFeasibility(text),
		Simplicity:            SimplicityScore(coreFunctions),
	}
}

// scoreMarketDemand is a monotonic, saturating function of the engagement
// signals. Each signal is capped independently so no single one dominates.
func scoreMarketDemand(m EngagementMetrics, sourceSpread int) float64 {
	comments := capf(float64(m.CommentCount)*1.5, 55)
	if comments < 0 {
		comments = 0
	}
	votes := capf(float64(m.Score)*0.25, 35)
	if votes < 0 {
		votes = 0
	}
	spread := capf(float64(sourceSpread)*5, 10)
	return capf(comments+votes+spread, 100)
}

// scorePainIntensity counts frustration/urgency markers, with a small bonus
// for exclamatory emphasis.
func scorePainIntensity(text string) float64 {
	score := float64(countOccurrences(text, painMarkers)) * 12
	score += capf(float64(strings.Count(text, "!"))*2, 10)
	return clampf(score, 0, 100)
}

// scoreMonetization sums three capped sub-signals: payment intent net of
// negation, asymmetric segment weighting, and explicit price figures.
//
// The negation handling is the load-bearing part: "not willing to pay"
// subtracts instead of adding, because unweighted keyword counting is the
// dominant source of monetization false positives.
func scoreMonetization(text string, cfg MonetizationConfig) float64 {
	tokens := tokenize(text)

	intent := 0.0
	for _, phrase := range paymentIntentPhrases {
		for _, pos := range phrasePositions(tokens, phrase) {
			if negatedBefore(tokens, pos, 3) {
				intent -= 15
			} else {
				intent += 20
			}
		}
	}
	intent = clampf(intent, 0, 40)

	segment := capf(float64(countOccurrences(text, b2bMarkers))*cfg.B2BWeight, 30)
	segment += capf(float64(countOccurrences(text, b2cMarkers))*cfg.B2CWeight, 12)

	price := capf(float64(len(priceFigureRe.FindAllString(text, -1)))*15, 30)

	return capf(intent+segment+price, 100)
}

// scoreMarketGap counts "no existing solution" markers against mentions of
// named incumbents.
func scoreMarketGap(text string) float64 {
	gap := float64(countOccurrences(text, noSolutionMarkers)) * 25
	gap -= float64(countOccurrences(text, incumbentNames)) * 15
	return clampf(gap, 0, 100)
}

// scoreTechnicalFeasibility starts at 100 and deducts a penalty per detected
// complexity class.
func scoreTechnicalFeasibility(text string) float64 {
	score := 100.0
	for _, marker := range complexityMarkers {
		for _, hint := range marker.Hints {
			if strings.Contains(text, hint) {
				score -= marker.Penalty
				break
			}
		}
	}
	return clampf(score, 0, 100)
}

// SimplicityScore maps core_functions to its fixed simplicity value. It is
// derived strictly from the count, never re-inferred from text.
func SimplicityScore(coreFunctions int) float64 {
	switch coreFunctions {
	case 1:
		return 100
	case 2:
		return 85
	case 3:
		return 70
	default:
		return 0
	}
}

// FinalScore combines the dimension scores with the configured weights.
// Disqualified records are forced to 0 regardless of the other dimensions.
func FinalScore(scores DimensionScores, w Weights, disqualified bool) float64 {
	if disqualified {
		return 0
	}
	total := w.MarketDemand*scores.MarketDemand +
		w.PainIntensity*scores.PainIntensity +
		w.MonetizationPotential*scores.MonetizationPotential +
		w.MarketGap*scores.MarketGap +
		w.TechnicalFeasibility*scores.TechnicalFeasibility +
		w.Simplicity*scores.Simplicity
	return clampf(total, 0, 100)
}

// PriorityTier assigns the label of the first band whose threshold the
// score meets, scanning in descending order.
func PriorityTier(score float64, tiers []TierBand) string {
	for _, band := range tiers {
		if score >= band.Threshold {
			return band.Label
		}
	}
	if len(tiers) == 0 {
		return ""
	}
	return tiers[len(tiers)-1].Label
}

// phrasePositions returns the start indexes of every occurrence of phrase in
// the token stream.
func phrasePositions(tokens []string, phrase []string) []int {
	if len(phrase) == 0 || len(tokens) < len(phrase) {
		return nil
	}
	var positions []int
	for i := 0; i+len(phrase) <= len(tokens); i++ {
		match := true
		for j, want := range phrase {
			if tokens[i+j] != want {
				match = false
				break
			}
		}
		if match {
			positions = append(positions, i)
		}
	}
	return positions
}

// negatedBefore reports whether a negation token appears within the window
// of tokens immediately preceding pos.
func negatedBefore(tokens []string, pos, window int) bool {
	start := pos - window
	if start < 0 {
		start = 0
	}
	for i := start; i < pos; i++ {
		if negationTokens[tokens[i]] || strings.HasSuffix(tokens[i], "n't") {
			return true
		}
	}
	return false
}
