package pipeline

import (
	"strings"
)

// countStrategy resolves core_functions from one shape of candidate record.
// Resolution is first-match-wins over the ordered strategy list.
type countStrategy interface {
	Source() CountSource
	Resolve(c Candidate, cfg ExtractionConfig) (int, bool)
}

// explicitCountStrategy uses the numeric field set by the collector.
type explicitCountStrategy struct{}

func (explicitCountStrategy) Source() CountSource { return CountSourceExplicit }

func (explicitCountStrategy) Resolve(c Candidate, _ ExtractionConfig) (int, bool) {
	if c.ExplicitFunctionCount > 0 {
		return c.ExplicitFunctionCount, true
	}
	return 0, false
}

// explicitListStrategy counts entries of the function-list array.
type explicitListStrategy struct{}

func (explicitListStrategy) Source() CountSource { return CountSourceList }

func (explicitListStrategy) Resolve(c Candidate, _ ExtractionConfig) (int, bool) {
	count := 0
	for _, fn := range c.FunctionList {
		if strings.TrimSpace(fn) != "" {
			count++
		}
	}
	if count > 0 {
		return count, true
	}
	return 0, false
}

// textHeuristicStrategy splits the "what it does" sentence on enumeration
// markers and counts distinct clauses.
type textHeuristicStrategy struct{}

func (textHeuristicStrategy) Source() CountSource { return CountSourceHeuristic }

func (textHeuristicStrategy) Resolve(c Candidate, cfg ExtractionConfig) (int, bool) {
	body := cleanText(HTMLToText(c.Body))

	// Bullet lists are the strongest enumeration signal: two or more bullet
	// lines are counted directly as one function each.
	if bullets := bulletLines(c.Body); len(bullets) >= 2 {
		return capClauses(len(bullets), cfg.MaxHeuristicClauses), true
	}

	sentence := findFunctionSentence(body)
	if sentence == "" {
		sentence = findFunctionSentence(cleanText(c.Title))
	}
	if sentence == "" {
		return 0, false
	}

	clauses := splitClauses(sentence)
	if len(clauses) == 0 {
		return 0, false
	}
	return capClauses(len(clauses), cfg.MaxHeuristicClauses), true
}

// countStrategies is the resolution order: explicit count, explicit list,
// text heuristic. The fallback is applied by ExtractFunctionCount itself.
var countStrategies = []countStrategy{
	explicitCountStrategy{},
	explicitListStrategy{},
	textHeuristicStrategy{},
}

// ExtractFunctionCount resolves the core-function count for a candidate of
// unknown shape. It never fails: malformed input degrades to the configured
// fallback with source=fallback so the optimistic assumption stays auditable.
func ExtractFunctionCount(c Candidate, cfg ExtractionConfig) (int, CountSource) {
	for _, strategy := range countStrategies {
		if count, ok := strategy.Resolve(c, cfg); ok {
			return count, strategy.Source()
		}
	}
	return cfg.FallbackFunctions, CountSourceFallback
}

// findFunctionSentence returns the first sentence containing a
// capability marker, or "" when none matches.
func findFunctionSentence(text string) string {
	lower := strings.ToLower(text)
	for _, raw := range strings.FieldsFunc(lower, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == '\n'
	}) {
		sentence := strings.TrimSpace(raw)
		if sentence == "" {
			continue
		}
		for _, marker := range functionSentenceMarkers {
			if strings.Contains(sentence, marker) {
				return sentence
			}
		}
	}
	return ""
}

// splitClauses breaks an enumeration sentence into distinct clauses.
func splitClauses(sentence string) []string {
	s := strings.ToLower(sentence)
	for _, sep := range []string{" as well as ", " and then ", " and also ", " and ", " plus ", " then "} {
		s = strings.ReplaceAll(s, sep, "|")
	}
	s = strings.ReplaceAll(s, ";", "|")
	s = strings.ReplaceAll(s, ",", "|")

	var clauses []string
	for _, raw := range strings.Split(s, "|") {
		clause := strings.TrimSpace(raw)
		if len(clause) < 3 || !strings.ContainsAny(clause, "abcdefghijklmnopqrstuvwxyz") {
			continue
		}
		clauses = mergeUniqueFold(clauses, []string{clause})
	}
	return clauses
}

// bulletLines returns the bullet-marked lines of the raw body.
func bulletLines(body string) []string {
	var lines []string
	for _, raw := range strings.Split(body, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ") || strings.HasPrefix(line, "• ") || startsWithNumberedMarker(line) {
			lines = append(lines, line)
		}
	}
	return lines
}

func startsWithNumberedMarker(line string) bool {
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == 0 || i >= len(line) {
		return false
	}
	return line[i] == '.' || line[i] == ')'
}

func capClauses(n, max int) int {
	if n > max {
		return max
	}
	return n
}
