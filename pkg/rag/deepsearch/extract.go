package deepsearch

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"compliance-assistant-be/pkg/rag"
)

const (
	MaxRelatedDocuments = 5
	MaxInsights         = 8
	MaxCrossReferences  = 10

	minInsightLength = 20
	maxInsightLength = 200
	maxExcerptLength = 200

	topRelevance  = 0.95
	relevanceStep = 0.05
)

var (
	republicActPattern = regexp.MustCompile(`(?i)\b(?:RA|Republic Act)\s*(?:No\.?\s*)?(\d+)`)

	bulletPattern = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)])\s+`)

	crossReferencePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\b(?:RA|(?i:Republic Act))\s*(?:(?i:No)\.?\s*)?\d+`),
		regexp.MustCompile(`\b(?:[A-Z]{2,}\s+)?(?i:Memorandum Circular)\s*(?:(?i:No)\.?\s*)?[\d-]+`),
		regexp.MustCompile(`\bMC\s*(?:(?i:No)\.?\s*)?\d+(?:-\d+)*`),
		regexp.MustCompile(`\b(?:EO|(?i:Executive Order))\s*(?:(?i:No)\.?\s*)?\d+`),
		regexp.MustCompile(`\b(?:PD|(?i:Presidential Decree))\s*(?:(?i:No)\.?\s*)?\d+`),
	}
)

// ExtractRelatedDocuments lists distinct Republic Acts cited in text, in order
// of first mention, scored 0.95 and then 0.05 lower per position.
func ExtractRelatedDocuments(text string) []rag.RelatedDocument {
	docs := make([]rag.RelatedDocument, 0, MaxRelatedDocuments)
	seen := make(map[string]bool)

	for _, m := range republicActPattern.FindAllStringSubmatchIndex(text, -1) {
		number := text[m[2]:m[3]]
		if seen[number] {
			continue
		}
		seen[number] = true

		score := topRelevance - relevanceStep*float64(len(docs))
		docs = append(docs, rag.RelatedDocument{
			Title:          "Republic Act No. " + number,
			RelevanceScore: roundScore(score),
			Excerpt:        excerptAround(text, m[0], m[1]),
			Reference:      text[m[0]:m[1]],
		})
		if len(docs) == MaxRelatedDocuments {
			break
		}
	}
	return docs
}

// ExtractInsights collects bullet and numbered list lines of reasonable length.
func ExtractInsights(text string) []string {
	insights := make([]string, 0, MaxInsights)

	for _, line := range strings.Split(text, "\n") {
		loc := bulletPattern.FindStringIndex(line)
		if loc == nil {
			continue
		}
		item := strings.TrimSpace(line[loc[1]:])
		n := utf8.RuneCountInString(item)
		if n < minInsightLength || n > maxInsightLength {
			continue
		}
		insights = append(insights, item)
		if len(insights) == MaxInsights {
			break
		}
	}
	return insights
}

// ExtractCrossReferences lists distinct legal citations (acts, circulars,
// executive orders, decrees) in order of appearance.
func ExtractCrossReferences(text string) []string {
	type match struct {
		start int
		text  string
	}
	var matches []match
	for _, p := range crossReferencePatterns {
		for _, loc := range p.FindAllStringIndex(text, -1) {
			matches = append(matches, match{start: loc[0], text: strings.TrimSpace(text[loc[0]:loc[1]])})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].start < matches[j].start })

	refs := make([]string, 0, MaxCrossReferences)
	seen := make(map[string]bool)
	for _, m := range matches {
		if seen[m.text] {
			continue
		}
		seen[m.text] = true
		refs = append(refs, m.text)
		if len(refs) == MaxCrossReferences {
			break
		}
	}
	return refs
}

// excerptAround returns the sentence containing text[start:end], trimmed to maxExcerptLength runes.
func excerptAround(text string, start, end int) string {
	from := strings.LastIndexAny(text[:start], ".!?\n")
	from++
	to := strings.IndexAny(text[end:], ".!?\n")
	if to < 0 {
		to = len(text)
	} else {
		to = end + to + 1
	}

	sentence := strings.TrimSpace(text[from:to])
	if utf8.RuneCountInString(sentence) <= maxExcerptLength {
		return sentence
	}
	runes := []rune(sentence)
	return strings.TrimSpace(string(runes[:maxExcerptLength-3])) + "..."
}

func roundScore(s float64) float64 {
	return float64(int(s*100+0.5)) / 100
}
