package process

import (
	"sort"
	"strings"
	"unicode"

	"github.com/quillmind-ai/quillmind/pkg/types"
	"github.com/quillmind-ai/quillmind/pkg/utils"
)

const (
	categoryGeneral   = "general"
	categoryTechnical = "technical"
	categoryData      = "data"

	maxTags = 5
)

// categoryRules is an ordered list so ties resolve the same way on
// every run.
var categoryRules = []struct {
	name     string
	keywords []string
}{
	{categoryTechnical, []string{"api", "server", "database", "deploy", "config", "function", "install", "error", "code"}},
	{"finance", []string{"invoice", "payment", "budget", "revenue", "cost", "price", "tax", "expense"}},
	{"meeting", []string{"meeting", "agenda", "minutes", "attendees", "discussed", "decision"}},
	{"legal", []string{"agreement", "contract", "liability", "clause", "terms", "party"}},
}

var stopwords = map[string]struct{}{
	"about": {}, "after": {}, "also": {}, "been": {}, "before": {},
	"being": {}, "between": {}, "both": {}, "could": {}, "does": {},
	"each": {}, "from": {}, "have": {}, "here": {}, "include": {},
	"into": {}, "more": {}, "most": {}, "other": {}, "over": {},
	"same": {}, "should": {}, "some": {}, "than": {},
	"that": {}, "their": {}, "them": {}, "then": {}, "there": {},
	"these": {}, "they": {}, "this": {}, "those": {}, "through": {},
	"very": {}, "were": {}, "what": {}, "when": {}, "where": {},
	"which": {}, "while": {}, "will": {}, "with": {}, "would": {},
	"your": {},
}

// Analyze tags extracted text without any model call: language via
// whatlanggo, category from the file type or keyword hits, tags from
// word frequency.
func Analyze(text string, fileType types.FileType) types.ContentAnalysis {
	analysis := types.ContentAnalysis{
		Category: categoryGeneral,
		Language: utils.WhatLang(text),
	}

	freq := wordFrequency(text)

	switch fileType {
	case types.FILE_TYPE_SOURCE_CODE:
		analysis.Category = categoryTechnical
	case types.FILE_TYPE_SPREADSHEET:
		analysis.Category = categoryData
	default:
		best := 0
		for _, rule := range categoryRules {
			score := 0
			for _, kw := range rule.keywords {
				score += freq[kw]
			}
			// a single stray keyword is not a signal
			if score > best && score >= 2 {
				best = score
				analysis.Category = rule.name
			}
		}
	}

	analysis.Tags = topTags(freq)
	return analysis
}

func wordFrequency(text string) map[string]int {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	freq := make(map[string]int, len(words))
	for _, w := range words {
		freq[w]++
	}
	return freq
}

// topTags picks the most repeated meaningful words: at least four
// runes, seen at least twice, not a stopword. Frequency descending,
// alphabetical on ties.
func topTags(freq map[string]int) []string {
	var candidates []string
	for w, n := range freq {
		if n < 2 || len([]rune(w)) < 4 {
			continue
		}
		if _, ok := stopwords[w]; ok {
			continue
		}
		candidates = append(candidates, w)
	}

	sort.Slice(candidates, func(i, j int) bool {
		if freq[candidates[i]] != freq[candidates[j]] {
			return freq[candidates[i]] > freq[candidates[j]]
		}
		return candidates[i] < candidates[j]
	})

	if len(candidates) > maxTags {
		candidates = candidates[:maxTags]
	}
	return candidates
}
