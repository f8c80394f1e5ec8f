package search

import "strings"

// Stop words to filter out when scoring lexical matches
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true,
}

// tokenizeAndFilter splits text into words, lowercases, trims punctuation, and removes stop words
func tokenizeAndFilter(text string) []string {
	words := strings.Fields(text)
	filtered := make([]string, 0, len(words))

	for _, word := range words {
		// Lowercase and trim punctuation
		cleaned := strings.ToLower(strings.Trim(word, ".,!?;:'\"-()[]{}"))

		// Skip stop words and empty strings
		if cleaned != "" && !stopWords[cleaned] {
			filtered = append(filtered, cleaned)
		}
	}

	return filtered
}

// lexicalScore ranks text against pre-tokenized query terms.
// The score is the fraction of query terms present, weighted by how often
// they occur relative to the document length. Always in [0,1].
func lexicalScore(queryTerms []string, text string) float32 {
	if len(queryTerms) == 0 {
		return 0
	}
	docTerms := tokenizeAndFilter(text)
	if len(docTerms) == 0 {
		return 0
	}

	counts := make(map[string]int, len(docTerms))
	for _, term := range docTerms {
		counts[term]++
	}

	matched := 0
	occurrences := 0
	for _, term := range queryTerms {
		if counts[term] > 0 {
			matched++
			occurrences += counts[term]
		}
	}
	if matched == 0 {
		return 0
	}

	coverage := float32(matched) / float32(len(queryTerms))
	frequency := float32(occurrences) / float32(len(docTerms))
	if frequency > 1 {
		frequency = 1
	}

	// Coverage dominates; frequency distinguishes documents with the
	// same coverage.
	return coverage * (0.75 + 0.25*frequency)
}
