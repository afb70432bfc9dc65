package cluster

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// minKeywordRunes is the shortest token considered a keyword.
const minKeywordRunes = 3

var stopWords = map[string]bool{
	"and": true, "the": true, "for": true, "with": true, "from": true,
	"inc": true, "llc": true, "ltd": true, "co": true, "com": true, "www": true,
	"pos": true, "purchase": true, "payment": true, "card": true, "debit": true,
	"credit": true, "online": true, "transfer": true, "txn": true, "ref": true,
}

// tokenize splits a description into lowercase keyword candidates.
func tokenize(description string) []string {
	fields := strings.FieldsFunc(strings.ToLower(description), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if utf8.RuneCountInString(f) < minKeywordRunes || stopWords[f] || isNumeric(f) {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// Keywords returns the candidate keywords across descriptions, most frequent first.
// Frequency counts descriptions, not occurrences; ties are broken alphabetically.
func Keywords(descriptions []string) []string {
	freq := make(map[string]int)
	for _, d := range descriptions {
		seen := make(map[string]bool)
		for _, token := range tokenize(d) {
			if !seen[token] {
				seen[token] = true
				freq[token]++
			}
		}
	}

	keywords := make([]string, 0, len(freq))
	for k := range freq {
		keywords = append(keywords, k)
	}
	sort.Slice(keywords, func(i, j int) bool {
		if freq[keywords[i]] != freq[keywords[j]] {
			return freq[keywords[i]] > freq[keywords[j]]
		}
		return keywords[i] < keywords[j]
	})
	return keywords
}
