// Package text provides utilities for text processing and analysis.
// This package includes reusable functions for character and word counting
// used by the clustering eligibility rules and the summarizer adapters.
package text

import "strings"

// CountRunes counts the number of Unicode characters (runes) in the given text.
// This function correctly handles multi-byte characters, which matters for
// Turkish text with dotted/dotless i variants and other non-ASCII letters.
//
// Examples:
//
//	CountRunes("hello")   // returns 5
//	CountRunes("ağaç")    // returns 4
//	CountRunes("")        // returns 0
func CountRunes(text string) int {
	return len([]rune(text))
}

// CountWords counts whitespace-separated words in the given text.
// Consecutive whitespace is treated as a single separator, so padded or
// newline-heavy article bodies are counted the same as clean ones.
func CountWords(text string) int {
	return len(strings.Fields(text))
}
