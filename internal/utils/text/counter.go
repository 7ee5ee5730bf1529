// Package text provides utilities for text processing and analysis.
// This package includes reusable functions for character counting and
// truncation that music platforms and prompt builders share when enforcing
// their input limits.
package text

// CountRunes counts the number of Unicode characters (runes) in the given text.
// This function correctly handles multi-byte characters including Japanese, Chinese,
// emoji, and other Unicode characters by counting runes instead of bytes.
//
// Platform input limits (title, lyrics, style prompt) are defined in
// characters, not bytes, so every adapter counts with this function to stay
// consistent.
//
// Examples:
//
//	CountRunes("hello")          // returns 5 (ASCII text)
//	CountRunes("こんにちは")       // returns 5 (Japanese text)
//	CountRunes("hello世界")       // returns 7 (mixed text)
//	CountRunes("Hello👋")         // returns 6 (text with emoji)
//	CountRunes("")               // returns 0 (empty string)
func CountRunes(text string) int {
	return len([]rune(text))
}

// TruncateRunes cuts text to at most max Unicode characters. Text at or
// under the limit is returned unchanged, so no allocation happens on the
// common path where inputs already fit.
func TruncateRunes(text string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}
