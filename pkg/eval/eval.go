// Package eval scores transcription hypotheses against reference texts.
//
// Word and character error rates are the standard regression metrics for
// decoder changes: decode a fixture, compare against the known-good
// transcript, and alert on a rate increase. Both metrics are
// case-insensitive and whitespace-normalized.
package eval

import (
	"strings"
	"sync"

	"github.com/antzucaro/matchr"
)

// WER returns the word error rate of hypothesis against reference: the
// word-level edit distance divided by the reference word count. An empty
// reference scores 0 against an empty hypothesis; against a non-empty one it
// scores the hypothesis word count (pure insertions).
func WER(reference, hypothesis string) float64 {
	refWords := strings.Fields(strings.ToLower(reference))
	hypWords := strings.Fields(strings.ToLower(hypothesis))
	if len(refWords) == 0 && len(hypWords) == 0 {
		return 0
	}

	dist := matchr.Levenshtein(encodeWords(refWords), encodeWords(hypWords))
	denom := len(refWords)
	if denom == 0 {
		denom = 1
	}
	return float64(dist) / float64(denom)
}

// CER returns the character error rate of hypothesis against reference: the
// rune-level edit distance divided by the reference rune count, after
// lowercasing and collapsing runs of whitespace to single spaces.
func CER(reference, hypothesis string) float64 {
	ref := normalize(reference)
	hyp := normalize(hypothesis)
	if len(ref) == 0 && len(hyp) == 0 {
		return 0
	}

	dist := matchr.Levenshtein(ref, hyp)
	denom := len([]rune(ref))
	if denom == 0 {
		denom = 1
	}
	return float64(dist) / float64(denom)
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// encodeWords maps each distinct word to a single private-use rune so that a
// rune-level edit distance becomes a word-level one.
func encodeWords(words []string) string {
	var b strings.Builder
	for _, w := range words {
		b.WriteRune(wordRune(w))
	}
	return b.String()
}

// wordRunes interns words to runes in the Unicode private use area. WER calls
// are expected to share vocabulary heavily across invocations, so the table
// is package-level and append-only.
var wordRunes = struct {
	sync.Mutex
	m    map[string]rune
	next rune
}{m: make(map[string]rune), next: 0xE000}

func wordRune(w string) rune {
	wordRunes.Lock()
	defer wordRunes.Unlock()
	if r, ok := wordRunes.m[w]; ok {
		return r
	}
	r := wordRunes.next
	wordRunes.next++
	wordRunes.m[w] = r
	return r
}
