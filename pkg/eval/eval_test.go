package eval

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestWER(t *testing.T) {
	tests := []struct {
		name string
		ref  string
		hyp  string
		want float64
	}{
		{"both empty", "", "", 0},
		{"exact match", "the quick brown fox", "the quick brown fox", 0},
		{"case and spacing ignored", "The  Quick fox", "the quick FOX", 0},
		{"one substitution", "the quick brown fox", "the quick green fox", 0.25},
		{"one deletion", "the quick brown fox", "the quick fox", 0.25},
		{"one insertion", "the quick fox", "the quick brown fox", 1.0 / 3.0},
		{"all wrong", "a b", "c d", 1},
		{"empty hypothesis", "a b c d", "", 1},
		{"empty reference", "", "a b c", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WER(tt.ref, tt.hyp); !almostEqual(got, tt.want) {
				t.Errorf("WER(%q, %q) = %f; want %f", tt.ref, tt.hyp, got, tt.want)
			}
		})
	}
}

func TestCER(t *testing.T) {
	tests := []struct {
		name string
		ref  string
		hyp  string
		want float64
	}{
		{"both empty", "", "", 0},
		{"exact match", "hello world", "hello world", 0},
		{"one substitution", "abcd", "abed", 0.25},
		{"whitespace collapsed", "hello   world", "hello world", 0},
		{"empty hypothesis", "ab", "", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CER(tt.ref, tt.hyp); !almostEqual(got, tt.want) {
				t.Errorf("CER(%q, %q) = %f; want %f", tt.ref, tt.hyp, got, tt.want)
			}
		})
	}
}

func TestWER_DistinctWordsDoNotCollide(t *testing.T) {
	// Regression guard for the word-to-rune interning: distinct words must
	// never map to the same rune, or WER would under-count substitutions.
	if got := WER("alpha beta gamma", "alpha delta gamma"); !almostEqual(got, 1.0/3.0) {
		t.Errorf("WER = %f; want 1/3", got)
	}
	if got := WER("alpha beta", "beta alpha"); almostEqual(got, 0) {
		t.Error("swapped words must not score 0")
	}
}
