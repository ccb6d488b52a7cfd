// Package transducer implements greedy decoding for RNN-T and TDT
// (token-and-duration transducer) speech models.
//
// The decoder drives two external networks — the prediction network and the
// joint network, see [inference.Predictor] and [inference.Joint] — over a
// segment's encoder output and emits the token-id sequence. Decoding is
// deterministic, sequential, and allocates fresh state per segment.
package transducer

import (
	"fmt"
	"strings"

	"github.com/lorikeet-ml/lorikeet/pkg/inference"
)

// DefaultBlankID is the reserved blank index of Parakeet-TDT v3 vocabularies
// (8192 SentencePiece tokens, blank appended as the last logit).
const DefaultBlankID = 8192

// wordMarker is the SentencePiece word-boundary prefix.
const wordMarker = "▁"

// Vocabulary maps token ids to token strings and knows the reserved blank id.
// The blank id never appears in decoder output.
type Vocabulary struct {
	tokens  []string
	blankID int
}

// NewVocabulary builds a Vocabulary from an ordered token list. blankID must
// be non-negative and outside the token index range (conventionally it is
// exactly len(tokens), the extra final logit).
func NewVocabulary(tokens []string, blankID int) (Vocabulary, error) {
	if blankID < 0 {
		return Vocabulary{}, fmt.Errorf("transducer: blank id %d must be non-negative: %w", blankID, inference.ErrInvalidInput)
	}
	if blankID < len(tokens) {
		return Vocabulary{}, fmt.Errorf("transducer: blank id %d collides with token index range [0, %d): %w",
			blankID, len(tokens), inference.ErrInvalidInput)
	}
	return Vocabulary{tokens: tokens, blankID: blankID}, nil
}

// Len returns the number of real (non-blank) tokens.
func (v Vocabulary) Len() int { return len(v.tokens) }

// BlankID returns the reserved blank token id.
func (v Vocabulary) BlankID() int { return v.blankID }

// Token returns the token string for id, and whether id is a real token.
func (v Vocabulary) Token(id int) (string, bool) {
	if id < 0 || id >= len(v.tokens) {
		return "", false
	}
	return v.tokens[id], true
}

// Detokenize renders a decoded id sequence as text. SentencePiece word
// markers become spaces; blank and out-of-range ids are skipped.
func (v Vocabulary) Detokenize(ids []int) string {
	var b strings.Builder
	for _, id := range ids {
		tok, ok := v.Token(id)
		if !ok {
			continue
		}
		b.WriteString(strings.ReplaceAll(tok, wordMarker, " "))
	}
	return strings.TrimSpace(b.String())
}
