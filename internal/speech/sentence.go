// Package speech splits a reply into sentences and turns each into played
// audio through a long-lived synthesis subprocess (spec.md §4.6).
package speech

import "strings"

// SoftWrapWidth is the fallback wrap width applied when a reply produces
// only a single fragment longer than this many characters.
const SoftWrapWidth = 180

var sentenceEnders = map[byte]bool{'.': true, '!': true, '?': true}

// SplitSentences walks text and emits a fragment each time a '.', '!', or
// '?' is followed by whitespace or end-of-input. Fragments are trimmed
// and empties dropped. Grounded on the teacher's tts.SplitSentences,
// tightened to the whitespace-or-EOI boundary rule spec.md §4.6 specifies
// (the teacher also breaks on bare '\n', which this drops since '\n' isn't
// one of the three listed enders).
func SplitSentences(text string) []string {
	var sentences []string
	start := 0
	for i := 0; i < len(text); i++ {
		if !sentenceEnders[text[i]] {
			continue
		}
		if i+1 < len(text) && !isBoundarySpace(text[i+1]) {
			continue
		}
		if frag := strings.TrimSpace(text[start : i+1]); frag != "" {
			sentences = append(sentences, frag)
		}
		start = i + 1
	}
	if frag := strings.TrimSpace(text[start:]); frag != "" {
		sentences = append(sentences, frag)
	}

	if len(sentences) == 1 && len(sentences[0]) > SoftWrapWidth {
		return softWrap(sentences[0])
	}
	return sentences
}

func isBoundarySpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// softWrap breaks a single long fragment at whitespace at or before every
// SoftWrapWidth-th character.
func softWrap(text string) []string {
	var chunks []string
	for len(text) > SoftWrapWidth {
		cut := lastWhitespaceAtOrBefore(text, SoftWrapWidth)
		if cut <= 0 {
			cut = SoftWrapWidth
		}
		chunk := strings.TrimSpace(text[:cut])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		text = strings.TrimSpace(text[cut:])
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}

func lastWhitespaceAtOrBefore(text string, limit int) int {
	if limit > len(text) {
		limit = len(text)
	}
	for i := limit; i > 0; i-- {
		if isBoundarySpace(text[i-1]) {
			return i
		}
	}
	return limit
}
