// Package speech turns arbitrarily long text into continuous spoken audio
// by splitting it into synthesizer-sized chunks and running a staged
// synthesis/playback pipeline over them.
package speech

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/clipperhouse/uax29/v2/graphemes"
	"github.com/clipperhouse/uax29/v2/words"
)

// MinChunkSize is the smallest accepted chunk size. The synthesizer cannot
// usefully speak fragments shorter than this.
const MinChunkSize = 4

var lineBreakReplacer = strings.NewReplacer("\r", "", "\n", "")

// Splitter breaks text into chunks that fit the synthesizer's
// per-invocation character limit, preferring punctuation and whitespace
// boundaries over mid-word cuts. Lengths are measured in grapheme clusters.
type Splitter struct{}

// NewSplitter creates a splitter.
func NewSplitter() *Splitter {
	return &Splitter{}
}

// Split breaks text into chunks of at most chunkSize grapheme clusters.
// Line breaks are treated as break opportunities and removed from the
// output. Empty text yields an empty slice. The result is deterministic
// for a given input and chunk size.
func (s *Splitter) Split(text string, chunkSize int) ([]string, error) {
	if chunkSize < MinChunkSize {
		return nil, ErrChunkSizeTooSmall
	}
	if text == "" {
		return []string{}, nil
	}
	if graphemeCount(text) < chunkSize {
		return []string{lineBreakReplacer.Replace(text)}, nil
	}

	fragments := s.breakFragments(text, chunkSize)

	// Pack fragments into chunks. Each fragment is already at most
	// chunkSize long, so a fragment that would overflow the current
	// chunk starts the next one.
	var chunks []string
	var buf strings.Builder
	bufLen := 0
	for _, fragment := range fragments {
		fragLen := graphemeCount(fragment)
		if bufLen > 0 && chunkSize < bufLen+fragLen {
			chunks = append(chunks, buf.String())
			buf.Reset()
			bufLen = 0
		}
		buf.WriteString(fragment)
		bufLen += fragLen
	}
	if buf.Len() > 0 {
		chunks = append(chunks, buf.String())
	}

	return chunks, nil
}

// breakFragments tokenizes the text into word/punctuation units and
// regroups them into fragments no longer than maxLen. Punctuation and
// whitespace close the current fragment, staying on the fragment they
// terminate unless that would overflow it. A single token longer than
// maxLen is cut into grapheme clusters and packed into exact maxLen
// pieces.
func (s *Splitter) breakFragments(text string, maxLen int) []string {
	var fragments []string
	var buf strings.Builder
	bufLen := 0

	flush := func() {
		if buf.Len() > 0 {
			fragments = append(fragments, buf.String())
			buf.Reset()
			bufLen = 0
		}
	}

	tokens := words.FromString(text)
	for tokens.Next() {
		word := tokens.Value()
		first, _ := utf8.DecodeRuneInString(word)

		if !unicode.IsLetter(first) {
			// Punctuation or whitespace: keep it on the fragment it
			// terminates when it fits; a delimiter that would push the
			// fragment past maxLen starts its own fragment instead. Line
			// breaks are dropped but still count as a boundary.
			word = lineBreakReplacer.Replace(word)
			wordLen := graphemeCount(word)
			if maxLen < bufLen+wordLen {
				flush()
			}
			if maxLen < wordLen {
				fragments = append(fragments, forceSplit(word, maxLen)...)
				continue
			}
			buf.WriteString(word)
			bufLen += wordLen
			flush()
			continue
		}

		wordLen := graphemeCount(word)
		if maxLen < wordLen {
			// No breakable point inside the word; cut it into
			// grapheme clusters and pack them into maxLen pieces.
			flush()
			fragments = append(fragments, forceSplit(word, maxLen)...)
			continue
		}

		if maxLen < bufLen+wordLen {
			// No punctuation arrived in time; give up and break here.
			flush()
		}
		buf.WriteString(word)
		bufLen += wordLen
	}

	flush()
	return fragments
}

// forceSplit packs the word's grapheme clusters greedily into pieces of
// exactly maxLen units; the last piece may be shorter.
func forceSplit(word string, maxLen int) []string {
	var pieces []string
	var buf strings.Builder
	n := 0

	clusters := graphemes.FromString(word)
	for clusters.Next() {
		if n == maxLen {
			pieces = append(pieces, buf.String())
			buf.Reset()
			n = 0
		}
		buf.WriteString(clusters.Value())
		n++
	}
	if buf.Len() > 0 {
		pieces = append(pieces, buf.String())
	}
	return pieces
}

// graphemeCount returns the number of grapheme clusters in s.
func graphemeCount(s string) int {
	count := 0
	clusters := graphemes.FromString(s)
	for clusters.Next() {
		count++
	}
	return count
}
