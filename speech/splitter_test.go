package speech

import (
	"errors"
	"strings"
	"testing"
)

// passage88 is 88 grapheme clusters including two line breaks:
// 15 + newline + 27 + newline + 44.
const passage88 = "恥の多い生涯を送って来ました。\n" +
	"自分には、人間の生活というものが、見当つかないのです。\n" +
	"自分は東北の田舎に生れましたので、汽車をはじめて見たのは、よほど大きくなってからでした。"

func TestSplitterSplit(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		chunkSize int
		want      []string
	}{
		{
			name:      "empty text",
			text:      "",
			chunkSize: 140,
			want:      []string{},
		},
		{
			name:      "short text passes through",
			text:      "こんにちは。",
			chunkSize: 140,
			want:      []string{"こんにちは。"},
		},
		{
			name:      "line breaks stripped from single chunk",
			text:      passage88,
			chunkSize: 100,
			want: []string{
				"恥の多い生涯を送って来ました。自分には、人間の生活というものが、見当つかないのです。" +
					"自分は東北の田舎に生れましたので、汽車をはじめて見たのは、よほど大きくなってからでした。",
			},
		},
		{
			name:      "split at line boundaries",
			text:      passage88,
			chunkSize: 44,
			want: []string{
				"恥の多い生涯を送って来ました。自分には、人間の生活というものが、見当つかないのです。",
				"自分は東北の田舎に生れましたので、汽車をはじめて見たのは、よほど大きくなってからでした。",
			},
		},
		{
			name:      "split at punctuation inside last line",
			text:      passage88,
			chunkSize: 80,
			want: []string{
				"恥の多い生涯を送って来ました。自分には、人間の生活というものが、見当つかないのです。" +
					"自分は東北の田舎に生れましたので、汽車をはじめて見たのは、",
				"よほど大きくなってからでした。",
			},
		},
		{
			name:      "punctuation arriving at capacity",
			text:      "あいうえおかきくけこ、さしすせそ",
			chunkSize: 10,
			want: []string{
				"あいうえおかきくけこ",
				"、さしすせそ",
			},
		},
		{
			name:      "forced split without punctuation",
			text:      "あいうえお、かきくけこさしすせそたちつてと",
			chunkSize: 10,
			want: []string{
				"あいうえお、",
				"かきくけこさしすせそ",
				"たちつてと",
			},
		},
		{
			name:      "latin words kept whole",
			text:      "The quick brown fox jumps over the lazy dog. Pack my box with five dozen liquor jugs.",
			chunkSize: 45,
			want: []string{
				"The quick brown fox jumps over the lazy dog. ",
				"Pack my box with five dozen liquor jugs.",
			},
		},
	}

	splitter := NewSplitter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := splitter.Split(tt.text, tt.chunkSize)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d chunks, want %d: %q", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("chunk %d: got %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSplitterChunkSizeTooSmall(t *testing.T) {
	_, err := NewSplitter().Split("some text", MinChunkSize-1)
	if !errors.Is(err, ErrChunkSizeTooSmall) {
		t.Fatalf("got %v, want ErrChunkSizeTooSmall", err)
	}
}

func TestSplitterChunkBounds(t *testing.T) {
	texts := []string{
		passage88,
		// Punctuation landing on a buffer already at capacity.
		"あいうえおかきくけこ、さしすせそ",
		// A whitespace run longer than the chunk size.
		"a" + strings.Repeat(" ", 12) + "b",
	}

	splitter := NewSplitter()
	for _, text := range texts {
		for _, chunkSize := range []int{10, 44, 80, 140} {
			chunks, err := splitter.Split(text, chunkSize)
			if err != nil {
				t.Fatalf("chunkSize %d: %v", chunkSize, err)
			}
			for i, chunk := range chunks {
				if chunk == "" {
					t.Errorf("text %q chunkSize %d: chunk %d is empty", text, chunkSize, i)
				}
				if n := graphemeCount(chunk); n > chunkSize {
					t.Errorf("text %q chunkSize %d: chunk %d has %d clusters", text, chunkSize, i, n)
				}
			}
			joined := strings.Join(chunks, "")
			if want := lineBreakReplacer.Replace(text); joined != want {
				t.Errorf("text %q chunkSize %d: content changed:\ngot  %q\nwant %q", text, chunkSize, joined, want)
			}
		}
	}
}

func TestSplitterDeterministic(t *testing.T) {
	splitter := NewSplitter()
	first, err := splitter.Split(passage88, 44)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		again, err := splitter.Split(passage88, 44)
		if err != nil {
			t.Fatal(err)
		}
		if len(again) != len(first) {
			t.Fatalf("run %d: chunk count changed", i)
		}
		for j := range again {
			if again[j] != first[j] {
				t.Fatalf("run %d: chunk %d changed", i, j)
			}
		}
	}
}
