package ingest

import (
	"reflect"
	"strings"
	"testing"
)

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			"basic",
			"First sentence. Second one! Third?",
			[]string{"First sentence.", "Second one!", "Third?"},
		},
		{
			"trailing remainder",
			"Complete sentence. Dangling fragment",
			[]string{"Complete sentence.", "Dangling fragment"},
		},
		{
			"no terminator",
			"just a fragment",
			[]string{"just a fragment"},
		},
		{
			"empty",
			"   ",
			nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitSentences(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitSentences(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestSplitTextSingleChunk(t *testing.T) {
	chunks := SplitText("Short text. Fits easily.", 1000, 200)
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0] != "Short text. Fits easily." {
		t.Errorf("chunk = %q", chunks[0])
	}
}

func TestSplitTextRespectsChunkSize(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("This sentence pads the document with some length. ")
	}
	chunks := SplitText(b.String(), 200, 0)
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want several", len(chunks))
	}
	for i, c := range chunks {
		// joined sentences may exceed the budget by at most one sentence
		if len(c) > 300 {
			t.Errorf("chunk %d is %d chars", i, len(c))
		}
	}
}

func TestSplitTextOverlap(t *testing.T) {
	text := "Sentence alpha is here. Sentence bravo is here. Sentence charlie is here. Sentence delta is here."
	chunks := SplitText(text, 50, 20)
	if len(chunks) < 2 {
		t.Fatalf("got %d chunks, want at least 2", len(chunks))
	}
	// with 20/10 = 2 sentences of overlap, each later chunk starts with
	// sentences already seen at the end of the previous one
	for i := 1; i < len(chunks); i++ {
		first := strings.SplitN(chunks[i], ".", 2)[0] + "."
		if !strings.Contains(chunks[i-1], first) {
			t.Errorf("chunk %d does not overlap its predecessor: %q / %q", i, chunks[i-1], chunks[i])
		}
	}
}

func TestSplitTextEmpty(t *testing.T) {
	if chunks := SplitText("", 100, 10); chunks != nil {
		t.Errorf("chunks = %v, want nil", chunks)
	}
}
