package snippet

import (
	"regexp"
	"testing"
)

func TestNormalize_TooShort(t *testing.T) {
	cases := []string{"", "a", " ", "  x  "}
	for _, raw := range cases {
		n := Normalize(raw)
		if !n.TooShort {
			t.Errorf("Normalize(%q): expected TooShort", raw)
		}
		if len(n.Words) != 0 {
			t.Errorf("Normalize(%q): too-short input should produce no words", raw)
		}
	}
}

func TestNormalize_Variants(t *testing.T) {
	n := Normalize("  Breast, upper outer quadrant ")

	if n.TooShort {
		t.Fatal("unexpected TooShort")
	}
	if n.Trimmed != "Breast, upper outer quadrant" {
		t.Errorf("trimmed = %q", n.Trimmed)
	}
	if n.Folded != "breast, upper outer quadrant" {
		t.Errorf("folded = %q", n.Folded)
	}
	if n.Stripped != "Breast upper outer quadrant" {
		t.Errorf("stripped = %q", n.Stripped)
	}
	if len(n.Words) != 4 {
		t.Fatalf("expected 4 words, got %d: %v", len(n.Words), n.WordTexts())
	}
}

func TestNormalize_StopwordFlags(t *testing.T) {
	n := Normalize("the size of the tumor")

	want := map[string]bool{"the": true, "size": false, "of": true, "tumor": false}
	for _, w := range n.Words {
		expected, ok := want[w.Text]
		if !ok {
			t.Errorf("unexpected word %q", w.Text)
			continue
		}
		if w.Stopword != expected {
			t.Errorf("word %q: stopword = %v, want %v", w.Text, w.Stopword, expected)
		}
	}

	content := n.ContentWords()
	if len(content) != 2 || content[0] != "size" || content[1] != "tumor" {
		t.Errorf("content words = %v", content)
	}
}

func TestQuotedTrimmed_EscapesMetacharacters(t *testing.T) {
	n := Normalize(`size (.*+?^$) 4.2 cm [x]`)

	pattern := n.QuotedTrimmed()
	re, err := regexp.Compile(pattern)
	if err != nil {
		t.Fatalf("quoted pattern failed to compile: %v", err)
	}

	// The escaped pattern must match only the literal text, not everything
	if re.MatchString("completely unrelated text") {
		t.Error("escaped pattern matched unrelated text")
	}
	if !re.MatchString(`prefix size (.*+?^$) 4.2 cm [x] suffix`) {
		t.Error("escaped pattern did not match its own literal")
	}
}

func TestNormalize_WordSplitOnPunctuation(t *testing.T) {
	n := Normalize("T2, N1, M0")

	words := n.WordTexts()
	if len(words) != 3 {
		t.Fatalf("expected 3 words, got %v", words)
	}
	if words[0] != "t2" || words[1] != "n1" || words[2] != "m0" {
		t.Errorf("words = %v", words)
	}
}
