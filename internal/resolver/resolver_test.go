package resolver

import (
	"errors"
	"reflect"
	"testing"

	"github.com/savegress/oncotrace/pkg/models"
)

func docs(filenames ...string) []models.DocumentRecord {
	out := make([]models.DocumentRecord, len(filenames))
	for i, f := range filenames {
		out[i] = models.DocumentRecord{ID: f, Filename: f}
	}
	return out
}

func TestResolve_ExactFilename(t *testing.T) {
	r := New(nil)
	candidates := docs("doe_john_pathology.pdf", "smith_jane_imaging.pdf")

	result, err := r.Resolve("doe_john_pathology.pdf", candidates)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.MappingType != models.MappingExact {
		t.Errorf("mapping type = %s, want exact", result.MappingType)
	}
	if result.Confidence != 1.0 {
		t.Errorf("confidence = %f, want 1.0 for exact mapping", result.Confidence)
	}
	if result.ResolvedDocument.Filename != "doe_john_pathology.pdf" {
		t.Errorf("resolved wrong document: %s", result.ResolvedDocument.Filename)
	}
}

func TestResolve_FuzzyByNameTokens(t *testing.T) {
	r := New(nil)
	candidates := docs("pathology_smith_jane_1.pdf", "imaging_MRN9_2.pdf")

	result, err := r.Resolve("smith_jane_clinical.pdf", candidates)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.MappingType != models.MappingFuzzy {
		t.Errorf("mapping type = %s, want fuzzy", result.MappingType)
	}
	if result.ResolvedDocument.Filename != "pathology_smith_jane_1.pdf" {
		t.Errorf("resolved wrong document: %s", result.ResolvedDocument.Filename)
	}
	// Both name tokens shared: full overlap, high confidence
	if result.Confidence < 0.85 {
		t.Errorf("confidence = %f, want high for full token overlap", result.Confidence)
	}
}

func TestResolve_PartialOverlapLowersConfidence(t *testing.T) {
	r := New(nil)
	candidates := docs("notes_smith_2.pdf")

	result, err := r.Resolve("smith_jane_notes.pdf", candidates)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.MappingType != models.MappingFuzzy {
		t.Errorf("mapping type = %s, want fuzzy", result.MappingType)
	}
	if result.Confidence >= 0.85 {
		t.Errorf("confidence = %f, want lowered for partial overlap", result.Confidence)
	}
}

func TestResolve_NoSharedTokens(t *testing.T) {
	r := New(nil)
	candidates := docs("pathology_MRN001235_1.pdf")

	_, err := r.Resolve("chen_michael_pathology.pdf", candidates)
	if !errors.Is(err, ErrNoDocumentResolved) {
		t.Fatalf("err = %v, want ErrNoDocumentResolved", err)
	}
}

func TestResolve_ExtensionAloneNeverRemaps(t *testing.T) {
	r := New(nil)
	candidates := docs("imaging_jones_robert_2.pdf")

	// The claimed reference carries no name tokens, only an MRN and an
	// extension; a shared ".pdf" must not resolve to another document
	_, err := r.Resolve("MRN001234_1.pdf", candidates)
	if !errors.Is(err, ErrNoDocumentResolved) {
		t.Fatalf("err = %v, want ErrNoDocumentResolved", err)
	}
}

func TestResolve_EmptyReference(t *testing.T) {
	r := New(nil)
	_, err := r.Resolve("  ", docs("a.pdf"))
	if !errors.Is(err, ErrNoDocumentResolved) {
		t.Fatalf("err = %v, want ErrNoDocumentResolved", err)
	}
}

func TestResolve_Idempotent(t *testing.T) {
	r := New(nil)
	candidates := docs("pathology_jones_robert_1.pdf", "imaging_jones_2.pdf")

	first, err1 := r.Resolve("jones_robert_summary.pdf", candidates)
	second, err2 := r.Resolve("jones_robert_summary.pdf", candidates)

	if err1 != nil || err2 != nil {
		t.Fatalf("errors: %v %v", err1, err2)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("resolution not idempotent: %+v vs %+v", first, second)
	}
}

func TestNameTokens(t *testing.T) {
	tokens := NameTokens("chen_michael_pathology.pdf")
	if len(tokens) != 2 || tokens[0] != "chen" || tokens[1] != "michael" {
		t.Errorf("tokens = %v", tokens)
	}

	if got := NameTokens("12345_999.pdf"); got != nil {
		t.Errorf("tokens = %v, want nil, an extension is not a name", got)
	}

	if got := NameTokens("chen.michael"); len(got) != 2 || got[0] != "chen" || got[1] != "michael" {
		t.Errorf("tokens = %v, dotted names are not extensions", got)
	}

	if got := NameTokens(""); got != nil {
		t.Errorf("tokens = %v, want nil", got)
	}
}

func TestSuggest_RankedByOverlap(t *testing.T) {
	r := New(nil)
	candidates := docs(
		"imaging_MRN9_1.pdf",
		"pathology_garcia_maria_1.pdf",
		"notes_garcia_2.pdf",
	)

	suggestions := r.Suggest("garcia_maria_pathology.pdf", candidates)
	if len(suggestions) == 0 {
		t.Fatal("expected suggestions")
	}
	if suggestions[0].Filename != "pathology_garcia_maria_1.pdf" {
		t.Errorf("top suggestion = %s", suggestions[0].Filename)
	}
	if suggestions[1].Filename != "notes_garcia_2.pdf" {
		t.Errorf("second suggestion = %s", suggestions[1].Filename)
	}
}
