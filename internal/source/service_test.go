package source

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/savegress/oncotrace/internal/audit"
	"github.com/savegress/oncotrace/internal/docstore"
	"github.com/savegress/oncotrace/internal/highlight"
	"github.com/savegress/oncotrace/internal/matching"
	"github.com/savegress/oncotrace/internal/resolver"
	"github.com/savegress/oncotrace/internal/synthesize"
	"github.com/savegress/oncotrace/pkg/models"
)

func newService(t *testing.T) (*Service, *docstore.Store, *audit.Logger) {
	t.Helper()
	store := docstore.New(nil)
	auditLog := audit.NewLogger(nil)
	if err := auditLog.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(auditLog.Stop)

	svc := NewService(store, resolver.New(nil), matching.NewChain(nil), highlight.New(nil), synthesize.New(), auditLog)
	return svc, store, auditLog
}

func seedDocument(t *testing.T, store *docstore.Store, filename, patientID, content string) {
	t.Helper()
	_, err := store.PutDocument(models.DocumentRecord{
		Filename:    filename,
		PatientID:   patientID,
		Type:        models.DocumentTypePathology,
		ContentType: models.ContentTypeText,
		Content:     content,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestLocate_ExactDocumentExactMatch(t *testing.T) {
	svc, store, _ := newService(t)
	seedDocument(t, store, "doe_john_pathology.txt", "p1", "Primary site: Breast, upper outer quadrant")

	result, err := svc.Locate(context.Background(), models.SourceClaim{
		DocumentID:      "doe_john_pathology.txt",
		PatientID:       "p1",
		FieldName:       "primary_site",
		Snippet:         "Breast, upper outer quadrant",
		IsPreIdentified: true,
	})
	if err != nil {
		t.Fatalf("locate: %v", err)
	}

	if result.Resolution.MappingType != models.MappingExact {
		t.Errorf("mapping = %s, want exact", result.Resolution.MappingType)
	}
	if result.Resolution.Confidence != 1.0 {
		t.Errorf("resolution confidence = %f", result.Resolution.Confidence)
	}
	if result.Match.StrategyUsed != models.StrategyExact {
		t.Errorf("strategy = %s, want exact", result.Match.StrategyUsed)
	}
	if result.Annotated == nil || !strings.Contains(result.Annotated.HTML, "<mark") {
		t.Error("expected annotated content with markers")
	}
	if !strings.Contains(result.Annotated.HTML, "source-match-extracted") {
		t.Error("pre-identified claim should use the extracted color scheme")
	}
}

func TestLocate_FuzzyDocumentRemap(t *testing.T) {
	svc, store, _ := newService(t)
	seedDocument(t, store, "pathology_chen_michael_1.txt", "p1", "A mass was identified")

	result, err := svc.Locate(context.Background(), models.SourceClaim{
		DocumentID: "chen_michael_pathology.pdf",
		PatientID:  "p1",
		Snippet:    "tumor",
	})
	if err != nil {
		t.Fatalf("locate: %v", err)
	}

	if result.Resolution.MappingType != models.MappingFuzzy {
		t.Errorf("mapping = %s, want fuzzy", result.Resolution.MappingType)
	}
	if result.Resolution.ResolvedDocument.Filename != "pathology_chen_michael_1.txt" {
		t.Errorf("resolved to %s", result.Resolution.ResolvedDocument.Filename)
	}
	if result.Match.StrategyUsed != models.StrategySynonym {
		t.Errorf("strategy = %s, want synonym", result.Match.StrategyUsed)
	}
	if result.Match.MatchedText != "mass" {
		t.Errorf("matched %q", result.Match.MatchedText)
	}
}

func TestLocate_SynthesizesWhenNothingResolves(t *testing.T) {
	svc, store, _ := newService(t)
	seedDocument(t, store, "pathology_MRN001235_1.txt", "p1", "unrelated")
	store.AddFragment(models.TextFragment{PatientName: "garcia maria", Section: "pathology", Text: "Primary site: breast"})

	claim := models.SourceClaim{
		DocumentID: "garcia_maria_summary.pdf",
		PatientID:  "p1",
		Snippet:    "Primary site: breast",
	}
	result, err := svc.Locate(context.Background(), claim)
	if err != nil {
		t.Fatalf("locate: %v", err)
	}

	if result.Resolution.MappingType != models.MappingGenerated {
		t.Fatalf("mapping = %s, want generated", result.Resolution.MappingType)
	}
	doc := result.Resolution.ResolvedDocument
	if !doc.Generated {
		t.Error("resolved document not flagged generated")
	}
	if !strings.Contains(doc.Content, "AUTO-GENERATED PLACEHOLDER") {
		t.Error("generated document missing provenance banner")
	}

	// The write-back is visible in the store
	stored, err := store.Document("garcia_maria_summary.pdf")
	if err != nil {
		t.Fatalf("generated document not persisted: %v", err)
	}
	if !stored.Generated {
		t.Error("stored document lost its generated flag")
	}

	// A second resolution of the same filename now hits the generated
	// document verbatim instead of re-synthesizing
	again, err := svc.Locate(context.Background(), claim)
	if err != nil {
		t.Fatalf("second locate: %v", err)
	}
	if again.Resolution.MappingType != models.MappingExact {
		t.Errorf("second mapping = %s, want exact", again.Resolution.MappingType)
	}
}

func TestLocate_MissingDocumentWithSuggestions(t *testing.T) {
	svc, store, _ := newService(t)
	seedDocument(t, store, "pathology_MRN001235_1.txt", "p1", "unrelated")

	_, err := svc.Locate(context.Background(), models.SourceClaim{
		DocumentID: "chen_michael_pathology.pdf",
		PatientID:  "p1",
		Snippet:    "anything",
	})

	var missing *MissingDocumentError
	if !errors.As(err, &missing) {
		t.Fatalf("err = %v, want MissingDocumentError", err)
	}
	if missing.ClaimedRef != "chen_michael_pathology.pdf" {
		t.Errorf("claimed ref = %s", missing.ClaimedRef)
	}
	if len(missing.Suggestions) == 0 {
		t.Error("expected alternative suggestions")
	}
}

func TestLocate_ResolutionNeverCrossesPatients(t *testing.T) {
	svc, store, _ := newService(t)
	seedDocument(t, store, "imaging_jones_robert_2.txt", "p2", "unrelated")

	// The claimed patient has no documents; another patient's matching
	// filename must not be remapped onto the claim
	_, err := svc.Locate(context.Background(), models.SourceClaim{
		DocumentID: "jones_robert_summary.pdf",
		PatientID:  "p1",
		Snippet:    "anything",
	})

	var missing *MissingDocumentError
	if !errors.As(err, &missing) {
		t.Fatalf("err = %v, want MissingDocumentError", err)
	}
}

func TestLocate_PDFGetsDeepLink(t *testing.T) {
	svc, store, _ := newService(t)
	_, err := store.PutDocument(models.DocumentRecord{
		Filename:    "doe_john_imaging.pdf",
		PatientID:   "p1",
		ContentType: models.ContentTypePDF,
	})
	if err != nil {
		t.Fatal(err)
	}

	result, err := svc.Locate(context.Background(), models.SourceClaim{
		DocumentID: "doe_john_imaging.pdf",
		PatientID:  "p1",
		Snippet:    "4.2 cm",
	})
	if err != nil {
		t.Fatalf("locate: %v", err)
	}

	if result.DeepLinkURL == "" {
		t.Fatal("expected deep link for PDF")
	}
	if !strings.Contains(result.DeepLinkURL, "search=") {
		t.Errorf("deep link missing search text: %s", result.DeepLinkURL)
	}
	if result.Annotated != nil {
		t.Error("PDF content must not be annotated in place")
	}
}

func TestLocate_TooShortSnippetRendersPlain(t *testing.T) {
	svc, store, _ := newService(t)
	seedDocument(t, store, "a.txt", "p1", "document content")

	result, err := svc.Locate(context.Background(), models.SourceClaim{
		DocumentID: "a.txt",
		PatientID:  "p1",
		Snippet:    "a",
	})
	if err != nil {
		t.Fatalf("locate: %v", err)
	}

	if result.Match.Found {
		t.Error("one-character snippet must never match")
	}
	if result.Annotated == nil {
		t.Fatal("expected plain rendering")
	}
	if result.Annotated.Banner != "" {
		t.Errorf("too-short snippet is not an error, got banner %q", result.Annotated.Banner)
	}
	if strings.Contains(result.Annotated.HTML, "<mark") {
		t.Error("unexpected markers")
	}
}

func TestLocate_NoTextMatchRendersBanner(t *testing.T) {
	svc, store, _ := newService(t)
	seedDocument(t, store, "a.txt", "p1", "alpha beta gamma")

	result, err := svc.Locate(context.Background(), models.SourceClaim{
		DocumentID: "a.txt",
		PatientID:  "p1",
		FieldName:  "histology",
		Snippet:    "zzzz qqqq",
	})
	if err != nil {
		t.Fatalf("locate: %v", err)
	}

	if result.Match.Found {
		t.Error("unexpected match")
	}
	if result.Annotated.Banner == "" {
		t.Error("failed match must surface a visible banner")
	}
	if !strings.Contains(result.Annotated.HTML, "alpha beta gamma") {
		t.Error("document content dropped")
	}
}

func TestLocate_HTMLDocumentMatchedOnVisibleText(t *testing.T) {
	svc, store, _ := newService(t)
	_, err := store.PutDocument(models.DocumentRecord{
		Filename:    "report.html",
		PatientID:   "p1",
		ContentType: models.ContentTypeHTML,
		Content:     "<html><body><p>Histologic type: <b>adenocarcinoma</b>, grade 2</p></body></html>",
	})
	if err != nil {
		t.Fatal(err)
	}

	result, err := svc.Locate(context.Background(), models.SourceClaim{
		DocumentID: "report.html",
		PatientID:  "p1",
		Snippet:    "adenocarcinoma, grade 2",
	})
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	if !result.Match.Found {
		t.Fatal("expected match across inline markup")
	}
	if strings.Contains(result.Annotated.HTML, "&lt;b&gt;") {
		t.Error("markup leaked into the rendered text")
	}
}
