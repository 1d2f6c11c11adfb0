package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/savegress/oncotrace/internal/audit"
	"github.com/savegress/oncotrace/internal/docstore"
	"github.com/savegress/oncotrace/internal/highlight"
	"github.com/savegress/oncotrace/internal/matching"
	"github.com/savegress/oncotrace/internal/resolver"
	"github.com/savegress/oncotrace/internal/snippet"
	"github.com/savegress/oncotrace/internal/synthesize"
	"github.com/savegress/oncotrace/pkg/models"
)

// generatedConfidence is the resolution confidence attached to synthesized
// placeholders; low enough that the UI flags them as uncertain
const generatedConfidence = 0.3

// MissingDocumentError reports a claim whose reference resolved to nothing
// and for which no fragments existed to synthesize a placeholder. It
// carries alternative documents for the same patient so the UI can offer
// them instead of a dead end.
type MissingDocumentError struct {
	ClaimedRef  string
	Suggestions []models.DocumentRecord
}

func (e *MissingDocumentError) Error() string {
	return fmt.Sprintf("document not found for claimed reference %q", e.ClaimedRef)
}

// LocateResult is everything the UI needs to display a located claim
type LocateResult struct {
	Resolution  models.ResolutionResult `json:"resolution"`
	Match       models.MatchResult      `json:"match"`
	Annotated   *highlight.Annotated    `json:"annotated,omitempty"`
	DeepLinkURL string                  `json:"deep_link_url,omitempty"`
}

// Service orchestrates the claim pipeline: resolve the document (falling
// back to synthesis), normalize the snippet, run the strategy chain, and
// render the result. Everything except the one generated-document write is
// pure, so concurrent field clicks are independent.
type Service struct {
	store    *docstore.Store
	resolver *resolver.Resolver
	chain    *matching.Chain
	renderer *highlight.Renderer
	synth    *synthesize.Synthesizer
	audit    *audit.Logger
	viewport highlight.ViewportController
}

// NewService wires the pipeline
func NewService(store *docstore.Store, res *resolver.Resolver, chain *matching.Chain, renderer *highlight.Renderer, synth *synthesize.Synthesizer, auditLog *audit.Logger) *Service {
	return &Service{
		store:    store,
		resolver: res,
		chain:    chain,
		renderer: renderer,
		synth:    synth,
		audit:    auditLog,
		viewport: highlight.Noop{},
	}
}

// SetViewport installs a scroll adapter. The default is a no-op.
func (s *Service) SetViewport(v highlight.ViewportController) {
	if v != nil {
		s.viewport = v
	}
}

// Locate handles a field-click claim end to end
func (s *Service) Locate(ctx context.Context, claim models.SourceClaim) (*LocateResult, error) {
	doc, resolution, err := s.resolveDocument(ctx, claim)
	if err != nil {
		return nil, err
	}

	result := &LocateResult{Resolution: resolution}

	// External viewers cannot be annotated in place; hand the UI a deep
	// link carrying the search text instead
	if doc.ContentType == models.ContentTypePDF {
		result.Match = models.MatchResult{Found: false, StrategyUsed: models.StrategyNone, SpanStart: -1, SpanEnd: -1}
		result.DeepLinkURL = s.renderer.DeepLink(doc.Filename, claim.Snippet)
		return result, nil
	}

	text := s.store.SearchText(doc)
	sn := snippet.Normalize(claim.Snippet)

	if sn.TooShort {
		result.Match = models.MatchResult{Found: false, StrategyUsed: models.StrategyNone, SpanStart: -1, SpanEnd: -1}
		annotated := s.renderer.RenderPlain(text)
		result.Annotated = &annotated
		return result, nil
	}

	result.Match = s.chain.Find(text, sn)
	if !result.Match.Found {
		s.audit.LogMatchMissed(ctx, claim, doc.Filename)
	}

	annotated := s.renderer.Render(text, result.Match, highlight.Meta{
		IsPreIdentified: claim.IsPreIdentified,
		Confidence:      result.Match.Confidence,
		Reasoning:       claim.Reasoning,
		SearchedText:    claim.Snippet,
	})
	result.Annotated = &annotated

	if result.Match.Found {
		s.viewport.ScrollToFirstMatch(annotated.FirstMarkerID)
	}

	return result, nil
}

// ResolveDocument maps a claimed reference without running the matcher,
// for the document-serving route's 404 fallback
func (s *Service) ResolveDocument(ctx context.Context, claim models.SourceClaim) (models.DocumentRecord, models.ResolutionResult, error) {
	return s.resolveDocument(ctx, claim)
}

func (s *Service) resolveDocument(ctx context.Context, claim models.SourceClaim) (models.DocumentRecord, models.ResolutionResult, error) {
	candidates := s.candidates(claim.PatientID)

	resolution, err := s.resolver.Resolve(claim.DocumentID, candidates)
	if err == nil {
		s.audit.LogResolution(ctx, claim, resolution)
		return *resolution.ResolvedDocument, resolution, nil
	}
	if !errors.Is(err, resolver.ErrNoDocumentResolved) {
		return models.DocumentRecord{}, models.ResolutionResult{}, err
	}

	// Nothing resolved; assemble a placeholder from raw fragments rather
	// than silently returning a wrong document
	gen, err := s.synth.Synthesize(claim.DocumentID, s.store.Fragments())
	if err != nil {
		return models.DocumentRecord{}, models.ResolutionResult{}, err
	}
	if gen == nil {
		return models.DocumentRecord{}, models.ResolutionResult{}, &MissingDocumentError{
			ClaimedRef:  claim.DocumentID,
			Suggestions: s.resolver.Suggest(claim.DocumentID, candidates),
		}
	}

	gen.Document.PatientID = claim.PatientID
	stored, err := s.store.PutGenerated(gen.Document)
	if err != nil {
		return models.DocumentRecord{}, models.ResolutionResult{}, fmt.Errorf("store generated document: %w", err)
	}
	s.audit.LogSynthesis(ctx, claim.DocumentID, gen)

	resolution = models.ResolutionResult{
		ResolvedDocument: &stored,
		MappingType:      models.MappingGenerated,
		Confidence:       generatedConfidence,
	}
	s.audit.LogResolution(ctx, claim, resolution)
	return stored, resolution, nil
}

// candidates scopes resolution to the claimed patient's documents. When
// the patient has none, the set stays empty: remapping onto another
// patient's document is worse than falling through to synthesis or a
// missing-document error.
func (s *Service) candidates(patientID string) []models.DocumentRecord {
	if patientID != "" {
		return s.store.DocumentsForPatient(patientID)
	}
	return s.store.AllDocuments()
}
