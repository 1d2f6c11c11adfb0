package resolver

import (
	"errors"
	"sort"
	"strings"
	"unicode"

	"github.com/savegress/oncotrace/internal/config"
	"github.com/savegress/oncotrace/pkg/models"
)

// ErrNoDocumentResolved is returned when no candidate shares identity with
// the claimed reference. Callers must fall through to the synthesizer
// rather than return an arbitrary document.
var ErrNoDocumentResolved = errors.New("no document resolved for claimed reference")

// Resolver maps possibly-incorrect document references onto stored
// documents. Resolution is pure: the same reference against the same
// candidate set always yields the same result.
type Resolver struct {
	cfg *config.ResolverConfig
}

// New creates a resolver
func New(cfg *config.ResolverConfig) *Resolver {
	if cfg == nil {
		defaults := config.Default().Resolver
		cfg = &defaults
	}
	return &Resolver{cfg: cfg}
}

// Resolve confirms or remaps the claimed reference. Step 1: verbatim id or
// filename match. Step 2: name-token overlap against candidate filenames.
// Step 3: no shared tokens at all is a hard failure; returning a wrong
// document silently is the hazard this component exists to prevent.
func (r *Resolver) Resolve(claimedRef string, candidates []models.DocumentRecord) (models.ResolutionResult, error) {
	claimedRef = strings.TrimSpace(claimedRef)
	if claimedRef == "" {
		return models.ResolutionResult{}, ErrNoDocumentResolved
	}

	for i := range candidates {
		if candidates[i].ID == claimedRef || candidates[i].Filename == claimedRef {
			return models.ResolutionResult{
				ResolvedDocument: &candidates[i],
				MappingType:      models.MappingExact,
				Confidence:       1.0,
			}, nil
		}
	}

	tokens := NameTokens(claimedRef)
	if len(tokens) == 0 {
		return models.ResolutionResult{}, ErrNoDocumentResolved
	}

	bestIdx := -1
	bestShared := 0
	for i := range candidates {
		shared := sharedTokens(tokens, candidates[i].Filename)
		if shared > bestShared {
			bestShared = shared
			bestIdx = i
		}
	}

	if bestIdx < 0 || bestShared < r.cfg.MinSharedTokens {
		return models.ResolutionResult{}, ErrNoDocumentResolved
	}

	return models.ResolutionResult{
		ResolvedDocument: &candidates[bestIdx],
		MappingType:      models.MappingFuzzy,
		Confidence:       0.9 * float64(bestShared) / float64(len(tokens)),
	}, nil
}

// Suggest ranks alternative documents for a failed or uncertain resolution,
// using the same token overlap as Resolve. Used by the "document not found"
// error surface.
func (r *Resolver) Suggest(claimedRef string, candidates []models.DocumentRecord) []models.DocumentRecord {
	limit := r.cfg.SuggestionLimit
	if limit <= 0 {
		limit = 5
	}

	tokens := NameTokens(claimedRef)

	type scored struct {
		doc   models.DocumentRecord
		score int
		pos   int
	}
	ranked := make([]scored, 0, len(candidates))
	for i, c := range candidates {
		ranked = append(ranked, scored{doc: c, score: sharedTokens(tokens, c.Filename), pos: i})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].pos < ranked[j].pos
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	out := make([]models.DocumentRecord, len(ranked))
	for i, s := range ranked {
		out[i] = s.doc
	}
	return out
}

// documentExtensions are filename suffixes that tokenize like name words
// but carry no patient identity
var documentExtensions = map[string]bool{
	"pdf":  true,
	"html": true,
	"htm":  true,
	"txt":  true,
	"doc":  true,
	"docx": true,
	"rtf":  true,
}

// NameTokens extracts name-like tokens from a claimed reference: the first
// two purely alphabetic tokens after the file extension is stripped,
// lower-cased. Filenames produced by the extraction pipeline tend to lead
// with patient first/last name; a bare "pdf" must never count as one.
func NameTokens(ref string) []string {
	ref = trimExtension(ref)
	fields := strings.FieldsFunc(ref, func(r rune) bool {
		return !unicode.IsLetter(r)
	})

	var tokens []string
	for _, f := range fields {
		tokens = append(tokens, strings.ToLower(f))
		if len(tokens) == 2 {
			break
		}
	}
	return tokens
}

// trimExtension drops a trailing document extension so "jones_robert.pdf"
// and "jones_robert" tokenize identically
func trimExtension(ref string) string {
	if i := strings.LastIndexByte(ref, '.'); i >= 0 {
		if documentExtensions[strings.ToLower(ref[i+1:])] {
			return ref[:i]
		}
	}
	return ref
}

// sharedTokens counts claimed name tokens appearing in the filename
func sharedTokens(tokens []string, filename string) int {
	lower := strings.ToLower(filename)
	count := 0
	for _, tok := range tokens {
		if strings.Contains(lower, tok) {
			count++
		}
	}
	return count
}
