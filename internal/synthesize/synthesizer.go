package synthesize

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"github.com/savegress/oncotrace/internal/resolver"
	"github.com/savegress/oncotrace/pkg/models"
)

// Synthesizer assembles placeholder documents from raw per-patient text
// fragments when no stored document resolves for a claimed reference.
// Generated documents are always banner-marked as auto-generated; they must
// never be mistakable for a genuine source document.
type Synthesizer struct {
	now func() time.Time
}

// New creates a synthesizer
func New() *Synthesizer {
	return &Synthesizer{now: time.Now}
}

// Synthesize builds a generated document for the claimed filename from
// fragments belonging to the patient name guessed from that filename.
// Returns nil when no fragments match: content is never invented from
// nothing, and callers must then surface a genuine "document truly
// missing" error.
func (s *Synthesizer) Synthesize(claimedFilename string, fragments []models.TextFragment) (*models.GeneratedDocument, error) {
	tokens := resolver.NameTokens(claimedFilename)
	if len(tokens) == 0 {
		return nil, nil
	}
	guessedName := strings.Join(tokens, " ")

	matched := selectFragments(tokens, fragments)
	if len(matched) == 0 {
		return nil, nil
	}

	content := s.assemble(claimedFilename, guessedName, matched)

	doc := models.DocumentRecord{
		Filename:    claimedFilename,
		Type:        models.DocumentTypeClinicalNotes,
		ContentType: models.ContentTypeHTML,
		Content:     content,
		SizeBytes:   int64(len(content)),
		Generated:   true,
		UploadDate:  s.now().UTC(),
	}

	return &models.GeneratedDocument{
		Document:     doc,
		GuessedName:  guessedName,
		SectionCount: len(matched),
	}, nil
}

// selectFragments keeps fragments whose patient-name key contains every
// guessed-name token, in stable section order so output is deterministic
// for identical inputs. Any-token matching would let a patient sharing one
// name leak records into another patient's placeholder.
func selectFragments(tokens []string, fragments []models.TextFragment) []models.TextFragment {
	var matched []models.TextFragment
	for _, f := range fragments {
		key := strings.ToLower(f.PatientName)
		all := true
		for _, tok := range tokens {
			if !strings.Contains(key, tok) {
				all = false
				break
			}
		}
		if all {
			matched = append(matched, f)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Section < matched[j].Section
	})
	return matched
}

func (s *Synthesizer) assemble(filename, guessedName string, fragments []models.TextFragment) string {
	var b strings.Builder

	b.WriteString("<div class=\"generated-document\">")
	fmt.Fprintf(&b,
		"<div class=\"generated-banner\" role=\"note\">AUTO-GENERATED PLACEHOLDER - assembled from available records for %s; the original document %q was not found</div>",
		html.EscapeString(guessedName), html.EscapeString(filename))

	for _, f := range fragments {
		fmt.Fprintf(&b, "<h3>%s</h3>", html.EscapeString(strings.ToUpper(f.Section)))
		fmt.Fprintf(&b, "<pre>%s</pre>", html.EscapeString(f.Text))
	}

	b.WriteString("</div>")
	return b.String()
}
