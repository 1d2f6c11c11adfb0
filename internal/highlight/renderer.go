package highlight

import (
	"fmt"
	"html"
	"net/url"
	"strings"

	"github.com/savegress/oncotrace/internal/config"
	"github.com/savegress/oncotrace/pkg/models"
)

// FirstMatchMarkerID is the stable element id carried by the first matched
// span, used by the viewport to scroll it into view
const FirstMatchMarkerID = "source-match-first"

// Meta carries match provenance into rendering
type Meta struct {
	IsPreIdentified bool
	Confidence      float64
	Reasoning       string
	SearchedText    string
}

// Annotated is an HTML-embeddable rendering of document content with
// matched spans marked
type Annotated struct {
	HTML          string `json:"html"`
	MatchCount    int    `json:"match_count"`
	FirstMarkerID string `json:"first_marker_id,omitempty"`
	Banner        string `json:"banner,omitempty"`
}

// ViewportController abstracts scroll-into-view so match computation never
// touches a live rendering tree. The server side uses Noop; a browser
// adapter implements it over the real DOM.
type ViewportController interface {
	ScrollToFirstMatch(markerID string)
}

// Noop is the server-side ViewportController
type Noop struct{}

func (Noop) ScrollToFirstMatch(string) {}

// Renderer produces annotated document views and external-viewer deep links
type Renderer struct {
	cfg *config.ViewerConfig
}

// New creates a renderer
func New(cfg *config.ViewerConfig) *Renderer {
	if cfg == nil {
		defaults := config.Default().Viewer
		cfg = &defaults
	}
	return &Renderer{cfg: cfg}
}

// Render marks every occurrence of the matched text in content. The first
// occurrence carries the stable scroll marker; pre-identified and ad-hoc
// matches get distinct classes so the UI can signal provenance. When the
// match failed, a visible banner names the searched text instead of
// silently showing unhighlighted content.
func (r *Renderer) Render(content string, match models.MatchResult, meta Meta) Annotated {
	if !match.Found || match.MatchedText == "" {
		return Annotated{
			HTML:   r.notFoundBanner(meta) + "<div class=\"source-document\">" + html.EscapeString(content) + "</div>",
			Banner: fmt.Sprintf("Could not locate %q automatically - use manual search", meta.SearchedText),
		}
	}

	class := "source-match source-match-manual"
	if meta.IsPreIdentified {
		class = "source-match source-match-extracted"
	}
	if meta.Confidence > 0 && meta.Confidence < 0.5 {
		class += " source-match-uncertain"
	}

	var b strings.Builder
	b.WriteString("<div class=\"source-document\">")

	count := 0
	rest := content
	for {
		idx := strings.Index(rest, match.MatchedText)
		if idx < 0 {
			b.WriteString(html.EscapeString(rest))
			break
		}
		b.WriteString(html.EscapeString(rest[:idx]))
		if count == 0 {
			fmt.Fprintf(&b, "<mark id=%q class=%q>", FirstMatchMarkerID, class)
		} else {
			fmt.Fprintf(&b, "<mark class=%q>", class)
		}
		b.WriteString(html.EscapeString(match.MatchedText))
		b.WriteString("</mark>")
		count++
		rest = rest[idx+len(match.MatchedText):]
	}
	b.WriteString("</div>")

	annotated := Annotated{
		HTML:       b.String(),
		MatchCount: count,
	}
	if count > 0 {
		annotated.FirstMarkerID = FirstMatchMarkerID
	}
	return annotated
}

// RenderPlain returns the document content with no markers and no banner,
// for snippets too short to search. Rendering nothing extra is deliberate:
// a too-short snippet is not an error the user needs to see.
func (r *Renderer) RenderPlain(content string) Annotated {
	return Annotated{
		HTML: "<div class=\"source-document\">" + html.EscapeString(content) + "</div>",
	}
}

// DeepLink builds an external-viewer URL carrying the search text, for
// formats the renderer cannot annotate in place (PDF)
func (r *Renderer) DeepLink(filename, searchText string) string {
	link := strings.TrimRight(r.cfg.PDFBaseURL, "/") + "/" + url.PathEscape(filename)
	if searchText != "" {
		link += "?search=" + url.QueryEscape(searchText)
	}
	return link
}

func (r *Renderer) notFoundBanner(meta Meta) string {
	return fmt.Sprintf(
		"<div class=\"source-match-missing\" role=\"alert\">Searching for %q - no automatic match, use manual search</div>",
		html.EscapeString(meta.SearchedText),
	)
}
