package matching

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/savegress/oncotrace/internal/config"
	"github.com/savegress/oncotrace/internal/snippet"
	"github.com/savegress/oncotrace/pkg/models"
)

// Strategy is one text-matching heuristic in the chain. Match returns the
// located span and true on a hit; a miss (or an internal pattern failure)
// returns false so the chain can continue.
type Strategy interface {
	Name() models.MatchStrategy
	Match(text string, sn snippet.Normalized) (models.MatchResult, bool)
}

// exactStrategy matches the raw trimmed snippet case-sensitively
type exactStrategy struct{}

func (exactStrategy) Name() models.MatchStrategy { return models.StrategyExact }

func (exactStrategy) Match(text string, sn snippet.Normalized) (models.MatchResult, bool) {
	idx := strings.Index(text, sn.Trimmed)
	if idx < 0 {
		return models.MatchResult{}, false
	}
	return models.MatchResult{
		Found:        true,
		MatchedText:  sn.Trimmed,
		StrategyUsed: models.StrategyExact,
		SpanStart:    idx,
		SpanEnd:      idx + len(sn.Trimmed),
		Confidence:   1.0,
	}, true
}

// caseInsensitiveStrategy matches the trimmed snippet ignoring case
type caseInsensitiveStrategy struct{}

func (caseInsensitiveStrategy) Name() models.MatchStrategy { return models.StrategyCaseInsensitive }

func (caseInsensitiveStrategy) Match(text string, sn snippet.Normalized) (models.MatchResult, bool) {
	re, err := regexp.Compile("(?i)" + sn.QuotedTrimmed())
	if err != nil {
		return models.MatchResult{}, false
	}
	loc := re.FindStringIndex(text)
	if loc == nil {
		return models.MatchResult{}, false
	}
	return models.MatchResult{
		Found:        true,
		MatchedText:  text[loc[0]:loc[1]],
		StrategyUsed: models.StrategyCaseInsensitive,
		SpanStart:    loc[0],
		SpanEnd:      loc[1],
		Confidence:   0.95,
	}, true
}

// fuzzyPhraseStrategy matches word sequences allowing bounded filler text
// between words, which models OCR gaps and line breaks
type fuzzyPhraseStrategy struct {
	cfg *config.MatchingConfig
}

func (fuzzyPhraseStrategy) Name() models.MatchStrategy { return models.StrategyFuzzyPhrase }

func (s fuzzyPhraseStrategy) Match(text string, sn snippet.Normalized) (models.MatchResult, bool) {
	words := sn.WordTexts()

	best := models.MatchResult{SpanStart: -1}

	if len(words) >= s.cfg.FuzzyMinWords {
		required := int(math.Ceil(float64(len(words)) * s.cfg.FuzzyWordRatio))
		if required < s.cfg.FuzzyMinWords {
			required = s.cfg.FuzzyMinWords
		}
		if required > len(words) {
			required = len(words)
		}

		ratio := float64(required) / float64(len(words))
		for start := 0; start+required <= len(words); start++ {
			if r, ok := s.matchSequence(text, words[start:start+required], ratio); ok {
				if best.SpanStart < 0 || r.SpanStart < best.SpanStart {
					best = r
				}
			}
		}
	}

	// Long snippets also get a sliding window of short contiguous
	// subsequences, which survives heavier reformatting
	if best.SpanStart < 0 && len(sn.Trimmed) > s.cfg.WindowSnippetLen && len(words) > s.cfg.WindowSize {
		for start := 0; start+s.cfg.WindowSize <= len(words); start++ {
			window := words[start : start+s.cfg.WindowSize]
			if r, ok := s.matchSequence(text, window, float64(s.cfg.WindowSize)/float64(len(words))); ok {
				if best.SpanStart < 0 || r.SpanStart < best.SpanStart {
					best = r
				}
			}
		}
	}

	if best.SpanStart < 0 {
		return models.MatchResult{}, false
	}
	return best, true
}

// matchSequence searches for the given words in order with up to
// FuzzyFillerChars characters between consecutive words
func (s fuzzyPhraseStrategy) matchSequence(text string, words []string, coverage float64) (models.MatchResult, bool) {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	filler := fmt.Sprintf(`[\s\S]{0,%d}?`, s.cfg.FuzzyFillerChars)
	pattern := `(?i)\b` + strings.Join(quoted, filler) + `\b`

	re, err := regexp.Compile(pattern)
	if err != nil {
		return models.MatchResult{}, false
	}
	loc := re.FindStringIndex(text)
	if loc == nil {
		return models.MatchResult{}, false
	}

	return models.MatchResult{
		Found:        true,
		MatchedText:  text[loc[0]:loc[1]],
		StrategyUsed: models.StrategyFuzzyPhrase,
		SpanStart:    loc[0],
		SpanEnd:      loc[1],
		Confidence:   0.9 * coverage,
	}, true
}

// synonymStrategy searches for known medical synonyms of snippet words
type synonymStrategy struct {
	cfg *config.MatchingConfig
}

func (synonymStrategy) Name() models.MatchStrategy { return models.StrategySynonym }

func (s synonymStrategy) Match(text string, sn snippet.Normalized) (models.MatchResult, bool) {
	best := models.MatchResult{SpanStart: -1}

	for _, word := range sn.Words {
		if word.Stopword {
			continue
		}
		for _, syn := range SynonymsOf(word.Text) {
			re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(syn) + `\b`)
			if err != nil {
				continue
			}
			loc := re.FindStringIndex(text)
			if loc == nil {
				continue
			}
			if best.SpanStart < 0 || loc[0] < best.SpanStart {
				best = models.MatchResult{
					Found:        true,
					MatchedText:  text[loc[0]:loc[1]],
					StrategyUsed: models.StrategySynonym,
					SpanStart:    loc[0],
					SpanEnd:      loc[1],
					Confidence:   s.cfg.SynonymConfidence,
				}
			}
		}
	}

	if best.SpanStart < 0 {
		return models.MatchResult{}, false
	}
	return best, true
}

// keywordStrategy is the last resort: any sufficiently long non-stopword
// token from the snippet, first hit wins
type keywordStrategy struct {
	cfg *config.MatchingConfig
}

func (keywordStrategy) Name() models.MatchStrategy { return models.StrategyKeyword }

func (s keywordStrategy) Match(text string, sn snippet.Normalized) (models.MatchResult, bool) {
	for _, word := range sn.Words {
		if word.Stopword || len(word.Text) < s.cfg.KeywordMinLength {
			continue
		}
		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(word.Text) + `\b`)
		if err != nil {
			continue
		}
		loc := re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		return models.MatchResult{
			Found:        true,
			MatchedText:  text[loc[0]:loc[1]],
			StrategyUsed: models.StrategyKeyword,
			SpanStart:    loc[0],
			SpanEnd:      loc[1],
			Confidence:   s.cfg.KeywordConfidence,
		}, true
	}
	return models.MatchResult{}, false
}
