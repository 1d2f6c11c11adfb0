package matching

import (
	"github.com/savegress/oncotrace/internal/config"
	"github.com/savegress/oncotrace/internal/snippet"
	"github.com/savegress/oncotrace/pkg/models"
)

// Chain applies matching strategies in fixed priority order and returns
// the first hit. Safe for concurrent use; it holds no mutable state.
type Chain struct {
	cfg        *config.MatchingConfig
	strategies []Strategy
}

// NewChain creates the standard strategy chain
func NewChain(cfg *config.MatchingConfig) *Chain {
	if cfg == nil {
		defaults := config.Default().Matching
		cfg = &defaults
	}
	return &Chain{
		cfg: cfg,
		strategies: []Strategy{
			exactStrategy{},
			caseInsensitiveStrategy{},
			fuzzyPhraseStrategy{cfg: cfg},
			synonymStrategy{cfg: cfg},
			keywordStrategy{cfg: cfg},
		},
	}
}

// Find searches documentText for the snippet, trying each strategy in
// priority order. A too-short snippet is never searched. When no strategy
// matches, the result carries Found=false and StrategyUsed=none so callers
// can render a "could not locate automatically" indicator.
func (c *Chain) Find(documentText string, sn snippet.Normalized) models.MatchResult {
	if sn.TooShort || documentText == "" {
		return noMatch()
	}

	for _, strategy := range c.strategies {
		if result, ok := strategy.Match(documentText, sn); ok {
			return result
		}
	}

	return noMatch()
}

// FindText normalizes raw then searches, for ad-hoc user searches
func (c *Chain) FindText(documentText, raw string) models.MatchResult {
	return c.Find(documentText, snippet.Normalize(raw))
}

func noMatch() models.MatchResult {
	return models.MatchResult{
		Found:        false,
		StrategyUsed: models.StrategyNone,
		SpanStart:    -1,
		SpanEnd:      -1,
	}
}
