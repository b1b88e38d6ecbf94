package sentiment

import (
	"context"
	"math"
	"strings"
	"unicode"

	domsvc "MarketPulse/internal/domain/service"
)

// LexiconScorer assigns polarity by averaging word scores from a financial
// news lexicon. A negator flips the next scored word and an intensifier
// scales it.
type LexiconScorer struct {
	words       map[string]float64
	negators    map[string]struct{}
	intensifier map[string]float64
}

var _ domsvc.SentimentScorer = (*LexiconScorer)(nil)

func NewLexiconScorer() *LexiconScorer {
	return &LexiconScorer{
		words:       defaultLexicon,
		negators:    defaultNegators,
		intensifier: defaultIntensifiers,
	}
}

// WithWords returns a copy of the scorer with extra or overridden entries.
func (s *LexiconScorer) WithWords(extra map[string]float64) *LexiconScorer {
	words := make(map[string]float64, len(s.words)+len(extra))
	for k, v := range s.words {
		words[k] = v
	}
	for k, v := range extra {
		words[strings.ToLower(k)] = v
	}
	return &LexiconScorer{words: words, negators: s.negators, intensifier: s.intensifier}
}

// Score returns a polarity in [-1, 1]; text with no known words scores 0.
func (s *LexiconScorer) Score(_ context.Context, text string) (float64, error) {
	tokens := tokenize(text)

	var sum float64
	var hits int
	negate := false
	boost := 1.0
	for _, tok := range tokens {
		if _, ok := s.negators[tok]; ok {
			negate = true
			continue
		}
		if f, ok := s.intensifier[tok]; ok {
			boost *= f
			continue
		}
		v, ok := s.words[tok]
		if !ok {
			continue
		}
		v *= boost
		if negate {
			v = -0.5 * v
		}
		sum += v
		hits++
		negate = false
		boost = 1.0
	}
	if hits == 0 {
		return 0, nil
	}
	return clamp(sum / float64(hits)), nil
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\'' && r != '-'
	})
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(-1, math.Min(1, v))
}

var defaultNegators = map[string]struct{}{
	"not": {}, "no": {}, "never": {}, "without": {}, "isn't": {}, "wasn't": {},
	"aren't": {}, "don't": {}, "doesn't": {}, "didn't": {}, "won't": {}, "cannot": {},
}

var defaultIntensifiers = map[string]float64{
	"very": 1.3, "sharply": 1.4, "strongly": 1.3, "significantly": 1.3,
	"slightly": 0.6, "modestly": 0.7, "record": 1.2, "huge": 1.4,
}

var defaultLexicon = map[string]float64{
	// positive
	"beat": 0.6, "beats": 0.6, "surge": 0.7, "surges": 0.7, "surged": 0.7,
	"soar": 0.8, "soars": 0.8, "soared": 0.8, "rally": 0.6, "rallies": 0.6,
	"gain": 0.5, "gains": 0.5, "gained": 0.5, "rise": 0.4, "rises": 0.4, "rose": 0.4,
	"jump": 0.5, "jumps": 0.5, "jumped": 0.5, "growth": 0.5, "grow": 0.4, "grows": 0.4,
	"profit": 0.5, "profits": 0.5, "profitable": 0.6, "record-breaking": 0.7,
	"strong": 0.5, "stronger": 0.5, "robust": 0.5, "upgrade": 0.6, "upgraded": 0.6,
	"bullish": 0.7, "outperform": 0.6, "outperforms": 0.6, "optimistic": 0.6,
	"positive": 0.5, "success": 0.6, "successful": 0.6, "exceed": 0.5, "exceeds": 0.5,
	"exceeded": 0.5, "boost": 0.5, "boosts": 0.5, "innovative": 0.5, "innovation": 0.4,
	"breakthrough": 0.7, "expands": 0.4, "expansion": 0.4, "launch": 0.3, "launches": 0.3,
	"good": 0.5, "great": 0.7, "excellent": 0.8, "impressive": 0.7, "best": 0.7,
	"higher": 0.3, "high": 0.2, "up": 0.2, "recover": 0.4, "recovery": 0.4, "rebound": 0.5,
	"dividend": 0.3, "buyback": 0.4, "partnership": 0.3, "approval": 0.5, "approved": 0.5,
	// negative
	"miss": -0.6, "misses": -0.6, "missed": -0.6, "plunge": -0.8, "plunges": -0.8,
	"plunged": -0.8, "drop": -0.5, "drops": -0.5, "dropped": -0.5, "fall": -0.5,
	"falls": -0.5, "fell": -0.5, "decline": -0.5, "declines": -0.5, "declined": -0.5,
	"loss": -0.6, "losses": -0.6, "lose": -0.5, "loses": -0.5, "slump": -0.7,
	"slumps": -0.7, "crash": -0.9, "crashes": -0.9, "weak": -0.5, "weaker": -0.5,
	"downgrade": -0.6, "downgraded": -0.6, "bearish": -0.7, "underperform": -0.6,
	"pessimistic": -0.6, "negative": -0.5, "concern": -0.4, "concerns": -0.4,
	"worry": -0.5, "worries": -0.5, "fear": -0.6, "fears": -0.6, "risk": -0.3,
	"risks": -0.3, "lawsuit": -0.6, "probe": -0.5, "investigation": -0.5,
	"fined": -0.6, "recall": -0.6, "recalls": -0.6, "layoffs": -0.6, "cuts": -0.4,
	"cut": -0.4, "bankruptcy": -0.9, "default": -0.7, "scandal": -0.8, "fraud": -0.9,
	"bad": -0.6, "poor": -0.6, "worst": -0.8, "lower": -0.3, "low": -0.2, "down": -0.2,
	"volatile": -0.3, "volatility": -0.2, "uncertainty": -0.4, "inflation": -0.2,
	"recession": -0.7, "selloff": -0.7, "sell-off": -0.7, "tumble": -0.7, "tumbles": -0.7,
	"warning": -0.5, "warns": -0.5, "challenges": -0.3, "disappointing": -0.7,
}
