package sentiment

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Financial keyword weights. Generic NLP scores poorly on market jargon
// ("guidance cut", "beat estimates"), so matched keywords carry most of the
// weight and any base polarity input is blended in at a lower ratio.
var lexicon = map[string]decimal.Decimal{
	"surge":         dec("0.5"),
	"jump":          dec("0.5"),
	"high":          dec("0.3"),
	"gain":          dec("0.4"),
	"bull":          dec("0.5"),
	"buy":           dec("0.4"),
	"outperform":    dec("0.6"),
	"beat":          dec("0.6"),
	"profit":        dec("0.4"),
	"upgrade":       dec("0.7"),
	"acquisition":   dec("0.4"),
	"growth":        dec("0.3"),
	"record":        dec("0.5"),
	"slump":         dec("-0.5"),
	"drop":          dec("-0.4"),
	"fall":          dec("-0.4"),
	"loss":          dec("-0.5"),
	"bear":          dec("-0.5"),
	"sell":          dec("-0.4"),
	"underperform":  dec("-0.6"),
	"miss":          dec("-0.6"),
	"debt":          dec("-0.3"),
	"downgrade":     dec("-0.7"),
	"lawsuit":       dec("-0.8"),
	"investigation": dec("-0.8"),
	"crash":         dec("-0.9"),
}

var (
	keywordWeight = dec("0.7")
	baseWeight    = dec("0.3")
	scoreFloor    = dec("-1")
	scoreCeiling  = dec("1")
)

// Analyzer scores a piece of text against the financial lexicon.
type Analyzer struct{}

// Score blends the keyword sum with a caller-supplied base polarity
// (70/30) and clamps the result to [-1,1]. Pass 0 when no baseline NLP
// score is available.
func (Analyzer) Score(text string, basePolarity float64) float64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}
	lower := strings.ToLower(text)
	sum := decimal.Zero
	for word, weight := range lexicon {
		if strings.Contains(lower, word) {
			sum = sum.Add(weight)
		}
	}
	base := decimal.NewFromFloat(basePolarity)
	blended := sum.Mul(keywordWeight).Add(base.Mul(baseWeight))
	clamped := decimal.Max(scoreFloor, decimal.Min(scoreCeiling, blended))
	out, _ := clamped.Float64()
	return out
}

func dec(value string) decimal.Decimal {
	out, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero
	}
	return out
}
