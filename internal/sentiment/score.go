package sentiment

import (
	"math"
	"regexp"
	"strings"

	"github.com/jonreiter/govader"
)

// Scorer returns a compound polarity in [-1, 1] for one sentence
type Scorer interface {
	Compound(sentence string) float64
}

// VaderScorer scores with the VADER lexicon and rule set
type VaderScorer struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

func NewVaderScorer() *VaderScorer {
	return &VaderScorer{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

// Compound is rounded to four places so saved reports stay stable
func (v *VaderScorer) Compound(sentence string) float64 {
	return round4(v.analyzer.PolarityScores(sentence).Compound)
}

func round4(x float64) float64 {
	return math.Round(x*10000) / 10000
}

var sentenceEnd = regexp.MustCompile(`([.!?]+)(["')\]]*)\s+`)

// Sentences splits text after terminal punctuation followed by whitespace
func Sentences(text string) []string {
	var out []string
	last := 0
	for _, loc := range sentenceEnd.FindAllStringSubmatchIndex(text, -1) {
		end := loc[5] // after closing quotes
		if s := strings.TrimSpace(text[last:end]); s != "" {
			out = append(out, s)
		}
		last = loc[1]
	}
	if s := strings.TrimSpace(text[last:]); s != "" {
		out = append(out, s)
	}
	return out
}
