package sentiment

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVaderScorer(t *testing.T) {
	scorer := NewVaderScorer()

	assert.Zero(t, scorer.Compound("The committee met on Tuesday."))

	good := scorer.Compound("The launch was good.")
	assert.Greater(t, good, 0.0)
	assert.Less(t, scorer.Compound("The launch was not good."), 0.0)
	assert.Greater(t, scorer.Compound("The launch was very good."), good)
	assert.Greater(t, scorer.Compound("The launch was good!!!"), good)

	for _, s := range []string{
		"Airstrikes destroyed homes and officials condemned the killings.",
		"Protesters were injured as deaths mounted across the region.",
	} {
		assert.Less(t, scorer.Compound(s), 0.0, s)
	}

	for _, s := range []string{"war war war kill kill disaster!!!!", "love love best best great wonderful!!!!"} {
		c := scorer.Compound(s)
		assert.LessOrEqual(t, c, 1.0)
		assert.GreaterOrEqual(t, c, -1.0)
	}
}

type fixedScorer float64

func (f fixedScorer) Compound(string) float64 { return float64(f) }

func TestAnalyzerUsesScorer(t *testing.T) {
	a := NewAnalyzer(writeArticles(t), t.TempDir())
	a.Scorer = fixedScorer(0.5)

	report, err := a.Analyze(context.Background(), Request{Source: "guardian", Keywords: "economy"})
	require.NoError(t, err)
	require.Len(t, report.Articles, 1)
	assert.Equal(t, 0.5, report.Articles[0].AvgCompound)
}

func TestSentences(t *testing.T) {
	assert.Equal(t,
		[]string{"Hello world.", "How are you?", `He said "fine."`, "Done"},
		Sentences(`Hello world. How are you?  He said "fine." Done`))
	assert.Empty(t, Sentences("   "))
}

func TestSourceOf(t *testing.T) {
	assert.Equal(t, "aljazeera", SourceOf("aljazeera_articles_2024.txt"))
	assert.Equal(t, "guardian", SourceOf("guardian_articles.txt"))
	assert.Equal(t, "nyt", SourceOf("nyt_articles_1.txt"))
	assert.Equal(t, "all", SourceOf("all_news_articles.txt"))
	assert.Equal(t, "unknown", SourceOf("reuters.txt"))
}

func writeArticles(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"guardian_articles_1.txt": "The economy is good. Weather was grey.",
		"nyt_articles_1.txt":      "War is terrible for the economy. Sports news.",
		"reuters.txt":             "Nothing about money here.",
		"guardian_articles_2.txt": "   ",
		"notes.md":                "economy economy",
	}
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
	}
	return dir
}

func TestAnalyzeFiltersSource(t *testing.T) {
	in := writeArticles(t)
	out := t.TempDir()

	report, err := NewAnalyzer(in, out).Analyze(context.Background(), Request{Source: "Guardian", Keywords: "Economy"})
	require.NoError(t, err)
	assert.Equal(t, "success", report.Status)
	require.Len(t, report.Articles, 1)

	article := report.Articles[0]
	assert.Equal(t, "guardian_articles_1.txt", article.File)
	require.Len(t, article.Sentences, 1)
	assert.Equal(t, "The economy is good.", article.Sentences[0].Sentence)
	assert.Equal(t, article.AvgCompound, report.Summary["guardian_articles_1.txt"].AvgCompound)
	assert.Equal(t, filepath.Join(out, "sentiment_guardian.json"), report.OutputFile)

	data, err := os.ReadFile(report.OutputFile)
	require.NoError(t, err)
	var saved Report
	require.NoError(t, sonic.Unmarshal(data, &saved))
	assert.Len(t, saved.Articles, 1)
}

func TestAnalyzeAllSourcesSorted(t *testing.T) {
	report, err := NewAnalyzer(writeArticles(t), t.TempDir()).Analyze(context.Background(), Request{Keywords: "economy"})
	require.NoError(t, err)
	require.Len(t, report.Articles, 2)
	assert.Equal(t, "guardian_articles_1.txt", report.Articles[0].File)
	assert.Equal(t, "nyt_articles_1.txt", report.Articles[1].File)
	assert.Less(t, report.Articles[1].AvgCompound, 0.0)
	assert.True(t, strings.HasSuffix(report.OutputFile, "sentiment_all.json"))
}

func TestAnalyzeNoKeywords(t *testing.T) {
	report, err := NewAnalyzer(writeArticles(t), t.TempDir()).Analyze(context.Background(), Request{Source: "all"})
	require.NoError(t, err)
	assert.Empty(t, report.Articles)
}

func TestAnalyzeMissingInput(t *testing.T) {
	_, err := NewAnalyzer(filepath.Join(t.TempDir(), "missing"), t.TempDir()).Analyze(context.Background(), Request{Keywords: "x"})
	assert.Error(t, err)
}

func TestSnippet(t *testing.T) {
	long := strings.Repeat("a", 250)
	assert.Equal(t, strings.Repeat("a", 200)+"...", snippet(long))
	assert.Equal(t, "short", snippet("short"))
}
