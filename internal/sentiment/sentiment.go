// Package sentiment scores news sentences that mention given keywords.
package sentiment

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultInputDir  = "all_articles_output"
	DefaultOutputDir = "sentiment_output"

	snippetLimit = 200
	maxWorkers   = 8
)

var sourcePrefixes = []struct {
	prefix string
	source string
}{
	{"aljazeera_articles", "aljazeera"},
	{"guardian_articles", "guardian"},
	{"nyt_articles", "nyt"},
	{"all_news_articles", "all"},
}

// SourceOf maps an article file name to its news source
func SourceOf(fileName string) string {
	for _, p := range sourcePrefixes {
		if strings.HasPrefix(fileName, p.prefix) {
			return p.source
		}
	}
	return "unknown"
}

// Request selects sources and keywords. Both are comma separated; Source "all" means every file.
type Request struct {
	Source   string `json:"source"`
	Keywords string `json:"keywords"`
}

type SentenceScore struct {
	Sentence string  `json:"sentence"`
	Compound float64 `json:"compound"`
}

type Article struct {
	File        string          `json:"file"`
	Snippet     string          `json:"snippet"`
	Sentences   []SentenceScore `json:"sentences"`
	AvgCompound float64         `json:"avg_compound"`
}

type FileScore struct {
	AvgCompound float64 `json:"avg_compound"`
}

// Report is written to <OutputDir>/sentiment_<source>.json
type Report struct {
	Status     string               `json:"status"`
	OutputFile string               `json:"output_file"`
	Summary    map[string]FileScore `json:"sentiment_score_summary"`
	Articles   []Article            `json:"articles"`
}

// Analyzer reads *.txt articles from InputDir
type Analyzer struct {
	InputDir  string
	OutputDir string
	Scorer    Scorer
}

func NewAnalyzer(inputDir, outputDir string) *Analyzer {
	if inputDir == "" {
		inputDir = DefaultInputDir
	}
	if outputDir == "" {
		outputDir = DefaultOutputDir
	}
	return &Analyzer{InputDir: inputDir, OutputDir: outputDir, Scorer: NewVaderScorer()}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

var unsafeName = regexp.MustCompile(`[^a-z0-9_,-]+`)

// Analyze scores every matching article concurrently and writes the report
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*Report, error) {
	source := strings.ToLower(strings.TrimSpace(req.Source))
	if source == "" {
		source = "all"
	}
	keywords := splitList(req.Keywords)

	var targets map[string]bool
	if source != "all" {
		targets = map[string]bool{}
		for _, s := range splitList(source) {
			targets[s] = true
		}
	}

	entries, err := os.ReadDir(a.InputDir)
	if err != nil {
		return nil, errors.Wrap(err, "read input directory")
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".txt") {
			continue
		}
		if targets != nil && !targets[SourceOf(name)] {
			continue
		}
		files = append(files, name)
	}
	sort.Strings(files)

	log.Info().
		Str("input_dir", a.InputDir).
		Str("source", source).
		Strs("keywords", keywords).
		Int("files", len(files)).
		Msg("Running sentiment analysis")

	results := make([]*Article, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)
	for i, name := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			article, err := a.scoreFile(name, keywords)
			if err != nil {
				return err
			}
			results[i] = article
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{
		Status:   "success",
		Summary:  map[string]FileScore{},
		Articles: []Article{},
	}
	for _, article := range results {
		if article == nil {
			continue
		}
		report.Articles = append(report.Articles, *article)
		report.Summary[article.File] = FileScore{AvgCompound: article.AvgCompound}
	}

	if err := os.MkdirAll(a.OutputDir, 0755); err != nil {
		return nil, errors.Wrap(err, "create output directory")
	}
	report.OutputFile = filepath.Join(a.OutputDir, "sentiment_"+unsafeName.ReplaceAllString(source, "_")+".json")

	data, err := sonic.ConfigStd.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "encode sentiment report")
	}
	if err := os.WriteFile(report.OutputFile, data, 0644); err != nil {
		return nil, errors.Wrapf(err, "write %s", report.OutputFile)
	}

	log.Info().Str("output_file", report.OutputFile).Int("articles", len(report.Articles)).Msg("Sentiment analysis saved")
	return report, nil
}

// scoreFile returns nil when the file is empty or no sentence mentions a keyword
func (a *Analyzer) scoreFile(name string, keywords []string) (*Article, error) {
	data, err := os.ReadFile(filepath.Join(a.InputDir, name))
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", name)
	}
	content := strings.TrimSpace(string(data))
	if content == "" || len(keywords) == 0 {
		return nil, nil
	}

	var scores []SentenceScore
	for _, sentence := range Sentences(content) {
		lower := strings.ToLower(sentence)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				scores = append(scores, SentenceScore{Sentence: sentence, Compound: a.Scorer.Compound(sentence)})
				break
			}
		}
	}
	if len(scores) == 0 {
		return nil, nil
	}

	sum := 0.0
	for _, s := range scores {
		sum += s.Compound
	}
	return &Article{
		File:        name,
		Snippet:     snippet(content),
		Sentences:   scores,
		AvgCompound: sum / float64(len(scores)),
	}, nil
}

func snippet(content string) string {
	runes := []rune(content)
	if len(runes) > snippetLimit {
		return string(runes[:snippetLimit]) + "..."
	}
	return content
}
