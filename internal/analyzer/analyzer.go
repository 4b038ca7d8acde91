// Package analyzer runs the ranking and word cloud pipelines over one
// transcript.
package analyzer

import (
	"context"
	"fmt"
	"image/color"
	"log"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/stellarlinkco/chatstats/internal/config"
	"github.com/stellarlinkco/chatstats/internal/report"
	"github.com/stellarlinkco/chatstats/internal/stats"
	"github.com/stellarlinkco/chatstats/internal/stopwords"
	"github.com/stellarlinkco/chatstats/internal/textproc"
	"github.com/stellarlinkco/chatstats/internal/transcript"
	"github.com/stellarlinkco/chatstats/internal/wordcloud"
)

// Options selects what a run produces.
type Options struct {
	TranscriptPath string
	OutputDir      string
	TopN           int // 0 uses the configured value
	Width          int
	Height         int
	SkipRanking    bool
	SkipWordCloud  bool
}

// Deps overrides collaborators, mainly for tests.
type Deps struct {
	Renderer wordcloud.Renderer
	Shaper   stats.Shaper
	Now      func() time.Time
}

// Analyzer owns the stopword set and text capabilities for its lifetime.
type Analyzer struct {
	cfg     *config.Config
	session *stats.Session
	emitter *wordcloud.Emitter
	now     func() time.Time
}

// New creates an Analyzer with default collaborators.
func New(cfg *config.Config) (*Analyzer, error) {
	return NewWithDeps(cfg, Deps{})
}

// NewWithDeps creates an Analyzer with custom collaborators.
func NewWithDeps(cfg *config.Config, deps Deps) (*Analyzer, error) {
	normalizer := &textproc.Normalizer{PersianDigits: cfg.Analysis.PersianDigits}

	var stop *stopwords.Set
	if cfg.Analysis.StopwordsPath != "" {
		s, err := stopwords.LoadFile(cfg.Analysis.StopwordsPath, normalizer)
		if err != nil {
			return nil, fmt.Errorf("load stopwords: %w", err)
		}
		stop = s
	} else {
		stop = stopwords.Default(normalizer)
	}

	bg, err := wordcloud.ParseColor(cfg.WordCloud.Background)
	if err != nil {
		return nil, fmt.Errorf("wordcloud background: %w", err)
	}
	var palette []color.Color
	for _, c := range cfg.WordCloud.Colors {
		parsed, err := wordcloud.ParseColor(c)
		if err != nil {
			return nil, fmt.Errorf("wordcloud colors: %w", err)
		}
		palette = append(palette, parsed)
	}

	shaper := deps.Shaper
	if shaper == nil {
		shaper = textproc.Shaper{}
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	a := &Analyzer{
		cfg: cfg,
		session: stats.NewSession(stats.Options{
			Normalizer: normalizer,
			Tokenizer:  textproc.Tokenizer{},
			Segmenter:  textproc.Segmenter{},
			Shaper:     shaper,
			Stopwords:  stop,
		}),
		emitter: wordcloud.NewEmitter(deps.Renderer, wordcloud.Options{
			Background: bg,
			Colors:     palette,
			FontPath:   cfg.WordCloud.FontPath,
			MaxWords:   cfg.WordCloud.MaxWords,
		}),
		now: now,
	}
	log.Printf("[analyzer] %d stopwords loaded", stop.Len())
	return a, nil
}

// Run loads the transcript once and runs the requested pipelines
// concurrently against it. The transcript is never written to, so the two
// pipelines share it without locking.
//
// The pipelines fail independently. When only the word cloud fails, Run
// returns the report with the ranking filled in together with that error.
func (a *Analyzer) Run(ctx context.Context, opts Options) (*report.Report, error) {
	opts = a.withDefaults(opts)

	t, err := transcript.Load(opts.TranscriptPath)
	if err != nil {
		return nil, err
	}
	log.Printf("[analyzer] loaded %d messages from %s", len(t.Messages), opts.TranscriptPath)

	rep := &report.Report{
		Transcript:  filepath.Base(opts.TranscriptPath),
		Chat:        t.Name,
		GeneratedAt: a.now(),
	}

	var g errgroup.Group
	if !opts.SkipRanking {
		g.Go(func() error {
			summary := a.session.Summarize(t)
			rep.Summary = &summary
			rep.TopUsers = stats.TopUsers(t, opts.TopN)
			return ctx.Err()
		})
	}
	var cloudErr error
	if !opts.SkipWordCloud {
		g.Go(func() error {
			path, err := a.drawCloud(ctx, t, opts)
			if err != nil {
				cloudErr = err
				return nil
			}
			rep.WordCloud = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if cloudErr != nil {
		log.Printf("[analyzer] word cloud failed: %v", cloudErr)
		return rep, cloudErr
	}
	return rep, nil
}

func (a *Analyzer) drawCloud(ctx context.Context, t *transcript.Transcript, opts Options) (string, error) {
	corpus := a.session.BuildCorpus(t)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return a.emitter.Emit(corpus, opts.OutputDir, opts.Width, opts.Height)
}

func (a *Analyzer) withDefaults(opts Options) Options {
	if opts.OutputDir == "" {
		opts.OutputDir = a.cfg.WordCloud.OutputDir
	}
	if opts.TopN == 0 {
		opts.TopN = a.cfg.Analysis.TopN
	}
	if opts.Width <= 0 {
		opts.Width = a.cfg.WordCloud.Width
	}
	if opts.Height <= 0 {
		opts.Height = a.cfg.WordCloud.Height
	}
	return opts
}
