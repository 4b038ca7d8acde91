package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/stellarlinkco/chatstats/internal/analyzer"
	"github.com/stellarlinkco/chatstats/internal/config"
	"github.com/stellarlinkco/chatstats/internal/cron"
	"github.com/stellarlinkco/chatstats/internal/publish"
	"github.com/stellarlinkco/chatstats/internal/report"
)

// Publisher delivers a report (allows mocking in tests)
type Publisher interface {
	Publish(ctx context.Context, rep *report.Report) error
}

// PublisherFactory creates a Publisher from config
type PublisherFactory func(cfg config.TelegramConfig) (Publisher, error)

// DefaultPublisherFactory creates the Telegram publisher
func DefaultPublisherFactory(cfg config.TelegramConfig) (Publisher, error) {
	return publish.NewTelegramPublisher(cfg)
}

// AnalyzerFactory creates an Analyzer from config
type AnalyzerFactory func(cfg *config.Config) (*analyzer.Analyzer, error)

// RunOptions for running commands with custom dependencies
type RunOptions struct {
	AnalyzerFactory  AnalyzerFactory
	PublisherFactory PublisherFactory
	Stdout           io.Writer
	SignalChan       chan os.Signal // for testing signal handling
}

func (o RunOptions) withDefaults() RunOptions {
	if o.AnalyzerFactory == nil {
		o.AnalyzerFactory = analyzer.New
	}
	if o.PublisherFactory == nil {
		o.PublisherFactory = DefaultPublisherFactory
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	return o
}

// analyzeFlags holds per-invocation flag values
type analyzeFlags struct {
	topN    int
	format  string
	width   int
	height  int
	publish bool
}

func newRootCmd(opts RunOptions) *cobra.Command {
	root := &cobra.Command{
		Use:           "chatstats",
		Short:         "chatstats - statistics for exported chat transcripts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	var af analyzeFlags
	analyzeCmd := &cobra.Command{
		Use:   "analyze <transcript> [output-dir]",
		Short: "Rank question answerers and draw the word cloud",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			outDir := ""
			if len(args) > 1 {
				outDir = args[1]
			}
			return runAnalyze(cmd, opts, af, args[0], outDir, false, false)
		},
	}
	addAnalyzeFlags(analyzeCmd, &af, true)

	var tf analyzeFlags
	topUsersCmd := &cobra.Command{
		Use:   "top-users <transcript>",
		Short: "Rank senders by how many questions they answered",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, opts, tf, args[0], "", false, true)
		},
	}
	addAnalyzeFlags(topUsersCmd, &tf, false)

	var wf analyzeFlags
	wordcloudCmd := &cobra.Command{
		Use:   "wordcloud <transcript> [output-dir]",
		Short: "Draw the word cloud of a transcript",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			outDir := ""
			if len(args) > 1 {
				outDir = args[1]
			}
			return runAnalyze(cmd, opts, wf, args[0], outDir, true, false)
		},
	}
	addAnalyzeFlags(wordcloudCmd, &wf, true)

	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run the configured report jobs until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchedule(opts)
		},
	}
	scheduleCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List configured report jobs and their next run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScheduleList(opts)
		},
	}, &cobra.Command{
		Use:   "run <job>",
		Short: "Run one report job now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScheduleJob(opts, args[0])
		},
	})

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(opts.withDefaults().Stdout)
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(opts.withDefaults().Stdout)
		},
	}

	root.AddCommand(analyzeCmd, topUsersCmd, wordcloudCmd, scheduleCmd, initCmd, statusCmd)
	return root
}

func addAnalyzeFlags(cmd *cobra.Command, f *analyzeFlags, image bool) {
	cmd.Flags().IntVarP(&f.topN, "top", "n", 0, "Number of users to list (default from config)")
	cmd.Flags().StringVarP(&f.format, "format", "f", "", "Output format: text, json or yaml (default from config)")
	cmd.Flags().BoolVar(&f.publish, "publish", false, "Send the report to the configured Telegram chat")
	if image {
		cmd.Flags().IntVar(&f.width, "width", 0, "Image width in pixels (default from config)")
		cmd.Flags().IntVar(&f.height, "height", 0, "Image height in pixels (default from config)")
	}
}

func main() {
	if err := newRootCmd(RunOptions{}).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runAnalyze(cmd *cobra.Command, opts RunOptions, f analyzeFlags, transcriptPath, outDir string, skipRanking, skipWordCloud bool) error {
	opts = opts.withDefaults()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	topN := f.topN
	if cmd.Flags().Changed("top") && topN <= 0 {
		return fmt.Errorf("--top must be positive")
	}

	if outDir == "" {
		outDir = cfg.WordCloud.OutputDir
	}
	if !skipWordCloud {
		if err := os.MkdirAll(outDir, 0755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	a, err := opts.AnalyzerFactory(cfg)
	if err != nil {
		return fmt.Errorf("create analyzer: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rep, runErr := a.Run(ctx, analyzer.Options{
		TranscriptPath: transcriptPath,
		OutputDir:      outDir,
		TopN:           topN,
		Width:          f.width,
		Height:         f.height,
		SkipRanking:    skipRanking,
		SkipWordCloud:  skipWordCloud,
	})
	if rep == nil {
		return runErr
	}

	// The ranking is printed even when the word cloud failed.
	format := f.format
	if format == "" {
		format = cfg.Analysis.Format
	}
	if err := rep.Write(opts.Stdout, format); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}

	if f.publish {
		p, err := opts.PublisherFactory(cfg.Telegram)
		if err != nil {
			return fmt.Errorf("create publisher: %w", err)
		}
		if err := p.Publish(ctx, rep); err != nil {
			return fmt.Errorf("publish report: %w", err)
		}
	}
	return nil
}

// newScheduler builds the job service with a handler that analyzes and
// optionally publishes each job's transcript.
func newScheduler(opts RunOptions) (*cron.Service, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if len(cfg.Schedule.Jobs) == 0 {
		return nil, fmt.Errorf("no jobs configured in %s", config.ConfigPath())
	}

	svc, err := cron.NewService(cfg.Schedule.Jobs)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	a, err := opts.AnalyzerFactory(cfg)
	if err != nil {
		return nil, fmt.Errorf("create analyzer: %w", err)
	}

	var pub Publisher
	if cfg.Telegram.Enabled {
		pub, err = opts.PublisherFactory(cfg.Telegram)
		if err != nil {
			return nil, fmt.Errorf("create publisher: %w", err)
		}
	}

	svc.OnJob = func(ctx context.Context, job config.JobConfig) (string, error) {
		return runJob(ctx, a, pub, cfg, job)
	}
	return svc, nil
}

func runSchedule(opts RunOptions) error {
	opts = opts.withDefaults()

	svc, err := newScheduler(opts)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	sigCh := opts.SignalChan
	if sigCh == nil {
		sigCh = make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)
	}
	<-sigCh

	log.Printf("[chatstats] shutting down scheduler")
	svc.Stop()
	return nil
}

func runScheduleList(opts RunOptions) error {
	opts = opts.withDefaults()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := cron.NewService(cfg.Schedule.Jobs)
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}

	// Next run times are only known once the entries are registered.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	jobs := svc.ListJobs()
	svc.Stop()

	if len(jobs) == 0 {
		fmt.Fprintln(opts.Stdout, "No jobs configured.")
		return nil
	}
	tw := tabwriter.NewWriter(opts.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSCHEDULE\tENABLED\tPUBLISH\tNEXT RUN\tTRANSCRIPT")
	for _, j := range jobs {
		next := "-"
		if !j.State.NextRunAt.IsZero() {
			next = j.State.NextRunAt.Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%s\t%s\t%v\t%v\t%s\t%s\n", j.Name, j.Expr, j.Enabled, j.Publish, next, j.Transcript)
	}
	return tw.Flush()
}

func runScheduleJob(opts RunOptions, name string) error {
	opts = opts.withDefaults()

	svc, err := newScheduler(opts)
	if err != nil {
		return err
	}
	if err := svc.RunNow(name); err != nil {
		return err
	}

	for _, j := range svc.ListJobs() {
		if j.Name != name {
			continue
		}
		if j.State.LastStatus == "error" {
			return fmt.Errorf("job %s failed: %s", name, j.State.LastError)
		}
		fmt.Fprintf(opts.Stdout, "Job %s finished at %s\n", name, j.State.LastRunAt.Format(time.RFC3339))
	}
	return nil
}

func runJob(ctx context.Context, a *analyzer.Analyzer, pub Publisher, cfg *config.Config, job config.JobConfig) (string, error) {
	outDir := job.OutputDir
	if outDir == "" {
		outDir = cfg.WordCloud.OutputDir
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	rep, err := a.Run(ctx, analyzer.Options{TranscriptPath: job.Transcript, OutputDir: outDir})
	if err != nil {
		return "", err
	}
	if job.Publish {
		if pub == nil {
			return "", fmt.Errorf("job %s wants publishing but telegram is disabled", job.Name)
		}
		if err := pub.Publish(ctx, rep); err != nil {
			return "", fmt.Errorf("publish report: %w", err)
		}
	}
	return fmt.Sprintf("%d answerers ranked, image %s", len(rep.TopUsers), rep.WordCloud), nil
}

func runInit(stdout io.Writer) error {
	cfgDir := config.ConfigDir()
	cfgPath := config.ConfigPath()

	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		if err := config.SaveConfig(config.DefaultConfig()); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Fprintf(stdout, "Created config: %s\n", cfgPath)
	} else {
		fmt.Fprintf(stdout, "Config already exists: %s\n", cfgPath)
	}

	fmt.Fprintln(stdout, "\nNext steps:")
	fmt.Fprintf(stdout, "  1. Set wordcloud.fontPath in %s to a font with Persian glyphs\n", cfgPath)
	fmt.Fprintln(stdout, "  2. Export a chat from Telegram Desktop as JSON")
	fmt.Fprintln(stdout, "  3. Run 'chatstats analyze result.json out/'")
	return nil
}

func runStatus(stdout io.Writer) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(stdout, "Config: error (%v)\n", err)
		return nil
	}

	fmt.Fprintf(stdout, "Config: %s\n", config.ConfigPath())
	fmt.Fprintf(stdout, "Top N: %d\n", cfg.Analysis.TopN)
	if cfg.Analysis.StopwordsPath != "" {
		fmt.Fprintf(stdout, "Stopwords: %s\n", cfg.Analysis.StopwordsPath)
	} else {
		fmt.Fprintln(stdout, "Stopwords: built-in Persian list")
	}
	fmt.Fprintf(stdout, "Word cloud: %dx%d, background %s, max %d words\n",
		cfg.WordCloud.Width, cfg.WordCloud.Height, cfg.WordCloud.Background, cfg.WordCloud.MaxWords)
	if cfg.WordCloud.FontPath != "" {
		fmt.Fprintf(stdout, "Font: %s\n", cfg.WordCloud.FontPath)
	} else {
		fmt.Fprintln(stdout, "Font: not set (Go Regular fallback)")
	}
	fmt.Fprintf(stdout, "Output dir: %s\n", cfg.WordCloud.OutputDir)
	fmt.Fprintf(stdout, "Telegram: enabled=%v\n", cfg.Telegram.Enabled)
	if cfg.Telegram.Token != "" && len(cfg.Telegram.Token) > 8 {
		masked := cfg.Telegram.Token[:4] + "..." + cfg.Telegram.Token[len(cfg.Telegram.Token)-4:]
		fmt.Fprintf(stdout, "Telegram token: %s\n", masked)
	} else if cfg.Telegram.Token != "" {
		fmt.Fprintln(stdout, "Telegram token: set")
	}
	fmt.Fprintf(stdout, "Scheduled jobs: %d\n", len(cfg.Schedule.Jobs))
	for _, j := range cfg.Schedule.Jobs {
		fmt.Fprintf(stdout, "  - %s (%s) enabled=%v publish=%v\n", j.Name, j.Expr, j.Enabled, j.Publish)
	}
	return nil
}
