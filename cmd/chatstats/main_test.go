package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"github.com/stellarlinkco/chatstats/internal/analyzer"
	"github.com/stellarlinkco/chatstats/internal/config"
	"github.com/stellarlinkco/chatstats/internal/report"
	"github.com/stellarlinkco/chatstats/internal/wordcloud"
)

const export = `{
  "name": "Gophers",
  "messages": [
    {"id": 1, "from": "A", "text": "Are you coming?"},
    {"id": 2, "from": "B", "reply_to_message_id": 1, "text": "Yes"},
    {"id": 3, "from": "C", "reply_to_message_id": 1, "text": "No"},
    {"id": 4, "from": "A", "text": "Where is the meetup?"},
    {"id": 5, "from": "B", "reply_to_message_id": 4, "text": "Downtown"}
  ]
}`

type fakeRenderer struct{}

func (fakeRenderer) Render(words map[string]int, opts wordcloud.Options) (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, opts.Width, opts.Height)), nil
}

type identityShaper struct{}

func (identityShaper) Reshape(s string) string     { return s }
func (identityShaper) RenderOrder(s string) string { return s }

type mockPublisher struct {
	reports []*report.Report
	err     error
}

func (m *mockPublisher) Publish(ctx context.Context, rep *report.Report) error {
	m.reports = append(m.reports, rep)
	return m.err
}

func setupHome(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("USERPROFILE", tmpDir)
	t.Setenv("CHATSTATS_TOP_N", "")
	t.Setenv("CHATSTATS_FORMAT", "")
	t.Setenv("CHATSTATS_OUTPUT_DIR", "")
	t.Setenv("CHATSTATS_TELEGRAM_TOKEN", "")
	return tmpDir
}

func writeConfig(t *testing.T, home string, cfg *config.Config) {
	t.Helper()
	dir := filepath.Join(home, ".chatstats")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	data, _ := json.Marshal(cfg)
	if err := os.WriteFile(filepath.Join(dir, "config.json"), data, 0644); err != nil {
		t.Fatal(err)
	}
}

func writeExport(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "result.json")
	if err := os.WriteFile(path, []byte(export), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func testOptions(stdout *bytes.Buffer, pub *mockPublisher) RunOptions {
	return RunOptions{
		AnalyzerFactory: func(cfg *config.Config) (*analyzer.Analyzer, error) {
			return analyzer.NewWithDeps(cfg, analyzer.Deps{
				Renderer: fakeRenderer{},
				Shaper:   identityShaper{},
			})
		},
		PublisherFactory: func(cfg config.TelegramConfig) (Publisher, error) {
			if pub == nil {
				return nil, errors.New("no publisher")
			}
			return pub, nil
		},
		Stdout: stdout,
	}
}

func execute(t *testing.T, opts RunOptions, args ...string) error {
	t.Helper()
	cmd := newRootCmd(opts)
	cmd.SetArgs(args)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	return cmd.Execute()
}

func TestAnalyzeCommand(t *testing.T) {
	setupHome(t)
	var out bytes.Buffer
	outDir := filepath.Join(t.TempDir(), "nested", "out")

	if err := execute(t, testOptions(&out, nil), "analyze", writeExport(t), outDir, "--width", "40", "--height", "30"); err != nil {
		t.Fatalf("analyze error: %v", err)
	}

	output := out.String()
	if !strings.Contains(output, "Chat: Gophers") {
		t.Errorf("missing chat title in output: %s", output)
	}
	if !strings.Contains(output, "Top answerers:") {
		t.Errorf("missing ranking in output: %s", output)
	}
	if _, err := os.Stat(filepath.Join(outDir, wordcloud.FileName)); err != nil {
		t.Errorf("word cloud not written: %v", err)
	}
}

func TestTopUsersCommand_JSON(t *testing.T) {
	setupHome(t)
	var out bytes.Buffer

	if err := execute(t, testOptions(&out, nil), "top-users", writeExport(t), "-n", "1", "--format", "json"); err != nil {
		t.Fatalf("top-users error: %v", err)
	}

	var got struct {
		TopUsers []struct {
			Sender string `json:"sender"`
			Count  int    `json:"count"`
		} `json:"top_users"`
		WordCloud string `json:"wordcloud"`
	}
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if len(got.TopUsers) != 1 || got.TopUsers[0].Sender != "B" || got.TopUsers[0].Count != 2 {
		t.Errorf("top_users = %+v, want [{B 2}]", got.TopUsers)
	}
	if got.WordCloud != "" {
		t.Errorf("wordcloud = %q, want empty for top-users", got.WordCloud)
	}
}

func TestTopUsersCommand_InvalidTop(t *testing.T) {
	setupHome(t)
	var out bytes.Buffer

	err := execute(t, testOptions(&out, nil), "top-users", writeExport(t), "-n", "0")
	if err == nil || !strings.Contains(err.Error(), "--top") {
		t.Errorf("expected --top error, got %v", err)
	}
}

func TestWordcloudCommand(t *testing.T) {
	setupHome(t)
	var out bytes.Buffer
	outDir := t.TempDir()

	if err := execute(t, testOptions(&out, nil), "wordcloud", writeExport(t), outDir); err != nil {
		t.Fatalf("wordcloud error: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, wordcloud.FileName)); err != nil {
		t.Errorf("word cloud not written: %v", err)
	}
	if strings.Contains(out.String(), "Top answerers") {
		t.Errorf("wordcloud should skip ranking: %s", out.String())
	}
}

func TestAnalyzeCommand_MissingTranscript(t *testing.T) {
	setupHome(t)
	var out bytes.Buffer

	err := execute(t, testOptions(&out, nil), "analyze", filepath.Join(t.TempDir(), "missing.json"), t.TempDir())
	if err == nil {
		t.Fatal("expected error for missing transcript")
	}
}

func TestAnalyzeCommand_WordCloudFailureKeepsRanking(t *testing.T) {
	setupHome(t)
	var out bytes.Buffer
	pub := &mockPublisher{}

	// Fragment-only messages leave nothing for the word cloud.
	path := filepath.Join(t.TempDir(), "fragments.json")
	body := `{"messages": [
		{"id": 1, "from": "A", "text": ["Are you ", {"type": "bold", "text": "coming?"}]},
		{"id": 2, "from": "B", "reply_to_message_id": 1, "text": ["Yes"]}
	]}`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	err := execute(t, testOptions(&out, pub), "analyze", path, t.TempDir(), "--format", "json", "--publish")
	if !errors.Is(err, wordcloud.ErrRender) {
		t.Fatalf("error = %v, want ErrRender", err)
	}

	var got struct {
		TopUsers []struct {
			Sender string `json:"sender"`
			Count  int    `json:"count"`
		} `json:"top_users"`
	}
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("ranking not printed: %v\n%s", err, out.String())
	}
	if len(got.TopUsers) != 1 || got.TopUsers[0].Sender != "B" || got.TopUsers[0].Count != 1 {
		t.Errorf("top_users = %+v, want [{B 1}]", got.TopUsers)
	}
	if len(pub.reports) != 0 {
		t.Errorf("published %d reports after a failed run", len(pub.reports))
	}
}

func TestAnalyzeCommand_Publish(t *testing.T) {
	setupHome(t)
	var out bytes.Buffer
	pub := &mockPublisher{}

	if err := execute(t, testOptions(&out, pub), "analyze", writeExport(t), t.TempDir(), "--publish"); err != nil {
		t.Fatalf("analyze error: %v", err)
	}
	if len(pub.reports) != 1 {
		t.Fatalf("published %d reports, want 1", len(pub.reports))
	}
	if pub.reports[0].Chat != "Gophers" {
		t.Errorf("published chat = %q, want Gophers", pub.reports[0].Chat)
	}
}

func TestAnalyzeCommand_PublishError(t *testing.T) {
	setupHome(t)
	var out bytes.Buffer
	pub := &mockPublisher{err: errors.New("telegram down")}

	err := execute(t, testOptions(&out, pub), "analyze", writeExport(t), t.TempDir(), "--publish")
	if err == nil || !strings.Contains(err.Error(), "telegram down") {
		t.Errorf("expected publish error, got %v", err)
	}
}

func TestRunInit(t *testing.T) {
	tmpDir := setupHome(t)
	var out bytes.Buffer

	if err := runInit(&out); err != nil {
		t.Fatalf("runInit error: %v", err)
	}

	cfgPath := filepath.Join(tmpDir, ".chatstats", "config.json")
	data, err := os.ReadFile(cfgPath)
	if err != nil {
		t.Fatalf("config file was not created: %v", err)
	}
	var cfg config.Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("config is not valid JSON: %v", err)
	}
	if cfg.Analysis.TopN != config.DefaultTopN {
		t.Errorf("TopN = %d, want %d", cfg.Analysis.TopN, config.DefaultTopN)
	}
	if !strings.Contains(out.String(), "Created config") {
		t.Errorf("unexpected output: %s", out.String())
	}
}

func TestRunInit_AlreadyExists(t *testing.T) {
	tmpDir := setupHome(t)
	cfgDir := filepath.Join(tmpDir, ".chatstats")
	os.MkdirAll(cfgDir, 0755)
	os.WriteFile(filepath.Join(cfgDir, "config.json"), []byte("{}"), 0644)

	var out bytes.Buffer
	if err := runInit(&out); err != nil {
		t.Fatalf("runInit error: %v", err)
	}
	if !strings.Contains(out.String(), "Config already exists") {
		t.Errorf("expected 'Config already exists', got: %s", out.String())
	}
	data, _ := os.ReadFile(filepath.Join(cfgDir, "config.json"))
	if string(data) != "{}" {
		t.Errorf("existing config overwritten: %s", data)
	}
}

func TestRunStatus(t *testing.T) {
	setupHome(t)
	var out bytes.Buffer

	if err := runStatus(&out); err != nil {
		t.Fatalf("runStatus error: %v", err)
	}
	output := out.String()
	for _, want := range []string{"Top N: 10", "built-in Persian list", "Go Regular fallback", "Scheduled jobs: 0"} {
		if !strings.Contains(output, want) {
			t.Errorf("status missing %q: %s", want, output)
		}
	}
}

func TestRunStatus_WithToken(t *testing.T) {
	home := setupHome(t)
	cfg := config.DefaultConfig()
	cfg.Telegram.Token = "123456789:ABCDEFGH"
	cfg.Schedule.Jobs = []config.JobConfig{{Name: "daily", Expr: "0 9 * * *", Transcript: "x.json", Enabled: true}}
	writeConfig(t, home, cfg)

	var out bytes.Buffer
	if err := runStatus(&out); err != nil {
		t.Fatalf("runStatus error: %v", err)
	}
	output := out.String()
	if strings.Contains(output, "ABCDEFGH") {
		t.Errorf("token not masked: %s", output)
	}
	if !strings.Contains(output, "1234...EFGH") {
		t.Errorf("expected masked token: %s", output)
	}
	if !strings.Contains(output, "daily (0 9 * * *)") {
		t.Errorf("expected job listing: %s", output)
	}
}

func TestRunStatus_ShortToken(t *testing.T) {
	home := setupHome(t)
	cfg := config.DefaultConfig()
	cfg.Telegram.Token = "short"
	writeConfig(t, home, cfg)

	var out bytes.Buffer
	runStatus(&out)
	if !strings.Contains(out.String(), "Telegram token: set") {
		t.Errorf("expected 'Telegram token: set': %s", out.String())
	}
}

func TestRunSchedule_NoJobs(t *testing.T) {
	setupHome(t)
	var out bytes.Buffer

	err := runSchedule(testOptions(&out, nil))
	if err == nil || !strings.Contains(err.Error(), "no jobs configured") {
		t.Errorf("expected no jobs error, got %v", err)
	}
}

func TestRunSchedule_InvalidJob(t *testing.T) {
	home := setupHome(t)
	cfg := config.DefaultConfig()
	cfg.Schedule.Jobs = []config.JobConfig{{Name: "bad", Expr: "not cron", Transcript: "x.json", Enabled: true}}
	writeConfig(t, home, cfg)

	var out bytes.Buffer
	if err := runSchedule(testOptions(&out, nil)); err == nil {
		t.Error("expected error for invalid cron expression")
	}
}

func TestRunSchedule_StopsOnSignal(t *testing.T) {
	home := setupHome(t)
	cfg := config.DefaultConfig()
	cfg.Schedule.Jobs = []config.JobConfig{{Name: "hourly", Expr: "@every 1h", Transcript: writeExport(t), Enabled: true}}
	writeConfig(t, home, cfg)

	var out bytes.Buffer
	opts := testOptions(&out, nil)
	opts.SignalChan = make(chan os.Signal, 1)
	opts.SignalChan <- syscall.SIGTERM

	if err := runSchedule(opts); err != nil {
		t.Fatalf("runSchedule error: %v", err)
	}
}

func TestScheduleListCommand(t *testing.T) {
	home := setupHome(t)
	cfg := config.DefaultConfig()
	cfg.Schedule.Jobs = []config.JobConfig{
		{Name: "daily", Expr: "0 9 * * *", Transcript: "chat.json", Enabled: true, Publish: true},
		{Name: "paused", Expr: "0 18 * * *", Transcript: "other.json"},
	}
	writeConfig(t, home, cfg)

	var out bytes.Buffer
	if err := execute(t, testOptions(&out, nil), "schedule", "list"); err != nil {
		t.Fatalf("schedule list error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header and 2 jobs:\n%s", len(lines), out.String())
	}
	if !strings.HasPrefix(lines[1], "daily") || strings.Contains(lines[1], " - ") {
		t.Errorf("enabled job should show a next run: %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "paused") || !strings.Contains(lines[2], " - ") {
		t.Errorf("disabled job should have no next run: %q", lines[2])
	}
}

func TestScheduleListCommand_NoJobs(t *testing.T) {
	setupHome(t)
	var out bytes.Buffer
	if err := execute(t, testOptions(&out, nil), "schedule", "list"); err != nil {
		t.Fatalf("schedule list error: %v", err)
	}
	if !strings.Contains(out.String(), "No jobs configured") {
		t.Errorf("output = %q", out.String())
	}
}

func TestScheduleRunCommand(t *testing.T) {
	home := setupHome(t)
	outDir := filepath.Join(t.TempDir(), "daily")
	cfg := config.DefaultConfig()
	cfg.Telegram.Enabled = true
	cfg.Schedule.Jobs = []config.JobConfig{
		{Name: "daily", Expr: "0 9 * * *", Transcript: writeExport(t), OutputDir: outDir, Enabled: true, Publish: true},
	}
	writeConfig(t, home, cfg)

	var out bytes.Buffer
	pub := &mockPublisher{}
	if err := execute(t, testOptions(&out, pub), "schedule", "run", "daily"); err != nil {
		t.Fatalf("schedule run error: %v", err)
	}
	if !strings.Contains(out.String(), "Job daily finished") {
		t.Errorf("output = %q", out.String())
	}
	if len(pub.reports) != 1 {
		t.Errorf("published %d reports, want 1", len(pub.reports))
	}
	if _, err := os.Stat(filepath.Join(outDir, wordcloud.FileName)); err != nil {
		t.Errorf("word cloud not written: %v", err)
	}
}

func TestScheduleRunCommand_Failures(t *testing.T) {
	home := setupHome(t)
	cfg := config.DefaultConfig()
	cfg.Schedule.Jobs = []config.JobConfig{
		{Name: "broken", Expr: "0 9 * * *", Transcript: filepath.Join(t.TempDir(), "missing.json"), OutputDir: t.TempDir(), Enabled: true},
	}
	writeConfig(t, home, cfg)

	var out bytes.Buffer
	err := execute(t, testOptions(&out, nil), "schedule", "run", "broken")
	if err == nil || !strings.Contains(err.Error(), "job broken failed") {
		t.Errorf("expected job failure, got %v", err)
	}

	err = execute(t, testOptions(&out, nil), "schedule", "run", "nope")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected unknown job error, got %v", err)
	}
}

func TestRunJob(t *testing.T) {
	setupHome(t)
	cfg := config.DefaultConfig()
	a, err := analyzer.NewWithDeps(cfg, analyzer.Deps{Renderer: fakeRenderer{}, Shaper: identityShaper{}})
	if err != nil {
		t.Fatal(err)
	}
	pub := &mockPublisher{}
	outDir := filepath.Join(t.TempDir(), "reports")

	summary, err := runJob(context.Background(), a, pub, cfg, config.JobConfig{
		Name:       "daily",
		Transcript: writeExport(t),
		OutputDir:  outDir,
		Publish:    true,
	})
	if err != nil {
		t.Fatalf("runJob error: %v", err)
	}
	if !strings.Contains(summary, "2 answerers ranked") {
		t.Errorf("summary = %q", summary)
	}
	if len(pub.reports) != 1 {
		t.Errorf("published %d reports, want 1", len(pub.reports))
	}
	if _, err := os.Stat(filepath.Join(outDir, wordcloud.FileName)); err != nil {
		t.Errorf("word cloud not written: %v", err)
	}
}

func TestRunJob_PublishWithoutTelegram(t *testing.T) {
	setupHome(t)
	cfg := config.DefaultConfig()
	a, err := analyzer.NewWithDeps(cfg, analyzer.Deps{Renderer: fakeRenderer{}, Shaper: identityShaper{}})
	if err != nil {
		t.Fatal(err)
	}

	_, err = runJob(context.Background(), a, nil, cfg, config.JobConfig{
		Name:       "daily",
		Transcript: writeExport(t),
		OutputDir:  t.TempDir(),
		Publish:    true,
	})
	if err == nil || !strings.Contains(err.Error(), "telegram is disabled") {
		t.Errorf("expected telegram disabled error, got %v", err)
	}
}
