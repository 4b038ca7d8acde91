package cron

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	rcron "github.com/robfig/cron/v3"

	"github.com/stellarlinkco/chatstats/internal/config"
)

// Job is a scheduled report with its in-memory run state.
type Job struct {
	config.JobConfig
	State JobState `json:"state"`
}

// JobState records the outcome of the last run. It is never persisted.
type JobState struct {
	LastRunAt  time.Time `json:"lastRunAt,omitempty"`
	LastStatus string    `json:"lastStatus,omitempty"`
	LastError  string    `json:"lastError,omitempty"`
	NextRunAt  time.Time `json:"nextRunAt,omitempty"`
}

// Service runs report jobs on their cron schedules.
type Service struct {
	mu       sync.Mutex
	jobs     []Job
	OnJob    func(ctx context.Context, job config.JobConfig) (string, error)
	cron     *rcron.Cron
	entryMap map[string]rcron.EntryID // job name -> cron entry ID
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewService validates the configured jobs. Job names must be unique and
// every enabled job needs a transcript and a valid expression.
func NewService(jobs []config.JobConfig) (*Service, error) {
	s := &Service{entryMap: make(map[string]rcron.EntryID)}
	seen := make(map[string]struct{}, len(jobs))
	for _, jc := range jobs {
		if jc.Name == "" {
			return nil, fmt.Errorf("job with expr %q has no name", jc.Expr)
		}
		if _, dup := seen[jc.Name]; dup {
			return nil, fmt.Errorf("duplicate job name %q", jc.Name)
		}
		seen[jc.Name] = struct{}{}
		if jc.Enabled {
			if jc.Transcript == "" {
				return nil, fmt.Errorf("job %s: transcript is required", jc.Name)
			}
			if _, err := rcron.ParseStandard(jc.Expr); err != nil {
				return nil, fmt.Errorf("job %s: invalid schedule %q: %w", jc.Name, jc.Expr, err)
			}
		}
		s.jobs = append(s.jobs, Job{JobConfig: jc})
	}
	return s, nil
}

func (s *Service) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.ctx = runCtx
	s.cancel = cancel
	s.cron = rcron.New()
	registered := 0
	for i := range s.jobs {
		if s.jobs[i].Enabled {
			if err := s.registerJob(s.jobs[i].JobConfig); err != nil {
				s.mu.Unlock()
				cancel()
				return err
			}
			registered++
		}
	}
	s.mu.Unlock()

	s.cron.Start()
	log.Printf("[cron] started with %d of %d jobs", registered, len(s.jobs))

	go func() {
		<-runCtx.Done()
		s.Stop()
	}()

	return nil
}

func (s *Service) registerJob(jc config.JobConfig) error {
	id, err := s.cron.AddFunc(jc.Expr, func() {
		s.executeJob(jc)
	})
	if err != nil {
		return fmt.Errorf("register job %s (%s): %w", jc.Name, jc.Expr, err)
	}
	s.entryMap[jc.Name] = id
	return nil
}

func (s *Service) executeJob(jc config.JobConfig) {
	log.Printf("[cron] executing job %s", jc.Name)

	if s.OnJob == nil {
		log.Printf("[cron] no OnJob handler set")
		return
	}

	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	result, err := s.OnJob(ctx, jc)

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.jobs {
		if s.jobs[i].Name != jc.Name {
			continue
		}
		s.jobs[i].State.LastRunAt = time.Now()
		if err != nil {
			s.jobs[i].State.LastStatus = "error"
			s.jobs[i].State.LastError = err.Error()
			log.Printf("[cron] job %s error: %v", jc.Name, err)
		} else {
			s.jobs[i].State.LastStatus = "ok"
			s.jobs[i].State.LastError = ""
			log.Printf("[cron] job %s result: %s", jc.Name, truncate(result, 100))
		}
		break
	}
}

// RunNow executes a job immediately, outside its schedule.
func (s *Service) RunNow(name string) error {
	s.mu.Lock()
	var found *config.JobConfig
	for i := range s.jobs {
		if s.jobs[i].Name == name {
			jc := s.jobs[i].JobConfig
			found = &jc
			break
		}
	}
	s.mu.Unlock()

	if found == nil {
		return fmt.Errorf("job %s not found", name)
	}
	s.executeJob(*found)
	return nil
}

func (s *Service) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	c := s.cron
	s.cancel = nil
	s.cron = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if c == nil {
		return
	}
	stopCtx := c.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
		log.Printf("[cron] stop timeout waiting for running jobs")
	}
	log.Printf("[cron] stopped")
}

// ListJobs returns a snapshot of the jobs and their last-run state.
func (s *Service) ListJobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]Job, len(s.jobs))
	copy(result, s.jobs)
	for i := range result {
		if id, ok := s.entryMap[result[i].Name]; ok && s.cron != nil {
			result[i].State.NextRunAt = s.cron.Entry(id).Next
		}
	}
	return result
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
