package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dgallion1/ismsdoc/internal/config"
	"github.com/dgallion1/ismsdoc/internal/render"
)

// Stats keeps one rolling latency window per job kind.
type Stats struct {
	byKind map[JobKind]*RunStats
}

func NewStats(window time.Duration) *Stats {
	return &Stats{byKind: map[JobKind]*RunStats{
		KindGenerate: NewRunStats(window),
		KindImport:   NewRunStats(window),
	}}
}

func (s *Stats) Record(kind JobKind, d time.Duration, ok bool) {
	if rs, found := s.byKind[kind]; found {
		rs.Record(d, ok)
	}
}

// Snapshot returns the aggregate for every kind.
func (s *Stats) Snapshot() map[JobKind]StatsSnapshot {
	out := make(map[JobKind]StatsSnapshot, len(s.byKind))
	for k, rs := range s.byKind {
		out[k] = rs.Snapshot()
	}
	return out
}

// Orchestrator manages the generate and import job queue.
type Orchestrator struct {
	jobs   *JobStore
	queue  chan *Job
	stats  *Stats
	worker WorkerConfig
	log    *slog.Logger
	cfg    config.Config

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates the pipeline. Call Start to launch workers.
func NewOrchestrator(cfg config.Config, gen *render.Generator, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	stats := NewStats(time.Hour)
	parse := ParseOptions(cfg)
	parse.Log = log
	return &Orchestrator{
		jobs:  NewJobStore(cfg.JobTTL),
		queue: make(chan *Job, cfg.MaxQueueSize),
		stats: stats,
		worker: WorkerConfig{
			Generator:    gen,
			Parse:        parse,
			TemplatePath: cfg.TemplatePath,
			OutputDir:    cfg.OutputDir,
			RetryBackoff: cfg.ReplaceBackoff,
			Stats:        stats,
		},
		log: log,
		cfg: cfg,
	}
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.worker, o.log)
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.cleanup()
			}
		}
	}()
}

// cleanup evicts expired jobs and removes their output directories.
func (o *Orchestrator) cleanup() {
	for _, job := range o.jobs.Cleanup() {
		o.removeOutput(job)
	}
}

func (o *Orchestrator) removeOutput(job *Job) error {
	dir := filepath.Join(o.cfg.OutputDir, job.ID)
	err := os.RemoveAll(dir)
	if err != nil {
		o.log.Warn("remove job output", "job_id", job.ID, "error", err)
	}
	return err
}

// ErrJobRunning is returned when deleting a job that has not finished.
var ErrJobRunning = errors.New("job is still running")

// DeleteJob forgets a finished job and deletes its output. Running jobs
// are left alone.
func (o *Orchestrator) DeleteJob(id string) (bool, error) {
	job := o.jobs.Get(id)
	if job == nil {
		return false, nil
	}
	if st := job.Snapshot().Status; !st.Done() {
		return true, fmt.Errorf("%w: %s is %s", ErrJobRunning, id, st)
	}
	o.jobs.Delete(id)
	return true, o.removeOutput(job)
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// Stats returns the run latency aggregates.
func (o *Orchestrator) Stats() map[JobKind]StatsSnapshot {
	return o.stats.Snapshot()
}

// Generator returns the generator the workers share.
func (o *Orchestrator) Generator() *render.Generator {
	return o.worker.Generator
}
