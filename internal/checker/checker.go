package checker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"coursescout/internal/logger"
	"coursescout/internal/models"
	"coursescout/internal/pipeline"
)

// Runner performs one collect-and-validate pass.
type Runner interface {
	Run(ctx context.Context) (pipeline.CollectStats, models.Summary, error)
}

// Checker is responsible for periodically running the pipeline.
type Checker struct {
	runner        Runner
	checkInterval time.Duration
	log           logger.Logger
	cancel        context.CancelFunc
	stopChan      chan struct{}
	wg            sync.WaitGroup

	mu      sync.Mutex
	lastRun *RunResult
}

// RunResult describes the most recent pass.
type RunResult struct {
	ID         string                `json:"run_id"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt time.Time             `json:"finished_at"`
	Collect    pipeline.CollectStats `json:"collect"`
	Summary    models.Summary        `json:"summary"`
	Error      string                `json:"error,omitempty"`
}

// New creates a new Checker.
func New(runner Runner, interval time.Duration, log logger.Logger) *Checker {
	if log == nil {
		log = logger.NewNop()
	}
	return &Checker{
		runner:        runner,
		checkInterval: interval,
		log:           log,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the periodic runs. Runs never overlap.
func (c *Checker) Start() {
	c.log.Info("starting background checker", logger.Duration("interval", c.checkInterval))
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.checkInterval)
		defer ticker.Stop()

		// Perform an initial run on startup
		c.runOnce(ctx)

		for {
			select {
			case <-ticker.C:
				c.runOnce(ctx)
			case <-c.stopChan:
				c.log.Info("stopping background checker")
				return
			}
		}
	}()
}

// Stop cancels any run in progress and waits for the loop to exit.
func (c *Checker) Stop() {
	close(c.stopChan)
	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()
	c.log.Info("background checker stopped")
}

// LastRun returns the most recent completed run, or nil before the first one.
func (c *Checker) LastRun() *RunResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lastRun == nil {
		return nil
	}
	r := *c.lastRun
	return &r
}

func (c *Checker) runOnce(ctx context.Context) {
	result := RunResult{ID: uuid.NewString(), StartedAt: time.Now()}
	log := c.log.With(logger.String("run_id", result.ID))
	log.Info("pipeline run started")

	stats, summary, err := c.runner.Run(ctx)
	result.FinishedAt = time.Now()
	result.Collect = stats
	result.Summary = summary
	if err != nil {
		result.Error = err.Error()
		log.Error("pipeline run failed", logger.Error(err))
	} else {
		log.Info("pipeline run finished",
			logger.Duration("took", result.FinishedAt.Sub(result.StartedAt)),
			logger.Int("inserted", stats.Inserted),
			logger.Int("urls", summary.Total),
			logger.Int("valid", summary.Valid),
			logger.Int("invalid", summary.Invalid),
			logger.Int("unknown", summary.Unknown),
		)
	}

	c.mu.Lock()
	c.lastRun = &result
	c.mu.Unlock()
}
