package bingart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Generator is the part of Client a batch worker needs.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (*Result, error)
	Close() error
}

// ClientFactory opens a fresh Generator, optionally through proxyURL.
type ClientFactory func(ctx context.Context, proxyURL string, logger Logger) (Generator, error)

// ClientFactoryFromOptions returns a factory building a Client from opts with
// the proxy swapped per worker.
func ClientFactoryFromOptions(opts Options) ClientFactory {
	return func(ctx context.Context, proxyURL string, logger Logger) (Generator, error) {
		o := opts
		if proxyURL != "" {
			o.Proxy = proxyURL
		}
		o.Logger = logger
		return New(ctx, o)
	}
}

// BatchJob is one queued prompt.
type BatchJob struct {
	ID      string
	Request GenerationRequest
}

// BatchResult is the outcome of one job. Fatal results carry no job and mean
// the whole batch has stopped.
type BatchResult struct {
	Job      BatchJob
	WorkerID string
	Result   *Result
	Error    error
	Fatal    bool
}

// BatchConfig configures a Batch.
type BatchConfig struct {
	Workers int
	// Proxies is optional; each worker draws from it and rotates on transport errors.
	Proxies      *ProxyManager
	NewClient    ClientFactory
	Logger       Logger
	StaggerDelay time.Duration
	// MaxAttempts bounds how often a job is retried after retryable transport errors.
	MaxAttempts int
	// MaxInitRetries bounds how often a worker tries to open its session.
	MaxInitRetries int
	// JobTimeout bounds one Generate attempt. Zero waits until the batch stops.
	JobTimeout time.Duration
}

type batchWorker struct {
	id       string
	client   Generator
	proxyURL string
	logger   Logger
}

// workerLogger wraps a logger with worker ID prefix.
type workerLogger struct {
	id   string
	base Logger
}

func (w *workerLogger) Log(format string, args ...any) {
	w.base.Log("[%s] "+format, append([]any{w.id}, args...)...)
}

// Batch runs prompts on a pool of workers. Every worker owns its own client,
// so no session is ever shared between goroutines.
type Batch struct {
	cfg         BatchConfig
	workChan    chan BatchJob
	resultsChan chan BatchResult
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	fatalOnce   sync.Once
	stopped     atomic.Bool
	alive       atomic.Int32
	failedInit  atomic.Int32

	errMu    sync.Mutex
	fatalErr error
}

// NewBatch validates cfg and prepares the queues. Workers start with Start.
func NewBatch(cfg BatchConfig) (*Batch, error) {
	if cfg.Workers <= 0 {
		return nil, fmt.Errorf("worker count must be positive, got %d", cfg.Workers)
	}
	if cfg.NewClient == nil {
		return nil, errors.New("batch needs a client factory")
	}
	if cfg.Logger == nil {
		cfg.Logger = noopLogger{}
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.MaxInitRetries <= 0 {
		cfg.MaxInitRetries = 3
	}

	return &Batch{
		cfg:         cfg,
		workChan:    make(chan BatchJob, cfg.Workers*2),
		resultsChan: make(chan BatchResult, cfg.Workers*2),
	}, nil
}

func generateWorkerID() string {
	return uuid.New().String()[:8]
}

// Start launches the workers, staggered by StaggerDelay.
func (b *Batch) Start(ctx context.Context) {
	b.ctx, b.cancel = context.WithCancel(ctx)
	b.alive.Store(int32(b.cfg.Workers))

	for i := 0; i < b.cfg.Workers; i++ {
		id := generateWorkerID()
		worker := &batchWorker{
			id:     id,
			logger: &workerLogger{id: id, base: b.cfg.Logger},
		}

		b.wg.Add(1)
		go b.runWorker(b.ctx, worker)

		if b.cfg.StaggerDelay > 0 && i < b.cfg.Workers-1 {
			if err := sleepCtx(b.ctx, b.cfg.StaggerDelay); err != nil {
				return
			}
		}
	}
}

// Submit queues a request and returns its job ID. It returns an error once
// the batch has stopped.
func (b *Batch) Submit(req GenerationRequest) (string, error) {
	if b.ctx == nil {
		return "", errors.New("batch not started")
	}

	job := BatchJob{ID: uuid.NewString(), Request: req}
	select {
	case b.workChan <- job:
		return job.ID, nil
	case <-b.ctx.Done():
		return "", fmt.Errorf("batch stopped: %w", context.Cause(b.ctx))
	}
}

// Results returns the results channel for reading job outcomes.
func (b *Batch) Results() <-chan BatchResult {
	return b.resultsChan
}

// Close stops accepting jobs, waits for the workers to drain the queue and
// closes Results.
func (b *Batch) Close() {
	close(b.workChan)
	b.wg.Wait()
	if b.cancel != nil {
		b.cancel()
	}
	close(b.resultsChan)
}

func (b *Batch) handleFatalError(err error) {
	b.fatalOnce.Do(func() {
		b.stopped.Store(true)
		b.errMu.Lock()
		b.fatalErr = err
		b.errMu.Unlock()
		b.cfg.Logger.Log("FATAL ERROR: %v - stopping all workers", err)

		if b.cancel != nil {
			b.cancel()
		}

		select {
		case b.resultsChan <- BatchResult{Fatal: true, Error: err}:
		default:
		}
	})
}

// Err returns the error that stopped the batch, or nil. Unlike the fatal
// result on Results, it is never dropped.
func (b *Batch) Err() error {
	b.errMu.Lock()
	defer b.errMu.Unlock()
	return b.fatalErr
}

func (b *Batch) send(ctx context.Context, r BatchResult) bool {
	select {
	case b.resultsChan <- r:
		return true
	case <-ctx.Done():
		return false
	}
}

func (b *Batch) runWorker(ctx context.Context, worker *batchWorker) {
	defer b.wg.Done()
	defer func() {
		b.closeWorkerClient(worker)
		// The last worker out stops the batch so Submit cannot block forever.
		if b.alive.Add(-1) == 0 {
			b.cancel()
		}
	}()

	if err := b.initWorkerWithRetry(ctx, worker); err != nil {
		if IsFatalError(err) {
			b.handleFatalError(err)
			return
		}
		worker.logger.Log("Failed to initialize after retries: %v", err)
		if b.failedInit.Add(1) == int32(b.cfg.Workers) {
			b.handleFatalError(NewFatalError(fmt.Errorf("no worker could open a session: %w", err)))
		}
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-b.workChan:
			if !ok {
				return
			}
			if !b.runJob(ctx, worker, job) {
				return
			}
		}
	}
}

// runJob processes one job and reports whether the worker should keep going.
func (b *Batch) runJob(ctx context.Context, worker *batchWorker, job BatchJob) bool {
	var lastErr error
	for attempt := 1; attempt <= b.cfg.MaxAttempts; attempt++ {
		if b.stopped.Load() {
			return false
		}

		worker.logger.Log("Processing %s (attempt %d/%d)", job.ID, attempt, b.cfg.MaxAttempts)
		res, err := b.generate(ctx, worker, job)
		if err == nil {
			return b.send(ctx, BatchResult{Job: job, WorkerID: worker.id, Result: res})
		}
		lastErr = err

		if IsFatalError(err) {
			b.handleFatalError(err)
			return false
		}
		if ctx.Err() != nil {
			return false
		}
		if errors.Is(err, errJobTimeout) {
			worker.logger.Log("Job %s timed out", job.ID)
			break
		}
		if !IsRetryableError(err) {
			break
		}

		worker.logger.Log("Failed: %v, rotating session...", err)
		if err := b.resetWorkerSession(ctx, worker); err != nil {
			if IsFatalError(err) {
				b.handleFatalError(err)
				return false
			}
			lastErr = err
			break
		}
	}

	return b.send(ctx, BatchResult{Job: job, WorkerID: worker.id, Error: lastErr})
}

var errJobTimeout = errors.New("job timed out")

// generate runs one attempt under JobTimeout. Timed out attempts are not retried.
func (b *Batch) generate(ctx context.Context, worker *batchWorker, job BatchJob) (*Result, error) {
	if b.cfg.JobTimeout <= 0 {
		return worker.client.Generate(ctx, job.Request)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, b.cfg.JobTimeout)
	defer cancel()

	res, err := worker.client.Generate(attemptCtx, job.Request)
	if err != nil && ctx.Err() == nil && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return nil, fmt.Errorf("%w after %s: %w", errJobTimeout, b.cfg.JobTimeout, err)
	}
	return res, err
}

func (b *Batch) initWorkerWithRetry(ctx context.Context, worker *batchWorker) error {
	var lastErr error
	for attempt := 0; attempt < b.cfg.MaxInitRetries; attempt++ {
		if b.stopped.Load() {
			return lastErr
		}

		proxyURL := b.nextProxy(worker)
		worker.logger.Log("Initializing session...")
		client, err := b.cfg.NewClient(ctx, proxyURL, worker.logger)
		if err != nil {
			lastErr = err
			worker.logger.Log("Session init failed (attempt %d/%d): %v", attempt+1, b.cfg.MaxInitRetries, err)
			if IsFatalError(err) || ctx.Err() != nil {
				return err
			}
			continue
		}

		worker.client = client
		worker.proxyURL = proxyURL
		return nil
	}
	return lastErr
}

func (b *Batch) nextProxy(worker *batchWorker) string {
	if b.cfg.Proxies == nil {
		return ""
	}
	proxyURL, idx := b.cfg.Proxies.Next()
	worker.logger.Log("Using proxy: %s", b.cfg.Proxies.DisplayAt(idx))
	return proxyURL
}

// resetWorkerSession drops the worker's client and opens a new one on the next proxy.
func (b *Batch) resetWorkerSession(ctx context.Context, worker *batchWorker) error {
	b.closeWorkerClient(worker)
	if err := b.initWorkerWithRetry(ctx, worker); err != nil {
		worker.logger.Log("Session reset failed after retries: %v", err)
		return err
	}
	return nil
}

func (b *Batch) closeWorkerClient(worker *batchWorker) {
	if worker.client != nil {
		worker.client.Close()
		worker.client = nil
	}
}

// WorkerCount returns the number of workers.
func (b *Batch) WorkerCount() int {
	return b.cfg.Workers
}
