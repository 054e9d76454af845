// Package batch runs the optimization pipeline over session items in
// sequential groups of bounded size.
package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"studio/internal/domain"
	"studio/internal/imagegen"
	"studio/internal/media"
)

const (
	DefaultConcurrency = 3
	DefaultItemTimeout = 120 * time.Second
)

// ItemStore is the subset of the session store the scheduler drives.
type ItemStore interface {
	Eligible(ids []string) []string
	Begin(id string) (domain.Item, error)
	Claim(id string) (domain.Item, error)
	Complete(id string, result domain.Image, scene domain.SceneID) (domain.Item, error)
	Fail(id, message string) (domain.Item, error)
	Get(id string) (domain.Item, bool)
}

// SceneResolver maps a requested scene id onto a directive.
type SceneResolver interface {
	Resolve(id string) (domain.Scene, error)
}

// Compressor shrinks a source image before it is encoded.
type Compressor interface {
	Compress(ctx context.Context, img domain.Image) (domain.Image, error)
}

type Options struct {
	Store       ItemStore
	Scenes      SceneResolver
	Compressor  Compressor
	Optimizer   imagegen.Optimizer
	Concurrency int
	ItemTimeout time.Duration
	Logger      zerolog.Logger
	Clock       func() time.Time
	NewID       func() string
}

// Request selects the items and scene of one batch run. Empty ItemIDs
// selects every eligible item; a non-positive Concurrency uses the
// scheduler default.
type Request struct {
	ItemIDs     []string
	SceneID     string
	Concurrency int
}

// Scheduler owns the batch-in-progress flag and the background work it
// starts.
type Scheduler struct {
	store       ItemStore
	scenes      SceneResolver
	compressor  Compressor
	optimizer   imagegen.Optimizer
	concurrency int
	itemTimeout time.Duration
	logger      zerolog.Logger
	now         func() time.Time
	newID       func() string

	mu      sync.Mutex
	running bool
	current *Run

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func New(opts Options) (*Scheduler, error) {
	if opts.Store == nil {
		return nil, errors.New("batch: store is required")
	}
	if opts.Scenes == nil {
		return nil, errors.New("batch: scene resolver is required")
	}
	if opts.Compressor == nil {
		return nil, errors.New("batch: compressor is required")
	}
	if opts.Optimizer == nil {
		return nil, errors.New("batch: optimizer is required")
	}
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	timeout := opts.ItemTimeout
	if timeout <= 0 {
		timeout = DefaultItemTimeout
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		store:       opts.Store,
		scenes:      opts.Scenes,
		compressor:  opts.Compressor,
		optimizer:   opts.Optimizer,
		concurrency: concurrency,
		itemTimeout: timeout,
		logger:      opts.Logger,
		now:         clock,
		newID:       newID,
		baseCtx:     ctx,
		cancel:      cancel,
	}, nil
}

// InProgress reports whether a batch run is active.
func (s *Scheduler) InProgress() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Current returns the active run, or the most recent one, or nil.
func (s *Scheduler) Current() *Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// RunBatch processes the request and returns once every group resolved.
func (s *Scheduler) RunBatch(ctx context.Context, req Request) (Report, error) {
	run, err := s.start(req)
	if err != nil {
		return Report{}, err
	}
	s.execute(ctx, run)
	return run.Report(), nil
}

// StartBatch takes the snapshot and processes it in the background.
func (s *Scheduler) StartBatch(req Request) (*Run, error) {
	run, err := s.start(req)
	if err != nil {
		return nil, err
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.execute(s.baseCtx, run)
	}()
	return run, nil
}

func (s *Scheduler) start(req Request) (*Run, error) {
	scene, err := s.scenes.Resolve(req.SceneID)
	if err != nil {
		return nil, err
	}
	concurrency := req.Concurrency
	if concurrency <= 0 {
		concurrency = s.concurrency
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil, domain.ErrBatchInProgress
	}
	if err := s.baseCtx.Err(); err != nil {
		return nil, fmt.Errorf("batch: scheduler closed: %w", err)
	}

	selected := s.store.Eligible(req.ItemIDs)
	run := newRun(s.newID(), scene, concurrency, selected, s.now())
	s.running = true
	s.current = run
	return run, nil
}

func (s *Scheduler) execute(ctx context.Context, run *Run) {
	log := s.logger.With().Str("run_id", run.ID).Str("scene", string(run.Scene.ID)).Logger()
	log.Info().
		Int("selected", len(run.selected)).
		Int("concurrency", run.Concurrency).
		Msg("batch: run started")

	for start := 0; start < len(run.selected); start += run.Concurrency {
		end := start + run.Concurrency
		if end > len(run.selected) {
			end = len(run.selected)
		}
		group := run.selected[start:end]

		if ctx.Err() != nil {
			for _, id := range group {
				run.skip(id)
			}
			continue
		}

		var eg errgroup.Group
		for _, id := range group {
			item, err := s.store.Claim(id)
			if err != nil {
				log.Debug().Err(err).Str("item_id", id).Msg("batch: item skipped")
				run.skip(id)
				continue
			}
			eg.Go(func() error {
				switch s.process(ctx, run.ID, item, run.Scene) {
				case outcomeDone:
					run.succeed(item.ID)
				case outcomeFailed:
					run.fail(item.ID)
				default:
					run.skip(item.ID)
				}
				return nil
			})
		}
		_ = eg.Wait()
	}

	report := run.finish(s.now())

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	close(run.done)

	log.Info().
		Int("done", len(report.Done)).
		Int("failed", len(report.Failed)).
		Int("skipped", len(report.Skipped)).
		Dur("elapsed", report.FinishedAt.Sub(report.StartedAt)).
		Msg("batch: run finished")
}

// WhileIdle runs fn only when no batch run is active, holding the batch
// flag so a run cannot start until fn returns.
func (s *Scheduler) WhileIdle(fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return domain.ErrBatchInProgress
	}
	fn()
	return nil
}

// Retry re-runs the pipeline for one item that is not processing. It does
// not consult the batch flag.
func (s *Scheduler) Retry(ctx context.Context, id, sceneID string) (domain.Item, error) {
	item, scene, err := s.beginRetry(id, sceneID)
	if err != nil {
		return domain.Item{}, err
	}
	s.process(ctx, "", item, scene)
	latest, ok := s.store.Get(id)
	if !ok {
		return domain.Item{}, fmt.Errorf("batch: item %s: %w", id, domain.ErrNotFound)
	}
	return latest, nil
}

// StartRetry claims the item synchronously and runs its pipeline in the
// background.
func (s *Scheduler) StartRetry(id, sceneID string) error {
	if err := s.baseCtx.Err(); err != nil {
		return fmt.Errorf("batch: scheduler closed: %w", err)
	}
	item, scene, err := s.beginRetry(id, sceneID)
	if err != nil {
		return err
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.process(s.baseCtx, "", item, scene)
	}()
	return nil
}

func (s *Scheduler) beginRetry(id, sceneID string) (domain.Item, domain.Scene, error) {
	scene, err := s.scenes.Resolve(sceneID)
	if err != nil {
		return domain.Item{}, domain.Scene{}, err
	}
	item, err := s.store.Begin(id)
	if err != nil {
		return domain.Item{}, domain.Scene{}, err
	}
	return item, scene, nil
}

// Close cancels background work and waits for in-flight pipelines.
func (s *Scheduler) Close(ctx context.Context) error {
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type outcome struct {
	img domain.Image
	err error
}

type itemOutcome int

const (
	outcomeDone itemOutcome = iota
	outcomeFailed
	// outcomeRemoved means the item left the store while its pipeline ran.
	outcomeRemoved
)

// process runs one claimed item to done or error.
func (s *Scheduler) process(ctx context.Context, runID string, item domain.Item, scene domain.Scene) itemOutcome {
	log := s.logger.With().
		Str("item_id", item.ID).
		Str("run_id", runID).
		Str("scene", string(scene.ID)).
		Logger()
	started := s.now()

	ctx, cancel := context.WithTimeout(ctx, s.itemTimeout)
	defer cancel()

	ch := make(chan outcome, 1)
	go func() {
		img, err := s.pipeline(ctx, item, scene, runID)
		ch <- outcome{img: img, err: err}
	}()

	var res outcome
	select {
	case res = <-ch:
	case <-ctx.Done():
		res = outcome{err: ctx.Err()}
	}
	if res.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		res.err = fmt.Errorf("optimization timed out after %s", s.itemTimeout)
	}

	if res.err != nil {
		if _, err := s.store.Fail(item.ID, res.err.Error()); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				log.Warn().Msg("batch: item removed while processing")
				return outcomeRemoved
			}
			log.Warn().Err(err).Msg("batch: record failure")
		}
		log.Warn().Err(res.err).Dur("elapsed", s.now().Sub(started)).Msg("batch: item failed")
		return outcomeFailed
	}
	if _, err := s.store.Complete(item.ID, res.img, scene.ID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.Warn().Msg("batch: item removed while processing")
			return outcomeRemoved
		}
		log.Warn().Err(err).Msg("batch: record result")
		return outcomeFailed
	}
	log.Info().Dur("elapsed", s.now().Sub(started)).Msg("batch: item done")
	return outcomeDone
}

func (s *Scheduler) pipeline(ctx context.Context, item domain.Item, scene domain.Scene, runID string) (out domain.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pipeline panic: %v", r)
		}
	}()

	compressed, err := s.compressor.Compress(ctx, item.Source)
	if err != nil {
		return domain.Image{}, err
	}
	encoded := media.Encode(compressed)
	result, err := s.optimizer.Optimize(ctx, imagegen.OptimizeRequest{
		Image:       encoded,
		Scene:       scene,
		Description: item.Description,
		RequestID:   runID,
	})
	if err != nil {
		return domain.Image{}, err
	}
	return media.Decode(result)
}
