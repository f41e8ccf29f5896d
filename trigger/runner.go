// Package trigger runs flows on cron schedules and when watched files
// change.
package trigger

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"

	"github.com/kbukum/dataflow/errors"
	"github.com/kbukum/dataflow/flow"
	"github.com/kbukum/dataflow/logger"
)

// ErrRunning is returned when a flow is triggered while its previous run is
// still going.
var ErrRunning = stderrors.New("trigger: flow is already running")

// ResultFunc receives the outcome of every triggered run.
type ResultFunc func(name string, res *flow.Results, err error)

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the runner's logger.
func WithLogger(l *logger.Logger) Option {
	return func(r *Runner) { r.log = l }
}

// OnResult registers fn to receive run outcomes.
func OnResult(fn ResultFunc) Option {
	return func(r *Runner) { r.onResult = fn }
}

type job struct {
	name    string
	flow    *flow.Flow
	running atomic.Bool
}

// Runner owns a cron scheduler and a file watcher. Every registered flow runs
// with flow.Process, and never concurrently with itself.
type Runner struct {
	cfg      Config
	log      *logger.Logger
	onResult ResultFunc

	cron    *cron.Cron
	watcher *fsnotify.Watcher

	mu      sync.Mutex
	jobs    map[string]*job
	watches map[string]*job
	dirs    map[string]bool
	timers  map[string]*time.Timer

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// New creates a stopped Runner.
func New(cfg Config, opts ...Option) (*Runner, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Storage("watch", err)
	}
	r := &Runner{
		cfg:     cfg,
		cron:    cron.New(),
		watcher: watcher,
		jobs:    make(map[string]*job),
		watches: make(map[string]*job),
		dirs:    make(map[string]bool),
		timers:  make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Get("trigger")
	}
	return r, nil
}

func (r *Runner) register(name string, f *flow.Flow) (*job, error) {
	if name == "" || f == nil {
		return nil, errors.InvalidInput("job", "a name and a flow are required")
	}
	if j, ok := r.jobs[name]; ok {
		if j.flow != f {
			return nil, errors.DuplicateName("job", name)
		}
		return j, nil
	}
	j := &job{name: name, flow: f}
	r.jobs[name] = j
	return j, nil
}

// Schedule runs f on the standard five-field cron spec, or a descriptor
// such as "@hourly" or "@every 10m".
func (r *Runner) Schedule(name, spec string, f *flow.Flow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := cron.ParseStandard(spec); err != nil {
		return errors.InvalidInput("schedule", err.Error())
	}
	j, err := r.register(name, f)
	if err != nil {
		return err
	}
	if _, err := r.cron.AddFunc(spec, func() { r.fire(j, "schedule") }); err != nil {
		return errors.InvalidInput("schedule", err.Error())
	}
	r.log.Debug("flow scheduled", logger.Fields("job", name, "spec", spec))
	return nil
}

// Watch runs f whenever the file at path is written or created. Bursts of
// events are coalesced by Config.Debounce.
func (r *Runner) Watch(name, path string, f *flow.Flow) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.InvalidInput("path", err.Error())
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	j, err := r.register(name, f)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if !r.dirs[dir] {
		if err := r.watcher.Add(dir); err != nil {
			return errors.Storage("watch", err)
		}
		r.dirs[dir] = true
	}
	r.watches[abs] = j
	r.log.Debug("flow watching", logger.Fields("job", name, logger.FieldPath, abs))
	return nil
}

// Start begins firing triggers. Runs use a context derived from ctx.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.cron.Start()
	r.wg.Add(1)
	go r.watch()
	r.log.Info("trigger runner started", logger.Fields("jobs", len(r.jobs)))
}

// Stop stops the scheduler and the watcher and waits for running flows, up
// to Config.StopTimeout.
func (r *Runner) Stop() error {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return r.watcher.Close()
	}
	r.started = false
	for _, t := range r.timers {
		t.Stop()
	}
	r.mu.Unlock()

	cronDone := r.cron.Stop()
	werr := r.watcher.Close()

	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(r.cfg.StopTimeout):
		r.log.Warn("running flows did not stop in time", logger.Fields("timeout", r.cfg.StopTimeout.String()))
	}
	r.cancel()
	r.log.Info("trigger runner stopped")
	return werr
}

// RunNow runs the named flow immediately and returns its results.
func (r *Runner) RunNow(ctx context.Context, name string) (*flow.Results, error) {
	r.mu.Lock()
	j, ok := r.jobs[name]
	r.mu.Unlock()
	if !ok {
		return nil, errors.NotFound("job", name)
	}
	return r.run(ctx, j, "manual")
}

func (r *Runner) fire(j *job, cause string) {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()
	defer r.wg.Done()
	if _, err := r.run(r.ctx, j, cause); stderrors.Is(err, ErrRunning) {
		r.log.Warn("trigger skipped, flow still running", logger.Fields("job", j.name, "cause", cause))
	}
}

func (r *Runner) run(ctx context.Context, j *job, cause string) (*flow.Results, error) {
	if !j.running.CompareAndSwap(false, true) {
		return nil, ErrRunning
	}
	defer j.running.Store(false)

	log := r.log.WithContext(ctx)
	log.Info("flow triggered", logger.Fields("job", j.name, "cause", cause))
	res, err := j.flow.Process(ctx)
	if err != nil {
		log.Error("triggered flow failed", logger.MergeWithError(logger.Fields("job", j.name), err))
	}
	if r.onResult != nil {
		r.onResult(j.name, res, err)
	}
	return res, err
}

func (r *Runner) watch() {
	defer r.wg.Done()
	for {
		select {
		case <-r.ctx.Done():
			return
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			r.debounce(abs)
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.log.Warn("watch error", logger.Fields(logger.FieldError, err.Error()))
		}
	}
}

func (r *Runner) debounce(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.watches[path]
	if !ok || !r.started {
		return
	}
	if t, ok := r.timers[path]; ok {
		t.Stop()
	}
	r.timers[path] = time.AfterFunc(r.cfg.Debounce, func() { r.fire(j, "watch") })
}
