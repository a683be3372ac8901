// File: scheduler.go
// Author: momentics <momentics@gmail.com>
//
// Scheduler is a root or child dispatcher owning one registry, one lock,
// and a platform adapter.
// Construction, teardown, and the handful of accessors that don't touch
// the registry live here; the registry, timer queue, event bus, and loop
// each get their own file (registry.go, timeout.go, event.go, loop.go).

package taskloop

import (
	"log"
	"sync"

	"github.com/momentics/taskloop/adapters"
	"github.com/momentics/taskloop/api"
	"github.com/momentics/taskloop/control"
	"github.com/momentics/taskloop/pool"
)

// Scheduler multiplexes fd readiness, timeouts, and named events onto one
// dispatch thread. Zero value is not usable; construct with
// Init.
type Scheduler struct {
	mu sync.Mutex

	valid   bool
	stopped bool

	parent     *Scheduler
	appContext any
	arena      *Arena

	adapter      api.PlatformAdapter
	adapterState any

	notify    api.NotifyFunc
	notifyCtx any

	maxTasks int
	fdTasks  map[uint64]*Task

	timeoutHead *Task
	freelist    *pool.Freelist[*Task]

	// events is non-nil only on the root scheduler.
	events map[string]*Task

	clock clockFunc

	tunables *control.ConfigStore
	metrics  *control.MetricsRegistry
	control  *adapters.ControlAdapter

	affinity    *adapters.AffinityAdapter
	affinityCPU int
}

// Option configures a Scheduler at construction time.
type Option func(*Scheduler)

// WithMaxTasks sets the fd-task ceiling enforced by AddFD (0 means
// unlimited).
func WithMaxTasks(n int) Option {
	return func(s *Scheduler) { s.maxTasks = n }
}

// WithArenaSize overrides the default per-scheduler Arena capacity.
func WithArenaSize(n int) Option {
	return func(s *Scheduler) { s.arena = NewArena(n) }
}

// WithTunables attaches a shared control.ConfigStore (freelist cap/trim
// period, timer batch limit, opportunistic-dispatch threshold). Schedulers
// without one fall back to control.DefaultTunables().
func WithTunables(cs *control.ConfigStore) Option {
	return func(s *Scheduler) { s.tunables = cs }
}

// WithMetrics attaches a shared control.MetricsRegistry the scheduler
// updates as tasks come and go.
func WithMetrics(mr *control.MetricsRegistry) Option {
	return func(s *Scheduler) { s.metrics = mr }
}

// WithControl attaches a ControlAdapter whose debug probes and metrics
// Init wires up to report this scheduler's live state: a "scheduler.events"
// probe that snapshots declared event signatures, and a max_tasks metric.
func WithControl(ca *adapters.ControlAdapter) Option {
	return func(s *Scheduler) { s.control = ca }
}

// WithAffinity pins the goroutine that later calls Run to cpu for the
// duration of the loop. Pinning happens once, at the top of Run, not on
// every RunOnce call.
func WithAffinity(cpu int) Option {
	return func(s *Scheduler) {
		s.affinity = adapters.NewAffinityAdapter()
		s.affinityCPU = cpu
	}
}

// Init constructs a Scheduler, wires it to adapter, and initializes it.
// parent may be nil to construct a root. The returned Scheduler owns
// adapter for its lifetime; adapter.Uninit is called from Uninit.
func Init(adapter api.PlatformAdapter, appContext any, parent *Scheduler, opts ...Option) (*Scheduler, error) {
	s := &Scheduler{
		valid:      true,
		parent:     parent,
		appContext: appContext,
		adapter:    adapter,
		fdTasks:    make(map[uint64]*Task),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.arena == nil {
		s.arena = NewArena(defaultArenaSize)
	}
	if s.tunables == nil {
		s.tunables = control.NewTunablesStore()
	}
	if s.metrics == nil {
		s.metrics = control.NewMetricsRegistry()
	}
	s.freelist = pool.NewFreelist(func() *Task { return &Task{} })

	if parent == nil {
		s.events = make(map[string]*Task)
	}

	if s.control != nil {
		s.control.RegisterDebugProbe("scheduler.events", func() any {
			return s.EventSignatures()
		})
		s.control.SetMetric("scheduler.max_tasks", s.maxTasks)
	}

	state, err := adapter.Init(s, appContext)
	if err != nil {
		s.valid = false
		return nil, err
	}
	s.adapterState = state
	return s, nil
}

// EnableFreelistGC schedules the self-rescheduling freelist compaction
// timer. It is opt-in rather
// than automatic so that a scheduler under test has a quiet timeout queue
// until the caller explicitly wants background trimming.
func (s *Scheduler) EnableFreelistGC() {
	s.startFreelistGC()
}

// GetParent returns the scheduler's parent, or nil for a root.
func (s *Scheduler) GetParent() *Scheduler {
	return s.parent
}

// GetAppContext returns the opaque application context supplied to Init.
func (s *Scheduler) GetAppContext() any {
	return s.appContext
}

// GetArena returns this scheduler's per-thread scratch arena.
func (s *Scheduler) GetArena() *Arena {
	return s.arena
}

// SetNotify installs the notify-observer invoked under the lock for every
// add and every invalidation.
func (s *Scheduler) SetNotify(cb api.NotifyFunc, ctx any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notify = cb
	s.notifyCtx = ctx
}

func (s *Scheduler) fireNotify(n api.Notification) {
	if s.notify == nil {
		return
	}
	n.Scheduler = s
	n.Context = s.notifyCtx
	s.notify(n)
}

// root walks the parent chain to the top-level scheduler.
func (s *Scheduler) root() *Scheduler {
	r := s
	for r.parent != nil {
		r = r.parent
	}
	return r
}

// Stop marks the scheduler stopped; the run loop exits at the next
// iteration boundary.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	_ = s.Wake()
}

// Wake forces a concurrently blocked Poll call to return promptly.
func (s *Scheduler) Wake() error {
	return s.adapter.Wake(s, s.adapterState)
}

// Uninit tears the scheduler down: it refuses while the
// scheduler is still valid, requiring Stop first; then it drains pending
// signals, runs dispatch-timeouts(all=true), invalidates every remaining
// task, reaps event subscriptions, releases the adapter, and finally the
// arena.
func (s *Scheduler) Uninit() error {
	s.mu.Lock()
	if s.valid && !s.stopped {
		s.mu.Unlock()
		return api.NewError(api.ErrCodeInvalidArgument, "uninit called while scheduler is still running; call Stop first")
	}
	s.mu.Unlock()

	s.adapter.SignalsCall(s, s.adapterState)
	s.dispatchTimeouts(true)
	s.invalidateAllLocked()
	s.reapAll()

	s.mu.Lock()
	for name, t := range s.events {
		t.subs = nil
		delete(s.events, name)
	}
	s.valid = false
	s.mu.Unlock()

	// Adapter teardown strictly after every task callback has been
	// reaped, so no callback can touch a torn-down poller.
	s.adapter.Uninit(s, s.adapterState)
	s.arena.Reset()
	return nil
}

func (s *Scheduler) logf(format string, args ...any) {
	log.Printf("taskloop: "+format, args...)
}
