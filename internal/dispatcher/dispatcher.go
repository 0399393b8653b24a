package dispatcher

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/getsentry/sentry-go"
	conf "github.com/nba-highlights/frame-splitter/internal/config"
)

var (
	// ErrAlreadyRunning rejects a submission whose key is in flight.
	ErrAlreadyRunning = errors.New("job already running")
	// ErrEmptyKey rejects a submission without a job key.
	ErrEmptyKey = errors.New("job key must not be empty")
)

// Task is one unit of background work. Its result is stored on the job record;
// nothing is reported back to the submitter.
type Task func() (frameCount int, err error)

type State int

const (
	StateRunning State = iota + 1
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Record is the bookkeeping entry for one job. FrameCount and Err carry the
// terminal result once State is StateCompleted.
type Record struct {
	Key        string
	State      State
	FrameCount int
	Err        error
}

// Dispatcher guarantees at most one in-flight execution per job key and runs
// accepted jobs on a fixed-size worker pool. The jobs map is the only shared
// mutable state in the service; every access goes through mu so that
// check-then-insert is atomic.
type Dispatcher struct {
	mu   sync.Mutex
	jobs map[string]*Record

	sem chan struct{}
	wg  sync.WaitGroup
}

func New(cfg *conf.DispatcherConfig) *Dispatcher {
	return &Dispatcher{
		jobs: make(map[string]*Record),
		sem:  make(chan struct{}, cfg.Workers),
	}
}

// Submit hands task to the pool under key. It returns nil when the job was
// accepted and ErrAlreadyRunning when the key is already in flight. The key is
// recorded as running before Submit returns, so a duplicate issued immediately
// afterwards cannot also be accepted. Submit never blocks on pool saturation:
// the accepted job waits for a worker slot in the background.
func (d *Dispatcher) Submit(key string, task Task) error {
	if key == "" {
		return ErrEmptyKey
	}

	d.mu.Lock()
	if rec, ok := d.jobs[key]; ok {
		if rec.State == StateRunning {
			d.mu.Unlock()
			return ErrAlreadyRunning
		}
		// Stale completed record; this submission starts a fresh run.
		delete(d.jobs, key)
	}
	d.jobs[key] = &Record{Key: key, State: StateRunning}
	d.mu.Unlock()

	d.wg.Add(1)
	go d.execute(key, task)

	return nil
}

// Snapshot returns a copy of the record for key, when one exists.
func (d *Dispatcher) Snapshot(key string) (Record, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	rec, ok := d.jobs[key]
	if !ok {
		return Record{}, false
	}
	return *rec, true
}

// Wait blocks until every accepted job has completed.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) execute(key string, task Task) {
	defer d.wg.Done()

	d.sem <- struct{}{}
	defer func() { <-d.sem }()

	frameCount, err := runTask(task)

	d.mu.Lock()
	if rec, ok := d.jobs[key]; ok {
		rec.State = StateCompleted
		rec.FrameCount = frameCount
		rec.Err = err
	}
	d.mu.Unlock()

	if err != nil {
		log.Printf("[dispatcher] job %q failed: %v", key, err)
		sentry.CaptureException(fmt.Errorf("job %q: %w", key, err))
		return
	}
	log.Printf("[dispatcher] job %q completed with %d frames", key, frameCount)
}

// runTask shields the worker from a panicking task; the panic becomes the
// job's terminal error.
func runTask(task Task) (frameCount int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return task()
}
