// Package engine implements the Database registry (tables by name) and the
// fixed-size worker pool that drains its task queue (spec.md §4.5, §4.6).
//
// Grounded on blockwatch-cc-packdb's pack.DB (table registry, CreateTable/
// DropTable/Table methods, table-level RWMutex) generalized from a
// bbolt-backed multi-table store to a plain in-memory map[string]*table.Table,
// plus other_examples/dot5enko-simple-column-db__worker.go's atomic-counter
// task-completion idiom for the worker pool's shutdown/drain behavior.
// Design Notes §9 explicitly asks for an explicit Start/Stop lifecycle
// rather than an implicit-init singleton, which a Go package-level var
// would otherwise encourage; Database here is a plain constructible type
// exactly like blockwatch-cc-packdb's *pack.DB (taken as a receiver, never a global).
package engine

import (
	"runtime"
	"sync"
	"sync/atomic"

	"lemondb.dev/lemondb/lemonerr"
	"lemondb.dev/lemondb/table"
)

// Task is the unit of work the worker pool drains from the queue. Query
// variants' tasks implement this (spec.md §4.4).
type Task interface {
	// Execute runs the task's range scan/action and marks completion.
	Execute()
	// Abort marks the task completed-without-running, for tasks still
	// queued when Stop() drains the pool (spec.md §5 "Cancellation").
	Abort()
}

// Config holds the engine's one tunable (spec.md §6).
type Config struct {
	// WorkerCount is the number of worker goroutines started by Start.
	// <= 0 resolves to runtime.GOMAXPROCS(0) ("default = detected parallelism").
	WorkerCount int
}

// Database is the process-wide table registry plus task queue. It is a
// constructible type with an explicit Start/Stop lifecycle (not a language
// singleton); callers that want singleton semantics hold one instance for
// the process, the same way pack.DB is held by its caller.
type Database struct {
	mu     sync.RWMutex
	tables map[string]*table.Table

	tasks    chan Task
	wg       sync.WaitGroup
	stopping atomic.Bool
	running  atomic.Bool
	cfg      Config
}

func New(cfg Config) *Database {
	return &Database{
		tables: make(map[string]*table.Table),
		cfg:    cfg,
	}
}

// Create declares a new table; fails with ErrDuplicateTableName if name is
// already registered.
func (d *Database) Create(name string, fields []string) (*table.Table, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.tables[name]; exists {
		return nil, lemonerr.Wrapf(lemonerr.ErrDuplicateTableName, "table %q", name)
	}
	t, err := table.New(name, fields)
	if err != nil {
		return nil, err
	}
	d.tables[name] = t
	log.Debugf("engine: created table %q with %d fields", name, t.Fields().Len())
	return t, nil
}

// Register adds an already-built table (e.g. one produced by
// loader.LoadTable) to the registry under its own name, failing with
// ErrDuplicateTableName if that name is already taken.
func (d *Database) Register(t *table.Table) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.tables[t.Name()]; exists {
		return lemonerr.Wrapf(lemonerr.ErrDuplicateTableName, "table %q", t.Name())
	}
	d.tables[t.Name()] = t
	log.Debugf("engine: registered loaded table %q with %d rows", t.Name(), t.Size())
	return nil
}

// Drop removes a table; fails with ErrTableNameNotFound.
func (d *Database) Drop(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.tables[name]; !exists {
		return lemonerr.Wrapf(lemonerr.ErrTableNameNotFound, "table %q", name)
	}
	delete(d.tables, name)
	return nil
}

// Get looks up a table by name; fails with ErrTableNameNotFound.
func (d *Database) Get(name string) (*table.Table, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, exists := d.tables[name]
	if !exists {
		return nil, lemonerr.Wrapf(lemonerr.ErrTableNameNotFound, "table %q", name)
	}
	return t, nil
}

// TableNames lists every registered table, for diagnostics.
func (d *Database) TableNames() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.tables))
	for n := range d.tables {
		names = append(names, n)
	}
	return names
}

// Start launches the worker pool. Not re-entrant; call once per Database.
func (d *Database) Start() {
	n := d.cfg.WorkerCount
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	d.tasks = make(chan Task, 4096)
	d.running.Store(true)
	for i := 0; i < n; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	log.Infof("engine: started %d workers", n)
}

func (d *Database) worker() {
	defer d.wg.Done()
	for t := range d.tasks {
		if d.stopping.Load() {
			t.Abort()
			continue
		}
		t.Execute()
	}
}

// AddTask enqueues t onto the worker pool (spec.md §4.5's addTask).
func (d *Database) AddTask(t Task) {
	d.tasks <- t
}

// Stop drains queued-but-unstarted tasks (aborting them) and joins after
// every in-flight task finishes (spec.md §5's cancellation model).
func (d *Database) Stop() {
	if !d.running.CompareAndSwap(true, false) {
		return
	}
	d.stopping.Store(true)
	close(d.tasks)
	d.wg.Wait()
	log.Info("engine: stopped")
}
