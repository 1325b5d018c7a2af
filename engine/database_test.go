package engine

import (
	"errors"
	"sync"
	"testing"

	"lemondb.dev/lemondb/lemonerr"
)

func TestCreateAndGet(t *testing.T) {
	db := New(Config{WorkerCount: 2})
	if _, err := db.Create("T", []string{"A"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := db.Get("T"); err != nil {
		t.Fatalf("Get: %v", err)
	}
}

func TestCreateDuplicateNameFails(t *testing.T) {
	db := New(Config{})
	if _, err := db.Create("T", []string{"A"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err := db.Create("T", []string{"B"})
	if !errors.Is(err, lemonerr.ErrDuplicateTableName) {
		t.Fatalf("err = %v, want ErrDuplicateTableName", err)
	}
}

func TestGetMissingTableFails(t *testing.T) {
	db := New(Config{})
	_, err := db.Get("nope")
	if !errors.Is(err, lemonerr.ErrTableNameNotFound) {
		t.Fatalf("err = %v, want ErrTableNameNotFound", err)
	}
}

func TestDropRemovesTable(t *testing.T) {
	db := New(Config{})
	if _, err := db.Create("T", nil); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := db.Drop("T"); err != nil {
		t.Fatalf("Drop: %v", err)
	}
	if _, err := db.Get("T"); !errors.Is(err, lemonerr.ErrTableNameNotFound) {
		t.Fatalf("Get after Drop err = %v, want ErrTableNameNotFound", err)
	}
}

// countingTask records that Execute ran exactly once via a WaitGroup,
// mirroring other_examples/dot5enko-simple-column-db__worker.go's
// fan-out/fan-in completion check.
type countingTask struct {
	wg *sync.WaitGroup
}

func (c *countingTask) Execute() { c.wg.Done() }
func (c *countingTask) Abort()   { c.wg.Done() }

func TestWorkerPoolDrainsQueuedTasks(t *testing.T) {
	db := New(Config{WorkerCount: 4})
	db.Start()
	defer db.Stop()

	var wg sync.WaitGroup
	const n = 200
	wg.Add(n)
	for i := 0; i < n; i++ {
		db.AddTask(&countingTask{wg: &wg})
	}
	wg.Wait()
}

func TestStopIsIdempotent(t *testing.T) {
	db := New(Config{WorkerCount: 1})
	db.Start()
	db.Stop()
	db.Stop()
}
