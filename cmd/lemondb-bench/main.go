// Command lemondb-bench exercises a Database end-to-end: it creates one
// table, bulk-inserts a run of rows and issues a SUM query, so the
// partition-boundary behavior of spec.md §8 scenario 6 ("SUM over 250,000
// rows must equal 31,249,875,000 regardless of worker count") can be
// checked by hand against different -workers values.
//
// Grounded on blockwatch-cc-packdb's tools/rebuild.go: a flag-parsed,
// echa/log-logging main package, generalized from packdb's "drop and
// rebuild table metadata from a bbolt file" operation to "create, load and
// query an in-memory table."
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	logpkg "github.com/echa/log"

	"lemondb.dev/lemondb/engine"
	"lemondb.dev/lemondb/query"
)

var (
	flags   = flag.NewFlagSet("lemondb-bench", flag.ContinueOnError)
	workers int
	rows    int
	verbose bool
)

func init() {
	flags.Usage = func() {}
	flags.IntVar(&workers, "workers", 4, "worker `count` (0 = runtime.GOMAXPROCS)")
	flags.IntVar(&rows, "rows", 250_000, "number of rows to insert before summing")
	flags.BoolVar(&verbose, "v", false, "enable info-level logging")
}

func pretty(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	out := b.String()
	if neg {
		out = "-" + out
	}
	return out
}

func run() error {
	if err := flags.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			flags.PrintDefaults()
			return nil
		}
		return err
	}
	if verbose {
		logpkg.SetLevel(logpkg.LevelInfo)
		query.UseLogger(logpkg.Log)
		engine.UseLogger(logpkg.Log)
	}

	db := engine.New(engine.Config{WorkerCount: workers})
	db.Start()
	defer db.Stop()

	t, err := db.Create("bench", []string{"A"})
	if err != nil {
		return fmt.Errorf("create table: %w", err)
	}

	start := time.Now()
	for i := 0; i < rows; i++ {
		key := "k" + strconv.Itoa(i)
		if err := t.InsertByIndex(key, []int32{int32(i)}); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}
	loadElapsed := time.Since(start)

	start = time.Now()
	res := query.Run(db, query.NewSum("bench", "A"))
	sumElapsed := time.Since(start)

	v, ok := res.IntValue()
	if !ok {
		return fmt.Errorf("unexpected result: %s", res)
	}

	fmt.Printf("rows=%s workers=%d load=%s sum=%s sum_time=%s\n",
		pretty(int64(rows)), workers, loadElapsed, pretty(v), sumElapsed)
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "lemondb-bench:", err)
		os.Exit(1)
	}
}
