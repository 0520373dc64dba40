package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime/pprof"
	"time"

	"github.com/delaneyj/strux/changes"
	"github.com/delaneyj/strux/store"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"
)

var (
	profile = flag.String("pgo", "", "write a CPU profile to this file")

	ww    = []int{1, 10, 100, 1_000}
	hh    = []int{1, 10, 100}
	iters = 100
)

func main() {
	flag.Parse()

	if *profile != "" {
		f, err := os.Create(*profile)
		if err != nil {
			log.Fatal(err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	log.Printf("warming up")
	benchmarkDiff(false)
	benchmarkFanout(false)

	benchmarkDiff(true)
	benchmarkFanout(true)
}

func keys(h int) []string {
	out := make([]string, h)
	for i := range out {
		out[i] = fmt.Sprintf("k%d", i)
	}
	return out
}

func record(ks []string, v int) changes.Values {
	out := make(changes.Values, len(ks))
	for _, k := range ks {
		out[k] = v
	}
	return out
}

func newTable(title string) table.Writer {
	tbl := table.NewWriter()
	tbl.SetTitle(title)
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(table.Row{"benchmark", "avg", "min", "p75", "p99", "max"})
	return tbl
}

func appendCalc(tbl table.Writer, name string, tach *tachymeter.Tachymeter) {
	calc := tach.Calc()
	tbl.AppendRows([]table.Row{
		{
			name,
			calc.Time.Avg,
			calc.Time.Min,
			calc.Time.P75,
			calc.Time.P99,
			calc.Time.Max,
		},
	})
}

// benchmarkDiff times StateTree.Apply for w classes with h keys each, every
// key changing on every iteration.
func benchmarkDiff(shouldRender bool) {
	tbl := newTable("Diff")

	for _, w := range ww {
		for _, h := range hh {
			tach := tachymeter.New(&tachymeter.Config{Size: iters})
			tree := changes.NewStateTree()
			ks := keys(h)
			for c := 1; c <= w; c++ {
				tree.Apply(changes.ClassID(c), nil, record(ks, 0))
			}

			for i := 0; i < iters; i++ {
				next := record(ks, i+1)
				start := time.Now()
				for c := 1; c <= w; c++ {
					tree.Apply(changes.ClassID(c), nil, next)
				}
				tach.AddTime(time.Since(start))
			}
			appendCalc(tbl, fmt.Sprintf("apply: %d * %d", w, h), tach)
		}
	}

	if shouldRender {
		tbl.Render()
	}
}

// benchmarkFanout times one state-change dispatch observed by w classes, each
// interested in all h keys of the changing class.
func benchmarkFanout(shouldRender bool) {
	tbl := newTable("Fan-out")

	for _, w := range ww {
		for _, h := range hh {
			tach := tachymeter.New(&tachymeter.Config{Size: iters})

			classes := changes.NewClassTable()
			source := classes.Define("Source")
			reg := changes.NewRegistry()
			s := store.New(store.WithRegistry(reg))
			ks := keys(h)

			delivered := 0
			for i := 0; i < w; i++ {
				observer := classes.Define(fmt.Sprintf("Observer%d", i))
				rules := map[string]any{}
				for _, k := range ks {
					rules[k] = true
				}
				reg.Register(observer, changes.Spec{source: rules})
				store.Attach(s, &counter{class: observer, n: &delivered})
			}

			for i := 0; i < iters; i++ {
				change := store.StateChange{Class: source, Old: record(ks, i), New: record(ks, i+1)}
				start := time.Now()
				if err := s.Dispatch(change); err != nil {
					log.Panic(err)
				}
				tach.AddTime(time.Since(start))
			}
			if delivered != w*iters {
				log.Panicf("expected %d deliveries, got %d", w*iters, delivered)
			}
			appendCalc(tbl, fmt.Sprintf("dispatch: %d * %d", w, h), tach)
		}
	}

	if shouldRender {
		tbl.Render()
	}
}

type counter struct {
	class changes.ClassID
	n     *int
}

func (c *counter) ClassID() changes.ClassID { return c.class }

func (c *counter) TakeState(store.State, changes.ClassID, changes.Values) {
	*c.n++
}
