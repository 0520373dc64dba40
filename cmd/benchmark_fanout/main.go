package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/delaneyj/strux/changes"
	"github.com/delaneyj/strux/store"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
)

func main() {
	log.Print("Starting strux fan-out benchmark, please wait...")
	defer log.Print("Finished strux fan-out benchmark")

	cfgs := []benchmarkConfig{
		{name: "simple component", width: 10, totalLayers: 5, nSources: 2, iterations: 20000},
		{name: "wide", width: 1000, totalLayers: 3, nSources: 4, iterations: 500},
		{name: "wide dense", width: 1000, totalLayers: 5, nSources: 25, iterations: 100},
		{name: "deep", width: 5, totalLayers: 500, nSources: 3, iterations: 100},
		{name: "star", width: 1, totalLayers: 2, nSources: 1, fanout: 5000, iterations: 500},
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{
		"size", "nSources", "nTimes", "test", "time",
		"deliveries", "deliveryRate", "title",
	})

	testRepeats := 5
	for _, cfg := range cfgs {
		log.Printf("Running '%s' config", cfg.name)

		best := result{duration: time.Hour}
		for i := 0; i < testRepeats+1; i++ {
			g := makeGraph(cfg)
			start := time.Now()
			g.run(cfg.iterations)
			duration := time.Since(start)
			// first run warms up
			if i == 0 {
				continue
			}
			log.Printf("Running '%s' config, iteration %d/%d %d%%", cfg.name, i, testRepeats, i*100/testRepeats)
			if duration < best.duration {
				best = result{duration: duration, deliveries: g.deliveries}
			}
		}

		rate := float64(best.deliveries) / (float64(best.duration) / float64(time.Millisecond))
		table.Append([]string{
			fmt.Sprintf("%dx%d", cfg.width, cfg.totalLayers), // size
			fmt.Sprint(cfg.nSources),                         // nSources
			humanize.Comma(int64(cfg.iterations)),            // nTimes
			cfg.name,                                         // test
			fmt.Sprint(best.duration),                        // time
			humanize.Comma(best.deliveries),                  // deliveries
			humanize.Comma(int64(rate)) + "/ms",              // deliveryRate
			cfg.title(),                                      // title
		})
	}
	table.Render()
}

type benchmarkConfig struct {
	name        string // friendly name, should be unique
	width       int    // classes per layer
	totalLayers int    // layers including the source layer
	nSources    int    // classes of the previous layer each class observes
	fanout      int    // when set, the last layer has this many classes
	iterations  int
}

func (cfg benchmarkConfig) title() string {
	if cfg.fanout > 0 {
		return fmt.Sprintf("1 source observed by %s classes", humanize.Comma(int64(cfg.fanout)))
	}
	return fmt.Sprintf("%dx%d %d sources", cfg.width, cfg.totalLayers, cfg.nSources)
}

type result struct {
	duration   time.Duration
	deliveries int64
}

type graph struct {
	store      *store.Store
	sources    []changes.ClassID
	deliveries int64
}

// node sums the "v" of the classes it observes into its own "v". A change
// only travels on when the sum moved.
type node struct {
	id      changes.ClassID
	sources []changes.ClassID
	g       *graph
}

func (n *node) ClassID() changes.ClassID { return n.id }

func (n *node) TakeState(_ store.State, _ changes.ClassID, _ changes.Values) {
	n.g.deliveries++
	sum := 0
	for _, src := range n.sources {
		slot, _ := n.g.store.Slot(src)
		v, _ := slot["v"].(int)
		sum += v
	}
	if err := n.g.store.Dispatch(store.StateChange{Class: n.id, New: changes.Values{"v": sum}}); err != nil {
		log.Panic(err)
	}
}

func makeGraph(cfg benchmarkConfig) *graph {
	classes := changes.NewClassTable()
	reg := changes.NewRegistry()
	g := &graph{store: store.New(store.WithRegistry(reg))}

	prev := make([]changes.ClassID, cfg.width)
	for i := range prev {
		prev[i] = classes.Define(fmt.Sprintf("L0N%d", i))
		if err := g.store.Dispatch(store.StateChange{Class: prev[i], New: changes.Values{"v": 0}}); err != nil {
			log.Panic(err)
		}
	}
	g.sources = prev

	for l := 1; l < cfg.totalLayers; l++ {
		width := cfg.width
		if cfg.fanout > 0 && l == cfg.totalLayers-1 {
			width = cfg.fanout
		}
		row := make([]changes.ClassID, width)
		for i := range row {
			n := &node{id: classes.Define(fmt.Sprintf("L%dN%d", l, i)), g: g}
			spec := changes.Spec{}
			for j := 0; j < cfg.nSources; j++ {
				src := prev[(i+j)%len(prev)]
				n.sources = append(n.sources, src)
				spec[src] = map[string]any{"v": true}
			}
			reg.Register(n.id, spec)
			store.Attach(g.store, n)
			row[i] = n.id
		}
		prev = row
	}
	return g
}

func (g *graph) run(iterations int) {
	for i := 0; i < iterations; i++ {
		src := g.sources[i%len(g.sources)]
		if err := g.store.Dispatch(store.StateChange{Class: src, New: changes.Values{"v": i + 1}}); err != nil {
			log.Panic(err)
		}
	}
}
