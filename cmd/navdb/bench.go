// cmd/navdb/bench.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

import (
	"fmt"
	"math/rand/v2"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/spf13/cobra"

	"github.com/mmp/navdb/log"
	"github.com/mmp/navdb/math"
)

var (
	benchQueries int
	benchCenter  []float64
	benchSpread  float64
	benchNum     int
	benchRangeNM float64
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Time proximity queries against the cache",
	Args:  cobra.NoArgs,
	RunE:  runBench,
}

func init() {
	benchCmd.Flags().IntVarP(&benchQueries, "queries", "q", 1000, "number of queries of each kind to run")
	benchCmd.Flags().Float64SliceVar(&benchCenter, "center", []float64{39, -98}, "lat,lon around which to query")
	benchCmd.Flags().Float64Var(&benchSpread, "spread", 10, "degrees of latitude and longitude to spread queries over")
	benchCmd.Flags().IntVarP(&benchNum, "num", "n", 10, "number of results for nearest queries")
	benchCmd.Flags().Float64VarP(&benchRangeNM, "range", "r", 25, "radius in nautical miles")
}

type benchResult struct {
	Kind    string
	Queries int
	Found   int
	Partial int
	Elapsed time.Duration
}

func (b benchResult) String() string {
	return fmt.Sprintf("%-10s %6d queries %8d found %4d partial %10s total %8s/query", b.Kind, b.Queries,
		b.Found, b.Partial, b.Elapsed.Round(time.Microsecond),
		(b.Elapsed / time.Duration(max(1, b.Queries))).Round(time.Microsecond))
}

func runBench(cmd *cobra.Command, args []string) error {
	if len(benchCenter) != 2 {
		return fmt.Errorf("--center: expected lat,lon")
	}

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	r := rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	points := make([]math.Geod, benchQueries)
	for i := range points {
		points[i] = math.Geod{
			Lat: benchCenter[0] + benchSpread*(r.Float64()-0.5),
			Lon: benchCenter[1] + benchSpread*(r.Float64()-0.5),
		}
	}

	// Sample CPU usage while the queries run.
	cpuch := make(chan []float64, 1)
	go func() {
		usage, _ := cpu.Percent(time.Second, false)
		cpuch <- usage
	}()

	var results []benchResult
	run := func(kind string, q func(math.Geod) (int, bool, error)) error {
		b := benchResult{Kind: kind, Queries: len(points)}
		start := time.Now()
		for _, p := range points {
			n, partial, err := q(p)
			if err != nil {
				return err
			}
			b.Found += n
			if partial {
				b.Partial++
			}
		}
		b.Elapsed = time.Since(start)
		results = append(results, b)
		return nil
	}

	if err := run("nearest", func(p math.Geod) (int, bool, error) {
		found, err := db.FindClosestN(p, benchNum, benchRangeNM, nil)
		return len(found), false, err
	}); err != nil {
		return err
	}
	if err := run("nearest-p", func(p math.Geod) (int, bool, error) {
		found, partial, err := db.FindClosestNPartial(p, benchNum, benchRangeNM, nil)
		return len(found), partial, err
	}); err != nil {
		return err
	}
	if err := run("range", func(p math.Geod) (int, bool, error) {
		found, err := db.FindWithinRange(p, benchRangeNM, nil)
		return len(found), false, err
	}); err != nil {
		return err
	}
	if err := run("range-p", func(p math.Geod) (int, bool, error) {
		found, partial, err := db.FindWithinRangePartial(p, benchRangeNM, nil)
		return len(found), partial, err
	}); err != nil {
		return err
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	usage := <-cpuch

	show(results, func() {
		for _, b := range results {
			fmt.Println(b)
		}
		st := db.Cache().Stats()
		fmt.Printf("cache: %d records, %d materialized, %d octree nodes, depth %d\n", st.Records,
			st.Materialized, st.TreeNodes, st.TreeDepth)
		fmt.Printf("heap: %d MB allocated, %d MB sys, %d GCs\n", m.Alloc/(1024*1024), m.Sys/(1024*1024), m.NumGC)
		if len(usage) > 0 {
			fmt.Printf("cpu: %d%%", int(math.Round(usage[0])))
		}
		if vm, err := mem.VirtualMemory(); err == nil {
			fmt.Printf(" system memory: %.1f%% used of %d MB", vm.UsedPercent, vm.Total/(1024*1024))
		}
		fmt.Printf(" race detector: %v\n", log.RaceEnabled)
	})
	return nil
}
