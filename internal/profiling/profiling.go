package profiling

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Lightweight per-tick profiler: totals and call counts per name.

// Entry is the accumulated cost of one tracked name.
type Entry struct {
	Total time.Duration
	Calls int
}

var (
	mu      sync.Mutex
	entries = make(map[string]Entry)
)

// Track returns a stop function that records the elapsed time under the given name.
// Usage: defer profiling.Track("terrain.Process")()
func Track(name string) func() {
	start := time.Now()
	return func() {
		d := time.Since(start)
		mu.Lock()
		e := entries[name]
		e.Total += d
		e.Calls++
		entries[name] = e
		mu.Unlock()
	}
}

// Reset clears the accumulated entries.
func Reset() {
	mu.Lock()
	clear(entries)
	mu.Unlock()
}

// Snapshot returns a copy of the current entries.
func Snapshot() map[string]Entry {
	mu.Lock()
	defer mu.Unlock()
	out := make(map[string]Entry, len(entries))
	for k, v := range entries {
		out[k] = v
	}
	return out
}

// SumWithPrefix totals every entry whose name starts with prefix.
func SumWithPrefix(prefix string) time.Duration {
	mu.Lock()
	defer mu.Unlock()
	var sum time.Duration
	for k, v := range entries {
		if strings.HasPrefix(k, prefix) {
			sum += v.Total
		}
	}
	return sum
}

type named struct {
	name string
	Entry
}

func sorted() []named {
	ss := Snapshot()
	list := make([]named, 0, len(ss))
	for k, v := range ss {
		list = append(list, named{name: k, Entry: v})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Total != list[j].Total {
			return list[i].Total > list[j].Total
		}
		return list[i].name < list[j].name
	})
	return list
}

// TopN formats the n most expensive entries.
// Example: "terrain.Build:41.2ms/1, terrain.Process:2.1ms/60"
func TopN(n int) string {
	list := sorted()
	n = min(n, len(list))
	parts := make([]string, 0, n)
	for _, e := range list[:n] {
		ms := float64(e.Total.Microseconds()) / 1000.0
		parts = append(parts, e.name+":"+strconv.FormatFloat(ms, 'f', 1, 64)+"ms/"+strconv.Itoa(e.Calls))
	}
	return strings.Join(parts, ", ")
}

// Fields renders every entry as a zap field, most expensive first.
func Fields() []zap.Field {
	list := sorted()
	fields := make([]zap.Field, 0, len(list))
	for _, e := range list {
		fields = append(fields, zap.Duration(e.name, e.Total))
	}
	return fields
}
