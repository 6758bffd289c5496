package metrics

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// maxObservations bounds the per-metric latency/size windows so a
// long-running process keeps constant memory.
const maxObservations = 100

// Collector is a small in-process metrics sink. It backs the /metrics
// endpoint; there is no external scrape format.
type Collector struct {
	counters  map[string]map[string]int64
	latencies map[string][]time.Duration
	sizes     map[string][]float64
	mu        sync.RWMutex
}

func NewCollector() *Collector {
	return &Collector{
		counters:  make(map[string]map[string]int64),
		latencies: make(map[string][]time.Duration),
		sizes:     make(map[string][]float64),
	}
}

// labelKey flattens a label set into a deterministic map key.
func labelKey(labels map[string]string) string {
	if len(labels) == 0 {
		return "default"
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+":"+labels[k])
	}
	return strings.Join(parts, ",")
}

func (c *Collector) IncrementCounter(name string, labels map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.counters[name]; !exists {
		c.counters[name] = make(map[string]int64)
	}
	c.counters[name][labelKey(labels)]++
}

func (c *Collector) ObserveLatency(name string, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	window := append(c.latencies[name], duration)
	if len(window) > maxObservations {
		window = window[len(window)-maxObservations:]
	}
	c.latencies[name] = window
}

func (c *Collector) ObserveSize(name string, size float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	window := append(c.sizes[name], size)
	if len(window) > maxObservations {
		window = window[len(window)-maxObservations:]
	}
	c.sizes[name] = window
}

func (c *Collector) Counters() map[string]map[string]int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]map[string]int64, len(c.counters))
	for name, byLabel := range c.counters {
		out[name] = make(map[string]int64, len(byLabel))
		for label, value := range byLabel {
			out[name][label] = value
		}
	}
	return out
}

// Latencies reports the average of the retained window per metric, in
// milliseconds.
func (c *Collector) Latencies() map[string]map[string]float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]map[string]float64, len(c.latencies))
	for name, window := range c.latencies {
		if len(window) == 0 {
			continue
		}
		var sum time.Duration
		for _, d := range window {
			sum += d
		}
		out[name] = map[string]float64{
			"avg_ms": float64(sum) / float64(len(window)) / float64(time.Millisecond),
		}
	}
	return out
}

// Sizes reports average and max of the retained window per metric, in bytes.
func (c *Collector) Sizes() map[string]map[string]float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]map[string]float64, len(c.sizes))
	for name, window := range c.sizes {
		if len(window) == 0 {
			continue
		}
		var sum, max float64
		for _, v := range window {
			sum += v
			if v > max {
				max = v
			}
		}
		out[name] = map[string]float64{
			"avg_bytes": sum / float64(len(window)),
			"max_bytes": max,
		}
	}
	return out
}
