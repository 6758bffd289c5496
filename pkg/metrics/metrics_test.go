package metrics

import (
	"testing"
	"time"
)

func TestCounterLabelsAreDeterministic(t *testing.T) {
	c := NewCollector()
	c.IncrementCounter("documents_uploaded", map[string]string{"media_type": "pdf", "backend": "local"})
	c.IncrementCounter("documents_uploaded", map[string]string{"backend": "local", "media_type": "pdf"})

	counters := c.Counters()
	byLabel := counters["documents_uploaded"]
	if len(byLabel) != 1 {
		t.Fatalf("want one label key, got %d: %v", len(byLabel), byLabel)
	}
	for _, v := range byLabel {
		if v != 2 {
			t.Fatalf("want combined count 2, got %d", v)
		}
	}
}

func TestCounterWithoutLabels(t *testing.T) {
	c := NewCollector()
	c.IncrementCounter("analyses_completed", nil)
	c.IncrementCounter("analyses_completed", nil)

	if got := c.Counters()["analyses_completed"]["default"]; got != 2 {
		t.Fatalf("want 2, got %d", got)
	}
}

func TestLatencyWindowIsBounded(t *testing.T) {
	c := NewCollector()
	for i := 0; i < maxObservations+50; i++ {
		c.ObserveLatency("document_upload", 10*time.Millisecond)
	}

	got := c.Latencies()["document_upload"]["avg_ms"]
	if got != 10 {
		t.Fatalf("avg_ms: want 10, got %v", got)
	}
}

func TestSizeStats(t *testing.T) {
	c := NewCollector()
	c.ObserveSize("document_size", 100)
	c.ObserveSize("document_size", 300)

	stats := c.Sizes()["document_size"]
	if stats["avg_bytes"] != 200 {
		t.Fatalf("avg_bytes: want 200, got %v", stats["avg_bytes"])
	}
	if stats["max_bytes"] != 300 {
		t.Fatalf("max_bytes: want 300, got %v", stats["max_bytes"])
	}
}
