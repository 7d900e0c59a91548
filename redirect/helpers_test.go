package redirect

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"testing"

	metrics "github.com/hashicorp/go-metrics"
	"github.com/stretchr/testify/require"
)

// mockMetricSink is a simple in-memory metric sink for testing
type mockMetricSink struct {
	counters map[string]float32
	mutex    sync.RWMutex
}

func newMockMetricSink() *mockMetricSink {
	return &mockMetricSink{
		counters: make(map[string]float32),
	}
}

func (m *mockMetricSink) IncrCounter(key []string, val float32) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.counters[fmt.Sprintf("%v", key)] += val
}

func (m *mockMetricSink) IncrCounterWithLabels(key []string, val float32, labels []metrics.Label) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for _, l := range labels {
		m.counters[fmt.Sprintf("%v%s=%s", key, l.Name, l.Value)] += val
	}
	m.counters[fmt.Sprintf("%v", key)] += val
}

func (m *mockMetricSink) SetGauge(key []string, val float32)                                   {}
func (m *mockMetricSink) SetGaugeWithLabels(key []string, val float32, labels []metrics.Label) {}
func (m *mockMetricSink) EmitKey(key []string, val float32)                                    {}
func (m *mockMetricSink) AddSample(key []string, val float32)                                  {}
func (m *mockMetricSink) AddSampleWithLabels(key []string, val float32, labels []metrics.Label) {
}

func (m *mockMetricSink) getCounter(key ...string) float32 {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.counters[fmt.Sprintf("%v", key)]
}

func (m *mockMetricSink) getStreamCounter(stream string, key ...string) float32 {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.counters[fmt.Sprintf("%vstream=%s", key, stream)]
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names
}

// kibLine returns a 1 KiB line, newline included, starting with i.
func kibLine(i int) string {
	head := fmt.Sprintf("%06d ", i)
	return head + string(repeat('x', 1023-len(head))) + "\n"
}

func repeat(b byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}
