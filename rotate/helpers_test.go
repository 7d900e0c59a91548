package rotate

import (
	"fmt"
	"os"
	"path/filepath"
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
	m.IncrCounter(key, val)
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

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// listDir returns the sorted entry names of dir.
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

func newTestEngine(t *testing.T, dir string, backups int, compress bool) (*Engine, *mockMetricSink) {
	t.Helper()
	sink := newMockMetricSink()
	e, err := NewEngine(EngineConfig{
		Path:     filepath.Join(dir, "app.log"),
		Backups:  backups,
		Compress: compress,
		Metrics:  sink,
	})
	require.NoError(t, err)
	return e, sink
}
