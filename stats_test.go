package httpcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordingCollector struct {
	operations []string
	stale      []string
}

func (c *recordingCollector) RecordCacheOperation(operation, backend, result string, _ time.Duration) {
	c.operations = append(c.operations, operation+":"+backend+":"+result)
}
func (c *recordingCollector) RecordCacheEntries(string, int64) {}
func (c *recordingCollector) RecordStaleResponse(reason string) {
	c.stale = append(c.stale, reason)
}

func TestStatisticsHitsAndMisses(t *testing.T) {
	s := NewStatistics()
	s.recordHit("memstore")
	s.recordHit("memstore")
	s.recordMiss("memstore")

	require.Equal(t, int64(2), s.Hits())
	require.Equal(t, int64(1), s.Misses())
}

func TestStatisticsReset(t *testing.T) {
	s := NewStatistics()
	s.recordHit("memstore")
	s.Reset()
	require.Zero(t, s.Hits())
	require.Zero(t, s.Misses())
}

func TestStatisticsForwardsToCollector(t *testing.T) {
	c := &recordingCollector{}
	s := NewStatistics()
	s.Collector = c

	s.recordHit("memstore")
	s.recordMiss("memstore")
	s.recordStale("max-stale")

	require.Equal(t, []string{"get:memstore:hit", "get:memstore:miss"}, c.operations)
	require.Equal(t, []string{"max-stale"}, c.stale)
}
