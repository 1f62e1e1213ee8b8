package httpcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCanServeStaleWithinMaxStaleDelta(t *testing.T) {
	responseTime := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h := Headers{}.Set("Cache-Control", "max-age=10").Set("Date", FormatHTTPDate(responseTime))
	item := mkItem(t, h, responseTime)

	reqHeaders := Headers{}.Set("Cache-Control", "max-stale=20")
	require.True(t, canServeStale(item, reqHeaders, responseTime.Add(25*time.Second)))
	require.False(t, canServeStale(item, reqHeaders, responseTime.Add(40*time.Second)))
}

func TestCanServeStaleBareMaxStaleAcceptsAny(t *testing.T) {
	responseTime := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h := Headers{}.Set("Cache-Control", "max-age=10").Set("Date", FormatHTTPDate(responseTime))
	item := mkItem(t, h, responseTime)

	reqHeaders := Headers{}.Set("Cache-Control", "max-stale")
	require.True(t, canServeStale(item, reqHeaders, responseTime.Add(10*time.Hour)))
}

func TestCanServeStaleMustRevalidateBlocksMaxStale(t *testing.T) {
	responseTime := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h := Headers{}.
		Set("Cache-Control", "max-age=10, must-revalidate").
		Set("Date", FormatHTTPDate(responseTime))
	item := mkItem(t, h, responseTime)

	reqHeaders := Headers{}.Set("Cache-Control", "max-stale=1000")
	require.False(t, canServeStale(item, reqHeaders, responseTime.Add(20*time.Second)))
}

func TestCanServeStaleMustRevalidateStillAllowsStaleWhileRevalidate(t *testing.T) {
	responseTime := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h := Headers{}.
		Set("Cache-Control", "max-age=10, must-revalidate, stale-while-revalidate=30").
		Set("Date", FormatHTTPDate(responseTime))
	item := mkItem(t, h, responseTime)

	require.True(t, canServeStale(item, Headers{}, responseTime.Add(20*time.Second)))
}

func TestCanServeStaleNoDirectivesFallsBackToFalse(t *testing.T) {
	responseTime := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h := Headers{}.Set("Cache-Control", "max-age=10").Set("Date", FormatHTTPDate(responseTime))
	item := mkItem(t, h, responseTime)

	require.False(t, canServeStale(item, Headers{}, responseTime.Add(20*time.Second)))
}
