package httpcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseCacheControl(t *testing.T) {
	cc := parseCacheControl("max-age=60, no-cache, must-revalidate")
	require.True(t, cc.has(directiveNoCache))
	require.True(t, cc.has(directiveMustRevalidate))
	d, ok := cc.seconds(directiveMaxAge)
	require.True(t, ok)
	require.Equal(t, 60*time.Second, d)
}

func TestCacheControlSecondsMissingOrMalformed(t *testing.T) {
	cc := parseCacheControl("no-store")
	_, ok := cc.seconds(directiveMaxAge)
	require.False(t, ok)

	cc = parseCacheControl("max-age=notanumber")
	_, ok = cc.seconds(directiveMaxAge)
	require.False(t, ok)
}

func TestCacheControlMaxStale(t *testing.T) {
	cc := parseCacheControl("max-stale=30")
	delta, hasDelta, present := cc.maxStale()
	require.True(t, present)
	require.True(t, hasDelta)
	require.Equal(t, 30*time.Second, delta)

	cc = parseCacheControl("max-stale")
	_, hasDelta, present = cc.maxStale()
	require.True(t, present)
	require.False(t, hasDelta)

	cc = parseCacheControl("max-age=10")
	_, _, present = cc.maxStale()
	require.False(t, present)
}

func TestCacheControlBareDirective(t *testing.T) {
	cc := parseCacheControl("no-cache")
	v, ok := cc[directiveNoCache]
	require.True(t, ok)
	require.Empty(t, v)
}

func TestCacheControlQuotedFieldList(t *testing.T) {
	cc := parseCacheControl(`no-cache="Set-Cookie", private`)
	require.Equal(t, "Set-Cookie", cc[directiveNoCache])
	require.True(t, cc.has(directivePrivate))
}

func TestEffectiveRequestCacheControlFallsBackToPragma(t *testing.T) {
	cc := effectiveRequestCacheControl(Headers{}.Set("Pragma", "no-cache"))
	require.True(t, cc.has(directiveNoCache))
}

func TestEffectiveRequestCacheControlIgnoresPragmaWhenCacheControlPresent(t *testing.T) {
	cc := effectiveRequestCacheControl(Headers{}.Set("Cache-Control", "max-age=60").Set("Pragma", "no-cache"))
	require.False(t, cc.has(directiveNoCache))
	d, ok := cc.seconds(directiveMaxAge)
	require.True(t, ok)
	require.Equal(t, 60*time.Second, d)
}

func TestEffectiveRequestCacheControlIgnoresUnrecognizedPragma(t *testing.T) {
	cc := effectiveRequestCacheControl(Headers{}.Set("Pragma", "something-else"))
	require.False(t, cc.has(directiveNoCache))
}

func TestEffectiveRequestCacheControlEmptyWhenNeitherPresent(t *testing.T) {
	cc := effectiveRequestCacheControl(Headers{})
	require.Empty(t, cc)
}
