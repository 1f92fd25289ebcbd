package flags

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSource(t *testing.T) (*Source, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSource(client, nil, time.Minute), client
}

func TestSourceUnloadedViewIsUnknown(t *testing.T) {
	src, _ := testSource(t)

	view := src.View()
	assert.False(t, view.Loaded())
	assert.Equal(t, StateUnknown, view.State("advisor.dashboard"))
}

func TestSourceRefreshLoadsTable(t *testing.T) {
	src, client := testSource(t)
	ctx := context.Background()

	require.NoError(t, client.HSet(ctx, "flags:values", map[string]any{
		"advisor.dashboard": "1",
		"goals.v2":          "true",
		"legacy.reports":    "off",
	}).Err())
	require.NoError(t, src.Refresh(ctx))

	view := src.View()
	assert.True(t, view.Loaded())
	assert.Equal(t, StateEnabled, view.State("advisor.dashboard"))
	assert.Equal(t, StateEnabled, view.State("goals.v2"))
	assert.Equal(t, StateDisabled, view.State("legacy.reports"))
	assert.Equal(t, StateDisabled, view.State("never.provisioned"))
}

func TestSourceRefreshOnEmptyTableStillLoads(t *testing.T) {
	src, _ := testSource(t)

	require.NoError(t, src.Refresh(context.Background()))
	view := src.View()
	assert.True(t, view.Loaded())
	// Loaded-but-empty means every flag is off, not unknown.
	assert.Equal(t, StateDisabled, view.State("advisor.dashboard"))
}

func TestSourceViewIsImmuneToLaterRefresh(t *testing.T) {
	src, client := testSource(t)
	ctx := context.Background()

	require.NoError(t, client.HSet(ctx, "flags:values", "advisor.dashboard", "1").Err())
	require.NoError(t, src.Refresh(ctx))
	view := src.View()

	require.NoError(t, client.HSet(ctx, "flags:values", "advisor.dashboard", "0").Err())
	require.NoError(t, src.Refresh(ctx))

	// The earlier view keeps its snapshot; only a new view sees the change.
	assert.Equal(t, StateEnabled, view.State("advisor.dashboard"))
	assert.Equal(t, StateDisabled, src.View().State("advisor.dashboard"))
}

func TestSetWritesValueAndNotifies(t *testing.T) {
	src, client := testSource(t)
	ctx := context.Background()

	require.NoError(t, Set(ctx, client, "goals.v2", true))
	require.NoError(t, src.Refresh(ctx))
	assert.Equal(t, StateEnabled, src.View().State("goals.v2"))

	require.NoError(t, Set(ctx, client, "goals.v2", false))
	require.NoError(t, src.Refresh(ctx))
	assert.Equal(t, StateDisabled, src.View().State("goals.v2"))
}

func TestSourceRunPicksUpPublishedUpdates(t *testing.T) {
	src, client := testSource(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go src.Run(ctx)

	require.Eventually(t, func() bool {
		return src.View().Loaded()
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, Set(ctx, client, "advisor.dashboard", true))

	require.Eventually(t, func() bool {
		return src.View().State("advisor.dashboard") == StateEnabled
	}, 2*time.Second, 10*time.Millisecond)
}

func TestTruthyParsing(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", " on ", "Enabled"} {
		assert.True(t, truthy(v), "%q should enable", v)
	}
	for _, v := range []string{"", "0", "false", "off", "disabled", "yes"} {
		assert.False(t, truthy(v), "%q should not enable", v)
	}
}
