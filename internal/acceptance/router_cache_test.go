package acceptance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnikernel/kernel/pkg/config"
	"github.com/omnikernel/kernel/pkg/harness"
	"github.com/omnikernel/kernel/pkg/manifest"
	"github.com/omnikernel/kernel/pkg/router"
)

func stubEmbed(string) []float32 { return []float32{0.1, 0.2, 0.3} }

// A query that exactly repeats a prior one hits the Hive-Mind exact
// cache. A paraphrase of that same prior query misses the exact cache but
// hits the Cortex semantic cache, because the store reports a similarity
// above the configured threshold.
func TestRouterCacheHitAfterSemanticParaphrase(t *testing.T) {
	cfg := config.RouterConfig{}
	cfg.SetDefaults()

	store := harness.NewFixedScoreStore(0.8)
	tools := []manifest.ToolRecord{
		{ToolName: "testing.run_tests", SkillName: "testing", FunctionName: "run_tests",
			Description: "run the test suite", RoutingKeywords: []string{"run", "tests"}},
	}

	r, err := router.New(cfg, store, stubEmbed, tools)
	require.NoError(t, err)

	ctx := context.Background()
	first, err := r.Route(ctx, "run the tests")
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.NotEmpty(t, first.SelectedTools)

	exact, err := r.Route(ctx, "run the tests")
	require.NoError(t, err)
	assert.True(t, exact.FromCache, "exact repeat should hit the hive-mind cache")
	assert.Equal(t, first.SelectedTools, exact.SelectedTools)

	paraphrase, err := r.Route(ctx, "please execute the test suite now")
	require.NoError(t, err)
	assert.True(t, paraphrase.FromCache, "a semantic paraphrase should hit the cortex cache")
	assert.Equal(t, first.SelectedTools, paraphrase.SelectedTools)
	assert.Equal(t, first.MissionBrief, paraphrase.MissionBrief)
}
