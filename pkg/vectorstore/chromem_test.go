package vectorstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChromemProviderUpsertAndSearch(t *testing.T) {
	p, err := NewChromemProvider(ChromemConfig{})
	require.NoError(t, err)
	defer p.Close()

	ctx := context.Background()
	vec := HashEmbed("commit changes to git")
	require.NoError(t, p.Upsert(ctx, "tools", "git.commit", vec, map[string]any{"content": "commit changes to git"}))

	results, err := p.Search(ctx, "tools", vec, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "git.commit", results[0].ID)
}

func TestChromemProviderDeleteRemovesDocument(t *testing.T) {
	p, err := NewChromemProvider(ChromemConfig{})
	require.NoError(t, err)
	defer p.Close()

	ctx := context.Background()
	vec := HashEmbed("x")
	require.NoError(t, p.Upsert(ctx, "tools", "a", vec, map[string]any{"content": "x"}))
	require.NoError(t, p.Delete(ctx, "tools", "a"))

	results, err := p.Search(ctx, "tools", vec, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestHashEmbedIsDeterministic(t *testing.T) {
	a := HashEmbed("run the tests")
	b := HashEmbed("run the tests")
	assert.Equal(t, a, b)
}

func TestNewFactoryUnknownProvider(t *testing.T) {
	_, err := New("mystery", "", "")
	require.Error(t, err)
}

func TestNewFactoryDefaultsToChromem(t *testing.T) {
	p, err := New("", t.TempDir(), "")
	require.NoError(t, err)
	assert.Equal(t, "chromem", p.Name())
}
