package pathutil_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudlinks/k8swatch/k8serr"
	"github.com/cloudlinks/k8swatch/pathutil"
)

func TestParseBracketsEquivalentToDots(t *testing.T) {
	a, err := pathutil.Parse("items[0].metadata.name")
	require.NoError(t, err)
	b, err := pathutil.Parse("items.0.metadata.name")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestParseEmptyPathIsBadPath(t *testing.T) {
	_, err := pathutil.Parse("")
	assert.ErrorIs(t, err, k8serr.BadPath)
}

func TestGetReturnsDefaultWhenMissing(t *testing.T) {
	doc := pathutil.Document{"metadata": pathutil.Document{"name": "a"}}

	v, err := pathutil.Get(doc, "metadata.resourceVersion", "0")
	require.NoError(t, err)
	assert.Equal(t, "0", v)
}

func TestGetReturnsPathMissingWithoutDefault(t *testing.T) {
	doc := pathutil.Document{"metadata": pathutil.Document{"name": "a"}}

	_, err := pathutil.Get(doc, "metadata.resourceVersion")
	assert.ErrorIs(t, err, k8serr.PathMissing)
}

func TestGetNullValueReturnsDefault(t *testing.T) {
	doc := pathutil.Document{"spec": pathutil.Document{"replicas": nil}}

	v, err := pathutil.Get(doc, "spec.replicas", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestSetCreatesIntermediateStructure(t *testing.T) {
	doc := pathutil.Document{}

	err := pathutil.Set(doc, "metadata.name", "a")
	require.NoError(t, err)

	v, err := pathutil.Get(doc, "metadata.name")
	require.NoError(t, err)
	assert.Equal(t, "a", v)
}

func TestSetWithoutCreateStructureFailsOnMissingIntermediate(t *testing.T) {
	doc := pathutil.Document{}

	err := pathutil.Set(doc, "metadata.name", "a", pathutil.WithCreateStructure(false))
	assert.ErrorIs(t, err, k8serr.PathMissing)
}

func TestSetThroughLeafIsPathConflict(t *testing.T) {
	doc := pathutil.Document{"metadata": "not-a-map"}

	err := pathutil.Set(doc, "metadata.name", "a")
	assert.ErrorIs(t, err, k8serr.PathConflict)
}

func TestRoundTripSetGetUnsetExists(t *testing.T) {
	doc := pathutil.Document{}

	require.NoError(t, pathutil.Set(doc, "a.b.c", "v"))

	v, err := pathutil.Get(doc, "a.b.c")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	exists, err := pathutil.Exists(doc, "a.b.c")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, pathutil.Unset(doc, "a.b.c"))

	exists, err = pathutil.Exists(doc, "a.b.c")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUnsetIsNoopWhenAbsent(t *testing.T) {
	doc := pathutil.Document{"a": pathutil.Document{}}
	assert.NoError(t, pathutil.Unset(doc, "a.b.c"))
}

func TestExistsArrayIndex(t *testing.T) {
	doc := pathutil.Document{"items": []interface{}{
		pathutil.Document{"name": "x"},
	}}

	exists, err := pathutil.Exists(doc, "items[0].name")
	require.NoError(t, err)
	assert.True(t, exists)

	v, err := pathutil.Get(doc, "items[0].name")
	require.NoError(t, err)
	assert.Equal(t, "x", v)
}
