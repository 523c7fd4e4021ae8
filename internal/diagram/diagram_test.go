package diagram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect_EveryKeyword(t *testing.T) {
	for _, typ := range Types {
		kw := typ.Keyword()
		require.NotEmpty(t, kw, "type %s has no keyword", typ)

		for _, variant := range []string{kw, strings.ToUpper(kw), strings.ToLower(kw)} {
			got, ok := Detect("   \n\t" + variant + " ...")
			assert.True(t, ok, "variant %q", variant)
			assert.Equal(t, typ, got, "variant %q", variant)
		}
	}
}

func TestDetect_GraphAlias(t *testing.T) {
	got, ok := Detect("graph LR\n  A --> B")
	require.True(t, ok)
	assert.Equal(t, Flowchart, got)
}

func TestDetect_VersionedKeywords(t *testing.T) {
	got, ok := Detect("stateDiagram-v2\n  [*] --> Still")
	require.True(t, ok)
	assert.Equal(t, State, got)

	got, ok = Detect("classDiagram-v2\n  class A")
	require.True(t, ok)
	assert.Equal(t, Class, got)
}

func TestDetect_SkipsCommentsAndFrontmatter(t *testing.T) {
	text := "---\ntitle: Login\n---\n%% a comment\n\nsequenceDiagram\n  A->>B: hi"
	got, ok := Detect(text)
	require.True(t, ok)
	assert.Equal(t, Sequence, got)
}

func TestDetect_NoMatch(t *testing.T) {
	for _, text := range []string{"", "   ", "hello world", "%% only a comment", "A --> B"} {
		_, ok := Detect(text)
		assert.False(t, ok, "text %q", text)
	}
}

func TestParse(t *testing.T) {
	got, err := Parse("sequence")
	require.NoError(t, err)
	assert.Equal(t, Sequence, got)

	_, err = Parse("Sequence")
	assert.Error(t, err, "annotations are case-sensitive")

	_, err = Parse("mindmap")
	assert.ErrorContains(t, err, "mindmap")
}
