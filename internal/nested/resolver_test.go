package nested

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/nestmaid/internal/diagram"
)

func def(id, body string) string {
	return fmt.Sprintf("---definition:%s---\n%s\n---end---\n", id, body)
}

// chainSource builds a root that embeds d1, where each di embeds d(i+1), n
// definitions in total.
func chainSource(n int) string {
	var b strings.Builder
	b.WriteString("flowchart TD\n  A --> {{embed:d1}}\n")
	for i := 1; i <= n; i++ {
		body := "flowchart TD\n  X --> Y"
		if i < n {
			body = fmt.Sprintf("flowchart TD\n  X --> {{embed:d%d}}", i+1)
		}
		b.WriteString(def(fmt.Sprintf("d%d", i), body))
	}
	return b.String()
}

func TestResolve_EndToEnd(t *testing.T) {
	src := "flowchart TD\n  A --> {{embed:login}}\n" +
		"---definition:login---\nsequenceDiagram\n  U->>S: hi\n---end---\n"

	res := New().Resolve(src)
	require.True(t, res.Success, "error: %v", res.Err())
	require.NotNil(t, res.Tree)

	assert.Equal(t, diagram.Flowchart, res.Tree.Type)
	assert.Contains(t, res.Tree.Content, `A --> "login"`)
	assert.NotContains(t, res.Tree.Content, "---definition")
	assert.Empty(t, res.Tree.ParentReferences)

	login, ok := res.Tree.Nested["login"]
	require.True(t, ok)
	assert.Equal(t, diagram.Sequence, login.Type)
	assert.Equal(t, "sequenceDiagram\n  U->>S: hi", login.Content)
	assert.Equal(t, []string{}, login.ParentReferences)

	assert.Equal(t, []string{"login"}, res.TopologicalOrder)
	require.Len(t, res.DependencyReport, 1)
	assert.Equal(t, "login", res.DependencyReport[0].ID)
}

func TestResolve_NoDanglingReferences(t *testing.T) {
	src := "graph LR\n  A --> {{embed:a}}\n  B --> {{embed:b}}\n" +
		def("a", "classDiagram\n  class Foo\n  Foo --> {{embed:b}}") +
		def("b", "pie\n  \"x\" : 1")

	res := New().Resolve(src)
	require.True(t, res.Success, "error: %v", res.Err())

	a := res.Tree.Nested["a"]
	require.NotNil(t, a)
	bUnderA, ok := res.Tree.Lookup("a", "b")
	require.True(t, ok)
	bUnderRoot, ok := res.Tree.Lookup("b")
	require.True(t, ok)

	assert.NotSame(t, bUnderA, bUnderRoot, "each embedding site gets its own copy")
	assert.Equal(t, []string{"a"}, bUnderA.ParentReferences)
	assert.Equal(t, []string{}, bUnderRoot.ParentReferences)
	assert.Equal(t, []string{"b", "a"}, res.TopologicalOrder)
}

func TestResolve_MissingReference(t *testing.T) {
	res := New().Resolve("A --> {{embed:x}}")
	require.False(t, res.Success)
	assert.Contains(t, res.Error.Message, "x")

	res = New().Resolve("flowchart TD\n  A --> {{embed:x}}")
	require.False(t, res.Success)
	assert.Equal(t, KindMissingReference, res.Error.Kind)
	assert.Equal(t, "x", res.Error.ID)
	assert.Contains(t, res.Error.Message, "x")
	assert.True(t, IsKind(res.Err(), KindMissingReference))
}

func TestResolve_RootSyntaxError(t *testing.T) {
	res := New().Resolve("just some words\n" + def("a", "pie"))
	require.False(t, res.Success)
	assert.Equal(t, KindSyntax, res.Error.Kind)
	assert.Empty(t, res.DependencyReport)
}

func TestResolve_InlineCycle(t *testing.T) {
	src := "flowchart TD\n  A --> {{embed:a}}\n" +
		def("a", "flowchart TD\n  X --> {{embed:b}}") +
		def("b", "flowchart TD\n  Y --> {{embed:a}}")

	res := New().Resolve(src)
	require.False(t, res.Success)
	assert.Equal(t, KindCycle, res.Error.Kind)
	assert.Contains(t, res.Error.Message, "Circular reference detected")
	assert.Contains(t, res.Error.Message, "a -> b -> a")
	assert.Equal(t, []string{"a", "b", "a"}, res.Error.Path)

	// The dependency report survives the failure.
	assert.Len(t, res.DependencyReport, 2)
}

func TestResolve_SelfEmbed(t *testing.T) {
	src := "flowchart TD\n  A --> {{embed:a}}\n" + def("a", "flowchart TD\n  X --> {{embed:a}}")
	res := New().Resolve(src)
	require.False(t, res.Success)
	assert.Contains(t, res.Error.Message, "a -> a")
}

func TestResolve_UnreferencedCycle(t *testing.T) {
	src := "flowchart TD\n  A --> B\n" +
		def("a", "flowchart TD\n  X --> {{embed:b}}") +
		def("b", "flowchart TD\n  Y --> {{embed:a}}")

	res := New().Resolve(src)
	require.False(t, res.Success)
	assert.Equal(t, KindCycle, res.Error.Kind)
	assert.Equal(t, []string{"a", "b", "a"}, res.Error.Path)
	assert.Nil(t, res.Tree)
}

func TestResolve_DepthCap(t *testing.T) {
	res := New().Resolve(chainSource(10))
	require.True(t, res.Success, "error: %v", res.Err())
	require.Len(t, res.Warnings, 4)
	assert.Equal(t, "d7", res.Warnings[0].DiagramID)
	assert.Equal(t, 7, res.Warnings[0].CurrentDepth)
	assert.Equal(t, DefaultMaxDepth, res.Warnings[0].MaxDepth)
	assert.Equal(t, []string{"d1", "d2", "d3", "d4", "d5", "d6", "d7"}, res.Warnings[0].Path)
	assert.Equal(t, "d10", res.Warnings[3].DiagramID)

	res = New().Resolve(chainSource(11))
	require.False(t, res.Success)
	assert.Equal(t, KindDepthExceeded, res.Error.Kind)
	assert.Equal(t, "d11", res.Error.ID)

	res = New().Resolve(chainSource(6))
	require.True(t, res.Success)
	assert.Empty(t, res.Warnings)
}

func TestResolve_CustomDepthLimits(t *testing.T) {
	res := New(WithMaxDepth(3), WithWarnDepth(2)).Resolve(chainSource(4))
	require.False(t, res.Success)
	assert.Equal(t, KindDepthExceeded, res.Error.Kind)

	res = New(WithMaxDepth(3), WithWarnDepth(2)).Resolve(chainSource(3))
	require.True(t, res.Success)
	assert.Len(t, res.Warnings, 2)
}

func TestResolve_ContextSensitiveSubstitution(t *testing.T) {
	src := "flowchart TD\n  D[{{embed:x}}]\n  click D \"{{embed:x}}\"\n" + def("x", "pie\n  \"a\" : 1")

	res := New().Resolve(src)
	require.True(t, res.Success, "error: %v", res.Err())
	assert.Contains(t, res.Tree.Content, `D["x"]`)
	assert.Contains(t, res.Tree.Content, `click D "x"`)
	assert.NotContains(t, res.Tree.Content, `""x""`)
	assert.NotContains(t, res.Tree.Content, "{{embed:")
	assert.Len(t, res.Tree.Nested, 1)
}

func TestResolve_TypePrecedence(t *testing.T) {
	src := "flowchart TD\n  A --> {{embed:sequence:test}}\n" + def("test", "classDiagram\n  class A")
	res := New().Resolve(src)
	require.True(t, res.Success, "error: %v", res.Err())
	assert.Equal(t, diagram.Sequence, res.Tree.Nested["test"].Type)
	assert.Contains(t, res.Tree.Content, `A --> "test"`)
}

func TestResolve_RepeatedSiteInvalidType(t *testing.T) {
	src := "flowchart TD\n  A --> {{embed:x}}\n  B --> {{embed:bogus:x}}\n" + def("x", "pie")
	res := New().Resolve(src)
	require.False(t, res.Success)
	assert.Equal(t, KindInvalidType, res.Error.Kind)
	assert.Equal(t, "x", res.Error.ID)
}

func TestResolve_RepeatedSiteLastTypeWins(t *testing.T) {
	src := "flowchart TD\n  A --> {{embed:x}}\n  B --> {{embed:sequence:x}}\n" + def("x", "classDiagram\n  class A")
	res := New().Resolve(src)
	require.True(t, res.Success, "error: %v", res.Err())
	require.Len(t, res.Tree.Nested, 1)
	assert.Equal(t, diagram.Sequence, res.Tree.Nested["x"].Type)
	assert.Contains(t, res.Tree.Content, "A --> \"x\"\n  B --> \"x\"")

	src = "flowchart TD\n  A --> {{embed:sequence:x}}\n  B --> {{embed:x}}\n" + def("x", "classDiagram\n  class A")
	res = New().Resolve(src)
	require.True(t, res.Success, "error: %v", res.Err())
	assert.Equal(t, diagram.Class, res.Tree.Nested["x"].Type)
}

func TestResolve_DefinitionTypeAnnotation(t *testing.T) {
	src := "flowchart TD\n  A --> {{embed:note}}\n---definition:state:note---\n  [*] --> Idle\n---end---\n"
	res := New().Resolve(src)
	require.True(t, res.Success, "error: %v", res.Err())
	assert.Equal(t, diagram.State, res.Tree.Nested["note"].Type)
}

func TestResolve_TypeDetectionError(t *testing.T) {
	src := "flowchart TD\n  A --> {{embed:blob}}\n" + def("blob", "nothing recognisable")
	res := New().Resolve(src)
	require.False(t, res.Success)
	assert.Equal(t, KindTypeDetection, res.Error.Kind)
	assert.Equal(t, "unable to detect diagram type for: blob", res.Error.Message)
}

func TestResolve_InvalidTypes(t *testing.T) {
	src := "flowchart TD\n  A --> {{embed:mindmap:x}}\n" + def("x", "pie")
	res := New().Resolve(src)
	require.False(t, res.Success)
	assert.Equal(t, KindInvalidType, res.Error.Kind)

	src = "flowchart TD\n  A --> {{embed:x}}\n---definition:bogus:x---\npie\n---end---\n"
	res = New().Resolve(src)
	require.False(t, res.Success)
	assert.Equal(t, KindInvalidType, res.Error.Kind, "invalid definition types surface eagerly")
	assert.Equal(t, "x", res.Error.ID)
}

func TestResolve_DuplicateDefinitions(t *testing.T) {
	src := "flowchart TD\n  A --> {{embed:x}}\n" + def("x", "pie") + def("x", "journey\n  title Day")

	res := New().Resolve(src)
	require.True(t, res.Success, "error: %v", res.Err())
	assert.Equal(t, diagram.Journey, res.Tree.Nested["x"].Type, "last definition wins")

	res = New(WithStrictDefinitions(true)).Resolve(src)
	require.False(t, res.Success)
	assert.Equal(t, KindDuplicateDefinition, res.Error.Kind)
}

func TestResolve_ForwardReferenceAndNestedDefinitions(t *testing.T) {
	src := def("outer", "flowchart LR\n  O --> {{embed:inner}}\n"+def("inner", "gantt\n  title Plan")) +
		"flowchart TD\n  A --> {{embed:outer}}\n"

	res := New().Resolve(src)
	require.True(t, res.Success, "error: %v", res.Err())
	assert.Equal(t, "flowchart TD\n  A --> \"outer\"", res.Tree.Content)

	outer := res.Tree.Nested["outer"]
	require.NotNil(t, outer)
	assert.NotContains(t, outer.Content, "---definition")
	inner, ok := res.Tree.Lookup("outer", "inner")
	require.True(t, ok)
	assert.Equal(t, diagram.Gantt, inner.Type)
	assert.Equal(t, []string{"outer"}, inner.ParentReferences)
}

func TestResolve_IdempotentReports(t *testing.T) {
	src := "flowchart TD\n  A --> {{embed:a}}\n" +
		def("a", "flowchart TD\n  X --> {{embed:b}}\n  Y --> {{embed:c}}") +
		def("b", "pie") +
		def("c", "flowchart TD\n  Z --> {{embed:b}}") +
		def("orphan", "journey")

	r := New()
	first := r.Resolve(src)
	second := r.Resolve(src)
	require.True(t, first.Success)
	require.True(t, second.Success)
	assert.Equal(t, first.DependencyReport, second.DependencyReport)
	assert.ElementsMatch(t, first.TopologicalOrder, second.TopologicalOrder)
	assert.Len(t, first.TopologicalOrder, 4)
}

func TestResolve_DanglingInUnreferencedDefinition(t *testing.T) {
	src := "flowchart TD\n  A --> B\n" + def("lonely", "flowchart TD\n  X --> {{embed:ghost}}")
	res := New().Resolve(src)
	require.True(t, res.Success)
	assert.Equal(t, map[string][]string{"lonely": {"ghost"}}, res.Dangling)
}

func TestHasChanged(t *testing.T) {
	s1 := "flowchart TD\n  A --> {{embed:x}}\n" + def("x", "pie\n  \"a\" : 1")
	r := New()
	require.True(t, r.Resolve(s1).Success)

	assert.False(t, r.HasChanged(s1))
	assert.False(t, r.HasChanged(strings.Replace(s1, "A -->", "B -->", 1)), "root text is not tracked")
	assert.False(t, r.HasChanged(strings.Replace(s1, "pie\n", "  pie\n", 1)), "bodies compare trimmed")
	assert.True(t, r.HasChanged(strings.Replace(s1, "\"a\" : 1", "\"a\" : 2", 1)))
	assert.True(t, r.HasChanged("flowchart TD\n  A --> B"), "removed id")
	assert.True(t, r.HasChanged(s1+def("y", "pie")), "new id")
}

func TestHasChanged_BeforeFirstResolve(t *testing.T) {
	r := New()
	assert.False(t, r.HasChanged("flowchart TD\n  A --> B"))
	assert.True(t, r.HasChanged("flowchart TD\n"+def("x", "pie")))
}

func TestNode_WalkOrder(t *testing.T) {
	src := "flowchart TD\n  A --> {{embed:b}}\n  C --> {{embed:a}}\n" +
		def("a", "pie") + def("b", "flowchart TD\n  X --> {{embed:a}}")
	res := New().Resolve(src)
	require.True(t, res.Success, "error: %v", res.Err())

	var paths []string
	err := res.Tree.Walk(func(path []string, n *Node) error {
		paths = append(paths, strings.Join(path, "/")+":"+string(n.Type))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{":flowchart", "a:pie", "b:flowchart", "b/a:pie"}, paths)
	assert.Equal(t, 4, res.Tree.Count())

	_, ok := res.Tree.Lookup("a", "nope")
	assert.False(t, ok)
}
