package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shadowPage = `<!DOCTYPE html>
<html><head><title>  Shadow page </title></head>
<body>
  <app-shell id="shell">
    <template shadowrootmode="open">
      <nav-bar>
        <template shadowrootmode="open"><span class="target" id="nested">nested</span></template>
      </nav-bar>
      <section class="target" id="first-shadow">in shadow</section>
    </template>
    <p class="light">light child</p>
  </app-shell>
  <other-host>
    <template shadowrootmode="open"><div class="target" id="second-shadow">second</div></template>
  </other-host>
</body></html>`

func parse(t *testing.T, s string) *Document {
	t.Helper()
	doc, err := ParseString(s)
	require.NoError(t, err)
	return doc
}

func TestDocument_Title(t *testing.T) {
	doc := parse(t, shadowPage)
	assert.Equal(t, "Shadow page", doc.Title())
}

func TestQuery_DoesNotCrossShadowBoundary(t *testing.T) {
	doc := parse(t, shadowPage)

	got, err := Query(doc.Root(), ".target")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Length())

	light, err := Query(doc.Root(), "p.light")
	require.NoError(t, err)
	require.Equal(t, 1, light.Length())
	assert.Equal(t, "light child", light.Text())
}

func TestQueryDeep_FindsFirstShadowMatchInDocumentOrder(t *testing.T) {
	doc := parse(t, shadowPage)

	got, err := QueryDeep(doc.Root(), ".target")
	require.NoError(t, err)
	require.Equal(t, 1, got.Length())
	id, _ := got.Attr("id")
	assert.Equal(t, "first-shadow", id)
}

func TestQueryDeep_PrefersLightTree(t *testing.T) {
	doc := parse(t, `<html><body>
		<x-host><template shadowrootmode="open"><b class="hit" id="shadow"></b></template></x-host>
		<b class="hit" id="light"></b>
	</body></html>`)

	got, err := QueryDeep(doc.Root(), ".hit")
	require.NoError(t, err)
	id, _ := got.Attr("id")
	assert.Equal(t, "light", id)
}

func TestQueryDeep_RecursesIntoNestedRoots(t *testing.T) {
	doc := parse(t, shadowPage)

	got, err := QueryDeep(doc.Root(), "span#nested")
	require.NoError(t, err)
	require.Equal(t, 1, got.Length())
	assert.Equal(t, "nested", got.Text())
}

func TestQueryDeep_ScopedToRoot(t *testing.T) {
	doc := parse(t, shadowPage)

	host, err := Query(doc.Root(), "other-host")
	require.NoError(t, err)

	got, err := QueryDeep(host, ".target")
	require.NoError(t, err)
	id, _ := got.Attr("id")
	assert.Equal(t, "second-shadow", id)
}

func TestQueryDeep_NotFound(t *testing.T) {
	doc := parse(t, shadowPage)

	got, err := QueryDeep(doc.Root(), "table")
	require.NoError(t, err)
	assert.Equal(t, 0, got.Length())
}

func TestQuery_InvalidSelector(t *testing.T) {
	doc := parse(t, shadowPage)

	_, err := Query(doc.Root(), "div[")
	assert.Error(t, err)
	_, err = QueryDeep(doc.Root(), "div[")
	assert.Error(t, err)
}

func TestQueryAll_DocumentOrder(t *testing.T) {
	doc := parse(t, `<html><body><ul><li>a</li><li>b<ul><li>c</li></ul></li></ul></body></html>`)

	got, err := QueryAll(doc.Root(), "li")
	require.NoError(t, err)
	require.Equal(t, 3, got.Length())
	assert.Equal(t, "a", got.Eq(0).Text())
	assert.Equal(t, "c", got.Eq(2).Text())
}

func TestQueryAllDeep_LightThenShadowRoots(t *testing.T) {
	doc := parse(t, shadowPage)

	got, err := QueryAllDeep(doc.Root(), ".target")
	require.NoError(t, err)
	var ids []string
	for i := range got.Nodes {
		id, _ := got.Eq(i).Attr("id")
		ids = append(ids, id)
	}
	assert.Equal(t, []string{"first-shadow", "nested", "second-shadow"}, ids)

	none, err := QueryAllDeep(doc.Root(), "article")
	require.NoError(t, err)
	assert.Equal(t, 0, none.Length())
}

func TestShadowRootAndInnerHTML(t *testing.T) {
	doc := parse(t, shadowPage)

	host, err := Query(doc.Root(), "#shell")
	require.NoError(t, err)

	root := ShadowRoot(host)
	require.Equal(t, 1, root.Length())

	inner, err := InnerHTML(host)
	require.NoError(t, err)
	assert.Contains(t, inner, "light child")
	assert.NotContains(t, inner, "in shadow")
}
