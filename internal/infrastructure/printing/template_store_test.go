package printing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTemplateStore_Embedded(t *testing.T) {
	store, err := NewTemplateStore("")
	require.NoError(t, err)

	templates := store.GetAll()
	assert.Len(t, templates, len(GetDefaultTemplates()))
	for _, tmpl := range templates {
		assert.NotEmpty(t, tmpl.Content, tmpl.Name)
		assert.True(t, tmpl.DocType.IsValid())
	}
}

func TestTemplateStore_GetDefault(t *testing.T) {
	store, err := NewTemplateStore("")
	require.NoError(t, err)

	for _, docType := range []DocType{DocTypeQuote, DocTypeOrder, DocTypeReport} {
		t.Run(string(docType), func(t *testing.T) {
			tmpl, err := store.GetDefault(docType)
			require.NoError(t, err)
			assert.Equal(t, docType, tmpl.DocType)
			assert.True(t, tmpl.IsDefault)
		})
	}

	_, err = store.GetDefault(DocType("invoice"))
	var renderErr *RenderError
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, ErrCodeTemplateNotFound, renderErr.Code)
}

func TestTemplateStore_ReportIsLandscape(t *testing.T) {
	store, err := NewTemplateStore("")
	require.NoError(t, err)

	tmpl, err := store.GetDefault(DocTypeReport)
	require.NoError(t, err)
	assert.Equal(t, OrientationLandscape, tmpl.Orientation)
}

func TestTemplateStore_GetByID(t *testing.T) {
	store, err := NewTemplateStore("")
	require.NoError(t, err)

	quote, err := store.GetDefault(DocTypeQuote)
	require.NoError(t, err)

	found := store.GetByID(quote.ID)
	require.NotNil(t, found)
	assert.Equal(t, quote.Name, found.Name)
	assert.Nil(t, store.GetByID("missing"))
}

func TestTemplateStore_ExternalOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "quote_a4.html"), []byte("<p>custom {{.Number}}</p>"), 0o644))

	store, err := NewTemplateStore(dir)
	require.NoError(t, err)

	quote, err := store.GetDefault(DocTypeQuote)
	require.NoError(t, err)
	assert.Equal(t, "<p>custom {{.Number}}</p>", quote.Content)

	order, err := store.GetDefault(DocTypeOrder)
	require.NoError(t, err)
	assert.Contains(t, order.Content, "<!DOCTYPE html>")
}

func TestTemplateStore_Reload(t *testing.T) {
	dir := t.TempDir()
	store, err := NewTemplateStore(dir)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "order_a4.html"), []byte("<p>v2</p>"), 0o644))
	require.NoError(t, store.Reload())

	order, err := store.GetDefault(DocTypeOrder)
	require.NoError(t, err)
	assert.Equal(t, "<p>v2</p>", order.Content)
}

func TestGenerateTemplateID_Stable(t *testing.T) {
	a := generateTemplateID(DocTypeQuote, PaperSizeA4, OrientationPortrait)
	b := generateTemplateID(DocTypeQuote, PaperSizeA4, OrientationPortrait)
	c := generateTemplateID(DocTypeQuote, PaperSizeA4, OrientationLandscape)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
