package adf_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s-d-m/local-jira/internal/adf"
	"github.com/s-d-m/local-jira/internal/model"
)

const sampleDoc = `{
	"type": "doc",
	"content": [
		{"type": "paragraph", "content": [
			{"type": "text", "text": "hello "},
			{"type": "text", "text": "world", "marks": [{"type": "strong"}]}
		]},
		{"type": "bulletList", "content": [
			{"type": "listItem", "content": [
				{"type": "paragraph", "content": [{"type": "text", "text": "item one"}]}
			]}
		]}
	]
}`

func TestRenderMarkdown(t *testing.T) {
	out, err := adf.Render(json.RawMessage(sampleDoc), model.FormatMarkdown)
	require.NoError(t, err)
	assert.Contains(t, out, "hello **world**")
	assert.Contains(t, out, "- item one")
}

func TestRenderHTML(t *testing.T) {
	out, err := adf.Render(json.RawMessage(sampleDoc), model.FormatHTML)
	require.NoError(t, err)
	assert.Contains(t, out, "<strong>world</strong>")
	assert.Contains(t, out, "<li>")
}

func TestRenderEmptyDocument(t *testing.T) {
	out, err := adf.Render(nil, model.FormatMarkdown)
	require.NoError(t, err)
	assert.Equal(t, "", out)
}

func TestRenderLinkMark(t *testing.T) {
	doc := `{"type":"text","text":"click","marks":[{"type":"link","attrs":{"href":"https://example.com"}}]}`
	out, err := adf.Render(json.RawMessage(doc), model.FormatMarkdown)
	require.NoError(t, err)
	assert.Equal(t, "[click](https://example.com)", out)
}
