package markdown_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/soldiom/internal/app/markdown"
)

func TestViews_FlattensNodes(t *testing.T) {
	nodes := markdown.Structure("## Title\n3. see [docs](https://d.example)\n```go\nx := 1\n```")

	views := markdown.Views(nodes)
	require.Len(t, views, 3)

	assert.Equal(t, markdown.KindHeading, views[0].Type)
	assert.Equal(t, 2, views[0].Level)

	assert.Equal(t, "3.", views[1].Ordinal)
	require.Len(t, views[1].Inline, 2)
	assert.Equal(t, markdown.InlineView{Type: markdown.KindLink, Label: "docs", Href: "https://d.example"}, views[1].Inline[1])

	assert.Equal(t, "go", views[2].Lang)
	assert.Equal(t, "x := 1", views[2].Raw)

	data, err := json.Marshal(views[2])
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"code_block","lang":"go","raw":"x := 1"}`, string(data))
}
