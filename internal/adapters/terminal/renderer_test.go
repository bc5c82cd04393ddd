package terminal_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/soldiom/internal/adapters/terminal"
	"github.com/PabloGalante/soldiom/internal/app/markdown"
	"github.com/PabloGalante/soldiom/internal/app/turn"
	"github.com/PabloGalante/soldiom/internal/domain"
)

func TestRender_Plain(t *testing.T) {
	r := terminal.NewRenderer(terminal.Options{Plain: true})

	nodes := markdown.Structure("# Title\n- **one**\n2. see [docs](https://d.example)\n```go\nx := 1\n```\nbye")
	out := r.Render(nodes, []domain.Citation{
		{URI: "https://a.example", Title: "A"},
		{URI: "https://b.example"},
	})

	assert.Equal(t, strings.Join([]string{
		"Title",
		"• one",
		"2. see docs (https://d.example)",
		"  go",
		"  x := 1",
		"bye",
		"",
		"Sources",
		"  [1] A https://a.example",
		"  [2] https://b.example https://b.example",
	}, "\n"), out)
}

func TestRender_Empty(t *testing.T) {
	r := terminal.NewRenderer(terminal.Options{Plain: true})
	assert.Empty(t, r.Render(nil, nil))
}

func TestRender_HighlightKeepsCode(t *testing.T) {
	r := terminal.NewRenderer(terminal.Options{})

	out := r.Render([]markdown.Node{&markdown.CodeBlock{Lang: "go", Raw: "package main"}}, nil)
	assert.Contains(t, out, "package")
	assert.Contains(t, out, "main")

	// Unknown languages fall back without losing text.
	out = r.Render([]markdown.Node{&markdown.CodeBlock{Lang: "no-such-lang", Raw: "zzz"}}, nil)
	assert.Contains(t, out, "zzz")
}

func TestRenderMessage(t *testing.T) {
	r := terminal.NewRenderer(terminal.Options{Plain: true})

	out := r.RenderMessage(&domain.Message{
		Author:       domain.AuthorSystem,
		IsToolOutput: true,
		Text:         "Image Generated",
		Image:        "data:image/png;base64,AAAA",
	})
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "tool", lines[0])
	assert.Equal(t, "Image Generated", lines[1])
	assert.Contains(t, lines[2], "image")
}

func TestLiveView_RepaintsInPlace(t *testing.T) {
	var buf bytes.Buffer
	v := terminal.NewLiveView(&buf, terminal.NewRenderer(terminal.Options{Plain: true}))

	v.Update(turn.Update{Nodes: markdown.Structure("## Hel")})
	assert.Equal(t, "Hel\n", buf.String())

	buf.Reset()
	v.Update(turn.Update{Nodes: markdown.Structure("## Hello\nworld")})
	assert.Equal(t, "\x1b[1A\x1b[J"+"Hello\nworld\n", buf.String())

	buf.Reset()
	v.Update(turn.Update{Nodes: markdown.Structure("## Hello\nworld"), Done: true, Outcome: turn.OutcomeCompleted})
	assert.Equal(t, "\x1b[2A\x1b[J"+"Hello\nworld\n", buf.String())

	buf.Reset()
	v.Update(turn.Update{Nodes: markdown.Structure("ignored")})
	assert.Empty(t, buf.String())
}
