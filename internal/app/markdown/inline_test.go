package markdown_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/PabloGalante/soldiom/internal/app/markdown"
)

func TestParseInline(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []markdown.Inline
	}{
		{
			name: "empty",
			in:   "",
			want: nil,
		},
		{
			name: "plain",
			in:   "just text",
			want: []markdown.Inline{markdown.PlainText{Value: "just text"}},
		},
		{
			name: "bold in the middle",
			in:   "a **b** c",
			want: []markdown.Inline{
				markdown.PlainText{Value: "a "},
				markdown.Bold{Value: "b"},
				markdown.PlainText{Value: " c"},
			},
		},
		{
			name: "link",
			in:   "see [Go](https://go.dev).",
			want: []markdown.Inline{
				markdown.PlainText{Value: "see "},
				markdown.Link{Label: "Go", Href: "https://go.dev"},
				markdown.PlainText{Value: "."},
			},
		},
		{
			name: "bold closes at nearest delimiter",
			in:   "**a** and **b**",
			want: []markdown.Inline{
				markdown.Bold{Value: "a"},
				markdown.PlainText{Value: " and "},
				markdown.Bold{Value: "b"},
			},
		},
		{
			name: "bold containing a link stays bold",
			in:   "**[x](y)**",
			want: []markdown.Inline{markdown.Bold{Value: "[x](y)"}},
		},
		{
			name: "link without target is literal",
			in:   "[label] only",
			want: []markdown.Inline{markdown.PlainText{Value: "[label] only"}},
		},
		{
			name: "unclosed href is literal",
			in:   "[label](http://partial",
			want: []markdown.Inline{markdown.PlainText{Value: "[label](http://partial"}},
		},
		{
			name: "unmatched bold then link",
			in:   "**open [a](b)",
			want: []markdown.Inline{
				markdown.PlainText{Value: "**open "},
				markdown.Link{Label: "a", Href: "b"},
			},
		},
		{
			name: "triple star",
			in:   "***x**",
			want: []markdown.Inline{markdown.Bold{Value: "*x"}},
		},
		{
			name: "unicode around constructs",
			in:   "café **naïve** → [ß](ü)",
			want: []markdown.Inline{
				markdown.PlainText{Value: "café "},
				markdown.Bold{Value: "naïve"},
				markdown.PlainText{Value: " → "},
				markdown.Link{Label: "ß", Href: "ü"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, markdown.ParseInline(tt.in))
		})
	}
}

func TestPlainString(t *testing.T) {
	in := markdown.ParseInline("a **b** [c](d)")
	assert.Equal(t, "a b c", markdown.PlainString(in))
}
