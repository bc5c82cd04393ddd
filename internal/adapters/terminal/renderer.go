// Package terminal renders structured replies for a text terminal.
package terminal

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"

	"github.com/PabloGalante/soldiom/internal/app/markdown"
	"github.com/PabloGalante/soldiom/internal/domain"
)

const codeIndent = "  "

// Options configures a Renderer.
type Options struct {
	// Width wraps paragraphs and list items; 0 disables wrapping.
	Width int
	// Plain turns off colors and syntax highlighting.
	Plain bool
	// CodeStyle is the chroma style for code blocks (default "monokai").
	CodeStyle string
}

type palette struct {
	h1, h2, h3 lipgloss.Style
	bold       lipgloss.Style
	link       lipgloss.Style
	href       lipgloss.Style
	bullet     lipgloss.Style
	lang       lipgloss.Style
	author     lipgloss.Style
	system     lipgloss.Style
	source     lipgloss.Style
}

// Renderer turns markdown nodes into terminal text.
type Renderer struct {
	opts   Options
	p      palette
	chroma *chroma.Style
}

func NewRenderer(opts Options) *Renderer {
	if opts.CodeStyle == "" {
		opts.CodeStyle = "monokai"
	}

	r := &Renderer{opts: opts}
	if opts.Plain {
		plain := lipgloss.NewStyle()
		r.p = palette{plain, plain, plain, plain, plain, plain, plain, plain, plain, plain, plain}
		return r
	}

	r.p = palette{
		h1:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")).Underline(true),
		h2:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("141")),
		h3:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("117")),
		bold:   lipgloss.NewStyle().Bold(true),
		link:   lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Underline(true),
		href:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		bullet: lipgloss.NewStyle().Foreground(lipgloss.Color("212")),
		lang:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true),
		author: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		system: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		source: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}

	r.chroma = styles.Get(opts.CodeStyle)
	if r.chroma == nil {
		r.chroma = styles.Fallback
	}
	return r
}

// Render draws the nodes followed by the numbered source list.
func (r *Renderer) Render(nodes []markdown.Node, citations []domain.Citation) string {
	var b strings.Builder
	for i, n := range nodes {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(r.node(n))
	}

	if len(citations) > 0 {
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(r.sources(citations))
	}
	return b.String()
}

// RenderMessage draws a timeline message with its author line.
func (r *Renderer) RenderMessage(m *domain.Message) string {
	var head string
	switch {
	case m.IsToolOutput:
		head = r.p.system.Render("tool")
	case m.Author == domain.AuthorUser:
		head = r.p.author.Render("you")
	default:
		head = r.p.author.Render("soldiom")
	}

	body := r.Render(markdown.Structure(m.Text), m.Citations)
	if m.Image != "" {
		body += "\n" + r.p.source.Render(fmt.Sprintf("[image, %d bytes encoded]", len(m.Image)))
	}
	if m.Audio != "" {
		body += "\n" + r.p.source.Render(fmt.Sprintf("[audio, %d bytes encoded]", len(m.Audio)))
	}
	return head + "\n" + body
}

func (r *Renderer) node(n markdown.Node) string {
	switch n := n.(type) {
	case *markdown.Heading:
		text := r.inline(n.Inline)
		switch n.Level {
		case 1:
			return r.p.h1.Render(text)
		case 2:
			return r.p.h2.Render(text)
		default:
			return r.p.h3.Render(text)
		}
	case *markdown.ListItem:
		marker := "•"
		if n.Ordinal != "" {
			marker = n.Ordinal
		}
		return r.wrap(r.p.bullet.Render(marker) + " " + r.inline(n.Inline))
	case *markdown.CodeBlock:
		return r.codeBlock(n)
	case *markdown.Paragraph:
		return r.wrap(r.inline(n.Inline))
	}
	return ""
}

func (r *Renderer) inline(in []markdown.Inline) string {
	var b strings.Builder
	for _, s := range in {
		switch s := s.(type) {
		case markdown.PlainText:
			b.WriteString(s.Value)
		case markdown.Bold:
			b.WriteString(r.p.bold.Render(s.Value))
		case markdown.Link:
			b.WriteString(r.p.link.Render(s.Label))
			if s.Href != "" && s.Href != s.Label {
				b.WriteString(" " + r.p.href.Render("("+s.Href+")"))
			}
		}
	}
	return b.String()
}

func (r *Renderer) wrap(s string) string {
	if r.opts.Width <= 0 {
		return s
	}
	return lipgloss.NewStyle().Width(r.opts.Width).Render(s)
}

// codeBlock indents by hand: lipgloss would pad every line to the widest one
// and expand tabs.
func (r *Renderer) codeBlock(c *markdown.CodeBlock) string {
	lines := strings.Split(r.highlight(c.Lang, c.Raw), "\n")
	if c.Lang != "" {
		lines = append([]string{r.p.lang.Render(c.Lang)}, lines...)
	}
	for i, l := range lines {
		lines[i] = codeIndent + l
	}
	return strings.Join(lines, "\n")
}

// highlight colors code with the lexer named by lang, or a guessed one.
// Any failure falls back to the raw text.
func (r *Renderer) highlight(lang, raw string) string {
	if r.opts.Plain || raw == "" {
		return raw
	}

	var lexer chroma.Lexer
	if lang != "" {
		lexer = lexers.Get(lang)
	}
	if lexer == nil {
		lexer = lexers.Analyse(raw)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	it, err := lexer.Tokenise(nil, raw)
	if err != nil {
		return raw
	}
	var b strings.Builder
	if err := formatter.Format(&b, r.chroma, it); err != nil {
		return raw
	}
	return strings.TrimRight(b.String(), "\n")
}

func (r *Renderer) sources(cs []domain.Citation) string {
	var b strings.Builder
	b.WriteString(r.p.bold.Render("Sources"))
	for i, c := range cs {
		title := c.Title
		if title == "" {
			title = c.URI
		}
		fmt.Fprintf(&b, "\n  [%d] %s %s", i+1, title, r.p.source.Render(c.URI))
	}
	return b.String()
}
