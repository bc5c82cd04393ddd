// Package markdown turns (possibly partial) assistant markdown into render nodes.
//
// Only a small grammar is recognised: fenced code blocks, "#"/"##"/"###"
// headings, "-"/"*" and "N." list items, **bold** and [label](href) links.
// Everything else renders as plain text.
package markdown

import "strings"

// NodeKind tags a block node.
type NodeKind string

const (
	KindHeading   NodeKind = "heading"
	KindListItem  NodeKind = "list_item"
	KindCodeBlock NodeKind = "code_block"
	KindParagraph NodeKind = "paragraph"
)

// Node is a block-level render node: *Heading, *ListItem, *CodeBlock or *Paragraph.
type Node interface {
	Kind() NodeKind
}

type Heading struct {
	Level  int // 1..3
	Inline []Inline
}

// ListItem is a bullet ("- ", "* ") when Ordinal is empty, else a numbered item
// with the source numeral kept as written, e.g. "3.".
type ListItem struct {
	Ordinal string
	Inline  []Inline
}

// CodeBlock holds the verbatim interior of a fence. Lang is the tag that
// followed the opening backticks; it is never part of Raw.
type CodeBlock struct {
	Lang string
	Raw  string
}

type Paragraph struct {
	Inline []Inline
}

func (*Heading) Kind() NodeKind   { return KindHeading }
func (*ListItem) Kind() NodeKind  { return KindListItem }
func (*CodeBlock) Kind() NodeKind { return KindCodeBlock }
func (*Paragraph) Kind() NodeKind { return KindParagraph }

// InlineKind tags an inline node.
type InlineKind string

const (
	KindText InlineKind = "text"
	KindBold InlineKind = "bold"
	KindLink InlineKind = "link"
)

// Inline is a span inside a block: PlainText, Bold or Link.
type Inline interface {
	InlineKind() InlineKind
}

type PlainText struct {
	Value string
}

type Bold struct {
	Value string
}

type Link struct {
	Label string
	Href  string
}

func (PlainText) InlineKind() InlineKind { return KindText }
func (Bold) InlineKind() InlineKind      { return KindBold }
func (Link) InlineKind() InlineKind      { return KindLink }

// PlainString flattens inlines to their visible text.
func PlainString(in []Inline) string {
	var b strings.Builder
	for _, s := range in {
		switch v := s.(type) {
		case PlainText:
			b.WriteString(v.Value)
		case Bold:
			b.WriteString(v.Value)
		case Link:
			b.WriteString(v.Label)
		}
	}
	return b.String()
}
