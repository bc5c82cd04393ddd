package markdown

// NodeView is the flat, JSON-friendly form of a Node.
type NodeView struct {
	Type    NodeKind     `json:"type"`
	Level   int          `json:"level,omitempty"`
	Ordinal string       `json:"ordinal,omitempty"`
	Lang    string       `json:"lang,omitempty"`
	Raw     string       `json:"raw,omitempty"`
	Inline  []InlineView `json:"inline,omitempty"`
}

type InlineView struct {
	Type  InlineKind `json:"type"`
	Value string     `json:"value,omitempty"`
	Label string     `json:"label,omitempty"`
	Href  string     `json:"href,omitempty"`
}

// Views converts nodes to their flat form, keeping order.
func Views(nodes []Node) []NodeView {
	out := make([]NodeView, 0, len(nodes))
	for _, n := range nodes {
		v := NodeView{Type: n.Kind()}
		switch n := n.(type) {
		case *Heading:
			v.Level = n.Level
			v.Inline = inlineViews(n.Inline)
		case *ListItem:
			v.Ordinal = n.Ordinal
			v.Inline = inlineViews(n.Inline)
		case *CodeBlock:
			v.Lang = n.Lang
			v.Raw = n.Raw
		case *Paragraph:
			v.Inline = inlineViews(n.Inline)
		}
		out = append(out, v)
	}
	return out
}

func inlineViews(in []Inline) []InlineView {
	out := make([]InlineView, 0, len(in))
	for _, s := range in {
		switch s := s.(type) {
		case PlainText:
			out = append(out, InlineView{Type: KindText, Value: s.Value})
		case Bold:
			out = append(out, InlineView{Type: KindBold, Value: s.Value})
		case Link:
			out = append(out, InlineView{Type: KindLink, Label: s.Label, Href: s.Href})
		}
	}
	return out
}
