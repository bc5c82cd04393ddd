package markdown

import "strings"

// inlineRule tries to recognise a construct starting at src[pos]. It returns
// the node and the index just past it.
type inlineRule func(src string, pos int) (Inline, int, bool)

// inlineRules are tried in order at every position; the first match wins.
var inlineRules = []inlineRule{boldRule, linkRule}

// ParseInline splits one line into plain, bold and link spans. Constructs
// that are not closed (common while a reply is streaming) are not
// recovered: their delimiters stay in the surrounding PlainText.
func ParseInline(src string) []Inline {
	var (
		out        []Inline
		plainStart int
	)

	for pos := 0; pos < len(src); {
		node, end, ok := matchInline(src, pos)
		if !ok {
			pos++
			continue
		}
		if pos > plainStart {
			out = append(out, PlainText{Value: src[plainStart:pos]})
		}
		out = append(out, node)
		pos, plainStart = end, end
	}

	if plainStart < len(src) {
		out = append(out, PlainText{Value: src[plainStart:]})
	}
	return out
}

func matchInline(src string, pos int) (Inline, int, bool) {
	for _, rule := range inlineRules {
		if node, end, ok := rule(src, pos); ok {
			return node, end, true
		}
	}
	return nil, 0, false
}

// boldRule matches **text** up to the nearest closing "**".
func boldRule(src string, pos int) (Inline, int, bool) {
	if !strings.HasPrefix(src[pos:], "**") {
		return nil, 0, false
	}
	start := pos + 2
	n := strings.Index(src[start:], "**")
	if n < 0 {
		return nil, 0, false
	}
	return Bold{Value: src[start : start+n]}, start + n + 2, true
}

// linkRule matches [label](href): the label ends at the nearest "](" and the
// href at the nearest ")" after it.
func linkRule(src string, pos int) (Inline, int, bool) {
	if src[pos] != '[' {
		return nil, 0, false
	}
	mid := strings.Index(src[pos+1:], "](")
	if mid < 0 {
		return nil, 0, false
	}
	labelEnd := pos + 1 + mid
	hrefStart := labelEnd + 2
	n := strings.IndexByte(src[hrefStart:], ')')
	if n < 0 {
		return nil, 0, false
	}
	return Link{Label: src[pos+1 : labelEnd], Href: src[hrefStart : hrefStart+n]}, hrefStart + n + 1, true
}
