package markdown

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const fence = "```"

// Structure converts text into render nodes. It is a pure function of its
// input: it keeps no state between calls, never fails, and is meant to be
// re-run on the whole accumulated text after every stream update.
//
// Code fences are segmented first. An unterminated fence swallows the rest of
// the input, so a code block that is still streaming renders as code and
// only grows. Remaining lines become one node each; blank lines are dropped.
func Structure(text string) []Node {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	lines := strings.Split(text, "\n")
	var nodes []Node

	for i := 0; i < len(lines); {
		line := strings.TrimSuffix(lines[i], "\r")

		if strings.HasPrefix(line, fence) {
			block, next := codeBlock(lines, i)
			nodes = append(nodes, block)
			i = next
			continue
		}

		if node := classifyLine(line); node != nil {
			nodes = append(nodes, node)
		}
		i++
	}

	return nodes
}

// codeBlock reads the fence opened at lines[start] and returns it with the
// index of the first line after the closing fence.
func codeBlock(lines []string, start int) (*CodeBlock, int) {
	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSuffix(lines[start], "\r"), fence))
	if strings.HasSuffix(rest, fence) {
		// "```x```" opens and closes on one line.
		return &CodeBlock{Raw: strings.TrimSuffix(rest, fence)}, start + 1
	}
	lang := rest

	end := start + 1
	for end < len(lines) && strings.TrimSpace(lines[end]) != fence {
		end++
	}

	body := lines[start+1 : end]
	if end == len(lines) && len(body) > 0 && partialFence(body[len(body)-1]) {
		// Still open: a trailing newline or the first backticks of the
		// closing fence would disappear once the fence arrives, so drop
		// them now.
		body = body[:len(body)-1]
	}

	return &CodeBlock{Lang: lang, Raw: strings.Join(body, "\n")}, end + 1
}

// partialFence reports whether line is empty or could still grow into a
// closing fence.
func partialFence(line string) bool {
	line = strings.TrimSpace(line)
	return len(line) < len(fence) && strings.Trim(line, "`") == ""
}

// lineRule recognises a block marker at the start of a line. match returns
// the marker length; build receives the marker text and the parsed remainder.
type lineRule struct {
	match func(line string) (int, bool)
	build func(marker string, inline []Inline) Node
}

// lineRules are evaluated in order; the first match wins.
var lineRules = []lineRule{
	{prefix("### "), heading(3)},
	{prefix("## "), heading(2)},
	{prefix("# "), heading(1)},
	{prefix("- "), bullet},
	{prefix("* "), bullet},
	{orderedMarker, numbered},
}

func classifyLine(line string) Node {
	if strings.TrimSpace(line) == "" {
		return nil
	}
	for _, r := range lineRules {
		if n, ok := r.match(line); ok {
			return r.build(line[:n], ParseInline(line[n:]))
		}
	}
	return &Paragraph{Inline: ParseInline(line)}
}

func prefix(p string) func(string) (int, bool) {
	return func(line string) (int, bool) {
		return len(p), strings.HasPrefix(line, p)
	}
}

func heading(level int) func(string, []Inline) Node {
	return func(_ string, inline []Inline) Node {
		return &Heading{Level: level, Inline: inline}
	}
}

func bullet(_ string, inline []Inline) Node {
	return &ListItem{Inline: inline}
}

func numbered(marker string, inline []Inline) Node {
	return &ListItem{Ordinal: marker[:strings.IndexByte(marker, '.')+1], Inline: inline}
}

// orderedMarker matches one or more digits, a dot and a single whitespace rune.
func orderedMarker(line string) (int, bool) {
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == 0 || i >= len(line) || line[i] != '.' {
		return 0, false
	}
	i++
	r, size := utf8.DecodeRuneInString(line[i:])
	if size == 0 || !unicode.IsSpace(r) {
		return 0, false
	}
	return i + size, true
}
