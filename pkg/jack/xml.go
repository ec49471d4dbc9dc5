package jack

import (
	"fmt"
	"strings"
)

// WriteXML renders a parse tree the way the classic nand2tetris tooling
// does: one tag per line, two-space indentation, token values padded with a
// leading and trailing space, and every syntactic production rendered as an
// explicit open/close tag pair even when it holds no children (empty
// containers print as an open tag line directly followed by the close tag
// line — never a self-closed "<tag/>").
func WriteXML(root *Node) string {
	var b strings.Builder
	writeNode(&b, root, 0)
	return b.String()
}

func writeNode(b *strings.Builder, n *Node, depth int) {
	indent := strings.Repeat("  ", depth)

	if n.Token != nil {
		fmt.Fprintf(b, "%s<%s> %s </%s>\n", indent, n.Tag, escape(n.Token.Value), n.Tag)
		return
	}

	fmt.Fprintf(b, "%s<%s>\n", indent, n.Tag)
	for _, child := range n.Children {
		if child.Tag == "pad" {
			continue
		}
		writeNode(b, child, depth+1)
	}
	fmt.Fprintf(b, "%s</%s>\n", indent, n.Tag)
}

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

// escape applies the three XML entity substitutions the Jack token alphabet
// actually needs; quotes never appear in a token's rendered value.
func escape(s string) string {
	return escaper.Replace(s)
}
