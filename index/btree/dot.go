package btree

import (
	"bufio"
	"fmt"
	"html"
	"io"
	"strings"
)

// WriteDOT renders the tree as a Graphviz digraph: internal nodes in blue,
// leaves in green, with dashed edges for the leaf chain. label formats a
// single key; nil uses fmt's %v.
func (t *BTree[T]) WriteDOT(w io.Writer, label func(T) string) error {
	if label == nil {
		label = func(item T) string { return fmt.Sprint(item) }
	}
	bw := bufio.NewWriter(w)

	fmt.Fprintln(bw, "digraph BTree {")
	fmt.Fprintln(bw, "  graph [ranksep=0.8, nodesep=0.5, bgcolor=\"#ffffff\", rankdir=TB];")
	fmt.Fprintln(bw, "  node [shape=none, fontname=\"Helvetica\", fontsize=10];")
	fmt.Fprintln(bw, "  edge [arrowsize=0.8, color=\"#444444\"];")

	names := make(map[*node[T]]string)
	var leaves []*node[T]

	var export func(n *node[T], depth int) string
	export = func(n *node[T], depth int) string {
		name := fmt.Sprintf("node%d", len(names))
		names[n] = name

		keys := make([]string, len(n.items))
		for i, item := range n.items {
			keys[i] = html.EscapeString(label(item))
		}
		fill := 100 * float64(len(n.items)) / float64(t.maxItems())

		if n.leaf() {
			leaves = append(leaves, n)
			fmt.Fprintf(bw, `  %s [label=<<TABLE BORDER="0" CELLBORDER="1" CELLSPACING="0" CELLPADDING="4">`+
				`<TR><TD BGCOLOR="#D5E8D4"><B>LEAF (depth %d)</B><BR/><FONT POINT-SIZE="8">Fill: %.1f%%</FONT></TD></TR>`+
				`<TR><TD PORT="keys" BGCOLOR="#F5F5F5">%s</TD></TR></TABLE>>];`+"\n",
				name, depth, fill, strings.Join(keys, " | "))
			return name
		}

		var cells strings.Builder
		for i, k := range keys {
			fmt.Fprintf(&cells, `<TD PORT="f%d" BGCOLOR="#E1F5FE"> </TD><TD BGCOLOR="#FFFFFF"><B>%s</B></TD>`, i, k)
		}
		fmt.Fprintf(&cells, `<TD PORT="f%d" BGCOLOR="#E1F5FE"> </TD>`, len(keys))
		fmt.Fprintf(bw, `  %s [label=<<TABLE BORDER="0" CELLBORDER="1" CELLSPACING="0" CELLPADDING="4">`+
			`<TR><TD COLSPAN="%d" BGCOLOR="#DAE8FC"><B>INTERNAL (depth %d)</B><BR/><FONT POINT-SIZE="8">Fill: %.1f%%</FONT></TD></TR>`+
			`<TR>%s</TR></TABLE>>];`+"\n",
			name, 2*len(keys)+1, depth, fill, cells.String())

		for i, c := range n.children {
			fmt.Fprintf(bw, "  %s:f%d -> %s;\n", name, i, export(c, depth+1))
		}
		return name
	}

	if t.root != nil {
		export(t.root, 1)
	}

	if len(leaves) > 1 {
		fmt.Fprintln(bw, "  { rank=same;")
		for _, leaf := range leaves {
			fmt.Fprintf(bw, "    %s;\n", names[leaf])
		}
		fmt.Fprintln(bw, "  }")
		for _, leaf := range leaves {
			if target, ok := names[leaf.next]; ok {
				fmt.Fprintf(bw, "  %s -> %s [style=dashed, color=\"#03A9F4\", constraint=false];\n", names[leaf], target)
			}
		}
	}

	fmt.Fprintln(bw, "}")
	return bw.Flush()
}
