package outline

import "strings"

// NestedSection is one level of the nested view of an index.
type NestedSection struct {
	Pages    []int                     `json:"pages"`
	Children map[string]*NestedSection `json:"children"`
}

// Nest turns the flat key -> pages index into a tree by splitting keys on
// PathSeparator. Pages of repeated paths are appended. The reserved key is
// dropped.
func Nest(idx *Index) map[string]*NestedSection {
	root := make(map[string]*NestedSection)
	for _, s := range idx.Sections() {
		insertNested(root, strings.Split(s.Key, PathSeparator), s.Pages)
	}
	return root
}

func insertNested(level map[string]*NestedSection, titles []string, pages []int) {
	node, ok := level[titles[0]]
	if !ok {
		node = &NestedSection{Pages: []int{}, Children: make(map[string]*NestedSection)}
		level[titles[0]] = node
	}
	if len(titles) == 1 {
		node.Pages = append(node.Pages, pages...)
		return
	}
	insertNested(node.Children, titles[1:], pages)
}
