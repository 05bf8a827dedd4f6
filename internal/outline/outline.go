package outline

import (
	"sort"
	"strings"
)

// PathSeparator joins ancestor titles into a section key.
const PathSeparator = " > "

// Node is a bookmark entry of a paginated document.
type Node struct {
	Title    string `json:"title"`
	Page     *int   `json:"page"` // 1-based; nil when the destination could not be resolved
	Children []Node `json:"children"`
}

// Entry is one flattened outline node.
type Entry struct {
	Key  string
	Page int
}

// PageOf is a convenience for building nodes with a resolved page.
func PageOf(n int) *int {
	return &n
}

// Flatten walks the outline depth-first in document order and returns one
// entry per node with a resolved page. Parents are recorded before their
// children; unresolved nodes are skipped but their children are still visited.
func Flatten(nodes []Node) []Entry {
	var entries []Entry

	var walk func(nodes []Node, path []string)
	walk = func(nodes []Node, path []string) {
		for _, n := range nodes {
			p := append(path[:len(path):len(path)], n.Title)
			if n.Page != nil {
				entries = append(entries, Entry{Key: strings.Join(p, PathSeparator), Page: *n.Page})
			}
			walk(n.Children, p)
		}
	}

	walk(nodes, nil)
	return entries
}

// RangeIndex builds the section range index. Entries are stably sorted by
// start page; each section spans from its start page to one before the next
// section's start, the last one to totalPages. Sections whose next neighbour
// starts on the same or an earlier page get an empty page list. A bookmark
// titled like the reserved key still bounds its predecessor but never
// replaces the all-pages list.
func RangeIndex(nodes []Node, totalPages int) *Index {
	entries := Flatten(nodes)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Page < entries[j].Page
	})

	idx := NewIndex(totalPages)
	for i, e := range entries {
		end := totalPages
		if i+1 < len(entries) {
			end = entries[i+1].Page - 1
		}
		idx.setSection(e.Key, pageRange(e.Page, end))
	}
	return idx
}

// PointIndex builds the legacy index where each section only lists its own
// start page(s). Repeated keys are merged, deduplicated and sorted.
// A bookmark titled like the reserved key is ignored, as in RangeIndex.
func PointIndex(nodes []Node, totalPages int) *Index {
	idx := NewIndex(totalPages)
	for _, e := range Flatten(nodes) {
		if e.Key == AllPagesKey {
			continue
		}
		pages := append(idx.Get(e.Key), e.Page)
		idx.setSection(e.Key, uniqueSorted(pages))
	}
	return idx
}

// AllPages returns 1..n.
func AllPages(n int) []int {
	return pageRange(1, n)
}

func pageRange(start, end int) []int {
	pages := []int{}
	for p := start; p <= end; p++ {
		pages = append(pages, p)
	}
	return pages
}

func uniqueSorted(pages []int) []int {
	seen := make(map[int]bool, len(pages))
	out := make([]int, 0, len(pages))
	for _, p := range pages {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	sort.Ints(out)
	return out
}
