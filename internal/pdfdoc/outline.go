package pdfdoc

import (
	"fmt"

	"github.com/dgallion1/studykit/internal/outline"
	pdflib "github.com/ledongthuc/pdf"
)

// maxNameDepth bounds indirection through named destinations and name trees.
const maxNameDepth = 32

// ReadOutline returns the bookmark tree of the PDF at path with 1-based page
// numbers, and the document's page count. Bookmarks whose destination cannot
// be resolved keep a nil page. A document without bookmarks yields an empty
// tree and no error.
func ReadOutline(path string) (nodes []outline.Node, total int, err error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	// ledongthuc/pdf panics on some malformed object graphs.
	defer func() {
		if r := recover(); r != nil {
			nodes = nil
			err = fmt.Errorf("read outline: %v", r)
		}
	}()

	ol := newOutlineReader(reader)
	total = reader.NumPage()
	root := reader.Trailer().Key("Root")
	nodes = ol.items(root.Key("Outlines").Key("First"))
	if nodes == nil {
		nodes = []outline.Node{}
	}
	return nodes, total, nil
}

type outlineReader struct {
	root    pdflib.Value
	total   int
	pages   map[string]int // page dict fingerprint -> page number
	visited map[string]bool
}

func newOutlineReader(r *pdflib.Reader) *outlineReader {
	ol := &outlineReader{
		root:    r.Trailer().Key("Root"),
		total:   r.NumPage(),
		pages:   make(map[string]int),
		visited: make(map[string]bool),
	}
	// Values carry no public object identity, so pages are matched on their
	// serialized dictionary, which includes the indirect refs of their contents.
	for i := 1; i <= ol.total; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		key := p.V.String()
		if _, dup := ol.pages[key]; !dup {
			ol.pages[key] = i
		}
	}
	return ol
}

// items walks a sibling chain starting at first.
func (ol *outlineReader) items(first pdflib.Value) []outline.Node {
	var nodes []outline.Node
	for item := first; item.Kind() == pdflib.Dict; item = item.Key("Next") {
		id := item.String()
		if ol.visited[id] {
			break
		}
		ol.visited[id] = true

		nodes = append(nodes, outline.Node{
			Title:    item.Key("Title").Text(),
			Page:     ol.destPage(item),
			Children: ol.items(item.Key("First")),
		})
	}
	return nodes
}

func (ol *outlineReader) destPage(item pdflib.Value) *int {
	dest := item.Key("Dest")
	if dest.IsNull() {
		action := item.Key("A")
		if action.Key("S").Name() != "GoTo" {
			return nil
		}
		dest = action.Key("D")
	}
	return ol.resolve(dest, 0)
}

func (ol *outlineReader) resolve(dest pdflib.Value, depth int) *int {
	if depth > maxNameDepth {
		return nil
	}
	switch dest.Kind() {
	case pdflib.Array:
		if dest.Len() == 0 {
			return nil
		}
		target := dest.Index(0)
		switch target.Kind() {
		case pdflib.Dict:
			if p, ok := ol.pages[target.String()]; ok {
				return outline.PageOf(p)
			}
		case pdflib.Integer:
			// Remote-style destinations address pages by 0-based index.
			if p := int(target.Int64()) + 1; p >= 1 && p <= ol.total {
				return outline.PageOf(p)
			}
		}
		return nil
	case pdflib.Dict:
		return ol.resolve(dest.Key("D"), depth+1)
	case pdflib.Name:
		return ol.resolve(ol.named(dest.Name()), depth+1)
	case pdflib.String:
		return ol.resolve(ol.named(dest.RawString()), depth+1)
	}
	return nil
}

// named looks a destination name up in the catalog's /Dests dictionary and
// then in the /Names /Dests name tree.
func (ol *outlineReader) named(name string) pdflib.Value {
	if d := ol.root.Key("Dests").Key(name); !d.IsNull() {
		return d
	}
	return lookupNameTree(ol.root.Key("Names").Key("Dests"), name, 0)
}

func lookupNameTree(node pdflib.Value, name string, depth int) pdflib.Value {
	if node.Kind() != pdflib.Dict || depth > maxNameDepth {
		return pdflib.Value{}
	}
	names := node.Key("Names")
	for i := 0; i+1 < names.Len(); i += 2 {
		if names.Index(i).RawString() == name {
			return names.Index(i + 1)
		}
	}
	kids := node.Key("Kids")
	for i := 0; i < kids.Len(); i++ {
		if v := lookupNameTree(kids.Index(i), name, depth+1); !v.IsNull() {
			return v
		}
	}
	return pdflib.Value{}
}
