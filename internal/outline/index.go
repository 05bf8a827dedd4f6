package outline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// AllPagesKey is the reserved index key holding every page of the document.
const AllPagesKey = "__all_pages__"

// IndexFileName is the file the split command writes next to the page PDFs.
const IndexFileName = "index.json"

// Section is one named page range of the index.
type Section struct {
	Key   string
	Pages []int
}

// First returns the section's first page, or 0 when it has none.
func (s Section) First() int {
	if len(s.Pages) == 0 {
		return 0
	}
	return s.Pages[0]
}

// Index maps section keys to page lists. Keys keep their insertion order;
// setting an existing key replaces its pages in place.
type Index struct {
	keys     []string
	pages    map[string][]int
	allPages []int
}

// NewIndex returns an index for a document of totalPages pages.
func NewIndex(totalPages int) *Index {
	return &Index{
		pages:    make(map[string][]int),
		allPages: AllPages(totalPages),
	}
}

// Set assigns pages to key. The reserved key replaces the all-pages list.
func (idx *Index) Set(key string, pages []int) {
	if pages == nil {
		pages = []int{}
	}
	if key == AllPagesKey {
		idx.allPages = pages
		return
	}
	if _, ok := idx.pages[key]; !ok {
		idx.keys = append(idx.keys, key)
	}
	idx.pages[key] = pages
}

// setSection is Set for outline-derived keys: the reserved key is ignored so
// the all-pages list always stays 1..N.
func (idx *Index) setSection(key string, pages []int) {
	if key == AllPagesKey {
		return
	}
	idx.Set(key, pages)
}

// Get returns the pages for key (nil when absent).
func (idx *Index) Get(key string) []int {
	if key == AllPagesKey {
		return idx.allPages
	}
	return idx.pages[key]
}

// Has reports whether key is a section of the index.
func (idx *Index) Has(key string) bool {
	_, ok := idx.pages[key]
	return ok || key == AllPagesKey
}

// Keys returns the section keys in index order, without the reserved key.
func (idx *Index) Keys() []string {
	return append([]string(nil), idx.keys...)
}

// Len is the number of sections, not counting the reserved key.
func (idx *Index) Len() int {
	return len(idx.keys)
}

// TotalPages is the length of the reserved all-pages list.
func (idx *Index) TotalPages() int {
	return len(idx.allPages)
}

// Sections returns the sections in index order, without the reserved key.
func (idx *Index) Sections() []Section {
	out := make([]Section, 0, len(idx.keys))
	for _, k := range idx.keys {
		out = append(out, Section{Key: k, Pages: idx.pages[k]})
	}
	return out
}

// ByStart returns the non-empty sections stably ordered by first page.
func (idx *Index) ByStart() []Section {
	var out []Section
	for _, s := range idx.Sections() {
		if len(s.Pages) > 0 {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].First() < out[j].First() })
	return out
}

// MarshalJSON writes a JSON object with keys in index order and the reserved
// key last.
func (idx *Index) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	write := func(i int, key string, pages []int) error {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := encodeKey(key)
		if err != nil {
			return err
		}
		v, err := json.Marshal(pages)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}
	for i, k := range idx.keys {
		if err := write(i, k, idx.pages[k]); err != nil {
			return nil, err
		}
	}
	if err := write(len(idx.keys), AllPagesKey, idx.allPages); err != nil {
		return nil, err
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// encodeKey quotes key without HTML escaping so path separators like ">"
// stay readable in index.json.
func encodeKey(key string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(key); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// UnmarshalJSON reads a JSON object of key -> page list, preserving key order.
func (idx *Index) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("read index: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("read index: expected object, got %v", tok)
	}

	*idx = Index{pages: make(map[string][]int), allPages: []int{}}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("read index key: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("read index: unexpected key %v", tok)
		}
		var pages []int
		if err := dec.Decode(&pages); err != nil {
			return fmt.Errorf("read pages for %q: %w", key, err)
		}
		idx.Set(key, pages)
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("read index: %w", err)
	}
	return nil
}

// WriteIndexFile writes idx as indented JSON to path, creating parent
// directories as needed.
func WriteIndexFile(path string, idx *Index) error {
	raw, err := idx.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return fmt.Errorf("indent index: %w", err)
	}
	out.WriteByte('\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	if err := os.WriteFile(path, out.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return nil
}

// ReadIndexFile loads an index written by WriteIndexFile.
func ReadIndexFile(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read index file: %w", err)
	}
	idx := &Index{}
	if err := idx.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return idx, nil
}
