// Package kb serves the assembled section markdown of a book as a small
// read-only knowledge base.
package kb

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dgallion1/studykit/internal/markdown"
	"github.com/dgallion1/studykit/internal/outline"
	"github.com/dgallion1/studykit/internal/sections"
)

// ErrNotFound is returned for unknown section names.
var ErrNotFound = errors.New("section not found")

// Entry lists one section.
type Entry struct {
	Key       string `json:"key"`
	File      string `json:"file"`
	Pages     []int  `json:"pages"`
	Available bool   `json:"available"` // the section file exists
}

// Section is a loaded section file.
type Section struct {
	Entry
	FrontMatter *markdown.FrontMatter `json:"front_matter,omitempty"`
	Body        string                `json:"body"`
	Headings    []*markdown.Heading   `json:"headings"`
}

// Store reads sections from a directory. The index, when present, supplies
// order and page lists; without one the directory listing is used.
type Store struct {
	idx *outline.Index
	dir string
}

func New(idx *outline.Index, dir string) *Store {
	return &Store{idx: idx, dir: dir}
}

// Open loads the index at indexPath (a missing file is allowed) and serves
// sections from dir.
func Open(indexPath, dir string) (*Store, error) {
	if indexPath == "" {
		return New(nil, dir), nil
	}
	idx, err := outline.ReadIndexFile(indexPath)
	if errors.Is(err, fs.ErrNotExist) {
		return New(nil, dir), nil
	}
	if err != nil {
		return nil, err
	}
	return New(idx, dir), nil
}

// Index returns the loaded index, or nil.
func (s *Store) Index() *outline.Index { return s.idx }

func (s *Store) Dir() string { return s.dir }

// Entries lists the sections in index order, or file name order when the
// store has no index.
func (s *Store) Entries() ([]Entry, error) {
	if s.idx != nil {
		var out []Entry
		for _, sec := range s.idx.Sections() {
			if len(sec.Pages) == 0 {
				continue
			}
			file := sections.FileName(sec.Key)
			out = append(out, Entry{
				Key:       sec.Key,
				File:      file,
				Pages:     sec.Pages,
				Available: fileExists(filepath.Join(s.dir, file)),
			})
		}
		return out, nil
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read sections dir: %w", err)
	}
	var out []Entry
	for _, e := range entries {
		if !e.Type().IsRegular() || filepath.Ext(e.Name()) != ".md" {
			continue
		}
		out = append(out, Entry{
			Key:       strings.TrimSuffix(e.Name(), ".md"),
			File:      e.Name(),
			Pages:     []int{},
			Available: true,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].File < out[j].File })
	return out, nil
}

// Lookup resolves a section key, a sanitized file stem or a file name.
func (s *Store) Lookup(name string) (Entry, error) {
	if name == "" {
		return Entry{}, ErrNotFound
	}
	entries, err := s.Entries()
	if err != nil {
		return Entry{}, err
	}
	for _, e := range entries {
		if e.Key == name || e.File == name || strings.TrimSuffix(e.File, ".md") == name {
			return e, nil
		}
	}
	return Entry{}, ErrNotFound
}

// Section loads one section by name.
func (s *Store) Section(name string) (Section, error) {
	e, err := s.Lookup(name)
	if err != nil {
		return Section{}, err
	}
	return s.load(e)
}

func (s *Store) load(e Entry) (Section, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, e.File))
	if errors.Is(err, fs.ErrNotExist) {
		return Section{}, ErrNotFound
	}
	if err != nil {
		return Section{}, fmt.Errorf("read section: %w", err)
	}

	sec := Section{Entry: e, Body: string(data)}
	fm, body, ok, err := markdown.ParseFrontMatter(data)
	if err == nil && ok {
		sec.FrontMatter = &fm
		sec.Body = strings.TrimLeft(string(body), "\n")
	}
	sec.Headings = markdown.Headings([]byte(sec.Body))
	if sec.Headings == nil {
		sec.Headings = []*markdown.Heading{}
	}
	return sec, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
