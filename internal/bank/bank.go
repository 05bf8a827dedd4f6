// Package bank discovers numbered problem files and assembles them into
// exam documents.
package bank

import (
	"errors"
	"fmt"
	"io/fs"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// Pattern describes problem file names: Prefix, a decimal integer, Suffix.
type Pattern struct {
	Prefix string
	Suffix string
}

var DefaultPattern = Pattern{Prefix: "problem", Suffix: ".tex"}

// Number extracts the problem number from name.
func (p Pattern) Number(name string) (int, bool) {
	if !strings.HasPrefix(name, p.Prefix) || !strings.HasSuffix(name, p.Suffix) {
		return 0, false
	}
	mid := name[len(p.Prefix) : len(name)-len(p.Suffix)]
	if mid == "" || strings.TrimLeft(mid, "0123456789") != "" {
		return 0, false
	}
	n, err := strconv.Atoi(mid)
	if err != nil {
		return 0, false
	}
	return n, true
}

// FileName is the problem file for number n.
func (p Pattern) FileName(n int) string {
	return p.Prefix + strconv.Itoa(n) + p.Suffix
}

// Problem is one problem file of a bank.
type Problem struct {
	Path   string `json:"path"`
	Number int    `json:"number"`
}

// Name is the file name without directory.
func (p Problem) Name() string { return filepath.Base(p.Path) }

// Discover lists the problems of dir ordered by number. Files whose middle
// part is not an integer are ignored; numbering may have gaps.
func Discover(dir string, pat Pattern) ([]Problem, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read bank %s: %w", dir, err)
	}
	var problems []Problem
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if n, ok := pat.Number(e.Name()); ok {
			problems = append(problems, Problem{Path: filepath.Join(dir, e.Name()), Number: n})
		}
	}
	sort.SliceStable(problems, func(i, j int) bool { return problems[i].Number < problems[j].Number })
	return problems, nil
}

// NextNumber is one more than the highest problem number in dir, or 1 for an
// empty or absent bank.
func NextNumber(dir string, pat Pattern) (int, error) {
	problems, err := Discover(dir, pat)
	if errors.Is(err, fs.ErrNotExist) {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	if len(problems) == 0 {
		return 1, nil
	}
	return problems[len(problems)-1].Number + 1, nil
}

// SelectionError reports a requested sample size outside 1..Available.
type SelectionError struct {
	Requested int
	Available int
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("please select a number between 1 and %d (got %d)", e.Available, e.Requested)
}

// Sample picks n distinct problems uniformly at random. The result is in
// sampling order, not number order.
func Sample(problems []Problem, n int, rng *rand.Rand) ([]Problem, error) {
	if n < 1 || n > len(problems) {
		return nil, &SelectionError{Requested: n, Available: len(problems)}
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	perm := rng.Perm(len(problems))
	out := make([]Problem, n)
	for i := range out {
		out[i] = problems[perm[i]]
	}
	return out, nil
}
