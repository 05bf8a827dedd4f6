package kb

import (
	"sort"
	"strings"

	"github.com/dgallion1/studykit/internal/markdown"
)

const (
	passageTokens = 120
	snippetRunes  = 320
)

// Hit is one search result.
type Hit struct {
	Key     string `json:"key"`
	File    string `json:"file"`
	Score   int    `json:"score"`
	Snippet string `json:"snippet"`
}

// Search ranks sections by how often the query terms occur in their plain
// text. The snippet is the best-scoring passage. Matching is
// case-insensitive; limit <= 0 returns every hit.
func (s *Store) Search(query string, limit int) ([]Hit, error) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return []Hit{}, nil
	}
	entries, err := s.Entries()
	if err != nil {
		return nil, err
	}

	hits := []Hit{}
	for _, e := range entries {
		if !e.Available {
			continue
		}
		sec, err := s.load(e)
		if err != nil {
			continue
		}
		plain := markdown.PlainText([]byte(sec.Body))

		total, best, bestScore := 0, "", 0
		for _, passage := range splitText(plain, passageTokens) {
			score := scorePassage(strings.ToLower(passage), terms)
			total += score
			if score > bestScore {
				best, bestScore = passage, score
			}
		}
		if total == 0 {
			continue
		}
		hits = append(hits, Hit{Key: e.Key, File: e.File, Score: total, Snippet: snippet(best)})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func scorePassage(lower string, terms []string) int {
	n := 0
	for _, t := range terms {
		n += strings.Count(lower, t)
	}
	return n
}

func snippet(passage string) string {
	passage = strings.Join(strings.Fields(passage), " ")
	r := []rune(passage)
	if len(r) <= snippetRunes {
		return passage
	}
	return string(r[:snippetRunes]) + "…"
}
