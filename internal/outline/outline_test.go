package outline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleOutline() []Node {
	return []Node{
		{Title: "A", Page: PageOf(1), Children: []Node{
			{Title: "A1", Page: PageOf(2)},
			{Title: "A2", Page: PageOf(4)},
		}},
		{Title: "B", Page: PageOf(5)},
	}
}

func TestFlatten_DocumentOrder(t *testing.T) {
	want := []Entry{
		{Key: "A", Page: 1},
		{Key: "A > A1", Page: 2},
		{Key: "A > A2", Page: 4},
		{Key: "B", Page: 5},
	}
	assert.Equal(t, want, Flatten(sampleOutline()))
}

func TestFlatten_SkipsUnresolvedButVisitsChildren(t *testing.T) {
	nodes := []Node{
		{Title: "Front", Page: nil, Children: []Node{
			{Title: "Preface", Page: PageOf(2)},
		}},
	}
	assert.Equal(t, []Entry{{Key: "Front > Preface", Page: 2}}, Flatten(nodes))
}

func TestFlatten_SiblingPathsDoNotShareBacking(t *testing.T) {
	nodes := []Node{
		{Title: "Root", Page: PageOf(1), Children: []Node{
			{Title: "X", Page: PageOf(2), Children: []Node{{Title: "deep", Page: PageOf(3)}}},
			{Title: "Y", Page: PageOf(4)},
		}},
	}
	var keys []string
	for _, e := range Flatten(nodes) {
		keys = append(keys, e.Key)
	}
	assert.Equal(t, []string{"Root", "Root > X", "Root > X > deep", "Root > Y"}, keys)
}

func TestRangeIndex(t *testing.T) {
	idx := RangeIndex(sampleOutline(), 6)

	tests := []struct {
		key  string
		want []int
	}{
		{"A", []int{1}},
		{"A > A1", []int{2, 3}},
		{"A > A2", []int{4}},
		{"B", []int{5, 6}},
		{AllPagesKey, []int{1, 2, 3, 4, 5, 6}},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, idx.Get(tt.key))
		})
	}
	assert.Equal(t, 4, idx.Len())
}

func TestRangeIndex_SharedStartPageYieldsEmptyRange(t *testing.T) {
	nodes := []Node{
		{Title: "Chapter", Page: PageOf(3), Children: []Node{
			{Title: "Intro", Page: PageOf(3)},
		}},
	}
	idx := RangeIndex(nodes, 5)

	got := idx.Get("Chapter")
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.True(t, idx.Has("Chapter"), "empty section must stay in the index")
	assert.Equal(t, []int{3, 4, 5}, idx.Get("Chapter > Intro"))
}

func TestRangeIndex_SortsOutOfOrderOutline(t *testing.T) {
	nodes := []Node{
		{Title: "Late", Page: PageOf(4)},
		{Title: "Early", Page: PageOf(1)},
	}
	idx := RangeIndex(nodes, 5)
	assert.Equal(t, []string{"Early", "Late"}, idx.Keys())
	assert.Equal(t, []int{1, 2, 3}, idx.Get("Early"))
	assert.Equal(t, []int{4, 5}, idx.Get("Late"))
}

func TestRangeIndex_NoOutline(t *testing.T) {
	idx := RangeIndex(nil, 3)
	assert.Equal(t, 0, idx.Len())
	assert.Equal(t, []int{1, 2, 3}, idx.Get(AllPagesKey))
}

func TestRangeIndex_DuplicateKeysLastWriterWins(t *testing.T) {
	nodes := []Node{
		{Title: "Notes", Page: PageOf(1)},
		{Title: "Body", Page: PageOf(2)},
		{Title: "Notes", Page: PageOf(4)},
	}
	idx := RangeIndex(nodes, 5)
	assert.Equal(t, []string{"Notes", "Body"}, idx.Keys())
	assert.Equal(t, []int{4, 5}, idx.Get("Notes"))
}

func TestRangeIndex_BookmarkNamedLikeReservedKey(t *testing.T) {
	nodes := []Node{
		{Title: "Intro", Page: PageOf(1)},
		{Title: AllPagesKey, Page: PageOf(3)},
	}
	idx := RangeIndex(nodes, 5)

	assert.Equal(t, []int{1, 2, 3, 4, 5}, idx.Get(AllPagesKey))
	assert.Equal(t, 5, idx.TotalPages())
	assert.Equal(t, []string{"Intro"}, idx.Keys())
	assert.Equal(t, []int{1, 2}, idx.Get("Intro"), "the bookmark still bounds its predecessor")
}

func TestPointIndex_BookmarkNamedLikeReservedKey(t *testing.T) {
	nodes := []Node{
		{Title: AllPagesKey, Page: PageOf(2)},
		{Title: "Body", Page: PageOf(3)},
	}
	idx := PointIndex(nodes, 4)

	assert.Equal(t, []int{1, 2, 3, 4}, idx.Get(AllPagesKey))
	assert.Equal(t, 4, idx.TotalPages())
	assert.Equal(t, []string{"Body"}, idx.Keys())
}

func TestRangeIndex_Partitions(t *testing.T) {
	outlines := map[string][]Node{
		"sample": sampleOutline(),
		"shared starts": {
			{Title: "P", Page: PageOf(1), Children: []Node{{Title: "C", Page: PageOf(1)}, {Title: "D", Page: PageOf(7)}}},
			{Title: "Q", Page: PageOf(7)},
			{Title: "R", Page: PageOf(9)},
		},
		"late start": {
			{Title: "Only", Page: PageOf(4)},
		},
	}
	const total = 10
	for name, nodes := range outlines {
		t.Run(name, func(t *testing.T) {
			idx := RangeIndex(nodes, total)
			seen := make(map[int]int)
			for _, s := range idx.Sections() {
				for _, p := range s.Pages {
					seen[p]++
				}
			}
			first := Flatten(nodes)[0].Page
			for _, e := range Flatten(nodes) {
				first = min(first, e.Page)
			}
			for p := 1; p <= total; p++ {
				if p < first {
					assert.Zero(t, seen[p], "page %d lies before the first section", p)
				} else {
					assert.Equal(t, 1, seen[p], "page %d should be covered exactly once", p)
				}
			}
		})
	}
}

func TestPointIndex(t *testing.T) {
	nodes := []Node{
		{Title: "A", Page: PageOf(3), Children: []Node{{Title: "A1", Page: PageOf(4)}}},
		{Title: "A", Page: PageOf(1)},
		{Title: "A", Page: PageOf(3)},
		{Title: "Lost", Page: nil},
	}
	idx := PointIndex(nodes, 6)

	assert.Equal(t, []int{1, 3}, idx.Get("A"))
	assert.Equal(t, []int{4}, idx.Get("A > A1"))
	assert.False(t, idx.Has("Lost"), "unresolved node must not produce an entry")
	assert.Equal(t, 6, idx.TotalPages())
}

func TestIndexJSON_PreservesOrderAndReservedKey(t *testing.T) {
	idx := RangeIndex(sampleOutline(), 6)
	raw, err := idx.MarshalJSON()
	require.NoError(t, err)
	want := `{"A":[1],"A > A1":[2,3],"A > A2":[4],"B":[5,6],"__all_pages__":[1,2,3,4,5,6]}`
	assert.Equal(t, want, string(raw))

	var back Index
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, idx.Keys(), back.Keys())
	assert.Equal(t, 6, back.TotalPages())
}

func TestIndexJSON_EmptyRangeEncodedAsEmptyList(t *testing.T) {
	idx := NewIndex(2)
	idx.Set("Empty", nil)
	raw, err := json.Marshal(idx)
	require.NoError(t, err)
	assert.Equal(t, `{"Empty":[],"__all_pages__":[1,2]}`, string(raw))
}

func TestIndexJSON_RejectsNonObject(t *testing.T) {
	var idx Index
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &idx))
}

func TestIndexFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", IndexFileName)
	idx := RangeIndex(sampleOutline(), 6)
	require.NoError(t, WriteIndexFile(path, idx))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"A > A1": [`)
	assert.NotContains(t, string(data), `\u003e`)

	got, err := ReadIndexFile(path)
	require.NoError(t, err)
	for _, k := range idx.Keys() {
		assert.Equal(t, idx.Get(k), got.Get(k), k)
	}
}

func TestByStart_SkipsEmptyAndOrdersByFirstPage(t *testing.T) {
	idx := NewIndex(9)
	idx.Set("late", []int{7, 8, 9})
	idx.Set("empty", []int{})
	idx.Set("early", []int{1, 2})
	var keys []string
	for _, s := range idx.ByStart() {
		keys = append(keys, s.Key)
	}
	assert.Equal(t, []string{"early", "late"}, keys)
}

func TestNest(t *testing.T) {
	idx := RangeIndex(sampleOutline(), 6)
	nested := Nest(idx)

	require.Len(t, nested, 2)
	assert.NotContains(t, nested, AllPagesKey, "reserved key must not be nested")
	a := nested["A"]
	require.NotNil(t, a)
	assert.Equal(t, []int{1}, a.Pages)
	assert.Equal(t, []int{2, 3}, a.Children["A1"].Pages)
	assert.Empty(t, nested["B"].Children)
}

func TestNest_ChildBeforeParent(t *testing.T) {
	idx := NewIndex(3)
	idx.Set("X > Y", []int{2})
	idx.Set("X", []int{1})
	nested := Nest(idx)
	assert.Equal(t, []int{1}, nested["X"].Pages)
	assert.Equal(t, []int{2}, nested["X"].Children["Y"].Pages)
}
