package markdown

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

const fmDelim = "---"

// ErrUnclosedFrontMatter is returned when a document opens a front matter
// block that never ends.
var ErrUnclosedFrontMatter = errors.New("unclosed front matter")

// FrontMatter is the header written at the top of each section file.
type FrontMatter struct {
	Section string `yaml:"section"`
	Pages   []int  `yaml:"pages"`
}

// EncodeFrontMatter renders fm as a delimited YAML block followed by a blank
// line. The section title is always double-quoted and the page list is
// written in flow style, e.g. pages: [2, 3, 4].
func EncodeFrontMatter(fm FrontMatter) ([]byte, error) {
	pages := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, p := range fm.Pages {
		pages.Content = append(pages.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(p)})
	}
	doc := &yaml.Node{
		Kind: yaml.MappingNode,
		Content: []*yaml.Node{
			{Kind: yaml.ScalarNode, Value: "section"},
			{Kind: yaml.ScalarNode, Tag: "!!str", Style: yaml.DoubleQuotedStyle, Value: fm.Section},
			{Kind: yaml.ScalarNode, Value: "pages"},
			pages,
		},
	}
	body, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode front matter: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(fmDelim + "\n")
	buf.Write(body)
	buf.WriteString(fmDelim + "\n\n")
	return buf.Bytes(), nil
}

// SplitFrontMatter separates a leading "---" delimited block from the body.
// Documents without one return a nil header and the full input.
func SplitFrontMatter(src []byte) (header, body []byte, err error) {
	if !bytes.HasPrefix(src, []byte(fmDelim+"\n")) {
		return nil, src, nil
	}
	rest := src[len(fmDelim)+1:]
	for off := 0; off <= len(rest); {
		line := rest[off:]
		end := bytes.IndexByte(line, '\n')
		if end >= 0 {
			line = line[:end]
		}
		if string(bytes.TrimRight(line, "\r")) == fmDelim {
			header = rest[:off]
			if end < 0 {
				return header, nil, nil
			}
			return header, rest[off+end+1:], nil
		}
		if end < 0 {
			break
		}
		off += end + 1
	}
	return nil, src, ErrUnclosedFrontMatter
}

// ParseFrontMatter decodes the section header of src. ok is false when the
// document has no front matter.
func ParseFrontMatter(src []byte) (fm FrontMatter, body []byte, ok bool, err error) {
	header, body, err := SplitFrontMatter(src)
	if err != nil || header == nil {
		return fm, body, false, err
	}
	if err := yaml.Unmarshal(header, &fm); err != nil {
		return fm, body, true, fmt.Errorf("decode front matter: %w", err)
	}
	return fm, body, true, nil
}
