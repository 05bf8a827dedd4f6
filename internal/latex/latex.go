// Package latex renders the exam-class documents that stitch problem files
// together.
package latex

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

const DefaultMargin = "1in"

// Variant selects the questions-only or the questions-with-solutions layout.
type Variant int

const (
	Questions Variant = iota
	Solutions
)

const docTemplate = `% {{.FileName}} - Auto-generated LaTeX file
\documentclass[{{.ClassOptions}}]{exam}
\usepackage[utf8]{inputenc}
\usepackage{amssymb}
\usepackage{amsmath}
\usepackage[margin={{.Margin}}]{geometry}
\title{ {{- .Title -}} }
\author{ {{- .Author -}} }
\date{ {{- .Date -}} }

\begin{document}
\maketitle

\section*{ {{- .Heading -}} }
\begin{questions}
{{.Body}}
\end{questions}
\end{document}
`

var tmpl = template.Must(template.New("doc").Parse(docTemplate))

// Meta is the per-run document metadata.
type Meta struct {
	Author string
	Date   string
	Margin string
}

// Document is one file to render.
type Document struct {
	FileName string
	Title    string
	Variant  Variant
	Inputs   []string // paths passed to \input, in order
}

type templateData struct {
	FileName     string
	ClassOptions string
	Margin       string
	Title        string
	Author       string
	Date         string
	Heading      string
	Body         string
}

// QuestionsBody places each input on its own indented line with \vfill
// between consecutive problems and after the last one.
func QuestionsBody(inputs []string) string {
	return strings.Join(inputLines(inputs), "\n\\vfill\n") + "\n\\vfill\n"
}

// SolutionsBody lists the inputs one per line.
func SolutionsBody(inputs []string) string {
	return strings.Join(inputLines(inputs), "\n")
}

func inputLines(inputs []string) []string {
	lines := make([]string, len(inputs))
	for i, p := range inputs {
		lines[i] = `    \input{` + filepath.ToSlash(p) + `}`
	}
	return lines
}

// Render produces the full LaTeX source of doc.
func Render(doc Document, meta Meta) ([]byte, error) {
	data := templateData{
		FileName: doc.FileName,
		Margin:   meta.Margin,
		Title:    doc.Title,
		Author:   meta.Author,
		Date:     meta.Date,
	}
	if data.Margin == "" {
		data.Margin = DefaultMargin
	}
	switch doc.Variant {
	case Questions:
		data.ClassOptions = "addpoints"
		data.Heading = "Questions"
		data.Body = QuestionsBody(doc.Inputs)
	case Solutions:
		data.ClassOptions = "addpoints,answers"
		data.Heading = "Questions and Solutions"
		data.Body = SolutionsBody(doc.Inputs)
	default:
		return nil, fmt.Errorf("unknown document variant %d", doc.Variant)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", doc.FileName, err)
	}
	return buf.Bytes(), nil
}

// WriteFile renders doc into dir/doc.FileName, creating dir as needed, and
// returns the written path.
func WriteFile(dir string, doc Document, meta Meta) (string, error) {
	src, err := Render(doc, meta)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	path := filepath.Join(dir, doc.FileName)
	if err := os.WriteFile(path, src, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
