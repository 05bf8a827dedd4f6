package bank

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgallion1/studykit/internal/latex"
)

// Output file names and titles.
const (
	CombinedFile     = "all_problems.tex"
	CombinedSolFile  = "all_problems_sol.tex"
	CombinedTitle    = "All Problems"
	CombinedSolTitle = "All Problems with Solutions"

	QuizFile    = "random_quiz.tex"
	QuizSolFile = "random_quiz_sol.tex"

	ExamFile     = "main.tex"
	ExamSolFile  = "main_solutions.tex"
	ExamTitle    = "Sample Exam"
	ExamSolTitle = "Sample Exam Solutions"
)

// Layout places banks under SrcRoot and mirrors them under BuildRoot. When
// BuildRoot equals SrcRoot, per-bank documents are written into the bank
// directory and reference problems by bare file name, while the combined
// documents at the root use banks/<bank>/<file>.
type Layout struct {
	SrcRoot   string
	BuildRoot string
	Banks     []string // bank directories, usually under SrcRoot/banks
}

// DefaultLayout is src/banks/{Bank1,Bank2} built in place.
func DefaultLayout() Layout {
	return Layout{
		SrcRoot:   "src",
		BuildRoot: "src",
		Banks: []string{
			filepath.Join("src", "banks", "Bank1"),
			filepath.Join("src", "banks", "Bank2"),
		},
	}
}

// BankDir returns the directory of the bank called name.
func (l Layout) BankDir(name string) (string, bool) {
	for _, dir := range l.Banks {
		if filepath.Base(dir) == name {
			return dir, true
		}
	}
	return "", false
}

// BankNames lists the configured bank names in order.
func (l Layout) BankNames() []string {
	names := make([]string, len(l.Banks))
	for i, dir := range l.Banks {
		names[i] = filepath.Base(dir)
	}
	return names
}

// BuildDir is where documents for bankDir are written: its path relative to
// SrcRoot, re-rooted at BuildRoot.
func (l Layout) BuildDir(bankDir string) string {
	rel, err := filepath.Rel(l.SrcRoot, bankDir)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		rel = filepath.Base(bankDir)
	}
	return filepath.Join(l.BuildRoot, rel)
}

// ExpectedFiles lists what a full build must produce.
func (l Layout) ExpectedFiles() []string {
	var files []string
	for _, dir := range l.Banks {
		name := filepath.Base(dir)
		files = append(files,
			filepath.Join(l.BuildDir(dir), name+"_all.tex"),
			filepath.Join(l.BuildDir(dir), name+"_all_solutions.tex"),
		)
	}
	return append(files,
		filepath.Join(l.BuildRoot, CombinedFile),
		filepath.Join(l.BuildRoot, CombinedSolFile),
	)
}

// Verify returns the paths that do not exist and those that are empty.
func Verify(paths []string) (missing, empty []string) {
	for _, p := range paths {
		info, err := os.Stat(p)
		switch {
		case err != nil:
			missing = append(missing, p)
		case info.Size() == 0:
			empty = append(empty, p)
		}
	}
	return missing, empty
}

// Builder renders bank documents.
type Builder struct {
	layout  Layout
	pattern Pattern
	meta    latex.Meta
	log     *slog.Logger
}

func NewBuilder(layout Layout, pattern Pattern, meta latex.Meta, log *slog.Logger) *Builder {
	return &Builder{layout: layout, pattern: pattern, meta: meta, log: log}
}

func (b *Builder) Layout() Layout { return b.layout }

func (b *Builder) Pattern() Pattern { return b.pattern }

// Problems discovers the problems of bankDir.
func (b *Builder) Problems(bankDir string) ([]Problem, error) {
	return Discover(bankDir, b.pattern)
}

// PerBank writes <bank>_all.tex and <bank>_all_solutions.tex. A bank
// without problems writes nothing.
func (b *Builder) PerBank(bankDir string) ([]string, error) {
	problems, err := b.Problems(bankDir)
	if err != nil {
		return nil, err
	}
	name := filepath.Base(bankDir)
	if len(problems) == 0 {
		b.log.Warn("bank has no problems, skipping", "bank", name)
		return nil, nil
	}
	return b.writePair(b.layout.BuildDir(bankDir), problems,
		pairSpec{name + "_all.tex", name + " Problems", name + "_all_solutions.tex", name + " Problems with Solutions"})
}

// Combined writes every bank's problems, bank by bank, into the build root.
func (b *Builder) Combined() ([]string, error) {
	var all []Problem
	for _, dir := range b.layout.Banks {
		problems, err := b.Problems(dir)
		if err != nil {
			return nil, err
		}
		all = append(all, problems...)
	}
	return b.writePair(b.layout.BuildRoot, all,
		pairSpec{CombinedFile, CombinedTitle, CombinedSolFile, CombinedSolTitle})
}

// All runs PerBank for every bank, then Combined.
func (b *Builder) All() ([]string, error) {
	var written []string
	for _, dir := range b.layout.Banks {
		paths, err := b.PerBank(dir)
		if err != nil {
			return written, err
		}
		written = append(written, paths...)
	}
	paths, err := b.Combined()
	return append(written, paths...), err
}

// QuizDocuments samples n problems of bankDir and returns the quiz pair with
// inputs relative to docDir. Nothing is written.
func (b *Builder) QuizDocuments(bankDir string, n int, rng *rand.Rand, docDir string) ([]latex.Document, error) {
	problems, err := b.Problems(bankDir)
	if err != nil {
		return nil, err
	}
	if len(problems) == 0 {
		return nil, fmt.Errorf("no problems found in %s", bankDir)
	}
	selected, err := Sample(problems, n, rng)
	if err != nil {
		return nil, err
	}
	name := filepath.Base(bankDir)
	return b.documents(docDir, selected,
		pairSpec{QuizFile, "Random Quiz from " + name, QuizSolFile, "Random Quiz with Solutions from " + name})
}

// Quiz writes random_quiz.tex and random_quiz_sol.tex for n sampled problems
// into the bank's build directory. An invalid n writes nothing.
func (b *Builder) Quiz(bankDir string, n int, rng *rand.Rand) ([]string, error) {
	dir := b.layout.BuildDir(bankDir)
	docs, err := b.QuizDocuments(bankDir, n, rng, dir)
	if err != nil {
		return nil, err
	}
	return b.writeDocs(dir, docs)
}

// Exam writes main.tex and main_solutions.tex for n sampled problems of
// bankDir into the build root.
func (b *Builder) Exam(bankDir string, n int, rng *rand.Rand) ([]string, error) {
	problems, err := b.Problems(bankDir)
	if err != nil {
		return nil, err
	}
	selected, err := Sample(problems, n, rng)
	if err != nil {
		return nil, err
	}
	return b.writePair(b.layout.BuildRoot, selected, pairSpec{ExamFile, ExamTitle, ExamSolFile, ExamSolTitle})
}

type pairSpec struct {
	file, title, solFile, solTitle string
}

func (b *Builder) documents(docDir string, problems []Problem, plan pairSpec) ([]latex.Document, error) {
	inputs, err := relativeInputs(problems, docDir)
	if err != nil {
		return nil, err
	}
	return []latex.Document{
		{FileName: plan.file, Title: plan.title, Variant: latex.Questions, Inputs: inputs},
		{FileName: plan.solFile, Title: plan.solTitle, Variant: latex.Solutions, Inputs: inputs},
	}, nil
}

func (b *Builder) writePair(dir string, problems []Problem, plan pairSpec) ([]string, error) {
	docs, err := b.documents(dir, problems, plan)
	if err != nil {
		return nil, err
	}
	return b.writeDocs(dir, docs)
}

func (b *Builder) writeDocs(dir string, docs []latex.Document) ([]string, error) {
	paths := make([]string, 0, len(docs))
	for _, d := range docs {
		p, err := latex.WriteFile(dir, d, b.meta)
		if err != nil {
			return paths, err
		}
		b.log.Info("wrote document", "path", p, "problems", len(d.Inputs))
		paths = append(paths, p)
	}
	return paths, nil
}

// relativeInputs expresses each problem path relative to docDir, the
// directory LaTeX resolves \input against.
func relativeInputs(problems []Problem, docDir string) ([]string, error) {
	base, err := filepath.Abs(docDir)
	if err != nil {
		return nil, err
	}
	inputs := make([]string, len(problems))
	for i, p := range problems {
		abs, err := filepath.Abs(p.Path)
		if err != nil {
			return nil, err
		}
		rel, err := filepath.Rel(base, abs)
		if err != nil {
			return nil, fmt.Errorf("relative path for %s: %w", p.Path, err)
		}
		inputs[i] = filepath.ToSlash(rel)
	}
	return inputs, nil
}

// Render renders docs in memory, keyed by file name.
func (b *Builder) Render(docs []latex.Document) (map[string]string, error) {
	out := make(map[string]string, len(docs))
	for _, d := range docs {
		src, err := latex.Render(d, b.meta)
		if err != nil {
			return nil, err
		}
		out[d.FileName] = string(src)
	}
	return out, nil
}
