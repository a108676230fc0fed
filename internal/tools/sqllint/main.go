// Command sqllint checks that every inline query constant starts with a
// unique `--sql <uuid>` marker. SQLRunner refuses unmarked statements at
// runtime; this catches them before that.
package main

import (
	"flag"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	sqlPattern        = regexp.MustCompile(`(?i)\b(select|insert|update|delete|with|create|alter|drop)\b`)
	uuidMarkerPattern = regexp.MustCompile(`^--sql [0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
)

const defaultTarget = "internal/sqlinline"

type violation struct {
	file    string
	name    string
	line    int
	message string
}

type linter struct {
	fset    *token.FileSet
	markers map[string]string // marker -> first constant using it
	found   []violation
}

func newLinter() *linter {
	return &linter{fset: token.NewFileSet(), markers: map[string]string{}}
}

func main() {
	flag.Parse()
	targets := flag.Args()
	if len(targets) == 0 {
		targets = []string{defaultTarget}
	}

	l := newLinter()
	for _, target := range targets {
		if err := l.lintPath(target); err != nil {
			fmt.Fprintf(os.Stderr, "sqllint: %v\n", err)
			os.Exit(1)
		}
	}
	if l.report(os.Stderr) {
		os.Exit(1)
	}
}

func (l *linter) lintPath(target string) error {
	info, err := os.Stat(target)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		if filepath.Ext(target) != ".go" {
			return nil
		}
		return l.lintFile(target, nil)
	}
	return filepath.WalkDir(target, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != target && (strings.HasPrefix(d.Name(), ".") || strings.HasPrefix(d.Name(), "_") || d.Name() == "vendor") {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		return l.lintFile(path, nil)
	})
}

// lintFile inspects string constants of one file. src may be nil to read the
// file from disk.
func (l *linter) lintFile(path string, src any) error {
	file, err := parser.ParseFile(l.fset, path, src, parser.SkipObjectResolution)
	if err != nil {
		return err
	}
	for _, decl := range file.Decls {
		gen, ok := decl.(*ast.GenDecl)
		if !ok || gen.Tok != token.CONST {
			continue
		}
		for _, spec := range gen.Specs {
			vs, ok := spec.(*ast.ValueSpec)
			if !ok {
				continue
			}
			for i, value := range vs.Values {
				bl, ok := value.(*ast.BasicLit)
				if !ok || bl.Kind != token.STRING || i >= len(vs.Names) {
					continue
				}
				raw, err := unquote(bl.Value)
				if err != nil || !sqlPattern.MatchString(raw) {
					continue
				}
				l.check(path, vs.Names[i].Name, l.fset.Position(bl.Pos()).Line, raw)
			}
		}
	}
	return nil
}

func (l *linter) check(path, name string, line int, query string) {
	marker := firstLine(query)
	if !uuidMarkerPattern.MatchString(marker) {
		l.found = append(l.found, violation{file: path, name: name, line: line, message: "missing or invalid --sql <uuid> marker"})
		return
	}
	if prior, dup := l.markers[marker]; dup {
		l.found = append(l.found, violation{file: path, name: name, line: line, message: "marker already used by " + prior})
		return
	}
	l.markers[marker] = name
}

// report prints violations and reports whether there were any.
func (l *linter) report(w io.Writer) bool {
	if len(l.found) == 0 {
		return false
	}
	sort.Slice(l.found, func(i, j int) bool {
		if l.found[i].file != l.found[j].file {
			return l.found[i].file < l.found[j].file
		}
		return l.found[i].line < l.found[j].line
	})
	fmt.Fprintln(w, "sqllint: invalid SQL audit markers")
	for _, v := range l.found {
		fmt.Fprintf(w, "  %s:%d %s (%s)\n", v.file, v.line, v.message, v.name)
	}
	return true
}

func firstLine(s string) string {
	s = strings.TrimLeft(s, "\n\r \t")
	if idx := strings.IndexAny(s, "\n\r"); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return strings.TrimSpace(s)
}

func unquote(v string) (string, error) {
	if len(v) == 0 {
		return v, nil
	}
	if v[0] == '`' {
		return v[1 : len(v)-1], nil
	}
	return strconv.Unquote(v)
}
