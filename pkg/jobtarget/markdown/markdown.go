// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package markdown provides example proton target functions operating on
// markdown blobs: word counts and front-matter extraction, built on the
// same goldmark/goldmark-meta parser configuration as the teacher's
// pkg/markdown package.
package markdown

import (
	"fmt"

	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

var (
	extensions = []goldmark.Extender{
		extension.GFM,
		meta.Meta,
	}
	gmParser = goldmark.New(goldmark.WithExtensions(extensions...))
)

// parse returns the document AST node along with its front matter.
func parse(source []byte) (ast.Node, map[string]interface{}, error) {
	reader := text.NewReader(source)
	pctx := parser.NewContext()
	doc := gmParser.Parser().Parse(reader, parser.WithContext(pctx))
	fm, err := meta.TryGet(pctx)
	if err != nil {
		return nil, nil, err
	}
	if doc.Kind() == ast.KindDocument {
		doc.(*ast.Document).SetMeta(fm)
	}
	return doc, fm, nil
}

// WordCountResult is the answer produced by WordCount.
type WordCountResult struct {
	Path  string
	Words int
}

// WordCount is a proton.TargetFunc: Args must be (path string, source
// []byte). It walks the parsed AST counting the whitespace-separated words
// of every text segment.
func WordCount(args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
	path, source, err := blobArgs(args)
	if err != nil {
		return nil, err
	}

	doc, _, err := parse(source)
	if err != nil {
		return nil, fmt.Errorf("jobtarget/markdown: parsing %s: %w", path, err)
	}

	count := 0
	err = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || n.Kind() != ast.KindText {
			return ast.WalkContinue, nil
		}
		textNode := n.(*ast.Text)
		count += len(splitWords(textNode.Segment.Value(source)))
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, err
	}

	return WordCountResult{Path: path, Words: count}, nil
}

// FrontMatter is a proton.TargetFunc: Args must be (path string, source
// []byte). It returns the document's YAML front matter as a map, or an
// empty map if the document has none.
func FrontMatter(args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
	path, source, err := blobArgs(args)
	if err != nil {
		return nil, err
	}
	_, fm, err := parse(source)
	if err != nil {
		return nil, fmt.Errorf("jobtarget/markdown: parsing %s: %w", path, err)
	}
	if fm == nil {
		fm = map[string]interface{}{}
	}
	return fm, nil
}

func blobArgs(args []interface{}) (string, []byte, error) {
	if len(args) != 2 {
		return "", nil, fmt.Errorf("jobtarget/markdown: expected (path, source) args, got %d", len(args))
	}
	path, ok := args[0].(string)
	if !ok {
		return "", nil, fmt.Errorf("jobtarget/markdown: Args[0] must be a string path")
	}
	source, ok := args[1].([]byte)
	if !ok {
		return "", nil, fmt.Errorf("jobtarget/markdown: Args[1] must be []byte source")
	}
	return path, source, nil
}

func splitWords(b []byte) [][]byte {
	var words [][]byte
	start := -1
	for i, c := range b {
		isSpace := c == ' ' || c == '\t' || c == '\n' || c == '\r'
		if isSpace {
			if start >= 0 {
				words = append(words, b[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		words = append(words, b[start:])
	}
	return words
}
