/*
Copyright © 2026 Tekian

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package rustsrc extracts file dependency facts from Rust source files
// using tree-sitter.
//
// The extraction is purely syntactic: module declarations, #[path]
// overrides, literal-inclusion macros, and heuristic file-reference calls
// are collected without any name resolution or type information. Callers
// decide which of the collected facts correspond to real files.
package rustsrc

import (
	"fmt"
	"sync"

	ts "github.com/tree-sitter/go-tree-sitter"
	tsRust "github.com/tree-sitter/tree-sitter-rust/bindings/go"

	"github.com/tekian/cargo-deltabuild/config"
)

// NestedMod is a module declared inside one or more inline module bodies.
// Path lists the enclosing module names, outermost first.
type NestedMod struct {
	Path []string
	Name string
}

// PathOverride records a `#[path = "..."]` attribute on a module
// declaration. The target is relative to the declaring file's directory.
type PathOverride struct {
	Mod  string
	Path string
}

// Facts are the raw dependency facts found in one source file.
type Facts struct {
	// Mods are file-scope `mod name;` declarations without inline bodies.
	Mods []string
	// NestedMods are bodyless declarations inside inline module bodies.
	NestedMods []NestedMod
	// PathOverrides are modules whose file location is set explicitly.
	PathOverrides []PathOverride
	// Includes are arguments of literal-inclusion macro invocations.
	Includes []string
	// FileRefs are resolved first arguments of file-reference calls.
	FileRefs []string
	// Constants maps const/static identifiers to their string values, in
	// declaration order, used to resolve file-reference arguments.
	Constants map[string]string
}

var language = ts.NewLanguage(tsRust.Language())

// Parser pool for reuse.
var parserPool = sync.Pool{
	New: func() any {
		parser := ts.NewParser()
		if err := parser.SetLanguage(language); err != nil {
			panic("failed to set Rust language: " + err.Error())
		}
		return parser
	},
}

// getParser retrieves a Rust parser from the pool.
func getParser() *ts.Parser {
	return parserPool.Get().(*ts.Parser)
}

// putParser returns a Rust parser to the pool.
func putParser(p *ts.Parser) {
	p.Reset()
	parserPool.Put(p)
}

// Parse extracts dependency facts from one Rust source file. The parser
// is error-tolerant: malformed regions simply contribute no facts.
func Parse(content []byte, cfg *config.Parser) (*Facts, error) {
	parser := getParser()
	defer putParser(parser)

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, fmt.Errorf("parsing rust source")
	}
	defer tree.Close()

	w := &walker{
		cfg: cfg,
		src: content,
		facts: &Facts{
			Constants: make(map[string]string),
		},
	}
	w.walkChildren(tree.RootNode())
	return w.facts, nil
}
