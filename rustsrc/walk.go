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

package rustsrc

import (
	"slices"
	"strconv"
	"strings"

	ts "github.com/tree-sitter/go-tree-sitter"

	"github.com/tekian/cargo-deltabuild/config"
)

// walker performs a single explicit traversal of the syntax tree,
// accumulating facts. scope tracks the enclosing inline module bodies.
type walker struct {
	cfg   *config.Parser
	src   []byte
	facts *Facts
	scope []string
}

// walkChildren visits the named children of node in source order. A
// `#[path = "..."]` attribute applies to the next non-comment sibling,
// so the pending override is carried across comments and cleared by
// whatever item follows.
func (w *walker) walkChildren(node *ts.Node) {
	var pendingPath string
	var hasPendingPath bool

	count := node.NamedChildCount()
	for i := uint(0); i < count; i++ {
		child := node.NamedChild(i)
		switch child.Kind() {
		case "attribute_item":
			if target, ok := w.pathAttribute(child); ok {
				pendingPath, hasPendingPath = target, true
			} else {
				// Attribute values are expressions and may carry
				// inclusion macros, as in #[doc = include_str!(..)].
				w.walkChildren(child)
			}
			continue
		case "line_comment", "block_comment":
			continue
		}
		w.walk(child, pendingPath, hasPendingPath)
		pendingPath, hasPendingPath = "", false
	}
}

func (w *walker) walk(node *ts.Node, pathOverride string, hasPathOverride bool) {
	switch node.Kind() {
	case "mod_item":
		w.modItem(node, pathOverride, hasPathOverride)
	case "macro_invocation":
		w.macroInvocation(node)
	case "call_expression":
		w.callExpression(node)
		w.walkChildren(node)
	case "const_item", "static_item":
		w.constantItem(node)
		w.walkChildren(node)
	default:
		w.walkChildren(node)
	}
}

// modItem handles `mod name;` and `mod name { ... }`. Inline bodies are
// traversed with the module name pushed onto the scope; bodyless
// declarations are recorded as flat, nested, or overridden modules.
func (w *walker) modItem(node *ts.Node, pathOverride string, hasPathOverride bool) {
	if !w.cfg.Mods {
		return
	}
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	name := nameNode.Utf8Text(w.src)

	if body := node.ChildByFieldName("body"); body != nil {
		w.scope = append(w.scope, name)
		w.walkChildren(body)
		w.scope = w.scope[:len(w.scope)-1]
		return
	}

	switch {
	case hasPathOverride:
		w.facts.PathOverrides = append(w.facts.PathOverrides, PathOverride{Mod: name, Path: pathOverride})
	case len(w.scope) == 0:
		w.facts.Mods = append(w.facts.Mods, name)
	default:
		w.facts.NestedMods = append(w.facts.NestedMods, NestedMod{Path: slices.Clone(w.scope), Name: name})
	}
}

// macroInvocation handles literal-inclusion macros and module-declaring
// macros. Only bare-identifier macro names qualify; the token tree of a
// macro is opaque tokens, so nothing inside it is traversed further.
func (w *walker) macroInvocation(node *ts.Node) {
	macroNode := node.ChildByFieldName("macro")
	if macroNode == nil || macroNode.Kind() != "identifier" {
		return
	}
	name := macroNode.Utf8Text(w.src)

	switch {
	case w.cfg.Includes && w.cfg.IsIncludeMacro(name):
		if target, ok := w.includeArgument(node); ok {
			w.facts.Includes = append(w.facts.Includes, target)
		}
	case w.cfg.Mods && w.cfg.IsModMacro(name):
		if mod, ok := w.modArgument(node); ok {
			if len(w.scope) == 0 {
				w.facts.Mods = append(w.facts.Mods, mod)
			} else {
				w.facts.NestedMods = append(w.facts.NestedMods, NestedMod{Path: slices.Clone(w.scope), Name: mod})
			}
		}
	}
}

// callExpression records the first argument of calls whose callee's
// final path segment is a configured file method. Method calls through a
// receiver never qualify.
func (w *walker) callExpression(node *ts.Node) {
	if !w.cfg.FileRefs {
		return
	}
	callee, ok := w.calleeName(node.ChildByFieldName("function"))
	if !ok || !w.cfg.IsFileMethod(callee) {
		return
	}
	args := node.ChildByFieldName("arguments")
	if args == nil {
		return
	}

	count := args.NamedChildCount()
	for i := uint(0); i < count; i++ {
		arg := args.NamedChild(i)
		switch arg.Kind() {
		case "line_comment", "block_comment", "attribute_item":
			continue
		}
		if value, ok := w.resolveString(arg); ok {
			w.facts.FileRefs = append(w.facts.FileRefs, value)
		}
		return
	}
}

// constantItem records `const NAME: ... = "literal"` and the static
// equivalent, making the value available to later file-reference calls.
func (w *walker) constantItem(node *ts.Node) {
	nameNode := node.ChildByFieldName("name")
	value := node.ChildByFieldName("value")
	if nameNode == nil || value == nil {
		return
	}
	if text, ok := w.stringValue(value); ok {
		w.facts.Constants[nameNode.Utf8Text(w.src)] = text
	}
}

// calleeName returns the final path segment of a call target, unwrapping
// turbofish type arguments.
func (w *walker) calleeName(fn *ts.Node) (string, bool) {
	for fn != nil {
		switch fn.Kind() {
		case "identifier":
			return fn.Utf8Text(w.src), true
		case "scoped_identifier":
			name := fn.ChildByFieldName("name")
			if name == nil {
				return "", false
			}
			return name.Utf8Text(w.src), true
		case "generic_function":
			fn = fn.ChildByFieldName("function")
		default:
			return "", false
		}
	}
	return "", false
}

// resolveString resolves an expression to a string: either a direct
// literal, or a bare identifier naming an already-recorded constant.
func (w *walker) resolveString(node *ts.Node) (string, bool) {
	switch node.Kind() {
	case "string_literal", "raw_string_literal":
		return w.stringValue(node)
	case "identifier":
		value, ok := w.facts.Constants[node.Utf8Text(w.src)]
		return value, ok
	}
	return "", false
}

// pathAttribute extracts the target of a `#[path = "..."]` attribute.
func (w *walker) pathAttribute(node *ts.Node) (string, bool) {
	attr := node.NamedChild(0)
	if attr == nil || attr.Kind() != "attribute" {
		return "", false
	}
	ident := attr.NamedChild(0)
	if ident == nil || ident.Kind() != "identifier" || ident.Utf8Text(w.src) != "path" {
		return "", false
	}
	value := attr.ChildByFieldName("value")
	if value == nil {
		return "", false
	}
	return w.stringValue(value)
}

// includeArgument accepts a macro body consisting of exactly one string
// literal, mirroring how inclusion macros are expanded.
func (w *walker) includeArgument(node *ts.Node) (string, bool) {
	tokens := tokenTree(node)
	if tokens == nil || tokens.NamedChildCount() != 1 {
		return "", false
	}
	return w.stringValue(tokens.NamedChild(0))
}

// modArgument concatenates the macro body tokens before the first
// top-level comma, which is how module-declaring macros name the module.
func (w *walker) modArgument(node *ts.Node) (string, bool) {
	tokens := tokenTree(node)
	if tokens == nil {
		return "", false
	}

	var b strings.Builder
	count := tokens.ChildCount()
loop:
	for i := uint(0); i < count; i++ {
		child := tokens.Child(i)
		switch child.Kind() {
		case "(", ")", "[", "]", "{", "}":
		case ",":
			break loop
		default:
			b.WriteString(child.Utf8Text(w.src))
		}
	}
	name := strings.TrimSpace(b.String())
	return name, name != ""
}

func tokenTree(node *ts.Node) *ts.Node {
	for i := node.NamedChildCount(); i > 0; i-- {
		child := node.NamedChild(i - 1)
		if child.Kind() == "token_tree" {
			return child
		}
	}
	return nil
}

// stringValue returns the unescaped contents of a string literal node.
func (w *walker) stringValue(node *ts.Node) (string, bool) {
	switch node.Kind() {
	case "string_literal":
		var b strings.Builder
		count := node.NamedChildCount()
		for i := uint(0); i < count; i++ {
			child := node.NamedChild(i)
			switch child.Kind() {
			case "string_content":
				b.WriteString(child.Utf8Text(w.src))
			case "escape_sequence":
				b.WriteString(unescape(child.Utf8Text(w.src)))
			}
		}
		return b.String(), true
	case "raw_string_literal":
		count := node.NamedChildCount()
		for i := uint(0); i < count; i++ {
			child := node.NamedChild(i)
			if child.Kind() == "string_content" {
				return child.Utf8Text(w.src), true
			}
		}
		return "", true
	}
	return "", false
}

// unescape decodes one Rust escape sequence. Unknown sequences are kept
// verbatim rather than dropped.
func unescape(seq string) string {
	if len(seq) < 2 || seq[0] != '\\' {
		return seq
	}
	switch seq[1] {
	case 'n':
		return "\n"
	case 'r':
		return "\r"
	case 't':
		return "\t"
	case '0':
		return "\x00"
	case '\\':
		return "\\"
	case '"':
		return "\""
	case '\'':
		return "'"
	case 'x':
		if v, err := strconv.ParseUint(seq[2:], 16, 8); err == nil {
			return string(rune(v))
		}
	case 'u':
		if v, err := strconv.ParseUint(strings.Trim(seq[2:], "{}"), 16, 32); err == nil {
			return string(rune(v))
		}
	}
	return seq
}
