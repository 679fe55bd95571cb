/*
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package cfc extracts the ordered list of top-level function names defined
// in a C source buffer. It is not a C parser: a brace/paren/bracket-balanced
// scanner detects definition sites at outer depth, and a macro table built
// from the same buffer lets it recognise macro-generated and macro-renamed
// definitions as well. It never fails on malformed input.
package cfc

import (
	"bytes"

	"github.com/cfuncs/cfc/internal/macro"
)

// Result carries the three ordered name streams produced by one scan.
// OrderedDefs holds every definition site in source order with duplicates
// preserved; TemplateDefs and RenamedDefs are the macro-derived subsets.
type Result struct {
	OrderedDefs  []string
	TemplateDefs []string
	RenamedDefs  []string
}

// Names composes the final per-file list. OrderedDefs already merges the
// plain, template and rename streams in source order with exact
// multiplicity, so composition is a copy.
func (r Result) Names() []string {
	return append([]string(nil), r.OrderedDefs...)
}

// Extract runs the full pipeline for one file's bytes: build the macro
// table, scan for definitions, compose the name list.
func Extract(src []byte) []string {
	return Scan(src, macro.ParseDefinitions(src)).Names()
}

// declKeywords invalidate the candidate state at outer depth: storage
// classes, qualifiers, primitive types, struct/union/enum and the common
// compiler extension keywords.
var declKeywords = map[string]bool{
	"typedef": true, "extern": true, "static": true, "auto": true,
	"register": true, "_Thread_local": true, "__thread": true,
	"void": true, "char": true, "short": true, "int": true, "long": true,
	"float": true, "double": true, "signed": true, "unsigned": true,
	"_Bool": true, "_Complex": true, "_Imaginary": true,
	"struct": true, "union": true, "enum": true,
	"const": true, "volatile": true, "restrict": true, "_Atomic": true,
	"inline": true, "_Noreturn": true, "_Alignas": true,
	"typeof": true, "__typeof__": true, "__const": true,
	"__volatile__": true, "__restrict": true, "__restrict__": true,
	"__inline": true, "__inline__": true, "__alignas": true,
	"__alignas__": true, "__attribute__": true, "__attribute": true,
	"__declspec": true, "__asm__": true, "__asm": true, "asm": true,
}

// controlKeywords clear the last identifier so that if (x) { } and friends
// cannot look like definitions.
var controlKeywords = map[string]bool{
	"if": true, "else": true, "for": true, "while": true, "do": true,
	"switch": true, "case": true, "default": true, "break": true,
	"continue": true, "return": true, "goto": true, "sizeof": true,
}

// scanState is the candidate tracking of the definition scanner. A name is
// committed only when an opening brace at outer depth confirms that the
// pending identifier headed a parameter list.
type scanState struct {
	braceDepth   int
	parenDepth   int
	bracketDepth int

	lastIdent      string
	lastIdentMacro string // rename macro that produced lastIdent, or ""

	parenCandidate      string
	parenCandidateMacro string

	pendingName      string
	pendingNameMacro string
}

func (s *scanState) atOuterDepth() bool {
	return s.braceDepth == 0 && s.parenDepth == 0 && s.bracketDepth == 0
}

func (s *scanState) clearLast() {
	s.lastIdent, s.lastIdentMacro = "", ""
}

func (s *scanState) clearCandidates() {
	s.clearLast()
	s.parenCandidate, s.parenCandidateMacro = "", ""
	s.pendingName, s.pendingNameMacro = "", ""
}

// Scan walks src once and collects every function definition it can
// attribute: plain definitions, definitions generated by name-template
// macro calls, and definitions whose name is a rename-macro expansion.
func Scan(src []byte, macros *macro.Table) Result {
	var res Result
	var st scanState
	atLineStart := true

	for i := 0; i < len(src); {
		c := src[i]

		if atLineStart {
			j := i
			for j < len(src) && (src[j] == ' ' || src[j] == '\t') {
				j++
			}
			if j < len(src) && src[j] == '#' {
				i = skipPreprocessorLine(src, j)
				continue
			}
		}

		if c == '\n' {
			atLineStart = true
			i++
			continue
		}
		atLineStart = false

		if c == '/' && i+1 < len(src) && src[i+1] == '/' {
			for i < len(src) && src[i] != '\n' {
				i++
			}
			continue
		}
		if c == '/' && i+1 < len(src) && src[i+1] == '*' {
			end := bytes.Index(src[i+2:], []byte("*/"))
			if end < 0 {
				break
			}
			i += 2 + end + 2
			continue
		}
		if c == '"' || c == '\'' {
			i = skipQuoted(src, i)
			continue
		}

		if isIdentStart(c) {
			start := i
			i++
			for i < len(src) && isIdentPart(src[i]) {
				i++
			}
			ident := string(src[start:i])

			if controlKeywords[ident] {
				st.clearLast()
				continue
			}
			if declKeywords[ident] {
				if st.atOuterDepth() {
					st.clearCandidates()
				}
				continue
			}

			if def := macros.Lookup(ident, true, false); def != nil && st.braceDepth == 0 {
				if j := skipSpace(src, i); j < len(src) && src[j] == '(' {
					if args, end, ok := macro.ParseArgs(src, j); ok {
						if name, ok := def.NameTemplate.Render(def.Params, args); ok {
							res.OrderedDefs = append(res.OrderedDefs, name)
							res.TemplateDefs = append(res.TemplateDefs, name)
						}
						i = end
						st.clearLast()
						continue
					}
				}
			}

			if def := macros.Lookup(ident, false, true); def != nil {
				if j := skipSpace(src, i); j < len(src) && src[j] == '(' {
					if args, end, ok := macro.ParseArgs(src, j); ok {
						if expanded, ok := def.RenameTemplate.Render(def.Params, args); ok {
							st.lastIdent = expanded
							st.lastIdentMacro = ident
						}
						i = end
						continue
					}
				}
			}

			st.lastIdent = ident
			st.lastIdentMacro = ""
			continue
		}

		switch c {
		case '(':
			if st.parenDepth == 0 && st.pendingName == "" {
				st.parenCandidate = st.lastIdent
				st.parenCandidateMacro = st.lastIdentMacro
			}
			st.parenDepth++
		case ')':
			if st.parenDepth > 0 {
				st.parenDepth--
				if st.parenDepth == 0 && st.pendingName == "" && st.parenCandidate != "" {
					st.pendingName = st.parenCandidate
					st.pendingNameMacro = st.parenCandidateMacro
					st.parenCandidate, st.parenCandidateMacro = "", ""
				}
			}
		case '[':
			st.bracketDepth++
		case ']':
			if st.bracketDepth > 0 {
				st.bracketDepth--
			}
		case '{':
			if st.atOuterDepth() && st.pendingName != "" {
				res.OrderedDefs = append(res.OrderedDefs, st.pendingName)
				if st.pendingNameMacro != "" {
					res.RenamedDefs = append(res.RenamedDefs, st.pendingName)
				}
				st.clearCandidates()
			}
			st.braceDepth++
		case '}':
			if st.braceDepth > 0 {
				st.braceDepth--
			}
		case ';', ',', '=':
			if st.atOuterDepth() {
				st.clearCandidates()
			}
		}
		i++
	}

	return res
}

// skipPreprocessorLine consumes a directive starting at the # and returns
// the index past its final newline. A backslash immediately before the
// newline continues the directive onto the next physical line.
func skipPreprocessorLine(src []byte, start int) int {
	for i := start; i < len(src); i++ {
		if src[i] == '\n' {
			if i > 0 && src[i-1] == '\\' {
				continue
			}
			return i + 1
		}
	}
	return len(src)
}

// skipQuoted consumes a string or char literal starting at the opening
// quote, honouring backslash escapes. Unterminated literals consume to EOF.
func skipQuoted(src []byte, start int) int {
	quote := src[start]
	i := start + 1
	for i < len(src) {
		if src[i] == '\\' {
			i += 2
			continue
		}
		if src[i] == quote {
			return i + 1
		}
		i++
	}
	return len(src)
}

func skipSpace(src []byte, i int) int {
	for i < len(src) && isSpace(src[i]) {
		i++
	}
	return i
}

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

func isIdentPart(b byte) bool {
	return isIdentStart(b) || (b >= '0' && b <= '9')
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\r', '\n', '\v', '\f':
		return true
	}
	return false
}
