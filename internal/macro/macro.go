// Package macro models C preprocessor function-like macros whose bodies
// generate or rename function definitions. It provides the body tokenizer,
// the template extractors, the per-file definition table, the call-site
// argument parser and the template renderer.
package macro

import (
	"bytes"
	"strings"
)

// ---------------- Body tokenizer ----------------

type TokenKind int

const (
	Ident TokenKind = iota
	Paste
	Symbol
)

type Token struct {
	Kind TokenKind
	Text string // Ident only
	Sym  byte   // Symbol only, one of (){}[];,=
}

// Tokenize reduces a macro body (physical lines already folded) to the
// tokens the template extractors care about: identifiers (numeric runs
// included; they fail identifier validation later if they lead a name),
// the ## paste operator and the structural single-char symbols. Strings,
// char literals and comments are skipped, everything else is dropped.
func Tokenize(body string) []Token {
	var toks []Token
	for i := 0; i < len(body); {
		c := body[i]
		if c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\v' || c == '\f' {
			i++
			continue
		}
		if c == '/' && i+1 < len(body) && body[i+1] == '/' {
			nl := strings.IndexByte(body[i:], '\n')
			if nl < 0 {
				break
			}
			i += nl + 1
			continue
		}
		if c == '/' && i+1 < len(body) && body[i+1] == '*' {
			end := strings.Index(body[i+2:], "*/")
			if end < 0 {
				break
			}
			i += 2 + end + 2
			continue
		}
		if c == '"' || c == '\'' {
			quote := c
			i++
			for i < len(body) {
				if body[i] == '\\' {
					i += 2
					continue
				}
				if body[i] == quote {
					i++
					break
				}
				i++
			}
			continue
		}
		if c == '#' && i+1 < len(body) && body[i+1] == '#' {
			toks = append(toks, Token{Kind: Paste})
			i += 2
			continue
		}
		if isIdentStart(c) || isDigit(c) {
			start := i
			i++
			for i < len(body) && isIdentPart(body[i]) {
				i++
			}
			toks = append(toks, Token{Kind: Ident, Text: body[start:i]})
			continue
		}
		if strings.IndexByte("(){}[];,=", c) >= 0 {
			toks = append(toks, Token{Kind: Symbol, Sym: c})
			i++
			continue
		}
		i++
	}
	return toks
}

// ---------------- Templates ----------------

type PartKind int

const (
	Literal PartKind = iota
	Param
)

type Part struct {
	Kind  PartKind
	Value string
}

// Template is an ordered sequence of literal and parameter parts; rendered
// against call arguments it yields a candidate function name.
type Template []Part

func makePart(text string, params []string) Part {
	if containsString(params, text) {
		return Part{Kind: Param, Value: text}
	}
	return Part{Kind: Literal, Value: text}
}

// ExtractNameTemplate recognises function-generator macro bodies: a brace-
// opened block at outer depth whose preceding paren group is preceded by a
// non-empty ident/paste chain. It runs a miniature definition scanner over
// the body tokens.
func ExtractNameTemplate(body string, params []string) (Template, bool) {
	var lastParts, parenCandidate, pendingParts Template
	parenDepth, bracketDepth := 0, 0
	pendingPaste := false

	for _, tok := range Tokenize(body) {
		if tok.Kind == Paste {
			pendingPaste = lastParts != nil
			continue
		}
		if tok.Kind == Ident {
			part := makePart(tok.Text, params)
			if pendingPaste && lastParts != nil {
				lastParts = append(lastParts[:len(lastParts):len(lastParts)], part)
			} else {
				lastParts = Template{part}
			}
			pendingPaste = false
			continue
		}

		pendingPaste = false
		switch tok.Sym {
		case '(':
			if parenDepth == 0 && pendingParts == nil {
				parenCandidate = lastParts
			}
			parenDepth++
		case ')':
			if parenDepth > 0 {
				parenDepth--
				if parenDepth == 0 && pendingParts == nil && parenCandidate != nil {
					pendingParts = parenCandidate
					parenCandidate = nil
				}
			}
		case '[':
			bracketDepth++
		case ']':
			if bracketDepth > 0 {
				bracketDepth--
			}
		case '{':
			if parenDepth == 0 && bracketDepth == 0 && pendingParts != nil {
				return pendingParts, true
			}
		case ',', ';', '=':
			if parenDepth == 0 && bracketDepth == 0 {
				lastParts, parenCandidate, pendingParts = nil, nil, nil
			}
		}
	}
	return nil, false
}

// ExtractRenameTemplate recognises pure paste-chain bodies: a single
// identifier, or identifiers joined by ##, and nothing else.
func ExtractRenameTemplate(body string, params []string) (Template, bool) {
	var out Template
	pendingPaste := false

	for _, tok := range Tokenize(body) {
		if tok.Kind == Paste {
			pendingPaste = true
			continue
		}
		if tok.Kind == Ident {
			if len(out) > 0 && !pendingPaste {
				return nil, false
			}
			out = append(out, makePart(tok.Text, params))
			pendingPaste = false
			continue
		}
		return nil, false
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

// ---------------- Definition table ----------------

type Def struct {
	Name           string
	Params         []string
	NameTemplate   Template // nil when the body is not a function generator
	RenameTemplate Template // nil when the body is not a pure paste chain
}

// Table is the ordered per-file macro registry. Later definitions of the
// same name shadow earlier ones on lookup.
type Table struct {
	defs []Def
}

func (t *Table) add(def Def) {
	t.defs = append(t.defs, def)
}

func (t *Table) Len() int {
	return len(t.defs)
}

// Lookup returns the latest definition of name that carries the requested
// templates, or nil.
func (t *Table) Lookup(name string, needName, needRename bool) *Def {
	for i := len(t.defs) - 1; i >= 0; i-- {
		def := &t.defs[i]
		if def.Name != name {
			continue
		}
		if needName && def.NameTemplate == nil {
			continue
		}
		if needRename && def.RenameTemplate == nil {
			continue
		}
		return def
	}
	return nil
}

// ParseDefinitions scans src line by line for function-like #define
// directives, folds trailing-backslash continuations into the body, and
// registers every macro whose body yields a name or rename template.
// Object-like macros never make it into the table.
func ParseDefinitions(src []byte) *Table {
	table := &Table{}
	for lineStart := 0; lineStart < len(src); {
		lineEnd := lineStart
		for lineEnd < len(src) && src[lineEnd] != '\n' {
			lineEnd++
		}
		next := lineEnd
		if next < len(src) {
			next++
		}

		p := lineStart
		p = skipBlanks(src, p, lineEnd)
		if p >= lineEnd || src[p] != '#' {
			lineStart = next
			continue
		}
		p = skipBlanks(src, p+1, lineEnd)
		if p+6 > lineEnd || string(src[p:p+6]) != "define" {
			lineStart = next
			continue
		}
		p += 6
		if p < lineEnd && !isSpace(src[p]) {
			lineStart = next
			continue
		}
		p = skipBlanks(src, p, lineEnd)
		if p >= lineEnd || !isIdentStart(src[p]) {
			lineStart = next
			continue
		}
		nameStart := p
		for p < lineEnd && isIdentPart(src[p]) {
			p++
		}
		name := string(src[nameStart:p])
		p = skipBlanks(src, p, lineEnd)
		if p >= lineEnd || src[p] != '(' {
			lineStart = next
			continue
		}
		p++

		var params []string
		paramStart := p
		for p < lineEnd {
			if src[p] == ')' || src[p] == ',' {
				if trimmed := strings.TrimSpace(string(src[paramStart:p])); trimmed != "" {
					params = append(params, trimmed)
				}
				if src[p] == ')' {
					p++
					break
				}
				paramStart = p + 1
			}
			p++
		}

		var body strings.Builder
		continues := lineEndsWithBackslash(src[lineStart:lineEnd])
		if p < lineEnd {
			appendBodyLine(&body, src[p:lineEnd], continues)
		}
		for continues {
			lineStart = next
			if lineStart >= len(src) {
				break
			}
			lineEnd = lineStart
			for lineEnd < len(src) && src[lineEnd] != '\n' {
				lineEnd++
			}
			next = lineEnd
			if next < len(src) {
				next++
			}
			continues = lineEndsWithBackslash(src[lineStart:lineEnd])
			body.WriteByte('\n')
			appendBodyLine(&body, src[lineStart:lineEnd], continues)
		}

		def := Def{Name: name, Params: params}
		if tpl, ok := ExtractNameTemplate(body.String(), params); ok {
			def.NameTemplate = tpl
		}
		if tpl, ok := ExtractRenameTemplate(body.String(), params); ok {
			def.RenameTemplate = tpl
		}
		if def.NameTemplate != nil || def.RenameTemplate != nil {
			table.add(def)
		}

		lineStart = next
	}
	return table
}

func lineEndsWithBackslash(line []byte) bool {
	i := len(line)
	for i > 0 && isSpace(line[i-1]) {
		i--
	}
	return i > 0 && line[i-1] == '\\'
}

func appendBodyLine(body *strings.Builder, line []byte, stripContinuation bool) {
	n := len(line)
	if stripContinuation {
		for n > 0 && isSpace(line[n-1]) {
			n--
		}
		if n > 0 && line[n-1] == '\\' {
			n--
		}
	}
	body.Write(line[:n])
}

// ---------------- Call-argument parser ----------------

// ParseArgs consumes the argument list of a macro invocation. start must
// point at the opening paren in src. It returns the whitespace-trimmed
// top-level arguments and the index just past the closing paren. An
// unterminated list abandons the call: ok is false and the cursor must not
// be advanced. F() yields zero arguments, F(a,) yields ["a", ""].
func ParseArgs(src []byte, start int) (args []string, end int, ok bool) {
	if start >= len(src) || src[start] != '(' {
		return nil, 0, false
	}
	depth := 1
	var current strings.Builder
	for i := start + 1; i < len(src); {
		c := src[i]
		switch {
		case c == '(':
			depth++
			current.WriteByte(c)
			i++
		case c == ')':
			depth--
			if depth == 0 {
				if current.Len() > 0 || len(args) > 0 {
					args = append(args, strings.TrimSpace(current.String()))
				}
				return args, i + 1, true
			}
			current.WriteByte(c)
			i++
		case c == ',' && depth == 1:
			args = append(args, strings.TrimSpace(current.String()))
			current.Reset()
			i++
		case c == '/' && i+1 < len(src) && src[i+1] == '/':
			nl := bytes.IndexByte(src[i:], '\n')
			if nl < 0 {
				return nil, 0, false
			}
			i += nl
		case c == '/' && i+1 < len(src) && src[i+1] == '*':
			end := bytes.Index(src[i+2:], []byte("*/"))
			if end < 0 {
				return nil, 0, false
			}
			i += 2 + end + 2
		case c == '"' || c == '\'':
			quote := c
			current.WriteByte(c)
			i++
			for i < len(src) {
				current.WriteByte(src[i])
				if src[i] == '\\' {
					if i+1 < len(src) {
						i++
						current.WriteByte(src[i])
					}
					i++
					continue
				}
				if src[i] == quote {
					i++
					break
				}
				i++
			}
		default:
			current.WriteByte(c)
			i++
		}
	}
	return nil, 0, false
}

// ---------------- Renderer ----------------

// Render substitutes the call arguments into the template and validates
// the result as a legal, non-reserved C identifier. Arguments are
// whitespace-stripped first, matching what ## pasting produces after
// expansion. Missing arguments render as empty.
func (tpl Template) Render(params, args []string) (string, bool) {
	if len(tpl) == 0 {
		return "", false
	}
	var out strings.Builder
	for _, part := range tpl {
		if part.Kind == Literal {
			out.WriteString(part.Value)
			continue
		}
		for j, p := range params {
			if p == part.Value {
				if j < len(args) {
					out.WriteString(stripSpace(args[j]))
				}
				break
			}
		}
	}
	name := out.String()
	if !isIdentifier(name) {
		return "", false
	}
	if reservedKeywords[name] {
		return "", false
	}
	return name, true
}

func stripSpace(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if !isSpace(s[i]) {
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func isIdentifier(s string) bool {
	if s == "" || !isIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isIdentPart(s[i]) {
			return false
		}
	}
	return true
}

// reservedKeywords is the full C11 keyword set; a rendered name matching
// one of these cannot be a function identifier.
var reservedKeywords = map[string]bool{
	"auto": true, "break": true, "case": true, "char": true,
	"const": true, "continue": true, "default": true, "do": true,
	"double": true, "else": true, "enum": true, "extern": true,
	"float": true, "for": true, "goto": true, "if": true,
	"inline": true, "int": true, "long": true, "register": true,
	"restrict": true, "return": true, "short": true, "signed": true,
	"sizeof": true, "static": true, "struct": true, "switch": true,
	"typedef": true, "union": true, "unsigned": true, "void": true,
	"volatile": true, "while": true,
	"_Alignas": true, "_Alignof": true, "_Atomic": true, "_Bool": true,
	"_Complex": true, "_Generic": true, "_Imaginary": true,
	"_Noreturn": true, "_Static_assert": true, "_Thread_local": true,
}

// ---------------- Byte helpers ----------------

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

func isIdentPart(b byte) bool {
	return isIdentStart(b) || isDigit(b)
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\r', '\n', '\v', '\f':
		return true
	}
	return false
}

func skipBlanks(src []byte, i, end int) int {
	for i < end && (src[i] == ' ' || src[i] == '\t') {
		i++
	}
	return i
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
