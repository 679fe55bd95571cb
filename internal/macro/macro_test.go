package macro

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []Token
	}{
		{
			"paste chain",
			"pfx_##x",
			[]Token{{Kind: Ident, Text: "pfx_"}, {Kind: Paste}, {Kind: Ident, Text: "x"}},
		},
		{
			"generator body",
			"void pfx_##x(void) { x; }",
			[]Token{
				{Kind: Ident, Text: "void"},
				{Kind: Ident, Text: "pfx_"},
				{Kind: Paste},
				{Kind: Ident, Text: "x"},
				{Kind: Symbol, Sym: '('},
				{Kind: Ident, Text: "void"},
				{Kind: Symbol, Sym: ')'},
				{Kind: Symbol, Sym: '{'},
				{Kind: Ident, Text: "x"},
				{Kind: Symbol, Sym: ';'},
				{Kind: Symbol, Sym: '}'},
			},
		},
		{
			"strings and comments skipped",
			`a "b(c" /* { */ d // e`,
			[]Token{{Kind: Ident, Text: "a"}, {Kind: Ident, Text: "d"}},
		},
		{
			"char literal skipped",
			`a '{' b`,
			[]Token{{Kind: Ident, Text: "a"}, {Kind: Ident, Text: "b"}},
		},
		{
			"numeric run is an ident",
			"123 x",
			[]Token{{Kind: Ident, Text: "123"}, {Kind: Ident, Text: "x"}},
		},
		{
			"operators outside the symbol set are dropped",
			"a + b -> c",
			[]Token{{Kind: Ident, Text: "a"}, {Kind: Ident, Text: "b"}, {Kind: Ident, Text: "c"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.body)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtractNameTemplate(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		params []string
		want   Template
		ok     bool
	}{
		{
			"pasted prefix",
			"void pfx_##x(int a){a++;}",
			[]string{"x"},
			Template{{Kind: Literal, Value: "pfx_"}, {Kind: Param, Value: "x"}},
			true,
		},
		{
			"bare parameter name",
			"int x(void) { return 0; }",
			[]string{"x"},
			Template{{Kind: Param, Value: "x"}},
			true,
		},
		{
			"statement reset before the definition",
			"int guard = 1; void run_##n(void) { }",
			[]string{"n"},
			Template{{Kind: Literal, Value: "run_"}, {Kind: Param, Value: "n"}},
			true,
		},
		{
			"no block",
			"pfx_##x",
			[]string{"x"},
			nil,
			false,
		},
		{
			"block without preceding parens",
			"struct s { int a; }",
			nil,
			nil,
			false,
		},
		{
			"three-way paste",
			"void a##_##b(void) { }",
			[]string{"a", "b"},
			Template{
				{Kind: Param, Value: "a"},
				{Kind: Literal, Value: "_"},
				{Kind: Param, Value: "b"},
			},
			true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractNameTemplate(tt.body, tt.params)
			if ok != tt.ok {
				t.Fatalf("ok: got %v, want %v", ok, tt.ok)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestExtractRenameTemplate(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		params []string
		want   Template
		ok     bool
	}{
		{
			"single parameter",
			"x",
			[]string{"x"},
			Template{{Kind: Param, Value: "x"}},
			true,
		},
		{
			"pasted pair",
			"a##b",
			[]string{"a", "b"},
			Template{{Kind: Param, Value: "a"}, {Kind: Param, Value: "b"}},
			true,
		},
		{
			"literal prefix",
			"impl_##x",
			[]string{"x"},
			Template{{Kind: Literal, Value: "impl_"}, {Kind: Param, Value: "x"}},
			true,
		},
		{
			"two idents without paste",
			"a b",
			[]string{"a", "b"},
			nil,
			false,
		},
		{
			"symbol breaks the chain",
			"x()",
			[]string{"x"},
			nil,
			false,
		},
		{
			"empty body",
			"",
			[]string{"x"},
			nil,
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractRenameTemplate(tt.body, tt.params)
			if ok != tt.ok {
				t.Fatalf("ok: got %v, want %v", ok, tt.ok)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseDefinitions(t *testing.T) {
	t.Run("generator macro", func(t *testing.T) {
		table := ParseDefinitions([]byte("#define DEF(x) void pfx_##x(int a){a++;}\n"))
		def := table.Lookup("DEF", true, false)
		if def == nil {
			t.Fatal("DEF not registered with a name template")
		}
		if def.RenameTemplate != nil {
			t.Error("DEF should not carry a rename template")
		}
		want := Template{{Kind: Literal, Value: "pfx_"}, {Kind: Param, Value: "x"}}
		if diff := cmp.Diff(want, def.NameTemplate); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("rename macro", func(t *testing.T) {
		table := ParseDefinitions([]byte("#define FN(x) x\n"))
		if table.Lookup("FN", false, true) == nil {
			t.Fatal("FN not registered with a rename template")
		}
		if table.Lookup("FN", true, false) != nil {
			t.Error("FN should not carry a name template")
		}
	})

	t.Run("object-like macros are ignored", func(t *testing.T) {
		table := ParseDefinitions([]byte("#define MAX 10\n#define EMPTY\n"))
		if table.Len() != 0 {
			t.Errorf("table has %d entries, want 0", table.Len())
		}
	})

	t.Run("body without templates is not registered", func(t *testing.T) {
		table := ParseDefinitions([]byte("#define SQUARE(x) ((x)*(x))\n"))
		if table.Len() != 0 {
			t.Errorf("table has %d entries, want 0", table.Len())
		}
	})

	t.Run("last definition wins", func(t *testing.T) {
		src := "#define FN(x) old_##x\n#define FN(x) new_##x\n"
		def := ParseDefinitions([]byte(src)).Lookup("FN", false, true)
		if def == nil {
			t.Fatal("FN not registered")
		}
		name, ok := def.RenameTemplate.Render(def.Params, []string{"a"})
		if !ok || name != "new_a" {
			t.Errorf("render: got %q, %v; want %q, true", name, ok, "new_a")
		}
	})

	t.Run("line continuation folded", func(t *testing.T) {
		src := "#define DEF(x) void pfx_##x(void) \\\n    { x(); }\n"
		if ParseDefinitions([]byte(src)).Lookup("DEF", true, false) == nil {
			t.Fatal("continued DEF not registered")
		}
	})

	t.Run("indented directive", func(t *testing.T) {
		src := "  #  define FN(x) x\n"
		if ParseDefinitions([]byte(src)).Lookup("FN", false, true) == nil {
			t.Fatal("indented FN not registered")
		}
	})

	t.Run("empty parameter list", func(t *testing.T) {
		src := "#define MK() void generated(void) { }\n"
		def := ParseDefinitions([]byte(src)).Lookup("MK", true, false)
		if def == nil {
			t.Fatal("MK not registered")
		}
		if len(def.Params) != 0 {
			t.Errorf("params: got %v, want none", def.Params)
		}
	})
}

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		start   int
		want    []string
		wantEnd int
		ok      bool
	}{
		{"two args", "(a, b)", 0, []string{"a", "b"}, 6, true},
		{"no args", "()", 0, nil, 2, true},
		{"trailing comma", "(a,)", 0, []string{"a", ""}, 4, true},
		{"nested call", "(f(x, y), z)", 0, []string{"f(x, y)", "z"}, 12, true},
		{"string with comma", `("a,b")`, 0, []string{`"a,b"`}, 7, true},
		{"block comment inside args", "(a /*x*/, b)", 0, []string{"a", "b"}, 12, true},
		{"line comment inside args", "(a //x\n,b)", 0, []string{"a", "b"}, 10, true},
		{"unterminated block comment", "(a /* b", 0, nil, 0, false},
		{"offset start", "FN(a)", 2, []string{"a"}, 5, true},
		{"unterminated", "(a", 0, nil, 0, false},
		{"not a paren", "a)", 0, nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, end, ok := ParseArgs([]byte(tt.src), tt.start)
			if ok != tt.ok || end != tt.wantEnd {
				t.Fatalf("got end %d ok %v, want end %d ok %v", end, ok, tt.wantEnd, tt.ok)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRender(t *testing.T) {
	join := Template{{Kind: Param, Value: "a"}, {Kind: Param, Value: "b"}}
	prefix := Template{{Kind: Literal, Value: "pre_"}, {Kind: Param, Value: "x"}}

	tests := []struct {
		name   string
		tpl    Template
		params []string
		args   []string
		want   string
		ok     bool
	}{
		{"prefix", prefix, []string{"x"}, []string{"main"}, "pre_main", true},
		{"whitespace stripped from args", join, []string{"a", "b"}, []string{"pre_ ", " main"}, "pre_main", true},
		{"missing argument renders empty", prefix, []string{"x"}, nil, "pre_", true},
		{"reserved keyword rejected", join, []string{"a", "b"}, []string{"wh", "ile"}, "", false},
		{"empty argument", prefix, []string{"x"}, []string{""}, "pre_", true},
		{"digit-led result rejected", Template{{Kind: Param, Value: "x"}}, []string{"x"}, []string{"1up"}, "", false},
		{"empty result rejected", Template{{Kind: Param, Value: "x"}}, []string{"x"}, []string{""}, "", false},
		{"non-identifier bytes rejected", Template{{Kind: Param, Value: "x"}}, []string{"x"}, []string{"a+b"}, "", false},
		{"empty template rejected", nil, nil, nil, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.tpl.Render(tt.params, tt.args)
			if ok != tt.ok || got != tt.want {
				t.Errorf("got %q, %v; want %q, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}
