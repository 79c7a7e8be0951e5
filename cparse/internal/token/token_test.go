package token

import (
	"strings"
	"testing"
)

func TestTokenizeLine(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []Token
	}{
		{
			"empty",
			"",
			nil,
		},
		{
			"whitespace",
			"   \t  ",
			nil,
		},
		{
			"prototype",
			"float powf(float base, float exp);",
			[]Token{
				{"float", Ident, "h", 3},
				{"powf", Ident, "h", 3},
				{"(", LParen, "h", 3},
				{"float", Ident, "h", 3},
				{"base", Ident, "h", 3},
				{",", Comma, "h", 3},
				{"float", Ident, "h", 3},
				{"exp", Ident, "h", 3},
				{")", RParen, "h", 3},
				{";", Semi, "h", 3},
			},
		},
		{
			"pointer_member",
			"char *name;",
			[]Token{
				{"char", Ident, "h", 3},
				{"*", Star, "h", 3},
				{"name", Ident, "h", 3},
				{";", Semi, "h", 3},
			},
		},
		{
			"bit_field",
			"unsigned ready : 1;",
			[]Token{
				{"unsigned", Ident, "h", 3},
				{"ready", Ident, "h", 3},
				{":", Colon, "h", 3},
				{"1", Number, "h", 3},
				{";", Semi, "h", 3},
			},
		},
		{
			"braces",
			"struct device {",
			[]Token{
				{"struct", Ident, "h", 3},
				{"device", Ident, "h", 3},
				{"{", LBrace, "h", 3},
			},
		},
		{
			"array_dims",
			"int grid[3][4];",
			[]Token{
				{"int", Ident, "h", 3},
				{"grid", Ident, "h", 3},
				{"[", LBracket, "h", 3},
				{"3", Number, "h", 3},
				{"]", RBracket, "h", 3},
				{"[", LBracket, "h", 3},
				{"4", Number, "h", 3},
				{"]", RBracket, "h", 3},
				{";", Semi, "h", 3},
			},
		},
		{
			"ellipsis",
			"...",
			[]Token{{"...", Ellipsis, "h", 3}},
		},
		{
			"decimal",
			"42",
			[]Token{{"42", Number, "h", 3}},
		},
		{
			"hex",
			"0xFF",
			[]Token{{"0xFF", Number, "h", 3}},
		},
		{
			"octal",
			"0755",
			[]Token{{"0755", Number, "h", 3}},
		},
		{
			"float_literal",
			"3.14",
			[]Token{{"3.14", Number, "h", 3}},
		},
		{
			"exponent",
			"6.02e23",
			[]Token{{"6.02e23", Number, "h", 3}},
		},
		{
			"negative_exponent",
			"1e-10",
			[]Token{{"1e-10", Number, "h", 3}},
		},
		{
			"hex_float",
			"0x1p4",
			[]Token{{"0x1p4", Number, "h", 3}},
		},
		{
			"integer_suffixes",
			"10UL",
			[]Token{{"10UL", Number, "h", 3}},
		},
		{
			"float_suffix",
			"1.5f",
			[]Token{{"1.5f", Number, "h", 3}},
		},
		{
			"string_literal",
			`"hello"`,
			[]Token{{"hello", String, "h", 3}},
		},
		{
			"string_escape",
			`"a\"b"`,
			[]Token{{`a\"b`, String, "h", 3}},
		},
		{
			"char_literal",
			"'a'",
			[]Token{{"a", CharLit, "h", 3}},
		},
		{
			"char_escape",
			`'\n'`,
			[]Token{{`\n`, CharLit, "h", 3}},
		},
		{
			"char_nul",
			`'\0'`,
			[]Token{{`\0`, CharLit, "h", 3}},
		},
		{
			"shift_expr",
			"(1 << 4)",
			[]Token{
				{"(", LParen, "h", 3},
				{"1", Number, "h", 3},
				{"<<", Op, "h", 3},
				{"4", Number, "h", 3},
				{")", RParen, "h", 3},
			},
		},
		{
			"right_shift",
			"x >> 2",
			[]Token{
				{"x", Ident, "h", 3},
				{">>", Op, "h", 3},
				{"2", Number, "h", 3},
			},
		},
		{
			"single_angle",
			"a < b",
			[]Token{
				{"a", Ident, "h", 3},
				{"<", Op, "h", 3},
				{"b", Ident, "h", 3},
			},
		},
		{
			"bit_ops",
			"a | b & ~c ^ d",
			[]Token{
				{"a", Ident, "h", 3},
				{"|", Op, "h", 3},
				{"b", Ident, "h", 3},
				{"&", Op, "h", 3},
				{"~", Op, "h", 3},
				{"c", Ident, "h", 3},
				{"^", Op, "h", 3},
				{"d", Ident, "h", 3},
			},
		},
		{
			"arithmetic",
			"a + b - c / d % e",
			[]Token{
				{"a", Ident, "h", 3},
				{"+", Op, "h", 3},
				{"b", Ident, "h", 3},
				{"-", Op, "h", 3},
				{"c", Ident, "h", 3},
				{"/", Op, "h", 3},
				{"d", Ident, "h", 3},
				{"%", Op, "h", 3},
				{"e", Ident, "h", 3},
			},
		},
		{
			"assign",
			"= 5",
			[]Token{
				{"=", Assign, "h", 3},
				{"5", Number, "h", 3},
			},
		},
		{
			"underscore_ident",
			"__attribute__ _Bool size_t",
			[]Token{
				{"__attribute__", Ident, "h", 3},
				{"_Bool", Ident, "h", 3},
				{"size_t", Ident, "h", 3},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := TokenizeLine("h", 3, tt.input)
			if err != nil {
				t.Fatalf("TokenizeLine failed: %v", err)
			}
			if len(tokens) != len(tt.expected) {
				t.Fatalf("token count mismatch: got %d, want %d\ngot: %v", len(tokens), len(tt.expected), tokens)
			}
			for i, tok := range tokens {
				if tok != tt.expected[i] {
					t.Errorf("token %d mismatch:\n  got:  %+v\n  want: %+v", i, tok, tt.expected[i])
				}
			}
		})
	}
}

func TestTokenizeLineErrors(t *testing.T) {
	tests := []struct {
		name, input, wantErr string
	}{
		{"unterminated_string", `"abc`, "unterminated string"},
		{"unterminated_char", "'a", "unterminated character"},
		{"unexpected_char", "int @ x", "unexpected character"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := TokenizeLine("h", 7, tt.input)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q missing %q", err, tt.wantErr)
			}
			if !strings.Contains(err.Error(), "h:7") {
				t.Errorf("error %q missing location h:7", err)
			}
		})
	}
}

func TestTypeString(t *testing.T) {
	tests := []struct {
		want string
		typ  Type
	}{
		{"identifier", Ident},
		{"number", Number},
		{"string", String},
		{"character", CharLit},
		{"'('", LParen},
		{"')'", RParen},
		{"'{'", LBrace},
		{"'}'", RBrace},
		{"';'", Semi},
		{"','", Comma},
		{"':'", Colon},
		{"'*'", Star},
		{"'...'", Ellipsis},
		{"'='", Assign},
		{"operator", Op},
		{"unknown", Type(999)},
	}

	for _, tt := range tests {
		got := tt.typ.String()
		if got != tt.want {
			t.Errorf("Type(%d).String() = %q, want %q", tt.typ, got, tt.want)
		}
	}
}
