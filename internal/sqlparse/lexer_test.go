package sqlparse

import "testing"

func TestTokenizeTypes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []TokenType
	}{
		{"simple select", "SELECT a FROM t", []TokenType{TOKEN_SELECT, TOKEN_IDENT, TOKEN_FROM, TOKEN_IDENT, TOKEN_EOF}},
		{"qualified column", "o.id", []TokenType{TOKEN_IDENT, TOKEN_DOT, TOKEN_IDENT, TOKEN_EOF}},
		{"comparison operators", "= <> != ^= < > <= >=", []TokenType{TOKEN_EQ, TOKEN_NE, TOKEN_NE, TOKEN_NE, TOKEN_LT, TOKEN_GT, TOKEN_LE, TOKEN_GE, TOKEN_EOF}},
		{"outer join marker", "b.y(+)", []TokenType{TOKEN_IDENT, TOKEN_DOT, TOKEN_IDENT, TOKEN_OUTER, TOKEN_EOF}},
		{"outer join marker with spaces", "b.y ( + )", []TokenType{TOKEN_IDENT, TOKEN_DOT, TOKEN_IDENT, TOKEN_OUTER, TOKEN_EOF}},
		{"binds", ":id ? :1", []TokenType{TOKEN_BIND, TOKEN_BIND, TOKEN_BIND, TOKEN_EOF}},
		{"concat", "a || 'x'", []TokenType{TOKEN_IDENT, TOKEN_DPIPE, TOKEN_STRING, TOKEN_EOF}},
		{"line comment", "a -- comment\nb", []TokenType{TOKEN_IDENT, TOKEN_IDENT, TOKEN_EOF}},
		{"hint comment", "SELECT /*+ FULL(t) */ a", []TokenType{TOKEN_SELECT, TOKEN_IDENT, TOKEN_EOF}},
		{"minus keyword vs operator", "MINUS - 1", []TokenType{TOKEN_MINUS_SET, TOKEN_MINUS, TOKEN_NUMBER, TOKEN_EOF}},
		{"decimal without leading digit", ".5", []TokenType{TOKEN_NUMBER, TOKEN_EOF}},
		{"terminator", "a;", []TokenType{TOKEN_IDENT, TOKEN_SEMICOLON, TOKEN_EOF}},
		{"dblink", "t@remote", []TokenType{TOKEN_IDENT, TOKEN_AT, TOKEN_IDENT, TOKEN_EOF}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("Tokenize(%q) = %d tokens %v, want %d", tt.input, len(got), got, len(tt.want))
			}
			for i := range got {
				if got[i].Type != tt.want[i] {
					t.Errorf("token[%d] = %s, want %s", i, got[i].Type, tt.want[i])
				}
			}
		})
	}
}

func TestTokenizeLiterals(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   string
		tt     TokenType
		quoted bool
	}{
		{"escaped quote", "'it''s'", "it's", TOKEN_STRING, false},
		{"alternative quote brackets", "q'[it's]'", "it's", TOKEN_STRING, false},
		{"alternative quote custom", "Q'!a'b!'", "a'b", TOKEN_STRING, false},
		{"national string", "N'abc'", "abc", TOKEN_STRING, false},
		{"quoted identifier", `"Order Lines"`, "Order Lines", TOKEN_IDENT, true},
		{"identifier with dollar and hash", "v$session#", "v$session#", TOKEN_IDENT, false},
		{"exponent", "1.5e-3", "1.5e-3", TOKEN_NUMBER, false},
		{"named bind", ":cust_id", ":cust_id", TOKEN_BIND, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.input)[0]
			if got.Type != tt.tt {
				t.Errorf("type = %s, want %s", got.Type, tt.tt)
			}
			if got.Literal != tt.want {
				t.Errorf("literal = %q, want %q", got.Literal, tt.want)
			}
			if got.Quoted != tt.quoted {
				t.Errorf("quoted = %v, want %v", got.Quoted, tt.quoted)
			}
		})
	}
}

func TestTokenizePositions(t *testing.T) {
	tokens := Tokenize("SELECT a\nFROM t")
	from := tokens[2]
	if from.Type != TOKEN_FROM {
		t.Fatalf("token[2] = %s, want FROM", from.Type)
	}
	if from.Pos.Line != 2 || from.Pos.Column != 1 {
		t.Errorf("FROM at %d:%d, want 2:1", from.Pos.Line, from.Pos.Column)
	}
}

func TestLookupIdentCaseInsensitive(t *testing.T) {
	if LookupIdent("select") != TOKEN_SELECT {
		t.Error("lowercase select should be a keyword")
	}
	if LookupIdent("orders") != TOKEN_IDENT {
		t.Error("orders should be an identifier")
	}
	if !TOKEN_WHERE.IsKeyword() || TOKEN_IDENT.IsKeyword() {
		t.Error("IsKeyword mismatch")
	}
}
