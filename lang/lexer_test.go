/*
Copyright © 2024 the simcore authors.
This file is part of simcore.

simcore is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

simcore is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with simcore.  If not, see <http://www.gnu.org/licenses/>.
*/

package lang

import "testing"

func TestLexerKeywordsIdentsAndNumbers(t *testing.T) {
	src := "set manufacture to 10.5 kg # a trailing comment\nend substance"
	toks := NewLexer(src).Tokens()

	want := []struct {
		kind TokenKind
		text string
	}{
		{TokKeyword, "set"},
		{TokIdent, "manufacture"},
		{TokKeyword, "to"},
		{TokNumber, "10.5"},
		{TokIdent, "kg"},
		{TokSymbol, "\n"},
		{TokKeyword, "end"},
		{TokKeyword, "substance"},
		{TokEOF, ""},
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d: %v", len(toks), len(want), toks)
	}
	for i, w := range want {
		if toks[i].Kind != w.kind || toks[i].Text != w.text {
			t.Errorf("token %d = %s, want kind=%v text=%q", i, toks[i], w.kind, w.text)
		}
	}
}

func TestLexerStringLiteral(t *testing.T) {
	toks := NewLexer(`"Refrigeration"`).Tokens()
	if toks[0].Kind != TokString || toks[0].Text != "Refrigeration" {
		t.Fatalf("got %v, want string token %q", toks[0], "Refrigeration")
	}
}

func TestLexerUnterminatedStringIsAnError(t *testing.T) {
	lx := NewLexer(`"oops`)
	lx.Tokens()
	if !lx.Errors().HasErrors() {
		t.Fatal("expected an unterminated-string error")
	}
}

func TestLexerMultiCharSymbols(t *testing.T) {
	toks := NewLexer("<= >= == != %").Tokens()
	want := []string{"<=", ">=", "==", "!=", "%"}
	for i, w := range want {
		if toks[i].Kind != TokSymbol || toks[i].Text != w {
			t.Errorf("token %d = %s, want symbol %q", i, toks[i], w)
		}
	}
}
