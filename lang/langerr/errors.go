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

// Package langerr defines the typed parse-time error taxonomy shared by
// the lexer, parser, and interpreter.
package langerr

import "fmt"

// ParseError carries a line/column position, per spec.md §4.2/§7.
type ParseError struct {
	Line, Col int
	Message   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %d:%d: %s", e.Line, e.Col, e.Message)
}

// ParseErrors collects every ParseError found during a single parse pass;
// the parser rejects the whole program rather than partially accepting it.
type ParseErrors struct {
	Errors []*ParseError
}

func (e *ParseErrors) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d parse errors, first: %s", len(e.Errors), e.Errors[0].Error())
}

func (e *ParseErrors) Add(line, col int, format string, args ...interface{}) {
	e.Errors = append(e.Errors, &ParseError{Line: line, Col: col, Message: fmt.Sprintf(format, args...)})
}

func (e *ParseErrors) HasErrors() bool { return len(e.Errors) > 0 }
