// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package syrup

import (
	"errors"
	"fmt"
)

// ErrBufferUnderrun signals that the scanner has no more input and
// endInput has not been called; the caller should feed more bytes and
// retry. It is handled internally by Decoder and never escapes Parse.
var ErrBufferUnderrun = errors.New("syrup: buffer underrun")

// ErrUnexpectedEndOfInput is returned when the byte source is exhausted
// in the middle of a token or a plan.
var ErrUnexpectedEndOfInput = errors.New("syrup: unexpected end of input")

// ErrExpectedDictionaryStart is returned by a struct plan fed a
// token other than DictStart in its Start state.
var ErrExpectedDictionaryStart = errors.New("syrup: expected dictionary start")

// ErrExpectedDictionaryEnd is returned by a struct plan that
// expected DictEnd but saw something else once every key was consumed.
var ErrExpectedDictionaryEnd = errors.New("syrup: expected dictionary end")

// SyntaxError reports a byte that is inadmissible in the scanner's
// current state.
type SyntaxError struct {
	Offset int
	Byte   byte
	State  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syrup: syntax error at offset %d: byte 0x%02x invalid in state %s", e.Offset, e.Byte, e.State)
}

// OverflowError reports that a digit accumulator or integer plan
// exceeded its target's width.
type OverflowError struct {
	Target string
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("syrup: overflow decoding into %s", e.Target)
}

// IllFitError reports a width or range mismatch between a token and
// the plan's target shape (e.g. a Double token fed to a Float plan, or
// a negative Integer fed to an unsigned target).
type IllFitError struct {
	Reason string
}

func (e *IllFitError) Error() string {
	return fmt.Sprintf("syrup: ill-fit: %s", e.Reason)
}

// InvalidUTF8Error reports that a String or Symbol payload failed
// UTF-8 validation.
type InvalidUTF8Error struct {
	Kind Kind
}

func (e *InvalidUTF8Error) Error() string {
	return fmt.Sprintf("syrup: invalid UTF-8 in %s payload", e.Kind)
}

// UnexpectedTokenError reports that a token's kind didn't match what
// the active plan expected.
type UnexpectedTokenError struct {
	Expected string
	Got      TokenKind
}

func (e *UnexpectedTokenError) Error() string {
	return fmt.Sprintf("syrup: unexpected token %s, expected %s", e.Got, e.Expected)
}

// KeyFoundBeforeError reports a duplicate key in a struct plan.
type KeyFoundBeforeError struct {
	Key string
}

func (e *KeyFoundBeforeError) Error() string {
	return fmt.Sprintf("syrup: key %q found before in dictionary", e.Key)
}

// UnknownKeyError reports a dictionary key absent from the target
// schema's static field map.
type UnknownKeyError struct {
	Key string
}

func (e *UnknownKeyError) Error() string {
	return fmt.Sprintf("syrup: unknown key %q", e.Key)
}

// MissingKeyError reports that the dictionary closed before every
// required field of the target schema was seen. Resolves Open Question
// (b) of the plan engine design: rather than surfacing an ambiguous
// UnexpectedToken when DictEnd arrives early, name the missing field.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("syrup: missing required key %q", e.Key)
}

// RecordError reports a record whose label did not match any known
// variant of a tagged-union target.
type RecordError struct {
	Label string
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("syrup: unknown record label %q", e.Label)
}
