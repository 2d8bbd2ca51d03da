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
	"encoding/binary"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"unicode/utf8"
)

// plan is a per-target-shape resumable state machine: it
// consumes one token at a time and either persists (needs another
// token), completes (having written its result into the destination
// reflect.Value it was built with), or fails.
type plan interface {
	// feed advances the plan with one token. done==true means the plan
	// has written its result; the caller must stop calling feed. An
	// error aborts the plan; the driver will call cleanup.
	feed(tok Token, alloc Allocator) (done bool, err error)
	// cleanup releases allocator-owned memory the plan holds for a
	// value it never finished building.
	cleanup(alloc Allocator)
}

// planFor compiles (once per reflect.Type, cached) the plan constructor
// and destroyer for t, the scanner-driven mirror of encoderFunc.
type planFor struct {
	newPlan func(dst reflect.Value) plan
	// destroy releases allocator-owned memory already committed into
	// dst by a previously-completed plan of this shape. Used when a
	// sibling field's plan fails after this one already succeeded.
	destroy func(alloc Allocator, dst reflect.Value)
}

func unexpected(expected string, tok Token) error {
	return &UnexpectedTokenError{Expected: expected, Got: tok.Kind}
}

// ---- Integer ----

type intPlan struct {
	dst reflect.Value
}

func (p *intPlan) feed(tok Token, alloc Allocator) (bool, error) {
	if tok.Kind == TokPartialNumber {
		return false, nil
	}
	if tok.Kind != TokInteger {
		return false, unexpected("Integer", tok)
	}
	mag := tok.BigMag
	if mag == nil {
		mag = new(big.Int).SetUint64(tok.Magnitude)
	}
	val := new(big.Int).Set(mag)
	if tok.IntSign == Negative {
		val.Neg(val)
	}
	if err := setIntReflect(p.dst, val); err != nil {
		return false, err
	}
	return true, nil
}

func (p *intPlan) cleanup(Allocator) {}

func setIntReflect(dst reflect.Value, val *big.Int) error {
	switch dst.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if !val.IsInt64() {
			return &OverflowError{Target: dst.Type().String()}
		}
		n := val.Int64()
		if dst.OverflowInt(n) {
			return &IllFitError{Reason: fmt.Sprintf("%d does not fit in %s", n, dst.Type())}
		}
		dst.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if val.Sign() < 0 {
			return &IllFitError{Reason: "negative Integer does not fit unsigned target"}
		}
		if !val.IsUint64() {
			return &OverflowError{Target: dst.Type().String()}
		}
		n := val.Uint64()
		if dst.OverflowUint(n) {
			return &IllFitError{Reason: fmt.Sprintf("%d does not fit in %s", n, dst.Type())}
		}
		dst.SetUint(n)
	default:
		return fmt.Errorf("syrup: cannot decode Integer into %s", dst.Type())
	}
	return nil
}

// ---- arbitrary-precision Integer (*big.Int target) ----

type bigIntPlan struct {
	dst reflect.Value
}

func (p *bigIntPlan) feed(tok Token, alloc Allocator) (bool, error) {
	if tok.Kind == TokPartialNumber {
		return false, nil
	}
	if tok.Kind != TokInteger {
		return false, unexpected("Integer", tok)
	}
	mag := tok.BigMag
	if mag == nil {
		mag = new(big.Int).SetUint64(tok.Magnitude)
	}
	val := new(big.Int).Set(mag)
	if tok.IntSign == Negative {
		val.Neg(val)
	}
	p.dst.Set(reflect.ValueOf(val))
	return true, nil
}

func (p *bigIntPlan) cleanup(Allocator) {}

// ---- Float32 / Float64 ----

type floatPlan struct {
	dst      reflect.Value
	width    int // 4 or 8
	full     TokenKind
	partial  TokenKind
	buf      [8]byte
	filled   int
}

func (p *floatPlan) feed(tok Token, alloc Allocator) (bool, error) {
	switch tok.Kind {
	case p.partial:
		n := copy(p.buf[p.filled:p.width], tok.Bytes)
		p.filled += n
		return false, nil
	case p.full:
		n := copy(p.buf[p.filled:p.width], tok.Bytes)
		p.filled += n
		if p.filled != p.width {
			return false, &IllFitError{Reason: "float payload length mismatch"}
		}
		if p.width == 4 {
			p.dst.SetFloat(float64(math.Float32frombits(binary.BigEndian.Uint32(p.buf[:4]))))
		} else {
			p.dst.SetFloat(math.Float64frombits(binary.BigEndian.Uint64(p.buf[:8])))
		}
		return true, nil
	default:
		if tok.Kind == TokFloat || tok.Kind == TokDouble || tok.Kind == TokPartialFloat || tok.Kind == TokPartialDouble {
			return false, &IllFitError{Reason: "float width mismatch"}
		}
		want := "Float"
		if p.width == 8 {
			want = "Double"
		}
		return false, unexpected(want, tok)
	}
}

func (p *floatPlan) cleanup(Allocator) {}

func newFloat32Plan(dst reflect.Value) plan {
	return &floatPlan{dst: dst, width: 4, full: TokFloat, partial: TokPartialFloat}
}

func newFloat64Plan(dst reflect.Value) plan {
	return &floatPlan{dst: dst, width: 8, full: TokDouble, partial: TokPartialDouble}
}

// ---- String / Symbol / Binary ----

type bytesPlan struct {
	dst     reflect.Value
	kind    Kind // StringKind, SymbolKind, or BinaryKind
	full    TokenKind
	partial TokenKind

	buf     []byte
	filled  int
	started bool
}

func (p *bytesPlan) feed(tok Token, alloc Allocator) (bool, error) {
	switch tok.Kind {
	case p.partial:
		if !p.started {
			p.buf = alloc.Alloc(tok.Remaining + len(tok.Bytes))
			p.started = true
		}
		p.filled += copy(p.buf[p.filled:], tok.Bytes)
		return false, nil
	case p.full:
		if !p.started {
			// No preceding Partial*: dupe the token's bytes, since the
			// scanner's slice borrows a buffer the caller may recycle.
			p.buf = alloc.Alloc(len(tok.Bytes))
			copy(p.buf, tok.Bytes)
			p.filled = len(tok.Bytes)
			p.started = true
		} else {
			p.filled += copy(p.buf[p.filled:], tok.Bytes)
		}
		err := p.finish()
		// A Binary target's dst now aliases the scratch buffer directly
		// (ownership transferred, released later via destroyBinaryField);
		// a String/Symbol target copied out into a Go-native string, so
		// the scratch buffer is released immediately either way here.
		if p.kind != BinaryKind || err != nil {
			alloc.Free(p.buf)
			p.started = false
		}
		if err != nil {
			return false, err
		}
		return true, nil
	default:
		return false, unexpected(p.kind.String(), tok)
	}
}

func (p *bytesPlan) finish() error {
	result := p.buf[:p.filled]
	if p.kind == StringKind || p.kind == SymbolKind {
		if !utf8.Valid(result) {
			return &InvalidUTF8Error{Kind: p.kind}
		}
	}
	switch p.kind {
	case BinaryKind:
		p.dst.SetBytes(result)
	default: // String, Symbol -> Go string target
		p.dst.SetString(string(result))
	}
	return nil
}

func (p *bytesPlan) cleanup(alloc Allocator) {
	if p.started {
		alloc.Free(p.buf)
		p.started = false
	}
}

// destroyBinaryField releases the allocator buffer a completed Binary
// field still aliases, used when a sibling field's later failure
// discards an already-committed struct.
func destroyBinaryField(alloc Allocator, dst reflect.Value) {
	if b := dst.Bytes(); b != nil {
		alloc.Free(b)
	}
}

func newStringPlan(dst reflect.Value) plan {
	return &bytesPlan{dst: dst, kind: StringKind, full: TokString, partial: TokPartialString}
}

func newSymbolPlan(dst reflect.Value) plan {
	return &bytesPlan{dst: dst, kind: SymbolKind, full: TokSymbol, partial: TokPartialSymbol}
}

func newBinaryPlan(dst reflect.Value) plan {
	return &bytesPlan{dst: dst, kind: BinaryKind, full: TokBinary, partial: TokPartialBinary}
}

// ---- Optional (pointer / nilable) ----

type optionalPlan struct {
	dst       reflect.Value
	elemType  reflect.Type
	inner     plan
	innerDst  reflect.Value
	started   bool
}

func (p *optionalPlan) feed(tok Token, alloc Allocator) (bool, error) {
	if !p.started {
		p.started = true
		if tok.Kind == TokBool {
			if tok.Bool {
				return false, unexpected("absent (Boolean false)", tok)
			}
			p.dst.Set(reflect.Zero(p.dst.Type()))
			return true, nil
		}
		inner, ok := compilePlan(p.elemType)
		if !ok {
			return false, fmt.Errorf("syrup: cannot decode optional %s", p.elemType)
		}
		p.innerDst = reflect.New(p.elemType).Elem()
		p.inner = inner.newPlan(p.innerDst)
	}
	done, err := p.inner.feed(tok, alloc)
	if err != nil {
		return false, err
	}
	if done {
		ptr := reflect.New(p.elemType)
		ptr.Elem().Set(p.innerDst)
		p.dst.Set(ptr)
	}
	return done, nil
}

func (p *optionalPlan) cleanup(alloc Allocator) {
	if p.inner != nil {
		p.inner.cleanup(alloc)
	}
}

func newOptionalPlan(elemType reflect.Type) func(reflect.Value) plan {
	return func(dst reflect.Value) plan {
		return &optionalPlan{dst: dst, elemType: elemType}
	}
}

// ---- Owned single-pointer ----

type ownedPlan struct {
	dst      reflect.Value
	elemType reflect.Type
	inner    plan
	innerDst reflect.Value
}

func (p *ownedPlan) feed(tok Token, alloc Allocator) (bool, error) {
	if p.inner == nil {
		desc, ok := compilePlan(p.elemType)
		if !ok {
			return false, fmt.Errorf("syrup: cannot decode owned %s", p.elemType)
		}
		p.innerDst = reflect.New(p.elemType).Elem()
		p.inner = desc.newPlan(p.innerDst)
	}
	done, err := p.inner.feed(tok, alloc)
	if err != nil {
		return false, err
	}
	if done {
		cell := reflect.New(p.elemType)
		cell.Elem().Set(p.innerDst)
		p.dst.Set(cell)
	}
	return done, nil
}

func (p *ownedPlan) cleanup(alloc Allocator) {
	if p.inner != nil {
		p.inner.cleanup(alloc)
	}
}
