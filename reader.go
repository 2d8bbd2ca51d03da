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
	"fmt"
	"io"
	"reflect"
)

const defaultBufSize = 4096

// Decoder drives the resumable Scanner and the plan engine against an
// io.Reader, refilling the scanner's buffer whenever it reports
// ErrBufferUnderrun.
//
// A single Decoder may be reused across successive calls to Decode to
// parse a stream of concatenated top-level values.
type Decoder struct {
	scanner *Scanner
	rd      io.Reader
	buf     []byte
	alloc   Allocator
}

// NewDecoder returns a Decoder reading from r, refilling its internal
// buffer bufSize bytes at a time (bufSize <= 0 selects a default).
func NewDecoder(r io.Reader, bufSize int) *Decoder {
	if bufSize <= 0 {
		bufSize = defaultBufSize
	}
	return &Decoder{scanner: NewScanner(), rd: r, buf: make([]byte, bufSize), alloc: defaultAllocator}
}

// SetAllocator overrides the Allocator used for Set/Dictionary/String
// scratch space; the zero value keeps the process-wide default pool.
func (d *Decoder) SetAllocator(alloc Allocator) {
	if alloc != nil {
		d.alloc = alloc
	}
}

// nextToken returns the scanner's next token, transparently refilling
// from rd whenever the scanner reports ErrBufferUnderrun.
func (d *Decoder) nextToken() (Token, error) {
	for {
		tok, err := d.scanner.Next()
		if err == nil {
			return tok, nil
		}
		if err != ErrBufferUnderrun {
			return Token{}, err
		}
		n, rerr := d.rd.Read(d.buf)
		if n > 0 {
			d.scanner.Feed(d.buf[:n])
			continue
		}
		if rerr == io.EOF {
			d.scanner.EndInput()
			continue
		}
		if rerr != nil {
			return Token{}, rerr
		}
	}
}

// Decode parses one top-level value from the stream into target, a
// non-nil pointer to a Go value matched against the plan engine's
// shape table (the inverse of Marshal's encoderFunc table). It returns
// io.EOF if the stream is exhausted before any value begins, so a
// caller can Decode in a loop over a concatenated stream of values.
func (d *Decoder) Decode(target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("syrup: Decode target must be a non-nil pointer")
	}
	elem := rv.Elem()
	desc, ok := compilePlan(elem.Type())
	if !ok {
		return fmt.Errorf("syrup: cannot decode into %s", elem.Type())
	}
	p := desc.newPlan(elem)

	first := true
	for {
		tok, err := d.nextToken()
		if err != nil {
			p.cleanup(d.alloc)
			return err
		}
		if tok.Kind == TokEndOfDocument {
			if first {
				return io.EOF
			}
			p.cleanup(d.alloc)
			return ErrUnexpectedEndOfInput
		}
		first = false

		done, err := p.feed(tok, d.alloc)
		if err != nil {
			p.cleanup(d.alloc)
			return err
		}
		if done {
			return nil
		}
	}
}

// DecodeValue parses one top-level value from the stream into the
// abstract Value algebra, without reflection against a host schema.
func (d *Decoder) DecodeValue() (Value, error) {
	var v Value
	if err := d.Decode(&v); err != nil {
		return Value{}, err
	}
	return v, nil
}

// Parse decodes one top-level value from r into target using alloc (nil
// selects the process-wide default pool) and a default-sized buffer.
func Parse(r io.Reader, alloc Allocator, target any) error {
	d := NewDecoder(r, defaultBufSize)
	d.SetAllocator(alloc)
	return d.Decode(target)
}

// Unmarshal is the textual-format convenience entry point mirroring
// the composing writer's Marshal.
func Unmarshal(r io.Reader, target any) error {
	return Parse(r, nil, target)
}
