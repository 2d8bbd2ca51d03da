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
	"math/big"
)

// Encoder is the stateless atom/collection emission contract shared by
// TextEncoder and BinaryEncoder; the composing Writer is parameterized
// over one of the two so the same schema-driven logic serves both
// concrete formats.
type Encoder interface {
	WriteBool(*Buffer, bool)
	WriteFloat32(*Buffer, float32)
	WriteFloat64(*Buffer, float64)
	WriteInt(*Buffer, *big.Int)
	WriteBinary(*Buffer, []byte)
	WriteString(*Buffer, string)
	WriteSymbol(*Buffer, string)
	DictStart(*Buffer)
	DictEnd(*Buffer)
	SeqStart(*Buffer)
	SeqEnd(*Buffer)
	RecStart(*Buffer)
	RecEnd(*Buffer)
	SetStart(*Buffer)
	SetEnd(*Buffer)
}

// Writer is the schema-driven composing writer: given a
// host value (either an abstract Value or, via Marshal, an arbitrary Go
// value matched against a shape table) it emits an encoding through
// whichever Encoder it was built with, sorting dictionary keys and set
// members into canonical byte order as it goes.
type Writer struct {
	sink  io.Writer
	enc   Encoder
	alloc Allocator
	buf   Buffer
	cur   *Buffer // current emission target; set during custom-hook calls
}

// NewTextWriter returns a Writer that emits the textual Syrup encoding
// to sink, using alloc for Set/Dictionary canonicalization scratch
// space. alloc may be nil to use a process-wide default pool.
func NewTextWriter(sink io.Writer, alloc Allocator) *Writer {
	return newWriter(sink, TextEncoder{}, alloc)
}

// NewBinaryWriter returns a Writer that emits the binary Preserves
// encoding to sink.
func NewBinaryWriter(sink io.Writer, alloc Allocator) *Writer {
	return newWriter(sink, BinaryEncoder{}, alloc)
}

func newWriter(sink io.Writer, enc Encoder, alloc Allocator) *Writer {
	if alloc == nil {
		alloc = defaultAllocator
	}
	return &Writer{sink: sink, enc: enc, alloc: alloc}
}

// WriteValue encodes v and flushes it to the sink.
func (w *Writer) WriteValue(v Value) error {
	w.buf.Reset()
	if err := w.writeValueInto(&w.buf, v); err != nil {
		return err
	}
	_, err := w.buf.WriteTo(w.sink)
	return err
}

// Emit is the "writer-namespace" a custom WriteSyrup hook uses to write
// sub-values into the value currently being composed.
func (w *Writer) Emit(v Value) error {
	if w.cur == nil {
		return fmt.Errorf("syrup: Emit called outside of an active encode")
	}
	return w.writeValueInto(w.cur, v)
}

func (w *Writer) writeValueInto(dst *Buffer, v Value) error {
	switch v.kind {
	case BoolKind:
		w.enc.WriteBool(dst, v.b)
	case Float32Kind:
		w.enc.WriteFloat32(dst, v.f32)
	case Float64Kind:
		w.enc.WriteFloat64(dst, v.f64)
	case IntKind:
		w.enc.WriteInt(dst, v.i)
	case BinaryKind:
		w.enc.WriteBinary(dst, v.bytes)
	case StringKind:
		w.enc.WriteString(dst, string(v.bytes))
	case SymbolKind:
		w.enc.WriteSymbol(dst, string(v.bytes))
	case SequenceKind:
		w.enc.SeqStart(dst)
		for _, item := range v.list {
			if err := w.writeValueInto(dst, item); err != nil {
				return err
			}
		}
		w.enc.SeqEnd(dst)
	case SetKind:
		return w.writeSetInto(dst, v.list)
	case DictionaryKind:
		return w.writeDictInto(dst, v.dict)
	case RecordKind:
		w.enc.RecStart(dst)
		if err := w.writeValueInto(dst, v.label); err != nil {
			return err
		}
		for _, f := range v.rec {
			if err := w.writeValueInto(dst, f); err != nil {
				return err
			}
		}
		w.enc.RecEnd(dst)
	default:
		return fmt.Errorf("syrup: cannot encode value of kind %s", v.kind)
	}
	return nil
}

// writeSetInto implements the Set canonicalization contract: encode
// every member to an allocator-owned temporary, sort the temporaries by
// lexicographic byte order, emit them, then free the temporaries.
// Failure during member encoding releases any already-materialized
// temporaries (the deferred free below runs on every return path).
func (w *Writer) writeSetInto(dst *Buffer, members []Value) error {
	tmps := make([][]byte, 0, len(members))
	defer func() {
		for _, b := range tmps {
			w.alloc.Free(b)
		}
	}()
	for _, m := range members {
		tb := &Buffer{buf: w.alloc.Alloc(0)}
		if err := w.writeValueInto(tb, m); err != nil {
			return err
		}
		tmps = append(tmps, tb.Bytes())
	}
	sortByEncodedKey(tmps, func(b []byte) []byte { return b })
	w.enc.SetStart(dst)
	for _, b := range tmps {
		dst.Write(b)
	}
	w.enc.SetEnd(dst)
	return nil
}

// writeDictInto implements the Dictionary canonicalization contract:
// encode each key to its canonical form, sort entries by the encoded
// key's byte order, then emit (K, V)* pairs.
func (w *Writer) writeDictInto(dst *Buffer, fields []Field) error {
	type entry struct {
		key []byte
		val Value
	}
	entries := make([]entry, 0, len(fields))
	defer func() {
		for _, e := range entries {
			w.alloc.Free(e.key)
		}
	}()
	for _, f := range fields {
		tb := &Buffer{buf: w.alloc.Alloc(0)}
		if err := w.writeValueInto(tb, f.Key); err != nil {
			return err
		}
		entries = append(entries, entry{key: tb.Bytes(), val: f.Value})
	}
	sortByEncodedKey(entries, func(e entry) []byte { return e.key })
	w.enc.DictStart(dst)
	for _, e := range entries {
		dst.Write(e.key)
		if err := w.writeValueInto(dst, e.val); err != nil {
			return err
		}
	}
	w.enc.DictEnd(dst)
	return nil
}

// Write encodes v (an abstract Value) to sink using the textual
// format and the process-wide default allocator.
func Write(sink io.Writer, v Value) error {
	return NewTextWriter(sink, nil).WriteValue(v)
}

// WriteWithAllocator is Write parameterized over an explicit Allocator,
// for callers whose value contains Sets or otherwise wants control over
// canonicalization scratch space.
func WriteWithAllocator(sink io.Writer, alloc Allocator, v Value) error {
	return NewTextWriter(sink, alloc).WriteValue(v)
}

// WriteBinary encodes v to sink using the binary Preserves format.
func WriteBinary(sink io.Writer, v Value) error {
	return NewBinaryWriter(sink, nil).WriteValue(v)
}
