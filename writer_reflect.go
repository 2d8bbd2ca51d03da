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
	"reflect"
	"strings"
	"sync"
)

// SyrupWriter is the composing writer's custom hook: a host type
// implementing it fully controls its own encoding instead of falling
// through the default shape rule.
type SyrupWriter interface {
	WriteSyrup(w *Writer) error
}

// SyrupLabeler overrides the label a tagged-variant Record shape
// emits, when a plain VariantName() string isn't expressive enough
// (e.g. a label that depends on the value's own state).
type SyrupLabeler interface {
	SyrupLabel() string
}

// Variant marks a host type as the payload of a tagged-variant
// aggregate: it is encoded as a Record whose label is the Symbol
// VariantName() and whose sole field is the value's own default
// encoding.
type Variant interface {
	VariantName() string
}

// Enumer marks a host type as an enumeration value, encoded as the
// Symbol of its name.
type Enumer interface {
	EnumName() string
}

// Owned is a single-owned pointer shape: unlike a raw Go pointer, which
// this module treats as Nullable/Optional (nil -> Boolean false), an
// Owned[T] is assumed always present and encodes directly as T's own
// encoding.
type Owned[T any] struct {
	Value T
}

var (
	bigIntType    = reflect.TypeOf((*big.Int)(nil))
	syrupWriterIT = reflect.TypeOf((*SyrupWriter)(nil)).Elem()
	variantIT     = reflect.TypeOf((*Variant)(nil)).Elem()
	enumerIT      = reflect.TypeOf((*Enumer)(nil)).Elem()
)

type encodeFn func(w *Writer, dst *Buffer, v reflect.Value) error

var structEncoders sync.Map // reflect.Type -> encodeFn

func compileEncoder(t reflect.Type) (encodeFn, bool) {
	// Delay compilation of (mutually-)recursive types until eval time.
	slow := func(w *Writer, dst *Buffer, v reflect.Value) error {
		fn, ok := encoderFunc(v.Type())
		if !ok {
			return fmt.Errorf("syrup: failed to compile encoder for %s", v.Type())
		}
		return fn(w, dst, v)
	}
	f, loaded := structEncoders.LoadOrStore(t, encodeFn(nil))
	if loaded {
		if fn := f.(encodeFn); fn != nil {
			return fn, true
		}
		return slow, true
	}

	type fieldEnc struct {
		index     int
		nameKey   []byte
		fn        encodeFn
		omitempty bool
	}
	var encs []fieldEnc
	fields := reflect.VisibleFields(t)
	for i := range fields {
		if fields[i].PkgPath != "" || len(fields[i].Index) != 1 {
			continue // unexported or promoted embedded field
		}
		name := fields[i].Name
		omitempty := false
		if tag, ok := fields[i].Tag.Lookup("syrup"); ok {
			n, rest, has := strings.Cut(tag, ",")
			if n == "-" {
				continue
			}
			if n != "" {
				name = n
			}
			omitempty = has && rest == "omitempty"
		}
		efn, ok := encoderFunc(fields[i].Type)
		if !ok {
			continue
		}
		encs = append(encs, fieldEnc{
			index:     fields[i].Index[0],
			nameKey:   []byte(name),
			fn:        efn,
			omitempty: omitempty,
		})
	}
	// Pre-sort the static field table by canonical Symbol key order:
	// field-name Symbols are pre-encoded and sorted once, at
	// schema-compile time, rather than on every encode call. The text
	// and binary encodings frame a Symbol's length differently, so
	// each gets its own order.
	sortedFor := func(enc Encoder) []fieldEnc {
		out := append([]fieldEnc(nil), encs...)
		sortByEncodedKey(out, func(e fieldEnc) []byte {
			var tb Buffer
			enc.WriteSymbol(&tb, string(e.nameKey))
			return tb.Bytes()
		})
		return out
	}
	textOrder, binOrder := sortedFor(TextEncoder{}), sortedFor(BinaryEncoder{})

	self := func(w *Writer, dst *Buffer, src reflect.Value) error {
		order := textOrder
		if _, ok := w.enc.(BinaryEncoder); ok {
			order = binOrder
		}
		w.enc.DictStart(dst)
		for _, e := range order {
			val := src.Field(e.index)
			if e.omitempty && val.IsZero() {
				continue
			}
			w.enc.WriteSymbol(dst, string(e.nameKey))
			if err := e.fn(w, dst, val); err != nil {
				return err
			}
		}
		w.enc.DictEnd(dst)
		return nil
	}
	structEncoders.Store(t, encodeFn(self))
	return self, true
}

func encodeSequence(inner encodeFn) encodeFn {
	return func(w *Writer, dst *Buffer, src reflect.Value) error {
		w.enc.SeqStart(dst)
		for i := 0; i < src.Len(); i++ {
			if err := inner(w, dst, src.Index(i)); err != nil {
				return err
			}
		}
		w.enc.SeqEnd(dst)
		return nil
	}
}

// encoderFunc compiles the shape rule for t.
func encoderFunc(t reflect.Type) (encodeFn, bool) {
	if t == bigIntType {
		return func(w *Writer, dst *Buffer, v reflect.Value) error {
			w.enc.WriteInt(dst, v.Interface().(*big.Int))
			return nil
		}, true
	}
	if t.Implements(syrupWriterIT) {
		return func(w *Writer, dst *Buffer, v reflect.Value) error {
			prev := w.cur
			w.cur = dst
			defer func() { w.cur = prev }()
			return v.Interface().(SyrupWriter).WriteSyrup(w)
		}, true
	}
	if t.Implements(enumerIT) {
		return func(w *Writer, dst *Buffer, v reflect.Value) error {
			w.enc.WriteSymbol(dst, v.Interface().(Enumer).EnumName())
			return nil
		}, true
	}
	if t.Kind() != reflect.Interface && t.Implements(variantIT) {
		// An interface type is dispatched on its dynamic type below.
		inner, ok := variantPayloadEncoder(t)
		if !ok {
			return nil, false
		}
		return func(w *Writer, dst *Buffer, v reflect.Value) error {
			name := v.Interface().(Variant).VariantName()
			if l, ok := v.Interface().(SyrupLabeler); ok {
				name = l.SyrupLabel()
			}
			w.enc.RecStart(dst)
			w.enc.WriteSymbol(dst, name)
			if err := inner(w, dst, v); err != nil {
				return err
			}
			w.enc.RecEnd(dst)
			return nil
		}, true
	}
	if t.Kind() == reflect.Struct && t.NumField() == 1 && t.Field(0).Name == "Value" {
		// Owned[T]: encodes directly as the pointed-to value, never as
		// Boolean-false-when-nil like a raw pointer.
		if inner, ok := encoderFunc(t.Field(0).Type); ok {
			return func(w *Writer, dst *Buffer, v reflect.Value) error {
				return inner(w, dst, v.Field(0))
			}, true
		}
	}

	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return func(w *Writer, dst *Buffer, v reflect.Value) error {
			w.enc.WriteInt(dst, big.NewInt(v.Int()))
			return nil
		}, true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return func(w *Writer, dst *Buffer, v reflect.Value) error {
			w.enc.WriteInt(dst, new(big.Int).SetUint64(v.Uint()))
			return nil
		}, true
	case reflect.Float32:
		return func(w *Writer, dst *Buffer, v reflect.Value) error {
			w.enc.WriteFloat32(dst, float32(v.Float()))
			return nil
		}, true
	case reflect.Float64:
		return func(w *Writer, dst *Buffer, v reflect.Value) error {
			w.enc.WriteFloat64(dst, v.Float())
			return nil
		}, true
	case reflect.Bool:
		return func(w *Writer, dst *Buffer, v reflect.Value) error {
			w.enc.WriteBool(dst, v.Bool())
			return nil
		}, true
	case reflect.String:
		return func(w *Writer, dst *Buffer, v reflect.Value) error {
			w.enc.WriteString(dst, v.String())
			return nil
		}, true
	case reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			// Byte-array-like aggregate -> String atom; a nul byte, if
			// present, terminates the string.
			return func(w *Writer, dst *Buffer, v reflect.Value) error {
				b := make([]byte, v.Len())
				reflect.Copy(reflect.ValueOf(b), v)
				if i := indexByte(b, 0); i >= 0 {
					b = b[:i]
				}
				w.enc.WriteString(dst, string(b))
				return nil
			}, true
		}
		inner, ok := encoderFunc(t.Elem())
		if !ok {
			return nil, false
		}
		return encodeSequence(inner), true
	case reflect.Slice:
		elem := t.Elem()
		if elem.Kind() == reflect.Uint8 {
			return func(w *Writer, dst *Buffer, v reflect.Value) error {
				w.enc.WriteBinary(dst, v.Bytes())
				return nil
			}, true
		}
		inner, ok := encoderFunc(elem)
		if !ok {
			return nil, false
		}
		return encodeSequence(inner), true
	case reflect.Map:
		kt := t.Key()
		if isSetShaped(t) {
			inner, ok := encoderFunc(kt)
			if !ok {
				return nil, false
			}
			return func(w *Writer, dst *Buffer, v reflect.Value) error {
				return w.writeSetFromEncoded(dst, v, inner)
			}, true
		}
		if kt.Kind() != reflect.String {
			return nil, false
		}
		vfn, ok := encoderFunc(t.Elem())
		if !ok {
			return nil, false
		}
		return func(w *Writer, dst *Buffer, v reflect.Value) error {
			w.enc.DictStart(dst)
			type kv struct {
				key []byte
				val reflect.Value
			}
			entries := make([]kv, 0, v.Len())
			iter := v.MapRange()
			for iter.Next() {
				entries = append(entries, kv{key: []byte(iter.Key().String()), val: iter.Value()})
			}
			sortByEncodedKey(entries, func(e kv) []byte {
				var tb Buffer
				w.enc.WriteSymbol(&tb, string(e.key))
				return tb.Bytes()
			})
			for _, e := range entries {
				w.enc.WriteSymbol(dst, string(e.key))
				if err := vfn(w, dst, e.val); err != nil {
					return err
				}
			}
			w.enc.DictEnd(dst)
			return nil
		}, true
	case reflect.Struct:
		return compileEncoder(t)
	case reflect.Pointer:
		inner, ok := encoderFunc(t.Elem())
		if !ok {
			return nil, false
		}
		return func(w *Writer, dst *Buffer, v reflect.Value) error {
			if v.IsNil() {
				w.enc.WriteBool(dst, false)
				return nil
			}
			return inner(w, dst, v.Elem())
		}, true
	case reflect.Interface:
		return func(w *Writer, dst *Buffer, v reflect.Value) error {
			if v.IsNil() {
				w.enc.WriteBool(dst, false)
				return nil
			}
			elem := v.Elem()
			fn, ok := encoderFunc(elem.Type())
			if !ok {
				return fmt.Errorf("syrup: cannot encode type %s", elem.Type())
			}
			return fn(w, dst, elem)
		}, true
	default:
		return nil, false
	}
}

// isSetShaped reports whether t is a Go idiom for a set: a map with an
// empty-struct value type (map[K]struct{}).
func isSetShaped(t reflect.Type) bool {
	e := t.Elem()
	return e.Kind() == reflect.Struct && e.NumField() == 0
}

func (w *Writer) writeSetFromEncoded(dst *Buffer, v reflect.Value, keyfn encodeFn) error {
	tmps := make([][]byte, 0, v.Len())
	defer func() {
		for _, b := range tmps {
			w.alloc.Free(b)
		}
	}()
	iter := v.MapRange()
	for iter.Next() {
		tb := &Buffer{buf: w.alloc.Alloc(0)}
		if err := keyfn(w, tb, iter.Key()); err != nil {
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

func indexByte(b []byte, c byte) int {
	for i, x := range b {
		if x == c {
			return i
		}
	}
	return -1
}

// variantPayloadEncoder compiles t's *default* shape rule (bypassing
// the Variant check that led here, to avoid recompiling t as a Record
// inside its own Record): a Variant payload is almost always a struct,
// encoded as the Dictionary its fields would otherwise produce.
func variantPayloadEncoder(t reflect.Type) (encodeFn, bool) {
	if t.Kind() == reflect.Struct {
		return compileEncoder(t)
	}
	return encoderFunc(t)
}

// Marshal encodes src, an arbitrary Go value matched against the
// composing writer's shape table, as the textual Syrup format to sink.
func Marshal(sink io.Writer, src any) error {
	return marshalWith(NewTextWriter(sink, nil), src)
}

// MarshalBinary is Marshal for the binary Preserves encoding.
func MarshalBinary(sink io.Writer, src any) error {
	return marshalWith(NewBinaryWriter(sink, nil), src)
}

func marshalWith(w *Writer, src any) error {
	v := reflect.ValueOf(src)
	fn, ok := encoderFunc(v.Type())
	if !ok {
		return fmt.Errorf("syrup: cannot marshal type %s", v.Type())
	}
	w.buf.Reset()
	w.cur = &w.buf
	if err := fn(w, &w.buf, v); err != nil {
		return err
	}
	_, err := w.buf.WriteTo(w.sink)
	return err
}
