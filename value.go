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
	"math"
	"math/big"

	"golang.org/x/exp/slices"
)

// Field is a single key/value entry of a Dictionary.
type Field struct {
	Key   Value
	Value Value
}

// Value is the abstract value algebra shared by the textual (Syrup)
// and binary (Preserves Binary) encodings: booleans, floats, signed
// arbitrary-precision integers, byte strings, text strings, symbols,
// sequences, sets, dictionaries, and records.
//
// A Value is an immutable, self-describing tagged union. Construct one
// with Bool, Float32, Float64, Int, Binary, String, Symbol, Sequence,
// Set, Dictionary, or Record.
type Value struct {
	kind  Kind
	b     bool
	f32   float32
	f64   float64
	i     *big.Int
	bytes []byte   // Binary / String / Symbol payload
	list  []Value  // Sequence / Set members
	dict  []Field  // Dictionary entries, caller order (not yet canonicalized)
	label Value    // Record label
	rec   []Value  // Record fields
}

// Kind reports which variant v holds.
func (v Value) Kind() Kind { return v.kind }

func Bool(b bool) Value { return Value{kind: BoolKind, b: b} }

func Float32(f float32) Value { return Value{kind: Float32Kind, f32: f} }

func Float64(f float64) Value { return Value{kind: Float64Kind, f64: f} }

// Int wraps any Go signed or unsigned integer width into an arbitrary
// precision Integer value. Unsigned instantiations go through
// SetUint64 rather than a cast through int64, which would reinterpret
// values at or above 1<<63 as negative.
func Int[T int | int8 | int16 | int32 | int64 | uint | uint8 | uint16 | uint32 | uint64](n T) Value {
	switch v := any(n).(type) {
	case uint:
		return Value{kind: IntKind, i: new(big.Int).SetUint64(uint64(v))}
	case uint8:
		return Value{kind: IntKind, i: new(big.Int).SetUint64(uint64(v))}
	case uint16:
		return Value{kind: IntKind, i: new(big.Int).SetUint64(uint64(v))}
	case uint32:
		return Value{kind: IntKind, i: new(big.Int).SetUint64(uint64(v))}
	case uint64:
		return Value{kind: IntKind, i: new(big.Int).SetUint64(v)}
	default:
		return Value{kind: IntKind, i: new(big.Int).SetInt64(int64(n))}
	}
}

// BigInt wraps an arbitrary-precision integer directly.
func BigInt(n *big.Int) Value {
	return Value{kind: IntKind, i: new(big.Int).Set(n)}
}

func Binary(b []byte) Value { return Value{kind: BinaryKind, bytes: slices.Clone(b)} }

func String(s string) Value { return Value{kind: StringKind, bytes: []byte(s)} }

func Symbol(s string) Value { return Value{kind: SymbolKind, bytes: []byte(s)} }

func Sequence(items ...Value) Value { return Value{kind: SequenceKind, list: items} }

func Set(members ...Value) Value { return Value{kind: SetKind, list: members} }

func Dictionary(fields ...Field) Value { return Value{kind: DictionaryKind, dict: fields} }

func Record(label Value, fields ...Value) Value {
	return Value{kind: RecordKind, label: label, rec: fields}
}

func (v Value) AsBool() (bool, bool) {
	if v.kind != BoolKind {
		return false, false
	}
	return v.b, true
}

func (v Value) AsFloat32() (float32, bool) {
	if v.kind != Float32Kind {
		return 0, false
	}
	return v.f32, true
}

func (v Value) AsFloat64() (float64, bool) {
	if v.kind != Float64Kind {
		return 0, false
	}
	return v.f64, true
}

func (v Value) AsInt() (*big.Int, bool) {
	if v.kind != IntKind {
		return nil, false
	}
	return v.i, true
}

func (v Value) AsBinary() ([]byte, bool) {
	if v.kind != BinaryKind {
		return nil, false
	}
	return v.bytes, true
}

func (v Value) AsString() (string, bool) {
	if v.kind != StringKind {
		return "", false
	}
	return string(v.bytes), true
}

func (v Value) AsSymbol() (string, bool) {
	if v.kind != SymbolKind {
		return "", false
	}
	return string(v.bytes), true
}

func (v Value) AsSequence() ([]Value, bool) {
	if v.kind != SequenceKind {
		return nil, false
	}
	return v.list, true
}

func (v Value) AsSet() ([]Value, bool) {
	if v.kind != SetKind {
		return nil, false
	}
	return v.list, true
}

func (v Value) AsDictionary() ([]Field, bool) {
	if v.kind != DictionaryKind {
		return nil, false
	}
	return v.dict, true
}

func (v Value) AsRecord() (Value, []Value, bool) {
	if v.kind != RecordKind {
		return Value{}, nil, false
	}
	return v.label, v.rec, true
}

// Equal reports whether v and x denote the same abstract value.
// Set and Dictionary equality is by membership/key-value association,
// not by the order in which members were supplied.
func (v Value) Equal(x Value) bool {
	if v.kind != x.kind {
		return false
	}
	switch v.kind {
	case BoolKind:
		return v.b == x.b
	case Float32Kind:
		return v.f32 == x.f32 || (math.IsNaN(float64(v.f32)) && math.IsNaN(float64(x.f32)))
	case Float64Kind:
		return v.f64 == x.f64 || (math.IsNaN(v.f64) && math.IsNaN(x.f64))
	case IntKind:
		return v.i.Cmp(x.i) == 0
	case BinaryKind, StringKind, SymbolKind:
		return slices.Equal(v.bytes, x.bytes)
	case SequenceKind:
		if len(v.list) != len(x.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(x.list[i]) {
				return false
			}
		}
		return true
	case SetKind:
		return setEqual(v.list, x.list)
	case DictionaryKind:
		return dictEqual(v.dict, x.dict)
	case RecordKind:
		if !v.label.Equal(x.label) || len(v.rec) != len(x.rec) {
			return false
		}
		for i := range v.rec {
			if !v.rec[i].Equal(x.rec[i]) {
				return false
			}
		}
		return true
	}
	return false
}

func setEqual(a, b []Value) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
outer:
	for _, av := range a {
		for j, bv := range b {
			if !used[j] && av.Equal(bv) {
				used[j] = true
				continue outer
			}
		}
		return false
	}
	return true
}

func dictEqual(a, b []Field) bool {
	if len(a) != len(b) {
		return false
	}
	used := make([]bool, len(b))
outer:
	for _, af := range a {
		for j, bf := range b {
			if !used[j] && af.Key.Equal(bf.Key) && af.Value.Equal(bf.Value) {
				used[j] = true
				continue outer
			}
		}
		return false
	}
	return true
}
