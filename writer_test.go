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
	"bytes"
	"math/big"
	"testing"
)

func roundTripValue(t *testing.T, v Value) Value {
	t.Helper()
	var buf bytes.Buffer
	if err := Write(&buf, v); err != nil {
		t.Fatalf("Write: %v", err)
	}
	d := NewDecoder(&buf, 0)
	got, err := d.DecodeValue()
	if err != nil {
		t.Fatalf("DecodeValue: %v", err)
	}
	return got
}

func TestValueRoundTripAtoms(t *testing.T) {
	cases := []Value{
		Bool(true),
		Bool(false),
		Float32(3.5),
		Float64(-2.25),
		Int(42),
		Int(-34203),
		String("hello"),
		Symbol("world"),
		Binary([]byte{0x01, 0x02, 0x03}),
	}
	for _, c := range cases {
		got := roundTripValue(t, c)
		if !got.Equal(c) {
			t.Errorf("round trip mismatch: sent %+v, got %+v", c, got)
		}
	}
}

// TestIntLargeUnsigned checks that an unsigned value at or above 1<<63
// keeps its sign: a naive cast through int64 would reinterpret it as
// negative.
func TestIntLargeUnsigned(t *testing.T) {
	want := new(big.Int).Lsh(big.NewInt(1), 63) // 1<<63, exceeds int64's range
	v := Int(uint64(1) << 63)
	got, ok := v.AsInt()
	if !ok || got.Cmp(want) != 0 {
		t.Fatalf("Int(uint64(1)<<63): got %v, want %v", got, want)
	}

	maxUint := Int(^uint(0))
	wantMax := new(big.Int).SetUint64(uint64(^uint(0)))
	gotMax, ok := maxUint.AsInt()
	if !ok || gotMax.Cmp(wantMax) != 0 {
		t.Fatalf("Int(^uint(0)): got %v, want %v", gotMax, wantMax)
	}

	rt := roundTripValue(t, v)
	if !rt.Equal(v) {
		t.Fatalf("round trip of Int(uint64(1)<<63) mismatch: got %+v, want %+v", rt, v)
	}
}

func TestValueRoundTripAggregates(t *testing.T) {
	cases := []Value{
		Sequence(Int(1), Int(2), String("three")),
		Set(Symbol("a"), Symbol("b"), Symbol("c")),
		Dictionary(
			Field{Key: Symbol("one"), Value: Int(1)},
			Field{Key: Symbol("two"), Value: Int(2)},
		),
		Record(Symbol("point"), Int(1), Int(2)),
		Sequence(Sequence(Int(1)), Dictionary(Field{Key: Symbol("k"), Value: Set(Int(1), Int(2))})),
	}
	for _, c := range cases {
		got := roundTripValue(t, c)
		if !got.Equal(c) {
			t.Errorf("round trip mismatch: sent %+v, got %+v", c, got)
		}
	}
}

// TestSetCanonicalOrder checks that Set members are emitted sorted by
// the lexicographic byte order of their own encoding, regardless of
// construction order.
func TestSetCanonicalOrder(t *testing.T) {
	forward := Set(Symbol("zebra"), Symbol("apple"), Symbol("mango"))
	backward := Set(Symbol("mango"), Symbol("zebra"), Symbol("apple"))

	var bufA, bufB bytes.Buffer
	if err := Write(&bufA, forward); err != nil {
		t.Fatal(err)
	}
	if err := Write(&bufB, backward); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(bufA.Bytes(), bufB.Bytes()) {
		t.Fatalf("set encoding not canonicalized: %q vs %q", bufA.Bytes(), bufB.Bytes())
	}
}

// TestDictionaryCanonicalOrder is the Dictionary analogue of
// TestSetCanonicalOrder.
func TestDictionaryCanonicalOrder(t *testing.T) {
	forward := Dictionary(
		Field{Key: Symbol("zebra"), Value: Int(1)},
		Field{Key: Symbol("apple"), Value: Int(2)},
	)
	backward := Dictionary(
		Field{Key: Symbol("apple"), Value: Int(2)},
		Field{Key: Symbol("zebra"), Value: Int(1)},
	)
	var bufA, bufB bytes.Buffer
	if err := Write(&bufA, forward); err != nil {
		t.Fatal(err)
	}
	if err := Write(&bufB, backward); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(bufA.Bytes(), bufB.Bytes()) {
		t.Fatalf("dictionary encoding not canonicalized: %q vs %q", bufA.Bytes(), bufB.Bytes())
	}
}

func TestBinaryWriterDictionaryTag(t *testing.T) {
	v := Dictionary(
		Field{Key: Symbol("name"), Value: String("widget")},
		Field{Key: Symbol("count"), Value: Int(7)},
	)
	var buf bytes.Buffer
	if err := WriteBinary(&buf, v); err != nil {
		t.Fatalf("WriteBinary: %v", err)
	}
	// The binary encoding must not contain any of the textual
	// delimiter bytes ('{', '}', etc.) verbatim as structural markers;
	// spot check the framing tags instead.
	if buf.Bytes()[0] != tagDictionary {
		t.Fatalf("expected leading dictionary tag 0x%02x, got 0x%02x", tagDictionary, buf.Bytes()[0])
	}
}
