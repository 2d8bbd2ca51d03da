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
	"fmt"
	"sync"
	"testing"
)

type Point struct {
	X int64 `syrup:"x"`
	Y int64 `syrup:"y"`
}

type Widget struct {
	Name  string  `syrup:"name"`
	Count int     `syrup:"count"`
	Tag   string  `syrup:"tag,omitempty"`
	Loc   *Point  `syrup:"loc,omitempty"`
	Data  []byte  `syrup:"data,omitempty"`
	Kids  []int64 `syrup:"kids,omitempty"`
}

type colorEnum int

const (
	colorRed colorEnum = iota
	colorGreen
	colorBlue
)

func (c colorEnum) EnumName() string {
	switch c {
	case colorRed:
		return "red"
	case colorGreen:
		return "green"
	case colorBlue:
		return "blue"
	}
	return ""
}

func (c *colorEnum) SetEnumName(name string) error {
	switch name {
	case "red":
		*c = colorRed
	case "green":
		*c = colorGreen
	case "blue":
		*c = colorBlue
	default:
		return fmt.Errorf("unknown color %q", name)
	}
	return nil
}

type Swatch struct {
	Color colorEnum `syrup:"color"`
}

type Shape interface {
	VariantName() string
}

type Circle struct {
	Radius int64 `syrup:"radius"`
}

func (Circle) VariantName() string { return "circle" }

type Square struct {
	Side int64 `syrup:"side"`
}

func (Square) VariantName() string { return "square" }

func init() {
	RegisterVariant[Shape, Circle]("circle")
	RegisterVariant[Shape, Square]("square")
}

type ShapeHolder struct {
	S Shape `syrup:"shape"`
}

func TestStructRoundTripBasic(t *testing.T) {
	w := Widget{Name: "widget", Count: 3, Data: []byte{1, 2, 3}, Kids: []int64{4, 5, 6}}
	var buf bytes.Buffer
	if err := Marshal(&buf, w); err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got Widget
	if err := Unmarshal(&buf, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Name != w.Name || got.Count != w.Count || !bytes.Equal(got.Data, w.Data) || len(got.Kids) != len(w.Kids) {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, w)
	}
	for i := range w.Kids {
		if got.Kids[i] != w.Kids[i] {
			t.Fatalf("kids[%d]: got %d, want %d", i, got.Kids[i], w.Kids[i])
		}
	}
}

func TestStructRoundTripOptionalPointer(t *testing.T) {
	w := Widget{Name: "located", Count: 1, Loc: &Point{X: 10, Y: -20}}
	var buf bytes.Buffer
	if err := Marshal(&buf, w); err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got Widget
	if err := Unmarshal(&buf, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Loc == nil || got.Loc.X != 10 || got.Loc.Y != -20 {
		t.Fatalf("expected decoded Loc {10 -20}, got %+v", got.Loc)
	}
}

func TestStructRoundTripOptionalPointerNil(t *testing.T) {
	w := Widget{Name: "bare", Count: 1}
	var buf bytes.Buffer
	if err := Marshal(&buf, w); err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got Widget
	if err := Unmarshal(&buf, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Loc != nil {
		t.Fatalf("expected nil Loc, got %+v", got.Loc)
	}
}

func TestEnumRoundTrip(t *testing.T) {
	s := Swatch{Color: colorGreen}
	var buf bytes.Buffer
	if err := Marshal(&buf, s); err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got Swatch
	if err := Unmarshal(&buf, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Color != colorGreen {
		t.Fatalf("expected colorGreen, got %v", got.Color)
	}
}

func TestVariantRoundTrip(t *testing.T) {
	cases := []ShapeHolder{
		{S: Circle{Radius: 5}},
		{S: Square{Side: 7}},
	}
	for _, c := range cases {
		var buf bytes.Buffer
		if err := Marshal(&buf, c); err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		var got ShapeHolder
		if err := Unmarshal(&buf, &got); err != nil {
			t.Fatalf("Unmarshal: %v", err)
		}
		if got.S != c.S {
			t.Fatalf("round trip mismatch: got %+v, want %+v", got.S, c.S)
		}
	}
}

func TestMissingKeyError(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, Dictionary(Field{Key: Symbol("name"), Value: String("x")})); err != nil {
		t.Fatal(err)
	}
	var got Widget
	err := Unmarshal(&buf, &got)
	if _, ok := err.(*MissingKeyError); !ok {
		t.Fatalf("expected *MissingKeyError, got %v", err)
	}
}

func TestUnknownKeyError(t *testing.T) {
	var buf bytes.Buffer
	v := Dictionary(
		Field{Key: Symbol("name"), Value: String("x")},
		Field{Key: Symbol("count"), Value: Int(1)},
		Field{Key: Symbol("bogus"), Value: Int(1)},
	)
	if err := Write(&buf, v); err != nil {
		t.Fatal(err)
	}
	var got Widget
	err := Unmarshal(&buf, &got)
	if _, ok := err.(*UnknownKeyError); !ok {
		t.Fatalf("expected *UnknownKeyError, got %v", err)
	}
}

func TestKeyFoundBeforeError(t *testing.T) {
	var buf bytes.Buffer
	v := Dictionary(
		Field{Key: Symbol("name"), Value: String("x")},
		Field{Key: Symbol("count"), Value: Int(1)},
		Field{Key: Symbol("name"), Value: String("y")},
	)
	if err := Write(&buf, v); err != nil {
		t.Fatal(err)
	}
	var got Widget
	err := Unmarshal(&buf, &got)
	if _, ok := err.(*KeyFoundBeforeError); !ok {
		t.Fatalf("expected *KeyFoundBeforeError, got %v", err)
	}
}

// countingAllocator wraps PoolAllocator, tracking outstanding Alloc
// calls without a matching Free so a failed decode partway through a
// struct/Set/Dictionary can be checked for leaked scratch buffers.
type countingAllocator struct {
	mu           sync.Mutex
	outstanding  int
	*PoolAllocator
}

func newCountingAllocator() *countingAllocator {
	return &countingAllocator{PoolAllocator: NewPoolAllocator()}
}

func (c *countingAllocator) Alloc(n int) []byte {
	c.mu.Lock()
	c.outstanding++
	c.mu.Unlock()
	return c.PoolAllocator.Alloc(n)
}

func (c *countingAllocator) Free(buf []byte) {
	c.mu.Lock()
	c.outstanding--
	c.mu.Unlock()
	c.PoolAllocator.Free(buf)
}

// TestDecodeFailureAtomicity induces an UnknownKeyError partway through
// a struct whose already-committed fields include an allocator-owned
// Binary buffer, and checks that cleanup released everything: a failed
// Decode must not leak any outstanding Allocator buffer.
func TestDecodeFailureAtomicity(t *testing.T) {
	var buf bytes.Buffer
	v := Dictionary(
		Field{Key: Symbol("name"), Value: String("x")},
		Field{Key: Symbol("count"), Value: Int(1)},
		Field{Key: Symbol("data"), Value: Binary([]byte{9, 9, 9, 9})},
		Field{Key: Symbol("bogus"), Value: Int(1)},
	)
	if err := Write(&buf, v); err != nil {
		t.Fatal(err)
	}
	alloc := newCountingAllocator()
	d := NewDecoder(&buf, 0)
	d.SetAllocator(alloc)
	var got Widget
	err := d.Decode(&got)
	if _, ok := err.(*UnknownKeyError); !ok {
		t.Fatalf("expected *UnknownKeyError, got %v", err)
	}
	if alloc.outstanding != 0 {
		t.Fatalf("leaked %d allocator buffers after failed decode", alloc.outstanding)
	}
}

// TestDecodeFailureAtomicityMap is the map[string][]byte analogue of
// TestDecodeFailureAtomicity: one Dictionary entry decodes successfully
// into a Binary value that aliases an allocator buffer before a later
// entry fails, and the map's already-committed entry must still be
// released by cleanup.
func TestDecodeFailureAtomicityMap(t *testing.T) {
	var buf bytes.Buffer
	v := Dictionary(
		Field{Key: Symbol("first"), Value: Binary([]byte{1, 2, 3, 4})},
		Field{Key: Symbol("second"), Value: Int(1)}, // wrong shape for []byte, fails mid-decode
	)
	if err := Write(&buf, v); err != nil {
		t.Fatal(err)
	}
	alloc := newCountingAllocator()
	d := NewDecoder(&buf, 0)
	d.SetAllocator(alloc)
	var got map[string][]byte
	err := d.Decode(&got)
	if err == nil {
		t.Fatalf("expected decode error, got nil (got=%+v)", got)
	}
	if alloc.outstanding != 0 {
		t.Fatalf("leaked %d allocator buffers after failed map decode", alloc.outstanding)
	}
}
