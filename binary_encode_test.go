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

func TestWriteIntMinimumWidth(t *testing.T) {
	cases := []struct {
		v    int64
		want []byte
	}{
		{0, []byte{tagInteger, 0x00}},
		{-34203, []byte{tagInteger, 0x03, 0xff, 0x7a, 0x65}},
		{127, []byte{tagInteger, 0x01, 0x7f}},
		{128, []byte{tagInteger, 0x02, 0x00, 0x80}},
		{-1, []byte{tagInteger, 0x01, 0xff}},
		{-128, []byte{tagInteger, 0x02, 0xff, 0x80}},
		{-129, []byte{tagInteger, 0x02, 0xff, 0x7f}},
	}
	var buf Buffer
	enc := BinaryEncoder{}
	for _, c := range cases {
		buf.Reset()
		enc.WriteInt(&buf, big.NewInt(c.v))
		if !bytes.Equal(buf.Bytes(), c.want) {
			t.Errorf("WriteInt(%d): got % 02x, want % 02x", c.v, buf.Bytes(), c.want)
		}
	}
}

func TestAppendLEB128(t *testing.T) {
	cases := []struct {
		v    uint64
		want []byte
	}{
		{0, []byte{0x00}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{300, []byte{0xac, 0x02}},
	}
	for _, c := range cases {
		got := appendLEB128(nil, c.v)
		if !bytes.Equal(got, c.want) {
			t.Errorf("appendLEB128(%d): got % 02x, want % 02x", c.v, got, c.want)
		}
	}
}

func TestMinWidthZero(t *testing.T) {
	if w := minWidth(big.NewInt(0)); w != 0 {
		t.Errorf("minWidth(0) = %d, want 0", w)
	}
}
