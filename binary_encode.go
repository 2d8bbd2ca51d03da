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
	"math"
	"math/big"
)

// Preserves Binary tag bytes. Reserved tags (0x82, 0x83, 0x88..0xAF,
// 0xB8..0xBF) are never emitted by this encoder.
const (
	tagFalse      = 0x80
	tagTrue       = 0x81
	tagEnd        = 0x84
	tagFloat      = 0x87 // shared by Float32 (LEB128 length 4) and Float64 (length 8)
	tagInteger    = 0xB0
	tagString     = 0xB1
	tagBinary     = 0xB2
	tagSymbol     = 0xB3
	tagRecord     = 0xB4
	tagSequence   = 0xB5
	tagSet        = 0xB6
	tagDictionary = 0xB7
)

// BinaryEncoder emits the binary (Preserves Binary) encoding of each
// atom and collection marker into a Buffer. It is stateless, like
// TextEncoder: every method only appends a tag byte, an optional
// LEB128 length, and a payload.
type BinaryEncoder struct{}

func (BinaryEncoder) WriteBool(dst *Buffer, v bool) {
	if v {
		dst.WriteByte(tagTrue)
	} else {
		dst.WriteByte(tagFalse)
	}
}

func (BinaryEncoder) WriteFloat32(dst *Buffer, v float32) {
	dst.WriteByte(tagFloat)
	dst.buf = appendLEB128(dst.buf, 4)
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], math.Float32bits(v))
	dst.Write(tmp[:])
}

func (BinaryEncoder) WriteFloat64(dst *Buffer, v float64) {
	dst.WriteByte(tagFloat)
	dst.buf = appendLEB128(dst.buf, 8)
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], math.Float64bits(v))
	dst.Write(tmp[:])
}

// WriteInt writes a signed integer as tag 0xB0, an unsigned LEB128
// minimum byte width, and that many two's-complement big-endian bytes.
// Zero encodes as an empty payload (width 0).
func (BinaryEncoder) WriteInt(dst *Buffer, v *big.Int) {
	dst.WriteByte(tagInteger)
	w := minWidth(v)
	dst.buf = appendLEB128(dst.buf, uint64(w))
	dst.Write(twosComplementBytes(v, w))
}

func (BinaryEncoder) WriteBinary(dst *Buffer, v []byte) {
	dst.WriteByte(tagBinary)
	dst.buf = appendLEB128(dst.buf, uint64(len(v)))
	dst.Write(v)
}

func (BinaryEncoder) WriteString(dst *Buffer, v string) {
	dst.WriteByte(tagString)
	dst.buf = appendLEB128(dst.buf, uint64(len(v)))
	dst.WriteString(v)
}

func (BinaryEncoder) WriteSymbol(dst *Buffer, v string) {
	dst.WriteByte(tagSymbol)
	dst.buf = appendLEB128(dst.buf, uint64(len(v)))
	dst.WriteString(v)
}

func (BinaryEncoder) DictStart(dst *Buffer) { dst.WriteByte(tagDictionary) }
func (BinaryEncoder) DictEnd(dst *Buffer)   { dst.WriteByte(tagEnd) }
func (BinaryEncoder) SeqStart(dst *Buffer)  { dst.WriteByte(tagSequence) }
func (BinaryEncoder) SeqEnd(dst *Buffer)    { dst.WriteByte(tagEnd) }
func (BinaryEncoder) RecStart(dst *Buffer)  { dst.WriteByte(tagRecord) }
func (BinaryEncoder) RecEnd(dst *Buffer)    { dst.WriteByte(tagEnd) }
func (BinaryEncoder) SetStart(dst *Buffer)  { dst.WriteByte(tagSet) }
func (BinaryEncoder) SetEnd(dst *Buffer)    { dst.WriteByte(tagEnd) }

// appendLEB128 appends v as an unsigned little-endian base-128
// varint: seven payload bits per byte, continuation bit (0x80) set on
// every byte but the last.
func appendLEB128(dst []byte, v uint64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			dst = append(dst, b|0x80)
		} else {
			dst = append(dst, b)
			return dst
		}
	}
}

// minWidth computes the minimum two's-complement byte width needed to
// represent v unambiguously: ⌈(bitlen(|v|)+1)/8⌉ for v != 0, or 0 for
// v == 0. This is not bit-optimal for negative powers of two (e.g.
// -128 takes 2 bytes rather than the theoretically minimal 1), since
// the width is derived from the magnitude's bit length rather than a
// true signed bit-length calculation.
func minWidth(v *big.Int) int {
	if v.Sign() == 0 {
		return 0
	}
	mag := new(big.Int).Abs(v)
	return (mag.BitLen() + 1 + 7) / 8
}

// twosComplementBytes renders v as `width` big-endian two's-complement
// bytes. width must be minWidth(v) or larger.
func twosComplementBytes(v *big.Int, width int) []byte {
	if width == 0 {
		return nil
	}
	out := make([]byte, width)
	if v.Sign() >= 0 {
		b := v.Bytes()
		copy(out[width-len(b):], b)
		return out
	}
	mod := new(big.Int).Lsh(big.NewInt(1), uint(width*8))
	comp := new(big.Int).Add(mod, v)
	b := comp.Bytes()
	copy(out[width-len(b):], b)
	return out
}
