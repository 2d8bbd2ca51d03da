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
	"strconv"
)

// TextEncoder emits the textual (Syrup) encoding of each atom and
// collection delimiter into a Buffer. It is stateless: every method
// only appends bytes, never holding state across calls.
type TextEncoder struct{}

func (TextEncoder) WriteBool(dst *Buffer, v bool) {
	if v {
		dst.WriteByte('t')
	} else {
		dst.WriteByte('f')
	}
}

func (TextEncoder) WriteFloat32(dst *Buffer, v float32) {
	dst.WriteByte('F')
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], math.Float32bits(v))
	dst.Write(tmp[:])
}

func (TextEncoder) WriteFloat64(dst *Buffer, v float64) {
	dst.WriteByte('D')
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], math.Float64bits(v))
	dst.Write(tmp[:])
}

// WriteInt writes a signed arbitrary-precision integer as
// `<magnitude><+|->`.
func (TextEncoder) WriteInt(dst *Buffer, v *big.Int) {
	mag := new(big.Int).Abs(v)
	dst.WriteString(mag.String())
	if v.Sign() < 0 {
		dst.WriteByte('-')
	} else {
		dst.WriteByte('+')
	}
}

func (TextEncoder) WriteBinary(dst *Buffer, v []byte) {
	dst.WriteString(strconv.Itoa(len(v)))
	dst.WriteByte(':')
	dst.Write(v)
}

func (TextEncoder) WriteString(dst *Buffer, v string) {
	dst.WriteString(strconv.Itoa(len(v)))
	dst.WriteByte('"')
	dst.WriteString(v)
}

func (TextEncoder) WriteSymbol(dst *Buffer, v string) {
	dst.WriteString(strconv.Itoa(len(v)))
	dst.WriteByte('\'')
	dst.WriteString(v)
}

func (TextEncoder) DictStart(dst *Buffer) { dst.WriteByte('{') }
func (TextEncoder) DictEnd(dst *Buffer)   { dst.WriteByte('}') }
func (TextEncoder) SeqStart(dst *Buffer)  { dst.WriteByte('[') }
func (TextEncoder) SeqEnd(dst *Buffer)    { dst.WriteByte(']') }
func (TextEncoder) RecStart(dst *Buffer)  { dst.WriteByte('<') }
func (TextEncoder) RecEnd(dst *Buffer)    { dst.WriteByte('>') }
func (TextEncoder) SetStart(dst *Buffer)  { dst.WriteByte('#') }
func (TextEncoder) SetEnd(dst *Buffer)    { dst.WriteByte('$') }
