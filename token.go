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

import "math/big"

// TokenKind identifies which alternative of the scanner's token
// algebra a Token holds.
type TokenKind byte

const (
	TokBool TokenKind = iota
	TokFloat
	TokDouble
	TokInteger
	TokBinary
	TokString
	TokSymbol
	TokPartialFloat
	TokPartialDouble
	TokPartialBinary
	TokPartialString
	TokPartialSymbol
	TokPartialNumber
	TokDictStart
	TokSeqStart
	TokRecStart
	TokSetStart
	TokDictEnd
	TokSeqEnd
	TokRecEnd
	TokSetEnd
	TokEndOfDocument
)

func (k TokenKind) String() string {
	switch k {
	case TokBool:
		return "Boolean"
	case TokFloat:
		return "Float"
	case TokDouble:
		return "Double"
	case TokInteger:
		return "Integer"
	case TokBinary:
		return "Binary"
	case TokString:
		return "String"
	case TokSymbol:
		return "Symbol"
	case TokPartialFloat:
		return "PartialFloat"
	case TokPartialDouble:
		return "PartialDouble"
	case TokPartialBinary:
		return "PartialBinary"
	case TokPartialString:
		return "PartialString"
	case TokPartialSymbol:
		return "PartialSymbol"
	case TokPartialNumber:
		return "PartialNumber"
	case TokDictStart:
		return "DictStart"
	case TokSeqStart:
		return "SeqStart"
	case TokRecStart:
		return "RecStart"
	case TokSetStart:
		return "SetStart"
	case TokDictEnd:
		return "DictEnd"
	case TokSeqEnd:
		return "SeqEnd"
	case TokRecEnd:
		return "RecEnd"
	case TokSetEnd:
		return "SetEnd"
	case TokEndOfDocument:
		return "EndOfDocument"
	default:
		return "invalid"
	}
}

// Sign is the sign of an Integer token, read from the trailing '+' or
// '-' byte of the textual encoding.
type Sign int8

const (
	Positive Sign = 1
	Negative Sign = -1
)

// Token is one element of the scanner's output stream. Only the fields
// relevant to Kind are populated.
//
// Full payload tokens (Binary/String/Symbol) borrow Bytes from the
// scanner's current input buffer: the caller must consume the token
// before the next feed() that would invalidate the slice. Partial*
// tokens' Bytes are a fragment of the same payload; Remaining is the
// count of payload bytes still to come after this fragment.
type Token struct {
	Kind TokenKind

	Bool bool

	// Float/Double: full 4 or 8 raw big-endian bytes once fully
	// delivered. PartialFloat/PartialDouble: the fragment seen so far
	// plus Remaining.
	Bytes     []byte
	Remaining int

	// Integer / PartialNumber: the decimal digit bytes found in the
	// current input buffer (digits from earlier buffers were carried by
	// preceding PartialNumber tokens), the magnitude accumulated over
	// all of them, and (for a full Integer) the sign.
	Digits    []byte
	Magnitude uint64
	BigMag    *big.Int // non-nil only if Magnitude overflowed uint64; resolves Open Question (a)
	IntSign   Sign
}
