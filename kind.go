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

// Kind identifies the variant of a Value or the shape
// a Token belongs to.
type Kind byte

const (
	InvalidKind Kind = iota
	BoolKind
	Float32Kind
	Float64Kind
	IntKind
	BinaryKind
	StringKind
	SymbolKind
	SequenceKind
	SetKind
	DictionaryKind
	RecordKind
)

func (k Kind) String() string {
	switch k {
	case BoolKind:
		return "bool"
	case Float32Kind:
		return "float32"
	case Float64Kind:
		return "float64"
	case IntKind:
		return "int"
	case BinaryKind:
		return "binary"
	case StringKind:
		return "string"
	case SymbolKind:
		return "symbol"
	case SequenceKind:
		return "sequence"
	case SetKind:
		return "set"
	case DictionaryKind:
		return "dictionary"
	case RecordKind:
		return "record"
	default:
		return "invalid"
	}
}
