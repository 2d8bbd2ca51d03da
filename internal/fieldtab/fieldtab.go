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

// Package fieldtab implements a SipHash-keyed static lookup table from
// dictionary key bytes to a small integer index, used by the struct
// plan in place of a bare Go map so that a schema's field count (almost
// always under a few dozen) decodes with one hash plus a short linear
// probe rather than a map's pointer-chasing bucket lookup.
package fieldtab

import "github.com/dchest/siphash"

// fixed process-wide key pair; the table is only ever used to disambiguate
// keys compiled from a single Go struct's own field set, so collision
// resistance against an adversarial key choice is not a design goal.
const (
	k0 = 0x9ae16a3b2f90404f
	k1 = 0xc2b2ae3d27d4eb4f
)

// Entry is one row of a compiled Table: a field's canonical key bytes
// and an opaque index the caller assigned it (normally the struct
// field's position in its compiled encode/decode table).
type Entry struct {
	Key   []byte
	Index int
}

// Table is a static, read-only, SipHash-keyed lookup table built once
// at schema-compile time, one per struct type, and probed on every
// dictionary key seen while decoding.
type Table struct {
	buckets [][]Entry
	mask    uint64
}

// Build constructs a Table sized to entries, which must have distinct
// Key values.
func Build(entries []Entry) *Table {
	n := uint64(1)
	for n < uint64(len(entries))*2+1 {
		n <<= 1
	}
	t := &Table{buckets: make([][]Entry, n), mask: n - 1}
	for _, e := range entries {
		h := siphash.Hash(k0, k1, e.Key) & t.mask
		t.buckets[h] = append(t.buckets[h], e)
	}
	return t
}

// Lookup returns the Index registered for key, or (0, false) if key is
// not present in the table.
func (t *Table) Lookup(key []byte) (int, bool) {
	if t == nil {
		return 0, false
	}
	h := siphash.Hash(k0, k1, key) & t.mask
	for _, e := range t.buckets[h] {
		if string(e.Key) == string(key) {
			return e.Index, true
		}
	}
	return 0, false
}
