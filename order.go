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

import "golang.org/x/exp/slices"

// compareBytes implements the canonical ordering primitive of §6.3:
// lexicographic byte-order comparison, where a strict prefix is
// smaller than any sequence it prefixes.
func compareBytes(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// sortByEncodedKey canonically orders a set of (encodedKey, value) pairs
// in place by lexicographic byte order of the encoded key, the rule
// used for both dictionary-key and set-member canonicalization.
func sortByEncodedKey[T any](items []T, key func(T) []byte) {
	slices.SortFunc(items, func(a, b T) bool {
		return compareBytes(key(a), key(b)) < 0
	})
}
