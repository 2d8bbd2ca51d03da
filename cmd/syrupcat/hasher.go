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

package main

import "golang.org/x/crypto/blake2b"

// hasherCloser is an io.Writer that also exposes hash.Hash's Sum, used
// as the -fingerprint sink so convertOne can write to it like any other
// destination.
type hasherCloser interface {
	Write(p []byte) (int, error)
	Sum(b []byte) []byte
}

func newHasher() hasherCloser {
	h, err := blake2b.New256(nil)
	if err != nil {
		// blake2b.New256(nil) only fails for a bad key length, and nil
		// is always a valid (unkeyed) key.
		panic(err)
	}
	return h
}
