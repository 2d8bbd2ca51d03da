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

import "sync"

// Allocator is an external allocation collaborator: every partial
// payload the plan engine copies, and every
// temporary buffer the composing writer uses to canonicalize a Set,
// flows through one. The zero-allocation path (fixed-size primitives,
// borrow-only reads of fully contained payloads) never touches it.
type Allocator interface {
	// Alloc returns a buffer of at least n bytes, length n.
	Alloc(n int) []byte
	// Free returns a buffer previously obtained from Alloc. Callers
	// must not use buf after calling Free.
	Free(buf []byte)
}

// PoolAllocator is the default Allocator, backed by a sync.Pool of
// scratch buffers, reusing scratch space rather than allocating a
// fresh slice per value.
type PoolAllocator struct {
	pool sync.Pool
}

// NewPoolAllocator returns an Allocator suitable for a single Parse or
// Decoder; it is safe for concurrent use but buffers are not shared
// across independently-constructed PoolAllocators.
func NewPoolAllocator() *PoolAllocator {
	return &PoolAllocator{}
}

func (p *PoolAllocator) Alloc(n int) []byte {
	if v := p.pool.Get(); v != nil {
		buf := v.([]byte)
		if cap(buf) >= n {
			return buf[:n]
		}
	}
	return make([]byte, n)
}

func (p *PoolAllocator) Free(buf []byte) {
	p.pool.Put(buf[:0:cap(buf)])
}

// defaultAllocator is used by entry points that don't accept an
// explicit Allocator.
var defaultAllocator Allocator = NewPoolAllocator()
