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

import "io"

// Buffer is an append-only byte buffer the encoders write into: a thin
// wrapper that defers the io.Writer hand-off until the whole value is
// encoded, so neither encoder needs backpatching of a length prefix
// (Preserves Binary collections are framed by an explicit End tag, and
// Syrup's textual collections by a literal delimiter byte).
type Buffer struct {
	buf []byte
}

// Bytes returns the buffer's contents. The slice is invalidated by the
// next call to a Write method.
func (b *Buffer) Bytes() []byte { return b.buf }

// Reset empties the buffer for reuse.
func (b *Buffer) Reset() { b.buf = b.buf[:0] }

// Set discards the current contents and writes into p from the start.
func (b *Buffer) Set(p []byte) { b.buf = p[:0] }

func (b *Buffer) WriteByte(c byte) error {
	b.buf = append(b.buf, c)
	return nil
}

func (b *Buffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

func (b *Buffer) WriteString(s string) (int, error) {
	b.buf = append(b.buf, s...)
	return len(s), nil
}

// WriteTo implements io.WriterTo.
func (b *Buffer) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(b.buf)
	return int64(n), err
}
