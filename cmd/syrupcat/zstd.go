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

import (
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
)

// zstdFileSink wraps a *zstd.Encoder over a freshly created file,
// closing both the encoder (to flush the final frame) and the
// underlying file on Close.
type zstdFileSink struct {
	enc *zstd.Encoder
	f   *os.File
}

func (z *zstdFileSink) Write(p []byte) (int, error) { return z.enc.Write(p) }

func (z *zstdFileSink) Close() error {
	if err := z.enc.Close(); err != nil {
		z.f.Close()
		return err
	}
	return z.f.Close()
}

func newZstdSink(path string) io.WriteCloser {
	f, err := os.Create(path)
	if err != nil {
		exitf("creating archive %s: %s\n", path, err)
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		f.Close()
		exitf("initializing zstd encoder: %s\n", err)
	}
	return &zstdFileSink{enc: enc, f: f}
}
