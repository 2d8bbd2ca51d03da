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

// Command syrupcat re-encodes textual Syrup documents as textual Syrup
// or as binary (Preserves Binary): read each argument (or stdin),
// decode one value at a time, and re-encode it to the requested output
// format. Input is always decoded as textual Syrup; binary input is
// not accepted.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/basinware/syrup"
)

var (
	dashv    bool
	dashbin  bool
	dasho    string
	dashfp   bool
	dasharc  string
	dashconf string
)

func init() {
	flag.BoolVar(&dashv, "v", false, "verbose")
	flag.BoolVar(&dashbin, "b", false, "emit Preserves Binary instead of textual Syrup")
	flag.StringVar(&dasho, "o", "-", "output file (or - for stdout)")
	flag.BoolVar(&dashfp, "fingerprint", false, "print a blake2b-256 fingerprint of the canonical binary encoding instead of writing it")
	flag.StringVar(&dasharc, "archive", "", "also write a zstd-compressed copy of the output to this path")
	flag.StringVar(&dashconf, "config", "", "YAML config file providing defaults for -b/-archive (flags override)")
}

func exitf(f string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, f, args...)
	os.Exit(1)
}

func logf(runID, f string, args ...interface{}) {
	if !dashv {
		return
	}
	if f[len(f)-1] != '\n' {
		f += "\n"
	}
	fmt.Fprintf(os.Stderr, "[%s] "+f, append([]interface{}{runID}, args...)...)
}

// config is the shape of a -config YAML file, decoded with
// sigs.k8s.io/yaml the way a deployment config would be loaded.
type config struct {
	Binary  bool   `json:"binary"`
	Archive string `json:"archive"`
}

func loadConfig(path string) config {
	var c config
	if path == "" {
		return c
	}
	data, err := os.ReadFile(path)
	if err != nil {
		exitf("reading config %s: %s\n", path, err)
	}
	if err := yamlUnmarshal(data, &c); err != nil {
		exitf("parsing config %s: %s\n", path, err)
	}
	return c
}

func convert(runID string, args []string) {
	cfg := loadConfig(dashconf)
	binary := dashbin || cfg.Binary
	archivePath := dasharc
	if archivePath == "" {
		archivePath = cfg.Archive
	}

	var out io.Writer = os.Stdout
	var outFile *os.File
	if dasho != "-" {
		f, err := os.Create(dasho)
		if err != nil {
			exitf("creating output: %s\n", err)
		}
		defer f.Close()
		outFile = f
		out = f
	}

	if len(args) == 0 {
		args = []string{"-"}
	}

	// -fingerprint always hashes the canonical binary encoding,
	// independent of -b/-archive: the fingerprint is meant to let two
	// documents be compared without a byte-for-byte diff, not to also
	// persist a converted copy.
	var hasher hasherCloser
	if dashfp {
		hasher = newHasher()
		out = hasher
		binary = true
	} else if archivePath != "" {
		archive := newZstdSink(archivePath)
		defer archive.Close()
		out = io.MultiWriter(out, archive)
	}

	for _, arg := range args {
		var in io.Reader
		if arg == "-" {
			in = os.Stdin
		} else {
			f, err := os.Open(arg)
			if err != nil {
				exitf("opening %q: %s\n", arg, err)
			}
			defer f.Close()
			in = f
		}
		logf(runID, "converting %s (binary=%v)", arg, binary)
		if err := convertOne(bufio.NewReader(in), out, binary); err != nil && err != io.EOF {
			exitf("converting %s: %s\n", arg, err)
		}
	}

	if dashfp {
		fmt.Fprintf(os.Stdout, "%x\n", hasher.Sum(nil))
		return
	}

	if outFile != nil {
		if err := outFile.Sync(); err != nil {
			exitf("syncing output: %s\n", err)
		}
	}
}

// convertOne decodes every top-level value from src and re-encodes it
// to dst in the requested format, stopping cleanly at end of stream.
func convertOne(src io.Reader, dst io.Writer, binary bool) error {
	d := syrup.NewDecoder(src, 0)
	for {
		v, err := d.DecodeValue()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if binary {
			if err := syrup.WriteBinary(dst, v); err != nil {
				return err
			}
		} else {
			if err := syrup.Write(dst, v); err != nil {
				return err
			}
		}
	}
}

func main() {
	flag.Parse()
	args := flag.Args()
	runID := newRunID()
	if dashv {
		logf(runID, "starting, args=%v", args)
	}
	convert(runID, args)
}
