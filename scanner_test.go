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
	"bytes"
	"testing"
)

// atom collapses a run of Partial* tokens plus their terminating full
// token into one reconstructed payload, so a byte-at-a-time scan and a
// whole-buffer scan can be compared for equivalence regardless of
// where the scanner happened to split the payload.
type atom struct {
	kind  TokenKind
	bytes []byte
	bool  bool
	sign  Sign
	mag   uint64
}

func collapse(t *testing.T, toks []Token) []atom {
	t.Helper()
	var out []atom
	var acc []byte
	accKind := TokenKind(0)
	inPartial := false
	for _, tok := range toks {
		switch tok.Kind {
		case TokPartialFloat, TokPartialDouble, TokPartialBinary, TokPartialString, TokPartialSymbol:
			if !inPartial {
				inPartial = true
				accKind = partialToFull(tok.Kind)
				acc = nil
			}
			acc = append(acc, tok.Bytes...)
		case TokPartialNumber:
			// scanner retains its own accumulator; nothing to collapse.
		case TokFloat, TokBinary, TokString, TokSymbol, TokDouble:
			if inPartial {
				if tok.Kind != accKind {
					t.Fatalf("partial run kind %v terminated by mismatched full kind %v", accKind, tok.Kind)
				}
				acc = append(acc, tok.Bytes...)
				out = append(out, atom{kind: tok.Kind, bytes: acc})
				inPartial = false
				acc = nil
			} else {
				out = append(out, atom{kind: tok.Kind, bytes: tok.Bytes})
			}
		case TokBool:
			out = append(out, atom{kind: tok.Kind, bool: tok.Bool})
		case TokInteger:
			out = append(out, atom{kind: tok.Kind, sign: tok.IntSign, mag: tok.Magnitude})
		default:
			out = append(out, atom{kind: tok.Kind})
		}
	}
	return out
}

func scanAllAtOnce(t *testing.T, input []byte) []Token {
	t.Helper()
	s := NewScanner()
	s.Feed(input)
	s.EndInput()
	var toks []Token
	for {
		tok, err := s.Next()
		if err != nil {
			t.Fatalf("scan error: %v", err)
		}
		toks = append(toks, tok)
		if tok.Kind == TokEndOfDocument {
			return toks
		}
	}
}

func scanByteAtATime(t *testing.T, input []byte) []Token {
	t.Helper()
	s := NewScanner()
	var toks []Token
	i := 0
	for {
		tok, err := s.Next()
		if err == ErrBufferUnderrun {
			if i < len(input) {
				s.Feed(input[i : i+1])
				i++
				continue
			}
			s.EndInput()
			continue
		}
		if err != nil {
			t.Fatalf("scan error: %v", err)
		}
		toks = append(toks, tok)
		if tok.Kind == TokEndOfDocument {
			return toks
		}
	}
}

func assertEqualAtoms(t *testing.T, whole, split []atom) {
	t.Helper()
	if len(whole) != len(split) {
		t.Fatalf("token count mismatch: whole=%d split=%d", len(whole), len(split))
	}
	for i := range whole {
		a, b := whole[i], split[i]
		if a.kind != b.kind || a.bool != b.bool || a.sign != b.sign || a.mag != b.mag || !bytes.Equal(a.bytes, b.bytes) {
			t.Fatalf("atom #%d mismatch: whole=%+v split=%+v", i, a, b)
		}
	}
}

func TestScannerResumability(t *testing.T) {
	messages := [][]byte{
		[]byte("tf"),
		[]byte(`3"foo5'hello`),
		[]byte(`{3'one1+3'two2+}`),
		[]byte(`[tf3"abc]`),
		[]byte(`<5'shape1+>`),
		[]byte(`#3"abc3"def$`),
		[]byte("34203-"),
		[]byte("0+"),
		[]byte(`10:0123456789`),
	}
	for _, msg := range messages {
		whole := collapse(t, scanAllAtOnce(t, msg))
		split := collapse(t, scanByteAtATime(t, msg))
		assertEqualAtoms(t, whole, split)
	}
}

func TestScannerBooleanPair(t *testing.T) {
	toks := scanAllAtOnce(t, []byte("tf"))
	if len(toks) != 3 || toks[0].Kind != TokBool || !toks[0].Bool ||
		toks[1].Kind != TokBool || toks[1].Bool || toks[2].Kind != TokEndOfDocument {
		t.Fatalf("unexpected token stream: %+v", toks)
	}
}

func TestScannerSplitSymbol(t *testing.T) {
	msg := []byte("5'hello")
	for split := 1; split < len(msg); split++ {
		s := NewScanner()
		s.Feed(msg[:split])
		var toks []Token
		for {
			tok, err := s.Next()
			if err == ErrBufferUnderrun {
				break
			}
			if err != nil {
				t.Fatalf("split=%d: scan error: %v", split, err)
			}
			toks = append(toks, tok)
		}
		s.Feed(msg[split:])
		s.EndInput()
		for {
			tok, err := s.Next()
			if err != nil {
				t.Fatalf("split=%d: scan error: %v", split, err)
			}
			toks = append(toks, tok)
			if tok.Kind == TokEndOfDocument {
				break
			}
		}
		got := collapse(t, toks)
		if len(got) != 2 || got[0].kind != TokSymbol || string(got[0].bytes) != "hello" {
			t.Fatalf("split=%d: got %+v", split, got)
		}
	}
}

func TestScannerEmptyRecordIsSyntaxError(t *testing.T) {
	s := NewScanner()
	s.Feed([]byte("<>"))
	s.EndInput()
	if _, err := s.Next(); err != nil {
		t.Fatalf("RecStart: unexpected error: %v", err)
	}
	_, err := s.Next()
	if _, ok := err.(*SyntaxError); !ok {
		t.Fatalf("expected *SyntaxError for empty record, got %v", err)
	}
}

func TestScannerBigIntegerPromotion(t *testing.T) {
	big := "123456789012345678901234567890+"
	toks := scanAllAtOnce(t, []byte(big))
	if toks[0].Kind != TokInteger || toks[0].BigMag == nil {
		t.Fatalf("expected big-integer promotion, got %+v", toks[0])
	}
	if toks[0].BigMag.String() != "123456789012345678901234567890" {
		t.Fatalf("wrong magnitude: %s", toks[0].BigMag.String())
	}
}
