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
	"math"
	"math/big"
)

// scanState is the scanner's resumable state. It is the only state that
// survives across feed() calls besides the partial-payload countdown
// and the Number accumulator.
type scanState byte

const (
	scanValue scanState = iota
	scanRecordLabel
	scanNumber
	scanFloat
	scanDouble
	scanBinary
	scanString
	scanSymbol
)

// Scanner is a resumable tokenizer for the textual (Syrup) format. It
// consumes an arbitrary slice of input at a time (feed), yields tokens
// (next), including partial tokens when a length-prefixed payload
// straddles a buffer boundary, and never requires the caller to buffer
// the whole document.
//
// Scanner slices into the most recently fed buffer: the caller must
// either consume the returned Token before calling feed again, or
// arrange for the bytes to be copied.
type Scanner struct {
	state   scanState
	input   []byte
	cursor  int
	endSeen bool

	remaining int    // payload bytes left to consume (Float/Double/Binary/String/Symbol)
	magnitude uint64 // accumulator while state == scanNumber
	bigMag    *big.Int
	overflow  bool
}

// NewScanner returns a Scanner with no input fed yet.
func NewScanner() *Scanner { return &Scanner{} }

// feed replaces the unread input with b and resets the read cursor. It
// is a no-op once endInput has been called.
func (s *Scanner) feed(b []byte) {
	if s.endSeen {
		return
	}
	s.input = b
	s.cursor = 0
}

// Feed is the exported spelling of feed.
func (s *Scanner) Feed(b []byte) { s.feed(b) }

// endInput marks that no further bytes will ever be fed.
func (s *Scanner) endInput() { s.endSeen = true }

// EndInput is the exported spelling of endInput.
func (s *Scanner) EndInput() { s.endInput() }

// drain returns the unread tail of the current input and clears it.
func (s *Scanner) drain() []byte {
	tail := s.input[s.cursor:]
	s.input = nil
	s.cursor = 0
	return tail
}

// Drain is the exported spelling of drain.
func (s *Scanner) Drain() []byte { return s.drain() }

func stateName(st scanState) string {
	switch st {
	case scanValue:
		return "Value"
	case scanRecordLabel:
		return "RecordLabel"
	case scanNumber:
		return "Number"
	case scanFloat:
		return "Float"
	case scanDouble:
		return "Double"
	case scanBinary:
		return "Binary"
	case scanString:
		return "String"
	case scanSymbol:
		return "Symbol"
	default:
		return "?"
	}
}

// next runs the state machine and returns the next token, or an error.
// ErrBufferUnderrun is resumable: feed more input and call next again.
func (s *Scanner) Next() (Token, error) {
	if s.cursor >= len(s.input) {
		if s.endSeen {
			switch s.state {
			case scanValue:
				return Token{Kind: TokEndOfDocument}, nil
			default:
				return Token{}, ErrUnexpectedEndOfInput
			}
		}
		return Token{}, ErrBufferUnderrun
	}

	switch s.state {
	case scanValue, scanRecordLabel:
		return s.nextValue()
	case scanNumber:
		return s.nextNumber()
	case scanFloat:
		return s.nextPayload(TokFloat, TokPartialFloat, s.remaining)
	case scanDouble:
		return s.nextPayload(TokDouble, TokPartialDouble, s.remaining)
	case scanBinary:
		return s.nextPayload(TokBinary, TokPartialBinary, s.remaining)
	case scanString:
		return s.nextPayload(TokString, TokPartialString, s.remaining)
	case scanSymbol:
		return s.nextPayload(TokSymbol, TokPartialSymbol, s.remaining)
	default:
		panic("syrup: unreachable scanner state")
	}
}

func (s *Scanner) syntaxError(b byte) error {
	return &SyntaxError{Offset: s.cursor - 1, Byte: b, State: stateName(s.state)}
}

func (s *Scanner) nextValue() (Token, error) {
	recordLabel := s.state == scanRecordLabel
	b := s.input[s.cursor]
	s.cursor++

	// Any successfully-parsed value returns the state to plain Value,
	// whether or not we started in RecordLabel.
	switch {
	case b == 't':
		s.state = scanValue
		return Token{Kind: TokBool, Bool: true}, nil
	case b == 'f':
		s.state = scanValue
		return Token{Kind: TokBool, Bool: false}, nil
	case b == 'F':
		s.state = scanFloat
		s.remaining = 4
		return s.nextPayload(TokFloat, TokPartialFloat, 4)
	case b == 'D':
		s.state = scanDouble
		s.remaining = 8
		return s.nextPayload(TokDouble, TokPartialDouble, 8)
	case b >= '0' && b <= '9':
		s.cursor--
		s.state = scanNumber
		s.magnitude = 0
		s.bigMag = nil
		s.overflow = false
		return s.nextNumber()
	case b == '{':
		s.state = scanValue
		return Token{Kind: TokDictStart}, nil
	case b == '}':
		s.state = scanValue
		return Token{Kind: TokDictEnd}, nil
	case b == '[':
		s.state = scanValue
		return Token{Kind: TokSeqStart}, nil
	case b == ']':
		s.state = scanValue
		return Token{Kind: TokSeqEnd}, nil
	case b == '<':
		s.state = scanRecordLabel
		return Token{Kind: TokRecStart}, nil
	case b == '>':
		if recordLabel {
			return Token{}, s.syntaxError(b)
		}
		s.state = scanValue
		return Token{Kind: TokRecEnd}, nil
	case b == '#':
		s.state = scanValue
		return Token{Kind: TokSetStart}, nil
	case b == '$':
		s.state = scanValue
		return Token{Kind: TokSetEnd}, nil
	default:
		return Token{}, s.syntaxError(b)
	}
}

// nextNumber accumulates decimal digits into the magnitude accumulator
// (or, on overflow, into bigMag per Open Question (a)) until it finds
// the byte that determines the atom kind: '+'/'-' for Integer, ':' for
// Binary, '"' for String, '\'' for Symbol.
func (s *Scanner) nextNumber() (Token, error) {
	start := s.cursor
	for s.cursor < len(s.input) {
		b := s.input[s.cursor]
		if b >= '0' && b <= '9' {
			s.cursor++
			d := uint64(b - '0')
			if !s.overflow {
				if s.magnitude <= (math.MaxUint64-d)/10 {
					s.magnitude = s.magnitude*10 + d
					continue
				}
				s.overflow = true
				s.bigMag = new(big.Int).SetUint64(s.magnitude)
			}
			ten := big.NewInt(10)
			s.bigMag.Mul(s.bigMag, ten)
			s.bigMag.Add(s.bigMag, big.NewInt(int64(d)))
			continue
		}

		digits := s.input[start:s.cursor]
		switch b {
		case '+', '-':
			s.cursor++
			sign := Positive
			if b == '-' {
				sign = Negative
			}
			s.state = scanValue
			return Token{
				Kind: TokInteger, Digits: digits,
				Magnitude: s.magnitude, BigMag: s.bigMag, IntSign: sign,
			}, nil
		case ':':
			s.cursor++
			n, err := s.smallLength()
			if err != nil {
				return Token{}, err
			}
			s.state = scanBinary
			s.remaining = n
			return s.nextPayload(TokBinary, TokPartialBinary, n)
		case '"':
			s.cursor++
			n, err := s.smallLength()
			if err != nil {
				return Token{}, err
			}
			s.state = scanString
			s.remaining = n
			return s.nextPayload(TokString, TokPartialString, n)
		case '\'':
			s.cursor++
			n, err := s.smallLength()
			if err != nil {
				return Token{}, err
			}
			s.state = scanSymbol
			s.remaining = n
			return s.nextPayload(TokSymbol, TokPartialSymbol, n)
		default:
			s.cursor++
			return Token{}, s.syntaxError(b)
		}
	}
	// exhausted this buffer mid-number
	return Token{Kind: TokPartialNumber, Digits: s.input[start:s.cursor]}, nil
}

func (s *Scanner) smallLength() (int, error) {
	if s.overflow || s.magnitude > 1<<32 {
		return 0, &OverflowError{Target: "length prefix"}
	}
	return int(s.magnitude), nil
}

// nextPayload consumes up to `remaining` raw bytes of a length-prefixed
// or fixed-size atom, emitting a Partial* token if the current buffer
// runs out first.
func (s *Scanner) nextPayload(full, partial TokenKind, remaining int) (Token, error) {
	avail := len(s.input) - s.cursor
	if avail >= remaining {
		b := s.input[s.cursor : s.cursor+remaining]
		s.cursor += remaining
		s.state = scanValue
		return Token{Kind: full, Bytes: b}, nil
	}
	b := s.input[s.cursor:]
	s.cursor = len(s.input)
	s.remaining = remaining - avail
	return Token{Kind: partial, Bytes: b, Remaining: s.remaining}, nil
}
