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
	"reflect"
	"strings"

	"github.com/basinware/syrup/internal/fieldtab"
)

// structField is one compiled row of a structDesc: the Go field index,
// its canonical key bytes, its decode plan, and whether the dictionary
// key may be omitted.
type structField struct {
	index    int
	key      []byte
	desc     *planFor
	required bool
}

// structDesc is the compiled decode schema for a Go struct type,
// mirroring the encode side's per-struct fieldEnc table in
// writer_reflect.go's compileEncoder but keyed through a SipHash
// lookup table (internal/fieldtab) rather than a linear scan, since
// decode sees keys in wire order rather than the schema's own order.
type structDesc struct {
	fields []structField
	table  *fieldtab.Table
}

func compileStructPlan(t reflect.Type) (*planFor, bool) {
	var fields []structField
	visible := reflect.VisibleFields(t)
	for i := range visible {
		if visible[i].PkgPath != "" || len(visible[i].Index) != 1 {
			continue
		}
		name := visible[i].Name
		required := true
		if tag, ok := visible[i].Tag.Lookup("syrup"); ok {
			n, rest, has := strings.Cut(tag, ",")
			if n == "-" {
				continue
			}
			if n != "" {
				name = n
			}
			if has && rest == "omitempty" {
				required = false
			}
		}
		desc, ok := compilePlan(visible[i].Type)
		if !ok {
			continue
		}
		fields = append(fields, structField{
			index:    visible[i].Index[0],
			key:      []byte(name),
			desc:     desc,
			required: required,
		})
	}
	entries := make([]fieldtab.Entry, len(fields))
	for i, f := range fields {
		entries[i] = fieldtab.Entry{Key: f.key, Index: i}
	}
	sd := &structDesc{fields: fields, table: fieldtab.Build(entries)}

	return &planFor{
		newPlan: func(dst reflect.Value) plan { return newStructPlan(sd, dst) },
		destroy: func(alloc Allocator, dst reflect.Value) {
			for _, f := range sd.fields {
				f.desc.destroy(alloc, dst.Field(f.index))
			}
		},
	}, true
}

const (
	structStateStart = iota
	structStateKey
	structStateValue
)

// structPlan implements the Start/Key/Value Dictionary-to-struct
// machine, tracking which fields have been seen so a dictionary that
// closes early surfaces MissingKeyError naming the first field never
// supplied. Once every field has been seen, only DictEnd is accepted
// (ErrExpectedDictionaryEnd otherwise).
type structPlan struct {
	sd      *structDesc
	dst     reflect.Value
	state   int
	seen    []bool
	keyPlan *bytesPlan
	key     string
	cur     plan
	curIdx  int
}

func newStructPlan(sd *structDesc, dst reflect.Value) plan {
	return &structPlan{sd: sd, dst: dst, seen: make([]bool, len(sd.fields))}
}

func (p *structPlan) feed(tok Token, alloc Allocator) (bool, error) {
	switch p.state {
	case structStateStart:
		if tok.Kind != TokDictStart {
			return false, ErrExpectedDictionaryStart
		}
		p.state = structStateKey
		return false, nil
	case structStateKey:
		if p.keyPlan == nil {
			if tok.Kind == TokDictEnd {
				for i, f := range p.sd.fields {
					if f.required && !p.seen[i] {
						return false, &MissingKeyError{Key: string(f.key)}
					}
				}
				return true, nil
			}
			allSeen := true
			for _, s := range p.seen {
				allSeen = allSeen && s
			}
			if allSeen {
				return false, ErrExpectedDictionaryEnd
			}
			p.keyPlan = &bytesPlan{dst: reflect.ValueOf(&p.key).Elem(), kind: SymbolKind, full: TokSymbol, partial: TokPartialSymbol}
		}
		done, err := p.keyPlan.feed(tok, alloc)
		if err != nil {
			return false, err
		}
		if !done {
			return false, nil
		}
		p.keyPlan = nil
		idx, ok := p.sd.table.Lookup([]byte(p.key))
		if !ok {
			return false, &UnknownKeyError{Key: p.key}
		}
		if p.seen[idx] {
			return false, &KeyFoundBeforeError{Key: p.key}
		}
		p.curIdx = idx
		p.cur = p.sd.fields[idx].desc.newPlan(p.dst.Field(p.sd.fields[idx].index))
		p.state = structStateValue
		return false, nil
	default: // structStateValue
		done, err := p.cur.feed(tok, alloc)
		if err != nil {
			return false, err
		}
		if done {
			p.seen[p.curIdx] = true
			p.cur = nil
			p.state = structStateKey
		}
		return false, nil
	}
}

func (p *structPlan) cleanup(alloc Allocator) {
	if p.keyPlan != nil {
		p.keyPlan.cleanup(alloc)
	}
	if p.cur != nil {
		p.cur.cleanup(alloc)
	}
	for i, f := range p.sd.fields {
		if p.seen[i] {
			f.desc.destroy(alloc, p.dst.Field(f.index))
		}
	}
}
