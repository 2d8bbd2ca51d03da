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
	"fmt"
	"reflect"
	"sync"
)

// ---- Sequence (Go slice target) ----

type sequencePlan struct {
	t       reflect.Type
	elem    *planFor
	dst     reflect.Value
	started bool
	cur     plan
	curDst  reflect.Value
}

func newSequencePlan(t reflect.Type, elem *planFor, dst reflect.Value) plan {
	return &sequencePlan{t: t, elem: elem, dst: dst}
}

func (p *sequencePlan) feed(tok Token, alloc Allocator) (bool, error) {
	if !p.started {
		p.started = true
		if tok.Kind != TokSeqStart {
			return false, unexpected("SeqStart", tok)
		}
		p.dst.Set(reflect.MakeSlice(p.t, 0, 0))
		return false, nil
	}
	if p.cur == nil {
		if tok.Kind == TokSeqEnd {
			return true, nil
		}
		p.curDst = reflect.New(p.t.Elem()).Elem()
		p.cur = p.elem.newPlan(p.curDst)
	}
	done, err := p.cur.feed(tok, alloc)
	if err != nil {
		return false, err
	}
	if done {
		p.dst.Set(reflect.Append(p.dst, p.curDst))
		p.cur = nil
	}
	return false, nil
}

func (p *sequencePlan) cleanup(alloc Allocator) {
	if p.cur != nil {
		p.cur.cleanup(alloc)
	}
	for i := 0; i < p.dst.Len(); i++ {
		p.elem.destroy(alloc, p.dst.Index(i))
	}
}

// ---- Set (Go map[K]struct{} target) ----

type setPlan struct {
	t       reflect.Type
	key     *planFor
	dst     reflect.Value
	started bool
	cur     plan
	curDst  reflect.Value
}

func newSetPlan(t reflect.Type, key *planFor, dst reflect.Value) plan {
	return &setPlan{t: t, key: key, dst: dst}
}

func (p *setPlan) feed(tok Token, alloc Allocator) (bool, error) {
	if !p.started {
		p.started = true
		if tok.Kind != TokSetStart {
			return false, unexpected("SetStart", tok)
		}
		p.dst.Set(reflect.MakeMap(p.t))
		return false, nil
	}
	if p.cur == nil {
		if tok.Kind == TokSetEnd {
			return true, nil
		}
		p.curDst = reflect.New(p.t.Key()).Elem()
		p.cur = p.key.newPlan(p.curDst)
	}
	done, err := p.cur.feed(tok, alloc)
	if err != nil {
		return false, err
	}
	if done {
		p.dst.SetMapIndex(p.curDst, reflect.Zero(p.t.Elem()))
		p.cur = nil
	}
	return false, nil
}

func (p *setPlan) cleanup(alloc Allocator) {
	if p.cur != nil {
		p.cur.cleanup(alloc)
	}
}

// ---- Dictionary into a non-struct Go map[string]V ----

type mapPlan struct {
	t       reflect.Type
	val     *planFor
	dst     reflect.Value
	state   int // 0 start, 1 key, 2 value
	key     string
	keyPlan *bytesPlan
	cur     plan
	curDst  reflect.Value
}

func newMapPlan(t reflect.Type, val *planFor, dst reflect.Value) plan {
	return &mapPlan{t: t, val: val, dst: dst}
}

func (p *mapPlan) feed(tok Token, alloc Allocator) (bool, error) {
	switch p.state {
	case 0:
		if tok.Kind != TokDictStart {
			return false, unexpected("DictStart", tok)
		}
		p.dst.Set(reflect.MakeMap(p.t))
		p.state = 1
		return false, nil
	case 1:
		if p.keyPlan == nil {
			if tok.Kind == TokDictEnd {
				return true, nil
			}
			p.keyPlan = &bytesPlan{dst: reflect.ValueOf(&p.key).Elem(), kind: SymbolKind, full: TokSymbol, partial: TokPartialSymbol}
		}
		done, err := p.keyPlan.feed(tok, alloc)
		if err != nil {
			return false, err
		}
		if done {
			p.keyPlan = nil
			p.curDst = reflect.New(p.t.Elem()).Elem()
			p.cur = p.val.newPlan(p.curDst)
			p.state = 2
		}
		return false, nil
	default: // 2
		done, err := p.cur.feed(tok, alloc)
		if err != nil {
			return false, err
		}
		if done {
			p.dst.SetMapIndex(reflect.ValueOf(p.key), p.curDst)
			p.cur = nil
			p.state = 1
		}
		return false, nil
	}
}

func (p *mapPlan) cleanup(alloc Allocator) {
	if p.keyPlan != nil {
		p.keyPlan.cleanup(alloc)
	}
	if p.cur != nil {
		p.cur.cleanup(alloc)
	}
	if p.dst.IsValid() && !p.dst.IsNil() {
		for _, k := range p.dst.MapKeys() {
			p.val.destroy(alloc, p.dst.MapIndex(k))
		}
	}
}

// ---- Record / tagged-variant union ----

// variantFactory produces a fresh, addressable reflect.Value of a
// registered concrete type satisfying a Variant interface.
type variantFactory func() reflect.Value

var variantRegistry sync.Map // reflect.Type (interface) -> *sync.Map (label string -> variantFactory)

// RegisterVariant associates label with concrete type C (which must
// implement interface I as a Variant whose VariantName() returns
// label) so that a field of interface type I can be decoded from a
// Record carrying that label — the decode direction of the union
// shape Variant/VariantName encode for.
func RegisterVariant[I any, C any](label string) {
	it := reflect.TypeOf((*I)(nil)).Elem()
	ct := reflect.TypeOf((*C)(nil)).Elem()
	m, _ := variantRegistry.LoadOrStore(it, &sync.Map{})
	m.(*sync.Map).Store(label, variantFactory(func() reflect.Value {
		return reflect.New(ct).Elem()
	}))
}

type recordPlan struct {
	it      reflect.Type
	dst     reflect.Value
	state   int // 0 start, 1 label, 2 payload, 3 end
	label   string
	lblPlan *bytesPlan
	payload plan
	payDst  reflect.Value
}

func newRecordPlan(it reflect.Type, dst reflect.Value) plan {
	return &recordPlan{it: it, dst: dst}
}

func (p *recordPlan) feed(tok Token, alloc Allocator) (bool, error) {
	switch p.state {
	case 0:
		if tok.Kind != TokRecStart {
			return false, unexpected("RecStart", tok)
		}
		p.state = 1
		return false, nil
	case 1:
		if p.lblPlan == nil {
			p.lblPlan = &bytesPlan{dst: reflect.ValueOf(&p.label).Elem(), kind: SymbolKind, full: TokSymbol, partial: TokPartialSymbol}
		}
		done, err := p.lblPlan.feed(tok, alloc)
		if err != nil {
			return false, err
		}
		if !done {
			return false, nil
		}
		table, ok := variantRegistry.Load(p.it)
		if !ok {
			return false, &RecordError{Label: p.label}
		}
		factory, ok := table.(*sync.Map).Load(p.label)
		if !ok {
			return false, &RecordError{Label: p.label}
		}
		p.payDst = factory.(variantFactory)()
		desc, ok := compilePlan(p.payDst.Type())
		if !ok {
			return false, fmt.Errorf("syrup: no plan compiled for variant payload %s", p.payDst.Type())
		}
		p.payload = desc.newPlan(p.payDst)
		p.state = 2
		return false, nil
	case 2:
		done, err := p.payload.feed(tok, alloc)
		if err != nil {
			return false, err
		}
		if done {
			p.state = 3
		}
		return false, nil
	default: // 3: expect RecEnd
		if tok.Kind != TokRecEnd {
			return false, unexpected("RecEnd", tok)
		}
		p.dst.Set(p.payDst)
		return true, nil
	}
}

func (p *recordPlan) cleanup(alloc Allocator) {
	if p.lblPlan != nil {
		p.lblPlan.cleanup(alloc)
	}
	if p.payload != nil {
		p.payload.cleanup(alloc)
	}
}
