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
	"math/big"
	"reflect"
	"sync"
)

// EnumSetter is the decode-side counterpart of Enumer: a host type
// addressed by pointer implements it to accept the Symbol name read
// off the wire.
type EnumSetter interface {
	SetEnumName(name string) error
}

var enumSetterIT = reflect.TypeOf((*EnumSetter)(nil)).Elem()

var planCache sync.Map // reflect.Type -> *planFor

// compilePlan compiles (once per reflect.Type, cached) the decode plan
// constructor and destroyer for t, the scanner-driven mirror of
// encoderFunc/compileEncoder.
func compilePlan(t reflect.Type) (*planFor, bool) {
	if f, ok := planCache.Load(t); ok {
		return f.(*planFor), true
	}
	desc, ok := planFunc(t)
	if !ok {
		return nil, false
	}
	actual, _ := planCache.LoadOrStore(t, desc)
	return actual.(*planFor), true
}

func noopDestroy(Allocator, reflect.Value) {}

// planFunc compiles the shape rule for t, the inverse of encoderFunc.
func planFunc(t reflect.Type) (*planFor, bool) {
	if t == valueType {
		return &planFor{newPlan: newValuePlan, destroy: noopDestroy}, true
	}
	if t == bigIntType {
		return &planFor{
			newPlan: func(dst reflect.Value) plan { return &bigIntPlanPtr{dst: dst} },
			destroy: noopDestroy,
		}, true
	}
	if t.Kind() == reflect.Struct && t.NumField() == 1 && t.Field(0).Name == "Value" {
		inner, ok := compilePlan(t.Field(0).Type)
		if ok {
			return &planFor{
				newPlan: func(dst reflect.Value) plan {
					return &ownedPlan{dst: dst, elemType: t.Field(0).Type}
				},
				destroy: func(alloc Allocator, dst reflect.Value) {
					if !dst.IsNil() {
						inner.destroy(alloc, dst.Elem())
					}
				},
			}, true
		}
	}
	if reflect.PointerTo(t).Implements(enumSetterIT) {
		return &planFor{
			newPlan: func(dst reflect.Value) plan { return &enumPlan{dst: dst} },
			destroy: noopDestroy,
		}, true
	}
	if t.Kind() == reflect.Interface && t.Implements(variantIT) {
		return &planFor{
			newPlan: func(dst reflect.Value) plan { return newRecordPlan(t, dst) },
			destroy: noopDestroy,
		}, true
	}

	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &planFor{
			newPlan: func(dst reflect.Value) plan { return &intPlan{dst: dst} },
			destroy: noopDestroy,
		}, true
	case reflect.Float32:
		return &planFor{newPlan: newFloat32Plan, destroy: noopDestroy}, true
	case reflect.Float64:
		return &planFor{newPlan: newFloat64Plan, destroy: noopDestroy}, true
	case reflect.Bool:
		return &planFor{
			newPlan: func(dst reflect.Value) plan { return &boolPlan{dst: dst} },
			destroy: noopDestroy,
		}, true
	case reflect.String:
		// Ambiguous with Symbol at the type level; String is the default,
		// matching the writer's default-shape choice for a bare string.
		return &planFor{newPlan: newStringPlan, destroy: noopDestroy}, true
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return &planFor{newPlan: newBinaryPlan, destroy: destroyBinaryField}, true
		}
		elemDesc, ok := compilePlan(t.Elem())
		if !ok {
			return nil, false
		}
		return &planFor{
			newPlan: func(dst reflect.Value) plan { return newSequencePlan(t, elemDesc, dst) },
			destroy: func(alloc Allocator, dst reflect.Value) {
				for i := 0; i < dst.Len(); i++ {
					elemDesc.destroy(alloc, dst.Index(i))
				}
			},
		}, true
	case reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			return &planFor{
				newPlan: func(dst reflect.Value) plan { return &byteArrayPlan{dst: dst} },
				destroy: noopDestroy,
			}, true
		}
		return nil, false
	case reflect.Map:
		kt, vt := t.Key(), t.Elem()
		if isSetShapedType(t) {
			keyDesc, ok := compilePlan(kt)
			if !ok {
				return nil, false
			}
			return &planFor{
				newPlan: func(dst reflect.Value) plan { return newSetPlan(t, keyDesc, dst) },
				destroy: noopDestroy,
			}, true
		}
		if kt.Kind() != reflect.String {
			return nil, false
		}
		valDesc, ok := compilePlan(vt)
		if !ok {
			return nil, false
		}
		return &planFor{
			newPlan: func(dst reflect.Value) plan { return newMapPlan(t, valDesc, dst) },
			destroy: func(alloc Allocator, dst reflect.Value) {
				for _, k := range dst.MapKeys() {
					valDesc.destroy(alloc, dst.MapIndex(k))
				}
			},
		}, true
	case reflect.Struct:
		return compileStructPlan(t)
	case reflect.Pointer:
		inner, ok := compilePlan(t.Elem())
		if !ok {
			return nil, false
		}
		return &planFor{
			newPlan: newOptionalPlan(t.Elem()),
			destroy: func(alloc Allocator, dst reflect.Value) {
				if !dst.IsNil() {
					inner.destroy(alloc, dst.Elem())
				}
			},
		}, true
	default:
		return nil, false
	}
}

func isSetShapedType(t reflect.Type) bool {
	e := t.Elem()
	return e.Kind() == reflect.Struct && e.NumField() == 0
}

// bigIntPlanPtr targets a *big.Int destination field (the usual shape
// for a host struct field of arbitrary-precision integer type).
type bigIntPlanPtr struct {
	dst reflect.Value
}

func (p *bigIntPlanPtr) feed(tok Token, alloc Allocator) (bool, error) {
	if tok.Kind == TokPartialNumber {
		return false, nil
	}
	if tok.Kind != TokInteger {
		return false, unexpected("Integer", tok)
	}
	mag := tok.BigMag
	if mag == nil {
		mag = new(big.Int).SetUint64(tok.Magnitude)
	}
	val := new(big.Int).Set(mag)
	if tok.IntSign == Negative {
		val.Neg(val)
	}
	p.dst.Set(reflect.ValueOf(val))
	return true, nil
}

func (p *bigIntPlanPtr) cleanup(Allocator) {}

// ---- Boolean ----

type boolPlan struct {
	dst reflect.Value
}

func (p *boolPlan) feed(tok Token, alloc Allocator) (bool, error) {
	if tok.Kind != TokBool {
		return false, unexpected("Boolean", tok)
	}
	p.dst.SetBool(tok.Bool)
	return true, nil
}

func (p *boolPlan) cleanup(Allocator) {}

// ---- fixed-size byte array (String shape, nul-padded) ----

type byteArrayPlan struct {
	dst   reflect.Value
	inner bytesPlan
	str   reflect.Value
	s     string
}

func (p *byteArrayPlan) feed(tok Token, alloc Allocator) (bool, error) {
	if p.str.Kind() == reflect.Invalid {
		p.str = reflect.ValueOf(&p.s).Elem()
		p.inner = bytesPlan{dst: p.str, kind: StringKind, full: TokString, partial: TokPartialString}
	}
	done, err := p.inner.feed(tok, alloc)
	if err != nil || !done {
		return false, err
	}
	if len(p.s) > p.dst.Len() {
		return false, &IllFitError{Reason: "string longer than target byte array"}
	}
	reflect.Copy(p.dst, reflect.ValueOf([]byte(p.s)))
	return true, nil
}

func (p *byteArrayPlan) cleanup(alloc Allocator) {
	p.inner.cleanup(alloc)
}

// ---- Enum (Symbol -> SetEnumName) ----

type enumPlan struct {
	dst   reflect.Value
	s     string
	inner *bytesPlan
}

func (p *enumPlan) feed(tok Token, alloc Allocator) (bool, error) {
	if p.inner == nil {
		p.inner = &bytesPlan{dst: reflect.ValueOf(&p.s).Elem(), kind: SymbolKind, full: TokSymbol, partial: TokPartialSymbol}
	}
	done, err := p.inner.feed(tok, alloc)
	if err != nil || !done {
		return false, err
	}
	setter := p.dst.Addr().Interface().(EnumSetter)
	if err := setter.SetEnumName(p.s); err != nil {
		return false, err
	}
	return true, nil
}

func (p *enumPlan) cleanup(alloc Allocator) {
	if p.inner != nil {
		p.inner.cleanup(alloc)
	}
}
