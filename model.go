package godbf

import (
	"errors"
	"fmt"
	"math/big"
	"reflect"
	"time"

	"github.com/shopspring/decimal"
)

var (
	timeType    = reflect.TypeOf(time.Time{})
	decimalType = reflect.TypeOf(decimal.Decimal{})
	valueType   = reflect.TypeOf(Value{})
)

type modelBinding struct {
	structField int
	field       int
}

// bindModel matches the `dbf` tags of a struct type to table fields.
func (s *Store) bindModel(v any) (reflect.Value, []modelBinding, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return reflect.Value{}, nil, errors.New("model must be a non-nil pointer to a struct")
	}
	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return reflect.Value{}, nil, fmt.Errorf("model must be a pointer to a struct, not a %v", rv.Kind())
	}
	rt := rv.Type()
	var bindings []modelBinding
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		name := sf.Tag.Get("dbf")
		if name == "" || name == "-" || !sf.IsExported() {
			continue
		}
		idx := s.schema.IndexOf(name)
		if idx < 0 {
			continue
		}
		bindings = append(bindings, modelBinding{structField: i, field: idx})
	}
	return rv, bindings, nil
}

// Scan decodes the current record into the struct v points to. Struct
// fields are matched to table fields by their `dbf:"NAME"` tag; untagged
// fields and tags naming no table field are left unchanged. Blank table
// fields set the zero value.
func (s *Store) Scan(v any) error {
	if err := s.checkRecord(); err != nil {
		return err
	}
	rv, bindings, err := s.bindModel(v)
	if err != nil {
		return err
	}
	for _, b := range bindings {
		val, err := s.GetValue(b.field)
		if err != nil {
			return err
		}
		if err := assignValue(rv.Field(b.structField), val); err != nil {
			return fmt.Errorf("scan field %s: %w", s.schema.fields[b.field].name, err)
		}
	}
	return nil
}

// AppendModel appends a record filled from the tagged fields of the struct
// v points to. When a value cannot be stored no record is added.
func (s *Store) AppendModel(v any) error {
	rv, bindings, err := s.bindModel(v)
	if err != nil {
		return err
	}
	vals := make([]Value, len(bindings))
	for k, b := range bindings {
		f := s.schema.fields[b.field]
		val, err := modelValue(rv.Field(b.structField))
		if err != nil {
			return fmt.Errorf("field %s: %w", f.name, err)
		}
		if _, err := val.convert(f); err != nil {
			return fmt.Errorf("%w: field %s: %v", ErrFieldType, f.name, err)
		}
		vals[k] = val
	}
	if err := s.Append(); err != nil {
		return err
	}
	for k, b := range bindings {
		if err := s.SetValue(b.field, vals[k]); err != nil {
			s.discardAppend()
			return err
		}
	}
	return nil
}

func assignValue(fv reflect.Value, v Value) error {
	if fv.Type() == valueType {
		fv.Set(reflect.ValueOf(v))
		return nil
	}
	if v.IsNull() {
		fv.Set(reflect.Zero(fv.Type()))
		return nil
	}
	switch fv.Type() {
	case timeType:
		t, ok := v.AsDate()
		if !ok {
			return fmt.Errorf("cannot assign %s to time.Time", v.Kind())
		}
		fv.Set(reflect.ValueOf(t))
		return nil
	case decimalType:
		d, ok := v.AsDecimal()
		if !ok {
			return fmt.Errorf("cannot assign %s to decimal.Decimal", v.Kind())
		}
		fv.Set(reflect.ValueOf(d))
		return nil
	}
	switch fv.Kind() {
	case reflect.String:
		fv.SetString(v.String())
	case reflect.Bool:
		b, ok := v.AsBool()
		if !ok {
			return fmt.Errorf("cannot assign %s to bool", v.Kind())
		}
		fv.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		d, ok := v.AsDecimal()
		if !ok {
			return fmt.Errorf("cannot assign %s to %s", v.Kind(), fv.Type())
		}
		n := d.IntPart()
		if fv.OverflowInt(n) {
			return fmt.Errorf("%s overflows %s", d, fv.Type())
		}
		fv.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		d, ok := v.AsDecimal()
		if !ok || d.IsNegative() {
			return fmt.Errorf("cannot assign %s to %s", v, fv.Type())
		}
		n := uint64(d.IntPart())
		if fv.OverflowUint(n) {
			return fmt.Errorf("%s overflows %s", d, fv.Type())
		}
		fv.SetUint(n)
	case reflect.Float32, reflect.Float64:
		d, ok := v.AsDecimal()
		if !ok {
			return fmt.Errorf("cannot assign %s to %s", v.Kind(), fv.Type())
		}
		f, _ := d.Float64()
		fv.SetFloat(f)
	default:
		return fmt.Errorf("unsupported struct field type %s", fv.Type())
	}
	return nil
}

func modelValue(fv reflect.Value) (Value, error) {
	switch fv.Type() {
	case valueType:
		return fv.Interface().(Value), nil
	case timeType:
		t := fv.Interface().(time.Time)
		if t.IsZero() {
			return Null(), nil
		}
		return DateValue(t), nil
	case decimalType:
		return DecimalValue(fv.Interface().(decimal.Decimal)), nil
	}
	switch fv.Kind() {
	case reflect.String:
		return StringValue(fv.String()), nil
	case reflect.Bool:
		return BoolValue(fv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return LongValue(fv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return DecimalValue(decimal.NewFromBigInt(new(big.Int).SetUint64(fv.Uint()), 0)), nil
	case reflect.Float32:
		return DecimalValue(decimal.NewFromFloat32(float32(fv.Float()))), nil
	case reflect.Float64:
		return DecimalValue(decimal.NewFromFloat(fv.Float())), nil
	}
	return Value{}, fmt.Errorf("unsupported struct field type %s", fv.Type())
}
