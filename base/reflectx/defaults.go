// Copyright (c) 2023, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package reflectx

import (
	"encoding"
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/moderngpu/mgpu/base/errors"
)

// SetFromDefaultTags sets the values of fields in the given struct
// pointer based on `default:` struct field tags. Nested struct fields
// without a default tag are processed recursively. Values are parsed
// with [SetFromString].
func SetFromDefaultTags(obj any) error {
	v := settableStruct(obj)
	if !v.IsValid() {
		return fmt.Errorf("reflectx.SetFromDefaultTags: expected a non-nil pointer to a struct, not %T", obj)
	}
	return setFromDefaultTags(v)
}

func setFromDefaultTags(v reflect.Value) error {
	typ := v.Type()
	var errs []error
	for i := range typ.NumField() {
		f := typ.Field(i)
		if !f.IsExported() {
			continue
		}
		fv := v.Field(i)
		def, ok := f.Tag.Lookup("default")
		if !ok {
			if fv.Kind() == reflect.Struct {
				if err := setFromDefaultTags(fv); err != nil {
					errs = append(errs, err)
				}
			}
			continue
		}
		if err := SetFromString(fv, def); err != nil {
			errs = append(errs, fmt.Errorf("field %s: %w", f.Name, err))
		}
	}
	return errors.Join(errs...)
}

// SetFromString sets the given settable value from a string, using
// [encoding.TextUnmarshaler] when the value implements it.
func SetFromString(v reflect.Value, s string) error {
	if v.CanAddr() {
		if tu, ok := v.Addr().Interface().(encoding.TextUnmarshaler); ok {
			return tu.UnmarshalText([]byte(s))
		}
	}
	if v.Type() == reflect.TypeFor[time.Duration]() {
		d, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		v.SetInt(int64(d))
		return nil
	}
	switch v.Kind() {
	case reflect.String:
		v.SetString(s)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		v.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(s, 0, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(s, 0, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetUint(u)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(s, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetFloat(f)
	default:
		return fmt.Errorf("reflectx.SetFromString: unsupported kind %v", v.Kind())
	}
	return nil
}
