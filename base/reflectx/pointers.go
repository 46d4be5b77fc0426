// Copyright (c) 2023, Cogent Core. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package reflectx

import (
	"reflect"
)

// NonPointerValue returns a non-pointer version of the given value.
func NonPointerValue(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Pointer {
		v = v.Elem()
	}
	return v
}

// settableStruct returns the settable struct value that obj points to,
// or an invalid value if obj is not a non-nil pointer to a struct.
func settableStruct(obj any) reflect.Value {
	v := reflect.ValueOf(obj)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return reflect.Value{}
	}
	v = NonPointerValue(v)
	if v.Kind() != reflect.Struct || !v.CanSet() {
		return reflect.Value{}
	}
	return v
}

// AnyIsNil checks if the given value is nil, including the case of
// a non-nil interface holding a nil pointer, map, slice, func or chan.
func AnyIsNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
