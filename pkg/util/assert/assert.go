// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package assert

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
)

// Equal errors if actual is not equal to expected.  Integers of differing
// widths are compared by value, so that e.g. uint(2) and 2 are equal.
func Equal(t *testing.T, expected, actual any, msg ...any) {
	t.Helper()
	//
	if reflect.DeepEqual(expected, actual) || intEqual(expected, actual) {
		return
	}

	t.Errorf("expected: %v, actual: %v", expected, actual)
	fail(t, msg)
}

// NotEqual errors if actual is equal to expected.
func NotEqual(t *testing.T, unexpected, actual any, msg ...any) {
	t.Helper()
	//
	if !reflect.DeepEqual(unexpected, actual) && !intEqual(unexpected, actual) {
		return
	}

	t.Errorf("unexpected: %v", actual)
	fail(t, msg)
}

// Same errors if the two pointers do not identify the same object.
func Same[T any](t *testing.T, expected, actual *T, msg ...any) {
	t.Helper()
	//
	if expected == actual {
		return
	}

	t.Errorf("expected identical objects: %p, actual: %p", expected, actual)
	fail(t, msg)
}

// True errors if condition is false.
func True(t *testing.T, condition bool, msg ...any) {
	t.Helper()
	//
	if condition {
		return
	}

	t.Errorf("condition is false")
	fail(t, msg)
}

// False errors if condition is true.
func False(t *testing.T, condition bool, msg ...any) {
	t.Helper()
	//
	if !condition {
		return
	}

	t.Errorf("condition is true")
	fail(t, msg)
}

// NoError errors if err is non-nil.
func NoError(t *testing.T, err error, msg ...any) {
	t.Helper()
	//
	if err == nil {
		return
	}

	t.Errorf("unexpected error: %s", err.Error())
	fail(t, msg)
}

// ErrorIs errors if err does not wrap the given target.
func ErrorIs(t *testing.T, err error, target error, msg ...any) {
	t.Helper()
	//
	if errors.Is(err, target) {
		return
	}

	t.Errorf("expected error %q, actual: %v", target, err)
	fail(t, msg)
}

// Panics errors if the given function returns without panicking.  The value
// passed to panic is returned for further inspection.
func Panics(t *testing.T, fn func(), msg ...any) (value any) {
	t.Helper()
	//
	panicked := func() (ok bool) {
		defer func() {
			if value = recover(); value != nil {
				ok = true
			}
		}()
		//
		fn()
		//
		return false
	}()
	//
	if !panicked {
		t.Errorf("expected panic")
		fail(t, msg)
	}
	//
	return value
}

func fail(t *testing.T, msg []any) {
	t.Helper()
	//
	if len(msg) != 0 {
		t.Errorf(fmt.Sprint(msg[0]), msg[1:]...)
	}

	t.FailNow()
}

// intEqual returns whether expected and actual are both integers and whether they are equal
// if that is the case.
func intEqual(expected, actual any) bool {
	a, aok := asInt64(expected)
	b, bok := asInt64(actual)
	//
	if aok && bok {
		return a == b
	}

	x, xok := expected.(uint64)
	y, yok := actual.(uint64)

	return xok && yok && x == y
}

// asInt64 tries to convert x to an int64, failing for anything which is not
// an integer or which only fits a uint64.
func asInt64(x any) (int64, bool) {
	switch x := x.(type) {
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case int64:
		return x, true
	case uint:
		return int64(x), uint64(x) <= 1<<63-1
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		return int64(x), x <= 1<<63-1
	}

	return 0, false
}
