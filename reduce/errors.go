// Copyright 2026 gpureduce Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package reduce

import "fmt"

// Kind enumerates the engine's error categories.
type Kind int

const (
	_ Kind = iota
	BadRank
	BadAxis
	BadShape
	BadType
	MissingIndex
	UnexpectedIndex
	DeviceAllocFail
	CompileFail
	LaunchFail
)

func (k Kind) String() string {
	switch k {
	case BadRank:
		return "BAD_RANK"
	case BadAxis:
		return "BAD_AXIS"
	case BadShape:
		return "BAD_SHAPE"
	case BadType:
		return "BAD_TYPE"
	case MissingIndex:
		return "MISSING_INDEX"
	case UnexpectedIndex:
		return "UNEXPECTED_INDEX"
	case DeviceAllocFail:
		return "DEVICE_ALLOC_FAIL"
	case CompileFail:
		return "COMPILE_FAIL"
	case LaunchFail:
		return "LAUNCH_FAIL"
	default:
		return "UNKNOWN"
	}
}

// Error is the engine's error type. All validation failures — detected
// and returned before any device work — and all device-surfaced failures
// are reported through it.
type Error struct {
	Kind Kind
	Msg  string
	Err  error // wrapped cause, if any (e.g. a device error)
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("reduce: %s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("reduce: %s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

func errf(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...)}
}

func wrapf(k Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...), Err: err}
}
