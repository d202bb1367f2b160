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

//go:build amd64

package gpuarch

import "golang.org/x/sys/cpu"

var currentTag string

func init() {
	if wideLaunchDisabled() {
		currentTag = "generic"
		return
	}

	// There is no real GPU driver linked into this host probe — the tag
	// reflects only the launching CPU's AVX-512/AVX2 support.
	switch {
	case cpu.X86.HasAVX512F:
		currentTag = "amd64-avx512"
	case cpu.X86.HasAVX2:
		currentTag = "amd64-avx2"
	default:
		currentTag = "amd64-baseline"
	}
}
