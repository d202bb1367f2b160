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

// Package gpuarch holds the launch configurator's fallback tuning
// defaults (warp size, default block size) and a coarse host capability
// tag.
//
// The engine itself never talks to a GPU driver directly — that is the
// external gpu.Context collaborator's job. The defaults below are fixed
// constants and do not depend on the tag. The kernel cache key takes its
// device_arch_tag from gpu.Context.ArchTag, not from Tag.
package gpuarch

import "os"

// Tag is a short, stable string identifying the host's CPU capability
// profile ("amd64-avx512", "amd64-avx2", "amd64-baseline", "baseline" or
// "generic").
func Tag() string {
	return currentTag
}

// DefaultWarpSize is the tuning default used by the launch configurator
// before a real gpu.Context is consulted.
const DefaultWarpSize = 32

// DefaultBlockSize is the configurator's default block size.
const DefaultBlockSize = 256

// noWideLaunchEnv forces Tag to report "generic" regardless of detected
// host capability, an escape hatch for debugging capability detection.
const noWideLaunchEnv = "GPUREDUCE_NO_WIDE_LAUNCH"

func wideLaunchDisabled() bool {
	v := os.Getenv(noWideLaunchEnv)
	return v == "1" || v == "true"
}
