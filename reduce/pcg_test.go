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

// pcgRNG is the PCG XSH-RR 32 generator this test suite's deterministic
// fixtures are built against: state multiplied by 6364136223846793005 and
// incremented by 1442695040888963407, seeded with 1.
type pcgRNG struct {
	state uint64
}

func newPCG(seed uint64) *pcgRNG {
	r := &pcgRNG{state: seed + 1442695040888963407}
	r.next()
	return r
}

func (r *pcgRNG) next() uint32 {
	old := r.state
	r.state = old*6364136223846793005 + 1442695040888963407
	xorshifted := uint32(((old >> 18) ^ old) >> 27)
	rot := uint32(old >> 59)
	return (xorshifted >> rot) | (xorshifted << ((-rot) & 31))
}

// rand01 returns a uniform float64 in [0, 1).
func (r *pcgRNG) rand01() float64 {
	return float64(r.next()) / float64(1<<32)
}
