/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package playlist

import "math/rand"

// stringHash reproduces the legacy `(hash<<5)-hash` string hash used by the
// source's deterministic shuffle (spec.md §9 Design Note). Kept as a plain
// function, not a third-party hash package, because the spec mandates this
// exact algorithm for byte-identical orderings across re-implementations.
func stringHash(s string) int32 {
	var hash int32
	for _, r := range s {
		hash = (hash << 5) - hash + int32(r)
	}
	return hash
}

// seededShuffle deterministically permutes ids using a linear congruential
// generator seeded from seed, with the published constants (9301, 49297,
// 233280) named in spec.md §9. Fisher-Yates consumes the generator's
// output in order, so the same seed always yields the same permutation.
func seededShuffle(ids []string, seed int32) []string {
	out := make([]string, len(ids))
	copy(out, ids)

	state := int64(seed)
	next := func() float64 {
		state = (state*9301 + 49297) % 233280
		if state < 0 {
			state += 233280
		}
		return float64(state) / 233280.0
	}

	for i := len(out) - 1; i > 0; i-- {
		j := int(next() * float64(i+1))
		if j > i {
			j = i
		}
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// randomShuffle performs a non-deterministic Fisher-Yates permutation,
// used by "random" playback mode (spec.md §4.B).
func randomShuffle(ids []string) []string {
	out := make([]string, len(ids))
	copy(out, ids)
	rand.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}
