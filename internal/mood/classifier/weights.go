// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

package classifier

import (
	"math"
	"math/rand"
)

// BalancedWeights returns per-sample weights n / (k * count[class]) where k is
// the number of classes present, so every present class contributes equally
// to the loss. Weights average to 1.
func BalancedWeights(y []int) []float64 {
	counts := make(map[int]int)
	for _, label := range y {
		counts[label]++
	}
	n := float64(len(y))
	k := float64(len(counts))
	weights := make([]float64, len(y))
	for i, label := range y {
		weights[i] = n / (k * float64(counts[label]))
	}
	return weights
}

// TrainTestSplit shuffles indices 0..n-1 with rng and holds out
// round(n*testRatio) of them, always leaving at least one training index.
func TrainTestSplit(n int, testRatio float64, rng *rand.Rand) (train, test []int) {
	order := rng.Perm(n)
	nTest := int(math.Round(float64(n) * testRatio))
	if nTest >= n {
		nTest = n - 1
	}
	if nTest < 0 {
		nTest = 0
	}
	return order[nTest:], order[:nTest]
}
