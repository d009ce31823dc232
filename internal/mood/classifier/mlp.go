// Respira - Breathing Session Mood Prediction and Scheduling
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/respira

// Package classifier implements the multi-layer perceptron used to predict
// post-session mood.
//
// The network uses ReLU hidden layers and a softmax output over a fixed set of
// class labels, trained with Adam on a class-weighted cross-entropy loss.
// Fit performs a full retrain from freshly initialised weights; PartialFit
// applies a single pass over new examples to an existing model, keeping the
// feature scaler and optimizer state. All exported fields are gob-encodable so
// the model can be persisted as-is.
//
// # Thread Safety
//
// An MLP is not safe for concurrent mutation. Predict and PredictProba only
// read the weights and may be called concurrently on a model that is no
// longer being trained.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
)

// Adam and regularisation constants, matching common MLP defaults.
const (
	beta1   = 0.9
	beta2   = 0.999
	epsilon = 1e-8
	alpha   = 1e-4

	// Early stopping: stop once the loss fails to improve by tol for noChange epochs.
	tol      = 1e-4
	noChange = 10
)

// Config contains network and optimizer settings.
type Config struct {
	HiddenLayers []int
	MaxIter      int
	LearningRate float64
	BatchSize    int
	Seed         int64
}

// DefaultConfig returns the (16, 8) network trained for up to 500 epochs.
func DefaultConfig() Config {
	return Config{
		HiddenLayers: []int{16, 8},
		MaxIter:      500,
		LearningRate: 0.001,
		BatchSize:    200,
		Seed:         42,
	}
}

// Layer is one dense layer. W is row-major with Out rows of In weights.
// MW/VW/MB/VB hold Adam moment estimates.
type Layer struct {
	In, Out int
	W, B    []float64
	MW, VW  []float64
	MB, VB  []float64
}

// MLP is a feed-forward classifier.
type MLP struct {
	Classes []int
	Layers  []Layer
	Scaler  Scaler

	LearningRate float64
	BatchSize    int
	MaxIter      int
	Seed         int64

	// Step is the number of Adam updates applied so far.
	Step int
	// Epochs is the number of passes over data applied so far.
	Epochs int
	// Loss is the mean loss of the most recent epoch.
	Loss float64
}

// FitReport summarises a training call.
type FitReport struct {
	Epochs    int
	Loss      float64
	Converged bool
}

// New creates an untrained network for numFeatures inputs and the given class labels.
func New(cfg Config, numFeatures int, classes []int) (*MLP, error) {
	if numFeatures < 1 {
		return nil, errors.New("classifier: numFeatures must be positive")
	}
	if len(classes) < 2 {
		return nil, errors.New("classifier: at least two classes are required")
	}
	if cfg.MaxIter < 1 {
		cfg.MaxIter = DefaultConfig().MaxIter
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = DefaultConfig().LearningRate
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if len(cfg.HiddenLayers) == 0 {
		cfg.HiddenLayers = DefaultConfig().HiddenLayers
	}

	seen := make(map[int]bool, len(classes))
	for _, c := range classes {
		if seen[c] {
			return nil, fmt.Errorf("classifier: duplicate class %d", c)
		}
		seen[c] = true
	}

	m := &MLP{
		Classes:      append([]int(nil), classes...),
		LearningRate: cfg.LearningRate,
		BatchSize:    cfg.BatchSize,
		MaxIter:      cfg.MaxIter,
		Seed:         cfg.Seed,
	}

	sizes := make([]int, 0, len(cfg.HiddenLayers)+2)
	sizes = append(sizes, numFeatures)
	sizes = append(sizes, cfg.HiddenLayers...)
	sizes = append(sizes, len(classes))

	rng := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // reproducible initialisation
	for i := 0; i < len(sizes)-1; i++ {
		in, out := sizes[i], sizes[i+1]
		if in < 1 || out < 1 {
			return nil, fmt.Errorf("classifier: invalid layer size %d", out)
		}
		// Glorot uniform initialisation.
		bound := math.Sqrt(6.0 / float64(in+out))
		layer := Layer{
			In: in, Out: out,
			W:  make([]float64, in*out),
			B:  make([]float64, out),
			MW: make([]float64, in*out),
			VW: make([]float64, in*out),
			MB: make([]float64, out),
			VB: make([]float64, out),
		}
		for j := range layer.W {
			layer.W[j] = (rng.Float64()*2 - 1) * bound
		}
		for j := range layer.B {
			layer.B[j] = (rng.Float64()*2 - 1) * bound
		}
		m.Layers = append(m.Layers, layer)
	}
	return m, nil
}

// NumFeatures returns the expected input width.
func (m *MLP) NumFeatures() int {
	if len(m.Layers) == 0 {
		return 0
	}
	return m.Layers[0].In
}

// Fit trains the network on X/y from its current weights, refitting the
// feature scaler. sampleWeight may be nil for uniform weights.
func (m *MLP) Fit(ctx context.Context, X [][]float64, y []int, sampleWeight []float64) (FitReport, error) {
	targets, weights, err := m.prepare(X, y, sampleWeight)
	if err != nil {
		return FitReport{}, err
	}
	m.Scaler = FitScaler(X)
	scaled := m.Scaler.TransformAll(X)

	rng := rand.New(rand.NewSource(m.Seed)) //nolint:gosec // reproducible shuffling
	best := math.Inf(1)
	stale := 0
	report := FitReport{}

	for epoch := 0; epoch < m.MaxIter; epoch++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		loss := m.epoch(scaled, targets, weights, rng)
		report.Epochs++
		report.Loss = loss

		if loss > best-tol {
			stale++
		} else {
			stale = 0
		}
		if loss < best {
			best = loss
		}
		if stale >= noChange {
			report.Converged = true
			break
		}
	}
	return report, nil
}

// PartialFit applies one pass over X/y. The scaler is fitted from X only when
// the model has never seen data.
func (m *MLP) PartialFit(ctx context.Context, X [][]float64, y []int, sampleWeight []float64) (FitReport, error) {
	targets, weights, err := m.prepare(X, y, sampleWeight)
	if err != nil {
		return FitReport{}, err
	}
	if err := ctx.Err(); err != nil {
		return FitReport{}, err
	}
	if !m.Scaler.Fitted() {
		m.Scaler = FitScaler(X)
	}
	rng := rand.New(rand.NewSource(m.Seed + int64(m.Epochs))) //nolint:gosec // reproducible shuffling
	loss := m.epoch(m.Scaler.TransformAll(X), targets, weights, rng)
	return FitReport{Epochs: 1, Loss: loss}, nil
}

func (m *MLP) prepare(X [][]float64, y []int, sampleWeight []float64) ([]int, []float64, error) {
	if len(X) == 0 {
		return nil, nil, errors.New("classifier: no training samples")
	}
	if len(X) != len(y) {
		return nil, nil, fmt.Errorf("classifier: %d samples but %d labels", len(X), len(y))
	}
	if sampleWeight != nil && len(sampleWeight) != len(y) {
		return nil, nil, fmt.Errorf("classifier: %d samples but %d weights", len(y), len(sampleWeight))
	}
	index := m.classIndex()
	targets := make([]int, len(y))
	for i, label := range y {
		k, ok := index[label]
		if !ok {
			return nil, nil, fmt.Errorf("classifier: unknown class %d", label)
		}
		targets[i] = k
		if len(X[i]) != m.NumFeatures() {
			return nil, nil, fmt.Errorf("classifier: sample %d has %d features, want %d", i, len(X[i]), m.NumFeatures())
		}
	}
	weights := sampleWeight
	if weights == nil {
		weights = make([]float64, len(y))
		for i := range weights {
			weights[i] = 1
		}
	}
	return targets, weights, nil
}

func (m *MLP) classIndex() map[int]int {
	index := make(map[int]int, len(m.Classes))
	for i, c := range m.Classes {
		index[c] = i
	}
	return index
}

// epoch runs shuffled mini-batches over already-scaled data and returns the mean loss.
func (m *MLP) epoch(X [][]float64, targets []int, weights []float64, rng *rand.Rand) float64 {
	order := rng.Perm(len(X))
	grads := m.newGrads()
	acts := m.newActivations()
	deltas := m.newActivations()

	var total float64
	for start := 0; start < len(order); start += m.BatchSize {
		end := start + m.BatchSize
		if end > len(order) {
			end = len(order)
		}
		grads.reset()
		for _, idx := range order[start:end] {
			total += m.backprop(X[idx], targets[idx], weights[idx], acts, deltas, grads)
		}
		m.applyAdam(grads, end-start)
	}
	m.Epochs++
	m.Loss = total / float64(len(X))
	return m.Loss
}

type gradients struct {
	w, b [][]float64
}

func (g *gradients) reset() {
	for i := range g.w {
		clear(g.w[i])
		clear(g.b[i])
	}
}

func (m *MLP) newGrads() *gradients {
	g := &gradients{w: make([][]float64, len(m.Layers)), b: make([][]float64, len(m.Layers))}
	for i, l := range m.Layers {
		g.w[i] = make([]float64, len(l.W))
		g.b[i] = make([]float64, len(l.B))
	}
	return g
}

// newActivations allocates one buffer per layer output, plus the input slot.
func (m *MLP) newActivations() [][]float64 {
	acts := make([][]float64, len(m.Layers)+1)
	acts[0] = make([]float64, m.NumFeatures())
	for i, l := range m.Layers {
		acts[i+1] = make([]float64, l.Out)
	}
	return acts
}

// forward fills acts from x (already scaled); the last slot holds class probabilities.
func (m *MLP) forward(x []float64, acts [][]float64) {
	copy(acts[0], x)
	last := len(m.Layers) - 1
	for li := range m.Layers {
		l := &m.Layers[li]
		in, out := acts[li], acts[li+1]
		for o := 0; o < l.Out; o++ {
			sum := l.B[o]
			row := l.W[o*l.In : (o+1)*l.In]
			for i, v := range in {
				sum += row[i] * v
			}
			if li < last && sum < 0 {
				sum = 0
			}
			out[o] = sum
		}
	}
	softmax(acts[len(acts)-1])
}

// backprop accumulates gradients for one sample and returns its weighted loss.
func (m *MLP) backprop(x []float64, target int, weight float64, acts, deltas [][]float64, g *gradients) float64 {
	m.forward(x, acts)

	out := acts[len(acts)-1]
	loss := -weight * math.Log(math.Max(out[target], 1e-12))

	d := deltas[len(deltas)-1]
	for k := range out {
		d[k] = out[k]
		if k == target {
			d[k]--
		}
		d[k] *= weight
	}

	for li := len(m.Layers) - 1; li >= 0; li-- {
		l := &m.Layers[li]
		in := acts[li]
		delta := deltas[li+1]
		for o := 0; o < l.Out; o++ {
			g.b[li][o] += delta[o]
			row := g.w[li][o*l.In : (o+1)*l.In]
			for i, v := range in {
				row[i] += delta[o] * v
			}
		}
		if li == 0 {
			break
		}
		prev := deltas[li]
		for i := 0; i < l.In; i++ {
			if in[i] <= 0 {
				prev[i] = 0
				continue
			}
			var sum float64
			for o := 0; o < l.Out; o++ {
				sum += l.W[o*l.In+i] * delta[o]
			}
			prev[i] = sum
		}
	}
	return loss
}

func (m *MLP) applyAdam(g *gradients, n int) {
	m.Step++
	t := float64(m.Step)
	lr := m.LearningRate * math.Sqrt(1-math.Pow(beta2, t)) / (1 - math.Pow(beta1, t))
	scale := 1 / float64(n)

	for li := range m.Layers {
		l := &m.Layers[li]
		for j := range l.W {
			grad := g.w[li][j]*scale + alpha*l.W[j]*scale
			l.MW[j] = beta1*l.MW[j] + (1-beta1)*grad
			l.VW[j] = beta2*l.VW[j] + (1-beta2)*grad*grad
			l.W[j] -= lr * l.MW[j] / (math.Sqrt(l.VW[j]) + epsilon)
		}
		for j := range l.B {
			grad := g.b[li][j] * scale
			l.MB[j] = beta1*l.MB[j] + (1-beta1)*grad
			l.VB[j] = beta2*l.VB[j] + (1-beta2)*grad*grad
			l.B[j] -= lr * l.MB[j] / (math.Sqrt(l.VB[j]) + epsilon)
		}
	}
}

// PredictProba returns class probabilities in Classes order.
func (m *MLP) PredictProba(x []float64) ([]float64, error) {
	if len(x) != m.NumFeatures() {
		return nil, fmt.Errorf("classifier: got %d features, want %d", len(x), m.NumFeatures())
	}
	acts := m.newActivations()
	m.forward(m.Scaler.Transform(x), acts)
	return append([]float64(nil), acts[len(acts)-1]...), nil
}

// Predict returns the argmax class label. Ties resolve to the earliest class.
func (m *MLP) Predict(x []float64) (int, error) {
	probs, err := m.PredictProba(x)
	if err != nil {
		return 0, err
	}
	best := 0
	for k := 1; k < len(probs); k++ {
		if probs[k] > probs[best] {
			best = k
		}
	}
	return m.Classes[best], nil
}

// Accuracy returns the fraction of X predicted as y. Empty input yields 0.
func (m *MLP) Accuracy(X [][]float64, y []int) float64 {
	if len(X) == 0 {
		return 0
	}
	correct := 0
	for i := range X {
		if p, err := m.Predict(X[i]); err == nil && p == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(X))
}

func softmax(v []float64) {
	maxV := v[0]
	for _, x := range v[1:] {
		if x > maxV {
			maxV = x
		}
	}
	var sum float64
	for i, x := range v {
		v[i] = math.Exp(x - maxV)
		sum += v[i]
	}
	for i := range v {
		v[i] /= sum
	}
}
