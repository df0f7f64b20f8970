package model

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"

	"lutfit/internal/colorset"
	"lutfit/internal/errs"
)

// MinNetworkPoints is the smallest set a Network is trained on. Fewer points
// than this do not constrain even a narrow hidden layer.
const MinNetworkPoints = 24

// NetworkConfig tunes the regression network.
type NetworkConfig struct {
	// HiddenWidth is the number of tanh units in the hidden layer.
	HiddenWidth int
	// Restarts is the number of independent random initializations. The
	// restart with the lowest training loss wins.
	Restarts int
	// MaxIterations bounds the optimizer per restart.
	MaxIterations int
	// WeightDecay penalizes the squared norm of the parameters.
	WeightDecay float64
	// Seed fixes the initial weights of every restart.
	Seed uint64
}

// DefaultNetworkConfig returns the settings used when none are given.
func DefaultNetworkConfig() NetworkConfig {
	return NetworkConfig{
		HiddenWidth:   5,
		Restarts:      5,
		MaxIterations: 1000,
		WeightDecay:   0.001,
	}
}

// Validate checks the tuning parameters.
func (c NetworkConfig) Validate() error {
	if c.HiddenWidth < 1 {
		return fmt.Errorf("%w: hidden width must be at least 1, got %d", errs.ErrConfig, c.HiddenWidth)
	}
	if c.Restarts < 1 {
		return fmt.Errorf("%w: restart count must be at least 1, got %d", errs.ErrConfig, c.Restarts)
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("%w: max iterations must be at least 1, got %d", errs.ErrConfig, c.MaxIterations)
	}
	if c.WeightDecay < 0 || math.IsNaN(c.WeightDecay) {
		return fmt.Errorf("%w: weight decay must not be negative, got %v", errs.ErrConfig, c.WeightDecay)
	}
	return nil
}

// MinPoints implements Fitter.
func (c NetworkConfig) MinPoints() int { return MinNetworkPoints }

// Fit implements Fitter.
func (c NetworkConfig) Fit(ctx context.Context, set *colorset.Set) (Model, error) {
	return FitNetwork(ctx, set, c)
}

// Network is a trained 3-H-3 feed-forward network: tanh hidden layer,
// linear output layer.
//
// Parameters are stored flat: W1 (H×3), b1 (H), W2 (3×H), b2 (3).
type Network struct {
	hidden int
	params []float64

	restart int
	loss    float64
}

// FitNetwork trains cfg.Restarts networks from independent random starts and
// keeps the one with the lowest training mean squared error. The context is
// checked between restarts.
func FitNetwork(ctx context.Context, set *colorset.Set, cfg NetworkConfig) (*Network, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := set.Validate(MinNetworkPoints); err != nil {
		return nil, err
	}
	tr := &trainer{
		hidden: cfg.HiddenWidth,
		decay:  cfg.WeightDecay,
		src:    set.Sources(),
		dst:    set.Targets(),
	}

	var best *Network
	var lastErr error
	for r := 0; r < cfg.Restarts; r++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rng := rand.New(rand.NewPCG(cfg.Seed, uint64(r)))
		params, err := tr.train(tr.initial(rng), cfg.MaxIterations)
		if err != nil {
			lastErr = err
			continue
		}
		n := &Network{hidden: cfg.HiddenWidth, params: params, restart: r}
		n.loss = tr.mse(params)
		if math.IsNaN(n.loss) || math.IsInf(n.loss, 0) {
			lastErr = errors.New("training diverged")
			continue
		}
		if best == nil || n.loss < best.loss {
			best = n
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: every restart failed: %v", errs.ErrSingularFit, lastErr)
	}
	return best, nil
}

// Evaluate implements Model.
func (n *Network) Evaluate(p colorset.Point3) colorset.Point3 {
	h := make([]float64, n.hidden)
	return forward(n.params, n.hidden, p, h)
}

// EvaluateBatch implements Model.
func (n *Network) EvaluateBatch(ctx context.Context, points []colorset.Point3, workers int) ([]colorset.Point3, error) {
	return evaluateBatch(ctx, n.Evaluate, points, workers)
}

// Restart returns the index of the restart that was kept.
func (n *Network) Restart() int { return n.restart }

// TrainingLoss returns the mean squared error of the kept restart over the
// training set.
func (n *Network) TrainingLoss() float64 { return n.loss }

func paramCount(hidden int) int { return 7*hidden + 3 }

// forward runs the network on p, leaving hidden activations in h.
func forward(w []float64, hidden int, p colorset.Point3, h []float64) colorset.Point3 {
	w1 := w[:3*hidden]
	b1 := w[3*hidden : 4*hidden]
	w2 := w[4*hidden : 7*hidden]
	b2 := w[7*hidden:]
	for j := 0; j < hidden; j++ {
		h[j] = math.Tanh(w1[3*j]*p[0] + w1[3*j+1]*p[1] + w1[3*j+2]*p[2] + b1[j])
	}
	var out colorset.Point3
	for c := 0; c < 3; c++ {
		out[c] = b2[c] + floats.Dot(w2[c*hidden:(c+1)*hidden], h)
	}
	return out
}

type trainer struct {
	hidden int
	decay  float64
	src    []colorset.Point3
	dst    []colorset.Point3
}

// initial draws weights from N(0, 1/fan_in) and starts the output bias at
// the target mean.
func (t *trainer) initial(rng *rand.Rand) []float64 {
	w := make([]float64, paramCount(t.hidden))
	h := t.hidden
	for i := 0; i < 3*h; i++ {
		w[i] = rng.NormFloat64() * math.Sqrt(1.0/3)
	}
	for i := 4 * h; i < 7*h; i++ {
		w[i] = rng.NormFloat64() * math.Sqrt(1.0/float64(h))
	}
	m := mean(t.dst)
	copy(w[7*h:], m[:])
	return w
}

func (t *trainer) train(w0 []float64, maxIter int) ([]float64, error) {
	problem := optimize.Problem{
		Func: func(w []float64) float64 {
			return t.lossGrad(nil, w)
		},
		Grad: func(grad, w []float64) {
			t.lossGrad(grad, w)
		},
	}
	settings := &optimize.Settings{
		MajorIterations:   maxIter,
		GradientThreshold: 1e-10,
	}
	result, err := optimize.Minimize(problem, w0, settings, &optimize.LBFGS{})
	if result == nil {
		return nil, err
	}
	// A line search that stops making progress still leaves a usable
	// location; only a missing result is fatal.
	return result.X, nil
}

// lossGrad returns ½·MSE + ½·decay·|w|² and, when grad is not nil, stores its
// gradient in grad.
func (t *trainer) lossGrad(grad, w []float64) float64 {
	h := t.hidden
	if grad != nil {
		for i := range grad {
			grad[i] = 0
		}
	}
	hid := make([]float64, h)
	var sse float64
	for i, p := range t.src {
		y := forward(w, h, p, hid)
		var e colorset.Point3
		for c := 0; c < 3; c++ {
			e[c] = y[c] - t.dst[i][c]
			sse += e[c] * e[c]
		}
		if grad == nil {
			continue
		}
		gw1 := grad[:3*h]
		gb1 := grad[3*h : 4*h]
		gw2 := grad[4*h : 7*h]
		gb2 := grad[7*h:]
		w2 := w[4*h : 7*h]
		for j := 0; j < h; j++ {
			var dh float64
			for c := 0; c < 3; c++ {
				gw2[c*h+j] += e[c] * hid[j]
				dh += e[c] * w2[c*h+j]
			}
			dz := dh * (1 - hid[j]*hid[j])
			gw1[3*j] += dz * p[0]
			gw1[3*j+1] += dz * p[1]
			gw1[3*j+2] += dz * p[2]
			gb1[j] += dz
		}
		for c := 0; c < 3; c++ {
			gb2[c] += e[c]
		}
	}
	n := float64(len(t.src))
	if grad != nil {
		floats.Scale(1/n, grad)
		floats.AddScaled(grad, t.decay, w)
	}
	return 0.5*sse/n + 0.5*t.decay*floats.Dot(w, w)
}

// mse is the mean squared error per channel over the training set.
func (t *trainer) mse(w []float64) float64 {
	hid := make([]float64, t.hidden)
	var sse float64
	for i, p := range t.src {
		y := forward(w, t.hidden, p, hid)
		for c := 0; c < 3; c++ {
			d := y[c] - t.dst[i][c]
			sse += d * d
		}
	}
	return sse / float64(3*len(t.src))
}
