package nn

import (
	"fmt"
	"math/rand"
	"strconv"

	"FusionTrader/internal/model"
)

// Network is the fused value network: an LSTM over the feature window and a
// two-stage CNN over the chart image, concatenated into a dense head that
// ends in a softmax over the actions.
type Network struct {
	cfg      Config
	lstm     *lstm
	convs    []*conv2d
	norms    []*batchNorm
	pools    []*maxPool
	fusion   []*dense
	head     *dense
	training bool
	rng      *rand.Rand
}

// Trace holds the activations of one forward pass needed by Backward.
type Trace struct {
	lstm   lstmCache
	convIn [][]float64
	bn     []bnCache
	argmax [][]int
	actIn  [][]float64
	fcIn   [][]float64
	masks  [][]float64
	headIn []float64
	probs  []float64
}

// New builds a network with freshly initialised parameters. Two networks
// built from the same Config (including Seed) start identical.
func New(cfg Config) (*Network, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("network config: %w", err)
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	n := &Network{
		cfg:      cfg,
		lstm:     newLSTM(cfg.Features, cfg.HiddenSize, rng),
		training: true,
		rng:      rng,
	}
	for i, st := range cfg.stages() {
		name := "conv" + strconv.Itoa(i+1)
		n.convs = append(n.convs, newConv2d(name, st.conv, rng))
		n.norms = append(n.norms, newBatchNorm("norm"+strconv.Itoa(i+1), st.conv.outC,
			st.conv.outH*st.conv.outW, cfg.BNMomentum, cfg.BNEpsilon))
		n.pools = append(n.pools, &maxPool{g: st.pool})
	}
	in := cfg.FusionInput()
	for i, size := range cfg.FusionSizes {
		n.fusion = append(n.fusion, newDense("fc"+strconv.Itoa(i+1), in, size, rng))
		in = size
	}
	n.head = newDense("out", in, cfg.Actions, rng)
	return n, nil
}

// Config returns the architecture the network was built with.
func (n *Network) Config() Config { return n.cfg }

// SetTraining toggles dropout and batch statistics.
func (n *Network) SetTraining(on bool) { n.training = on }

// Training reports whether the network is in training mode.
func (n *Network) Training() bool { return n.training }

// Params lists the trainable tensors in a stable order.
func (n *Network) Params() []*Param {
	ps := n.lstm.params()
	for i := range n.convs {
		ps = append(ps, n.convs[i].params()...)
		ps = append(ps, n.norms[i].params()...)
	}
	for _, d := range n.fusion {
		ps = append(ps, d.params()...)
	}
	return append(ps, n.head.params()...)
}

// ZeroGrad clears every accumulated gradient.
func (n *Network) ZeroGrad() {
	for _, p := range n.Params() {
		p.Grad.Zero()
	}
}

// Forward returns the action distribution for obs without recording a trace.
func (n *Network) Forward(obs model.Observation) ([]float64, error) {
	if err := n.cfg.CheckObservation(obs); err != nil {
		return nil, err
	}
	return n.forward(obs, nil), nil
}

// ForwardTrace is Forward plus the trace Backward needs.
func (n *Network) ForwardTrace(obs model.Observation) ([]float64, *Trace, error) {
	if err := n.cfg.CheckObservation(obs); err != nil {
		return nil, nil, err
	}
	stages := len(n.convs)
	tr := &Trace{
		convIn: make([][]float64, stages),
		bn:     make([]bnCache, stages),
		argmax: make([][]int, stages),
		actIn:  make([][]float64, stages),
		fcIn:   make([][]float64, len(n.fusion)),
		masks:  make([][]float64, len(n.fusion)),
	}
	out := n.forward(obs, tr)
	return out, tr, nil
}

func (n *Network) forward(obs model.Observation, tr *Trace) []float64 {
	var lc *lstmCache
	if tr != nil {
		lc = &tr.lstm
	}
	rec := n.lstm.forward(obs.Series, lc)

	x := obs.Image.Float64s()
	for s := range n.convs {
		var bc *bnCache
		var am *[]int
		if tr != nil {
			tr.convIn[s] = x
			bc = &tr.bn[s]
			am = &tr.argmax[s]
		}
		x = n.convs[s].forward(x)
		x = n.norms[s].forward(x, n.training, bc)
		x = n.pools[s].forward(x, am)
		if tr != nil {
			tr.actIn[s] = x
		}
		x = leakyReLU(x, n.cfg.LeakySlope)
	}

	h := make([]float64, 0, len(rec)+len(x))
	h = append(h, rec...)
	h = append(h, x...)
	for i, layer := range n.fusion {
		if tr != nil {
			tr.fcIn[i] = h
		}
		var mask []float64
		h, mask = dropout(layer.forward(h), n.cfg.Dropout, n.rng, n.training)
		if tr != nil {
			tr.masks[i] = mask
		}
	}
	probs := softmax(n.head.forward(h))
	if tr != nil {
		tr.headIn = h
		tr.probs = probs
	}
	return probs
}

// Backward accumulates parameter gradients for a trace given dL/d(output).
func (n *Network) Backward(tr *Trace, dOut []float64) {
	dh := n.head.backward(tr.headIn, softmaxBackward(tr.probs, dOut))
	for i := len(n.fusion) - 1; i >= 0; i-- {
		dh = n.fusion[i].backward(tr.fcIn[i], dropoutBackward(tr.masks[i], dh))
	}

	recLen := n.cfg.recurrentSize()
	dRec, dx := dh[:recLen], dh[recLen:]
	for s := len(n.convs) - 1; s >= 0; s-- {
		dx = leakyReLUBackward(tr.actIn[s], dx, n.cfg.LeakySlope)
		dx = n.pools[s].backward(tr.argmax[s], dx)
		dx = n.norms[s].backward(&tr.bn[s], dx)
		dx = n.convs[s].backward(tr.convIn[s], dx, s > 0)
	}
	n.lstm.backward(&tr.lstm, dRec)
}
