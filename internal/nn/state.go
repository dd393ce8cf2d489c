package nn

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/mat"
)

// ErrStateMismatch is returned when a state map does not fit the architecture.
var ErrStateMismatch = errors.New("state does not match network")

// tensors returns live references to every parameter and buffer by name.
func (n *Network) tensors() map[string]*mat.Dense {
	out := make(map[string]*mat.Dense)
	for _, p := range n.Params() {
		out[p.Name] = p.Value
	}
	for i, bn := range n.norms {
		name := "norm" + strconv.Itoa(i+1)
		out[name+".running_mean"] = bn.runMean
		out[name+".running_var"] = bn.runVar
	}
	return out
}

// StateDict returns a deep copy of parameters and batch-norm buffers.
func (n *Network) StateDict() map[string]*mat.Dense {
	live := n.tensors()
	out := make(map[string]*mat.Dense, len(live))
	for name, t := range live {
		out[name] = mat.DenseCopyOf(t)
	}
	return out
}

// LoadStateDict overwrites every tensor from state. The keys and shapes must
// match exactly; nothing is modified on mismatch.
func (n *Network) LoadStateDict(state map[string]*mat.Dense) error {
	live := n.tensors()
	if len(state) != len(live) {
		return fmt.Errorf("%w: %d tensors, want %d", ErrStateMismatch, len(state), len(live))
	}
	for name, dst := range live {
		src, ok := state[name]
		if !ok {
			return fmt.Errorf("%w: missing %q", ErrStateMismatch, name)
		}
		sr, sc := src.Dims()
		dr, dc := dst.Dims()
		if sr != dr || sc != dc {
			return fmt.Errorf("%w: %q is %dx%d, want %dx%d", ErrStateMismatch, name, sr, sc, dr, dc)
		}
	}
	for name, dst := range live {
		dst.Copy(state[name])
	}
	return nil
}

// CopyFrom overwrites n with src's tensors. src is never modified.
func (n *Network) CopyFrom(src *Network) error {
	return n.LoadStateDict(src.tensors())
}

// Equal reports whether two networks hold identical tensors.
func (n *Network) Equal(other *Network) bool {
	a, b := n.tensors(), other.tensors()
	if len(a) != len(b) {
		return false
	}
	for name, t := range a {
		u, ok := b[name]
		if !ok || !mat.Equal(t, u) {
			return false
		}
	}
	return true
}

// TensorNames lists the state keys in sorted order.
func (n *Network) TensorNames() []string {
	live := n.tensors()
	names := make([]string, 0, len(live))
	for name := range live {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
