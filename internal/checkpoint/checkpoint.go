// Package checkpoint persists network tensors in a small versioned format:
// a 4-byte magic followed by a gob envelope whose tensors are gonum
// mat.Dense binary blobs.
package checkpoint

import (
	"bytes"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gonum.org/v1/gonum/mat"
)

// FormatVersion is written into every checkpoint.
const FormatVersion = 1

// Extension is the file suffix used for checkpoints.
const Extension = ".pt"

var magic = []byte("FQNT")

var (
	ErrFormat  = errors.New("not a checkpoint file")
	ErrVersion = errors.New("unsupported checkpoint version")
)

type envelope struct {
	Version int
	SavedAt time.Time
	Tensors map[string][]byte
}

// Encode writes state to w.
func Encode(w io.Writer, state map[string]*mat.Dense) error {
	env := envelope{
		Version: FormatVersion,
		SavedAt: time.Now().UTC(),
		Tensors: make(map[string][]byte, len(state)),
	}
	for name, t := range state {
		blob, err := t.MarshalBinary()
		if err != nil {
			return fmt.Errorf("marshal %q: %w", name, err)
		}
		env.Tensors[name] = blob
	}
	if _, err := w.Write(magic); err != nil {
		return err
	}
	return gob.NewEncoder(w).Encode(&env)
}

// Decode reads a state written by Encode.
func Decode(r io.Reader) (map[string]*mat.Dense, error) {
	head := make([]byte, len(magic))
	if _, err := io.ReadFull(r, head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if !bytes.Equal(head, magic) {
		return nil, ErrFormat
	}
	var env envelope
	if err := gob.NewDecoder(r).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if env.Version != FormatVersion {
		return nil, fmt.Errorf("%w: %d", ErrVersion, env.Version)
	}
	state := make(map[string]*mat.Dense, len(env.Tensors))
	for name, blob := range env.Tensors {
		t := new(mat.Dense)
		if err := t.UnmarshalBinary(blob); err != nil {
			return nil, fmt.Errorf("unmarshal %q: %w", name, err)
		}
		state[name] = t
	}
	return state, nil
}

// SavePath is where the target network of an episode is written:
// <root>/<label>/<label>_model_ep<episode>.pt
func SavePath(root, label string, episode int) string {
	return filepath.Join(root, label, label+"_model_ep"+strconv.Itoa(episode)+Extension)
}

// LoadPath is where a named model is read from: <root>/<name>.pt
func LoadPath(root, name string) string {
	return filepath.Join(root, name+Extension)
}

// Store reads and writes checkpoints by path.
type Store interface {
	Save(path string, state map[string]*mat.Dense) error
	Load(path string) (map[string]*mat.Dense, error)
}

// FileStore keeps checkpoints on the local file system.
type FileStore struct{}

// Save creates the parent directory if needed and writes the checkpoint.
func (FileStore) Save(path string, state map[string]*mat.Dense) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}
	var buf bytes.Buffer
	if err := Encode(&buf, state); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// Load reads the checkpoint at path.
func (FileStore) Load(path string) (map[string]*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}
