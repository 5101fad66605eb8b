package checkpoint

import (
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zlib"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
	"gonum.org/v1/gonum/mat"
)

// Version is the current checkpoint layout.
const Version = 1

// ErrNotFound is returned when the checkpoint file does not exist.
var ErrNotFound = errors.New("checkpoint not found")

// ErrCorrupt is returned for unreadable or inconsistent checkpoints.
var ErrCorrupt = errors.New("checkpoint corrupt")

// Tensor is a named row-major matrix.
type Tensor struct {
	Name string    `msgpack:"name"`
	Rows int       `msgpack:"rows"`
	Cols int       `msgpack:"cols"`
	Data []float64 `msgpack:"data"`
}

// FromDense copies m into a tensor.
func FromDense(name string, m *mat.Dense) Tensor {
	r, c := m.Dims()
	data := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		data = append(data, m.RawRowView(i)...)
	}
	return Tensor{Name: name, Rows: r, Cols: c, Data: data}
}

// CopyTo writes the tensor into m, which must have the same shape.
func (t Tensor) CopyTo(m *mat.Dense) error {
	r, c := m.Dims()
	if r != t.Rows || c != t.Cols || len(t.Data) != r*c {
		return errors.Wrapf(ErrCorrupt, "%s is %dx%d, checkpoint has %dx%d", t.Name, r, c, t.Rows, t.Cols)
	}
	for i := 0; i < r; i++ {
		copy(m.RawRowView(i), t.Data[i*c:(i+1)*c])
	}
	return nil
}

// State is everything a checkpoint holds.
type State struct {
	Version int      `msgpack:"version"`
	RunID   string   `msgpack:"run_id"`
	Step    int64    `msgpack:"step"`
	Params  []Tensor `msgpack:"params"`
	First   []Tensor `msgpack:"adam_m"`
	Second  []Tensor `msgpack:"adam_v"`
}

// Write encodes s to w.
func Write(w io.Writer, s *State) error {
	zw, err := zlib.NewWriterLevel(w, zlib.BestSpeed)
	if err != nil {
		return err
	}
	if err := msgpack.NewEncoder(zw).Encode(s); err != nil {
		zw.Close()
		return errors.Wrap(err, "encoding checkpoint")
	}
	return zw.Close()
}

// Read decodes a state from r.
func Read(r io.Reader) (*State, error) {
	zr, err := zlib.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(ErrCorrupt, err.Error())
	}
	defer zr.Close()
	s := new(State)
	if err := msgpack.NewDecoder(zr).Decode(s); err != nil {
		return nil, errors.Wrap(ErrCorrupt, err.Error())
	}
	if s.Version != Version {
		return nil, errors.Wrapf(ErrCorrupt, "unsupported version %d", s.Version)
	}
	if len(s.First) != len(s.Params) || len(s.Second) != len(s.Params) {
		return nil, errors.Wrapf(ErrCorrupt, "%d params but %d/%d moment slots", len(s.Params), len(s.First), len(s.Second))
	}
	return s, nil
}

// WriteFile writes s to a temporary file next to name and renames it into
// place, so a crash never leaves a truncated checkpoint behind.
func WriteFile(name string, s *State) error {
	dir := filepath.Dir(name)
	tmp, err := os.CreateTemp(dir, filepath.Base(name)+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "creating checkpoint in %s", dir)
	}
	if err := Write(tmp, s); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return errors.Wrap(os.Rename(tmp.Name(), name), "publishing checkpoint")
}

// ReadFile reads a checkpoint file.
func ReadFile(name string) (*State, error) {
	file, err := os.Open(name)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Read(file)
}
