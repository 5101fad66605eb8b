package trainer

import (
	"context"

	"github.com/neurlang/reasoner/checkpoint"
	"github.com/neurlang/reasoner/logging"
	"github.com/pkg/errors"
)

// Save writes the parameters, the Adam slots, the global step and the run id.
func (tr *Trainer) Save(path string) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	s := &checkpoint.State{
		Version: checkpoint.Version,
		RunID:   tr.cfg.Run.ID,
		Step:    tr.step.Load(),
	}
	for i, p := range tr.model.Params() {
		s.Params = append(s.Params, checkpoint.FromDense(p.Name, p.Value))
		s.First = append(s.First, checkpoint.FromDense(p.Name, tr.opt.First[i]))
		s.Second = append(s.Second, checkpoint.FromDense(p.Name, tr.opt.Second[i]))
	}
	return checkpoint.WriteFile(path, s)
}

// Load restores a checkpoint written by Save. A missing file is
// checkpoint.ErrNotFound. Parameters are matched by name and shape; nothing
// is modified unless the whole checkpoint fits.
func (tr *Trainer) Load(path string) error {
	s, err := checkpoint.ReadFile(path)
	if err != nil {
		return err
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()

	params := tr.model.Params()
	if len(s.Params) != len(params) {
		return errors.Wrapf(checkpoint.ErrCorrupt, "checkpoint has %d parameters, model %d", len(s.Params), len(params))
	}
	for i, p := range params {
		if s.Params[i].Name != p.Name {
			return errors.Wrapf(checkpoint.ErrCorrupt, "parameter %d is %q, model expects %q", i, s.Params[i].Name, p.Name)
		}
		r, c := p.Value.Dims()
		for _, t := range []checkpoint.Tensor{s.Params[i], s.First[i], s.Second[i]} {
			if t.Rows != r || t.Cols != c || len(t.Data) != r*c {
				return errors.Wrapf(checkpoint.ErrCorrupt, "%s is %dx%d, checkpoint has %dx%d", p.Name, r, c, t.Rows, t.Cols)
			}
		}
	}
	for i, p := range params {
		if err := s.Params[i].CopyTo(p.Value); err != nil {
			return err
		}
		if err := s.First[i].CopyTo(tr.opt.First[i]); err != nil {
			return err
		}
		if err := s.Second[i].CopyTo(tr.opt.Second[i]); err != nil {
			return err
		}
	}
	tr.opt.Steps = s.Step
	tr.step.Store(s.Step)
	if s.RunID != "" {
		tr.cfg.Run.ID = s.RunID
	}
	return nil
}

// Resume loads dstmodel when resume is set. A missing checkpoint is fatal.
func Resume(ctx context.Context, tr *Trainer, resume bool, dstmodel string) error {
	if !resume || dstmodel == "" {
		return nil
	}
	if err := tr.Load(dstmodel); err != nil {
		return errors.Wrapf(err, "resuming from %s", dstmodel)
	}
	logging.FromContext(ctx).Info("Resumed.", "path", dstmodel, "step", tr.Step(), "run", tr.cfg.Run.ID)
	return nil
}
