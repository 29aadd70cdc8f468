package decomp

import (
	"github.com/pkg/errors"

	"github.com/born-ml/tnet/internal/scale"
)

// Options controls how decompositions are truncated.
type Options struct {
	// Cutoff bounds the discarded weight (or, with AbsoluteCutoff, each
	// discarded weight).
	Cutoff float64 `yaml:"cutoff"`
	// MinDim and MaxDim bound the number of kept states.
	MinDim int `yaml:"min_dim"`
	MaxDim int `yaml:"max_dim"`
	// AbsoluteCutoff discards every weight below Cutoff instead of
	// accumulating the discarded weight.
	AbsoluteCutoff bool `yaml:"absolute_cutoff"`
	// RelativeCutoff measures weights relative to the largest one.
	RelativeCutoff bool `yaml:"relative_cutoff"`
	// UseOrigDim keeps exactly OrigDim states, ignoring Cutoff. OrigDim is
	// not derived from the tensor being factored; the caller sets it,
	// usually to the dimension of the bond being replaced.
	UseOrigDim bool `yaml:"use_orig_dim"`
	OrigDim    int  `yaml:"orig_dim"`
	// Truncate enables truncation; when false every state is kept.
	Truncate bool `yaml:"truncate"`
	// ShowEigs logs the kept weights of every decomposition.
	ShowEigs bool `yaml:"show_eigs"`
	// RefNorm is the scale the input is brought to before factorizing
	// when RelativeCutoff is off.
	RefNorm scale.Scale `yaml:"-"`
}

// DefaultOptions returns the default truncation settings.
func DefaultOptions() Options {
	return Options{
		Cutoff:   1e-15,
		MinDim:   1,
		MaxDim:   5000,
		Truncate: true,
		RefNorm:  scale.One(),
	}
}

// Validate checks that the options are consistent.
func (o Options) Validate() error {
	switch {
	case o.MinDim < 1:
		return errors.Errorf("decomp: min_dim %d < 1", o.MinDim)
	case o.MaxDim < o.MinDim:
		return errors.Errorf("decomp: max_dim %d < min_dim %d", o.MaxDim, o.MinDim)
	case o.UseOrigDim && o.OrigDim < 1:
		return errors.Errorf("decomp: orig_dim %d < 1", o.OrigDim)
	case o.RefNorm.IsZero():
		return errors.New("decomp: ref norm is zero")
	}
	return nil
}

// effective returns the options applied to one call: UseOrigDim pins the
// kept dimension.
func (o Options) effective() Options {
	if o.UseOrigDim {
		o.Cutoff = -1
		o.MinDim = o.OrigDim
		o.MaxDim = o.OrigDim
	}
	return o
}
