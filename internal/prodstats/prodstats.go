// Package prodstats counts which code paths the tensor engine takes:
// contraction strategy, reshape kernel and decomposition kind.
//
// Metrics live on a private registry so that embedding programs can expose
// them (or not) without touching the global prometheus registry.
package prodstats

import (
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tnet"

// Contraction paths.
const (
	PathMatrix  = "matrix"
	PathDirect  = "direct"
	PathScalar  = "scalar"
	PathComplex = "complex"
	PathOuter   = "outer"
)

// Reshape kernels.
const (
	KernelIdentity    = "identity"
	KernelTranspose   = "transpose"
	KernelSpecialized = "specialized"
	KernelGeneric     = "generic"
)

// Decomposition kinds.
const (
	KindSVD            = "svd"
	KindBlockSVD       = "block_svd"
	KindHermitian      = "hermitian"
	KindBlockHermitian = "block_hermitian"
)

var (
	registry = prometheus.NewRegistry()

	products = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "contract",
		Name:      "products_total",
		Help:      "Tensor products by execution path.",
	}, []string{"path"})

	reshapes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "reshape",
		Name:      "kernels_total",
		Help:      "Buffer permutations by kernel.",
	}, []string{"kernel"})

	decomps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "decomp",
		Name:      "calls_total",
		Help:      "Truncated decompositions by kind.",
	}, []string{"kind"})

	keptStates = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "decomp",
		Name:      "kept_states",
		Help:      "Number of states kept per decomposition.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 14),
	})
)

func init() {
	registry.MustRegister(products, reshapes, decomps, keptStates)
}

// Registry returns the registry holding all engine metrics.
func Registry() *prometheus.Registry { return registry }

// Product records one tensor product on the given path.
func Product(path string) { products.WithLabelValues(path).Inc() }

// Reshape records one buffer permutation with the given kernel.
func Reshape(kernel string) { reshapes.WithLabelValues(kernel).Inc() }

// Decomposition records one decomposition and the number of states kept.
func Decomposition(kind string, kept int) {
	decomps.WithLabelValues(kind).Inc()
	keptStates.Observe(float64(kept))
}

// Snapshot gathers every counter and histogram count as "name{labels}" ->
// value, sorted by key in the returned slice.
func Snapshot() ([]Sample, error) {
	mfs, err := registry.Gather()
	if err != nil {
		return nil, err
	}
	var out []Sample
	for _, mf := range mfs {
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, lp := range m.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
			}
			key := mf.GetName()
			if len(labels) > 0 {
				key += "{" + strings.Join(labels, ",") + "}"
			}
			switch {
			case m.GetCounter() != nil:
				out = append(out, Sample{Name: key, Value: m.GetCounter().GetValue()})
			case m.GetHistogram() != nil:
				out = append(out,
					Sample{Name: key + "_count", Value: float64(m.GetHistogram().GetSampleCount())},
					Sample{Name: key + "_sum", Value: m.GetHistogram().GetSampleSum()})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Sample is one gathered metric value.
type Sample struct {
	Name  string
	Value float64
}
