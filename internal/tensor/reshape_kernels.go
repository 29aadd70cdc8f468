package tensor

import (
	"github.com/born-ml/tnet/internal/index"
	"github.com/born-ml/tnet/internal/prodstats"
)

// kernel permutes src (laid out over dims) into dst following p.
type kernel func(dst, src []float64, dims []int, p index.Permutation)

// patternKey identifies a permutation of a given rank.
type patternKey struct {
	rank int
	dest [6]int8
}

// kernels holds the fixed-depth loop nests for the permutations that recur
// in tensor-network sweeps. Anything else takes genericPermute.
var kernels = map[patternKey]kernel{}

func init() {
	register(transpose2, []int{1, 0})

	for _, d := range [][]int{
		{1, 0, 2}, {1, 2, 0}, {2, 0, 1},
	} {
		register(loop3, d)
	}
	for _, d := range [][]int{
		{0, 1, 3, 2}, {0, 2, 1, 3}, {1, 2, 0, 3}, {1, 2, 3, 0},
		{0, 3, 1, 2}, {1, 0, 2, 3}, {1, 0, 3, 2}, {2, 3, 0, 1},
	} {
		register(loop4, d)
	}
	for _, d := range [][]int{
		{2, 0, 3, 4, 1}, {0, 3, 1, 4, 2}, {0, 3, 1, 2, 4}, {2, 0, 3, 1, 4},
		{1, 3, 0, 2, 4}, {1, 3, 2, 4, 0}, {2, 3, 0, 1, 4}, {1, 0, 2, 3, 4},
		{1, 2, 3, 4, 0}, {1, 2, 3, 0, 4}, {1, 2, 0, 3, 4}, {2, 3, 0, 4, 1},
		{4, 0, 3, 1, 2},
	} {
		register(loop5, d)
	}
	for _, d := range [][]int{
		{1, 3, 0, 2, 4, 5}, {0, 3, 1, 2, 4, 5}, {1, 3, 0, 4, 2, 5},
		{0, 1, 3, 4, 2, 5}, {2, 3, 0, 4, 5, 1},
	} {
		register(loop6, d)
	}
}

func register(k kernel, dest []int) {
	kernels[keyOf(len(dest), index.PermutationOf(dest...))] = k
}

func keyOf(r int, p index.Permutation) patternKey {
	key := patternKey{rank: r}
	for j := range min(r, len(key.dest)) {
		key.dest[j] = int8(p.Dest(j))
	}
	return key
}

func lookupKernel(r int, p index.Permutation) (kernel, bool) {
	if r < 2 || r > 6 {
		return nil, false
	}
	k, ok := kernels[keyOf(r, p)]
	return k, ok
}

// destLayout returns the destination dims and, per destination axis, the
// source stride to step by.
func destLayout(dims []int, p index.Permutation) (nd, ss [index.MaxRank]int) {
	acc := 1
	for j, d := range dims {
		nd[p.Dest(j)] = d
		ss[p.Dest(j)] = acc
		acc *= d
	}
	return nd, ss
}

func transpose2(dst, src []float64, dims []int, _ index.Permutation) {
	prodstats.Reshape(prodstats.KernelTranspose)
	m0, m1 := dims[0], dims[1]
	for a := range m0 {
		for b := range m1 {
			dst[b+m1*a] = src[a+m0*b]
		}
	}
}

func loop3(dst, src []float64, dims []int, p index.Permutation) {
	prodstats.Reshape(prodstats.KernelSpecialized)
	nd, ss := destLayout(dims, p)
	i := 0
	for c := range nd[2] {
		oc := c * ss[2]
		for b := range nd[1] {
			ob := oc + b*ss[1]
			for a := range nd[0] {
				dst[i] = src[ob+a*ss[0]]
				i++
			}
		}
	}
}

func loop4(dst, src []float64, dims []int, p index.Permutation) {
	prodstats.Reshape(prodstats.KernelSpecialized)
	nd, ss := destLayout(dims, p)
	i := 0
	for d := range nd[3] {
		od := d * ss[3]
		for c := range nd[2] {
			oc := od + c*ss[2]
			for b := range nd[1] {
				ob := oc + b*ss[1]
				for a := range nd[0] {
					dst[i] = src[ob+a*ss[0]]
					i++
				}
			}
		}
	}
}

func loop5(dst, src []float64, dims []int, p index.Permutation) {
	prodstats.Reshape(prodstats.KernelSpecialized)
	nd, ss := destLayout(dims, p)
	i := 0
	for e := range nd[4] {
		oe := e * ss[4]
		for d := range nd[3] {
			od := oe + d*ss[3]
			for c := range nd[2] {
				oc := od + c*ss[2]
				for b := range nd[1] {
					ob := oc + b*ss[1]
					for a := range nd[0] {
						dst[i] = src[ob+a*ss[0]]
						i++
					}
				}
			}
		}
	}
}

func loop6(dst, src []float64, dims []int, p index.Permutation) {
	prodstats.Reshape(prodstats.KernelSpecialized)
	nd, ss := destLayout(dims, p)
	i := 0
	for f := range nd[5] {
		of := f * ss[5]
		for e := range nd[4] {
			oe := of + e*ss[4]
			for d := range nd[3] {
				od := oe + d*ss[3]
				for c := range nd[2] {
					oc := od + c*ss[2]
					for b := range nd[1] {
						ob := oc + b*ss[1]
						for a := range nd[0] {
							dst[i] = src[ob+a*ss[0]]
							i++
						}
					}
				}
			}
		}
	}
}
