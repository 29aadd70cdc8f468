// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API of the labeled-index tensor engine.
//
// # Overview
//
// A Tensor is a dense array whose axes are labeled by Index values rather
// than positions. Two tensors contract over every Index they share,
// whatever order the indices are stored in:
//   - Index identity is a UUID plus a prime level; dimension-1 indices are
//     bookkeeping only and do not affect the layout
//   - magnitudes live in a log-domain Scale next to the buffer, so long
//     chains of contractions neither overflow nor underflow
//   - buffers are shared copy-on-write between tensors
//   - complex tensors carry the reserved ReIm index of dimension 2
//
// # Basic Usage
//
//	i := tensor.NewIndex("i", 2, tensor.Site)
//	j := tensor.NewIndex("j", 3, tensor.Link)
//	a, _ := tensor.New(i, j)
//	_ = a.Set(1.5, i.Val(0), j.Val(2))
//
//	b, _ := tensor.New(j)
//	c, _ := a.Contract(b) // over j; c has index i
//
// Block-sparse tensors over quantum-number indices are IQTensors built from
// IQIndex values.
package tensor
