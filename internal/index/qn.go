package index

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// QN is an abelian quantum number label: total spin projection (in units of
// 1/2) and particle number.
type QN struct {
	Sz int
	Nf int
}

// Add returns q + o.
func (q QN) Add(o QN) QN { return QN{Sz: q.Sz + o.Sz, Nf: q.Nf + o.Nf} }

// Neg returns -q.
func (q QN) Neg() QN { return QN{Sz: -q.Sz, Nf: -q.Nf} }

// Mul returns q multiplied by an arrow direction.
func (q QN) Mul(a Arrow) QN {
	if a == In {
		return q.Neg()
	}
	return q
}

// String implements fmt.Stringer.
func (q QN) String() string { return fmt.Sprintf("(Sz=%d,Nf=%d)", q.Sz, q.Nf) }

// Arrow is the direction of an IQIndex.
type Arrow int

// Arrow directions.
const (
	In  Arrow = -1
	Out Arrow = 1
)

// Flip returns the opposite direction.
func (a Arrow) Flip() Arrow { return -a }

// String implements fmt.Stringer.
func (a Arrow) String() string {
	if a == In {
		return "In"
	}
	return "Out"
}

// IndexQN is one block of an IQIndex: a plain Index tagged with a QN.
type IndexQN struct {
	Index Index
	QN    QN
}

// IQIndex is an Index partitioned into quantum-number blocks. Its total
// dimension is the sum of the block dimensions.
type IQIndex struct {
	full   Index
	dir    Arrow
	blocks []IndexQN
}

// NewIQIndex creates an IQIndex over the given blocks.
func NewIQIndex(name string, typ Type, dir Arrow, blocks ...IndexQN) (IQIndex, error) {
	if len(blocks) == 0 {
		return IQIndex{}, errors.New("iqindex: no blocks")
	}
	total := 0
	for n, b := range blocks {
		if b.Index.IsNull() {
			return IQIndex{}, errors.Wrapf(ErrNullIndex, "block %d", n)
		}
		total += b.Index.M()
	}
	return IQIndex{
		full:   New(name, total, typ),
		dir:    dir,
		blocks: append([]IndexQN(nil), blocks...),
	}, nil
}

// Index returns the composite Index spanning all blocks.
func (q IQIndex) Index() Index { return q.full }

// M returns the total dimension.
func (q IQIndex) M() int { return q.full.m }

// Dir returns the arrow direction.
func (q IQIndex) Dir() Arrow { return q.dir }

// NBlocks returns the number of blocks.
func (q IQIndex) NBlocks() int { return len(q.blocks) }

// Block returns block n.
func (q IQIndex) Block(n int) IndexQN { return q.blocks[n] }

// Blocks returns a copy of the blocks.
func (q IQIndex) Blocks() []IndexQN { return append([]IndexQN(nil), q.blocks...) }

// Equal reports whether q and o are the same IQIndex at the same prime level.
func (q IQIndex) Equal(o IQIndex) bool { return q.full.Equal(o.full) }

// FindBlock returns the block position of i, or -1.
func (q IQIndex) FindBlock(i Index) int {
	for n, b := range q.blocks {
		if b.Index.Equal(i) {
			return n
		}
	}
	return -1
}

// HasBlock reports whether i is one of the blocks.
func (q IQIndex) HasBlock(i Index) bool { return q.FindBlock(i) >= 0 }

// QNOf returns the quantum number of block i.
func (q IQIndex) QNOf(i Index) (QN, bool) {
	n := q.FindBlock(i)
	if n < 0 {
		return QN{}, false
	}
	return q.blocks[n].QN, true
}

// Offset returns where block i starts inside the composite index.
func (q IQIndex) Offset(i Index) (int, bool) {
	off := 0
	for _, b := range q.blocks {
		if b.Index.Equal(i) {
			return off, true
		}
		off += b.Index.M()
	}
	return 0, false
}

// Conj returns q with its arrow reversed.
func (q IQIndex) Conj() IQIndex {
	q.dir = q.dir.Flip()
	return q
}

// Primed raises the prime level of q and of each block by inc.
func (q IQIndex) Primed(inc int) IQIndex {
	out := IQIndex{full: q.full.Primed(inc), dir: q.dir, blocks: make([]IndexQN, len(q.blocks))}
	for n, b := range q.blocks {
		out.blocks[n] = IndexQN{Index: b.Index.Primed(inc), QN: b.QN}
	}
	return out
}

// String implements fmt.Stringer.
func (q IQIndex) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s {", q.full, q.dir)
	for n, b := range q.blocks {
		if n > 0 {
			sb.WriteString(" ")
		}
		fmt.Fprintf(&sb, "%s:%s", b.Index, b.QN)
	}
	sb.WriteString("}")
	return sb.String()
}
