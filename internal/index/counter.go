package index

// Counter walks every coordinate of a set of dimensions, first dimension
// fastest, keeping the flat offset in step.
//
//	for c := NewCounter(dims); !c.Done(); c.Next() {
//		use(c.I, c.Ind)
//	}
type Counter struct {
	N    []int // dimensions
	I    []int // current coordinate
	Ind  int   // flat offset of I
	done bool
}

// NewCounter returns a counter positioned at the origin. A counter over no
// dimensions yields exactly one (empty) coordinate.
func NewCounter(dims []int) *Counter {
	c := &Counter{N: append([]int(nil), dims...), I: make([]int, len(dims))}
	for _, d := range dims {
		if d < 1 {
			c.done = true
		}
	}
	return c
}

// Reset moves the counter back to the origin.
func (c *Counter) Reset() {
	clear(c.I)
	c.Ind = 0
	c.done = false
	for _, d := range c.N {
		if d < 1 {
			c.done = true
		}
	}
}

// Done reports whether all coordinates have been visited.
func (c *Counter) Done() bool { return c.done }

// Next advances to the next coordinate.
func (c *Counter) Next() {
	c.Ind++
	for n := range c.I {
		c.I[n]++
		if c.I[n] < c.N[n] {
			return
		}
		c.I[n] = 0
	}
	c.done = true
}
