package decomp

import "math"

// truncate decides how many of the weights w, sorted in decreasing order,
// to keep; at least one is always kept. Negative trailing weights are
// zeroed in place. It returns the number kept and the discarded weight,
// relative to the largest weight in relative mode.
func (o Options) truncate(w []float64) (m int, truncErr float64) {
	m = len(w)
	if m == 0 {
		return 0, 0
	}
	for k := m - 1; k >= 0 && w[k] < 0; k-- {
		w[k] = 0
	}

	if o.AbsoluteCutoff {
		for m > 1 && (m > o.MaxDim || (w[m-1] < o.Cutoff && m > o.MinDim)) {
			truncErr += w[m-1]
			m--
		}
	} else {
		ref := 1.0
		if o.RelativeCutoff {
			ref = w[0]
		}
		for m > 1 && (m > o.MaxDim || (truncErr+w[m-1] < o.Cutoff*ref && m > o.MinDim)) {
			truncErr += w[m-1]
			m--
		}
		if w[0] == 0 {
			truncErr = 0
		} else {
			truncErr /= ref
		}
	}
	return m, truncErr
}

// truncatePooled applies the truncation rule to the weights of every block
// pooled together and sorted in increasing order. Instead of a count it
// returns the threshold docut: a block keeps exactly its weights above
// docut. docut is -1 when nothing is discarded.
func (o Options) truncatePooled(asc []float64) (m int, docut, truncErr float64) {
	n := len(asc)
	m = n
	if n == 0 {
		return 0, -1, 0
	}
	mdisc := 0
	discard := func() {
		if asc[mdisc] > 0 {
			truncErr += asc[mdisc]
		} else {
			asc[mdisc] = 0
		}
		mdisc++
		m--
	}

	ref := 1.0
	if o.AbsoluteCutoff {
		for mdisc < n && (m > o.MaxDim || (asc[mdisc] < o.Cutoff && m > o.MinDim)) {
			discard()
		}
	} else {
		if o.RelativeCutoff {
			ref = asc[n-1]
		}
		for mdisc < n && (m > o.MaxDim || (truncErr+asc[mdisc] < o.Cutoff*ref && m > o.MinDim)) {
			discard()
		}
	}

	switch {
	case mdisc == 0:
		docut = -1
	case mdisc == n:
		docut = math.Inf(1)
	default:
		docut = (asc[mdisc-1]+asc[mdisc])/2 - 1e-5*asc[mdisc-1]
	}
	if !o.AbsoluteCutoff {
		if asc[n-1] == 0 {
			truncErr = 0
		} else {
			truncErr /= ref
		}
	}
	return m, docut, truncErr
}
