package taskpool

import (
	"slices"
)

// quantileEstimator estimates a single quantile of a stream using the P²
// algorithm (Jain and Chlamtac, 1985), in constant space.
//
// Not safe for concurrent use.
type quantileEstimator struct {
	// marker heights
	height [5]float64
	// desired position increments
	step [5]float64
	// desired positions
	want [5]float64
	// actual positions
	pos   [5]int
	p     float64
	count int
}

func newQuantileEstimator(p float64) *quantileEstimator {
	p = min(max(p, 0), 1)
	return &quantileEstimator{
		p:    p,
		step: [5]float64{0, p / 2, p, (1 + p) / 2, 1},
	}
}

func (x *quantileEstimator) observe(v float64) {
	if x.count < 5 {
		x.height[x.count] = v
		x.count++
		if x.count == 5 {
			slices.Sort(x.height[:])
			x.pos = [5]int{0, 1, 2, 3, 4}
			x.want = [5]float64{0, 2 * x.p, 4 * x.p, 2 + 2*x.p, 4}
		}
		return
	}
	x.count++

	var cell int
	switch {
	case v < x.height[0]:
		x.height[0] = v
	case v >= x.height[4]:
		x.height[4] = v
		cell = 3
	default:
		for cell = 0; cell < 3 && v >= x.height[cell+1]; cell++ {
		}
	}

	for i := cell + 1; i < 5; i++ {
		x.pos[i]++
	}
	for i := range x.want {
		x.want[i] += x.step[i]
	}

	for i := 1; i < 4; i++ {
		d := x.want[i] - float64(x.pos[i])
		if !(d >= 1 && x.pos[i+1]-x.pos[i] > 1) && !(d <= -1 && x.pos[i-1]-x.pos[i] < -1) {
			continue
		}
		dir := 1
		if d < 0 {
			dir = -1
		}
		if h := x.parabolic(i, dir); x.height[i-1] < h && h < x.height[i+1] {
			x.height[i] = h
		} else {
			j := i + dir
			x.height[i] += float64(dir) * (x.height[j] - x.height[i]) / float64(x.pos[j]-x.pos[i])
		}
		x.pos[i] += dir
	}
}

func (x *quantileEstimator) parabolic(i, dir int) float64 {
	d := float64(dir)
	n0, n1, n2 := float64(x.pos[i-1]), float64(x.pos[i]), float64(x.pos[i+1])
	q0, q1, q2 := x.height[i-1], x.height[i], x.height[i+1]
	return q1 + d/(n2-n0)*((n1-n0+d)*(q2-q1)/(n2-n1)+(n2-n1-d)*(q1-q0)/(n1-n0))
}

// value returns the current estimate, or zero with no observations.
func (x *quantileEstimator) value() float64 {
	switch {
	case x.count == 0:
		return 0
	case x.count < 5:
		buf := slices.Clone(x.height[:x.count])
		slices.Sort(buf)
		return buf[int(float64(x.count-1)*x.p)]
	default:
		return x.height[2]
	}
}
