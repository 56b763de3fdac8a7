package meshing

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"gonum.org/v1/gonum/mat"
)

// QEF accumulates plane constraints (point, normal) and finds the point that
// minimizes the summed squared plane distances.
type QEF struct {
	ata   [6]float64 // upper triangle: xx xy xz yy yz zz
	atb   [3]float64
	count int
}

// Add records the plane through p with normal n, weighted by w.
func (q *QEF) Add(p, n mgl32.Vec3, w float32) {
	l := n.Len()
	if l < 1e-12 {
		return
	}
	nx, ny, nz := float64(n[0]/l), float64(n[1]/l), float64(n[2]/l)
	d := nx*float64(p[0]) + ny*float64(p[1]) + nz*float64(p[2])
	wf := float64(w)
	q.ata[0] += wf * nx * nx
	q.ata[1] += wf * nx * ny
	q.ata[2] += wf * nx * nz
	q.ata[3] += wf * ny * ny
	q.ata[4] += wf * ny * nz
	q.ata[5] += wf * nz * nz
	q.atb[0] += wf * nx * d
	q.atb[1] += wf * ny * d
	q.atb[2] += wf * nz * d
	q.count++
}

// Count is the number of planes added.
func (q *QEF) Count() int { return q.count }

// Solve minimizes the QEF regularized towards target with strength lambda. It
// reports false for a near singular system or a non-finite result.
func (q *QEF) Solve(target mgl32.Vec3, lambda float32) (mgl32.Vec3, bool) {
	l := float64(lambda)
	a := mat.NewSymDense(3, []float64{
		q.ata[0] + l, q.ata[1], q.ata[2],
		q.ata[1], q.ata[3] + l, q.ata[4],
		q.ata[2], q.ata[4], q.ata[5] + l,
	})
	if math.Abs(mat.Det(a)) < 1e-12 {
		return target, false
	}
	b := mat.NewVecDense(3, []float64{
		q.atb[0] + l*float64(target[0]),
		q.atb[1] + l*float64(target[1]),
		q.atb[2] + l*float64(target[2]),
	})
	var x mat.VecDense
	if err := x.SolveVec(a, b); err != nil {
		return target, false
	}
	out := mgl32.Vec3{float32(x.AtVec(0)), float32(x.AtVec(1)), float32(x.AtVec(2))}
	for _, v := range out {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return target, false
		}
	}
	return out, true
}
