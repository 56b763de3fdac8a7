package meshing

// quadCells are the four cells around a primal edge along each axis, as
// offsets from the lowest one, in counter-clockwise order seen from +axis.
var quadCells = [3][4][3]int{
	{{0, 0, 0}, {0, 1, 0}, {0, 1, 1}, {0, 0, 1}},
	{{0, 0, 0}, {0, 0, 1}, {1, 0, 1}, {1, 0, 0}},
	{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}},
}

type vertexRef struct {
	index int32
	faces uint8
}

// ringEdge is an edge of the ring grid, keyed by its lower end.
type ringEdge struct {
	lo   [3]int
	axis int
}

type extractor struct {
	ctx  *ChunkContext
	opts *Options
	n    int

	out       surfaceBuilder
	samples   []Sample
	ringBase  int32
	stitched  bool
	cells     []int32
	faces     []uint8
	byCorners map[[8]int32]int32
	ring      map[[3]int32]vertexRef
	edges     map[EdgeKey]int
}

// Extract runs surface nets over the chunk and stitches faces whose neighbor
// is coarser. It returns nil when the chunk produces no triangles.
func Extract(ctx *ChunkContext, opts Options) *MeshData {
	if ctx == nil || ctx.Cells < 2 || len(ctx.samples) == 0 {
		return nil
	}
	n := ctx.Cells
	e := &extractor{
		ctx:       ctx,
		opts:      &opts,
		n:         n,
		samples:   ctx.samples,
		ringBase:  int32(len(ctx.samples)),
		stitched:  ctx.Boundaries.Coarser() != 0 && ctx.ring != nil,
		cells:     make([]int32, (n+1)*(n+1)*(n+1)),
		faces:     make([]uint8, (n+1)*(n+1)*(n+1)),
		byCorners: make(map[[8]int32]int32),
		ring:      make(map[[3]int32]vertexRef),
		edges:     make(map[EdgeKey]int),
	}
	if e.stitched {
		e.samples = make([]Sample, 0, len(ctx.samples)+len(ctx.ringSamples))
		e.samples = append(e.samples, ctx.samples...)
		e.samples = append(e.samples, ctx.ringSamples...)
	}
	e.out.edgeChunk = ctx.Boundaries.Coarser() != 0
	for i := range e.cells {
		e.cells[i] = -1
	}

	e.innerPass()
	e.ringPass()
	if len(e.out.positions) == 0 {
		return nil
	}
	e.innerFaces()
	e.straddleFaces()
	e.transitionFaces()
	e.finerEdges()
	if len(e.out.indices) == 0 {
		return nil
	}
	return e.out.finish(ctx, &opts, e.edges)
}

func (e *extractor) cellIndex(p [3]int) int {
	return (p[2]*(e.n+1)+p[1])*(e.n+1) + p[0]
}

func (e *extractor) cellAt(p [3]int) int32 {
	for a := 0; a < 3; a++ {
		if p[a] < 0 || p[a] > e.n {
			return -1
		}
	}
	return e.cells[e.cellIndex(p)]
}

// touchesCoarserPad reports whether cell p has a corner on the pad of a face
// whose neighbor is coarser.
func (e *extractor) touchesCoarserPad(p [3]int) bool {
	b := e.ctx.Boundaries
	for a := 0; a < 3; a++ {
		if b.CoarserAt(2*a) && p[a] == e.n {
			return true
		}
		if b.CoarserAt(2*a+1) && p[a] == 0 {
			return true
		}
	}
	return false
}

// ringCoord maps inner grid point q onto the ring grid. pad reports whether q
// lies on the pad of a coarser face; such points take the ring slice just
// inside that face.
func (e *extractor) ringCoord(q [3]int) (r [3]int, pad bool) {
	b := e.ctx.Boundaries
	for a := 0; a < 3; a++ {
		switch {
		case b.CoarserAt(2*a) && q[a] == e.n+1:
			r[a], pad = e.n/2, true
		case b.CoarserAt(2*a+1) && q[a] == 0:
			r[a], pad = 1, true
		default:
			r[a] = (q[a] + 1) / 2
		}
	}
	return r, pad
}

// sampleAt returns the index into e.samples of inner grid point q, or -1.
// Points on a coarser pad resolve to ring samples.
func (e *extractor) sampleAt(q [3]int) int32 {
	r, pad := e.ringCoord(q)
	if !pad {
		return e.ctx.InnerAt(q)
	}
	if !e.stitched {
		return -1
	}
	if i := e.ctx.RingAt(r); i >= 0 {
		return e.ringBase + i
	}
	return -1
}

func (e *extractor) ringSampleAt(r [3]int) int32 {
	if i := e.ctx.RingAt(r); i >= 0 {
		return e.ringBase + i
	}
	return -1
}

// innerPass places a vertex in every cell of the chunk. Cells on a coarser
// face take their outer corners from the ring grid, which makes them the
// transition layer between the two resolutions.
func (e *extractor) innerPass() {
	for z := 0; z <= e.n; z++ {
		for y := 0; y <= e.n; y++ {
			for x := 0; x <= e.n; x++ {
				p := [3]int{x, y, z}
				var corners [8]int32
				ok := true
				for i, off := range CornerOffsets {
					idx := e.sampleAt([3]int{x + off[0], y + off[1], z + off[2]})
					if idx < 0 {
						ok = false
						break
					}
					corners[i] = idx
				}
				if !ok {
					continue
				}
				ci := e.cellIndex(p)
				if idx, seen := e.byCorners[corners]; seen {
					e.cells[ci] = idx
					if idx >= 0 {
						e.faces[ci] = packFaces(e.samples, corners)
					}
					continue
				}
				v, ok := placeVertex(e.samples, corners, e.ctx.leaf, e.opts)
				if !ok {
					e.byCorners[corners] = -1
					continue
				}
				transition := e.touchesCoarserPad(p)
				if transition {
					// Repeated corners come from the ring mapping, not from
					// oversized leaves.
					v.duplicates = 0
				}
				idx := e.out.addVertex(v)
				e.byCorners[corners] = idx
				e.cells[ci] = idx
				e.faces[ci] = v.faces
				if transition {
					e.edges[EdgeKey{Pos: toKey(p)}] = int(idx)
				}
			}
		}
	}
}

// straddleLayer is the ring cell coordinate, along the face axis, of the
// cells whose corners sit on both sides of face f.
func (e *extractor) straddleLayer(f int) int {
	if f%2 == 0 {
		return e.n / 2
	}
	return 0
}

// outerRing reports whether ring cell c straddles a coarser face. Those
// cells are shared with the coarser neighbors.
func (e *extractor) outerRing(c [3]int) bool {
	b := e.ctx.Boundaries
	for a := 0; a < 3; a++ {
		if b.CoarserAt(2*a) && c[a] == e.n/2 {
			return true
		}
		if b.CoarserAt(2*a+1) && c[a] == 0 {
			return true
		}
	}
	return false
}

// ownsRing reports whether a ring edge starting at r belongs to this chunk.
func (e *extractor) ownsRing(r [3]int) bool {
	for a := 0; a < 3; a++ {
		if r[a] < 1 || r[a] > e.n/2 {
			return false
		}
	}
	return true
}

func (e *extractor) ringPass() {
	if !e.stitched {
		return
	}
	b := e.ctx.Boundaries
	half := e.n / 2
	for f := 0; f < 6; f++ {
		if !b.CoarserAt(f) {
			continue
		}
		a := f / 2
		u, v := (a+1)%3, (a+2)%3
		for ku := 0; ku <= half; ku++ {
			for kv := 0; kv <= half; kv++ {
				var k [3]int
				k[a], k[u], k[v] = e.straddleLayer(f), ku, kv
				key := toKey(k)
				if _, seen := e.ring[key]; seen {
					continue
				}
				var corners [8]int32
				ok := true
				for i, off := range CornerOffsets {
					idx := e.ringSampleAt([3]int{k[0] + off[0], k[1] + off[1], k[2] + off[2]})
					if idx < 0 {
						ok = false
						break
					}
					corners[i] = idx
				}
				if !ok {
					e.ring[key] = vertexRef{index: -1}
					continue
				}
				vtx, ok := placeVertex(e.samples, corners, 2*e.ctx.leaf, e.opts)
				if !ok {
					e.ring[key] = vertexRef{index: -1}
					continue
				}
				idx := e.out.addVertex(vtx)
				e.ring[key] = vertexRef{index: idx, faces: vtx.faces}
				e.edges[EdgeKey{Ring: true, Pos: key}] = int(idx)
			}
		}
	}
}

func (e *extractor) ringVertex(c [3]int) int32 {
	if r, ok := e.ring[toKey(c)]; ok {
		return r.index
	}
	return -1
}

// emitFace emits the quad of a primal edge given its four cells in
// counter-clockwise order and the edge's face code.
func (e *extractor) emitFace(q [4]int32, code uint8, w Winding) {
	if code == faceReversed {
		q[1], q[3] = q[3], q[1]
	}
	e.out.addQuad(q, w)
}

// innerFaces emits the quads of every primal edge the chunk owns that has at
// least one endpoint off the coarser pads. An edge belongs to the chunk when
// its lower endpoint lies inside; an edge climbing out of a negative coarser
// pad belongs to its inner endpoint.
func (e *extractor) innerFaces() {
	for z := 0; z <= e.n; z++ {
		for y := 0; y <= e.n; y++ {
			for x := 0; x <= e.n; x++ {
				p := [3]int{x, y, z}
				ci := e.cellIndex(p)
				if e.cells[ci] < 0 {
					continue
				}
				for axis := 0; axis < 3; axis++ {
					code := (e.faces[ci] >> (2 * axis)) & 3
					if code == faceNone {
						continue
					}
					lo := [3]int{x + 1, y + 1, z + 1}
					lo[axis]--
					hi := lo
					hi[axis]++
					_, loPad := e.ringCoord(lo)
					_, hiPad := e.ringCoord(hi)
					owner := lo
					switch {
					case loPad && hiPad:
						continue
					case loPad:
						owner = hi
					}
					if !e.inside(owner) {
						continue
					}
					var quad [4]int32
					ok := true
					w := e.opts.Winding
					for i, off := range quadCells[axis] {
						c := [3]int{x + off[0], y + off[1], z + off[2]}
						idx := e.cellAt(c)
						if idx < 0 {
							ok = false
							break
						}
						if e.stitched && e.touchesCoarserPad(c) {
							w = FromNormalCheck
						}
						quad[i] = idx
					}
					if ok {
						e.emitFace(quad, code, w)
					}
				}
			}
		}
	}
}

// inside reports whether grid point q is one of the chunk's own samples.
func (e *extractor) inside(q [3]int) bool {
	for a := 0; a < 3; a++ {
		if q[a] < 1 || q[a] > e.n {
			return false
		}
	}
	return true
}

// ringCode is the face code of the ring edge from r along axis, or faceNone
// when a sample is missing or the signs agree.
func (e *extractor) ringCode(r [3]int, axis int) uint8 {
	r1 := r
	r1[axis]++
	i0, i1 := e.ringSampleAt(r), e.ringSampleAt(r1)
	if i0 < 0 || i1 < 0 {
		return faceNone
	}
	a, b := e.samples[i0].Value, e.samples[i1].Value
	switch {
	case inside(a) && !inside(b):
		return faceForward
	case !inside(a) && inside(b):
		return faceReversed
	}
	return faceNone
}

// ringCells returns the four ring cells around the ring edge from r along
// axis, counter-clockwise seen from +axis.
func ringCells(r [3]int, axis int) [4][3]int {
	s, t := (axis+1)%3, (axis+2)%3
	base := r
	base[s]--
	base[t]--
	var out [4][3]int
	for i, off := range quadCells[axis] {
		out[i] = [3]int{base[0] + off[0], base[1] + off[1], base[2] + off[2]}
	}
	return out
}

// straddleFaces emits the ring edges this chunk owns whose four cells all
// straddle coarser faces. Their quads join ring vertices only and continue
// the coarser neighbors' surfaces up to the transition layer.
func (e *extractor) straddleFaces() {
	if !e.stitched {
		return
	}
	half := e.n / 2
	for z := 1; z <= half; z++ {
		for y := 1; y <= half; y++ {
			for x := 1; x <= half; x++ {
				r := [3]int{x, y, z}
				for axis := 0; axis < 3; axis++ {
					code := e.ringCode(r, axis)
					if code == faceNone {
						continue
					}
					var quad [4]int32
					ok := true
					for i, c := range ringCells(r, axis) {
						if !e.outerRing(c) {
							ok = false
							break
						}
						if quad[i] = e.ringVertex(c); quad[i] < 0 {
							ok = false
							break
						}
					}
					if ok {
						e.emitFace(quad, code, e.opts.Winding)
					}
				}
			}
		}
	}
}

// transitionFaces closes the band between the transition layer and the ring
// vertices. Every grid edge with both ends on coarser pads is a copy of one
// ring edge; the polygon of that ring edge chains the transition cells around
// all of its copies and then the ring cells that straddle the face.
func (e *extractor) transitionFaces() {
	if !e.stitched {
		return
	}
	copies := make(map[ringEdge][][3]int)
	var order []ringEdge
	m := e.n + 1
	for z := 0; z <= m; z++ {
		for y := 0; y <= m; y++ {
			for x := 0; x <= m; x++ {
				q := [3]int{x, y, z}
				r, pad := e.ringCoord(q)
				if !pad {
					continue
				}
				for axis := 0; axis < 3; axis++ {
					next := q
					if next[axis]++; next[axis] > m {
						continue
					}
					rn, npad := e.ringCoord(next)
					if !npad || rn == r {
						continue
					}
					k := ringEdge{lo: r, axis: axis}
					if _, seen := copies[k]; !seen {
						order = append(order, k)
					}
					copies[k] = append(copies[k], q)
				}
			}
		}
	}
	for _, k := range order {
		if !e.ownsRing(k.lo) {
			continue
		}
		code := e.ringCode(k.lo, k.axis)
		if code == faceNone {
			continue
		}
		poly := e.transitionPolygon(k, copies[k])
		if len(poly) < 3 {
			continue
		}
		if code == faceReversed {
			for i, j := 0, len(poly)-1; i < j; i, j = i+1, j-1 {
				poly[i], poly[j] = poly[j], poly[i]
			}
		}
		for i := 1; i+1 < len(poly); i++ {
			e.out.addTri(poly[0], poly[i], poly[i+1], FromNormalCheck)
		}
	}
}

// transitionPolygon orders the vertices around ring edge k counter-clockwise
// seen from +axis. It returns nil when a vertex is missing.
func (e *extractor) transitionPolygon(k ringEdge, copies [][3]int) []int32 {
	a := k.axis
	s, t := (a+1)%3, (a+2)%3
	next := make(map[[3]int][3]int)
	linked := make(map[[3]int]bool)
	members := make(map[[3]int]bool)
	for _, q := range copies {
		base := q
		base[s]--
		base[t]--
		var around [4][3]int
		var exists [4]bool
		missing := -1
		for i, off := range quadCells[a] {
			c := [3]int{base[0] + off[0], base[1] + off[1], base[2] + off[2]}
			around[i] = c
			exists[i] = e.inRange(c)
			if !exists[i] {
				missing = i
			}
		}
		if missing < 0 {
			return nil
		}
		// Walk the cells that exist, starting after a gap.
		var arc [][3]int
		for j := 1; j <= 4; j++ {
			i := (missing + j) % 4
			if exists[i] {
				arc = append(arc, around[i])
			} else if len(arc) > 0 {
				break
			}
		}
		for i, c := range arc {
			members[c] = true
			if i+1 < len(arc) {
				if prev, ok := next[c]; ok && prev != arc[i+1] {
					return nil
				}
				next[c] = arc[i+1]
				linked[arc[i+1]] = true
			}
		}
	}
	var start [3]int
	heads := 0
	for c := range members {
		if !linked[c] {
			start = c
			heads++
		}
	}
	if heads != 1 {
		return nil
	}

	poly := make([]int32, 0, len(members)+3)
	for c, steps := start, 0; steps < len(members); steps++ {
		idx := e.cellAt(c)
		if idx < 0 {
			return nil
		}
		poly = append(poly, idx)
		n, ok := next[c]
		if !ok {
			if steps+1 != len(members) {
				return nil
			}
			break
		}
		c = n
	}

	// The ring cells follow the chain in quadrant order.
	quads := ringCells(k.lo, a)
	last := -1
	for i := range quads {
		if !e.outerRing(quads[i]) && e.outerRing(quads[(i+1)%4]) {
			last = i
		}
	}
	if last < 0 {
		return nil
	}
	for j := 1; j <= 4; j++ {
		c := quads[(last+j)%4]
		if !e.outerRing(c) {
			break
		}
		idx := e.ringVertex(c)
		if idx < 0 {
			return nil
		}
		poly = append(poly, idx)
	}
	return poly
}

func (e *extractor) inRange(c [3]int) bool {
	for a := 0; a < 3; a++ {
		if c[a] < 0 || c[a] > e.n {
			return false
		}
	}
	return true
}

// finerEdges records the vertices of the cells that straddle faces whose
// neighbor is finer; the finer chunk's ring vertices land on them.
func (e *extractor) finerEdges() {
	b := e.ctx.Boundaries
	if b.Finer() == 0 {
		return
	}
	for f := 0; f < 6; f++ {
		if !b.FinerAt(f) {
			continue
		}
		a := f / 2
		u, v := (a+1)%3, (a+2)%3
		layer := 0
		if f%2 == 0 {
			layer = e.n
		}
		for cu := 0; cu <= e.n; cu++ {
			for cv := 0; cv <= e.n; cv++ {
				var c [3]int
				c[a], c[u], c[v] = layer, cu, cv
				if idx := e.cellAt(c); idx >= 0 {
					e.edges[EdgeKey{Pos: toKey(c)}] = int(idx)
				}
			}
		}
	}
}

func toKey(p [3]int) [3]int32 {
	return [3]int32{int32(p[0]), int32(p[1]), int32(p[2])}
}
