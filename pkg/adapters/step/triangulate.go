package step

import (
	"math"
	"sort"
)

type vec2 struct{ x, y float64 }

func cross2(o, a, b vec2) float64 {
	return (a.x-o.x)*(b.y-o.y) - (a.y-o.y)*(b.x-o.x)
}

func loopArea(pts []vec2, loop []int) float64 {
	var a float64
	for i := range loop {
		p, q := pts[loop[i]], pts[loop[(i+1)%len(loop)]]
		a += p.x*q.y - q.x*p.y
	}
	return a / 2
}

func reversed(loop []int) []int {
	out := make([]int, len(loop))
	for i, v := range loop {
		out[len(loop)-1-i] = v
	}
	return out
}

func inTriangle(p, a, b, c vec2) bool {
	d1, d2, d3 := cross2(a, b, p), cross2(b, c, p), cross2(c, a, p)
	neg := d1 < 0 || d2 < 0 || d3 < 0
	pos := d1 > 0 || d2 > 0 || d3 > 0
	return !(neg && pos)
}

// triangulate splits a polygon with holes into counter-clockwise triangles. Loops hold
// indices into pts; the outer loop and the holes may come in either orientation.
func triangulate(pts []vec2, outer []int, holes [][]int) [][3]int {
	if len(outer) < 3 {
		return nil
	}
	if loopArea(pts, outer) < 0 {
		outer = reversed(outer)
	}
	var hs [][]int
	for _, h := range holes {
		if len(h) < 3 {
			continue
		}
		if loopArea(pts, h) > 0 {
			h = reversed(h)
		}
		hs = append(hs, h)
	}
	poly := bridgeHoles(pts, append([]int(nil), outer...), hs)
	return clipEars(pts, poly)
}

func rightmost(pts []vec2, loop []int) int {
	best := 0
	for i, v := range loop {
		if pts[v].x > pts[loop[best]].x {
			best = i
		}
	}
	return best
}

// bridgeHoles merges each hole into the outer polygon through a pair of coincident
// bridge edges, rightmost hole first.
func bridgeHoles(pts []vec2, poly []int, holes [][]int) []int {
	sort.SliceStable(holes, func(i, j int) bool {
		return pts[holes[i][rightmost(pts, holes[i])]].x > pts[holes[j][rightmost(pts, holes[j])]].x
	})

	for _, h := range holes {
		mi := rightmost(pts, h)
		m := pts[h[mi]]
		pk := bridgeTarget(pts, poly, m)

		merged := make([]int, 0, len(poly)+len(h)+2)
		merged = append(merged, poly[:pk+1]...)
		for k := 0; k <= len(h); k++ {
			merged = append(merged, h[(mi+k)%len(h)])
		}
		merged = append(merged, poly[pk])
		merged = append(merged, poly[pk+1:]...)
		poly = merged
	}
	return poly
}

// bridgeTarget finds a polygon vertex visible from m by casting a ray towards +x.
func bridgeTarget(pts []vec2, poly []int, m vec2) int {
	n := len(poly)
	bestX, edge := math.Inf(1), -1
	for k := 0; k < n; k++ {
		a, b := pts[poly[k]], pts[poly[(k+1)%n]]
		if (a.y > m.y) == (b.y > m.y) {
			continue
		}
		x := a.x + (m.y-a.y)*(b.x-a.x)/(b.y-a.y)
		if x >= m.x && x < bestX {
			bestX, edge = x, k
		}
	}

	if edge < 0 {
		// Hole outside the outer loop: bridge to the nearest vertex.
		best, bestDist := 0, math.Inf(1)
		for k, v := range poly {
			if d := math.Hypot(pts[v].x-m.x, pts[v].y-m.y); d < bestDist {
				best, bestDist = k, d
			}
		}
		return best
	}

	k0, k1 := edge, (edge+1)%n
	pk := k0
	if pts[poly[k1]].x > pts[poly[k0]].x {
		pk = k1
	}
	i := vec2{bestX, m.y}
	p := pts[poly[pk]]
	if p == i {
		return pk
	}

	// A reflex vertex inside (m, i, p) would block the bridge; take the one closest in angle.
	bestCos := -2.0
	for k := 0; k < n; k++ {
		r := pts[poly[k]]
		if k == pk || !inTriangle(r, m, i, p) {
			continue
		}
		prev, next := pts[poly[(k+n-1)%n]], pts[poly[(k+1)%n]]
		if cross2(prev, r, next) >= 0 {
			continue
		}
		d := math.Hypot(r.x-m.x, r.y-m.y)
		if d == 0 {
			continue
		}
		if c := (r.x - m.x) / d; c > bestCos {
			bestCos, pk = c, k
		}
	}
	return pk
}

func clipEars(pts []vec2, poly []int) [][3]int {
	idx := append([]int(nil), poly...)
	out := make([][3]int, 0, len(idx))

	for len(idx) > 3 {
		n := len(idx)
		clipped := false
		for i := 0; i < n; i++ {
			ia, ib, ic := idx[(i+n-1)%n], idx[i], idx[(i+1)%n]
			a, b, c := pts[ia], pts[ib], pts[ic]
			if cross2(a, b, c) <= 0 {
				continue
			}
			if blocked(pts, idx, i, a, b, c) {
				continue
			}
			out = append(out, [3]int{ia, ib, ic})
			idx = append(idx[:i], idx[i+1:]...)
			clipped = true
			break
		}
		if !clipped {
			// Degenerate remainder: drop the flattest vertex so the loop terminates.
			best, bestCross := 0, math.Inf(-1)
			for i := 0; i < n; i++ {
				a, b, c := pts[idx[(i+n-1)%n]], pts[idx[i]], pts[idx[(i+1)%n]]
				if cr := cross2(a, b, c); cr > bestCross {
					best, bestCross = i, cr
				}
			}
			if bestCross > 0 {
				out = append(out, [3]int{idx[(best+n-1)%n], idx[best], idx[(best+1)%n]})
			}
			idx = append(idx[:best], idx[best+1:]...)
		}
	}
	if len(idx) == 3 && cross2(pts[idx[0]], pts[idx[1]], pts[idx[2]]) > 0 {
		out = append(out, [3]int{idx[0], idx[1], idx[2]})
	}
	return out
}

// blocked reports whether a reflex vertex of the polygon lies inside the candidate ear at i.
func blocked(pts []vec2, idx []int, i int, a, b, c vec2) bool {
	n := len(idx)
	for j := 0; j < n; j++ {
		if j == i || j == (i+n-1)%n || j == (i+1)%n {
			continue
		}
		p := pts[idx[j]]
		if p == a || p == b || p == c {
			continue
		}
		prev, next := pts[idx[(j+n-1)%n]], pts[idx[(j+1)%n]]
		if cross2(prev, p, next) > 0 {
			continue
		}
		if inTriangle(p, a, b, c) {
			return true
		}
	}
	return false
}
