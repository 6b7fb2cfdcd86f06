package step

import (
	"fmt"
	"sort"
)

// objectDef is a document object discovered in the file: a product occurrence or,
// for files without product structure, a bare solid.
type objectDef struct {
	name  string
	items []placedItem
}

// discover lists the objects of the file in import order. Each product occurrence
// becomes an object: assemblies come before their components and only carry their
// own geometry, so a pure assembly yields an object with a null shape.
func (m *model) discover() ([]objectDef, error) {
	idx := newProductIndex(m)
	roots := idx.roots()
	if len(roots) == 0 {
		return m.looseSolids(), nil
	}

	var out []objectDef
	var walk func(pd int, xf frame, depth int) error
	walk = func(pd int, xf frame, depth int) error {
		if depth > 64 {
			return fmt.Errorf("#%d: assembly nesting too deep", pd)
		}
		items, err := idx.shapeItems(pd, xf)
		if err != nil {
			return err
		}
		out = append(out, objectDef{name: idx.productName(pd), items: items})
		for _, occ := range idx.children[pd] {
			child := xf
			if t, ok, err := idx.occurrenceTransform(occ.nauo); err != nil {
				return err
			} else if ok {
				child = xf.compose(t)
			}
			if err := walk(occ.child, child, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	for _, r := range roots {
		if err := walk(r, identityFrame(), 0); err != nil {
			return nil, err
		}
	}
	uniqueNames(out)
	return out, nil
}

// looseSolids lists every solid as its own object.
func (m *model) looseSolids() []objectDef {
	var out []objectDef
	for _, e := range m.file.Each(solidTypes...) {
		name := e.Records[0].Text(0)
		if name == "" || name == "NONE" {
			name = fmt.Sprintf("Solid%d", len(out)+1)
		}
		out = append(out, objectDef{name: name, items: []placedItem{{id: e.ID, xf: identityFrame()}}})
	}
	uniqueNames(out)
	return out
}

// uniqueNames suffixes repeated names with a three digit counter (Bolt, Bolt001, ...).
func uniqueNames(objs []objectDef) {
	seen := make(map[string]int, len(objs))
	taken := make(map[string]bool, len(objs))
	for i := range objs {
		base := objs[i].name
		if base == "" {
			base = "Part"
		}
		name := base
		for taken[name] {
			seen[base]++
			name = fmt.Sprintf("%s%03d", base, seen[base])
		}
		taken[name] = true
		objs[i].name = name
	}
}

type occurrence struct {
	nauo  int
	child int
}

// productIndex holds the reverse links needed to walk the product structure.
type productIndex struct {
	m *model
	// pds are the product definitions in id order.
	pds []int
	// reps maps a product definition to the representations describing its shape.
	reps map[int][]int
	// children maps an assembly definition to its component occurrences.
	children map[int][]occurrence
	// occurrenceShape maps a NAUO to the PRODUCT_DEFINITION_SHAPE describing it.
	occurrenceShape map[int]int
	// cdsr maps an occurrence PDS to the relationship carrying its placement.
	cdsr map[int]int
	// related links representations through relationships without transformation.
	related map[int][]int
	isChild map[int]bool
}

func newProductIndex(m *model) *productIndex {
	idx := &productIndex{
		m:               m,
		reps:            make(map[int][]int),
		children:        make(map[int][]occurrence),
		occurrenceShape: make(map[int]int),
		cdsr:            make(map[int]int),
		related:         make(map[int][]int),
		isChild:         make(map[int]bool),
	}
	f := m.file

	for _, e := range f.Each("PRODUCT_DEFINITION", "PRODUCT_DEFINITION_WITH_ASSOCIATED_DOCUMENTS") {
		idx.pds = append(idx.pds, e.ID)
	}

	pdsTarget := make(map[int]int)
	for _, e := range f.Each("PRODUCT_DEFINITION_SHAPE") {
		rec, _ := e.Record("PRODUCT_DEFINITION_SHAPE")
		if def, err := rec.Ref(2); err == nil {
			pdsTarget[e.ID] = def
		}
	}

	for _, e := range f.Each("SHAPE_DEFINITION_REPRESENTATION") {
		rec, _ := e.Record("SHAPE_DEFINITION_REPRESENTATION")
		pds, err1 := rec.Ref(0)
		rep, err2 := rec.Ref(1)
		if err1 != nil || err2 != nil {
			continue
		}
		if def, ok := pdsTarget[pds]; ok {
			idx.reps[def] = append(idx.reps[def], rep)
		}
	}

	for _, e := range f.Each("NEXT_ASSEMBLY_USAGE_OCCURRENCE") {
		rec, _ := e.Record("NEXT_ASSEMBLY_USAGE_OCCURRENCE")
		parent, err1 := rec.Ref(3)
		child, err2 := rec.Ref(4)
		if err1 != nil || err2 != nil {
			continue
		}
		idx.children[parent] = append(idx.children[parent], occurrence{nauo: e.ID, child: child})
		idx.isChild[child] = true
	}
	for pds, def := range pdsTarget {
		if e, ok := f.Entity(def); ok && e.Is("NEXT_ASSEMBLY_USAGE_OCCURRENCE") {
			idx.occurrenceShape[def] = pds
		}
	}

	for _, e := range f.Each("CONTEXT_DEPENDENT_SHAPE_REPRESENTATION") {
		rec, _ := e.Record("CONTEXT_DEPENDENT_SHAPE_REPRESENTATION")
		rel, err1 := rec.Ref(0)
		pds, err2 := rec.Ref(1)
		if err1 != nil || err2 != nil {
			continue
		}
		idx.cdsr[pds] = rel
	}

	for _, e := range f.Each("SHAPE_REPRESENTATION_RELATIONSHIP", "REPRESENTATION_RELATIONSHIP") {
		if e.Is("REPRESENTATION_RELATIONSHIP_WITH_TRANSFORMATION") {
			continue
		}
		rec, _ := e.Record("SHAPE_REPRESENTATION_RELATIONSHIP", "REPRESENTATION_RELATIONSHIP")
		r1, err1 := rec.Ref(2)
		r2, err2 := rec.Ref(3)
		if err1 != nil || err2 != nil {
			continue
		}
		idx.related[r1] = append(idx.related[r1], r2)
		idx.related[r2] = append(idx.related[r2], r1)
	}
	for _, occs := range idx.children {
		sort.Slice(occs, func(i, j int) bool { return occs[i].nauo < occs[j].nauo })
	}
	return idx
}

// roots returns the product definitions that are not a component of another assembly.
func (idx *productIndex) roots() []int {
	var out []int
	for _, pd := range idx.pds {
		if !idx.isChild[pd] {
			out = append(out, pd)
		}
	}
	return out
}

// productName follows PRODUCT_DEFINITION -> formation -> PRODUCT and returns its name,
// falling back to the product id.
func (idx *productIndex) productName(pd int) string {
	rec, err := idx.m.record(pd, "PRODUCT_DEFINITION", "PRODUCT_DEFINITION_WITH_ASSOCIATED_DOCUMENTS")
	if err != nil {
		return ""
	}
	formRef, err := rec.Ref(2)
	if err != nil {
		return ""
	}
	form, err := idx.m.record(formRef, "PRODUCT_DEFINITION_FORMATION", "PRODUCT_DEFINITION_FORMATION_WITH_SPECIFIED_SOURCE")
	if err != nil {
		return ""
	}
	prodRef, err := form.Ref(2)
	if err != nil {
		return ""
	}
	prod, err := idx.m.record(prodRef, "PRODUCT")
	if err != nil {
		return ""
	}
	if name := prod.Text(1); name != "" {
		return name
	}
	return prod.Text(0)
}

// occurrenceTransform returns the placement of a component occurrence in its parent.
func (idx *productIndex) occurrenceTransform(nauo int) (frame, bool, error) {
	pds, ok := idx.occurrenceShape[nauo]
	if !ok {
		return frame{}, false, nil
	}
	rel, ok := idx.cdsr[pds]
	if !ok {
		return frame{}, false, nil
	}
	e, err := idx.m.entity(rel)
	if err != nil {
		return frame{}, false, err
	}
	rec, ok := e.Record("REPRESENTATION_RELATIONSHIP_WITH_TRANSFORMATION")
	if !ok {
		return frame{}, false, nil
	}
	t, err := rec.Ref(0)
	if err != nil {
		return frame{}, false, err
	}
	xf, err := idx.m.transformation(t)
	if err != nil {
		return frame{}, false, err
	}
	return xf, true, nil
}

// shapeItems collects the solids of a product definition's own representations.
func (idx *productIndex) shapeItems(pd int, xf frame) ([]placedItem, error) {
	var out []placedItem
	visited := make(map[int]bool)
	for _, rep := range idx.reps[pd] {
		items, err := idx.repItems(rep, xf, visited, 0)
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
	}
	return out, nil
}

func (idx *productIndex) repItems(rep int, xf frame, visited map[int]bool, depth int) ([]placedItem, error) {
	if visited[rep] || depth > 32 {
		return nil, nil
	}
	visited[rep] = true

	e, err := idx.m.entity(rep)
	if err != nil {
		return nil, err
	}
	rec := e.Records[0]
	for _, r := range e.Records {
		if len(r.Params) >= 3 {
			rec = r
			break
		}
	}
	items, err := rec.Refs(1)
	if err != nil {
		return nil, fmt.Errorf("#%d: representation items: %w", rep, err)
	}

	var out []placedItem
	for _, id := range items {
		item, err := idx.m.entity(id)
		if err != nil {
			return nil, err
		}
		switch {
		case item.Is(solidTypes...), item.Is("TRIANGULATED_FACE", "COMPLEX_TRIANGULATED_FACE"):
			out = append(out, placedItem{id: id, xf: xf})
		case item.Is("MAPPED_ITEM"):
			mapped, err := idx.mappedItem(item, xf, depth)
			if err != nil {
				return nil, err
			}
			out = append(out, mapped...)
		}
	}
	for _, other := range idx.related[rep] {
		more, err := idx.repItems(other, xf, visited, depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, more...)
	}
	return out, nil
}

// mappedItem places the items of a REPRESENTATION_MAP at the mapping target.
func (idx *productIndex) mappedItem(item *Entity, xf frame, depth int) ([]placedItem, error) {
	rec, _ := item.Record("MAPPED_ITEM")
	mapRef, err := rec.Ref(1)
	if err != nil {
		return nil, err
	}
	targetRef, err := rec.Ref(2)
	if err != nil {
		return nil, err
	}
	rmap, err := idx.m.record(mapRef, "REPRESENTATION_MAP")
	if err != nil {
		return nil, err
	}
	originRef, err := rmap.Ref(0)
	if err != nil {
		return nil, err
	}
	repRef, err := rmap.Ref(1)
	if err != nil {
		return nil, err
	}
	origin, err := idx.m.placement(originRef)
	if err != nil {
		return nil, err
	}
	var target frame
	if te, err := idx.m.entity(targetRef); err == nil && te.Is("CARTESIAN_TRANSFORMATION_OPERATOR_3D", "CARTESIAN_TRANSFORMATION_OPERATOR") {
		target, err = idx.m.transformation(targetRef)
		if err != nil {
			return nil, err
		}
	} else if target, err = idx.m.placement(targetRef); err != nil {
		return nil, err
	}
	return idx.repItems(repRef, xf.compose(target.compose(origin.inverse())), make(map[int]bool), depth+1)
}
