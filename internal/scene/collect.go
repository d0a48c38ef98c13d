package scene

import "impostor-lod/internal/impostor"

// Collect builds one trackable per Impostify node below root, in depth-first order.
//
// A trackable owns the meshes of its subtree. Inside a LOD group only the renderers of
// the highest-detail level are taken; nested Impostify nodes start their own trackable.
func Collect(root *Node) []*impostor.Trackable {
	var out []*impostor.Trackable
	root.Walk(func(n *Node) bool {
		if n.Impostify {
			out = append(out, impostor.NewTrackable(n.Name, n.WorldPosition(), primitives(n)))
		}
		return true
	})
	return out
}

func primitives(root *Node) []*impostor.Primitive {
	var prims []*impostor.Primitive
	var visit func(n *Node)
	visit = func(n *Node) {
		if n != root && n.Impostify {
			return
		}
		if n.LOD != nil {
			if len(n.LOD.Levels) > 0 {
				for _, r := range n.LOD.Levels[0] {
					if p := primitive(r); p != nil {
						prims = append(prims, p)
					}
				}
			}
			return
		}
		if p := primitive(n); p != nil {
			prims = append(prims, p)
		}
		for _, c := range n.children {
			visit(c)
		}
	}
	visit(root)
	return prims
}

func primitive(n *Node) *impostor.Primitive {
	if n.Mesh == nil {
		return nil
	}
	p := impostor.NewPrimitive(n.Name, n.Mesh, n.World(), n.CumulativeScale(), n.Color)
	p.Layer = n.Layer
	return p
}
