package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"impostor-lod/internal/impostor"
)

// LODGroup lists the renderers of each detail level, highest detail first.
type LODGroup struct {
	Levels [][]*Node
}

// Node is a transform in the scene hierarchy, optionally carrying a mesh.
type Node struct {
	Name     string
	Position mgl32.Vec3
	Rotation mgl32.Quat
	Scale    mgl32.Vec3

	Mesh  *impostor.Mesh
	Color impostor.Color
	// Layer is the render layer the node's primitive starts on.
	Layer int

	LOD *LODGroup
	// Impostify marks the node as the root of one trackable.
	Impostify bool

	parent   *Node
	children []*Node
}

// NewNode returns a node with identity transform.
func NewNode(name string) *Node {
	return &Node{
		Name:     name,
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
	}
}

// Add attaches children to n and returns n.
func (n *Node) Add(children ...*Node) *Node {
	for _, c := range children {
		if c.parent != nil {
			c.parent.remove(c)
		}
		c.parent = n
		n.children = append(n.children, c)
	}
	return n
}

func (n *Node) remove(c *Node) {
	for i, x := range n.children {
		if x == c {
			n.children = append(n.children[:i], n.children[i+1:]...)
			return
		}
	}
}

func (n *Node) Parent() *Node { return n.parent }

func (n *Node) Children() []*Node { return n.children }

// Local is the node's transform relative to its parent.
func (n *Node) Local() mgl32.Mat4 {
	t := mgl32.Translate3D(n.Position.X(), n.Position.Y(), n.Position.Z())
	s := mgl32.Scale3D(n.Scale.X(), n.Scale.Y(), n.Scale.Z())
	return t.Mul4(n.Rotation.Mat4()).Mul4(s)
}

// World is the node's transform relative to the scene root.
func (n *Node) World() mgl32.Mat4 {
	m := n.Local()
	for p := n.parent; p != nil; p = p.parent {
		m = p.Local().Mul4(m)
	}
	return m
}

// WorldPosition is the translation of World.
func (n *Node) WorldPosition() mgl32.Vec3 {
	return n.World().Col(3).Vec3()
}

// CumulativeScale multiplies the largest local scale axis of n and every ancestor.
func (n *Node) CumulativeScale() float32 {
	total := float32(1)
	for p := n; p != nil; p = p.parent {
		total *= max(p.Scale.X(), p.Scale.Y(), p.Scale.Z())
	}
	return total
}

// Walk visits n and its descendants depth first. Returning false skips the subtree.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.children {
		c.Walk(fn)
	}
}
