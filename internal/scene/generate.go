package scene

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl32"

	"impostor-lod/internal/impostor"
)

// GenerateOptions controls the procedural test scene.
type GenerateOptions struct {
	Seed uint64
	// Rows and Cols of the object grid; the grid starts Start units in front of the
	// origin along -Z and spaces objects Spacing apart.
	Rows, Cols int
	Spacing    float32
	Start      float32
	// BalloonEvery makes every n-th object a balloon instead of a tree. 0 disables balloons.
	BalloonEvery int
	// LODTrees gives trees a two-level LOD group.
	LODTrees bool
}

// DefaultGenerateOptions is a 12x12 forest reaching about 250 units away.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{
		Seed:         1,
		Rows:         12,
		Cols:         12,
		Spacing:      20,
		Start:        10,
		BalloonEvery: 5,
		LODTrees:     true,
	}
}

var (
	barkColor    = impostor.Color{0.45, 0.3, 0.2, 1}
	leafColor    = impostor.Color{0.2, 0.55, 0.25, 1}
	groundColor  = impostor.Color{0.35, 0.4, 0.3, 1}
	balloonColor = []impostor.Color{
		{0.9, 0.2, 0.2, 1}, {0.2, 0.4, 0.9, 1}, {0.95, 0.8, 0.2, 1}, {0.8, 0.3, 0.8, 1},
	}
)

// Generate builds a deterministic scene: a ground plate (not impostified) and a grid
// of trees and balloons, each marked Impostify.
func Generate(opts GenerateOptions) *Node {
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))

	trunk := Box(mgl32.Vec3{0.6, 4, 0.6})
	canopy := Box(mgl32.Vec3{3, 3, 3})
	canopyLow := Box(mgl32.Vec3{3, 7, 3})
	balloon := Octahedron(1.2)
	cord := Box(mgl32.Vec3{0.05, 3, 0.05})

	root := NewNode("root")

	width := float32(opts.Cols) * opts.Spacing
	ground := NewNode("ground")
	ground.Mesh = Box(mgl32.Vec3{width + opts.Spacing, 0.2, float32(opts.Rows)*opts.Spacing + opts.Spacing})
	ground.Color = groundColor
	ground.Position = mgl32.Vec3{0, -0.1, -opts.Start - float32(opts.Rows)*opts.Spacing*0.5}
	root.Add(ground)

	i := 0
	for r := 0; r < opts.Rows; r++ {
		for c := 0; c < opts.Cols; c++ {
			jitter := mgl32.Vec3{
				(rng.Float32() - 0.5) * opts.Spacing * 0.5,
				0,
				(rng.Float32() - 0.5) * opts.Spacing * 0.5,
			}
			pos := mgl32.Vec3{
				float32(c)*opts.Spacing - width*0.5 + opts.Spacing*0.5,
				0,
				-opts.Start - float32(r)*opts.Spacing,
			}.Add(jitter)

			var obj *Node
			if opts.BalloonEvery > 0 && i%opts.BalloonEvery == opts.BalloonEvery-1 {
				obj = newBalloon(fmt.Sprintf("balloon-%d", i), balloon, cord, balloonColor[rng.IntN(len(balloonColor))])
				pos = pos.Add(mgl32.Vec3{0, 4 + rng.Float32()*6, 0})
			} else {
				obj = newTree(fmt.Sprintf("tree-%d", i), trunk, canopy, canopyLow, opts.LODTrees)
				s := 0.8 + rng.Float32()*0.6
				obj.Scale = mgl32.Vec3{s, s, s}
				obj.Rotation = mgl32.QuatRotate(rng.Float32()*2*math.Pi, mgl32.Vec3{0, 1, 0})
			}
			obj.Position = pos
			root.Add(obj)
			i++
		}
	}
	return root
}

func newTree(name string, trunk, canopy, canopyLow *impostor.Mesh, lod bool) *Node {
	tree := NewNode(name)
	tree.Impostify = true

	t := NewNode(name + "/trunk")
	t.Mesh = trunk
	t.Color = barkColor
	t.Position = mgl32.Vec3{0, 2, 0}

	c := NewNode(name + "/canopy")
	c.Mesh = canopy
	c.Color = leafColor
	c.Position = mgl32.Vec3{0, 5, 0}

	if !lod {
		return tree.Add(t, c)
	}

	low := NewNode(name + "/lod1")
	low.Mesh = canopyLow
	low.Color = leafColor
	low.Position = mgl32.Vec3{0, 3.5, 0}

	group := NewNode(name + "/lod")
	group.LOD = &LODGroup{Levels: [][]*Node{{t, c}, {low}}}
	group.Add(t, c, low)
	return tree.Add(group)
}

func newBalloon(name string, body, str *impostor.Mesh, color impostor.Color) *Node {
	b := NewNode(name)
	b.Impostify = true

	shell := NewNode(name + "/body")
	shell.Mesh = body
	shell.Color = color

	s := NewNode(name + "/string")
	s.Mesh = str
	s.Color = impostor.Color{0.9, 0.9, 0.9, 1}
	s.Position = mgl32.Vec3{0, -2.7, 0}

	return b.Add(shell, s)
}
