package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"impostor-lod/internal/impostor"
)

// Box returns an axis-aligned box mesh centred on the origin.
func Box(size mgl32.Vec3) *impostor.Mesh {
	h := size.Mul(0.5)
	x, y, z := h.X(), h.Y(), h.Z()
	v := []mgl32.Vec3{
		{-x, -y, -z}, {x, -y, -z}, {x, y, -z}, {-x, y, -z},
		{-x, -y, z}, {x, -y, z}, {x, y, z}, {-x, y, z},
	}
	idx := []uint32{
		0, 2, 1, 0, 3, 2, // -z
		4, 5, 6, 4, 6, 7, // +z
		0, 1, 5, 0, 5, 4, // -y
		3, 7, 6, 3, 6, 2, // +y
		0, 4, 7, 0, 7, 3, // -x
		1, 2, 6, 1, 6, 5, // +x
	}
	return impostor.NewMesh(v, idx)
}

// Octahedron returns a diamond with the given radius, a cheap stand-in for a sphere.
func Octahedron(radius float32) *impostor.Mesh {
	r := radius
	v := []mgl32.Vec3{
		{r, 0, 0}, {-r, 0, 0}, {0, r, 0}, {0, -r, 0}, {0, 0, r}, {0, 0, -r},
	}
	idx := []uint32{
		0, 2, 4, 4, 2, 1, 1, 2, 5, 5, 2, 0,
		4, 3, 0, 1, 3, 4, 5, 3, 1, 0, 3, 5,
	}
	return impostor.NewMesh(v, idx)
}
