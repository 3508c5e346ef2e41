package camera

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCamera_Defaults(t *testing.T) {
	c := NewCamera()

	assert.Equal(t, DefaultFov, c.Fov())
	assert.Equal(t, DefaultNear, c.Near())
	assert.Equal(t, DefaultFar, c.Far())
	assert.Equal(t, mgl32.Ident4(), c.ViewMatrix())
	assert.InDelta(t, DefaultFov, FovFromProjection(c.ProjectionMatrix()), 1e-5)
}

func TestCamera_InverseProjection(t *testing.T) {
	c := NewCamera(WithFov(mgl32.DegToRad(90)), WithAspect(1), WithNear(0.5), WithFar(100))
	id := c.ProjectionMatrix().Mul4(c.InverseProjectionMatrix())

	for i := range id {
		assert.InDelta(t, mgl32.Ident4()[i], id[i], 1e-4)
	}
}

func TestClipPlanesFromProjection(t *testing.T) {
	proj := mgl32.Perspective(mgl32.DegToRad(60), 1.5, 2, 500)
	near, far := ClipPlanesFromProjection(proj)

	assert.InDelta(t, 2, near, 1e-3)
	assert.InDelta(t, 500, far, 0.5)
}

func TestCamera_SetProjection(t *testing.T) {
	c := NewCamera()
	c.SetProjection(mgl32.Perspective(mgl32.DegToRad(45), 2, 1, 1000))

	assert.InDelta(t, mgl32.DegToRad(45), c.Fov(), 1e-5)
	assert.InDelta(t, 2, c.Aspect(), 1e-5)
	assert.InDelta(t, 1, c.Near(), 1e-3)
	assert.InDelta(t, 1000, c.Far(), 1)
}

func TestCamera_LookAt(t *testing.T) {
	c := NewCamera(WithLookAt(mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0}, mgl32.Vec3{0, 0, 1}))
	p := c.ViewMatrix().Mul4x1(mgl32.Vec4{0, 100, 0, 1})

	// Looking down +Y puts world +Y on the view -Z axis.
	assert.InDelta(t, 0, p.X(), 1e-4)
	assert.InDelta(t, 0, p.Y(), 1e-4)
	assert.InDelta(t, -100, p.Z(), 1e-4)
}

func TestParams_Changed(t *testing.T) {
	base := Params{Fov: 1.2, Near: 1, Far: 16384}

	assert.False(t, base.Changed(base, DefaultParamsEpsilon))
	assert.False(t, Params{Fov: 1.2 + 5e-5, Near: 1, Far: 16384}.Changed(base, DefaultParamsEpsilon))
	assert.True(t, Params{Fov: 1.21, Near: 1, Far: 16384}.Changed(base, DefaultParamsEpsilon))
	assert.True(t, Params{Fov: 1.2, Near: 2, Far: 16384}.Changed(base, DefaultParamsEpsilon))
	assert.True(t, Params{Fov: 1.2, Near: 1, Far: 8192}.Changed(base, DefaultParamsEpsilon))
}

func TestFovFromProjection_Degenerate(t *testing.T) {
	require.Equal(t, float32(0), FovFromProjection(mgl32.Mat4{}))
	assert.InDelta(t, math.Pi/2, FovFromProjection(mgl32.Perspective(math.Pi/2, 1, 1, 10)), 1e-5)
}
