package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMat4InverseRoundTrip(t *testing.T) {
	m := NewMat4EulerXYZ(0.3, -0.7, 1.1).Mul(NewMat4Translation(NewVec3(3, -2, 5)))
	got := m.Mul(m.Inverse())
	assert.True(t, got.Compare(NewMat4Identity(), 1e-4), "have %v", got.Data)
}

func TestMat4TransposedTwice(t *testing.T) {
	m := NewMat4Translation(NewVec3(1, 2, 3))
	assert.Equal(t, m, m.Transposed().Transposed())
	assert.Equal(t, float32(1), m.Transposed().Data[3])
}

func TestLookAtBasis(t *testing.T) {
	view := NewMat4LookAt(NewVec3(0, 0, 5), NewVec3Zero(), NewVec3Up())
	assert.True(t, view.Forward().Compare(NewVec3Forward(), 1e-5))
	assert.True(t, view.Right().Compare(NewVec3Right(), 1e-5))
	assert.True(t, view.Up().Compare(NewVec3Up(), 1e-5))

	// the eye maps to the origin in view space
	assert.True(t, NewVec3(0, 0, 5).Transform(view).Compare(NewVec3Zero(), 1e-5))
}

func TestQuaternionMatchesEuler(t *testing.T) {
	angle := DegToRad(30)
	q := NewQuatFromAxisAngle(NewVec3(0, 0, 1), angle, true)
	assert.True(t, q.ToMat4().Compare(NewMat4EulerZ(angle), 1e-5))
}

func TestTransformWorld(t *testing.T) {
	parent := NewTransformFromPosition(NewVec3(10, 0, 0))
	child := NewTransformFromPosition(NewVec3(0, 1, 0))
	child.Parent = parent

	p := NewVec3Zero().Transform(child.World())
	assert.True(t, p.Compare(NewVec3(10, 1, 0), 1e-5))

	child.Translate(NewVec3(0, 1, 0))
	p = NewVec3Zero().Transform(child.World())
	assert.True(t, p.Compare(NewVec3(10, 2, 0), 1e-5))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 4, Clamp(9, 1, 4))
	assert.Equal(t, float32(-1), Clamp(float32(-3), -1, 1))
	assert.Equal(t, uint32(2), Max(uint32(2), 1))
}

func TestRandomRanges(t *testing.T) {
	for i := 0; i < 256; i++ {
		n := RandomInRange(-2, 3)
		assert.GreaterOrEqual(t, n, int32(-2))
		assert.LessOrEqual(t, n, int32(3))

		f := RandomFloatInRange(0.5, 1.5)
		assert.GreaterOrEqual(t, f, float32(0.5))
		assert.Less(t, f, float32(1.5))
	}
	assert.Equal(t, int32(7), RandomInRange(7, 7))
	assert.Equal(t, int32(7), RandomInRange(7, 1))
}
