package math

/**
 * @brief Creates an identity quaternion.
 */
func NewQuatIdentity() Quaternion {
	return Quaternion{0, 0, 0, 1.0}
}

func NewQuatFromAxisAngle(axis Vec3, angle float32, normalize bool) Quaternion {
	halfAngle := 0.5 * angle
	s := ksin(halfAngle)
	c := kcos(halfAngle)

	q := Quaternion{s * axis.X, s * axis.Y, s * axis.Z, c}
	if normalize {
		return q.Normalize()
	}
	return q
}

func (q Quaternion) Normal() float32 {
	return ksqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
}

func (q Quaternion) Normalize() Quaternion {
	n := q.Normal()
	if n == 0 {
		return NewQuatIdentity()
	}
	return Quaternion{q.X / n, q.Y / n, q.Z / n, q.W / n}
}

func (q Quaternion) Conjugate() Quaternion {
	return Quaternion{-q.X, -q.Y, -q.Z, q.W}
}

func (q Quaternion) Inverse() Quaternion {
	return q.Conjugate().Normalize()
}

// Mul returns the Hamilton product q * other.
func (q Quaternion) Mul(other Quaternion) Quaternion {
	return Quaternion{
		X: q.X*other.W + q.Y*other.Z - q.Z*other.Y + q.W*other.X,
		Y: -q.X*other.Z + q.Y*other.W + q.Z*other.X + q.W*other.Y,
		Z: q.X*other.Y - q.Y*other.X + q.Z*other.W + q.W*other.Z,
		W: -q.X*other.X - q.Y*other.Y - q.Z*other.Z + q.W*other.W,
	}
}

func (q Quaternion) Dot(other Quaternion) float32 {
	return q.X*other.X + q.Y*other.Y + q.Z*other.Z + q.W*other.W
}

/**
 * @brief Creates a rotation matrix from the given quaternion, laid out for
 * the row-vector convention of Mat4.
 */
func (q Quaternion) ToMat4() Mat4 {
	n := q.Normalize()
	out := NewMat4Identity()

	out.Data[0] = 1.0 - 2.0*n.Y*n.Y - 2.0*n.Z*n.Z
	out.Data[1] = 2.0*n.X*n.Y + 2.0*n.Z*n.W
	out.Data[2] = 2.0*n.X*n.Z - 2.0*n.Y*n.W

	out.Data[4] = 2.0*n.X*n.Y - 2.0*n.Z*n.W
	out.Data[5] = 1.0 - 2.0*n.X*n.X - 2.0*n.Z*n.Z
	out.Data[6] = 2.0*n.Y*n.Z + 2.0*n.X*n.W

	out.Data[8] = 2.0*n.X*n.Z + 2.0*n.Y*n.W
	out.Data[9] = 2.0*n.Y*n.Z - 2.0*n.X*n.W
	out.Data[10] = 1.0 - 2.0*n.X*n.X - 2.0*n.Y*n.Y
	return out
}

func (q Quaternion) Slerp(other Quaternion, percentage float32) Quaternion {
	// Only unit quaternions are valid rotations.
	v0 := q.Normalize()
	v1 := other.Normalize()

	dot := v0.Dot(v1)
	// Take the shorter path.
	if dot < 0.0 {
		v1 = Quaternion{-v1.X, -v1.Y, -v1.Z, -v1.W}
		dot = -dot
	}

	const dotThreshold = 0.9995
	if dot > dotThreshold {
		// Close enough to lerp and normalize.
		out := Quaternion{
			v0.X + (v1.X-v0.X)*percentage,
			v0.Y + (v1.Y-v0.Y)*percentage,
			v0.Z + (v1.Z-v0.Z)*percentage,
			v0.W + (v1.W-v0.W)*percentage,
		}
		return out.Normalize()
	}

	theta0 := kacos(dot)
	theta := theta0 * percentage
	sinTheta := ksin(theta)
	sinTheta0 := ksin(theta0)

	s0 := kcos(theta) - dot*sinTheta/sinTheta0
	s1 := sinTheta / sinTheta0

	return Quaternion{
		v0.X*s0 + v1.X*s1,
		v0.Y*s0 + v1.Y*s1,
		v0.Z*s0 + v1.Z*s1,
		v0.W*s0 + v1.W*s1,
	}
}
