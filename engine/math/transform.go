package math

func NewTransform() *Transform {
	return NewTransformFromPositionRotationScale(NewVec3Zero(), NewQuatIdentity(), NewVec3One())
}

func NewTransformFromPosition(position Vec3) *Transform {
	return NewTransformFromPositionRotationScale(position, NewQuatIdentity(), NewVec3One())
}

func NewTransformFromPositionRotationScale(position Vec3, rotation Quaternion, scale Vec3) *Transform {
	return &Transform{
		position: position,
		rotation: rotation,
		scale:    scale,
		isDirty:  true,
		local:    NewMat4Identity(),
	}
}

func (t *Transform) Position() Vec3 {
	return t.position
}

func (t *Transform) Rotation() Quaternion {
	return t.rotation
}

func (t *Transform) Scale() Vec3 {
	return t.scale
}

func (t *Transform) SetPosition(position Vec3) {
	t.position = position
	t.isDirty = true
}

func (t *Transform) Translate(translation Vec3) {
	t.position = t.position.Add(translation)
	t.isDirty = true
}

func (t *Transform) SetRotation(rotation Quaternion) {
	t.rotation = rotation
	t.isDirty = true
}

func (t *Transform) Rotate(rotation Quaternion) {
	t.rotation = t.rotation.Mul(rotation)
	t.isDirty = true
}

func (t *Transform) SetScale(scale Vec3) {
	t.scale = scale
	t.isDirty = true
}

// Local returns scale, then rotation, then translation.
func (t *Transform) Local() Mat4 {
	if t == nil {
		return NewMat4Identity()
	}
	if t.isDirty {
		t.local = NewMat4Scale(t.scale).Mul(t.rotation.ToMat4()).Mul(NewMat4Translation(t.position))
		t.isDirty = false
	}
	return t.local
}

func (t *Transform) World() Mat4 {
	if t == nil {
		return NewMat4Identity()
	}
	l := t.Local()
	if t.Parent != nil {
		return l.Mul(t.Parent.World())
	}
	return l
}
