package metadata

// Surface describes the default render surface. Its size is used when a
// render target has no attached textures.
type Surface interface {
	Width() uint32
	Height() uint32
}

// FixedSurface is a Surface of constant size, used by headless runs.
type FixedSurface struct {
	W, H uint32
}

func (s *FixedSurface) Width() uint32 {
	return s.W
}

func (s *FixedSurface) Height() uint32 {
	return s.H
}

// Resize changes the reported size.
func (s *FixedSurface) Resize(width, height uint32) {
	s.W = width
	s.H = height
}
