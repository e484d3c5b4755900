package world

type Sign struct {
	Pos    Vec3i
	Facing string
	// Lines is the displayed sign text. For a shop sign the lifecycle rewrites
	// it to mode / item name / price / "[Click]".
	Lines       [4]string
	UpdatedTick uint64
	UpdatedBy   string
}

// BehindPos returns the position of the block the sign is mounted on.
func (s *Sign) BehindPos() (Vec3i, bool) {
	off, ok := behindOffset(s.Facing)
	if !ok {
		return Vec3i{}, false
	}
	return s.Pos.Add(off), true
}

// Text joins the sign lines into the configuration text blob.
func (s *Sign) Text() string {
	out := ""
	for i, l := range s.Lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}

func (w *World) ensureSign(pos Vec3i, facing string) *Sign {
	s := w.signs[pos]
	if s != nil {
		s.Pos = pos
		if facing != "" {
			s.Facing = facing
		}
		return s
	}
	s = &Sign{Pos: pos, Facing: facing}
	w.signs[pos] = s
	return s
}

func (w *World) removeSign(pos Vec3i) {
	delete(w.signs, pos)
}
