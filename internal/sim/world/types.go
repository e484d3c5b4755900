package world

type Vec3i struct {
	X int
	Y int
	Z int
}

func (v Vec3i) ToArray() [3]int { return [3]int{v.X, v.Y, v.Z} }

// behindOffset returns the offset from a wall sign to the block it is mounted
// on, given the direction the sign faces.
func behindOffset(facing string) (Vec3i, bool) {
	switch facing {
	case "north":
		return Vec3i{Z: 1}, true
	case "south":
		return Vec3i{Z: -1}, true
	case "east":
		return Vec3i{X: -1}, true
	case "west":
		return Vec3i{X: 1}, true
	}
	return Vec3i{}, false
}

func (v Vec3i) Add(o Vec3i) Vec3i {
	return Vec3i{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}
