package geo

import "slices"

// faces is a sorted set of topology face ids.
type faces []int

func newFaces(ids ...int) faces {
	f := slices.Clone(ids)
	slices.Sort(f)
	return slices.Compact(f)
}

// contains reports whether o is a subset of f. The empty set is contained
// in nothing, so that unknown locations never match.
func (f faces) contains(o faces) bool {
	if len(o) == 0 {
		return false
	}
	i := 0
	for _, id := range o {
		for i < len(f) && f[i] < id {
			i++
		}
		if i == len(f) || f[i] != id {
			return false
		}
	}
	return true
}

func (f faces) intersects(o faces) bool {
	return len(f.intersection(o)) > 0
}

func (f faces) intersection(o faces) faces {
	result := make(faces, 0)
	i, j := 0, 0
	for i < len(f) && j < len(o) {
		switch {
		case f[i] == o[j]:
			result = append(result, f[i])
			i++
			j++
		case f[i] < o[j]:
			i++
		default:
			j++
		}
	}
	return result
}

func (f faces) minus(o faces) faces {
	result := make(faces, 0, len(f))
	for _, id := range f {
		if _, found := slices.BinarySearch(o, id); !found {
			result = append(result, id)
		}
	}
	return result
}

func union(sets ...faces) faces {
	all := make([]int, 0)
	for _, s := range sets {
		all = append(all, s...)
	}
	return newFaces(all...)
}
