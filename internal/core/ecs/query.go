package ecs

// Each2 iterates over entities that have both component A and B.
// It iterates over the smaller store and checks the larger one.
// fn receives pointers into the stores and must not add or remove A or B.
func Each2[A, B any](sa *Store[A], sb *Store[B], fn func(EntityID, *A, *B)) {
	if sa.Len() <= sb.Len() {
		for i := 0; i < len(sa.values); i++ {
			id := sa.entities[i]
			if j, ok := sb.slot(id); ok {
				fn(id, &sa.values[i], &sb.values[j])
			}
		}
		return
	}
	for j := 0; j < len(sb.values); j++ {
		id := sb.entities[j]
		if i, ok := sa.slot(id); ok {
			fn(id, &sa.values[i], &sb.values[j])
		}
	}
}

// Each3 iterates over entities that have components A, B, and C.
func Each3[A, B, C any](sa *Store[A], sb *Store[B], sc *Store[C], fn func(EntityID, *A, *B, *C)) {
	// Drive from the smallest store
	switch {
	case sa.Len() <= sb.Len() && sa.Len() <= sc.Len():
		for i := 0; i < len(sa.values); i++ {
			id := sa.entities[i]
			j, okB := sb.slot(id)
			k, okC := sc.slot(id)
			if okB && okC {
				fn(id, &sa.values[i], &sb.values[j], &sc.values[k])
			}
		}
	case sb.Len() <= sc.Len():
		for j := 0; j < len(sb.values); j++ {
			id := sb.entities[j]
			i, okA := sa.slot(id)
			k, okC := sc.slot(id)
			if okA && okC {
				fn(id, &sa.values[i], &sb.values[j], &sc.values[k])
			}
		}
	default:
		for k := 0; k < len(sc.values); k++ {
			id := sc.entities[k]
			i, okA := sa.slot(id)
			j, okB := sb.slot(id)
			if okA && okB {
				fn(id, &sa.values[i], &sb.values[j], &sc.values[k])
			}
		}
	}
}
