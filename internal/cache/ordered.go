package cache

import "slices"

type entry[T any] struct {
	value T
	seq   uint64
}

// ordered is an id-keyed collection that remembers display order.
// It is not safe for concurrent use; Cache serializes access.
type ordered[T any] struct {
	keyOf func(T) string
	ids   []string
	items map[string]entry[T]
}

func newOrdered[T any](keyOf func(T) string) *ordered[T] {
	return &ordered[T]{
		keyOf: keyOf,
		items: make(map[string]entry[T]),
	}
}

func (o *ordered[T]) empty() *ordered[T] {
	return newOrdered(o.keyOf)
}

func (o *ordered[T]) upsert(v T, seq uint64) bool {
	id := o.keyOf(v)
	_, exists := o.items[id]
	o.items[id] = entry[T]{value: v, seq: seq}
	if !exists {
		o.ids = slices.Insert(o.ids, 0, id)
	}
	return !exists
}

func (o *ordered[T]) get(id string) (T, bool) {
	e, ok := o.items[id]
	return e.value, ok
}

func (o *ordered[T]) values() []T {
	out := make([]T, 0, len(o.ids))
	for _, id := range o.ids {
		out = append(out, o.items[id].value)
	}
	return out
}

// rebuild returns a new collection holding snap in order. Entries of o written
// after mark survive: they replace their snapshot copy in place, or are put in
// front when the snapshot does not have them. Duplicate ids in snap keep the
// first position and the last value.
func (o *ordered[T]) rebuild(snap []T, mark, seq uint64) *ordered[T] {
	next := o.empty()
	for _, v := range snap {
		id := o.keyOf(v)
		if _, dup := next.items[id]; !dup {
			next.ids = append(next.ids, id)
		}
		next.items[id] = entry[T]{value: v, seq: seq}
	}

	var fresh []string
	for _, id := range o.ids {
		e := o.items[id]
		if e.seq <= mark {
			continue
		}
		if _, inSnap := next.items[id]; !inSnap {
			fresh = append(fresh, id)
		}
		next.items[id] = e
	}
	if len(fresh) > 0 {
		next.ids = append(fresh, next.ids...)
	}
	return next
}
