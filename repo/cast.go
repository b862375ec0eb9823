package repo

import (
	"fmt"
	"log/slog"
)

// As decodes e into a new T, which is a struct type or a pointer to one.
// A nil entity yields the zero T.
func As[T any](e *Entity) (T, error) {
	var zeroT T
	if e == nil {
		slog.Warn("repo.As: entity is nil", "target", fmt.Sprintf("%T", zeroT))
		return zeroT, nil
	}
	var out T
	if err := e.Decode(&out); err != nil {
		return zeroT, err
	}
	return out, nil
}

// AllAs decodes every entity into a T, stopping at the first failure.
func AllAs[T any](entities []*Entity) ([]T, error) {
	typed := make([]T, 0, len(entities))
	for i, e := range entities {
		out, err := As[T](e)
		if err != nil {
			return nil, fmt.Errorf("repo.AllAs: entity at index %d: %w", i, err)
		}
		typed = append(typed, out)
	}
	return typed, nil
}
