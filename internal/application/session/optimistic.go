package session

type cloner[T any] interface {
	clone() T
}

// optimistic stores mutate(copy) right away and then runs commit. If commit
// fails, rollback is applied to the entity as it is stored at that moment,
// with the pre-mutation snapshot, so changes confirmed by other calls in the
// meantime are kept. found is false when load reports the entity missing,
// in which case nothing runs.
func optimistic[T cloner[T]](
	load func() (T, bool),
	update func(func(T) T),
	mutate func(T) T,
	rollback func(current, snapshot T) T,
	commit func() error,
) (found bool, err error) {
	snapshot, ok := load()
	if !ok {
		return false, nil
	}

	update(mutate)

	if err := commit(); err != nil {
		update(func(current T) T { return rollback(current, snapshot.clone()) })
		return true, err
	}
	return true, nil
}
