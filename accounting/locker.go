package accounting

import "context"

// Locker serialises account code generation across processes.
// utils.RedisLocker is the production implementation.
type Locker interface {
	Obtain(ctx context.Context, key string) (release func(), err error)
}

type noopLocker struct{}

func (noopLocker) Obtain(context.Context, string) (func(), error) {
	return func() {}, nil
}
