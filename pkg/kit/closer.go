package kit

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Closer releases registered resources in reverse order of registration.
type Closer struct {
	mu    sync.Mutex
	once  sync.Once
	names []string
	funcs []func(ctx context.Context) error
}

func (c *Closer) Add(name string, f func(ctx context.Context) error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names = append(c.names, name)
	c.funcs = append(c.funcs, f)
}

// Close runs every function once, newest first, and joins their errors.
// It stops early if ctx is done.
func (c *Closer) Close(ctx context.Context) error {
	var err error
	c.once.Do(func() {
		c.mu.Lock()
		names, funcs := c.names, c.funcs
		c.mu.Unlock()

		var errs []error
		for i := len(funcs) - 1; i >= 0; i-- {
			if ctxErr := ctx.Err(); ctxErr != nil {
				errs = append(errs, fmt.Errorf("close interrupted before %s: %w", names[i], ctxErr))
				break
			}
			if fErr := funcs[i](ctx); fErr != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", names[i], fErr))
			}
		}
		err = errors.Join(errs...)
	})
	return err
}
