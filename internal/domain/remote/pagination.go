package remote

import (
	"context"
	"fmt"
)

// Page is one page of a cursor-style remote result set.
type Page[T any] interface {
	// Items returns the entries of this page in server order.
	Items() []T
	// HasNext reports whether the cursor has a further page.
	HasNext() bool
	// Next fetches the following page; one remote call per invocation.
	Next(ctx context.Context) (Page[T], error)
}

// Drain concatenates page and every following page into one slice, preserving
// server order. There is no upper bound on the page count.
func Drain[T any](ctx context.Context, page Page[T]) ([]T, error) {
	if page == nil {
		return nil, nil
	}
	results := append([]T(nil), page.Items()...)
	for n := 1; page.HasNext(); n++ {
		next, err := page.Next(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch page %d: %w", n+1, err)
		}
		page = next
		results = append(results, page.Items()...)
	}
	return results, nil
}

// StaticPage is a single, final page over an in-memory slice.
type StaticPage[T any] []T

// Items returns the slice
func (p StaticPage[T]) Items() []T { return p }

// HasNext always reports false
func (p StaticPage[T]) HasNext() bool { return false }

// Next is never valid on a static page
func (p StaticPage[T]) Next(context.Context) (Page[T], error) {
	return nil, fmt.Errorf("static page has no next page")
}
