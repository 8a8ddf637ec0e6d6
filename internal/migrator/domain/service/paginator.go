package service

import "context"

// PageFunc fetches the page at cursor and returns its records and the next
// cursor. A nil next cursor ends the listing.
type PageFunc[T any] func(ctx context.Context, cursor string) ([]T, *string, error)

// Drain walks a cursored listing from the first page to the last and returns
// every record in the order received. The first call uses the empty cursor.
// Only a nil next cursor stops the walk; an empty string is a real cursor.
func Drain[T any](ctx context.Context, list PageFunc[T]) ([]T, error) {
	var (
		all    []T
		cursor string
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, next, err := list(ctx, cursor)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if next == nil {
			return all, nil
		}
		cursor = *next
	}
}
