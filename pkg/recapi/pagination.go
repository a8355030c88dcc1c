package recapi

import (
	"context"
	"fmt"

	"github.com/fivetwenty-io/recapi/internal/constants"
)

// PageFetcher returns one page of a list.
type PageFetcher[T any] func(ctx context.Context, page int) (*Page[T], error)

// FetchAllPages walks pages starting at 1 until the last page or maxPages.
// A non-positive maxPages uses the default limit.
func FetchAllPages[T any](ctx context.Context, fetch PageFetcher[T], maxPages int) ([]T, error) {
	if maxPages <= 0 {
		maxPages = constants.DefaultMaxPages
	}

	var all []T

	for page := 1; page <= maxPages; page++ {
		result, err := fetch(ctx, page)
		if err != nil {
			return all, fmt.Errorf("fetching page %d: %w", page, err)
		}

		all = append(all, result.Items...)

		if !result.Pagination.HasNext() || len(result.Items) == 0 {
			break
		}
	}

	return all, nil
}
