package web

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/graph-gophers/dataloader"

	"github.com/evcraddock/grammable/internal/comment"
	"github.com/evcraddock/grammable/internal/gram"
)

// newCommentLoader batches comment lookups by gram id into one
// ListByGramIDs call. Loaders cache, so build one per request.
func newCommentLoader(store comment.Store, opts ...dataloader.Option) *dataloader.Loader {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		results := make([]*dataloader.Result, len(keys))

		ids := make([]int64, 0, len(keys))
		for _, key := range keys {
			id, err := strconv.ParseInt(key.String(), 10, 64)
			if err != nil {
				return failAll(results, fmt.Errorf("bad gram key %q: %w", key.String(), err))
			}
			ids = append(ids, id)
		}

		byGram, err := store.ListByGramIDs(ctx, ids)
		if err != nil {
			return failAll(results, err)
		}

		for i, id := range ids {
			results[i] = &dataloader.Result{Data: byGram[id]}
		}
		return results
	}

	opts = append([]dataloader.Option{dataloader.WithWait(time.Millisecond)}, opts...)
	return dataloader.NewBatchedLoader(batchFn, opts...)
}

func failAll(results []*dataloader.Result, err error) []*dataloader.Result {
	for i := range results {
		results[i] = &dataloader.Result{Error: err}
	}
	return results
}

// commentsFor loads the comments of every gram through loader.
func commentsFor(ctx context.Context, loader *dataloader.Loader, grams []*gram.Gram) (map[int64][]*comment.Comment, error) {
	result := make(map[int64][]*comment.Comment, len(grams))
	if len(grams) == 0 {
		return result, nil
	}

	keys := make([]string, len(grams))
	for i, g := range grams {
		keys[i] = strconv.FormatInt(g.ID, 10)
	}

	values, errs := loader.LoadMany(ctx, dataloader.NewKeysFromStrings(keys))()
	for _, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("loading comments: %w", err)
		}
	}

	for i, g := range grams {
		if comments, ok := values[i].([]*comment.Comment); ok {
			result[g.ID] = comments
		}
	}
	return result, nil
}
