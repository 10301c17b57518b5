package parallel

import (
	"context"
	"iter"
	"slices"

	"golang.org/x/sync/errgroup"
)

// Item is one mapped element, Index is the position of the input element.
type Item[D any] struct {
	Index int
	Value D
	Err   error
}

// Map is a parallel mapping function, which can run the mapFuncs in a parallel and wait for
// completions. Results are yielded in the order of completion, Item.Index tells
// which input produced them. Map is context aware, so canceled context ends the processing.
//
//	for item := range pmap.Iter(input) {}
type Map[E, D any] struct {
	parentCtx    context.Context
	cancelParent context.CancelFunc
	g            *errgroup.Group
	gctx         context.Context
	mapped       chan Item[D]
	mapFunc      func(context.Context, E) (D, error)
}

func NewMap[E, D any](parentCtx context.Context, limit int, mapFunc func(context.Context, E) (D, error)) *Map[E, D] {
	if limit < 1 {
		limit = 1
	}
	parentCtx, cancelParent := context.WithCancel(parentCtx)
	g, gctx := errgroup.WithContext(parentCtx)
	// one extra slot for the feeding goroutine
	g.SetLimit(limit + 1)

	return &Map[E, D]{
		parentCtx:    parentCtx,
		cancelParent: cancelParent,
		g:            g,
		gctx:         gctx,
		mapped:       make(chan Item[D], limit),
		mapFunc:      mapFunc,
	}
}

func (s *Map[E, D]) goWorkers(seq iter.Seq[E]) {
	s.g.Go(func() error {
		index := 0
		for entry := range seq {
			if err := s.gctx.Err(); err != nil {
				return err
			}
			i := index
			index++
			s.g.Go(func() error {
				d, err := s.mapFunc(s.gctx, entry)
				select {
				case <-s.gctx.Done():
					return s.gctx.Err()
				case s.mapped <- Item[D]{Index: i, Value: d, Err: err}:
				}
				return nil
			})
		}
		return nil
	})
}

func (s *Map[E, D]) Iter(seq iter.Seq[E]) iter.Seq[Item[D]] {
	return func(yield func(Item[D]) bool) {
		defer s.cancelParent()
		s.goWorkers(seq)

		go func() {
			_ = s.g.Wait()
			close(s.mapped)
		}()

		for item := range s.mapped {
			if s.parentCtx.Err() != nil {
				return
			}
			if !yield(item) {
				return
			}
		}
	}
}

// Slice maps in with at most limit calls of mapFunc running at once and returns
// the results in the order of in. Elements not processed because ctx was
// canceled carry the context error.
func Slice[E, D any](ctx context.Context, limit int, in []E, mapFunc func(context.Context, E) (D, error)) []Item[D] {
	out := make([]Item[D], len(in))
	done := make([]bool, len(in))
	for item := range NewMap(ctx, limit, mapFunc).Iter(slices.Values(in)) {
		out[item.Index] = item
		done[item.Index] = true
	}
	for i := range out {
		if !done[i] {
			err := context.Cause(ctx)
			if err == nil {
				err = context.Canceled
			}
			out[i] = Item[D]{Index: i, Err: err}
		}
	}
	return out
}
