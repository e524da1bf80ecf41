package report

import (
	"context"
	"sync"

	"github.com/harrisonrobin/calstats/pkg/colors"
	"github.com/harrisonrobin/calstats/pkg/model"
)

// minChunk keeps tiny inputs on the sequential path.
const minChunk = 256

// AggregateConcurrent splits events into contiguous chunks, aggregates them
// in parallel and merges the partial reports in chunk order. The result is
// identical to Aggregate, including the order of each task's events.
func AggregateConcurrent(ctx context.Context, events []model.Event, m colors.ColorIDToTask, p Params, workers int) (*Report, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if workers <= 1 || len(events) < 2*minChunk {
		return Aggregate(events, m, p)
	}

	size := (len(events) + workers - 1) / workers
	if size < minChunk {
		size = minChunk
	}

	var chunks [][]model.Event
	for start := 0; start < len(events); start += size {
		end := start + size
		if end > len(events) {
			end = len(events)
		}
		chunks = append(chunks, events[start:end])
	}

	parts := make([]*Report, len(chunks))
	var wg sync.WaitGroup
	for i, chunk := range chunks {
		wg.Add(1)
		go func(i int, chunk []model.Event) {
			defer wg.Done()
			if ctx.Err() != nil {
				return
			}
			part := newReport(p)
			for _, ev := range chunk {
				part.add(Classify(ev, m, p.Policy))
			}
			parts[i] = part
		}(i, chunk)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Merge(p, parts...)
}
