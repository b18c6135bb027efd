package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// CopyFn abstracts a backend's bulk insert capability. Implementations
// insert the provided rows (aligned to columns order) and return the number
// of rows written. The function must cancel promptly when ctx is done.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// LoadBatches drains rows from in, groups them into batches of batchSize,
// and calls copyFn for each non-empty batch. It returns the total number of
// rows reported by copyFn and the first error encountered. Progress is
// logged on each successful flush with running totals and instantaneous
// rows per second.
//
// Cancellation: returns (total, ctx.Err()) when canceled.
func LoadBatches(
	ctx context.Context,
	log *zap.SugaredLogger,
	columns []string,
	in <-chan []any,
	batchSize int,
	copyFn CopyFn,
) (int64, error) {
	if batchSize <= 0 {
		return 0, fmt.Errorf("batchSize must be > 0")
	}
	if copyFn == nil {
		return 0, fmt.Errorf("copyFn must not be nil")
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	var (
		total       int64
		batches     int64
		batch       = make([][]any, 0, batchSize)
		start       = time.Now()
		lastFlushTS = start
		lastTotal   int64
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := copyFn(ctx, columns, batch)
		total += n

		// Keep the backing array for the next batch.
		batch = batch[:0]

		if err != nil {
			log.Errorw("bulk insert failed", "inserted", n, "total", total, "error", err)
			return err
		}

		batches++
		now := time.Now()
		sinceLast := now.Sub(lastFlushTS)
		insertedSinceLast := total - lastTotal
		rps := float64(0)
		if sinceLast > 0 {
			rps = float64(insertedSinceLast) / sinceLast.Seconds()
		}
		log.Infow("batch flushed",
			"batch", batches,
			"rps", fmt.Sprintf("%.0f", rps),
			"inserted", n,
			"total_inserted", total,
			"elapsed", now.Sub(start).Truncate(time.Millisecond).String(),
			"since_last", sinceLast.Truncate(time.Millisecond).String(),
		)
		lastFlushTS = now
		lastTotal = total

		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return total, ctx.Err()

		case row, ok := <-in:
			if !ok {
				// Producer finished; flush whatever is buffered.
				if err := flush(); err != nil {
					return total, err
				}
				log.Infow("loader input closed", "total_inserted", total)
				return total, nil
			}
			batch = append(batch, row)
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return total, err
				}
			}
		}
	}
}
