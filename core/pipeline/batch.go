package pipeline

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// ChunkSink stores processed chunks for a named collection.
type ChunkSink interface {
	AddChunks(indexName string, contents []string, embeddings [][]float32, sourceDocument string, offsets []int, tokenCounts []int) (int, error)
}

// BatchJob processes a list of documents into a collection in the background.
// Failures of individual documents are counted and logged but never abort the
// batch. Documents that yield no chunks are skipped and appear in neither
// counter. A job runs exactly once.
type BatchJob struct {
	processor *Processor
	sink      ChunkSink
	indexName string
	paths     []string
	logger    *slog.Logger

	cancel    context.CancelFunc
	done      chan struct{}
	processed atomic.Int64
	failed    atomic.Int64
}

// NewBatchJob creates a batch job over the given document paths. The job does
// not run until Start is called.
func NewBatchJob(processor *Processor, sink ChunkSink, indexName string, paths []string, logger *slog.Logger) *BatchJob {
	if logger == nil {
		logger = slog.Default()
	}

	return &BatchJob{
		processor: processor,
		sink:      sink,
		indexName: indexName,
		paths:     paths,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Start launches the job in a background goroutine and returns immediately.
func (j *BatchJob) Start(ctx context.Context) {
	ctx, j.cancel = context.WithCancel(ctx)
	go j.run(ctx)
}

// Cancel stops the job after the document currently in flight.
func (j *BatchJob) Cancel() {
	if j.cancel != nil {
		j.cancel()
	}
}

// Done is closed when the job has finished or was cancelled.
func (j *BatchJob) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job finishes or the context expires.
func (j *BatchJob) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-j.done:
		return nil
	}
}

// Processed returns the number of documents ingested so far.
func (j *BatchJob) Processed() int {
	return int(j.processed.Load())
}

// Failed returns the number of documents that could not be ingested.
func (j *BatchJob) Failed() int {
	return int(j.failed.Load())
}

func (j *BatchJob) run(ctx context.Context) {
	defer close(j.done)
	defer j.cancel()

	for _, path := range j.paths {
		if ctx.Err() != nil {
			j.logger.Info("Batch cancelled",
				slog.String("index", j.indexName),
				slog.Int("processed", j.Processed()),
				slog.Int("failed", j.Failed()),
			)
			return
		}

		result, err := j.processor.ProcessDocument(path)
		if err != nil {
			j.failed.Add(1)
			j.logger.Warn("Failed to process document",
				slog.String("path", path),
				slog.Any("error", err),
			)
			continue
		}

		if result.Empty() {
			continue
		}

		_, err = j.sink.AddChunks(j.indexName, result.Chunks, result.Embeddings, path, result.Offsets, result.TokenCounts)
		if err != nil {
			j.failed.Add(1)
			j.logger.Warn("Failed to store chunks",
				slog.String("path", path),
				slog.Any("error", err),
			)
			continue
		}

		j.processed.Add(1)
	}

	j.logger.Info("Batch finished",
		slog.String("index", j.indexName),
		slog.Int("processed", j.Processed()),
		slog.Int("failed", j.Failed()),
	)
}
