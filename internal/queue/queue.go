package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var (
	jobsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "atal",
		Subsystem: "queue",
		Name:      "jobs_enqueued_total",
		Help:      "Number of jobs accepted onto the queue",
	})

	jobsDeduplicated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "atal",
		Subsystem: "queue",
		Name:      "jobs_deduplicated_total",
		Help:      "Number of enqueues skipped because the job was already queued or in flight",
	})

	jobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "atal",
		Subsystem: "queue",
		Name:      "jobs_processed_total",
		Help:      "Number of job attempts by outcome",
	}, []string{"outcome"})
)

// Handler processes one submission job. Returning an error drives the retry
// policy; the handler is responsible for leaving the submission row in a
// terminal state on its own failures.
type Handler func(ctx context.Context, submissionID string) error

// Options tunes queue behaviour. Zero values fall back to defaults.
type Options struct {
	Prefix        string
	Concurrency   int
	MaxAttempts   int
	BackoffBase   time.Duration
	RatePerSecond float64
	PollInterval  time.Duration
	ActiveTTL     time.Duration
	CompletedTTL  time.Duration
	FailedTTL     time.Duration
}

func (o Options) withDefaults() Options {
	if o.Prefix == "" {
		o.Prefix = "judge:queue"
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = 2 * time.Second
	}
	if o.RatePerSecond <= 0 {
		o.RatePerSecond = 5
	}
	if o.PollInterval <= 0 {
		o.PollInterval = time.Second
	}
	if o.ActiveTTL <= 0 {
		o.ActiveTTL = 30 * time.Minute
	}
	if o.CompletedTTL <= 0 {
		o.CompletedTTL = 5 * time.Minute
	}
	if o.FailedTTL <= 0 {
		o.FailedTTL = 24 * time.Hour
	}
	return o
}

// Queue is a durable at-least-once job queue backed by redis. Jobs are keyed
// by submission id, so enqueueing an already queued or in-flight submission
// is a no-op. Failed attempts are retried with exponential backoff up to the
// attempt limit; a shared rate limiter caps worker throughput so the
// downstream execution service is not overwhelmed.
type Queue struct {
	rdb     *redis.Client
	handler Handler
	opts    Options
	limiter *rate.Limiter
	logger  zerolog.Logger
	wg      sync.WaitGroup
}

// New constructs a queue. Start must be called before jobs are consumed.
func New(rdb *redis.Client, handler Handler, opts Options, logger zerolog.Logger) *Queue {
	opts = opts.withDefaults()
	return &Queue{
		rdb:     rdb,
		handler: handler,
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1),
		logger:  logger.With().Str("component", "submission_queue").Logger(),
	}
}

func (q *Queue) pendingKey() string  { return q.opts.Prefix + ":pending" }
func (q *Queue) delayedKey() string  { return q.opts.Prefix + ":delayed" }
func (q *Queue) attemptsKey() string { return q.opts.Prefix + ":attempts" }

func (q *Queue) activeKey(id string) string    { return q.opts.Prefix + ":active:" + id }
func (q *Queue) completedKey(id string) string { return q.opts.Prefix + ":completed:" + id }
func (q *Queue) failedKey(id string) string    { return q.opts.Prefix + ":failed:" + id }

// Enqueue adds a submission job. It reports false when the submission is
// already queued or in flight.
func (q *Queue) Enqueue(ctx context.Context, submissionID string) (bool, error) {
	if submissionID == "" {
		return false, errors.New("submission id must not be empty")
	}

	accepted, err := q.rdb.SetNX(ctx, q.activeKey(submissionID), "1", q.opts.ActiveTTL).Result()
	if err != nil {
		return false, fmt.Errorf("reserve job: %w", err)
	}
	if !accepted {
		jobsDeduplicated.Inc()
		q.logger.Debug().Str("submission_id", submissionID).Msg("duplicate enqueue skipped")
		return false, nil
	}

	if err := q.rdb.LPush(ctx, q.pendingKey(), submissionID).Err(); err != nil {
		// Free the reservation so a later enqueue can succeed.
		q.rdb.Del(context.Background(), q.activeKey(submissionID))
		return false, fmt.Errorf("push job: %w", err)
	}

	jobsEnqueued.Inc()
	return true, nil
}

// Start launches the worker pool and the delayed-job scheduler. It returns
// immediately; workers stop when ctx is cancelled.
func (q *Queue) Start(ctx context.Context) {
	for i := 0; i < q.opts.Concurrency; i++ {
		q.wg.Add(1)
		go func(worker int) {
			defer q.wg.Done()
			q.workerLoop(ctx, worker)
		}(i)
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		q.schedulerLoop(ctx)
	}()

	q.logger.Info().Int("concurrency", q.opts.Concurrency).Msg("queue workers started")
}

// Shutdown blocks until all workers have exited. Cancel the context passed
// to Start first.
func (q *Queue) Shutdown() {
	q.wg.Wait()
	q.logger.Info().Msg("queue workers stopped")
}

func (q *Queue) workerLoop(ctx context.Context, worker int) {
	logger := q.logger.With().Int("worker", worker).Logger()
	for {
		if ctx.Err() != nil {
			return
		}

		popped, err := q.rdb.BRPop(ctx, q.opts.PollInterval, q.pendingKey()).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			logger.Error().Err(err).Msg("failed to pop job")
			select {
			case <-ctx.Done():
				return
			case <-time.After(q.opts.PollInterval):
			}
			continue
		}
		if len(popped) < 2 || popped[1] == "" {
			continue
		}

		if err := q.limiter.Wait(ctx); err != nil {
			return
		}

		q.runJob(ctx, logger, popped[1])
	}
}

func (q *Queue) runJob(ctx context.Context, logger zerolog.Logger, submissionID string) {
	attempt, err := q.rdb.HIncrBy(ctx, q.attemptsKey(), submissionID, 1).Result()
	if err != nil {
		logger.Error().Err(err).Str("submission_id", submissionID).Msg("failed to record attempt")
		attempt = 1
	}

	handlerErr := q.invokeHandler(ctx, submissionID)
	if handlerErr == nil {
		jobsProcessed.WithLabelValues("completed").Inc()
		q.finishJob(ctx, submissionID, q.completedKey(submissionID), "done", q.opts.CompletedTTL)
		return
	}

	if ctx.Err() != nil {
		// Shutting down mid-job: leave the reservation so the safety TTL
		// eventually releases it, and do not consume an attempt record.
		logger.Warn().Str("submission_id", submissionID).Msg("job interrupted by shutdown")
		return
	}

	logger.Warn().Err(handlerErr).
		Str("submission_id", submissionID).
		Int64("attempt", attempt).
		Msg("job attempt failed")

	if int(attempt) >= q.opts.MaxAttempts {
		jobsProcessed.WithLabelValues("failed").Inc()
		q.finishJob(ctx, submissionID, q.failedKey(submissionID), handlerErr.Error(), q.opts.FailedTTL)
		return
	}

	jobsProcessed.WithLabelValues("retried").Inc()
	due := time.Now().Add(backoff(q.opts.BackoffBase, int(attempt)))
	member := redis.Z{Score: float64(due.UnixMilli()), Member: submissionID}
	if err := q.rdb.ZAdd(ctx, q.delayedKey(), member).Err(); err != nil {
		logger.Error().Err(err).Str("submission_id", submissionID).Msg("failed to schedule retry")
	}
}

// invokeHandler runs one processing attempt. A panic inside the handler is
// converted into a handler error so it feeds the same retry policy as a
// returned error instead of taking the worker down.
func (q *Queue) invokeHandler(ctx context.Context, submissionID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job handler panicked: %v", r)
		}
	}()
	return q.handler(ctx, submissionID)
}

func (q *Queue) finishJob(ctx context.Context, submissionID, recordKey, recordValue string, ttl time.Duration) {
	pipe := q.rdb.Pipeline()
	pipe.Del(ctx, q.activeKey(submissionID))
	pipe.HDel(ctx, q.attemptsKey(), submissionID)
	pipe.Set(ctx, recordKey, recordValue, ttl)
	if _, err := pipe.Exec(ctx); err != nil && ctx.Err() == nil {
		q.logger.Error().Err(err).Str("submission_id", submissionID).Msg("failed to finalise job records")
	}
}

func (q *Queue) schedulerLoop(ctx context.Context) {
	ticker := time.NewTicker(q.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.promoteDue(ctx)
		}
	}
}

// promoteDue moves delayed jobs whose backoff elapsed back onto the pending
// list. ZRem guards against two schedulers promoting the same member.
func (q *Queue) promoteDue(ctx context.Context) {
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	due, err := q.rdb.ZRangeByScore(ctx, q.delayedKey(), &redis.ZRangeBy{
		Min: "-inf", Max: now, Count: 100,
	}).Result()
	if err != nil {
		if ctx.Err() == nil {
			q.logger.Error().Err(err).Msg("failed to scan delayed jobs")
		}
		return
	}

	for _, submissionID := range due {
		removed, err := q.rdb.ZRem(ctx, q.delayedKey(), submissionID).Result()
		if err != nil || removed == 0 {
			continue
		}
		if err := q.rdb.LPush(ctx, q.pendingKey(), submissionID).Err(); err != nil {
			q.logger.Error().Err(err).Str("submission_id", submissionID).Msg("failed to promote delayed job")
		}
	}
}

// backoff returns the delay before the next delivery: base * 2^(attempt-1).
func backoff(base time.Duration, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	return delay
}
