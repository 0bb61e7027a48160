package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// TaskSendNotification is the asynq task type carrying a Notification.
const TaskSendNotification = "notify:send"

// NewNotificationTask serializes n into an asynq task.
//
// Options:
//   - MaxRetry(0): a failed send is archived, not retried
//   - Queue("default")
//   - Timeout(30s): bounds the handler
func NewNotificationTask(n Notification) (*asynq.Task, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(
		TaskSendNotification,
		payload,
		asynq.MaxRetry(0),
		asynq.Queue("default"),
		asynq.Timeout(DefaultSendTimeout),
	), nil
}

// AsynqDispatcher enqueues notifications into Redis for an AsynqWorker.
type AsynqDispatcher struct {
	client *asynq.Client
}

// NewAsynqDispatcher connects an enqueueing client to the Redis at addr.
func NewAsynqDispatcher(addr string) *AsynqDispatcher {
	return &AsynqDispatcher{client: asynq.NewClient(asynq.RedisClientOpt{Addr: addr})}
}

// Dispatch enqueues n. Enqueue failures drop the notification.
func (d *AsynqDispatcher) Dispatch(ctx context.Context, n Notification) error {
	task, err := NewNotificationTask(n)
	if err != nil {
		return drop(n, err)
	}
	info, err := d.client.EnqueueContext(ctx, task)
	if err != nil {
		return drop(n, err)
	}
	log.Debug().Str("task_id", info.ID).Str("kind", n.Kind).Msg("notification enqueued")
	return nil
}

// Close releases the Redis connection.
func (d *AsynqDispatcher) Close() error { return d.client.Close() }

// AsynqWorker consumes notification tasks and hands them to a Mailer.
type AsynqWorker struct {
	server *asynq.Server
	mailer Mailer
}

// NewAsynqWorker creates a worker against the Redis at addr processing up
// to concurrency tasks in parallel.
func NewAsynqWorker(addr string, concurrency int, m Mailer) *AsynqWorker {
	if concurrency <= 0 {
		concurrency = 1
	}
	server := asynq.NewServer(
		asynq.RedisClientOpt{Addr: addr},
		asynq.Config{
			Concurrency:     concurrency,
			Queues:          map[string]int{"default": 1},
			Logger:          asynqLogger{l: log.Logger.With().Str("component", "asynq").Logger()},
			ShutdownTimeout: 10 * time.Second,
		},
	)
	return &AsynqWorker{server: server, mailer: m}
}

// Start registers the handler and starts processing in the background.
func (w *AsynqWorker) Start() error {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskSendNotification, w.HandleTask)
	log.Info().Msg("starting notification worker")
	return w.server.Start(mux)
}

// Stop waits for in-flight tasks and stops the worker.
func (w *AsynqWorker) Stop() {
	log.Info().Msg("stopping notification worker")
	w.server.Shutdown()
}

// HandleTask decodes and delivers one notification. Errors are marked
// SkipRetry so asynq archives the task immediately.
func (w *AsynqWorker) HandleTask(ctx context.Context, t *asynq.Task) error {
	var n Notification
	if err := json.Unmarshal(t.Payload(), &n); err != nil {
		return fmt.Errorf("decode notification payload: %v: %w", err, asynq.SkipRetry)
	}
	if err := deliver(ctx, w.mailer, n); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	return nil
}

// asynqLogger adapts zerolog to asynq.Logger.
type asynqLogger struct {
	l zerolog.Logger
}

func (a asynqLogger) Debug(args ...interface{}) { a.l.Debug().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Info(args ...interface{})  { a.l.Info().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Warn(args ...interface{})  { a.l.Warn().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Error(args ...interface{}) { a.l.Error().Msg(fmt.Sprint(args...)) }
func (a asynqLogger) Fatal(args ...interface{}) { a.l.Fatal().Msg(fmt.Sprint(args...)) }
