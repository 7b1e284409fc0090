package jobs

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/backend-laundry/internal/events"
)

// Enqueuer submits tasks; *asynq.Client satisfies it.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AuditNotifier enqueues a reprice audit for every event that changed an
// order's price.
type AuditNotifier struct {
	Queue    Enqueuer
	MaxRetry int
}

// Notify implements events.Notifier.
func (n AuditNotifier) Notify(ctx context.Context, ev events.Event) error {
	if n.Queue == nil || !events.Repriced(ev.Topic) {
		return nil
	}
	task, err := NewRepriceAuditTask(ev.AggregateID)
	if err != nil {
		return err
	}
	retries := n.MaxRetry
	if retries <= 0 {
		retries = 3
	}
	_, err = n.Queue.EnqueueContext(ctx, task,
		asynq.Queue(QueueDefault),
		asynq.TaskID("reprice:"+ev.ID),
		asynq.MaxRetry(retries),
	)
	if err != nil && !errors.Is(err, asynq.ErrTaskIDConflict) {
		return err
	}
	return nil
}
