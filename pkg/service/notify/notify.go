package notify

import (
	"context"
	"sync"

	"github.com/secmon-lab/grcore/pkg/domain/interfaces"
	"github.com/secmon-lab/grcore/pkg/domain/model"
	"github.com/secmon-lab/grcore/pkg/utils/async"
	"github.com/secmon-lab/grcore/pkg/utils/logging"
)

// Counter counts emitted notifications by event
type Counter interface {
	CountNotification(event string)
}

// LogSink writes notifications to the structured log in the background.
// Delivery to people is left to whatever consumes the log stream.
type LogSink struct {
	dispatcher *async.Dispatcher
	counter    Counter
}

var _ interfaces.NotificationSink = &LogSink{}

type Option func(*LogSink)

// WithCounter counts every emitted notification
func WithCounter(c Counter) Option {
	return func(s *LogSink) {
		s.counter = c
	}
}

func NewLogSink(dispatcher *async.Dispatcher, opts ...Option) *LogSink {
	s := &LogSink{dispatcher: dispatcher}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Emit never blocks on delivery
func (s *LogSink) Emit(ctx context.Context, n model.Notification) {
	if s.counter != nil {
		s.counter.CountNotification(n.Event)
	}

	s.dispatcher.Dispatch(ctx, func(ctx context.Context) error {
		logging.From(ctx).Info("notification",
			"event", n.Event,
			"subject", n.Subject.String(),
			"recipient", n.Recipient,
			"payload", n.Payload)
		return nil
	})
}

// Recorder keeps emitted notifications in memory
type Recorder struct {
	mu   sync.Mutex
	sent []model.Notification
}

var _ interfaces.NotificationSink = &Recorder{}

func (r *Recorder) Emit(ctx context.Context, n model.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

// Sent returns a copy of the recorded notifications
func (r *Recorder) Sent() []model.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.Notification, len(r.sent))
	copy(out, r.sent)
	return out
}
