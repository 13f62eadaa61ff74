package service

import (
	"context"
	"html/template"
	"sync"
	"time"

	"medical-office-api/config"
	"medical-office-api/pkg/metrics"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// NotificationService delivers notifications from a bounded queue with a fixed worker pool.
// Delivery failures are logged and counted, never returned to whoever enqueued the message.
type NotificationService struct {
	notifier    Notifier
	log         *logrus.Logger
	metrics     *metrics.Collector
	templates   *template.Template
	sendTimeout time.Duration

	mu      sync.RWMutex
	closed  bool
	queue   chan Notification
	workers errgroup.Group
}

func NewNotificationService(notifier Notifier, log *logrus.Logger, collector *metrics.Collector, cfg config.NotificationConfig) (*NotificationService, error) {
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	s := &NotificationService{
		notifier:    notifier,
		log:         log,
		metrics:     collector,
		templates:   tmpl,
		sendTimeout: cfg.SendTimeout,
		queue:       make(chan Notification, cfg.QueueSize),
	}

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		s.workers.Go(func() error {
			s.work()
			return nil
		})
	}

	return s, nil
}

// Enqueue queues n for delivery. If the queue is full or closed the notification is dropped.
func (s *NotificationService) Enqueue(n Notification) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		s.drop(n, "queue closed")
		return false
	}

	select {
	case s.queue <- n:
		s.metrics.NotificationQueue.Inc()
		return true
	default:
		s.drop(n, "queue full")
		return false
	}
}

// Shutdown stops accepting notifications and waits for queued ones to be delivered.
func (s *NotificationService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		_ = s.workers.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.log.Warnf("Notification shutdown timed out with %d message(s) pending", len(s.queue))
		return ctx.Err()
	}
}

func (s *NotificationService) work() {
	for n := range s.queue {
		s.metrics.NotificationQueue.Dec()
		s.deliver(n)
	}
}

func (s *NotificationService) deliver(n Notification) {
	subject, body, err := renderNotification(s.templates, n)
	if err != nil {
		s.log.Warnf("Failed to render %s notification for appointment %s: %+v", n.Kind, n.AppointmentID, err)
		s.fail(n)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.sendTimeout)
	defer cancel()

	if err := s.notifier.Send(ctx, n.To, subject, body); err != nil {
		s.log.Warnf("Failed to send %s notification for appointment %s: %+v", n.Kind, n.AppointmentID, err)
		s.fail(n)
		return
	}

	s.metrics.Notification(string(n.Kind), metrics.OutcomeSuccess)
	s.log.Infof("Sent %s notification for appointment %s", n.Kind, n.AppointmentID)
}

func (s *NotificationService) fail(n Notification) {
	s.metrics.Notification(string(n.Kind), metrics.OutcomeFailure)
	if n.OnFailure == nil {
		return
	}

	// the send context may already be spent
	ctx, cancel := context.WithTimeout(context.Background(), s.sendTimeout)
	defer cancel()
	n.OnFailure(ctx)
}

func (s *NotificationService) drop(n Notification, why string) {
	s.metrics.NotificationDropped.Inc()
	s.metrics.Notification(string(n.Kind), metrics.OutcomeDropped)
	s.log.Warnf("Dropping %s notification for appointment %s: %s", n.Kind, n.AppointmentID, why)
}
