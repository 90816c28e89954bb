// Package audit records security events: every login, reset, role switch, refresh and denial.
// Sinks are best effort: a failing or slow sink is logged and never fails or stalls the request
// once the Recorder has been started.
package audit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Skotchmaster/school_backend/pkg/ids"
	"github.com/Skotchmaster/school_backend/pkg/logging"
)

type Type string

const (
	LoginSucceeded       Type = "login_succeeded"
	LoginFailed          Type = "login_failed"
	ResetOTPRequested    Type = "password_reset_otp_requested"
	ResetOTPVerified     Type = "password_reset_otp_verified"
	ResetOTPRejected     Type = "password_reset_otp_rejected"
	PasswordReset        Type = "password_reset"
	RoleSwitched         Type = "role_switched"
	RoleSwitchDenied     Type = "role_switch_denied"
	TokenRefreshed       Type = "token_refreshed"
	RefreshRejected      Type = "refresh_rejected"
	LoggedOut            Type = "logged_out"
	AccessDenied         Type = "access_denied"
	RoleAssigned         Type = "role_assigned"
	AccountStatusChanged Type = "account_status_changed"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeDenied  = "denied"
)

type Event struct {
	ID            string    `json:"id"`
	Type          Type      `json:"type"`
	Outcome       string    `json:"outcome"`
	UserID        string    `json:"user_id,omitempty"`
	Email         string    `json:"email,omitempty"`
	Role          string    `json:"role,omitempty"`
	RequestedRole string    `json:"requested_role,omitempty"`
	Resource      string    `json:"resource,omitempty"`
	Reason        string    `json:"reason,omitempty"`
	IP            string    `json:"ip,omitempty"`
	At            time.Time `json:"at"`
}

type Sink interface {
	Write(ctx context.Context, e Event) error
}

const (
	// DefaultSinkTimeout bounds a single sink write.
	DefaultSinkTimeout = 2 * time.Second
	DefaultQueueSize   = 1024
)

type pending struct {
	ctx context.Context
	e   Event
}

type Recorder struct {
	sinks  []Sink
	events *prometheus.CounterVec
	now    func() time.Time

	// SinkTimeout applies to every sink write; zero means DefaultSinkTimeout.
	SinkTimeout time.Duration

	mu      sync.RWMutex
	queue   chan pending
	closed  bool
	wg      sync.WaitGroup
	dropped prometheus.Counter
}

// NewRecorder registers auth_security_events_total on reg; a nil reg leaves the counter unregistered.
func NewRecorder(reg prometheus.Registerer, sinks ...Sink) *Recorder {
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_security_events_total",
		Help: "Security events recorded by the auth service.",
	}, []string{"type", "outcome"})

	if reg != nil {
		if err := reg.Register(events); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				panic(err)
			}
			events = are.ExistingCollector.(*prometheus.CounterVec)
		}
	}
	dropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_security_events_dropped_total",
		Help: "Security events not handed to sinks because the queue was full.",
	})
	if reg != nil {
		if err := reg.Register(dropped); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				panic(err)
			}
			dropped = are.ExistingCollector.(prometheus.Counter)
		}
	}
	return &Recorder{sinks: sinks, events: events, dropped: dropped, now: time.Now}
}

// Start moves sink writes onto a background worker fed by a queue of the given size
// (DefaultQueueSize when size <= 0). Until Start is called sinks run inline.
func (r *Recorder) Start(size int) {
	if r == nil || len(r.sinks) == 0 {
		return
	}
	if size <= 0 {
		size = DefaultQueueSize
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.queue != nil || r.closed {
		return
	}
	r.queue = make(chan pending, size)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for p := range r.queue {
			r.deliver(p.ctx, p.e)
		}
	}()
}

// Close stops accepting queued events and waits for the worker to flush what is left.
func (r *Recorder) Close() {
	if r == nil {
		return
	}
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	if r.queue != nil {
		close(r.queue)
	}
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *Recorder) Counter() *prometheus.CounterVec {
	if r == nil {
		return nil
	}
	return r.events
}

// Record stamps, counts, logs and fans the event out to every sink. A nil Recorder is a no-op.
func (r *Recorder) Record(ctx context.Context, e Event) {
	if r == nil {
		return
	}
	if e.At.IsZero() {
		e.At = r.now().UTC()
	}
	if e.ID == "" {
		e.ID = ids.NewAt(e.At)
	}
	if e.Outcome == "" {
		e.Outcome = OutcomeSuccess
	}
	e.Email = logging.RedactEmail(e.Email)

	r.events.WithLabelValues(string(e.Type), e.Outcome).Inc()

	log := logging.FromContext(ctx)
	level := slog.LevelInfo
	if e.Outcome != OutcomeSuccess {
		level = slog.LevelWarn
	}
	log.Log(ctx, level, "security event",
		slog.String("event_id", e.ID),
		slog.String("type", string(e.Type)),
		slog.String("outcome", e.Outcome),
		slog.String("user_id", e.UserID),
		slog.String("role", e.Role),
		slog.String("reason", e.Reason),
	)

	if len(r.sinks) == 0 {
		return
	}
	// Sinks outlive the request: keep its values, drop its cancellation.
	ctx = context.WithoutCancel(ctx)

	r.mu.RLock()
	defer r.mu.RUnlock()
	switch {
	case r.closed:
		log.Warn("audit recorder closed, event not delivered", slog.String("event_id", e.ID))
	case r.queue == nil:
		r.deliver(ctx, e)
	default:
		select {
		case r.queue <- pending{ctx: ctx, e: e}:
		default:
			r.dropped.Inc()
			log.Warn("audit queue full, event dropped", slog.String("event_id", e.ID))
		}
	}
}

func (r *Recorder) deliver(ctx context.Context, e Event) {
	timeout := r.SinkTimeout
	if timeout <= 0 {
		timeout = DefaultSinkTimeout
	}
	for _, s := range r.sinks {
		sctx, cancel := context.WithTimeout(ctx, timeout)
		err := s.Write(sctx, e)
		cancel()
		if err != nil {
			logging.FromContext(ctx).Warn("audit sink failed", slog.String("event_id", e.ID), slog.Any("error", err))
		}
	}
}
