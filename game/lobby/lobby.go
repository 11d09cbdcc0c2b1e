package lobby

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// ErrLobbyClosed is returned by calls made after Run has returned.
var ErrLobbyClosed = errors.New("lobby closed")

// Lobby serializes every registry operation through the goroutine running
// Run. Sends to handles happen outside that goroutine, except for the start
// events, which are enqueued in the same step that pairs the session so they
// always precede any later event for it.
type Lobby struct {
	registry *Registry
	requests chan func(*Registry)
	done     chan struct{}

	encoder Encoder
	logger  *zap.Logger

	// owned by the Run goroutine
	gauges gaugeShare
}

// Option configures a Lobby
type Option func(*Lobby)

// WithEncoder sets the encoder used for lifecycle events.
func WithEncoder(e Encoder) Option {
	return func(l *Lobby) { l.encoder = e }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Lobby) { l.logger = logger }
}

// New creates a lobby. Run must be started before any other call completes.
func New(opts ...Option) *Lobby {
	l := &Lobby{
		registry: NewRegistry(),
		requests: make(chan func(*Registry)),
		done:     make(chan struct{}),
		encoder:  JSONEncoder{},
		logger:   zap.NewNop(),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Run executes submitted registry operations one at a time until ctx is
// done. It must be called exactly once.
func (l *Lobby) Run(ctx context.Context) error {
	defer close(l.done)
	defer l.gauges.release()

	l.gauges.observe(l.registry)
	for {
		select {
		case fn := <-l.requests:
			fn(l.registry)
		case <-ctx.Done():
			l.logger.Debug("lobby stopped", zap.Int("connections", l.registry.ConnCount()))
			return nil
		}
	}
}

// exec runs fn on the executor goroutine and waits for it to finish.
func (l *Lobby) exec(ctx context.Context, fn func(*Registry)) error {
	finished := make(chan struct{})
	req := func(r *Registry) {
		defer close(finished)
		fn(r)
		l.gauges.observe(r)
	}

	select {
	case l.requests <- req:
	case <-l.done:
		return ErrLobbyClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	<-finished
	return nil
}

// Admit places a new connection: it joins the pending session as PlayerTwo
// or opens a new one as PlayerOne. When the session becomes active both
// occupants are sent a start event.
func (l *Lobby) Admit(ctx context.Context, id ConnID, h Handle) (Admission, error) {
	var (
		adm Admission
		err error
	)

	execErr := l.exec(ctx, func(r *Registry) {
		if !r.HasPending() {
			adm.Role = PlayerOne
			adm.SessionID, err = r.CreatePending(id, h)
			return
		}

		adm.Role = PlayerTwo
		adm.SessionID, err = r.JoinPending(id, h)
		if err != nil {
			return
		}
		adm.Paired = true

		opponentID, opponent, _ := r.RelayTarget(id)
		l.notify(opponentID, opponent, Event{Type: EventStart, SessionID: adm.SessionID, Role: PlayerOne})
		l.notify(id, h, Event{Type: EventStart, SessionID: adm.SessionID, Role: PlayerTwo})
	})
	if execErr != nil {
		return Admission{}, execErr
	}
	if err != nil {
		metricAdmitRejected.Inc()
		l.logger.Error("admit rejected", zap.String("conn", string(id)), zap.Error(err))
		return Admission{}, err
	}

	if adm.Paired {
		metricSessionsPaired.Inc()
		l.logger.Info("session started", zap.String("session", adm.SessionID), zap.String("conn", string(id)))
	} else {
		metricSessionsCreated.Inc()
		l.logger.Debug("session waiting for opponent", zap.String("session", adm.SessionID), zap.String("conn", string(id)))
	}

	return adm, nil
}

// Relay forwards payload unchanged to the opponent of id. Payloads from a
// connection without an opponent are dropped.
func (l *Lobby) Relay(ctx context.Context, id ConnID, payload []byte) error {
	var (
		targetID ConnID
		target   Handle
		err      error
	)

	if execErr := l.exec(ctx, func(r *Registry) {
		targetID, target, err = r.RelayTarget(id)
	}); execErr != nil {
		return execErr
	}

	switch {
	case errors.Is(err, ErrNoOpponentYet):
		metricMessagesDropped.WithLabelValues("no_opponent").Inc()
		l.logger.Debug("relay dropped, no opponent yet", zap.String("conn", string(id)))
		return nil
	case err != nil:
		metricMessagesDropped.WithLabelValues("unknown_conn").Inc()
		l.logger.Debug("relay dropped, unknown connection", zap.String("conn", string(id)))
		return nil
	}

	if err := target.Send(payload); err != nil {
		metricMessagesDropped.WithLabelValues("send_failed").Inc()
		l.logger.Debug("relay send failed", zap.String("conn", string(id)), zap.String("target", string(targetID)), zap.Error(err))
		return nil
	}

	metricMessagesRelayed.Inc()
	return nil
}

// Close tears down the session id belongs to and tells the remaining
// occupant, if any, that its opponent left. Closing an unknown or already
// closed connection does nothing.
func (l *Lobby) Close(ctx context.Context, id ConnID) error {
	var (
		sessionID  string
		state      SessionState
		survivorID ConnID
		survivor   Handle
		found      bool
	)

	if err := l.exec(ctx, func(r *Registry) {
		session, err := r.Lookup(id)
		if err != nil {
			return
		}
		sessionID = session.ID
		state = info(session).State
		survivorID, survivor, found = r.Destroy(id)
	}); err != nil {
		return err
	}

	if sessionID == "" {
		return nil
	}

	metricSessionsDestroyed.WithLabelValues(string(state)).Inc()
	l.logger.Info("session closed", zap.String("session", sessionID), zap.String("conn", string(id)), zap.String("state", string(state)))

	if found {
		l.notify(survivorID, survivor, Event{Type: EventOpponentLeft, SessionID: sessionID})
	}
	return nil
}

// Stats returns a summary of the registry.
func (l *Lobby) Stats(ctx context.Context) (Stats, error) {
	var stats Stats
	err := l.exec(ctx, func(r *Registry) {
		stats = r.Stats()
	})
	return stats, err
}

// Sessions returns a snapshot of every forming and active session.
func (l *Lobby) Sessions(ctx context.Context) ([]SessionInfo, error) {
	var sessions []SessionInfo
	err := l.exec(ctx, func(r *Registry) {
		sessions = r.Snapshot()
	})
	return sessions, err
}

// notify makes a single best-effort attempt to deliver e.
func (l *Lobby) notify(id ConnID, h Handle, e Event) {
	payload, err := l.encoder.Encode(e)
	if err != nil {
		metricNotifyFailures.WithLabelValues(string(e.Type)).Inc()
		l.logger.Error("encode event", zap.String("event", string(e.Type)), zap.Error(err))
		return
	}

	if err := h.Send(payload); err != nil {
		metricNotifyFailures.WithLabelValues(string(e.Type)).Inc()
		l.logger.Warn("notify failed", zap.String("event", string(e.Type)), zap.String("conn", string(id)), zap.Error(err))
	}
}
