package surface

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/printbridge/companion/internal/domain/printing"
	"github.com/printbridge/companion/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

var errSurfaceGone = errors.New("surface closed before it was revealed")

// Config holds orchestrator timing and behaviour
type Config struct {
	Cooldown          time.Duration // minimum gap between two activations of the active surface
	InterRequestDelay time.Duration // pause after each serviced creation request
	RevealTimeout     time.Duration // upper bound on waiting for the UI ready signal
	DataSettleDelay   time.Duration // pause before pushing data into a reused surface
	SendTimeout       time.Duration
	Preload           bool

	Logger  *zap.Logger
	Metrics *telemetry.PrintMetrics
}

// DefaultConfig returns the default orchestrator configuration
func DefaultConfig() Config {
	return Config{
		Cooldown:          2 * time.Second,
		InterRequestDelay: 500 * time.Millisecond,
		RevealTimeout:     5 * time.Second,
		DataSettleDelay:   300 * time.Millisecond,
		SendTimeout:       5 * time.Second,
		Preload:           true,
	}
}

type request struct {
	session string
	result  chan result
}

type result struct {
	session string
	err     error
}

// Orchestrator owns the working surface. It keeps at most one active surface
// and optionally one hidden spare. Creation requests are serviced one at a
// time, in arrival order, by a single consumer goroutine.
type Orchestrator struct {
	factory  Factory
	sessions printing.SessionRepository
	config   Config
	logger   *zap.Logger
	metrics  *telemetry.PrintMetrics

	mu             sync.Mutex
	queue          []*request
	creating       bool
	active         Surface
	spare          Surface
	spareBuilding  bool
	lastActivated  time.Time
	session        string
	latestNotified string
	pushed         map[string]string
	connInfo       ConnectionInfo
	isRunning      bool
	quitting       bool

	runCtx context.Context
	cancel context.CancelFunc
	wake   chan struct{}
	wg     sync.WaitGroup
	now    func() time.Time
}

// NewOrchestrator creates an orchestrator. Start must be called before
// requests are accepted.
func NewOrchestrator(factory Factory, sessions printing.SessionRepository, cfg Config) *Orchestrator {
	defaults := DefaultConfig()
	if cfg.Cooldown < 0 {
		cfg.Cooldown = 0
	}
	if cfg.InterRequestDelay < 0 {
		cfg.InterRequestDelay = 0
	}
	if cfg.RevealTimeout <= 0 {
		cfg.RevealTimeout = defaults.RevealTimeout
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaults.SendTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		factory:  factory,
		sessions: sessions,
		config:   cfg,
		logger:   logger,
		metrics:  cfg.Metrics,
		pushed:   make(map[string]string),
		runCtx:   context.Background(),
		wake:     make(chan struct{}, 1),
		now:      time.Now,
	}
}

// Start launches the request consumer and, when enabled, the first spare
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	if o.isRunning {
		o.mu.Unlock()
		return nil
	}
	if o.quitting {
		o.mu.Unlock()
		return ErrSurfaceUnavailable
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	o.runCtx = runCtx
	o.cancel = cancel
	o.isRunning = true
	o.mu.Unlock()

	o.wg.Add(1)
	go o.runLoop(runCtx)

	o.logger.Info("Surface orchestrator started",
		zap.Duration("cooldown", o.config.Cooldown),
		zap.Duration("inter_request_delay", o.config.InterRequestDelay),
		zap.Bool("preload", o.config.Preload),
	)

	o.schedulePreload()
	return nil
}

// SetConnectionInfo sets what is pushed on the connection-info channel
func (o *Orchestrator) SetConnectionInfo(info ConnectionInfo) {
	o.mu.Lock()
	o.connInfo = info
	o.mu.Unlock()
}

// RequestSurface asks for the working surface to be shown for a session and
// blocks until the request has been serviced. An empty session keeps the
// session currently shown. It returns the session the surface ended up showing.
func (o *Orchestrator) RequestSurface(ctx context.Context, session string) (string, error) {
	o.metrics.RecordSurfaceRequest(ctx, "request")

	req := &request{session: session, result: make(chan result, 1)}
	o.mu.Lock()
	if !o.isRunning || o.quitting {
		o.mu.Unlock()
		return "", ErrSurfaceUnavailable
	}
	o.queue = append(o.queue, req)
	o.mu.Unlock()

	select {
	case o.wake <- struct{}{}:
	default:
	}

	select {
	case res := <-req.result:
		return res.session, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Notify is called after a job was stored. A visible surface gets the data
// straight away; with no visible surface a creation is requested. While a
// creation is in flight the session is remembered and delivered when it
// completes.
func (o *Orchestrator) Notify(session string, job *printing.PrintJob) {
	o.mu.Lock()
	if !o.isRunning || o.quitting {
		o.mu.Unlock()
		return
	}
	if o.creating || len(o.queue) > 0 {
		o.latestNotified = session
		o.mu.Unlock()
		o.logger.Debug("Surface creation in flight; deferring data",
			zap.String("session", session))
		return
	}
	active := o.active
	ctx := o.runCtx
	o.mu.Unlock()

	if alive(active) && active.Visible() {
		o.mu.Lock()
		o.session = session
		o.mu.Unlock()
		if job != nil {
			o.push(ctx, active, job, false)
		} else {
			o.deliver(ctx, active, session, false)
		}
		return
	}

	go func() {
		if _, err := o.RequestSurface(ctx, session); err != nil {
			o.logger.Warn("Surface request after notify failed",
				zap.String("session", session),
				zap.Error(err),
			)
		}
	}()
}

// HideActive hides the active surface if there is one
func (o *Orchestrator) HideActive(ctx context.Context) error {
	o.mu.Lock()
	active := o.active
	o.mu.Unlock()
	if !alive(active) {
		return nil
	}
	o.metrics.RecordSurfaceRequest(ctx, "hide")
	return active.Hide(ctx)
}

// CloseActive handles a close request for the active surface as if the user
// had closed its window
func (o *Orchestrator) CloseActive(ctx context.Context) {
	o.mu.Lock()
	active := o.active
	o.mu.Unlock()
	if alive(active) {
		o.handleClose(ctx, active)
	}
}

// Snapshot reports the current slot state
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()

	snap := Snapshot{
		State:      StateAbsent,
		SpareReady: alive(o.spare),
		Queued:     len(o.queue),
		Session:    o.session,
		Quitting:   o.quitting,
	}
	switch {
	case alive(o.active):
		snap.ActiveID = o.active.ID()
		snap.State = StateActiveHidden
		if o.active.Visible() {
			snap.State = StateActiveVisible
		}
	case o.spareBuilding || snap.SpareReady:
		snap.State = StatePreloading
	}
	return snap
}

// Shutdown marks the orchestrator as quitting, stops the consumer and
// destroys both surfaces. Queued requests fail with ErrSurfaceUnavailable.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	if o.quitting {
		o.mu.Unlock()
		return nil
	}
	o.quitting = true
	o.isRunning = false
	active, spare := o.active, o.spare
	o.active, o.spare = nil, nil
	o.mu.Unlock()

	if o.cancel != nil {
		o.cancel()
	}
	for _, s := range []Surface{active, spare} {
		if s == nil {
			continue
		}
		if err := s.Destroy(); err != nil {
			o.logger.Warn("Failed to destroy surface", zap.String("surface_id", s.ID()), zap.Error(err))
		}
	}
	o.failQueued()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		o.logger.Info("Surface orchestrator stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runLoop drains the creation queue
func (o *Orchestrator) runLoop(ctx context.Context) {
	defer o.wg.Done()

	for {
		select {
		case <-ctx.Done():
			o.failQueued()
			return
		case <-o.wake:
		}

		for {
			req := o.dequeue()
			if req == nil {
				break
			}
			session, err := o.service(ctx, req.session)

			o.mu.Lock()
			o.creating = false
			o.mu.Unlock()
			req.result <- result{session: session, err: err}

			if !sleepCtx(ctx, o.config.InterRequestDelay) {
				o.failQueued()
				return
			}
		}
	}
}

func (o *Orchestrator) dequeue() *request {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.queue) == 0 {
		return nil
	}
	req := o.queue[0]
	o.queue[0] = nil
	o.queue = o.queue[1:]
	o.creating = true
	return req
}

func (o *Orchestrator) failQueued() {
	o.mu.Lock()
	queued := o.queue
	o.queue = nil
	o.mu.Unlock()
	for _, req := range queued {
		req.result <- result{err: ErrSurfaceUnavailable}
	}
}

// service runs one creation request: cooldown gate, reuse, then
// acquire-or-build and reveal.
func (o *Orchestrator) service(ctx context.Context, session string) (string, error) {
	o.mu.Lock()
	if session == "" {
		session = o.session
	}
	active := o.active
	inCooldown := alive(active) && o.now().Sub(o.lastActivated) < o.config.Cooldown
	o.mu.Unlock()

	if inCooldown {
		o.metrics.RecordSurfaceRequest(ctx, "cooldown")
		o.logger.Debug("Surface request within cooldown", zap.String("session", session))
		o.deliver(ctx, active, session, false)
		return o.finish(ctx, active, session, false), nil
	}

	if alive(active) {
		o.metrics.RecordSurfaceRequest(ctx, "reuse")
		err := o.reuse(ctx, active, session)
		if err == nil {
			return o.finish(ctx, active, session, true), nil
		}
		o.logger.Warn("Failed to reuse active surface; replacing it",
			zap.String("surface_id", active.ID()),
			zap.Error(err),
		)
		o.discard(active)
	}

	s, err := o.acquire(ctx)
	if err != nil {
		o.logger.Error("Failed to acquire surface", zap.String("session", session), zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrSurfaceUnavailable, err)
	}

	shown, err := o.reveal(ctx, s, session)
	if err != nil {
		o.logger.Error("Failed to reveal surface",
			zap.String("surface_id", s.ID()),
			zap.Error(err),
		)
		o.discard(s)
		return "", fmt.Errorf("%w: %v", ErrSurfaceUnavailable, err)
	}
	return o.finish(ctx, s, shown, true), nil
}

// finish records what the surface shows and delivers any session notified
// while the request was being serviced
func (o *Orchestrator) finish(ctx context.Context, s Surface, session string, activated bool) string {
	o.mu.Lock()
	if activated {
		o.lastActivated = o.now()
	}
	if session != "" {
		o.session = session
	}
	pending := o.latestNotified
	o.latestNotified = ""
	o.mu.Unlock()

	if pending != "" && o.deliver(ctx, s, pending, false) {
		o.mu.Lock()
		o.session = pending
		o.mu.Unlock()
		return pending
	}
	return session
}

func (o *Orchestrator) reuse(ctx context.Context, s Surface, session string) error {
	if !s.Visible() {
		if err := s.Show(ctx); err != nil {
			return err
		}
	}
	if err := s.Focus(ctx); err != nil {
		o.logger.Debug("Failed to focus surface", zap.String("surface_id", s.ID()), zap.Error(err))
	}
	if !sleepCtx(ctx, o.config.DataSettleDelay) {
		return ctx.Err()
	}
	o.deliver(ctx, s, session, true)
	return nil
}

// acquire promotes the spare when one is ready, otherwise builds a surface.
// Either way a replacement spare is scheduled.
func (o *Orchestrator) acquire(ctx context.Context) (Surface, error) {
	o.mu.Lock()
	spare := o.spare
	o.spare = nil
	if alive(spare) {
		o.active = spare
		o.mu.Unlock()
		o.metrics.RecordSurfaceRequest(ctx, "promote")
		o.logger.Debug("Promoted spare surface", zap.String("surface_id", spare.ID()))
		o.schedulePreload()
		return spare, nil
	}
	o.mu.Unlock()

	o.metrics.RecordSurfaceRequest(ctx, "build")
	s, err := o.factory.Build(ctx)
	if err != nil {
		return nil, err
	}

	o.mu.Lock()
	if o.quitting {
		o.mu.Unlock()
		_ = s.Destroy()
		return nil, ErrSurfaceUnavailable
	}
	o.active = s
	o.mu.Unlock()

	o.watch(s)
	o.schedulePreload()
	return s, nil
}

// reveal waits for the UI to report ready, or for the reveal timeout, then
// shows the surface and pushes connection info and data
func (o *Orchestrator) reveal(ctx context.Context, s Surface, session string) (string, error) {
	timer := time.NewTimer(o.config.RevealTimeout)
	defer timer.Stop()

	select {
	case <-s.Ready():
	case <-timer.C:
		o.logger.Warn("Surface did not report ready in time; revealing anyway",
			zap.String("surface_id", s.ID()),
			zap.Duration("timeout", o.config.RevealTimeout),
		)
	case <-s.Done():
		return "", errSurfaceGone
	case <-ctx.Done():
		return "", ctx.Err()
	}

	if err := s.Show(ctx); err != nil {
		return "", err
	}
	if err := s.Focus(ctx); err != nil {
		o.logger.Debug("Failed to focus surface", zap.String("surface_id", s.ID()), zap.Error(err))
	}

	o.mu.Lock()
	info := o.connInfo
	o.mu.Unlock()
	_ = o.send(ctx, s, ChannelConnectionInfo, info)

	shown := session
	if !o.deliver(ctx, s, session, true) {
		if latest, ok := o.sessions.Latest(ctx); ok {
			shown = latest.Session
			o.push(ctx, s, latest, true)
		} else {
			_ = o.send(ctx, s, ChannelWaitingForData, WaitingPayload{Session: session})
		}
	}
	_ = o.send(ctx, s, ChannelLoadingComplete, LoadingPayload{Session: shown})

	o.logger.Info("Surface revealed",
		zap.String("surface_id", s.ID()),
		zap.String("session", shown),
	)
	return shown, nil
}

// deliver pushes the stored job for session, reporting whether one existed.
// force sends it even when the surface already received the same payload.
func (o *Orchestrator) deliver(ctx context.Context, s Surface, session string, force bool) bool {
	if session == "" {
		return false
	}
	job, ok := o.sessions.Get(ctx, session)
	if !ok {
		return false
	}
	o.push(ctx, s, job, force)
	return true
}

// push sends job on urls-received. Unless forced, a payload equal to the last
// one this surface received is skipped.
func (o *Orchestrator) push(ctx context.Context, s Surface, job *printing.PrintJob, force bool) {
	payload := NewDataPayload(job)
	key := payload.key()

	o.mu.Lock()
	if !force && key != "" && o.pushed[s.ID()] == key {
		o.mu.Unlock()
		o.logger.Debug("Skipping duplicate payload", zap.String("session", job.Session))
		return
	}
	o.mu.Unlock()

	if err := o.send(ctx, s, ChannelURLsReceived, payload); err != nil {
		return
	}

	o.mu.Lock()
	o.pushed[s.ID()] = key
	o.mu.Unlock()
}

func (o *Orchestrator) send(ctx context.Context, s Surface, channel string, payload any) error {
	sendCtx, cancel := context.WithTimeout(ctx, o.config.SendTimeout)
	defer cancel()
	if err := s.Send(sendCtx, channel, payload); err != nil {
		o.logger.Warn("Failed to push to surface",
			zap.String("surface_id", s.ID()),
			zap.String("channel", channel),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// schedulePreload builds a hidden spare in the background when none exists
func (o *Orchestrator) schedulePreload() {
	o.mu.Lock()
	if !o.config.Preload || !o.isRunning || o.quitting || o.spareBuilding || alive(o.spare) {
		o.mu.Unlock()
		return
	}
	o.spareBuilding = true
	ctx := o.runCtx
	o.wg.Add(1)
	o.mu.Unlock()

	go func() {
		defer o.wg.Done()

		s, err := o.factory.Build(ctx)

		o.mu.Lock()
		o.spareBuilding = false
		if err != nil {
			o.mu.Unlock()
			o.logger.Warn("Failed to preload spare surface", zap.Error(err))
			return
		}
		if o.quitting {
			o.mu.Unlock()
			_ = s.Destroy()
			return
		}
		o.spare = s
		o.mu.Unlock()

		o.logger.Debug("Spare surface preloaded", zap.String("surface_id", s.ID()))
		o.watch(s)
	}()
}

// watch follows a surface's close requests and disappearance
func (o *Orchestrator) watch(s Surface) {
	o.mu.Lock()
	if o.quitting {
		o.mu.Unlock()
		return
	}
	ctx := o.runCtx
	o.wg.Add(1)
	o.mu.Unlock()

	go func() {
		defer o.wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.Done():
				o.release(s)
				return
			case <-s.CloseRequests():
				o.handleClose(ctx, s)
			}
		}
	}()
}

// handleClose hides the surface, or destroys it when the app is quitting
func (o *Orchestrator) handleClose(ctx context.Context, s Surface) {
	o.mu.Lock()
	quitting := o.quitting
	o.mu.Unlock()

	if quitting {
		_ = s.Destroy()
		return
	}
	o.metrics.RecordSurfaceRequest(ctx, "close")
	if err := s.Hide(ctx); err != nil {
		o.logger.Warn("Failed to hide surface on close", zap.String("surface_id", s.ID()), zap.Error(err))
	}
}

// release clears whichever slot held a surface that is gone
func (o *Orchestrator) release(s Surface) {
	o.mu.Lock()
	respawn := false
	if o.active == s {
		o.active = nil
		o.logger.Info("Active surface closed", zap.String("surface_id", s.ID()))
	}
	if o.spare == s {
		o.spare = nil
		respawn = true
	}
	delete(o.pushed, s.ID())
	o.mu.Unlock()

	if respawn {
		o.schedulePreload()
	}
}

// discard drops a surface that failed and destroys it
func (o *Orchestrator) discard(s Surface) {
	o.mu.Lock()
	if o.active == s {
		o.active = nil
	}
	delete(o.pushed, s.ID())
	o.mu.Unlock()
	if err := s.Destroy(); err != nil {
		o.logger.Debug("Failed to destroy surface", zap.String("surface_id", s.ID()), zap.Error(err))
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
