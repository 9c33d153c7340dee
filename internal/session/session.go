// Package session owns the dictation state machine: one long-lived controller
// turns toggle signals into record, transcribe and type sessions.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rbright/whispa/internal/audio"
	"github.com/rbright/whispa/internal/fsm"
	"github.com/rbright/whispa/internal/recording"
	"github.com/rbright/whispa/internal/settings"
	"github.com/rbright/whispa/internal/stt"
)

// Signal is a logical trigger delivered to the controller loop.
type Signal int

const (
	SignalToggle Signal = iota + 1
	SignalStart
	SignalStop
	SignalPress
	SignalRelease
	SignalQuit
)

func (s Signal) String() string {
	switch s {
	case SignalToggle:
		return "toggle"
	case SignalStart:
		return "start"
	case SignalStop:
		return "stop"
	case SignalPress:
		return "press"
	case SignalRelease:
		return "release"
	case SignalQuit:
		return "quit"
	default:
		return fmt.Sprintf("signal(%d)", int(s))
	}
}

// Outcome labels for finished sessions.
const (
	OutcomeTyped               = "typed"
	OutcomeSilence             = "silence"
	OutcomeEmpty               = "empty"
	OutcomeTranscriptionFailed = "transcription_error"
	OutcomeDeviceFailed        = "device_error"
	OutcomeTypingFailed        = "typing_error"
	OutcomeCancelled           = "cancelled"
	OutcomeFailed              = "error"
)

// Result summarizes one session from the start edge to its return to idle.
type Result struct {
	State                fsm.State
	Transcript           string
	Typed                int
	Err                  error
	AudioDevice          string
	SamplesCaptured      int
	AudioDuration        time.Duration
	TranscriptionLatency time.Duration
	StartedAt            time.Time
	FinishedAt           time.Time
}

// Outcome classifies the result for logs and metrics.
func (r Result) Outcome() string {
	var deviceErr *DeviceError
	var typingErr *TypingError
	switch {
	case r.Err == nil:
		return OutcomeTyped
	case errors.Is(r.Err, context.Canceled):
		return OutcomeCancelled
	case errors.Is(r.Err, ErrSilence):
		return OutcomeSilence
	case errors.Is(r.Err, ErrEmptyTranscript):
		return OutcomeEmpty
	case stt.IsTranscriptionError(r.Err):
		return OutcomeTranscriptionFailed
	case errors.As(r.Err, &deviceErr):
		return OutcomeDeviceFailed
	case errors.As(r.Err, &typingErr):
		return OutcomeTypingFailed
	default:
		return OutcomeFailed
	}
}

// Options wires the controller's collaborators. Backend, Processor and
// Injector are required.
type Options struct {
	Backend   audio.Backend
	Params    audio.Params
	Processor Processor
	Injector  Injector
	Settings  settings.Settings
	// Persist stores the selection; called on every successful start and on
	// every selection change.
	Persist  func(settings.Settings) error
	Status   StatusSink
	OnResult func(Result)
	Logger   *slog.Logger
}

type request struct {
	signal Signal
	reply  chan error
}

// Controller serializes all signals through Run. Transcription and typing run
// on one worker goroutine per session so the loop stays responsive.
type Controller struct {
	backend   audio.Backend
	params    audio.Params
	processor Processor
	injector  Injector
	persist   func(settings.Settings) error
	status    StatusSink
	onResult  func(Result)
	logger    *slog.Logger

	// transitionMu pairs every state change with the status it publishes, so
	// sinks observe statuses in transition order.
	transitionMu sync.Mutex

	mu        sync.RWMutex
	state     fsm.State
	current   Status
	selection settings.Settings

	requests chan request

	// Owned by the Run goroutine.
	active *recording.Session
	result Result

	worker sync.WaitGroup
}

// NewController validates opts and returns an idle controller.
func NewController(opts Options) (*Controller, error) {
	if opts.Backend == nil {
		return nil, errors.New("audio backend is required")
	}
	if opts.Processor == nil {
		return nil, errors.New("processor is required")
	}
	if opts.Injector == nil {
		return nil, errors.New("injector is required")
	}
	if opts.Persist == nil {
		opts.Persist = func(settings.Settings) error { return nil }
	}
	if opts.Status == nil {
		opts.Status = Sinks(nil)
	}
	if opts.OnResult == nil {
		opts.OnResult = func(Result) {}
	}

	return &Controller{
		backend:   opts.Backend,
		params:    opts.Params,
		processor: opts.Processor,
		injector:  opts.Injector,
		persist:   opts.Persist,
		status:    opts.Status,
		onResult:  opts.OnResult,
		logger:    opts.Logger,
		state:     fsm.StateIdle,
		current:   ReadyStatus(),
		selection: opts.Settings,
		requests:  make(chan request, 16),
	}, nil
}

// State returns the current FSM state snapshot.
func (c *Controller) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Status returns the last published status.
func (c *Controller) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Settings returns the current device and language selection.
func (c *Controller) Settings() settings.Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selection
}

// SelectDevice changes the device used by the next recording.
func (c *Controller) SelectDevice(index int) (settings.Settings, error) {
	c.mu.Lock()
	next, err := c.selection.WithDevice(index)
	if err != nil {
		c.mu.Unlock()
		return c.selection, err
	}
	c.selection = next
	c.mu.Unlock()

	c.save(next)
	return next, nil
}

// SelectLanguage changes the language hint used by the next transcription.
func (c *Controller) SelectLanguage(code string) (settings.Settings, error) {
	c.mu.Lock()
	next, err := c.selection.WithLanguage(code)
	if err != nil {
		c.mu.Unlock()
		return c.selection, err
	}
	c.selection = next
	c.mu.Unlock()

	c.save(next)
	return next, nil
}

// Signal enqueues sig without waiting. It reports false when the queue is full.
// Hotkey callbacks use this path.
func (c *Controller) Signal(sig Signal) bool {
	select {
	case c.requests <- request{signal: sig}:
		return true
	default:
		return false
	}
}

// Submit enqueues sig and waits for the loop to apply it.
func (c *Controller) Submit(ctx context.Context, sig Signal) error {
	req := request{signal: sig, reply: make(chan error, 1)}
	select {
	case c.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run applies signals until ctx is cancelled or a quit signal arrives. An
// active recording is discarded on exit; an in-flight worker runs to
// completion before Run returns.
func (c *Controller) Run(ctx context.Context) error {
	defer c.worker.Wait()

	for {
		var failed <-chan error
		if c.active != nil {
			failed = c.active.Failed()
		}

		select {
		case <-ctx.Done():
			c.discard(ctx.Err())
			return nil
		case err := <-failed:
			c.failRecording(ctx, err)
		case req := <-c.requests:
			err := c.apply(ctx, req.signal)
			if req.reply != nil {
				req.reply <- err
			} else if err != nil && c.logger != nil {
				c.logger.Debug("signal rejected", "signal", req.signal.String(), "state", string(c.State()), "error", err.Error())
			}
			if req.signal == SignalQuit {
				return nil
			}
		}
	}
}

func (c *Controller) apply(ctx context.Context, sig Signal) error {
	state := c.State()
	if c.logger != nil {
		c.logger.Debug("session signal", "signal", sig.String(), "state", string(state))
	}

	switch sig {
	case SignalToggle:
		switch {
		case state == fsm.StateIdle:
			return c.start(ctx)
		case state == fsm.StateRecording:
			return c.stop(ctx)
		default:
			return ErrBusy
		}
	case SignalStart, SignalPress:
		switch {
		case state == fsm.StateIdle:
			return c.start(ctx)
		case state == fsm.StateRecording:
			return errors.New("already recording")
		default:
			return ErrBusy
		}
	case SignalStop, SignalRelease:
		if state != fsm.StateRecording {
			return fmt.Errorf("not recording (state %s)", state)
		}
		return c.stop(ctx)
	case SignalQuit:
		c.discard(context.Canceled)
		return nil
	default:
		return fmt.Errorf("unknown signal %d", int(sig))
	}
}

func (c *Controller) start(ctx context.Context) error {
	c.transitionMu.Lock()
	defer c.transitionMu.Unlock()

	if err := c.transition(fsm.EventStart); err != nil {
		return err
	}

	selection := c.Settings()
	params := c.params
	params.Device = selection.DeviceID

	c.result = Result{StartedAt: time.Now()}

	rec, err := recording.Start(ctx, c.backend, params, c.logger)
	if err != nil {
		deviceErr := &DeviceError{Device: deviceLabel(selection.DeviceID), Err: err}
		_ = c.transition(fsm.EventFail)
		c.publish(ctx, ErrorStatus(deviceErr))
		c.finish(deviceErr)
		return deviceErr
	}

	c.active = rec
	c.result.AudioDevice = audio.DescribeDevice(rec.Device())
	c.save(selection)
	c.publish(ctx, statusFor(fsm.StateRecording, KindRecording))
	return nil
}

func (c *Controller) stop(ctx context.Context) error {
	c.transitionMu.Lock()
	defer c.transitionMu.Unlock()

	rec := c.active
	c.active = nil

	buf, stopErr := rec.Stop()
	if stopErr != nil && c.logger != nil {
		c.logger.Warn("capture stream reported an error on stop", "error", stopErr.Error())
	}
	c.result.SamplesCaptured = buf.Len()
	c.result.AudioDuration = buf.Duration(c.params.SampleRate)

	if err := c.transition(fsm.EventStop); err != nil {
		_, _ = buf.Consume()
		return err
	}
	c.publish(ctx, statusFor(fsm.StateTranscribing, KindProcessing))

	language := c.Settings().LanguageCode
	result := c.result
	workCtx := context.WithoutCancel(ctx)

	c.worker.Add(1)
	go func() {
		defer c.worker.Done()
		c.process(workCtx, buf, language, result)
	}()
	return nil
}

// process runs on the worker goroutine from Transcribing back to Idle.
func (c *Controller) process(ctx context.Context, buf *audio.Buffer, language string, result Result) {
	end := func(event fsm.Event, err error) {
		c.transitionMu.Lock()
		if transitionErr := c.transition(event); transitionErr != nil && c.logger != nil {
			c.logger.Error("session transition failed", "event", string(event), "error", transitionErr.Error())
		}
		if err != nil {
			c.publish(ctx, ErrorStatus(err))
		} else {
			c.publish(ctx, statusFor(fsm.StateIdle, KindReady))
		}
		result.State = c.State()
		c.transitionMu.Unlock()

		result.Err = err
		result.FinishedAt = time.Now()
		c.onResult(result)
	}

	prepared, err := c.processor.Prepare(buf)
	if err != nil {
		if errors.Is(err, ErrSilence) {
			end(fsm.EventSilence, err)
			return
		}
		end(fsm.EventFail, err)
		return
	}

	c.transitionMu.Lock()
	c.publish(ctx, statusFor(fsm.StateTranscribing, KindTranscribing))
	c.transitionMu.Unlock()

	transcription, err := c.processor.Transcribe(ctx, prepared, language)
	result.TranscriptionLatency = transcription.Latency
	if err != nil {
		end(fsm.EventFail, err)
		return
	}
	if transcription.Text == "" {
		end(fsm.EventEmpty, ErrEmptyTranscript)
		return
	}
	result.Transcript = transcription.Text

	c.transitionMu.Lock()
	err = c.transition(fsm.EventTranscribed)
	if err == nil {
		c.publish(ctx, statusFor(fsm.StateTyping, KindTyping))
	}
	c.transitionMu.Unlock()
	if err != nil {
		end(fsm.EventFail, err)
		return
	}

	typed, err := c.injector.Type(ctx, transcription.Text)
	result.Typed = typed
	if err != nil {
		end(fsm.EventFail, &TypingError{Typed: typed, Err: err})
		return
	}
	end(fsm.EventTyped, nil)
}

// failRecording handles a capture stream that died while recording.
func (c *Controller) failRecording(ctx context.Context, err error) {
	rec := c.active
	c.active = nil
	if rec == nil {
		return
	}
	rec.Discard()

	deviceErr := &DeviceError{Device: audio.DescribeDevice(rec.Device()), Err: err}
	if c.logger != nil {
		c.logger.Error("capture stream failed", "error", deviceErr.Error())
	}
	c.transitionMu.Lock()
	_ = c.transition(fsm.EventFail)
	c.publish(ctx, ErrorStatus(deviceErr))
	c.transitionMu.Unlock()
	c.finish(deviceErr)
}

// discard drops an active recording without transcribing it.
func (c *Controller) discard(cause error) {
	rec := c.active
	c.active = nil
	if rec == nil {
		return
	}
	rec.Discard()
	c.transitionMu.Lock()
	_ = c.transition(fsm.EventFail)
	c.publish(context.Background(), ReadyStatus())
	c.transitionMu.Unlock()
	c.finish(cause)
}

// finish reports a session that ended on the Run goroutine.
func (c *Controller) finish(err error) {
	result := c.result
	result.State = c.State()
	result.Err = err
	result.FinishedAt = time.Now()
	c.onResult(result)
}

// transition applies one FSM event to the controller state.
func (c *Controller) transition(event fsm.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := fsm.Transition(c.state, event)
	if err != nil {
		return err
	}
	c.state = next
	return nil
}

func (c *Controller) publish(ctx context.Context, status Status) {
	c.mu.Lock()
	c.current = status
	c.mu.Unlock()

	if c.logger != nil {
		c.logger.Info("status", "state", string(status.State), "kind", string(status.Kind), "text", status.Text)
	}
	c.status.Publish(ctx, status)
}

func (c *Controller) save(selection settings.Settings) {
	if err := c.persist(selection); err != nil && c.logger != nil {
		c.logger.Warn("unable to persist settings", "error", err.Error())
	}
}

func deviceLabel(index int) string {
	if index < 0 {
		return "default"
	}
	return fmt.Sprintf("#%d", index)
}
