// Package indicator turns published session status into notifications and audio cues.
package indicator

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gen2brain/beeep"
	"github.com/rbright/whispa/internal/config"
	"github.com/rbright/whispa/internal/hypr"
	"github.com/rbright/whispa/internal/session"
)

const (
	BackendHypr    = "hypr"
	BackendDesktop = "desktop"
	BackendNotify  = "notify"
)

const (
	persistentTimeoutMS   = 300000
	defaultErrorTimeoutMS = 1200

	colorRecording  = "rgb(89b4fa)"
	colorProcessing = "rgb(cba6f7)"
	colorError      = "rgb(f38ba8)"
)

// Notifier is a session.StatusSink that mirrors status into the configured
// notification backend and plays a cue on each phase edge.
type Notifier struct {
	cfg    config.IndicatorConfig
	logger *slog.Logger

	sendNotify func(title, message string) error
	playCue    func(cueKind) error

	mu                    sync.Mutex
	desktopNotificationID uint32

	soundMu sync.Mutex
	cues    sync.WaitGroup
}

var _ session.StatusSink = (*Notifier)(nil)

// New creates a notifier from config.
func New(cfg config.IndicatorConfig, logger *slog.Logger) *Notifier {
	n := &Notifier{cfg: cfg, logger: logger}
	n.sendNotify = func(title, message string) error {
		return beeep.Notify(title, message, "")
	}
	n.playCue = func(kind cueKind) error {
		return emitCue(kind, n.cfg)
	}
	return n
}

// Publish implements session.StatusSink.
func (n *Notifier) Publish(ctx context.Context, status session.Status) {
	switch status.Kind {
	case session.KindRecording:
		n.cue(cueStart)
		n.show(ctx, hypr.IconInfo, persistentTimeoutMS, colorRecording, status.Text, true)
	case session.KindProcessing:
		n.cue(cueStop)
		n.show(ctx, hypr.IconInfo, persistentTimeoutMS, colorProcessing, status.Text, false)
	case session.KindTranscribing, session.KindTyping:
		n.show(ctx, hypr.IconInfo, persistentTimeoutMS, colorProcessing, status.Text, false)
	case session.KindReady:
		n.cue(cueComplete)
		n.hide(ctx)
	case session.KindError:
		n.cue(cueCancel)
		timeout := n.cfg.ErrorTimeoutMS
		if timeout <= 0 {
			timeout = defaultErrorTimeoutMS
		}
		n.show(ctx, hypr.IconError, timeout, colorError, status.Text, true)
	}
}

// show dispatches one visual update. The notify backend cannot replace a
// popup in place, so it only receives edges marked important.
func (n *Notifier) show(ctx context.Context, icon int, timeoutMS int, color string, text string, important bool) {
	if !n.cfg.Enable {
		return
	}

	switch n.backend() {
	case BackendDesktop:
		n.run(ctx, func(ctx context.Context) error {
			return n.notifyDesktop(ctx, timeoutMS, text)
		})
	case BackendNotify:
		if !important {
			return
		}
		if err := n.sendNotify(n.appName(), text); err != nil {
			n.log("indicator notify failed", err)
		}
	default:
		n.run(ctx, func(ctx context.Context) error {
			return hypr.Notify(ctx, icon, timeoutMS, color, text)
		})
	}
}

func (n *Notifier) hide(ctx context.Context) {
	if !n.cfg.Enable {
		return
	}

	switch n.backend() {
	case BackendDesktop:
		n.run(ctx, n.dismissDesktop)
	case BackendNotify:
	default:
		n.run(ctx, hypr.DismissNotify)
	}
}

func (n *Notifier) backend() string {
	backend := strings.ToLower(strings.TrimSpace(n.cfg.Backend))
	if backend == "" {
		return BackendHypr
	}
	return backend
}

func (n *Notifier) appName() string {
	if name := strings.TrimSpace(n.cfg.DesktopAppName); name != "" {
		return name
	}
	return "whispa"
}

// notifyDesktop sends a replaceable desktop notification and stores its ID.
func (n *Notifier) notifyDesktop(ctx context.Context, timeoutMS int, text string) error {
	n.mu.Lock()
	replaceID := n.desktopNotificationID
	n.mu.Unlock()

	id, err := desktopNotify(ctx, n.appName(), replaceID, text, timeoutMS)
	if err != nil {
		return err
	}

	n.mu.Lock()
	n.desktopNotificationID = id
	n.mu.Unlock()
	return nil
}

func (n *Notifier) dismissDesktop(ctx context.Context) error {
	n.mu.Lock()
	id := n.desktopNotificationID
	n.desktopNotificationID = 0
	n.mu.Unlock()

	if id == 0 {
		return nil
	}
	return desktopDismiss(ctx, id)
}

// run bounds one dispatch so a hung compositor never stalls the session.
func (n *Notifier) run(ctx context.Context, fn func(context.Context) error) {
	runCtx, cancel := context.WithTimeout(ctx, 400*time.Millisecond)
	defer cancel()
	if err := fn(runCtx); err != nil {
		n.log("indicator dispatch failed", err)
	}
}

// cue plays asynchronously; playback is serialized so cues never overlap.
func (n *Notifier) cue(kind cueKind) {
	if !n.cfg.SoundEnable {
		return
	}
	n.cues.Add(1)
	go func() {
		defer n.cues.Done()
		n.soundMu.Lock()
		defer n.soundMu.Unlock()
		if err := n.playCue(kind); err != nil {
			n.log("indicator audio cue failed", err)
		}
	}()
}

// Wait blocks until queued cues have finished playing.
func (n *Notifier) Wait() {
	n.cues.Wait()
}

func (n *Notifier) log(message string, err error) {
	if n.logger == nil || err == nil {
		return
	}
	n.logger.Debug(message, "error", err.Error())
}
