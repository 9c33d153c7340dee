package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rbright/whispa/internal/ipc"
)

const submitTimeout = 3 * time.Second

// Handle serves IPC commands against the running controller.
func (c *Controller) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandStatus:
		return c.response(true, describeSelection(c), nil)
	case ipc.CommandToggle:
		return c.submit(ctx, SignalToggle)
	case ipc.CommandStart:
		return c.submit(ctx, SignalStart)
	case ipc.CommandStop:
		return c.submit(ctx, SignalStop)
	case ipc.CommandDevice:
		index, err := strconv.Atoi(strings.TrimSpace(req.Arg))
		if err != nil {
			return c.response(false, "", fmt.Errorf("device index %q is not a number", req.Arg))
		}
		if _, err := c.SelectDevice(index); err != nil {
			return c.response(false, "", err)
		}
		return c.response(true, describeSelection(c), nil)
	case ipc.CommandLanguage:
		if _, err := c.SelectLanguage(req.Arg); err != nil {
			return c.response(false, "", err)
		}
		return c.response(true, describeSelection(c), nil)
	case ipc.CommandQuit:
		if !c.Signal(SignalQuit) {
			return c.response(false, "", errors.New("signal queue is full"))
		}
		return c.response(true, "quit requested", nil)
	default:
		return c.response(false, "", fmt.Errorf("unknown command: %s", req.Command))
	}
}

func (c *Controller) submit(ctx context.Context, sig Signal) ipc.Response {
	submitCtx, cancel := context.WithTimeout(ctx, submitTimeout)
	defer cancel()

	if err := c.Submit(submitCtx, sig); err != nil {
		return c.response(false, "", err)
	}
	return c.response(true, sig.String()+" applied", nil)
}

func (c *Controller) response(ok bool, message string, err error) ipc.Response {
	resp := ipc.Response{
		OK:      ok,
		State:   string(c.State()),
		Status:  c.Status().Text,
		Message: message,
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}

func describeSelection(c *Controller) string {
	s := c.Settings()
	device := "default"
	if s.DeviceID >= 0 {
		device = strconv.Itoa(s.DeviceID)
	}
	language := s.LanguageName
	if s.LanguageCode != "" {
		language = fmt.Sprintf("%s (%s)", s.LanguageName, s.LanguageCode)
	}
	return fmt.Sprintf("device %s, language %s", device, language)
}
