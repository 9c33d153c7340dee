package ipc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Commands accepted by the daemon.
const (
	CommandStatus   = "status"
	CommandToggle   = "toggle"
	CommandStart    = "start"
	CommandStop     = "stop"
	CommandDevice   = "device"
	CommandLanguage = "language"
	CommandQuit     = "quit"
)

// Request is one newline-delimited JSON command. Arg carries the device index
// or language code for the selection commands.
type Request struct {
	Command string `json:"command"`
	Arg     string `json:"arg,omitempty"`
}

type Response struct {
	OK      bool   `json:"ok"`
	State   string `json:"state,omitempty"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// maxMessageBytes caps one newline-delimited message.
const maxMessageBytes = 16 << 10

func readLine(r io.Reader) ([]byte, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 512), maxMessageBytes)
	if scanner.Scan() {
		return scanner.Bytes(), nil
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.ErrUnexpectedEOF
}

func writeMessage(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}

func decodeRequest(line []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return Request{}, fmt.Errorf("decode request: %w", err)
	}
	req.Command = strings.TrimSpace(req.Command)
	if req.Command == "" {
		return Request{}, errors.New("decode request: missing command")
	}
	return req, nil
}

func decodeResponse(line []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	if !resp.OK && resp.Error == "" {
		resp.Error = "daemon reported failure without detail"
	}
	return resp, nil
}
