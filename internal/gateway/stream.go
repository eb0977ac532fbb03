package gateway

import (
	"bufio"
	"errors"
	"io"
	"strings"
)

// Stream is a live server-sent-event response from the gateway chat
// endpoint.
type Stream struct {
	body io.ReadCloser
}

func NewStream(body io.ReadCloser) *Stream {
	return &Stream{body: body}
}

// Events reads the stream to completion, invoking onEvent for every
// complete SSE event. An error returned by onEvent stops the read and
// is propagated. A clean EOF flushes any trailing event and returns
// nil.
func (s *Stream) Events(onEvent func(event, data string) error) error {
	reader := bufio.NewReader(s.body)
	var (
		eventName string
		dataLines []string
	)

	flush := func() error {
		if len(dataLines) == 0 {
			eventName = ""
			return nil
		}
		data := strings.Join(dataLines, "\n")
		name := eventName
		dataLines = nil
		eventName = ""
		if onEvent == nil {
			return nil
		}
		return onEvent(name, data)
	}

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				_ = flush()
				return nil
			}
			return err
		}
		line = strings.TrimRight(line, "\r\n")

		// Blank line terminates an event.
		if line == "" {
			if err := flush(); err != nil {
				return err
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		if strings.HasPrefix(line, "event:") {
			eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
			continue
		}
		if strings.HasPrefix(line, "data:") {
			dataLines = append(dataLines, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
}

func (s *Stream) Close() error {
	if s == nil || s.body == nil {
		return nil
	}
	return s.body.Close()
}
