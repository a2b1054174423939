package mcp

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// MaxMessageSize is the maximum size for a single message (1MB).
const MaxMessageSize = 1024 * 1024

// errMalformed marks a line that was read but could not be parsed.
type errMalformed struct{ err error }

func (e *errMalformed) Error() string { return "error parsing JSON-RPC message: " + e.err.Error() }
func (e *errMalformed) Unwrap() error { return e.err }

// readMessage reads one newline-delimited JSON-RPC message
func (s *Server) readMessage() (*Message, error) {
	if s.scanner == nil {
		s.scanner = bufio.NewScanner(s.stdin)
		s.scanner.Buffer(make([]byte, 64*1024), MaxMessageSize)
	}

	for {
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				return nil, fmt.Errorf("error reading from stdin: %w", err)
			}
			return nil, io.EOF
		}
		line := s.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		s.logger.Debug("Received message", "raw", string(line))

		var msg Message
		if err := json.Unmarshal(line, &msg); err != nil {
			return nil, &errMalformed{err: err}
		}
		return &msg, nil
	}
}

// writeMessage writes one JSON-RPC message followed by a newline.
// Responses and notifications may come from different goroutines.
func (s *Server) writeMessage(msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("error marshaling JSON-RPC message: %w", err)
	}

	s.logger.Debug("Sending message", "raw", string(data))

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := fmt.Fprintf(s.stdout, "%s\n", data); err != nil {
		return fmt.Errorf("error writing to stdout: %w", err)
	}
	return nil
}

// writeError writes an error response
func (s *Server) writeError(id interface{}, code int, message string) error {
	return s.writeMessage(NewErrorMessage(id, code, message, nil))
}
