// Package transport implements the two surfaces Code Compass exposes a
// Protocol Dispatcher on (spec.md §4.9): a STDIO transport that
// autodetects and locks its message framing for the process lifetime, and
// an HTTP transport exposing a single /mcp JSON-RPC endpoint plus
// /metrics.
//
// The STDIO framing autodetection is grounded on
// other_examples/53fa3b75_sxueck-codebase's readMessage/writeMessage
// helpers, which inspect the first line of a message for a
// "Content-Length:" header to distinguish length-framed messages from
// newline-delimited JSON. This package locks whichever framing the first
// message used for the rest of the process, since spec.md §4.9 requires a
// single process to commit to one framing instead of re-sniffing every
// message. Each message is handled in its own goroutine, so responses are
// written in completion order rather than request order.
package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jamaly87/code-compass/internal/protocol"
)

type framing int

const (
	framingUnknown framing = iota
	framingNDJSON
	framingLengthPrefixed
)

// StdioServer runs the autodetected, lifetime-locked STDIO loop.
type StdioServer struct {
	dispatcher *protocol.Dispatcher
	log        zerolog.Logger
}

// NewStdioServer builds a StdioServer wired to the given dispatcher.
func NewStdioServer(d *protocol.Dispatcher, log zerolog.Logger) *StdioServer {
	return &StdioServer{dispatcher: d, log: log}
}

// Run reads messages from in and writes responses to out until EOF or ctx
// is canceled. The framing of the first message decides the framing used
// for the rest of the run. Each message is dispatched in its own goroutine
// so a slow ask_code call never blocks a fast search_code response behind
// it; responses are written in completion order, not request order, per
// the Open Question decision recorded in DESIGN.md.
func (s *StdioServer) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)
	writer := bufio.NewWriter(out)
	var writeMu sync.Mutex
	var wg sync.WaitGroup
	mode := framingUnknown

	for {
		if ctx.Err() != nil {
			break
		}

		payload, detected, err := readMessage(reader, mode)
		if err != nil {
			wg.Wait()
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("read stdio message: %w", err)
		}
		if mode == framingUnknown {
			mode = detected
			s.log.Debug().Str("framing", framingName(mode)).Msg("stdio framing locked")
		}

		wg.Add(1)
		go func(payload []byte, mode framing) {
			defer wg.Done()
			s.handleMessage(ctx, payload, mode, writer, &writeMu)
		}(payload, mode)
	}

	wg.Wait()
	return ctx.Err()
}

func (s *StdioServer) handleMessage(ctx context.Context, payload []byte, mode framing, writer *bufio.Writer, writeMu *sync.Mutex) {
	var encoded []byte
	var err error

	if protocol.Sniff(payload) {
		resp, ok := s.dispatcher.HandleJSONRPC(ctx, payload)
		if !ok {
			return
		}
		encoded, err = json.Marshal(resp)
	} else {
		resp := s.dispatcher.HandleLegacy(ctx, payload)
		encoded, err = json.Marshal(resp)
	}
	if err != nil {
		s.log.Error().Err(err).Msg("encode stdio response")
		return
	}

	writeMu.Lock()
	defer writeMu.Unlock()
	writeMessage(writer, encoded, mode)
}

// readMessage reads one message using the given mode, or autodetects the
// mode (when framingUnknown) from the first line of input: a
// "Content-Length:" header means length-prefixed framing, anything else
// means a bare newline-delimited JSON line.
func readMessage(reader *bufio.Reader, mode framing) ([]byte, framing, error) {
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return nil, mode, err
		}
		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == "" {
			continue
		}

		if mode == framingLengthPrefixed || (mode == framingUnknown && strings.HasPrefix(strings.ToLower(trimmed), "content-length:")) {
			return readLengthPrefixed(reader, trimmed)
		}

		return []byte(trimmed), framingNDJSON, nil
	}
}

func readLengthPrefixed(reader *bufio.Reader, headerLine string) ([]byte, framing, error) {
	value := strings.TrimSpace(headerLine[strings.Index(headerLine, ":")+1:])
	length, err := strconv.Atoi(value)
	if err != nil {
		return nil, framingLengthPrefixed, fmt.Errorf("invalid Content-Length: %s", value)
	}
	// consume header lines up to the blank line separating headers from body
	for {
		l, err := reader.ReadString('\n')
		if err != nil {
			return nil, framingLengthPrefixed, err
		}
		if strings.TrimRight(l, "\r\n") == "" {
			break
		}
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(reader, buf); err != nil {
		return nil, framingLengthPrefixed, err
	}
	return buf, framingLengthPrefixed, nil
}

func writeMessage(writer *bufio.Writer, data []byte, mode framing) {
	if mode == framingLengthPrefixed {
		fmt.Fprintf(writer, "Content-Length: %d\r\n\r\n", len(data))
		writer.Write(data)
		writer.Flush()
		return
	}
	writer.Write(data)
	writer.WriteByte('\n')
	writer.Flush()
}

func framingName(mode framing) string {
	if mode == framingLengthPrefixed {
		return "length-prefixed"
	}
	return "ndjson"
}
