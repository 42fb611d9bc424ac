// Package bridge adapts external event transports to the signal graph. A
// bridge owns exactly one input obtained from signal.Generate, forwards each
// external event with Send, and closes the input (or lets scope-exit close
// it) when the external source is torn down; the engine's queueing makes the
// handoff safe from arbitrary transport goroutines.
package bridge

import (
	"encoding/json"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/creastat/signal"
	"github.com/creastat/signal/core"
	"github.com/creastat/signal/sched"
)

// FrameType tags the JSON envelope a sink writes per result
type FrameType string

const (
	FrameValue  FrameType = "value"
	FrameClosed FrameType = "closed"
	FrameError  FrameType = "error"
)

// Frame is the sink's wire envelope
type Frame struct {
	Type    FrameType `json:"type"`
	Payload any       `json:"payload,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// Message is one inbound WebSocket frame carried on a source signal
type Message struct {
	Type int // websocket.TextMessage or websocket.BinaryMessage
	Data []byte
}

// SourceConfig holds WebSocket source configuration
type SourceConfig struct {
	Conn   *websocket.Conn
	Logger zerolog.Logger
}

// NewSource returns a signal of inbound frames from the connection. The
// reader starts when the signal activates and owns the connection from then
// on: a read error or remote close ends the stream, and deactivation closes
// the connection to unblock the reader.
func NewSource(config SourceConfig) *signal.Signal[Message] {
	logger := config.Logger.With().Str("module", "websocket_source").Logger()

	return signal.Generate(sched.NewSerial(), func(in *signal.Input[Message]) {
		if in == nil {
			logger.Debug().Msg("Source deactivated, closing connection")
			_ = config.Conn.Close()
			return
		}

		go func() {
			for {
				mt, data, err := config.Conn.ReadMessage()
				if err != nil {
					logger.Debug().Err(err).Msg("WebSocket read ended")
					if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
						_ = in.Close()
					} else {
						_ = in.Fail(err)
					}
					return
				}
				if sendErr := in.Send(Message{Type: mt, Data: data}); sendErr != nil {
					logger.Debug().Err(sendErr).Msg("Source input rejected message, stopping reader")
					return
				}
			}
		}()
	})
}

// SinkConfig holds WebSocket sink configuration
type SinkConfig struct {
	Conn   *websocket.Conn
	Logger zerolog.Logger
}

// NewSink subscribes to s and writes each result to the connection as a JSON
// frame: values as FrameValue, graceful closes as FrameClosed, failures as
// FrameError. A write error cancels nothing upstream; the sink just stops
// writing, mirroring a consumer that went away.
func NewSink[T any](config SinkConfig, s *signal.Signal[T]) *signal.Endpoint {
	logger := config.Logger.With().Str("module", "websocket_sink").Logger()
	dead := false

	return s.Subscribe(sched.NewSerial(), func(r core.Result[T]) {
		if dead {
			return
		}
		frame := Frame{Type: FrameValue}
		if v, err := r.Unpack(); err != nil {
			if core.Closed(err) {
				frame = Frame{Type: FrameClosed}
			} else {
				frame = Frame{Type: FrameError, Error: err.Error()}
			}
		} else {
			frame.Payload = v
		}

		data, err := json.Marshal(frame)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to marshal frame")
			return
		}
		if err := config.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
			logger.Error().Err(err).Msg("Failed to write frame, stopping sink")
			dead = true
		}
	})
}
