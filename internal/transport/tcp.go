// internal/transport/tcp.go
package transport

import (
	"context"
	"errors"
	"net"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tamzrod/modsim/internal/protocol"
	"github.com/tamzrod/modsim/internal/transport/frame"
)

// TCPServer serves Modbus TCP sessions. One goroutine per accepted
// connection; each session decodes MBAP frames, dispatches, and
// encodes responses. Sessions own their buffers; the engine behind
// the dispatcher is the only shared state.
type TCPServer struct {
	dispatcher *protocol.Dispatcher
	log        zerolog.Logger
	listener   net.Listener
	wg         sync.WaitGroup
}

// NewTCPServer binds the listener immediately so startup failures
// surface before the first request.
func NewTCPServer(bind string, dispatcher *protocol.Dispatcher, logger zerolog.Logger) (*TCPServer, error) {
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return nil, err
	}
	return &TCPServer{
		dispatcher: dispatcher,
		log:        logger.With().Str("transport", "tcp").Logger(),
		listener:   listener,
	}, nil
}

// Addr returns the bound listener address.
func (s *TCPServer) Addr() net.Addr {
	return s.listener.Addr()
}

// Serve accepts connections until the context is cancelled, then
// waits for outstanding sessions to drain.
func (s *TCPServer) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		s.listener.Close()
	})
	defer stop()

	s.log.Info().Str("addr", s.listener.Addr().String()).Msg("modbus tcp listening")

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				break
			}
			s.log.Error().Err(err).Msg("accept failed")
			break
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}

	s.wg.Wait()
	return nil
}

// handleConn runs one session. A read or decode error ends the
// session only; other sessions and the engine are unaffected.
func (s *TCPServer) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer stop()

	log := s.log.With().Str("peer", conn.RemoteAddr().String()).Logger()
	log.Debug().Msg("session opened")

	for {
		header, pdu, err := frame.ReadTCPFrame(conn)
		if err != nil {
			log.Debug().Err(err).Msg("session closed")
			return
		}

		response := s.respond(pdu, &log)
		out, err := frame.EncodeTCPFrame(header, response)
		if err != nil {
			log.Error().Err(err).Msg("encode failed")
			return
		}
		if _, err := conn.Write(out); err != nil {
			log.Debug().Err(err).Msg("write failed, session closed")
			return
		}
	}
}

// respond maps one raw PDU to a response PDU, turning dispatch and
// decode failures into exception responses.
func (s *TCPServer) respond(pdu []byte, log *zerolog.Logger) []byte {
	req, err := frame.DecodeRequest(pdu)
	if err != nil {
		return exceptionFor(pdu[0], err, log)
	}

	resp, err := s.dispatcher.Dispatch(req)
	if err != nil {
		return exceptionFor(pdu[0], err, log)
	}

	out, err := frame.EncodeResponse(resp)
	if err != nil {
		log.Error().Err(err).Msg("response encoding failed")
		return frame.EncodeException(pdu[0], protocol.ExcServerFailure)
	}
	return out
}

// exceptionFor converts a decode or dispatch error into an exception
// PDU. Errors that are not Modbus exceptions become a server failure.
func exceptionFor(fc uint8, err error, log *zerolog.Logger) []byte {
	var exc protocol.Exception
	if !errors.As(err, &exc) {
		exc = protocol.ExcServerFailure
	}
	log.Debug().Err(err).Uint8("function", fc).Msg("request rejected")
	return frame.EncodeException(fc, exc)
}
