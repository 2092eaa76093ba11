// internal/transport/rtu.go
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/creack/pty"
	"github.com/goburrow/serial"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/tamzrod/modsim/internal/protocol"
	"github.com/tamzrod/modsim/internal/transport/frame"
)

// RTU modes.
const (
	RTUModeSerial = "serial"
	RTUModePTY    = "pseudo-pty"
)

// RTUConfig is the serial line setup for the RTU binding.
type RTUConfig struct {
	Mode     string
	Device   string // serial mode only
	BaudRate int
	DataBits int
	Parity   string // none, even, odd
	StopBits int
	UnitID   uint8
}

// RTUServer serves Modbus RTU over a real serial device or one side
// of a pseudo-terminal pair. A serial line admits a single peer, so
// there is exactly one session for the server's lifetime.
type RTUServer struct {
	cfg        RTUConfig
	dispatcher *protocol.Dispatcher
	log        zerolog.Logger
	port       io.ReadWriteCloser
	tty        *os.File // pty mode: held open so the pair survives client churn
	clientPath string
}

// NewRTUServer opens the configured line. An open failure here is
// fatal to this transport only; the caller decides whether the
// process keeps running.
func NewRTUServer(cfg RTUConfig, dispatcher *protocol.Dispatcher, logger zerolog.Logger) (*RTUServer, error) {
	s := &RTUServer{
		cfg:        cfg,
		dispatcher: dispatcher,
		log:        logger.With().Str("transport", "rtu").Logger(),
	}

	switch cfg.Mode {
	case RTUModeSerial:
		port, err := serial.Open(&serial.Config{
			Address:  cfg.Device,
			BaudRate: cfg.BaudRate,
			DataBits: cfg.DataBits,
			Parity:   parityCode(cfg.Parity),
			StopBits: cfg.StopBits,
			Timeout:  time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("open serial device %s: %w", cfg.Device, err)
		}
		s.port = port
		s.clientPath = cfg.Device

	case RTUModePTY:
		master, tty, err := pty.Open()
		if err != nil {
			return nil, fmt.Errorf("open pty pair: %w", err)
		}
		// Raw mode, or the line discipline will translate and echo
		// the binary frames.
		if _, err := term.MakeRaw(int(tty.Fd())); err != nil {
			master.Close()
			tty.Close()
			return nil, fmt.Errorf("set pty raw mode: %w", err)
		}
		s.port = master
		s.tty = tty
		s.clientPath = tty.Name()

	default:
		return nil, fmt.Errorf("unknown rtu mode %q", cfg.Mode)
	}

	return s, nil
}

// ClientDevicePath is the device a test client should open: the
// configured device in serial mode, the pty slave side in pty mode.
func (s *RTUServer) ClientDevicePath() string {
	return s.clientPath
}

// Serve reads request frames until the context is cancelled. Frames
// addressed to another unit are ignored: a serial bus is multi-drop
// and the simulator answers only as its configured unit. Broadcast
// writes (unit 0) are executed but never answered.
func (s *RTUServer) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		s.Close()
	})
	defer stop()

	s.log.Info().
		Str("mode", s.cfg.Mode).
		Str("device", s.clientPath).
		Uint8("unit_id", s.cfg.UnitID).
		Msg("modbus rtu listening")

	for {
		req, err := frame.ReadRTUFrame(s.port)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, frame.ErrCRC) {
				s.log.Debug().Msg("crc mismatch, frame dropped")
				continue
			}
			if isTransientSerial(err) {
				continue
			}
			return err
		}

		if req.UnitID != s.cfg.UnitID && req.UnitID != 0 {
			continue
		}

		response := s.respond(req.PDU)
		if req.UnitID == 0 {
			continue
		}

		out, err := frame.EncodeRTUFrame(req.UnitID, response)
		if err != nil {
			s.log.Error().Err(err).Msg("encode failed")
			continue
		}
		if _, err := s.port.Write(out); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

// Close releases the line.
func (s *RTUServer) Close() error {
	err := s.port.Close()
	if s.tty != nil {
		s.tty.Close()
	}
	return err
}

func (s *RTUServer) respond(pdu []byte) []byte {
	req, err := frame.DecodeRequest(pdu)
	if err != nil {
		return exceptionFor(pdu[0], err, &s.log)
	}

	resp, err := s.dispatcher.Dispatch(req)
	if err != nil {
		return exceptionFor(pdu[0], err, &s.log)
	}

	out, err := frame.EncodeResponse(resp)
	if err != nil {
		s.log.Error().Err(err).Msg("response encoding failed")
		return frame.EncodeException(pdu[0], protocol.ExcServerFailure)
	}
	return out
}

// isTransientSerial reports errors worth staying alive for: read
// timeouts between frames and corrupt frames.
func isTransientSerial(err error) bool {
	if errors.Is(err, frame.ErrCRC) {
		return true
	}
	if errors.Is(err, serial.ErrTimeout) || os.IsTimeout(err) {
		return true
	}
	return false
}

// parityCode maps the config spelling onto goburrow/serial's.
func parityCode(parity string) string {
	switch parity {
	case "even":
		return "E"
	case "odd":
		return "O"
	default:
		return "N"
	}
}
