// internal/transport/frame/rtu.go
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/tamzrod/modsim/internal/protocol"
)

// RTU frame geometry: unit id + PDU + CRC16.
const (
	rtuMinFrame = 4
	rtuMaxFrame = 256
)

// ErrCRC reports a checksum mismatch; the frame is dropped, not
// answered.
var ErrCRC = errors.New("frame: crc mismatch")

// RTUFrame is one decoded serial ADU.
type RTUFrame struct {
	UnitID uint8
	PDU    []byte
}

// ReadRTUFrame reads one RTU request frame. The expected length is
// derived from the function code, the way every serial Modbus server
// has to: fixed 8 bytes for the single-operation codes, header plus
// declared byte count for the multi-write codes. The CRC is verified
// before the frame is returned.
func ReadRTUFrame(r io.Reader) (RTUFrame, error) {
	var buf [rtuMaxFrame]byte

	// Unit id + function code.
	if _, err := io.ReadFull(r, buf[:2]); err != nil {
		return RTUFrame{}, err
	}
	n := 2

	expected := 8
	switch buf[1] {
	case protocol.FuncWriteMultipleCoils, protocol.FuncWriteMultipleRegisters:
		// Read through the byte-count field first.
		if _, err := io.ReadFull(r, buf[2:7]); err != nil {
			return RTUFrame{}, err
		}
		n = 7
		expected = 7 + int(buf[6]) + 2
		if expected > rtuMaxFrame {
			return RTUFrame{}, fmt.Errorf("frame: rtu frame too long (%d)", expected)
		}
	}

	if _, err := io.ReadFull(r, buf[n:expected]); err != nil {
		return RTUFrame{}, err
	}

	adu := buf[:expected]
	received := binary.LittleEndian.Uint16(adu[expected-2:])
	if received != CRC16(adu[:expected-2]) {
		return RTUFrame{}, ErrCRC
	}

	pdu := make([]byte, expected-3)
	copy(pdu, adu[1:expected-2])
	return RTUFrame{UnitID: adu[0], PDU: pdu}, nil
}

// EncodeRTUFrame wraps a PDU with the unit id and trailing CRC16
// (low byte first).
func EncodeRTUFrame(unitID uint8, pdu []byte) ([]byte, error) {
	if len(pdu) == 0 || len(pdu) > MaxPDULength {
		return nil, fmt.Errorf("frame: bad pdu length %d", len(pdu))
	}

	out := make([]byte, 0, 1+len(pdu)+2)
	out = append(out, unitID)
	out = append(out, pdu...)
	crc := CRC16(out)
	return append(out, byte(crc), byte(crc>>8)), nil
}
