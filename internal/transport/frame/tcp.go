// internal/transport/frame/tcp.go
package frame

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MBAP header geometry.
const (
	MBAPHeaderLength  = 7
	maxTCPFrameLength = MBAPHeaderLength + MaxPDULength
)

// MBAPHeader is the Modbus TCP envelope: transaction id, protocol id
// (always 0) and unit id. The length field is derived on encode.
type MBAPHeader struct {
	TransactionID uint16
	UnitID        uint8
}

// ReadTCPFrame reads one complete MBAP frame and returns its header
// and PDU. Errors are terminal for the connection.
func ReadTCPFrame(r io.Reader) (MBAPHeader, []byte, error) {
	var header [MBAPHeaderLength]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return MBAPHeader{}, nil, err
	}

	protocolID := binary.BigEndian.Uint16(header[2:4])
	if protocolID != 0 {
		return MBAPHeader{}, nil, fmt.Errorf("frame: bad protocol id 0x%04X", protocolID)
	}

	// Length counts the unit id plus the PDU.
	length := binary.BigEndian.Uint16(header[4:6])
	if length < 2 || int(length) > MaxPDULength+1 {
		return MBAPHeader{}, nil, fmt.Errorf("frame: bad mbap length %d", length)
	}

	pdu := make([]byte, length-1)
	if _, err := io.ReadFull(r, pdu); err != nil {
		return MBAPHeader{}, nil, err
	}

	h := MBAPHeader{
		TransactionID: binary.BigEndian.Uint16(header[0:2]),
		UnitID:        header[6],
	}
	return h, pdu, nil
}

// EncodeTCPFrame wraps a PDU in an MBAP header.
func EncodeTCPFrame(h MBAPHeader, pdu []byte) ([]byte, error) {
	if len(pdu) == 0 || len(pdu) > MaxPDULength {
		return nil, fmt.Errorf("frame: bad pdu length %d", len(pdu))
	}

	out := make([]byte, MBAPHeaderLength+len(pdu))
	binary.BigEndian.PutUint16(out[0:2], h.TransactionID)
	binary.BigEndian.PutUint16(out[2:4], 0)
	binary.BigEndian.PutUint16(out[4:6], uint16(len(pdu)+1))
	out[6] = h.UnitID
	copy(out[MBAPHeaderLength:], pdu)
	return out, nil
}
