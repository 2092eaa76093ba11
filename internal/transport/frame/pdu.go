// internal/transport/frame/pdu.go
package frame

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/tamzrod/modsim/internal/protocol"
)

// Modbus quantity limits per function code.
const (
	maxReadBits   = 2000
	maxReadWords  = 125
	maxWriteBits  = 1968
	maxWriteWords = 123
)

// MaxPDULength is the Modbus PDU size limit (function code + data).
const MaxPDULength = 253

var errShortPDU = errors.New("frame: short pdu")

// DecodeRequest turns a raw PDU (function code + data) into a typed
// request. A protocol.Exception error means the frame was well-formed
// but not servable and should be answered with an exception response;
// any other error means the frame is garbage and should be dropped.
func DecodeRequest(pdu []byte) (protocol.Request, error) {
	if len(pdu) < 1 {
		return nil, errShortPDU
	}
	fc := pdu[0]
	data := pdu[1:]

	switch fc {
	case protocol.FuncReadCoils, protocol.FuncReadDiscreteInputs:
		addr, qty, err := decodeAddrQuantity(data)
		if err != nil {
			return nil, err
		}
		if qty < 1 || qty > maxReadBits {
			return nil, protocol.ExcIllegalDataValue
		}
		if fc == protocol.FuncReadCoils {
			return protocol.ReadCoilsRequest{Address: addr, Quantity: qty}, nil
		}
		return protocol.ReadDiscreteInputsRequest{Address: addr, Quantity: qty}, nil

	case protocol.FuncReadHoldingRegisters, protocol.FuncReadInputRegisters:
		addr, qty, err := decodeAddrQuantity(data)
		if err != nil {
			return nil, err
		}
		if qty < 1 || qty > maxReadWords {
			return nil, protocol.ExcIllegalDataValue
		}
		if fc == protocol.FuncReadHoldingRegisters {
			return protocol.ReadHoldingRegistersRequest{Address: addr, Quantity: qty}, nil
		}
		return protocol.ReadInputRegistersRequest{Address: addr, Quantity: qty}, nil

	case protocol.FuncWriteSingleCoil:
		addr, raw, err := decodeAddrQuantity(data)
		if err != nil {
			return nil, err
		}
		switch raw {
		case 0x0000:
			return protocol.WriteSingleCoilRequest{Address: addr, Value: false}, nil
		case 0xFF00:
			return protocol.WriteSingleCoilRequest{Address: addr, Value: true}, nil
		default:
			return nil, protocol.ExcIllegalDataValue
		}

	case protocol.FuncWriteSingleRegister:
		addr, value, err := decodeAddrQuantity(data)
		if err != nil {
			return nil, err
		}
		return protocol.WriteSingleRegisterRequest{Address: addr, Value: value}, nil

	case protocol.FuncWriteMultipleCoils:
		addr, qty, payload, err := decodeWritePayload(data)
		if err != nil {
			return nil, err
		}
		if qty < 1 || qty > maxWriteBits || len(payload) != int(qty+7)/8 {
			return nil, protocol.ExcIllegalDataValue
		}
		return protocol.WriteMultipleCoilsRequest{
			Address: addr,
			Values:  UnpackBits(payload, int(qty)),
		}, nil

	case protocol.FuncWriteMultipleRegisters:
		addr, qty, payload, err := decodeWritePayload(data)
		if err != nil {
			return nil, err
		}
		if qty < 1 || qty > maxWriteWords || len(payload) != int(qty)*2 {
			return nil, protocol.ExcIllegalDataValue
		}
		return protocol.WriteMultipleRegistersRequest{
			Address: addr,
			Values:  UnpackWords(payload),
		}, nil

	default:
		return nil, protocol.ExcIllegalFunction
	}
}

func decodeAddrQuantity(data []byte) (uint16, uint16, error) {
	if len(data) < 4 {
		return 0, 0, errShortPDU
	}
	return binary.BigEndian.Uint16(data[0:2]), binary.BigEndian.Uint16(data[2:4]), nil
}

func decodeWritePayload(data []byte) (addr, qty uint16, payload []byte, err error) {
	if len(data) < 5 {
		return 0, 0, nil, errShortPDU
	}
	addr = binary.BigEndian.Uint16(data[0:2])
	qty = binary.BigEndian.Uint16(data[2:4])
	byteCount := int(data[4])
	if len(data) != 5+byteCount {
		return 0, 0, nil, protocol.ExcIllegalDataValue
	}
	return addr, qty, data[5:], nil
}

// EncodeResponse builds the raw PDU for a typed response.
func EncodeResponse(resp protocol.Response) ([]byte, error) {
	switch r := resp.(type) {
	case protocol.ReadCoilsResponse:
		return encodeBitsResponse(protocol.FuncReadCoils, r.Bits), nil
	case protocol.ReadDiscreteInputsResponse:
		return encodeBitsResponse(protocol.FuncReadDiscreteInputs, r.Bits), nil
	case protocol.ReadHoldingRegistersResponse:
		return encodeWordsResponse(protocol.FuncReadHoldingRegisters, r.Registers), nil
	case protocol.ReadInputRegistersResponse:
		return encodeWordsResponse(protocol.FuncReadInputRegisters, r.Registers), nil
	case protocol.WriteSingleCoilResponse:
		raw := uint16(0x0000)
		if r.Value {
			raw = 0xFF00
		}
		return encodeEcho(protocol.FuncWriteSingleCoil, r.Address, raw), nil
	case protocol.WriteSingleRegisterResponse:
		return encodeEcho(protocol.FuncWriteSingleRegister, r.Address, r.Value), nil
	case protocol.WriteMultipleCoilsResponse:
		return encodeEcho(protocol.FuncWriteMultipleCoils, r.Address, r.Quantity), nil
	case protocol.WriteMultipleRegistersResponse:
		return encodeEcho(protocol.FuncWriteMultipleRegisters, r.Address, r.Quantity), nil
	default:
		return nil, fmt.Errorf("frame: unknown response type %T", resp)
	}
}

// EncodeException builds an exception PDU for the given request
// function code.
func EncodeException(fc uint8, exc protocol.Exception) []byte {
	return []byte{fc | protocol.ExceptionFlag, byte(exc)}
}

func encodeBitsResponse(fc uint8, bits []bool) []byte {
	payload := PackBits(bits)
	out := make([]byte, 0, 2+len(payload))
	out = append(out, fc, byte(len(payload)))
	return append(out, payload...)
}

func encodeWordsResponse(fc uint8, words []uint16) []byte {
	payload := PackWords(words)
	out := make([]byte, 0, 2+len(payload))
	out = append(out, fc, byte(len(payload)))
	return append(out, payload...)
}

func encodeEcho(fc uint8, addr, value uint16) []byte {
	out := make([]byte, 5)
	out[0] = fc
	binary.BigEndian.PutUint16(out[1:3], addr)
	binary.BigEndian.PutUint16(out[3:5], value)
	return out
}

// ---- PAYLOAD PACKING ----

// PackBits packs bit values LSB-first into bytes.
func PackBits(bits []bool) []byte {
	out := make([]byte, (len(bits)+7)/8)
	for i, v := range bits {
		if v {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}

// UnpackBits expands count bit values from LSB-first packed bytes.
func UnpackBits(data []byte, count int) []bool {
	out := make([]bool, count)
	for i := 0; i < count; i++ {
		out[i] = data[i/8]&(1<<uint(i%8)) != 0
	}
	return out
}

// PackWords packs 16-bit values big-endian.
func PackWords(words []uint16) []byte {
	out := make([]byte, len(words)*2)
	for i, w := range words {
		binary.BigEndian.PutUint16(out[2*i:], w)
	}
	return out
}

// UnpackWords reads big-endian 16-bit values.
func UnpackWords(data []byte) []uint16 {
	out := make([]uint16, len(data)/2)
	for i := range out {
		out[i] = binary.BigEndian.Uint16(data[2*i:])
	}
	return out
}
