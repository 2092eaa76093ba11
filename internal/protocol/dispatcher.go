// internal/protocol/dispatcher.go
package protocol

import (
	"github.com/tamzrod/modsim/internal/sim"
)

// Dispatcher maps one decoded request onto exactly one engine call.
// It is stateless apart from the engine handle, so every transport
// binding gets byte-for-byte identical behavior.
type Dispatcher struct {
	engine *sim.Engine
}

func NewDispatcher(engine *sim.Engine) *Dispatcher {
	return &Dispatcher{engine: engine}
}

// Dispatch performs the engine operation for req and builds the
// matching response. Unsupported request shapes return
// ExcIllegalFunction and never touch engine state; the transport is
// responsible for turning that into a wire-level exception.
func (d *Dispatcher) Dispatch(req Request) (Response, error) {
	switch r := req.(type) {
	case ReadCoilsRequest:
		return ReadCoilsResponse{Bits: d.engine.ReadCoils(r.Address, r.Quantity)}, nil

	case ReadDiscreteInputsRequest:
		return ReadDiscreteInputsResponse{Bits: d.engine.ReadDiscreteInputs(r.Address, r.Quantity)}, nil

	case ReadHoldingRegistersRequest:
		return ReadHoldingRegistersResponse{Registers: d.engine.ReadHoldingRegisters(r.Address, r.Quantity)}, nil

	case ReadInputRegistersRequest:
		return ReadInputRegistersResponse{Registers: d.engine.ReadInputRegisters(r.Address, r.Quantity)}, nil

	case WriteSingleCoilRequest:
		d.engine.WriteCoil(r.Address, r.Value)
		return WriteSingleCoilResponse{Address: r.Address, Value: r.Value}, nil

	case WriteSingleRegisterRequest:
		d.engine.WriteHoldingRegister(r.Address, r.Value)
		return WriteSingleRegisterResponse{Address: r.Address, Value: r.Value}, nil

	case WriteMultipleCoilsRequest:
		d.engine.WriteCoils(r.Address, r.Values)
		return WriteMultipleCoilsResponse{Address: r.Address, Quantity: uint16(len(r.Values))}, nil

	case WriteMultipleRegistersRequest:
		d.engine.WriteHoldingRegisters(r.Address, r.Values)
		return WriteMultipleRegistersResponse{Address: r.Address, Quantity: uint16(len(r.Values))}, nil

	default:
		return nil, ExcIllegalFunction
	}
}
