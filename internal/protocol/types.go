// internal/protocol/types.go
package protocol

// Function codes served by the simulator. Any other code is answered
// with an IllegalFunction exception.
const (
	FuncReadCoils              uint8 = 0x01
	FuncReadDiscreteInputs     uint8 = 0x02
	FuncReadHoldingRegisters   uint8 = 0x03
	FuncReadInputRegisters     uint8 = 0x04
	FuncWriteSingleCoil        uint8 = 0x05
	FuncWriteSingleRegister    uint8 = 0x06
	FuncWriteMultipleCoils     uint8 = 0x0F
	FuncWriteMultipleRegisters uint8 = 0x10
)

// ExceptionFlag is set on the function code of an exception response.
const ExceptionFlag uint8 = 0x80

// Exception is a Modbus exception code. It doubles as the error the
// dispatcher and codec return so transports can map it onto the wire.
type Exception uint8

const (
	ExcIllegalFunction    Exception = 0x01
	ExcIllegalDataAddress Exception = 0x02
	ExcIllegalDataValue   Exception = 0x03
	ExcServerFailure      Exception = 0x04
)

func (e Exception) Error() string {
	switch e {
	case ExcIllegalFunction:
		return "illegal function"
	case ExcIllegalDataAddress:
		return "illegal data address"
	case ExcIllegalDataValue:
		return "illegal data value"
	case ExcServerFailure:
		return "server device failure"
	default:
		return "modbus exception"
	}
}

// Request is one decoded Modbus request. The vocabulary is fixed;
// transports produce it via the frame codec and never hand the
// dispatcher raw bytes.
type Request interface {
	FunctionCode() uint8
}

// Response is the typed result matching one Request.
type Response interface {
	FunctionCode() uint8
}

// ---- REQUESTS ----

type ReadCoilsRequest struct {
	Address  uint16
	Quantity uint16
}

type ReadDiscreteInputsRequest struct {
	Address  uint16
	Quantity uint16
}

type ReadHoldingRegistersRequest struct {
	Address  uint16
	Quantity uint16
}

type ReadInputRegistersRequest struct {
	Address  uint16
	Quantity uint16
}

type WriteSingleCoilRequest struct {
	Address uint16
	Value   bool
}

type WriteSingleRegisterRequest struct {
	Address uint16
	Value   uint16
}

type WriteMultipleCoilsRequest struct {
	Address uint16
	Values  []bool
}

type WriteMultipleRegistersRequest struct {
	Address uint16
	Values  []uint16
}

func (ReadCoilsRequest) FunctionCode() uint8              { return FuncReadCoils }
func (ReadDiscreteInputsRequest) FunctionCode() uint8     { return FuncReadDiscreteInputs }
func (ReadHoldingRegistersRequest) FunctionCode() uint8   { return FuncReadHoldingRegisters }
func (ReadInputRegistersRequest) FunctionCode() uint8     { return FuncReadInputRegisters }
func (WriteSingleCoilRequest) FunctionCode() uint8        { return FuncWriteSingleCoil }
func (WriteSingleRegisterRequest) FunctionCode() uint8    { return FuncWriteSingleRegister }
func (WriteMultipleCoilsRequest) FunctionCode() uint8     { return FuncWriteMultipleCoils }
func (WriteMultipleRegistersRequest) FunctionCode() uint8 { return FuncWriteMultipleRegisters }

// ---- RESPONSES ----

type ReadCoilsResponse struct {
	Bits []bool
}

type ReadDiscreteInputsResponse struct {
	Bits []bool
}

type ReadHoldingRegistersResponse struct {
	Registers []uint16
}

type ReadInputRegistersResponse struct {
	Registers []uint16
}

// WriteSingleCoilResponse echoes the request.
type WriteSingleCoilResponse struct {
	Address uint16
	Value   bool
}

// WriteSingleRegisterResponse echoes the request.
type WriteSingleRegisterResponse struct {
	Address uint16
	Value   uint16
}

// WriteMultipleCoilsResponse echoes address and count written.
type WriteMultipleCoilsResponse struct {
	Address  uint16
	Quantity uint16
}

// WriteMultipleRegistersResponse echoes address and count written.
type WriteMultipleRegistersResponse struct {
	Address  uint16
	Quantity uint16
}

func (ReadCoilsResponse) FunctionCode() uint8              { return FuncReadCoils }
func (ReadDiscreteInputsResponse) FunctionCode() uint8     { return FuncReadDiscreteInputs }
func (ReadHoldingRegistersResponse) FunctionCode() uint8   { return FuncReadHoldingRegisters }
func (ReadInputRegistersResponse) FunctionCode() uint8     { return FuncReadInputRegisters }
func (WriteSingleCoilResponse) FunctionCode() uint8        { return FuncWriteSingleCoil }
func (WriteSingleRegisterResponse) FunctionCode() uint8    { return FuncWriteSingleRegister }
func (WriteMultipleCoilsResponse) FunctionCode() uint8     { return FuncWriteMultipleCoils }
func (WriteMultipleRegistersResponse) FunctionCode() uint8 { return FuncWriteMultipleRegisters }
