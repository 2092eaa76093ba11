// internal/transport/frame/crc.go
package frame

// CRC16 computes the Modbus RTU checksum (reflected 0xA001 polynomial,
// initial value 0xFFFF). The result goes on the wire low byte first.
func CRC16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&0x0001 != 0 {
				crc = (crc >> 1) ^ 0xA001
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}
