// internal/transport/frame/frame_test.go
package frame_test

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/tamzrod/modsim/internal/transport/frame"
)

func TestCRC16KnownVectors(t *testing.T) {
	cases := []struct {
		data []byte
		want uint16
	}{
		{[]byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x0A}, 0xCDC5},
		{[]byte{0x01, 0x04, 0x00, 0x00, 0x00, 0x02}, 0xCB71},
		{[]byte{0x11, 0x03, 0x00, 0x6B, 0x00, 0x03}, 0x8776},
		{[]byte("123456789"), 0x4B37},
	}
	for _, c := range cases {
		if got := frame.CRC16(c.data); got != c.want {
			t.Fatalf("CRC16(% X) = 0x%04X, want 0x%04X", c.data, got, c.want)
		}
	}
}

func TestTCPFrameRoundTrip(t *testing.T) {
	h := frame.MBAPHeader{TransactionID: 0x1234, UnitID: 0x11}
	pdu := []byte{0x03, 0x00, 0x6B, 0x00, 0x03}

	encoded, err := frame.EncodeTCPFrame(h, pdu)
	if err != nil {
		t.Fatalf("EncodeTCPFrame() err=%v", err)
	}
	want := []byte{0x12, 0x34, 0x00, 0x00, 0x00, 0x06, 0x11, 0x03, 0x00, 0x6B, 0x00, 0x03}
	if !reflect.DeepEqual(encoded, want) {
		t.Fatalf("encoded % X, want % X", encoded, want)
	}

	gotH, gotPDU, err := frame.ReadTCPFrame(bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("ReadTCPFrame() err=%v", err)
	}
	if gotH != h || !reflect.DeepEqual(gotPDU, pdu) {
		t.Fatalf("round trip: header %+v pdu % X", gotH, gotPDU)
	}
}

func TestTCPFrameRejectsBadProtocolID(t *testing.T) {
	raw := []byte{0x00, 0x01, 0xDE, 0xAD, 0x00, 0x06, 0x01, 0x03, 0x00, 0x00, 0x00, 0x01}
	if _, _, err := frame.ReadTCPFrame(bytes.NewReader(raw)); err == nil {
		t.Fatal("expected protocol id error")
	}
}

func TestTCPFrameRejectsBadLength(t *testing.T) {
	// Length 1 cannot even cover the unit id plus a function code.
	raw := []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x01, 0x01}
	if _, _, err := frame.ReadTCPFrame(bytes.NewReader(raw)); err == nil {
		t.Fatal("expected length error")
	}
}

func TestRTUFrameRoundTrip(t *testing.T) {
	pdu := []byte{0x03, 0x00, 0x6B, 0x00, 0x03}

	encoded, err := frame.EncodeRTUFrame(0x11, pdu)
	if err != nil {
		t.Fatalf("EncodeRTUFrame() err=%v", err)
	}
	// CRC of 11 03 00 6B 00 03 is 0x8776, low byte first on the wire.
	want := []byte{0x11, 0x03, 0x00, 0x6B, 0x00, 0x03, 0x76, 0x87}
	if !reflect.DeepEqual(encoded, want) {
		t.Fatalf("encoded % X, want % X", encoded, want)
	}

	got, err := frame.ReadRTUFrame(bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("ReadRTUFrame() err=%v", err)
	}
	if got.UnitID != 0x11 || !reflect.DeepEqual(got.PDU, pdu) {
		t.Fatalf("round trip: %+v", got)
	}
}

func TestRTUFrameVariableLength(t *testing.T) {
	// A write-multiple-registers request carries a byte count, so the
	// reader has to size the frame from the payload.
	pdu := []byte{0x10, 0x00, 0x01, 0x00, 0x02, 0x04, 0x00, 0x0A, 0x01, 0x02}

	encoded, err := frame.EncodeRTUFrame(0x01, pdu)
	if err != nil {
		t.Fatalf("EncodeRTUFrame() err=%v", err)
	}

	got, err := frame.ReadRTUFrame(bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("ReadRTUFrame() err=%v", err)
	}
	if got.UnitID != 0x01 || !reflect.DeepEqual(got.PDU, pdu) {
		t.Fatalf("round trip: %+v", got)
	}
}

func TestRTUFrameRejectsBadCRC(t *testing.T) {
	encoded, err := frame.EncodeRTUFrame(0x01, []byte{0x03, 0x00, 0x00, 0x00, 0x01})
	if err != nil {
		t.Fatalf("EncodeRTUFrame() err=%v", err)
	}
	encoded[len(encoded)-1] ^= 0xFF

	_, err = frame.ReadRTUFrame(bytes.NewReader(encoded))
	if !errors.Is(err, frame.ErrCRC) {
		t.Fatalf("got err=%v, want ErrCRC", err)
	}
}

func TestRTUFrameConsecutiveReads(t *testing.T) {
	first, _ := frame.EncodeRTUFrame(0x01, []byte{0x01, 0x00, 0x00, 0x00, 0x08})
	second, _ := frame.EncodeRTUFrame(0x01, []byte{0x06, 0x00, 0x05, 0x12, 0x34})

	var stream bytes.Buffer
	stream.Write(first)
	stream.Write(second)

	a, err := frame.ReadRTUFrame(&stream)
	if err != nil {
		t.Fatalf("first frame: %v", err)
	}
	if a.PDU[0] != 0x01 {
		t.Fatalf("first frame fc=0x%02X", a.PDU[0])
	}

	b, err := frame.ReadRTUFrame(&stream)
	if err != nil {
		t.Fatalf("second frame: %v", err)
	}
	if b.PDU[0] != 0x06 {
		t.Fatalf("second frame fc=0x%02X", b.PDU[0])
	}
}
