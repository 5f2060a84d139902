// Package udppub implements the UDP fan-out publisher: a fixed 5-byte
// header followed by the fixed-layout record, one datagram per record,
// no retry.
package udppub

import (
	"encoding/binary"
	"net"

	"main/internal/marketmodel"
)

const HeaderSize = 5

// Publisher sends one datagram per record to a preconfigured (ip, port).
// Grounded on internal/codec/marketdata.go's fixed-offset encode
// technique, applied to datagram framing instead of a ring slot.
type Publisher struct {
	conn *net.UDPConn
}

// Dial opens the UDP socket used for all subsequent Send calls.
func Dial(ip string, port int) (*Publisher, error) {
	addr := &net.UDPAddr{IP: net.ParseIP(ip), Port: port}
	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, err
	}
	return &Publisher{conn: conn}, nil
}

// Close releases the underlying socket.
func (p *Publisher) Close() error {
	if p == nil || p.conn == nil {
		return nil
	}
	return p.conn.Close()
}

// EncodeHeader writes the 5-byte datagram header into dst (which must be
// at least HeaderSize bytes).
func EncodeHeader(dst []byte, version uint8, msgType marketmodel.MessageType, productType marketmodel.ProductType, payloadLen uint16) {
	dst[0] = version
	dst[1] = byte(msgType)
	dst[2] = byte(productType)
	binary.BigEndian.PutUint16(dst[3:5], payloadLen)
}

// DecodeHeader parses the 5-byte datagram header.
func DecodeHeader(src []byte) (version uint8, msgType marketmodel.MessageType, productType marketmodel.ProductType, payloadLen uint16, ok bool) {
	if len(src) < HeaderSize {
		return 0, 0, 0, 0, false
	}
	version = src[0]
	msgType = marketmodel.MessageType(src[1])
	productType = marketmodel.ProductType(src[2])
	payloadLen = binary.BigEndian.Uint16(src[3:5])
	return version, msgType, productType, payloadLen, true
}

// Send serializes header+payload and writes one datagram. No reliability,
// no retry; drops silently on a would-block/EAGAIN write error.
func (p *Publisher) Send(version uint8, msgType marketmodel.MessageType, productType marketmodel.ProductType, payload []byte) {
	if p == nil || p.conn == nil {
		return
	}
	datagram := make([]byte, HeaderSize+len(payload))
	EncodeHeader(datagram, version, msgType, productType, uint16(len(payload)))
	copy(datagram[HeaderSize:], payload)
	_, _ = p.conn.Write(datagram) // drop on error, no retry
}
