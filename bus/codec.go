package bus

import (
	"encoding/binary"
	"math"
)

// EncodeFloat32BE returns the IEEE-754 bits of value in big-endian order.
func EncodeFloat32BE(value float32) [PayloadSize]byte {
	return EncodeUint32BE(math.Float32bits(value))
}

// DecodeFloat32BE is the inverse of EncodeFloat32BE.
func DecodeFloat32BE(b [PayloadSize]byte) float32 {
	return math.Float32frombits(DecodeUint32BE(b))
}

// EncodeUint32BE returns value in big-endian order.
func EncodeUint32BE(value uint32) [PayloadSize]byte {
	var b [PayloadSize]byte
	binary.BigEndian.PutUint32(b[:], value)
	return b
}

// DecodeUint32BE is the inverse of EncodeUint32BE.
func DecodeUint32BE(b [PayloadSize]byte) uint32 {
	return binary.BigEndian.Uint32(b[:])
}
