package camera

import (
	"bytes"
	"encoding/binary"
)

// JPEG delimiters on the camera byte stream.
var (
	jpegStart = []byte{0xFF, 0xD8, 0xFF, 0xE0}
	jpegEnd   = []byte{0xFF, 0xD9}
)

// extractFrame scans buf for one complete image: the bytes from the start
// marker through the end marker inclusive. At most one frame is extracted per
// call; a second complete frame already in buf is picked up on the next call.
// Returns (nil, buf) when no complete frame is present yet.
func extractFrame(buf []byte) (frame, rest []byte) {
	start := bytes.Index(buf, jpegStart)
	if start < 0 {
		return nil, buf
	}

	end := bytes.Index(buf[start+len(jpegStart):], jpegEnd)
	if end < 0 {
		return nil, buf
	}
	end += start + len(jpegStart) + len(jpegEnd)

	return buf[start:end], buf[end:]
}

// authPacket builds the fixed 80-byte handshake sent immediately after
// connect: two little-endian magic words, eight reserved bytes, then the
// username and access code each zero-padded to 32 bytes.
func authPacket(username, accessCode string) []byte {
	packet := make([]byte, 80)

	binary.LittleEndian.PutUint32(packet[0:4], 0x40)
	binary.LittleEndian.PutUint32(packet[4:8], 0x3000)
	copy(packet[16:48], username)
	copy(packet[48:80], accessCode)

	return packet
}
