package camera

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func jpeg(body ...byte) []byte {
	var b bytes.Buffer
	b.Write(jpegStart)
	b.Write(body)
	b.Write(jpegEnd)
	return b.Bytes()
}

func TestExtractFrame(t *testing.T) {
	frame := jpeg(1, 2, 3)

	t.Run("complete frame", func(t *testing.T) {
		got, rest := extractFrame(frame)
		if !bytes.Equal(got, frame) {
			t.Errorf("frame = %x, want %x", got, frame)
		}
		if len(rest) != 0 {
			t.Errorf("rest = %x, want empty", rest)
		}
	})

	t.Run("no start marker", func(t *testing.T) {
		buf := []byte{1, 2, 3, 0xFF, 0xD9}
		got, rest := extractFrame(buf)
		if got != nil {
			t.Errorf("frame = %x, want nil", got)
		}
		if !bytes.Equal(rest, buf) {
			t.Errorf("rest = %x, want original buffer", rest)
		}
	})

	t.Run("start without end", func(t *testing.T) {
		buf := append(bytes.Clone(jpegStart), 1, 2, 3)
		got, rest := extractFrame(buf)
		if got != nil {
			t.Errorf("frame = %x, want nil", got)
		}
		if !bytes.Equal(rest, buf) {
			t.Errorf("rest = %x, want original buffer", rest)
		}
	})

	t.Run("garbage before frame is dropped", func(t *testing.T) {
		buf := append([]byte{9, 9, 9}, frame...)
		got, rest := extractFrame(buf)
		if !bytes.Equal(got, frame) {
			t.Errorf("frame = %x, want %x", got, frame)
		}
		if len(rest) != 0 {
			t.Errorf("rest = %x, want empty", rest)
		}
	})

	t.Run("bytes after frame are kept", func(t *testing.T) {
		trailing := []byte{7, 8}
		buf := append(bytes.Clone(frame), trailing...)
		got, rest := extractFrame(buf)
		if !bytes.Equal(got, frame) {
			t.Errorf("frame = %x, want %x", got, frame)
		}
		if !bytes.Equal(rest, trailing) {
			t.Errorf("rest = %x, want %x", rest, trailing)
		}
	})

	t.Run("one frame per call", func(t *testing.T) {
		second := jpeg(4, 5)
		buf := append(bytes.Clone(frame), second...)

		got, rest := extractFrame(buf)
		if !bytes.Equal(got, frame) {
			t.Errorf("first frame = %x, want %x", got, frame)
		}
		got, rest = extractFrame(rest)
		if !bytes.Equal(got, second) {
			t.Errorf("second frame = %x, want %x", got, second)
		}
		if len(rest) != 0 {
			t.Errorf("rest = %x, want empty", rest)
		}
	})
}

// A frame split across read chunks must survive incremental buffering.
func TestExtractFrameAcrossChunks(t *testing.T) {
	frame := jpeg(10, 11, 12, 13)

	var buf []byte
	for i := 0; i < len(frame); i++ {
		buf = append(buf, frame[i])
		got, rest := extractFrame(buf)
		if i < len(frame)-1 {
			if got != nil {
				t.Fatalf("premature frame at byte %d: %x", i, got)
			}
			buf = rest
			continue
		}
		if !bytes.Equal(got, frame) {
			t.Errorf("frame = %x, want %x", got, frame)
		}
		if len(rest) != 0 {
			t.Errorf("rest = %x, want empty", rest)
		}
	}
}

func TestAuthPacket(t *testing.T) {
	packet := authPacket("bblp", "12345678")

	if len(packet) != 80 {
		t.Fatalf("len = %d, want 80", len(packet))
	}
	if got := binary.LittleEndian.Uint32(packet[0:4]); got != 0x40 {
		t.Errorf("magic1 = %#x, want 0x40", got)
	}
	if got := binary.LittleEndian.Uint32(packet[4:8]); got != 0x3000 {
		t.Errorf("magic2 = %#x, want 0x3000", got)
	}
	for i := 8; i < 16; i++ {
		if packet[i] != 0 {
			t.Errorf("reserved byte %d = %#x, want 0", i, packet[i])
		}
	}
	if !bytes.Equal(packet[16:20], []byte("bblp")) {
		t.Errorf("username = %q", packet[16:48])
	}
	for i := 20; i < 48; i++ {
		if packet[i] != 0 {
			t.Errorf("username padding byte %d = %#x, want 0", i, packet[i])
		}
	}
	if !bytes.Equal(packet[48:56], []byte("12345678")) {
		t.Errorf("access code = %q", packet[48:80])
	}
	for i := 56; i < 80; i++ {
		if packet[i] != 0 {
			t.Errorf("access code padding byte %d = %#x, want 0", i, packet[i])
		}
	}
}
