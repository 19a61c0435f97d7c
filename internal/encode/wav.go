package encode

import (
	"bytes"
	"encoding/binary"
	"io"
)

// WAV wraps PCM in a canonical 44-byte RIFF header.
type WAV struct{}

func (WAV) Encode(pcm []byte, sampleWidth, sampleRate, channels int) (Encoded, error) {
	if err := CheckFormat(pcm, sampleWidth, sampleRate, channels); err != nil {
		return Encoded{}, err
	}

	var buf bytes.Buffer
	buf.Grow(44 + len(pcm))
	if err := WritePCM16WAV(&buf, pcm, sampleRate, channels); err != nil {
		return Encoded{}, err
	}
	return Encoded{Data: buf.Bytes(), MIME: "audio/wav", Extension: ".wav"}, nil
}

// WritePCM16WAV writes raw little-endian PCM bytes with a minimal WAV header.
func WritePCM16WAV(w io.Writer, pcm []byte, sampleRate int, channels int) error {
	if channels <= 0 {
		channels = 1
	}
	const bitsPerSample = 16
	byteRate := sampleRate * channels * (bitsPerSample / 8)
	blockAlign := channels * (bitsPerSample / 8)

	header := make([]byte, 44)
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], uint32(36+len(pcm)))
	copy(header[8:12], "WAVE")
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], uint32(len(pcm)))

	if _, err := w.Write(header); err != nil {
		return err
	}
	_, err := w.Write(pcm)
	return err
}
