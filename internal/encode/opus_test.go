package encode

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"layeh.com/gopus"
)

func TestOggOpusRoundTripPreservesDuration(t *testing.T) {
	const samples = 14400 // 300 ms
	pcm := sinePCM(samples, 440, 48000)

	out, err := OggOpus{}.Encode(pcm, 2, 48000, 1)
	require.NoError(t, err)
	require.Equal(t, "audio/ogg", out.MIME)
	require.Equal(t, ".opus", out.Extension)

	stream, err := ReadOgg(bytes.NewReader(out.Data))
	require.NoError(t, err)
	require.Equal(t, uint32(opusSerial), stream.Serial)
	require.GreaterOrEqual(t, len(stream.Packets), 3)
	require.Equal(t, "OpusHead", string(stream.Packets[0][:8]))
	require.Equal(t, byte(1), stream.Packets[0][9])
	require.Equal(t, uint32(48000), binary.LittleEndian.Uint32(stream.Packets[0][12:16]))
	require.Equal(t, "OpusTags", string(stream.Packets[1][:8]))
	require.Equal(t, int64(opusPreSkip+samples), stream.Granule)

	dec, err := gopus.NewDecoder(48000, 1)
	require.NoError(t, err)
	decoded := 0
	for _, packet := range stream.Packets[2:] {
		frame, err := dec.Decode(packet, 960, false)
		require.NoError(t, err)
		decoded += len(frame)
	}
	require.GreaterOrEqual(t, decoded, samples+opusPreSkip)
	require.Less(t, decoded, samples+opusPreSkip+960)

	duration, err := OpusDuration(out.Data)
	require.NoError(t, err)
	require.Equal(t, 300*time.Millisecond, duration)
}

func TestOggOpusIsDeterministic(t *testing.T) {
	pcm := sinePCM(9600, 1000, 48000)

	first, err := OggOpus{Bitrate: 48000}.Encode(pcm, 2, 48000, 1)
	require.NoError(t, err)
	second, err := OggOpus{Bitrate: 48000}.Encode(append([]byte(nil), pcm...), 2, 48000, 1)
	require.NoError(t, err)
	require.Equal(t, first.Data, second.Data)
}

func TestOggOpusRejectsFormatMismatch(t *testing.T) {
	_, err := OggOpus{}.Encode(make([]byte, 9), 2, 48000, 1)
	require.ErrorIs(t, err, ErrFormatMismatch)

	_, err = OggOpus{}.Encode(make([]byte, 8), 2, 44100, 1)
	require.ErrorIs(t, err, ErrFormatMismatch)
	require.Contains(t, err.Error(), "44100")
}

func TestOggOpusEmptyInputStillValid(t *testing.T) {
	out, err := OggOpus{}.Encode(nil, 2, 48000, 1)
	require.NoError(t, err)

	duration, err := OpusDuration(out.Data)
	require.NoError(t, err)
	require.Zero(t, duration)
}

func TestReadOggDetectsCorruption(t *testing.T) {
	out, err := OggOpus{}.Encode(sinePCM(960, 440, 48000), 2, 48000, 1)
	require.NoError(t, err)

	corrupt := append([]byte(nil), out.Data...)
	corrupt[len(corrupt)-1] ^= 0xFF
	_, err = ReadOgg(bytes.NewReader(corrupt))
	require.Error(t, err)
	require.Contains(t, err.Error(), "crc")

	_, err = ReadOgg(bytes.NewReader([]byte("not an ogg stream at all, definitely")))
	require.Error(t, err)
}

func TestOggWriterSplitsPagesAtLacingLimit(t *testing.T) {
	var buf bytes.Buffer
	w := newOggWriter(&buf, 7)
	packet := bytes.Repeat([]byte{0xAB}, 300) // two lacing values each
	for i := 0; i < 200; i++ {
		require.NoError(t, w.writePacket(packet, int64(i+1)))
	}
	require.NoError(t, w.flush(true))

	stream, err := ReadOgg(&buf)
	require.NoError(t, err)
	require.Len(t, stream.Packets, 200)
	require.Greater(t, stream.Pages, 1)
	require.Equal(t, int64(200), stream.Granule)
	for _, p := range stream.Packets {
		require.Equal(t, packet, p)
	}
}

func TestLacing(t *testing.T) {
	require.Equal(t, []byte{0}, lacing(0))
	require.Equal(t, []byte{100}, lacing(100))
	require.Equal(t, []byte{255, 0}, lacing(255))
	require.Equal(t, []byte{255, 255, 10}, lacing(520))
}
