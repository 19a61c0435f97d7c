package encode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"layeh.com/gopus"
)

const (
	opusFrameMs = 20
	// opusPreSkip is libopus' encoder lookahead at 48 kHz.
	opusPreSkip = 312
	// opusGranuleRate is fixed by RFC 7845 regardless of input rate.
	opusGranuleRate = 48000
	opusMaxPacket   = 4000
	opusSerial      = 0x73636370 // "sccp"
	opusVendor      = "scancap"
)

// OggOpus encodes PCM to Opus packets in an Ogg container (RFC 7845).
type OggOpus struct {
	Bitrate int
}

func (o OggOpus) Encode(pcm []byte, sampleWidth, sampleRate, channels int) (Encoded, error) {
	if err := CheckFormat(pcm, sampleWidth, sampleRate, channels); err != nil {
		return Encoded{}, err
	}
	switch sampleRate {
	case 8000, 12000, 16000, 24000, 48000:
	default:
		return Encoded{}, fmt.Errorf("%w: opus cannot encode %d Hz", ErrFormatMismatch, sampleRate)
	}

	// A fresh encoder per call keeps output a pure function of input.
	enc, err := gopus.NewEncoder(sampleRate, channels, gopus.Audio)
	if err != nil {
		return Encoded{}, fmt.Errorf("create opus encoder: %w", err)
	}
	if o.Bitrate > 0 {
		enc.SetBitrate(o.Bitrate)
	}

	samples := bytesToInt16s(pcm)
	total := len(samples) / channels
	frameSize := sampleRate * opusFrameMs / 1000
	granuleScale := int64(opusGranuleRate / sampleRate)
	preSkip := opusPreSkip / int(granuleScale)

	// Pad so the encoder lookahead flushes every real sample.
	frames := (total + preSkip + frameSize - 1) / frameSize
	if frames == 0 {
		frames = 1
	}
	padded := make([]int16, frames*frameSize*channels)
	copy(padded, samples)

	var out bytes.Buffer
	ogg := newOggWriter(&out, opusSerial)
	if err := ogg.writePacket(opusHead(channels, sampleRate), 0); err != nil {
		return Encoded{}, err
	}
	if err := ogg.flush(false); err != nil {
		return Encoded{}, err
	}
	if err := ogg.writePacket(opusTags(), 0); err != nil {
		return Encoded{}, err
	}
	if err := ogg.flush(false); err != nil {
		return Encoded{}, err
	}

	step := frameSize * channels
	for i := 0; i < frames; i++ {
		packet, err := enc.Encode(padded[i*step:(i+1)*step], frameSize, opusMaxPacket)
		if err != nil {
			return Encoded{}, fmt.Errorf("opus encode frame %d: %w", i, err)
		}
		granule := (int64(opusPreSkip) + int64((i+1)*frameSize)*granuleScale)
		if i == frames-1 {
			// End trimming: the last granule marks the true end of audio.
			granule = int64(opusPreSkip) + int64(total)*granuleScale
		}
		if err := ogg.writePacket(packet, granule); err != nil {
			return Encoded{}, err
		}
	}
	if err := ogg.flush(true); err != nil {
		return Encoded{}, err
	}

	return Encoded{Data: out.Bytes(), MIME: "audio/ogg", Extension: ".opus"}, nil
}

func opusHead(channels, inputRate int) []byte {
	head := make([]byte, 19)
	copy(head[0:8], "OpusHead")
	head[8] = 1
	head[9] = byte(channels)
	binary.LittleEndian.PutUint16(head[10:12], opusPreSkip)
	binary.LittleEndian.PutUint32(head[12:16], uint32(inputRate))
	binary.LittleEndian.PutUint16(head[16:18], 0)
	head[18] = 0 // mapping family: mono/stereo
	return head
}

func opusTags() []byte {
	tags := make([]byte, 0, 8+4+len(opusVendor)+4)
	tags = append(tags, "OpusTags"...)
	tags = binary.LittleEndian.AppendUint32(tags, uint32(len(opusVendor)))
	tags = append(tags, opusVendor...)
	tags = binary.LittleEndian.AppendUint32(tags, 0)
	return tags
}

// OpusDuration reads an Ogg Opus stream and returns its playable length.
func OpusDuration(data []byte) (time.Duration, error) {
	stream, err := ReadOgg(bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	if len(stream.Packets) < 2 {
		return 0, fmt.Errorf("ogg opus stream has %d packets, want headers", len(stream.Packets))
	}
	head := stream.Packets[0]
	if len(head) < 19 || string(head[0:8]) != "OpusHead" {
		return 0, fmt.Errorf("missing OpusHead packet")
	}
	preSkip := int64(binary.LittleEndian.Uint16(head[10:12]))
	samples := stream.Granule - preSkip
	if samples < 0 {
		samples = 0
	}
	return time.Duration(samples) * time.Second / opusGranuleRate, nil
}
