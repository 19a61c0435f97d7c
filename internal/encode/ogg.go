package encode

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	oggHeaderSize  = 27
	oggMaxSegments = 255

	oggFlagContinued = 0x01
	oggFlagBOS       = 0x02
	oggFlagEOS       = 0x04
)

var oggCRCTable = func() [256]uint32 {
	var table [256]uint32
	for i := range table {
		r := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if r&0x80000000 != 0 {
				r = (r << 1) ^ 0x04c11db7
			} else {
				r <<= 1
			}
		}
		table[i] = r
	}
	return table
}()

func oggCRC(page []byte) uint32 {
	var crc uint32
	for _, b := range page {
		crc = (crc << 8) ^ oggCRCTable[byte(crc>>24)^b]
	}
	return crc
}

// oggWriter muxes whole packets into pages of one logical stream. Packets
// never span pages.
type oggWriter struct {
	w      io.Writer
	serial uint32
	seq    uint32

	started bool
	lacing  []byte
	body    bytes.Buffer
	granule int64
}

func newOggWriter(w io.Writer, serial uint32) *oggWriter {
	return &oggWriter{w: w, serial: serial}
}

// writePacket queues packet, whose last sample lands at granule. It flushes
// the open page first when the packet would overflow its lacing table.
func (o *oggWriter) writePacket(packet []byte, granule int64) error {
	segments := lacing(len(packet))
	if len(o.lacing)+len(segments) > oggMaxSegments {
		if err := o.flush(false); err != nil {
			return err
		}
	}
	o.lacing = append(o.lacing, segments...)
	o.body.Write(packet)
	o.granule = granule
	return nil
}

// flush emits the open page; eos marks it as the final page of the stream.
func (o *oggWriter) flush(eos bool) error {
	if len(o.lacing) == 0 && !eos {
		return nil
	}

	var flags byte
	if !o.started {
		flags |= oggFlagBOS
	}
	if eos {
		flags |= oggFlagEOS
	}

	page := make([]byte, oggHeaderSize+len(o.lacing)+o.body.Len())
	copy(page[0:4], "OggS")
	page[4] = 0
	page[5] = flags
	binary.LittleEndian.PutUint64(page[6:14], uint64(o.granule))
	binary.LittleEndian.PutUint32(page[14:18], o.serial)
	binary.LittleEndian.PutUint32(page[18:22], o.seq)
	page[26] = byte(len(o.lacing))
	copy(page[oggHeaderSize:], o.lacing)
	copy(page[oggHeaderSize+len(o.lacing):], o.body.Bytes())
	binary.LittleEndian.PutUint32(page[22:26], oggCRC(page))

	if _, err := o.w.Write(page); err != nil {
		return fmt.Errorf("write ogg page %d: %w", o.seq, err)
	}

	o.started = true
	o.seq++
	o.lacing = o.lacing[:0]
	o.body.Reset()
	return nil
}

func lacing(n int) []byte {
	out := make([]byte, 0, n/255+1)
	for n >= 255 {
		out = append(out, 255)
		n -= 255
	}
	return append(out, byte(n))
}

// OggStream is a demuxed single logical Ogg stream.
type OggStream struct {
	Serial  uint32
	Packets [][]byte
	// Granule is the granule position of the last page.
	Granule int64
	Pages   int
}

// ReadOgg demuxes every page in r, verifying capture patterns and CRCs.
func ReadOgg(r io.Reader) (OggStream, error) {
	var (
		out     OggStream
		partial []byte
		header  = make([]byte, oggHeaderSize)
	)

	for {
		if _, err := io.ReadFull(r, header); err != nil {
			if errors.Is(err, io.EOF) && out.Pages > 0 {
				break
			}
			return OggStream{}, fmt.Errorf("read ogg page header: %w", err)
		}
		if string(header[0:4]) != "OggS" {
			return OggStream{}, fmt.Errorf("page %d: bad capture pattern", out.Pages)
		}

		nsegs := int(header[26])
		table := make([]byte, nsegs)
		if _, err := io.ReadFull(r, table); err != nil {
			return OggStream{}, fmt.Errorf("read ogg lacing: %w", err)
		}
		size := 0
		for _, l := range table {
			size += int(l)
		}
		body := make([]byte, size)
		if _, err := io.ReadFull(r, body); err != nil {
			return OggStream{}, fmt.Errorf("read ogg body: %w", err)
		}

		want := binary.LittleEndian.Uint32(header[22:26])
		check := make([]byte, 0, oggHeaderSize+nsegs+size)
		check = append(check, header...)
		check = append(check, table...)
		check = append(check, body...)
		binary.LittleEndian.PutUint32(check[22:26], 0)
		if got := oggCRC(check); got != want {
			return OggStream{}, fmt.Errorf("page %d: crc %08x, want %08x", out.Pages, got, want)
		}

		if out.Pages == 0 {
			out.Serial = binary.LittleEndian.Uint32(header[14:18])
		}
		if header[5]&oggFlagContinued == 0 && len(partial) > 0 {
			return OggStream{}, fmt.Errorf("page %d: unterminated packet", out.Pages)
		}

		offset := 0
		for _, l := range table {
			partial = append(partial, body[offset:offset+int(l)]...)
			offset += int(l)
			if l < 255 {
				out.Packets = append(out.Packets, partial)
				partial = nil
			}
		}
		out.Granule = int64(binary.LittleEndian.Uint64(header[6:14]))
		out.Pages++
	}

	if len(partial) > 0 {
		return OggStream{}, errors.New("ogg stream ends mid-packet")
	}
	return out, nil
}
