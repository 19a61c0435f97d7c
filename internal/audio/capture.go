package audio

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/jfreymuth/pulse"
	pulseproto "github.com/jfreymuth/pulse/proto"
	"github.com/rbright/scancap/internal/frame"
)

// chunker regroups arbitrary Pulse writes into fixed-size chunks.
type chunker struct {
	size    int
	pending []byte
}

// push appends b and returns every complete chunk now available.
func (c *chunker) push(b []byte) [][]byte {
	c.pending = append(c.pending, b...)
	var out [][]byte
	for len(c.pending) >= c.size {
		out = append(out, append([]byte(nil), c.pending[:c.size]...))
		c.pending = c.pending[c.size:]
	}
	return out
}

// flush returns the residual whole samples and resets the chunker. A
// trailing partial sample is discarded.
func (c *chunker) flush() []byte {
	n := len(c.pending) - len(c.pending)%Default.FrameBytes()
	var out []byte
	if n > 0 {
		out = append([]byte(nil), c.pending[:n]...)
	}
	c.pending = nil
	return out
}

// Capture streams fixed-size PCM chunks from one selected Pulse source and
// implements frame.AudioSource.
type Capture struct {
	device Device

	client *pulse.Client
	stream *pulse.RecordStream

	chunks chan []byte
	stopCh chan struct{}

	mu      sync.Mutex
	chunker chunker
	stopped bool

	inflight sync.WaitGroup
	bytes    atomic.Int64
	seq      atomic.Int64
}

func newCapture(device Device) *Capture {
	return &Capture{
		device:  device,
		chunks:  make(chan []byte, 128),
		stopCh:  make(chan struct{}),
		chunker: chunker{size: chunkSizeBytes},
	}
}

// StartCapture opens a 48 kHz mono s16 record stream on selected. The
// stream stops when ctx ends.
func StartCapture(ctx context.Context, selected Device) (*Capture, error) {
	client, err := newPulseClient()
	if err != nil {
		return nil, err
	}

	source, err := client.SourceByID(selected.ID)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("resolve source %q: %w", selected.ID, err)
	}

	capture := newCapture(selected)
	capture.client = client

	stream, err := client.NewRecord(
		pulse.NewWriter(capture, pulseproto.FormatInt16LE),
		pulse.RecordSource(source),
		pulse.RecordMono,
		pulse.RecordSampleRate(SampleRate),
		pulse.RecordBufferFragmentSize(chunkSizeBytes),
		pulse.RecordMediaName("scancap recording"),
	)
	if err != nil {
		capture.Close()
		return nil, fmt.Errorf("create pulse record stream: %w", err)
	}
	capture.stream = stream
	stream.Start()

	context.AfterFunc(ctx, func() { _ = capture.Stop() })
	return capture, nil
}

// Device returns capture metadata for logging and diagnostics.
func (c *Capture) Device() Device {
	return c.device
}

// Next blocks for the next PCM chunk. After Stop, buffered chunks are still
// returned in order; once they are drained Next reports frame.ErrEndOfStream.
func (c *Capture) Next(ctx context.Context) (frame.Audio, error) {
	select {
	case <-ctx.Done():
		return frame.Audio{}, ctx.Err()
	case chunk, ok := <-c.chunks:
		if !ok {
			return frame.Audio{}, frame.ErrEndOfStream
		}
		return frame.Audio{Seq: c.seq.Add(1), Data: chunk}, nil
	}
}

// BytesCaptured reports total bytes accepted from Pulse.
func (c *Capture) BytesCaptured() int64 {
	return c.bytes.Load()
}

// Stop halts the stream, queues the residual partial chunk, and ends Next.
// It is idempotent.
func (c *Capture) Stop() error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}
	c.stopped = true
	close(c.stopCh)
	c.mu.Unlock()

	if c.stream != nil {
		c.stream.Stop()
		c.stream.Close()
	}
	if c.client != nil {
		c.client.Close()
	}

	// No Write runs past this point, so the chunker is ours.
	c.inflight.Wait()

	if residual := c.chunker.flush(); len(residual) > 0 {
		select {
		case c.chunks <- residual:
		default:
		}
	}
	close(c.chunks)
	return nil
}

// Close is Stop without the error.
func (c *Capture) Close() {
	_ = c.Stop()
}

// Write receives raw Pulse PCM. It returns io.EOF once stopped, which ends
// the record stream.
func (c *Capture) Write(buffer []byte) (int, error) {
	if len(buffer) == 0 {
		return 0, nil
	}

	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return 0, io.EOF
	}
	// Add under mu so Stop's Wait cannot miss an in-flight write.
	c.inflight.Add(1)
	chunks := c.chunker.push(buffer)
	c.mu.Unlock()
	defer c.inflight.Done()

	c.bytes.Add(int64(len(buffer)))

	for _, chunk := range chunks {
		select {
		case <-c.stopCh:
			return 0, io.EOF
		case c.chunks <- chunk:
		}
	}
	return len(buffer), nil
}
