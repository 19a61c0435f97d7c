package audio

import "github.com/rbright/scancap/internal/frame"

// Accumulator collects PCM chunks in arrival order. It is not safe for
// concurrent use; the owning session serializes access.
type Accumulator struct {
	chunks [][]byte
	size   int
}

// Append stores chunk after every chunk appended before it.
func (a *Accumulator) Append(chunk frame.Audio) {
	a.chunks = append(a.chunks, chunk.Data)
	a.size += len(chunk.Data)
}

// Len is the number of chunks appended.
func (a *Accumulator) Len() int {
	return len(a.chunks)
}

// Size is the total PCM byte count.
func (a *Accumulator) Size() int {
	return a.size
}

// Samples is the per-channel sample count at the fixed profile.
func (a *Accumulator) Samples() int {
	return Default.Samples(a.size)
}

// Concat joins all chunks FIFO into a fresh contiguous buffer. Gaps between
// chunks are neither detected nor filled.
func (a *Accumulator) Concat() []byte {
	out := make([]byte, 0, a.size)
	for _, chunk := range a.chunks {
		out = append(out, chunk...)
	}
	return out
}
