package cue

import (
	"math"
	"time"

	"github.com/rbright/scancap/internal/audio"
)

type toneSpec struct {
	frequencyHz float64
	duration    time.Duration
}

var cueTones = map[Kind][]toneSpec{
	Found: {
		{frequencyHz: 2400, duration: 90 * time.Millisecond},
	},
	Start: {
		{frequencyHz: 880, duration: 70 * time.Millisecond},
		{frequencyHz: 1175, duration: 70 * time.Millisecond},
	},
	Stop: {
		{frequencyHz: 620, duration: 120 * time.Millisecond},
	},
	Saved: {
		{frequencyHz: 740, duration: 65 * time.Millisecond},
		{frequencyHz: 988, duration: 90 * time.Millisecond},
	},
	Cancel: {
		{frequencyHz: 480, duration: 75 * time.Millisecond},
		{frequencyHz: 360, duration: 90 * time.Millisecond},
	},
}

const toneGap = 22 * time.Millisecond

// Samples renders kind as mono PCM at the recording sample rate.
func Samples(kind Kind, volume float64) []int16 {
	parts := cueTones[kind]
	if len(parts) == 0 || volume <= 0 {
		return nil
	}

	gap := samplesForDuration(toneGap)
	pcm := make([]int16, 0)
	for i, part := range parts {
		pcm = append(pcm, synthesizeTone(part, volume)...)
		if i < len(parts)-1 {
			pcm = append(pcm, make([]int16, gap)...)
		}
	}
	return pcm
}

func synthesizeTone(spec toneSpec, volume float64) []int16 {
	n := samplesForDuration(spec.duration)
	if n <= 0 || spec.frequencyHz <= 0 || volume <= 0 {
		return nil
	}

	// 5ms linear attack/release avoids clicks.
	ramp := min(n/10, audio.SampleRate/200)
	ramp = max(ramp, 1)

	pcm := make([]int16, n)
	for i := 0; i < n; i++ {
		envelope := 1.0
		if i < ramp {
			envelope = float64(i) / float64(ramp)
		}
		if tail := n - i - 1; tail < ramp {
			envelope = math.Min(envelope, float64(tail)/float64(ramp))
		}
		t := float64(i) / audio.SampleRate
		sample := math.Sin(2 * math.Pi * spec.frequencyHz * t)
		pcm[i] = int16(math.Round(sample * volume * envelope * 32767))
	}
	return pcm
}

func samplesForDuration(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Seconds() * audio.SampleRate))
}
