package audio

import (
	"encoding/binary"
	"math"
	"testing"
	"time"
)

func TestToneLengthAndBounds(t *testing.T) {
	pcm := Tone(440, 100*time.Millisecond, 0.5, 8000)
	if len(pcm) != 800*2 {
		t.Fatalf("len = %d, want %d", len(pcm), 1600)
	}

	limit := int16(math.MaxInt16/2) + 1
	var peak int16
	for i := 0; i < len(pcm); i += 2 {
		s := int16(binary.LittleEndian.Uint16(pcm[i:]))
		if s > limit || s < -limit {
			t.Fatalf("sample %d = %d exceeds volume", i/2, s)
		}
		if s > peak {
			peak = s
		}
	}
	if peak < limit/2 {
		t.Fatalf("peak %d too quiet", peak)
	}

	// Faded ends start and finish at silence
	if first := int16(binary.LittleEndian.Uint16(pcm[0:])); first != 0 {
		t.Fatalf("first sample = %d, want 0", first)
	}
	if last := int16(binary.LittleEndian.Uint16(pcm[len(pcm)-2:])); last != 0 {
		t.Fatalf("last sample = %d, want 0", last)
	}
}

func TestToneDegenerate(t *testing.T) {
	if Tone(0, time.Second, 1, 8000) != nil {
		t.Error("zero frequency should render nothing")
	}
	if Tone(440, 0, 1, 8000) != nil {
		t.Error("zero duration should render nothing")
	}
	if Tone(440, time.Second, 1, 0) != nil {
		t.Error("zero sample rate should render nothing")
	}
}

func TestToneClampsVolume(t *testing.T) {
	pcm := Tone(1000, 50*time.Millisecond, 5, 8000)
	for i := 0; i < len(pcm); i += 2 {
		s := int16(binary.LittleEndian.Uint16(pcm[i:]))
		if s == math.MinInt16 {
			t.Fatalf("sample %d overflowed", i/2)
		}
	}
}
