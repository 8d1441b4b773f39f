package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/gen2brain/malgo"

	"markestedt/sonarkey/config"
)

const (
	cueSampleRate = 44100
	cueChannels   = 1
	fadeDuration  = 5 * time.Millisecond
)

// Cue plays a short tone when the combination engages
type Cue struct {
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device

	mu   sync.Mutex
	tone []byte // 16-bit PCM samples
	pos  int    // playback offset, len(tone) when idle
}

// NewCue creates a cue with a pre-started playback device
func NewCue(cfg config.CueConfig) (*Cue, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize malgo context: %w", err)
	}

	tone := Tone(cfg.FrequencyHz, time.Duration(cfg.DurationMs)*time.Millisecond, cfg.Volume, cueSampleRate)
	c := &Cue{
		malgoCtx: ctx,
		tone:     tone,
		pos:      len(tone),
	}

	// Keep the device running so playback starts without delay
	if err := c.initDevice(); err != nil {
		ctx.Uninit()
		ctx.Free()
		return nil, fmt.Errorf("failed to initialize audio device: %w", err)
	}

	return c, nil
}

func (c *Cue) initDevice() error {
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatS16
	deviceConfig.Playback.Channels = cueChannels
	deviceConfig.SampleRate = cueSampleRate
	deviceConfig.Alsa.NoMMap = 1

	// Data callback - writes the remaining tone, silence otherwise
	onData := func(pOutputSample, pInputSamples []byte, framecount uint32) {
		c.mu.Lock()
		n := copy(pOutputSample, c.tone[c.pos:])
		c.pos += n
		c.mu.Unlock()

		clear(pOutputSample[n:])
	}

	var err error
	c.device, err = malgo.InitDevice(c.malgoCtx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: onData,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize device: %w", err)
	}

	if err := c.device.Start(); err != nil {
		c.device.Uninit()
		c.device = nil
		return fmt.Errorf("failed to start device: %w", err)
	}

	return nil
}

// Play restarts the tone from the beginning. It does not block.
func (c *Cue) Play() {
	c.mu.Lock()
	c.pos = 0
	c.mu.Unlock()
}

// Close releases resources
func (c *Cue) Close() error {
	if c.device != nil {
		c.device.Stop()
		c.device.Uninit()
		c.device = nil
	}

	if c.malgoCtx != nil {
		_ = c.malgoCtx.Uninit()
		c.malgoCtx.Free()
		c.malgoCtx = nil
	}

	return nil
}

// Tone renders a mono sine tone as 16-bit little-endian PCM with short fades
// at both ends to avoid clicks. Volume is clamped to [0, 1].
func Tone(freq float64, duration time.Duration, volume float64, sampleRate uint32) []byte {
	if duration <= 0 || freq <= 0 || sampleRate == 0 {
		return nil
	}
	volume = math.Max(0, math.Min(1, volume))

	samples := int(int64(duration) * int64(sampleRate) / int64(time.Second))
	fade := int(int64(fadeDuration) * int64(sampleRate) / int64(time.Second))
	if fade > samples/2 {
		fade = samples / 2
	}

	buf := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		amp := volume
		switch {
		case fade > 0 && i < fade:
			amp *= float64(i) / float64(fade)
		case fade > 0 && i >= samples-fade:
			amp *= float64(samples-1-i) / float64(fade)
		}

		v := amp * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(int16(v*math.MaxInt16)))
	}

	return buf
}
