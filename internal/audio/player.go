package audio

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// decoder matches the Decode functions of the beep format packages.
type decoder func(r io.Reader) (beep.StreamSeekCloser, beep.Format, error)

var decoders = map[string]decoder{
	".wav": func(r io.Reader) (beep.StreamSeekCloser, beep.Format, error) { return wav.Decode(r) },
	".mp3": func(r io.Reader) (beep.StreamSeekCloser, beep.Format, error) {
		return mp3.Decode(io.NopCloser(r))
	},
	".ogg": func(r io.Reader) (beep.StreamSeekCloser, beep.Format, error) {
		return vorbis.Decode(io.NopCloser(r))
	},
}

// speakerLatency is the buffer length handed to speaker.Init.
const speakerLatency = 100 * time.Millisecond

// Player decodes toast sounds once and mixes them into the speaker.
type Player struct {
	logger *slog.Logger

	mu     sync.Mutex
	volume float64
	rate   beep.SampleRate // zero until the speaker is initialised
	sounds map[string]*beep.Buffer
}

// NewPlayer creates a player at full volume. The speaker is opened lazily on the first
// decoded sound.
func NewPlayer(logger *slog.Logger) *Player {
	if logger == nil {
		logger = slog.Default()
	}
	return &Player{
		logger: logger,
		volume: 1.0,
		sounds: make(map[string]*beep.Buffer),
	}
}

// SetVolume sets the playback volume, clamped to [0, 1].
func (p *Player) SetVolume(volume float64) {
	volume = math.Max(0, math.Min(1, volume))

	p.mu.Lock()
	p.volume = volume
	p.mu.Unlock()
}

// GetVolume returns the current volume.
func (p *Player) GetVolume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// Play queues the sound at path on the speaker and returns immediately.
// WAV, OGG and MP3 files are supported.
func (p *Player) Play(path string) error {
	if path == "" {
		return nil
	}

	buf, err := p.load(path)
	if err != nil {
		return err
	}

	p.mu.Lock()
	volume, rate := p.volume, p.rate
	p.mu.Unlock()

	if volume == 0 {
		return nil
	}

	var s beep.Streamer = buf.Streamer(0, buf.Len())
	if src := buf.Format().SampleRate; src != rate {
		s = beep.Resample(4, src, rate, s)
	}
	if volume < 1 {
		s = &effects.Volume{Streamer: s, Base: 2, Volume: volumeExponent(volume)}
	}

	speaker.Play(s)
	return nil
}

// Preload decodes path into the cache so the first toast using it plays without delay.
func (p *Player) Preload(path string) error {
	if path == "" {
		return nil
	}
	if _, err := p.load(path); err != nil {
		return err
	}
	p.logger.Debug("preloaded sound", "path", path)
	return nil
}

// ClearCache drops every decoded sound.
func (p *Player) ClearCache() {
	p.mu.Lock()
	p.sounds = make(map[string]*beep.Buffer)
	p.mu.Unlock()
}

// Close releases the speaker and the cache.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.rate != 0 {
		speaker.Close()
		p.rate = 0
	}
	p.sounds = make(map[string]*beep.Buffer)
}

// load returns the decoded buffer for path, decoding it on first use.
func (p *Player) load(path string) (*beep.Buffer, error) {
	p.mu.Lock()
	buf, ok := p.sounds[path]
	p.mu.Unlock()
	if ok {
		return buf, nil
	}

	ext := strings.ToLower(filepath.Ext(path))
	decode, ok := decoders[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported audio format: %s", ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sound file: %w", err)
	}
	defer func() { _ = f.Close() }()

	stream, format, err := decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	defer func() { _ = stream.Close() }()

	buf = beep.NewBuffer(format)
	buf.Append(stream)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rate == 0 {
		if err := speaker.Init(format.SampleRate, format.SampleRate.N(speakerLatency)); err != nil {
			return nil, fmt.Errorf("failed to initialize speaker: %w", err)
		}
		p.rate = format.SampleRate
		p.logger.Debug("speaker initialized", "sample_rate", int(format.SampleRate))
	}
	p.sounds[path] = buf
	return buf, nil
}

// volumeExponent converts a linear volume in (0, 1] to the base-2 exponent used by
// effects.Volume.
func volumeExponent(volume float64) float64 {
	if volume <= 0 {
		return math.Inf(-1)
	}
	return math.Log2(volume)
}
