package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

const bytesPerSample = 4

// Read renders whole frames into p as interleaved little endian float32
// samples. It is the render path of the oto backend.
func (s *Synth) Read(p []byte) (int, error) {
	channels := len(s.buf)
	if channels == 0 {
		return 0, nil
	}
	frameSize := channels * bytesPerSample
	frames := len(p) / frameSize
	off := 0
	for start := 0; start < frames; start += s.blockSize {
		n := min(s.blockSize, frames-start)
		s.renderBlock(s.buf, 0, n)
		for i := 0; i < n; i++ {
			for c := 0; c < channels; c++ {
				binary.LittleEndian.PutUint32(p[off:], math.Float32bits(float32(s.buf[c][i])))
				off += bytesPerSample
			}
		}
	}
	return off, nil
}

// OtoOutput plays a synth through oto.
type OtoOutput struct {
	mu      sync.Mutex
	ctx     *oto.Context
	player  *oto.Player
	started bool
}

func NewOtoOutput(synth *Synth) (*OtoOutput, error) {
	op := &oto.NewContextOptions{
		SampleRate:   int(synth.SampleRate()),
		ChannelCount: synth.NumChannels(),
		Format:       oto.FormatFloat32LE,
		BufferSize:   bufferDuration(synth.BlockSize(), synth.SampleRate()),
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("create oto context: %w", err)
	}
	<-ready
	return &OtoOutput{
		ctx:    ctx,
		player: ctx.NewPlayer(synth),
	}, nil
}

func (o *OtoOutput) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.started {
		o.player.Play()
		o.started = true
	}
	return o.player.Err()
}

func (o *OtoOutput) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = false
	return o.player.Close()
}

// bufferDuration is the length of two blocks, the latency oto should aim for.
func bufferDuration(blockSize int, sampleRate float64) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(2*blockSize) / sampleRate * float64(time.Second))
}
