// Package capture implements microphone input with portaudio, resampling
// the device's native rate down to the pipeline rate.
package capture

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
	internalaudio "github.com/oliverbhull/memo-stt/internal/audio"
	internalcapture "github.com/oliverbhull/memo-stt/internal/capture"
)

const (
	// Frames are cut at the pipeline's 20 ms cadence after resampling.
	readBufferFrames = 512
	frameQueueSize   = 256
)

// PortaudioSource captures from the default input device. The portaudio
// runtime is initialized once on first Start and torn down on Terminate.
type PortaudioSource struct {
	mu          sync.Mutex
	initialized bool
	stream      *portaudio.Stream
	frames      chan internalaudio.Frame
	stop        chan struct{}
	done        chan struct{}
	running     bool
	seq         uint8
}

func NewPortaudioSource() *PortaudioSource {
	return &PortaudioSource{}
}

func (s *PortaudioSource) Start() (<-chan internalaudio.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return s.frames, nil
	}

	if !s.initialized {
		if err := portaudio.Initialize(); err != nil {
			return nil, fmt.Errorf("%w: initialize: %v", internalcapture.ErrDeviceUnavailable, err)
		}
		s.initialized = true
	}

	device, err := portaudio.DefaultInputDevice()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", internalcapture.ErrDeviceUnavailable, err)
	}
	nativeRate := int(device.DefaultSampleRate)
	if nativeRate <= 0 {
		nativeRate = internalaudio.SampleRate
	}

	in := make([]int16, readBufferFrames)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(nativeRate), readBufferFrames, in)
	if err != nil {
		return nil, fmt.Errorf("%w: open stream: %v", internalcapture.ErrDeviceUnavailable, err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("%w: start stream: %v", internalcapture.ErrDeviceUnavailable, err)
	}

	s.stream = stream
	s.frames = make(chan internalaudio.Frame, frameQueueSize)
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.running = true
	s.seq = 0

	slog.Info("microphone capture started", "device", device.Name, "native_rate", nativeRate)
	go s.captureLoop(stream, in, nativeRate, s.frames, s.stop, s.done)
	return s.frames, nil
}

// captureLoop reads device buffers, resamples to the pipeline rate and
// cuts the result into fixed-size frames. The resampler keeps its phase
// across reads so chunk boundaries do not distort.
func (s *PortaudioSource) captureLoop(stream *portaudio.Stream, in []int16, nativeRate int, frames chan<- internalaudio.Frame, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	defer close(frames)

	resampler := internalaudio.NewResampler(nativeRate)
	pending := make([]int16, 0, internalaudio.SamplesPerFrame*4)

	for {
		select {
		case <-stop:
			return
		default:
		}

		if err := stream.Read(); err != nil {
			slog.Error("microphone read failed, stopping capture", "error", err)
			return
		}

		pending = append(pending, resampler.Process(in)...)
		for len(pending) >= internalaudio.SamplesPerFrame {
			samples := make([]int16, internalaudio.SamplesPerFrame)
			copy(samples, pending[:internalaudio.SamplesPerFrame])
			pending = pending[internalaudio.SamplesPerFrame:]

			frame := internalaudio.Frame{
				Samples:    samples,
				SampleRate: internalaudio.SampleRate,
				Channels:   1,
				Seq:        s.nextSeq(),
				ReceivedAt: time.Now(),
			}
			select {
			case frames <- frame:
			case <-stop:
				return
			}
		}
	}
}

func (s *PortaudioSource) nextSeq() uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq := s.seq
	s.seq++
	return seq
}

func (s *PortaudioSource) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	stream := s.stream
	stop := s.stop
	done := s.done
	s.stream = nil
	s.mu.Unlock()

	close(stop)
	if err := stream.Abort(); err != nil {
		slog.Debug("stream abort", "error", err)
	}
	<-done
	if err := stream.Close(); err != nil {
		return fmt.Errorf("close stream: %w", err)
	}
	slog.Info("microphone capture stopped")
	return nil
}

func (s *PortaudioSource) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Terminate releases the portaudio runtime. Call once at shutdown.
func (s *PortaudioSource) Terminate() error {
	_ = s.Stop()
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return nil
	}
	s.initialized = false
	return portaudio.Terminate()
}
