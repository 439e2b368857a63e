package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"
)

// ringBufferSize is the number of raw device chunks the lock-free ring
// buffer can hold before the producer starts dropping.
const ringBufferSize = 128

// maxSamplesPerChunk bounds a single device callback's sample count.
const maxSamplesPerChunk = 4096

// underrunThreshold is the number of consecutive dropped chunks that
// constitute a capture underrun (spec.md §4.2 step 1, §7). malgo's
// push-callback model gives us no device-level underrun signal, so a
// sustained run of ring-buffer-full drops is the closest analog: the
// consumer goroutine isn't draining fast enough to keep up with the
// producer. At a 20ms period this is roughly a one-second glitch.
const underrunThreshold = 50

type audioChunk struct {
	samples []float32
	len     int
}

// ringBuffer is a lock-free single-producer single-consumer buffer between
// the malgo audio callback (producer, must never block) and the capture
// goroutine (consumer). Grounded on the teacher's
// internal/audio/capture.go ringBuffer.
type ringBuffer struct {
	chunks    [ringBufferSize]audioChunk
	head      atomic.Uint64
	tail      atomic.Uint64
	dropCount atomic.Uint64

	// consecutiveDrops counts drops since the last successful push or
	// drain, used by processLoop to detect a sustained underrun.
	consecutiveDrops atomic.Uint64
}

func newRingBuffer() *ringBuffer {
	rb := &ringBuffer{}
	for i := range rb.chunks {
		rb.chunks[i].samples = make([]float32, maxSamplesPerChunk)
	}
	return rb
}

func (rb *ringBuffer) push(samples []float32) bool {
	head := rb.head.Load()
	tail := rb.tail.Load()
	if head-tail >= ringBufferSize {
		count := rb.dropCount.Add(1)
		rb.consecutiveDrops.Add(1)
		if count%100 == 0 {
			log.Printf("audio: ring buffer full, dropped %d chunks", count)
		}
		return false
	}
	slot := &rb.chunks[head%ringBufferSize]
	n := copy(slot.samples, samples)
	slot.len = n
	rb.head.Add(1)
	rb.consecutiveDrops.Store(0)
	return true
}

func (rb *ringBuffer) pop() []float32 {
	head := rb.head.Load()
	tail := rb.tail.Load()
	if head == tail {
		return nil
	}
	slot := &rb.chunks[tail%ringBufferSize]
	samples := slot.samples[:slot.len]
	rb.tail.Add(1)
	return samples
}

// drain discards the entire backlog, catching the consumer up with the
// producer. This is the one recovery attempt a sustained underrun gets:
// if the consumer was behind because of a transient stall, a resync lets
// it pick back up with fresh audio instead of chasing stale data forever.
func (rb *ringBuffer) drain() {
	rb.tail.Store(rb.head.Load())
	rb.consecutiveDrops.Store(0)
}

// ErrCaptureClosed is returned by ReadFrame once the capturer has been
// closed and no further frames will arrive.
var ErrCaptureClosed = errors.New("audio: capture closed")

// Capturer adapts malgo's push (callback-driven) microphone API to the
// synchronous one-frame-at-a-time pull the audio loop needs (spec.md §4.2
// step 1). A background goroutine drains the ring buffer, resamples to
// 16kHz mono if the device offered something else, and slices the result
// into fixed FrameSamples chunks delivered over a small buffered channel.
type Capturer struct {
	ctx              *malgo.AllocatedContext
	device           *malgo.Device
	sampleRate       uint32
	deviceSampleRate uint32

	running  atomic.Bool
	ringBuf  *ringBuffer
	frames   chan []int16
	stopChan chan struct{}
	wg       sync.WaitGroup

	resampler *PolyphaseResampler
	leftover  []float32

	// recovering is true once processLoop has spent its one underrun
	// recovery attempt and is waiting to see whether it held.
	recovering atomic.Bool
	// fatalErr is set by processLoop, at most once, strictly before it
	// closes frames; safe to read from ReadFrame without a lock because
	// the close happens-before the receive that observes it closed.
	fatalErr error
}

// NewCapturer initializes the malgo audio context. SampleRate is the
// target rate the caller wants frames delivered at (16000 for Edna).
func NewCapturer(sampleRate int) (*Capturer, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("audio: failed to initialize capture context: %w", err)
	}
	return &Capturer{
		ctx:        ctx,
		sampleRate: uint32(sampleRate),
		ringBuf:    newRingBuffer(),
		frames:     make(chan []int16, 8),
		stopChan:   make(chan struct{}),
	}, nil
}

// Start opens the default capture device and begins filling the frame
// channel consumed by ReadFrame.
func (c *Capturer) Start() error {
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = c.sampleRate
	deviceConfig.PeriodSizeInMilliseconds = FrameMillis

	probe, err := malgo.InitDevice(c.ctx.Context, deviceConfig, malgo.DeviceCallbacks{})
	if err != nil {
		return fmt.Errorf("audio: failed to query capture device: %w", err)
	}
	c.deviceSampleRate = probe.SampleRate()
	probe.Uninit()

	if c.deviceSampleRate != c.sampleRate {
		if c.deviceSampleRate > c.sampleRate {
			c.resampler = NewPolyphaseResampler(int(c.deviceSampleRate), int(c.sampleRate))
			log.Printf("audio: resampling %d Hz -> %d Hz (polyphase)", c.deviceSampleRate, c.sampleRate)
		} else {
			log.Printf("audio: resampling %d Hz -> %d Hz (linear)", c.deviceSampleRate, c.sampleRate)
		}
	}

	onRecvFrames := func(_, input []byte, _ uint32) {
		if !c.running.Load() {
			return
		}
		samples := bytesToFloat32(input)
		if len(samples) > 0 {
			c.ringBuf.push(samples)
		}
	}

	device, err := malgo.InitDevice(c.ctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onRecvFrames})
	if err != nil {
		return fmt.Errorf("audio: failed to initialize capture device: %w", err)
	}
	c.device = device
	c.running.Store(true)

	c.wg.Add(1)
	go c.processLoop()

	if err := device.Start(); err != nil {
		return fmt.Errorf("audio: failed to start capture device: %w", err)
	}
	return nil
}

// processLoop drains the ring buffer, resamples, and slices the result
// into fixed-size frames delivered to the frames channel. It also watches
// for sustained underrun: spec.md §4.2 step 1 calls for one recovery
// attempt followed by a fatal error on a second consecutive failure.
func (c *Capturer) processLoop() {
	defer c.wg.Done()
	defer close(c.frames)

	for {
		select {
		case <-c.stopChan:
			return
		default:
		}

		if c.ringBuf.consecutiveDrops.Load() >= underrunThreshold {
			if !c.recovering.Load() {
				log.Printf("audio: capture underrun detected (%d consecutive dropped chunks), attempting recovery", underrunThreshold)
				c.recovering.Store(true)
				c.ringBuf.drain()
			} else {
				c.fatalErr = fmt.Errorf("audio: capture underrun persisted after recovery attempt")
				return
			}
		}

		samples := c.ringBuf.pop()
		if samples == nil {
			select {
			case <-c.stopChan:
				return
			case <-time.After(time.Millisecond):
			}
			continue
		}
		c.recovering.Store(false)

		cp := make([]float32, len(samples))
		copy(cp, samples)

		if c.resampler != nil {
			cp = c.resampler.Resample(cp)
		} else if c.deviceSampleRate != c.sampleRate && c.deviceSampleRate != 0 {
			cp = ResampleInPlace(cp, int(c.deviceSampleRate), int(c.sampleRate))
		}

		c.leftover = append(c.leftover, cp...)
		for len(c.leftover) >= FrameSamples {
			frame := make([]int16, FrameSamples)
			for i := 0; i < FrameSamples; i++ {
				frame[i] = floatToInt16(c.leftover[i])
			}
			c.leftover = c.leftover[FrameSamples:]

			select {
			case c.frames <- frame:
			case <-c.stopChan:
				return
			}
		}
	}
}

// ReadFrame blocks until the next 20ms frame is ready. It returns
// ErrCaptureClosed once the capturer has been closed and drained, or the
// underrun error processLoop recorded if a sustained capture failure
// survived its one recovery attempt (spec.md §4.2 step 1, §7).
func (c *Capturer) ReadFrame() ([]int16, error) {
	frame, ok := <-c.frames
	if !ok {
		if c.fatalErr != nil {
			return nil, c.fatalErr
		}
		return nil, ErrCaptureClosed
	}
	return frame, nil
}

// Close stops capture and releases all native resources.
func (c *Capturer) Close() {
	c.running.Store(false)
	select {
	case <-c.stopChan:
	default:
		close(c.stopChan)
	}
	c.wg.Wait()

	if c.device != nil {
		c.device.Stop()
		c.device.Uninit()
		c.device = nil
	}
	if c.ctx != nil {
		_ = c.ctx.Uninit()
		c.ctx.Free()
		c.ctx = nil
	}
}

func floatToInt16(f float32) int16 {
	v := f * 32768.0
	if v > 32767 {
		v = 32767
	} else if v < -32768 {
		v = -32768
	}
	return int16(v)
}

func bytesToFloat32(data []byte) []float32 {
	numSamples := len(data) / 4
	samples := make([]float32, numSamples)
	for i := range samples {
		bits := binary.LittleEndian.Uint32(data[i*4:])
		samples[i] = math.Float32frombits(bits)
	}
	return samples
}
