// Package demo wires the kernel core to a handful of real host
// peripherals, standing in for the sensor/actuator I/O a bare-metal
// build of this kernel would drive directly: an audio input stream as
// an ADC-sampling interrupt source, and USB hotplug events as an
// asynchronous external event source.
package demo

import (
	"github.com/gordonklaus/portaudio"

	kernel "github.com/doismellburning/corgi/src"
)

// ADCSampler treats a portaudio input stream's callback as a
// free-running ADC sample-ready interrupt: every buffer of samples is
// posted into q, the same way a real ADC ISR would push a completed
// conversion into a queue for a consumer task to Pend on.
type ADCSampler struct {
	k      *kernel.Kernel
	q      *kernel.Queue
	stream *portaudio.Stream
}

// NewADCSampler opens the default input device at sampleRate and
// framesPerBuffer, wiring its callback to Post each buffer (as a
// freshly copied []float32) into q with PostNoSched — audio callbacks
// run on a realtime-priority host thread and must not themselves
// trigger a Go scheduler-visible context switch chain, matching
// spec.md §4.3's PostNoSched batch-mode carve-out.
func NewADCSampler(k *kernel.Kernel, q *kernel.Queue, sampleRate float64, framesPerBuffer int) (*ADCSampler, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}

	a := &ADCSampler{k: k, q: q}
	cb := func(in []float32) {
		sample := make([]float32, len(in))
		copy(sample, in)
		_ = q.Post(sample, len(sample), kernel.QueueFIFO, kernel.PostNoSched)
	}

	stream, err := portaudio.OpenDefaultStream(1, 0, sampleRate, framesPerBuffer, cb)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}
	a.stream = stream
	return a, nil
}

func (a *ADCSampler) Start() error { return a.stream.Start() }
func (a *ADCSampler) Stop() error  { return a.stream.Stop() }

func (a *ADCSampler) Close() error {
	if err := a.stream.Close(); err != nil {
		return err
	}
	return portaudio.Terminate()
}
