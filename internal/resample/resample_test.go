package resample

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/sdrtrunk-go/decodercore/internal/buffer"
)

func TestResampler_ProducesOutputAtTargetRateRatio(t *testing.T) {
	pool := buffer.NewPool(buffer.Real)
	r := New(48000, 8000, 4096, 512, pool)

	var total int
	r.SetListener(func(out *buffer.Buffer) {
		total += out.SampleCount()
		out.DecrementUserCount()
	})

	in := pool.Get(48000)
	r.Resample(in)

	// 48000 Hz -> 8000 Hz over one second of input should yield
	// approximately 8000 output samples (within rounding/filter latency).
	assert.InDelta(t, 8000, total, 50)
}

func TestResampler_ReleasesInputBuffer(t *testing.T) {
	pool := buffer.NewPool(buffer.Real)
	r := New(48000, 8000, 4096, 512, pool)
	r.SetListener(func(out *buffer.Buffer) { out.DecrementUserCount() })

	in := pool.Get(100)
	r.Resample(in)

	assert.Panics(t, func() { in.Samples() })
}
