// Package nbfm implements the NBFMDecoder pipeline of spec.md §4.F: it
// wires the FIR filter (B), FM demodulator (C), squelch gate (D), and
// resampler (E) together, reacts to upstream sample-rate events, and emits
// channel-state events onto a DecoderStateBus.
//
// Grounded on the teacher's demod.go/demod_state.go dispatcher-and-state-
// per-channel shape (one struct owning every per-channel DSP stage,
// reacting to a notification callback to lazily (re)build its filter
// chain) and multi_modem.go's fan-out wiring of a single source into
// several per-channel consumers.
package nbfm

import (
	"github.com/charmbracelet/log"

	"github.com/sdrtrunk-go/decodercore/internal/buffer"
	"github.com/sdrtrunk-go/decodercore/internal/corerr"
	"github.com/sdrtrunk-go/decodercore/internal/eventbus"
	"github.com/sdrtrunk-go/decodercore/internal/events"
	"github.com/sdrtrunk-go/decodercore/internal/firdesign"
	"github.com/sdrtrunk-go/decodercore/internal/firfilter"
	"github.com/sdrtrunk-go/decodercore/internal/fmdemod"
	"github.com/sdrtrunk-go/decodercore/internal/metrics"
	"github.com/sdrtrunk-go/decodercore/internal/resample"
)

// OutputSampleRateHz is the fixed resampler target, per spec.md §4.F.
const OutputSampleRateHz = 8000

// Config parameters for a Decoder, per spec.md §6.
type Config struct {
	Source             string
	ChannelBandwidthHz float64
	SquelchAlpha       float64
	SquelchThresholdDB float64
	SquelchRamp        int
	BufferSize         int
	ChunkSize          int

	// Metrics, if non-nil, receives live squelch-state and squelch-transition
	// observations (SPEC_FULL.md component K); nil disables instrumentation.
	// Pool counts are not pushed here; callers poll PoolOutstanding.
	Metrics *metrics.Collector
}

// Decoder owns the per-channel DSP graph and publishes START/CONTINUATION/
// END state events reflecting squelch transitions, per spec.md §4.F.
type Decoder struct {
	cfg Config
	bus *eventbus.Bus

	filterPool *buffer.Pool
	audioPool  *buffer.Pool

	filter    *firfilter.ComplexFilter
	demod     *fmdemod.Demodulator
	resampler *resample.Resampler

	haveRate bool
	rateHz   float64

	squelched bool

	listener resample.Listener
}

// New constructs a Decoder. It performs no DSP work until a sample-rate
// event arrives via the listener returned by SourceEventListener.
func New(cfg Config, bus *eventbus.Bus) *Decoder {
	return &Decoder{
		cfg:        cfg,
		bus:        bus,
		filterPool: buffer.NewPool(buffer.Complex),
		audioPool:  buffer.NewPool(buffer.Real),
	}
}

// SourceEventListener returns a handler for upstream
// NOTIFICATION_SAMPLE_RATE_CHANGE events, per spec.md §4.F. Designing a new
// filter chain at a rate below 2x the configured channel bandwidth is a
// fatal Configuration error (spec.md §7); the returned error is the host's
// to surface, the core never panics or exits for it.
func (d *Decoder) SourceEventListener() func(rateHz float64) *corerr.Error {
	return d.onSampleRateChange
}

func (d *Decoder) onSampleRateChange(rateHz float64) *corerr.Error {
	if d.filter != nil {
		d.filter.Dispose()
		d.filter = nil
	}

	if rateHz < 2*d.cfg.ChannelBandwidthHz {
		return corerr.New(corerr.Configuration, "sample rate below Nyquist of channel bandwidth")
	}

	cutoff := rateHz / 4
	spec := firdesign.Spec{
		SampleRate: rateHz,
		PassEdge:   cutoff - 500,
		StopEdge:   cutoff + 500,
		PassRipple: 0.01,
		StopRipple: 0.028,
		Taps:       101,
	}

	taps, err := firdesign.Remez(spec)
	if err != nil {
		log.Error("FIR design failed, falling back to windowed-sinc", "err", err)
		taps = firdesign.WindowedSinc(rateHz, cutoff, spec.Taps, firdesign.Hamming)
	}

	d.filter = firfilter.New(taps, d.filterPool)
	d.demod = fmdemod.New(fmdemod.Config{
		Alpha:              1.0,
		SquelchAlpha:       d.cfg.SquelchAlpha,
		SquelchThresholdDB: d.cfg.SquelchThresholdDB,
		SquelchRamp:        d.cfg.SquelchRamp,
	}, d.audioPool)

	bufSize, chunkSize := d.cfg.BufferSize, d.cfg.ChunkSize
	if bufSize <= 0 {
		bufSize = 1024
	}
	if chunkSize <= 0 {
		chunkSize = 160
	}
	d.resampler = resample.New(int(rateHz), OutputSampleRateHz, bufSize, chunkSize, d.audioPool)
	d.resampler.SetListener(d.listener)

	d.haveRate = true
	d.rateHz = rateHz
	// A freshly built demodulator/squelch starts in MUTE (squelch.New), so
	// the pipeline must start squelched too; otherwise the first Receive
	// takes the unmuted forwarding branch before step 4 ever observes the
	// mute and corrects it, emitting both a CONTINUATION/CALL and an
	// END/IDLE for a single silent buffer instead of one CONTINUATION/IDLE.
	d.squelched = d.demod.IsMuted()
	return nil
}

// Receive processes one complex input buffer through B -> C -> gate -> E,
// per spec.md §4.F. Precondition: a sample-rate event has already been
// received; otherwise the input is released and Ordering error is
// returned.
func (d *Decoder) Receive(in *buffer.Buffer) *corerr.Error {
	if !d.haveRate {
		in.DecrementUserCount()
		return corerr.New(corerr.Ordering, "receive called before any sample-rate event")
	}

	filtered := d.filter.Filter(in)
	audio := d.demod.Demodulate(filtered)

	squelchChanged := d.demod.IsSquelchChanged()
	d.demod.ClearSquelchChanged()

	if d.cfg.Metrics != nil {
		sq := d.demod.Squelch()
		d.cfg.Metrics.SetSquelchState(d.cfg.Source, int(sq.State()))
		if squelchChanged {
			d.cfg.Metrics.IncSquelchTransition(d.cfg.Source, sq.State().String())
		}
	}

	// 1. Clear squelch on a squelch-changed unmute while already squelched.
	if d.squelched && squelchChanged {
		d.squelched = false
		d.publishState(events.Start, events.CallState)
	}

	// 2/3. Gate forwarding by current squelch state.
	if d.squelched {
		d.publishState(events.Continuation, events.Idle)
		audio.DecrementUserCount()
	} else {
		d.resampler.Resample(audio)
		d.publishState(events.Continuation, events.CallState)
	}

	// 4. If not squelched and the demodulator is now muted, squelch and
	// emit END/IDLE.
	if !d.squelched && d.demod.IsMuted() {
		d.squelched = true
		d.publishState(events.End, events.Idle)
	}

	return nil
}

func (d *Decoder) publishState(kind events.StateKind, state events.LogicalState) {
	d.bus.PublishState(events.DecoderStateEvent{
		ID:     events.NewID(),
		Source: d.cfg.Source,
		Kind:   kind,
		State:  state,
	})
}

// SetBufferListener registers the audio sink for resampled output.
func (d *Decoder) SetBufferListener(l resample.Listener) {
	d.listener = l
	if d.resampler != nil {
		d.resampler.SetListener(l)
	}
}

// RemoveBufferListener deregisters the audio sink.
func (d *Decoder) RemoveBufferListener() {
	d.SetBufferListener(nil)
}

// Reset delegates to the demodulator's reset (clearing phase history and
// squelch state), per spec.md §4.F.
func (d *Decoder) Reset() {
	if d.demod != nil {
		d.demod.Reset()
		// Reset() returns the embedded squelch to MUTE (squelch.Reset), so
		// the decoder's gate must start squelched again too.
		d.squelched = d.demod.IsMuted()
	}
}

// PoolOutstanding reports the number of buffers currently checked out of
// the filter (complex) and audio (real) pools, for callers polling
// nbfm_buffer_pool_outstanding (SPEC_FULL.md component K).
func (d *Decoder) PoolOutstanding() (filterOutstanding, audioOutstanding int) {
	return d.filterPool.Outstanding(), d.audioPool.Outstanding()
}

// Stop tears down the filter and resampler subscriptions, per spec.md §5's
// cancellation contract.
func (d *Decoder) Stop() {
	if d.filter != nil {
		d.filter.Dispose()
		d.filter = nil
	}
	d.RemoveBufferListener()
	d.haveRate = false
}
