// nbfmdecode is a demonstration CLI wiring the NBFM+MPT-1327 core together:
// a control channel decoder consumes a raw complex sample file and a
// newline-delimited message fixture, and dynamically-allocated traffic
// channels are spun up as allocation events arrive, each run on its own
// goroutine coordinated by an errgroup. It exercises components F, G, H,
// and I end-to-end in one runnable binary; it is not the higher-level
// multi-site scanning application spec.md's Non-goals exclude.
package main

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/sdrtrunk-go/decodercore/internal/buffer"
	"github.com/sdrtrunk-go/decodercore/internal/chmap"
	"github.com/sdrtrunk-go/decodercore/internal/config"
	"github.com/sdrtrunk-go/decodercore/internal/eventbus"
	"github.com/sdrtrunk-go/decodercore/internal/events"
	"github.com/sdrtrunk-go/decodercore/internal/metrics"
	"github.com/sdrtrunk-go/decodercore/internal/mpt1327"
	"github.com/sdrtrunk-go/decodercore/internal/nbfm"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := pflag.StringP("config", "c", "", "path to configuration file (YAML)")
	iqPath := pflag.StringP("iq-file", "i", "", "path to a raw interleaved complex64 (I/Q float32) sample file")
	sampleRate := pflag.Float64P("sample-rate", "r", 50000, "input sample rate in Hz")
	messagesPath := pflag.StringP("messages-file", "m", "", "path to a pipe-delimited MPT-1327 message fixture, one per line")
	help := pflag.BoolP("help", "h", false, "display help text")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - demonstration NBFM/MPT-1327 decoder harness.\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help {
		pflag.Usage()
		return 0
	}
	if *iqPath == "" {
		fmt.Fprintln(os.Stderr, "error: --iq-file is required")
		pflag.Usage()
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load configuration", "err", err)
		return 1
	}

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	controlBus := eventbus.New()
	cm := chmapFrom(cfg.ChannelMap)
	state := mpt1327.New(mpt1327.Config{
		Source:            "control",
		ChannelType:       events.Standard,
		CallTimeoutMillis: cfg.CallTimeoutMillis,
		ChannelMap:        cm,
	}, controlBus)

	wireLogging(controlBus, collector, "control")
	wireTrafficAllocation(gCtx, g, controlBus, cfg, collector)

	decoder := nbfm.New(nbfm.Config{
		Source:             "control",
		ChannelBandwidthHz: cfg.ChannelBandwidthHz,
		SquelchAlpha:       cfg.Squelch.Alpha,
		SquelchThresholdDB: cfg.Squelch.ThresholdDB,
		SquelchRamp:        cfg.Squelch.Ramp,
		BufferSize:         1024,
		ChunkSize:          160,
		Metrics:            collector,
	}, controlBus)

	if cerr := decoder.SourceEventListener()(*sampleRate); cerr != nil {
		log.Error("sample-rate setup failed", "err", cerr)
		return 1
	}

	if *messagesPath != "" {
		g.Go(func() error { return feedMessages(gCtx, *messagesPath, state) })
	}
	g.Go(func() error { return feedIQ(gCtx, *iqPath, decoder) })
	g.Go(func() error { return pollPoolMetrics(gCtx, decoder, collector) })

	if err := g.Wait(); err != nil && gCtx.Err() == nil {
		log.Error("nbfmdecode exited with error", "err", err)
		return 1
	}

	log.Info("nbfmdecode stopped")
	return 0
}

func chmapFrom(table map[string]int64) *chmap.Map {
	out := make(map[int]int64, len(table))
	for k, v := range table {
		n, err := strconv.Atoi(k)
		if err != nil {
			continue
		}
		out[n] = v
	}
	return chmap.New(out)
}

// wireLogging registers bus listeners that log every event via
// charmbracelet/log and update the metrics collector, grounded on
// dantte-lp-gobfd's main.go logging-at-every-lifecycle-point style.
func wireLogging(bus *eventbus.Bus, collector *metrics.Collector, source string) {
	bus.OnCall(func(e events.CallEvent) {
		collector.IncCallEvent(e.Kind.String())
		log.Info("call event", "source", source, "kind", e.Kind, "from", e.From, "to", e.To, "details", e.Details)
	})
	bus.OnState(func(e events.DecoderStateEvent) {
		log.Debug("state event", "source", source, "kind", e.Kind, "state", e.State)
	})
	bus.OnAllocation(func(e events.TrafficChannelAllocationEvent) {
		collector.IncTrafficAllocation()
		log.Info("traffic channel allocation", "source", source, "channel", e.Call.Channel, "frequency", e.Call.Frequency)
	})
	bus.OnTimeout(func(e events.ChangeChannelTimeoutEvent) {
		log.Debug("channel timeout change", "source", source, "type", e.ChannelType, "millis", e.Millis)
	})
}

// wireTrafficAllocation spins up a goroutine per dynamically-allocated
// traffic channel: each control-bus TrafficChannelAllocationEvent gets a
// fresh per-channel bus with logging listeners and a TRAFFIC
// mpt1327.DecoderState, per SPEC_FULL.md's component M. No nbfm.Decoder is
// created and the allocation event is not republished on the traffic bus;
// each traffic channel's lifetime is purely a logging demonstration here, as
// no second sample source is available in this harness.
func wireTrafficAllocation(ctx context.Context, g *errgroup.Group, controlBus *eventbus.Bus, cfg *config.Config, collector *metrics.Collector) {
	controlBus.OnAllocation(func(e events.TrafficChannelAllocationEvent) {
		call := e.Call
		g.Go(func() error {
			trafficBus := eventbus.New()
			wireLogging(trafficBus, collector, "traffic-"+call.Channel)

			trafficBus.OnAttributeChange(func(a events.AttributeChangeEvent) {
				log.Debug("traffic channel attribute changed", "channel", call.Channel, "attribute", a.Attribute, "value", a.Value)
			})

			mpt1327.New(mpt1327.Config{
				Source:            "traffic-" + call.Channel,
				ChannelType:       events.Traffic,
				CallTimeoutMillis: cfg.CallTimeoutMillis,
			}, trafficBus)

			<-ctx.Done()
			return nil
		})
	})
}

// pollPoolMetrics periodically samples the decoder's buffer pools so
// nbfm_buffer_pool_outstanding reflects live pipeline state rather than
// sitting at zero forever, grounded on dantte-lp-gobfd's runWatchdog
// ticker-plus-ctx.Done select loop.
func pollPoolMetrics(ctx context.Context, decoder *nbfm.Decoder, collector *metrics.Collector) error {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			filterOutstanding, audioOutstanding := decoder.PoolOutstanding()
			collector.SetBufferPoolOutstanding("filter", filterOutstanding)
			collector.SetBufferPoolOutstanding("audio", audioOutstanding)
		}
	}
}

// feedIQ reads an interleaved little-endian float32 complex sample file in
// fixed-size chunks and delivers each as a pooled complex Buffer.
func feedIQ(ctx context.Context, path string, decoder *nbfm.Decoder) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open iq file: %w", err)
	}
	defer f.Close()

	const chunkSamples = 512
	pool := buffer.NewPool(buffer.Complex)
	r := bufio.NewReader(f)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		b := pool.Get(chunkSamples)
		n, err := readComplexChunk(r, b)
		if n > 0 {
			if cerr := decoder.Receive(b); cerr != nil {
				return fmt.Errorf("decoder receive: %w", cerr)
			}
		} else {
			b.DecrementUserCount()
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read iq file: %w", err)
		}
	}
}

func readComplexChunk(r *bufio.Reader, b *buffer.Buffer) (int, error) {
	samples := b.Samples()
	read := 0
	for i := range samples {
		var v float32
		if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
			return read / 2, err
		}
		samples[i] = v
		read++
	}
	return read / 2, nil
}

// feedMessages reads pipe-delimited MPT-1327 message fixture lines of the
// form "TYPE|FROM|TO|CHANNEL|SITEID|TEXT" and delivers each to state.
func feedMessages(ctx context.Context, path string, state *mpt1327.DecoderState) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open messages file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		msg, err := parseMessage(line)
		if err != nil {
			log.Debug("dropped unparseable message fixture line", "line", line, "err", err)
			continue
		}
		state.Receive(msg)
	}
	return scanner.Err()
}

func parseMessage(line string) (mpt1327.Message, error) {
	fields := strings.Split(line, "|")
	if len(fields) < 6 {
		return mpt1327.Message{}, fmt.Errorf("expected 6 pipe-delimited fields, got %d", len(fields))
	}

	msgType, ok := messageTypes[fields[0]]
	if !ok {
		return mpt1327.Message{}, fmt.Errorf("unknown message type %q", fields[0])
	}

	channel, _ := strconv.Atoi(fields[3])
	return mpt1327.Message{
		Valid:         true,
		Type:          msgType,
		From:          fields[1],
		To:            fields[2],
		Ident1Type:    mpt1327.OtherIdent1,
		Channel:       channel,
		SiteID:        fields[4],
		StatusMessage: fields[5],
		RequestString: fields[5],
		Text:          fields[5],
	}, nil
}

var messageTypes = map[string]mpt1327.MessageType{
	"ACK":        mpt1327.Ack,
	"ACKI":       mpt1327.Acki,
	"AHYC":       mpt1327.Ahyc,
	"AHYQ":       mpt1327.Ahyq,
	"ALH":        mpt1327.Alh,
	"GTC":        mpt1327.Gtc,
	"HEAD_PLUS1": mpt1327.HeadPlus1,
	"HEAD_PLUS2": mpt1327.HeadPlus2,
	"HEAD_PLUS3": mpt1327.HeadPlus3,
	"HEAD_PLUS4": mpt1327.HeadPlus4,
	"CLEAR":      mpt1327.Clear,
	"MAINT":      mpt1327.Maint,
}
