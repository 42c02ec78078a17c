package mpt1327

import (
	"sort"
	"strconv"
	"time"

	"github.com/sdrtrunk-go/decodercore/internal/chmap"
	"github.com/sdrtrunk-go/decodercore/internal/eventbus"
	"github.com/sdrtrunk-go/decodercore/internal/events"
)

// DefaultCallTimeoutMillis is used when Config.CallTimeoutMillis is unset.
const DefaultCallTimeoutMillis = 10000

// Config configures a DecoderState, per spec.md §6.
type Config struct {
	Source            string // identity stamped on emitted DecoderStateEvents
	ChannelType       events.ChannelType
	CallTimeoutMillis int
	ChannelMap        *chmap.Map
}

// DecoderState maintains per-channel MPT-1327 trunking state and translates
// messages into CallEvents, DecoderStateEvents, and
// TrafficChannelAllocationEvents on a Bus, per spec.md §4.H.
type DecoderState struct {
	cfg Config
	bus *eventbus.Bus

	siteID        string
	hasSite       bool
	idents        map[string]struct{}
	groups        map[string][]string
	channelNumber int
	frequency     int64
	fromTalkgroup string
	hasFrom       bool
	toTalkgroup   string
	hasTo         bool
	currentCall   *events.CallEvent
}

// New constructs a DecoderState publishing to bus.
func New(cfg Config, bus *eventbus.Bus) *DecoderState {
	if cfg.CallTimeoutMillis == 0 {
		cfg.CallTimeoutMillis = DefaultCallTimeoutMillis
	}
	return &DecoderState{
		cfg:    cfg,
		bus:    bus,
		idents: make(map[string]struct{}),
		groups: make(map[string][]string),
	}
}

// Idents returns the sorted set of observed idents, per spec.md §3.
func (d *DecoderState) Idents() []string {
	out := make([]string, 0, len(d.idents))
	for id := range d.idents {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Groups returns the to-ident -> ordered from-idents membership table.
func (d *DecoderState) Groups() map[string][]string {
	out := make(map[string][]string, len(d.groups))
	for k, v := range d.groups {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func (d *DecoderState) addIdent(id string) {
	if id == "" {
		return
	}
	d.idents[id] = struct{}{}
}

func (d *DecoderState) addGroupMember(to, from string) {
	if to == "" || from == "" {
		return
	}
	for _, existing := range d.groups[to] {
		if existing == from {
			return
		}
	}
	d.groups[to] = append(d.groups[to], from)
}

// Receive accepts only valid messages (spec.md §4.H "Inputs") and dispatches
// per the message-handling table in spec.md §4.H.
func (d *DecoderState) Receive(msg Message) {
	if !msg.Valid {
		return
	}

	switch msg.Type {
	case Ack:
		d.handleAck(msg)
	case Acki:
		d.handleAcki(msg)
	case Ahyc:
		d.handleAhyc(msg)
	case Ahyq:
		d.handleAhyq(msg)
	case Alh:
		d.handleAlh(msg)
	case Gtc:
		d.handleGtc(msg)
	case HeadPlus1, HeadPlus2, HeadPlus3, HeadPlus4:
		d.handleHeadPlus(msg)
	case Clear:
		d.handleClear(msg)
	case Maint:
		d.handleMaint(msg)
	default:
		// No effect.
	}
}

func (d *DecoderState) handleAck(msg Message) {
	d.addIdent(msg.From)

	if msg.Ident1Type == Regi {
		d.publishCall(events.Register, msg.To, msg.From, "REGISTERED ON NETWORK")
	} else {
		label := msg.To
		if label == "" {
			label = msg.From
		}
		d.publishCall(events.Response, msg.From, msg.To, "ACK "+label)
	}
	d.continuationControl()
}

func (d *DecoderState) handleAcki(msg Message) {
	d.addIdent(msg.From)
	d.addIdent(msg.To)
	d.continuationControl()
}

func (d *DecoderState) handleAhyc(msg Message) {
	d.addIdent(msg.To)
	d.publishCall(events.Command, msg.From, msg.To, msg.RequestString)
	d.continuationControl()
}

func (d *DecoderState) handleAhyq(msg Message) {
	d.publishCall(events.Status, msg.From, msg.To, msg.StatusMessage)
	d.continuationControl()
}

func (d *DecoderState) handleAlh(msg Message) {
	if !d.hasSite || d.siteID != msg.SiteID {
		d.siteID = msg.SiteID
		d.hasSite = true
		d.bus.PublishAttributeChange(events.AttributeChangeEvent{
			Attribute: events.ChannelSiteNumber,
			Value:     msg.SiteID,
		})
	}
	d.bus.PublishState(events.DecoderStateEvent{
		ID:     events.NewID(),
		Source: d.cfg.Source,
		Kind:   events.Start,
		State:  events.Control,
	})
	// No CONTINUATION/CONTROL for ALH, per spec.md §4.H.
}

func (d *DecoderState) handleGtc(msg Message) {
	d.addIdent(msg.From)
	d.addIdent(msg.To)
	if msg.From != "" && msg.To != "" {
		d.addGroupMember(msg.To, msg.From)
	}

	freq := d.cfg.ChannelMap.Frequency(msg.Channel)
	call := &events.CallEvent{
		ID:        events.NewID(),
		Kind:      events.Call,
		Channel:   strconv.Itoa(msg.Channel),
		Frequency: freq,
		From:      msg.From,
		To:        msg.To,
	}
	d.bus.PublishAllocation(events.TrafficChannelAllocationEvent{Call: call})
	// No CONTINUATION/CONTROL for GTC, per spec.md §4.H.
}

func (d *DecoderState) handleHeadPlus(msg Message) {
	d.publishCall(events.SDM, msg.From, msg.To, msg.Text)
	d.continuationControl()
}

func (d *DecoderState) handleClear(msg Message) {
	d.channelNumber = msg.Channel
	d.bus.PublishState(events.DecoderStateEvent{
		ID:     events.NewID(),
		Source: d.cfg.Source,
		Kind:   events.End,
		State:  events.Fade,
	})
	// No CONTINUATION/CONTROL for CLEAR, per spec.md §4.H.
}

func (d *DecoderState) handleMaint(msg Message) {
	if d.cfg.ChannelType != events.Standard {
		return
	}

	d.bus.PublishTimeout(events.ChangeChannelTimeoutEvent{
		ChannelType: events.Standard,
		Millis:      d.cfg.CallTimeoutMillis,
	})

	if d.currentCall == nil {
		call := &events.CallEvent{
			ID:      events.NewID(),
			Kind:    events.Call,
			To:      msg.To,
			Details: "MONITORED TRAFFIC CHANNEL",
		}
		d.currentCall = call
		d.bus.PublishCall(*call)
	}

	d.bus.PublishMetadata(events.Metadata{Type: events.MetadataTo, Value: msg.To})

	d.bus.PublishState(events.DecoderStateEvent{
		ID:     events.NewID(),
		Source: d.cfg.Source,
		Kind:   events.Start,
		State:  events.CallState,
	})

	d.toTalkgroup = msg.To
	d.hasTo = true
	// No CONTINUATION/CONTROL for MAINT, per spec.md §4.H / open questions.
}

func (d *DecoderState) publishCall(kind events.CallEventKind, from, to, details string) {
	call := events.CallEvent{
		ID:      events.NewID(),
		Kind:    kind,
		From:    from,
		To:      to,
		Details: details,
	}
	d.bus.PublishCall(call)
}

func (d *DecoderState) continuationControl() {
	d.bus.PublishState(events.DecoderStateEvent{
		ID:     events.NewID(),
		Source: d.cfg.Source,
		Kind:   events.Continuation,
		State:  events.Control,
	})
}

// ReceiveDecoderStateEvent handles RESET, SOURCE_FREQUENCY, and
// TRAFFIC_CHANNEL_ALLOCATION events received from peers on the bus, per
// spec.md §4.H.
func (d *DecoderState) ReceiveDecoderStateEvent(e events.DecoderStateEvent) {
	switch e.Kind {
	case events.Reset:
		d.handleReset()
	case events.SourceFrequency:
		if e.Payload != nil {
			d.frequency = e.Payload.Frequency
		}
	case events.TrafficChannelAllocation:
		if e.Source == d.cfg.Source {
			return // only adopt allocations from a different source
		}
		d.handleAllocation(e)
	}
}

func (d *DecoderState) handleReset() {
	if d.hasFrom {
		d.fromTalkgroup = ""
		d.hasFrom = false
		d.bus.PublishAttributeChange(events.AttributeChangeEvent{Attribute: events.FromTalkgroup})
	}
	if d.hasTo {
		d.toTalkgroup = ""
		d.hasTo = false
		d.bus.PublishAttributeChange(events.AttributeChangeEvent{Attribute: events.ToTalkgroup})
	}

	if d.cfg.ChannelType == events.Standard {
		d.bus.PublishTimeout(events.ChangeChannelTimeoutEvent{
			ChannelType: events.Standard,
			Millis:      d.cfg.CallTimeoutMillis,
		})
		if d.currentCall != nil {
			d.currentCall.EndAt(time.Now().UnixMilli())
			d.bus.PublishCall(*d.currentCall)
			d.currentCall = nil
		}
	}
}

func (d *DecoderState) handleAllocation(e events.DecoderStateEvent) {
	if e.Payload == nil || e.Payload.Allocation == nil {
		return
	}
	call := e.Payload.Allocation

	if n, err := strconv.Atoi(call.Channel); err == nil {
		d.channelNumber = n
		d.bus.PublishAttributeChange(events.AttributeChangeEvent{
			Attribute: events.ChannelNumber,
			Value:     call.Channel,
		})
	}
	// An unparseable channel number is dropped locally, per spec.md §7's
	// "Parse" error kind; the rest of the allocation is still adopted.

	if call.Frequency != 0 {
		d.frequency = call.Frequency
		d.bus.PublishAttributeChange(events.AttributeChangeEvent{
			Attribute: events.ChannelFrequency,
			Value:     strconv.FormatInt(call.Frequency, 10),
		})
	}
	if call.From != "" {
		d.fromTalkgroup = call.From
		d.hasFrom = true
		d.bus.PublishAttributeChange(events.AttributeChangeEvent{
			Attribute: events.FromTalkgroup,
			Value:     call.From,
		})
	}
	if call.To != "" {
		d.toTalkgroup = call.To
		d.hasTo = true
		d.bus.PublishAttributeChange(events.AttributeChangeEvent{
			Attribute: events.ToTalkgroup,
			Value:     call.To,
		})
	}
}
