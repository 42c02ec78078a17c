// Package eventbus implements the DecoderStateBus of spec.md §4.G: a
// single-threaded, synchronous, channel-scoped publisher that delivers each
// event kind to its statically-known consumer roles in registration order.
//
// The teacher's callbacks.go registers a single Go function variable that a
// cgo call site invokes; here we keep that same "late-bound slot per role"
// shape but make the roles an exhaustive Go type rather than an
// unsafe.Pointer callback, per design notes §9.
package eventbus

import "github.com/sdrtrunk-go/decodercore/internal/events"

// StateListener receives DecoderStateEvents.
type StateListener func(events.DecoderStateEvent)

// CallListener receives CallEvents.
type CallListener func(events.CallEvent)

// AllocationListener receives TrafficChannelAllocationEvents.
type AllocationListener func(events.TrafficChannelAllocationEvent)

// TimeoutListener receives ChangeChannelTimeoutEvents.
type TimeoutListener func(events.ChangeChannelTimeoutEvent)

// MetadataListener receives Metadata records.
type MetadataListener func(events.Metadata)

// AttributeListener receives AttributeChangeEvents.
type AttributeListener func(events.AttributeChangeEvent)

// Bus is a single channel's event dispatcher. It is not safe to share across
// channels/goroutines; each channel owns exactly one Bus on its own
// dispatcher thread, per spec.md §5.
type Bus struct {
	stateListeners      []StateListener
	callListeners       []CallListener
	allocationListeners []AllocationListener
	timeoutListeners    []TimeoutListener
	metadataListeners   []MetadataListener
	attributeListeners  []AttributeListener
}

// New constructs an empty Bus.
func New() *Bus {
	return &Bus{}
}

// OnState registers a state-event listener, appended after any previously
// registered ones (registration order is delivery order).
func (b *Bus) OnState(l StateListener) { b.stateListeners = append(b.stateListeners, l) }

// OnCall registers a call-event listener.
func (b *Bus) OnCall(l CallListener) { b.callListeners = append(b.callListeners, l) }

// OnAllocation registers a traffic-channel-allocation listener.
func (b *Bus) OnAllocation(l AllocationListener) {
	b.allocationListeners = append(b.allocationListeners, l)
}

// OnTimeout registers a channel-timeout listener.
func (b *Bus) OnTimeout(l TimeoutListener) { b.timeoutListeners = append(b.timeoutListeners, l) }

// OnMetadata registers a metadata listener.
func (b *Bus) OnMetadata(l MetadataListener) { b.metadataListeners = append(b.metadataListeners, l) }

// OnAttributeChange registers a changed-attribute listener.
func (b *Bus) OnAttributeChange(l AttributeListener) {
	b.attributeListeners = append(b.attributeListeners, l)
}

// PublishState delivers a DecoderStateEvent synchronously, in registration
// order, to every registered state listener.
func (b *Bus) PublishState(e events.DecoderStateEvent) {
	for _, l := range b.stateListeners {
		l(e)
	}
}

// PublishCall delivers a CallEvent synchronously to every registered call
// listener.
func (b *Bus) PublishCall(e events.CallEvent) {
	for _, l := range b.callListeners {
		l(e)
	}
}

// PublishAllocation delivers a TrafficChannelAllocationEvent synchronously.
func (b *Bus) PublishAllocation(e events.TrafficChannelAllocationEvent) {
	for _, l := range b.allocationListeners {
		l(e)
	}
}

// PublishTimeout delivers a ChangeChannelTimeoutEvent synchronously.
func (b *Bus) PublishTimeout(e events.ChangeChannelTimeoutEvent) {
	for _, l := range b.timeoutListeners {
		l(e)
	}
}

// PublishMetadata delivers a Metadata record synchronously.
func (b *Bus) PublishMetadata(e events.Metadata) {
	for _, l := range b.metadataListeners {
		l(e)
	}
}

// PublishAttributeChange delivers an AttributeChangeEvent synchronously.
func (b *Bus) PublishAttributeChange(e events.AttributeChangeEvent) {
	for _, l := range b.attributeListeners {
		l(e)
	}
}
