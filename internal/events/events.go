// Package events defines the tagged-union event types that flow across the
// DecoderStateBus (spec.md §4.G, §6): DecoderStateEvent, CallEvent,
// TrafficChannelAllocationEvent, ChangeChannelTimeoutEvent, and the
// ChangedAttribute/Metadata payloads.
//
// Grounded on design notes §9's direction to re-express the teacher's
// callback-slot bus (callbacks.go) as a channel-scoped publisher/subscriber
// of statically-known tagged-union events rather than dynamic dispatch.
package events

import "github.com/google/uuid"

// CallEventKind enumerates the CallEvent.Kind values from spec.md §3.
type CallEventKind int

const (
	Register CallEventKind = iota
	Response
	Command
	Status
	Call
	SDM
)

func (k CallEventKind) String() string {
	switch k {
	case Register:
		return "REGISTER"
	case Response:
		return "RESPONSE"
	case Command:
		return "COMMAND"
	case Status:
		return "STATUS"
	case Call:
		return "CALL"
	case SDM:
		return "SDM"
	default:
		return "UNKNOWN"
	}
}

// CallEvent is created when a trigger message is received; the "current"
// call event for a channel may be mutated (ended, updated) before being
// re-published, per spec.md §3.
type CallEvent struct {
	ID        uuid.UUID
	Kind      CallEventKind
	Channel   string
	Frequency int64
	From      string
	To        string
	Details   string
	Start     int64 // unix millis; 0 if unset
	End       int64 // unix millis; 0 while ongoing
}

// EndAt marks the call event ended at the given unix-millis timestamp.
func (c *CallEvent) EndAt(unixMillis int64) {
	c.End = unixMillis
}

// StateKind enumerates DecoderStateEvent.Kind from spec.md §3.
type StateKind int

const (
	Start StateKind = iota
	Continuation
	End
	Reset
	SourceFrequency
	TrafficChannelAllocation
	RequestReset
)

func (k StateKind) String() string {
	switch k {
	case Start:
		return "START"
	case Continuation:
		return "CONTINUATION"
	case End:
		return "END"
	case Reset:
		return "RESET"
	case SourceFrequency:
		return "SOURCE_FREQUENCY"
	case TrafficChannelAllocation:
		return "TRAFFIC_CHANNEL_ALLOCATION"
	case RequestReset:
		return "REQUEST_RESET"
	default:
		return "UNKNOWN"
	}
}

// LogicalState enumerates the decoder's logical state from spec.md §3.
type LogicalState int

const (
	Idle LogicalState = iota
	CallState
	Control
	Fade
)

func (s LogicalState) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case CallState:
		return "CALL"
	case Control:
		return "CONTROL"
	case Fade:
		return "FADE"
	default:
		return "UNKNOWN"
	}
}

// Payload optionally accompanies a DecoderStateEvent: a frequency
// (SOURCE_FREQUENCY) or an allocation descriptor
// (TRAFFIC_CHANNEL_ALLOCATION).
type Payload struct {
	Frequency  int64
	Allocation *CallEvent
}

// DecoderStateEvent is the core state-transition record described in
// spec.md §3/§4.G.
type DecoderStateEvent struct {
	ID      uuid.UUID
	Source  string
	Kind    StateKind
	State   LogicalState
	Payload *Payload
}

// TrafficChannelAllocationEvent wraps a CallEvent describing a newly
// allocated traffic channel, per spec.md §6.
type TrafficChannelAllocationEvent struct {
	Call *CallEvent
}

// ChannelType distinguishes a STANDARD (control) channel from a
// dynamically-allocated TRAFFIC channel, per spec.md §3.
type ChannelType int

const (
	Standard ChannelType = iota
	Traffic
)

// ChangeChannelTimeoutEvent instructs the host to adjust an external fade
// timer; spec.md §5 states timeouts are not implemented inside the core.
type ChangeChannelTimeoutEvent struct {
	ChannelType ChannelType
	Millis      int
}

// ChangedAttribute enumerates which Channel/protocol-state attribute
// changed, for CHANGED_ATTRIBUTE notifications (spec.md §4.H).
type ChangedAttribute int

const (
	ChannelSiteNumber ChangedAttribute = iota
	ChannelNumber
	ChannelFrequency
	FromTalkgroup
	ToTalkgroup
)

func (a ChangedAttribute) String() string {
	switch a {
	case ChannelSiteNumber:
		return "CHANNEL_SITE_NUMBER"
	case ChannelNumber:
		return "CHANNEL_NUMBER"
	case ChannelFrequency:
		return "CHANNEL_FREQUENCY"
	case FromTalkgroup:
		return "FROM_TALKGROUP"
	case ToTalkgroup:
		return "TO_TALKGROUP"
	default:
		return "UNKNOWN"
	}
}

// MetadataType distinguishes the kind of value carried by a Metadata
// record, per spec.md §6.
type MetadataType int

const (
	MetadataFrom MetadataType = iota
	MetadataTo
)

// Metadata is carried separately from CallEvent/DecoderStateEvent, per
// spec.md §6: (type, value, alias?, live).
type Metadata struct {
	Type  MetadataType
	Value string
	Alias string
	Live  bool
}

// AttributeChangeEvent notifies subscribers that a Channel/protocol-state
// attribute changed, per spec.md §4.H's "broadcast the changes"/"publish
// CHANGED_ATTRIBUTE" language and §6's ChangedAttribute payload.
type AttributeChangeEvent struct {
	Attribute ChangedAttribute
	Value     string
}

// NewID generates a fresh event/call identity (component L in
// SPEC_FULL.md), grounded on flowpbx-flowpbx's use of google/uuid for
// domain-entity identifiers.
func NewID() uuid.UUID {
	return uuid.New()
}
