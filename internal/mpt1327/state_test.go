package mpt1327

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/sdrtrunk-go/decodercore/internal/chmap"
	"github.com/sdrtrunk-go/decodercore/internal/eventbus"
	"github.com/sdrtrunk-go/decodercore/internal/events"
)

func newTestState(chType events.ChannelType) (*DecoderState, *eventbus.Bus) {
	bus := eventbus.New()
	cm := chmap.New(map[int]int64{3: 154000000})
	st := New(Config{
		Source:      "test",
		ChannelType: chType,
		ChannelMap:  cm,
	}, bus)
	return st, bus
}

func TestDecoderState_AckAddsFromIdent(t *testing.T) {
	st, _ := newTestState(events.Standard)
	st.Receive(Message{Valid: true, Type: Ack, From: "1001", To: "2000"})
	assert.Equal(t, []string{"1001"}, st.Idents())
}

func TestDecoderState_GtcAllocatesTrafficChannel(t *testing.T) {
	st, bus := newTestState(events.Standard)

	var got *events.TrafficChannelAllocationEvent
	bus.OnAllocation(func(e events.TrafficChannelAllocationEvent) {
		got = &e
	})

	st.Receive(Message{Valid: true, Type: Gtc, From: "1001", To: "2000", Channel: 3})

	require.NotNil(t, got)
	assert.Equal(t, "3", got.Call.Channel)
	assert.Equal(t, int64(154000000), got.Call.Frequency)
	assert.Equal(t, []string{"1001", "2000"}, st.Idents())
	assert.Equal(t, []string{"1001"}, st.Groups()["2000"])
}

func TestDecoderState_GtcNoContinuationEvent(t *testing.T) {
	st, bus := newTestState(events.Standard)

	continuations := 0
	bus.OnState(func(e events.DecoderStateEvent) {
		if e.Kind == events.Continuation {
			continuations++
		}
	})

	st.Receive(Message{Valid: true, Type: Gtc, From: "1001", To: "2000", Channel: 3})
	assert.Equal(t, 0, continuations)
}

func TestDecoderState_AckEmitsContinuationControl(t *testing.T) {
	st, bus := newTestState(events.Standard)

	var seen []events.StateKind
	bus.OnState(func(e events.DecoderStateEvent) { seen = append(seen, e.Kind) })

	st.Receive(Message{Valid: true, Type: Ack, From: "1001", To: "2000"})
	require.Len(t, seen, 1)
	assert.Equal(t, events.Continuation, seen[0])
}

func TestDecoderState_MaintOnStandardStartsCallAndSetsTimeout(t *testing.T) {
	st, bus := newTestState(events.Standard)

	var calls []events.CallEvent
	var timeouts []events.ChangeChannelTimeoutEvent
	bus.OnCall(func(e events.CallEvent) { calls = append(calls, e) })
	bus.OnTimeout(func(e events.ChangeChannelTimeoutEvent) { timeouts = append(timeouts, e) })

	st.Receive(Message{Valid: true, Type: Maint, To: "2000"})

	require.Len(t, calls, 1)
	assert.Equal(t, "MONITORED TRAFFIC CHANNEL", calls[0].Details)
	require.Len(t, timeouts, 1)
	assert.Equal(t, DefaultCallTimeoutMillis, timeouts[0].Millis)
}

func TestDecoderState_MaintOnTrafficIsNoOp(t *testing.T) {
	st, bus := newTestState(events.Traffic)

	fired := false
	bus.OnCall(func(e events.CallEvent) { fired = true })

	st.Receive(Message{Valid: true, Type: Maint, To: "2000"})
	assert.False(t, fired)
}

func TestDecoderState_ClearEndsCurrentCall(t *testing.T) {
	st, bus := newTestState(events.Standard)

	var states []events.LogicalState
	bus.OnState(func(e events.DecoderStateEvent) { states = append(states, e.State) })

	st.Receive(Message{Valid: true, Type: Clear, Channel: 3})
	require.Len(t, states, 1)
	assert.Equal(t, events.Fade, states[0])
}

func TestDecoderState_ResetEndsCurrentCallOnStandard(t *testing.T) {
	st, bus := newTestState(events.Standard)
	st.Receive(Message{Valid: true, Type: Maint, To: "2000"})

	var ended []events.CallEvent
	bus.OnCall(func(e events.CallEvent) {
		if e.End != 0 {
			ended = append(ended, e)
		}
	})

	st.ReceiveDecoderStateEvent(events.DecoderStateEvent{Kind: events.Reset})
	require.Len(t, ended, 1)
}

func TestDecoderState_AlhUpdatesSiteOnChange(t *testing.T) {
	st, bus := newTestState(events.Standard)

	changes := 0
	bus.OnAttributeChange(func(e events.AttributeChangeEvent) {
		if e.Attribute == events.ChannelSiteNumber {
			changes++
		}
	})

	st.Receive(Message{Valid: true, Type: Alh, SiteID: "1"})
	st.Receive(Message{Valid: true, Type: Alh, SiteID: "1"})
	st.Receive(Message{Valid: true, Type: Alh, SiteID: "2"})

	assert.Equal(t, 2, changes)
}

func TestDecoderState_InvalidMessageIgnored(t *testing.T) {
	st, bus := newTestState(events.Standard)

	fired := false
	bus.OnCall(func(e events.CallEvent) { fired = true })

	st.Receive(Message{Valid: false, Type: Ack, From: "1001"})
	assert.False(t, fired)
	assert.Empty(t, st.Idents())
}

// TestDecoderState_IdentsSetMembership is a property test for the
// "idents observed across ACKI messages (both from and to) end up in the
// sorted idents set" invariant.
func TestDecoderState_IdentsSetMembership(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		st, _ := newTestState(events.Standard)

		identGen := rapid.StringMatching(`[1-9][0-9]{3}`)
		seen := make(map[string]struct{})

		n := rapid.IntRange(0, 20).Draw(rt, "n")
		for i := 0; i < n; i++ {
			from := identGen.Draw(rt, "from")
			to := identGen.Draw(rt, "to")
			seen[from] = struct{}{}
			seen[to] = struct{}{}
			st.Receive(Message{Valid: true, Type: Acki, From: from, To: to})
		}

		for id := range seen {
			found := false
			for _, got := range st.Idents() {
				if got == id {
					found = true
					break
				}
			}
			if !found {
				rt.Fatalf("ident %q missing from Idents()", id)
			}
		}
	})
}

// TestDecoderState_GroupsMembership is a property test for the to-ident ->
// from-idents group table: every (from, to) pair observed via GTC appears
// exactly once in Groups()[to], regardless of duplicate delivery.
func TestDecoderState_GroupsMembership(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		st, _ := newTestState(events.Standard)

		identGen := rapid.StringMatching(`[1-9][0-9]{3}`)
		type pair struct{ from, to string }
		var pairs []pair

		n := rapid.IntRange(0, 20).Draw(rt, "n")
		for i := 0; i < n; i++ {
			p := pair{identGen.Draw(rt, "from"), identGen.Draw(rt, "to")}
			pairs = append(pairs, p)
			st.Receive(Message{Valid: true, Type: Gtc, From: p.from, To: p.to, Channel: 3})
		}

		groups := st.Groups()
		for _, p := range pairs {
			members := groups[p.to]
			count := 0
			for _, m := range members {
				if m == p.from {
					count++
				}
			}
			if count != 1 {
				rt.Fatalf("expected %q in group %q exactly once, found %d times", p.from, p.to, count)
			}
		}
	})
}
