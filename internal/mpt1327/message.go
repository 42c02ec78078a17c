// Package mpt1327 implements the MPT-1327 trunking control state of
// spec.md §4.H: a decoder state that consumes decoded MPT1327Messages and
// drives channel-allocation, call-event, and site-tracking transitions,
// grounded on the teacher's ax25_pad.go/digipeater.go "parse frame, extract
// ids, emit derived records" shape and dedupe.go's keyed-list maintenance
// pattern (reused here for the to-ident -> ordered from-idents group table).
package mpt1327

// MessageType enumerates the MPT-1327 message classes in scope, per
// spec.md §3/§GLOSSARY.
type MessageType int

const (
	Ack MessageType = iota
	Acki
	Ahyc
	Ahyq
	Alh
	Gtc
	HeadPlus1
	HeadPlus2
	HeadPlus3
	HeadPlus4
	Clear
	Maint
	Other
)

// Ident1Type enumerates the message's ident1-type field, per spec.md §3.
type Ident1Type int

const (
	Regi Ident1Type = iota
	OtherIdent1
)

// Message is a decoded MPT-1327 signalling message, per spec.md §3.
// Acceptance by MPT1327DecoderState is gated by Valid.
type Message struct {
	Valid         bool
	Type          MessageType
	From          string
	To            string
	Ident1Type    Ident1Type
	Channel       int    // for GTC/CLEAR
	SiteID        string // for ALH
	StatusMessage string
	RequestString string
	Text          string // free-text message, e.g. HEAD_PLUS payload
}
