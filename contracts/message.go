package contracts

import (
	"fmt"
)

// Command flag bits of the Diameter header
const (
	FlagRequest    uint8 = 0x80
	FlagProxiable  uint8 = 0x40
	FlagError      uint8 = 0x20
	FlagRetransmit uint8 = 0x10
)

// AVP flag bits
const (
	AVPFlagVendor    uint8 = 0x80
	AVPFlagMandatory uint8 = 0x40
	AVPFlagPrivate   uint8 = 0x20
)

// Version is the only Diameter protocol version supported
const Version uint8 = 1

// Header is the fixed part of a Diameter message
type Header struct {
	Version       uint8  `json:"version"`
	CommandFlags  uint8  `json:"commandFlags"`
	CommandCode   uint32 `json:"commandCode"`
	ApplicationID uint32 `json:"applicationId"`
	HopByHopID    uint32 `json:"hopByHopId"`
	EndToEndID    uint32 `json:"endToEndId"`
}

// IsRequest reports whether the R bit is set
func (h Header) IsRequest() bool {
	return h.CommandFlags&FlagRequest != 0
}

// IsProxiable reports whether the P bit is set
func (h Header) IsProxiable() bool {
	return h.CommandFlags&FlagProxiable != 0
}

// IsError reports whether the E bit is set
func (h Header) IsError() bool {
	return h.CommandFlags&FlagError != 0
}

// IsRetransmit reports whether the T bit is set
func (h Header) IsRetransmit() bool {
	return h.CommandFlags&FlagRetransmit != 0
}

// SetRequest sets or clears the R bit
func (h *Header) SetRequest(on bool) {
	h.setFlag(FlagRequest, on)
}

// SetProxiable sets or clears the P bit
func (h *Header) SetProxiable(on bool) {
	h.setFlag(FlagProxiable, on)
}

// SetError sets or clears the E bit
func (h *Header) SetError(on bool) {
	h.setFlag(FlagError, on)
}

// SetRetransmit sets or clears the T bit
func (h *Header) SetRetransmit(on bool) {
	h.setFlag(FlagRetransmit, on)
}

func (h *Header) setFlag(flag uint8, on bool) {
	if on {
		h.CommandFlags |= flag
	} else {
		h.CommandFlags &^= flag
	}
}

// AVP is a single attribute-value pair. Data holds the encoded payload.
type AVP struct {
	Code     uint32 `json:"code"`
	Flags    uint8  `json:"flags,omitempty"`
	VendorID uint32 `json:"vendorId,omitempty"`
	Data     []byte `json:"data,omitempty"`
}

// Message is a Diameter request or answer
type Message struct {
	Header Header `json:"header"`
	AVPs   []AVP  `json:"avps,omitempty"`
}

// NewMessage creates an empty message with the protocol version set
func NewMessage() *Message {
	return &Message{Header: Header{Version: Version}}
}

// NewRequest creates a request for the given application and command
func NewRequest(applicationID, commandCode uint32) *Message {
	msg := NewMessage()
	msg.Header.ApplicationID = applicationID
	msg.Header.CommandCode = commandCode
	msg.Header.SetRequest(true)
	return msg
}

// NewAnswer prepares an answer to req. The answer carries the same command
// code, application and identifiers so engines can match it; the R and T bits
// are cleared and the P bit is copied.
func NewAnswer(req *Message) *Message {
	answer := NewMessage()
	answer.Header.CommandCode = req.Header.CommandCode
	answer.Header.ApplicationID = req.Header.ApplicationID
	answer.Header.HopByHopID = req.Header.HopByHopID
	answer.Header.EndToEndID = req.Header.EndToEndID
	answer.Header.SetProxiable(req.Header.IsProxiable())
	return answer
}

// IsRequest reports whether the message is a request
func (m *Message) IsRequest() bool {
	return m != nil && m.Header.IsRequest()
}

// Add appends an AVP
func (m *Message) Add(avp AVP) {
	m.AVPs = append(m.AVPs, avp)
}

// Find returns the first AVP with the given code
func (m *Message) Find(code uint32) (AVP, bool) {
	for _, avp := range m.AVPs {
		if avp.Code == code {
			return avp, true
		}
	}
	return AVP{}, false
}

// Clone returns a deep copy of the message
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	c := &Message{Header: m.Header}
	if len(m.AVPs) > 0 {
		c.AVPs = make([]AVP, len(m.AVPs))
		for i, avp := range m.AVPs {
			c.AVPs[i] = avp
			if avp.Data != nil {
				c.AVPs[i].Data = append([]byte(nil), avp.Data...)
			}
		}
	}
	return c
}

// String returns a short human readable description
func (m *Message) String() string {
	if m == nil {
		return "<nil>"
	}
	kind := "answer"
	if m.Header.IsRequest() {
		kind = "request"
	}
	return fmt.Sprintf("%s app=%d cmd=%d hbh=%d e2e=%d avps=%d",
		kind, m.Header.ApplicationID, m.Header.CommandCode,
		m.Header.HopByHopID, m.Header.EndToEndID, len(m.AVPs))
}
