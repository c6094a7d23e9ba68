// Copyright 2025 Certen Protocol
//
// Signed Envelope (L1)
// Request and response envelopes are CBOR maps with fixed integer keys,
// carried inside a COSE-Sign1 structure. Canonical CBOR (pkg/wire) makes
// the signed bytes deterministic across replicas.

package envelope

import (
	"time"

	"github.com/manifest-network/manifest-core/pkg/address"
	"github.com/manifest-network/manifest-core/pkg/wire"
)

// Request is the CBOR map carried as a request envelope's payload:
// 1:from, 2:to, 3:method, 4:arguments, 5:timestamp, 6:nonce?, 7:attributes?
type Request struct {
	From       address.Address `cbor:"1,keyasint"`
	To         address.Address `cbor:"2,keyasint"`
	Method     string          `cbor:"3,keyasint"`
	Arguments  []byte          `cbor:"4,keyasint,omitempty"`
	Timestamp  int64           `cbor:"5,keyasint"`
	Nonce      []byte          `cbor:"6,keyasint,omitempty"`
	Attributes []uint64        `cbor:"7,keyasint,omitempty"`
}

// Response is the CBOR map carried as a response envelope's payload:
// 1:from, 2:to, 4:data?, 8:error?, 5:timestamp
type Response struct {
	From      address.Address `cbor:"1,keyasint"`
	To        address.Address `cbor:"2,keyasint"`
	Data      []byte          `cbor:"4,keyasint,omitempty"`
	Error     *WireError      `cbor:"8,keyasint,omitempty"`
	Timestamp int64           `cbor:"5,keyasint"`
}

// WireError is the on-wire encoding of apperr.Error.
type WireError struct {
	Code    int32             `cbor:"1,keyasint"`
	Message string            `cbor:"2,keyasint"`
	Fields  map[string]string `cbor:"3,keyasint,omitempty"`
}

// EncodeRequest produces the canonical CBOR bytes of a Request; this is
// the payload that a COSE-Sign1 signature covers.
func EncodeRequest(r *Request) ([]byte, error) {
	return wire.Marshal(r)
}

// DecodeRequest parses canonical CBOR bytes into a Request.
func DecodeRequest(data []byte) (*Request, error) {
	var r Request
	if err := wire.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// EncodeResponse produces the canonical CBOR bytes of a Response.
func EncodeResponse(r *Response) ([]byte, error) {
	return wire.Marshal(r)
}

// DecodeResponse parses canonical CBOR bytes into a Response.
func DecodeResponse(data []byte) (*Response, error) {
	var r Response
	if err := wire.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// Time returns the request's timestamp as a time.Time in UTC.
func (r *Request) Time() time.Time {
	return time.Unix(r.Timestamp, 0).UTC()
}

// HasAttribute reports whether the request declared the given attribute
// tag in its optional attribute set.
func (r *Request) HasAttribute(tag uint64) bool {
	for _, a := range r.Attributes {
		if a == tag {
			return true
		}
	}
	return false
}
