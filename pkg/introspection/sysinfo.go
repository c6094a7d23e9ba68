// Copyright 2025 Certen Protocol
//
// status/heartbeat/endpoints/echo (spec §6.2, supplemented per
// SPEC_FULL.md §1 from original_source's many-rs style liveness quartet).
// No teacher precedent — the teacher exposes liveness over an HTTP health
// endpoint rather than the dispatch table; these four are plain dispatcher
// methods instead, consistent with everything else in this namespace.

package introspection

import (
	"time"

	"github.com/manifest-network/manifest-core/pkg/address"
	"github.com/manifest-network/manifest-core/pkg/dispatcher"
	"github.com/manifest-network/manifest-core/pkg/wire"
)

// ProtocolVersion is this build's wire-protocol version, reported by
// status.
const ProtocolVersion = 1

// SysInfo answers status/heartbeat/endpoints/echo.
type SysInfo struct {
	ServerName        string
	Version           string
	PublicKeyCOSE     []byte
	Address           address.Address
	HeartbeatInterval time.Duration
	dispatcher        *dispatcher.Registry
}

// NewSysInfo constructs a SysInfo reporting identity from the configured
// signing key and the live method table from reg.
func NewSysInfo(reg *dispatcher.Registry, serverName, version string, publicKeyCOSE []byte, addr address.Address, heartbeatInterval time.Duration) *SysInfo {
	return &SysInfo{
		ServerName:        serverName,
		Version:           version,
		PublicKeyCOSE:     publicKeyCOSE,
		Address:           addr,
		HeartbeatInterval: heartbeatInterval,
		dispatcher:        reg,
	}
}

type statusResponse struct {
	ProtocolVersion  uint32          `cbor:"1,keyasint"`
	ServerName       string          `cbor:"2,keyasint"`
	PublicKey        []byte          `cbor:"3,keyasint"`
	Address          address.Address `cbor:"4,keyasint"`
	Endpoints        []string        `cbor:"5,keyasint"`
	Version          string          `cbor:"6,keyasint"`
	HeartbeatSeconds uint64          `cbor:"7,keyasint"`
}

type heartbeatResponse struct {
	Time uint64 `cbor:"1,keyasint"`
}

type endpointsResponse struct {
	Endpoints []string `cbor:"1,keyasint"`
}

type echoArgs struct {
	Data []byte `cbor:"1,keyasint,omitempty"`
}

// RegisterSysInfo wires status/heartbeat/endpoints/echo into reg.
func RegisterSysInfo(reg *dispatcher.Registry, info *SysInfo) {
	reg.Register("status", true, func(ctx *dispatcher.Context) ([]byte, error) {
		return wire.Marshal(statusResponse{
			ProtocolVersion:  ProtocolVersion,
			ServerName:       info.ServerName,
			PublicKey:        info.PublicKeyCOSE,
			Address:          info.Address,
			Endpoints:        info.dispatcher.Methods(),
			Version:          info.Version,
			HeartbeatSeconds: uint64(info.HeartbeatInterval / time.Second),
		})
	})

	reg.Register("heartbeat", true, func(ctx *dispatcher.Context) ([]byte, error) {
		return wire.Marshal(heartbeatResponse{Time: uint64(ctx.Time.Unix())})
	})

	reg.Register("endpoints", true, func(ctx *dispatcher.Context) ([]byte, error) {
		return wire.Marshal(endpointsResponse{Endpoints: info.dispatcher.Methods()})
	})

	reg.Register("echo", true, func(ctx *dispatcher.Context) ([]byte, error) {
		var args echoArgs
		if err := wire.Unmarshal(ctx.Request.Arguments, &args); err != nil {
			return nil, malformed("data")
		}
		return wire.Marshal(args)
	})
}
