package rpcwire

import "encoding/json"

// CallRequest is the single unary request envelope: Method names one
// façade operation (e.g. "SetRfFreq", "Vfo.SetDemod") and Params holds
// that operation's own parameter struct, JSON-encoded by the codec.
type CallRequest struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// CallReply carries the ErrorKind outcome plus any result payload.
type CallReply struct {
	Code     int32           `json:"code"`
	CodeName string          `json:"code_name"`
	Result   json.RawMessage `json:"result,omitempty"`
}

// ---- per-method parameter structs ----

type DeviceParams struct {
	Device string `json:"device"`
}

type AntennaParams struct {
	Antenna string `json:"antenna"`
}

type RateParams struct {
	Rate uint32 `json:"rate"`
}

type DecimParams struct {
	Decim uint32 `json:"decim"`
}

type BoolParams struct {
	Value bool `json:"value"`
}

type FreqParams struct {
	Freq uint64 `json:"freq"`
}

type GainParams struct {
	Name  string  `json:"name"`
	Value float32 `json:"value"`
}

type FreqCorrParams struct {
	PPM int32 `json:"ppm"`
}

type FftSizeParams struct {
	Size uint32 `json:"size"`
}

type FftWindowParams struct {
	Window int32 `json:"window"`
}

type PathParams struct {
	Path string `json:"path"`
}

type FftDataParams struct {
	BufferLen int `json:"buffer_len"`
}

type FftDataResult struct {
	CenterFreq uint64    `json:"center_freq"`
	SampleRate uint32    `json:"sample_rate"`
	Bins       []float32 `json:"bins"`
}

type HandleResult struct {
	Handle uint64 `json:"handle"`
}

type HandleParams struct {
	Handle uint64 `json:"handle"`
}

type HandlesResult struct {
	Handles []uint64 `json:"handles"`
}

// VfoParams wraps a per-VFO operation's own parameter struct with the
// target handle, since the dispatch table routes "Vfo.*" methods through
// Facade.GetVfo(handle) before invoking the operation.
type VfoParams struct {
	Handle uint64          `json:"handle"`
	Params json.RawMessage `json:"params,omitempty"`
}

type Int32Params struct {
	Value int32 `json:"value"`
}

type Float32Params struct {
	Value float32 `json:"value"`
}

type Int64Params struct {
	Value int64 `json:"value"`
}

type FilterParams struct {
	Low   int32 `json:"low"`
	High  int32 `json:"high"`
	Shape int32 `json:"shape"`
}

type DemodParams struct {
	Demod int32 `json:"demod"`
}

type NoiseBlankerOnParams struct {
	ID    int32 `json:"id"`
	Value bool  `json:"value"`
}

type NoiseBlankerThresholdParams struct {
	ID    int32   `json:"id"`
	Value float32 `json:"value"`
}

type SnifferParams struct {
	Rate uint32 `json:"rate"`
	Size uint32 `json:"size"`
}

type SnifferResult struct {
	N    int       `json:"n"`
	Data []float32 `json:"data,omitempty"`
}

// SnifferDataParams/SnifferDataResult back Vfo.GetSnifferData: the caller
// preallocates a buffer of this length, the façade fills as much of it as
// SnifferBufferSize allows, and the result reports how much was used —
// the bulk-output convention spec.md §4.6 describes for GetIqFftData.
type SnifferDataParams struct {
	BufferLen int `json:"buffer_len"`
}

type SnifferDataResult struct {
	N    int       `json:"n"`
	Data []float32 `json:"data,omitempty"`
}

// SignalPwrResult carries Vfo.GetSignalPwr's result.
type SignalPwrResult struct {
	Value float32 `json:"value"`
}

// RdsDataResult carries Vfo.GetRdsData's result: decoded bytes plus the
// RDS group type.
type RdsDataResult struct {
	Data string `json:"data"`
	Type int32  `json:"type"`
}

type UdpStreamParams struct {
	Host   string `json:"host"`
	Port   uint16 `json:"port"`
	Stereo bool   `json:"stereo"`
}

// EventEnvelope carries one receiver- or VFO-scope event over the
// Subscribe/VfoSubscribe server-streams, tagged with its concrete Go type
// name so the client can dispatch on Kind before decoding Data.
type EventEnvelope struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// SubscribeRequest has no fields (empty request) for the receiver-scope
// stream; VfoSubscribeRequest names the VFO to attach to.
type SubscribeRequest struct{}

type VfoSubscribeRequest struct {
	Handle uint64 `json:"handle"`
}

// HandshakeRequest/Reply implement the protocol-version negotiation
// described in SPEC_FULL.md §3: the client states the wire-protocol
// version it speaks, and the server replies whether it is compatible using
// hashicorp/go-version constraint matching. The server does not gate other
// RPCs on it; Dial runs the handshake and returns an error instead of a
// Client when the reply is incompatible.
type HandshakeRequest struct {
	ClientVersion string `json:"client_version"`
}

type HandshakeReply struct {
	ServerVersion string `json:"server_version"`
	Compatible    bool   `json:"compatible"`
}
