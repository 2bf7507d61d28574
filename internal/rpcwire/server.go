package rpcwire

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/cwsl/sdrctl/internal/dsp"
	"github.com/cwsl/sdrctl/internal/events"
	"github.com/cwsl/sdrctl/internal/hub"
	"github.com/cwsl/sdrctl/internal/receiver"
	"github.com/cwsl/sdrctl/internal/sdrtype"
	"github.com/cwsl/sdrctl/internal/vfo"
)

// handlerFunc decodes params, runs the façade operation, and returns its
// result payload plus ErrorKind outcome. A non-nil err means the request
// itself was malformed (maps to codes.InvalidArgument), not a façade-level
// failure (which is carried in the ErrorKind instead).
type handlerFunc func(raw json.RawMessage) (result interface{}, code sdrtype.ErrorKind, err error)

// Server implements the hand-written sdrctl.v1.Receiver gRPC methods
// (service.go) by dispatching CallRequest.Method through a lookup table built
// once around a receiver façade.
type Server struct {
	recv     *receiver.Facade
	handlers map[string]handlerFunc
}

// NewServer builds the dispatch table for every RPC-exposed operation.
func NewServer(recv *receiver.Facade) *Server {
	s := &Server{recv: recv}
	s.handlers = map[string]handlerFunc{
		"Start": unit(func(reply func(sdrtype.ErrorKind)) { recv.Start(reply) }),
		"Stop":  unit(func(reply func(sdrtype.ErrorKind)) { recv.Stop(reply) }),

		"SetInputDevice": decodeUnit(func(p DeviceParams, reply func(sdrtype.ErrorKind)) {
			recv.SetInputDevice(p.Device, reply)
		}),
		"SetAntenna": decodeUnit(func(p AntennaParams, reply func(sdrtype.ErrorKind)) {
			recv.SetAntenna(p.Antenna, reply)
		}),
		"SetIqSwap": decodeUnit(func(p BoolParams, reply func(sdrtype.ErrorKind)) {
			recv.SetIqSwap(p.Value, reply)
		}),
		"SetDcCancel": decodeUnit(func(p BoolParams, reply func(sdrtype.ErrorKind)) {
			recv.SetDcCancel(p.Value, reply)
		}),
		"SetIqBalance": decodeUnit(func(p BoolParams, reply func(sdrtype.ErrorKind)) {
			recv.SetIqBalance(p.Value, reply)
		}),
		"SetRfFreq": decodeUnit(func(p FreqParams, reply func(sdrtype.ErrorKind)) {
			recv.SetRfFreq(p.Freq, reply)
		}),
		"SetAutoGain": decodeUnit(func(p BoolParams, reply func(sdrtype.ErrorKind)) {
			recv.SetAutoGain(p.Value, reply)
		}),
		"SetGain": decodeUnit(func(p GainParams, reply func(sdrtype.ErrorKind)) {
			recv.SetGain(p.Name, p.Value, reply)
		}),
		"SetFreqCorr": decodeUnit(func(p FreqCorrParams, reply func(sdrtype.ErrorKind)) {
			recv.SetFreqCorr(p.PPM, reply)
		}),
		"SetFftSize": decodeUnit(func(p FftSizeParams, reply func(sdrtype.ErrorKind)) {
			recv.SetFftSize(p.Size, reply)
		}),
		"SetFftWindow": decodeUnit(func(p FftWindowParams, reply func(sdrtype.ErrorKind)) {
			recv.SetFftWindow(sdrtype.WindowType(p.Window), reply)
		}),
		"StartIqRecording": decodeUnit(func(p PathParams, reply func(sdrtype.ErrorKind)) {
			recv.StartIqRecording(p.Path, reply)
		}),
		"StopIqRecording": unit(func(reply func(sdrtype.ErrorKind)) { recv.StopIqRecording(reply) }),

		"SetInputRate": func(raw json.RawMessage) (interface{}, sdrtype.ErrorKind, error) {
			var p RateParams
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, 0, err
			}
			code, actual := syncCodeU32(func(reply func(sdrtype.ErrorKind, uint32)) { recv.SetInputRate(p.Rate, reply) })
			return RateParams{Rate: actual}, code, nil
		},
		"SetInputDecim": func(raw json.RawMessage) (interface{}, sdrtype.ErrorKind, error) {
			var p DecimParams
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, 0, err
			}
			code, actual := syncCodeU32(func(reply func(sdrtype.ErrorKind, uint32)) { recv.SetInputDecim(p.Decim, reply) })
			return DecimParams{Decim: actual}, code, nil
		},

		"AddVfoChannel": func(raw json.RawMessage) (interface{}, sdrtype.ErrorKind, error) {
			code, handle := syncCodeU64(func(reply func(sdrtype.ErrorKind, uint64)) { recv.AddVfoChannel(reply) })
			return HandleResult{Handle: handle}, code, nil
		},
		"RemoveVfoChannel": decodeUnit(func(p HandleParams, reply func(sdrtype.ErrorKind)) {
			recv.RemoveVfoChannel(p.Handle, reply)
		}),
		"ListVfos": func(raw json.RawMessage) (interface{}, sdrtype.ErrorKind, error) {
			return HandlesResult{Handles: recv.VfoHandles()}, sdrtype.ErrOK, nil
		},
		"GetIqFftData": func(raw json.RawMessage) (interface{}, sdrtype.ErrorKind, error) {
			var p FftDataParams
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, 0, err
			}
			buf := make([]float32, p.BufferLen)
			ch := make(chan struct {
				code  sdrtype.ErrorKind
				frame dsp.FftFrame
			}, 1)
			recv.GetIqFftData(buf, func(code sdrtype.ErrorKind, frame dsp.FftFrame) {
				ch <- struct {
					code  sdrtype.ErrorKind
					frame dsp.FftFrame
				}{code, frame}
			})
			r := <-ch
			return FftDataResult{CenterFreq: r.frame.CenterFreq, SampleRate: r.frame.SampleRate, Bins: r.frame.Bins}, r.code, nil
		},

		"Vfo.SetDemod":          vfoUnit(recv, func(p DemodParams, vf *vfo.Facade, reply func(sdrtype.ErrorKind)) { vf.SetDemod(sdrtype.Demod(p.Demod), reply) }),
		"Vfo.SetFilter":         vfoUnit(recv, func(p FilterParams, vf *vfo.Facade, reply func(sdrtype.ErrorKind)) { vf.SetFilter(p.Low, p.High, sdrtype.FilterShape(p.Shape), reply) }),
		"Vfo.SetCwOffset":       vfoUnit(recv, func(p Int32Params, vf *vfo.Facade, reply func(sdrtype.ErrorKind)) { vf.SetCwOffset(p.Value, reply) }),
		"Vfo.SetOffset":         vfoUnit(recv, func(p Int64Params, vf *vfo.Facade, reply func(sdrtype.ErrorKind)) { vf.SetOffset(p.Value, reply) }),
		"Vfo.SetSqlLevel":       vfoUnit(recv, func(p Float32Params, vf *vfo.Facade, reply func(sdrtype.ErrorKind)) { vf.SetSqlLevel(p.Value, reply) }),
		"Vfo.SetSqlAlpha":       vfoUnit(recv, func(p Float32Params, vf *vfo.Facade, reply func(sdrtype.ErrorKind)) { vf.SetSqlAlpha(p.Value, reply) }),
		"Vfo.SetAgcOn":          vfoUnit(recv, func(p BoolParams, vf *vfo.Facade, reply func(sdrtype.ErrorKind)) { vf.SetAgcOn(p.Value, reply) }),
		"Vfo.SetAgcHang":        vfoUnit(recv, func(p BoolParams, vf *vfo.Facade, reply func(sdrtype.ErrorKind)) { vf.SetAgcHang(p.Value, reply) }),
		"Vfo.SetAgcThreshold":   vfoUnit(recv, func(p Int32Params, vf *vfo.Facade, reply func(sdrtype.ErrorKind)) { vf.SetAgcThreshold(p.Value, reply) }),
		"Vfo.SetAgcSlope":       vfoUnit(recv, func(p Int32Params, vf *vfo.Facade, reply func(sdrtype.ErrorKind)) { vf.SetAgcSlope(p.Value, reply) }),
		"Vfo.SetAgcDecay":       vfoUnit(recv, func(p Int32Params, vf *vfo.Facade, reply func(sdrtype.ErrorKind)) { vf.SetAgcDecay(p.Value, reply) }),
		"Vfo.SetAgcManualGain":  vfoUnit(recv, func(p Float32Params, vf *vfo.Facade, reply func(sdrtype.ErrorKind)) { vf.SetAgcManualGain(p.Value, reply) }),
		"Vfo.SetNoiseBlankerOn": vfoUnit(recv, func(p NoiseBlankerOnParams, vf *vfo.Facade, reply func(sdrtype.ErrorKind)) {
			vf.SetNoiseBlankerOn(p.ID, p.Value, reply)
		}),
		"Vfo.SetNoiseBlankerThreshold": vfoUnit(recv, func(p NoiseBlankerThresholdParams, vf *vfo.Facade, reply func(sdrtype.ErrorKind)) {
			vf.SetNoiseBlankerThreshold(p.ID, p.Value, reply)
		}),
		"Vfo.SetFmMaxDev":    vfoUnit(recv, func(p Float32Params, vf *vfo.Facade, reply func(sdrtype.ErrorKind)) { vf.SetFmMaxDev(p.Value, reply) }),
		"Vfo.SetFmDeemph":    vfoUnit(recv, func(p Float32Params, vf *vfo.Facade, reply func(sdrtype.ErrorKind)) { vf.SetFmDeemph(p.Value, reply) }),
		"Vfo.SetAmDcr":       vfoUnit(recv, func(p BoolParams, vf *vfo.Facade, reply func(sdrtype.ErrorKind)) { vf.SetAmDcr(p.Value, reply) }),
		"Vfo.SetAmSyncDcr":   vfoUnit(recv, func(p BoolParams, vf *vfo.Facade, reply func(sdrtype.ErrorKind)) { vf.SetAmSyncDcr(p.Value, reply) }),
		"Vfo.SetAmSyncPllBw": vfoUnit(recv, func(p Float32Params, vf *vfo.Facade, reply func(sdrtype.ErrorKind)) { vf.SetAmSyncPllBw(p.Value, reply) }),
		"Vfo.SetAudioGain":   vfoUnit(recv, func(p Float32Params, vf *vfo.Facade, reply func(sdrtype.ErrorKind)) { vf.SetAudioGain(p.Value, reply) }),
		"Vfo.StartAudioRecording": vfoUnit(recv, func(p PathParams, vf *vfo.Facade, reply func(sdrtype.ErrorKind)) {
			vf.StartAudioRecording(p.Path, reply)
		}),
		"Vfo.StopAudioRecording": vfoUnitNoParams(recv, func(vf *vfo.Facade, reply func(sdrtype.ErrorKind)) { vf.StopAudioRecording(reply) }),
		"Vfo.StartSniffer": vfoUnit(recv, func(p SnifferParams, vf *vfo.Facade, reply func(sdrtype.ErrorKind)) {
			vf.StartSniffer(p.Rate, p.Size, reply)
		}),
		"Vfo.StopSniffer": vfoUnitNoParams(recv, func(vf *vfo.Facade, reply func(sdrtype.ErrorKind)) { vf.StopSniffer(reply) }),
		"Vfo.GetSnifferData": func(raw json.RawMessage) (interface{}, sdrtype.ErrorKind, error) {
			var env VfoParams
			if err := json.Unmarshal(raw, &env); err != nil {
				return nil, 0, err
			}
			vf, ok := recv.GetVfo(env.Handle)
			if !ok {
				return nil, sdrtype.ErrVfoNotFound, nil
			}
			var p SnifferDataParams
			if len(env.Params) > 0 {
				if err := json.Unmarshal(env.Params, &p); err != nil {
					return nil, 0, err
				}
			}
			buf := make([]float32, p.BufferLen)
			code, n := syncCodeInt(func(reply func(sdrtype.ErrorKind, int)) { vf.GetSnifferData(buf, reply) })
			return SnifferDataResult{N: n, Data: buf[:n]}, code, nil
		},
		"Vfo.GetSignalPwr": func(raw json.RawMessage) (interface{}, sdrtype.ErrorKind, error) {
			var env VfoParams
			if err := json.Unmarshal(raw, &env); err != nil {
				return nil, 0, err
			}
			vf, ok := recv.GetVfo(env.Handle)
			if !ok {
				return nil, sdrtype.ErrVfoNotFound, nil
			}
			ch := make(chan struct {
				code sdrtype.ErrorKind
				pwr  float32
			}, 1)
			vf.GetSignalPwr(func(code sdrtype.ErrorKind, pwr float32) {
				ch <- struct {
					code sdrtype.ErrorKind
					pwr  float32
				}{code, pwr}
			})
			r := <-ch
			return SignalPwrResult{Value: r.pwr}, r.code, nil
		},
		"Vfo.GetRdsData": func(raw json.RawMessage) (interface{}, sdrtype.ErrorKind, error) {
			var env VfoParams
			if err := json.Unmarshal(raw, &env); err != nil {
				return nil, 0, err
			}
			vf, ok := recv.GetVfo(env.Handle)
			if !ok {
				return nil, sdrtype.ErrVfoNotFound, nil
			}
			ch := make(chan struct {
				code sdrtype.ErrorKind
				data string
				typ  int32
			}, 1)
			vf.GetRdsData(func(code sdrtype.ErrorKind, data string, typ int32) {
				ch <- struct {
					code sdrtype.ErrorKind
					data string
					typ  int32
				}{code, data, typ}
			})
			r := <-ch
			return RdsDataResult{Data: r.data, Type: r.typ}, r.code, nil
		},
		"Vfo.StartUdpStreaming": vfoUnit(recv, func(p UdpStreamParams, vf *vfo.Facade, reply func(sdrtype.ErrorKind)) {
			vf.StartUdpStreaming(p.Host, p.Port, p.Stereo, reply)
		}),
		"Vfo.StopUdpStreaming":  vfoUnitNoParams(recv, func(vf *vfo.Facade, reply func(sdrtype.ErrorKind)) { vf.StopUdpStreaming(reply) }),
		"Vfo.StartRdsDecoder":   vfoUnitNoParams(recv, func(vf *vfo.Facade, reply func(sdrtype.ErrorKind)) { vf.StartRdsDecoder(reply) }),
		"Vfo.StopRdsDecoder":    vfoUnitNoParams(recv, func(vf *vfo.Facade, reply func(sdrtype.ErrorKind)) { vf.StopRdsDecoder(reply) }),
	}
	return s
}

// unit wraps a no-argument façade command whose reply is a bare ErrorKind.
func unit(submit func(reply func(sdrtype.ErrorKind))) handlerFunc {
	return func(raw json.RawMessage) (interface{}, sdrtype.ErrorKind, error) {
		return nil, syncCode(submit), nil
	}
}

// decodeUnit wraps a one-argument façade command whose reply is a bare
// ErrorKind: decode P from raw, then submit.
func decodeUnit[P any](call func(p P, reply func(sdrtype.ErrorKind))) handlerFunc {
	return func(raw json.RawMessage) (interface{}, sdrtype.ErrorKind, error) {
		var p P
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &p); err != nil {
				return nil, 0, err
			}
		}
		return nil, syncCode(func(reply func(sdrtype.ErrorKind)) { call(p, reply) }), nil
	}
}

// vfoUnit wraps a VFO-scope command: decode VfoParams{Handle, Params},
// look up the target VFO synchronously (VFO_NOT_FOUND short-circuits
// before the worker queue, per spec.md §4.6 step 1), decode the inner
// parameter struct, then submit.
func vfoUnit[P any](recv *receiver.Facade, call func(p P, vf *vfo.Facade, reply func(sdrtype.ErrorKind))) handlerFunc {
	return func(raw json.RawMessage) (interface{}, sdrtype.ErrorKind, error) {
		var env VfoParams
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, 0, err
		}
		vf, ok := recv.GetVfo(env.Handle)
		if !ok {
			return nil, sdrtype.ErrVfoNotFound, nil
		}
		var p P
		if len(env.Params) > 0 {
			if err := json.Unmarshal(env.Params, &p); err != nil {
				return nil, 0, err
			}
		}
		return nil, syncCode(func(reply func(sdrtype.ErrorKind)) { call(p, vf, reply) }), nil
	}
}

// vfoUnitNoParams is vfoUnit for commands that take only the handle.
func vfoUnitNoParams(recv *receiver.Facade, call func(vf *vfo.Facade, reply func(sdrtype.ErrorKind))) handlerFunc {
	return func(raw json.RawMessage) (interface{}, sdrtype.ErrorKind, error) {
		var env VfoParams
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, 0, err
		}
		vf, ok := recv.GetVfo(env.Handle)
		if !ok {
			return nil, sdrtype.ErrVfoNotFound, nil
		}
		return nil, syncCode(func(reply func(sdrtype.ErrorKind)) { call(vf, reply) }), nil
	}
}

// Call implements the unary RPC: look up CallRequest.Method in the
// dispatch table and run it.
func (s *Server) Call(ctx context.Context, req *CallRequest) (*CallReply, error) {
	h, ok := s.handlers[req.Method]
	if !ok {
		return nil, status.Errorf(codes.Unimplemented, "unknown method %q", req.Method)
	}
	result, code, err := h(req.Params)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "bad params for %q: %v", req.Method, err)
	}
	var resultRaw json.RawMessage
	if result != nil {
		resultRaw, err = json.Marshal(result)
		if err != nil {
			return nil, status.Errorf(codes.Internal, "failed to marshal result: %v", err)
		}
	}
	return &CallReply{Code: int32(code), CodeName: code.String(), Result: resultRaw}, nil
}

// Handshake implements the unary protocol-version negotiation RPC.
func (s *Server) Handshake(ctx context.Context, req *HandshakeRequest) (*HandshakeReply, error) {
	reply, err := Handshake(*req)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "%v", err)
	}
	return &reply, nil
}

// Subscribe implements the receiver-scope server-streaming RPC: attach to
// the façade's hub and forward every event (including the synthetic
// SyncStart/.../SyncEnd replay) as an EventEnvelope until the client
// disconnects or cancels the stream's context.
func (s *Server) Subscribe(req *SubscribeRequest, stream grpc.ServerStream) error {
	ch := make(chan events.Event, 64)
	done := make(chan struct{})
	var connID hub.ConnID

	s.recv.Subscribe(func(ev events.Event) {
		select {
		case ch <- ev:
		default:
			// Slow consumer: drop rather than block the worker thread
			// that calls Emit (spec.md §4.2: subscriber callbacks must
			// not block).
		}
	}, func(code sdrtype.ErrorKind, id hub.ConnID) {
		connID = id
		close(done)
	})
	<-done
	defer s.recv.Unsubscribe(connID)

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-ch:
			env, err := encodeEvent(ev)
			if err != nil {
				return status.Errorf(codes.Internal, "failed to encode event: %v", err)
			}
			if err := stream.SendMsg(env); err != nil {
				return err
			}
		}
	}
}

// VfoSubscribe is Subscribe's VFO-scope counterpart.
func (s *Server) VfoSubscribe(req *VfoSubscribeRequest, stream grpc.ServerStream) error {
	vf, ok := s.recv.GetVfo(req.Handle)
	if !ok {
		return status.Errorf(codes.NotFound, "%s", sdrtype.ErrVfoNotFound.String())
	}

	ch := make(chan events.VfoEvent, 64)
	done := make(chan struct{})
	var connID hub.ConnID

	vf.Subscribe(func(ev events.VfoEvent) {
		select {
		case ch <- ev:
		default:
		}
	}, func(code sdrtype.ErrorKind, id hub.ConnID) {
		connID = id
		close(done)
	})
	<-done
	defer vf.Unsubscribe(connID)

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-ch:
			env, err := encodeVfoEvent(ev)
			if err != nil {
				return status.Errorf(codes.Internal, "failed to encode event: %v", err)
			}
			if err := stream.SendMsg(env); err != nil {
				return err
			}
		}
	}
}

func encodeEvent(ev events.Event) (*EventEnvelope, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return &EventEnvelope{Kind: fmt.Sprintf("%T", ev), Data: data}, nil
}

func encodeVfoEvent(ev events.VfoEvent) (*EventEnvelope, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return &EventEnvelope{Kind: fmt.Sprintf("%T", ev), Data: data}, nil
}
