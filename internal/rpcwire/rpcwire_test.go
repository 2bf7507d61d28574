package rpcwire

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/cwsl/sdrctl/internal/dsp/sim"
	"github.com/cwsl/sdrctl/internal/receiver"
	"github.com/cwsl/sdrctl/internal/sdrtype"
)

func TestJSONCodecRoundTrips(t *testing.T) {
	c := jsonCodec{}
	req := &CallRequest{Method: "Start", Params: json.RawMessage(`{"foo":1}`)}

	data, err := c.Marshal(req)
	require.NoError(t, err)

	out := new(CallRequest)
	require.NoError(t, c.Unmarshal(data, out))
	assert.Equal(t, req.Method, out.Method)
	assert.JSONEq(t, string(req.Params), string(out.Params))
	assert.Equal(t, CodecName, c.Name())
}

func TestJSONCodecCompressesLargePayloads(t *testing.T) {
	c := jsonCodec{}
	bins := make([]float32, 8192)
	req := &FftDataResult{CenterFreq: 1, SampleRate: 48000, Bins: bins}

	data, err := c.Marshal(req)
	require.NoError(t, err)
	require.NotEmpty(t, data)
	assert.Equal(t, wireFormatZstd, data[0], "payload above zstdThreshold should be compressed")

	out := new(FftDataResult)
	require.NoError(t, c.Unmarshal(data, out))
	assert.Equal(t, req.CenterFreq, out.CenterFreq)
	assert.Len(t, out.Bins, len(bins))
}

func TestJSONCodecLeavesSmallPayloadsUncompressed(t *testing.T) {
	c := jsonCodec{}
	req := &CallReply{Code: 0, CodeName: "OK"}

	data, err := c.Marshal(req)
	require.NoError(t, err)
	require.NotEmpty(t, data)
	assert.Equal(t, wireFormatPlain, data[0])
}

func TestHandshakeAcceptsMatchingVersion(t *testing.T) {
	reply, err := Handshake(HandshakeRequest{ClientVersion: ProtocolVersion})
	require.NoError(t, err)
	assert.True(t, reply.Compatible)
	assert.Equal(t, ProtocolVersion, reply.ServerVersion)
}

func TestHandshakeRejectsIncompatibleMajorVersion(t *testing.T) {
	reply, err := Handshake(HandshakeRequest{ClientVersion: "2.0.0"})
	require.NoError(t, err)
	assert.False(t, reply.Compatible)
}

func TestHandshakeRejectsMalformedVersionWithoutTransportError(t *testing.T) {
	reply, err := Handshake(HandshakeRequest{ClientVersion: "not-a-version"})
	require.NoError(t, err)
	assert.False(t, reply.Compatible)
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	recv := receiver.New(sim.New())
	t.Cleanup(recv.Close)
	return NewServer(recv)
}

func TestCallDispatchesKnownMethod(t *testing.T) {
	s := newTestServer(t)
	params, _ := json.Marshal(AntennaParams{Antenna: "ANT1"})
	reply, err := s.Call(context.Background(), &CallRequest{Method: "SetAntenna", Params: params})
	require.NoError(t, err)
	assert.Equal(t, int32(sdrtype.ErrOK), reply.Code)
	assert.Equal(t, sdrtype.ErrOK.String(), reply.CodeName)
}

func TestCallUnknownMethodReturnsUnimplemented(t *testing.T) {
	s := newTestServer(t)
	_, err := s.Call(context.Background(), &CallRequest{Method: "NoSuchMethod"})
	require.Error(t, err)
	assert.Equal(t, codes.Unimplemented, status.Code(err))
}

func TestCallMalformedParamsReturnsInvalidArgument(t *testing.T) {
	s := newTestServer(t)
	_, err := s.Call(context.Background(), &CallRequest{Method: "SetAntenna", Params: json.RawMessage(`not json`)})
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestCallAddVfoChannelThenVfoScopedMethod(t *testing.T) {
	s := newTestServer(t)

	reply, err := s.Call(context.Background(), &CallRequest{Method: "AddVfoChannel"})
	require.NoError(t, err)
	require.Equal(t, int32(sdrtype.ErrOK), reply.Code)

	var handleResult HandleResult
	require.NoError(t, json.Unmarshal(reply.Result, &handleResult))
	require.NotZero(t, handleResult.Handle)

	demodParams, _ := json.Marshal(DemodParams{Demod: int32(sdrtype.DemodUSB)})
	vfoParams, _ := json.Marshal(VfoParams{Handle: handleResult.Handle, Params: demodParams})

	reply, err = s.Call(context.Background(), &CallRequest{Method: "Vfo.SetDemod", Params: vfoParams})
	require.NoError(t, err)
	assert.Equal(t, int32(sdrtype.ErrOK), reply.Code)
}

func TestCallVfoScopedMethodUnknownHandleFailsVfoNotFound(t *testing.T) {
	s := newTestServer(t)

	demodParams, _ := json.Marshal(DemodParams{Demod: int32(sdrtype.DemodUSB)})
	vfoParams, _ := json.Marshal(VfoParams{Handle: 99999, Params: demodParams})

	reply, err := s.Call(context.Background(), &CallRequest{Method: "Vfo.SetDemod", Params: vfoParams})
	require.NoError(t, err)
	assert.Equal(t, int32(sdrtype.ErrVfoNotFound), reply.Code)
}

func TestCallListVfosReflectsAddedHandles(t *testing.T) {
	s := newTestServer(t)

	reply, err := s.Call(context.Background(), &CallRequest{Method: "AddVfoChannel"})
	require.NoError(t, err)
	var handleResult HandleResult
	require.NoError(t, json.Unmarshal(reply.Result, &handleResult))

	reply, err = s.Call(context.Background(), &CallRequest{Method: "ListVfos"})
	require.NoError(t, err)
	var handles HandlesResult
	require.NoError(t, json.Unmarshal(reply.Result, &handles))
	assert.Contains(t, handles.Handles, handleResult.Handle)
}

func TestCallGetIqFftDataUndersizedBufferFails(t *testing.T) {
	s := newTestServer(t)
	params, _ := json.Marshal(FftDataParams{BufferLen: 1})
	reply, err := s.Call(context.Background(), &CallRequest{Method: "GetIqFftData", Params: params})
	require.NoError(t, err)
	assert.Equal(t, int32(sdrtype.ErrInsufficientBufferSize), reply.Code)
}

func addTestVfo(t *testing.T, s *Server) uint64 {
	t.Helper()
	reply, err := s.Call(context.Background(), &CallRequest{Method: "AddVfoChannel"})
	require.NoError(t, err)
	require.Equal(t, int32(sdrtype.ErrOK), reply.Code)
	var handleResult HandleResult
	require.NoError(t, json.Unmarshal(reply.Result, &handleResult))
	return handleResult.Handle
}

func TestCallVfoGetSnifferDataUndersizedBufferFails(t *testing.T) {
	s := newTestServer(t)
	handle := addTestVfo(t, s)

	startParams, _ := json.Marshal(SnifferParams{Rate: 48000, Size: 512})
	vfoParams, _ := json.Marshal(VfoParams{Handle: handle, Params: startParams})
	reply, err := s.Call(context.Background(), &CallRequest{Method: "Vfo.StartSniffer", Params: vfoParams})
	require.NoError(t, err)
	require.Equal(t, int32(sdrtype.ErrOK), reply.Code)

	dataParams, _ := json.Marshal(SnifferDataParams{BufferLen: 10})
	vfoParams, _ = json.Marshal(VfoParams{Handle: handle, Params: dataParams})
	reply, err = s.Call(context.Background(), &CallRequest{Method: "Vfo.GetSnifferData", Params: vfoParams})
	require.NoError(t, err)
	assert.Equal(t, int32(sdrtype.ErrInsufficientBufferSize), reply.Code)
}

func TestCallVfoGetSnifferDataReturnsFilledBuffer(t *testing.T) {
	s := newTestServer(t)
	handle := addTestVfo(t, s)

	startParams, _ := json.Marshal(SnifferParams{Rate: 48000, Size: 512})
	vfoParams, _ := json.Marshal(VfoParams{Handle: handle, Params: startParams})
	reply, err := s.Call(context.Background(), &CallRequest{Method: "Vfo.StartSniffer", Params: vfoParams})
	require.NoError(t, err)
	require.Equal(t, int32(sdrtype.ErrOK), reply.Code)

	dataParams, _ := json.Marshal(SnifferDataParams{BufferLen: 512})
	vfoParams, _ = json.Marshal(VfoParams{Handle: handle, Params: dataParams})
	reply, err = s.Call(context.Background(), &CallRequest{Method: "Vfo.GetSnifferData", Params: vfoParams})
	require.NoError(t, err)
	require.Equal(t, int32(sdrtype.ErrOK), reply.Code)

	var result SnifferDataResult
	require.NoError(t, json.Unmarshal(reply.Result, &result))
	assert.Equal(t, 512, result.N)
	assert.Len(t, result.Data, 512)
}

func TestCallVfoGetSignalPwrDispatches(t *testing.T) {
	s := newTestServer(t)
	handle := addTestVfo(t, s)

	vfoParams, _ := json.Marshal(VfoParams{Handle: handle})
	reply, err := s.Call(context.Background(), &CallRequest{Method: "Vfo.GetSignalPwr", Params: vfoParams})
	require.NoError(t, err)
	require.Equal(t, int32(sdrtype.ErrOK), reply.Code)

	var result SignalPwrResult
	require.NoError(t, json.Unmarshal(reply.Result, &result))
	assert.Equal(t, float32(0), result.Value)
}

func TestCallVfoGetRdsDataDispatches(t *testing.T) {
	s := newTestServer(t)
	handle := addTestVfo(t, s)

	vfoParams, _ := json.Marshal(VfoParams{Handle: handle})
	reply, err := s.Call(context.Background(), &CallRequest{Method: "Vfo.GetRdsData", Params: vfoParams})
	require.NoError(t, err)
	require.Equal(t, int32(sdrtype.ErrOK), reply.Code)

	var result RdsDataResult
	require.NoError(t, json.Unmarshal(reply.Result, &result))
	assert.Equal(t, "", result.Data)
	assert.Equal(t, int32(0), result.Type)
}

func TestCallVfoGetSignalPwrUnknownHandleFailsVfoNotFound(t *testing.T) {
	s := newTestServer(t)
	vfoParams, _ := json.Marshal(VfoParams{Handle: 99999})
	reply, err := s.Call(context.Background(), &CallRequest{Method: "Vfo.GetSignalPwr", Params: vfoParams})
	require.NoError(t, err)
	assert.Equal(t, int32(sdrtype.ErrVfoNotFound), reply.Code)
}

func TestHandshakeRPCRejectsIncompatibleClient(t *testing.T) {
	s := newTestServer(t)
	reply, err := s.Handshake(context.Background(), &HandshakeRequest{ClientVersion: "0.1.0"})
	require.NoError(t, err)
	assert.False(t, reply.Compatible)
}

func TestSubscribeDeliversAndUnsubscribesOnContextCancel(t *testing.T) {
	recv := receiver.New(sim.New())
	defer recv.Close()
	s := NewServer(recv)

	ctx, cancel := context.WithCancel(context.Background())
	stream := &fakeServerStream{ctx: ctx, out: make(chan interface{}, 256)}

	errCh := make(chan error, 1)
	go func() { errCh <- s.Subscribe(&SubscribeRequest{}, stream) }()

	// Drain at least the sync-start/sync-end bracket before cancelling.
	var gotAny bool
	timeout := time.After(2 * time.Second)
loop:
	for {
		select {
		case <-stream.out:
			gotAny = true
			if len(stream.out) == 0 {
				break loop
			}
		case <-timeout:
			break loop
		}
	}
	assert.True(t, gotAny, "expected at least one envelope from the sync replay")

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Subscribe did not return after context cancellation")
	}
}

// fakeServerStream is a minimal grpc.ServerStream stand-in sufficient for
// exercising Server.Subscribe/VfoSubscribe's SendMsg/Context usage without
// a real network transport.
type fakeServerStream struct {
	ctx context.Context
	out chan interface{}
}

func (f *fakeServerStream) SetHeader(metadata.MD) error  { return nil }
func (f *fakeServerStream) SendHeader(metadata.MD) error { return nil }
func (f *fakeServerStream) SetTrailer(metadata.MD)       {}
func (f *fakeServerStream) Context() context.Context     { return f.ctx }
func (f *fakeServerStream) SendMsg(m interface{}) error {
	select {
	case f.out <- m:
		return nil
	case <-f.ctx.Done():
		return f.ctx.Err()
	}
}
func (f *fakeServerStream) RecvMsg(m interface{}) error { return nil }

var _ grpc.ServerStream = (*fakeServerStream)(nil)
