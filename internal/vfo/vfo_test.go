package vfo

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwsl/sdrctl/internal/dsp/sim"
	"github.com/cwsl/sdrctl/internal/events"
	"github.com/cwsl/sdrctl/internal/hub"
	"github.com/cwsl/sdrctl/internal/sdrtype"
	"github.com/cwsl/sdrctl/internal/worker"
)

type fakeRunning struct{ running bool }

func (f *fakeRunning) IsRunning() bool { return f.running }

func newTestFacade(t *testing.T) (*Facade, *worker.Worker, *fakeRunning) {
	t.Helper()
	recv := sim.New()
	ch, err := recv.AddVfoChannel()
	require.NoError(t, err)
	w := worker.New(64)
	w.Start()
	t.Cleanup(w.Stop)
	running := &fakeRunning{running: true}
	return New(1, ch, w, running), w, running
}

func syncErr(t *testing.T, submit func(reply func(sdrtype.ErrorKind))) sdrtype.ErrorKind {
	t.Helper()
	done := make(chan sdrtype.ErrorKind, 1)
	submit(func(code sdrtype.ErrorKind) { done <- code })
	select {
	case code := <-done:
		return code
	case <-time.After(2 * time.Second):
		t.Fatal("command did not reply in time")
		return sdrtype.ErrUnknownError
	}
}

func TestSetDemodRejectsInvalid(t *testing.T) {
	f, _, _ := newTestFacade(t)
	code := syncErr(t, func(reply func(sdrtype.ErrorKind)) { f.SetDemod(sdrtype.Demod(999), reply) })
	assert.Equal(t, sdrtype.ErrInvalidDemod, code)
}

func TestSetDemodNoopWhenUnchanged(t *testing.T) {
	f, _, _ := newTestFacade(t)
	code := syncErr(t, func(reply func(sdrtype.ErrorKind)) { f.SetDemod(sdrtype.DemodOff, reply) })
	assert.Equal(t, sdrtype.ErrOK, code)
}

func TestSetDemodSwitchesFallsBackToDefaultFilterWhenOutOfRange(t *testing.T) {
	f, _, _ := newTestFacade(t)

	code := syncErr(t, func(reply func(sdrtype.ErrorKind)) { f.SetFilter(100, 2800, sdrtype.FilterNormal, reply) })
	require.Equal(t, sdrtype.ErrInvalidFilter, code, "filter set before any demod should be rejected by the Off-demod range")

	code = syncErr(t, func(reply func(sdrtype.ErrorKind)) { f.SetDemod(sdrtype.DemodUSB, reply) })
	require.Equal(t, sdrtype.ErrOK, code)

	// Switch to a demod whose default range differs (CWL, narrow around 0)
	// so the previous USB filter edges fall outside it and the fallback
	// to DefaultFilterFor engages.
	code = syncErr(t, func(reply func(sdrtype.ErrorKind)) { f.SetDemod(sdrtype.DemodCWL, reply) })
	assert.Equal(t, sdrtype.ErrOK, code)

	def := sdrtype.DefaultFilterFor(sdrtype.DemodCWL)
	assert.Equal(t, def.Low, f.shadow.filterLow)
	assert.Equal(t, def.High, f.shadow.filterHigh)
}

func TestSetDemodStopsRdsAndRecordingAsSideEffects(t *testing.T) {
	f, _, running := newTestFacade(t)
	running.running = true

	code := syncErr(t, func(reply func(sdrtype.ErrorKind)) { f.SetDemod(sdrtype.DemodWFMStereo, reply) })
	require.Equal(t, sdrtype.ErrOK, code)

	code = syncErr(t, func(reply func(sdrtype.ErrorKind)) { f.StartRdsDecoder(reply) })
	require.Equal(t, sdrtype.ErrOK, code)

	code = syncErr(t, func(reply func(sdrtype.ErrorKind)) { f.StartAudioRecording("/tmp/out.wav", reply) })
	require.Equal(t, sdrtype.ErrOK, code)

	var gotEvents []events.VfoEvent
	var mu sync.Mutex
	f.hub.Connect(func(ev events.VfoEvent) {
		mu.Lock()
		gotEvents = append(gotEvents, ev)
		mu.Unlock()
	})

	code = syncErr(t, func(reply func(sdrtype.ErrorKind)) { f.SetDemod(sdrtype.DemodUSB, reply) })
	require.Equal(t, sdrtype.ErrOK, code)

	mu.Lock()
	defer mu.Unlock()
	var sawRdsStopped, sawRecordingStopped, sawDemodChanged bool
	for _, ev := range gotEvents {
		switch ev.(type) {
		case events.RdsDecoderStopped:
			sawRdsStopped = true
		case events.RecordingStopped:
			sawRecordingStopped = true
		case events.DemodChanged:
			sawDemodChanged = true
		}
	}
	assert.True(t, sawRdsStopped)
	assert.True(t, sawRecordingStopped)
	assert.True(t, sawDemodChanged)
}

func TestStartAudioRecordingRequiresRunningReceiverAndActiveDemod(t *testing.T) {
	f, _, running := newTestFacade(t)
	running.running = true

	code := syncErr(t, func(reply func(sdrtype.ErrorKind)) { f.StartAudioRecording("/tmp/x.wav", reply) })
	assert.Equal(t, sdrtype.ErrDemodIsOff, code)

	code = syncErr(t, func(reply func(sdrtype.ErrorKind)) { f.SetDemod(sdrtype.DemodUSB, reply) })
	require.Equal(t, sdrtype.ErrOK, code)

	running.running = false
	code = syncErr(t, func(reply func(sdrtype.ErrorKind)) { f.StartAudioRecording("/tmp/x.wav", reply) })
	assert.Equal(t, sdrtype.ErrNotRunning, code)

	running.running = true
	code = syncErr(t, func(reply func(sdrtype.ErrorKind)) { f.StartAudioRecording("/tmp/x.wav", reply) })
	assert.Equal(t, sdrtype.ErrOK, code)
}

func TestCommandsFailFastWhenWorkerPaused(t *testing.T) {
	f, w, _ := newTestFacade(t)
	w.Pause()
	defer w.Resume()

	code := syncErr(t, func(reply func(sdrtype.ErrorKind)) { f.SetOffset(100, reply) })
	assert.Equal(t, sdrtype.ErrWorkerBusy, code)
}

func TestCommandsFailWhenVfoRemoved(t *testing.T) {
	f, _, _ := newTestFacade(t)
	f.Remove()

	code := syncErr(t, func(reply func(sdrtype.ErrorKind)) { f.SetOffset(100, reply) })
	assert.Equal(t, sdrtype.ErrVfoNotFound, code)
}

func TestRemoveEmitsVfoRemovedThenDisconnectsSubscribers(t *testing.T) {
	f, _, _ := newTestFacade(t)

	var mu sync.Mutex
	var gotRemoved bool
	f.hub.Connect(func(ev events.VfoEvent) {
		mu.Lock()
		if _, ok := ev.(events.VfoRemoved); ok {
			gotRemoved = true
		}
		mu.Unlock()
	})

	f.Remove()

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, gotRemoved)
	assert.Equal(t, 0, f.hub.Len())
	assert.True(t, f.Removed())
}

func TestSubscribeReplaysFullSnapshotEndingInVfoSyncEnd(t *testing.T) {
	f, _, _ := newTestFacade(t)

	var mu sync.Mutex
	var kinds []events.VfoEvent
	var wg sync.WaitGroup
	wg.Add(1)

	done := make(chan sdrtype.ErrorKind, 1)
	f.Subscribe(func(ev events.VfoEvent) {
		mu.Lock()
		kinds = append(kinds, ev)
		if _, ok := ev.(events.VfoSyncEnd); ok {
			wg.Done()
		}
		mu.Unlock()
	}, func(code sdrtype.ErrorKind, id hub.ConnID) {
		done <- code
	})

	select {
	case code := <-done:
		require.Equal(t, sdrtype.ErrOK, code)
	case <-time.After(2 * time.Second):
		t.Fatal("subscribe did not reply in time")
	}

	waitDone := make(chan struct{})
	go func() { wg.Wait(); close(waitDone) }()
	select {
	case <-waitDone:
	case <-time.After(2 * time.Second):
		t.Fatal("snapshot replay never reached VfoSyncEnd")
	}

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, kinds)
	_, first := kinds[0].(events.VfoSyncStart)
	assert.True(t, first)
	_, last := kinds[len(kinds)-1].(events.VfoSyncEnd)
	assert.True(t, last)
}

func TestGetSignalPwrIsAQueryWithNoShadowSideEffect(t *testing.T) {
	f, _, _ := newTestFacade(t)

	done := make(chan struct {
		code sdrtype.ErrorKind
		pwr  float32
	}, 1)
	f.GetSignalPwr(func(code sdrtype.ErrorKind, pwr float32) {
		done <- struct {
			code sdrtype.ErrorKind
			pwr  float32
		}{code, pwr}
	})
	select {
	case r := <-done:
		assert.Equal(t, sdrtype.ErrOK, r.code)
	case <-time.After(2 * time.Second):
		t.Fatal("GetSignalPwr did not reply in time")
	}
	assert.Equal(t, defaultShadow(), f.shadow)
}

func TestGetSignalPwrFailsWhenVfoRemoved(t *testing.T) {
	f, _, _ := newTestFacade(t)
	f.Remove()

	done := make(chan sdrtype.ErrorKind, 1)
	f.GetSignalPwr(func(code sdrtype.ErrorKind, _ float32) { done <- code })
	select {
	case code := <-done:
		assert.Equal(t, sdrtype.ErrVfoNotFound, code)
	case <-time.After(2 * time.Second):
		t.Fatal("GetSignalPwr did not reply in time")
	}
}

func TestGetRdsDataIsAQueryWithNoShadowSideEffect(t *testing.T) {
	f, _, _ := newTestFacade(t)

	done := make(chan sdrtype.ErrorKind, 1)
	f.GetRdsData(func(code sdrtype.ErrorKind, _ string, _ int32) { done <- code })
	select {
	case code := <-done:
		assert.Equal(t, sdrtype.ErrOK, code)
	case <-time.After(2 * time.Second):
		t.Fatal("GetRdsData did not reply in time")
	}
	assert.Equal(t, defaultShadow(), f.shadow)
}
