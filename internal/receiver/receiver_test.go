package receiver

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwsl/sdrctl/internal/dsp"
	"github.com/cwsl/sdrctl/internal/dsp/sim"
	"github.com/cwsl/sdrctl/internal/events"
	"github.com/cwsl/sdrctl/internal/sdrtype"
)

func newTestReceiver(t *testing.T) *Facade {
	t.Helper()
	f := New(sim.New())
	t.Cleanup(f.Close)
	return f
}

func syncCode(t *testing.T, submit func(reply func(sdrtype.ErrorKind))) sdrtype.ErrorKind {
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

func TestStartThenStopActuallyStopsTheDSP(t *testing.T) {
	f := newTestReceiver(t)

	code := syncCode(t, f.Start)
	require.Equal(t, sdrtype.ErrOK, code)
	assert.True(t, f.IsRunning())

	code = syncCode(t, f.Stop)
	require.Equal(t, sdrtype.ErrOK, code)
	assert.False(t, f.IsRunning(), "Stop must actually stop the DSP, not restart it")
}

func TestSetInputDeviceEmitsFullCascadeOnFailure(t *testing.T) {
	f := newTestReceiver(t)

	var mu sync.Mutex
	var kinds []events.Event
	f.hub.Connect(func(ev events.Event) {
		mu.Lock()
		kinds = append(kinds, ev)
		mu.Unlock()
	})

	done := make(chan sdrtype.ErrorKind, 1)
	f.SetInputDevice("bogus-device", func(code sdrtype.ErrorKind) { done <- code })
	code := <-done
	assert.Equal(t, sdrtype.ErrInvalidInputDevice, code)

	mu.Lock()
	defer mu.Unlock()
	var sawDevice, sawGains, sawAntennas, sawAntenna, sawFreq, sawRate bool
	for _, ev := range kinds {
		switch ev.(type) {
		case events.InputDeviceChanged:
			sawDevice = true
		case events.GainStagesChanged:
			sawGains = true
		case events.AntennasChanged:
			sawAntennas = true
		case events.AntennaChanged:
			sawAntenna = true
		case events.RfFreqChanged:
			sawFreq = true
		case events.InputRateChanged:
			sawRate = true
		}
	}
	assert.True(t, sawDevice)
	assert.True(t, sawGains)
	assert.True(t, sawAntennas)
	assert.True(t, sawAntenna)
	assert.True(t, sawFreq)
	assert.True(t, sawRate)
}

func TestSetGainUnknownStageFails(t *testing.T) {
	f := newTestReceiver(t)
	code := syncCode(t, func(reply func(sdrtype.ErrorKind)) { f.SetGain("nonexistent", 10, reply) })
	assert.Equal(t, sdrtype.ErrGainNotFound, code)
}

func TestSetFreqCorrClampsToRange(t *testing.T) {
	f := newTestReceiver(t)
	code := syncCode(t, func(reply func(sdrtype.ErrorKind)) { f.SetFreqCorr(500, reply) })
	require.Equal(t, sdrtype.ErrOK, code)
	assert.Equal(t, int32(200), f.shadow.freqCorr)

	code = syncCode(t, func(reply func(sdrtype.ErrorKind)) { f.SetFreqCorr(-500, reply) })
	require.Equal(t, sdrtype.ErrOK, code)
	assert.Equal(t, int32(-200), f.shadow.freqCorr)
}

func TestStartIqRecordingRejectsDoubleStart(t *testing.T) {
	f := newTestReceiver(t)
	code := syncCode(t, func(reply func(sdrtype.ErrorKind)) { f.StartIqRecording("/tmp/iq.raw", reply) })
	require.Equal(t, sdrtype.ErrOK, code)

	code = syncCode(t, func(reply func(sdrtype.ErrorKind)) { f.StartIqRecording("/tmp/iq2.raw", reply) })
	assert.Equal(t, sdrtype.ErrAlreadyRecording, code)
}

func TestStopIqRecordingRejectsWhenNotRecording(t *testing.T) {
	f := newTestReceiver(t)
	code := syncCode(t, func(reply func(sdrtype.ErrorKind)) { f.StopIqRecording(reply) })
	assert.Equal(t, sdrtype.ErrAlreadyNotRecording, code)
}

func TestAddAndRemoveVfoChannelLifecycle(t *testing.T) {
	f := newTestReceiver(t)

	done := make(chan struct {
		code   sdrtype.ErrorKind
		handle uint64
	}, 1)
	f.AddVfoChannel(func(code sdrtype.ErrorKind, handle uint64) {
		done <- struct {
			code   sdrtype.ErrorKind
			handle uint64
		}{code, handle}
	})
	result := <-done
	require.Equal(t, sdrtype.ErrOK, result.code)
	require.NotZero(t, result.handle)

	vf, ok := f.GetVfo(result.handle)
	require.True(t, ok)
	assert.Equal(t, result.handle, vf.Handle)

	assert.Contains(t, f.VfoHandles(), result.handle)

	code := syncCode(t, func(reply func(sdrtype.ErrorKind)) { f.RemoveVfoChannel(result.handle, reply) })
	require.Equal(t, sdrtype.ErrOK, code)

	_, ok = f.GetVfo(result.handle)
	assert.False(t, ok)
	assert.NotContains(t, f.VfoHandles(), result.handle)
}

func TestRemoveVfoChannelUnknownHandleFails(t *testing.T) {
	f := newTestReceiver(t)
	code := syncCode(t, func(reply func(sdrtype.ErrorKind)) { f.RemoveVfoChannel(99999, reply) })
	assert.Equal(t, sdrtype.ErrVfoNotFound, code)
}

func TestGetIqFftDataRejectsUndersizedBuffer(t *testing.T) {
	f := newTestReceiver(t)

	done := make(chan struct {
		code  sdrtype.ErrorKind
		frame dsp.FftFrame
	}, 1)
	buf := make([]float32, 1)
	f.GetIqFftData(buf, func(code sdrtype.ErrorKind, frame dsp.FftFrame) {
		done <- struct {
			code  sdrtype.ErrorKind
			frame dsp.FftFrame
		}{code, frame}
	})
	result := <-done
	assert.Equal(t, sdrtype.ErrInsufficientBufferSize, result.code)
}

func TestGetIqFftDataFillsProvidedBuffer(t *testing.T) {
	f := newTestReceiver(t)

	code := syncCode(t, func(reply func(sdrtype.ErrorKind)) { f.SetFftSize(1024, reply) })
	require.Equal(t, sdrtype.ErrOK, code)

	done := make(chan struct {
		code  sdrtype.ErrorKind
		frame dsp.FftFrame
	}, 1)
	buf := make([]float32, 4096)
	f.GetIqFftData(buf, func(code sdrtype.ErrorKind, frame dsp.FftFrame) {
		done <- struct {
			code  sdrtype.ErrorKind
			frame dsp.FftFrame
		}{code, frame}
	})
	result := <-done
	require.Equal(t, sdrtype.ErrOK, result.code)
	assert.Len(t, result.frame.Bins, 1024)
}

func TestCommandsFailFastWhenWorkerPaused(t *testing.T) {
	f := newTestReceiver(t)
	f.worker.Pause()
	defer f.worker.Resume()

	code := syncCode(t, func(reply func(sdrtype.ErrorKind)) { f.SetAntenna("ANT1", reply) })
	assert.Equal(t, sdrtype.ErrWorkerBusy, code)
}
