package receiver

import (
	"github.com/cwsl/sdrctl/internal/events"
	"github.com/cwsl/sdrctl/internal/hub"
	"github.com/cwsl/sdrctl/internal/sdrtype"
)

// Subscribe implements spec.md §4.4/§4.6's receiver-scope subscribe
// protocol: connect, reply OK with the connection handle, then replay a
// synthetic SyncStart / one event per live receiver parameter / Started
// or Stopped / one IqRecordingStarted (if recording) / one VfoAdded per
// live VFO / SyncEnd sequence to only the new handler — scenario 4 of
// spec.md §8.
func (f *Facade) Subscribe(handler func(events.Event), reply func(sdrtype.ErrorKind, hub.ConnID)) {
	if f.worker.IsPaused() {
		reply(sdrtype.ErrWorkerBusy, hub.ConnID{})
		return
	}
	f.worker.Submit("Subscribe", func() {
		id := f.hub.Connect(handler)
		reply(sdrtype.ErrOK, id)
		f.replaySnapshot(id)
	})
}

// Unsubscribe disconnects a subscriber; idempotent.
func (f *Facade) Unsubscribe(id hub.ConnID) { f.hub.Disconnect(id) }

func (f *Facade) replaySnapshot(id hub.ConnID) {
	s := &f.shadow
	send := func(ev events.Event) { f.hub.EmitTo(id, ev) }

	send(events.NewSyncStart(true))
	send(events.NewInputDeviceChanged(true, f.dsp.CurrentInputDevice()))
	send(events.NewAntennasChanged(true, f.dsp.Antennas()))
	send(events.NewAntennaChanged(true, f.dsp.Antenna()))
	send(events.NewRfFreqChanged(true, f.dsp.RfFreq()))
	send(events.NewInputRateChanged(true, f.dsp.InputRate()))
	send(events.NewInputDecimChanged(true, f.dsp.InputDecim()))
	send(events.NewGainStagesChanged(true, f.dsp.GainNames()))
	send(events.NewIqSwapChanged(true, s.iqSwap))
	send(events.NewDcCancelChanged(true, s.dcCancel))
	send(events.NewIqBalanceChanged(true, s.iqBalance))
	send(events.NewAutoGainChanged(true, s.autoGain))
	for name, val := range s.gainVals {
		send(events.NewGainChanged(true, name, val))
	}
	send(events.NewFreqCorrChanged(true, s.freqCorr))
	send(events.NewFftSizeChanged(true, f.dsp.IqFftSize()))
	send(events.NewFftWindowChanged(true, f.dsp.IqFftWindow()))

	if f.dsp.IsRunning() {
		send(events.NewStarted(true))
	} else {
		send(events.NewStopped(true))
	}
	if f.dsp.IsIqRecording() {
		send(events.NewIqRecordingStarted(true, f.dsp.IqFilename()))
	}

	f.vfoMu.RLock()
	handles := make([]uint64, 0, len(f.vfos))
	for h := range f.vfos {
		handles = append(handles, h)
	}
	f.vfoMu.RUnlock()
	for _, h := range handles {
		send(events.NewVfoAdded(true, h))
	}

	send(events.NewSyncEnd(true))
}
