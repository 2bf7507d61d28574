// Package vfo implements the VFO façade described in spec.md §4.4: a
// per-channel command/query/subscribe surface over one dsp.VfoChannel,
// serialised through a shared worker and holding shadow state that
// survives demod switches.
package vfo

import (
	"sync/atomic"

	"github.com/cwsl/sdrctl/internal/dsp"
	"github.com/cwsl/sdrctl/internal/events"
	"github.com/cwsl/sdrctl/internal/hub"
	"github.com/cwsl/sdrctl/internal/sdrtype"
	"github.com/cwsl/sdrctl/internal/worker"
)

// RunningQuerier lets a VFO façade answer "is the parent receiver
// running?" without taking a hard reference back to the receiver façade,
// matching the design notes' "weak back-reference" requirement.
type RunningQuerier interface {
	IsRunning() bool
}

// Facade is one VFO's command/query/subscribe surface.
type Facade struct {
	Handle uint64

	ch       dsp.VfoChannel
	worker   *worker.Worker
	hub      *hub.Hub[events.VfoEvent]
	receiver RunningQuerier

	removed atomic.Bool
	shadow  shadow // worker-thread-confined, per invariant 6
}

// New constructs a VFO façade around an already-created DSP channel. The
// receiver façade is responsible for calling this only from its own
// worker-thread closure (AddVfoChannel's command body).
func New(handle uint64, ch dsp.VfoChannel, w *worker.Worker, receiver RunningQuerier) *Facade {
	return &Facade{
		Handle:   handle,
		ch:       ch,
		worker:   w,
		hub:      hub.New[events.VfoEvent](),
		receiver: receiver,
		shadow:   defaultShadow(),
	}
}

// Removed reports whether this VFO has been torn down (sealed against
// further commands). Safe to call from any goroutine.
func (f *Facade) Removed() bool { return f.removed.Load() }

// markRemoved seals the façade. Called by the receiver façade's
// RemoveVfoChannel command body, on the worker thread.
func (f *Facade) markRemoved() { f.removed.Store(true) }

// emit emits ev to every subscriber of this VFO's hub, unless the VFO has
// already emitted VfoRemoved (invariant 4: no further events after
// VfoRemoved).
func (f *Facade) emit(ev events.VfoEvent) {
	if f.removed.Load() {
		return
	}
	f.hub.Emit(ev)
}

// run is the uniform command shape from spec.md §4.3: check worker
// pause, enqueue, check aliveness, run body, reply.
func (f *Facade) run(name string, reply func(sdrtype.ErrorKind), body func() sdrtype.ErrorKind) {
	if f.worker.IsPaused() {
		if reply != nil {
			reply(sdrtype.ErrWorkerBusy)
		}
		return
	}
	f.worker.Submit(name, func() {
		if f.removed.Load() {
			if reply != nil {
				reply(sdrtype.ErrVfoNotFound)
			}
			return
		}
		code := body()
		if reply != nil {
			reply(code)
		}
	})
}

// ---- simple shadow setters (emit <X>Changed iff the value changed) ----

func (f *Facade) SetCwOffset(offset int32, reply func(sdrtype.ErrorKind)) {
	f.run("SetCwOffset", reply, func() sdrtype.ErrorKind {
		if err := f.ch.SetCwOffset(offset); err != nil {
			if code, ok := err.(sdrtype.ErrorKind); ok {
				return code
			}
			return sdrtype.ErrInvalidCWOffset
		}
		if f.shadow.cwOffset != offset {
			f.shadow.cwOffset = offset
			f.emit(events.NewCwOffsetChanged(f.Handle, false, offset))
		}
		return sdrtype.ErrOK
	})
}

func (f *Facade) SetOffset(offset int64, reply func(sdrtype.ErrorKind)) {
	f.run("SetOffset", reply, func() sdrtype.ErrorKind {
		f.ch.SetOffset(offset)
		if f.shadow.offset != offset {
			f.shadow.offset = offset
			f.emit(events.NewOffsetChanged(f.Handle, false, offset))
		}
		return sdrtype.ErrOK
	})
}

// SetFilter implements spec.md §4.3's setFilter(low, high, shape).
func (f *Facade) SetFilter(low, high int32, shape sdrtype.FilterShape, reply func(sdrtype.ErrorKind)) {
	f.run("SetFilter", reply, func() sdrtype.ErrorKind {
		return f.setFilterLocked(low, high, shape)
	})
}

func (f *Facade) setFilterLocked(low, high int32, shape sdrtype.FilterShape) sdrtype.ErrorKind {
	if code := sdrtype.ValidateFilter(f.shadow.demod, low, high, f.ch.FilterMinWidth()); code != sdrtype.ErrOK {
		return code
	}
	if err := f.ch.SetFilter(shape, low, high); err != nil {
		if code, ok := err.(sdrtype.ErrorKind); ok {
			return code
		}
		return sdrtype.ErrInvalidFilter
	}
	if f.shadow.filterShape != shape || f.shadow.filterLow != low || f.shadow.filterHigh != high {
		f.shadow.filterShape, f.shadow.filterLow, f.shadow.filterHigh = shape, low, high
		f.emit(events.NewFilterChanged(f.Handle, false, shape, low, high))
	}
	return sdrtype.ErrOK
}

// GetSignalPwr is a query, not a command: it has no shadow state to
// update and never emits an event.
func (f *Facade) GetSignalPwr(reply func(sdrtype.ErrorKind, float32)) {
	if f.worker.IsPaused() {
		reply(sdrtype.ErrWorkerBusy, 0)
		return
	}
	f.worker.Submit("GetSignalPwr", func() {
		if f.removed.Load() {
			reply(sdrtype.ErrVfoNotFound, 0)
			return
		}
		reply(sdrtype.ErrOK, f.ch.GetSignalPwr())
	})
}

func (f *Facade) SetSqlLevel(v float32, reply func(sdrtype.ErrorKind)) {
	f.run("SetSqlLevel", reply, func() sdrtype.ErrorKind {
		f.ch.SetSqlLevel(v)
		if f.shadow.sqlLevel != v {
			f.shadow.sqlLevel = v
			f.emit(events.NewSqlLevelChanged(f.Handle, false, v))
		}
		return sdrtype.ErrOK
	})
}

func (f *Facade) SetSqlAlpha(v float32, reply func(sdrtype.ErrorKind)) {
	f.run("SetSqlAlpha", reply, func() sdrtype.ErrorKind {
		f.ch.SetSqlAlpha(v)
		if f.shadow.sqlAlpha != v {
			f.shadow.sqlAlpha = v
			f.emit(events.NewSqlAlphaChanged(f.Handle, false, v))
		}
		return sdrtype.ErrOK
	})
}

func (f *Facade) SetAgcOn(v bool, reply func(sdrtype.ErrorKind)) {
	f.run("SetAgcOn", reply, func() sdrtype.ErrorKind {
		f.ch.SetAgcOn(v)
		if f.shadow.agcOn != v {
			f.shadow.agcOn = v
			f.emit(events.NewAgcOnChanged(f.Handle, false, v))
		}
		return sdrtype.ErrOK
	})
}

func (f *Facade) SetAgcHang(v bool, reply func(sdrtype.ErrorKind)) {
	f.run("SetAgcHang", reply, func() sdrtype.ErrorKind {
		f.ch.SetAgcHang(v)
		if f.shadow.agcHang != v {
			f.shadow.agcHang = v
			f.emit(events.NewAgcHangChanged(f.Handle, false, v))
		}
		return sdrtype.ErrOK
	})
}

func (f *Facade) SetAgcThreshold(v int32, reply func(sdrtype.ErrorKind)) {
	f.run("SetAgcThreshold", reply, func() sdrtype.ErrorKind {
		f.ch.SetAgcThreshold(v)
		if f.shadow.agcThreshold != v {
			f.shadow.agcThreshold = v
			f.emit(events.NewAgcThresholdChanged(f.Handle, false, v))
		}
		return sdrtype.ErrOK
	})
}

func (f *Facade) SetAgcSlope(v int32, reply func(sdrtype.ErrorKind)) {
	f.run("SetAgcSlope", reply, func() sdrtype.ErrorKind {
		f.ch.SetAgcSlope(v)
		if f.shadow.agcSlope != v {
			f.shadow.agcSlope = v
			f.emit(events.NewAgcSlopeChanged(f.Handle, false, v))
		}
		return sdrtype.ErrOK
	})
}

func (f *Facade) SetAgcDecay(v int32, reply func(sdrtype.ErrorKind)) {
	f.run("SetAgcDecay", reply, func() sdrtype.ErrorKind {
		f.ch.SetAgcDecay(v)
		if f.shadow.agcDecay != v {
			f.shadow.agcDecay = v
			f.emit(events.NewAgcDecayChanged(f.Handle, false, v))
		}
		return sdrtype.ErrOK
	})
}

func (f *Facade) SetAgcManualGain(v float32, reply func(sdrtype.ErrorKind)) {
	f.run("SetAgcManualGain", reply, func() sdrtype.ErrorKind {
		f.ch.SetAgcManualGain(v)
		if f.shadow.agcManualGain != v {
			f.shadow.agcManualGain = v
			f.emit(events.NewAgcManualGainChanged(f.Handle, false, v))
		}
		return sdrtype.ErrOK
	})
}

func (f *Facade) SetNoiseBlankerOn(id int32, v bool, reply func(sdrtype.ErrorKind)) {
	f.run("SetNoiseBlankerOn", reply, func() sdrtype.ErrorKind {
		if id != 1 && id != 2 {
			return sdrtype.ErrUnknownError
		}
		f.ch.SetNoiseBlankerOn(id, v)
		if f.shadow.nbOn[id-1] != v {
			f.shadow.nbOn[id-1] = v
			f.emit(events.NewNoiseBlankerOnChanged(f.Handle, false, id, v))
		}
		return sdrtype.ErrOK
	})
}

func (f *Facade) SetNoiseBlankerThreshold(id int32, v float32, reply func(sdrtype.ErrorKind)) {
	f.run("SetNoiseBlankerThreshold", reply, func() sdrtype.ErrorKind {
		if id != 1 && id != 2 {
			return sdrtype.ErrUnknownError
		}
		f.ch.SetNoiseBlankerThreshold(id, v)
		if f.shadow.nbThr[id-1] != v {
			f.shadow.nbThr[id-1] = v
			f.emit(events.NewNoiseBlankerThresholdChanged(f.Handle, false, id, v))
		}
		return sdrtype.ErrOK
	})
}

func (f *Facade) SetFmMaxDev(v float32, reply func(sdrtype.ErrorKind)) {
	f.run("SetFmMaxDev", reply, func() sdrtype.ErrorKind {
		f.ch.SetFmMaxDev(v)
		if f.shadow.fmMaxDev != v {
			f.shadow.fmMaxDev = v
			f.emit(events.NewFmMaxDevChanged(f.Handle, false, v))
		}
		return sdrtype.ErrOK
	})
}

func (f *Facade) SetFmDeemph(v float32, reply func(sdrtype.ErrorKind)) {
	f.run("SetFmDeemph", reply, func() sdrtype.ErrorKind {
		f.ch.SetFmDeemph(v)
		if f.shadow.fmDeemph != v {
			f.shadow.fmDeemph = v
			f.emit(events.NewFmDeemphChanged(f.Handle, false, v))
		}
		return sdrtype.ErrOK
	})
}

func (f *Facade) SetAmDcr(v bool, reply func(sdrtype.ErrorKind)) {
	f.run("SetAmDcr", reply, func() sdrtype.ErrorKind {
		f.ch.SetAmDcr(v)
		if f.shadow.amDcr != v {
			f.shadow.amDcr = v
			f.emit(events.NewAmDcrChanged(f.Handle, false, v))
		}
		return sdrtype.ErrOK
	})
}

func (f *Facade) SetAmSyncDcr(v bool, reply func(sdrtype.ErrorKind)) {
	f.run("SetAmSyncDcr", reply, func() sdrtype.ErrorKind {
		f.ch.SetAmSyncDcr(v)
		if f.shadow.amSyncDcr != v {
			f.shadow.amSyncDcr = v
			f.emit(events.NewAmSyncDcrChanged(f.Handle, false, v))
		}
		return sdrtype.ErrOK
	})
}

func (f *Facade) SetAmSyncPllBw(v float32, reply func(sdrtype.ErrorKind)) {
	f.run("SetAmSyncPllBw", reply, func() sdrtype.ErrorKind {
		f.ch.SetAmSyncPllBw(v)
		if f.shadow.amSyncBw != v {
			f.shadow.amSyncBw = v
			f.emit(events.NewAmSyncPllBwChanged(f.Handle, false, v))
		}
		return sdrtype.ErrOK
	})
}

func (f *Facade) SetAudioGain(v float32, reply func(sdrtype.ErrorKind)) {
	f.run("SetAudioGain", reply, func() sdrtype.ErrorKind {
		f.ch.SetAudioGain(v)
		if f.shadow.audioGain != v {
			f.shadow.audioGain = v
			f.emit(events.NewAudioGainChanged(f.Handle, false, v))
		}
		return sdrtype.ErrOK
	})
}

// ---- audio recording ----

func (f *Facade) StartAudioRecording(path string, reply func(sdrtype.ErrorKind)) {
	f.run("StartAudioRecording", reply, func() sdrtype.ErrorKind {
		if f.shadow.recording {
			return sdrtype.ErrAlreadyRecording
		}
		if f.shadow.demod == sdrtype.DemodOff {
			return sdrtype.ErrDemodIsOff
		}
		if !f.receiver.IsRunning() {
			return sdrtype.ErrNotRunning
		}
		if err := f.ch.StartAudioRecording(path); err != nil {
			if code, ok := err.(sdrtype.ErrorKind); ok {
				return code
			}
			return sdrtype.ErrCouldntCreateFile
		}
		f.shadow.recording, f.shadow.recordingPath = true, path
		f.emit(events.NewRecordingStarted(f.Handle, false, path))
		return sdrtype.ErrOK
	})
}

func (f *Facade) StopAudioRecording(reply func(sdrtype.ErrorKind)) {
	f.run("StopAudioRecording", reply, func() sdrtype.ErrorKind {
		if !f.shadow.recording {
			return sdrtype.ErrAlreadyNotRecording
		}
		if err := f.ch.StopAudioRecording(); err != nil {
			if code, ok := err.(sdrtype.ErrorKind); ok {
				return code
			}
			return sdrtype.ErrUnknownError
		}
		f.shadow.recording, f.shadow.recordingPath = false, ""
		f.emit(events.NewRecordingStopped(f.Handle, false))
		return sdrtype.ErrOK
	})
}

// ---- sniffer ----

func (f *Facade) StartSniffer(rate, size uint32, reply func(sdrtype.ErrorKind)) {
	f.run("StartSniffer", reply, func() sdrtype.ErrorKind {
		if f.shadow.sniffing {
			return sdrtype.ErrSnifferAlreadyActive
		}
		if err := f.ch.StartSniffer(rate, size); err != nil {
			if code, ok := err.(sdrtype.ErrorKind); ok {
				return code
			}
			return sdrtype.ErrUnknownError
		}
		f.shadow.sniffing, f.shadow.snifferRate, f.shadow.snifferSize = true, rate, size
		f.emit(events.NewSnifferStarted(f.Handle, false, rate, size))
		return sdrtype.ErrOK
	})
}

func (f *Facade) StopSniffer(reply func(sdrtype.ErrorKind)) {
	f.run("StopSniffer", reply, func() sdrtype.ErrorKind {
		if !f.shadow.sniffing {
			return sdrtype.ErrSnifferAlreadyInactive
		}
		if err := f.ch.StopSniffer(); err != nil {
			if code, ok := err.(sdrtype.ErrorKind); ok {
				return code
			}
			return sdrtype.ErrUnknownError
		}
		f.shadow.sniffing = false
		f.emit(events.NewSnifferStopped(f.Handle, false))
		return sdrtype.ErrOK
	})
}

// GetSnifferData fills buf (reply carries how many samples were written).
func (f *Facade) GetSnifferData(buf []float32, reply func(sdrtype.ErrorKind, int)) {
	if f.worker.IsPaused() {
		reply(sdrtype.ErrWorkerBusy, 0)
		return
	}
	f.worker.Submit("GetSnifferData", func() {
		if f.removed.Load() {
			reply(sdrtype.ErrVfoNotFound, 0)
			return
		}
		if len(buf) < f.ch.SnifferBufferSize() {
			reply(sdrtype.ErrInsufficientBufferSize, 0)
			return
		}
		n, err := f.ch.GetSnifferData(buf)
		if err != nil {
			if code, ok := err.(sdrtype.ErrorKind); ok {
				reply(code, 0)
				return
			}
			reply(sdrtype.ErrUnknownError, 0)
			return
		}
		reply(sdrtype.ErrOK, n)
	})
}

// ---- UDP streaming ----

func (f *Facade) StartUdpStreaming(host string, port uint16, stereo bool, reply func(sdrtype.ErrorKind)) {
	f.run("StartUdpStreaming", reply, func() sdrtype.ErrorKind {
		if f.shadow.udpStreaming {
			return sdrtype.ErrAlreadyRecording
		}
		if err := f.ch.StartUdpStreaming(host, port, stereo); err != nil {
			return sdrtype.ErrUnknownError
		}
		f.shadow.udpStreaming, f.shadow.udpHost, f.shadow.udpPort, f.shadow.udpStereo = true, host, port, stereo
		f.emit(events.NewUdpStreamingStarted(f.Handle, false, host, port, stereo))
		return sdrtype.ErrOK
	})
}

func (f *Facade) StopUdpStreaming(reply func(sdrtype.ErrorKind)) {
	f.run("StopUdpStreaming", reply, func() sdrtype.ErrorKind {
		if !f.shadow.udpStreaming {
			return sdrtype.ErrAlreadyNotRecording
		}
		if err := f.ch.StopUdpStreaming(); err != nil {
			return sdrtype.ErrUnknownError
		}
		f.shadow.udpStreaming = false
		f.emit(events.NewUdpStreamingStopped(f.Handle, false))
		return sdrtype.ErrOK
	})
}

// ---- RDS ----

func (f *Facade) stopRdsDecoderLocked() sdrtype.ErrorKind {
	if !f.shadow.rdsDecoding {
		return sdrtype.ErrRdsAlreadyInactive
	}
	if err := f.ch.StopRdsDecoder(); err != nil {
		return sdrtype.ErrUnknownError
	}
	f.shadow.rdsDecoding = false
	f.emit(events.NewRdsDecoderStopped(f.Handle, false))
	return sdrtype.ErrOK
}

func (f *Facade) StartRdsDecoder(reply func(sdrtype.ErrorKind)) {
	f.run("StartRdsDecoder", reply, func() sdrtype.ErrorKind {
		if f.shadow.rdsDecoding {
			return sdrtype.ErrRdsAlreadyActive
		}
		if err := f.ch.StartRdsDecoder(); err != nil {
			return sdrtype.ErrUnknownError
		}
		f.shadow.rdsDecoding = true
		f.emit(events.NewRdsDecoderStarted(f.Handle, false))
		return sdrtype.ErrOK
	})
}

func (f *Facade) StopRdsDecoder(reply func(sdrtype.ErrorKind)) {
	f.run("StopRdsDecoder", reply, func() sdrtype.ErrorKind {
		return f.stopRdsDecoderLocked()
	})
}

// GetRdsData is a query: it returns decoded RDS bytes plus the RDS group
// type without touching shadow state or emitting an event.
func (f *Facade) GetRdsData(reply func(sdrtype.ErrorKind, string, int32)) {
	if f.worker.IsPaused() {
		reply(sdrtype.ErrWorkerBusy, "", 0)
		return
	}
	f.worker.Submit("GetRdsData", func() {
		if f.removed.Load() {
			reply(sdrtype.ErrVfoNotFound, "", 0)
			return
		}
		data, rdsType := f.ch.GetRdsData()
		reply(sdrtype.ErrOK, data, rdsType)
	})
}

// ---- subscribe ----

// Subscribe implements the per-VFO subscribe protocol from spec.md §4.3:
// connect, reply OK with the connection handle, then replay a synthetic
// VfoSyncStart / one event per live parameter / VfoSyncEnd sequence to
// only the new handler.
func (f *Facade) Subscribe(handler func(events.VfoEvent), reply func(sdrtype.ErrorKind, hub.ConnID)) {
	if f.worker.IsPaused() {
		reply(sdrtype.ErrWorkerBusy, hub.ConnID{})
		return
	}
	f.worker.Submit("Subscribe", func() {
		if f.removed.Load() {
			reply(sdrtype.ErrVfoNotFound, hub.ConnID{})
			return
		}
		id := f.hub.Connect(handler)
		reply(sdrtype.ErrOK, id)
		f.replaySnapshot(id)
	})
}

// Unsubscribe disconnects a subscriber; idempotent.
func (f *Facade) Unsubscribe(id hub.ConnID) { f.hub.Disconnect(id) }

func (f *Facade) replaySnapshot(id hub.ConnID) {
	s := &f.shadow
	send := func(ev events.VfoEvent) { f.hub.EmitTo(id, ev) }

	send(events.NewVfoSyncStart(f.Handle, true))
	send(events.NewDemodChanged(f.Handle, true, s.demod))
	send(events.NewFilterChanged(f.Handle, true, s.filterShape, s.filterLow, s.filterHigh))
	send(events.NewCwOffsetChanged(f.Handle, true, s.cwOffset))
	send(events.NewOffsetChanged(f.Handle, true, s.offset))
	send(events.NewSqlLevelChanged(f.Handle, true, s.sqlLevel))
	send(events.NewSqlAlphaChanged(f.Handle, true, s.sqlAlpha))
	send(events.NewAgcOnChanged(f.Handle, true, s.agcOn))
	send(events.NewAgcHangChanged(f.Handle, true, s.agcHang))
	send(events.NewAgcThresholdChanged(f.Handle, true, s.agcThreshold))
	send(events.NewAgcSlopeChanged(f.Handle, true, s.agcSlope))
	send(events.NewAgcDecayChanged(f.Handle, true, s.agcDecay))
	send(events.NewAgcManualGainChanged(f.Handle, true, s.agcManualGain))
	send(events.NewNoiseBlankerOnChanged(f.Handle, true, 1, s.nbOn[0]))
	send(events.NewNoiseBlankerThresholdChanged(f.Handle, true, 1, s.nbThr[0]))
	send(events.NewNoiseBlankerOnChanged(f.Handle, true, 2, s.nbOn[1]))
	send(events.NewNoiseBlankerThresholdChanged(f.Handle, true, 2, s.nbThr[1]))
	send(events.NewFmMaxDevChanged(f.Handle, true, s.fmMaxDev))
	send(events.NewFmDeemphChanged(f.Handle, true, s.fmDeemph))
	send(events.NewAmDcrChanged(f.Handle, true, s.amDcr))
	send(events.NewAmSyncDcrChanged(f.Handle, true, s.amSyncDcr))
	send(events.NewAmSyncPllBwChanged(f.Handle, true, s.amSyncBw))
	send(events.NewAudioGainChanged(f.Handle, true, s.audioGain))
	if s.recording {
		send(events.NewRecordingStarted(f.Handle, true, s.recordingPath))
	}
	if s.sniffing {
		send(events.NewSnifferStarted(f.Handle, true, s.snifferRate, s.snifferSize))
	}
	if s.udpStreaming {
		send(events.NewUdpStreamingStarted(f.Handle, true, s.udpHost, s.udpPort, s.udpStereo))
	}
	if s.rdsDecoding {
		send(events.NewRdsDecoderStarted(f.Handle, true))
	}
	send(events.NewVfoSyncEnd(f.Handle, true))
}

// Remove is invoked (on the worker thread) by the receiver façade's
// RemoveVfoChannel command body: emit VfoRemoved, then disconnect every
// subscriber, per invariant 4 (no further events once VfoRemoved fires)
// and spec.md §4.4's removeVfoChannel description.
func (f *Facade) Remove() {
	f.emit(events.NewVfoRemoved(f.Handle, false))
	f.markRemoved()
	f.hub.DisconnectAll()
}

// Channel exposes the underlying DSP channel so the receiver façade can
// detach it from the DSP receiver object during removal.
func (f *Facade) Channel() dsp.VfoChannel { return f.ch }
