// Package receiver implements the receiver façade described in spec.md
// §4.5: global commands, VFO lifecycle, FFT retrieval and the
// receiver-scope subscription snapshot, all serialised through the one
// worker shared with every VFO it owns.
package receiver

import (
	"sync"

	"github.com/cwsl/sdrctl/internal/dsp"
	"github.com/cwsl/sdrctl/internal/events"
	"github.com/cwsl/sdrctl/internal/hub"
	"github.com/cwsl/sdrctl/internal/sdrtype"
	"github.com/cwsl/sdrctl/internal/vfo"
	"github.com/cwsl/sdrctl/internal/worker"
)

// Facade exclusively owns the DSP receiver object, the shared worker, and
// the set of VFO façades it has created.
type Facade struct {
	dsp    dsp.Receiver
	worker *worker.Worker
	hub    *hub.Hub[events.Event]

	shadow shadow // worker-thread-confined, per invariant 6

	vfoMu      sync.RWMutex
	vfos       map[uint64]*vfo.Facade
	nextHandle uint64
}

// New constructs a receiver façade around d, starting its own dedicated
// worker (not yet running any DSP — callers must call Start to bring the
// receiver up).
func New(d dsp.Receiver) *Facade {
	f := &Facade{
		dsp:    d,
		worker: worker.New(256),
		hub:    hub.New[events.Event](),
		shadow: defaultShadow(),
		vfos:   make(map[uint64]*vfo.Facade),
	}
	f.worker.Start()
	return f
}

// Close stops the shared worker, draining outstanding tasks.
func (f *Facade) Close() { f.worker.Stop() }

// Worker exposes the shared worker so bridges (metrics, mqtt) can report
// on its queue depth without reaching into façade internals.
func (f *Facade) Worker() *worker.Worker { return f.worker }

// IsRunning implements vfo.RunningQuerier. It is only ever called from
// within a VFO command body, which already executes on this façade's
// shared worker thread, so it is safe to read the DSP object directly
// here without additional synchronisation.
func (f *Facade) IsRunning() bool { return f.dsp.IsRunning() }

// emit emits ev to every receiver-scope subscriber.
func (f *Facade) emit(ev events.Event) { f.hub.Emit(ev) }

// run is the uniform command shape from spec.md §4.3, adapted to the
// receiver façade (no VFO aliveness check — the receiver itself never
// becomes "not found").
func (f *Facade) run(name string, reply func(sdrtype.ErrorKind), body func() sdrtype.ErrorKind) {
	if f.worker.IsPaused() {
		if reply != nil {
			reply(sdrtype.ErrWorkerBusy)
		}
		return
	}
	f.worker.Submit(name, func() {
		code := body()
		if reply != nil {
			reply(code)
		}
	})
}

// ---- lifecycle ----

func (f *Facade) Start(reply func(sdrtype.ErrorKind)) {
	f.run("Start", reply, func() sdrtype.ErrorKind {
		if f.dsp.IsRunning() {
			return sdrtype.ErrOK
		}
		if err := f.dsp.Start(); err != nil {
			return sdrtype.ErrUnknownError
		}
		f.emit(events.NewStarted(false))
		return sdrtype.ErrOK
	})
}

// Stop actually stops the receiver — spec.md §9 flags the source's RPC
// Stop handler as a bug (it called the start path) and directs this be
// fixed; this façade method is the fix.
func (f *Facade) Stop(reply func(sdrtype.ErrorKind)) {
	f.run("Stop", reply, func() sdrtype.ErrorKind {
		if !f.dsp.IsRunning() {
			return sdrtype.ErrOK
		}
		if err := f.dsp.Stop(); err != nil {
			return sdrtype.ErrUnknownError
		}
		f.emit(events.NewStopped(false))
		return sdrtype.ErrOK
	})
}

// ---- input device / antenna ----

// SetInputDevice implements spec.md §4.5's device-swap fallback: on DSP
// failure it falls back to the driver's zero-input source and emits the
// full cascade of consequence events so subscribers learn the new
// reality, in the order the spec requires.
func (f *Facade) SetInputDevice(device string, reply func(sdrtype.ErrorKind)) {
	f.run("SetInputDevice", reply, func() sdrtype.ErrorKind {
		err := f.dsp.SetInputDevice(device)
		code := sdrtype.ErrOK
		if err != nil {
			code = sdrtype.ErrInvalidInputDevice
		}
		// Whether or not the device swap succeeded, the DSP driver has
		// settled on some device (possibly the zero-source fallback); emit
		// the full cascade either way so subscribers always see the truth.
		f.emit(events.NewInputDeviceChanged(false, f.dsp.CurrentInputDevice()))
		f.emit(events.NewGainStagesChanged(false, f.dsp.GainNames()))
		f.emit(events.NewAntennasChanged(false, f.dsp.Antennas()))
		f.emit(events.NewAntennaChanged(false, f.dsp.Antenna()))
		f.emit(events.NewRfFreqChanged(false, f.dsp.RfFreq()))
		f.emit(events.NewInputRateChanged(false, f.dsp.InputRate()))
		return code
	})
}

func (f *Facade) SetAntenna(antenna string, reply func(sdrtype.ErrorKind)) {
	f.run("SetAntenna", reply, func() sdrtype.ErrorKind {
		if err := f.dsp.SetAntenna(antenna); err != nil {
			return sdrtype.ErrUnknownError
		}
		f.emit(events.NewAntennaChanged(false, antenna))
		return sdrtype.ErrOK
	})
}

// ---- input rate / decim (reply carries the actually-achieved value) ----

func (f *Facade) SetInputRate(rate uint32, reply func(sdrtype.ErrorKind, uint32)) {
	if f.worker.IsPaused() {
		reply(sdrtype.ErrWorkerBusy, 0)
		return
	}
	f.worker.Submit("SetInputRate", func() {
		actual, err := f.dsp.SetInputRate(rate)
		if err != nil {
			reply(sdrtype.ErrUnknownError, 0)
			return
		}
		f.emit(events.NewInputRateChanged(false, actual))
		reply(sdrtype.ErrOK, actual)
	})
}

func (f *Facade) SetInputDecim(decim uint32, reply func(sdrtype.ErrorKind, uint32)) {
	if f.worker.IsPaused() {
		reply(sdrtype.ErrWorkerBusy, 0)
		return
	}
	f.worker.Submit("SetInputDecim", func() {
		actual, err := f.dsp.SetInputDecim(decim)
		if err != nil {
			reply(sdrtype.ErrUnknownError, 0)
			return
		}
		f.emit(events.NewInputDecimChanged(false, actual))
		reply(sdrtype.ErrOK, actual)
	})
}

// ---- simple toggles ----

func (f *Facade) SetIqSwap(v bool, reply func(sdrtype.ErrorKind)) {
	f.run("SetIqSwap", reply, func() sdrtype.ErrorKind {
		f.dsp.SetIqSwap(v)
		if f.shadow.iqSwap != v {
			f.shadow.iqSwap = v
			f.emit(events.NewIqSwapChanged(false, v))
		}
		return sdrtype.ErrOK
	})
}

func (f *Facade) SetDcCancel(v bool, reply func(sdrtype.ErrorKind)) {
	f.run("SetDcCancel", reply, func() sdrtype.ErrorKind {
		f.dsp.SetDcCancel(v)
		if f.shadow.dcCancel != v {
			f.shadow.dcCancel = v
			f.emit(events.NewDcCancelChanged(false, v))
		}
		return sdrtype.ErrOK
	})
}

func (f *Facade) SetIqBalance(v bool, reply func(sdrtype.ErrorKind)) {
	f.run("SetIqBalance", reply, func() sdrtype.ErrorKind {
		f.dsp.SetIqBalance(v)
		if f.shadow.iqBalance != v {
			f.shadow.iqBalance = v
			f.emit(events.NewIqBalanceChanged(false, v))
		}
		return sdrtype.ErrOK
	})
}

func (f *Facade) SetRfFreq(freq uint64, reply func(sdrtype.ErrorKind)) {
	f.run("SetRfFreq", reply, func() sdrtype.ErrorKind {
		if err := f.dsp.SetRfFreq(freq); err != nil {
			return sdrtype.ErrUnknownError
		}
		f.emit(events.NewRfFreqChanged(false, freq))
		return sdrtype.ErrOK
	})
}

func (f *Facade) SetAutoGain(v bool, reply func(sdrtype.ErrorKind)) {
	f.run("SetAutoGain", reply, func() sdrtype.ErrorKind {
		if err := f.dsp.SetAutoGain(v); err != nil {
			return sdrtype.ErrUnknownError
		}
		if f.shadow.autoGain != v {
			f.shadow.autoGain = v
			f.emit(events.NewAutoGainChanged(false, v))
		}
		return sdrtype.ErrOK
	})
}

// SetGain fails GAIN_NOT_FOUND if name isn't among the device's advertised
// stages, per spec.md §4.5.
func (f *Facade) SetGain(name string, value float32, reply func(sdrtype.ErrorKind)) {
	f.run("SetGain", reply, func() sdrtype.ErrorKind {
		if _, ok := f.dsp.GainRange(name); !ok {
			return sdrtype.ErrGainNotFound
		}
		if err := f.dsp.SetGain(name, value); err != nil {
			return sdrtype.ErrGainNotFound
		}
		if f.shadow.gainVals[name] != value {
			f.shadow.gainVals[name] = value
			f.emit(events.NewGainChanged(false, name, value))
		}
		return sdrtype.ErrOK
	})
}

// SetFreqCorr clamps ppm to [-200, 200] before applying, per spec.md §4.5.
func (f *Facade) SetFreqCorr(ppm int32, reply func(sdrtype.ErrorKind)) {
	f.run("SetFreqCorr", reply, func() sdrtype.ErrorKind {
		if ppm > 200 {
			ppm = 200
		} else if ppm < -200 {
			ppm = -200
		}
		f.dsp.SetFreqCorr(ppm)
		if f.shadow.freqCorr != ppm {
			f.shadow.freqCorr = ppm
			f.emit(events.NewFreqCorrChanged(false, ppm))
		}
		return sdrtype.ErrOK
	})
}

func (f *Facade) SetFftSize(size uint32, reply func(sdrtype.ErrorKind)) {
	f.run("SetFftSize", reply, func() sdrtype.ErrorKind {
		f.dsp.SetIqFftSize(size)
		f.emit(events.NewFftSizeChanged(false, size))
		return sdrtype.ErrOK
	})
}

func (f *Facade) SetFftWindow(w sdrtype.WindowType, reply func(sdrtype.ErrorKind)) {
	f.run("SetFftWindow", reply, func() sdrtype.ErrorKind {
		if !w.Valid() {
			return sdrtype.ErrUnknownError
		}
		f.dsp.SetIqFftWindow(w)
		f.emit(events.NewFftWindowChanged(false, w))
		return sdrtype.ErrOK
	})
}

// ---- IQ recording ----

func (f *Facade) StartIqRecording(path string, reply func(sdrtype.ErrorKind)) {
	f.run("StartIqRecording", reply, func() sdrtype.ErrorKind {
		if f.dsp.IsIqRecording() {
			return sdrtype.ErrAlreadyRecording
		}
		if err := f.dsp.StartIqRecording(path); err != nil {
			return sdrtype.ErrCouldntCreateFile
		}
		f.emit(events.NewIqRecordingStarted(false, path))
		return sdrtype.ErrOK
	})
}

func (f *Facade) StopIqRecording(reply func(sdrtype.ErrorKind)) {
	f.run("StopIqRecording", reply, func() sdrtype.ErrorKind {
		if !f.dsp.IsIqRecording() {
			return sdrtype.ErrAlreadyNotRecording
		}
		if err := f.dsp.StopIqRecording(); err != nil {
			return sdrtype.ErrUnknownError
		}
		f.emit(events.NewIqRecordingStopped(false))
		return sdrtype.ErrOK
	})
}
