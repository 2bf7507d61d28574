package receiver

import (
	"github.com/cwsl/sdrctl/internal/dsp"
	"github.com/cwsl/sdrctl/internal/events"
	"github.com/cwsl/sdrctl/internal/sdrtype"
	"github.com/cwsl/sdrctl/internal/vfo"
)

// AddVfoChannel implements spec.md §4.4's addVfoChannel: allocate a DSP
// channel, wrap it in a new vfo.Facade sharing this façade's worker and
// hub, register it under a fresh handle, and emit VfoAdded.
func (f *Facade) AddVfoChannel(reply func(sdrtype.ErrorKind, uint64)) {
	if f.worker.IsPaused() {
		reply(sdrtype.ErrWorkerBusy, 0)
		return
	}
	f.worker.Submit("AddVfoChannel", func() {
		ch, err := f.dsp.AddVfoChannel()
		if err != nil {
			reply(sdrtype.ErrUnknownError, 0)
			return
		}

		f.vfoMu.Lock()
		f.nextHandle++
		handle := f.nextHandle
		vf := vfo.New(handle, ch, f.worker, f)
		f.vfos[handle] = vf
		f.vfoMu.Unlock()

		f.emit(events.NewVfoAdded(false, handle))
		reply(sdrtype.ErrOK, handle)
	})
}

// RemoveVfoChannel implements spec.md §4.4's removeVfoChannel: detach the
// VFO's terminal event (vfo.Facade.Remove handles VfoRemoved + sealing +
// subscriber teardown), detach its DSP channel, drop it from the handle
// table, then emit the receiver-scope VfoRemovedR.
func (f *Facade) RemoveVfoChannel(handle uint64, reply func(sdrtype.ErrorKind)) {
	f.run("RemoveVfoChannel", reply, func() sdrtype.ErrorKind {
		f.vfoMu.Lock()
		vf, ok := f.vfos[handle]
		if ok {
			delete(f.vfos, handle)
		}
		f.vfoMu.Unlock()
		if !ok {
			return sdrtype.ErrVfoNotFound
		}

		vf.Remove()
		if err := f.dsp.RemoveVfoChannel(vf.Channel()); err != nil {
			return sdrtype.ErrUnknownError
		}
		f.emit(events.NewVfoRemovedR(false, handle))
		return sdrtype.ErrOK
	})
}

// GetVfo is a synchronous, off-worker lookup (spec.md §4.6 step 1: a VFO
// RPC handler must be able to reply VFO_NOT_FOUND immediately, without
// waiting on the worker queue). Safe because the handle table is only
// ever mutated from within worker closures (above) but is always read
// through this mutex.
func (f *Facade) GetVfo(handle uint64) (*vfo.Facade, bool) {
	f.vfoMu.RLock()
	defer f.vfoMu.RUnlock()
	vf, ok := f.vfos[handle]
	return vf, ok
}

// VfoHandles returns the handles of every live VFO, used by the
// subscribe-replay snapshot and by bridges that enumerate VFOs.
func (f *Facade) VfoHandles() []uint64 {
	f.vfoMu.RLock()
	defer f.vfoMu.RUnlock()
	handles := make([]uint64, 0, len(f.vfos))
	for h := range f.vfos {
		handles = append(handles, h)
	}
	return handles
}

// GetIqFftData implements spec.md §4.5's getIqFftData: the caller supplies
// a buffer, and an undersized buffer fails INSUFFICIENT_BUFFER_SIZE with
// nothing copied into it (the DSP frame is still read to learn its size).
func (f *Facade) GetIqFftData(buf []float32, reply func(sdrtype.ErrorKind, dsp.FftFrame)) {
	if f.worker.IsPaused() {
		reply(sdrtype.ErrWorkerBusy, dsp.FftFrame{})
		return
	}
	f.worker.Submit("GetIqFftData", func() {
		frame := f.dsp.GetIqFftData()
		if len(buf) < len(frame.Bins) {
			reply(sdrtype.ErrInsufficientBufferSize, dsp.FftFrame{})
			return
		}
		n := copy(buf, frame.Bins)
		reply(sdrtype.ErrOK, dsp.FftFrame{
			CenterFreq: frame.CenterFreq,
			SampleRate: frame.SampleRate,
			Bins:       buf[:n],
		})
	})
}
