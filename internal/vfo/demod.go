package vfo

import (
	"github.com/cwsl/sdrctl/internal/events"
	"github.com/cwsl/sdrctl/internal/sdrtype"
)

// SetDemod implements the demod-switch state machine from spec.md §4.3.
// It is the only multi-step VFO command: it may itself emit
// RdsDecoderStopped, RecordingStopped, DemodChanged and FilterChanged as
// side effects of a single scheduled closure.
func (f *Facade) SetDemod(d sdrtype.Demod, reply func(sdrtype.ErrorKind)) {
	f.run("SetDemod", reply, func() sdrtype.ErrorKind {
		if d == f.shadow.demod {
			return sdrtype.ErrOK
		}
		if !d.Valid() {
			return sdrtype.ErrInvalidDemod
		}

		// RDS teardown is part of this same closure (resolves spec.md §9's
		// open question: no separate async task).
		if f.shadow.rdsDecoding {
			f.stopRdsDecoderLocked()
		}
		if f.shadow.recording {
			if err := f.ch.StopAudioRecording(); err == nil {
				f.shadow.recording, f.shadow.recordingPath = false, ""
				f.emit(events.NewRecordingStopped(f.Handle, false))
			}
		}

		if err := f.ch.SetDemod(d); err != nil {
			if code, ok := err.(sdrtype.ErrorKind); ok {
				return code
			}
			return sdrtype.ErrInvalidDemod
		}
		f.pushDemodSpecificShadow(d)
		f.reapplySurvivingShadow()

		f.shadow.demod = d
		f.emit(events.NewDemodChanged(f.Handle, false, d))

		// Validate the current filter against the new demod's range; if
		// invalid, fall back to the demod's default filter.
		if sdrtype.ValidateFilter(d, f.shadow.filterLow, f.shadow.filterHigh, f.ch.FilterMinWidth()) != sdrtype.ErrOK {
			def := sdrtype.DefaultFilterFor(d)
			_ = f.setFilterLocked(def.Low, def.High, sdrtype.FilterNormal)
		}
		return sdrtype.ErrOK
	})
}

// pushDemodSpecificShadow reapplies the shadow parameters that only
// matter for certain demod families, per spec.md §4.3: "for variants
// that use them, pushes ... AM-DCR, AM-sync DCR and PLL-BW, FM deemph and
// max-dev, CW offset".
func (f *Facade) pushDemodSpecificShadow(d sdrtype.Demod) {
	switch d {
	case sdrtype.DemodAM:
		f.ch.SetAmDcr(f.shadow.amDcr)
	case sdrtype.DemodAMSync:
		f.ch.SetAmDcr(f.shadow.amDcr)
		f.ch.SetAmSyncDcr(f.shadow.amSyncDcr)
		f.ch.SetAmSyncPllBw(f.shadow.amSyncBw)
	case sdrtype.DemodNFM, sdrtype.DemodWFMMono, sdrtype.DemodWFMStereo, sdrtype.DemodWFMStereoOIRT:
		f.ch.SetFmMaxDev(f.shadow.fmMaxDev)
		f.ch.SetFmDeemph(f.shadow.fmDeemph)
	case sdrtype.DemodCWL, sdrtype.DemodCWU:
		_ = f.ch.SetCwOffset(f.shadow.cwOffset)
	}
}

// reapplySurvivingShadow reapplies the shadow parameters spec.md §4.3
// says survive every demod switch regardless of family: AGC, squelch,
// both noise blankers, and an RDS parser reset.
func (f *Facade) reapplySurvivingShadow() {
	s := &f.shadow
	f.ch.SetAgcOn(s.agcOn)
	f.ch.SetAgcHang(s.agcHang)
	f.ch.SetAgcThreshold(s.agcThreshold)
	f.ch.SetAgcSlope(s.agcSlope)
	f.ch.SetAgcDecay(s.agcDecay)
	f.ch.SetAgcManualGain(s.agcManualGain)
	f.ch.SetSqlLevel(s.sqlLevel)
	f.ch.SetSqlAlpha(s.sqlAlpha)
	f.ch.SetNoiseBlankerOn(1, s.nbOn[0])
	f.ch.SetNoiseBlankerThreshold(1, s.nbThr[0])
	f.ch.SetNoiseBlankerOn(2, s.nbOn[1])
	f.ch.SetNoiseBlankerThreshold(2, s.nbThr[1])
	f.ch.ResetRdsParser()
	f.emit(events.NewRdsParserReset(f.Handle, false))
}
