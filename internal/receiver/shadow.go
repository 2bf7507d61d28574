package receiver

// shadow holds the receiver-scope parameters the dsp.Receiver contract
// has no getter for (spec.md §6.1 lists only the setters for these), so
// the façade must remember the last-known-good value itself — the same
// pattern internal/vfo uses for its own shadow state. Confined to the
// worker thread, per invariant 6.
type shadow struct {
	iqSwap    bool
	dcCancel  bool
	iqBalance bool
	autoGain  bool
	freqCorr  int32
	gainVals  map[string]float32
}

func defaultShadow() shadow {
	return shadow{gainVals: make(map[string]float32)}
}
