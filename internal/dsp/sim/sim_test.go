package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwsl/sdrctl/internal/sdrtype"
)

func TestStartStopTracksRunning(t *testing.T) {
	r := New()
	require.False(t, r.IsRunning())
	require.NoError(t, r.Start())
	assert.True(t, r.IsRunning())
	require.NoError(t, r.Stop())
	assert.False(t, r.IsRunning())
}

func TestSetInputDeviceBogusFallsBackToZeroSource(t *testing.T) {
	r := New()
	err := r.SetInputDevice("bogus-tuner")
	assert.Error(t, err)
	assert.Equal(t, "zero", r.CurrentInputDevice())
	assert.Equal(t, []string{"ZERO"}, r.Antennas())
	assert.Equal(t, "ZERO", r.Antenna())
	assert.Equal(t, uint64(0), r.RfFreq())
}

func TestSetInputDeviceSuccessResetsAntennas(t *testing.T) {
	r := New()
	require.NoError(t, r.SetInputDevice("rtlsdr0"))
	assert.Equal(t, "rtlsdr0", r.CurrentInputDevice())
	assert.Equal(t, []string{"RX", "ANT1"}, r.Antennas())
	assert.Equal(t, "RX", r.Antenna())
}

func TestSetInputRateRoundsDownToNearest48k(t *testing.T) {
	r := New()
	actual, err := r.SetInputRate(100000)
	require.NoError(t, err)
	assert.Equal(t, uint32(96000), actual)
	assert.Equal(t, uint32(96000), r.InputRate())
}

func TestSetInputRateNeverReturnsZero(t *testing.T) {
	r := New()
	actual, err := r.SetInputRate(1000)
	require.NoError(t, err)
	assert.Equal(t, uint32(48000), actual)
}

func TestSetAntennaRejectsUnknownName(t *testing.T) {
	r := New()
	assert.Error(t, r.SetAntenna("nonexistent"))
	assert.NoError(t, r.SetAntenna("ANT1"))
	assert.Equal(t, "ANT1", r.Antenna())
}

func TestGainRangeLookup(t *testing.T) {
	r := New()
	rng, ok := r.GainRange("RF")
	require.True(t, ok)
	assert.Equal(t, float32(0), rng.Min)
	assert.Equal(t, float32(49.6), rng.Max)

	_, ok = r.GainRange("nope")
	assert.False(t, ok)
}

func TestSetGainUnknownStageErrors(t *testing.T) {
	r := New()
	assert.Error(t, r.SetGain("nope", 10))
	assert.NoError(t, r.SetGain("RF", 30))
}

func TestIqRecordingLifecycle(t *testing.T) {
	r := New()
	assert.False(t, r.IsIqRecording())
	require.NoError(t, r.StartIqRecording("/tmp/iq.raw"))
	assert.True(t, r.IsIqRecording())
	assert.Equal(t, "/tmp/iq.raw", r.IqFilename())
	assert.Error(t, r.StartIqRecording("/tmp/other.raw"))

	require.NoError(t, r.StopIqRecording())
	assert.False(t, r.IsIqRecording())
	assert.Empty(t, r.IqFilename())
}

func TestGetIqFftDataSizedToCurrentFftSize(t *testing.T) {
	r := New()
	r.SetIqFftSize(1024)
	frame := r.GetIqFftData()
	assert.Len(t, frame.Bins, 1024)
}

func TestAddAndRemoveVfoChannel(t *testing.T) {
	r := New()
	ch, err := r.AddVfoChannel()
	require.NoError(t, err)
	require.NotNil(t, ch)

	require.NoError(t, r.RemoveVfoChannel(ch))
	assert.Error(t, r.RemoveVfoChannel(ch))
}

func TestVfoSetFilterValidatesAgainstDemod(t *testing.T) {
	v := newVfoChannel()
	require.NoError(t, v.SetDemod(sdrtype.DemodUSB))

	assert.Equal(t, sdrtype.ErrInvalidFilter, v.SetFilter(sdrtype.FilterNormal, 100, 90))
	assert.NoError(t, v.SetFilter(sdrtype.FilterNormal, 100, 2800))
}

func TestVfoSetDemodRejectsInvalid(t *testing.T) {
	v := newVfoChannel()
	assert.Equal(t, sdrtype.ErrInvalidDemod, v.SetDemod(sdrtype.Demod(999)))
}

func TestVfoSetCwOffsetBounds(t *testing.T) {
	v := newVfoChannel()
	assert.Equal(t, sdrtype.ErrInvalidCWOffset, v.SetCwOffset(6000))
	assert.NoError(t, v.SetCwOffset(-5000))
	assert.NoError(t, v.SetCwOffset(5000))
}

func TestVfoAudioRecordingLifecycle(t *testing.T) {
	v := newVfoChannel()
	assert.Equal(t, sdrtype.ErrCouldntCreateFile, v.StartAudioRecording(""))
	require.NoError(t, v.StartAudioRecording("/tmp/audio.wav"))
	assert.Equal(t, sdrtype.ErrAlreadyRecording, v.StartAudioRecording("/tmp/other.wav"))
	assert.True(t, v.IsRecordingAudio())

	require.NoError(t, v.StopAudioRecording())
	assert.Equal(t, sdrtype.ErrAlreadyNotRecording, v.StopAudioRecording())
}

func TestVfoSnifferLifecycleAndBufferSizing(t *testing.T) {
	v := newVfoChannel()
	require.NoError(t, v.StartSniffer(48000, 512))
	assert.Equal(t, sdrtype.ErrSnifferAlreadyActive, v.StartSniffer(48000, 512))

	_, err := v.GetSnifferData(make([]float32, 10))
	assert.Equal(t, sdrtype.ErrInsufficientBufferSize, err)

	n, err := v.GetSnifferData(make([]float32, 512))
	require.NoError(t, err)
	assert.Equal(t, 512, n)

	require.NoError(t, v.StopSniffer())
	assert.Equal(t, sdrtype.ErrSnifferAlreadyInactive, v.StopSniffer())
}

func TestVfoRdsDecoderLifecycle(t *testing.T) {
	v := newVfoChannel()
	require.NoError(t, v.StartRdsDecoder())
	assert.Equal(t, sdrtype.ErrRdsAlreadyActive, v.StartRdsDecoder())
	assert.True(t, v.IsRdsDecoding())

	require.NoError(t, v.StopRdsDecoder())
	assert.Equal(t, sdrtype.ErrRdsAlreadyInactive, v.StopRdsDecoder())
}

func TestVfoGetSignalPwrAndRdsDataHaveNoRealDspBackingThem(t *testing.T) {
	v := newVfoChannel()
	assert.Equal(t, float32(0), v.GetSignalPwr())

	data, rdsType := v.GetRdsData()
	assert.Equal(t, "", data)
	assert.Equal(t, int32(0), rdsType)
}
