package sevenzip

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLZMA2OptionsFromLevelClampsAndScalesDictSize(t *testing.T) {
	require.Equal(t, uint32(0), LZMA2OptionsFromLevel(0).Level)
	require.Equal(t, uint32(9), LZMA2OptionsFromLevel(99).Level)

	low := LZMA2OptionsFromLevel(1)
	high := LZMA2OptionsFromLevel(9)
	require.Less(t, low.DictSize, high.DictSize)
}

func TestDictSizePropIsMonotonic(t *testing.T) {
	var prev byte
	for _, dictSize := range []uint32{1 << 12, 1 << 16, 1 << 20, 1 << 24, 1 << 26} {
		p := dictSizeProp(dictSize)
		require.GreaterOrEqual(t, p, prev)
		prev = p
	}
}

func TestDeltaOptionsFromDistanceClampsToValidRange(t *testing.T) {
	require.Equal(t, uint32(1), DeltaOptionsFromDistance(0).Distance)
	require.Equal(t, uint32(256), DeltaOptionsFromDistance(1000).Distance)
	require.Equal(t, uint32(10), DeltaOptionsFromDistance(10).Distance)
}

func TestDeltaOptionsProperties(t *testing.T) {
	o := DeltaOptionsFromDistance(4)
	require.Equal(t, []byte{3}, o.properties())
}

func TestLZMAOptionsPropertiesLayout(t *testing.T) {
	o := LZMAOptionsFromLevel(6)
	props := o.properties()
	require.Len(t, props, 5)
	require.Equal(t, byte((2*5+0)*9+3), props[0])
}

func TestAESOptionsPropertiesRoundTrip(t *testing.T) {
	o := NewAESOptions(NewPassword("hunter2"))
	o.Salt = [16]byte{1, 2, 3}
	o.IV = [16]byte{4, 5, 6}

	props := o.properties()
	require.Len(t, props, 34)

	cyclesPower, salt, iv, ok := parseAESProperties(props)
	require.True(t, ok)
	require.Equal(t, int(o.NumCyclesPower), cyclesPower)
	require.Equal(t, o.Salt[:], salt)
	require.Equal(t, o.IV[:], iv)
}

func TestParseAESPropertiesRejectsWrongLength(t *testing.T) {
	_, _, _, ok := parseAESProperties([]byte{1, 2, 3})
	require.False(t, ok)
}

func TestEncoderConfigurationPropertiesDispatch(t *testing.T) {
	cases := []struct {
		name string
		cfg  EncoderConfiguration
	}{
		{"delta", EncoderConfiguration{Method: MethodDelta, Options: DeltaOptionsFromDistance(2)}},
		{"lzma2", EncoderConfiguration{Method: MethodLZMA2, Options: LZMA2OptionsFromLevel(3)}},
		{"deflate", EncoderConfiguration{Method: MethodDeflate, Options: DeflateOptionsFromLevel(5)}},
		{"copy-no-options", EncoderConfiguration{Method: MethodCopy}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// Exercising the type switch shouldn't panic regardless of
			// whether the method's Options is set.
			_ = tc.cfg.properties()
		})
	}
}

func TestPPMdOptionsFromLevelTable(t *testing.T) {
	o := PPMdOptionsFromLevel(0)
	require.Equal(t, uint32(3), o.Order)

	o = PPMdOptionsFromLevel(9)
	require.Equal(t, uint32(32), o.Order)
}
