package automake

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

func TestParseStrictness(t *testing.T) {
	for _, s := range []Strictness{Foreign, GNU, Gnits} {
		parsed, err := ParseStrictness(s.String())
		require.NoError(t, err)
		require.Equal(t, s, parsed)
	}

	_, err := ParseStrictness("cygnus")
	require.Error(t, err)
}

func TestStrictnessYAML(t *testing.T) {
	var v struct {
		Strictness Strictness `yaml:"strictness"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("strictness: gnits\n"), &v))
	require.Equal(t, Gnits, v.Strictness)

	require.Error(t, yaml.Unmarshal([]byte("strictness: cygnus\n"), &v))
}

func TestGnitsVersion(t *testing.T) {
	for _, tc := range []struct {
		version   string
		alpha, ok bool
	}{
		{"1.4", false, true},
		{"1.4a", true, true},
		{"1.4.2", true, true},
		{"1.4-p1", false, true},
		{"1.4b-rc2", true, true},
		{"1", false, false},
		{"1.4ab", false, false},
		{"v1.4", false, false},
	} {
		alpha, ok := GnitsVersion(tc.version)
		require.Equal(t, tc.ok, ok, tc.version)
		require.Equal(t, tc.alpha, alpha, tc.version)
	}
}
