package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFold(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{in: "  Bürgerhaus   Löcknitz ", expected: "burgerhaus locknitz"},
		{in: "Straße", expected: "strasse"},
		{in: "VHS in GREIFSWALD", expected: "vhs in greifswald"},
		{in: "Café Élan", expected: "cafe elan"},
	}
	for _, test := range cases {
		require.Equal(t, test.expected, Fold(test.in))
	}
}

func TestMatchName(t *testing.T) {
	require.True(t, MatchName("VHS Anklam", []string{"anklam"}))
	require.True(t, MatchName("Pase walk", []string{"pasewalk"}))
	require.False(t, MatchName("Greifswald", []string{"anklam"}))
}
