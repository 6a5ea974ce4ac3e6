package throttle

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRejectsBadConfig(t *testing.T) {
	for name, cfg := range map[string]Config{
		"zero total rate": {TotalPerSec: 0, TotalBurst: 1, EachPerSec: 1, EachBurst: 1},
		"zero each rate":  {TotalPerSec: 1, TotalBurst: 1, EachPerSec: 0, EachBurst: 1},
		"zero burst":      {TotalPerSec: 1, TotalBurst: 0, EachPerSec: 1, EachBurst: 1},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := New(cfg)
			require.Error(t, err)
		})
	}
}

func TestAllowPerKey(t *testing.T) {
	th, err := New(Config{TotalPerSec: 0.001, TotalBurst: 100, EachPerSec: 0.001, EachBurst: 2})
	require.NoError(t, err)

	require.True(t, th.Allow("alice"))
	require.True(t, th.Allow("alice"))
	require.False(t, th.Allow("alice"))

	// other keys keep their own budget
	require.True(t, th.Allow("bob"))

	th.Reset("alice")
	require.True(t, th.Allow("alice"))
}

func TestAllowTotal(t *testing.T) {
	th, err := New(Config{TotalPerSec: 0.001, TotalBurst: 2, EachPerSec: 0.001, EachBurst: 10})
	require.NoError(t, err)

	require.True(t, th.Allow("a"))
	require.True(t, th.Allow("b"))
	require.False(t, th.Allow("c"))
}
