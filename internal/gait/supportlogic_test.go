package gait

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSupportLogicTruthTable(t *testing.T) {
	t.Parallel()

	cases := []struct {
		logic SupportLogic
		// indexed by (force<<1 | kinematic)
		want [4]bool
	}{
		{RequireSupport, [4]bool{true, true, true, true}},
		{OnlyIfForceSensed, [4]bool{false, false, true, true}},
		{OnlyIfKinematic, [4]bool{false, true, false, true}},
		{KinematicOrSensed, [4]bool{false, true, true, true}},
		{PreventSupport, [4]bool{false, false, false, false}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.logic.String(), func(t *testing.T) {
			t.Parallel()
			for i := 0; i < 4; i++ {
				force := i&2 != 0
				kinematic := i&1 != 0
				assert.Equal(t, tc.want[i], tc.logic.Resolve(force, kinematic),
					"force=%v kinematic=%v", force, kinematic)
			}
			assert.Equal(t, tc.want, tc.logic.LogicMap())
		})
	}
}

func TestParseSupportLogic(t *testing.T) {
	t.Parallel()

	for _, l := range []SupportLogic{RequireSupport, OnlyIfForceSensed, OnlyIfKinematic, KinematicOrSensed, PreventSupport} {
		got, err := ParseSupportLogic(l.String())
		require.NoError(t, err)
		assert.Equal(t, l, got)
	}

	_, err := ParseSupportLogic("sometimes")
	assert.Error(t, err)
}
