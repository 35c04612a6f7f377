package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The mobile clients compare the station flags with strict equality, so the
// JSON form must be exactly 0, 0.5 or 1.
func TestStationStatusJSON(t *testing.T) {
	state := CompletionState{
		Station1: StationComplete,
		Station2: StationInProgress,
		Station3: StationNotStarted,
	}

	data, err := json.Marshal(state)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"station1":1`)
	assert.Contains(t, string(data), `"station2":0.5`)
	assert.Contains(t, string(data), `"station3":0`)

	var decoded CompletionState
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, StationComplete, decoded.Station1)
	assert.Equal(t, StationInProgress, decoded.Station2)
	assert.Equal(t, StationNotStarted, decoded.Station3)
}

func TestStationStatusUnmarshalRejectsOtherValues(t *testing.T) {
	var status StationStatus
	assert.Error(t, status.UnmarshalJSON([]byte(`0.7`)))
	assert.Error(t, status.UnmarshalJSON([]byte(`2`)))
	assert.Error(t, status.UnmarshalJSON([]byte(`"half"`)))
}

func TestStationStatusScan(t *testing.T) {
	var status StationStatus

	require.NoError(t, status.Scan(float64(0.5)))
	assert.Equal(t, StationInProgress, status)

	// NUMERIC columns often arrive as text from the driver.
	require.NoError(t, status.Scan([]byte("1.0")))
	assert.Equal(t, StationComplete, status)

	require.NoError(t, status.Scan(int64(0)))
	assert.Equal(t, StationNotStarted, status)

	require.NoError(t, status.Scan(nil))
	assert.Equal(t, StationNotStarted, status)

	assert.Error(t, status.Scan(float64(0.3)))
	assert.Error(t, status.Scan("0.5"))
}

func TestStationStatusValue(t *testing.T) {
	for status, want := range map[StationStatus]float64{
		StationNotStarted: 0,
		StationInProgress: 0.5,
		StationComplete:   1,
	} {
		v, err := status.Value()
		require.NoError(t, err)
		assert.Equal(t, want, v)
	}
}

func TestCompletionStateStatusFor(t *testing.T) {
	state := &CompletionState{
		Station1: StationComplete,
		Station2: StationInProgress,
	}
	assert.Equal(t, StationComplete, state.StatusFor(StationRegistration))
	assert.Equal(t, StationInProgress, state.StatusFor(StationMedicalHistory))
	assert.Equal(t, StationNotStarted, state.StatusFor(StationVisionTest))
	assert.Equal(t, StationNotStarted, state.StatusFor(Station(7)))
}

func TestStationValid(t *testing.T) {
	assert.True(t, StationRegistration.Valid())
	assert.True(t, StationVisionTest.Valid())
	assert.False(t, Station(0).Valid())
	assert.False(t, Station(4).Valid())
}
