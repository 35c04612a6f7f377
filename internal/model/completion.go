package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// StationStatus is the per-station progress marker. The wire and storage
// representation is the numeric tri-state 0 / 0.5 / 1 that the mobile
// clients compare with strict equality, so marshalling must never collapse
// InProgress into either end.
type StationStatus int

const (
	StationNotStarted StationStatus = iota
	StationInProgress
	StationComplete
)

func (s StationStatus) String() string {
	switch s {
	case StationInProgress:
		return "in_progress"
	case StationComplete:
		return "complete"
	default:
		return "not_started"
	}
}

func (s StationStatus) numeric() float64 {
	switch s {
	case StationInProgress:
		return 0.5
	case StationComplete:
		return 1
	default:
		return 0
	}
}

func stationStatusFromNumeric(v float64) (StationStatus, error) {
	switch v {
	case 0:
		return StationNotStarted, nil
	case 0.5:
		return StationInProgress, nil
	case 1:
		return StationComplete, nil
	}
	return StationNotStarted, fmt.Errorf("invalid station status value %v", v)
}

// Value implements driver.Valuer; the column is NUMERIC(2,1).
func (s StationStatus) Value() (driver.Value, error) {
	return s.numeric(), nil
}

// Scan implements sql.Scanner.
func (s *StationStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case float64:
		parsed, err := stationStatusFromNumeric(v)
		if err != nil {
			return err
		}
		*s = parsed
		return nil
	case int64:
		parsed, err := stationStatusFromNumeric(float64(v))
		if err != nil {
			return err
		}
		*s = parsed
		return nil
	case []byte:
		f, err := strconv.ParseFloat(string(v), 64)
		if err != nil {
			return fmt.Errorf("invalid station status %q: %w", v, err)
		}
		parsed, err := stationStatusFromNumeric(f)
		if err != nil {
			return err
		}
		*s = parsed
		return nil
	case nil:
		*s = StationNotStarted
		return nil
	}
	return fmt.Errorf("cannot scan %T into StationStatus", src)
}

func (s StationStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.numeric())
}

func (s *StationStatus) UnmarshalJSON(data []byte) error {
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	parsed, err := stationStatusFromNumeric(v)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Station identifies one of the three intake stations.
type Station int

const (
	StationRegistration   Station = 1
	StationMedicalHistory Station = 2
	StationVisionTest     Station = 3
)

func (s Station) Valid() bool {
	return s >= StationRegistration && s <= StationVisionTest
}

// CompletionState tracks a patient's progress through the three stations.
// One row per patient, created lazily on first touch, never deleted.
type CompletionState struct {
	PatientID uuid.UUID     `db:"patient_id" json:"patient_id"`
	Station1  StationStatus `db:"station1" json:"station1"`
	Station2  StationStatus `db:"station2" json:"station2"`
	Station3  StationStatus `db:"station3" json:"station3"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}

// StatusFor returns the flag for the given station.
func (c *CompletionState) StatusFor(station Station) StationStatus {
	switch station {
	case StationRegistration:
		return c.Station1
	case StationMedicalHistory:
		return c.Station2
	case StationVisionTest:
		return c.Station3
	}
	return StationNotStarted
}
