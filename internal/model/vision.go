package model

import (
	"time"

	"github.com/google/uuid"
)

type EyeSide string

const (
	EyeLeft  EyeSide = "left"
	EyeRight EyeSide = "right"
)

func (e EyeSide) Valid() bool {
	return e == EyeLeft || e == EyeRight
}

// VisionTestResult is one autorefraction reading. Unique per (patient, eye);
// a re-test for the same eye overwrites the previous row.
type VisionTestResult struct {
	ID                uuid.UUID `db:"id" json:"id"`
	PatientID         uuid.UUID `db:"patient_id" json:"patient_id"`
	Eye               EyeSide   `db:"eye" json:"eye"`
	Sphere            float64   `db:"sphere" json:"sphere"`
	Cylinder          float64   `db:"cylinder" json:"cylinder"`
	Axis              int       `db:"axis" json:"axis"`
	PupillaryDistance float64   `db:"pupillary_distance" json:"pupillary_distance"`
	Notes             string    `db:"notes" json:"notes,omitempty"`
	TestedBy          string    `db:"tested_by" json:"tested_by"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time `db:"updated_at" json:"updated_at"`
}

type SubmitVisionTestRequest struct {
	PatientID         uuid.UUID `json:"patient_id" binding:"required"`
	Eye               EyeSide   `json:"eye" binding:"required,oneof=left right"`
	Sphere            float64   `json:"sphere"`
	Cylinder          float64   `json:"cylinder"`
	Axis              int       `json:"axis" binding:"gte=0,lte=180"`
	PupillaryDistance float64   `json:"pupillary_distance"`
	Notes             string    `json:"notes"`
	TestedBy          string    `json:"tested_by" binding:"required"`
}
