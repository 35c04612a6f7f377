package model

import (
	"time"

	"github.com/google/uuid"
)

// Station 2 medical history. The five sub-records are keyed 1:1 by patient
// and always written together; the ophthalmology row is the anchor whose
// unique patient_id index catches duplicate submissions.

// EyeSymptom describes one ophthalmic complaint with its laterality and
// timeline attributes.
type EyeSymptom struct {
	Present  bool   `db:"present" json:"present"`
	Eye      string `db:"eye" json:"eye,omitempty"`
	Onset    string `db:"onset" json:"onset,omitempty"`
	Duration string `db:"duration" json:"duration,omitempty"`
}

type OphthalmologyHistory struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	PatientID  uuid.UUID  `db:"patient_id" json:"patient_id"`
	VisionLoss EyeSymptom `json:"vision_loss"`
	Redness    EyeSymptom `json:"redness"`
	Watering   EyeSymptom `json:"watering"`
	Itching    EyeSymptom `json:"itching"`
	Pain       EyeSymptom `json:"pain"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

type SystemicHistory struct {
	ID           uuid.UUID `db:"id" json:"id"`
	PatientID    uuid.UUID `db:"patient_id" json:"patient_id"`
	Hypertension bool      `db:"hypertension" json:"hypertension"`
	Diabetes     bool      `db:"diabetes" json:"diabetes"`
	HeartDisease bool      `db:"heart_disease" json:"heart_disease"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type AllergyHistory struct {
	ID        uuid.UUID `db:"id" json:"id"`
	PatientID uuid.UUID `db:"patient_id" json:"patient_id"`
	ToDrops   bool      `db:"to_drops" json:"to_drops"`
	ToTablets bool      `db:"to_tablets" json:"to_tablets"`
	Seasonal  bool      `db:"seasonal" json:"seasonal"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type ContactLensHistory struct {
	ID         uuid.UUID `db:"id" json:"id"`
	PatientID  uuid.UUID `db:"patient_id" json:"patient_id"`
	UsesLenses bool      `db:"uses_lenses" json:"uses_lenses"`
	Years      int       `db:"years" json:"years"`
	Frequency  string    `db:"frequency" json:"frequency"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

type SurgicalHistory struct {
	ID           uuid.UUID `db:"id" json:"id"`
	PatientID    uuid.UUID `db:"patient_id" json:"patient_id"`
	Cataract     bool      `db:"cataract" json:"cataract"`
	RetinalLaser bool      `db:"retinal_laser" json:"retinal_laser"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// MedicalHistoryBundle is the complete Station 2 payload.
type MedicalHistoryBundle struct {
	Ophthalmology OphthalmologyHistory `json:"ophthalmology"`
	Systemic      SystemicHistory      `json:"systemic"`
	Allergy       AllergyHistory       `json:"allergy"`
	ContactLens   ContactLensHistory   `json:"contact_lens"`
	Surgical      SurgicalHistory      `json:"surgical"`
}

type SubmitMedicalHistoryRequest struct {
	PatientID uuid.UUID            `json:"patient_id" binding:"required"`
	Bundle    MedicalHistoryBundle `json:"bundle" binding:"required"`
}
