package model

import (
	"time"
)

// Patient holds the Station 1 demographics. Identity fields are immutable
// after registration; the Aadhaar number is the external lookup key.
type Patient struct {
	Base
	FirstName    string    `db:"first_name" json:"first_name"`
	LastName     string    `db:"last_name" json:"last_name"`
	DateOfBirth  time.Time `db:"date_of_birth" json:"date_of_birth"`
	Age          int       `db:"age" json:"age"`
	Gender       string    `db:"gender" json:"gender"`
	Address      string    `db:"address" json:"address"`
	Village      string    `db:"village" json:"village"`
	Phone        string    `db:"phone" json:"phone"`
	AadhaarNo    string    `db:"aadhaar_no" json:"aadhaar_no"`
	RegisteredAt time.Time `db:"registered_at" json:"registered_at"`
	RegisteredBy string    `db:"registered_by" json:"registered_by"`
}

type RegisterPatientRequest struct {
	FirstName    string    `json:"fname" binding:"required"`
	LastName     string    `json:"lname" binding:"required"`
	DateOfBirth  time.Time `json:"dob" binding:"required"`
	Age          int       `json:"age" binding:"required,gte=0,lte=130"`
	Gender       string    `json:"gender" binding:"required,oneof=male female other"`
	Address      string    `json:"address" binding:"required"`
	Village      string    `json:"village" binding:"required"`
	Phone        string    `json:"phone" binding:"required"`
	AadhaarNo    string    `json:"aadhaar_no" binding:"required,aadhaar"`
	RegisteredBy string    `json:"registered_by" binding:"required"`
}
