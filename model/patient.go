package model

import "gorm.io/gorm"

// Patient holds the stable identity and demographic attributes of a person
// under wound care. Demographics are set when the first evaluation is created
// and referenced by every follow-up evaluation of the same patient.
type Patient struct {
	gorm.Model
	PatientUniqueID string `json:"patient_unique_id" gorm:"type:varchar(36);uniqueIndex;not null"`
	FullName        string `json:"full_name" gorm:"not null"`
	BirthDate       string `json:"birth_date"`
	Phone           string `json:"phone"`
	Email           string `json:"email"`
	Profession      string `json:"profession"`
	MaritalStatus   string `json:"marital_status"`
}
