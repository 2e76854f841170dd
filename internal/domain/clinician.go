package domain

import (
	"slices"
	"time"
)

type AppointmentType string

const (
	AppointmentTherapy    AppointmentType = "therapy"
	AppointmentMedication AppointmentType = "medication"
)

func ValidAppointmentType(a string) bool {
	switch AppointmentType(a) {
	case AppointmentTherapy, AppointmentMedication:
		return true
	}
	return false
}

type Gender string

const (
	GenderMale      Gender = "male"
	GenderFemale    Gender = "female"
	GenderNonBinary Gender = "non_binary"
)

// DefaultLanguage is assumed when a user does not state a language preference.
const DefaultLanguage = "English"

// Clinician is a provider in the matching catalogue. Specialties and
// Languages are ordered: the first entry is the primary one.
type Clinician struct {
	ID                    string             `json:"id"`
	Name                  string             `json:"name"`
	LicenseStates         []string           `json:"license_states"`
	AppointmentTypes      []AppointmentType  `json:"appointment_types"`
	Specialties           []string           `json:"specialties"`
	Languages             []string           `json:"languages"`
	Gender                Gender             `json:"gender"`
	ImmediateAvailability bool               `json:"immediate_availability"`
	AcceptingNewPatients  bool               `json:"accepting_new_patients"`
	CurrentPatientCount   int                `json:"current_patient_count"`
	MaxPatientCapacity    int                `json:"max_patient_capacity"`
	AvailabilityScore     *float64           `json:"availability_score,omitempty"`
	YearsExperience       int                `json:"years_experience"`
	AgeGroupsServed       []string           `json:"age_groups_served,omitempty"`
	AvgRating             float64            `json:"avg_rating"`
	RetentionRate         float64            `json:"retention_rate"`
	SuccessBySpecialty    map[string]float64 `json:"success_by_specialty,omitempty"`
	SpecialtyVector       []float32          `json:"specialty_vector,omitempty"`
	CreatedAt             time.Time          `json:"created_at"`
	UpdatedAt             time.Time          `json:"updated_at"`
}

// LoadRatio is current over max capacity. A clinician without a positive
// capacity is treated as full.
func (c *Clinician) LoadRatio() float64 {
	if c.MaxPatientCapacity <= 0 {
		return 1.0
	}
	return float64(c.CurrentPatientCount) / float64(c.MaxPatientCapacity)
}

func (c *Clinician) LicensedIn(state string) bool {
	return slices.Contains(c.LicenseStates, state)
}

func (c *Clinician) Offers(t AppointmentType) bool {
	return slices.Contains(c.AppointmentTypes, t)
}

func (c *Clinician) Speaks(language string) bool {
	return slices.Contains(c.Languages, language)
}

func (c *Clinician) HasSpecialty(s string) bool {
	return slices.Contains(c.Specialties, s)
}

func (c *Clinician) PrimarySpecialty() string {
	if len(c.Specialties) == 0 {
		return ""
	}
	return c.Specialties[0]
}

func (c *Clinician) PrimaryLanguage() string {
	if len(c.Languages) == 0 {
		return ""
	}
	return c.Languages[0]
}

// IsNew reports whether the clinician joined within window of now.
// A zero CreatedAt is never new.
func (c *Clinician) IsNew(now time.Time, window time.Duration) bool {
	if c.CreatedAt.IsZero() {
		return false
	}
	age := now.Sub(c.CreatedAt)
	return age >= 0 && age < window
}
