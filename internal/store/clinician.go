package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lunajoy/matchengine/internal/domain"
	pgvector "github.com/pgvector/pgvector-go"
)

type ClinicianStore struct {
	db *pgxpool.Pool
}

func NewClinicianStore(db *pgxpool.Pool) *ClinicianStore {
	return &ClinicianStore{db: db}
}

const clinicianColumns = `id, name, license_states, appointment_types, specialties, languages, gender,
	immediate_availability, accepting_new_patients, current_patient_count, max_patient_capacity, availability_score,
	years_experience, age_groups_served, avg_rating, retention_rate, success_by_specialty,
	specialty_vector, created_at, updated_at`

func scanClinician(row pgx.Row) (*domain.Clinician, error) {
	var (
		c         domain.Clinician
		apptTypes []string
		vec       *pgvector.Vector
	)
	err := row.Scan(
		&c.ID, &c.Name, &c.LicenseStates, &apptTypes, &c.Specialties, &c.Languages, &c.Gender,
		&c.ImmediateAvailability, &c.AcceptingNewPatients, &c.CurrentPatientCount, &c.MaxPatientCapacity, &c.AvailabilityScore,
		&c.YearsExperience, &c.AgeGroupsServed, &c.AvgRating, &c.RetentionRate, &c.SuccessBySpecialty,
		&vec, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.AppointmentTypes = make([]domain.AppointmentType, len(apptTypes))
	for i, t := range apptTypes {
		c.AppointmentTypes[i] = domain.AppointmentType(t)
	}
	if vec != nil {
		c.SpecialtyVector = vec.Slice()
	}
	return &c, nil
}

// ListAll returns the full catalogue ordered by id.
func (s *ClinicianStore) ListAll(ctx context.Context) ([]domain.Clinician, error) {
	rows, err := s.db.Query(ctx, `SELECT `+clinicianColumns+` FROM clinicians ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list clinicians: %w", err)
	}
	defer rows.Close()

	var result []domain.Clinician
	for rows.Next() {
		c, err := scanClinician(rows)
		if err != nil {
			return nil, fmt.Errorf("scan clinician: %w", err)
		}
		result = append(result, *c)
	}
	return result, rows.Err()
}

func (s *ClinicianStore) GetByID(ctx context.Context, id string) (*domain.Clinician, error) {
	c, err := scanClinician(s.db.QueryRow(ctx,
		`SELECT `+clinicianColumns+` FROM clinicians WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func (s *ClinicianStore) Upsert(ctx context.Context, c *domain.Clinician) error {
	var vec *pgvector.Vector
	if len(c.SpecialtyVector) > 0 {
		v := pgvector.NewVector(c.SpecialtyVector)
		vec = &v
	}
	success := c.SuccessBySpecialty
	if success == nil {
		success = map[string]float64{}
	}
	apptTypes := make([]string, len(c.AppointmentTypes))
	for i, t := range c.AppointmentTypes {
		apptTypes[i] = string(t)
	}

	return s.db.QueryRow(ctx,
		`INSERT INTO clinicians (id, name, license_states, appointment_types, specialties, languages, gender,
		     immediate_availability, accepting_new_patients, current_patient_count, max_patient_capacity,
		     availability_score, years_experience, age_groups_served, avg_rating, retention_rate,
		     success_by_specialty, specialty_vector, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, COALESCE($19, NOW()))
		 ON CONFLICT (id) DO UPDATE SET
		     name = EXCLUDED.name,
		     license_states = EXCLUDED.license_states,
		     appointment_types = EXCLUDED.appointment_types,
		     specialties = EXCLUDED.specialties,
		     languages = EXCLUDED.languages,
		     gender = EXCLUDED.gender,
		     immediate_availability = EXCLUDED.immediate_availability,
		     accepting_new_patients = EXCLUDED.accepting_new_patients,
		     current_patient_count = EXCLUDED.current_patient_count,
		     max_patient_capacity = EXCLUDED.max_patient_capacity,
		     availability_score = EXCLUDED.availability_score,
		     years_experience = EXCLUDED.years_experience,
		     age_groups_served = EXCLUDED.age_groups_served,
		     avg_rating = EXCLUDED.avg_rating,
		     retention_rate = EXCLUDED.retention_rate,
		     success_by_specialty = EXCLUDED.success_by_specialty,
		     specialty_vector = EXCLUDED.specialty_vector,
		     updated_at = NOW()
		 RETURNING created_at, updated_at`,
		c.ID, c.Name, orEmpty(c.LicenseStates), apptTypes, orEmpty(c.Specialties), orEmpty(c.Languages), string(c.Gender),
		c.ImmediateAvailability, c.AcceptingNewPatients, c.CurrentPatientCount, c.MaxPatientCapacity, c.AvailabilityScore,
		c.YearsExperience, orEmpty(c.AgeGroupsServed), c.AvgRating, c.RetentionRate, success,
		vec, nullTime(c.CreatedAt),
	).Scan(&c.CreatedAt, &c.UpdatedAt)
}

func (s *ClinicianStore) UpdateCapacity(ctx context.Context, id string, currentPatients int, accepting bool) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE clinicians
		 SET current_patient_count = $2, accepting_new_patients = $3, updated_at = NOW()
		 WHERE id = $1`,
		id, currentPatients, accepting,
	)
	if err != nil {
		return fmt.Errorf("update capacity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
