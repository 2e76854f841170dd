// Package seed generates a deterministic synthetic catalogue of clinicians,
// users and interactions for demos and local development.
package seed

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/lunajoy/matchengine/internal/domain"
)

const VectorDim = 16

type weighted[T any] struct {
	value  T
	weight float64
}

var (
	states = []weighted[string]{
		{"CA", 12}, {"TX", 9}, {"FL", 7}, {"NY", 6.5}, {"PA", 4},
		{"IL", 4}, {"OH", 3.5}, {"GA", 3.5}, {"NC", 3.5}, {"MI", 3},
		{"NJ", 3}, {"VA", 2.8}, {"WA", 2.5}, {"AZ", 2.5}, {"MA", 2.3},
	}
	languages = []weighted[string]{
		{"Spanish", 13}, {"Mandarin", 1.1}, {"French", 0.7}, {"Portuguese", 0.6},
		{"Hindi", 0.5}, {"Arabic", 0.4}, {"Korean", 0.3}, {"Vietnamese", 0.3},
	}
	insurers = []weighted[string]{
		{"BlueCross BlueShield", 22}, {"UnitedHealth", 18}, {"Aetna", 15},
		{"Cigna", 12}, {"Kaiser", 10}, {"Humana", 8}, {"Anthem", 6},
	}
	genders = []weighted[domain.Gender]{
		{domain.GenderMale, 48}, {domain.GenderFemale, 48}, {domain.GenderNonBinary, 4},
	}
	specialtyGroups = []weighted[[]string]{
		{[]string{"anxiety", "depression", "stress"}, 35},
		{[]string{"trauma", "ptsd", "grief"}, 20},
		{[]string{"adhd", "ocd", "bipolar"}, 15},
		{[]string{"relationships", "family", "parenting"}, 15},
		{[]string{"addiction", "substance_abuse"}, 10},
		{[]string{"self_esteem", "anger", "life_transitions"}, 5},
	}
	timeSlots  = []string{"morning", "afternoon", "evening", "weekends"}
	ageGroups  = []string{"children", "teens", "adults", "seniors"}
	firstNames = []string{"Mary", "Jennifer", "Linda", "Sarah", "Karen", "John", "Michael", "David", "James", "Daniel"}
	lastNames  = []string{"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis", "Rodriguez", "Martinez"}
)

// Dataset is one generated catalogue. Users carry their interaction
// history; Interactions holds the same records flattened.
type Dataset struct {
	Clinicians   []domain.Clinician
	Users        []domain.User
	Interactions []domain.Interaction
}

// Generator produces the same Dataset for the same seed and sizes.
type Generator struct {
	rng *rand.Rand
	now time.Time
}

func NewGenerator(seed uint64, now time.Time) *Generator {
	return &Generator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), now: now}
}

func (g *Generator) Generate(clinicians, users int) *Dataset {
	ds := &Dataset{}
	for i := range clinicians {
		ds.Clinicians = append(ds.Clinicians, g.clinician(i))
	}
	for i := range users {
		u := g.user(i, ds.Clinicians)
		ds.Interactions = append(ds.Interactions, u.History...)
		ds.Users = append(ds.Users, u)
	}
	return ds
}

func pick[T any](rng *rand.Rand, choices []weighted[T]) T {
	var total float64
	for _, c := range choices {
		total += c.weight
	}
	x := rng.Float64() * total
	for _, c := range choices {
		if x < c.weight {
			return c.value
		}
		x -= c.weight
	}
	return choices[len(choices)-1].value
}

func (g *Generator) chance(p float64) bool {
	return g.rng.Float64() < p
}

func (g *Generator) clinician(i int) domain.Clinician {
	r := g.rng
	c := domain.Clinician{
		ID:     fmt.Sprintf("clin_%04d", i+1),
		Gender: pick(r, genders),
	}
	c.Name = fmt.Sprintf("%s %s", firstNames[r.IntN(len(firstNames))], lastNames[r.IntN(len(lastNames))])

	switch x := r.Float64(); {
	case x < 0.65:
		c.AppointmentTypes = []domain.AppointmentType{domain.AppointmentTherapy}
	case x < 0.80:
		c.AppointmentTypes = []domain.AppointmentType{domain.AppointmentMedication}
	default:
		c.AppointmentTypes = []domain.AppointmentType{domain.AppointmentTherapy, domain.AppointmentMedication}
		c.Name = "Dr. " + c.Name
	}

	c.LicenseStates = []string{pick(r, states)}
	for range r.IntN(3) {
		if s := pick(r, states); !slices.Contains(c.LicenseStates, s) {
			c.LicenseStates = append(c.LicenseStates, s)
		}
	}

	c.Specialties = slices.Clone(pick(r, specialtyGroups))
	for _, group := range specialtyGroups {
		if g.chance(0.2) {
			if s := group.value[r.IntN(len(group.value))]; !slices.Contains(c.Specialties, s) {
				c.Specialties = append(c.Specialties, s)
			}
		}
	}

	c.Languages = []string{domain.DefaultLanguage}
	if g.chance(0.25) {
		c.Languages = append(c.Languages, pick(r, languages))
	}

	c.YearsExperience = 1 + r.IntN(30)
	c.MaxPatientCapacity = 15 + 5*r.IntN(5)
	if c.Offers(domain.AppointmentMedication) && !c.Offers(domain.AppointmentTherapy) {
		c.MaxPatientCapacity = 40 + 10*r.IntN(4)
	}
	busy := g.chance(math.Min(0.2+float64(c.YearsExperience)/50, 0.7))
	if busy {
		c.CurrentPatientCount = int(float64(c.MaxPatientCapacity) * (0.75 + 0.2*r.Float64()))
		c.ImmediateAvailability = g.chance(0.1)
		c.AcceptingNewPatients = g.chance(0.3)
	} else {
		c.CurrentPatientCount = int(float64(c.MaxPatientCapacity) * (0.2 + 0.4*r.Float64()))
		c.ImmediateAvailability = g.chance(0.7)
		c.AcceptingNewPatients = true
	}

	c.AgeGroupsServed = []string{"adults"}
	if g.chance(0.4) {
		c.AgeGroupsServed = append(c.AgeGroupsServed, ageGroups[r.IntN(len(ageGroups))])
	}
	c.AvgRating = round(3.5+1.5*r.Float64(), 2)
	c.RetentionRate = round(0.6+0.35*r.Float64(), 2)
	c.SuccessBySpecialty = make(map[string]float64, len(c.Specialties))
	for _, s := range c.Specialties {
		c.SuccessBySpecialty[s] = round(0.5+0.45*r.Float64(), 2)
	}
	c.SpecialtyVector = g.vector()

	// Roughly one in ten clinicians joined within the last month.
	days := 31 + r.IntN(5*365)
	if g.chance(0.1) {
		days = r.IntN(30)
	}
	c.CreatedAt = g.now.AddDate(0, 0, -days)
	c.UpdatedAt = g.now
	return c
}

func (g *Generator) user(i int, clinicians []domain.Clinician) domain.User {
	r := g.rng
	u := domain.User{
		ID:        fmt.Sprintf("user_%04d", i+1),
		CreatedAt: g.now.AddDate(0, 0, -r.IntN(365)),
		UpdatedAt: g.now,
	}
	u.Email = u.ID + "@example.com"

	switch x := r.Float64(); {
	case x < 0.2:
		u.RegistrationType = domain.RegistrationAnonymous
	case x < 0.6:
		u.RegistrationType = domain.RegistrationBasic
	default:
		u.RegistrationType = domain.RegistrationComplete
	}

	p := domain.StatedPreferences{
		State:           pick(r, states),
		AppointmentType: domain.AppointmentTherapy,
	}
	if g.chance(0.25) {
		p.AppointmentType = domain.AppointmentMedication
	}
	group := pick(r, specialtyGroups)
	p.ClinicalNeeds = []string{group[r.IntN(len(group))]}
	if g.chance(0.5) {
		if s := group[r.IntN(len(group))]; !slices.Contains(p.ClinicalNeeds, s) {
			p.ClinicalNeeds = append(p.ClinicalNeeds, s)
		}
	}
	if g.chance(0.4) {
		p.PreferredGender = pick(r, genders)
	}
	if g.chance(0.15) {
		p.PreferredLanguage = pick(r, languages)
	}
	p.UrgencyLevel = domain.UrgencyFlexible
	if g.chance(0.3) {
		p.UrgencyLevel = domain.UrgencyImmediate
	}
	if g.chance(0.8) {
		p.InsuranceProvider = pick(r, insurers)
	}
	for _, slot := range timeSlots {
		if g.chance(0.4) {
			p.PreferredTimeSlots = append(p.PreferredTimeSlots, slot)
		}
	}
	u.Preferences = p

	if u.RegistrationType == domain.RegistrationAnonymous {
		return u
	}

	experiences := []domain.TherapyExperience{domain.ExperienceFirstTime, domain.ExperienceSome, domain.ExperienceSeasoned}
	u.Profile = &domain.ProfileData{
		AgeRange:          []string{"18-25", "26-35", "36-50", "51+"}[r.IntN(4)],
		TherapyExperience: experiences[r.IntN(len(experiences))],
		TherapyGoals:      slices.Clone(p.ClinicalNeeds),
	}
	if u.RegistrationType == domain.RegistrationComplete {
		u.History = g.history(u, clinicians)
		u.PreferenceVector = g.vector()
	}
	return u
}

// history simulates browsing: eligible clinicians are viewed, some clicked
// and a few booked or rejected.
func (g *Generator) history(u domain.User, clinicians []domain.Clinician) []domain.Interaction {
	r := g.rng
	var eligible []*domain.Clinician
	for i := range clinicians {
		c := &clinicians[i]
		if c.LicensedIn(u.Preferences.State) && c.Offers(u.Preferences.AppointmentType) {
			eligible = append(eligible, c)
		}
	}
	if len(eligible) == 0 {
		return nil
	}

	var out []domain.Interaction
	add := func(c *domain.Clinician, a domain.InteractionAction, at time.Time) {
		out = append(out, domain.Interaction{
			ID:          uuid.NewSHA1(uuid.NameSpaceOID, fmt.Appendf(nil, "%s/%s/%s/%d", u.ID, c.ID, a, len(out))),
			UserID:      u.ID,
			ClinicianID: c.ID,
			Action:      a,
			Timestamp:   at,
		})
	}

	views := 1 + r.IntN(min(6, len(eligible)))
	for _, idx := range r.Perm(len(eligible))[:views] {
		c := eligible[idx]
		at := g.now.Add(-time.Duration(1+r.IntN(90*24)) * time.Hour)
		add(c, domain.ActionViewed, at)
		switch x := r.Float64(); {
		case x < 0.1:
			add(c, domain.ActionRejected, at.Add(time.Minute))
		case x < 0.45:
			add(c, domain.ActionClicked, at.Add(time.Minute))
			if g.chance(0.3) {
				add(c, domain.ActionBooked, at.Add(5*time.Minute))
			}
		}
	}
	return out
}

// vector returns a unit vector with non-negative components.
func (g *Generator) vector() []float32 {
	v := make([]float32, VectorDim)
	var norm float64
	for i := range v {
		x := math.Abs(g.rng.NormFloat64())
		v[i] = float32(x)
		norm += x * x
	}
	norm = math.Sqrt(norm)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}

func round(x float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(x*p) / p
}
