package service

import (
	"testing"

	"github.com/lunajoy/matchengine/internal/domain"
)

func TestFilterStage_ExcludesUnlicensedState(t *testing.T) {
	ca := testClinician("ca-only")
	tx := testClinician("tx")
	tx.LicenseStates = []string{"TX", "CA"}

	prefs := testPrefs()
	prefs.State = "TX"

	f := NewFilterStage(DefaultMinResults, testLogger())
	got, report := f.Filter([]domain.Clinician{ca, tx}, prefs, nil)

	if len(got) != 1 || got[0].ID != "tx" {
		t.Fatalf("expected only tx, got %v", ids(got))
	}
	if report.Steps[0].Name != "state_license" || report.Steps[0].After != 1 {
		t.Errorf("unexpected first step: %+v", report.Steps[0])
	}
}

func TestFilterStage_AppliesAllHardConstraints(t *testing.T) {
	ok := testClinician("c1")
	wrongState := testClinician("c2")
	wrongState.LicenseStates = []string{"NY"}
	noTherapy := testClinician("c3")
	noTherapy.AppointmentTypes = []domain.AppointmentType{domain.AppointmentMedication}
	full := testClinician("c4")
	full.AcceptingNewPatients = false

	input := []domain.Clinician{ok, wrongState, noTherapy, full}
	f := NewFilterStage(DefaultMinResults, testLogger())
	got, report := f.Filter(input, testPrefs(), nil)

	if len(got) != 1 || got[0].ID != "c1" {
		t.Fatalf("expected [c1], got %v", ids(got))
	}
	if report.Initial != 4 || report.Final != 1 {
		t.Errorf("report initial/final = %d/%d, want 4/1", report.Initial, report.Final)
	}
	if len(report.Steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(report.Steps))
	}
	wantNames := []string{"state_license", "appointment_type", "accepting_new_patients"}
	for i, step := range report.Steps {
		if step.Name != wantNames[i] {
			t.Errorf("step %d = %s, want %s", i, step.Name, wantNames[i])
		}
	}
	if !report.Sparse {
		t.Error("expected report to be flagged sparse")
	}
}

func TestFilterStage_MonotonicAndOrderPreserving(t *testing.T) {
	var input []domain.Clinician
	for i, id := range []string{"c9", "c3", "c7", "c1", "c5"} {
		c := testClinician(id)
		if i%2 == 1 {
			c.AcceptingNewPatients = false
		}
		input = append(input, c)
	}

	f := NewFilterStage(0, testLogger())
	got, _ := f.Filter(input, testPrefs(), nil)

	want := []string{"c9", "c7", "c5"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, ids(got))
	}
	inInput := make(map[string]bool)
	for _, c := range input {
		inInput[c.ID] = true
	}
	for i, c := range got {
		if c.ID != want[i] {
			t.Errorf("position %d = %s, want %s", i, c.ID, want[i])
		}
		if !inInput[c.ID] {
			t.Errorf("%s is not in the input set", c.ID)
		}
		if !c.LicensedIn("CA") || !c.Offers(domain.AppointmentTherapy) || !c.AcceptingNewPatients {
			t.Errorf("%s fails a hard constraint", c.ID)
		}
	}
}

func TestFilterStage_EmptyIsNotAnError(t *testing.T) {
	f := NewFilterStage(DefaultMinResults, testLogger())

	got, report := f.Filter(nil, testPrefs(), nil)
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %v", ids(got))
	}
	if len(report.Steps) != 0 {
		t.Errorf("expected no steps for an empty catalogue, got %d", len(report.Steps))
	}

	c := testClinician("c1")
	c.LicenseStates = []string{"NY"}
	got, report = f.Filter([]domain.Clinician{c}, testPrefs(), nil)
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %v", ids(got))
	}
	if len(report.Steps) != 1 {
		t.Errorf("expected filtering to stop after the first empty step, got %d steps", len(report.Steps))
	}
	if report.Steps[0].Impact != domain.ImpactHigh || !floatEq(report.Steps[0].RemovalRate, 1) {
		t.Errorf("unexpected step stats: %+v", report.Steps[0])
	}
}

func TestFilterStage_Exclusions(t *testing.T) {
	input := []domain.Clinician{testClinician("c1"), testClinician("c2"), testClinician("c3")}
	f := NewFilterStage(0, testLogger())

	got, report := f.Filter(input, testPrefs(), domain.NewIDSet("c2"))
	if len(got) != 2 || got[0].ID != "c1" || got[1].ID != "c3" {
		t.Fatalf("expected [c1 c3], got %v", ids(got))
	}
	last := report.Steps[len(report.Steps)-1]
	if last.Name != "exclusions" || last.Value != "c2" {
		t.Errorf("unexpected exclusion step: %+v", last)
	}
	if last.Impact != domain.ImpactMedium {
		t.Errorf("impact = %s, want medium for 1/3 removed", last.Impact)
	}
}

func TestFilterStage_NotSparseAtThreshold(t *testing.T) {
	input := []domain.Clinician{testClinician("c1"), testClinician("c2"), testClinician("c3")}
	f := NewFilterStage(3, testLogger())

	_, report := f.Filter(input, testPrefs(), nil)
	if report.Sparse {
		t.Error("three results should not be sparse with MinResults=3")
	}
	for _, step := range report.Steps {
		if step.Impact != domain.ImpactLow {
			t.Errorf("step %s impact = %s, want low", step.Name, step.Impact)
		}
	}
}

func ids(cs []domain.Clinician) []string {
	out := make([]string, len(cs))
	for i := range cs {
		out[i] = cs[i].ID
	}
	return out
}
