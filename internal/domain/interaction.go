package domain

import (
	"time"

	"github.com/google/uuid"
)

type InteractionAction string

const (
	ActionBooked    InteractionAction = "booked"
	ActionContacted InteractionAction = "contacted"
	ActionClicked   InteractionAction = "clicked"
	ActionViewed    InteractionAction = "viewed"
	ActionIgnored   InteractionAction = "ignored"
	ActionRejected  InteractionAction = "rejected"
)

var actionScores = map[InteractionAction]float64{
	ActionBooked:    1.0,
	ActionContacted: 0.7,
	ActionClicked:   0.4,
	ActionViewed:    0.2,
	ActionIgnored:   0.0,
	ActionRejected:  -0.5,
}

// Score is the implicit-feedback strength of the action. Unknown actions
// score 0.
func (a InteractionAction) Score() float64 {
	return actionScores[a]
}

func ValidInteractionAction(a string) bool {
	_, ok := actionScores[InteractionAction(a)]
	return ok
}

type Interaction struct {
	ID          uuid.UUID         `json:"id"`
	UserID      string            `json:"user_id"`
	ClinicianID string            `json:"clinician_id"`
	Action      InteractionAction `json:"action"`
	Timestamp   time.Time         `json:"timestamp"`
}
