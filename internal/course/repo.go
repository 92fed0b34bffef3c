package course

import (
	"context"

	"github.com/mind-engage/mindengage-progress/internal/scoring"
)

type ParticipantStore interface {
	CreateParticipant(ctx context.Context, p Participant) error
	// CreateParticipants inserts all or none.
	CreateParticipants(ctx context.Context, ps []Participant) error
	UpdateParticipant(ctx context.Context, p Participant) error
	GetParticipant(ctx context.Context, id string) (Participant, error)
	ListParticipants(ctx context.Context) ([]Participant, error)
}

// ResultStore is an append-mostly log of aggregated results.
type ResultStore interface {
	AppendResult(ctx context.Context, participantID string, testDate Date, agg scoring.Aggregated) (string, error)
	UpdateResult(ctx context.Context, id string, testDate Date, agg scoring.Aggregated) error
	GetResult(ctx context.Context, id string) (TestResult, error)
	// History is ordered by test date ascending, then insertion order.
	History(ctx context.Context, participantID string) ([]TestResult, error)
	Latest(ctx context.Context, participantID string) (TestResult, bool, error)
	// AllResults returns every participant's results (training corpus).
	AllResults(ctx context.Context) ([]TestResult, error)
}

type Store interface {
	ParticipantStore
	ResultStore
}
