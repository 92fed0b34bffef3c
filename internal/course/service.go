package course

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-progress/internal/scoring"
)

// Event types published after successful writes.
const (
	EventParticipantCreated = "ParticipantCreated"
	EventParticipantUpdated = "ParticipantUpdated"
	EventResultRecorded     = "ResultRecorded"
	EventResultUpdated      = "ResultUpdated"
)

// EventSink receives domain events after the write they describe.
type EventSink interface {
	Publish(ctx context.Context, typ, key string, payload any) error
}

type Service struct {
	store  Store
	events EventSink
	now    func() time.Time
}

// NewService wires the course flows to a store. events may be nil; now
// defaults to time.Now and decides "today".
func NewService(store Store, events EventSink, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, events: events, now: now}
}

func (s *Service) Today() Date { return DateOf(s.now()) }

func (s *Service) Store() Store { return s.store }

func (s *Service) publish(ctx context.Context, typ, key string, payload any) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, typ, key, payload); err != nil {
		log.Printf("course: publish %s %s: %v", typ, key, err)
	}
}

func (s *Service) CreateParticipant(ctx context.Context, p Participant) (Participant, error) {
	if err := p.Validate(s.Today()); err != nil {
		return Participant{}, err
	}
	p.ID = uuid.NewString()
	p.CreatedAt = s.now().Unix()
	if err := s.store.CreateParticipant(ctx, p); err != nil {
		return Participant{}, err
	}
	s.publish(ctx, EventParticipantCreated, p.ID, p)
	return p, nil
}

// ImportParticipants validates every row first and inserts all or none.
func (s *Service) ImportParticipants(ctx context.Context, ps []Participant) ([]Participant, error) {
	today := s.Today()
	out := make([]Participant, 0, len(ps))
	for i, p := range ps {
		if err := p.Validate(today); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		p.ID = uuid.NewString()
		p.CreatedAt = s.now().Unix()
		out = append(out, p)
	}
	if len(out) == 0 {
		return out, nil
	}
	if err := s.store.CreateParticipants(ctx, out); err != nil {
		return nil, err
	}
	for _, p := range out {
		s.publish(ctx, EventParticipantCreated, p.ID, p)
	}
	return out, nil
}

// UpdateParticipant replaces the full record.
func (s *Service) UpdateParticipant(ctx context.Context, p Participant) (Participant, error) {
	if p.ID == "" {
		return Participant{}, &ValidationError{Field: "id", Reason: "required"}
	}
	if err := p.Validate(s.Today()); err != nil {
		return Participant{}, err
	}
	if err := s.store.UpdateParticipant(ctx, p); err != nil {
		return Participant{}, err
	}
	p, err := s.store.GetParticipant(ctx, p.ID)
	if err != nil {
		return Participant{}, err
	}
	s.publish(ctx, EventParticipantUpdated, p.ID, p)
	return p, nil
}

func (s *Service) UpdateExitDate(ctx context.Context, id string, exit Date) (Participant, error) {
	p, err := s.store.GetParticipant(ctx, id)
	if err != nil {
		return Participant{}, err
	}
	p.ExitDate = exit
	return s.UpdateParticipant(ctx, p)
}

func (s *Service) GetParticipant(ctx context.Context, id string) (Participant, error) {
	return s.store.GetParticipant(ctx, id)
}

// ListParticipants hides participants whose exit date has passed unless
// includeInactive is set.
func (s *Service) ListParticipants(ctx context.Context, includeInactive bool) ([]Participant, error) {
	all, err := s.store.ListParticipants(ctx)
	if err != nil {
		return nil, err
	}
	if includeInactive {
		return all, nil
	}
	today := s.Today()
	out := make([]Participant, 0, len(all))
	for _, p := range all {
		if p.Status(today) == StatusActive {
			out = append(out, p)
		}
	}
	return out, nil
}

// RecordResult validates the point allocation, aggregates it and appends
// it to the participant's history. Nothing is written when any step fails.
func (s *Service) RecordResult(ctx context.Context, participantID string, testDate Date, scores map[scoring.Category]scoring.Points) (TestResult, error) {
	if testDate.IsZero() {
		return TestResult{}, &ValidationError{Field: "test_date", Reason: "required"}
	}
	if _, err := s.store.GetParticipant(ctx, participantID); err != nil {
		return TestResult{}, err
	}
	if err := scoring.ValidateScores(scores); err != nil {
		return TestResult{}, err
	}
	agg := scoring.Aggregate(scores)
	id, err := s.store.AppendResult(ctx, participantID, testDate, agg)
	if err != nil {
		return TestResult{}, fmt.Errorf("append result: %w", err)
	}
	r, err := s.store.GetResult(ctx, id)
	if err != nil {
		return TestResult{}, err
	}
	s.publish(ctx, EventResultRecorded, r.ID, r)
	return r, nil
}

func (s *Service) UpdateResult(ctx context.Context, id string, testDate Date, scores map[scoring.Category]scoring.Points) (TestResult, error) {
	if testDate.IsZero() {
		return TestResult{}, &ValidationError{Field: "test_date", Reason: "required"}
	}
	if err := scoring.ValidateScores(scores); err != nil {
		return TestResult{}, err
	}
	if err := s.store.UpdateResult(ctx, id, testDate, scoring.Aggregate(scores)); err != nil {
		return TestResult{}, err
	}
	r, err := s.store.GetResult(ctx, id)
	if err != nil {
		return TestResult{}, err
	}
	s.publish(ctx, EventResultUpdated, r.ID, r)
	return r, nil
}

func (s *Service) History(ctx context.Context, participantID string) ([]TestResult, error) {
	if _, err := s.store.GetParticipant(ctx, participantID); err != nil {
		return nil, err
	}
	return s.store.History(ctx, participantID)
}

func (s *Service) Latest(ctx context.Context, participantID string) (TestResult, bool, error) {
	return s.store.Latest(ctx, participantID)
}
