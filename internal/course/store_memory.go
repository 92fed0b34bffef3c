package course

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-progress/internal/scoring"
)

type memoryStore struct {
	mu           sync.RWMutex
	participants map[string]Participant
	results      map[string]TestResult
	seq          int64
}

// NewInMemoryStore is used by tests and the offline demo mode.
func NewInMemoryStore() Store {
	return &memoryStore{
		participants: map[string]Participant{},
		results:      map[string]TestResult{},
	}
}

func (m *memoryStore) CreateParticipant(_ context.Context, p Participant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkNewLocked(p); err != nil {
		return err
	}
	m.insertLocked(p)
	return nil
}

func (m *memoryStore) CreateParticipants(_ context.Context, ps []Participant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	for _, p := range ps {
		if err := m.checkNewLocked(p); err != nil {
			return err
		}
		if seen[p.NationalID] {
			return ErrDuplicateNationalID
		}
		seen[p.NationalID] = true
	}
	for _, p := range ps {
		m.insertLocked(p)
	}
	return nil
}

func (m *memoryStore) checkNewLocked(p Participant) error {
	for _, x := range m.participants {
		if x.NationalID == p.NationalID {
			return ErrDuplicateNationalID
		}
	}
	return nil
}

func (m *memoryStore) insertLocked(p Participant) {
	if p.CreatedAt == 0 {
		p.CreatedAt = time.Now().Unix()
	}
	m.participants[p.ID] = p
}

func (m *memoryStore) UpdateParticipant(_ context.Context, p Participant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.participants[p.ID]
	if !ok {
		return ErrNotFound
	}
	for id, x := range m.participants {
		if id != p.ID && x.NationalID == p.NationalID {
			return ErrDuplicateNationalID
		}
	}
	p.CreatedAt = old.CreatedAt
	m.participants[p.ID] = p
	return nil
}

func (m *memoryStore) GetParticipant(_ context.Context, id string) (Participant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.participants[id]
	if !ok {
		return Participant{}, ErrNotFound
	}
	return p, nil
}

func (m *memoryStore) ListParticipants(_ context.Context) ([]Participant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Participant, 0, len(m.participants))
	for _, p := range m.participants {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memoryStore) AppendResult(_ context.Context, participantID string, testDate Date, agg scoring.Aggregated) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.participants[participantID]; !ok {
		return "", ErrNotFound
	}
	m.seq++
	r := TestResult{
		ID:            uuid.NewString(),
		ParticipantID: participantID,
		TestDate:      testDate,
		Seq:           m.seq,
		Aggregated:    agg,
		CreatedAt:     time.Now().Unix(),
	}
	m.results[r.ID] = r
	return r.ID, nil
}

func (m *memoryStore) UpdateResult(_ context.Context, id string, testDate Date, agg scoring.Aggregated) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.results[id]
	if !ok {
		return ErrNotFound
	}
	r.TestDate = testDate
	r.Aggregated = agg
	m.results[id] = r
	return nil
}

func (m *memoryStore) GetResult(_ context.Context, id string) (TestResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.results[id]
	if !ok {
		return TestResult{}, ErrNotFound
	}
	return r, nil
}

func (m *memoryStore) History(_ context.Context, participantID string) ([]TestResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []TestResult
	for _, r := range m.results {
		if r.ParticipantID == participantID {
			out = append(out, r)
		}
	}
	SortHistory(out)
	return out, nil
}

func (m *memoryStore) Latest(ctx context.Context, participantID string) (TestResult, bool, error) {
	h, err := m.History(ctx, participantID)
	if err != nil || len(h) == 0 {
		return TestResult{}, false, err
	}
	return h[len(h)-1], true, nil
}

func (m *memoryStore) AllResults(_ context.Context) ([]TestResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]TestResult, 0, len(m.results))
	for _, r := range m.results {
		out = append(out, r)
	}
	SortHistory(out)
	return out, nil
}

// SortHistory orders results by test date ascending, then insertion order.
func SortHistory(rs []TestResult) {
	sort.SliceStable(rs, func(i, j int) bool {
		if !rs[i].TestDate.Equal(rs[j].TestDate) {
			return rs[i].TestDate.Before(rs[j].TestDate)
		}
		return rs[i].Seq < rs[j].Seq
	})
}
