package forecast

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"sync"

	"github.com/mind-engage/mindengage-progress/internal/course"
	"github.com/mind-engage/mindengage-progress/internal/storage"
)

const EventModelRetrained = "ModelRetrained"

// Provider owns the current model snapshot. It restores the snapshot
// persisted under its name, or trains one from the full result corpus
// when none exists. Retrain replaces the snapshot wholesale.
type Provider struct {
	Name    string
	Trainer Trainer
	Load    Loader
	Blobs   storage.BlobStore
	Results course.ResultStore
	Events  course.EventSink // optional

	mu      sync.Mutex
	current Model
}

func (p *Provider) key() string { return "models/" + p.Name + ".json" }

// Current returns the cached model, loading or training it on first use.
func (p *Provider) Current(ctx context.Context) (Model, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current != nil {
		return p.current, nil
	}
	m, err := p.loadLocked()
	if err == nil {
		p.current = m
		return m, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		log.Printf("forecast: snapshot %s unreadable, retraining: %v", p.key(), err)
	}
	return p.trainLocked(ctx)
}

func (p *Provider) Retrain(ctx context.Context) (Model, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.trainLocked(ctx)
}

func (p *Provider) loadLocked() (Model, error) {
	if p.Blobs == nil || p.Load == nil {
		return nil, fs.ErrNotExist
	}
	rc, err := p.Blobs.Get(p.key())
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	return p.Load(data)
}

func (p *Provider) trainLocked(ctx context.Context) (Model, error) {
	if p.Trainer == nil {
		return nil, ErrNoModel
	}
	results, err := p.Results.AllResults(ctx)
	if err != nil {
		return nil, fmt.Errorf("training corpus: %w", err)
	}
	m, err := p.Trainer.Train(ctx, SamplesFromResults(results))
	if errors.Is(err, ErrNotEnoughData) {
		return nil, fmt.Errorf("%w: %v", ErrNoModel, err)
	}
	if err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}
	if s, ok := m.(Snapshotter); ok && p.Blobs != nil {
		data, err := s.Snapshot()
		if err != nil {
			return nil, fmt.Errorf("snapshot: %w", err)
		}
		if _, err := p.Blobs.Put(p.key(), bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("save snapshot: %w", err)
		}
	}
	p.current = m
	if p.Events != nil {
		payload := map[string]any{"name": p.Name, "samples": len(results)}
		if err := p.Events.Publish(ctx, EventModelRetrained, p.Name, payload); err != nil {
			log.Printf("forecast: publish %s: %v", EventModelRetrained, err)
		}
	}
	return m, nil
}
