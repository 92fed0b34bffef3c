package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"
)

// RemoteTrainer delegates training to an HTTP model server:
//
//	POST {base}/train   {"name": "...", "features": {...}, "samples": [...]} -> {"model": "..."}
//	POST {base}/predict {"model": "...", "rows": [...]}                    -> {"predictions": [...]}
type RemoteTrainer struct {
	client   *resty.Client
	Name     string
	Features FeatureSet
}

func NewRemoteTrainer(baseURL, name string, timeout time.Duration) *RemoteTrainer {
	return &RemoteTrainer{client: newModelClient(baseURL, timeout), Name: name}
}

func newModelClient(baseURL string, timeout time.Duration) *resty.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
}

func (t *RemoteTrainer) Train(ctx context.Context, samples []Sample) (Model, error) {
	if len(samples) == 0 {
		return nil, ErrNotEnoughData
	}
	resp, err := t.client.R().
		SetContext(ctx).
		SetBody(map[string]any{"name": t.Name, "features": t.Features, "samples": samples}).
		Post("/train")
	if err != nil {
		return nil, fmt.Errorf("model server: train: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("model server: train: status %d: %s", resp.StatusCode(), gjson.GetBytes(resp.Body(), "error").String())
	}
	name := gjson.GetBytes(resp.Body(), "model").String()
	if name == "" {
		name = t.Name
	}
	return &RemoteModel{client: t.client, Name: name, Features: t.Features}, nil
}

// Loader restores RemoteModel snapshots against the trainer's server.
func (t *RemoteTrainer) Loader() Loader {
	return func(data []byte) (Model, error) {
		var snap remoteSnapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return nil, fmt.Errorf("remote model snapshot: %w", err)
		}
		if snap.Backend != "remote" || snap.Name == "" {
			return nil, errors.New("remote model snapshot: unexpected shape")
		}
		return &RemoteModel{client: t.client, Name: snap.Name, Features: snap.Features}, nil
	}
}

// RemoteModel is a model trained and held by the model server.
type RemoteModel struct {
	client   *resty.Client
	Name     string
	Features FeatureSet
}

type remoteSnapshot struct {
	Backend  string     `json:"backend"`
	Name     string     `json:"name"`
	Features FeatureSet `json:"features"`
}

func (m *RemoteModel) Snapshot() ([]byte, error) {
	return json.Marshal(remoteSnapshot{Backend: "remote", Name: m.Name, Features: m.Features})
}

func (m *RemoteModel) Predict(ctx context.Context, rows []Row) ([]float64, error) {
	resp, err := m.client.R().
		SetContext(ctx).
		SetBody(map[string]any{"model": m.Name, "rows": rows}).
		Post("/predict")
	if err != nil {
		return nil, fmt.Errorf("model server: predict: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("model server: predict: status %d: %s", resp.StatusCode(), gjson.GetBytes(resp.Body(), "error").String())
	}
	res := gjson.GetBytes(resp.Body(), "predictions")
	if !res.IsArray() {
		return nil, errors.New("model server: predict: response has no predictions array")
	}
	vals := res.Array()
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		out = append(out, v.Float())
	}
	return out, nil
}
