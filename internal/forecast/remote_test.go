package forecast

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newModelServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/train", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Name    string   `json:"name"`
			Samples []Sample `json:"samples"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || len(body.Samples) == 0 {
			http.Error(w, `{"error":"bad request"}`, http.StatusBadRequest)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"model": body.Name + "-v2"})
	})
	mux.HandleFunc("/predict", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Model string `json:"model"`
			Rows  []Row  `json:"rows"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, `{"error":"bad request"}`, http.StatusBadRequest)
			return
		}
		if body.Model != "default-v2" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"unknown model"}`))
			return
		}
		preds := make([]float64, len(body.Rows))
		for i, row := range body.Rows {
			preds[i] = 50 + float64(row.Day)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"predictions": preds})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRemoteTrainer_TrainAndPredict(t *testing.T) {
	ctx := context.Background()
	srv := newModelServer(t)
	tr := NewRemoteTrainer(srv.URL, "default", 5*time.Second)

	m, err := tr.Train(ctx, syntheticSamples(5))
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	preds, err := m.Predict(ctx, []Row{{Day: 0}, {Day: 4}})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if len(preds) != 2 || preds[0] != 50 || preds[1] != 54 {
		t.Fatalf("preds = %v", preds)
	}

	snap, err := m.(Snapshotter).Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	back, err := tr.Loader()(snap)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if back.(*RemoteModel).Name != "default-v2" {
		t.Fatalf("restored name = %q", back.(*RemoteModel).Name)
	}
}

func TestRemoteModel_ServerError(t *testing.T) {
	srv := newModelServer(t)
	tr := NewRemoteTrainer(srv.URL, "default", time.Second)
	m, err := tr.Loader()([]byte(`{"backend":"remote","name":"missing"}`))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Predict(context.Background(), []Row{{Day: 0}}); err == nil {
		t.Fatal("expected error for unknown model")
	}
}
