package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"docgen-progress/internal/client"
	"docgen-progress/internal/config"
	"docgen-progress/internal/domain/model"
	"docgen-progress/internal/domain/ports/adapter"
	"docgen-progress/internal/infra/api"
	"docgen-progress/internal/infra/store"
	"docgen-progress/internal/infra/worker"
	"docgen-progress/internal/usecase"

	"github.com/rs/zerolog"
)

// e2ePipeline reports the scripted ticks in order, holding the last one.
type e2ePipeline struct {
	mu    sync.Mutex
	i     int
	ticks []adapter.RunStatus
}

func (p *e2ePipeline) Start(ctx context.Context, sub model.Submission) (string, int, error) {
	return "run-e2e", 18, nil
}

func (p *e2ePipeline) Poll(ctx context.Context, runID string) (adapter.RunStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := p.ticks[p.i]
	if p.i < len(p.ticks)-1 {
		p.i++
	}
	return st, nil
}

// TestEndToEnd submits a job against the full server stack and follows it
// with the reconnecting stream client: pipeline ticks (3,18), (9,18),
// (18,18) must surface as strictly increasing progress ending at 100 with a
// clean stream close and no events after the terminal one.
func TestEndToEnd(t *testing.T) {
	logger := zerolog.Nop()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	progressStore := store.NewMemoryStore()
	pool := worker.NewPool(1, 4, &logger)
	pool.Start(ctx)
	defer pool.Stop()

	pipeline := &e2ePipeline{ticks: []adapter.RunStatus{
		{Completed: 3, Total: 18},
		{Completed: 9, Total: 18},
		{Completed: 18, Total: 18, Done: true, OutputRef: "artifacts/run-e2e.zip"},
	}}
	// The orchestrator ticks slowly enough that the client connects well
	// before the job finishes; the stream poll stays fast so every distinct
	// state is observed.
	jobUC := usecase.NewJobUseCase(progressStore, pipeline, pool, 50*time.Millisecond, 40, &logger)

	cfg := config.Default()
	cfg.Stream = config.StreamConfig{PollInterval: 5 * time.Millisecond, HeartbeatInterval: time.Hour}
	ts := httptest.NewServer(api.NewServer(cfg, jobUC, progressStore, &logger).Router())
	defer ts.Close()

	// Submit over HTTP, like a real caller.
	body, _ := json.Marshal(model.Submission{Template: "quarterly"})
	resp, err := http.Post(ts.URL+"/jobs", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	var accepted struct {
		JobID     string `json:"jobId"`
		Streaming bool   `json:"streaming"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		t.Fatalf("decode submit response: %v", err)
	}
	resp.Body.Close()
	if !accepted.Streaming {
		t.Fatal("expected streaming to be available")
	}

	var (
		mu        sync.Mutex
		progress  []float64
		completes int
		output    string
		afterDone int
	)
	done := make(chan struct{})

	sc := client.New(ts.URL, accepted.JobID, client.Callbacks{
		OnProgress: func(ev client.ProgressEvent) {
			mu.Lock()
			defer mu.Unlock()
			select {
			case <-done:
				afterDone++
			default:
				progress = append(progress, ev.Progress)
			}
		},
		OnComplete: func(ev client.CompleteEvent) {
			mu.Lock()
			completes++
			output = ev.OutputRef
			mu.Unlock()
			close(done)
		},
		OnError: func(ev client.ErrorEvent) {
			t.Errorf("unexpected job failure: %+v", ev)
		},
		OnConnectionLost: func(err error) {
			t.Errorf("unexpected connection loss: %v", err)
		},
	}, client.Options{Logger: &logger})
	sc.Start()
	defer sc.Destroy()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not complete in time")
	}

	// Allow any stray late events to surface before asserting.
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()

	if completes != 1 {
		t.Errorf("complete events = %d, want 1", completes)
	}
	if output != "artifacts/run-e2e.zip" {
		t.Errorf("output ref = %q", output)
	}
	if afterDone != 0 {
		t.Errorf("%d events arrived after completion", afterDone)
	}
	if len(progress) < 2 {
		t.Fatalf("observed %d progress values (%v), want the distinct intermediate ticks", len(progress), progress)
	}
	for i := 1; i < len(progress); i++ {
		if progress[i] <= progress[i-1] {
			t.Errorf("progress not strictly increasing: %v", progress)
		}
	}
	if sc.State() != client.StateClosed {
		t.Errorf("client state = %s, want closed", sc.State())
	}

	select {
	case <-sc.Done():
	default:
		t.Error("client Done channel should be closed")
	}
}
