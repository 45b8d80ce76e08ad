// File: cmd/watch/main.go
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"docgen-progress/internal/client"
	"docgen-progress/internal/domain/model"
	"docgen-progress/internal/present"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		server   string
		jobID    string
		template string
		delay    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Submit a generation job and watch its progress stream",
		Long: `Submits a document-generation job to a running docgen-progress server and
follows its progress stream to completion in the terminal. With --job it
watches an already submitted job instead of creating one.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(server, jobID, template, delay)
		},
	}

	cmd.Flags().StringVar(&server, "server", "http://localhost:8080", "base URL of the docgen-progress server")
	cmd.Flags().StringVar(&jobID, "job", "", "watch an existing job id instead of submitting")
	cmd.Flags().StringVar(&template, "template", "default", "document template to submit")
	cmd.Flags().DurationVar(&delay, "delay", 500*time.Millisecond, "pause between submission and opening the stream")
	return cmd
}

type submitResponse struct {
	JobID     string `json:"jobId"`
	Streaming bool   `json:"streaming"`
}

func run(server, jobID, template string, delay time.Duration) error {
	if jobID == "" {
		resp, err := submit(server, template)
		if err != nil {
			return err
		}
		jobID = resp.JobID
		fmt.Printf("job %s accepted\n", jobID)
		if !resp.Streaming {
			return errors.New("server reports streaming unavailable for this job")
		}
	}

	presenter := present.New(newBarRenderer())
	presenter.Start()

	// Short deliberate pause so the server has its store entry before the
	// stream opens; the synthetic interim values cover the gap visually.
	time.Sleep(delay)

	failCh := make(chan error, 1)
	sc := client.New(server, jobID, client.Callbacks{
		OnProgress: func(ev client.ProgressEvent) {
			presenter.SetProgress(ev.Progress, ev.Phase)
		},
		OnComplete: func(ev client.CompleteEvent) {
			presenter.Complete(ev.OutputRef)
		},
		OnError: func(ev client.ErrorEvent) {
			presenter.FailJob(ev.ErrorCode, ev.ErrorMessage)
			failCh <- fmt.Errorf("job failed: %s", ev.ErrorCode)
		},
		OnConnectionLost: func(err error) {
			presenter.Stop()
			failCh <- fmt.Errorf("connection lost: %w", err)
		},
	}, client.Options{})
	sc.Start()
	defer sc.Destroy()

	<-presenter.Done()
	select {
	case err := <-failCh:
		return err
	default:
		return nil
	}
}

func submit(server, template string) (*submitResponse, error) {
	body, _ := json.Marshal(model.Submission{Template: template})
	resp, err := http.Post(server+"/jobs", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("submit job: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return nil, fmt.Errorf("submit job: unexpected status %s", resp.Status)
	}
	var out submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("submit job: decode response: %w", err)
	}
	return &out, nil
}
