package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/entrhq/formpilot/pkg/profile"
)

//go:embed mock_job.html
var mockJobHTML []byte

// simulationProfile is the candidate used by -simulate.
func simulationProfile() profile.Profile {
	return profile.Profile{
		Name:        "Test User",
		Email:       "test@example.com",
		Phone:       "+1 555 0100",
		LinkedIn:    "https://www.linkedin.com/in/test-user",
		CoverLetter: "Test Letter",
		CVText:      "Test CV Content",
	}
}

// mockServer serves the built-in job form on a loopback port.
type mockServer struct {
	server   *http.Server
	listener net.Listener
}

func startMockServer() (*mockServer, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("failed to listen on loopback: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/apply", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write(mockJobHTML)
	})

	s := &mockServer{
		server:   &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second},
		listener: listener,
	}
	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "mock server stopped: %v\n", err)
		}
	}()
	return s, nil
}

// URL returns the address of the mock application form.
func (s *mockServer) URL() string {
	return fmt.Sprintf("http://%s/apply", s.listener.Addr().String())
}

func (s *mockServer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// writeDummyCV creates the throwaway resume uploaded by -simulate.
func writeDummyCV(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create simulation directory: %w", err)
	}
	path := filepath.Join(dir, "dummy_cv.txt")
	if err := os.WriteFile(path, []byte("This is a dummy CV for testing purposes."), 0600); err != nil {
		return "", fmt.Errorf("failed to write dummy CV: %w", err)
	}
	return path, nil
}
