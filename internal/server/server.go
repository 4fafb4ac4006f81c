// Package server exposes the adapter over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/comigor/wrestlingai/internal/aiclient"
	"github.com/comigor/wrestlingai/internal/history"
	"github.com/comigor/wrestlingai/internal/logger"
)

// Generator is the part of *aiclient.Client the server needs.
type Generator interface {
	GenerateResponse(ctx context.Context, prompt string, opts aiclient.Options) (*aiclient.Response, error)
}

// Recorder stores completed exchanges. *history.Store satisfies it.
type Recorder interface {
	Save(ctx context.Context, e history.Exchange) (history.Exchange, error)
}

// GenerateRequest is the JSON body accepted by POST /v1/generate.
type GenerateRequest struct {
	Prompt      string   `json:"prompt"`
	Model       string   `json:"model,omitempty"`
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Temperature *float32 `json:"temperature,omitempty"`
}

// maxBodyBytes caps request bodies on the inference endpoints.
const maxBodyBytes = 1 << 20

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// NewHandler routes the inference endpoints. rec may be nil.
func NewHandler(gen Generator, rec Recorder) http.Handler {
	mux := http.NewServeMux()

	// raw body is the prompt
	mux.HandleFunc("POST /{$}", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			if tooLarge(err) {
				writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "request body too large"})
				return
			}
			logger.L.Error("read body error", "err", err)
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "failed to read request body"})
			return
		}
		prompt := strings.TrimSpace(string(body))
		if prompt == "" {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "prompt is required"})
			return
		}
		generate(w, r, gen, rec, prompt, aiclient.Options{})
	})

	mux.HandleFunc("POST /v1/generate", func(w http.ResponseWriter, r *http.Request) {
		var req GenerateRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			if tooLarge(err) {
				writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "request body too large"})
				return
			}
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body: " + err.Error()})
			return
		}
		if strings.TrimSpace(req.Prompt) == "" {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "prompt is required"})
			return
		}
		generate(w, r, gen, rec, req.Prompt, aiclient.Options{
			Model:       req.Model,
			MaxTokens:   req.MaxTokens,
			Temperature: req.Temperature,
		})
	})

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return mux
}

func tooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

func generate(w http.ResponseWriter, r *http.Request, gen Generator, rec Recorder, prompt string, opts aiclient.Options) {
	logger.L.Info("inference request", "prompt_len", len(prompt), "model", opts.Model)

	resp, err := gen.GenerateResponse(r.Context(), prompt, opts)
	if err != nil {
		// already logged by the adapter
		status, body := errorResponse(err)
		writeJSON(w, status, body)
		return
	}

	if rec != nil {
		if _, err := rec.Save(r.Context(), history.FromResponse(prompt, resp)); err != nil {
			logger.L.Warn("failed to record exchange", "error", err)
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func errorResponse(err error) (int, errorBody) {
	var reqErr *aiclient.RequestError
	if !errors.As(err, &reqErr) {
		return http.StatusInternalServerError, errorBody{Error: "failed to process request"}
	}
	body := errorBody{Error: reqErr.Error(), Kind: reqErr.Kind.String()}
	switch reqErr.Kind {
	case aiclient.KindRateLimit:
		return http.StatusTooManyRequests, body
	case aiclient.KindTransport:
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			return http.StatusGatewayTimeout, body
		}
		return http.StatusBadGateway, body
	default:
		return http.StatusBadGateway, body
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.L.Warn("write response failed", "error", err)
	}
}

// Run serves h on addr until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.L.Info("starting server", "address", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
