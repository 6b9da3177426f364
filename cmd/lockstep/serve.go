package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/1ureka/lockstep/internal/config"
	"github.com/1ureka/lockstep/internal/metrics"
	"github.com/1ureka/lockstep/internal/netcmd"
	"github.com/1ureka/lockstep/internal/protocol"
	"github.com/1ureka/lockstep/internal/util"
)

// maxDecodeBody caps POST /decode bodies (hex doubles the packet size).
const maxDecodeBody = 64 << 10

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the packet decoder and metrics over HTTP",
		Long: `Serve a small debugging API:

  GET  /healthz   liveness
  GET  /metrics   Prometheus metrics
  GET  /kinds     the command kind table
  POST /decode    decode a hex packet into JSON`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector())
			rec := metrics.New(metrics.WithRegistry(reg))

			util.LogInfo("serving on http://%s", addr)
			return serveHTTP(cmd.Context(), addr, newRouter(reg, rec))
		},
	}

	cmd.Flags().StringVar(&addr, "addr", config.DefaultMetricsAddr, "Listen address")

	return cmd
}

// serveHTTP runs h on addr until ctx is cancelled.
func serveHTTP(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
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

func newRouter(reg *prometheus.Registry, rec *metrics.Recorder) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	r.Get("/kinds", handleKinds)
	r.Post("/decode", decodeHandler(rec))

	return r
}

type kindView struct {
	Type    uint8  `json:"type"`
	Name    string `json:"name"`
	NeedsID bool   `json:"needsId"`
	Fields  string `json:"fields"`
}

func handleKinds(w http.ResponseWriter, r *http.Request) {
	kinds := netcmd.Kinds()
	out := make([]kindView, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, kindView{
			Type:    uint8(k),
			Name:    k.String(),
			NeedsID: k.NeedsID(),
			Fields:  k.Fields().String(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

type decodeError struct {
	Error  string `json:"error"`
	Code   string `json:"code,omitempty"`
	Offset *int   `json:"offset,omitempty"`
}

func decodeHandler(rec *metrics.Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDecodeBody))
		if err != nil {
			writeJSON(w, http.StatusRequestEntityTooLarge, decodeError{Error: err.Error()})
			return
		}
		data, err := parseHex(string(body))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, decodeError{Error: err.Error()})
			return
		}

		rec.Packet(metrics.Received, len(data))
		refs, err := protocol.DecodeRefs(data)
		if err != nil {
			rec.DecodeError(err)
			resp := decodeError{Error: err.Error()}
			var pe *netcmd.ProtocolError
			if errors.As(err, &pe) {
				resp.Code = pe.Code.String()
				resp.Offset = &pe.Offset
			}
			writeJSON(w, http.StatusUnprocessableEntity, resp)
			return
		}
		defer release(refs)

		views := make([]commandView, 0, len(refs))
		for _, ref := range refs {
			views = append(views, viewOf(ref))
		}
		writeJSON(w, http.StatusOK, map[string]any{"bytes": len(data), "commands": views})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		util.LogDebug("failed to write response: %v", err)
	}
}
