package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/1ureka/lockstep/internal/metrics"
	"github.com/1ureka/lockstep/internal/netcmd"
)

func newTestRouter() http.Handler {
	reg := prometheus.NewRegistry()
	return newRouter(reg, metrics.New(metrics.WithRegistry(reg)))
}

func TestHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("GET /healthz = %d %q", rec.Code, rec.Body.String())
	}
}

func TestKinds(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rec, httptest.NewRequest("GET", "/kinds", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /kinds = %d", rec.Code)
	}
	var kinds []kindView
	if err := json.Unmarshal(rec.Body.Bytes(), &kinds); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(kinds) != len(netcmd.Kinds()) {
		t.Fatalf("got %d kinds, want %d", len(kinds), len(netcmd.Kinds()))
	}
	if k := kinds[netcmd.KindWrapper]; k.Name != "Wrapper" || !k.NeedsID {
		t.Errorf("wrapper entry = %+v", k)
	}
}

func TestDecodeEndpoint(t *testing.T) {
	router := newTestRouter()

	testCases := []struct {
		name     string
		body     string
		wantCode int
		check    func(t *testing.T, body []byte)
	}{
		{
			name:     "keep-alive",
			body:     "54 09 44",
			wantCode: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var resp struct {
					Bytes    int           `json:"bytes"`
					Commands []commandView `json:"commands"`
				}
				if err := json.Unmarshal(body, &resp); err != nil {
					t.Fatalf("invalid JSON: %v", err)
				}
				if resp.Bytes != 3 || len(resp.Commands) != 1 || resp.Commands[0].Kind != "KeepAlive" {
					t.Errorf("response %+v", resp)
				}
				if resp.Commands[0].Frame != nil || resp.Commands[0].ID != nil {
					t.Error("keep-alive reported frame or id fields it does not carry")
				}
			},
		},
		{
			name:     "malformed",
			body:     "5409",
			wantCode: http.StatusUnprocessableEntity,
			check: func(t *testing.T, body []byte) {
				var resp decodeError
				if err := json.Unmarshal(body, &resp); err != nil {
					t.Fatalf("invalid JSON: %v", err)
				}
				if resp.Code != "MalformedPacket" || resp.Offset == nil {
					t.Errorf("response %+v", resp)
				}
			},
		},
		{
			name:     "not hex",
			body:     "zz",
			wantCode: http.StatusBadRequest,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest("POST", "/decode", strings.NewReader(tc.body)))
			if rec.Code != tc.wantCode {
				t.Fatalf("POST /decode = %d, want %d: %s", rec.Code, tc.wantCode, rec.Body.String())
			}
			if tc.check != nil {
				tc.check(t, rec.Body.Bytes())
			}
		})
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	out := rec.Body.String()
	if !strings.Contains(out, `lockstep_packets_total{direction="received"} 2`) {
		t.Errorf("metrics do not count the decoded packets:\n%s", out)
	}
	if !strings.Contains(out, `lockstep_decode_errors_total{code="MalformedPacket"} 1`) {
		t.Errorf("metrics do not count the decode error:\n%s", out)
	}
}
