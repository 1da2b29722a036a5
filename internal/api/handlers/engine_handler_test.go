package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"pumpstrategy/internal/models"
	"pumpstrategy/pkg/utils"
)

func TestEngineHandler_GetStatus(t *testing.T) {
	engine := NewMockEngine()
	engine.tracked = 7
	engine.portfolio.OpenPositionCount = 2
	handler := NewEngineHandler(engine, utils.NewNopLogger())

	w := httptest.NewRecorder()
	handler.GetStatus(w, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp StatusResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Enabled || resp.TradingPaused {
		t.Errorf("unexpected flags: %+v", resp)
	}
	if resp.TrackedTokens != 7 || resp.OpenPositions != 2 {
		t.Errorf("unexpected counters: %+v", resp)
	}
	if resp.Congestion != models.CongestionNormal {
		t.Errorf("expected NORMAL congestion, got %s", resp.Congestion)
	}
}

func TestEngineHandler_ReadEndpoints(t *testing.T) {
	engine := NewMockEngine()
	engine.chain.AvgSlotTimeMs = 450
	engine.quality.FillRate = 0.9
	engine.positions = []*models.Position{{Mint: testMint, SizeSOL: 0.5}}
	handler := NewEngineHandler(engine, utils.NewNopLogger())

	tests := []struct {
		name    string
		handle  http.HandlerFunc
		contain string
	}{
		{"portfolio", handler.GetPortfolio, `"can_open_new":true`},
		{"chain", handler.GetChain, `"avg_slot_time_ms":450`},
		{"execution", handler.GetExecution, `"fill_rate":0.9`},
		{"positions", handler.GetPositions, testMint},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.handle(w, httptest.NewRequest(http.MethodGet, "/", nil))
			if w.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d", w.Code)
			}
			if !bytes.Contains(w.Body.Bytes(), []byte(tt.contain)) {
				t.Errorf("body %s should contain %s", w.Body.String(), tt.contain)
			}
		})
	}
}

func TestEngineHandler_EmptyPositions(t *testing.T) {
	handler := NewEngineHandler(NewMockEngine(), utils.NewNopLogger())

	w := httptest.NewRecorder()
	handler.GetPositions(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if got := bytes.TrimSpace(w.Body.Bytes()); string(got) != "[]" {
		t.Errorf("expected empty array, got %s", got)
	}
}

func TestEngineHandler_PauseTrading(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
		wantFor  time.Duration
	}{
		{"valid", `{"reason":"wallet rotation","duration_secs":600}`, http.StatusOK, 10 * time.Minute},
		{"missing reason", `{"duration_secs":600}`, http.StatusBadRequest, 0},
		{"zero duration", `{"reason":"x","duration_secs":0}`, http.StatusBadRequest, 0},
		{"too long", `{"reason":"x","duration_secs":90000}`, http.StatusBadRequest, 0},
		{"invalid json", `{`, http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewMockEngine()
			handler := NewEngineHandler(engine, utils.NewNopLogger())

			req := httptest.NewRequest(http.MethodPost, "/api/v1/trading/pause", bytes.NewBufferString(tt.body))
			w := httptest.NewRecorder()
			handler.PauseTrading(w, req)

			if w.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d: %s", tt.wantCode, w.Code, w.Body.String())
			}
			if engine.pauseFor != tt.wantFor {
				t.Errorf("pause duration = %v, want %v", engine.pauseFor, tt.wantFor)
			}
			if tt.wantCode == http.StatusOK && engine.pauseReason != "Manual: wallet rotation" {
				t.Errorf("unexpected pause reason %q", engine.pauseReason)
			}
		})
	}
}

func TestEngineHandler_PauseThenResume(t *testing.T) {
	engine := NewMockEngine()
	handler := NewEngineHandler(engine, utils.NewNopLogger())

	w := httptest.NewRecorder()
	handler.PauseTrading(w, httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"reason":"maintenance","duration_secs":60}`)))

	w = httptest.NewRecorder()
	handler.GetStatus(w, httptest.NewRequest(http.MethodGet, "/", nil))
	var status StatusResponse
	if err := json.NewDecoder(w.Body).Decode(&status); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !status.TradingPaused {
		t.Fatal("status should report pause")
	}

	w = httptest.NewRecorder()
	handler.ResumeTrading(w, httptest.NewRequest(http.MethodPost, "/", nil))
	if w.Code != http.StatusOK || !engine.resumed {
		t.Fatalf("resume failed: code=%d resumed=%v", w.Code, engine.resumed)
	}

	var portfolio models.PortfolioState
	if err := json.NewDecoder(w.Body).Decode(&portfolio); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if portfolio.Paused || !portfolio.CanOpenNew {
		t.Errorf("portfolio should be open after resume: %+v", portfolio)
	}
}

func TestDeployerHandler(t *testing.T) {
	svc := NewMockDeployerService()
	handler := NewDeployerHandler(svc)

	get := func(address string) (int, deployerResponse) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/deployers/"+address, nil)
		req = mux.SetURLVars(req, map[string]string{"address": address})
		w := httptest.NewRecorder()
		handler.GetDeployer(w, req)

		var resp deployerResponse
		if w.Code == http.StatusOK {
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
		}
		return w.Code, resp
	}

	code, resp := get(testCreator)
	if code != http.StatusOK || resp.Known || resp.KnownRugger {
		t.Fatalf("unknown deployer: code=%d resp=%+v", code, resp)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/deployers/"+testCreator+"/rug", nil)
	req = mux.SetURLVars(req, map[string]string{"address": testCreator})
	w := httptest.NewRecorder()
	handler.RecordRug(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("RecordRug: expected 200, got %d", w.Code)
	}

	code, resp = get(testCreator)
	if code != http.StatusOK || !resp.Known || !resp.KnownRugger {
		t.Errorf("after rug: code=%d resp=%+v", code, resp)
	}

	if code, _ := get("bad"); code != http.StatusBadRequest {
		t.Errorf("invalid address: expected 400, got %d", code)
	}

	svc.err = ErrMockDatabase
	if code, _ := get(testCreator); code != http.StatusInternalServerError {
		t.Errorf("service error: expected 500, got %d", code)
	}
}
