package chain

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pumpstrategy/internal/bot"
	"pumpstrategy/internal/models"
	"pumpstrategy/pkg/retry"
	"pumpstrategy/pkg/utils"
)

const testMint = "7GCihgDB8fe6KNjn2MYtkzZcRjQy3t9GHdC8uHYmW2hr"

// rpcServer отвечает заранее заданным result/error на каждый метод
type rpcServer struct {
	results  map[string]string
	failures int32 // сколько первых запросов отвечают 503
	calls    int32

	mu      sync.Mutex
	lastReq rpcRequest
}

func (s *rpcServer) last() rpcRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastReq
}

func (s *rpcServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n := atomic.AddInt32(&s.calls, 1)
	if n <= atomic.LoadInt32(&s.failures) {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	s.lastReq = req
	s.mu.Unlock()

	result, ok := s.results[req.Method]
	w.Header().Set("Content-Type", "application/json")
	if !ok {
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"Method not found"}}`))
		return
	}
	_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":` + result + `}`))
}

func newTestClient(t *testing.T, srv *rpcServer) *Client {
	t.Helper()
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	cfg := DefaultClientConfig()
	cfg.Endpoint = ts.URL
	cfg.RateLimit = 1000
	cfg.Burst = 1000
	cfg.Retry = retry.Config{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
		RetryIf:      retry.RetryIfNotContext,
	}
	return NewClientWithHTTP(cfg, ts.Client(), utils.NewNopLogger())
}

func TestClient_RecentPerformanceSamples(t *testing.T) {
	srv := &rpcServer{results: map[string]string{
		"getRecentPerformanceSamples": `[
			{"slot":250000100,"numSlots":150,"numTransactions":420000,"samplePeriodSecs":60},
			{"slot":250000000,"numSlots":0,"numTransactions":0,"samplePeriodSecs":60}
		]`,
	}}
	client := newTestClient(t, srv)

	samples, err := client.RecentPerformanceSamples(context.Background())
	if err != nil {
		t.Fatalf("RecentPerformanceSamples() error = %v", err)
	}
	if len(samples) != 2 {
		t.Fatalf("got %d samples, want 2", len(samples))
	}
	want := models.PerformanceSample{Slot: 250000100, NumSlots: 150, NumTransactions: 420000, SamplePeriodSecs: 60}
	if samples[0] != want {
		t.Errorf("samples[0] = %+v, want %+v", samples[0], want)
	}
	if req := srv.last(); req.JSONRPC != "2.0" || len(req.Params) != 1 {
		t.Errorf("request = %+v", req)
	}
}

func TestClient_RecentPrioritizationFees(t *testing.T) {
	srv := &rpcServer{results: map[string]string{
		"getRecentPrioritizationFees": `[
			{"slot":1,"prioritizationFee":0},
			{"slot":2,"prioritizationFee":5000},
			{"slot":3,"prioritizationFee":12000}
		]`,
	}}
	client := newTestClient(t, srv)

	fees, err := client.RecentPrioritizationFees(context.Background())
	if err != nil {
		t.Fatalf("RecentPrioritizationFees() error = %v", err)
	}
	want := []uint64{0, 5000, 12000}
	if len(fees) != len(want) {
		t.Fatalf("fees = %v, want %v", fees, want)
	}
	for i := range want {
		if fees[i] != want[i] {
			t.Errorf("fees[%d] = %d, want %d", i, fees[i], want[i])
		}
	}
}

func TestClient_ReadPrivileges(t *testing.T) {
	account := func(mintAuth, freezeAuth string) string {
		return `{"context":{"slot":1},"value":{"owner":"TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA","data":{"program":"spl-token","parsed":{"type":"mint","info":{"decimals":6,"mintAuthority":` +
			mintAuth + `,"freezeAuthority":` + freezeAuth + `,"supply":"1000000000000000"}}}}}`
	}

	tests := []struct {
		name    string
		result  string
		want    models.CreatorPrivileges
		wantErr error
	}{
		{
			name:   "both revoked",
			result: account("null", "null"),
			want:   models.CreatorPrivileges{MintAuthority: models.PrivilegeRevoked, FreezeAuthority: models.PrivilegeRevoked},
		},
		{
			name:   "mint active",
			result: account(`"9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"`, "null"),
			want:   models.CreatorPrivileges{MintAuthority: models.PrivilegeActive, FreezeAuthority: models.PrivilegeRevoked},
		},
		{
			name:    "missing account",
			result:  `{"context":{"slot":1},"value":null}`,
			want:    models.UnknownPrivileges(),
			wantErr: ErrAccountNotFound,
		},
		{
			name:    "not a mint",
			result:  `{"context":{"slot":1},"value":{"owner":"x","data":{"program":"spl-token","parsed":{"type":"account","info":{}}}}}`,
			want:    models.UnknownPrivileges(),
			wantErr: ErrNotMintAccount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, &rpcServer{results: map[string]string{"getAccountInfo": tt.result}})

			got, err := client.ReadPrivileges(context.Background(), testMint)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ReadPrivileges() error = %v, want %v", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("ReadPrivileges() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ReadPrivileges() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestClient_ReadPrivilegesInvalidMint(t *testing.T) {
	srv := &rpcServer{results: map[string]string{}}
	client := newTestClient(t, srv)

	got, err := client.ReadPrivileges(context.Background(), "bad")
	if !errors.Is(err, utils.ErrInvalidAddress) {
		t.Errorf("expected ErrInvalidAddress, got %v", err)
	}
	if got != models.UnknownPrivileges() {
		t.Errorf("privileges = %+v, want unknown", got)
	}
	if atomic.LoadInt32(&srv.calls) != 0 {
		t.Error("invalid mint must not reach the node")
	}
}

func TestClient_RetriesServerErrors(t *testing.T) {
	srv := &rpcServer{
		results:  map[string]string{"getRecentPrioritizationFees": `[{"slot":1,"prioritizationFee":7}]`},
		failures: 2,
	}
	client := newTestClient(t, srv)

	fees, err := client.RecentPrioritizationFees(context.Background())
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if len(fees) != 1 || fees[0] != 7 {
		t.Errorf("fees = %v", fees)
	}
	if got := atomic.LoadInt32(&srv.calls); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestClient_RPCErrorNotRetried(t *testing.T) {
	srv := &rpcServer{results: map[string]string{}}
	client := newTestClient(t, srv)

	_, err := client.RecentPerformanceSamples(context.Background())
	if !errors.Is(err, ErrRPC) {
		t.Errorf("expected ErrRPC, got %v", err)
	}
	if got := atomic.LoadInt32(&srv.calls); got != 1 {
		t.Errorf("rpc errors must not be retried, calls = %d", got)
	}
}

func TestClient_FeedsChainHealth(t *testing.T) {
	srv := &rpcServer{results: map[string]string{
		"getRecentPerformanceSamples": `[{"slot":1,"numSlots":100,"numTransactions":1,"samplePeriodSecs":60}]`,
		"getRecentPrioritizationFees": `[{"slot":1,"prioritizationFee":1000},{"slot":2,"prioritizationFee":3000}]`,
	}}
	client := newTestClient(t, srv)

	health := bot.NewChainHealth(bot.DefaultChainHealthConfig(), utils.NewNopLogger())
	health.Sample(context.Background(), client)

	state := health.State()
	if state.AvgSlotTimeMs != 600 {
		t.Errorf("AvgSlotTimeMs = %d, want 600", state.AvgSlotTimeMs)
	}
	if state.PriorityFeeLamports != 2000 {
		t.Errorf("PriorityFeeLamports = %d, want 2000", state.PriorityFeeLamports)
	}
}
