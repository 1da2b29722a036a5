package utils

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const logTestMint = "7GCihgDB8fe6KNjn2MYtkzZcRjQy3t9GHdC8uHYmW2hr"

// bufferLogger пишет JSON-записи в буфер
func bufferLogger(level zapcore.Level) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zapcore.EncoderConfig{MessageKey: "msg", LevelKey: "level", EncodeLevel: zapcore.LowercaseLevelEncoder}),
		zapcore.AddSync(&buf),
		level,
	)
	zl := zap.New(core)
	return &Logger{Logger: zl, sugar: zl.Sugar()}, &buf
}

func decodeEntries(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	sc := bufio.NewScanner(bytes.NewReader(buf.Bytes()))
	for sc.Scan() {
		var m map[string]interface{}
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("entry %q is not JSON: %v", sc.Text(), err)
		}
		out = append(out, m)
	}
	return out
}

// ============================================================
// Доменные поля
// ============================================================

func TestDomainFields(t *testing.T) {
	tests := []struct {
		name  string
		field zap.Field
		key   string
		want  interface{}
	}{
		{"mint", Mint(logTestMint), "mint", logTestMint},
		{"creator", Creator("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"), "creator", "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM"},
		{"strategy", Strategy("SnipeAndScalp"), "strategy", "SnipeAndScalp"},
		{"action", Action("EXIT 50%"), "action", "EXIT 50%"},
		{"source", Source("EXIT_MANAGER"), "source", "EXIT_MANAGER"},
		{"size", SizeSOL(0.05), "size_sol", 0.05},
		{"pnl", PnL(-15), "pnl", -15.0},
		{"price", Price(3e-8), "price", 3e-8},
		{"slippage", Slippage(1.5), "slippage_pct", 1.5},
		{"latency", Latency(420), "latency_ms", 420.0},
		{"regime", Regime("OrganicPump"), "regime", "OrganicPump"},
		{"congestion", Congestion("CRITICAL"), "congestion", "CRITICAL"},
		{"component", Component("aggregator"), "component", "aggregator"},
		{"request", RequestID("req-1"), "request_id", "req-1"},
		{"decision", DecisionID("dec-42"), "decision_id", "dec-42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := bufferLogger(zapcore.InfoLevel)
			logger.Info("exit decision", tt.field)

			entries := decodeEntries(t, buf)
			if len(entries) != 1 {
				t.Fatalf("got %d entries, want 1", len(entries))
			}
			if got := entries[0][tt.key]; got != tt.want {
				t.Errorf("%s = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestLogger_ChildCarriesContext(t *testing.T) {
	logger, buf := bufferLogger(zapcore.DebugLevel)

	child := logger.WithComponent("exit_manager").WithMint(logTestMint).WithStrategy("SnipeAndScalp")
	child.Info("exit style selected", String("style", "QuickScalp"))
	child.Warn("stop loss", PnL(-16))
	logger.Info("engine started")

	entries := decodeEntries(t, buf)
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	for _, e := range entries[:2] {
		if e["component"] != "exit_manager" || e["mint"] != logTestMint || e["strategy"] != "SnipeAndScalp" {
			t.Errorf("child entry lost context: %v", e)
		}
	}
	if _, ok := entries[2]["mint"]; ok {
		t.Error("parent logger should not inherit child fields")
	}
	if entries[1]["level"] != "warn" || entries[1]["pnl"] != -16.0 {
		t.Errorf("stop loss entry = %v", entries[1])
	}
}

func TestInfow_ExpandsFields(t *testing.T) {
	logger, buf := bufferLogger(zapcore.InfoLevel)
	logger.Infow("position closed", Mint(logTestMint), PnL(12.5), DecisionID("dec-7"))

	entries := decodeEntries(t, buf)
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e["mint"] != logTestMint || e["pnl"] != 12.5 || e["decision_id"] != "dec-7" {
		t.Errorf("entry = %v", e)
	}
}

// ============================================================
// Уровни
// ============================================================

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"Info", zapcore.InfoLevel},
		{"WARNING", zapcore.WarnLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"fatal", zapcore.FatalLevel},
		{"verbose", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLevel(tt.input); got != tt.want {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestInitLogger_LevelFilter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strategy.log")
	logger := InitLogger(LogConfig{Level: "warn", Format: "json", Output: path})

	logger.Debug("price update", Mint(logTestMint), Price(3e-8))
	logger.Info("entry evaluated", Mint(logTestMint))
	logger.Warn("chain congestion", Congestion("HIGH"), Latency(1800))
	_ = logger.Sync()

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	entries := decodeEntries(t, bytes.NewBuffer(content))
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want only the warning", len(entries))
	}
	e := entries[0]
	if e["msg"] != "chain congestion" || e["congestion"] != "HIGH" {
		t.Errorf("entry = %v", e)
	}
	if _, ok := e["ts"]; !ok {
		t.Error("entry should carry ts")
	}
}

func TestInitLogger_UnwritableOutput(t *testing.T) {
	logger := InitLogger(LogConfig{Level: "info", Format: "text", Output: filepath.Join(t.TempDir(), "missing", "x.log")})
	if logger == nil || logger.sugar == nil {
		t.Fatal("logger should fall back to stderr")
	}
}

// ============================================================
// Глобальный логгер
// ============================================================

func TestOrGlobal(t *testing.T) {
	prev := GetGlobalLogger()
	defer SetGlobalLogger(prev)

	global, buf := bufferLogger(zapcore.InfoLevel)
	SetGlobalLogger(global)

	own := NewNopLogger()
	if OrGlobal(own) != own {
		t.Error("OrGlobal should keep an explicit logger")
	}
	if OrGlobal(nil) != global || L() != global {
		t.Error("nil logger should resolve to the global one")
	}

	OrGlobal(nil).Info("regime classified", Regime("WashTrade"))
	Infof("tracked mints: %d", 12)
	own.Info("dropped")

	entries := decodeEntries(t, buf)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0]["regime"] != "WashTrade" || entries[1]["msg"] != "tracked mints: 12" {
		t.Errorf("entries = %v", entries)
	}
}

func BenchmarkLogger_ExitDecision(b *testing.B) {
	logger := InitLogger(LogConfig{Level: "info", Format: "json", Output: os.DevNull})
	child := logger.WithMint(logTestMint)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		child.Info("exit decision", DecisionID("dec"), Action("EXIT 50%"), PnL(5))
	}
}
