package chain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	jsoniter "github.com/json-iterator/go"

	"pumpstrategy/internal/bot"
	"pumpstrategy/internal/models"
	"pumpstrategy/pkg/ratelimit"
	"pumpstrategy/pkg/retry"
	"pumpstrategy/pkg/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	// ErrRPC - нода вернула JSON-RPC ошибку
	ErrRPC = errors.New("rpc error")
	// ErrAccountNotFound - аккаунт mint отсутствует в сети
	ErrAccountNotFound = errors.New("account not found")
	// ErrNotMintAccount - аккаунт не является SPL mint
	ErrNotMintAccount = errors.New("account is not a token mint")
)

// ClientConfig - настройки JSON-RPC клиента
type ClientConfig struct {
	Endpoint string

	RateLimit float64 // запросов в секунду
	Burst     float64

	// SampleLimit - сколько performance samples запрашивать
	SampleLimit int
	// Commitment для getAccountInfo
	Commitment string

	HTTP  HTTPClientConfig
	Retry retry.Config
}

// DefaultClientConfig возвращает настройки по умолчанию (публичный mainnet endpoint)
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Endpoint:    "https://api.mainnet-beta.solana.com",
		RateLimit:   10,
		Burst:       20,
		SampleLimit: 5,
		Commitment:  "confirmed",
		HTTP:        DefaultHTTPClientConfig(),
		Retry:       retry.RPCConfig(),
	}
}

// Client - JSON-RPC клиент. Реализует bot.ChainSampler и bot.PrivilegeReader.
type Client struct {
	config  ClientConfig
	http    *http.Client
	limiter *ratelimit.RateLimiter
	nextID  atomic.Uint64
	logger  *utils.Logger
}

var (
	_ bot.ChainSampler    = (*Client)(nil)
	_ bot.PrivilegeReader = (*Client)(nil)
)

// NewClient создаёт клиент с собственным пулом соединений
func NewClient(config ClientConfig, logger *utils.Logger) *Client {
	return NewClientWithHTTP(config, NewHTTPClient(config.HTTP), logger)
}

// NewClientWithHTTP создаёт клиент поверх готового http.Client
func NewClientWithHTTP(config ClientConfig, httpClient *http.Client, logger *utils.Logger) *Client {
	defaults := DefaultClientConfig()
	if config.Endpoint == "" {
		config.Endpoint = defaults.Endpoint
	}
	if config.SampleLimit <= 0 {
		config.SampleLimit = defaults.SampleLimit
	}
	if config.Commitment == "" {
		config.Commitment = defaults.Commitment
	}

	return &Client{
		config:  config,
		http:    httpClient,
		limiter: ratelimit.NewRateLimiter(config.RateLimit, config.Burst),
		logger:  utils.OrGlobal(logger).WithComponent("chain_rpc"),
	}
}

// Close закрывает простаивающие соединения
func (c *Client) Close() {
	closeIdle(c.http)
}

// ============================================================
// JSON-RPC транспорт
// ============================================================

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result jsoniter.RawMessage `json:"result"`
	Error  *rpcError           `json:"error"`
}

// httpStatusError - неуспешный HTTP статус; 429 и 5xx повторяются
type httpStatusError struct {
	status int
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("rpc http status %d", e.status)
}

func (e *httpStatusError) Retryable() bool {
	return e.status == http.StatusTooManyRequests || e.status >= 500
}

// call выполняет метод с учётом лимита и повторов и декодирует result в out
func (c *Client) call(ctx context.Context, method string, params []interface{}, out interface{}) error {
	cfg := c.config.Retry
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		c.logger.Debug("retrying rpc call",
			utils.String("method", method),
			utils.Int("attempt", attempt),
			utils.Dur("delay", delay),
			utils.Err(err),
		)
	}

	start := time.Now()
	err := retry.Do(ctx, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		return c.callOnce(ctx, method, params, out)
	}, cfg)

	observeRPC(method, time.Since(start), err)
	return err
}

func (c *Client) callOnce(ctx context.Context, method string, params []interface{}, out interface{}) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return retry.Permanent(fmt.Errorf("encode %s: %w", method, err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return retry.Permanent(fmt.Errorf("build %s request: %w", method, err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		statusErr := &httpStatusError{status: resp.StatusCode}
		if statusErr.Retryable() {
			return fmt.Errorf("%s: %w", method, statusErr)
		}
		return retry.Permanent(fmt.Errorf("%s: %w", method, statusErr))
	}

	var envelope rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return retry.Permanent(fmt.Errorf("decode %s response: %w", method, err))
	}
	if envelope.Error != nil {
		return retry.Permanent(fmt.Errorf("%w: %s: %d %s", ErrRPC, method, envelope.Error.Code, envelope.Error.Message))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return retry.Permanent(fmt.Errorf("decode %s result: %w", method, err))
	}
	return nil
}

// ============================================================
// bot.ChainSampler
// ============================================================

// RecentPerformanceSamples - getRecentPerformanceSamples(SampleLimit)
func (c *Client) RecentPerformanceSamples(ctx context.Context) ([]models.PerformanceSample, error) {
	var samples []models.PerformanceSample
	if err := c.call(ctx, "getRecentPerformanceSamples", []interface{}{c.config.SampleLimit}, &samples); err != nil {
		return nil, err
	}
	return samples, nil
}

// RecentPrioritizationFees - getRecentPrioritizationFees без фильтра по аккаунтам,
// возвращает значения prioritizationFee в порядке слотов
func (c *Client) RecentPrioritizationFees(ctx context.Context) ([]uint64, error) {
	var entries []struct {
		Slot              uint64 `json:"slot"`
		PrioritizationFee uint64 `json:"prioritizationFee"`
	}
	if err := c.call(ctx, "getRecentPrioritizationFees", []interface{}{[]string{}}, &entries); err != nil {
		return nil, err
	}

	fees := make([]uint64, len(entries))
	for i, e := range entries {
		fees[i] = e.PrioritizationFee
	}
	return fees, nil
}

// ============================================================
// bot.PrivilegeReader
// ============================================================

type parsedMintAccount struct {
	Value *struct {
		Owner string `json:"owner"`
		Data  struct {
			Program string `json:"program"`
			Parsed  struct {
				Type string `json:"type"`
				Info struct {
					MintAuthority   *string `json:"mintAuthority"`
					FreezeAuthority *string `json:"freezeAuthority"`
				} `json:"info"`
			} `json:"parsed"`
		} `json:"data"`
	} `json:"value"`
}

// ReadPrivileges читает mint/freeze authority через getAccountInfo с encoding
// jsonParsed. null authority - Revoked, адрес - Active. При ошибке возвращает
// UnknownPrivileges вместе с ошибкой.
func (c *Client) ReadPrivileges(ctx context.Context, mint string) (models.CreatorPrivileges, error) {
	if err := utils.ValidateAddress(mint); err != nil {
		return models.UnknownPrivileges(), err
	}

	var account parsedMintAccount
	params := []interface{}{
		mint,
		map[string]string{"encoding": "jsonParsed", "commitment": c.config.Commitment},
	}
	if err := c.call(ctx, "getAccountInfo", params, &account); err != nil {
		return models.UnknownPrivileges(), err
	}

	if account.Value == nil {
		return models.UnknownPrivileges(), fmt.Errorf("%w: %s", ErrAccountNotFound, mint)
	}
	parsed := account.Value.Data
	if !strings.HasPrefix(parsed.Program, "spl-token") || parsed.Parsed.Type != "mint" {
		return models.UnknownPrivileges(), fmt.Errorf("%w: %s (%s/%s)", ErrNotMintAccount, mint, parsed.Program, parsed.Parsed.Type)
	}

	info := parsed.Parsed.Info
	return models.CreatorPrivileges{
		MintAuthority:   authorityStatus(info.MintAuthority),
		FreezeAuthority: authorityStatus(info.FreezeAuthority),
	}, nil
}

func authorityStatus(authority *string) models.PrivilegeStatus {
	if authority == nil || *authority == "" {
		return models.PrivilegeRevoked
	}
	return models.PrivilegeActive
}
