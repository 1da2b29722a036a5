package handlers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pumpstrategy/internal/models"
	"pumpstrategy/internal/service"
	"pumpstrategy/pkg/utils"
)

// ErrMockDatabase - имитация сбоя базы
var ErrMockDatabase = errors.New("mock database error")

const (
	testMint    = "So11111111111111111111111111111111111111112"
	testCreator = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
)

// ============ Mock Blacklist Service ============

// MockBlacklistService мок для BlacklistServiceInterface
type MockBlacklistService struct {
	entries   map[string]*models.BlacklistEntry
	addErr    error
	getErr    error
	removeErr error
	nextID    int
	mu        sync.RWMutex
}

// NewMockBlacklistService создает новый мок сервиса черного списка
func NewMockBlacklistService() *MockBlacklistService {
	return &MockBlacklistService{
		entries: make(map[string]*models.BlacklistEntry),
		nextID:  1,
	}
}

func (m *MockBlacklistService) AddToBlacklist(address string, kind models.BlacklistKind, reason string) (*models.BlacklistEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.addErr != nil {
		return nil, m.addErr
	}
	if address == "" {
		return nil, service.ErrBlacklistAddressEmpty
	}
	if err := utils.ValidateAddress(address); err != nil {
		return nil, fmt.Errorf("%w: %v", service.ErrBlacklistInvalidAddress, err)
	}
	if kind == "" {
		kind = models.BlacklistMint
	}
	if kind != models.BlacklistMint && kind != models.BlacklistCreator {
		return nil, service.ErrBlacklistInvalidKind
	}
	if _, exists := m.entries[address]; exists {
		return nil, service.ErrBlacklistAddressExists
	}

	entry := &models.BlacklistEntry{
		ID:        m.nextID,
		Address:   address,
		Kind:      kind,
		Reason:    reason,
		CreatedAt: time.Now(),
	}
	m.nextID++
	m.entries[address] = entry
	return entry, nil
}

func (m *MockBlacklistService) GetBlacklist() ([]*models.BlacklistEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.getErr != nil {
		return nil, m.getErr
	}

	result := make([]*models.BlacklistEntry, 0, len(m.entries))
	for _, e := range m.entries {
		result = append(result, e)
	}
	return result, nil
}

func (m *MockBlacklistService) GetByAddress(address string) (*models.BlacklistEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.getErr != nil {
		return nil, m.getErr
	}
	if entry, exists := m.entries[address]; exists {
		return entry, nil
	}
	return nil, service.ErrBlacklistEntryNotFound
}

func (m *MockBlacklistService) RemoveFromBlacklist(address string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.removeErr != nil {
		return m.removeErr
	}
	if _, exists := m.entries[address]; !exists {
		return service.ErrBlacklistEntryNotFound
	}
	delete(m.entries, address)
	return nil
}

func (m *MockBlacklistService) IsBlacklisted(address string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.getErr != nil {
		return false, m.getErr
	}
	_, exists := m.entries[address]
	return exists, nil
}

func (m *MockBlacklistService) GetCount() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.getErr != nil {
		return 0, m.getErr
	}
	return len(m.entries), nil
}

// SetError устанавливает ошибку для указанной операции
func (m *MockBlacklistService) SetError(operation string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch operation {
	case "add":
		m.addErr = err
	case "get":
		m.getErr = err
	case "remove":
		m.removeErr = err
	}
}

// AddEntry добавляет запись напрямую (для настройки тестов)
func (m *MockBlacklistService) AddEntry(address string, kind models.BlacklistKind, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[address] = &models.BlacklistEntry{
		ID:        m.nextID,
		Address:   address,
		Kind:      kind,
		Reason:    reason,
		CreatedAt: time.Now(),
	}
	m.nextID++
}

// ============ Mock Deployer Service ============

// MockDeployerService мок для DeployerServiceInterface
type MockDeployerService struct {
	records map[string]*models.DeployerRecord
	err     error
	mu      sync.Mutex
}

func NewMockDeployerService() *MockDeployerService {
	return &MockDeployerService{records: make(map[string]*models.DeployerRecord)}
}

func (m *MockDeployerService) GetWallet(ctx context.Context, address string) (*models.DeployerRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.records[address], nil
}

func (m *MockDeployerService) RecordRug(ctx context.Context, address string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	rec, ok := m.records[address]
	if !ok {
		rec = &models.DeployerRecord{Address: address}
		m.records[address] = rec
	}
	rec.RuggedCount++
	rec.LastSeenAt = time.Now()
	return nil
}

// ============ Mock Engine ============

// MockEngine мок для EngineController
type MockEngine struct {
	mu          sync.Mutex
	portfolio   models.PortfolioState
	chain       models.ChainState
	quality     models.ExecutionQuality
	positions   []*models.Position
	tracked     int
	pauseReason string
	pauseFor    time.Duration
	resumed     bool
}

func NewMockEngine() *MockEngine {
	return &MockEngine{
		portfolio: models.PortfolioState{CanOpenNew: true},
		chain:     models.ChainState{CongestionLevel: models.CongestionNormal},
	}
}

func (m *MockEngine) IsEnabled() bool { return true }

func (m *MockEngine) PortfolioState() models.PortfolioState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.portfolio
}

func (m *MockEngine) ChainState() models.ChainState { return m.chain }

func (m *MockEngine) ExecutionQuality() models.ExecutionQuality { return m.quality }

func (m *MockEngine) Positions() []*models.Position { return m.positions }

func (m *MockEngine) ShouldPauseTradingWithReason() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.portfolio.Paused {
		return "Portfolio blocked: " + m.portfolio.PauseReason, true
	}
	return "", false
}

func (m *MockEngine) TrackedTokens() int { return m.tracked }

func (m *MockEngine) Pause(reason string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pauseReason = reason
	m.pauseFor = d
	m.portfolio.Paused = true
	m.portfolio.PauseReason = reason
	m.portfolio.CanOpenNew = false
}

func (m *MockEngine) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resumed = true
	m.portfolio.Paused = false
	m.portfolio.PauseReason = ""
	m.portfolio.CanOpenNew = true
}

var (
	_ service.BlacklistServiceInterface = (*MockBlacklistService)(nil)
	_ service.DeployerServiceInterface  = (*MockDeployerService)(nil)
	_ EngineController                  = (*MockEngine)(nil)
)
