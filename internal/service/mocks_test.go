package service

import (
	"context"
	"sync"
	"time"

	"pumpstrategy/internal/models"
	"pumpstrategy/internal/repository"
)

// ============ Mock BlacklistRepository ============

type MockBlacklistRepository struct {
	entries   map[string]*models.BlacklistEntry
	createErr error
	getErr    error
	deleteErr error
	existsErr error
	nextID    int
}

func NewMockBlacklistRepository() *MockBlacklistRepository {
	return &MockBlacklistRepository{
		entries: make(map[string]*models.BlacklistEntry),
		nextID:  1,
	}
}

func (m *MockBlacklistRepository) Create(entry *models.BlacklistEntry) error {
	if m.createErr != nil {
		return m.createErr
	}
	if _, exists := m.entries[entry.Address]; exists {
		return repository.ErrBlacklistEntryExists
	}
	entry.ID = m.nextID
	m.nextID++
	entry.CreatedAt = time.Now()
	m.entries[entry.Address] = entry
	return nil
}

func (m *MockBlacklistRepository) GetAll() ([]*models.BlacklistEntry, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if len(m.entries) == 0 {
		return nil, nil
	}
	result := make([]*models.BlacklistEntry, 0, len(m.entries))
	for _, e := range m.entries {
		result = append(result, e)
	}
	return result, nil
}

func (m *MockBlacklistRepository) GetByAddress(address string) (*models.BlacklistEntry, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if entry, exists := m.entries[address]; exists {
		return entry, nil
	}
	return nil, repository.ErrBlacklistEntryNotFound
}

func (m *MockBlacklistRepository) Delete(address string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, exists := m.entries[address]; !exists {
		return repository.ErrBlacklistEntryNotFound
	}
	delete(m.entries, address)
	return nil
}

func (m *MockBlacklistRepository) Exists(address string) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	_, exists := m.entries[address]
	return exists, nil
}

func (m *MockBlacklistRepository) Count() (int, error) {
	return len(m.entries), nil
}

// ============ Mock BlacklistSink ============

type MockBlacklistSink struct {
	mints     map[string]string
	deployers map[string]bool
}

func NewMockBlacklistSink() *MockBlacklistSink {
	return &MockBlacklistSink{
		mints:     make(map[string]string),
		deployers: make(map[string]bool),
	}
}

func (m *MockBlacklistSink) AddToBlacklist(mint, reason string) { m.mints[mint] = reason }

func (m *MockBlacklistSink) RemoveFromBlacklist(mint string) bool {
	_, ok := m.mints[mint]
	delete(m.mints, mint)
	return ok
}

func (m *MockBlacklistSink) AddKnownDeployer(address string) { m.deployers[address] = true }

func (m *MockBlacklistSink) RemoveKnownDeployer(address string) { delete(m.deployers, address) }

// ============ Mock DeployerRepository ============

type MockDeployerRepository struct {
	mu      sync.Mutex
	records map[string]*models.DeployerRecord
	getErr  error
	calls   int
}

func NewMockDeployerRepository() *MockDeployerRepository {
	return &MockDeployerRepository{records: make(map[string]*models.DeployerRecord)}
}

func (m *MockDeployerRepository) GetWallet(ctx context.Context, address string) (*models.DeployerRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.getErr != nil {
		return nil, m.getErr
	}
	rec, ok := m.records[address]
	if !ok {
		return nil, repository.ErrDeployerNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *MockDeployerRepository) GetMany(ctx context.Context, addresses []string) ([]*models.DeployerRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	var out []*models.DeployerRecord
	for _, a := range addresses {
		if rec, ok := m.records[a]; ok {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MockDeployerRepository) RecordDeploy(ctx context.Context, address string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[address]
	if !ok {
		rec = &models.DeployerRecord{Address: address}
		m.records[address] = rec
	}
	rec.DeployedCount++
	return nil
}

func (m *MockDeployerRepository) RecordRug(ctx context.Context, address string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[address]
	if !ok {
		rec = &models.DeployerRecord{Address: address, DeployedCount: 1}
		m.records[address] = rec
	}
	rec.RuggedCount++
	return nil
}

func (m *MockDeployerRepository) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
