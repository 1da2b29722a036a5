package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"pumpstrategy/internal/models"
	"pumpstrategy/internal/repository"
	"pumpstrategy/pkg/utils"
)

// DefaultDeployerCacheTTL - время жизни записи кэша создателей
const DefaultDeployerCacheTTL = 5 * time.Minute

// DeployerService - кэш истории создателей поверх репозитория.
//
// Горячий путь оценки входа спрашивает про каждого создателя, поэтому ответы
// (включая "не найден") кэшируются на ttl. Ошибки базы не кэшируются.
type DeployerService struct {
	repo DeployerRepositoryInterface
	ttl  time.Duration
	now  func() time.Time

	cache map[string]cachedDeployer
	mu    sync.RWMutex

	logger *utils.Logger
}

type cachedDeployer struct {
	record    *models.DeployerRecord // nil - создатель неизвестен
	fetchedAt time.Time
}

// NewDeployerService создает сервис с TTL по умолчанию
func NewDeployerService(repo DeployerRepositoryInterface, logger *utils.Logger) *DeployerService {
	return NewDeployerServiceWithClock(repo, DefaultDeployerCacheTTL, time.Now, logger)
}

// NewDeployerServiceWithClock создает сервис с заданными TTL и часами
func NewDeployerServiceWithClock(repo DeployerRepositoryInterface, ttl time.Duration, now func() time.Time, logger *utils.Logger) *DeployerService {
	if ttl <= 0 {
		ttl = DefaultDeployerCacheTTL
	}
	return &DeployerService{
		repo:   repo,
		ttl:    ttl,
		now:    now,
		cache:  make(map[string]cachedDeployer),
		logger: utils.OrGlobal(logger).WithComponent("deployer_service"),
	}
}

// IsKnownDeployer - у создателя есть rug в истории
func (s *DeployerService) IsKnownDeployer(ctx context.Context, address string) (bool, error) {
	rec, err := s.GetWallet(ctx, address)
	if err != nil {
		return false, err
	}
	return rec.IsKnownRugger(), nil
}

// GetWallet возвращает историю создателя; nil без ошибки - создатель неизвестен
func (s *DeployerService) GetWallet(ctx context.Context, address string) (*models.DeployerRecord, error) {
	if rec, ok := s.cached(address); ok {
		return rec, nil
	}

	rec, err := s.repo.GetWallet(ctx, address)
	if err != nil {
		if !errors.Is(err, repository.ErrDeployerNotFound) {
			return nil, err
		}
		rec = nil
	}

	s.store(address, rec)
	return rec, nil
}

// Warm загружает историю набора создателей одним запросом
func (s *DeployerService) Warm(ctx context.Context, addresses []string) error {
	records, err := s.repo.GetMany(ctx, addresses)
	if err != nil {
		return err
	}

	found := make(map[string]*models.DeployerRecord, len(records))
	for _, rec := range records {
		found[rec.Address] = rec
	}
	for _, addr := range addresses {
		s.store(addr, found[addr])
	}
	return nil
}

// RecordDeploy учитывает новый токен создателя
func (s *DeployerService) RecordDeploy(ctx context.Context, address string) error {
	if err := s.repo.RecordDeploy(ctx, address); err != nil {
		return err
	}
	s.Invalidate(address)
	return nil
}

// RecordRug отмечает rug создателя
func (s *DeployerService) RecordRug(ctx context.Context, address string) error {
	if err := s.repo.RecordRug(ctx, address); err != nil {
		return err
	}
	s.Invalidate(address)
	s.logger.Warn("deployer rug recorded", utils.Creator(address))
	return nil
}

// Invalidate удаляет запись из кэша
func (s *DeployerService) Invalidate(address string) {
	s.mu.Lock()
	delete(s.cache, address)
	s.mu.Unlock()
}

// CacheSize возвращает количество записей в кэше
func (s *DeployerService) CacheSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}

// PruneExpired удаляет устаревшие записи
func (s *DeployerService) PruneExpired() int {
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for addr, c := range s.cache {
		if c.fetchedAt.Before(cutoff) {
			delete(s.cache, addr)
			removed++
		}
	}
	return removed
}

// RunPruner периодически чистит кэш до отмены ctx
func (s *DeployerService) RunPruner(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = s.ttl
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n := s.PruneExpired(); n > 0 {
				s.logger.Debug("deployer cache pruned", utils.Int("removed", n), utils.Int("size", s.CacheSize()))
			}
		}
	}
}

func (s *DeployerService) cached(address string) (*models.DeployerRecord, bool) {
	s.mu.RLock()
	c, ok := s.cache[address]
	s.mu.RUnlock()

	if !ok || s.now().Sub(c.fetchedAt) >= s.ttl {
		return nil, false
	}
	return c.record, true
}

func (s *DeployerService) store(address string, rec *models.DeployerRecord) {
	s.mu.Lock()
	s.cache[address] = cachedDeployer{record: rec, fetchedAt: s.now()}
	s.mu.Unlock()
}
