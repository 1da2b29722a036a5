package service

import (
	"context"

	"pumpstrategy/internal/bot"
	"pumpstrategy/internal/models"
	"pumpstrategy/internal/repository"
)

// BlacklistRepositoryInterface определяет интерфейс репозитория черного списка
type BlacklistRepositoryInterface interface {
	Create(entry *models.BlacklistEntry) error
	GetAll() ([]*models.BlacklistEntry, error)
	GetByAddress(address string) (*models.BlacklistEntry, error)
	Delete(address string) error
	Exists(address string) (bool, error)
	Count() (int, error)
}

// DeployerRepositoryInterface определяет интерфейс репозитория создателей
type DeployerRepositoryInterface interface {
	GetWallet(ctx context.Context, address string) (*models.DeployerRecord, error)
	GetMany(ctx context.Context, addresses []string) ([]*models.DeployerRecord, error)
	RecordDeploy(ctx context.Context, address string) error
	RecordRug(ctx context.Context, address string) error
}

// BlacklistSink - потребитель черного списка в торговом ядре
type BlacklistSink interface {
	AddToBlacklist(mint, reason string)
	RemoveFromBlacklist(mint string) bool
	AddKnownDeployer(address string)
	RemoveKnownDeployer(address string)
}

// Проверяем, что реальные репозитории реализуют интерфейсы
var _ BlacklistRepositoryInterface = (*repository.BlacklistRepository)(nil)
var _ DeployerRepositoryInterface = (*repository.DeployerRepository)(nil)
var _ BlacklistSink = (*bot.FatalRiskEngine)(nil)

// ============ Интерфейсы сервисов для Dependency Injection ============

// BlacklistServiceInterface определяет интерфейс сервиса черного списка
type BlacklistServiceInterface interface {
	AddToBlacklist(address string, kind models.BlacklistKind, reason string) (*models.BlacklistEntry, error)
	GetBlacklist() ([]*models.BlacklistEntry, error)
	GetByAddress(address string) (*models.BlacklistEntry, error)
	RemoveFromBlacklist(address string) error
	IsBlacklisted(address string) (bool, error)
	GetCount() (int, error)
}

// DeployerServiceInterface определяет интерфейс сервиса создателей
type DeployerServiceInterface interface {
	GetWallet(ctx context.Context, address string) (*models.DeployerRecord, error)
	RecordRug(ctx context.Context, address string) error
}

// Проверяем, что реальные сервисы реализуют интерфейсы
var _ BlacklistServiceInterface = (*BlacklistService)(nil)
var _ DeployerServiceInterface = (*DeployerService)(nil)
var _ bot.KnownDeployerCache = (*DeployerService)(nil)
