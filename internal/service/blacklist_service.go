package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"pumpstrategy/internal/models"
	"pumpstrategy/internal/repository"
	"pumpstrategy/pkg/utils"
)

// Ошибки сервиса черного списка
var (
	ErrBlacklistAddressEmpty   = errors.New("address cannot be empty")
	ErrBlacklistInvalidAddress = errors.New("invalid address")
	ErrBlacklistInvalidKind    = errors.New("kind must be mint or creator")
	ErrBlacklistAddressExists  = errors.New("address already in blacklist")
	ErrBlacklistEntryNotFound  = errors.New("blacklist entry not found")
)

// BlacklistService управляет черным списком токенов и создателей.
//
// В отличие от пользовательских заметок, записи черного списка применяются
// торговым ядром: mint попадает в blacklist FatalRiskEngine, creator - в набор
// известных rug deployers. Оба случая дают фатальный отказ при оценке входа.
type BlacklistService struct {
	blacklistRepo BlacklistRepositoryInterface
	sink          BlacklistSink
	logger        *utils.Logger
}

// NewBlacklistService создает сервис; sink может быть nil (только хранение)
func NewBlacklistService(repo BlacklistRepositoryInterface, sink BlacklistSink, logger *utils.Logger) *BlacklistService {
	return &BlacklistService{
		blacklistRepo: repo,
		sink:          sink,
		logger:        utils.OrGlobal(logger).WithComponent("blacklist_service"),
	}
}

// AddToBlacklist добавляет адрес в черный список и применяет его в ядре.
//
// Возвращает:
// - ErrBlacklistAddressEmpty, ErrBlacklistInvalidAddress, ErrBlacklistInvalidKind при неверном вводе
// - ErrBlacklistAddressExists если адрес уже в списке
func (s *BlacklistService) AddToBlacklist(address string, kind models.BlacklistKind, reason string) (*models.BlacklistEntry, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, ErrBlacklistAddressEmpty
	}
	if err := utils.ValidateAddress(address); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBlacklistInvalidAddress, err)
	}

	switch kind {
	case "":
		kind = models.BlacklistMint
	case models.BlacklistMint, models.BlacklistCreator:
	default:
		return nil, ErrBlacklistInvalidKind
	}

	reason = strings.TrimSpace(reason)
	if err := utils.ValidateReason(reason); err != nil {
		return nil, err
	}

	exists, err := s.blacklistRepo.Exists(address)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrBlacklistAddressExists
	}

	entry := &models.BlacklistEntry{
		Address: address,
		Kind:    kind,
		Reason:  reason,
	}

	if err := s.blacklistRepo.Create(entry); err != nil {
		// unique violation при гонке двух запросов
		if errors.Is(err, repository.ErrBlacklistEntryExists) {
			return nil, ErrBlacklistAddressExists
		}
		return nil, err
	}

	s.apply(entry)
	s.logger.Info("blacklist entry added",
		utils.String("address", address),
		utils.String("kind", string(kind)),
		utils.String("reason", reason))

	return entry, nil
}

// GetBlacklist возвращает весь черный список (новые сверху)
func (s *BlacklistService) GetBlacklist() ([]*models.BlacklistEntry, error) {
	entries, err := s.blacklistRepo.GetAll()
	if err != nil {
		return nil, err
	}

	// Гарантируем возврат пустого массива вместо nil
	if entries == nil {
		entries = []*models.BlacklistEntry{}
	}

	return entries, nil
}

// GetByAddress возвращает запись по адресу
func (s *BlacklistService) GetByAddress(address string) (*models.BlacklistEntry, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, ErrBlacklistAddressEmpty
	}

	entry, err := s.blacklistRepo.GetByAddress(address)
	if err != nil {
		if errors.Is(err, repository.ErrBlacklistEntryNotFound) {
			return nil, ErrBlacklistEntryNotFound
		}
		return nil, err
	}

	return entry, nil
}

// RemoveFromBlacklist удаляет адрес из списка и снимает блокировку в ядре
func (s *BlacklistService) RemoveFromBlacklist(address string) error {
	entry, err := s.GetByAddress(address)
	if err != nil {
		return err
	}

	if err := s.blacklistRepo.Delete(entry.Address); err != nil {
		if errors.Is(err, repository.ErrBlacklistEntryNotFound) {
			return ErrBlacklistEntryNotFound
		}
		return err
	}

	s.revoke(entry)
	s.logger.Info("blacklist entry removed", utils.String("address", entry.Address))

	return nil
}

// IsBlacklisted проверяет, находится ли адрес в черном списке
func (s *BlacklistService) IsBlacklisted(address string) (bool, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return false, ErrBlacklistAddressEmpty
	}

	return s.blacklistRepo.Exists(address)
}

// GetCount возвращает количество записей в черном списке
func (s *BlacklistService) GetCount() (int, error) {
	return s.blacklistRepo.Count()
}

// LoadInto загружает весь сохраненный список в ядро. Вызывается при старте.
func (s *BlacklistService) LoadInto(ctx context.Context) (int, error) {
	entries, err := s.blacklistRepo.GetAll()
	if err != nil {
		return 0, fmt.Errorf("load blacklist: %w", err)
	}

	loaded := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return loaded, err
		}
		s.apply(entry)
		loaded++
	}

	s.logger.Info("blacklist loaded", utils.Int("entries", loaded))
	return loaded, nil
}

func (s *BlacklistService) apply(entry *models.BlacklistEntry) {
	if s.sink == nil {
		return
	}
	switch entry.Kind {
	case models.BlacklistCreator:
		s.sink.AddKnownDeployer(entry.Address)
	default:
		s.sink.AddToBlacklist(entry.Address, entry.Reason)
	}
}

func (s *BlacklistService) revoke(entry *models.BlacklistEntry) {
	if s.sink == nil {
		return
	}
	switch entry.Kind {
	case models.BlacklistCreator:
		s.sink.RemoveKnownDeployer(entry.Address)
	default:
		s.sink.RemoveFromBlacklist(entry.Address)
	}
}
