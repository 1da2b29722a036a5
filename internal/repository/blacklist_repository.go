package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/lib/pq"

	"pumpstrategy/internal/models"
)

// Ошибки репозитория черного списка
var (
	ErrBlacklistEntryNotFound = errors.New("blacklist entry not found")
	ErrBlacklistEntryExists   = errors.New("address already in blacklist")
)

// BlacklistRepository - работа с таблицей blacklist
//
// Адреса base58 чувствительны к регистру и хранятся как есть.
type BlacklistRepository struct {
	db *sql.DB
}

// NewBlacklistRepository создает новый экземпляр репозитория
func NewBlacklistRepository(db *sql.DB) *BlacklistRepository {
	return &BlacklistRepository{db: db}
}

// Create добавляет адрес в черный список
func (r *BlacklistRepository) Create(entry *models.BlacklistEntry) error {
	query := `
		INSERT INTO blacklist (address, kind, reason, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	entry.CreatedAt = time.Now()
	if entry.Kind == "" {
		entry.Kind = models.BlacklistMint
	}

	err := r.db.QueryRow(
		query,
		entry.Address,
		string(entry.Kind),
		entry.Reason,
		entry.CreatedAt,
	).Scan(&entry.ID)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrBlacklistEntryExists
		}
		return err
	}

	return nil
}

// GetAll возвращает весь черный список
func (r *BlacklistRepository) GetAll() ([]*models.BlacklistEntry, error) {
	query := `
		SELECT id, address, kind, reason, created_at
		FROM blacklist
		ORDER BY created_at DESC`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.BlacklistEntry
	for rows.Next() {
		entry, err := scanBlacklistEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

// GetByAddress возвращает запись по адресу
func (r *BlacklistRepository) GetByAddress(address string) (*models.BlacklistEntry, error) {
	query := `
		SELECT id, address, kind, reason, created_at
		FROM blacklist
		WHERE address = $1`

	entry, err := scanBlacklistEntry(r.db.QueryRow(query, address))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBlacklistEntryNotFound
		}
		return nil, err
	}

	return entry, nil
}

// Delete удаляет адрес из черного списка
func (r *BlacklistRepository) Delete(address string) error {
	result, err := r.db.Exec(`DELETE FROM blacklist WHERE address = $1`, address)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrBlacklistEntryNotFound
	}

	return nil
}

// Exists проверяет наличие адреса в черном списке
func (r *BlacklistRepository) Exists(address string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM blacklist WHERE address = $1)`, address).Scan(&exists)
	if err != nil {
		return false, err
	}

	return exists, nil
}

// ExistsAny - хотя бы один из адресов (mint или создатель) в черном списке
func (r *BlacklistRepository) ExistsAny(ctx context.Context, addresses []string) (bool, error) {
	if len(addresses) == 0 {
		return false, nil
	}

	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM blacklist WHERE address = ANY($1))`,
		pq.Array(addresses),
	).Scan(&exists)
	if err != nil {
		return false, err
	}

	return exists, nil
}

// Count возвращает количество записей в черном списке
func (r *BlacklistRepository) Count() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM blacklist`).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBlacklistEntry(row rowScanner) (*models.BlacklistEntry, error) {
	entry := &models.BlacklistEntry{}
	var kind string
	err := row.Scan(
		&entry.ID,
		&entry.Address,
		&kind,
		&entry.Reason,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	entry.Kind = models.BlacklistKind(kind)
	return entry, nil
}

// isUniqueViolation проверяет, является ли ошибка нарушением UNIQUE constraint
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	errStr := err.Error()
	return strings.Contains(errStr, "duplicate key") || strings.Contains(errStr, "23505")
}
