package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"pumpstrategy/internal/models"
)

// ErrDeployerNotFound - создатель отсутствует в таблице known_deployers
var ErrDeployerNotFound = errors.New("deployer not found")

// DeployerRepository - работа с таблицей known_deployers
//
// Схема:
//
//	address        TEXT PRIMARY KEY
//	deployed_count INT NOT NULL DEFAULT 0
//	rugged_count   INT NOT NULL DEFAULT 0
//	last_seen_at   TIMESTAMPTZ NOT NULL
type DeployerRepository struct {
	db *sql.DB
}

// NewDeployerRepository создает новый экземпляр репозитория
func NewDeployerRepository(db *sql.DB) *DeployerRepository {
	return &DeployerRepository{db: db}
}

// IsKnownDeployer - создатель хотя бы раз делал rug
func (r *DeployerRepository) IsKnownDeployer(ctx context.Context, address string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM known_deployers WHERE address = $1 AND rugged_count > 0)`

	var exists bool
	if err := r.db.QueryRowContext(ctx, query, address).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// GetWallet возвращает историю создателя
func (r *DeployerRepository) GetWallet(ctx context.Context, address string) (*models.DeployerRecord, error) {
	query := `
		SELECT address, deployed_count, rugged_count, last_seen_at
		FROM known_deployers
		WHERE address = $1`

	rec := &models.DeployerRecord{}
	err := r.db.QueryRowContext(ctx, query, address).Scan(
		&rec.Address,
		&rec.DeployedCount,
		&rec.RuggedCount,
		&rec.LastSeenAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeployerNotFound
		}
		return nil, err
	}

	return rec, nil
}

// GetMany возвращает записи для набора адресов; отсутствующие адреса пропускаются
func (r *DeployerRepository) GetMany(ctx context.Context, addresses []string) ([]*models.DeployerRecord, error) {
	if len(addresses) == 0 {
		return nil, nil
	}

	query := `
		SELECT address, deployed_count, rugged_count, last_seen_at
		FROM known_deployers
		WHERE address = ANY($1)`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(addresses))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.DeployerRecord
	for rows.Next() {
		rec := &models.DeployerRecord{}
		if err := rows.Scan(&rec.Address, &rec.DeployedCount, &rec.RuggedCount, &rec.LastSeenAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// RecordDeploy увеличивает счетчик запусков создателя (создает запись при первом запуске)
func (r *DeployerRepository) RecordDeploy(ctx context.Context, address string) error {
	query := `
		INSERT INTO known_deployers (address, deployed_count, rugged_count, last_seen_at)
		VALUES ($1, 1, 0, $2)
		ON CONFLICT (address) DO UPDATE
		SET deployed_count = known_deployers.deployed_count + 1,
			last_seen_at = EXCLUDED.last_seen_at`

	_, err := r.db.ExecContext(ctx, query, address, time.Now())
	return err
}

// Upsert записывает историю создателя целиком
func (r *DeployerRepository) Upsert(ctx context.Context, rec *models.DeployerRecord) error {
	query := `
		INSERT INTO known_deployers (address, deployed_count, rugged_count, last_seen_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (address) DO UPDATE
		SET deployed_count = EXCLUDED.deployed_count,
			rugged_count = EXCLUDED.rugged_count,
			last_seen_at = EXCLUDED.last_seen_at`

	if rec.LastSeenAt.IsZero() {
		rec.LastSeenAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, query, rec.Address, rec.DeployedCount, rec.RuggedCount, rec.LastSeenAt)
	return err
}

// RecordRug отмечает rug создателя
func (r *DeployerRepository) RecordRug(ctx context.Context, address string) error {
	query := `
		INSERT INTO known_deployers (address, deployed_count, rugged_count, last_seen_at)
		VALUES ($1, 1, 1, $2)
		ON CONFLICT (address) DO UPDATE
		SET rugged_count = known_deployers.rugged_count + 1,
			last_seen_at = EXCLUDED.last_seen_at`

	_, err := r.db.ExecContext(ctx, query, address, time.Now())
	return err
}

// Delete удаляет создателя
func (r *DeployerRepository) Delete(ctx context.Context, address string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM known_deployers WHERE address = $1`, address)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrDeployerNotFound
	}

	return nil
}

// CountRuggers возвращает количество создателей с rug в истории
func (r *DeployerRepository) CountRuggers(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM known_deployers WHERE rugged_count > 0`).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}
