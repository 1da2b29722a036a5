package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"pumpstrategy/internal/models"
)

var deployerColumns = []string{"address", "deployed_count", "rugged_count", "last_seen_at"}

func newDeployerMock(t *testing.T) (*DeployerRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	return NewDeployerRepository(db), mock, func() { db.Close() }
}

func TestDeployerRepositoryIsKnownDeployer(t *testing.T) {
	tests := []struct {
		name      string
		mockSetup func(mock sqlmock.Sqlmock)
		want      bool
		wantErr   bool
	}{
		{
			name: "known rugger",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM known_deployers WHERE address = \$1 AND rugged_count > 0\)`).
					WithArgs(testCreator).
					WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
			},
			want: true,
		},
		{
			name: "clean creator",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT EXISTS`).
					WithArgs(testCreator).
					WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
			},
			want: false,
		},
		{
			name: "db error",
			mockSetup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`SELECT EXISTS`).
					WithArgs(testCreator).
					WillReturnError(errors.New("connection reset"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, closeDB := newDeployerMock(t)
			defer closeDB()

			tt.mockSetup(mock)

			got, err := repo.IsKnownDeployer(context.Background(), testCreator)
			if (err != nil) != tt.wantErr {
				t.Fatalf("IsKnownDeployer() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("IsKnownDeployer() = %v, want %v", got, tt.want)
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unfulfilled expectations: %v", err)
			}
		})
	}
}

func TestDeployerRepositoryGetWallet(t *testing.T) {
	now := time.Now()

	t.Run("success", func(t *testing.T) {
		repo, mock, closeDB := newDeployerMock(t)
		defer closeDB()

		mock.ExpectQuery(`SELECT .+ FROM known_deployers WHERE address = \$1`).
			WithArgs(testCreator).
			WillReturnRows(sqlmock.NewRows(deployerColumns).AddRow(testCreator, 12, 3, now))

		rec, err := repo.GetWallet(context.Background(), testCreator)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rec.DeployedCount != 12 || rec.RuggedCount != 3 || !rec.IsKnownRugger() {
			t.Errorf("record = %+v", rec)
		}

		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unfulfilled expectations: %v", err)
		}
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock, closeDB := newDeployerMock(t)
		defer closeDB()

		mock.ExpectQuery(`SELECT .+ FROM known_deployers WHERE address = \$1`).
			WithArgs(testCreator).
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetWallet(context.Background(), testCreator)
		if !errors.Is(err, ErrDeployerNotFound) {
			t.Errorf("expected ErrDeployerNotFound, got %v", err)
		}
	})
}

func TestDeployerRepositoryGetMany(t *testing.T) {
	now := time.Now()
	repo, mock, closeDB := newDeployerMock(t)
	defer closeDB()

	mock.ExpectQuery(`SELECT .+ FROM known_deployers WHERE address = ANY\(\$1\)`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(deployerColumns).
			AddRow(testCreator, 4, 1, now).
			AddRow(testMint, 1, 0, now))

	records, err := repo.GetMany(context.Background(), []string{testCreator, testMint, "missing"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	if records, err := repo.GetMany(context.Background(), nil); records != nil || err != nil {
		t.Errorf("GetMany(nil) = %v, %v", records, err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestDeployerRepositoryWrites(t *testing.T) {
	repo, mock, closeDB := newDeployerMock(t)
	defer closeDB()

	mock.ExpectExec(`INSERT INTO known_deployers .+ ON CONFLICT \(address\) DO UPDATE SET deployed_count = known_deployers.deployed_count \+ 1`).
		WithArgs(testCreator, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO known_deployers .+ SET rugged_count = known_deployers.rugged_count \+ 1`).
		WithArgs(testCreator, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO known_deployers .+ SET deployed_count = EXCLUDED.deployed_count`).
		WithArgs(testCreator, 5, 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ctx := context.Background()
	if err := repo.RecordDeploy(ctx, testCreator); err != nil {
		t.Errorf("RecordDeploy() error = %v", err)
	}
	if err := repo.RecordRug(ctx, testCreator); err != nil {
		t.Errorf("RecordRug() error = %v", err)
	}

	rec := &models.DeployerRecord{Address: testCreator, DeployedCount: 5, RuggedCount: 2}
	if err := repo.Upsert(ctx, rec); err != nil {
		t.Errorf("Upsert() error = %v", err)
	}
	if rec.LastSeenAt.IsZero() {
		t.Error("Upsert should stamp LastSeenAt")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestDeployerRepositoryDelete(t *testing.T) {
	repo, mock, closeDB := newDeployerMock(t)
	defer closeDB()

	mock.ExpectExec(`DELETE FROM known_deployers WHERE address = \$1`).
		WithArgs(testCreator).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), testCreator); !errors.Is(err, ErrDeployerNotFound) {
		t.Errorf("Delete() error = %v, want ErrDeployerNotFound", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestDeployerRepositoryCountRuggers(t *testing.T) {
	repo, mock, closeDB := newDeployerMock(t)
	defer closeDB()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM known_deployers WHERE rugged_count > 0`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := repo.CountRuggers(context.Background())
	if err != nil || count != 7 {
		t.Errorf("CountRuggers() = %d, %v", count, err)
	}
}
