package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"pumpstrategy/internal/models"
	"pumpstrategy/pkg/utils"
)

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time          { return c.t }
func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestDeployerService() (*DeployerService, *MockDeployerRepository, *testClock) {
	repo := NewMockDeployerRepository()
	clock := &testClock{t: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)}
	return NewDeployerServiceWithClock(repo, time.Minute, clock.Now, utils.NewNopLogger()), repo, clock
}

func TestDeployerService_IsKnownDeployer(t *testing.T) {
	svc, repo, _ := newTestDeployerService()
	repo.records[testCreator] = &models.DeployerRecord{Address: testCreator, DeployedCount: 10, RuggedCount: 2}
	repo.records[testMint] = &models.DeployerRecord{Address: testMint, DeployedCount: 3}

	tests := []struct {
		address string
		want    bool
	}{
		{testCreator, true},
		{testMint, false},
		{"unknownCreator", false},
	}

	for _, tt := range tests {
		got, err := svc.IsKnownDeployer(context.Background(), tt.address)
		if err != nil {
			t.Fatalf("IsKnownDeployer(%s) error = %v", tt.address, err)
		}
		if got != tt.want {
			t.Errorf("IsKnownDeployer(%s) = %v, want %v", tt.address, got, tt.want)
		}
	}
}

func TestDeployerService_CachesLookups(t *testing.T) {
	svc, repo, clock := newTestDeployerService()
	repo.records[testCreator] = &models.DeployerRecord{Address: testCreator, RuggedCount: 1}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.GetWallet(ctx, testCreator); err != nil {
			t.Fatal(err)
		}
		// отсутствие тоже кэшируется
		if rec, err := svc.GetWallet(ctx, "unknownCreator"); rec != nil || err != nil {
			t.Fatalf("GetWallet(unknown) = %v, %v", rec, err)
		}
	}
	if repo.Calls() != 2 {
		t.Errorf("repository calls = %d, want 2", repo.Calls())
	}

	clock.Advance(2 * time.Minute)
	if _, err := svc.GetWallet(ctx, testCreator); err != nil {
		t.Fatal(err)
	}
	if repo.Calls() != 3 {
		t.Errorf("expired entry should be refetched, calls = %d", repo.Calls())
	}

	if n := svc.PruneExpired(); n != 1 {
		t.Errorf("PruneExpired() = %d, want 1", n)
	}
	if svc.CacheSize() != 1 {
		t.Errorf("CacheSize() = %d, want 1", svc.CacheSize())
	}
}

func TestDeployerService_ErrorsNotCached(t *testing.T) {
	svc, repo, _ := newTestDeployerService()
	repo.getErr = errors.New("db down")

	if _, err := svc.IsKnownDeployer(context.Background(), testCreator); err == nil {
		t.Fatal("expected error")
	}
	if svc.CacheSize() != 0 {
		t.Error("errors must not be cached")
	}
}

func TestDeployerService_RecordRugInvalidates(t *testing.T) {
	svc, _, _ := newTestDeployerService()
	ctx := context.Background()

	if known, _ := svc.IsKnownDeployer(ctx, testCreator); known {
		t.Fatal("fresh creator should not be known")
	}

	if err := svc.RecordDeploy(ctx, testCreator); err != nil {
		t.Fatal(err)
	}
	if err := svc.RecordRug(ctx, testCreator); err != nil {
		t.Fatal(err)
	}

	known, err := svc.IsKnownDeployer(ctx, testCreator)
	if err != nil || !known {
		t.Errorf("after RecordRug IsKnownDeployer() = %v, %v", known, err)
	}
	rec, _ := svc.GetWallet(ctx, testCreator)
	if rec == nil || rec.RuggedCount != 1 || rec.DeployedCount != 1 {
		t.Errorf("record = %+v", rec)
	}
}

func TestDeployerService_Warm(t *testing.T) {
	svc, repo, _ := newTestDeployerService()
	repo.records[testCreator] = &models.DeployerRecord{Address: testCreator, RuggedCount: 4}

	if err := svc.Warm(context.Background(), []string{testCreator, "unknownCreator"}); err != nil {
		t.Fatal(err)
	}
	calls := repo.Calls()

	rec, _ := svc.GetWallet(context.Background(), testCreator)
	known, _ := svc.IsKnownDeployer(context.Background(), "unknownCreator")
	if rec == nil || rec.RuggedCount != 4 || known {
		t.Errorf("warm cache = %+v / %v", rec, known)
	}
	if repo.Calls() != calls {
		t.Error("warmed entries should not hit the repository")
	}
}

func TestDeployerService_RunPruner(t *testing.T) {
	svc, repo, clock := newTestDeployerService()
	repo.records[testCreator] = &models.DeployerRecord{Address: testCreator}

	if _, err := svc.GetWallet(context.Background(), testCreator); err != nil {
		t.Fatal(err)
	}
	clock.Advance(2 * time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.RunPruner(ctx, 5*time.Millisecond) }()

	deadline := time.Now().Add(2 * time.Second)
	for svc.CacheSize() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("expired entry was not pruned")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("RunPruner() = %v, want context.Canceled", err)
	}
}
