package health

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	_ "github.com/lib/pq"
)

func TestRegistryEmpty(t *testing.T) {
	r := NewRegistry()
	healthy, statuses := r.CheckAll(context.Background())
	if !healthy {
		t.Fatal("empty registry should be healthy")
	}
	if len(statuses) != 0 {
		t.Fatalf("expected 0 statuses, got %d", len(statuses))
	}
}

func TestRegistryAllHealthy(t *testing.T) {
	r := NewRegistry()
	r.Register("database", func(_ context.Context) Status {
		return Status{Name: "database", Healthy: true}
	})
	r.Register("hub", func(_ context.Context) Status {
		return Status{Name: "hub", Healthy: true, Detail: "3 clients"}
	})

	healthy, statuses := r.CheckAll(context.Background())
	if !healthy {
		t.Fatal("all-healthy registry should report healthy")
	}
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
}

func TestRegistryOneUnhealthy(t *testing.T) {
	r := NewRegistry()
	r.Register("database", func(_ context.Context) Status {
		return Status{Name: "database", Healthy: true}
	})
	r.Register("hub", func(_ context.Context) Status {
		return Status{Name: "hub", Healthy: false, Detail: "at client capacity"}
	})

	healthy, statuses := r.CheckAll(context.Background())
	if healthy {
		t.Fatal("registry with unhealthy checker should report unhealthy")
	}
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	if statuses[1].Detail != "at client capacity" {
		t.Fatalf("expected detail 'at client capacity', got %q", statuses[1].Detail)
	}
}

func TestDBCheckerUnreachable(t *testing.T) {
	db, err := sql.Open("postgres", "postgres://nobody@127.0.0.1:1/none?sslmode=disable&connect_timeout=1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	status := DBChecker(db)(context.Background())
	if status.Healthy {
		t.Fatal("checker against unreachable database should be unhealthy")
	}
	if status.Name != "database" {
		t.Fatalf("expected name 'database', got %q", status.Name)
	}
	if status.Detail == "" {
		t.Fatal("expected a failure detail")
	}
}

func TestRegistryConcurrentRegisterAndCheck(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Register("checker", func(_ context.Context) Status {
				return Status{Name: "checker", Healthy: true}
			})
		}()
	}

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.CheckAll(context.Background())
		}()
	}

	wg.Wait()
}
