package postgres

import (
	"context"
	"testing"
	"time"
)

func TestStore_PostgresPingAndMigrationFlow(t *testing.T) {
	store := openRawPostgresStoreForIntegrationTest(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := store.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}

	if err := store.MigrateUp(ctx, 0); err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	version, count, err := store.MigrationStatus(ctx)
	if err != nil {
		t.Fatalf("migration status: %v", err)
	}
	if version == 0 || count == 0 {
		t.Fatalf("expected applied migrations, got version=%d count=%d", version, count)
	}

	// Повторный запуск не должен применять ничего нового.
	if err := store.MigrateUp(ctx, 0); err != nil {
		t.Fatalf("repeated migrate up: %v", err)
	}
	version2, count2, err := store.MigrationStatus(ctx)
	if err != nil {
		t.Fatalf("migration status after repeat: %v", err)
	}
	if version2 != version || count2 != count {
		t.Fatalf("repeated migrate up changed status: %d/%d -> %d/%d", version, count, version2, count2)
	}

	if err := store.MigrateDown(ctx, 1); err != nil {
		t.Fatalf("migrate down: %v", err)
	}
	version3, _, err := store.MigrationStatus(ctx)
	if err != nil {
		t.Fatalf("migration status after down: %v", err)
	}
	if version3 >= version {
		t.Fatalf("expected version to drop after migrate down: %d -> %d", version, version3)
	}

	if err := store.MigrateUp(ctx, 0); err != nil {
		t.Fatalf("migrate back up: %v", err)
	}
}
