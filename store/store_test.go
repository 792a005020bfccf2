package store

import (
	"context"
	"os"
	"testing"

	"github.com/go-redis/redis/v8"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testStore runs the behaviour every Store implementation must share.
func testStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if err := s.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}

	key := ResponsesKey("conformance")
	if err := s.Remove(ctx, key); err != nil {
		t.Fatalf("Remove missing key: %v", err)
	}

	_, found, err := s.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if found {
		t.Fatalf("expected %q to be absent", key)
	}

	if err := s.Set(ctx, key, []byte(`[{"id":"1"}]`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(ctx, key, []byte(`[{"id":"2"}]`)); err != nil {
		t.Fatalf("Set overwrite: %v", err)
	}

	var got []struct {
		ID string `json:"id"`
	}
	found, err = GetJSON(ctx, s, key, &got)
	if err != nil || !found {
		t.Fatalf("GetJSON: found=%v err=%v", found, err)
	}
	if len(got) != 1 || got[0].ID != "2" {
		t.Errorf("last write should win, got %+v", got)
	}

	if err := s.Remove(ctx, key); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, found, _ := s.Get(ctx, key); found {
		t.Errorf("expected %q to be removed", key)
	}

	if err := s.Set(ctx, "", []byte(`{}`)); err != ErrEmptyKey {
		t.Errorf("Set with empty key: got %v, want ErrEmptyKey", err)
	}
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemory())
}

func TestMemoryStoreCopiesDocuments(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	doc := []byte(`"abc"`)
	if err := m.Set(ctx, "k", doc); err != nil {
		t.Fatal(err)
	}
	doc[1] = 'z'

	got, _, _ := m.Get(ctx, "k")
	if string(got) != `"abc"` {
		t.Errorf("stored document was mutated through caller slice: %s", got)
	}
}

func TestGetJSONDecodeError(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_ = m.Set(ctx, KeySurveys, []byte(`{not json`))

	var v []any
	if _, err := GetJSON(ctx, m, KeySurveys, &v); err == nil {
		t.Error("expected decode error")
	}
}

func TestGormStore(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	if err := Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	testStore(t, NewGorm(db))
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	testStore(t, NewRedis(client, "surveyflow-test:"))
}
