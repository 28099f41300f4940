package migrate

import (
	"context"
	"path/filepath"
	"testing"
)

func TestNewRejectsMissingInputs(t *testing.T) {
	ctx := context.Background()
	if _, err := New(ctx, "", "db/migrations", nil); err == nil {
		t.Fatal("expected error for empty dsn")
	}
	if _, err := New(ctx, "postgres://localhost/x", "", nil); err == nil {
		t.Fatal("expected error for empty dir")
	}
	missing := filepath.Join(t.TempDir(), "nope")
	if _, err := New(ctx, "postgres://localhost/x", missing, nil); err == nil {
		t.Fatal("expected error for missing dir")
	}
}
