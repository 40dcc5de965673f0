package tenancy

import (
	"context"
	"testing"
)

func TestTenantIDRoundTrip(t *testing.T) {
	ctx := WithTenantID(context.Background(), "tenant-1")
	got, ok := TenantIDFromContext(ctx)
	if !ok || got != "tenant-1" {
		t.Fatalf("expected tenant-1, got %q ok=%v", got, ok)
	}
}

func TestTenantIDMissing(t *testing.T) {
	if _, ok := TenantIDFromContext(context.Background()); ok {
		t.Fatal("expected no tenant id in empty context")
	}
}

func TestTenantIDEmptyValue(t *testing.T) {
	ctx := WithTenantID(context.Background(), "")
	if _, ok := TenantIDFromContext(ctx); ok {
		t.Fatal("expected empty tenant id to be treated as absent")
	}
}
