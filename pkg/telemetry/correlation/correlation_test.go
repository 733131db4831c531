package correlation

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/oklog/ulid/v2"
)

func TestEnsureCorrelationIDGeneratesULID(t *testing.T) {
	ctx, cid := EnsureCorrelationID(context.Background())
	if _, err := ulid.Parse(cid); err != nil {
		t.Fatalf("expected ulid, got %q: %v", cid, err)
	}
	if got := ExtractCorrelationID(ctx); got != cid {
		t.Fatalf("expected %q on context, got %q", cid, got)
	}

	_, again := EnsureCorrelationID(ctx)
	if again != cid {
		t.Fatalf("expected existing id to be reused, got %q", again)
	}
}

func TestFromRequestHonoursHeader(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(HeaderName, "abc-123")

	ctx, cid := FromRequest(req)
	if cid != "abc-123" || ExtractCorrelationID(ctx) != "abc-123" {
		t.Fatalf("expected header value, got %q", cid)
	}
}
