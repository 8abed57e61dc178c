package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func ctxWithQuery(query string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestFromContext_Defaults(t *testing.T) {
	p := FromContext(ctxWithQuery(""))
	if p.Limit != DefaultLimit {
		t.Errorf("expected default limit %d, got %d", DefaultLimit, p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected offset 0, got %d", p.Offset)
	}
}

func TestFromContext_ClampsLimit(t *testing.T) {
	p := FromContext(ctxWithQuery("limit=1000"))
	if p.Limit != MaxLimit {
		t.Errorf("expected limit clamped to %d, got %d", MaxLimit, p.Limit)
	}
}

func TestFromContext_ParsesValues(t *testing.T) {
	p := FromContext(ctxWithQuery("limit=5&offset=10"))
	if p.Limit != 5 || p.Offset != 10 {
		t.Errorf("expected {5 10}, got %+v", p)
	}
}

func TestNewResponse_HasMore(t *testing.T) {
	r := NewResponse(nil, 30, 10, 0)
	if !r.HasMore {
		t.Error("expected HasMore true at offset 0 of 30")
	}
	r = NewResponse(nil, 30, 10, 20)
	if r.HasMore {
		t.Error("expected HasMore false at offset 20 of 30")
	}
}
