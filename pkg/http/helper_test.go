package http

import (
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "cinebook/pkg/errors"
)

func TestExtractLimitOffset(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int64
		wantErr    bool
	}{
		{"defaults", "", DefaultPaginationLimit, 0, false},
		{"explicit", "?limit=5&offset=20", 5, 20, false},
		{"clamped", "?limit=1000&offset=-3", MaxPaginationLimit, 0, false},
		{"bad limit", "?limit=abc", 0, 0, true},
		{"bad offset", "?offset=x", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/booking/my"+tt.query, nil)
			limit, offset, err := ExtractLimitOffset(r)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if limit != tt.wantLimit || offset != tt.wantOffset {
				t.Errorf("got (%d, %d), want (%d, %d)", limit, offset, tt.wantLimit, tt.wantOffset)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type body struct {
		ShowID string `json:"show_id"`
	}

	var dst body
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"show_id":"s1"}`))
	if err := DecodeJSON(r, &dst); err != nil || dst.ShowID != "s1" {
		t.Fatalf("DecodeJSON() = %v, dst = %+v", err, dst)
	}

	for _, payload := range []string{``, `{"show":"s1"}`, `{"show_id":"s1"}{}`, `not json`} {
		r := httptest.NewRequest("POST", "/", strings.NewReader(payload))
		err := DecodeJSON(r, &body{})
		if !apperrors.HasCode(err, apperrors.CodeInvalidInput) {
			t.Errorf("payload %q: expected INVALID_INPUT, got %v", payload, err)
		}
	}
}

func TestWriteError_BusinessRejectionShape(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, apperrors.Conflict("Seats A1 are no longer available"))

	if w.Code != 409 {
		t.Errorf("status = %d, want 409", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"success":false`) || !strings.Contains(w.Body.String(), "A1") {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}
