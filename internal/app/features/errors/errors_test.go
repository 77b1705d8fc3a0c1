package errors_test

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	uierrors "github.com/dalemusser/eventkey/internal/app/features/errors"
	"github.com/dalemusser/eventkey/internal/app/system/auth"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestWrite(t *testing.T) {
	rec := httptest.NewRecorder()
	uierrors.Write(rec, http.StatusBadRequest, "bad thing")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("content type = %q", ct)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body["error"] != "bad thing" {
		t.Errorf("body = %v", body)
	}
}

func TestInternal_HidesErrorAndLogs(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	rec := httptest.NewRecorder()

	uierrors.Internal(rec, zap.New(core), "load failed", stderrors.New("secret detail"), zap.String("k", "v"))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "secret detail") {
		t.Error("internal error leaked to client")
	}
	if logs.FilterMessage("load failed").Len() != 1 {
		t.Error("expected error log")
	}
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"name":"x"}`, false},
		{"unknown field", `{"nmae":"x"}`, true},
		{"garbage", `{`, true},
		{"empty", ``, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/", strings.NewReader(tt.body))
			err := uierrors.DecodeJSON(r, &dst)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !stderrors.Is(err, uierrors.ErrBadJSON) {
				t.Errorf("err %v does not wrap ErrBadJSON", err)
			}
		})
	}
}

func TestLandingEndpoints(t *testing.T) {
	h := uierrors.NewHandler()

	rec := httptest.NewRecorder()
	h.Forbidden(rec, httptest.NewRequest("GET", "/forbidden", nil))
	if rec.Code != http.StatusForbidden {
		t.Errorf("forbidden status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Unauthorized(rec, httptest.NewRequest("GET", "/unauthorized", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthorized status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req := auth.WithTestUser(httptest.NewRequest("GET", "/unauthorized", nil), &auth.SessionUser{ID: "x"})
	h.Unauthorized(rec, req)
	if rec.Code != http.StatusSeeOther {
		t.Errorf("signed-in unauthorized status = %d, want redirect", rec.Code)
	}
}
