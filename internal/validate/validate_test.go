// SPDX-License-Identifier: MIT
package validate

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestValidator_Range(t *testing.T) {
	tests := []struct {
		name    string
		value   int
		wantErr bool
	}{
		{"lower bound", 1, false},
		{"upper bound", 10, false},
		{"below", 0, true},
		{"above", 11, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.Range("n", tt.value, 1, 10)
			if tt.wantErr && v.IsValid() {
				t.Errorf("expected error, got none")
			}
			if !tt.wantErr && !v.IsValid() {
				t.Errorf("unexpected error: %v", v.Err())
			}
		})
	}
}

func TestValidator_ListenAddr(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"empty disables", "", false},
		{"port only", ":8089", false},
		{"host and port", "127.0.0.1:9109", false},
		{"missing port", "localhost", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := New()
			v.ListenAddr("addr", tt.value)
			if tt.wantErr == v.IsValid() {
				t.Errorf("ListenAddr(%q) valid=%v, wantErr=%v", tt.value, v.IsValid(), tt.wantErr)
			}
		})
	}
}

func TestValidator_AccumulatesErrors(t *testing.T) {
	v := New()
	v.Positive("batch", 0)
	v.PositiveDuration("period", 0)
	v.OneOf("backend", "mongo", []string{"memory", "sqlite"})
	v.FloatRange("rate", 1.5, 0, 1)

	err := v.Err()
	if err == nil {
		t.Fatal("expected error")
	}

	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if len(verr.Errors()) != 4 {
		t.Fatalf("expected 4 errors, got %d", len(verr.Errors()))
	}
	if !strings.Contains(err.Error(), "batch") || !strings.Contains(err.Error(), "; ") {
		t.Errorf("unexpected joined message: %s", err.Error())
	}
}

func TestValidator_ValidReturnsNilErr(t *testing.T) {
	v := New()
	v.PositiveDuration("period", 20*time.Millisecond)
	v.NotEmpty("name", "gc")
	if err := v.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
