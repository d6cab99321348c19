// Warbler - Social Graph and Engagement Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/warbler

package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/tomtom215/warbler/internal/models"
)

func TestGetValidator_Singleton(t *testing.T) {
	v1 := GetValidator()
	v2 := GetValidator()
	if v1 == nil || v1 != v2 {
		t.Error("GetValidator() should return one shared instance")
	}
}

type profileRequest struct {
	Handle string `json:"username" validate:"required,username"`
	Bio    string `json:"bio" validate:"max=160"`
	Theme  string `json:"theme" validate:"omitempty,oneof=light dim dark"`
	Email  string `json:"email" validate:"omitempty,email"`
	Tags   []int  `json:"tags" validate:"max=2"`
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name      string
		input     profileRequest
		wantField string
		wantMsg   string
	}{
		{
			name:  "valid",
			input: profileRequest{Handle: "warbler_1", Theme: "dim", Email: "a@b.co"},
		},
		{
			name:      "missing handle",
			input:     profileRequest{},
			wantField: "username",
			wantMsg:   "username is required",
		},
		{
			name:      "bad handle",
			input:     profileRequest{Handle: "1234"},
			wantField: "username",
			wantMsg:   "username must be 4-15 letters, digits or underscores and contain a letter",
		},
		{
			name:      "bio too long",
			input:     profileRequest{Handle: "abcd", Bio: strings.Repeat("é", 161)},
			wantField: "bio",
			wantMsg:   "bio must be at most 160 characters",
		},
		{
			name:      "theme",
			input:     profileRequest{Handle: "abcd", Theme: "neon"},
			wantField: "theme",
			wantMsg:   "theme must be one of: light dim dark",
		},
		{
			name:      "too many items",
			input:     profileRequest{Handle: "abcd", Tags: []int{1, 2, 3}},
			wantField: "tags",
			wantMsg:   "tags must have at most 2 items",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verr := ValidateStruct(&tt.input)
			if tt.wantField == "" {
				if verr != nil {
					t.Fatalf("unexpected error: %v", verr)
				}
				if err := Validate(&tt.input); err != nil {
					t.Fatalf("Validate returned %v", err)
				}
				return
			}
			if verr == nil {
				t.Fatal("expected a validation error")
			}
			first := verr.Errors()[0]
			if first.Field() != tt.wantField {
				t.Errorf("field = %q, want %q", first.Field(), tt.wantField)
			}
			if first.Error() != tt.wantMsg {
				t.Errorf("message = %q, want %q", first.Error(), tt.wantMsg)
			}
			if !errors.Is(Validate(&tt.input), models.ErrValidation) {
				t.Error("error should match models.ErrValidation")
			}
		})
	}
}

func TestValidUsername(t *testing.T) {
	tests := []struct {
		handle string
		want   bool
	}{
		{"abcd", true},
		{"a_1_2", true},
		{"_9_a", true},
		{"abc", false},
		{"abcdefghijklmnop", false},
		{"abcdefghijklmno", true},
		{"1234", false},
		{"____", false},
		{"ab-cd", false},
		{"ab cd", false},
	}
	for _, tt := range tests {
		if got := ValidUsername(tt.handle); got != tt.want {
			t.Errorf("ValidUsername(%q) = %v, want %v", tt.handle, got, tt.want)
		}
	}
}

func TestToAPIError(t *testing.T) {
	single := ValidateStruct(&profileRequest{})
	api := single.ToAPIError()
	if api.Code != "VALIDATION_FAILED" || api.Details["field"] != "username" {
		t.Errorf("single = %+v", api)
	}

	multi := ValidateStruct(&profileRequest{Theme: "neon"})
	api = multi.ToAPIError()
	fields, ok := api.Details["fields"].([]map[string]interface{})
	if !ok || len(fields) != 2 {
		t.Fatalf("multi details = %+v", api.Details)
	}
	if !strings.Contains(api.Message, "; ") {
		t.Errorf("multi message = %q", api.Message)
	}

	empty := &RequestValidationError{}
	if empty.ToAPIError().Message != "Validation failed" || empty.Error() != "validation failed" {
		t.Error("empty error rendering")
	}
}
