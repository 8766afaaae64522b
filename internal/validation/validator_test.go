package validation

import (
	"errors"
	"strings"
	"testing"
)

type sample struct {
	Rating int     `json:"user_rating" validate:"gte=1,lte=5"`
	Review *string `form:"review" validate:"omitempty,max=10"`
	Email  string  `validate:"omitempty,email"`
}

func TestValidator_Singleton(t *testing.T) {
	if Validator() != Validator() {
		t.Fatal("expected the same validator instance")
	}
}

func TestStruct(t *testing.T) {
	long := strings.Repeat("é", 11)
	short := strings.Repeat("é", 10)

	tests := []struct {
		name      string
		input     sample
		wantField string
		wantMsg   string
	}{
		{name: "valid", input: sample{Rating: 3, Review: &short}},
		{name: "rating low", input: sample{Rating: 0}, wantField: "user_rating", wantMsg: "user_rating must be greater than or equal to 1"},
		{name: "rating high", input: sample{Rating: 6}, wantField: "user_rating", wantMsg: "user_rating must be less than or equal to 5"},
		{name: "review too long", input: sample{Rating: 1, Review: &long}, wantField: "review", wantMsg: "review must be at most 10 characters"},
		{name: "bad email", input: sample{Rating: 1, Email: "nope"}, wantField: "Email", wantMsg: "Email must be a valid email address"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Struct(tc.input)
			if tc.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var verrs Errors
			if !errors.As(err, &verrs) {
				t.Fatalf("expected Errors, got %T (%v)", err, err)
			}
			if len(verrs) != 1 {
				t.Fatalf("got %d field errors, want 1: %v", len(verrs), verrs)
			}
			if verrs[0].Field != tc.wantField {
				t.Fatalf("field = %q, want %q", verrs[0].Field, tc.wantField)
			}
			if verrs[0].Message != tc.wantMsg {
				t.Fatalf("message = %q, want %q", verrs[0].Message, tc.wantMsg)
			}
		})
	}
}

func TestErrors_JoinsMessages(t *testing.T) {
	err := Errors{{Message: "a"}, {Message: "b"}}
	if err.Error() != "a; b" {
		t.Fatalf("Error() = %q", err.Error())
	}
	if (Errors{}).Error() != "validation failed" {
		t.Fatal("empty Errors should have a generic message")
	}
}
