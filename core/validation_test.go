package core

import (
	"errors"
	"testing"
	"time"
)

func TestValidateCandidate(t *testing.T) {
	tests := []struct {
		name      string
		candidate Candidate
		wantErr   error
	}{
		{
			name:      "valid candidate",
			candidate: Candidate{Title: "Go", Link: "https://go.dev", Description: "The Go language"},
		},
		{
			name:      "empty title and description are allowed",
			candidate: Candidate{Link: "https://go.dev"},
		},
		{
			name:      "empty link",
			candidate: Candidate{Title: "Go"},
			wantErr:   ErrEmptyLink,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCandidate(tt.candidate)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateCandidate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) || !errors.Is(err, ErrInvalidCandidate) {
				t.Errorf("ValidateCandidate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateTurn(t *testing.T) {
	validTime := time.Now().Add(-1 * time.Hour)
	futureTime := time.Now().Add(1 * time.Hour)

	tests := []struct {
		name    string
		turn    *Turn
		wantErr error
	}{
		{
			name: "valid turn",
			turn: &Turn{Prompt: "hello", Response: "hi", Timestamp: validTime},
		},
		{
			name: "empty response is allowed",
			turn: &Turn{Prompt: "hello", Timestamp: validTime},
		},
		{
			name:    "nil turn",
			turn:    nil,
			wantErr: ErrInvalidTurn,
		},
		{
			name:    "empty prompt",
			turn:    &Turn{Response: "hi", Timestamp: validTime},
			wantErr: ErrEmptyPrompt,
		},
		{
			name:    "future timestamp",
			turn:    &Turn{Prompt: "hello", Timestamp: futureTime},
			wantErr: ErrInvalidTimestamp,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTurn(tt.turn)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateTurn() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateTurn() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestExcerpt(t *testing.T) {
	tests := []struct {
		name string
		text string
		max  int
		want string
	}{
		{name: "short text unchanged", text: "rust", max: 10, want: "rust"},
		{name: "exact length unchanged", text: "rust", max: 4, want: "rust"},
		{name: "long text cut", text: "rust ownership", max: 4, want: "rust…"},
		{name: "multibyte runes", text: "日本語のテキスト", max: 3, want: "日本語…"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Excerpt(tt.text, tt.max); got != tt.want {
				t.Errorf("Excerpt() = %q, want %q", got, tt.want)
			}
		})
	}
}
