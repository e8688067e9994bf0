package validate

import (
	"errors"
	"testing"
)

func TestAddress(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{
			name:  "valid lowercase address",
			input: "0x71c7656ec7ab88b098defb751b7401b5f6d8976f",
		},
		{
			name:  "valid checksummed address",
			input: "0x71C7656EC7ab88b098defB751B7401B5f6d8976F",
		},
		{
			name:  "valid without 0x prefix",
			input: "71c7656ec7ab88b098defb751b7401b5f6d8976f",
		},
		{
			name:    "empty",
			input:   "",
			wantErr: ErrEmpty,
		},
		{
			name:    "too short",
			input:   "0x71c7656e",
			wantErr: ErrInvalidAddress,
		},
		{
			name:    "non-hex characters",
			input:   "0x71c7656ec7ab88b098defb751b7401b5f6d8976z",
			wantErr: ErrInvalidAddress,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Address(tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Address(%q) error = %v, want %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr == nil && got == "" {
				t.Errorf("Address(%q) returned empty checksummed form", tt.input)
			}
		})
	}
}

func TestContentHash(t *testing.T) {
	valid := "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{
			name:  "bare hex accepted",
			input: valid,
			want:  "0x" + valid,
		},
		{
			name:  "0x prefix accepted",
			input: "0x" + valid,
			want:  "0x" + valid,
		},
		{
			name:  "uppercase normalized to lowercase",
			input: "0x9F86D081884C7D659A2FEAA0C55AD015A3BF4F1B2B0B822CD15D6C15B0F00A08",
			want:  "0x" + valid,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: ErrEmpty,
		},
		{
			name:    "wrong length",
			input:   "0x9f86d081",
			wantErr: ErrInvalidContentHash,
		},
		{
			name:    "non-hex",
			input:   "0xzz86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08",
			wantErr: ErrInvalidContentHash,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ContentHash(tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ContentHash(%q) error = %v, want %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr == nil && got != tt.want {
				t.Errorf("ContentHash(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestVerificationID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{
			name:  "valid id",
			input: "DOC-ABC123",
			want:  "DOC-ABC123",
		},
		{
			name:  "lowercase normalized",
			input: "doc-abc123",
			want:  "DOC-ABC123",
		},
		{
			name:    "empty",
			input:   "",
			wantErr: ErrEmpty,
		},
		{
			name:    "missing prefix",
			input:   "ABC123",
			wantErr: ErrInvalidVerificationID,
		},
		{
			name:    "too many characters",
			input:   "DOC-ABC1234",
			wantErr: ErrInvalidVerificationID,
		},
		{
			name:    "character outside alphabet",
			input:   "DOC-ABC12!",
			wantErr: ErrInvalidVerificationID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := VerificationID(tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("VerificationID(%q) error = %v, want %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr == nil && got != tt.want {
				t.Errorf("VerificationID(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
