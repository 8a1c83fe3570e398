package models

import (
	"strings"
	"testing"
)

func TestStateTokenValidate(t *testing.T) {
	tc := []struct {
		name    string
		record  StateToken
		wantErr string
	}{
		{
			name:   "valid record",
			record: StateToken{Nonce: "123", Token: "a1b2c3d4e5f60718"},
		},
		{
			name:    "missing nonce",
			record:  StateToken{Token: "a1b2c3d4e5f60718"},
			wantErr: "requires a nonce",
		},
		{
			name:    "token too short",
			record:  StateToken{Nonce: "123", Token: "abc123"},
			wantErr: "must be 16 characters",
		},
		{
			name:    "token not hex",
			record:  StateToken{Nonce: "123", Token: "g1b2c3d4e5f60718"},
			wantErr: "lowercase hex",
		},
		{
			name:    "uppercase rejected",
			record:  StateToken{Nonce: "123", Token: "A1B2C3D4E5F60718"},
			wantErr: "lowercase hex",
		},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("expected valid record, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
