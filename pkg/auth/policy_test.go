package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateMasterPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{name: "strong password", password: "StrongPass12!", wantErr: false},
		{name: "three classes no symbol", password: "StrongPass1234", wantErr: false},
		{name: "too short", password: "Aa1!short", wantErr: true},
		{name: "lowercase and digits only", password: "alllowercase12", wantErr: true},
		{name: "uppercase and digits only", password: "UPPERCASEONLY12", wantErr: true},
		{name: "empty", password: "", wantErr: true},
		{name: "long but single class", password: "aaaaaaaaaaaaaaaa", wantErr: true},
		{name: "unicode letters count toward length", password: "Pässwörter12!", wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMasterPassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
