package pollgate

import "testing"

func TestValidateChallengeBody(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{
			name: "valid challenge",
			body: `{"x402Version":1,"accepts":[{"scheme":"exact","network":"solana-devnet","payTo":"abc","maxAmountRequired":"10500000","asset":"mint"}]}`,
		},
		{
			name: "empty accepts is structurally valid",
			body: `{"x402Version":1,"accepts":[]}`,
		},
		{
			name:    "missing accepts",
			body:    `{"x402Version":1}`,
			wantErr: true,
		},
		{
			name:    "non-integer amount",
			body:    `{"x402Version":1,"accepts":[{"scheme":"exact","network":"solana","payTo":"abc","maxAmountRequired":"10.5"}]}`,
			wantErr: true,
		},
		{
			name:    "not json",
			body:    `<html>payment required</html>`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateChallengeBody([]byte(tt.body))
			if tt.wantErr && err == nil {
				t.Fatal("expected error but got none")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
