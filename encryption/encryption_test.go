package encryption

import "testing"

func TestEncryptDecryptRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{name: "plain text", value: "hello"},
		{name: "empty string", value: ""},
		{name: "unicode", value: "早上好 ✨"},
		{name: "long message", value: string(make([]byte, 4096))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encrypted := Encrypt(tt.value)
			if got := Decrypt(encrypted); got != tt.value {
				t.Errorf("Decrypt(Encrypt(%q)) = %q, want original", tt.value, got)
			}
		})
	}
}

func TestEncryptHidesPlaintext(t *testing.T) {
	if Encrypt("hello") == "hello" {
		t.Error("Encrypt() returned the plaintext")
	}
}

func TestDecryptFallsBackOnGarbage(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{name: "not base64", value: "not-a-ciphertext!!"},
		{name: "base64 but too short", value: "aGk="},
		{name: "base64 random bytes", value: "aGVsbG8gd29ybGQgaGVsbG8gd29ybGQgaGVsbG8="},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decrypt(tt.value); got != tt.value {
				t.Errorf("Decrypt(%q) = %q, want input unchanged", tt.value, got)
			}
		})
	}
}
