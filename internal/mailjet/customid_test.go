package mailjet

import "testing"

func TestFingerprint(t *testing.T) {
	// md5("test@example.com")
	const want = "55502f40dc8b7c769880b10874abc9d0"
	if got := Fingerprint("test@example.com"); got != want {
		t.Errorf("Fingerprint = %q, want %q", got, want)
	}
}

func TestCustomID(t *testing.T) {
	got := CustomID("abc123", "test@example.com")
	want := "abc123-55502f40dc8b7c769880b10874abc9d0"
	if got != want {
		t.Errorf("CustomID = %q, want %q", got, want)
	}
}

func TestSplitCustomID(t *testing.T) {
	tests := []struct {
		name string
		in   string
		hash string
		fp   string
		ok   bool
	}{
		{"well formed", "abc123-deadbeef", "abc123", "deadbeef", true},
		{"splits at first separator", "abc-123-def", "abc", "123-def", true},
		{"no separator", "abc123", "", "", false},
		{"empty", "", "", "", false},
		{"leading separator", "-deadbeef", "", "deadbeef", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, fp, ok := SplitCustomID(tt.in)
			if hash != tt.hash || fp != tt.fp || ok != tt.ok {
				t.Errorf("SplitCustomID(%q) = (%q, %q, %v), want (%q, %q, %v)",
					tt.in, hash, fp, ok, tt.hash, tt.fp, tt.ok)
			}
		})
	}
}
