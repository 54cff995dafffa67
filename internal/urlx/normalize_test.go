package urlx

import "testing"

func TestNormalize_StripsTrackingParams(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		keepList bool
		want     string
	}{
		{
			name: "utm and playlist dropped",
			in:   "https://example.com/watch?v=abc123&list=PL1&utm_source=x",
			want: "https://example.com/watch?v=abc123",
		},
		{
			name:     "playlist kept when allowed",
			in:       "https://example.com/watch?v=abc123&list=PL1&utm_source=x",
			keepList: true,
			want:     "https://example.com/watch?v=abc123&list=PL1",
		},
		{
			name: "timestamp survives",
			in:   "https://example.com/watch?t=42&v=abc&fbclid=zzz",
			want: "https://example.com/watch?v=abc&t=42",
		},
		{
			name: "fragment dropped",
			in:   "https://example.com/watch?v=abc#t=10",
			want: "https://example.com/watch?v=abc",
		},
		{
			name: "host lowercased",
			in:   "https://EXAMPLE.com/clip",
			want: "https://example.com/clip",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalizer{KeepPlaylist: tt.keepList}.Normalize(tt.in)
			if err != nil {
				t.Fatalf("Normalize(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"https://example.com/watch?v=abc123&list=PL1&utm_source=x",
		"https://example.com/watch?t=30&v=xyz",
		"https://example.com/plain",
	}

	for _, in := range inputs {
		once, err := Normalize(in)
		if err != nil {
			t.Fatalf("Normalize(%q) error: %v", in, err)
		}
		twice, err := Normalize(once)
		if err != nil {
			t.Fatalf("Normalize(%q) error: %v", once, err)
		}
		if once != twice {
			t.Errorf("not idempotent: %q -> %q -> %q", in, once, twice)
		}
	}
}

func TestNormalize_Rejects(t *testing.T) {
	tests := []struct {
		in      string
		wantErr error
	}{
		{"", ErrEmptyURL},
		{"   ", ErrEmptyURL},
		{"ftp://example.com/file", ErrBadScheme},
		{"not a url at all", ErrBadScheme},
		{"https://", ErrInvalidURL},
	}

	for _, tt := range tests {
		if _, err := Normalize(tt.in); err != tt.wantErr {
			t.Errorf("Normalize(%q) error = %v, want %v", tt.in, err, tt.wantErr)
		}
	}
}
