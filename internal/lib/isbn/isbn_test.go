package isbn

import "testing"

func TestValid_TableTests(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{
			name: "valid isbn-10 with hyphens",
			raw:  "0-306-40615-2",
			want: true,
		},
		{
			name: "invalid isbn-10 checksum",
			raw:  "0-306-40615-3",
			want: false,
		},
		{
			name: "valid isbn-10 with X check digit",
			raw:  "097522980X",
			want: true,
		},
		{
			name: "valid isbn-13",
			raw:  "978-0-306-40615-7",
			want: true,
		},
		{
			name: "invalid isbn-13 checksum",
			raw:  "978-0-306-40615-8",
			want: false,
		},
		{
			name: "wrong length",
			raw:  "12345",
			want: false,
		},
		{
			name: "empty string",
			raw:  "",
			want: false,
		},
		{
			name: "X in the middle of isbn-10",
			raw:  "0X0640615-2",
			want: false,
		},
		{
			name: "isbn-13 with X is never valid",
			raw:  "978030640615X",
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Valid(tt.raw)
			if got != tt.want {
				t.Errorf("Valid(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   string
		wantOK bool
	}{
		{
			name:   "isbn-10 canonical form",
			raw:    "0306406152",
			want:   "0-306-40615-2",
			wantOK: true,
		},
		{
			name:   "isbn-13 canonical form",
			raw:    "9780306406157",
			want:   "978-0-306-40615-7",
			wantOK: true,
		},
		{
			name:   "invalid number yields no format",
			raw:    "0306406153",
			want:   "",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Format(tt.raw)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Format(%q) = (%q, %v), want (%q, %v)", tt.raw, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
