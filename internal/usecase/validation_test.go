package usecase

import "testing"

func TestValidatePhone(t *testing.T) {
	cases := []struct {
		phone string
		valid bool
	}{
		{"254712345678", true},
		{"254112345678", true},
		{"0712345678", false},
		{"+254712345678", false},
		{"25471234567", false},
		{"2547123456789", false},
		{"254a12345678", false},
		{"", false},
	}

	for _, tc := range cases {
		if got := ValidatePhone(tc.phone); got != tc.valid {
			t.Fatalf("ValidatePhone(%q) = %v, want %v", tc.phone, got, tc.valid)
		}
	}
}
