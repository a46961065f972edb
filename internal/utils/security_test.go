package utils

import "testing"

func TestMaskPhoneNumber(t *testing.T) {
	tests := []struct {
		name     string
		phone    string
		expected string
	}{
		{
			name:     "International number",
			phone:    "+15551230000",
			expected: "+15****0000",
		},
		{
			name:     "Exactly 6 characters",
			phone:    "123456",
			expected: "****",
		},
		{
			name:     "7 characters",
			phone:    "+123456",
			expected: "+12****3456",
		},
		{
			name:     "Empty string",
			phone:    "",
			expected: "****",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := MaskPhoneNumber(tt.phone)
			if result != tt.expected {
				t.Errorf("MaskPhoneNumber(%q) = %q, want %q", tt.phone, result, tt.expected)
			}
		})
	}
}
