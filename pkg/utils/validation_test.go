package utils

import (
	"strings"
	"testing"
)

func TestIsId(t *testing.T) {
	valid := []string{"device_001", "Patrick", "60-6b-44-84-dc-64", "aa:bb:cc:dd:ee:ff", "a", "sensor.7", strings.Repeat("x", 128)}
	for _, id := range valid {
		if !IsId(id) {
			t.Errorf("expected %q to be valid", id)
		}
	}

	invalid := []string{"", "_leading", "-dash", "has space", "slash/inside", "#", "+", strings.Repeat("x", 129)}
	for _, id := range invalid {
		if IsId(id) {
			t.Errorf("expected %q to be invalid", id)
		}
	}
}
