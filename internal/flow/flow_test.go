package flow

import "testing"

func TestIsEmergencyUtterance(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		utterance string
		want      bool
	}{
		{"someone is threatening me", true},
		{"they sent a ransom demand", true},
		{"please help now", true},
		{"I am in danger", true},
		{"no, not right now", false},
		{"nothing is happening now", false},
		{"I run a transferring business", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := cfg.IsEmergencyUtterance(tt.utterance); got != tt.want {
			t.Errorf("IsEmergencyUtterance(%q) = %v, want %v", tt.utterance, got, tt.want)
		}
	}
}

func TestIsEmergencyUtterance_ExtraKeywords(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ExtraEmergencyKeywords = []string{"swatting", "at gunpoint"}
	if !cfg.IsEmergencyUtterance("there was a swatting attempt") {
		t.Error("extra single-word keyword not matched")
	}
	if !cfg.IsEmergencyUtterance("he is holding me at gunpoint") {
		t.Error("extra phrase keyword not matched")
	}
	if cfg.IsEmergencyUtterance("gunpoint") {
		t.Error("partial phrase keyword should not match")
	}
}
