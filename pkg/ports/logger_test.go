package ports

import "testing"

func TestLookupLogLevel(t *testing.T) {
	tests := []struct {
		in     string
		want   LogLevel
		wantOK bool
	}{
		{"debug", LevelDebug, true},
		{"INFO", LevelInfo, true},
		{" warning ", LevelWarn, true},
		{"error", LevelError, true},
		{"quiet", LevelQuiet, true},
		{"verbose", LevelInfo, false},
		{"", LevelInfo, false},
	}

	for _, tt := range tests {
		got, ok := LookupLogLevel(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("LookupLogLevel(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
	if ParseLogLevel("verbose") != LevelInfo {
		t.Error("unknown level should parse as info")
	}
}
