package predict_test

import (
	"testing"

	"github.com/jpfielding/jpegls-codec/internal/predict"
)

func TestMED(t *testing.T) {
	tests := []struct {
		name       string
		a, b, c    int
		wantResult int
	}{
		{"c above max picks min", 10, 20, 30, 10},
		{"c below min picks max", 10, 20, 5, 20},
		{"plane fit", 10, 20, 15, 15},
		{"flat region", 7, 7, 7, 7},
		{"c equals a and b equal", 5, 5, 5, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := predict.MED(tt.a, tt.b, tt.c); got != tt.wantResult {
				t.Errorf("MED(%d,%d,%d) = %d, want %d", tt.a, tt.b, tt.c, got, tt.wantResult)
			}
		})
	}
}

func TestClip(t *testing.T) {
	if got := predict.Clip(-5, 0, 255); got != 0 {
		t.Errorf("Clip(-5,0,255) = %d, want 0", got)
	}
	if got := predict.Clip(300, 0, 255); got != 255 {
		t.Errorf("Clip(300,0,255) = %d, want 255", got)
	}
	if got := predict.Clip(100, 0, 255); got != 100 {
		t.Errorf("Clip(100,0,255) = %d, want 100", got)
	}
}
