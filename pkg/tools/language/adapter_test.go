package language

import "testing"

func TestSentimentConfidence(t *testing.T) {
	tests := []struct {
		name  string
		label string
		want  float64
	}{
		{"positive", SentimentPositive, 0.7},
		{"neutral", SentimentNeutral, 0.2},
		{"negative", SentimentNegative, 0.1},
		{"mixed picks strongest", SentimentMixed, 0.7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sentimentConfidence(tt.label, 0.7, 0.2, 0.1)
			if got != tt.want {
				t.Errorf("sentimentConfidence(%s) = %v, want %v", tt.label, got, tt.want)
			}
		})
	}
}
