package docintel

import (
	"testing"
)

func TestValidCategory(t *testing.T) {
	tests := []struct {
		hint string
		want bool
	}{
		{CategoryBankStatement, true},
		{CategoryInvoice, true},
		{CategoryFinancialStatement, true},
		{CategoryOther, true},
		{"tax_w2", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := ValidCategory(tt.hint); got != tt.want {
			t.Errorf("ValidCategory(%q) = %v, want %v", tt.hint, got, tt.want)
		}
	}
}

func TestNormalizeField(t *testing.T) {
	tests := []struct {
		name       string
		field      fieldResult
		wantKind   string
		wantAmount float64
		wantText   string
	}{
		{
			name:       "currency with valueCurrency",
			field:      fieldResult{Type: "currency", ValueCurrency: &currencyValue{Amount: 1550000}, Confidence: 0.98},
			wantKind:   "amount",
			wantAmount: 1550000,
		},
		{
			name:       "plain number",
			field:      fieldResult{Type: "number", ValueNumber: 42, Confidence: 0.9},
			wantKind:   "amount",
			wantAmount: 42,
		},
		{
			name:     "date",
			field:    fieldResult{Type: "date", ValueDate: "2026-01-31"},
			wantKind: "date",
			wantText: "2026-01-31",
		},
		{
			name:     "string",
			field:    fieldResult{Type: "string", ValueString: "First National Bank"},
			wantKind: "text",
			wantText: "First National Bank",
		},
		{
			name:     "untyped falls back to content",
			field:    fieldResult{Content: "misc"},
			wantKind: "text",
			wantText: "misc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeField(tt.field)
			if got.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", got.Kind, tt.wantKind)
			}
			if got.Amount != tt.wantAmount {
				t.Errorf("Amount = %v, want %v", got.Amount, tt.wantAmount)
			}
			if tt.wantText != "" && got.Text != tt.wantText {
				t.Errorf("Text = %q, want %q", got.Text, tt.wantText)
			}
		})
	}
}
