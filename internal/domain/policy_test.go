package domain

import "testing"

func TestScoreWeightsSumTo100(t *testing.T) {
	if got := DefaultScoreWeights().Sum(); got != 100 {
		t.Fatalf("expected weights to sum to 100, got %d", got)
	}
}

func TestWeightedTotal(t *testing.T) {
	w := DefaultScoreWeights()

	tests := []struct {
		name string
		snap HealthScoreSnapshot
		want int
	}{
		{
			name: "uniform 90 stays 90",
			snap: HealthScoreSnapshot{
				Liquidity: 90, FiscalCompliance: 90, ClientDiversification: 90,
				RevenueTrend: 90, OperatingMargin: 90, Seasonality: 90,
				ReceivablesAging: 90, SupplierRisk: 90,
			},
			want: 90,
		},
		{
			name: "all zero",
			snap: HealthScoreSnapshot{},
			want: 0,
		},
		{
			name: "all hundred",
			snap: HealthScoreSnapshot{
				Liquidity: 100, FiscalCompliance: 100, ClientDiversification: 100,
				RevenueTrend: 100, OperatingMargin: 100, Seasonality: 100,
				ReceivablesAging: 100, SupplierRisk: 100,
			},
			want: 100,
		},
		{
			name: "mixed rounds half up",
			snap: HealthScoreSnapshot{
				Liquidity: 88, FiscalCompliance: 92, ClientDiversification: 80,
				RevenueTrend: 85, OperatingMargin: 78, Seasonality: 82,
				ReceivablesAging: 90, SupplierRisk: 84,
			},
			// 88*20+92*20+80*15+85*15+78*10+82*10+90*5+84*5 = 8545
			want: 85,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := WeightedTotal(&tc.snap, w); got != tc.want {
				t.Errorf("WeightedTotal = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestClassifyConcentration(t *testing.T) {
	p := DefaultSemaphorePolicy()

	tests := []struct {
		share float64
		want  Severity
	}{
		{0, SeverityGreen},
		{19.9, SeverityGreen},
		{20.0, SeverityYellow},
		{31.9, SeverityYellow},
		{32.0, SeverityRed},
		{100, SeverityRed},
	}
	for _, tc := range tests {
		if got := p.ClassifyConcentration(tc.share); got != tc.want {
			t.Errorf("ClassifyConcentration(%.1f) = %s, want %s", tc.share, got, tc.want)
		}
	}
}

func TestClassifyCancellation(t *testing.T) {
	p := DefaultSemaphorePolicy()

	tests := []struct {
		rate float64
		want Severity
	}{
		{0, SeverityGreen},
		{0.9, SeverityGreen},
		{1.0, SeverityYellow},
		{5.0, SeverityYellow},
		{5.1, SeverityRed},
	}
	for _, tc := range tests {
		if got := p.ClassifyCancellation(tc.rate); got != tc.want {
			t.Errorf("ClassifyCancellation(%.1f) = %s, want %s", tc.rate, got, tc.want)
		}
	}
}

func TestMaxSeverity(t *testing.T) {
	if got := MaxSeverity(SeverityGreen, SeverityYellow); got != SeverityYellow {
		t.Errorf("MaxSeverity(green, yellow) = %s", got)
	}
	if got := MaxSeverity(SeverityRed, SeverityYellow); got != SeverityRed {
		t.Errorf("MaxSeverity(red, yellow) = %s", got)
	}
	if got := MaxSeverity(SeverityGreen, SeverityGreen); got != SeverityGreen {
		t.Errorf("MaxSeverity(green, green) = %s", got)
	}
}

func TestParseAlertContext(t *testing.T) {
	if ctx := ParseAlertContext(""); ctx != nil {
		t.Errorf("empty blob should parse to nil, got %+v", ctx)
	}
	if ctx := ParseAlertContext("{not json"); ctx != nil {
		t.Errorf("malformed blob should parse to nil, got %+v", ctx)
	}
	ctx := ParseAlertContext(`{"example":"F-102","recommended_action":"revisar"}`)
	if ctx == nil || ctx.Example != "F-102" || ctx.RecommendedAction != "revisar" {
		t.Errorf("unexpected context: %+v", ctx)
	}
}

func TestProfileForFallsBackToDefault(t *testing.T) {
	pol := DefaultForecastPolicy()
	known := pol.ProfileFor(ClassStable)
	if known.Income[0] != 1.02 {
		t.Errorf("stable profile income[0] = %v, want 1.02", known.Income[0])
	}
	fallback := pol.ProfileFor("unclassified")
	if fallback != pol.Profiles[pol.DefaultProfile] {
		t.Errorf("unknown classification should use the default profile")
	}
}
