package analysis

import (
	"math"
	"reflect"
	"testing"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func checkSeries(t *testing.T, name string, got, want []float64, tol float64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: length %d, want %d", name, len(got), len(want))
	}
	for i := range want {
		if math.IsNaN(want[i]) {
			if !math.IsNaN(got[i]) {
				t.Errorf("%s[%d] = %v, want NaN", name, i, got[i])
			}
			continue
		}
		if math.IsNaN(got[i]) || !almostEqual(got[i], want[i], tol) {
			t.Errorf("%s[%d] = %v, want %v", name, i, got[i], want[i])
		}
	}
}

func TestSMA(t *testing.T) {
	got := SMA([]float64{1, 2, 3, 4, 5}, 3)
	checkSeries(t, "SMA", got, []float64{nan, nan, 2, 3, 4}, 1e-12)
}

func TestSMAInsufficientData(t *testing.T) {
	got := SMA([]float64{1, 2}, 3)
	checkSeries(t, "SMA", got, []float64{nan, nan}, 0)
}

func TestEMA(t *testing.T) {
	// Seeded with the simple average of the first window, then k=0.5.
	got := EMA([]float64{1, 2, 3, 4, 5}, 3)
	checkSeries(t, "EMA", got, []float64{nan, nan, 2, 3, 4}, 1e-12)
}

func TestEMASkipsLeadingNaN(t *testing.T) {
	in := []float64{nan, nan, 1, 2, 3, 4}
	got := EMA(in, 3)
	checkSeries(t, "EMA", got, []float64{nan, nan, nan, nan, 2, 3}, 1e-12)
}

func TestStdDevPopulation(t *testing.T) {
	in := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	got := StdDev(in, 8)
	if !almostEqual(got[7], 2.0, 1e-12) {
		t.Errorf("StdDev = %v, want 2.0", got[7])
	}
}

func TestBollingerBandsConstantSeries(t *testing.T) {
	in := make([]float64, 25)
	for i := range in {
		in[i] = 50
	}
	upper, middle, lower := BollingerBands(in, 20, 2.0)
	last := len(in) - 1
	if upper[last] != 50 || middle[last] != 50 || lower[last] != 50 {
		t.Errorf("bands on constant series = %v/%v/%v, want 50/50/50",
			upper[last], middle[last], lower[last])
	}
}

func TestWilliamsR(t *testing.T) {
	high := []float64{10, 12}
	low := []float64{8, 8}
	close := []float64{9, 9}
	got := WilliamsR(high, low, close, 2)
	// (12-9)/(12-8) * -100
	if !almostEqual(got[1], -75, 1e-12) {
		t.Errorf("WilliamsR = %v, want -75", got[1])
	}
}

func TestWilliamsRFlatRangeIsZero(t *testing.T) {
	flat := []float64{5, 5, 5}
	got := WilliamsR(flat, flat, flat, 3)
	if got[2] != 0 {
		t.Errorf("WilliamsR on flat range = %v, want 0", got[2])
	}
}

func TestRSIAllGains(t *testing.T) {
	close := make([]float64, 15)
	for i := range close {
		close[i] = float64(i + 1)
	}
	got := RSI(close, 14)
	if !almostEqual(got[14], 100, 1e-12) {
		t.Errorf("RSI of monotonic gains = %v, want 100", got[14])
	}
}

func TestRSIFlatSeries(t *testing.T) {
	close := make([]float64, 20)
	for i := range close {
		close[i] = 42
	}
	got := RSI(close, 14)
	if got[19] != 0 {
		t.Errorf("RSI of flat series = %v, want 0", got[19])
	}
}

func TestMACDConstantSeries(t *testing.T) {
	close := make([]float64, 40)
	for i := range close {
		close[i] = 50
	}
	macd, signal, hist := MACD(close, 12, 26, 9)
	last := len(close) - 1
	if macd[last] != 0 || signal[last] != 0 || hist[last] != 0 {
		t.Errorf("MACD on constant series = %v/%v/%v, want zeros",
			macd[last], signal[last], hist[last])
	}
	// The signal line warms up 9 periods after the MACD line appears.
	if !math.IsNaN(signal[26]) {
		t.Errorf("signal[26] = %v, want NaN during warm-up", signal[26])
	}
}

func TestStochastic(t *testing.T) {
	high := []float64{2, 3, 4, 5, 6}
	low := []float64{0, 1, 2, 3, 4}
	close := []float64{1, 2, 3, 4, 5}
	slowK, slowD := Stochastic(high, low, close, 3, 1, 1)
	for i := 2; i < 5; i++ {
		if !almostEqual(slowK[i], 75, 1e-12) {
			t.Errorf("slowK[%d] = %v, want 75", i, slowK[i])
		}
		if !almostEqual(slowD[i], 75, 1e-12) {
			t.Errorf("slowD[%d] = %v, want 75", i, slowD[i])
		}
	}
}

func TestROC(t *testing.T) {
	got := ROC([]float64{10, 11}, 1)
	if !almostEqual(got[1], 10, 1e-12) {
		t.Errorf("ROC = %v, want 10", got[1])
	}
}

func TestCCIFlatSeriesIsZero(t *testing.T) {
	flat := []float64{5, 5, 5}
	got := CCI(flat, flat, flat, 3)
	if got[2] != 0 {
		t.Errorf("CCI on flat series = %v, want 0", got[2])
	}
}

func TestATRWilderSeed(t *testing.T) {
	high := []float64{10, 11, 12}
	low := []float64{9, 10, 11}
	close := []float64{9.5, 10.5, 11.5}
	got := ATR(high, low, close, 2)
	// tr[1]=1.5, tr[2]=1.5; first ATR is their plain average.
	if !almostEqual(got[2], 1.5, 1e-12) {
		t.Errorf("ATR = %v, want 1.5", got[2])
	}
}

func TestOBV(t *testing.T) {
	close := []float64{10, 11, 10, 10}
	volume := []float64{100, 50, 30, 20}
	got := OBV(close, volume)
	checkSeries(t, "OBV", got, []float64{100, 150, 120, 120}, 1e-12)
}

func TestRollingMaxMinPeriods(t *testing.T) {
	got := RollingMax([]float64{1, 5, 2, 4}, 3, 1)
	checkSeries(t, "RollingMax", got, []float64{1, 5, 5, 5}, 1e-12)
}

func TestRollingMinPartialWindow(t *testing.T) {
	got := RollingMin([]float64{3, 1, 2}, 252, 1)
	checkSeries(t, "RollingMin", got, []float64{3, 1, 1}, 1e-12)
}

func TestPctChange(t *testing.T) {
	got := PctChange([]float64{100, 110})
	if !math.IsNaN(got[0]) {
		t.Errorf("PctChange[0] = %v, want NaN", got[0])
	}
	if !almostEqual(got[1], 0.1, 1e-12) {
		t.Errorf("PctChange[1] = %v, want 0.1", got[1])
	}
}

func TestRollingStdSample(t *testing.T) {
	got := rollingStdSample([]float64{1, 3}, 2)
	if !almostEqual(got[1], math.Sqrt2, 1e-12) {
		t.Errorf("rollingStdSample = %v, want sqrt(2)", got[1])
	}
}

func TestRollingStdSampleRequiresFullWindow(t *testing.T) {
	got := rollingStdSample([]float64{nan, 1, 3}, 2)
	if !math.IsNaN(got[1]) {
		t.Errorf("window containing NaN should be NaN, got %v", got[1])
	}
	if !almostEqual(got[2], math.Sqrt2, 1e-12) {
		t.Errorf("rollingStdSample = %v, want sqrt(2)", got[2])
	}
}

// syntheticSeries builds a deterministic wavy uptrend long enough for every
// indicator warm-up window.
func syntheticSeries(n int) Series {
	s := Series{
		Dates:  make([]string, n),
		Open:   make([]float64, n),
		High:   make([]float64, n),
		Low:    make([]float64, n),
		Close:  make([]float64, n),
		Volume: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		c := 100 + 10*math.Sin(float64(i)/7) + float64(i)*0.05
		s.Dates[i] = "2025-01-01"
		s.Open[i] = c
		s.High[i] = c + 1
		s.Low[i] = c - 1
		s.Close[i] = c
		s.Volume[i] = 1e6 + float64(i)*1000
	}
	s.Dates[n-1] = "2025-12-31"
	return s
}

func TestComputeFullHistoryDefinesEveryIndicator(t *testing.T) {
	snap := Compute(syntheticSeries(250))

	if snap.Date != "2025-12-31" {
		t.Errorf("Date = %q, want last row's date", snap.Date)
	}

	v := reflect.ValueOf(snap)
	typ := v.Type()
	for i := 0; i < v.NumField(); i++ {
		if v.Field(i).Kind() != reflect.Float64 {
			continue
		}
		if math.IsNaN(v.Field(i).Float()) {
			t.Errorf("%s is NaN with 250 rows of history", typ.Field(i).Name)
		}
	}

	if snap.RSI14 < 0 || snap.RSI14 > 100 {
		t.Errorf("RSI14 = %v, out of [0,100]", snap.RSI14)
	}
	if snap.StochK < 0 || snap.StochK > 100 {
		t.Errorf("StochK = %v, out of [0,100]", snap.StochK)
	}
	if snap.Range52WPosition < 0 || snap.Range52WPosition > 100 {
		t.Errorf("Range52WPosition = %v, out of [0,100]", snap.Range52WPosition)
	}
}

func TestComputeSMA20MatchesTailMean(t *testing.T) {
	s := syntheticSeries(250)
	snap := Compute(s)

	sum := 0.0
	for _, c := range s.Close[230:] {
		sum += c
	}
	want := sum / 20
	if !almostEqual(snap.SMA20, want, 1e-6) {
		t.Errorf("SMA20 = %v, want %v", snap.SMA20, want)
	}
}

func TestComputeShortHistoryLeavesWarmupsUndefined(t *testing.T) {
	snap := Compute(syntheticSeries(50))
	if !math.IsNaN(snap.SMA200) {
		t.Errorf("SMA200 = %v with 50 rows, want NaN", snap.SMA200)
	}
	if !math.IsNaN(snap.EMA200) {
		t.Errorf("EMA200 = %v with 50 rows, want NaN", snap.EMA200)
	}
	if math.IsNaN(snap.SMA20) {
		t.Error("SMA20 should be defined with 50 rows")
	}
	// 52-week extremes use a minimum observation count of one row.
	if math.IsNaN(snap.High52W) || math.IsNaN(snap.Low52W) {
		t.Error("52-week extremes should be defined with partial history")
	}
}
