package analysis

import "math"

// Series is a chronologically ordered (oldest first) daily OHLCV series for
// one symbol. All slices have equal length.
type Series struct {
	Dates  []string
	Open   []float64
	High   []float64
	Low    []float64
	Close  []float64
	Volume []float64
}

// Len returns the number of rows in the series.
func (s Series) Len() int { return len(s.Close) }

// Snapshot holds the latest-row value of every indicator computed over the
// full series. NaN marks a value that is undefined for the latest row
// (warm-up window not yet filled, or a zero-denominator division).
type Snapshot struct {
	Date   string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64

	WilliamsR14    float64
	WilliamsR21    float64
	EMA13WilliamsR float64
	RSI14          float64
	RSI21          float64
	MACD           float64
	MACDSignal     float64
	MACDHist       float64
	StochK         float64
	StochD         float64
	ROC10          float64
	ROC20          float64
	CCI14          float64
	CCI20          float64
	MFI14          float64

	EMA9    float64
	EMA20   float64
	EMA50   float64
	EMA200  float64
	SMA20   float64
	SMA50   float64
	SMA200  float64
	ADX14   float64
	PlusDI  float64
	MinusDI float64
	SAR     float64

	ATR14            float64
	ATR20            float64
	BBUpper          float64
	BBMiddle         float64
	BBLower          float64
	StdDev20         float64
	BBWidth          float64
	ATRPct           float64
	HistVolatility20 float64

	OBV            float64
	AD             float64
	ADOSC          float64
	VolumeMA20     float64
	VolumeMA50     float64
	RelativeVolume float64

	PriceVsSMA20Pct  float64
	PriceVsSMA50Pct  float64
	PriceVsSMA200Pct float64
	BBPosition       float64
	High52W          float64
	Low52W           float64
	PctFrom52WHigh   float64
	PctFrom52WLow    float64
	Range52WPosition float64
}

var nan = math.NaN()

// Compute calculates the full indicator set over the whole series, oldest to
// newest, and returns the values aligned with the latest row. Windowed and
// recursively smoothed indicators must see the entire history before the
// latest row is sliced; computing them on a truncated tail gives different
// numbers.
func Compute(s Series) Snapshot {
	n := s.Len()
	last := n - 1

	willr14 := WilliamsR(s.High, s.Low, s.Close, 14)
	willr21 := WilliamsR(s.High, s.Low, s.Close, 21)
	emaWillr := EMA(willr21, 13)
	rsi14 := RSI(s.Close, 14)
	rsi21 := RSI(s.Close, 21)
	macd, macdSignal, macdHist := MACD(s.Close, 12, 26, 9)
	stochK, stochD := Stochastic(s.High, s.Low, s.Close, 14, 3, 3)
	roc10 := ROC(s.Close, 10)
	roc20 := ROC(s.Close, 20)
	cci14 := CCI(s.High, s.Low, s.Close, 14)
	cci20 := CCI(s.High, s.Low, s.Close, 20)
	mfi14 := MFI(s.High, s.Low, s.Close, s.Volume, 14)

	ema9 := EMA(s.Close, 9)
	ema20 := EMA(s.Close, 20)
	ema50 := EMA(s.Close, 50)
	ema200 := EMA(s.Close, 200)
	sma20 := SMA(s.Close, 20)
	sma50 := SMA(s.Close, 50)
	sma200 := SMA(s.Close, 200)
	adx14 := ADX(s.High, s.Low, s.Close, 14)
	plusDI := PlusDI(s.High, s.Low, s.Close, 14)
	minusDI := MinusDI(s.High, s.Low, s.Close, 14)
	sar := SAR(s.High, s.Low, 0.02, 0.2)

	atr14 := ATR(s.High, s.Low, s.Close, 14)
	atr20 := ATR(s.High, s.Low, s.Close, 20)
	bbUpper, bbMiddle, bbLower := BollingerBands(s.Close, 20, 2.0)
	stddev20 := StdDev(s.Close, 20)

	obv := OBV(s.Close, s.Volume)
	ad := AD(s.High, s.Low, s.Close, s.Volume)
	adosc := ADOSC(s.High, s.Low, s.Close, s.Volume, 3, 10)
	volMA20 := SMA(s.Volume, 20)
	volMA50 := SMA(s.Volume, 50)

	high52w := RollingMax(s.High, 252, 1)
	low52w := RollingMin(s.Low, 252, 1)

	returns := PctChange(s.Close)
	histVol := rollingStdSample(returns, 20)

	snap := Snapshot{
		Date:   s.Dates[last],
		Open:   s.Open[last],
		High:   s.High[last],
		Low:    s.Low[last],
		Close:  s.Close[last],
		Volume: s.Volume[last],

		WilliamsR14:    willr14[last],
		WilliamsR21:    willr21[last],
		EMA13WilliamsR: emaWillr[last],
		RSI14:          rsi14[last],
		RSI21:          rsi21[last],
		MACD:           macd[last],
		MACDSignal:     macdSignal[last],
		MACDHist:       macdHist[last],
		StochK:         stochK[last],
		StochD:         stochD[last],
		ROC10:          roc10[last],
		ROC20:          roc20[last],
		CCI14:          cci14[last],
		CCI20:          cci20[last],
		MFI14:          mfi14[last],

		EMA9:    ema9[last],
		EMA20:   ema20[last],
		EMA50:   ema50[last],
		EMA200:  ema200[last],
		SMA20:   sma20[last],
		SMA50:   sma50[last],
		SMA200:  sma200[last],
		ADX14:   adx14[last],
		PlusDI:  plusDI[last],
		MinusDI: minusDI[last],
		SAR:     sar[last],

		ATR14:    atr14[last],
		ATR20:    atr20[last],
		BBUpper:  bbUpper[last],
		BBMiddle: bbMiddle[last],
		BBLower:  bbLower[last],
		StdDev20: stddev20[last],

		OBV:        obv[last],
		AD:         ad[last],
		ADOSC:      adosc[last],
		VolumeMA20: volMA20[last],
		VolumeMA50: volMA50[last],

		High52W: high52w[last],
		Low52W:  low52w[last],
	}

	close := snap.Close

	// Percent and position metrics derived from the already-computed rows.
	snap.BBWidth = pctRatio(snap.BBUpper-snap.BBLower, snap.BBMiddle)
	snap.ATRPct = pctRatio(snap.ATR14, close)
	snap.PriceVsSMA20Pct = pctRatio(close-snap.SMA20, snap.SMA20)
	snap.PriceVsSMA50Pct = pctRatio(close-snap.SMA50, snap.SMA50)
	snap.PriceVsSMA200Pct = pctRatio(close-snap.SMA200, snap.SMA200)
	snap.BBPosition = pctRatio(close-snap.BBLower, snap.BBUpper-snap.BBLower)
	snap.RelativeVolume = ratio(snap.Volume, snap.VolumeMA20)
	snap.PctFrom52WHigh = pctRatio(close-snap.High52W, snap.High52W)
	snap.PctFrom52WLow = pctRatio(close-snap.Low52W, snap.Low52W)
	snap.Range52WPosition = pctRatio(close-snap.Low52W, snap.High52W-snap.Low52W)

	if v := histVol[last]; !math.IsNaN(v) {
		snap.HistVolatility20 = v * math.Sqrt(252) * 100
	} else {
		snap.HistVolatility20 = nan
	}

	return snap
}

// pctRatio returns num/den*100, or NaN when the ratio is undefined.
func pctRatio(num, den float64) float64 {
	r := ratio(num, den)
	if math.IsNaN(r) {
		return nan
	}
	return r * 100
}

// ratio returns num/den, or NaN when den is zero or either side is not finite.
func ratio(num, den float64) float64 {
	if den == 0 || math.IsNaN(num) || math.IsNaN(den) || math.IsInf(num, 0) || math.IsInf(den, 0) {
		return nan
	}
	return num / den
}

// firstValid returns the first index at which every input slice holds a
// finite value, or -1 if there is none. Leading NaN warm-up prefixes from
// upstream indicators are skipped this way, matching how chained indicator
// pipelines treat their inputs.
func firstValid(series ...[]float64) int {
	if len(series) == 0 || len(series[0]) == 0 {
		return -1
	}
	n := len(series[0])
	for i := 0; i < n; i++ {
		ok := true
		for _, s := range series {
			if math.IsNaN(s[i]) {
				ok = false
				break
			}
		}
		if ok {
			return i
		}
	}
	return -1
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = nan
	}
	return out
}

// SMA computes a simple moving average series.
func SMA(values []float64, period int) []float64 {
	n := len(values)
	out := nanSlice(n)
	beg := firstValid(values)
	if beg < 0 || n-beg < period {
		return out
	}
	sum := 0.0
	for i := beg; i < n; i++ {
		sum += values[i]
		if i-beg >= period {
			sum -= values[i-period]
		}
		if i-beg >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// EMA computes an exponential moving average series, seeded with the simple
// average of the first full window.
func EMA(values []float64, period int) []float64 {
	n := len(values)
	out := nanSlice(n)
	beg := firstValid(values)
	if beg < 0 || n-beg < period {
		return out
	}

	sum := 0.0
	for i := beg; i < beg+period; i++ {
		sum += values[i]
	}
	ema := sum / float64(period)
	out[beg+period-1] = ema

	k := 2.0 / float64(period+1)
	for i := beg + period; i < n; i++ {
		ema = (values[i]-ema)*k + ema
		out[i] = ema
	}
	return out
}

// StdDev computes a rolling population standard deviation series.
func StdDev(values []float64, period int) []float64 {
	n := len(values)
	out := nanSlice(n)
	beg := firstValid(values)
	if beg < 0 || n-beg < period {
		return out
	}
	for i := beg + period - 1; i < n; i++ {
		mean := 0.0
		for j := i - period + 1; j <= i; j++ {
			mean += values[j]
		}
		mean /= float64(period)
		variance := 0.0
		for j := i - period + 1; j <= i; j++ {
			d := values[j] - mean
			variance += d * d
		}
		out[i] = math.Sqrt(variance / float64(period))
	}
	return out
}

// BollingerBands computes upper/middle/lower bands: SMA(period) +/- width
// population standard deviations.
func BollingerBands(values []float64, period int, width float64) (upper, middle, lower []float64) {
	middle = SMA(values, period)
	sd := StdDev(values, period)
	n := len(values)
	upper = nanSlice(n)
	lower = nanSlice(n)
	for i := 0; i < n; i++ {
		if !math.IsNaN(middle[i]) && !math.IsNaN(sd[i]) {
			upper[i] = middle[i] + width*sd[i]
			lower[i] = middle[i] - width*sd[i]
		}
	}
	return upper, middle, lower
}

// WilliamsR computes the Williams %R oscillator series.
func WilliamsR(high, low, close []float64, period int) []float64 {
	n := len(close)
	out := nanSlice(n)
	beg := firstValid(high, low, close)
	if beg < 0 || n-beg < period {
		return out
	}
	for i := beg + period - 1; i < n; i++ {
		hh, ll := high[i], low[i]
		for j := i - period + 1; j <= i; j++ {
			if high[j] > hh {
				hh = high[j]
			}
			if low[j] < ll {
				ll = low[j]
			}
		}
		if hh == ll {
			out[i] = 0
			continue
		}
		out[i] = (hh - close[i]) / (hh - ll) * -100
	}
	return out
}

// RSI computes the Wilder-smoothed relative strength index series.
func RSI(close []float64, period int) []float64 {
	n := len(close)
	out := nanSlice(n)
	beg := firstValid(close)
	if beg < 0 || n-beg < period+1 {
		return out
	}

	var avgGain, avgLoss float64
	for i := beg + 1; i <= beg+period; i++ {
		change := close[i] - close[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[beg+period] = rsiValue(avgGain, avgLoss)

	for i := beg + period + 1; i < n; i++ {
		change := close[i] - close[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	total := avgGain + avgLoss
	if total == 0 {
		return 0
	}
	return 100 * avgGain / total
}

// MACD computes the MACD line (fast EMA - slow EMA), its signal line, and the
// histogram.
func MACD(close []float64, fast, slow, signal int) (macd, signalLine, hist []float64) {
	n := len(close)
	emaFast := EMA(close, fast)
	emaSlow := EMA(close, slow)

	macd = nanSlice(n)
	for i := 0; i < n; i++ {
		if !math.IsNaN(emaFast[i]) && !math.IsNaN(emaSlow[i]) {
			macd[i] = emaFast[i] - emaSlow[i]
		}
	}

	signalLine = EMA(macd, signal)

	hist = nanSlice(n)
	for i := 0; i < n; i++ {
		if !math.IsNaN(macd[i]) && !math.IsNaN(signalLine[i]) {
			hist[i] = macd[i] - signalLine[i]
		}
	}
	return macd, signalLine, hist
}

// Stochastic computes the slow stochastic oscillator (%K smoothed by an SMA,
// %D an SMA of the smoothed %K).
func Stochastic(high, low, close []float64, fastKPeriod, slowKPeriod, slowDPeriod int) (slowK, slowD []float64) {
	n := len(close)
	fastK := nanSlice(n)
	beg := firstValid(high, low, close)
	if beg >= 0 && n-beg >= fastKPeriod {
		for i := beg + fastKPeriod - 1; i < n; i++ {
			hh, ll := high[i], low[i]
			for j := i - fastKPeriod + 1; j <= i; j++ {
				if high[j] > hh {
					hh = high[j]
				}
				if low[j] < ll {
					ll = low[j]
				}
			}
			if hh == ll {
				fastK[i] = 0
				continue
			}
			fastK[i] = (close[i] - ll) / (hh - ll) * 100
		}
	}
	slowK = SMA(fastK, slowKPeriod)
	slowD = SMA(slowK, slowDPeriod)
	return slowK, slowD
}

// ROC computes the rate-of-change series as a percentage.
func ROC(close []float64, period int) []float64 {
	n := len(close)
	out := nanSlice(n)
	beg := firstValid(close)
	if beg < 0 {
		return out
	}
	for i := beg + period; i < n; i++ {
		prev := close[i-period]
		if prev == 0 {
			out[i] = 0
			continue
		}
		out[i] = (close[i]/prev - 1) * 100
	}
	return out
}

// CCI computes the commodity channel index series.
func CCI(high, low, close []float64, period int) []float64 {
	n := len(close)
	out := nanSlice(n)
	beg := firstValid(high, low, close)
	if beg < 0 || n-beg < period {
		return out
	}
	tp := make([]float64, n)
	for i := range tp {
		tp[i] = (high[i] + low[i] + close[i]) / 3
	}
	for i := beg + period - 1; i < n; i++ {
		mean := 0.0
		for j := i - period + 1; j <= i; j++ {
			mean += tp[j]
		}
		mean /= float64(period)
		dev := 0.0
		for j := i - period + 1; j <= i; j++ {
			dev += math.Abs(tp[j] - mean)
		}
		dev /= float64(period)
		if dev == 0 {
			out[i] = 0
			continue
		}
		out[i] = (tp[i] - mean) / (0.015 * dev)
	}
	return out
}

// MFI computes the money flow index series.
func MFI(high, low, close, volume []float64, period int) []float64 {
	n := len(close)
	out := nanSlice(n)
	beg := firstValid(high, low, close, volume)
	if beg < 0 || n-beg < period+1 {
		return out
	}

	posFlow := make([]float64, n)
	negFlow := make([]float64, n)
	prevTP := (high[beg] + low[beg] + close[beg]) / 3
	for i := beg + 1; i < n; i++ {
		tp := (high[i] + low[i] + close[i]) / 3
		flow := tp * volume[i]
		if tp > prevTP {
			posFlow[i] = flow
		} else if tp < prevTP {
			negFlow[i] = flow
		}
		prevTP = tp
	}

	for i := beg + period; i < n; i++ {
		var pos, neg float64
		for j := i - period + 1; j <= i; j++ {
			pos += posFlow[j]
			neg += negFlow[j]
		}
		total := pos + neg
		if total == 0 {
			out[i] = 0
			continue
		}
		out[i] = 100 * pos / total
	}
	return out
}

// trueRange returns the true range series; index 0 is high-low.
func trueRange(high, low, close []float64, beg int) []float64 {
	n := len(close)
	tr := make([]float64, n)
	tr[beg] = high[beg] - low[beg]
	for i := beg + 1; i < n; i++ {
		hl := high[i] - low[i]
		hc := math.Abs(high[i] - close[i-1])
		lc := math.Abs(low[i] - close[i-1])
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}
	return tr
}

// ATR computes the Wilder-smoothed average true range series.
func ATR(high, low, close []float64, period int) []float64 {
	n := len(close)
	out := nanSlice(n)
	beg := firstValid(high, low, close)
	if beg < 0 || n-beg < period+1 {
		return out
	}
	tr := trueRange(high, low, close, beg)

	sum := 0.0
	for i := beg + 1; i <= beg+period; i++ {
		sum += tr[i]
	}
	atr := sum / float64(period)
	out[beg+period] = atr
	for i := beg + period + 1; i < n; i++ {
		atr = (atr*float64(period-1) + tr[i]) / float64(period)
		out[i] = atr
	}
	return out
}

// directionalMovement returns the raw +DM and -DM series starting at beg+1.
func directionalMovement(high, low []float64, beg int) (plusDM, minusDM []float64) {
	n := len(high)
	plusDM = make([]float64, n)
	minusDM = make([]float64, n)
	for i := beg + 1; i < n; i++ {
		up := high[i] - high[i-1]
		down := low[i-1] - low[i]
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
	}
	return plusDM, minusDM
}

// wilderSmooth applies Wilder's running smoothing: first value is the plain
// sum over the first period, then s = s - s/period + x.
func wilderSmooth(values []float64, period, beg int) []float64 {
	n := len(values)
	out := nanSlice(n)
	if n-beg < period+1 {
		return out
	}
	sum := 0.0
	for i := beg + 1; i <= beg+period; i++ {
		sum += values[i]
	}
	out[beg+period] = sum
	for i := beg + period + 1; i < n; i++ {
		sum = sum - sum/float64(period) + values[i]
		out[i] = sum
	}
	return out
}

func smoothedDI(high, low, close []float64, period int) (plusDI, minusDI []float64, beg int) {
	n := len(close)
	plusDI = nanSlice(n)
	minusDI = nanSlice(n)
	beg = firstValid(high, low, close)
	if beg < 0 || n-beg < period+1 {
		return plusDI, minusDI, beg
	}
	tr := trueRange(high, low, close, beg)
	plusDM, minusDM := directionalMovement(high, low, beg)
	smTR := wilderSmooth(tr, period, beg)
	smPlus := wilderSmooth(plusDM, period, beg)
	smMinus := wilderSmooth(minusDM, period, beg)
	for i := beg + period; i < n; i++ {
		if smTR[i] == 0 || math.IsNaN(smTR[i]) {
			plusDI[i] = 0
			minusDI[i] = 0
			continue
		}
		plusDI[i] = 100 * smPlus[i] / smTR[i]
		minusDI[i] = 100 * smMinus[i] / smTR[i]
	}
	return plusDI, minusDI, beg
}

// PlusDI computes the positive directional indicator series.
func PlusDI(high, low, close []float64, period int) []float64 {
	di, _, _ := smoothedDI(high, low, close, period)
	return di
}

// MinusDI computes the negative directional indicator series.
func MinusDI(high, low, close []float64, period int) []float64 {
	_, di, _ := smoothedDI(high, low, close, period)
	return di
}

// ADX computes the Wilder average directional index series.
func ADX(high, low, close []float64, period int) []float64 {
	n := len(close)
	out := nanSlice(n)
	plusDI, minusDI, beg := smoothedDI(high, low, close, period)
	if beg < 0 || n-beg < 2*period {
		return out
	}

	dx := nanSlice(n)
	for i := beg + period; i < n; i++ {
		if math.IsNaN(plusDI[i]) || math.IsNaN(minusDI[i]) {
			continue
		}
		total := plusDI[i] + minusDI[i]
		if total == 0 {
			dx[i] = 0
			continue
		}
		dx[i] = 100 * math.Abs(plusDI[i]-minusDI[i]) / total
	}

	sum := 0.0
	for i := beg + period; i < beg+2*period; i++ {
		sum += dx[i]
	}
	adx := sum / float64(period)
	out[beg+2*period-1] = adx
	for i := beg + 2*period; i < n; i++ {
		adx = (adx*float64(period-1) + dx[i]) / float64(period)
		out[i] = adx
	}
	return out
}

// SAR computes the parabolic stop-and-reverse series with the given
// acceleration step and maximum.
func SAR(high, low []float64, accel, accelMax float64) []float64 {
	n := len(high)
	out := nanSlice(n)
	beg := firstValid(high, low)
	if beg < 0 || n-beg < 2 {
		return out
	}

	// Initial direction from the first bar pair's directional movement.
	isLong := true
	if low[beg]-low[beg+1] > high[beg+1]-high[beg] && low[beg]-low[beg+1] > 0 {
		isLong = false
	}

	af := accel
	var sar, ep float64
	if isLong {
		ep = high[beg+1]
		sar = low[beg]
	} else {
		ep = low[beg+1]
		sar = high[beg]
	}

	for i := beg + 1; i < n; i++ {
		prevHigh, prevLow := high[i-1], low[i-1]
		if isLong {
			if low[i] <= sar {
				// Reverse to short.
				isLong = false
				sar = ep
				if sar < prevHigh {
					sar = prevHigh
				}
				if sar < high[i] {
					sar = high[i]
				}
				out[i] = sar
				af = accel
				ep = low[i]
				sar = sar + af*(ep-sar)
				if sar < prevHigh {
					sar = prevHigh
				}
				if sar < high[i] {
					sar = high[i]
				}
			} else {
				out[i] = sar
				if high[i] > ep {
					ep = high[i]
					af += accel
					if af > accelMax {
						af = accelMax
					}
				}
				sar = sar + af*(ep-sar)
				if sar > prevLow {
					sar = prevLow
				}
				if sar > low[i] {
					sar = low[i]
				}
			}
		} else {
			if high[i] >= sar {
				// Reverse to long.
				isLong = true
				sar = ep
				if sar > prevLow {
					sar = prevLow
				}
				if sar > low[i] {
					sar = low[i]
				}
				out[i] = sar
				af = accel
				ep = high[i]
				sar = sar + af*(ep-sar)
				if sar > prevLow {
					sar = prevLow
				}
				if sar > low[i] {
					sar = low[i]
				}
			} else {
				out[i] = sar
				if low[i] < ep {
					ep = low[i]
					af += accel
					if af > accelMax {
						af = accelMax
					}
				}
				sar = sar + af*(ep-sar)
				if sar < prevHigh {
					sar = prevHigh
				}
				if sar < high[i] {
					sar = high[i]
				}
			}
		}
	}
	return out
}

// OBV computes the cumulative on-balance volume series.
func OBV(close, volume []float64) []float64 {
	n := len(close)
	out := nanSlice(n)
	beg := firstValid(close, volume)
	if beg < 0 {
		return out
	}
	obv := volume[beg]
	out[beg] = obv
	for i := beg + 1; i < n; i++ {
		if close[i] > close[i-1] {
			obv += volume[i]
		} else if close[i] < close[i-1] {
			obv -= volume[i]
		}
		out[i] = obv
	}
	return out
}

// adLine computes the cumulative accumulation/distribution values from beg.
func adLine(high, low, close, volume []float64, beg int) []float64 {
	n := len(close)
	out := make([]float64, n)
	ad := 0.0
	for i := beg; i < n; i++ {
		rng := high[i] - low[i]
		if rng > 0 {
			mfm := ((close[i] - low[i]) - (high[i] - close[i])) / rng
			ad += mfm * volume[i]
		}
		out[i] = ad
	}
	return out
}

// AD computes the Chaikin accumulation/distribution line series.
func AD(high, low, close, volume []float64) []float64 {
	n := len(close)
	out := nanSlice(n)
	beg := firstValid(high, low, close, volume)
	if beg < 0 {
		return out
	}
	ad := adLine(high, low, close, volume, beg)
	copy(out[beg:], ad[beg:])
	return out
}

// ADOSC computes the Chaikin A/D oscillator: the difference between fast and
// slow EMAs of the A/D line, both seeded from its first value.
func ADOSC(high, low, close, volume []float64, fast, slow int) []float64 {
	n := len(close)
	out := nanSlice(n)
	beg := firstValid(high, low, close, volume)
	if beg < 0 || n-beg < slow {
		return out
	}
	ad := adLine(high, low, close, volume, beg)

	fastK := 2.0 / float64(fast+1)
	slowK := 2.0 / float64(slow+1)
	fastEMA := ad[beg]
	slowEMA := ad[beg]
	for i := beg + 1; i < n; i++ {
		fastEMA = (ad[i]-fastEMA)*fastK + fastEMA
		slowEMA = (ad[i]-slowEMA)*slowK + slowEMA
		if i >= beg+slow-1 {
			out[i] = fastEMA - slowEMA
		}
	}
	return out
}

// RollingMax computes a trailing-window maximum with a minimum observation
// count, so early rows still produce a value once minPeriods rows exist.
func RollingMax(values []float64, window, minPeriods int) []float64 {
	n := len(values)
	out := nanSlice(n)
	for i := 0; i < n; i++ {
		lo := i - window + 1
		if lo < 0 {
			lo = 0
		}
		best := nan
		count := 0
		for j := lo; j <= i; j++ {
			if math.IsNaN(values[j]) {
				continue
			}
			if count == 0 || values[j] > best {
				best = values[j]
			}
			count++
		}
		if count >= minPeriods {
			out[i] = best
		}
	}
	return out
}

// RollingMin computes a trailing-window minimum with a minimum observation
// count.
func RollingMin(values []float64, window, minPeriods int) []float64 {
	n := len(values)
	out := nanSlice(n)
	for i := 0; i < n; i++ {
		lo := i - window + 1
		if lo < 0 {
			lo = 0
		}
		best := nan
		count := 0
		for j := lo; j <= i; j++ {
			if math.IsNaN(values[j]) {
				continue
			}
			if count == 0 || values[j] < best {
				best = values[j]
			}
			count++
		}
		if count >= minPeriods {
			out[i] = best
		}
	}
	return out
}

// PctChange computes day-over-day fractional returns; the first row is NaN.
func PctChange(values []float64) []float64 {
	n := len(values)
	out := nanSlice(n)
	for i := 1; i < n; i++ {
		if values[i-1] == 0 {
			continue
		}
		out[i] = values[i]/values[i-1] - 1
	}
	return out
}

// rollingStdSample computes a rolling sample (n-1 denominator) standard
// deviation requiring a full window of valid observations, matching how
// historical volatility is conventionally derived from daily returns.
func rollingStdSample(values []float64, window int) []float64 {
	n := len(values)
	out := nanSlice(n)
	for i := window - 1; i < n; i++ {
		mean := 0.0
		valid := 0
		for j := i - window + 1; j <= i; j++ {
			if math.IsNaN(values[j]) {
				valid = -1
				break
			}
			mean += values[j]
			valid++
		}
		if valid != window {
			continue
		}
		mean /= float64(window)
		variance := 0.0
		for j := i - window + 1; j <= i; j++ {
			d := values[j] - mean
			variance += d * d
		}
		out[i] = math.Sqrt(variance / float64(window-1))
	}
	return out
}
