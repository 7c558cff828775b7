package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"screener_backend/models"
	"screener_backend/services/analysis"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ComputeResult aggregates one indicator run across symbols.
type ComputeResult struct {
	Attempted int `json:"attempted"`
	Computed  int `json:"computed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// IndicatorService recomputes the per-symbol indicator snapshot from stored
// price history. Symbols with too little history are skipped, not failed.
type IndicatorService struct {
	db         *gorm.DB
	workers    int
	minHistory int
}

// NewIndicatorService creates an indicator service.
func NewIndicatorService(db *gorm.DB, workers, minHistory int) *IndicatorService {
	if workers < 1 {
		workers = 1
	}
	return &IndicatorService{db: db, workers: workers, minHistory: minHistory}
}

// RunStage is the indicator engine as a pipeline stage: recompute every
// symbol with stored history and fail only when nothing succeeded at all.
func (s *IndicatorService) RunStage(ctx context.Context) error {
	symbols, err := s.symbolsWithHistory()
	if err != nil {
		return err
	}
	if len(symbols) == 0 {
		return fmt.Errorf("no price history to process")
	}

	result := s.ComputeAll(ctx, symbols)
	log.Printf("Indicator run finished: attempted=%d, computed=%d, skipped=%d, failed=%d",
		result.Attempted, result.Computed, result.Skipped, result.Failed)

	if err := ctx.Err(); err != nil {
		return err
	}
	if result.Attempted > 0 && result.Computed == 0 && result.Failed > 0 {
		return fmt.Errorf("indicator computation failed for all %d processable symbols", result.Failed)
	}
	return nil
}

// ComputeAll recomputes snapshots for a batch of symbols through a bounded
// worker pool. Per-symbol failures are logged and counted, never fatal.
func (s *IndicatorService) ComputeAll(ctx context.Context, symbols []string) ComputeResult {
	var (
		mu     sync.Mutex
		result ComputeResult
		wg     sync.WaitGroup
	)

	jobs := make(chan string)
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range jobs {
				err := s.ComputeSymbol(symbol)

				mu.Lock()
				result.Attempted++
				switch {
				case err == nil:
					result.Computed++
				case isSkip(err):
					result.Skipped++
				default:
					result.Failed++
				}
				mu.Unlock()

				if err != nil && !isSkip(err) {
					log.Printf("%s: indicator computation failed: %v", symbol, err)
				}
			}
		}()
	}

feed:
	for _, symbol := range symbols {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- symbol:
		}
	}
	close(jobs)
	wg.Wait()

	return result
}

// skipError marks a symbol that was intentionally not computed.
type skipError struct{ reason string }

func (e skipError) Error() string { return e.reason }

func isSkip(err error) bool {
	_, ok := err.(skipError)
	return ok
}

// ComputeSymbol loads the full stored history for one symbol, computes the
// indicator set over it, and replaces the symbol's snapshot row.
func (s *IndicatorService) ComputeSymbol(symbol string) error {
	series, err := s.loadSeries(symbol)
	if err != nil {
		return err
	}
	if series.Len() < s.minHistory {
		log.Printf("%s: skipped, insufficient history (%d rows, need %d)",
			symbol, series.Len(), s.minHistory)
		return skipError{fmt.Sprintf("insufficient history: %d rows", series.Len())}
	}

	snap := analysis.Compute(series)
	row, err := s.snapshotRow(symbol, snap)
	if err != nil {
		return err
	}

	err = s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}},
		UpdateAll: true,
	}).Create(row).Error
	if err != nil {
		return fmt.Errorf("failed to store snapshot: %w", err)
	}

	if GlobalMongoMirror != nil {
		GlobalMongoMirror.MirrorSnapshot(*row)
	}
	return nil
}

// loadSeries reads the symbol's history oldest first, dropping rows with a
// non-positive close. Equal-length slices are what the math layer expects.
func (s *IndicatorService) loadSeries(symbol string) (analysis.Series, error) {
	var rows []models.HistoricalPrice
	err := s.db.Where("symbol = ?", symbol).
		Order("date ASC").
		Find(&rows).Error
	if err != nil {
		return analysis.Series{}, fmt.Errorf("failed to load history: %w", err)
	}

	series := analysis.Series{
		Dates:  make([]string, 0, len(rows)),
		Open:   make([]float64, 0, len(rows)),
		High:   make([]float64, 0, len(rows)),
		Low:    make([]float64, 0, len(rows)),
		Close:  make([]float64, 0, len(rows)),
		Volume: make([]float64, 0, len(rows)),
	}
	for _, r := range rows {
		if r.Close <= 0 {
			continue
		}
		series.Dates = append(series.Dates, r.Date)
		series.Open = append(series.Open, r.Open)
		series.High = append(series.High, r.High)
		series.Low = append(series.Low, r.Low)
		series.Close = append(series.Close, r.Close)
		series.Volume = append(series.Volume, float64(r.Volume))
	}
	return series, nil
}

// snapshotRow converts a computed snapshot into its storage row. Undefined
// indicator values (NaN or infinite) become NULL columns.
func (s *IndicatorService) snapshotRow(symbol string, snap analysis.Snapshot) (*models.StockIndicator, error) {
	date, err := time.Parse(models.DateLayout, snap.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid snapshot date %q: %w", snap.Date, err)
	}
	age := int(time.Since(date).Hours() / 24)
	if age < 0 {
		age = 0
	}

	return &models.StockIndicator{
		Symbol:      symbol,
		Date:        snap.Date,
		Open:        snap.Open,
		High:        snap.High,
		Low:         snap.Low,
		Close:       snap.Close,
		Volume:      int64(snap.Volume),
		DataAgeDays: age,

		WilliamsR14:    nullable(snap.WilliamsR14),
		WilliamsR21:    nullable(snap.WilliamsR21),
		EMA13WilliamsR: nullable(snap.EMA13WilliamsR),
		RSI14:          nullable(snap.RSI14),
		RSI21:          nullable(snap.RSI21),
		MACD:           nullable(snap.MACD),
		MACDSignal:     nullable(snap.MACDSignal),
		MACDHist:       nullable(snap.MACDHist),
		StochK:         nullable(snap.StochK),
		StochD:         nullable(snap.StochD),
		ROC10:          nullable(snap.ROC10),
		ROC20:          nullable(snap.ROC20),
		CCI14:          nullable(snap.CCI14),
		CCI20:          nullable(snap.CCI20),
		MFI14:          nullable(snap.MFI14),

		EMA9:    nullable(snap.EMA9),
		EMA20:   nullable(snap.EMA20),
		EMA50:   nullable(snap.EMA50),
		EMA200:  nullable(snap.EMA200),
		SMA20:   nullable(snap.SMA20),
		SMA50:   nullable(snap.SMA50),
		SMA200:  nullable(snap.SMA200),
		ADX14:   nullable(snap.ADX14),
		PlusDI:  nullable(snap.PlusDI),
		MinusDI: nullable(snap.MinusDI),
		SAR:     nullable(snap.SAR),

		ATR14:            nullable(snap.ATR14),
		ATR20:            nullable(snap.ATR20),
		BBUpper:          nullable(snap.BBUpper),
		BBMiddle:         nullable(snap.BBMiddle),
		BBLower:          nullable(snap.BBLower),
		StdDev20:         nullable(snap.StdDev20),
		BBWidth:          nullable(snap.BBWidth),
		ATRPct:           nullable(snap.ATRPct),
		HistVolatility20: nullable(snap.HistVolatility20),

		OBV:            nullable(snap.OBV),
		AD:             nullable(snap.AD),
		ADOSC:          nullable(snap.ADOSC),
		VolumeMA20:     nullable(snap.VolumeMA20),
		VolumeMA50:     nullable(snap.VolumeMA50),
		RelativeVolume: nullable(snap.RelativeVolume),

		PriceVsSMA20Pct:  nullable(snap.PriceVsSMA20Pct),
		PriceVsSMA50Pct:  nullable(snap.PriceVsSMA50Pct),
		PriceVsSMA200Pct: nullable(snap.PriceVsSMA200Pct),
		BBPosition:       nullable(snap.BBPosition),
		High52W:          nullable(snap.High52W),
		Low52W:           nullable(snap.Low52W),
		PctFrom52WHigh:   nullable(snap.PctFrom52WHigh),
		PctFrom52WLow:    nullable(snap.PctFrom52WLow),
		Range52WPosition: nullable(snap.Range52WPosition),

		LastCalculated: time.Now(),
	}, nil
}

// symbolsWithHistory lists every symbol that has stored price rows.
func (s *IndicatorService) symbolsWithHistory() ([]string, error) {
	var symbols []string
	err := s.db.Model(&models.HistoricalPrice{}).
		Distinct("symbol").
		Order("symbol ASC").
		Pluck("symbol", &symbols).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list symbols: %w", err)
	}
	return symbols, nil
}

// nullable maps undefined float values to NULL.
func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
