package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"screener_backend/models"
	"screener_backend/services/datafetcher"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SyncResult aggregates one sync batch across symbols.
type SyncResult struct {
	Attempted int `json:"attempted"`
	Inserted  int `json:"inserted"`
	Failed    int `json:"failed"`
}

// PriceSyncService keeps per-symbol price history current against the
// external provider. For each symbol it computes the minimal date range still
// missing, fetches only that window, and merges rows idempotently by
// (symbol, date).
type PriceSyncService struct {
	db           *gorm.DB
	provider     datafetcher.PriceProvider
	workers      int
	requestDelay time.Duration
	lookbackDays int
}

// NewPriceSyncService creates a price sync service.
func NewPriceSyncService(db *gorm.DB, provider datafetcher.PriceProvider, workers int, requestDelay time.Duration, lookbackDays int) *PriceSyncService {
	if workers < 1 {
		workers = 1
	}
	return &PriceSyncService{
		db:           db,
		provider:     provider,
		workers:      workers,
		requestDelay: requestDelay,
		lookbackDays: lookbackDays,
	}
}

// ActiveSymbols returns the tickers to process, ordered by symbol.
func (s *PriceSyncService) ActiveSymbols() ([]string, error) {
	var symbols []string
	err := s.db.Model(&models.Stock{}).
		Where("active = ?", true).
		Order("symbol ASC").
		Pluck("symbol", &symbols).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load symbols: %w", err)
	}
	return symbols, nil
}

// RunStage is the sync engine as a pipeline stage: sync every active symbol
// and fail the stage only when nothing succeeded at all.
func (s *PriceSyncService) RunStage(ctx context.Context) error {
	symbols, err := s.ActiveSymbols()
	if err != nil {
		return err
	}
	if len(symbols) == 0 {
		return fmt.Errorf("no active symbols to sync")
	}

	result := s.SyncAll(ctx, symbols, false)
	log.Printf("Price sync finished: attempted=%d, inserted=%d, failed=%d",
		result.Attempted, result.Inserted, result.Failed)

	if err := ctx.Err(); err != nil {
		return err
	}
	if result.Attempted > 0 && result.Failed == result.Attempted {
		return fmt.Errorf("price sync failed for all %d symbols", result.Attempted)
	}
	return nil
}

// SyncAll syncs a batch of symbols through a bounded worker pool. Per-symbol
// failures are logged and counted but never abort the batch. With forceFull
// set, every symbol refetches the full lookback window.
func (s *PriceSyncService) SyncAll(ctx context.Context, symbols []string, forceFull bool) SyncResult {
	var (
		mu     sync.Mutex
		result SyncResult
		wg     sync.WaitGroup
	)

	jobs := make(chan string)
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range jobs {
				inserted, err := s.SyncSymbol(ctx, symbol, forceFull)

				mu.Lock()
				result.Attempted++
				if err != nil {
					result.Failed++
				} else {
					result.Inserted += inserted
				}
				mu.Unlock()

				if err != nil {
					log.Printf("%s: sync failed: %v", symbol, err)
				}

				// Small delay between requests to respect provider limits.
				select {
				case <-ctx.Done():
				case <-time.After(s.requestDelay):
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

// SyncSymbol fetches and merges the rows a single symbol is missing,
// returning the number of rows written. A symbol already current through
// today performs zero network calls and zero writes.
func (s *PriceSyncService) SyncSymbol(ctx context.Context, symbol string, forceFull bool) (int, error) {
	if err := s.ensureStock(symbol); err != nil {
		return 0, err
	}

	now := time.Now()
	var start time.Time

	if forceFull {
		start = now.AddDate(0, 0, -s.lookbackDays)
		log.Printf("%s: full fetch (%d days)", symbol, s.lookbackDays)
	} else {
		cursor, err := s.latestDate(symbol)
		if err != nil {
			return 0, err
		}
		if cursor == "" {
			start = now.AddDate(0, 0, -s.lookbackDays)
			log.Printf("%s: initial fetch (%d days)", symbol, s.lookbackDays)
		} else {
			latest, err := time.Parse(models.DateLayout, cursor)
			if err != nil {
				return 0, fmt.Errorf("invalid cursor date %q: %w", cursor, err)
			}
			start = latest.AddDate(0, 0, 1)
			daysBehind := int(now.Sub(start).Hours() / 24)
			if daysBehind <= 0 {
				log.Printf("%s: up to date (latest: %s)", symbol, cursor)
				return 0, nil
			}
			log.Printf("%s: incremental fetch (%d days behind)", symbol, daysBehind)
		}
	}

	bars, err := s.provider.FetchDaily(ctx, symbol, start, now)
	if err != nil {
		return 0, err
	}
	if len(bars) == 0 {
		log.Printf("%s: no new data available", symbol)
		return 0, nil
	}

	inserted, err := s.mergeBars(symbol, bars)
	if err != nil {
		return 0, err
	}
	log.Printf("%s: inserted %d records", symbol, inserted)
	return inserted, nil
}

// mergeBars upserts fetched rows by (symbol, date); overlapping windows
// update in place, last write wins.
func (s *PriceSyncService) mergeBars(symbol string, bars []datafetcher.PriceBar) (int, error) {
	rows := make([]models.HistoricalPrice, 0, len(bars))
	for _, bar := range bars {
		rows = append(rows, models.HistoricalPrice{
			Symbol:      symbol,
			Date:        bar.Date,
			Open:        bar.Open,
			High:        bar.High,
			Low:         bar.Low,
			Close:       bar.Close,
			Volume:      bar.Volume,
			Dividends:   bar.Dividends,
			StockSplits: bar.StockSplits,
		})
	}

	err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "symbol"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"open", "high", "low", "close", "volume", "dividends", "stock_splits",
		}),
	}).Create(&rows).Error
	if err != nil {
		return 0, fmt.Errorf("failed to merge price rows: %w", err)
	}
	return len(rows), nil
}

// latestDate returns the max stored date for a symbol, or "" when the symbol
// has no history yet.
func (s *PriceSyncService) latestDate(symbol string) (string, error) {
	var cursor *string
	err := s.db.Model(&models.HistoricalPrice{}).
		Where("symbol = ?", symbol).
		Select("MAX(date)").
		Scan(&cursor).Error
	if err != nil {
		return "", fmt.Errorf("failed to read cursor: %w", err)
	}
	if cursor == nil {
		return "", nil
	}
	return *cursor, nil
}

// ensureStock makes sure the symbol registry row exists.
func (s *PriceSyncService) ensureStock(symbol string) error {
	stock := models.Stock{
		Symbol:      symbol,
		Active:      true,
		LastUpdated: time.Now(),
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_updated"}),
	}).Create(&stock).Error
}
