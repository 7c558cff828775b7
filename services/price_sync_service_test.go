package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"screener_backend/models"
	"screener_backend/services/datafetcher"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := models.MigrateStockModels(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// fakeProvider records fetch windows and serves canned bars per symbol.
type fakeProvider struct {
	mu    sync.Mutex
	calls map[string][][2]time.Time
	bars  map[string][]datafetcher.PriceBar
	errs  map[string]error
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		calls: make(map[string][][2]time.Time),
		bars:  make(map[string][]datafetcher.PriceBar),
		errs:  make(map[string]error),
	}
}

func (p *fakeProvider) FetchDaily(ctx context.Context, symbol string, start, end time.Time) ([]datafetcher.PriceBar, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[symbol] = append(p.calls[symbol], [2]time.Time{start, end})
	if err := p.errs[symbol]; err != nil {
		return nil, err
	}
	return p.bars[symbol], nil
}

func (p *fakeProvider) callCount(symbol string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls[symbol])
}

func (p *fakeProvider) lastWindow(symbol string) (time.Time, time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()
	calls := p.calls[symbol]
	last := calls[len(calls)-1]
	return last[0], last[1]
}

func barsFor(dates ...string) []datafetcher.PriceBar {
	bars := make([]datafetcher.PriceBar, 0, len(dates))
	for i, d := range dates {
		px := 100 + float64(i)
		bars = append(bars, datafetcher.PriceBar{
			Date: d, Open: px, High: px + 1, Low: px - 1, Close: px, Volume: 1000,
		})
	}
	return bars
}

func countPriceRows(t *testing.T, db *gorm.DB, symbol string) int64 {
	t.Helper()
	var count int64
	if err := db.Model(&models.HistoricalPrice{}).Where("symbol = ?", symbol).Count(&count).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	return count
}

func TestSyncSymbolInitialFetchUsesLookbackWindow(t *testing.T) {
	db := newTestDB(t)
	provider := newFakeProvider()
	provider.bars["AAPL"] = barsFor("2025-08-01", "2025-08-02")
	svc := NewPriceSyncService(db, provider, 1, 0, 730)

	inserted, err := svc.SyncSymbol(context.Background(), "AAPL", false)
	if err != nil {
		t.Fatalf("SyncSymbol: %v", err)
	}
	if inserted != 2 {
		t.Errorf("inserted = %d, want 2", inserted)
	}

	start, end := provider.lastWindow("AAPL")
	wantStart := time.Now().AddDate(0, 0, -730).Format(models.DateLayout)
	if start.Format(models.DateLayout) != wantStart {
		t.Errorf("start = %s, want %s", start.Format(models.DateLayout), wantStart)
	}
	if end.Format(models.DateLayout) != time.Now().Format(models.DateLayout) {
		t.Errorf("end = %s, want today", end.Format(models.DateLayout))
	}

	// The symbol registry row is created on first sync.
	var stock models.Stock
	if err := db.Where("symbol = ?", "AAPL").First(&stock).Error; err != nil {
		t.Fatalf("stock row missing: %v", err)
	}
}

func TestSyncSymbolIncrementalWindowStartsAfterCursor(t *testing.T) {
	db := newTestDB(t)
	cursorDate := time.Now().AddDate(0, 0, -10).Format(models.DateLayout)
	seedPrices(t, db, "AAPL", cursorDate)

	provider := newFakeProvider()
	svc := NewPriceSyncService(db, provider, 1, 0, 730)

	if _, err := svc.SyncSymbol(context.Background(), "AAPL", false); err != nil {
		t.Fatalf("SyncSymbol: %v", err)
	}

	start, _ := provider.lastWindow("AAPL")
	wantStart := time.Now().AddDate(0, 0, -9).Format(models.DateLayout)
	if start.Format(models.DateLayout) != wantStart {
		t.Errorf("start = %s, want day after cursor %s", start.Format(models.DateLayout), wantStart)
	}
}

func TestSyncSymbolUpToDateMakesNoRequests(t *testing.T) {
	db := newTestDB(t)
	seedPrices(t, db, "AAPL", time.Now().Format(models.DateLayout))

	provider := newFakeProvider()
	svc := NewPriceSyncService(db, provider, 1, 0, 730)

	inserted, err := svc.SyncSymbol(context.Background(), "AAPL", false)
	if err != nil {
		t.Fatalf("SyncSymbol: %v", err)
	}
	if inserted != 0 {
		t.Errorf("inserted = %d, want 0", inserted)
	}
	if provider.callCount("AAPL") != 0 {
		t.Errorf("provider called %d times for current symbol, want 0", provider.callCount("AAPL"))
	}
}

func TestSyncSymbolEmptyPayloadIsNotAnError(t *testing.T) {
	db := newTestDB(t)
	provider := newFakeProvider() // no bars registered
	svc := NewPriceSyncService(db, provider, 1, 0, 730)

	inserted, err := svc.SyncSymbol(context.Background(), "AAPL", false)
	if err != nil {
		t.Fatalf("SyncSymbol on empty payload: %v", err)
	}
	if inserted != 0 {
		t.Errorf("inserted = %d, want 0", inserted)
	}
}

func TestSyncSymbolOverlappingFetchIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	provider := newFakeProvider()
	provider.bars["AAPL"] = barsFor("2025-08-01", "2025-08-02", "2025-08-03")
	svc := NewPriceSyncService(db, provider, 1, 0, 730)

	for i := 0; i < 2; i++ {
		// Force a full fetch both times so the same window is merged twice.
		if _, err := svc.SyncSymbol(context.Background(), "AAPL", true); err != nil {
			t.Fatalf("SyncSymbol #%d: %v", i+1, err)
		}
	}

	if got := countPriceRows(t, db, "AAPL"); got != 3 {
		t.Errorf("row count = %d after overlapping merges, want 3", got)
	}
}

func TestSyncAllIsolatesPerSymbolFailures(t *testing.T) {
	db := newTestDB(t)
	provider := newFakeProvider()
	provider.bars["AAPL"] = barsFor("2025-08-01")
	provider.errs["MSFT"] = errors.New("rate limited")
	svc := NewPriceSyncService(db, provider, 2, 0, 730)

	result := svc.SyncAll(context.Background(), []string{"AAPL", "MSFT"}, false)
	if result.Attempted != 2 {
		t.Errorf("Attempted = %d, want 2", result.Attempted)
	}
	if result.Failed != 1 {
		t.Errorf("Failed = %d, want 1", result.Failed)
	}
	if result.Inserted != 1 {
		t.Errorf("Inserted = %d, want 1", result.Inserted)
	}
	if got := countPriceRows(t, db, "AAPL"); got != 1 {
		t.Errorf("AAPL rows = %d, want 1", got)
	}
}

func TestRunStageFailsOnlyWhenEverySymbolFails(t *testing.T) {
	db := newTestDB(t)
	seedStocks(t, db, "AAPL", "MSFT")

	provider := newFakeProvider()
	provider.errs["AAPL"] = errors.New("down")
	provider.errs["MSFT"] = errors.New("down")
	svc := NewPriceSyncService(db, provider, 2, 0, 730)

	if err := svc.RunStage(context.Background()); err == nil {
		t.Error("RunStage succeeded with every symbol failing")
	}

	// One surviving symbol keeps the stage alive.
	delete(provider.errs, "AAPL")
	provider.bars["AAPL"] = barsFor("2025-08-01")
	if err := svc.RunStage(context.Background()); err != nil {
		t.Errorf("RunStage failed with partial success: %v", err)
	}
}

func TestRunStageFailsWithNoActiveSymbols(t *testing.T) {
	db := newTestDB(t)
	svc := NewPriceSyncService(db, newFakeProvider(), 1, 0, 730)
	if err := svc.RunStage(context.Background()); err == nil {
		t.Error("RunStage succeeded with an empty symbol list")
	}
}

func seedStocks(t *testing.T, db *gorm.DB, symbols ...string) {
	t.Helper()
	for _, sym := range symbols {
		err := db.Create(&models.Stock{Symbol: sym, Active: true, LastUpdated: time.Now()}).Error
		if err != nil {
			t.Fatalf("seed stock %s: %v", sym, err)
		}
	}
}

func seedPrices(t *testing.T, db *gorm.DB, symbol string, dates ...string) {
	t.Helper()
	for i, d := range dates {
		row := models.HistoricalPrice{
			Symbol: symbol,
			Date:   d,
			Open:   100 + float64(i),
			High:   101 + float64(i),
			Low:    99 + float64(i),
			Close:  100 + float64(i),
			Volume: 1000,
		}
		if err := db.Create(&row).Error; err != nil {
			t.Fatalf("seed price %s %s: %v", symbol, d, err)
		}
	}
}

func seedHistory(t *testing.T, db *gorm.DB, symbol string, n int) []string {
	t.Helper()
	dates := make([]string, 0, n)
	rows := make([]models.HistoricalPrice, 0, n)
	for i := 0; i < n; i++ {
		d := time.Now().AddDate(0, 0, -(n - 1 - i)).Format(models.DateLayout)
		px := 100 + 10*float64(i%20)/20 + float64(i)*0.05
		dates = append(dates, d)
		rows = append(rows, models.HistoricalPrice{
			Symbol: symbol,
			Date:   d,
			Open:   px,
			High:   px + 1,
			Low:    px - 1,
			Close:  px,
			Volume: int64(1000 + i),
		})
	}
	if err := db.CreateInBatches(rows, 100).Error; err != nil {
		t.Fatalf("seed history: %v", err)
	}
	return dates
}
