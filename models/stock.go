package models

import (
	"time"

	"gorm.io/gorm"
)

// DateLayout is the storage format for trading-day dates.
const DateLayout = "2006-01-02"

// Stock represents one S&P 500 ticker tracked by the screener
type Stock struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Symbol      string    `gorm:"uniqueIndex;not null" json:"symbol"`
	Name        string    `json:"name"`
	Sector      string    `json:"sector"`
	Industry    string    `json:"industry"`
	Active      bool      `gorm:"default:true" json:"active"`
	LastUpdated time.Time `json:"last_updated"`
	CreatedAt   time.Time `json:"created_at"`
}

// HistoricalPrice is one daily OHLCV row for a symbol. Rows are unique per
// (symbol, date); corrections arrive as upserts, never as duplicate dates.
type HistoricalPrice struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Symbol      string    `gorm:"uniqueIndex:idx_symbol_date;not null" json:"symbol"`
	Date        string    `gorm:"uniqueIndex:idx_symbol_date;not null" json:"date"` // YYYY-MM-DD
	Open        float64   `json:"open"`
	High        float64   `json:"high"`
	Low         float64   `json:"low"`
	Close       float64   `json:"close"`
	Volume      int64     `json:"volume"`
	Dividends   float64   `json:"dividends"`
	StockSplits float64   `json:"stock_splits"`
	CreatedAt   time.Time `json:"created_at"`
}

// StockIndicator is the single snapshot row per symbol: latest OHLCV plus the
// full derived indicator set. Nullable fields stay NULL where an indicator is
// undefined (warm-up windows, zero denominators). The row is replaced
// wholesale on every successful refresh.
type StockIndicator struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	Symbol      string  `gorm:"uniqueIndex;not null" json:"symbol"`
	Date        string  `json:"date"`
	Open        float64 `json:"open"`
	High        float64 `json:"high"`
	Low         float64 `json:"low"`
	Close       float64 `json:"close"`
	Volume      int64   `json:"volume"`
	DataAgeDays int     `json:"data_age_days"`

	// Momentum
	WilliamsR14    *float64 `json:"williams_r_14"`
	WilliamsR21    *float64 `json:"williams_r_21"`
	EMA13WilliamsR *float64 `json:"ema_13_williams_r"`
	RSI14          *float64 `json:"rsi_14"`
	RSI21          *float64 `json:"rsi_21"`
	MACD           *float64 `json:"macd"`
	MACDSignal     *float64 `json:"macd_signal"`
	MACDHist       *float64 `json:"macd_hist"`
	StochK         *float64 `json:"stoch_k"`
	StochD         *float64 `json:"stoch_d"`
	ROC10          *float64 `json:"roc_10"`
	ROC20          *float64 `json:"roc_20"`
	CCI14          *float64 `json:"cci_14"`
	CCI20          *float64 `json:"cci_20"`
	MFI14          *float64 `json:"mfi_14"`

	// Trend
	EMA9    *float64 `json:"ema_9"`
	EMA20   *float64 `json:"ema_20"`
	EMA50   *float64 `json:"ema_50"`
	EMA200  *float64 `json:"ema_200"`
	SMA20   *float64 `json:"sma_20"`
	SMA50   *float64 `json:"sma_50"`
	SMA200  *float64 `json:"sma_200"`
	ADX14   *float64 `json:"adx_14"`
	PlusDI  *float64 `json:"plus_di"`
	MinusDI *float64 `json:"minus_di"`
	SAR     *float64 `json:"sar"`

	// Volatility
	ATR14            *float64 `json:"atr_14"`
	ATR20            *float64 `json:"atr_20"`
	BBUpper          *float64 `json:"bb_upper"`
	BBMiddle         *float64 `json:"bb_middle"`
	BBLower          *float64 `json:"bb_lower"`
	StdDev20         *float64 `json:"stddev_20"`
	BBWidth          *float64 `json:"bb_width"`
	ATRPct           *float64 `json:"atr_pct"`
	HistVolatility20 *float64 `json:"hist_volatility_20"`

	// Volume
	OBV            *float64 `json:"obv"`
	AD             *float64 `json:"ad"`
	ADOSC          *float64 `json:"adosc"`
	VolumeMA20     *float64 `json:"volume_ma_20"`
	VolumeMA50     *float64 `json:"volume_ma_50"`
	RelativeVolume *float64 `json:"relative_volume"`

	// Price action
	PriceVsSMA20Pct  *float64 `json:"price_vs_sma20_pct"`
	PriceVsSMA50Pct  *float64 `json:"price_vs_sma50_pct"`
	PriceVsSMA200Pct *float64 `json:"price_vs_sma200_pct"`
	BBPosition       *float64 `json:"bb_position"`
	High52W          *float64 `json:"high_52w"`
	Low52W           *float64 `json:"low_52w"`
	PctFrom52WHigh   *float64 `json:"pct_from_52w_high"`
	PctFrom52WLow    *float64 `json:"pct_from_52w_low"`
	Range52WPosition *float64 `json:"range_52w_position"`

	LastCalculated time.Time `json:"last_calculated"`
}

// MigrateStockModels runs database migrations for stock-related models
func MigrateStockModels(db *gorm.DB) error {
	return db.AutoMigrate(
		&Stock{},
		&HistoricalPrice{},
		&StockIndicator{},
	)
}
