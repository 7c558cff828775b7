package controllers

import (
	"net/http"
	"strconv"
	"time"

	"screener_backend/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// StockController handles read-only stock data requests
type StockController struct {
	db *gorm.DB
}

// NewStockController creates a new stock controller
func NewStockController(db *gorm.DB) *StockController {
	return &StockController{db: db}
}

// GetStocks returns the list of tracked stocks
// GET /api/v1/stocks
func (sc *StockController) GetStocks(c *gin.Context) {
	var stocks []models.Stock

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 50
	}
	offset := (page - 1) * limit

	query := sc.db.Model(&models.Stock{})
	if sector := c.Query("sector"); sector != "" {
		query = query.Where("sector = ?", sector)
	}
	if active := c.Query("active"); active != "" {
		query = query.Where("active = ?", active == "true")
	}

	var total int64
	query.Count(&total)

	if err := query.Order("symbol ASC").Limit(limit).Offset(offset).Find(&stocks).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stocks"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": stocks,
		"pagination": gin.H{
			"page":  page,
			"limit": limit,
			"total": total,
		},
	})
}

// GetStockPrices returns stored daily prices for a symbol
// GET /api/v1/stocks/:symbol/prices
func (sc *StockController) GetStockPrices(c *gin.Context) {
	symbol := c.Param("symbol")

	var stock models.Stock
	if err := sc.db.Where("symbol = ?", symbol).First(&stock).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Stock not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stock"})
		return
	}

	startDate := c.DefaultQuery("start_date", time.Now().AddDate(0, -1, 0).Format(models.DateLayout))
	endDate := c.DefaultQuery("end_date", time.Now().Format(models.DateLayout))

	var prices []models.HistoricalPrice
	err := sc.db.Where("symbol = ? AND date BETWEEN ? AND ?", symbol, startDate, endDate).
		Order("date DESC").
		Find(&prices).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch prices"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stock": stock,
		"data":  prices,
	})
}

// GetStockIndicators returns the latest indicator snapshot for a symbol
// GET /api/v1/stocks/:symbol/indicators
func (sc *StockController) GetStockIndicators(c *gin.Context) {
	symbol := c.Param("symbol")

	var snapshot models.StockIndicator
	if err := sc.db.Where("symbol = ?", symbol).First(&snapshot).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "No indicators computed for this symbol"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch indicators"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": snapshot})
}
