package report

import "github.com/shopspring/decimal"

// DailySales is the revenue of paid orders confirmed on one calendar day (UTC).
type DailySales struct {
	Date       string          `json:"date" db:"date"`
	TotalSales decimal.Decimal `json:"total_sales" db:"total_sales"`
}
