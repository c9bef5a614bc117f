package memstore

import (
	"context"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/storefront/internal/report"
)

type reportRepo struct {
	s *Store
}

func (r reportRepo) CountOrders(_ context.Context) (int64, error) {
	var n int64
	r.s.read(func(st *state) { n = int64(len(st.orders)) })
	return n, nil
}

func (r reportRepo) TotalSales(_ context.Context) (decimal.Decimal, error) {
	total := decimal.Zero
	r.s.read(func(st *state) {
		for _, o := range st.orders {
			total = total.Add(o.Pricing.Total)
		}
	})
	return total, nil
}

func (r reportRepo) SalesByDate(_ context.Context) ([]report.DailySales, error) {
	byDay := make(map[string]decimal.Decimal)
	r.s.read(func(st *state) {
		for _, o := range st.orders {
			if !o.IsPaid || o.PaidAt == nil {
				continue
			}
			day := o.PaidAt.UTC().Format("2006-01-02")
			byDay[day] = byDay[day].Add(o.Pricing.Total)
		}
	})

	sales := make([]report.DailySales, 0, len(byDay))
	for day, total := range byDay {
		sales = append(sales, report.DailySales{Date: day, TotalSales: total})
	}
	slices.SortFunc(sales, func(a, b report.DailySales) int {
		return strings.Compare(a.Date, b.Date)
	})
	return sales, nil
}
