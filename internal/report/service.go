package report

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

type Service interface {
	TotalOrders(ctx context.Context) (int64, error)
	TotalSales(ctx context.Context) (decimal.Decimal, error)
	SalesByDate(ctx context.Context) ([]DailySales, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) TotalOrders(ctx context.Context) (int64, error) {
	n, err := s.repo.CountOrders(ctx)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to count orders")
		return 0, fmt.Errorf("service: failed to count orders: %w", err)
	}
	return n, nil
}

func (s *service) TotalSales(ctx context.Context) (decimal.Decimal, error) {
	total, err := s.repo.TotalSales(ctx)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to sum sales")
		return decimal.Zero, fmt.Errorf("service: failed to sum sales: %w", err)
	}
	return total.Round(2), nil
}

func (s *service) SalesByDate(ctx context.Context) ([]DailySales, error) {
	sales, err := s.repo.SalesByDate(ctx)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to group sales by date")
		return nil, fmt.Errorf("service: failed to group sales by date: %w", err)
	}
	for i := range sales {
		sales[i].TotalSales = sales[i].TotalSales.Round(2)
	}
	return sales, nil
}
