package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/models"
	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/repository"
)

const maxSymbolLen = 10

// TickerRegistryService is the canonical symbol table. Symbols are
// registered on first use and immutable afterwards; there is no update
// path.
type TickerRegistryService struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

// Resolve returns the ticker row for the symbol, creating it on first
// use. Input is uppercased and must be 1-10 characters from
// [A-Z0-9.-], matching US listing conventions (BRK.B, RDS-A).
func (s *TickerRegistryService) Resolve(ctx context.Context, symbol string) (*models.Ticker, error) {
	if s == nil || s.Repo == nil {
		return nil, nil
	}
	sym, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	item, err := s.Repo.GetOrCreateTicker(ctx, sym)
	if err != nil {
		return nil, classifyDBError(err)
	}
	if item == nil {
		return nil, fmt.Errorf("%w: ticker %s unreadable after upsert", ErrConflict, sym)
	}
	return item, nil
}

// NormalizeSymbol uppercases and validates a raw symbol.
func NormalizeSymbol(symbol string) (string, error) {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	if sym == "" {
		return "", fmt.Errorf("%w: symbol is required", ErrValidation)
	}
	if len(sym) > maxSymbolLen {
		return "", fmt.Errorf("%w: symbol %q exceeds %d characters", ErrValidation, sym, maxSymbolLen)
	}
	for _, r := range sym {
		switch {
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '.' || r == '-':
		default:
			return "", fmt.Errorf("%w: symbol %q contains invalid character %q", ErrValidation, sym, r)
		}
	}
	return sym, nil
}
