package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/cache"
)

const defaultQuoteTTL = 6 * time.Hour

// CachedProvider fronts a Provider with the quote cache. Requested
// windows are widened to whole hours so nearby link/horizon pairs share
// one entry instead of each fetching an almost-identical slice.
type CachedProvider struct {
	Inner  Provider
	Store  cache.Store
	TTL    time.Duration
	Logger *zap.Logger
}

func (p *CachedProvider) Candles(ctx context.Context, symbol string, start, end time.Time, interval string) ([]Candle, error) {
	if p == nil || p.Inner == nil {
		return nil, fmt.Errorf("no inner provider configured")
	}
	if p.Store == nil {
		return p.Inner.Candles(ctx, symbol, start, end, interval)
	}
	if interval == "" {
		interval = "1m"
	}
	wideStart := start.UTC().Truncate(time.Hour)
	wideEnd := end.UTC().Truncate(time.Hour).Add(time.Hour)
	key := fmt.Sprintf("quotes:%s:%s:%d:%d", strings.ToUpper(strings.TrimSpace(symbol)), interval, wideStart.Unix(), wideEnd.Unix())

	if b, found, err := p.Store.Get(ctx, key); err != nil {
		if p.Logger != nil {
			p.Logger.Debug("quote cache read failed", zap.String("key", key), zap.Error(err))
		}
	} else if found {
		var out []Candle
		if err := json.Unmarshal(b, &out); err == nil {
			return out, nil
		}
		_ = p.Store.Delete(ctx, key)
	}

	out, err := p.Inner.Candles(ctx, symbol, wideStart, wideEnd, interval)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(out); err == nil {
		ttl := p.TTL
		if ttl <= 0 {
			ttl = defaultQuoteTTL
		}
		if err := p.Store.Set(ctx, key, b, ttl); err != nil && p.Logger != nil {
			p.Logger.Debug("quote cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return out, nil
}
