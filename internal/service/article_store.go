package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/models"
	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/repository"
)

// ArticleStoreService owns durable, de-duplicated article ingestion.
// Ingest never triggers scoring; the scoring pass discovers new links on
// its own cadence.
type ArticleStoreService struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

// IngestArticleInput is one scraped article as delivered by the
// scraper/extractor boundary. PublishedAt is UTC when present.
type IngestArticleInput struct {
	URL         string
	Headline    string
	Source      string
	PublishedAt *time.Time
	ScrapedHTML string
	FullText    string
}

// Ingest stores the article keyed by the fingerprint of its canonical
// URL. Re-ingesting the same URL refreshes the headline and fills any
// still-empty optional columns; it never duplicates the row and never
// overwrites a populated column.
func (s *ArticleStoreService) Ingest(ctx context.Context, in IngestArticleInput) (*models.Article, error) {
	if s == nil || s.Repo == nil {
		return nil, nil
	}
	headline := strings.TrimSpace(in.Headline)
	if headline == "" {
		return nil, fmt.Errorf("%w: headline is required", ErrValidation)
	}
	rawURL := strings.TrimSpace(in.URL)
	if rawURL == "" {
		return nil, fmt.Errorf("%w: url is required", ErrValidation)
	}

	item := &models.Article{
		URL:         &rawURL,
		URLHash:     Fingerprint(rawURL),
		Headline:    headline,
		Source:      optString(in.Source),
		ScrapedHTML: optString(in.ScrapedHTML),
		FullText:    optString(in.FullText),
	}
	if in.PublishedAt != nil && !in.PublishedAt.IsZero() {
		t := in.PublishedAt.UTC()
		item.PublishedDt = &t
	}

	stored, err := s.Repo.UpsertArticle(ctx, item)
	if err != nil {
		return nil, classifyDBError(err)
	}
	if stored == nil {
		return nil, fmt.Errorf("%w: article %s unreadable after upsert", ErrConflict, item.URLHash)
	}
	if s.Logger != nil {
		s.Logger.Debug("article ingested",
			zap.Uint64("article_id", stored.ID),
			zap.String("url_hash", stored.URLHash))
	}
	return stored, nil
}

// Fingerprint is the content fingerprint of an article: the sha256 of
// its canonical URL, hex encoded.
func Fingerprint(rawURL string) string {
	sum := sha256.Sum256([]byte(CanonicalURL(rawURL)))
	return hex.EncodeToString(sum[:])
}

// CanonicalURL normalizes a URL so trivially-different spellings of the
// same address fingerprint identically: scheme and host are lowercased,
// the fragment and default ports are dropped, and a trailing slash on a
// non-root path is removed. The query survives because it can
// distinguish articles. Unparseable input is used as trimmed.
func CanonicalURL(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return rawURL
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	switch {
	case u.Scheme == "http" && strings.HasSuffix(u.Host, ":80"):
		u.Host = strings.TrimSuffix(u.Host, ":80")
	case u.Scheme == "https" && strings.HasSuffix(u.Host, ":443"):
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}
	if u.Path != "/" {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}
	return u.String()
}

func optString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
