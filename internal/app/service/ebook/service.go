// Package ebook stores and serves book content: single-file ebooks, zipped
// chapter archives of page images, and covers. Chapters and pages are found
// by probing object keys, so no manifest is kept.
package ebook

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fatflowers/bookrental/internal/platform/cache"
	"github.com/fatflowers/bookrental/internal/platform/objectstore"
	"github.com/fatflowers/bookrental/pkg/config"
	"github.com/fatflowers/bookrental/pkg/errs"
	"github.com/fatflowers/bookrental/pkg/logctx"
)

const ReasonSubscriptionRequired = "an active subscription is required"

type BookCatalog interface {
	Exists(ctx context.Context, bookID string) (bool, error)
}

// SubscriptionGate guards the subscriber-only reading endpoints.
type SubscriptionGate interface {
	CheckActive(ctx context.Context, userID string) (bool, error)
}

// Link is a presigned download link for a single-file ebook.
type Link struct {
	URL       string    `json:"url"`
	Format    string    `json:"format"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Service struct {
	books         BookCatalog
	subs          SubscriptionGate
	store         objectstore.Store
	cache         cache.Cache
	contentBucket string
	coverBucket   string
	concurrency   int
	linkTTL       time.Duration
	cacheTTL      time.Duration
	maxUpload     int64
	log           *zap.SugaredLogger
	now           func() time.Time
}

func NewService(books BookCatalog, subs SubscriptionGate, store objectstore.Store, c cache.Cache, cfg *config.Config, log *zap.SugaredLogger) *Service {
	s := &Service{
		books:         books,
		subs:          subs,
		store:         store,
		cache:         c,
		contentBucket: cfg.Storage.ContentBucket,
		coverBucket:   cfg.Storage.CoverBucket,
		concurrency:   cfg.Ebook.UploadConcurrency,
		linkTTL:       cfg.Ebook.LinkTTL,
		cacheTTL:      cfg.Ebook.ChapterCacheTTL,
		maxUpload:     cfg.Ebook.MaxUploadBytes,
		log:           log,
		now:           time.Now,
	}
	if s.concurrency <= 0 {
		s.concurrency = 30
	}
	if s.linkTTL <= 0 {
		s.linkTTL = 600 * time.Second
	}
	return s
}

func (s *Service) requireBook(ctx context.Context, bookID string) error {
	if bookID == "" {
		return errs.Validation("book_id is required")
	}
	ok, err := s.books.Exists(ctx, bookID)
	if err != nil {
		return err
	}
	if !ok {
		return errs.NotFound("book %s not found", bookID)
	}
	return nil
}

func (s *Service) requireSubscription(ctx context.Context, userID string) error {
	ok, err := s.subs.CheckActive(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to check subscription: %w", err)
	}
	if !ok {
		return errs.Authorization(ReasonSubscriptionRequired)
	}
	return nil
}

func (s *Service) checkSize(size int64) error {
	if size < 0 {
		return errs.Validation("upload size is unknown")
	}
	if s.maxUpload > 0 && size > s.maxUpload {
		return errs.Validation("upload of %d bytes exceeds the %d byte limit", size, s.maxUpload)
	}
	return nil
}

// GetSingleFileAccessLink returns a download link for subscribers.
func (s *Service) GetSingleFileAccessLink(ctx context.Context, userID, bookID string) (*Link, error) {
	if err := s.requireSubscription(ctx, userID); err != nil {
		return nil, err
	}
	return s.IssueSingleFileLink(ctx, bookID)
}

// IssueSingleFileLink presigns the first stored format of pdf, epub and
// mobi. Callers are expected to have checked entitlement.
func (s *Service) IssueSingleFileLink(ctx context.Context, bookID string) (*Link, error) {
	format, err := s.findSingleFile(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if format == "" {
		return nil, errs.NotFound("no ebook file for book %s", bookID)
	}
	issuedAt := s.now()
	url, err := s.store.Presign(ctx, s.contentBucket, singleFileKey(bookID, format), s.linkTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to presign ebook: %w", err)
	}
	return &Link{URL: url, Format: format, ExpiresAt: issuedAt.Add(s.linkTTL)}, nil
}

// DeleteContent removes the single-file formats of a book. Chapter pages
// and the raw chapter archive are kept; see DeleteAllContent.
func (s *Service) DeleteContent(ctx context.Context, bookID string) ([]string, error) {
	var deleted []string
	for _, format := range singleFileFormats {
		key := singleFileKey(bookID, format)
		ok, err := s.deleteIfExists(ctx, s.contentBucket, key)
		if err != nil {
			return deleted, err
		}
		if ok {
			deleted = append(deleted, key)
		}
	}
	logctx.FromCtx(ctx, s.log).Infow("ebook_content_deleted", "book_id", bookID, "keys", deleted)
	return deleted, nil
}

// DeleteAllContent removes single files, the raw chapter archive and every
// discoverable chapter page.
func (s *Service) DeleteAllContent(ctx context.Context, bookID string) ([]string, error) {
	deleted, err := s.DeleteContent(ctx, bookID)
	if err != nil {
		return deleted, err
	}

	ok, err := s.deleteIfExists(ctx, s.contentBucket, archiveKey(bookID))
	if err != nil {
		return deleted, err
	}
	if ok {
		deleted = append(deleted, archiveKey(bookID))
	}

	chapters, err := s.probeChapters(ctx, bookID)
	if err != nil {
		return deleted, err
	}
	for _, ch := range chapters {
		pages, err := s.probePages(ctx, bookID, ch.Name)
		if err != nil {
			return deleted, err
		}
		for _, key := range pages {
			if err := s.store.Delete(ctx, s.contentBucket, key); err != nil {
				return deleted, fmt.Errorf("failed to delete %s: %w", key, err)
			}
			deleted = append(deleted, key)
		}
	}
	s.invalidateChapters(ctx, bookID)
	logctx.FromCtx(ctx, s.log).Infow("ebook_all_content_deleted", "book_id", bookID, "count", len(deleted))
	return deleted, nil
}

func (s *Service) deleteIfExists(ctx context.Context, bucket, key string) (bool, error) {
	ok, err := s.store.Exists(ctx, bucket, key)
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", key, err)
	}
	if !ok {
		return false, nil
	}
	if err := s.store.Delete(ctx, bucket, key); err != nil {
		return false, fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return true, nil
}

func validChapterName(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`)
}
