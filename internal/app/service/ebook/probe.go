package ebook

import (
	"context"
	"fmt"
	"time"

	"github.com/fatflowers/bookrental/pkg/errs"
	"github.com/fatflowers/bookrental/pkg/logctx"
)

const maxProbe = 999

var (
	singleFileFormats = []string{"pdf", "epub", "mobi"}
	pageFormats       = []string{"jpg", "png", "webp"}
)

func singleFileKey(bookID, format string) string { return bookID + "." + format }

func archiveKey(bookID string) string { return bookID + ".cbz" }

func pageKey(bookID, chapter string, n int, ext string) string {
	return fmt.Sprintf("%s/%s/page-%03d.%s", bookID, chapter, n, ext)
}

func chapterCacheKey(bookID string) string { return "ebook:chapters:" + bookID }

// Chapter is a discovered chapter and its page count.
type Chapter struct {
	Name  string `json:"name"`
	Pages int    `json:"pages"`
}

type PageLink struct {
	Number int    `json:"number"`
	URL    string `json:"url"`
}

type ChapterPages struct {
	Chapter   string     `json:"chapter"`
	Pages     []PageLink `json:"pages"`
	IssuedAt  time.Time  `json:"issued_at"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// ListChapters lists chap-1, chap-2, ... up to the first missing chapter.
// Results are cached until the next upload or delete.
func (s *Service) ListChapters(ctx context.Context, userID, bookID string) ([]Chapter, error) {
	if err := s.requireSubscription(ctx, userID); err != nil {
		return nil, err
	}

	var chapters []Chapter
	hit, err := s.cache.Get(ctx, chapterCacheKey(bookID), &chapters)
	if err != nil {
		logctx.FromCtx(ctx, s.log).Warnw("chapter_cache_get_failed", "book_id", bookID, "err", err)
	}
	if hit {
		return chapters, nil
	}

	chapters, err = s.probeChapters(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, chapterCacheKey(bookID), chapters, s.cacheTTL); err != nil {
		logctx.FromCtx(ctx, s.log).Warnw("chapter_cache_set_failed", "book_id", bookID, "err", err)
	}
	return chapters, nil
}

// GetChapterPages presigns every page of chapter in page order. All links
// share one expiry.
func (s *Service) GetChapterPages(ctx context.Context, userID, bookID, chapter string) (*ChapterPages, error) {
	if err := s.requireSubscription(ctx, userID); err != nil {
		return nil, err
	}
	if !validChapterName(chapter) {
		return nil, errs.Validation("invalid chapter name %q", chapter)
	}
	keys, err := s.probePages(ctx, bookID, chapter)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, errs.Validation("chapter not found")
	}

	issuedAt := s.now()
	out := &ChapterPages{
		Chapter:   chapter,
		Pages:     make([]PageLink, 0, len(keys)),
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(s.linkTTL),
	}
	for i, key := range keys {
		url, err := s.store.Presign(ctx, s.contentBucket, key, s.linkTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to presign page %d: %w", i+1, err)
		}
		out.Pages = append(out.Pages, PageLink{Number: i + 1, URL: url})
	}
	return out, nil
}

func (s *Service) probeChapters(ctx context.Context, bookID string) ([]Chapter, error) {
	chapters := []Chapter{}
	for i := 1; i <= maxProbe; i++ {
		name := fmt.Sprintf("chap-%d", i)
		_, ok, err := s.findPage(ctx, bookID, name, 1)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		pages, err := s.probePages(ctx, bookID, name)
		if err != nil {
			return nil, err
		}
		chapters = append(chapters, Chapter{Name: name, Pages: len(pages)})
	}
	return chapters, nil
}

// probePages returns the keys of page-001, page-002, ... up to the first gap.
func (s *Service) probePages(ctx context.Context, bookID, chapter string) ([]string, error) {
	var keys []string
	for n := 1; n <= maxProbe; n++ {
		key, ok, err := s.findPage(ctx, bookID, chapter, n)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (s *Service) findPage(ctx context.Context, bookID, chapter string, n int) (string, bool, error) {
	for _, ext := range pageFormats {
		key := pageKey(bookID, chapter, n, ext)
		ok, err := s.store.Exists(ctx, s.contentBucket, key)
		if err != nil {
			return "", false, fmt.Errorf("failed to probe %s: %w", key, err)
		}
		if ok {
			return key, true, nil
		}
	}
	return "", false, nil
}

func (s *Service) findSingleFile(ctx context.Context, bookID string) (string, error) {
	for _, format := range singleFileFormats {
		ok, err := s.store.Exists(ctx, s.contentBucket, singleFileKey(bookID, format))
		if err != nil {
			return "", fmt.Errorf("failed to probe %s ebook: %w", format, err)
		}
		if ok {
			return format, nil
		}
	}
	return "", nil
}

func (s *Service) invalidateChapters(ctx context.Context, bookID string) {
	if err := s.cache.Invalidate(ctx, chapterCacheKey(bookID)); err != nil {
		logctx.FromCtx(ctx, s.log).Warnw("chapter_cache_invalidate_failed", "book_id", bookID, "err", err)
	}
}
