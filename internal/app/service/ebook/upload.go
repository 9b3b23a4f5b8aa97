package ebook

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/errgroup"

	"github.com/fatflowers/bookrental/pkg/errs"
	"github.com/fatflowers/bookrental/pkg/logctx"
	"github.com/fatflowers/bookrental/pkg/metrics"
)

// sniffLen is how much of a stream is buffered for content detection.
const sniffLen = 3072

var (
	singleFileTypes = map[string]string{
		"application/pdf":                "pdf",
		"application/epub+zip":           "epub",
		"application/x-mobipocket-ebook": "mobi",
	}
	coverTypes = map[string]string{
		"image/jpeg": "jpg",
		"image/png":  "png",
		"image/webp": "webp",
	}
)

func formatContentType(format string) string {
	for ct, f := range singleFileTypes {
		if f == format {
			return ct
		}
	}
	return "application/octet-stream"
}

type UploadResult struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
}

type BundleResult struct {
	UploadResult
	Entry        string `json:"entry"`
	OriginalSize int64  `json:"original_size"`
	ArchiveSize  int64  `json:"archive_size"`
	// CompressionRatio is OriginalSize / ArchiveSize.
	CompressionRatio float64 `json:"compression_ratio"`
}

type ChapterUploadResult struct {
	ArchiveKey string    `json:"archive_key"`
	Chapters   []Chapter `json:"chapters"`
	PageCount  int       `json:"page_count"`
}

// sniff detects the content type of r without losing the bytes it reads.
func sniff(r io.Reader) (*mimetype.MIME, io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("failed to read upload: %w", err)
	}
	head = head[:n]
	return mimetype.Detect(head), io.MultiReader(bytes.NewReader(head), r), nil
}

func declared(contentType string) string {
	ct, _, _ := strings.Cut(contentType, ";")
	ct = strings.ToLower(strings.TrimSpace(ct))
	if ct == "application/octet-stream" {
		return ""
	}
	return ct
}

// UploadSingleFile stores a pdf, epub or mobi as {bookID}.{ext}, replacing
// an earlier upload of the same format. An empty or generic content type is
// detected from the data.
func (s *Service) UploadSingleFile(ctx context.Context, bookID string, r io.Reader, size int64, filename, contentType string) (*UploadResult, error) {
	start := time.Now()
	defer metrics.ObserveBusinessProcess("upload", "single_file", start)

	if err := s.requireBook(ctx, bookID); err != nil {
		return nil, err
	}
	if err := s.checkSize(size); err != nil {
		return nil, err
	}
	ct := declared(contentType)
	if ct == "" {
		m, rr, err := sniff(r)
		if err != nil {
			return nil, err
		}
		ct, r = m.String(), rr
		if i := strings.IndexByte(ct, ';'); i >= 0 {
			ct = ct[:i]
		}
	}
	format, ok := singleFileTypes[ct]
	if !ok {
		return nil, errs.Validation("unsupported ebook content type %q", ct)
	}

	key := singleFileKey(bookID, format)
	url, err := s.store.Put(ctx, s.contentBucket, key, r, size, ct)
	if err != nil {
		return nil, fmt.Errorf("failed to store ebook: %w", err)
	}
	logctx.FromCtx(ctx, s.log).Infow("ebook_uploaded", "book_id", bookID, "key", key, "filename", filename, "size", size)
	return &UploadResult{Key: key, URL: url, Size: size, ContentType: ct}, nil
}

// UploadArchiveBundle extracts the first pdf, epub or mobi entry of a zip
// archive and stores it like UploadSingleFile. Nothing is written when the
// archive holds no ebook.
func (s *Service) UploadArchiveBundle(ctx context.Context, bookID string, archive io.ReaderAt, size int64) (*BundleResult, error) {
	start := time.Now()
	defer metrics.ObserveBusinessProcess("upload", "bundle", start)

	if err := s.requireBook(ctx, bookID); err != nil {
		return nil, err
	}
	if err := s.checkSize(size); err != nil {
		return nil, err
	}
	zr, err := zip.NewReader(archive, size)
	if err != nil {
		return nil, errs.Wrap(errs.KindValidation, err, "invalid zip archive")
	}

	var entry *zip.File
	var format string
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		ext := strings.TrimPrefix(strings.ToLower(path.Ext(f.Name)), ".")
		if _, ok := lookupFormat(ext); ok {
			entry, format = f, ext
			break
		}
	}
	if entry == nil {
		return nil, errs.Validation("no ebook found in archive")
	}

	data, err := readEntry(entry, s.maxUpload)
	if err != nil {
		return nil, err
	}
	key := singleFileKey(bookID, format)
	ct := formatContentType(format)
	url, err := s.store.Put(ctx, s.contentBucket, key, bytes.NewReader(data), int64(len(data)), ct)
	if err != nil {
		return nil, fmt.Errorf("failed to store ebook: %w", err)
	}

	res := &BundleResult{
		UploadResult: UploadResult{Key: key, URL: url, Size: int64(len(data)), ContentType: ct},
		Entry:        entry.Name,
		OriginalSize: int64(len(data)),
		ArchiveSize:  size,
	}
	if size > 0 {
		res.CompressionRatio = float64(res.OriginalSize) / float64(size)
	}
	logctx.FromCtx(ctx, s.log).Infow("ebook_bundle_uploaded", "book_id", bookID, "entry", entry.Name,
		"original_size", res.OriginalSize, "archive_size", size)
	return res, nil
}

func lookupFormat(ext string) (string, bool) {
	for _, f := range singleFileFormats {
		if f == ext {
			return f, true
		}
	}
	return "", false
}

func readEntry(f *zip.File, limit int64) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, errs.Wrap(errs.KindValidation, err, fmt.Sprintf("cannot open archive entry %s", f.Name))
	}
	defer rc.Close()
	var r io.Reader = rc
	if limit > 0 {
		r = io.LimitReader(rc, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errs.Wrap(errs.KindValidation, err, fmt.Sprintf("cannot read archive entry %s", f.Name))
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, errs.Validation("archive entry %s exceeds the %d byte limit", f.Name, limit)
	}
	return data, nil
}

type pageUpload struct {
	file *zip.File
	key  string
}

type chapterPlan struct {
	name  string
	pages []pageUpload
}

// planChapters groups image entries by their top-level folder and assigns
// page keys in name order.
func planChapters(bookID string, files []*zip.File) ([]chapterPlan, error) {
	byChapter := map[string][]*zip.File{}
	for _, f := range files {
		if f.FileInfo().IsDir() {
			continue
		}
		chapter, rest, ok := strings.Cut(f.Name, "/")
		if !ok || rest == "" || !validChapterName(chapter) {
			continue
		}
		if pageExt(f.Name) == "" {
			continue
		}
		byChapter[chapter] = append(byChapter[chapter], f)
	}

	names := make([]string, 0, len(byChapter))
	for name := range byChapter {
		names = append(names, name)
	}
	sort.Strings(names)

	plans := make([]chapterPlan, 0, len(names))
	for _, name := range names {
		files := byChapter[name]
		if len(files) > maxProbe {
			return nil, errs.Validation("chapter %s has %d pages, at most %d are supported", name, len(files), maxProbe)
		}
		sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
		p := chapterPlan{name: name, pages: make([]pageUpload, 0, len(files))}
		for i, f := range files {
			p.pages = append(p.pages, pageUpload{file: f, key: pageKey(bookID, name, i+1, pageExt(f.Name))})
		}
		plans = append(plans, p)
	}
	return plans, nil
}

func pageExt(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".jpg", ".jpeg":
		return "jpg"
	case ".png":
		return "png"
	case ".webp":
		return "webp"
	default:
		return ""
	}
}

// UploadChapterArchive stores the raw archive as {bookID}.cbz and uploads
// its page images as {bookID}/{chapter}/page-NNN.{ext}. Chapters are
// processed one after another with the pages of a chapter uploaded in
// parallel; pages an earlier upload stored for the same chapter are removed
// first. The first failure stops the upload; pages already stored stay.
func (s *Service) UploadChapterArchive(ctx context.Context, bookID string, archive io.ReaderAt, size int64) (*ChapterUploadResult, error) {
	start := time.Now()
	defer metrics.ObserveBusinessProcess("upload", "chapter_archive", start)

	if err := s.requireBook(ctx, bookID); err != nil {
		return nil, err
	}
	if err := s.checkSize(size); err != nil {
		return nil, err
	}
	zr, err := zip.NewReader(archive, size)
	if err != nil {
		return nil, errs.Wrap(errs.KindValidation, err, "invalid zip archive")
	}
	plans, err := planChapters(bookID, zr.File)
	if err != nil {
		return nil, err
	}
	if len(plans) == 0 {
		return nil, errs.Validation("no chapter pages found in archive")
	}

	if _, err := s.store.Put(ctx, s.contentBucket, archiveKey(bookID), io.NewSectionReader(archive, 0, size), size, "application/vnd.comicbook+zip"); err != nil {
		return nil, fmt.Errorf("failed to store chapter archive: %w", err)
	}
	defer s.invalidateChapters(context.WithoutCancel(ctx), bookID)

	log := logctx.FromCtx(ctx, s.log)
	res := &ChapterUploadResult{ArchiveKey: archiveKey(bookID), Chapters: make([]Chapter, 0, len(plans))}
	for _, p := range plans {
		if err := s.uploadChapter(ctx, bookID, p); err != nil {
			log.Errorw("chapter_upload_failed", "book_id", bookID, "chapter", p.name, "err", err)
			return nil, err
		}
		res.Chapters = append(res.Chapters, Chapter{Name: p.name, Pages: len(p.pages)})
		res.PageCount += len(p.pages)
		metrics.AddBusinessItems("upload", "page", len(p.pages))
	}
	log.Infow("chapter_archive_uploaded", "book_id", bookID, "chapters", len(res.Chapters), "pages", res.PageCount)
	return res, nil
}

func (s *Service) uploadChapter(ctx context.Context, bookID string, p chapterPlan) error {
	if err := s.clearChapter(ctx, bookID, p.name); err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, page := range p.pages {
		g.Go(func() error {
			data, err := readEntry(page.file, s.maxUpload)
			if err != nil {
				return err
			}
			ct := mimetype.Detect(data).String()
			if _, err := s.store.Put(gctx, s.contentBucket, page.key, bytes.NewReader(data), int64(len(data)), ct); err != nil {
				return fmt.Errorf("failed to upload %s: %w", page.key, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// clearChapter removes the pages a previous upload left for chapter, so a
// shorter or re-encoded upload does not mix with the old one.
func (s *Service) clearChapter(ctx context.Context, bookID, chapter string) error {
	keys, err := s.probePages(ctx, bookID, chapter)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := s.store.Delete(ctx, s.contentBucket, key); err != nil {
			return fmt.Errorf("failed to delete %s: %w", key, err)
		}
	}
	if len(keys) > 0 {
		logctx.FromCtx(ctx, s.log).Infow("chapter_pages_replaced", "book_id", bookID, "chapter", chapter, "old_pages", len(keys))
	}
	return nil
}

// UploadCover stores a jpeg, png or webp cover in the cover bucket. The type
// is detected from the data; contentType is only used when detection is
// inconclusive.
func (s *Service) UploadCover(ctx context.Context, bookID string, r io.Reader, size int64, contentType string) (*UploadResult, error) {
	if err := s.requireBook(ctx, bookID); err != nil {
		return nil, err
	}
	if err := s.checkSize(size); err != nil {
		return nil, err
	}
	m, r, err := sniff(r)
	if err != nil {
		return nil, err
	}
	ct := m.String()
	if m.Is("application/octet-stream") && declared(contentType) != "" {
		ct = declared(contentType)
	}
	ext, ok := coverTypes[ct]
	if !ok {
		return nil, errs.Validation("unsupported cover content type %q", ct)
	}
	key := bookID + "." + ext
	url, err := s.store.Put(ctx, s.coverBucket, key, r, size, ct)
	if err != nil {
		return nil, fmt.Errorf("failed to store cover: %w", err)
	}
	logctx.FromCtx(ctx, s.log).Infow("cover_uploaded", "book_id", bookID, "key", key)
	return &UploadResult{Key: key, URL: url, Size: size, ContentType: ct}, nil
}
