package handlers

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/bookrental/internal/app/service/ebook"
	"github.com/fatflowers/bookrental/pkg/response"
)

type EbookAPI interface {
	ListChapters(ctx context.Context, userID, bookID string) ([]ebook.Chapter, error)
	GetChapterPages(ctx context.Context, userID, bookID, chapter string) (*ebook.ChapterPages, error)
	GetSingleFileAccessLink(ctx context.Context, userID, bookID string) (*ebook.Link, error)
	UploadSingleFile(ctx context.Context, bookID string, r io.Reader, size int64, filename, contentType string) (*ebook.UploadResult, error)
	UploadArchiveBundle(ctx context.Context, bookID string, archive io.ReaderAt, size int64) (*ebook.BundleResult, error)
	UploadChapterArchive(ctx context.Context, bookID string, archive io.ReaderAt, size int64) (*ebook.ChapterUploadResult, error)
	UploadCover(ctx context.Context, bookID string, r io.Reader, size int64, contentType string) (*ebook.UploadResult, error)
	DeleteContent(ctx context.Context, bookID string) ([]string, error)
	DeleteAllContent(ctx context.Context, bookID string) ([]string, error)
}

type DeleteContentResponse struct {
	Deleted []string `json:"deleted"`
}

// formFile opens the "file" multipart field. The caller closes it.
func formFile(c *gin.Context) (multipart.File, *multipart.FileHeader, bool) {
	fh, err := c.FormFile("file")
	if err != nil {
		badRequest(c, err)
		return nil, nil, false
	}
	f, err := fh.Open()
	if err != nil {
		badRequest(c, err)
		return nil, nil, false
	}
	return f, fh, true
}

// @Summary      List Chapters
// @Description  Lists the chapters of a paged book. Requires an active subscription.
// @Tags         Ebooks
// @Produce      json
// @Param        X-User-ID header string true "Acting user"
// @Param        book_id path string true "Book ID"
// @Success      200  {object}  handlers.RespChapterList
// @Router       /api/v1/books/{book_id}/chapters [get]
func ApiListChapters(svc EbookAPI, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		chapters, err := svc.ListChapters(c.Request.Context(), userID(c), c.Param("book_id"))
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(chapters))
	}
}

// @Summary      Get Chapter Pages
// @Description  Returns presigned page links of one chapter in page order. Requires an active subscription.
// @Tags         Ebooks
// @Produce      json
// @Param        X-User-ID header string true "Acting user"
// @Param        book_id path string true "Book ID"
// @Param        chapter path string true "Chapter name, e.g. chap-1"
// @Success      200  {object}  handlers.RespChapterPages
// @Router       /api/v1/books/{book_id}/chapters/{chapter} [get]
func ApiGetChapterPages(svc EbookAPI, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		pages, err := svc.GetChapterPages(c.Request.Context(), userID(c), c.Param("book_id"), c.Param("chapter"))
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(pages))
	}
}

// @Summary      Get Ebook Link
// @Description  Returns a presigned link to the single-file ebook. Requires an active subscription.
// @Tags         Ebooks
// @Produce      json
// @Param        X-User-ID header string true "Acting user"
// @Param        book_id path string true "Book ID"
// @Success      200  {object}  handlers.RespLink
// @Router       /api/v1/books/{book_id}/ebook_link [get]
func ApiGetEbookLink(svc EbookAPI, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		link, err := svc.GetSingleFileAccessLink(c.Request.Context(), userID(c), c.Param("book_id"))
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(link))
	}
}

// @Summary      Upload Ebook (Admin)
// @Description  Uploads a single-file ebook (pdf, epub or mobi).
// @Tags         Admin
// @Accept       multipart/form-data
// @Produce      json
// @Param        book_id path string true "Book ID"
// @Param        file formData file true "Ebook file"
// @Success      200  {object}  handlers.RespUpload
// @Router       /api/v1/admin/books/{book_id}/ebook [post]
func ApiUploadEbook(svc EbookAPI, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		f, fh, ok := formFile(c)
		if !ok {
			return
		}
		defer f.Close()
		// Uploads finish even if the client goes away.
		ctx := context.WithoutCancel(c.Request.Context())
		res, err := svc.UploadSingleFile(ctx, c.Param("book_id"), f, fh.Size, fh.Filename, fh.Header.Get("Content-Type"))
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Upload Ebook Bundle (Admin)
// @Description  Uploads a zip archive and stores the first ebook found inside it.
// @Tags         Admin
// @Accept       multipart/form-data
// @Produce      json
// @Param        book_id path string true "Book ID"
// @Param        file formData file true "Zip archive"
// @Success      200  {object}  handlers.RespBundle
// @Router       /api/v1/admin/books/{book_id}/ebook_bundle [post]
func ApiUploadEbookBundle(svc EbookAPI, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		f, fh, ok := formFile(c)
		if !ok {
			return
		}
		defer f.Close()
		res, err := svc.UploadArchiveBundle(context.WithoutCancel(c.Request.Context()), c.Param("book_id"), f, fh.Size)
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Upload Chapter Archive (Admin)
// @Description  Uploads a zip of chapter folders with page images. Pages are numbered in lexicographic order of their file names (10.jpg sorts before 2.jpg), so zero-pad page names (001.jpg). A re-upload replaces the earlier pages of each chapter it contains.
// @Tags         Admin
// @Accept       multipart/form-data
// @Produce      json
// @Param        book_id path string true "Book ID"
// @Param        file formData file true "Zip archive"
// @Success      200  {object}  handlers.RespChapterUpload
// @Router       /api/v1/admin/books/{book_id}/chapter_archive [post]
func ApiUploadChapterArchive(svc EbookAPI, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		f, fh, ok := formFile(c)
		if !ok {
			return
		}
		defer f.Close()
		res, err := svc.UploadChapterArchive(context.WithoutCancel(c.Request.Context()), c.Param("book_id"), f, fh.Size)
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Upload Cover (Admin)
// @Tags         Admin
// @Accept       multipart/form-data
// @Produce      json
// @Param        book_id path string true "Book ID"
// @Param        file formData file true "Cover image (jpeg, png or webp)"
// @Success      200  {object}  handlers.RespUpload
// @Router       /api/v1/admin/books/{book_id}/cover [post]
func ApiUploadCover(svc EbookAPI, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		f, fh, ok := formFile(c)
		if !ok {
			return
		}
		defer f.Close()
		res, err := svc.UploadCover(context.WithoutCancel(c.Request.Context()), c.Param("book_id"), f, fh.Size, fh.Header.Get("Content-Type"))
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Delete Book Content (Admin)
// @Description  Deletes the single-file ebook. With all=true the chapter archive and page images go too.
// @Tags         Admin
// @Produce      json
// @Param        book_id path string true "Book ID"
// @Param        all query bool false "Also delete paged content"
// @Success      200  {object}  handlers.RespDeleteContent
// @Router       /api/v1/admin/books/{book_id}/content [delete]
func ApiDeleteContent(svc EbookAPI, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		del := svc.DeleteContent
		if queryBool(c, "all") {
			del = svc.DeleteAllContent
		}
		keys, err := del(c.Request.Context(), c.Param("book_id"))
		if err != nil {
			fail(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(&DeleteContentResponse{Deleted: keys}))
	}
}

func RegisterEbookRoutes(r gin.IRouter, svc EbookAPI, log *zap.SugaredLogger) {
	r.GET("/books/:book_id/chapters", ApiListChapters(svc, log))
	r.GET("/books/:book_id/chapters/:chapter", ApiGetChapterPages(svc, log))
	r.GET("/books/:book_id/ebook_link", ApiGetEbookLink(svc, log))
}

func RegisterAdminEbookRoutes(r gin.IRouter, svc EbookAPI, log *zap.SugaredLogger) {
	r.POST("/books/:book_id/ebook", ApiUploadEbook(svc, log))
	r.POST("/books/:book_id/ebook_bundle", ApiUploadEbookBundle(svc, log))
	r.POST("/books/:book_id/chapter_archive", ApiUploadChapterArchive(svc, log))
	r.POST("/books/:book_id/cover", ApiUploadCover(svc, log))
	r.DELETE("/books/:book_id/content", ApiDeleteContent(svc, log))
}
