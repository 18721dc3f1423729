package controller

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"libraryapi/apperrors"
	"libraryapi/models"
	"libraryapi/query"
	"libraryapi/storage"

	"github.com/gin-gonic/gin"
)

const coverField = "coverImage"

// maxBookBody caps a book request: one cover plus room for the text fields
// and multipart framing.
const maxBookBody = storage.MaxUploadSize + 1<<20

func (h *Handler) ListBooks(c *gin.Context) {
	page := query.ParsePage(c.Query("page"), c.Query("limit"))
	year, err := query.ParseYear(c.Query("year"))
	if err != nil {
		h.fail(c, err)
		return
	}

	list, err := h.Books.List(c.Request.Context(), query.Params{
		Search:   c.Query("search"),
		Category: c.Query("category"),
		Author:   c.Query("author"),
		Year:     year,
	}, page)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   len(list.Items),
		"total":   list.Total,
		"page":    list.Page,
		"pages":   list.Pages,
		"limit":   list.Limit,
		"books":   list.Items,
	})
}

func (h *Handler) GetBook(c *gin.Context) {
	book, err := h.Books.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "book": book})
}

func (h *Handler) MyBooks(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	books, err := h.Books.Mine(c.Request.Context(), principal)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "count": len(books), "books": books})
}

func (h *Handler) CreateBook(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	in, upload, ok := h.bindBook(c)
	if !ok {
		return
	}

	book, err := h.Books.Create(c.Request.Context(), in, upload, principal)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Book created successfully", "book": book})
}

func (h *Handler) UpdateBook(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	in, upload, ok := h.bindBook(c)
	if !ok {
		return
	}

	book, err := h.Books.Update(c.Request.Context(), c.Param("id"), in, upload, principal)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Book updated successfully", "book": book})
}

func (h *Handler) DeleteBook(c *gin.Context) {
	principal, ok := h.principal(c)
	if !ok {
		return
	}
	if err := h.Books.Delete(c.Request.Context(), c.Param("id"), principal); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Book deleted successfully", "data": gin.H{}})
}

// bindBook accepts multipart forms (with an optional coverImage file) and
// JSON bodies.
func (h *Handler) bindBook(c *gin.Context) (*models.BookInput, *storage.Upload, bool) {
	var in models.BookInput
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBookBody)

	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.ShouldBindJSON(&in); err != nil {
			if errors.Is(err, io.EOF) {
				err = errNoBody
			}
			h.badBody(c, err)
			return nil, nil, false
		}
		return &in, nil, true
	}

	if err := c.ShouldBind(&in); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.fail(c, apperrors.Validation("File too large",
				apperrors.FieldError{Field: coverField, Message: "cover image cannot exceed 5MB"}))
			return nil, nil, false
		}
		h.badBody(c, err)
		return nil, nil, false
	}

	fh, err := c.FormFile(coverField)
	if errors.Is(err, http.ErrMissingFile) {
		return &in, nil, true
	}
	if err != nil {
		h.badBody(c, err)
		return nil, nil, false
	}
	return &in, storage.FromFileHeader(fh), true
}
