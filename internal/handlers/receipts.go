package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/carmemo/internal/maintenance"
	"github.com/ukydev/carmemo/internal/models"
)

// ReceiptExtractor reads structured data off a receipt image.
type ReceiptExtractor interface {
	ExtractReceipt(ctx context.Context, image []byte, mimeType string) (*models.ReceiptExtraction, error)
}

// ReceiptHandler scans uploaded service receipts.
type ReceiptHandler struct {
	extractor ReceiptExtractor
	mapper    *maintenance.CategoryMapper
	maxBytes  int64
}

func NewReceiptHandler(extractor ReceiptExtractor, mapper *maintenance.CategoryMapper, maxBytes int64) *ReceiptHandler {
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &ReceiptHandler{extractor: extractor, mapper: mapper, maxBytes: maxBytes}
}

type scanResponse struct {
	Receipt           *models.ReceiptExtraction `json:"receipt"`
	SuggestedCategory models.Category           `json:"suggestedCategory"`
}

// Scan accepts a multipart "file" upload or a raw image body.
func (h *ReceiptHandler) Scan(w http.ResponseWriter, r *http.Request) {
	if h.extractor == nil {
		http.Error(w, "Receipt scanning is not configured", http.StatusServiceUnavailable)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	image, mimeType, err := readUpload(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Receipt image too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !strings.HasPrefix(mimeType, "image/") && mimeType != "application/pdf" {
		http.Error(w, "Receipt must be an image or PDF", http.StatusUnsupportedMediaType)
		return
	}

	receipt, err := h.extractor.ExtractReceipt(r.Context(), image, mimeType)
	if err != nil {
		log.WithError(err).Error("Receipt extraction failed")
		http.Error(w, "Could not read receipt", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, scanResponse{
		Receipt:           receipt,
		SuggestedCategory: h.suggestCategory(r.Context(), receipt),
	})
}

// suggestCategory returns the first line item category other than Other.
func (h *ReceiptHandler) suggestCategory(ctx context.Context, receipt *models.ReceiptExtraction) models.Category {
	for _, li := range receipt.LineItems {
		if c := h.mapper.Map(ctx, li.Description); c != models.CategoryOther {
			return c
		}
	}
	return models.CategoryOther
}

func readUpload(r *http.Request) ([]byte, string, error) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		file, header, err := r.FormFile("file")
		if err != nil {
			return nil, "", err
		}
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return nil, "", err
		}
		mimeType := header.Header.Get("Content-Type")
		if mimeType == "" || mimeType == "application/octet-stream" {
			mimeType = http.DetectContentType(data)
		}
		return data, mimeType, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, "", err
	}
	if len(data) == 0 {
		return nil, "", errors.New("receipt image is required")
	}
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	return data, contentType, nil
}
