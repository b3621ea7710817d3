package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/Tutortoise/object-detection-service/logger"
	"github.com/Tutortoise/object-detection-service/models"
)

const (
	fileField     = "file"
	maxFormMemory = 10 << 20

	// multipartOverhead is allowed on top of the upload cap for boundaries
	// and part headers.
	multipartOverhead = 64 << 10
)

type Detector interface {
	Detect(ctx context.Context, req models.DetectionRequest) (*models.DetectionResponse, error)
}

type StatsProvider interface {
	Stats() models.PoolStats
}

type Handler struct {
	detector       Detector
	stats          StatsProvider
	maxUploadBytes int64
	log            *zap.Logger
}

func NewHandler(detector Detector, stats StatsProvider, maxUploadBytes int64, log *zap.Logger) *Handler {
	return &Handler{
		detector:       detector,
		stats:          stats,
		maxUploadBytes: maxUploadBytes,
		log:            log,
	}
}

func (h *Handler) handleRoot(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, map[string]string{"message": MsgRunning})
}

func (h *Handler) handleMetrics(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, h.stats.Stats())
}

func (h *Handler) handleDetect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.log.With(zap.String("request_id", logger.RequestID(ctx)))

	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+multipartOverhead)
	}

	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, http.ErrNotMultipart):
			writeMissingField(w, fileField)
		case errors.As(err, &tooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, MsgFileTooLarge)
		default:
			log.Debug("invalid multipart body", zap.Error(err))
			writeError(w, http.StatusBadRequest, fmt.Sprintf("%s: %v", MsgBadBody, err))
		}
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile(fileField)
	if err != nil {
		writeMissingField(w, fileField)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		writeError(w, http.StatusBadRequest, MsgNotAnImage)
		return
	}

	if h.maxUploadBytes > 0 && header.Size > h.maxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, MsgFileTooLarge)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		log.Error("failed to read upload", zap.Error(err))
		writeError(w, http.StatusInternalServerError, MsgProcessingError+err.Error())
		return
	}

	resp, err := h.detector.Detect(ctx, models.DetectionRequest{
		ImageData:   data,
		ContentType: contentType,
		Filename:    header.Filename,
	})
	if err != nil {
		log.Error("detection failed",
			zap.String("filename", header.Filename),
			zap.String("content_type", contentType),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, MsgProcessingError+err.Error())
		return
	}

	respond(w, r, http.StatusOK, resp)
}

func (h *Handler) handleNotFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "Not Found")
}

func (h *Handler) handleMethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
}
