package media

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/sudo-init-do/servicehub/internal/apperr"
)

const DefaultMaxBytes = 5 << 20

// ErrTooLarge is returned when an upload exceeds the configured limit.
var ErrTooLarge = errors.New("image too large")

// DataURL reads an image from r and returns it as a base64 data URL. The
// content type is sniffed from the bytes, not taken from the client.
func DataURL(r io.Reader, maxBytes int64) (string, error) {
	b, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return "", err
	}
	if int64(len(b)) > maxBytes {
		return "", fmt.Errorf("%w: %w (limit %d bytes)", apperr.ErrInvalidInput, ErrTooLarge, maxBytes)
	}
	if len(b) == 0 {
		return "", fmt.Errorf("%w: file is empty", apperr.ErrInvalidInput)
	}
	mime := http.DetectContentType(b)
	if !strings.HasPrefix(mime, "image/") {
		return "", fmt.Errorf("%w: file must be an image, got %s", apperr.ErrInvalidInput, mime)
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(b), nil
}

type Handler struct {
	maxBytes int64
}

func NewHandler(maxBytes int64) *Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Handler{maxBytes: maxBytes}
}

// POST /upload-image
func (h *Handler) UploadImage(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "file is required"})
	}
	if fh.Size > h.maxBytes {
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": ErrTooLarge.Error()})
	}
	f, err := fh.Open()
	if err != nil {
		return apperr.Respond(c, err)
	}
	defer f.Close()

	url, err := DataURL(f, h.maxBytes)
	if errors.Is(err, ErrTooLarge) {
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{"error": ErrTooLarge.Error()})
	}
	if err != nil {
		return apperr.Respond(c, err)
	}
	zerolog.Ctx(c.Request().Context()).Debug().Str("filename", fh.Filename).Int64("size", fh.Size).Msg("image uploaded")
	return c.JSON(http.StatusOK, echo.Map{"image": url})
}
