package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/Talha654/overlayPix-backend/internal/app/api/middleware"
	"github.com/Talha654/overlayPix-backend/internal/platform/storage"
	pkgerrors "github.com/Talha654/overlayPix-backend/pkg/errors"
	"github.com/Talha654/overlayPix-backend/pkg/logctx"
	"github.com/Talha654/overlayPix-backend/pkg/response"
	"github.com/Talha654/overlayPix-backend/pkg/types"
	"github.com/Talha654/overlayPix-backend/pkg/validate"
)

// MaxUploadBytes caps a single multipart file.
const MaxUploadBytes = 25 << 20

var nopLog = zap.NewNop().Sugar()

func respondOK[T any](c *gin.Context, status int, data T) {
	c.JSON(status, response.OKT(data))
}

// writeError maps err onto the envelope. Unknown errors become INTERNAL_ERROR
// with a generic message and are logged with the request logger.
func writeError(c *gin.Context, err error) {
	e := pkgerrors.As(err)
	if e == nil {
		e = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "")
	}
	meta := pkgerrors.MetadataFor(e.Code())
	msg := e.Message()
	if e.Code() == pkgerrors.CodeInternal || msg == "" {
		msg = meta.PublicMessage
	}
	body := response.ErrorBody{
		ErrorCode: string(e.Code()),
		Error:     msg,
		Retryable: meta.Retryable,
	}
	if meta.DetailsAllowed {
		body.Details = e.Details()
	}
	switch {
	case e.Code() == pkgerrors.CodeInternal:
		logctx.FromGin(c, nopLog).Errorw("request failed", "path", c.FullPath(), "error", err)
	case meta.HTTPStatus >= http.StatusInternalServerError:
		logctx.FromGin(c, nopLog).Warnw("request failed", "path", c.FullPath(), "code", e.Code(), "error", err)
	}
	c.AbortWithStatusJSON(meta.HTTPStatus, response.ErrorT(response.CodeForStatus(meta.HTTPStatus), body))
}

// bindJSON decodes the request body and runs struct validation.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeError(c, bindError(err))
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(c, err)
		return false
	}
	return true
}

func bindError(err error) error {
	if errors.Is(err, io.EOF) {
		return pkgerrors.New(pkgerrors.CodeValidation, "request body is required")
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body")
}

func actorOf(c *gin.Context) (types.Actor, bool) {
	actor, found := middleware.ActorFrom(c)
	if !found || actor.ID == "" {
		writeError(c, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
		return types.Actor{}, false
	}
	return actor, true
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

// formFile reads an optional multipart file. A missing field yields nil.
func formFile(c *gin.Context, field string) (*storage.Object, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form")
	}
	if fh.Size > MaxUploadBytes {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(map[string]string{field: fmt.Sprintf("must be at most %d bytes", MaxUploadBytes)})
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload %s: %w", field, err)
	}
	defer f.Close()
	body, err := io.ReadAll(io.LimitReader(f, MaxUploadBytes))
	if err != nil {
		return nil, fmt.Errorf("read upload %s: %w", field, err)
	}
	ct := fh.Header.Get("Content-Type")
	if ct == "" {
		ct = http.DetectContentType(body)
	}
	return &storage.Object{Filename: fh.Filename, ContentType: ct, Body: body}, nil
}

// formValues turns multipart text fields into a JSON-like map. Values that
// look like JSON objects or arrays are decoded, and the named numeric fields
// are parsed as numbers. Empty values are dropped.
func formValues(c *gin.Context, numeric ...string) (map[string]any, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form")
	}
	out := make(map[string]any, len(form.Value))
	for key, vals := range form.Value {
		if len(vals) == 0 || strings.TrimSpace(vals[0]) == "" {
			continue
		}
		raw := strings.TrimSpace(vals[0])
		switch {
		case raw[0] == '{' || raw[0] == '[':
			var v any
			if err := json.Unmarshal([]byte(raw), &v); err != nil {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(map[string]string{key: "must be valid JSON"})
			}
			out[key] = v
		case lo.Contains(numeric, key):
			n, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(map[string]string{key: "must be a number"})
			}
			out[key] = n
		default:
			out[key] = vals[0]
		}
	}
	return out, nil
}

// decodeForm fills dst from the multipart text fields.
func decodeForm(c *gin.Context, dst any, numeric ...string) error {
	values, err := formValues(c, numeric...)
	if err != nil {
		return err
	}
	b, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("encode form: %w", err)
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid form fields")
	}
	return nil
}
