package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/BaSui01/nodeflow/types"
	"go.uber.org/zap"
)

// DefaultMaxBodyBytes 默认请求体大小上限
const DefaultMaxBodyBytes int64 = 1 << 20

// =============================================================================
// 📦 通用响应结构
// =============================================================================

// Response 统一 API 响应结构
type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *ErrorInfo  `json:"error,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id,omitempty"`
}

// ErrorInfo 错误信息结构
type ErrorInfo struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	HTTPStatus int    `json:"-"` // 不序列化到 JSON
}

// =============================================================================
// 🎯 响应辅助函数
// =============================================================================

// WriteJSON 写入 JSON 响应
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)

	// 响应头已写出，编码失败时无法再补救
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess 写入成功响应
func WriteSuccess(w http.ResponseWriter, data interface{}) {
	WriteJSON(w, http.StatusOK, Response{
		Success:   true,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// WriteError 写入错误响应（从 types.Error）
func WriteError(w http.ResponseWriter, err *types.Error, logger *zap.Logger) {
	writeError(w, err, "", logger)
}

// WriteRequestError 同 WriteError，并带上请求 ID（来自 RequestID 中间件写入的 trace ID）
func WriteRequestError(w http.ResponseWriter, r *http.Request, err *types.Error, logger *zap.Logger) {
	requestID, _ := types.TraceID(r.Context())
	writeError(w, err, requestID, logger)
}

func writeError(w http.ResponseWriter, err *types.Error, requestID string, logger *zap.Logger) {
	status := HTTPStatus(err)
	errorInfo := &ErrorInfo{
		Code:       string(err.Code),
		Message:    err.Message,
		HTTPStatus: status,
	}
	if err.Cause != nil {
		errorInfo.Details = err.Cause.Error()
	}

	if logger != nil {
		fields := []zap.Field{
			zap.String("code", string(err.Code)),
			zap.String("message", err.Message),
			zap.Int("status", status),
		}
		if requestID != "" {
			fields = append(fields, zap.String("request_id", requestID))
		}
		if err.Cause != nil {
			fields = append(fields, zap.Error(err.Cause))
		}
		if status >= http.StatusInternalServerError {
			logger.Error("API error", fields...)
		} else {
			logger.Warn("API error", fields...)
		}
	}

	WriteJSON(w, status, Response{
		Success:   false,
		Error:     errorInfo,
		Timestamp: time.Now(),
		RequestID: requestID,
	})
}

// WriteErrorMessage 写入简单错误消息
func WriteErrorMessage(w http.ResponseWriter, status int, code types.ErrorCode, message string, logger *zap.Logger) {
	err := types.NewError(code, message).WithHTTPStatus(status)
	WriteError(w, err, logger)
}

// =============================================================================
// 🔄 错误码到 HTTP 状态码映射
// =============================================================================

// HTTPStatus 返回错误对应的 HTTP 状态码；显式设置的 HTTPStatus 优先
func HTTPStatus(err *types.Error) int {
	if err == nil {
		return http.StatusOK
	}
	if err.HTTPStatus != 0 {
		return err.HTTPStatus
	}
	return mapErrorCodeToHTTPStatus(err.Code)
}

func mapErrorCodeToHTTPStatus(code types.ErrorCode) int {
	switch code {
	case types.ErrDecode:
		return http.StatusBadRequest
	case types.ErrNodeFailed:
		return http.StatusUnprocessableEntity
	case types.ErrUnknown:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// =============================================================================
// 🛡️ 请求验证辅助函数
// =============================================================================

// DecodePayloadBody 读取请求体并解析为 Payload，整个请求体必须是单个 JSON 值。
// 超过 maxBytes 返回 413，空请求体或非法 JSON 返回 DECODE_ERROR
func DecodePayloadBody(w http.ResponseWriter, r *http.Request, maxBytes int64) (types.Payload, *types.Error) {
	if r.Body == nil || r.Body == http.NoBody {
		return types.Payload{}, types.NewDecodeError("request body is empty")
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return types.Payload{}, types.NewDecodeError(
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit),
			).WithHTTPStatus(http.StatusRequestEntityTooLarge)
		}
		return types.Payload{}, types.NewDecodeError("failed to read request body").WithCause(err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return types.Payload{}, types.NewDecodeError("request body is empty")
	}

	payload, err := types.ParseJSON(data)
	if err != nil {
		return types.Payload{}, types.AsError(err).WithHTTPStatus(http.StatusBadRequest)
	}
	return payload, nil
}

// ValidateContentType 验证 Content-Type 为 application/json（允许参数）
func ValidateContentType(w http.ResponseWriter, r *http.Request, logger *zap.Logger) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		err := types.NewDecodeError("Content-Type must be application/json").
			WithHTTPStatus(http.StatusUnsupportedMediaType)
		WriteRequestError(w, r, err, logger)
		return false
	}
	return true
}

// =============================================================================
// 📊 响应包装器（用于捕获状态码）
// =============================================================================

// ResponseWriter 包装 http.ResponseWriter 以捕获状态码
type ResponseWriter struct {
	http.ResponseWriter
	StatusCode int
	Written    bool
}

// NewResponseWriter 创建新的 ResponseWriter
func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	return &ResponseWriter{
		ResponseWriter: w,
		StatusCode:     http.StatusOK,
	}
}

// WriteHeader 重写 WriteHeader 以捕获状态码
func (rw *ResponseWriter) WriteHeader(code int) {
	if !rw.Written {
		rw.StatusCode = code
		rw.Written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

// Write 重写 Write 以标记已写入
func (rw *ResponseWriter) Write(b []byte) (int, error) {
	if !rw.Written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// Unwrap 供 http.ResponseController 访问底层 writer（SSE Flush）
func (rw *ResponseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
