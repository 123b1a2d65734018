package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/workplace-reservations/internal/application"
)

var (
	errBadRequestBody       = errors.New("無効なリクエスト形式です。")
	errInvalidBookingID     = errors.New("無効な予約 ID です。")
	errInvalidParticipantID = errors.New("無効な参加者 ID です。")
	errInvalidResourceID    = errors.New("無効なリソース ID です。")
	errMissingSessionToken  = errors.New("認証トークンを指定してください")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := localizedStatusMessage(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	switch {
	case errors.Is(err, application.ErrUnauthorized):
		r.writeJSON(ctx, w, http.StatusForbidden, errorResponse{
			ErrorCode: "AUTH_FORBIDDEN",
			Message:   "この操作を実行する権限がありません。",
		})
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: "指定されたリソースが見つかりません。"})
	case errors.Is(err, application.ErrConflict):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "BOOKING_CONFLICT",
			Message:   "指定された時間帯は既に予約されています。",
		})
	case errors.Is(err, application.ErrInvalidInterval):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "INVALID_INTERVAL",
			Message:   "終了日時は開始日時より後である必要があります。",
		})
	case errors.Is(err, application.ErrDuplicateParticipant):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "DUPLICATE_PARTICIPANT",
			Message:   "既に招待済みのユーザーが含まれています。",
		})
	case errors.Is(err, application.ErrInvalidTransition):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "INVALID_TRANSITION",
			Message:   "この招待には既に回答済みです。",
		})
	default:
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			details := localizeValidationErrors(vErr)
			r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
				Message: "入力内容に誤りがあります。",
				Errors:  details,
			})
			return
		}

		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "サーバー内部でエラーが発生しました。"})
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := LoggerFromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

func localizedStatusMessage(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "リクエスト内容が正しくありません。"
	case http.StatusUnauthorized:
		return "認証が必要です。"
	case http.StatusForbidden:
		return "この操作を実行する権限がありません。"
	case http.StatusNotFound:
		return "指定されたリソースが見つかりません。"
	case http.StatusConflict:
		return "要求はリソースの現在の状態と競合しています。"
	case http.StatusUnprocessableEntity:
		return "入力内容に誤りがあります。"
	default:
		return "サーバー内部でエラーが発生しました。"
	}
}

func localizeValidationErrors(vErr *application.ValidationError) map[string]string {
	if vErr == nil || len(vErr.FieldErrors) == 0 {
		return nil
	}

	translated := make(map[string]string, len(vErr.FieldErrors))
	for field, msg := range vErr.FieldErrors {
		translated[field] = translateValidationMessage(msg)
	}
	return translated
}

func translateValidationMessage(message string) string {
	switch message {
	case "resource is required":
		return "リソース ID は必須です。"
	case "resource does not exist":
		return "指定されたリソースは存在しません。"
	case "resource kind mismatch":
		return "リソース種別が一致しません。"
	case "resource id is required":
		return "リソース ID は必須です。"
	case "kind must be room or vehicle":
		return "リソース種別は room または vehicle を指定してください。"
	case "title is required":
		return "タイトルは必須です。"
	case "start is required":
		return "開始日時は必須です。"
	case "start must be in Asia/Tokyo (JST)":
		return "開始日時は日本標準時で指定してください。"
	case "end is required":
		return "終了日時は必須です。"
	case "end must be in Asia/Tokyo (JST)":
		return "終了日時は日本標準時で指定してください。"
	case "only room bookings take invitees":
		return "参加者を指定できるのは会議室予約のみです。"
	case "only room bookings take participants":
		return "参加者を追加できるのは会議室予約のみです。"
	case "booking has already ended":
		return "終了済みの予約には招待できません。"
	case "booking id is required":
		return "予約 ID は必須です。"
	case "at least one invitee is required":
		return "少なくとも 1 名の招待者を指定してください。"
	case "invitee user id is required":
		return "招待者のユーザー ID は必須です。"
	case "invitee role must be required or optional":
		return "招待者の役割は required または optional を指定してください。"
	case "status must be accepted or declined":
		return "回答は accepted または declined を指定してください。"
	case "user id is required":
		return "ユーザー ID は必須です。"
	default:
		if strings.HasPrefix(message, "unknown user ids:") {
			return "存在しないユーザー ID が含まれています: " + strings.TrimSpace(strings.TrimPrefix(message, "unknown user ids:"))
		}
		return message
	}
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
