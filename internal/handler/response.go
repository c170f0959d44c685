package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hitoshi/pantryplus/internal/auth"
	"github.com/hitoshi/pantryplus/internal/kroger"
	"github.com/hitoshi/pantryplus/internal/middleware"
	"github.com/hitoshi/pantryplus/internal/model"
	"github.com/hitoshi/pantryplus/internal/repository"
)

// maxBodyBytes はJSONリクエストボディの上限。
const maxBodyBytes = 1 << 20

// validate はリクエストDTOの検証器。エラーにはJSONのフィールド名を使う。
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON はリクエストボディをデコードし、検証する。
// 失敗時は400で返すべきValidationErrorを返す。
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) *model.APIError {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return model.NewValidationError("JSONの解析に失敗しました")
	}
	if err := validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

// validationError はvalidatorのエラーを最初の不正フィールドを示すValidationErrorに変換する。
func validationError(err error) *model.APIError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return model.NewValidationError(err.Error())
	}
	fe := verrs[0]
	field := strings.SplitN(fe.Namespace(), ".", 2)
	name := fe.Field()
	if len(field) == 2 {
		name = field[1]
	}
	switch fe.Tag() {
	case "required":
		return model.NewValidationError(fmt.Sprintf("%sは必須です", name))
	case "gte", "min":
		return model.NewValidationError(fmt.Sprintf("%sは%s以上で指定してください", name, fe.Param()))
	default:
		return model.NewValidationError(fmt.Sprintf("%sが不正です", name))
	}
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response", slog.String("error", err.Error()))
	}
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
// ベンダーのエラー詳細はレスポンスに含めない。
func handleServiceError(w http.ResponseWriter, err error) {
	apiErr := toAPIError(err)
	if apiErr.Code == model.ErrCodeInternal {
		slog.Error("internal server error", slog.String("error", err.Error()))
	}
	writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
}

// toAPIError はセンチネルエラーを統一エラーに変換する。
func toAPIError(err error) *model.APIError {
	var apiErr *model.APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, auth.ErrSessionExpired):
		return model.NewSessionExpiredError()
	case errors.Is(err, kroger.ErrUpstreamAuth):
		return model.NewUpstreamAuthError()
	case errors.Is(err, kroger.ErrUpstreamProfile):
		return model.NewUpstreamProfileError()
	case errors.Is(err, kroger.ErrUpstreamUnavailable):
		return model.NewUpstreamUnavailableError("データ")
	case errors.Is(err, repository.ErrConstraintViolation):
		return model.NewConstraintViolationError()
	default:
		return model.NewInternalError()
	}
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeValidation, model.ErrCodeInvalidState:
		return http.StatusBadRequest
	case model.ErrCodeUnauthorized, model.ErrCodeSessionExpired:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden, model.ErrCodeCSRFTokenInvalid:
		return http.StatusForbidden
	case model.ErrCodeUserNotFound, model.ErrCodeLocationNotFound:
		return http.StatusNotFound
	case model.ErrCodeConstraintViolation:
		return http.StatusConflict
	case model.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// sessionUserID はセッションのユーザーIDを返す。セッションがなければ空文字。
func sessionUserID(r *http.Request) string {
	userID, _ := middleware.UserIDFromContext(r.Context())
	return userID
}
