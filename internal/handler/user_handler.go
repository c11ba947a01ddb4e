package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hitoshi/accountd/internal/account"
	"github.com/hitoshi/accountd/internal/middleware"
	"github.com/hitoshi/accountd/internal/model"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	// GetUser は指定IDのユーザーを取得する。
	GetUser(ctx context.Context, userID string) (*model.User, error)
	// UpdateProfile はプロフィールを更新し、更新後のユーザーを返す。
	UpdateProfile(ctx context.Context, userID string, input account.UpdateInput) (*model.User, error)
	// DeleteUser はアカウントを削除する。
	DeleteUser(ctx context.Context, userID string) error
}

// UserHandler はプロフィール管理のHTTPハンドラー。
// 操作対象は常に認証ミドルウェアが注入したユーザーIDのみ。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

// updateProfileRequest はプロフィール更新リクエストのボディ。
// ポインタ型によりフィールド欠落（変更なし）と空文字列設定を区別する。
type updateProfileRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
}

// profileResponse はプロフィール情報のAPIレスポンス。
// password_hashは決してシリアライズしない。
type profileResponse struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// GetProfile は本人のプロフィールを取得する。
// GET /user/
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	user, err := h.service.GetUser(r.Context(), userID)
	if err != nil {
		handleUserServiceError(w, err)
		return
	}

	writeProfileResponse(w, user)
}

// UpdateProfile は本人のプロフィールを更新する。
// PUT /user/ および PATCH /user/
//
// ボディに含まれるフィールドのみ更新し、欠落したフィールドは維持する。
func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMalformedBodyError(w)
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), userID, account.UpdateInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		handleUserServiceError(w, err)
		return
	}

	writeProfileResponse(w, user)
}

// DeleteAccount は本人のアカウントを削除する。
// DELETE /user/
//
// 削除後は同一トークンでの認証が失敗するようになる。
func (h *UserHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	if err := h.service.DeleteUser(r.Context(), userID); err != nil {
		handleUserServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SecureProbe は認証済みリクエストの到達確認エンドポイント。
// GET /secure/
func (h *UserHandler) SecureProbe(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

// writeProfileResponse はプロフィールを200 OKで書き込む。
func writeProfileResponse(w http.ResponseWriter, user *model.User) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(profileResponse{
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
	})
}

// handleUserServiceError はユーザーサービスのエラーをレスポンスに変換する。
func handleUserServiceError(w http.ResponseWriter, err error) {
	if errors.Is(err, account.ErrUserNotFound) {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewUserNotFoundError())
		return
	}
	handleInternalError(w, err)
}
