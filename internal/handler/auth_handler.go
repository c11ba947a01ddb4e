package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/accountd/internal/account"
	"github.com/hitoshi/accountd/internal/middleware"
	"github.com/hitoshi/accountd/internal/model"
	"github.com/hitoshi/accountd/internal/token"
)

// AccountServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AccountServiceInterface interface {
	// Register はユーザーを作成し、新規発行したトークンを返す。
	Register(ctx context.Context, input account.RegisterInput) (string, error)
	// Login は認証情報を照合し、成功時にトークンを返す。
	Login(ctx context.Context, username, password string) (string, error)
	// VerifyToken はトークンを検証し、有効であれば再発行して返す。
	VerifyToken(ctx context.Context, tokenString string) (string, error)
	// RefreshToken は期限切れを許容してトークンを検証し、新しいトークンを返す。
	RefreshToken(ctx context.Context, tokenString string) (string, error)
}

// AuthHandler はユーザー登録・ログイン・トークン操作のHTTPハンドラー。
type AuthHandler struct {
	service AccountServiceInterface
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(service AccountServiceInterface) *AuthHandler {
	return &AuthHandler{
		service: service,
	}
}

// registerRequest はユーザー登録リクエストのボディ。
type registerRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// tokenRequest はトークン検証・更新リクエストのボディ。
type tokenRequest struct {
	Token string `json:"token"`
}

// tokenResponse はトークンを返すAPIレスポンス。
type tokenResponse struct {
	Token string `json:"token"`
}

// Register はユーザー登録を処理する。
// POST /register/
//
// usernameとpasswordは必須。空欄のフィールドはすべてまとめて報告する。
// 成功時は201で新規ユーザーのトークンを返す。
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMalformedBodyError(w)
		return
	}

	errs := model.FieldErrors{}
	if req.Username == "" {
		errs.Add("username", model.MsgFieldBlank)
	}
	if req.Password == "" {
		errs.Add("password", model.MsgFieldBlank)
	}
	if errs.HasErrors() {
		middleware.WriteFieldErrors(w, errs)
		return
	}

	tokenString, err := h.service.Register(r.Context(), account.RegisterInput{
		Username:  req.Username,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		if errors.Is(err, account.ErrUsernameTaken) {
			errs := model.FieldErrors{}
			errs.Add("username", model.MsgUsernameTaken)
			middleware.WriteFieldErrors(w, errs)
			return
		}
		handleInternalError(w, err)
		return
	}

	writeTokenResponse(w, tokenString)
}

// Login はログインを処理する。
// POST /login/
//
// ユーザー不存在とパスワード不一致はバイト単位で同一のレスポンスを返す。
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMalformedBodyError(w)
		return
	}

	errs := model.FieldErrors{}
	if req.Username == "" {
		errs.Add("username", model.MsgFieldBlank)
	}
	if req.Password == "" {
		errs.Add("password", model.MsgFieldBlank)
	}
	if errs.HasErrors() {
		middleware.WriteFieldErrors(w, errs)
		return
	}

	tokenString, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, account.ErrInvalidCredentials) {
			errs := model.FieldErrors{}
			errs.Add(model.NonFieldErrorsKey, model.MsgInvalidCredentials)
			middleware.WriteFieldErrors(w, errs)
			return
		}
		handleInternalError(w, err)
		return
	}

	writeTokenResponse(w, tokenString)
}

// VerifyToken はトークンの検証を処理する。
// POST /token_verify/
//
// 有効なトークンに対しては再発行したトークンを201で返す。
func (h *AuthHandler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTokenRequest(w, r)
	if !ok {
		return
	}

	tokenString, err := h.service.VerifyToken(r.Context(), req.Token)
	if err != nil {
		handleTokenError(w, err)
		return
	}

	writeTokenResponse(w, tokenString)
}

// RefreshToken はトークンの更新を処理する。
// POST /token_refresh/
//
// 期限切れトークンでも、初回発行からの猶予期間内であれば新しいトークンを返す。
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTokenRequest(w, r)
	if !ok {
		return
	}

	tokenString, err := h.service.RefreshToken(r.Context(), req.Token)
	if err != nil {
		handleTokenError(w, err)
		return
	}

	writeTokenResponse(w, tokenString)
}

// --- ヘルパー関数 ---

// decodeTokenRequest はtokenフィールドを含むリクエストボディを解析する。
// ボディ不正・token空欄の場合はエラーレスポンスを書き込みfalseを返す。
func decodeTokenRequest(w http.ResponseWriter, r *http.Request) (*tokenRequest, bool) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMalformedBodyError(w)
		return nil, false
	}
	if req.Token == "" {
		errs := model.FieldErrors{}
		errs.Add("token", model.MsgFieldBlank)
		middleware.WriteFieldErrors(w, errs)
		return nil, false
	}
	return &req, true
}

// writeTokenResponse はトークンを201 Createdで書き込む。
func writeTokenResponse(w http.ResponseWriter, tokenString string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(tokenResponse{Token: tokenString})
}

// writeMalformedBodyError はJSONとして解析できないボディへのエラーレスポンスを書き込む。
func writeMalformedBodyError(w http.ResponseWriter) {
	errs := model.FieldErrors{}
	errs.Add(model.NonFieldErrorsKey, "Invalid request body.")
	middleware.WriteFieldErrors(w, errs)
}

// handleTokenError はトークン検証・更新のエラーをレスポンスに変換する。
// トークン起因のエラーはnon_field_errorsの400、それ以外は500として扱う。
func handleTokenError(w http.ResponseWriter, err error) {
	errs := model.FieldErrors{}
	switch {
	case errors.Is(err, token.ErrRefreshExpired):
		errs.Add(model.NonFieldErrorsKey, model.MsgRefreshExpired)
	case errors.Is(err, token.ErrInvalidToken):
		errs.Add(model.NonFieldErrorsKey, model.MsgInvalidToken)
	default:
		handleInternalError(w, err)
		return
	}
	middleware.WriteFieldErrors(w, errs)
}

// handleInternalError は予期しないエラーをログに記録し500を返す。
func handleInternalError(w http.ResponseWriter, err error) {
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}
