// Package model はドメインモデルを定義する。
package model

import "fmt"

// NonFieldErrorsKey は特定フィールドに紐付かないバリデーションエラーのキー。
// 既存クライアントとのワイヤ互換のためDRF由来のキー名を使用する。
const NonFieldErrorsKey = "non_field_errors"

// FieldErrors はフィールド名→エラーメッセージ一覧のバリデーションエラーマップ。
// HTTP 400のレスポンスボディとしてそのままシリアライズされる。
type FieldErrors map[string][]string

// Add は指定フィールドにエラーメッセージを追加する。
func (f FieldErrors) Add(field, message string) {
	f[field] = append(f[field], message)
}

// HasErrors はエラーが1件以上存在するかを返す。
func (f FieldErrors) HasErrors() bool {
	return len(f) > 0
}

// Error はerrorインターフェースを実装する。
func (f FieldErrors) Error() string {
	return fmt.Sprintf("validation failed on %d field(s)", len(f))
}

// ワイヤ互換のために固定するバリデーションメッセージ。
const (
	MsgFieldBlank         = "This field may not be blank."
	MsgUsernameTaken      = "A user with that username already exists."
	MsgInvalidCredentials = "Unable to log in with provided credentials."
	MsgInvalidToken       = "Error decoding token."
	MsgRefreshExpired     = "Refresh has expired."
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeUserNotFound = "USER_NOT_FOUND"
)

// NewUnauthorizedError は認証失敗エラーを生成する。
// 失敗理由（ヘッダー欠落・署名不正・期限切れ・ユーザー消滅）は区別せず、
// ハンドラー実行前に一律で返す。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "有効なトークンをAuthorizationヘッダーに指定してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}
