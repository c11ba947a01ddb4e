// Package token はJWTの発行・検証・リフレッシュを提供する。
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken は署名不正・期限切れ・形式不正のトークンを表す。
	ErrInvalidToken = errors.New("invalid token")
	// ErrRefreshExpired はリフレッシュ猶予期間を過ぎたトークンを表す。
	ErrRefreshExpired = errors.New("refresh window has expired")
)

// Claims はトークンに埋め込むクレーム。
// SubjectにユーザーID、OrigIatに初回発行時刻を保持する。
// OrigIatはリフレッシュを繰り返しても引き継がれ、リフレッシュ可能期間の起点となる。
type Claims struct {
	jwt.RegisteredClaims
	OrigIat int64 `json:"orig_iat"`
}

// Service はHS256署名のJWTを発行・検証するサービス。
// 署名鍵と有効期間は起動時の設定から注入し、プロセス全体で共有するグローバル状態は持たない。
type Service struct {
	secret        []byte
	expiry        time.Duration
	refreshWindow time.Duration
}

// NewService はServiceを生成する。
// expiryはトークン有効期間、refreshWindowは初回発行からリフレッシュを許す期間。
func NewService(secret string, expiry, refreshWindow time.Duration) *Service {
	return &Service{
		secret:        []byte(secret),
		expiry:        expiry,
		refreshWindow: refreshWindow,
	}
}

// Issue は指定ユーザーIDの新規トークンを発行する。
// orig_iatは現在時刻で初期化される。
func (s *Service) Issue(userID string) (string, error) {
	now := time.Now()
	return s.sign(userID, now, now.Unix())
}

// Reissue は検証済みクレームからトークンを再発行する。
// 有効期限は現在時刻から延長されるが、orig_iatは元の値を引き継ぐ。
func (s *Service) Reissue(claims *Claims) (string, error) {
	return s.sign(claims.Subject, time.Now(), claims.OrigIat)
}

// Verify はトークンの署名と有効期限を検証し、クレームを返す。
// 形式不正・署名不正・期限切れはいずれもErrInvalidTokenを返す。
func (s *Service) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// VerifyForRefresh は期限切れを許容してトークンを検証し、クレームを返す。
// 署名は必ず検証し、orig_iatからのリフレッシュ猶予期間を過ぎている場合は
// ErrRefreshExpiredを返す。
func (s *Service) VerifyForRefresh(tokenString string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	if claims.OrigIat == 0 {
		return nil, ErrInvalidToken
	}
	refreshDeadline := time.Unix(claims.OrigIat, 0).Add(s.refreshWindow)
	if time.Now().After(refreshDeadline) {
		return nil, ErrRefreshExpired
	}

	return claims, nil
}

func (s *Service) sign(userID string, now time.Time, origIat int64) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
		OrigIat: origIat,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

func (s *Service) keyFunc(t *jwt.Token) (any, error) {
	return s.secret, nil
}
