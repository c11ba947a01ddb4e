// Package account はユーザー登録・認証・プロフィール管理のドメインロジックを提供する。
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/accountd/internal/model"
	"github.com/hitoshi/accountd/internal/repository"
	"github.com/hitoshi/accountd/internal/token"
)

var (
	// ErrUsernameTaken はusernameが既に登録済みであることを表す。
	ErrUsernameTaken = errors.New("username already taken")
	// ErrInvalidCredentials はログイン失敗を表す。
	// ユーザー不存在とパスワード不一致は外部から区別できないよう同一エラーにする。
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUserNotFound は対象ユーザーが存在しないことを表す。
	ErrUserNotFound = errors.New("user not found")
)

// dummyPasswordHash はユーザー不存在時にも照合を実行するためのダミーハッシュ。
// 不存在とパスワード不一致で応答時間が明確に変わらないようにする。
var dummyPasswordHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

// Service はアカウント管理のサービス層。
type Service struct {
	userRepo repository.UserRepository
	tokens   *token.Service
}

// NewService はServiceを生成する。
func NewService(userRepo repository.UserRepository, tokens *token.Service) *Service {
	return &Service{
		userRepo: userRepo,
		tokens:   tokens,
	}
}

// RegisterInput はユーザー登録の入力。
// バリデーション（必須・非空）はハンドラー層で行い、ここでは検証済みとして扱う。
type RegisterInput struct {
	Username  string
	Password  string
	FirstName string
	LastName  string
}

// Register はユーザーを作成し、新規ユーザーのトークンを発行して返す。
// usernameの重複はINSERT時のユニーク制約違反として検出する。
func (s *Service) Register(ctx context.Context, input RegisterInput) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &model.User{
		ID:           uuid.New().String(),
		Username:     input.Username,
		PasswordHash: string(hash),
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateUsername) {
			return "", ErrUsernameTaken
		}
		return "", fmt.Errorf("failed to create user: %w", err)
	}

	tokenString, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}

	slog.Info("new user registered",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return tokenString, nil
}

// Login はusernameとpasswordを照合し、成功時にトークンを発行して返す。
// ユーザー不存在とパスワード不一致はいずれもErrInvalidCredentialsを返す。
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return "", fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		// ユーザーが存在しない場合もダミーハッシュに対して照合を実行する
		_ = bcrypt.CompareHashAndPassword(dummyPasswordHash, []byte(password))
		return "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	tokenString, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}

	slog.Info("user logged in", slog.String("user_id", user.ID))

	return tokenString, nil
}

// VerifyToken はトークンの署名と有効期限を検証し、有効であれば再発行して返す。
// トークンの指すユーザーが削除済みの場合は無効として扱う。
func (s *Service) VerifyToken(ctx context.Context, tokenString string) (string, error) {
	claims, err := s.tokens.Verify(tokenString)
	if err != nil {
		return "", err
	}

	user, err := s.userRepo.FindByID(ctx, claims.Subject)
	if err != nil {
		return "", fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return "", token.ErrInvalidToken
	}

	return s.tokens.Reissue(claims)
}

// RefreshToken は期限切れを許容してトークンを検証し、新しいトークンを発行して返す。
// 初回発行時刻（orig_iat）からの猶予期間を過ぎたトークンは拒否する。
func (s *Service) RefreshToken(ctx context.Context, tokenString string) (string, error) {
	claims, err := s.tokens.VerifyForRefresh(tokenString)
	if err != nil {
		return "", err
	}

	user, err := s.userRepo.FindByID(ctx, claims.Subject)
	if err != nil {
		return "", fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return "", token.ErrInvalidToken
	}

	return s.tokens.Reissue(claims)
}

// GetUser は指定IDのユーザーを取得する。
func (s *Service) GetUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// UpdateInput はプロフィール更新の入力。
// nilのフィールドは変更せず既存の値を維持する。
type UpdateInput struct {
	FirstName *string
	LastName  *string
}

// UpdateProfile は本人のプロフィール（first_name, last_name）を更新し、
// 更新後のユーザーを返す。更新対象はトークン由来のuserIDのみ。
func (s *Service) UpdateProfile(ctx context.Context, userID string, input UpdateInput) (*model.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	if input.FirstName != nil {
		user.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		user.LastName = *input.LastName
	}
	user.UpdatedAt = time.Now()

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	slog.Info("user profile updated", slog.String("user_id", user.ID))

	return user, nil
}

// DeleteUser は本人のアカウントを削除する。
// 削除後は同一トークンでも認証に失敗する（指すユーザーが存在しないため）。
func (s *Service) DeleteUser(ctx context.Context, userID string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return ErrUserNotFound
	}

	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	slog.Info("user deleted",
		slog.String("user_id", userID),
		slog.String("username", user.Username),
	)

	return nil
}
