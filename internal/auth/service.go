// Package auth は外部認証プロバイダーと連携した登録・ログインの
// オーケストレーションと、アクセストークンの発行・検証を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hitoshi/authgate/internal/model"
	"github.com/hitoshi/authgate/internal/repository"
	"github.com/hitoshi/authgate/internal/supabase"
)

// ProviderClient は認証プロバイダーへのアウトバウンド呼び出しインターフェース。
// supabase.Clientの部分集合として定義する。
type ProviderClient interface {
	// SignUp はプロバイダーにアカウントを作成し、割り当てられたユーザーIDを返す。
	SignUp(ctx context.Context, email, password, name string) (string, error)
	// SignIn はパスワード認証を行い、トークンとユーザーIDを返す。
	SignIn(ctx context.Context, email, password string) (*supabase.SignInResult, error)
}

// MetricsRecorder は認証操作のメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordRegistration()
	RecordLogin()
}

// Service は登録・ログインのビジネスロジックを提供する。
// プロバイダー側のレコードとローカルミラー行の同期はここで行う。
type Service struct {
	provider ProviderClient
	userRepo repository.UserRepository
	tokens   *TokenService
	metrics  MetricsRecorder
}

// NewService はServiceを生成する。metricsはnilでもよい。
func NewService(
	provider ProviderClient,
	userRepo repository.UserRepository,
	tokens *TokenService,
	metrics MetricsRecorder,
) *Service {
	return &Service{
		provider: provider,
		userRepo: userRepo,
		tokens:   tokens,
		metrics:  metrics,
	}
}

// Register は新規ユーザーを登録する。
// 1. プロバイダーにアカウントを作成する。失敗した場合はローカルには何も書き込まない。
// 2. プロバイダーが割り当てたIDをそのまま主キーとしてミラー行を挿入する。
// 3. DB側デフォルト（role・タイムスタンプ）を反映するため行を再読込して返す。
// 手順2以降の失敗はプロバイダー側のレコードだけが残る不整合を生むが、
// ここでは補償せず照合ワーカーの掃き出しに委ねる。
func (s *Service) Register(ctx context.Context, email, password, name string) (*model.User, error) {
	providerUserID, err := s.provider.SignUp(ctx, email, password, name)
	if err != nil {
		return nil, classifySignUpError(err)
	}

	// プロバイダーのIDはUUIDであることを前提とする（ローカル採番は行わない）
	if _, err := uuid.Parse(providerUserID); err != nil {
		return nil, model.NewServerError(fmt.Sprintf("provider returned non-UUID user id: %s", providerUserID))
	}

	newUser := &model.User{
		ID:    providerUserID,
		Email: email,
		Name:  name,
		Role:  model.RoleUser,
	}

	if err := s.userRepo.Create(ctx, newUser); err != nil {
		// プロバイダー側には作成済み。ローカルミラーなしの不整合状態。
		slog.Error("local mirror insert failed after provider signup",
			slog.String("provider_user_id", providerUserID),
			slog.String("error", err.Error()),
		)
		return nil, model.NewServerError(err.Error())
	}

	created, err := s.userRepo.FindByID(ctx, providerUserID)
	if err != nil {
		return nil, model.NewServerError(err.Error())
	}
	if created == nil {
		return nil, model.NewServerError("user row missing after insert")
	}

	if s.metrics != nil {
		s.metrics.RecordRegistration()
	}

	slog.Info("new user registered",
		slog.String("user_id", created.ID),
		slog.String("email", created.Email),
	)

	return created, nil
}

// Login はパスワード認証を行い、アクセストークンを返す。
// プロバイダーが認証を受理した後、ローカルのシークレットで署名した
// 自前のトークンを発行する。プロバイダー発行のトークンはクライアントに渡さない。
// ローカル状態は一切作成しない。
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	result, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		return "", classifySignInError(err)
	}

	token, err := s.tokens.Issue(result.UserID)
	if err != nil {
		return "", model.NewServerError(err.Error())
	}

	if s.metrics != nil {
		s.metrics.RecordLogin()
	}

	slog.Info("user logged in", slog.String("user_id", result.UserID))

	return token, nil
}

// classifySignUpError はサインアップ失敗をAPIエラー分類に変換する。
// プロバイダーの400系（メール重複・弱いパスワード等）はメッセージを
// 引き継いでBAD_REQUESTに、それ以外はSERVER_ERRORになる。
func classifySignUpError(err error) error {
	var statusErr *supabase.StatusError
	if errors.As(err, &statusErr) {
		if statusErr.StatusCode >= 400 && statusErr.StatusCode < 500 {
			return model.NewBadRequestError(statusErr.Message)
		}
		return model.NewServerError(fmt.Sprintf("Falha ao registrar usuário no Supabase: %s", statusErr.Message))
	}
	return model.NewServerError(fmt.Sprintf("Erro inesperado ao registrar usuário: %s", err.Error()))
}

// classifySignInError はサインイン失敗をAPIエラー分類に変換する。
// プロバイダーの400系は原因を問わず一律にUNAUTHORIZEDとする
// （存在しないアカウント・パスワード誤り・未確認アカウントは区別しない）。
func classifySignInError(err error) error {
	var statusErr *supabase.StatusError
	if errors.As(err, &statusErr) {
		if statusErr.StatusCode >= 400 && statusErr.StatusCode < 500 {
			return model.NewUnauthorizedError()
		}
		return model.NewServerError(fmt.Sprintf("Falha ao autenticar no Supabase: %s", statusErr.Message))
	}
	return model.NewServerError(fmt.Sprintf("Erro inesperado ao autenticar usuário: %s", err.Error()))
}
