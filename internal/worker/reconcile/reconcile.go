// Package reconcile はプロバイダーとローカルミラーの照合ジョブを提供する。
// 登録時のローカル挿入失敗などでプロバイダー側にしか存在しないユーザーを
// 定期的に検出し、欠落しているミラー行を補完する。
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/authgate/internal/model"
	"github.com/hitoshi/authgate/internal/repository"
	"github.com/hitoshi/authgate/internal/supabase"
)

// UserLister はプロバイダーの全ユーザー一覧を取得するインターフェース。
// supabase.Clientの部分集合として定義する。
type UserLister interface {
	ListUsers(ctx context.Context) ([]supabase.ProviderUser, error)
}

// MetricsRecorder は照合結果のメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordReconcileInserted(count int)
}

// ReconcileJob はプロバイダーとローカルミラーの照合ジョブ。
// 定期実行のバッチジョブとして設計されており、冪等な補完処理を保証する。
// 既存のミラー行は変更しない。
type ReconcileJob struct {
	provider UserLister
	userRepo repository.UserRepository
	logger   *slog.Logger
	metrics  MetricsRecorder
}

// NewReconcileJob は新しいReconcileJobを生成する。metricsはnilでもよい。
func NewReconcileJob(provider UserLister, userRepo repository.UserRepository, logger *slog.Logger, metrics MetricsRecorder) *ReconcileJob {
	return &ReconcileJob{
		provider: provider,
		userRepo: userRepo,
		logger:   logger,
		metrics:  metrics,
	}
}

// Run はプロバイダーの全ユーザーを走査し、ローカルミラーに存在しない行を補完する。
// 個々の行の失敗はログに記録して処理を継続する。
// 冪等: 補完対象がない場合は何も書き込まない。
func (j *ReconcileJob) Run(ctx context.Context) error {
	start := time.Now()

	providerUsers, err := j.provider.ListUsers(ctx)
	if err != nil {
		j.logger.Error("プロバイダーのユーザー一覧取得に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to list provider users: %w", err)
	}

	inserted := 0
	skipped := 0
	for _, pu := range providerUsers {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if _, err := uuid.Parse(pu.ID); err != nil {
			j.logger.Warn("プロバイダーのユーザーIDがUUIDではないためスキップします",
				slog.String("provider_user_id", pu.ID),
			)
			skipped++
			continue
		}

		existing, err := j.userRepo.FindByID(ctx, pu.ID)
		if err != nil {
			j.logger.Warn("ミラー行の検索に失敗しました",
				slog.String("provider_user_id", pu.ID),
				slog.String("error", err.Error()),
			)
			skipped++
			continue
		}
		if existing != nil {
			continue
		}

		newUser := &model.User{
			ID:    pu.ID,
			Email: pu.Email,
			Name:  pu.Name,
			Role:  model.RoleUser,
		}
		if err := j.userRepo.Create(ctx, newUser); err != nil {
			j.logger.Warn("ミラー行の補完に失敗しました",
				slog.String("provider_user_id", pu.ID),
				slog.String("error", err.Error()),
			)
			skipped++
			continue
		}

		j.logger.Info("欠落していたミラー行を補完しました",
			slog.String("user_id", pu.ID),
			slog.String("email", pu.Email),
		)
		inserted++
	}

	if j.metrics != nil && inserted > 0 {
		j.metrics.RecordReconcileInserted(inserted)
	}

	duration := time.Since(start)
	j.logger.Info("照合ジョブが完了しました",
		slog.Int("provider_users", len(providerUsers)),
		slog.Int("inserted", inserted),
		slog.Int("skipped", skipped),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
