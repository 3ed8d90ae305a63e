// Package cleanup は期限切れデータの自動削除ジョブを提供する。
// 期限切れセッションと、保持期間（デフォルト30日）を超過した匿名ユーザーを
// 日次バッチで削除する。匿名ユーザーのセッションとピッチはCASCADE削除で
// 自動的に処理される。
package cleanup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// Executor はSQLのExecContextを抽象化するインターフェース。
// *sql.DB や *sql.Tx を受け付けることができる。
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// CleanupJob は期限切れセッションと放置された匿名ユーザーの自動削除ジョブ。
// 日次実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type CleanupJob struct {
	db                     Executor
	logger                 *slog.Logger
	AnonymousRetentionDays int // 匿名ユーザーの保持日数（デフォルト: 30）
}

// NewCleanupJob は新しいCleanupJobを生成する。
// デフォルトの匿名ユーザー保持日数は30日。
func NewCleanupJob(db Executor, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		db:                     db,
		logger:                 logger,
		AnonymousRetentionDays: 30,
	}
}

// Run は期限切れセッションと保持期間を超過した匿名ユーザーを削除する。
// 匿名ユーザーはupdated_atがAnonymousRetentionDays日前より古いものが対象で、
// 関連するsessionsとpitchesはCASCADE削除により自動的に削除される。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	expiredSessions, err := j.deleteExpiredSessions(ctx)
	if err != nil {
		return err
	}

	staleUsers, err := j.deleteStaleAnonymousUsers(ctx)
	if err != nil {
		return err
	}

	duration := time.Since(start)
	j.logger.Info("cleanup job completed",
		slog.Int64("expired_sessions_deleted", expiredSessions),
		slog.Int64("anonymous_users_deleted", staleUsers),
		slog.Int("anonymous_retention_days", j.AnonymousRetentionDays),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}

// deleteExpiredSessions は有効期限を過ぎたセッションを削除する。
func (j *CleanupJob) deleteExpiredSessions(ctx context.Context) (int64, error) {
	query := `DELETE FROM sessions WHERE expires_at < now()`
	result, err := j.db.ExecContext(ctx, query)
	if err != nil {
		j.logger.Error("failed to delete expired sessions",
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("期限切れセッションの削除に失敗しました: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	return deleted, nil
}

// deleteStaleAnonymousUsers は保持期間を超過した匿名ユーザーを削除する。
// sessionsとpitchesはCASCADE削除される。
func (j *CleanupJob) deleteStaleAnonymousUsers(ctx context.Context) (int64, error) {
	interval := fmt.Sprintf("%d days", j.AnonymousRetentionDays)

	query := `DELETE FROM users WHERE is_anonymous = true AND updated_at < now() - $1::interval`
	result, err := j.db.ExecContext(ctx, query, interval)
	if err != nil {
		j.logger.Error("failed to delete stale anonymous users",
			slog.String("error", err.Error()),
			slog.Int("anonymous_retention_days", j.AnonymousRetentionDays),
		)
		return 0, fmt.Errorf("匿名ユーザーの削除に失敗しました: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	return deleted, nil
}
