// Package cleanup は非アクティブなタスクの自動削除ジョブを提供する。
// ソフトデリート済みのまま保持期間（デフォルト30日）を超過したタスク行を
// 日次バッチで物理削除する。
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

// PurgeRecorder は物理削除件数のメトリクス記録インターフェース。
type PurgeRecorder interface {
	RecordTasksPurged(count int)
}

// CleanupJob は保持期間を超過した非アクティブタスクの自動削除ジョブ。
// 日次実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type CleanupJob struct {
	db            Executor
	logger        *slog.Logger
	recorder      PurgeRecorder // nil可
	RetentionDays int           // 非アクティブタスクの保持日数（デフォルト: 30）
}

// NewCleanupJob は新しいCleanupJobを生成する。
// デフォルトの保持日数は30日。
func NewCleanupJob(db Executor, logger *slog.Logger, recorder PurgeRecorder) *CleanupJob {
	return &CleanupJob{
		db:            db,
		logger:        logger,
		recorder:      recorder,
		RetentionDays: 30,
	}
}

// Run は保持期間を超過した非アクティブタスクを削除する。
// updated_atがRetentionDays日前より古い非アクティブ行をDELETEする。
// カットオフはGo側で計算し、sqliteとpostgresの両方で同じ文が動く。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	cutoff := start.AddDate(0, 0, -j.RetentionDays).UTC().Format("2006-01-02 15:04:05")

	query := `DELETE FROM tasks WHERE isactive = 0 AND updated_at < $1`
	result, err := j.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		j.logger.Error("task cleanup job failed",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return fmt.Errorf("failed to purge inactive tasks: %w", err)
	}

	deletedCount, err := result.RowsAffected()
	if err != nil {
		j.logger.Error("failed to read purged row count",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to read purged row count: %w", err)
	}

	if j.recorder != nil {
		j.recorder.RecordTasksPurged(int(deletedCount))
	}

	duration := time.Since(start)
	j.logger.Info("task cleanup job finished",
		slog.Int64("deleted_count", deletedCount),
		slog.Int("retention_days", j.RetentionDays),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
