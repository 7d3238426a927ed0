package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/MatthewIsblind/todoList/internal/database"
	"github.com/MatthewIsblind/todoList/internal/model"
)

// TaskRepo はStoreを使用したタスクリポジトリ。
type TaskRepo struct {
	store *Store
}

// NewTaskRepo はTaskRepoを生成する。
func NewTaskRepo(store *Store) *TaskRepo {
	return &TaskRepo{store: store}
}

// Insert はタスク行を作成し、IDと正規化済みメールアドレスを返す。
// 新規行は常にアクティブ。IDの取得方法は方言により異なる
// （PostgreSQLはRETURNING、SQLiteはLastInsertId）。
func (r *TaskRepo) Insert(ctx context.Context, description, date, taskTime, userEmail string) (int64, string, error) {
	normalizedEmail := strings.TrimSpace(userEmail)

	var taskID int64
	err := r.store.withLock(func() error {
		if r.store.dialect == database.DialectPostgres {
			return r.store.db.QueryRowContext(ctx,
				`INSERT INTO tasks (description, date, time, user_email, isactive)
				 VALUES ($1, $2, $3, $4, 1)
				 RETURNING id`,
				description, date, taskTime, normalizedEmail,
			).Scan(&taskID)
		}

		result, err := r.store.db.ExecContext(ctx,
			`INSERT INTO tasks (description, date, time, user_email, isactive)
			 VALUES ($1, $2, $3, $4, 1)`,
			description, date, taskTime, normalizedEmail,
		)
		if err != nil {
			return err
		}
		taskID, err = result.LastInsertId()
		return err
	})
	if err != nil {
		return 0, "", model.NewStoreError("insert task", err)
	}

	return taskID, normalizedEmail, nil
}

// ListActiveByEmailAndDate は指定メールアドレス・日付のアクティブなタスクを返す。
// 時刻昇順、同時刻はID昇順で安定に並ぶ。
// 空白のみのメールアドレスはストレージに触れず空の結果を返す。
func (r *TaskRepo) ListActiveByEmailAndDate(ctx context.Context, userEmail, date string) ([]model.Task, error) {
	normalizedEmail := strings.TrimSpace(userEmail)
	if normalizedEmail == "" {
		return []model.Task{}, nil
	}

	var tasks []model.Task
	err := r.store.withLock(func() error {
		rows, err := r.store.db.QueryContext(ctx,
			`SELECT id, description, date, time, user_email
			 FROM tasks
			 WHERE user_email = $1 AND date = $2 AND isactive = 1
			 ORDER BY time, id`,
			normalizedEmail, date,
		)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var task model.Task
			var email sql.NullString
			if err := rows.Scan(&task.ID, &task.Description, &task.Date, &task.Time, &email); err != nil {
				return err
			}
			task.UserEmail = email.String
			task.Active = true
			tasks = append(tasks, task)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, model.NewStoreError("fetch tasks", err)
	}

	return tasks, nil
}

// Deactivate は指定IDのタスクのアクティブフラグを落とす。
// 現在アクティブな行のみ変更し、変更の有無を返す。繰り返し呼んでも安全（冪等）。
func (r *TaskRepo) Deactivate(ctx context.Context, taskID int64) (bool, error) {
	var changed bool
	err := r.store.withLock(func() error {
		result, err := r.store.db.ExecContext(ctx,
			`UPDATE tasks
			 SET isactive = 0, updated_at = CURRENT_TIMESTAMP
			 WHERE id = $1 AND isactive = 1`,
			taskID,
		)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		changed = affected > 0
		return nil
	})
	if err != nil {
		return false, model.NewStoreError("delete task", err)
	}

	return changed, nil
}

// compile-time interface check
var _ TaskRepository = (*TaskRepo)(nil)
