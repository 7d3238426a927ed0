package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MatthewIsblind/todoList/internal/middleware"
	"github.com/MatthewIsblind/todoList/internal/model"
)

// TaskRepositoryInterface はタスクハンドラーが必要とするリポジトリインターフェース。
type TaskRepositoryInterface interface {
	Insert(ctx context.Context, description, date, taskTime, userEmail string) (int64, string, error)
	ListActiveByEmailAndDate(ctx context.Context, userEmail, date string) ([]model.Task, error)
	Deactivate(ctx context.Context, taskID int64) (bool, error)
}

// TaskHandler はタスク管理のHTTPハンドラー。
type TaskHandler struct {
	tasks TaskRepositoryInterface
}

// NewTaskHandler はTaskHandlerを生成する。
func NewTaskHandler(tasks TaskRepositoryInterface) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// addTaskRequest はタスク登録リクエストのボディ。
type addTaskRequest struct {
	Description string `json:"description"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	UserEmail   string `json:"user_email"`
}

// taskResponse はタスクのAPIレスポンス。
// user_emailは未設定の場合nullになる。
type taskResponse struct {
	ID          int64   `json:"id"`
	Description string  `json:"description"`
	Date        string  `json:"date"`
	Time        string  `json:"time"`
	UserEmail   *string `json:"user_email"`
}

// AddTask はタスクを登録する。
// POST /tasks/addTask
func (h *TaskHandler) AddTask(w http.ResponseWriter, r *http.Request) {
	var req addTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnprocessableEntity, "request body must be valid JSON")
		return
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		middleware.WriteErrorResponse(w, http.StatusUnprocessableEntity, "description must not be empty")
		return
	}

	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnprocessableEntity, "date must be in YYYY-MM-DD format")
		return
	}

	taskTime, err := normalizeTime(req.Time)
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnprocessableEntity, "time must be in HH:MM or HH:MM:SS format")
		return
	}

	id, email, err := h.tasks.Insert(r.Context(), description, req.Date, taskTime, req.UserEmail)
	if err != nil {
		handleTaskError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, taskResponse{
		ID:          id,
		Description: description,
		Date:        req.Date,
		Time:        taskTime,
		UserEmail:   optionalEmail(email),
	})
}

// GetActiveTasksByEmail は指定ユーザー・日付のアクティブなタスク一覧を返す。
// GET /tasks/getActiveTasksByEmail?date=YYYY-MM-DD&user_email=...
func (h *TaskHandler) GetActiveTasksByEmail(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("user_email"))
	if email == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, "user_email is required")
		return
	}

	date := r.URL.Query().Get("date")
	if _, err := time.Parse("2006-01-02", date); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, "date must be in YYYY-MM-DD format")
		return
	}

	tasks, err := h.tasks.ListActiveByEmailAndDate(r.Context(), email, date)
	if err != nil {
		handleTaskError(w, r, err)
		return
	}

	// 0件でもnullではなく空配列を返す
	responses := make([]taskResponse, 0, len(tasks))
	for _, task := range tasks {
		responses = append(responses, taskResponse{
			ID:          task.ID,
			Description: task.Description,
			Date:        task.Date,
			Time:        task.Time,
			UserEmail:   optionalEmail(task.UserEmail),
		})
	}

	writeJSON(w, http.StatusOK, responses)
}

// DeleteTask はタスクをソフトデリートする。
// DELETE /tasks/deleteTask/{id}
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusNotFound, "task not found")
		return
	}

	changed, err := h.tasks.Deactivate(r.Context(), taskID)
	if err != nil {
		handleTaskError(w, r, err)
		return
	}
	if !changed {
		middleware.WriteErrorResponse(w, http.StatusNotFound, "task not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// handleTaskError はストレージ層のエラーをHTTPステータスに変換する。
// 詳細はログにのみ残し、クライアントには一般的なメッセージを返す。
func handleTaskError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *model.ValidationError
	if errors.As(err, &validationErr) {
		middleware.WriteErrorResponse(w, http.StatusUnprocessableEntity, validationErr.Error())
		return
	}

	slog.Error("task request failed",
		slog.String("error", err.Error()),
		slog.String("request_id", middleware.RequestIDFromContext(r.Context())),
	)
	middleware.WriteInternalServerError(w)
}

// normalizeTime は時刻文字列をHH:MM[:SS]形式として検証し、秒が0の場合は省略する。
func normalizeTime(value string) (string, error) {
	if t, err := time.Parse("15:04:05", value); err == nil {
		if t.Second() == 0 {
			return t.Format("15:04"), nil
		}
		return t.Format("15:04:05"), nil
	}

	t, err := time.Parse("15:04", value)
	if err != nil {
		return "", err
	}
	return t.Format("15:04"), nil
}

// optionalEmail は空文字列をnullにマップする。
func optionalEmail(email string) *string {
	if email == "" {
		return nil
	}
	return &email
}
