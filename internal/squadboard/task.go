package squadboard

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	squadboarddb "github.com/nao1215/squadboard/internal/squadboard/db"
	"github.com/nao1215/squadboard/pkg/middleware"
)

// timeLayout はレスポンスの日時形式。ミリ秒まで含むUTCのISO 8601。
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// createTaskRequest はタスク作成リクエストのJSON構造。
type createTaskRequest struct {
	// Name はタスク名。
	Name string `json:"name"`
}

// updateTaskRequest はタスク更新リクエストのJSON構造。
type updateTaskRequest struct {
	// Completed は完了フラグ。省略された場合はnil。
	Completed *bool `json:"completed"`
}

// taskResponse はタスクのJSONレスポンス構造。
type taskResponse struct {
	ID        string `json:"_id"`
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
	UserID    string `json:"userId"`
	CreatedAt string `json:"createdAt"`
}

// toTaskResponse はDB行をJSONレスポンスに変換する。
func toTaskResponse(t squadboarddb.Task) taskResponse {
	return taskResponse{
		ID:        t.ID,
		Name:      t.Name,
		Completed: t.Completed,
		UserID:    t.UserID,
		CreatedAt: formatTime(t.CreatedAt),
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// handleListTasks は呼び出し元ユーザーのタスク一覧を返すハンドラを返す。
func (s *Server) handleListTasks() gin.HandlerFunc {
	return func(c *gin.Context) {
		tasks, err := s.service.ListTasks(c.Request.Context(), middleware.GetUserID(c))
		if err != nil {
			respondError(c, err)
			return
		}

		responses := make([]taskResponse, 0, len(tasks))
		for _, t := range tasks {
			responses = append(responses, toTaskResponse(t))
		}
		c.JSON(http.StatusOK, responses)
	}
}

// handleCreateTask はタスク作成を処理するハンドラを返す。
func (s *Server) handleCreateTask() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createTaskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, invalidBodyError())
			return
		}

		task, err := s.service.CreateTask(c.Request.Context(), middleware.GetUserID(c), req.Name)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, toTaskResponse(task))
	}
}

// handleUpdateTask はタスクの完了フラグ更新を処理するハンドラを返す。
// 他人のタスクは存在しないものとして404を返す。
func (s *Server) handleUpdateTask() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req updateTaskRequest
		if err := c.ShouldBindJSON(&req); err != nil || req.Completed == nil {
			respondError(c, newError(ErrValidation, "completed must be a boolean"))
			return
		}

		task, err := s.service.UpdateTask(c.Request.Context(), middleware.GetUserID(c), c.Param("id"), *req.Completed)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, toTaskResponse(task))
	}
}

// handleDeleteTask はタスク削除を処理するハンドラを返す。
// 他人のタスクは存在しないものとして404を返す。
func (s *Server) handleDeleteTask() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.service.DeleteTask(c.Request.Context(), middleware.GetUserID(c), c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
	}
}
