package squadboard

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// エラーの種類。ハンドラはerrors.Isでこれらを判別してHTTPステータスに変換する。
var (
	// ErrValidation は入力値が不正であることを表す。
	ErrValidation = errors.New("validation error")
	// ErrConflict は登録済みのメールアドレスでの再登録を表す。
	ErrConflict = errors.New("conflict")
	// ErrInvalidCredentials はメールアドレスまたはパスワードの不一致を表す。
	// どちらが誤っているかは区別しない。
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrNotFound は対象が存在しないか、呼び出し元の所有物ではないことを表す。
	ErrNotFound = errors.New("not found")
)

// serverErrorMessage は内部エラー時にクライアントへ返す固定メッセージ。
const serverErrorMessage = "Server error"

// appError はエラーの種類とクライアント向けメッセージの組。
type appError struct {
	kind    error
	message string
}

func (e *appError) Error() string { return e.message }

func (e *appError) Unwrap() error { return e.kind }

// newError は種類kindのエラーをクライアント向けメッセージ付きで生成する。
func newError(kind error, message string) error {
	return &appError{kind: kind, message: message}
}

// statusOf はエラーの種類に対応するHTTPステータスを返す。
func statusOf(err error) int {
	switch {
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrInvalidCredentials):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// respondError はエラーをHTTPレスポンスに変換する。
// 想定外のエラーはログに記録し、詳細を伏せて500を返す。
func respondError(c *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		log.Printf("[SquadBoard] %s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(status, gin.H{"message": serverErrorMessage})
		return
	}

	var appErr *appError
	if errors.As(err, &appErr) {
		c.JSON(status, gin.H{"message": appErr.message})
		return
	}
	c.JSON(status, gin.H{"message": err.Error()})
}
