package squadboard

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// tokenResponse は登録・ログイン成功時のJSONレスポンス構造。
type tokenResponse struct {
	// Token はBearerトークンとして使うJWT。
	Token string `json:"token"`
	// Message は結果のメッセージ。
	Message string `json:"message"`
}

// handleRegister はユーザー登録を処理するハンドラを返す。
func (s *Server) handleRegister() gin.HandlerFunc {
	return func(c *gin.Context) {
		var in RegisterInput
		if err := c.ShouldBindJSON(&in); err != nil {
			respondError(c, invalidBodyError())
			return
		}

		token, err := s.service.Register(c.Request.Context(), in)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, tokenResponse{Token: token, Message: "User registered successfully"})
	}
}

// handleLogin はログインを処理するハンドラを返す。
// ログインのたびに新しいトークンを発行する。
func (s *Server) handleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		var in LoginInput
		if err := c.ShouldBindJSON(&in); err != nil {
			respondError(c, invalidBodyError())
			return
		}

		token, err := s.service.Login(c.Request.Context(), in)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, tokenResponse{Token: token, Message: "Login successful"})
	}
}

// invalidBodyError はリクエストボディを解釈できない場合のエラー。
func invalidBodyError() error {
	return newError(ErrValidation, "Invalid request body")
}
