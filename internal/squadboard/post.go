package squadboard

import (
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	squadboarddb "github.com/nao1215/squadboard/internal/squadboard/db"
	"github.com/nao1215/squadboard/pkg/middleware"
)

// multipartOverhead は画像以外のフォーム項目と境界文字列のための余裕分。
const multipartOverhead = 64 << 10

// postResponse は投稿のJSONレスポンス構造。
type postResponse struct {
	ID        string `json:"_id"`
	Content   string `json:"content"`
	ImageURL  string `json:"imageURL"`
	Author    string `json:"author"`
	UserID    string `json:"userId"`
	CreatedAt string `json:"createdAt"`
}

// toPostResponse はDB行をJSONレスポンスに変換する。
func toPostResponse(p squadboarddb.Post) postResponse {
	return postResponse{
		ID:        p.ID,
		Content:   p.Content,
		ImageURL:  p.ImageUrl,
		Author:    p.Author,
		UserID:    p.UserID,
		CreatedAt: formatTime(p.CreatedAt),
	}
}

// handleListPosts は全ユーザーの投稿一覧を返すハンドラを返す。
func (s *Server) handleListPosts() gin.HandlerFunc {
	return func(c *gin.Context) {
		posts, err := s.service.ListPosts(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}

		responses := make([]postResponse, 0, len(posts))
		for _, p := range posts {
			responses = append(responses, toPostResponse(p))
		}
		c.JSON(http.StatusOK, responses)
	}
}

// handleCreatePost は投稿作成を処理するハンドラを返す。
// JSONのほか、image項目に画像を添付したmultipart/form-dataも受け付ける。
func (s *Server) handleCreatePost() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)

		var (
			in    PostInput
			image *multipart.FileHeader
		)
		if c.ContentType() == gin.MIMEMultipartPOSTForm {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.images.maxBytes+multipartOverhead)
			form, err := c.MultipartForm()
			if err != nil {
				var maxErr *http.MaxBytesError
				if errors.As(err, &maxErr) {
					respondError(c, s.images.tooLargeError())
					return
				}
				respondError(c, invalidBodyError())
				return
			}
			in.Content = c.PostForm("content")
			in.ImageURL = c.PostForm("imageURL")
			if files := form.File["image"]; len(files) > 0 {
				image = files[0]
			}
		} else if err := c.ShouldBindJSON(&in); err != nil {
			respondError(c, invalidBodyError())
			return
		}

		if image != nil {
			// 不正な投稿で画像だけが残らないよう、保存前に本文を検証する
			if err := s.service.ValidatePost(in.Content, true); err != nil {
				respondError(c, err)
				return
			}
			url, err := s.images.Save(image)
			if err != nil {
				respondError(c, err)
				return
			}
			in.ImageURL = url
		}

		post, err := s.service.CreatePost(c.Request.Context(), userID, in)
		if err != nil {
			if image != nil {
				s.images.Remove(in.ImageURL)
			}
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, toPostResponse(post))
	}
}
