package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/httprate"
)

// RateLimit はクライアントIPごとにリクエスト数を制限するGinミドルウェアを返す。
// windowの間にlimitを超えたリクエストには429を返す。
// 同じミドルウェアを適用したルート間でカウンタを共有する。
func RateLimit(limit int, window time.Duration) gin.HandlerFunc {
	limiter := httprate.Limit(limit, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"message":"Too many requests"}`))
		}),
	)

	return func(c *gin.Context) {
		passed := false
		limiter(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			passed = true
			c.Request = r
			c.Next()
		})).ServeHTTP(c.Writer, c.Request)

		if !passed {
			c.Abort()
		}
	}
}
