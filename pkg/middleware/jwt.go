package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL はアクセストークンの標準の有効期間（7日間）。
const DefaultTokenTTL = 7 * 24 * time.Hour

// tokenIssuer はトークンのissクレームに設定する発行者名。
const tokenIssuer = "squadboard"

// contextKeyUserID は認証済みユーザーIDをGinコンテキストに格納するキー。
const contextKeyUserID = "user_id"

// ErrInvalidToken はトークンが検証できなかったことを表す。
// 署名不一致、形式不正、有効期限切れを区別せずにこのエラーを返す。
var ErrInvalidToken = errors.New("invalid token")

// JWTClaims はJWTトークンのクレーム（ペイロード）を表す。
type JWTClaims struct {
	jwt.RegisteredClaims
	// UserID は認証済みユーザーの一意識別子。
	UserID string `json:"user_id"`
}

// TokenService は署名付きアクセストークンの発行と検証を行う。
// 起動時に一度だけ生成し、以降は読み取り専用として共有する。
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// TokenOption はTokenServiceの生成オプション。
type TokenOption func(*TokenService)

// WithClock は発行と検証に使う現在時刻の取得関数を差し替える。
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		s.now = now
	}
}

// NewTokenService は新しいTokenServiceを生成する。
// ttlが0以下の場合はDefaultTokenTTLを使用する。
func NewTokenService(secret string, ttl time.Duration, opts ...TokenOption) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	s := &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue はユーザーIDを埋め込んだトークンを発行する。
func (s *TokenService) Issue(userID string) (string, error) {
	now := s.now()
	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
		UserID: userID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("JWTトークンの署名に失敗: %w", err)
	}
	return signed, nil
}

// Verify はトークンの署名と有効期限を検証し、埋め込まれたユーザーIDを返す。
// 失敗理由にかかわらずErrInvalidTokenを返す。
func (s *TokenService) Verify(tokenString string) (string, error) {
	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(_ *jwt.Token) (any, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !token.Valid || claims.UserID == "" {
		return "", ErrInvalidToken
	}
	return claims.UserID, nil
}

// JWTAuth はBearerトークンを検証するGinミドルウェアを返す。
// トークンが無い場合は401、検証に失敗した場合は403で処理を打ち切る。
// 検証に成功した場合、コンテキストに "user_id" を設定する。
func JWTAuth(tokens *TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, found := bearerToken(c.GetHeader("Authorization"))
		if !found {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"message": "No token provided",
			})
			return
		}

		userID, err := tokens.Verify(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"message": "Invalid token",
			})
			return
		}

		c.Set(contextKeyUserID, userID)
		c.Next()
	}
}

// bearerToken はAuthorizationヘッダーからBearerトークンを取り出す。
// スキーム名の大文字小文字は区別しない。
func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// GetUserID はGinコンテキストからユーザーIDを取得する。
// JWTAuthミドルウェアが事前に適用されている必要がある。
func GetUserID(c *gin.Context) string {
	return c.GetString(contextKeyUserID)
}
