// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// アクセストークンの発行と検証（TokenService）、Bearerトークンによる認証ゲート、
// パニックリカバリ、CORS、セキュリティヘッダー、IP単位のレート制限を含む。
package middleware
