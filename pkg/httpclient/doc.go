// Package httpclient はSquadBoard APIを呼び出すJSONクライアントを提供する。
//
// コンテナのヘルスチェックやエンドツーエンドテストから、
// Bearerトークン付きのリクエストを統一的に送るために使用する。
package httpclient
