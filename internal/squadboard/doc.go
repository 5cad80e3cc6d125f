// Package squadboard はSquadBoard APIサーバーの内部実装を提供する。
//
// ユーザー登録とログイン、全ユーザーで共有するウォールへの投稿、
// ユーザーごとのタスク管理を担当する。タスクの参照・更新・削除は
// JWTで認証したユーザーの所有物に限定され、他人のタスクは
// 存在しないものとして扱う。
package squadboard
