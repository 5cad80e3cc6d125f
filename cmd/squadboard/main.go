// SquadBoardのエントリポイント。
// ユーザー認証、共有ウォールへの投稿、個人タスクのREST APIを提供する。
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	flag "github.com/spf13/pflag"

	"github.com/nao1215/squadboard/internal/config"
	"github.com/nao1215/squadboard/internal/squadboard"
	"github.com/nao1215/squadboard/pkg/httpclient"
)

// healthcheckTimeout は--healthcheckでの問い合わせのタイムアウト。
const healthcheckTimeout = 5 * time.Second

func main() {
	var (
		healthcheck bool
		migrateOnly bool
	)
	flag.BoolVar(&healthcheck, "healthcheck", false, "稼働中のサーバーの/healthを確認して終了する")
	flag.BoolVar(&migrateOnly, "migrate-only", false, "スキーマを適用して終了する")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("設定の読み込みに失敗: %v", err)
	}

	if healthcheck {
		if err := checkHealth(cfg.Port); err != nil {
			fmt.Fprintf(os.Stderr, "ヘルスチェックに失敗: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ctx := context.Background()
	if migrateOnly {
		sqlDB, err := squadboard.OpenDatabase(ctx, cfg)
		if err != nil {
			log.Fatalf("スキーマの適用に失敗: %v", err)
		}
		_ = sqlDB.Close()
		log.Printf("スキーマを適用しました")
		return
	}

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	server, err := squadboard.NewServer(ctx, cfg)
	if err != nil {
		log.Fatalf("SquadBoardサーバーの初期化に失敗: %v", err)
	}

	if err := server.Run(); err != nil {
		log.Fatalf("SquadBoardの起動に失敗: %v", err)
	}
}

// checkHealth はローカルで稼働中のサーバーの/healthを問い合わせる。
// コンテナのHEALTHCHECKから呼び出す。
func checkHealth(port string) error {
	ctx, cancel := context.WithTimeout(context.Background(), healthcheckTimeout)
	defer cancel()

	var resp struct {
		Status string `json:"status"`
	}
	client := httpclient.New(fmt.Sprintf("http://127.0.0.1:%s", port), httpclient.WithTimeout(healthcheckTimeout))
	if err := client.GetJSON(ctx, "/health", &resp); err != nil {
		return err
	}
	if resp.Status != "ok" {
		return fmt.Errorf("想定外のステータス: %q", resp.Status)
	}
	return nil
}
