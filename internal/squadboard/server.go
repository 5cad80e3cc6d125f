package squadboard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/squadboard/internal/config"
	squadboarddb "github.com/nao1215/squadboard/internal/squadboard/db"
	"github.com/nao1215/squadboard/pkg/database"
	"github.com/nao1215/squadboard/pkg/middleware"
)

const (
	// serviceName はヘルスチェックで返すサービス名。
	serviceName = "squadboard"
	// healthPath はヘルスチェックのパス。セキュリティヘッダーとHTTPSリダイレクトの対象外にする。
	healthPath = "/health"
	// shutdownTimeout はグレースフルシャットダウンの待ち時間。
	shutdownTimeout = 10 * time.Second
	// maxMultipartMemory はmultipartフォームをメモリに保持する上限。超えた分は一時ファイルに書き出す。
	maxMultipartMemory = 8 << 20
)

// Server はSquadBoardのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// cfg は起動時に読み込んだ設定。
	cfg *config.Config
	// db はデータベース接続。
	db *sql.DB
	// tokens はJWTの発行と検証を行う。
	tokens *middleware.TokenService
	// service は業務ルールを実装する。
	service *Service
	// images は投稿画像の保存先。
	images *imageStore
}

// NewServer は新しいSquadBoardサーバーを生成する。
// データベースへの接続とスキーマの適用を行う。
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	sqlDB, err := OpenDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s, err := newServer(cfg, sqlDB)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// OpenDatabase は設定に従ってデータベースを開き、スキーマを適用する。
func OpenDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	sqlDB, err := database.Open(cfg.Driver(), cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := squadboarddb.Migrate(ctx, sqlDB, cfg.Driver()); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return sqlDB, nil
}

// newServer はスキーマ適用済みのデータベース接続からサーバーを組み立てる。
func newServer(cfg *config.Config, sqlDB *sql.DB, opts ...ServiceOption) (*Server, error) {
	tokens := middleware.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)

	service, err := NewService(sqlDB, cfg.Driver(), tokens, cfg.BcryptCost, opts...)
	if err != nil {
		return nil, err
	}

	images, err := newImageStore(cfg.UploadDir, cfg.UploadMaxBytes)
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.MaxMultipartMemory = maxMultipartMemory
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.SecureHeaders(cfg.IsProduction(), healthPath))
	router.Use(middleware.CORS(cfg.CORSOrigins))

	s := &Server{
		router:  router,
		cfg:     cfg,
		db:      sqlDB,
		tokens:  tokens,
		service: service,
		images:  images,
	}
	s.setupRoutes()

	return s, nil
}

// Handler はサーバーのHTTPハンドラを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close はデータベース接続を閉じる。
func (s *Server) Close() error {
	return s.db.Close()
}

// Run はHTTPサーバーを起動し、SIGINTまたはSIGTERMを受け取るまで待つ。
// シグナル受信後は処理中のリクエストの完了を待ってから終了する。
func (s *Server) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", s.cfg.Port),
		Handler:           s.router,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[SquadBoard] ポート%sで起動します", s.cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		_ = s.Close()
		return err
	case <-ctx.Done():
	}

	log.Printf("[SquadBoard] シャットダウンを開始します")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		_ = s.Close()
		return fmt.Errorf("シャットダウンに失敗: %w", err)
	}
	return s.Close()
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	api := s.router.Group("/api")

	// 登録とログインはIPアドレスごとに回数を制限する
	auth := api.Group("")
	auth.Use(middleware.RateLimit(s.cfg.AuthRateLimit, s.cfg.AuthRateWindow))
	{
		// ユーザー登録
		auth.POST("/register", s.handleRegister())
		// ログイン
		auth.POST("/login", s.handleLogin())
	}

	protected := api.Group("")
	protected.Use(middleware.JWTAuth(s.tokens))
	{
		// 投稿一覧取得
		protected.GET("/posts", s.handleListPosts())
		// 投稿作成
		protected.POST("/posts", s.handleCreatePost())
		// タスク一覧取得
		protected.GET("/tasks", s.handleListTasks())
		// タスク作成
		protected.POST("/tasks", s.handleCreateTask())
		// タスクの完了フラグ更新
		protected.PUT("/tasks/:id", s.handleUpdateTask())
		// タスク削除
		protected.DELETE("/tasks/:id", s.handleDeleteTask())
	}

	// 投稿画像の配信
	s.router.Static(uploadsPath, s.images.dir)

	// ヘルスチェック
	s.router.GET(healthPath, s.handleHealth())

	s.router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "SquadBoard Backend Running")
	})
}

// handleHealth はデータベースの疎通を含むヘルスチェックのハンドラを返す。
func (s *Server) handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.db.PingContext(c.Request.Context()); err != nil {
			log.Printf("[SquadBoard] ヘルスチェックでデータベースに接続できません: %v", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "service": serviceName})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": serviceName})
	}
}
