package squadboard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	squadboarddb "github.com/nao1215/squadboard/internal/squadboard/db"
	"github.com/nao1215/squadboard/pkg/database"
	"github.com/nao1215/squadboard/pkg/middleware"
)

const (
	// maxPostContentLength は投稿本文の最大文字数。
	maxPostContentLength = 500
	// maxTaskNameLength はタスク名の最大文字数。
	maxTaskNameLength = 200
	// maxPasswordBytes はbcryptが扱えるパスワードの最大バイト数。
	maxPasswordBytes = 72
)

// クライアントに返すメッセージ。
const (
	msgUserExists         = "User already exists"
	msgInvalidCredentials = "Invalid credentials"
	msgUserNotFound       = "User not found"
	msgTaskNotFound       = "Task not found"
	msgTaskNameRequired   = "Task name is required"
	msgPostEmpty          = "Post must have content or an image"
)

// RegisterInput はユーザー登録の入力。
type RegisterInput struct {
	// Name は表示名。
	Name string `json:"name" validate:"required,max=100"`
	// Email はログインに使うメールアドレス。
	Email string `json:"email" validate:"required,email,max=254"`
	// Password は平文のパスワード。
	Password string `json:"password" validate:"required,min=6"`
}

// LoginInput はログインの入力。
type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// PostInput は投稿作成の入力。
type PostInput struct {
	// Content は本文。画像のみの投稿では空でよい。
	Content string `json:"content"`
	// ImageURL は画像のURL。アップロードされた画像の場合は /uploads/ 以下を指す。
	ImageURL string `json:"imageURL" validate:"omitempty,max=2048,uri"`
}

// Service はSquadBoardの業務ルールを実装する。
// タスクの参照・更新・削除は常に呼び出し元ユーザーの所有物に限定される。
type Service struct {
	queries    *squadboarddb.Queries
	tokens     *middleware.TokenService
	validate   *validator.Validate
	bcryptCost int
	// dummyHash は存在しないユーザーへのログインでも照合時間を揃えるためのハッシュ。
	dummyHash []byte
	now       func() time.Time
	newID     func() string
}

// ServiceOption はServiceの生成オプション。
type ServiceOption func(*Service)

// WithServiceClock は作成日時に使う時刻の取得元を差し替える。
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// NewService は新しいServiceを生成する。
func NewService(sqlDB *sql.DB, driver database.Driver, tokens *middleware.TokenService, bcryptCost int, opts ...ServiceOption) (*Service, error) {
	dummyHash, err := bcrypt.GenerateFromPassword([]byte("squadboard-dummy-password"), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("ダミーハッシュの生成に失敗: %w", err)
	}

	s := &Service{
		queries:    squadboarddb.New(sqlDB, driver),
		tokens:     tokens,
		validate:   newValidator(),
		bcryptCost: bcryptCost,
		dummyHash:  dummyHash,
		now:        time.Now,
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// newValidator はJSONのフィールド名でエラーを報告するバリデータを生成する。
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// Register はユーザーを登録し、トークンを発行する。
func (s *Service) Register(ctx context.Context, in RegisterInput) (string, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if err := s.validate.Struct(in); err != nil {
		return "", validationError(err)
	}
	if len(in.Password) > maxPasswordBytes {
		return "", newError(ErrValidation, fmt.Sprintf("password must be at most %d bytes", maxPasswordBytes))
	}

	_, err := s.queries.GetUserByEmail(ctx, in.Email)
	if err == nil {
		return "", newError(ErrConflict, msgUserExists)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("ユーザーの検索に失敗: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("パスワードのハッシュ化に失敗: %w", err)
	}

	userID := s.newID()
	if err := s.queries.CreateUser(ctx, squadboarddb.CreateUserParams{
		ID:           userID,
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		CreatedAt:    s.timestamp(),
	}); err != nil {
		// 同じメールアドレスでの同時登録は一意制約で検出する
		if database.IsUniqueViolation(err) {
			return "", newError(ErrConflict, msgUserExists)
		}
		return "", fmt.Errorf("ユーザーの作成に失敗: %w", err)
	}

	token, err := s.tokens.Issue(userID)
	if err != nil {
		return "", fmt.Errorf("トークンの発行に失敗: %w", err)
	}
	return token, nil
}

// Login はメールアドレスとパスワードを照合し、新しいトークンを発行する。
// ユーザーが存在しない場合とパスワードが違う場合は同じエラーを返す。
func (s *Service) Login(ctx context.Context, in LoginInput) (string, error) {
	in.Email = normalizeEmail(in.Email)
	if err := s.validate.Struct(in); err != nil {
		return "", validationError(err)
	}

	user, err := s.queries.GetUserByEmail(ctx, in.Email)
	if errors.Is(err, sql.ErrNoRows) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(in.Password))
		return "", newError(ErrInvalidCredentials, msgInvalidCredentials)
	}
	if err != nil {
		return "", fmt.Errorf("ユーザーの検索に失敗: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return "", newError(ErrInvalidCredentials, msgInvalidCredentials)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", fmt.Errorf("トークンの発行に失敗: %w", err)
	}
	return token, nil
}

// ListPosts は全ユーザーの投稿を新しい順に返す。
func (s *Service) ListPosts(ctx context.Context) ([]squadboarddb.Post, error) {
	posts, err := s.queries.ListPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("投稿一覧の取得に失敗: %w", err)
	}
	return posts, nil
}

// ValidatePost は投稿内容を検証する。画像を保存する前の事前チェックにも使う。
func (s *Service) ValidatePost(content string, hasImage bool) error {
	content = strings.TrimSpace(content)
	if content == "" && !hasImage {
		return newError(ErrValidation, msgPostEmpty)
	}
	if utf8.RuneCountInString(content) > maxPostContentLength {
		return newError(ErrValidation, fmt.Sprintf("Post content must be at most %d characters", maxPostContentLength))
	}
	return nil
}

// CreatePost はuserIDのユーザーとして投稿を作成する。
// 投稿者名は作成時点のユーザー名を複製して保存する。
func (s *Service) CreatePost(ctx context.Context, userID string, in PostInput) (squadboarddb.Post, error) {
	in.Content = strings.TrimSpace(in.Content)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	if err := s.ValidatePost(in.Content, in.ImageURL != ""); err != nil {
		return squadboarddb.Post{}, err
	}
	if err := s.validate.Struct(in); err != nil {
		return squadboarddb.Post{}, validationError(err)
	}

	user, err := s.queries.GetUserByID(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return squadboarddb.Post{}, newError(ErrNotFound, msgUserNotFound)
	}
	if err != nil {
		return squadboarddb.Post{}, fmt.Errorf("ユーザーの取得に失敗: %w", err)
	}

	params := squadboarddb.CreatePostParams{
		ID:        s.newID(),
		UserID:    user.ID,
		Content:   in.Content,
		ImageUrl:  in.ImageURL,
		Author:    user.Name,
		CreatedAt: s.timestamp(),
	}
	if err := s.queries.CreatePost(ctx, params); err != nil {
		return squadboarddb.Post{}, fmt.Errorf("投稿の作成に失敗: %w", err)
	}
	return squadboarddb.Post(params), nil
}

// ListTasks はuserIDのユーザーが所有するタスクを新しい順に返す。
func (s *Service) ListTasks(ctx context.Context, userID string) ([]squadboarddb.Task, error) {
	tasks, err := s.queries.ListTasksByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("タスク一覧の取得に失敗: %w", err)
	}
	return tasks, nil
}

// CreateTask はuserIDのユーザーが所有する未完了のタスクを作成する。
// タスク名の前後の空白は取り除いて保存する。
func (s *Service) CreateTask(ctx context.Context, userID, name string) (squadboarddb.Task, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return squadboarddb.Task{}, newError(ErrValidation, msgTaskNameRequired)
	}
	if utf8.RuneCountInString(name) > maxTaskNameLength {
		return squadboarddb.Task{}, newError(ErrValidation, fmt.Sprintf("Task name must be at most %d characters", maxTaskNameLength))
	}

	params := squadboarddb.CreateTaskParams{
		ID:        s.newID(),
		UserID:    userID,
		Name:      name,
		Completed: false,
		CreatedAt: s.timestamp(),
	}
	if err := s.queries.CreateTask(ctx, params); err != nil {
		return squadboarddb.Task{}, fmt.Errorf("タスクの作成に失敗: %w", err)
	}
	return squadboarddb.Task(params), nil
}

// UpdateTask はuserIDのユーザーが所有するタスクの完了フラグを更新する。
// IDが存在しない場合も所有者が異なる場合もErrNotFoundを返す。
func (s *Service) UpdateTask(ctx context.Context, userID, taskID string, completed bool) (squadboarddb.Task, error) {
	task, err := s.queries.UpdateTaskCompleted(ctx, squadboarddb.UpdateTaskCompletedParams{
		Completed: completed,
		ID:        taskID,
		UserID:    userID,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return squadboarddb.Task{}, newError(ErrNotFound, msgTaskNotFound)
	}
	if err != nil {
		return squadboarddb.Task{}, fmt.Errorf("タスクの更新に失敗: %w", err)
	}
	return task, nil
}

// DeleteTask はuserIDのユーザーが所有するタスクを削除する。
// IDが存在しない場合も所有者が異なる場合もErrNotFoundを返す。
func (s *Service) DeleteTask(ctx context.Context, userID, taskID string) error {
	err := s.queries.DeleteTask(ctx, squadboarddb.DeleteTaskParams{
		ID:     taskID,
		UserID: userID,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return newError(ErrNotFound, msgTaskNotFound)
	}
	if err != nil {
		return fmt.Errorf("タスクの削除に失敗: %w", err)
	}
	return nil
}

// timestamp は保存用の現在時刻を返す。
// PostgreSQLのTIMESTAMPの精度に合わせてマイクロ秒で切り捨てる。
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// normalizeEmail はメールアドレスの前後の空白を除き、小文字に揃える。
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validationError はバリデータのエラーをクライアント向けのErrValidationに変換する。
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("入力値の検証に失敗: %w", err)
	}

	fe := fieldErrs[0]
	var msg string
	switch fe.Tag() {
	case "required":
		msg = fmt.Sprintf("%s is required", fe.Field())
	case "email":
		msg = "Please provide a valid email address"
	case "min":
		msg = fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		msg = fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "uri":
		msg = fmt.Sprintf("%s must be a valid URL", fe.Field())
	default:
		msg = fmt.Sprintf("%s is invalid", fe.Field())
	}
	return newError(ErrValidation, msg)
}
