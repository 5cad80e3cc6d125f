package squadboard

import (
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// uploadsPath は保存した画像を配信するURLパス。
const uploadsPath = "/uploads"

// allowedImageTypes は受け付ける画像のMIMEタイプと保存時の拡張子。
var allowedImageTypes = []struct {
	mime string
	ext  string
}{
	{mime: "image/jpeg", ext: ".jpg"},
	{mime: "image/png", ext: ".png"},
	{mime: "image/gif", ext: ".gif"},
	{mime: "image/webp", ext: ".webp"},
}

// imageStore は投稿に添付された画像をディスクに保存する。
// 画像の種類はファイル名ではなく内容から判定する。
type imageStore struct {
	dir      string
	maxBytes int64
}

// newImageStore は保存先ディレクトリを作成してimageStoreを生成する。
func newImageStore(dir string, maxBytes int64) (*imageStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("アップロードディレクトリの作成に失敗: %w", err)
	}
	return &imageStore{dir: dir, maxBytes: maxBytes}, nil
}

// Save はアップロードされた画像を検証して保存し、配信用のURLを返す。
func (st *imageStore) Save(fh *multipart.FileHeader) (string, error) {
	if fh.Size > st.maxBytes {
		return "", st.tooLargeError()
	}

	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("アップロードファイルのオープンに失敗: %w", err)
	}
	defer src.Close()

	mtype, err := mimetype.DetectReader(src)
	if err != nil {
		return "", fmt.Errorf("画像形式の判定に失敗: %w", err)
	}
	ext := ""
	for _, allowed := range allowedImageTypes {
		if mtype.Is(allowed.mime) {
			ext = allowed.ext
			break
		}
	}
	if ext == "" {
		return "", newError(ErrValidation, "Image must be a JPEG, PNG, GIF or WebP file")
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("アップロードファイルの読み直しに失敗: %w", err)
	}

	name := uuid.NewString() + ext
	dstPath := filepath.Join(st.dir, name)
	dst, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("画像ファイルの作成に失敗: %w", err)
	}

	n, copyErr := io.Copy(dst, io.LimitReader(src, st.maxBytes+1))
	closeErr := dst.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(dstPath)
		return "", fmt.Errorf("画像ファイルの書き込みに失敗: %w", err)
	}
	if n > st.maxBytes {
		_ = os.Remove(dstPath)
		return "", st.tooLargeError()
	}

	return path.Join(uploadsPath, name), nil
}

// Remove はSaveが返したURLの画像を削除する。
func (st *imageStore) Remove(url string) {
	name := path.Base(strings.TrimPrefix(url, uploadsPath+"/"))
	if name == "." || name == "/" {
		return
	}
	if err := os.Remove(filepath.Join(st.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[SquadBoard] 画像の削除に失敗: %v", err)
	}
}

func (st *imageStore) tooLargeError() error {
	return newError(ErrValidation, fmt.Sprintf("Image must be at most %d bytes", st.maxBytes))
}
