package squadboard

import (
	"bytes"
	"errors"
	"image"
	"image/gif"
	"image/jpeg"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fileHeaderOf はdataを添付したmultipartフォームを解析してFileHeaderを返すヘルパー関数。
func fileHeaderOf(t *testing.T, filename string, data []byte) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", filename)
	if err != nil {
		t.Fatalf("ファイル項目の作成に失敗: %v", err)
	}
	if _, err := fw.Write(data); err != nil {
		t.Fatalf("ファイルの書き込みに失敗: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("multipartのクローズに失敗: %v", err)
	}

	req := httptest.NewRequest("POST", "/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if err := req.ParseMultipartForm(1 << 20); err != nil {
		t.Fatalf("multipartの解析に失敗: %v", err)
	}
	t.Cleanup(func() { req.MultipartForm.RemoveAll() })
	return req.MultipartForm.File["image"][0]
}

// TestImageStore は画像の保存と削除を検証する。
func TestImageStore(t *testing.T) {
	t.Parallel()

	img := image.NewRGBA(image.Rect(0, 0, 2, 2))

	t.Run("対応する画像形式は内容に応じた拡張子で保存されること", func(t *testing.T) {
		t.Parallel()

		var jpegBuf, gifBuf bytes.Buffer
		if err := jpeg.Encode(&jpegBuf, img, nil); err != nil {
			t.Fatalf("JPEGのエンコードに失敗: %v", err)
		}
		if err := gif.Encode(&gifBuf, img, nil); err != nil {
			t.Fatalf("GIFのエンコードに失敗: %v", err)
		}

		dir := t.TempDir()
		store, err := newImageStore(dir, 1<<20)
		if err != nil {
			t.Fatalf("newImageStore()でエラーが発生: %v", err)
		}

		for _, tc := range []struct {
			data    []byte
			wantExt string
		}{
			{data: jpegBuf.Bytes(), wantExt: ".jpg"},
			{data: gifBuf.Bytes(), wantExt: ".gif"},
			{data: pngImage(t, 2), wantExt: ".png"},
		} {
			url, err := store.Save(fileHeaderOf(t, "upload.bin", tc.data))
			if err != nil {
				t.Fatalf("Save()でエラーが発生: %v", err)
			}
			if !strings.HasPrefix(url, "/uploads/") || filepath.Ext(url) != tc.wantExt {
				t.Errorf("url = %q, want suffix %q", url, tc.wantExt)
			}
			saved, err := os.ReadFile(filepath.Join(dir, filepath.Base(url)))
			if err != nil {
				t.Fatalf("保存したファイルの読み込みに失敗: %v", err)
			}
			if !bytes.Equal(saved, tc.data) {
				t.Errorf("保存した内容が元のデータと異なる")
			}
		}
	})

	t.Run("画像でないファイルは検証エラーになること", func(t *testing.T) {
		t.Parallel()

		store, err := newImageStore(t.TempDir(), 1<<20)
		if err != nil {
			t.Fatalf("newImageStore()でエラーが発生: %v", err)
		}
		_, err = store.Save(fileHeaderOf(t, "cat.png", []byte("%PDF-1.4 not an image")))
		if !errors.Is(err, ErrValidation) {
			t.Errorf("error = %v, want ErrValidation", err)
		}
	})

	t.Run("Removeは保存した画像を削除し、ディレクトリ外は触らないこと", func(t *testing.T) {
		t.Parallel()

		parent := t.TempDir()
		dir := filepath.Join(parent, "uploads")
		store, err := newImageStore(dir, 1<<20)
		if err != nil {
			t.Fatalf("newImageStore()でエラーが発生: %v", err)
		}
		outside := filepath.Join(parent, "keep.txt")
		if err := os.WriteFile(outside, []byte("keep"), 0o644); err != nil {
			t.Fatalf("ファイルの作成に失敗: %v", err)
		}

		url, err := store.Save(fileHeaderOf(t, "a.png", pngImage(t, 2)))
		if err != nil {
			t.Fatalf("Save()でエラーが発生: %v", err)
		}
		store.Remove(url)
		store.Remove("/uploads/../keep.txt")

		if n := countFiles(t, dir); n != 0 {
			t.Errorf("削除後のファイル数 = %d, want 0", n)
		}
		if _, err := os.Stat(outside); err != nil {
			t.Errorf("ディレクトリ外のファイルが削除された: %v", err)
		}
	})
}
