package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// testRequest はテストサーバーが受け取ったリクエスト情報を保持する構造体。
type testRequest struct {
	Method  string
	Path    string
	Body    []byte
	Headers http.Header
}

// testPayload はテスト用のリクエスト/レスポンスペイロード。
type testPayload struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// newRecordingServer は受け取ったリクエストを記録し、固定のJSONを返すテストサーバーを生成する。
func newRecordingServer(t *testing.T, status int, response string) (*httptest.Server, func() testRequest) {
	t.Helper()

	var (
		mu       sync.Mutex
		received testRequest
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		received = testRequest{Method: r.Method, Path: r.URL.Path, Body: body, Headers: r.Header.Clone()}
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(response))
	}))
	t.Cleanup(ts.Close)

	return ts, func() testRequest {
		mu.Lock()
		defer mu.Unlock()
		return received
	}
}

// TestNew はNew関数でクライアントが正しく生成されることを検証する。
func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("タイムアウトのデフォルトが30秒であること", func(t *testing.T) {
		t.Parallel()

		client := New("http://localhost:5000")
		if client.baseURL != "http://localhost:5000" {
			t.Errorf("baseURL = %q, want %q", client.baseURL, "http://localhost:5000")
		}
		if client.httpClient.Timeout != 30*time.Second {
			t.Errorf("Timeout = %v, want 30s", client.httpClient.Timeout)
		}
	})

	t.Run("WithTimeoutでタイムアウトを変更できること", func(t *testing.T) {
		t.Parallel()

		client := New("http://localhost:5000", WithTimeout(2*time.Second))
		if client.httpClient.Timeout != 2*time.Second {
			t.Errorf("Timeout = %v, want 2s", client.httpClient.Timeout)
		}
	})

	t.Run("WithTokenは元のクライアントを変更しないこと", func(t *testing.T) {
		t.Parallel()

		base := New("http://localhost:5000")
		authed := base.WithToken("abc")
		if base.token != "" {
			t.Errorf("元のクライアントのtoken = %q, want empty", base.token)
		}
		if authed.token != "abc" {
			t.Errorf("token = %q, want %q", authed.token, "abc")
		}
	})
}

// TestPostJSON はPostJSON関数を検証する。
func TestPostJSON(t *testing.T) {
	t.Parallel()

	t.Run("JSONボディを送信してレスポンスを取得できること", func(t *testing.T) {
		t.Parallel()

		ts, got := newRecordingServer(t, http.StatusCreated, `{"name":"response","value":200}`)
		client := New(ts.URL)

		var result testPayload
		if err := client.PostJSON(context.Background(), "/api/tasks", testPayload{Name: "request", Value: 100}, &result); err != nil {
			t.Fatalf("PostJSON()でエラーが発生: %v", err)
		}

		req := got()
		if req.Method != http.MethodPost {
			t.Errorf("Method = %q, want %q", req.Method, http.MethodPost)
		}
		if req.Path != "/api/tasks" {
			t.Errorf("Path = %q, want %q", req.Path, "/api/tasks")
		}
		var sent testPayload
		if err := json.Unmarshal(req.Body, &sent); err != nil {
			t.Fatalf("リクエストボディのパースに失敗: %v", err)
		}
		if sent.Name != "request" || sent.Value != 100 {
			t.Errorf("sent = %+v", sent)
		}
		if ct := req.Headers.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q, want %q", ct, "application/json")
		}
		if auth := req.Headers.Get("Authorization"); auth != "" {
			t.Errorf("トークン未設定時にAuthorizationが送られている: %q", auth)
		}
		if result.Name != "response" || result.Value != 200 {
			t.Errorf("result = %+v", result)
		}
	})

	t.Run("WithTokenのクライアントはBearerトークンを送ること", func(t *testing.T) {
		t.Parallel()

		ts, got := newRecordingServer(t, http.StatusOK, `{}`)
		client := New(ts.URL).WithToken("my-token")

		if err := client.PostJSON(context.Background(), "/api/posts", testPayload{}, nil); err != nil {
			t.Fatalf("PostJSON()でエラーが発生: %v", err)
		}
		if auth := got().Headers.Get("Authorization"); auth != "Bearer my-token" {
			t.Errorf("Authorization = %q, want %q", auth, "Bearer my-token")
		}
	})

	t.Run("400レスポンスはmessage付きのStatusErrorになること", func(t *testing.T) {
		t.Parallel()

		ts, _ := newRecordingServer(t, http.StatusBadRequest, `{"message":"Invalid credentials"}`)
		client := New(ts.URL)

		err := client.PostJSON(context.Background(), "/api/login", testPayload{}, nil)
		var statusErr *StatusError
		if !errors.As(err, &statusErr) {
			t.Fatalf("error = %v, want *StatusError", err)
		}
		if statusErr.StatusCode != http.StatusBadRequest {
			t.Errorf("StatusCode = %d, want %d", statusErr.StatusCode, http.StatusBadRequest)
		}
		if statusErr.Message != "Invalid credentials" {
			t.Errorf("Message = %q, want %q", statusErr.Message, "Invalid credentials")
		}
	})

	t.Run("JSONでないエラーレスポンスはボディを保持すること", func(t *testing.T) {
		t.Parallel()

		ts, _ := newRecordingServer(t, http.StatusBadGateway, `upstream down`)
		client := New(ts.URL)

		err := client.PostJSON(context.Background(), "/api/login", testPayload{}, nil)
		var statusErr *StatusError
		if !errors.As(err, &statusErr) {
			t.Fatalf("error = %v, want *StatusError", err)
		}
		if statusErr.Message != "" || statusErr.Body != "upstream down" {
			t.Errorf("StatusError = %+v", statusErr)
		}
	})
}

// TestGetJSON はGetJSON関数を検証する。
func TestGetJSON(t *testing.T) {
	t.Parallel()

	t.Run("ボディなしでGETリクエストを送信できること", func(t *testing.T) {
		t.Parallel()

		ts, got := newRecordingServer(t, http.StatusOK, `[{"name":"a","value":1},{"name":"b","value":2}]`)
		client := New(ts.URL)

		var result []testPayload
		if err := client.GetJSON(context.Background(), "/api/posts", &result); err != nil {
			t.Fatalf("GetJSON()でエラーが発生: %v", err)
		}

		req := got()
		if req.Method != http.MethodGet {
			t.Errorf("Method = %q, want %q", req.Method, http.MethodGet)
		}
		if len(req.Body) != 0 {
			t.Errorf("GETリクエストにボディが含まれている: %q", string(req.Body))
		}
		if ct := req.Headers.Get("Content-Type"); ct != "" {
			t.Errorf("ボディなしのリクエストにContent-Typeが付いている: %q", ct)
		}
		if len(result) != 2 || result[1].Name != "b" {
			t.Errorf("result = %+v", result)
		}
	})

	t.Run("不正なJSONレスポンスでエラーが返ること", func(t *testing.T) {
		t.Parallel()

		ts, _ := newRecordingServer(t, http.StatusOK, `{invalid json}`)
		client := New(ts.URL)

		var result testPayload
		err := client.GetJSON(context.Background(), "/health", &result)
		if err == nil {
			t.Fatal("GetJSON()がエラーを返すべきだが、nilが返った")
		}
		if StatusCode(err) != 0 {
			t.Errorf("デコードエラーのStatusCode() = %d, want 0", StatusCode(err))
		}
	})

	t.Run("接続できないサーバーに対してエラーが返ること", func(t *testing.T) {
		t.Parallel()

		ts := httptest.NewServer(http.NotFoundHandler())
		url := ts.URL
		ts.Close()

		client := New(url, WithTimeout(time.Second))
		if err := client.GetJSON(context.Background(), "/health", nil); err == nil {
			t.Fatal("GetJSON()がエラーを返すべきだが、nilが返った")
		}
	})

	t.Run("キャンセル済みのコンテキストでエラーが返ること", func(t *testing.T) {
		t.Parallel()

		ts, _ := newRecordingServer(t, http.StatusOK, `{}`)
		client := New(ts.URL)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := client.GetJSON(ctx, "/health", nil); err == nil {
			t.Fatal("GetJSON()がエラーを返すべきだが、nilが返った")
		}
	})
}

// TestPutAndDeleteJSON はPutJSONとDeleteJSONを検証する。
func TestPutAndDeleteJSON(t *testing.T) {
	t.Parallel()

	t.Run("PUTリクエストを送信できること", func(t *testing.T) {
		t.Parallel()

		ts, got := newRecordingServer(t, http.StatusOK, `{"name":"done","value":1}`)
		client := New(ts.URL).WithToken("tok")

		var result testPayload
		if err := client.PutJSON(context.Background(), "/api/tasks/abc", map[string]bool{"completed": true}, &result); err != nil {
			t.Fatalf("PutJSON()でエラーが発生: %v", err)
		}
		req := got()
		if req.Method != http.MethodPut || req.Path != "/api/tasks/abc" {
			t.Errorf("request = %s %s", req.Method, req.Path)
		}
		if string(req.Body) != `{"completed":true}` {
			t.Errorf("Body = %s", req.Body)
		}
	})

	t.Run("DELETEの404はStatusCodeで判別できること", func(t *testing.T) {
		t.Parallel()

		ts, got := newRecordingServer(t, http.StatusNotFound, `{"message":"Task not found"}`)
		client := New(ts.URL).WithToken("tok")

		err := client.DeleteJSON(context.Background(), "/api/tasks/missing", nil)
		if StatusCode(err) != http.StatusNotFound {
			t.Errorf("StatusCode() = %d, want %d (err=%v)", StatusCode(err), http.StatusNotFound, err)
		}
		if got().Method != http.MethodDelete {
			t.Errorf("Method = %q, want %q", got().Method, http.MethodDelete)
		}
	})
}
