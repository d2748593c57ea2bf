// Package supabase は外部認証プロバイダー（Supabase Auth互換API）への
// アウトバウンド呼び出しを提供する。
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	signupPath     = "/auth/v1/signup"
	tokenPath      = "/auth/v1/token?grant_type=password"
	adminUsersPath = "/auth/v1/admin/users"
)

// StatusError はプロバイダーが返した非2xxレスポンスを表す。
// API層のエラー分類はこの型に対してerrors.Asで行う。
type StatusError struct {
	StatusCode int
	Message    string
}

// Error はerrorインターフェースを実装する。
func (e *StatusError) Error() string {
	return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, e.Message)
}

// MetricsRecorder はプロバイダー呼び出しのメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordProviderStatus(operation string, statusCode int)
	RecordProviderLatency(operation string, d time.Duration)
}

// Config はSupabase Authクライアントの設定。
type Config struct {
	BaseURL    string
	APIKey     string
	ServiceKey string // admin APIでのみ使用。未設定の場合ListUsersはエラーを返す。

	// テスト用にオーバーライド可能なHTTPクライアント
	HTTPClient *http.Client
}

// Client はSupabase Authへのステートレスなクライアント。
// 呼び出しごとに1回のHTTPリクエストを行い、共有可変状態を持たない。
type Client struct {
	config     Config
	httpClient *http.Client
	metrics    MetricsRecorder
}

// NewClient はClientを生成する。metricsはnilでもよい。
func NewClient(config Config, metrics MetricsRecorder) *Client {
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		config:     config,
		httpClient: httpClient,
		metrics:    metrics,
	}
}

// SignInResult はサインイン成功時のプロバイダーレスポンス。
type SignInResult struct {
	AccessToken string
	UserID      string
}

// ProviderUser はadmin APIが返すプロバイダー側のユーザーレコード。
type ProviderUser struct {
	ID    string
	Email string
	Name  string
}

// signupRequest はサインアップリクエストのボディ。
// full_nameはプロバイダー側のユーザーメタデータとして保存される。
type signupRequest struct {
	Email    string        `json:"email"`
	Password string        `json:"password"`
	Options  signupOptions `json:"options"`
}

type signupOptions struct {
	Data signupMetadata `json:"data"`
}

type signupMetadata struct {
	FullName string `json:"full_name"`
}

// signupResponse はサインアップ成功レスポンス。
type signupResponse struct {
	User struct {
		ID string `json:"id"`
	} `json:"user"`
}

// signInRequest はサインインリクエストのボディ。
type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// signInResponse はサインイン成功レスポンス。
type signInResponse struct {
	AccessToken string `json:"access_token"`
	User        struct {
		ID string `json:"id"`
	} `json:"user"`
}

// errorResponse はプロバイダーのエラーレスポンス。
// Supabaseはバージョンにより msg / error_description のどちらかを返す。
type errorResponse struct {
	Msg              string `json:"msg"`
	ErrorDescription string `json:"error_description"`
}

// adminUsersResponse はadmin APIのユーザー一覧レスポンス。
type adminUsersResponse struct {
	Users []struct {
		ID           string `json:"id"`
		Email        string `json:"email"`
		UserMetadata struct {
			FullName string `json:"full_name"`
		} `json:"user_metadata"`
	} `json:"users"`
}

// SignUp はプロバイダーに新規アカウントを作成し、プロバイダーが割り当てた
// ユーザーIDを返す。非2xxレスポンスは*StatusErrorとして返す。
func (c *Client) SignUp(ctx context.Context, email, password, name string) (string, error) {
	body, err := json.Marshal(signupRequest{
		Email:    email,
		Password: password,
		Options:  signupOptions{Data: signupMetadata{FullName: name}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode signup request: %w", err)
	}

	respBody, err := c.post(ctx, "signup", c.config.BaseURL+signupPath, body)
	if err != nil {
		return "", err
	}

	var resp signupResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", fmt.Errorf("failed to parse signup response: %w", err)
	}
	if resp.User.ID == "" {
		return "", fmt.Errorf("empty user id in signup response")
	}

	return resp.User.ID, nil
}

// SignIn はパスワード認証を行い、プロバイダー発行のアクセストークンと
// ユーザーIDを返す。非2xxレスポンスは*StatusErrorとして返す。
func (c *Client) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	body, err := json.Marshal(signInRequest{Email: email, Password: password})
	if err != nil {
		return nil, fmt.Errorf("failed to encode sign-in request: %w", err)
	}

	respBody, err := c.post(ctx, "sign_in", c.config.BaseURL+tokenPath, body)
	if err != nil {
		return nil, err
	}

	var resp signInResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse sign-in response: %w", err)
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("empty access token in sign-in response")
	}
	if resp.User.ID == "" {
		return nil, fmt.Errorf("empty user id in sign-in response")
	}

	return &SignInResult{
		AccessToken: resp.AccessToken,
		UserID:      resp.User.ID,
	}, nil
}

// ListUsers はadmin APIでプロバイダー側の全ユーザーを取得する。
// 照合ワーカー専用。ServiceKeyが必要。
func (c *Client) ListUsers(ctx context.Context) ([]ProviderUser, error) {
	if c.config.ServiceKey == "" {
		return nil, fmt.Errorf("service key is required for admin API")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+adminUsersPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create admin users request: %w", err)
	}
	req.Header.Set("apikey", c.config.APIKey)
	req.Header.Set("Authorization", "Bearer "+c.config.ServiceKey)

	respBody, err := c.do("list_users", req)
	if err != nil {
		return nil, err
	}

	var resp adminUsersResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse admin users response: %w", err)
	}

	users := make([]ProviderUser, 0, len(resp.Users))
	for _, u := range resp.Users {
		users = append(users, ProviderUser{
			ID:    u.ID,
			Email: u.Email,
			Name:  u.UserMetadata.FullName,
		})
	}

	return users, nil
}

// post はapikeyヘッダー付きのJSON POSTリクエストを実行する。
func (c *Client) post(ctx context.Context, operation, url string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", operation, err)
	}
	req.Header.Set("apikey", c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	return c.do(operation, req)
}

// do はリクエストを実行し、2xxならボディを返す。
// 非2xxは*StatusErrorに変換し、プロバイダーのエラーメッセージを引き継ぐ。
func (c *Client) do(operation string, req *http.Request) ([]byte, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if c.metrics != nil {
		c.metrics.RecordProviderLatency(operation, time.Since(start))
	}
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", operation, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", operation, err)
	}

	if c.metrics != nil {
		c.metrics.RecordProviderStatus(operation, resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Message:    providerErrorMessage(body),
		}
	}

	return body, nil
}

// providerErrorMessage はエラーレスポンスボディからメッセージを抽出する。
// 既知のフィールドがない場合は生のボディを返す。
func providerErrorMessage(body []byte) string {
	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil {
		if errResp.Msg != "" {
			return errResp.Msg
		}
		if errResp.ErrorDescription != "" {
			return errResp.ErrorDescription
		}
	}
	return string(body)
}
