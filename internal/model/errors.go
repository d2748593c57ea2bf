// Package model はドメインモデルを定義する。
package model

import "fmt"

// ErrorDetail はフィールド単位のエラー詳細を表す。
type ErrorDetail struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// APIError は統一エラーフォーマットを表す。
// サービス境界で分類され、HTTP境界でステータスコードにマッピングされる。
type APIError struct {
	Code    string        // エラーコード
	Message string        // エラーメッセージ（ユーザー向け）
	Details []ErrorDetail // フィールド単位の詳細（省略可）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidRequest = "INVALID_REQUEST"
	ErrCodeBadRequest     = "BAD_REQUEST"
	ErrCodeUnauthorized   = "UNAUTHORIZED"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeServerError    = "SERVER_ERROR"
)

// NewInvalidRequestError はリクエストスキーマ違反のエラーを生成する。
func NewInvalidRequestError(message string, details []ErrorDetail) *APIError {
	return &APIError{
		Code:    ErrCodeInvalidRequest,
		Message: message,
		Details: details,
	}
}

// NewBadRequestError はプロバイダーが400系で拒否した場合のエラーを生成する。
// プロバイダーのエラーメッセージをそのまま引き継ぐ。
func NewBadRequestError(providerMsg string) *APIError {
	return &APIError{
		Code:    ErrCodeBadRequest,
		Message: fmt.Sprintf("Erro no Supabase Auth: %s", providerMsg),
	}
}

// NewUnauthorizedError は認証失敗エラーを生成する。
// 存在しないアカウント・パスワード誤り・未確認アカウントは区別しない。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:    ErrCodeUnauthorized,
		Message: "Credenciais inválidas.",
	}
}

// NewTokenInvalidError はトークン検証失敗エラーを生成する。
func NewTokenInvalidError() *APIError {
	return &APIError{
		Code:    ErrCodeUnauthorized,
		Message: "Could not validate credentials",
	}
}

// NewUserNotFoundError はローカルミラー行が存在しない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:    ErrCodeNotFound,
		Message: "Usuário não encontrado.",
	}
}

// NewServerError は予期しない失敗を500相当のエラーに平坦化する。
// 元のメッセージは失わずに引き継ぐ。
func NewServerError(message string) *APIError {
	return &APIError{
		Code:    ErrCodeServerError,
		Message: message,
	}
}
