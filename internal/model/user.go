// Package model はドメインモデルを定義する。
package model

import "time"

// RoleUser は新規登録ユーザーに割り当てられるデフォルトのロール。
const RoleUser = "user"

// User はローカルに保持するユーザープロフィールのミラー行を表す。
// IDは外部認証プロバイダーがアカウント作成時に割り当てた値をそのまま使う。
// ローカルで採番することはない。
type User struct {
	ID        string
	Email     string
	Name      string
	Role      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
