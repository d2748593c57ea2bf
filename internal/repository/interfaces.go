// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/authgate/internal/model"
)

// UserRepository はユーザーミラー行の永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// Create はユーザーミラー行を作成する。
	// id・email・name・roleのみを書き込み、タイムスタンプはDB側のデフォルトに任せる。
	// DB側で設定された値を反映するには、呼び出し側がFindByIDで再読込すること。
	Create(ctx context.Context, user *model.User) error
}
