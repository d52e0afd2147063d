// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/growmind/internal/model"
	"github.com/hitoshi/growmind/internal/repository"
)

// ProgressDeleter はユーザーの集計値の一括削除インターフェース。
type ProgressDeleter interface {
	Delete(ctx context.Context, namespace string) error
}

// EngineEvicter はメモリ上のタイマーを破棄するインターフェース。
type EngineEvicter interface {
	Evict(userID string)
}

// Service はユーザー管理のサービス層。
// 退会処理のビジネスロジックを提供する。
type Service struct {
	userRepo        repository.UserRepository
	sessionRepo     repository.SessionRepository
	progressDeleter ProgressDeleter
	engines         EngineEvicter
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	progressDeleter ProgressDeleter,
	engines EngineEvicter,
) *Service {
	return &Service{
		userRepo:        userRepo,
		sessionRepo:     sessionRepo,
		progressDeleter: progressDeleter,
		engines:         engines,
	}
}

// Withdraw はユーザーの退会処理を実行する。
// 削除順序: sessions → タイマー破棄 → 集計値 → user → タイマー破棄
// sessionsを先に消して新しい認証済みリクエストを止め、処理中だったリクエストが
// 作り直したタイマーは最後にもう一度破棄する。
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	// ユーザー存在確認
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	slog.Info("退会処理を開始します",
		slog.String("user_id", userID),
	)

	// 1. セッションを削除
	if s.sessionRepo != nil {
		if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("セッションの削除に失敗しました: %w", err)
		}
	}

	// 2. タイマーを停止して破棄
	s.evict(userID)

	// 3. 集計値と履歴を削除
	if s.progressDeleter != nil {
		if err := s.progressDeleter.Delete(ctx, userID); err != nil {
			return fmt.Errorf("集計値の削除に失敗しました: %w", err)
		}
	}

	// 4. ユーザーを削除
	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	// 5. 処理中のリクエストが作り直したタイマーを破棄
	s.evict(userID)

	slog.Info("退会処理が完了しました",
		slog.String("user_id", userID),
	)

	return nil
}

func (s *Service) evict(userID string) {
	if s.engines != nil {
		s.engines.Evict(userID)
	}
}
