package usecase

import (
	"context"

	syncdomain "unibox-backend/internal/sync/domain"
	"unibox-backend/pkg/platform"
)

// SyncUsecase drives the full sync pipeline across every configured platform
type SyncUsecase interface {
	// SyncAllPlatforms runs one orchestration pass for the user: per-platform
	// incremental sync followed by the cross-platform consolidation merge.
	// Partial results always come back; errors are collected, not thrown.
	SyncAllPlatforms(ctx context.Context, userID string) *syncdomain.SyncReport
	SendMessage(ctx context.Context, userID, platformName string, out *platform.OutgoingMessage) (*platform.SendResult, error)
}
