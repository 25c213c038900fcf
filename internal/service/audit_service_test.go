package service

import (
	"context"
	"io"
	"testing"
	"time"

	"cashback-platform/internal/core/domain"
	"cashback-platform/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.uber.org/mock/gomock"
)

func newTestLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func TestAuditService_Log_PersistsToRepo(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := mocks.NewMockAuditRepository(ctrl)
	svc := NewAuditService(mockRepo, newTestLogger())

	done := make(chan struct{})
	mockRepo.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, log *domain.AuditLog) error {
			if log.Action != domain.AuditActionSettle {
				t.Errorf("expected PAYMENT_SETTLED, got %s", log.Action)
			}
			close(done)
			return nil
		},
	)

	accountID := uuid.New()
	svc.Log(context.Background(), &domain.AuditLog{
		ID:           uuid.New(),
		AccountID:    &accountID,
		Action:       domain.AuditActionSettle,
		ResourceType: "transaction",
		IPAddress:    "127.0.0.1",
		CreatedAt:    time.Now(),
	})

	select {
	case <-done:
		// OK
	case <-time.After(2 * time.Second):
		t.Fatal("audit log not persisted in time")
	}
}

func TestAuditService_Log_NilRepo(t *testing.T) {
	svc := NewAuditService(nil, newTestLogger())

	accountID := uuid.New()
	// Should not panic
	svc.Log(context.Background(), &domain.AuditLog{
		ID:           uuid.New(),
		AccountID:    &accountID,
		Action:       domain.AuditActionIssueToken,
		ResourceType: "token",
		IPAddress:    "127.0.0.1",
		CreatedAt:    time.Now(),
	})

	time.Sleep(50 * time.Millisecond) // let goroutine run
}
