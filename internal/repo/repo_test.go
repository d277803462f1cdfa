package repo

import (
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	gomock "go.uber.org/mock/gomock"

	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/pg"
	bookingrepo "github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/repo/booking-repo"
	courtrepo "github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/repo/court-repo"
	notificationrepo "github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/repo/notification-repo"
	outboxrepo "github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/repo/outbox-repo"
	transactionrepo "github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/repo/transaction-repo"
	walletrepo "github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/repo/wallet-repo"
)

func NewMock(t *testing.T) (*Repositories, pgxmock.PgxPoolIface) {
	ctrl := gomock.NewController(t)
	mockDB, err := pgxmock.NewPool()
	assert.NoError(t, err)
	t.Cleanup(mockDB.Close)

	return New(mockDB, pg.NewMockTXManager(ctrl)), mockDB
}

func TestNew(t *testing.T) {
	repo, mock := NewMock(t)

	assert.NotNil(t, repo.Inbox)
	assert.IsType(t, &outboxrepo.Repository{}, repo.Outbox)
	assert.IsType(t, &bookingrepo.Repository{}, repo.Booking)
	assert.IsType(t, &courtrepo.Repository{}, repo.Court)
	assert.IsType(t, &walletrepo.Repository{}, repo.Wallet)
	assert.IsType(t, &transactionrepo.Repository{}, repo.Transaction)
	assert.IsType(t, &notificationrepo.Repository{}, repo.Notification)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unmet expectations: %v", err)
	}
}
