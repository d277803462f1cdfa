package repo

import (
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/outbox"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/pg"
	bookingrepo "github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/repo/booking-repo"
	courtrepo "github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/repo/court-repo"
	inboxrepo "github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/repo/inbox-repo"
	notificationrepo "github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/repo/notification-repo"
	outboxrepo "github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/repo/outbox-repo"
	transactionrepo "github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/repo/transaction-repo"
	walletrepo "github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/repo/wallet-repo"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/service/bookingservice"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/service/notificationservice"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/service/walletservice"
)

// Repositories holds every store of the module. Each deployable only
// touches the ones backed by tables in its own database.
type Repositories struct {
	Outbox       outbox.Repo
	Inbox        *inboxrepo.Repository
	Booking      bookingservice.Repo
	Court        bookingservice.CourtRepo
	Wallet       walletservice.WalletRepo
	Transaction  walletservice.TransactionRepo
	Notification notificationservice.Repo
}

func New(conn pg.Database, txManager pg.TXManager) *Repositories {
	return &Repositories{
		Outbox:       outboxrepo.New(conn),
		Inbox:        inboxrepo.New(conn),
		Booking:      bookingrepo.New(conn, txManager),
		Court:        courtrepo.New(conn),
		Wallet:       walletrepo.New(conn),
		Transaction:  transactionrepo.New(conn),
		Notification: notificationrepo.New(conn),
	}
}
