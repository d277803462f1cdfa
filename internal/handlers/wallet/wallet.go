package wallet

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/domain"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/dto"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/service/walletservice"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/pkg/auth"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/pkg/utils"
)

const idempotencyHeader = "Idempotency-Key"

//go:generate mockgen -source=wallet.go -destination=mock_wallet.go -package=wallet
type Service interface {
	GetWallet(ctx context.Context, userID uuid.UUID) (*domain.UserWallet, error)
	GetTransactions(ctx context.Context, userID uuid.UUID) ([]domain.WalletTransaction, error)
	PayBooking(ctx context.Context, in walletservice.PayInput) (*domain.WalletTransaction, error)
	TopUp(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, reference string) (*domain.UserWallet, error)
}

type WalletHandler struct {
	walletService Service
}

func New(walletService Service) *WalletHandler {
	return &WalletHandler{
		walletService: walletService,
	}
}

// GetWallet godoc
//
//	@Summary		Get wallet balance
//	@Tags			Wallet
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	dto.WalletResponseDTO
//	@Failure		401	{object}	utils.Response	"User not authorized"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/wallet [get]
func (h *WalletHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(auth.UserIDKey).(uuid.UUID)

	wallet, err := h.walletService.GetWallet(r.Context(), userID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, toWalletResponse(wallet))
}

// GetTransactions godoc
//
//	@Summary		Get wallet history
//	@Description	Ledger rows of the authenticated user, newest first.
//	@Tags			Wallet
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{array}		dto.WalletTransactionResponseDTO
//	@Failure		401	{object}	utils.Response	"User not authorized"
//	@Failure		500	{object}	utils.Response	"Internal server error"
//	@Router			/api/wallet/transactions [get]
func (h *WalletHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(auth.UserIDKey).(uuid.UUID)

	transactions, err := h.walletService.GetTransactions(r.Context(), userID)
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	response := make([]dto.WalletTransactionResponseDTO, len(transactions))
	for i := range transactions {
		response[i] = toTransactionResponse(&transactions[i])
	}
	utils.RespondWithJSON(w, http.StatusOK, response)
}

// PayBooking godoc
//
//	@Summary		Pay for a booking from the wallet
//	@Description	Pays a deposit or the rest of a booking. Repeating a request with the same Idempotency-Key is rejected with 409.
//	@Tags			Wallet
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			Idempotency-Key	header		string						false	"Client key for safe retries"
//	@Param			request			body		dto.PayBookingRequestDTO	true	"Payment request"
//	@Success		200				{object}	dto.WalletTransactionResponseDTO
//	@Failure		400				{object}	utils.Response	"Invalid request body"
//	@Failure		402				{object}	utils.Response	"Insufficient balance"
//	@Failure		409				{object}	utils.Response	"Payment already made"
//	@Failure		422				{object}	utils.Response	"Invalid amount"
//	@Failure		500				{object}	utils.Response	"Internal server error"
//	@Router			/api/wallet/pay [post]
func (h *WalletHandler) PayBooking(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(auth.UserIDKey).(uuid.UUID)

	var req dto.PayBookingRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if fields := utils.ValidateStruct(req); fields != nil {
		utils.RespondWithValidationErrors(w, fields)
		return
	}

	tx, err := h.walletService.PayBooking(r.Context(), walletservice.PayInput{
		UserID:         userID,
		BookingID:      uuid.MustParse(req.BookingID),
		Amount:         req.Amount,
		Kind:           req.Kind,
		IdempotencyKey: r.Header.Get(idempotencyHeader),
	})
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, toTransactionResponse(tx))
}

// TopUp godoc
//
//	@Summary		Top up the wallet
//	@Description	Credits the wallet. A repeated reference is accepted once.
//	@Tags			Wallet
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dto.TopUpRequestDTO	true	"Top up request"
//	@Success		200		{object}	dto.WalletResponseDTO
//	@Failure		400		{object}	utils.Response	"Invalid request body"
//	@Failure		422		{object}	utils.Response	"Invalid amount"
//	@Failure		500		{object}	utils.Response	"Internal server error"
//	@Router			/api/wallet/top-up [post]
func (h *WalletHandler) TopUp(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value(auth.UserIDKey).(uuid.UUID)

	var req dto.TopUpRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if fields := utils.ValidateStruct(req); fields != nil {
		utils.RespondWithValidationErrors(w, fields)
		return
	}

	wallet, err := h.walletService.TopUp(r.Context(), userID, req.Amount, req.Reference)
	if err != nil {
		utils.RespondWithDomainError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, toWalletResponse(wallet))
}

func toWalletResponse(wallet *domain.UserWallet) dto.WalletResponseDTO {
	return dto.WalletResponseDTO{
		UserID:    wallet.UserID,
		Balance:   wallet.Balance,
		UpdatedAt: wallet.UpdatedAt,
	}
}

func toTransactionResponse(tx *domain.WalletTransaction) dto.WalletTransactionResponseDTO {
	return dto.WalletTransactionResponseDTO{
		ID:          tx.ID,
		Amount:      tx.Amount,
		Type:        string(tx.TransactionType),
		ReferenceID: tx.ReferenceID,
		Description: tx.Description,
		CreatedAt:   tx.CreatedAt,
	}
}
