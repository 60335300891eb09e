package httpapi

import (
	"time"

	"github.com/google/uuid"

	"github.com/marwick/ledger/internal/ledger"
)

// moneyDTO is the wire form for money amounts: decimal string + ISO code.
type moneyDTO struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

func (m moneyDTO) toDomain() (ledger.Money, error) {
	return ledger.ParseMoney(m.Amount, m.Currency)
}

// Transactions

type postTransactionRequest struct {
	EntityID uuid.UUID              `json:"entity_id"`
	Date     time.Time              `json:"date"`
	Memo     string                 `json:"memo"`
	Category ledger.Category        `json:"category"`
	Metadata map[string]string      `json:"metadata,omitempty"`
	Entries  []postTransactionEntry `json:"entries"`
}

type postTransactionEntry struct {
	AccountID uuid.UUID `json:"account_id"`
	Debit     *moneyDTO `json:"debit,omitempty"`
	Credit    *moneyDTO `json:"credit,omitempty"`
	Memo      string    `json:"memo"`
}

type entryResponse struct {
	ID        uuid.UUID    `json:"id"`
	AccountID uuid.UUID    `json:"account_id"`
	Debit     ledger.Money `json:"debit"`
	Credit    ledger.Money `json:"credit"`
	Memo      string       `json:"memo,omitempty"`
}

type transactionResponse struct {
	ID                    uuid.UUID         `json:"id"`
	EntityID              uuid.UUID         `json:"entity_id"`
	Date                  time.Time         `json:"date"`
	PostedAt              *time.Time        `json:"posted_at,omitempty"`
	Memo                  string            `json:"memo"`
	Reference             string            `json:"reference,omitempty"`
	Category              ledger.Category   `json:"category"`
	Metadata              map[string]string `json:"metadata,omitempty"`
	ReversesTransactionID *uuid.UUID        `json:"reverses_transaction_id,omitempty"`
	Entries               []entryResponse   `json:"entries"`
}

func toTransactionResponse(t ledger.Transaction) transactionResponse {
	entries := make([]entryResponse, 0, len(t.Entries))
	for _, e := range t.Entries {
		entries = append(entries, entryResponse{
			ID:        e.ID,
			AccountID: e.AccountID,
			Debit:     e.Debit,
			Credit:    e.Credit,
			Memo:      e.Memo,
		})
	}
	return transactionResponse{
		ID:                    t.ID,
		EntityID:              t.EntityID,
		Date:                  t.Date,
		PostedAt:              t.PostedAt,
		Memo:                  t.Memo,
		Reference:             t.Reference,
		Category:              t.Category,
		Metadata:              t.Metadata,
		ReversesTransactionID: t.ReversesTransactionID,
		Entries:               entries,
	}
}

type listTransactionsQuery struct {
	EntityID uuid.UUID
}

type listTransactionsResponse struct {
	Items []transactionResponse `json:"items"`
}

type reverseTransactionRequest struct {
	EntityID uuid.UUID  `json:"entity_id"`
	Date     *time.Time `json:"date,omitempty"`
}

type recategorizeRequest struct {
	EntityID uuid.UUID         `json:"entity_id"`
	Category ledger.Category   `json:"category,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Trial balance

type trialBalanceQuery struct {
	EntityID uuid.UUID
	AsOf     *time.Time
}

type trialBalanceAccount struct {
	AccountID uuid.UUID    `json:"account_id"`
	Name      string       `json:"name"`
	Path      string       `json:"path"`
	Balance   ledger.Money `json:"balance"`
}

type trialBalanceResponse struct {
	EntityID uuid.UUID             `json:"entity_id"`
	AsOf     *time.Time            `json:"as_of,omitempty"`
	Accounts []trialBalanceAccount `json:"accounts"`
}

type accountBalanceResponse struct {
	AccountID uuid.UUID    `json:"account_id"`
	AsOf      *time.Time   `json:"as_of,omitempty"`
	Balance   ledger.Money `json:"balance"`
}

// Accounts

type postAccountRequest struct {
	EntityID    uuid.UUID          `json:"entity_id"`
	Name        string             `json:"name"`
	Currency    string             `json:"currency"`
	Type        ledger.AccountType `json:"type"`
	Group       string             `json:"group"`
	Institution string             `json:"institution"`
	Metadata    map[string]string  `json:"metadata,omitempty"`
	System      bool               `json:"system,omitempty"`
}

type accountResponse struct {
	ID          uuid.UUID          `json:"id"`
	EntityID    uuid.UUID          `json:"entity_id"`
	Name        string             `json:"name"`
	Currency    string             `json:"currency"`
	Type        ledger.AccountType `json:"type"`
	Group       string             `json:"group"`
	Institution string             `json:"institution"`
	Path        string             `json:"path"`
	Metadata    map[string]string  `json:"metadata,omitempty"`
	System      bool               `json:"system"`
	Active      bool               `json:"active"`
}

func toAccountResponse(a ledger.Account) accountResponse {
	return accountResponse{
		ID:          a.ID,
		EntityID:    a.EntityID,
		Name:        a.Name,
		Currency:    a.Currency,
		Type:        a.Type,
		Group:       a.Group,
		Institution: a.Institution,
		Path:        a.Path(),
		Metadata:    a.Metadata,
		System:      a.System,
		Active:      a.Active,
	}
}

type listAccountsQuery struct {
	EntityID uuid.UUID
}

// Positions

type postPositionRequest struct {
	EntityID  uuid.UUID `json:"entity_id"`
	AccountID uuid.UUID `json:"account_id"`
	Symbol    string    `json:"symbol"`
	Currency  string    `json:"currency,omitempty"`
}

type positionResponse struct {
	ID        uuid.UUID `json:"id"`
	EntityID  uuid.UUID `json:"entity_id"`
	AccountID uuid.UUID `json:"account_id"`
	Symbol    string    `json:"symbol"`
	Currency  string    `json:"currency"`
}

func toPositionResponse(p ledger.Position) positionResponse {
	return positionResponse{ID: p.ID, EntityID: p.EntityID, AccountID: p.AccountID, Symbol: p.Symbol, Currency: p.Currency}
}

// Lots

type postAcquisitionRequest struct {
	Date            time.Time              `json:"date"`
	Quantity        string                 `json:"quantity"`
	CostPerShare    moneyDTO               `json:"cost_per_share"`
	AcquisitionType ledger.AcquisitionType `json:"acquisition_type,omitempty"`
}

type lotResponse struct {
	ID                 uuid.UUID              `json:"id"`
	PositionID         uuid.UUID              `json:"position_id"`
	AcquisitionDate    time.Time              `json:"acquisition_date"`
	CostPerShare       ledger.Money           `json:"cost_per_share"`
	OriginalQuantity   ledger.Quantity        `json:"original_quantity"`
	RemainingQuantity  ledger.Quantity        `json:"remaining_quantity"`
	DispositionDate    *time.Time             `json:"disposition_date,omitempty"`
	WashSaleDisallowed bool                   `json:"wash_sale_disallowed"`
	WashSaleAdjustment ledger.Money           `json:"wash_sale_adjustment"`
	AcquisitionType    ledger.AcquisitionType `json:"acquisition_type"`
	State              ledger.LotState        `json:"state"`
}

func toLotResponse(l ledger.TaxLot) lotResponse {
	return lotResponse{
		ID:                 l.ID,
		PositionID:         l.PositionID,
		AcquisitionDate:    l.AcquisitionDate,
		CostPerShare:       l.CostPerShare,
		OriginalQuantity:   l.OriginalQuantity,
		RemainingQuantity:  l.RemainingQuantity,
		DispositionDate:    l.DispositionDate,
		WashSaleDisallowed: l.WashSaleDisallowed,
		WashSaleAdjustment: l.WashSaleAdjustment,
		AcquisitionType:    l.AcquisitionType,
		State:              l.State(),
	}
}

type matchSaleRequest struct {
	Quantity string      `json:"quantity"`
	Method   string      `json:"method"`
	LotIDs   []uuid.UUID `json:"lot_ids,omitempty"`
}

type sellRequest struct {
	Quantity string      `json:"quantity"`
	Proceeds moneyDTO    `json:"proceeds"`
	Date     time.Time   `json:"date"`
	Method   string      `json:"method"`
	LotIDs   []uuid.UUID `json:"lot_ids,omitempty"`
}

type dispositionResponse struct {
	LotID           uuid.UUID       `json:"lot_id"`
	PositionID      uuid.UUID       `json:"position_id"`
	QuantitySold    ledger.Quantity `json:"quantity_sold"`
	CostBasis       ledger.Money    `json:"cost_basis"`
	Proceeds        ledger.Money    `json:"proceeds"`
	GainLoss        ledger.Money    `json:"gain_loss"`
	AcquisitionDate time.Time       `json:"acquisition_date"`
	DispositionDate time.Time       `json:"disposition_date"`
	LongTerm        bool            `json:"long_term"`
}

func toDispositionResponse(d ledger.LotDisposition) (dispositionResponse, error) {
	gain, err := d.GainLoss()
	if err != nil {
		return dispositionResponse{}, err
	}
	return dispositionResponse{
		LotID:           d.LotID,
		PositionID:      d.PositionID,
		QuantitySold:    d.QuantitySold,
		CostBasis:       d.CostBasis,
		Proceeds:        d.Proceeds,
		GainLoss:        gain,
		AcquisitionDate: d.AcquisitionDate,
		DispositionDate: d.DispositionDate,
		LongTerm:        d.IsLongTerm(),
	}, nil
}

type splitRequest struct {
	Numerator   int64 `json:"numerator"`
	Denominator int64 `json:"denominator"`
}

type washSaleRequest struct {
	DisallowedLoss moneyDTO `json:"disallowed_loss"`
}

// Reconciliation

type postReconciliationRequest struct {
	AccountID uuid.UUID           `json:"account_id"`
	FileName  string              `json:"file_name"`
	Records   []importedRecordDTO `json:"records"`
}

type importedRecordDTO struct {
	ExternalRef string    `json:"external_ref"`
	Date        time.Time `json:"date"`
	Amount      moneyDTO  `json:"amount"`
	Description string    `json:"description"`
}

type matchResponse struct {
	ID                     uuid.UUID          `json:"id"`
	ExternalRef            string             `json:"external_ref"`
	Date                   time.Time          `json:"date"`
	Amount                 ledger.Money       `json:"amount"`
	Description            string             `json:"description"`
	SuggestedTransactionID *uuid.UUID         `json:"suggested_transaction_id,omitempty"`
	Score                  int                `json:"score"`
	Matched                bool               `json:"matched"`
	Status                 ledger.MatchStatus `json:"status"`
}

type sessionResponse struct {
	ID        uuid.UUID            `json:"id"`
	AccountID uuid.UUID            `json:"account_id"`
	FileName  string               `json:"file_name"`
	Status    ledger.SessionStatus `json:"status"`
	CreatedAt time.Time            `json:"created_at"`
	Matches   []matchResponse      `json:"matches"`
}

func toSessionResponse(s ledger.ReconciliationSession) sessionResponse {
	matches := make([]matchResponse, 0, len(s.Matches))
	for _, m := range s.Matches {
		matches = append(matches, matchResponse{
			ID:                     m.ID,
			ExternalRef:            m.Record.ExternalRef,
			Date:                   m.Record.Date,
			Amount:                 m.Record.Amount,
			Description:            m.Record.Description,
			SuggestedTransactionID: m.SuggestedTransactionID,
			Score:                  m.Score,
			Matched:                m.Matched,
			Status:                 m.Status,
		})
	}
	return sessionResponse{
		ID:        s.ID,
		AccountID: s.AccountID,
		FileName:  s.FileName,
		Status:    s.Status,
		CreatedAt: s.CreatedAt,
		Matches:   matches,
	}
}
