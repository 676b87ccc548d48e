package handlers

import (
	"github.com/voicemint/billing/internal/app/service/checkout"
	"github.com/voicemint/billing/internal/app/service/ledger"
	"github.com/voicemint/billing/internal/app/service/statistics"
	"github.com/voicemint/billing/pkg/response"
)

// RespOK is a generic OK envelope for endpoints returning no specific data.
type RespOK struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    interface{}              `json:"data"`
}

// RespInitiatePayment wraps InitiateResponse in the standard envelope.
type RespInitiatePayment struct {
	Code    response.APIResponseCode  `json:"code"`
	Message string                    `json:"message"`
	Data    checkout.InitiateResponse `json:"data"`
}

// RespLedger wraps LedgerBalances in the standard envelope.
type RespLedger struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    LedgerBalances           `json:"data"`
}

// RespConsume wraps ConsumeResponse in the standard envelope.
type RespConsume struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    ConsumeResponse          `json:"data"`
}

// RespListTransactions wraps ListTransactionsResponse in the standard envelope.
type RespListTransactions struct {
	Code    response.APIResponseCode        `json:"code"`
	Message string                          `json:"message"`
	Data    ledger.ListTransactionsResponse `json:"data"`
}

// RespRevenueStatistic wraps RevenueStatisticResponse in the standard envelope.
type RespRevenueStatistic struct {
	Code    response.APIResponseCode            `json:"code"`
	Message string                              `json:"message"`
	Data    statistics.RevenueStatisticResponse `json:"data"`
}
