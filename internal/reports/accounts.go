package reports

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/reportload/internal/core"
	"github.com/shopspring/decimal"
)

func init() {
	registerRiskReport()
	registerTradeReport()
	registerMarginReport()
	registerLedgerReport()
	registerBrokerageSummary()
	registerPayoutReport()
}

// Risk is a client's risk snapshot. One row per client is kept; a new file
// overwrites the previous figures.
type Risk struct {
	Scope           clientScope
	ClientName      string
	Financial       decimal.Decimal
	LedgerBalance   decimal.Decimal
	MarginAvailable decimal.Decimal
	Exposure        decimal.Decimal
	Category        string
}

func registerRiskReport() {
	core.Register(core.Define(core.Spec[Risk]{
		Info: core.TypeInfo{Key: "risk_report", Group: GroupReport, Label: "Risk Report", EntityName: "RiskReport"},
		Columns: []core.Column{
			{Source: "CLIENT_ID", Field: "client_id", Required: true},
			{Source: "CLIENT_NAME", Field: "client_name"},
			{Source: "Financial", Field: "financial"},
			{Source: "LEDGER_BALANCE", Field: "ledger_balance"},
			{Source: "MARGIN_AVAILABLE", Field: "margin_available"},
			{Source: "EXPOSURE", Field: "exposure"},
			{Source: "RISK_CATEGORY", Field: "risk_category"},
		},
		UniqueKeys: []string{"client_id"},
		Batchable:  []core.BatchField{clientBatch},
		Transform: func(_ context.Context, row core.MappedRow, cache *core.Cache) (Risk, error) {
			return Risk{
				Scope:           scopeFor(row, cache),
				ClientName:      row.Get("client_name"),
				Financial:       core.ParseAmount(row.Get("financial")),
				LedgerBalance:   core.ParseAmount(row.Get("ledger_balance")),
				MarginAvailable: core.ParseAmount(row.Get("margin_available")),
				Exposure:        core.ParseAmount(row.Get("exposure")),
				Category:        strings.ToUpper(row.Get("risk_category")),
			}, nil
		},
		Record: func(r Risk) core.Record {
			return core.Record{Values: r.Scope.into(map[string]any{
				"client_name":      core.NullIfEmpty(r.ClientName),
				"financial":        r.Financial,
				"ledger_balance":   r.LedgerBalance,
				"margin_available": r.MarginAvailable,
				"exposure":         r.Exposure,
				"risk_category":    core.NullIfEmpty(r.Category),
			})}
		},
	}))
}

// Trade is a client's daily trade summary for one segment (COCD).
type Trade struct {
	Scope     clientScope
	RowKey    string
	COCD      string
	TradeDate time.Time
	BuyQty    int64
	SellQty   int64
	BuyValue  decimal.Decimal
	SellValue decimal.Decimal
	Brokerage decimal.Decimal
}

// TradeKey is the synthetic unique key of a trade summary row.
func TradeKey(clientID, cocd string, tradeDate time.Time) string {
	return core.SyntheticKey(clientID, cocd, core.DateKey(tradeDate))
}

func registerTradeReport() {
	core.Register(core.Define(core.Spec[Trade]{
		Info: core.TypeInfo{Key: "trade_report", Group: GroupReport, Label: "Trade Report", EntityName: "TradeReport"},
		Columns: []core.Column{
			{Source: "CLIENT_ID", Field: "client_id", Required: true},
			{Source: "COCD", Field: "cocd", Required: true},
			{Source: "TRADE_DATE", Field: "trade_date", Required: true},
			{Source: "BUY_QTY", Field: "buy_qty"},
			{Source: "SELL_QTY", Field: "sell_qty"},
			{Source: "BUY_VALUE", Field: "buy_value"},
			{Source: "SELL_VALUE", Field: "sell_value"},
			{Source: "BROKERAGE", Field: "brokerage"},
		},
		UniqueKeys: []string{"row_key"},
		Batchable:  []core.BatchField{clientBatch},
		Transform: func(_ context.Context, row core.MappedRow, cache *core.Cache) (Trade, error) {
			date, ok := core.ParseDate(row.Get("trade_date"))
			if !ok {
				return Trade{}, fmt.Errorf("invalid date %q for TRADE_DATE", row.Get("trade_date"))
			}
			t := Trade{
				Scope:     scopeFor(row, cache),
				COCD:      core.NormalizeID(row.Get("cocd")),
				TradeDate: date,
				BuyQty:    core.ParseInt(row.Get("buy_qty")),
				SellQty:   core.ParseInt(row.Get("sell_qty")),
				BuyValue:  core.ParseAmount(row.Get("buy_value")),
				SellValue: core.ParseAmount(row.Get("sell_value")),
				Brokerage: core.ParseAmount(row.Get("brokerage")),
			}
			t.RowKey = TradeKey(t.Scope.ClientID, t.COCD, t.TradeDate)
			return t, nil
		},
		Record: func(t Trade) core.Record {
			return core.Record{Values: t.Scope.into(map[string]any{
				"row_key":    t.RowKey,
				"cocd":       t.COCD,
				"trade_date": t.TradeDate,
				"buy_qty":    t.BuyQty,
				"sell_qty":   t.SellQty,
				"buy_value":  t.BuyValue,
				"sell_value": t.SellValue,
				"net_value":  t.SellValue.Sub(t.BuyValue),
				"brokerage":  t.Brokerage,
			})}
		},
	}))
}

// Margin is a client's margin position on one day.
type Margin struct {
	Scope     clientScope
	Date      time.Time
	Required  decimal.Decimal
	Available decimal.Decimal
	Shortfall decimal.Decimal
}

func registerMarginReport() {
	core.Register(core.Define(core.Spec[Margin]{
		Info: core.TypeInfo{Key: "margin_report", Group: GroupReport, Label: "Margin Report", EntityName: "MarginReport"},
		Columns: []core.Column{
			{Source: "CLIENT_ID", Field: "client_id", Required: true},
			{Source: "MARGIN_DATE", Field: "margin_date", Required: true},
			{Source: "REQUIRED_MARGIN", Field: "required_margin"},
			{Source: "AVAILABLE_MARGIN", Field: "available_margin"},
			{Source: "SHORTFALL", Field: "shortfall"},
		},
		UniqueKeys: []string{"client_id", "margin_date"},
		Batchable:  []core.BatchField{clientBatch},
		Transform: func(_ context.Context, row core.MappedRow, cache *core.Cache) (Margin, error) {
			date, ok := core.ParseDate(row.Get("margin_date"))
			if !ok {
				return Margin{}, fmt.Errorf("invalid date %q for MARGIN_DATE", row.Get("margin_date"))
			}
			m := Margin{
				Scope:     scopeFor(row, cache),
				Date:      date,
				Required:  core.ParseAmount(row.Get("required_margin")),
				Available: core.ParseAmount(row.Get("available_margin")),
			}
			// Derive the shortfall when the export leaves it out.
			if s, ok := core.ParseAmountStrict(row.Get("shortfall")); ok {
				m.Shortfall = s
			} else if m.Required.GreaterThan(m.Available) {
				m.Shortfall = m.Required.Sub(m.Available)
			}
			return m, nil
		},
		Record: func(m Margin) core.Record {
			return core.Record{Values: m.Scope.into(map[string]any{
				"margin_date":      m.Date,
				"required_margin":  m.Required,
				"available_margin": m.Available,
				"shortfall":        m.Shortfall,
			})}
		},
	}))
}

// LedgerEntry is one voucher in a client's ledger.
type LedgerEntry struct {
	Scope     clientScope
	VoucherNo string
	Date      time.Time
	Narration string
	Debit     decimal.Decimal
	Credit    decimal.Decimal
	Balance   decimal.Decimal
}

func registerLedgerReport() {
	core.Register(core.Define(core.Spec[LedgerEntry]{
		Info: core.TypeInfo{Key: "ledger_report", Group: GroupReport, Label: "Ledger Report", EntityName: "LedgerReport"},
		Columns: []core.Column{
			{Source: "CLIENT_ID", Field: "client_id", Required: true},
			{Source: "VOUCHER_NO", Field: "voucher_no", Required: true},
			{Source: "VOUCHER_DATE", Field: "voucher_date", Required: true},
			{Source: "NARRATION", Field: "narration"},
			{Source: "DEBIT", Field: "debit"},
			{Source: "CREDIT", Field: "credit"},
			{Source: "BALANCE", Field: "balance"},
		},
		UniqueKeys: []string{"client_id", "voucher_no"},
		Batchable:  []core.BatchField{clientBatch},
		Transform: func(_ context.Context, row core.MappedRow, cache *core.Cache) (LedgerEntry, error) {
			e := LedgerEntry{
				Scope:     scopeFor(row, cache),
				VoucherNo: core.NormalizeID(row.Get("voucher_no")),
				Date:      core.ParseRequiredDate(row.Get("voucher_date")),
				Narration: row.Get("narration"),
				Debit:     core.ParseAmount(row.Get("debit")).Abs(),
				Credit:    core.ParseAmount(row.Get("credit")).Abs(),
				Balance:   core.ParseAmount(row.Get("balance")),
			}
			if e.Debit.IsPositive() && e.Credit.IsPositive() {
				return LedgerEntry{}, fmt.Errorf("voucher %s has both debit and credit", e.VoucherNo)
			}
			return e, nil
		},
		Record: func(e LedgerEntry) core.Record {
			return core.Record{Values: e.Scope.into(map[string]any{
				"voucher_no":   e.VoucherNo,
				"voucher_date": e.Date,
				"narration":    core.NullIfEmpty(e.Narration),
				"debit":        e.Debit,
				"credit":       e.Credit,
				"net_amount":   e.Credit.Sub(e.Debit),
				"balance":      e.Balance,
			})}
		},
	}))
}

// Brokerage is a client's monthly brokerage for one segment.
type Brokerage struct {
	Scope     clientScope
	Period    time.Time
	Segment   string
	Turnover  decimal.Decimal
	Brokerage decimal.Decimal
	GST       decimal.Decimal
}

// gstRate is applied when the export carries no GST column.
var gstRate = decimal.NewFromFloat(0.18)

func registerBrokerageSummary() {
	core.Register(core.Define(core.Spec[Brokerage]{
		Info: core.TypeInfo{Key: "brokerage_summary", Group: GroupReport, Label: "Brokerage Summary", EntityName: "BrokerageSummary"},
		Columns: []core.Column{
			{Source: "CLIENT_ID", Field: "client_id", Required: true},
			{Source: "MONTH", Field: "period", Required: true},
			{Source: "SEGMENT", Field: "segment", Required: true},
			{Source: "TURNOVER", Field: "turnover"},
			{Source: "BROKERAGE", Field: "brokerage"},
			{Source: "GST", Field: "gst"},
		},
		UniqueKeys: []string{"client_id", "period", "segment"},
		Batchable:  []core.BatchField{clientBatch},
		Transform: func(_ context.Context, row core.MappedRow, cache *core.Cache) (Brokerage, error) {
			period, ok := parsePeriod(row.Get("period"))
			if !ok {
				return Brokerage{}, fmt.Errorf("invalid date %q for MONTH", row.Get("period"))
			}
			b := Brokerage{
				Scope:     scopeFor(row, cache),
				Period:    period,
				Segment:   core.NormalizeID(row.Get("segment")),
				Turnover:  core.ParseAmount(row.Get("turnover")),
				Brokerage: core.ParseAmount(row.Get("brokerage")),
			}
			if g, ok := core.ParseAmountStrict(row.Get("gst")); ok {
				b.GST = g
			} else {
				b.GST = b.Brokerage.Mul(gstRate).Round(2)
			}
			return b, nil
		},
		Record: func(b Brokerage) core.Record {
			return core.Record{Values: b.Scope.into(map[string]any{
				"period":    b.Period,
				"segment":   b.Segment,
				"turnover":  b.Turnover,
				"brokerage": b.Brokerage,
				"gst":       b.GST,
			})}
		},
	}))
}

// parsePeriod accepts "Apr-2026", "April 2026", "2026-04" or any full date,
// and returns the first day of that month.
func parsePeriod(s string) (time.Time, bool) {
	s = core.CleanCell(s)
	for _, layout := range []string{"Jan-2006", "Jan 2006", "January 2006", "January-2006", "2006-01", "01/2006", "Jan-06"} {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC), true
		}
	}
	if t, ok := core.ParseDate(s); ok {
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

// Payout is a client's request to withdraw funds.
type Payout struct {
	Scope       clientScope
	PayoutID    string
	RequestedOn time.Time
	Amount      decimal.Decimal
	Status      string
	BankAccount string
}

var payoutStatuses = map[string]bool{"PENDING": true, "APPROVED": true, "PAID": true, "REJECTED": true}

func registerPayoutReport() {
	core.Register(core.Define(core.Spec[Payout]{
		Info: core.TypeInfo{Key: "payout_report", Group: GroupReport, Label: "Payout Report", EntityName: "PayoutReport"},
		Columns: []core.Column{
			{Source: "CLIENT_ID", Field: "client_id", Required: true},
			{Source: "PAYOUT_ID", Field: "payout_id", Required: true},
			{Source: "REQUEST_DATE", Field: "request_date"},
			{Source: "AMOUNT", Field: "amount", Required: true},
			{Source: "STATUS", Field: "status"},
			{Source: "BANK_ACCOUNT", Field: "bank_account"},
		},
		UniqueKeys: []string{"payout_id"},
		Batchable:  []core.BatchField{clientBatch},
		Transform: func(_ context.Context, row core.MappedRow, cache *core.Cache) (Payout, error) {
			amount, ok := core.ParseAmountStrict(row.Get("amount"))
			if !ok || !amount.IsPositive() {
				return Payout{}, fmt.Errorf("invalid number %q for AMOUNT", row.Get("amount"))
			}
			status := core.NormalizeID(row.Get("status"))
			if status == "" {
				status = "PENDING"
			}
			if !payoutStatuses[status] {
				return Payout{}, fmt.Errorf("invalid status %q", status)
			}
			return Payout{
				Scope:       scopeFor(row, cache),
				PayoutID:    core.NormalizeID(row.Get("payout_id")),
				RequestedOn: core.ParseRequiredDate(row.Get("request_date")),
				Amount:      amount,
				Status:      status,
				BankAccount: maskAccount(row.Get("bank_account")),
			}, nil
		},
		Record: func(p Payout) core.Record {
			return core.Record{Values: p.Scope.into(map[string]any{
				"payout_id":    p.PayoutID,
				"request_date": p.RequestedOn,
				"amount":       p.Amount,
				"status":       p.Status,
				"bank_account": core.NullIfEmpty(p.BankAccount),
			})}
		},
	}))
}

// maskAccount keeps the last four digits of a bank account number.
func maskAccount(s string) string {
	s = strings.ReplaceAll(core.CleanCell(s), " ", "")
	if len(s) <= 4 {
		return s
	}
	return strings.Repeat("X", len(s)-4) + s[len(s)-4:]
}
