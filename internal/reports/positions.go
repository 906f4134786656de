package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/reportload/internal/core"
	"github.com/shopspring/decimal"
)

func init() {
	registerHoldingReport()
	registerCollateralReport()
	registerMTFReport()
	registerDPHoldingReport()
}

var hundred = decimal.NewFromInt(100)

// position holds the fields every security-level report shares.
type position struct {
	Scope        clientScope
	ISIN         string
	SecurityName string
	AsOn         time.Time
}

// positionFor resolves client and security for a row. dateField names the
// report's as-on date column.
func positionFor(row core.MappedRow, cache *core.Cache, dateField string) (position, error) {
	p := position{
		Scope: scopeFor(row, cache),
		ISIN:  core.NormalizeID(row.Get("isin")),
	}
	if !validISIN(p.ISIN) {
		return position{}, fmt.Errorf("invalid ISIN %q", p.ISIN)
	}
	date, ok := core.ParseDate(row.Get(dateField))
	if !ok {
		return position{}, fmt.Errorf("invalid date %q for %s", row.Get(dateField), dateField)
	}
	p.AsOn = date
	p.SecurityName = securityName(cache, p.ISIN)
	return p, nil
}

func (p position) into(v map[string]any, dateField string) map[string]any {
	v["isin"] = p.ISIN
	v["security_name"] = core.NullIfEmpty(p.SecurityName)
	v[dateField] = p.AsOn
	return p.Scope.into(v)
}

// Holding is a client's holding of one security on a date.
type Holding struct {
	position
	Quantity    decimal.Decimal
	AvgPrice    decimal.Decimal
	ClosePrice  decimal.Decimal
	MarketValue decimal.Decimal
}

func registerHoldingReport() {
	core.Register(core.Define(core.Spec[Holding]{
		Info: core.TypeInfo{Key: "holding_report", Group: GroupReport, Label: "Holding Report", EntityName: "HoldingReport"},
		Columns: []core.Column{
			{Source: "CLIENT_ID", Field: "client_id", Required: true},
			{Source: "ISIN", Field: "isin", Required: true},
			{Source: "AS_ON_DATE", Field: "as_on_date", Required: true},
			{Source: "QUANTITY", Field: "quantity"},
			{Source: "AVG_PRICE", Field: "avg_price"},
			{Source: "CLOSE_PRICE", Field: "close_price"},
			{Source: "MARKET_VALUE", Field: "market_value"},
		},
		UniqueKeys: []string{"client_id", "isin", "as_on_date"},
		Batchable:  []core.BatchField{clientBatch, isinBatch},
		Transform: func(_ context.Context, row core.MappedRow, cache *core.Cache) (Holding, error) {
			p, err := positionFor(row, cache, "as_on_date")
			if err != nil {
				return Holding{}, err
			}
			h := Holding{
				position:   p,
				Quantity:   core.ParseAmount(row.Get("quantity")),
				AvgPrice:   core.ParseAmount(row.Get("avg_price")),
				ClosePrice: core.ParseAmount(row.Get("close_price")),
			}
			if mv, ok := core.ParseAmountStrict(row.Get("market_value")); ok {
				h.MarketValue = mv
			} else {
				h.MarketValue = h.Quantity.Mul(h.ClosePrice).Round(2)
			}
			return h, nil
		},
		Record: func(h Holding) core.Record {
			return core.Record{Values: h.position.into(map[string]any{
				"quantity":     h.Quantity,
				"avg_price":    h.AvgPrice,
				"close_price":  h.ClosePrice,
				"market_value": h.MarketValue,
			}, "as_on_date")}
		},
	}))
}

// Collateral is a security pledged as margin, valued after haircut.
type Collateral struct {
	position
	Quantity decimal.Decimal
	Value    decimal.Decimal
	Haircut  decimal.Decimal
}

func registerCollateralReport() {
	core.Register(core.Define(core.Spec[Collateral]{
		Info: core.TypeInfo{Key: "collateral_report", Group: GroupReport, Label: "Collateral Report", EntityName: "CollateralReport"},
		Columns: []core.Column{
			{Source: "CLIENT_ID", Field: "client_id", Required: true},
			{Source: "ISIN", Field: "isin", Required: true},
			{Source: "AS_ON_DATE", Field: "as_on_date", Required: true},
			{Source: "QUANTITY", Field: "quantity"},
			{Source: "VALUE", Field: "value"},
			{Source: "HAIRCUT", Field: "haircut"},
		},
		UniqueKeys: []string{"client_id", "isin", "as_on_date"},
		Batchable:  []core.BatchField{clientBatch, isinBatch},
		Transform: func(_ context.Context, row core.MappedRow, cache *core.Cache) (Collateral, error) {
			p, err := positionFor(row, cache, "as_on_date")
			if err != nil {
				return Collateral{}, err
			}
			c := Collateral{
				position: p,
				Quantity: core.ParseAmount(row.Get("quantity")),
				Value:    core.ParseAmount(row.Get("value")),
				Haircut:  core.ParseAmount(row.Get("haircut")),
			}
			if c.Haircut.IsNegative() || c.Haircut.GreaterThan(hundred) {
				return Collateral{}, fmt.Errorf("haircut %s is outside 0-100", c.Haircut)
			}
			return c, nil
		},
		Record: func(c Collateral) core.Record {
			net := c.Value.Mul(hundred.Sub(c.Haircut)).Div(hundred).Round(2)
			return core.Record{Values: c.position.into(map[string]any{
				"quantity":         c.Quantity,
				"value":            c.Value,
				"haircut":          c.Haircut,
				"collateral_value": net,
			}, "as_on_date")}
		},
	}))
}

// MTF is a margin trading facility position.
type MTF struct {
	position
	Quantity     decimal.Decimal
	FundedAmount decimal.Decimal
	InterestRate decimal.Decimal
}

func registerMTFReport() {
	core.Register(core.Define(core.Spec[MTF]{
		Info: core.TypeInfo{Key: "mtf_report", Group: GroupReport, Label: "MTF Report", EntityName: "MTFReport"},
		Columns: []core.Column{
			{Source: "CLIENT_ID", Field: "client_id", Required: true},
			{Source: "ISIN", Field: "isin", Required: true},
			{Source: "POSITION_DATE", Field: "position_date", Required: true},
			{Source: "MTF_QTY", Field: "quantity"},
			{Source: "FUNDED_AMOUNT", Field: "funded_amount"},
			{Source: "INTEREST_RATE", Field: "interest_rate"},
		},
		UniqueKeys: []string{"client_id", "isin", "position_date"},
		Batchable:  []core.BatchField{clientBatch, isinBatch},
		Transform: func(_ context.Context, row core.MappedRow, cache *core.Cache) (MTF, error) {
			p, err := positionFor(row, cache, "position_date")
			if err != nil {
				return MTF{}, err
			}
			return MTF{
				position:     p,
				Quantity:     core.ParseAmount(row.Get("quantity")),
				FundedAmount: core.ParseAmount(row.Get("funded_amount")),
				InterestRate: core.ParseAmount(row.Get("interest_rate")),
			}, nil
		},
		Record: func(m MTF) core.Record {
			daily := m.FundedAmount.Mul(m.InterestRate).Div(hundred).Div(decimal.NewFromInt(365)).Round(2)
			return core.Record{Values: m.position.into(map[string]any{
				"quantity":       m.Quantity,
				"funded_amount":  m.FundedAmount,
				"interest_rate":  m.InterestRate,
				"daily_interest": daily,
			}, "position_date")}
		},
	}))
}

// DPHolding is a depository holding split into free and pledged quantity.
type DPHolding struct {
	position
	DPID       string
	FreeQty    decimal.Decimal
	PledgedQty decimal.Decimal
}

func registerDPHoldingReport() {
	core.Register(core.Define(core.Spec[DPHolding]{
		Info: core.TypeInfo{Key: "dp_holding_report", Group: GroupReport, Label: "DP Holding Report", EntityName: "DPHoldingReport"},
		Columns: []core.Column{
			{Source: "DP_ID", Field: "dp_id", Required: true},
			{Source: "CLIENT_ID", Field: "client_id", Required: true},
			{Source: "ISIN", Field: "isin", Required: true},
			{Source: "HOLDING_DATE", Field: "holding_date", Required: true},
			{Source: "FREE_QTY", Field: "free_qty"},
			{Source: "PLEDGED_QTY", Field: "pledged_qty"},
		},
		UniqueKeys: []string{"dp_id", "isin", "holding_date"},
		Batchable:  []core.BatchField{clientBatch, isinBatch},
		Transform: func(_ context.Context, row core.MappedRow, cache *core.Cache) (DPHolding, error) {
			p, err := positionFor(row, cache, "holding_date")
			if err != nil {
				return DPHolding{}, err
			}
			return DPHolding{
				position:   p,
				DPID:       core.NormalizeID(row.Get("dp_id")),
				FreeQty:    core.ParseAmount(row.Get("free_qty")),
				PledgedQty: core.ParseAmount(row.Get("pledged_qty")),
			}, nil
		},
		Record: func(d DPHolding) core.Record {
			return core.Record{Values: d.position.into(map[string]any{
				"dp_id":       d.DPID,
				"free_qty":    d.FreeQty,
				"pledged_qty": d.PledgedQty,
				"total_qty":   d.FreeQty.Add(d.PledgedQty),
			}, "holding_date")}
		},
	}))
}
