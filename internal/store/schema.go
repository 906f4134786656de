package store

import (
	"context"
	"fmt"
)

// schema creates the target tables. Every table carries a unique constraint
// on the type's key columns, which the upsert's ON CONFLICT clause relies on.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS state_master (
		state_id   text PRIMARY KEY,
		state_name text NOT NULL,
		country    text NOT NULL DEFAULT 'India',
		created_at timestamptz NOT NULL DEFAULT now(),
		updated_at timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS state_master_name_idx ON state_master (upper(state_name))`,
	`CREATE TABLE IF NOT EXISTS branch_master (
		branch_id        text PRIMARY KEY,
		branch_name      text NOT NULL,
		region_branch_id text NOT NULL,
		city             text,
		state            text,
		email            text,
		is_active        boolean NOT NULL DEFAULT true,
		created_at       timestamptz NOT NULL DEFAULT now(),
		updated_at       timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS employee_master (
		employee_id     text PRIMARY KEY,
		name            text NOT NULL,
		branch_id       text NOT NULL,
		designation     text,
		email           text,
		mobile          text,
		date_of_joining date,
		created_at      timestamptz NOT NULL DEFAULT now(),
		updated_at      timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS client_master (
		client_id         text PRIMARY KEY,
		client_name       text NOT NULL,
		branch_id         text NOT NULL,
		pan               text,
		email             text,
		mobile            text,
		state_id          text,
		state_name        text,
		dealer_id         text,
		account_opened_on date,
		is_active         boolean NOT NULL DEFAULT true,
		created_at        timestamptz NOT NULL DEFAULT now(),
		updated_at        timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS dealer_mapping (
		dealer_id      text NOT NULL,
		client_id      text NOT NULL,
		employee_id    text NOT NULL,
		effective_from date NOT NULL,
		created_at     timestamptz NOT NULL DEFAULT now(),
		updated_at     timestamptz NOT NULL DEFAULT now(),
		UNIQUE (dealer_id, client_id)
	)`,
	`CREATE TABLE IF NOT EXISTS isin_master (
		isin          text PRIMARY KEY,
		security_name text NOT NULL,
		symbol        text,
		series        text,
		face_value    numeric NOT NULL DEFAULT 0,
		sector        text,
		created_at    timestamptz NOT NULL DEFAULT now(),
		updated_at    timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS risk_report (
		client_id        text PRIMARY KEY,
		branch_id        text NOT NULL,
		region_branch_id text NOT NULL,
		financial_year   text NOT NULL,
		client_name      text,
		financial        numeric NOT NULL DEFAULT 0,
		ledger_balance   numeric NOT NULL DEFAULT 0,
		margin_available numeric NOT NULL DEFAULT 0,
		exposure         numeric NOT NULL DEFAULT 0,
		risk_category    text,
		created_at       timestamptz NOT NULL DEFAULT now(),
		updated_at       timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS trade_report (
		row_key          text PRIMARY KEY,
		client_id        text NOT NULL,
		branch_id        text NOT NULL,
		region_branch_id text NOT NULL,
		financial_year   text NOT NULL,
		cocd             text NOT NULL,
		trade_date       date NOT NULL,
		buy_qty          bigint NOT NULL DEFAULT 0,
		sell_qty         bigint NOT NULL DEFAULT 0,
		buy_value        numeric NOT NULL DEFAULT 0,
		sell_value       numeric NOT NULL DEFAULT 0,
		net_value        numeric NOT NULL DEFAULT 0,
		brokerage        numeric NOT NULL DEFAULT 0,
		created_at       timestamptz NOT NULL DEFAULT now(),
		updated_at       timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS margin_report (
		client_id        text NOT NULL,
		margin_date      date NOT NULL,
		branch_id        text NOT NULL,
		region_branch_id text NOT NULL,
		financial_year   text NOT NULL,
		required_margin  numeric NOT NULL DEFAULT 0,
		available_margin numeric NOT NULL DEFAULT 0,
		shortfall        numeric NOT NULL DEFAULT 0,
		created_at       timestamptz NOT NULL DEFAULT now(),
		updated_at       timestamptz NOT NULL DEFAULT now(),
		UNIQUE (client_id, margin_date)
	)`,
	`CREATE TABLE IF NOT EXISTS ledger_report (
		client_id        text NOT NULL,
		voucher_no       text NOT NULL,
		branch_id        text NOT NULL,
		region_branch_id text NOT NULL,
		financial_year   text NOT NULL,
		voucher_date     date NOT NULL,
		narration        text,
		debit            numeric NOT NULL DEFAULT 0,
		credit           numeric NOT NULL DEFAULT 0,
		net_amount       numeric NOT NULL DEFAULT 0,
		balance          numeric NOT NULL DEFAULT 0,
		created_at       timestamptz NOT NULL DEFAULT now(),
		updated_at       timestamptz NOT NULL DEFAULT now(),
		UNIQUE (client_id, voucher_no)
	)`,
	`CREATE TABLE IF NOT EXISTS brokerage_summary (
		client_id        text NOT NULL,
		period           date NOT NULL,
		segment          text NOT NULL,
		branch_id        text NOT NULL,
		region_branch_id text NOT NULL,
		financial_year   text NOT NULL,
		turnover         numeric NOT NULL DEFAULT 0,
		brokerage        numeric NOT NULL DEFAULT 0,
		gst              numeric NOT NULL DEFAULT 0,
		created_at       timestamptz NOT NULL DEFAULT now(),
		updated_at       timestamptz NOT NULL DEFAULT now(),
		UNIQUE (client_id, period, segment)
	)`,
	`CREATE TABLE IF NOT EXISTS payout_report (
		payout_id        text PRIMARY KEY,
		client_id        text NOT NULL,
		branch_id        text NOT NULL,
		region_branch_id text NOT NULL,
		financial_year   text NOT NULL,
		request_date     date NOT NULL,
		amount           numeric NOT NULL,
		status           text NOT NULL,
		bank_account     text,
		created_at       timestamptz NOT NULL DEFAULT now(),
		updated_at       timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS holding_report (
		client_id        text NOT NULL,
		isin             text NOT NULL,
		as_on_date       date NOT NULL,
		security_name    text,
		branch_id        text NOT NULL,
		region_branch_id text NOT NULL,
		financial_year   text NOT NULL,
		quantity         numeric NOT NULL DEFAULT 0,
		avg_price        numeric NOT NULL DEFAULT 0,
		close_price      numeric NOT NULL DEFAULT 0,
		market_value     numeric NOT NULL DEFAULT 0,
		created_at       timestamptz NOT NULL DEFAULT now(),
		updated_at       timestamptz NOT NULL DEFAULT now(),
		UNIQUE (client_id, isin, as_on_date)
	)`,
	`CREATE TABLE IF NOT EXISTS collateral_report (
		client_id        text NOT NULL,
		isin             text NOT NULL,
		as_on_date       date NOT NULL,
		security_name    text,
		branch_id        text NOT NULL,
		region_branch_id text NOT NULL,
		financial_year   text NOT NULL,
		quantity         numeric NOT NULL DEFAULT 0,
		value            numeric NOT NULL DEFAULT 0,
		haircut          numeric NOT NULL DEFAULT 0,
		collateral_value numeric NOT NULL DEFAULT 0,
		created_at       timestamptz NOT NULL DEFAULT now(),
		updated_at       timestamptz NOT NULL DEFAULT now(),
		UNIQUE (client_id, isin, as_on_date)
	)`,
	`CREATE TABLE IF NOT EXISTS mtf_report (
		client_id        text NOT NULL,
		isin             text NOT NULL,
		position_date    date NOT NULL,
		security_name    text,
		branch_id        text NOT NULL,
		region_branch_id text NOT NULL,
		financial_year   text NOT NULL,
		quantity         numeric NOT NULL DEFAULT 0,
		funded_amount    numeric NOT NULL DEFAULT 0,
		interest_rate    numeric NOT NULL DEFAULT 0,
		daily_interest   numeric NOT NULL DEFAULT 0,
		created_at       timestamptz NOT NULL DEFAULT now(),
		updated_at       timestamptz NOT NULL DEFAULT now(),
		UNIQUE (client_id, isin, position_date)
	)`,
	`CREATE TABLE IF NOT EXISTS dp_holding_report (
		dp_id            text NOT NULL,
		isin             text NOT NULL,
		holding_date     date NOT NULL,
		client_id        text NOT NULL,
		security_name    text,
		branch_id        text NOT NULL,
		region_branch_id text NOT NULL,
		financial_year   text NOT NULL,
		free_qty         numeric NOT NULL DEFAULT 0,
		pledged_qty      numeric NOT NULL DEFAULT 0,
		total_qty        numeric NOT NULL DEFAULT 0,
		created_at       timestamptz NOT NULL DEFAULT now(),
		updated_at       timestamptz NOT NULL DEFAULT now(),
		UNIQUE (dp_id, isin, holding_date)
	)`,
}

// EnsureSchema creates any missing tables in one transaction.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, stmt := range schema {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// Ping checks connectivity.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Truncate removes every row from table.
func (p *Postgres) Truncate(ctx context.Context, table string) error {
	if _, err := p.pool.Exec(ctx, "TRUNCATE TABLE "+quoteIdentifier(table)); err != nil {
		return fmt.Errorf("truncate %s: %w", table, err)
	}
	return nil
}
