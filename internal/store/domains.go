// Package store implements the reference and persistence collaborators the
// ingestion engine calls: a PostgreSQL store built on pgx and an in-memory
// store used by tests and dry runs.
package store

import "fmt"

// domainQuery resolves one reference domain. The query takes the ids as a
// text[] in $1 and returns the id followed by attrs, all cast to text.
type domainQuery struct {
	sql   string
	attrs []string
}

var domainQueries = map[string]domainQuery{
	"branch": {
		sql: `SELECT branch_id::text, branch_name::text, region_branch_id::text
			FROM branch_master WHERE branch_id = ANY($1)`,
		attrs: []string{"branch_name", "region_branch_id"},
	},
	"employee": {
		sql: `SELECT employee_id::text, name::text, branch_id::text
			FROM employee_master WHERE employee_id = ANY($1)`,
		attrs: []string{"name", "branch_id"},
	},
	"client": {
		sql: `SELECT c.client_id::text, c.client_name::text, c.branch_id::text,
				COALESCE(b.region_branch_id, c.branch_id)::text
			FROM client_master c
			LEFT JOIN branch_master b ON b.branch_id = c.branch_id
			WHERE c.client_id = ANY($1)`,
		attrs: []string{"client_name", "branch_id", "region_branch_id"},
	},
	"isin_master": {
		sql: `SELECT isin::text, security_name::text, symbol::text
			FROM isin_master WHERE isin = ANY($1)`,
		attrs: []string{"security_name", "symbol"},
	},
	// States are looked up by upper-cased name.
	"state": {
		sql: `SELECT upper(state_name)::text, state_id::text
			FROM state_master WHERE upper(state_name) = ANY($1)`,
		attrs: []string{"state_id"},
	},
}

// UnknownDomainError is returned for a reference domain with no query.
type UnknownDomainError struct {
	Domain string
}

func (e *UnknownDomainError) Error() string {
	return fmt.Sprintf("unknown reference domain %q", e.Domain)
}
