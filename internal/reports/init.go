// Package reports registers every report and master type with the core
// registry. Import it for side effects to make the types available.
//
// Masters carry reference data (branches, employees, clients, dealers,
// securities, states). Reports are periodic brokerage extracts that resolve
// their client's branch and region from the client master at load time.
package reports

const (
	GroupMaster = "Master"
	GroupReport = "Report"
)

// Reference domains understood by the store.
const (
	DomainBranch   = "branch"
	DomainEmployee = "employee"
	DomainClient   = "client"
	DomainISIN     = "isin_master"
	DomainState    = "state"
)

// UnknownBranch is stored when a report row's client has no branch mapping.
const UnknownBranch = "UNKNOWN"
