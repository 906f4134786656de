package reports

import (
	"strings"

	"github.com/JonMunkholm/reportload/internal/core"
)

// clientBatch resolves client_id against the client master once per client.
var clientBatch = core.BatchField{Field: "client_id", Domain: DomainClient}

// isinBatch resolves isin against the security master once per ISIN.
var isinBatch = core.BatchField{Field: "isin", Domain: DomainISIN}

// clientScope is the client context stamped on every report row.
type clientScope struct {
	ClientID       string
	BranchID       string
	RegionBranchID string
	FinancialYear  string
}

// scopeFor resolves the row's client through the preloaded cache, falling
// back to UnknownBranch when the client is not in the master.
func scopeFor(row core.MappedRow, cache *core.Cache) clientScope {
	s := clientScope{
		ClientID:       core.NormalizeID(row.Get("client_id")),
		BranchID:       UnknownBranch,
		RegionBranchID: UnknownBranch,
		FinancialYear:  cache.Shared(core.SharedFinancialYear),
	}
	if ref, ok := cache.Lookup(DomainClient, s.ClientID); ok {
		if b := ref.Attr("branch_id"); b != "" {
			s.BranchID = b
		}
		if r := ref.Attr("region_branch_id"); r != "" {
			s.RegionBranchID = r
		}
	}
	return s
}

func (s clientScope) into(v map[string]any) map[string]any {
	v["client_id"] = s.ClientID
	v["branch_id"] = s.BranchID
	v["region_branch_id"] = s.RegionBranchID
	v["financial_year"] = s.FinancialYear
	return v
}

// securityName returns the ISIN's security name from the cache, or "".
func securityName(cache *core.Cache, isin string) string {
	ref, ok := cache.Lookup(DomainISIN, isin)
	if !ok {
		return ""
	}
	return ref.Attr("security_name")
}

// validISIN checks the 12 character shape of an ISIN: two letters, nine
// alphanumerics and a check digit.
func validISIN(s string) bool {
	if len(s) != 12 {
		return false
	}
	for i, r := range s {
		switch {
		case i < 2 && (r < 'A' || r > 'Z'):
			return false
		case i == 11 && (r < '0' || r > '9'):
			return false
		case (r < 'A' || r > 'Z') && (r < '0' || r > '9'):
			return false
		}
	}
	return true
}

// IndianStates maps two letter state and union territory codes to names.
var IndianStates = map[string]string{
	"AN": "Andaman and Nicobar Islands",
	"AP": "Andhra Pradesh",
	"AR": "Arunachal Pradesh",
	"AS": "Assam",
	"BR": "Bihar",
	"CH": "Chandigarh",
	"CG": "Chhattisgarh",
	"DN": "Dadra and Nagar Haveli and Daman and Diu",
	"DL": "Delhi",
	"GA": "Goa",
	"GJ": "Gujarat",
	"HR": "Haryana",
	"HP": "Himachal Pradesh",
	"JK": "Jammu and Kashmir",
	"JH": "Jharkhand",
	"KA": "Karnataka",
	"KL": "Kerala",
	"LA": "Ladakh",
	"LD": "Lakshadweep",
	"MP": "Madhya Pradesh",
	"MH": "Maharashtra",
	"MN": "Manipur",
	"ML": "Meghalaya",
	"MZ": "Mizoram",
	"NL": "Nagaland",
	"OD": "Odisha",
	"PY": "Puducherry",
	"PB": "Punjab",
	"RJ": "Rajasthan",
	"SK": "Sikkim",
	"TN": "Tamil Nadu",
	"TS": "Telangana",
	"TR": "Tripura",
	"UP": "Uttar Pradesh",
	"UK": "Uttarakhand",
	"WB": "West Bengal",
}

// NormalizeState expands a state code to its full name. Unknown input is
// returned trimmed.
func NormalizeState(s string) string {
	s = strings.TrimSpace(s)
	if name, ok := IndianStates[strings.ToUpper(s)]; ok {
		return name
	}
	for _, name := range IndianStates {
		if strings.EqualFold(name, s) {
			return name
		}
	}
	return s
}
