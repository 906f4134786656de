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
	registerBranchMaster()
	registerEmployeeMaster()
	registerClientMaster()
	registerDealerMapping()
	registerISINMaster()
	registerStateMaster()
}

// Branch is one row of the branch master.
type Branch struct {
	BranchID       string
	Name           string
	RegionBranchID string
	City           string
	State          string
	Email          string
	Active         bool
}

func registerBranchMaster() {
	core.Register(core.Define(core.Spec[Branch]{
		Info: core.TypeInfo{Key: "branch_master", Group: GroupMaster, Label: "Branch Master", EntityName: "Branch"},
		Columns: []core.Column{
			{Source: "BRANCH_CODE", Field: "branch_id", Required: true},
			{Source: "BRANCH_NAME", Field: "branch_name", Required: true},
			{Source: "REGION_CODE", Field: "region_branch_id"},
			{Source: "CITY", Field: "city"},
			{Source: "STATE", Field: "state"},
			{Source: "EMAIL", Field: "email"},
			{Source: "STATUS", Field: "status"},
		},
		UniqueKeys: []string{"branch_id"},
		Transform: func(_ context.Context, row core.MappedRow, _ *core.Cache) (Branch, error) {
			b := Branch{
				BranchID:       core.NormalizeID(row.Get("branch_id")),
				Name:           row.Get("branch_name"),
				RegionBranchID: core.NormalizeID(row.Get("region_branch_id")),
				City:           row.Get("city"),
				State:          NormalizeState(row.Get("state")),
				Email:          strings.ToLower(row.Get("email")),
				Active:         true,
			}
			// A branch without a region is its own region head.
			if b.RegionBranchID == "" {
				b.RegionBranchID = b.BranchID
			}
			if row.Has("status") {
				active, ok := core.ParseBool(row.Get("status"))
				if !ok {
					return Branch{}, fmt.Errorf("invalid status %q", row.Get("status"))
				}
				b.Active = active
			}
			return b, nil
		},
		Validate: func(_ context.Context, _ *core.ValidationEnv, rows []core.Row[Branch]) ([]core.Row[Branch], []core.RowError, error) {
			kept, rejected := core.RejectDuplicates(rows, func(b Branch) string { return b.BranchID })
			return kept, rejected, nil
		},
		Record: func(b Branch) core.Record {
			return core.Record{Values: map[string]any{
				"branch_id":        b.BranchID,
				"branch_name":      b.Name,
				"region_branch_id": b.RegionBranchID,
				"city":             core.NullIfEmpty(b.City),
				"state":            core.NullIfEmpty(b.State),
				"email":            core.NullIfEmpty(b.Email),
				"is_active":        b.Active,
			}}
		},
	}))
}

// Employee is one row of the employee master.
type Employee struct {
	EmployeeID  string
	Name        string
	BranchID    string
	Designation string
	Email       string
	Mobile      string
	JoinedOn    *time.Time
}

func registerEmployeeMaster() {
	core.Register(core.Define(core.Spec[Employee]{
		Info: core.TypeInfo{Key: "employee_master", Group: GroupMaster, Label: "Employee Master", EntityName: "Employee"},
		Columns: []core.Column{
			{Source: "EMP_CODE", Field: "employee_id", Required: true},
			{Source: "EMP_NAME", Field: "name", Required: true},
			{Source: "BRANCH_CODE", Field: "branch_id", Required: true},
			{Source: "DESIGNATION", Field: "designation"},
			{Source: "EMAIL", Field: "email"},
			{Source: "MOBILE", Field: "mobile"},
			{Source: "DOJ", Field: "date_of_joining"},
		},
		UniqueKeys: []string{"employee_id"},
		Transform: func(_ context.Context, row core.MappedRow, _ *core.Cache) (Employee, error) {
			mobile, err := normalizeMobile(row.Get("mobile"))
			if err != nil {
				return Employee{}, err
			}
			return Employee{
				EmployeeID:  core.NormalizeID(row.Get("employee_id")),
				Name:        row.Get("name"),
				BranchID:    core.NormalizeID(row.Get("branch_id")),
				Designation: row.Get("designation"),
				Email:       strings.ToLower(row.Get("email")),
				Mobile:      mobile,
				JoinedOn:    core.DateOrNil(row.Get("date_of_joining")),
			}, nil
		},
		Validate: func(ctx context.Context, env *core.ValidationEnv, rows []core.Row[Employee]) ([]core.Row[Employee], []core.RowError, error) {
			kept, dups := core.RejectDuplicates(rows, func(e Employee) string { return e.EmployeeID })
			kept, missing, err := core.RequireExisting(ctx, env, kept, DomainBranch, "branch", func(e Employee) string { return e.BranchID })
			if err != nil {
				return nil, nil, err
			}
			return kept, append(dups, missing...), nil
		},
		Record: func(e Employee) core.Record {
			return core.Record{Values: map[string]any{
				"employee_id":     e.EmployeeID,
				"name":            e.Name,
				"branch_id":       e.BranchID,
				"designation":     core.NullIfEmpty(e.Designation),
				"email":           core.NullIfEmpty(e.Email),
				"mobile":          core.NullIfEmpty(e.Mobile),
				"date_of_joining": e.JoinedOn,
			}}
		},
	}))
}

// Client is one row of the client master.
type Client struct {
	ClientID  string
	Name      string
	BranchID  string
	PAN       string
	Email     string
	Mobile    string
	StateID   string
	StateName string
	DealerID  string
	OpenedOn  *time.Time
	Active    bool
}

func registerClientMaster() {
	core.Register(core.Define(core.Spec[Client]{
		Info: core.TypeInfo{Key: "client_master", Group: GroupMaster, Label: "Client Master", EntityName: "Client"},
		Columns: []core.Column{
			{Source: "CLIENT_ID", Field: "client_id", Required: true},
			{Source: "CLIENT_NAME", Field: "client_name", Required: true},
			{Source: "BRANCH_CODE", Field: "branch_id", Required: true},
			{Source: "PAN", Field: "pan"},
			{Source: "EMAIL", Field: "email"},
			{Source: "MOBILE", Field: "mobile"},
			{Source: "STATE", Field: "state"},
			{Source: "DEALER_CODE", Field: "dealer_id"},
			{Source: "ACCOUNT_OPEN_DATE", Field: "account_opened_on"},
			{Source: "STATUS", Field: "status"},
		},
		UniqueKeys: []string{"client_id"},
		Transform:  transformClient,
		Validate: func(ctx context.Context, env *core.ValidationEnv, rows []core.Row[Client]) ([]core.Row[Client], []core.RowError, error) {
			kept, dups := core.RejectDuplicates(rows, func(c Client) string { return c.ClientID })
			kept, missing, err := core.RequireExisting(ctx, env, kept, DomainBranch, "branch", func(c Client) string { return c.BranchID })
			if err != nil {
				return nil, nil, err
			}
			return kept, append(dups, missing...), nil
		},
		Record: func(c Client) core.Record {
			return core.Record{Values: map[string]any{
				"client_id":         c.ClientID,
				"client_name":       c.Name,
				"branch_id":         c.BranchID,
				"pan":               core.NullIfEmpty(c.PAN),
				"email":             core.NullIfEmpty(c.Email),
				"mobile":            core.NullIfEmpty(c.Mobile),
				"state_id":          core.NullIfEmpty(c.StateID),
				"state_name":        core.NullIfEmpty(c.StateName),
				"dealer_id":         core.NullIfEmpty(c.DealerID),
				"account_opened_on": c.OpenedOn,
				"is_active":         c.Active,
			}}
		},
	}))
}

// transformClient resolves the client's state per row. States are few and
// the lookup is cheap, so it is not declared batchable.
func transformClient(ctx context.Context, row core.MappedRow, cache *core.Cache) (Client, error) {
	c := Client{
		ClientID:  core.NormalizeID(row.Get("client_id")),
		Name:      row.Get("client_name"),
		BranchID:  core.NormalizeID(row.Get("branch_id")),
		PAN:       core.NormalizeID(row.Get("pan")),
		Email:     strings.ToLower(row.Get("email")),
		StateName: NormalizeState(row.Get("state")),
		DealerID:  core.NormalizeID(row.Get("dealer_id")),
		OpenedOn:  core.DateOrNil(row.Get("account_opened_on")),
		Active:    true,
	}

	if c.PAN != "" && !validPAN(c.PAN) {
		return Client{}, fmt.Errorf("invalid PAN %q", c.PAN)
	}

	mobile, err := normalizeMobile(row.Get("mobile"))
	if err != nil {
		return Client{}, err
	}
	c.Mobile = mobile

	if row.Has("status") {
		active, ok := core.ParseBool(row.Get("status"))
		if !ok {
			return Client{}, fmt.Errorf("invalid status %q", row.Get("status"))
		}
		c.Active = active
	}

	if c.StateName != "" {
		ref, ok, err := cache.Resolve(ctx, DomainState, c.StateName)
		if err != nil {
			return Client{}, err
		}
		if !ok {
			return Client{}, fmt.Errorf("state %q does not exist", c.StateName)
		}
		c.StateID = ref.Attr("state_id")
	}
	return c, nil
}

// DealerMapping assigns a client to a dealer employee.
type DealerMapping struct {
	DealerID    string
	ClientID    string
	EmployeeID  string
	EffectiveOn time.Time
}

func registerDealerMapping() {
	core.Register(core.Define(core.Spec[DealerMapping]{
		Info: core.TypeInfo{Key: "dealer_mapping", Group: GroupMaster, Label: "Dealer Mapping", EntityName: "DealerMapping"},
		Columns: []core.Column{
			{Source: "DEALER_CODE", Field: "dealer_id", Required: true},
			{Source: "CLIENT_ID", Field: "client_id", Required: true},
			{Source: "EMPLOYEE_CODE", Field: "employee_id", Required: true},
			{Source: "EFFECTIVE_DATE", Field: "effective_from"},
		},
		UniqueKeys: []string{"dealer_id", "client_id"},
		Transform: func(_ context.Context, row core.MappedRow, _ *core.Cache) (DealerMapping, error) {
			return DealerMapping{
				DealerID:    core.NormalizeID(row.Get("dealer_id")),
				ClientID:    core.NormalizeID(row.Get("client_id")),
				EmployeeID:  core.NormalizeID(row.Get("employee_id")),
				EffectiveOn: core.ParseRequiredDate(row.Get("effective_from")),
			}, nil
		},
		Validate: func(ctx context.Context, env *core.ValidationEnv, rows []core.Row[DealerMapping]) ([]core.Row[DealerMapping], []core.RowError, error) {
			kept, rejected := core.RejectDuplicates(rows, func(d DealerMapping) string { return d.DealerID + "|" + d.ClientID })

			kept, missing, err := core.RequireExisting(ctx, env, kept, DomainEmployee, "employee", func(d DealerMapping) string { return d.EmployeeID })
			if err != nil {
				return nil, nil, err
			}
			rejected = append(rejected, missing...)

			kept, missing, err = core.RequireExisting(ctx, env, kept, DomainClient, "client", func(d DealerMapping) string { return d.ClientID })
			if err != nil {
				return nil, nil, err
			}
			return kept, append(rejected, missing...), nil
		},
		Record: func(d DealerMapping) core.Record {
			return core.Record{Values: map[string]any{
				"dealer_id":      d.DealerID,
				"client_id":      d.ClientID,
				"employee_id":    d.EmployeeID,
				"effective_from": d.EffectiveOn,
			}}
		},
	}))
}

// Security is one row of the ISIN master.
type Security struct {
	ISIN      string
	Name      string
	Symbol    string
	Series    string
	FaceValue decimal.Decimal
	Sector    string
}

func registerISINMaster() {
	core.Register(core.Define(core.Spec[Security]{
		Info: core.TypeInfo{Key: "isin_master", Group: GroupMaster, Label: "ISIN Master", EntityName: "Security"},
		Columns: []core.Column{
			{Source: "ISIN", Field: "isin", Required: true},
			{Source: "SECURITY_NAME", Field: "security_name", Required: true},
			{Source: "SYMBOL", Field: "symbol"},
			{Source: "SERIES", Field: "series"},
			{Source: "FACE_VALUE", Field: "face_value"},
			{Source: "SECTOR", Field: "sector"},
		},
		UniqueKeys: []string{"isin"},
		Transform: func(_ context.Context, row core.MappedRow, _ *core.Cache) (Security, error) {
			isin := core.NormalizeID(row.Get("isin"))
			if !validISIN(isin) {
				return Security{}, fmt.Errorf("invalid ISIN %q", isin)
			}
			return Security{
				ISIN:      isin,
				Name:      row.Get("security_name"),
				Symbol:    core.NormalizeID(row.Get("symbol")),
				Series:    core.NormalizeID(row.Get("series")),
				FaceValue: core.ParseAmount(row.Get("face_value")),
				Sector:    row.Get("sector"),
			}, nil
		},
		Validate: func(_ context.Context, _ *core.ValidationEnv, rows []core.Row[Security]) ([]core.Row[Security], []core.RowError, error) {
			kept, rejected := core.RejectDuplicates(rows, func(s Security) string { return s.ISIN })
			return kept, rejected, nil
		},
		Record: func(s Security) core.Record {
			return core.Record{Values: map[string]any{
				"isin":          s.ISIN,
				"security_name": s.Name,
				"symbol":        core.NullIfEmpty(s.Symbol),
				"series":        core.NullIfEmpty(s.Series),
				"face_value":    s.FaceValue,
				"sector":        core.NullIfEmpty(s.Sector),
			}}
		},
	}))
}

// State is one row of the state master.
type State struct {
	StateID string
	Name    string
	Country string
}

func registerStateMaster() {
	core.Register(core.Define(core.Spec[State]{
		Info: core.TypeInfo{Key: "state_master", Group: GroupMaster, Label: "State Master", EntityName: "State"},
		Columns: []core.Column{
			{Source: "STATE_CODE", Field: "state_id", Required: true},
			{Source: "STATE_NAME", Field: "state_name", Required: true},
			{Source: "COUNTRY", Field: "country"},
		},
		UniqueKeys: []string{"state_id"},
		Transform: func(_ context.Context, row core.MappedRow, _ *core.Cache) (State, error) {
			s := State{
				StateID: core.NormalizeID(row.Get("state_id")),
				Name:    NormalizeState(row.Get("state_name")),
				Country: row.Get("country"),
			}
			if s.Country == "" {
				s.Country = "India"
			}
			return s, nil
		},
		Validate: func(_ context.Context, _ *core.ValidationEnv, rows []core.Row[State]) ([]core.Row[State], []core.RowError, error) {
			kept, byID := core.RejectDuplicates(rows, func(s State) string { return s.StateID })
			kept, byName := core.RejectDuplicates(kept, func(s State) string { return s.Name })
			return kept, append(byID, byName...), nil
		},
		Record: func(s State) core.Record {
			return core.Record{Values: map[string]any{
				"state_id":   s.StateID,
				"state_name": s.Name,
				"country":    s.Country,
			}}
		},
	}))
}

// validPAN checks the AAAAA9999A shape of an Indian PAN.
func validPAN(s string) bool {
	if len(s) != 10 {
		return false
	}
	for i, r := range s {
		letter := r >= 'A' && r <= 'Z'
		digit := r >= '0' && r <= '9'
		if (i < 5 || i == 9) && !letter {
			return false
		}
		if i >= 5 && i < 9 && !digit {
			return false
		}
	}
	return true
}

// normalizeMobile strips separators and a +91/0 prefix, leaving 10 digits.
func normalizeMobile(s string) (string, error) {
	s = core.CleanCell(s)
	if s == "" {
		return "", nil
	}
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	switch {
	case len(digits) == 12 && strings.HasPrefix(digits, "91"):
		digits = digits[2:]
	case len(digits) == 11 && strings.HasPrefix(digits, "0"):
		digits = digits[1:]
	}
	if len(digits) != 10 {
		return "", fmt.Errorf("invalid mobile %q", s)
	}
	return digits, nil
}
