package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// keyNamespace scopes synthetic keys generated by this package.
var keyNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("reportload/synthetic-key"))

// SyntheticKey derives a deterministic key from parts. Parts are trimmed and
// upper-cased, so equal content always yields the same key across runs.
func SyntheticKey(parts ...string) string {
	norm := make([]string, len(parts))
	for i, p := range parts {
		norm[i] = NormalizeID(p)
	}
	return uuid.NewSHA1(keyNamespace, []byte(strings.Join(norm, "\x1f"))).String()
}

// CompositeKey joins the unique key values of a record. It reports false
// when any key column is empty.
func CompositeKey(values map[string]any, keys []string) (string, bool) {
	parts := make([]string, len(keys))
	for i, k := range keys {
		s := keyString(values[k])
		if s == "" {
			return "", false
		}
		parts[i] = s
	}
	return strings.Join(parts, "|"), true
}

func keyString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return NormalizeID(x)
	case *string:
		if x == nil {
			return ""
		}
		return NormalizeID(*x)
	case time.Time:
		return DateKey(x)
	case *time.Time:
		if x == nil {
			return ""
		}
		return DateKey(*x)
	case decimal.Decimal:
		return x.String()
	default:
		return NormalizeID(fmt.Sprint(x))
	}
}
