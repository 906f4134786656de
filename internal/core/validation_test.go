package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateHeaders(t *testing.T) {
	idx, err := ValidateHeaders([]string{"Client_ID", "ISIN", "Qty"}, []string{"CLIENT_ID", "isin"})
	require.NoError(t, err)
	require.Equal(t, 1, idx["isin"])

	_, err = ValidateHeaders([]string{"ISIN"}, []string{"CLIENT_ID", "ISIN", "TRADE_DATE"})
	var missing *MissingColumnsError
	require.ErrorAs(t, err, &missing)
	require.Equal(t, []string{"CLIENT_ID", "TRADE_DATE"}, missing.Missing)
	require.Contains(t, err.Error(), "CLIENT_ID")
}

func TestDuplicateFilter(t *testing.T) {
	f := NewDuplicateFilter()
	require.NoError(t, f.Check("C1", 2))
	require.NoError(t, f.Check("C2", 3))
	require.EqualError(t, f.Check("C1", 7), `duplicate "C1", first seen at row 2`)
}

func widgetRows(ids ...string) []Row[widget] {
	rows := make([]Row[widget], len(ids))
	for i, id := range ids {
		rows[i] = Row[widget]{Number: i + 2, Record: widget{ID: id, Owner: id}}
	}
	return rows
}

func TestRejectDuplicates(t *testing.T) {
	rows := widgetRows("a", "B", "", "A", "")

	kept, rejected := RejectDuplicates(rows, func(w widget) string { return w.ID })

	require.Len(t, kept, 4)
	require.Len(t, rejected, 1)
	require.Equal(t, 5, rejected[0].Row)
	require.Equal(t, `duplicate "A", first seen at row 2`, rejected[0].Message)
	require.Equal(t, "B", rows[1].Record.ID, "input slice must not be modified")
}

func TestRequireExisting(t *testing.T) {
	src := newFakeSource()
	src.add("owner", Ref{ID: "O1"}, Ref{ID: "O3"})
	env := NewValidationEnv(src, 2)

	rows := widgetRows("o1", "O2", "O3", "", "o1", "O4")
	kept, rejected, err := RequireExisting(context.Background(), env, rows, "owner", "owner", func(w widget) string { return w.Owner })
	require.NoError(t, err)

	require.Len(t, kept, 4)
	require.Len(t, rejected, 2)
	require.Equal(t, RowError{Row: 3, Message: `owner "O2" does not exist`}, rejected[0])
	require.Equal(t, 7, rejected[1].Row)

	// distinct ids O1 O2 O3 O4 in chunks of two
	require.Equal(t, 2, src.callCount("owner"))
}

func TestRequireExisting_SourceError(t *testing.T) {
	src := newFakeSource()
	src.err = errors.New("connection reset")
	env := NewValidationEnv(src, 0)

	_, _, err := RequireExisting(context.Background(), env, widgetRows("O1"), "owner", "owner", func(w widget) string { return w.Owner })
	require.ErrorContains(t, err, "check owner")
}
