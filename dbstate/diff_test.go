package dbstate_test

import (
	"math/big"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/AntonStoeckl/dbstate-harness-go/dbstate"
)

var widgetKeys = PrimaryKeys{"widgets": "id", "gadgets": "sku"}

func givenWidgetsSnapshot() Snapshot {
	return Snapshot{
		"widgets": TableRows{
			int64(1): Row{"id": int64(1), "name": "A", "color": "red"},
			int64(2): Row{"id": int64(2), "name": "B", "color": "blue"},
		},
		"gadgets": TableRows{},
	}
}

func Test_Diff_Of_A_Snapshot_With_Itself_Is_Empty(t *testing.T) {
	// arrange
	snapshot := givenWidgetsSnapshot()

	// act
	diff, err := Diff(snapshot, snapshot.Clone(), widgetKeys)

	// assert
	require.NoError(t, err)
	assert.True(t, diff.IsEmpty())
	assert.Empty(t, diff.Compact())
}

func Test_Diff_Of_Two_Reads_With_Numeric_Keys_Is_Empty(t *testing.T) {
	// arrange
	givenRead := func() Snapshot {
		id := pgtype.Numeric{Int: big.NewInt(1), Valid: true}
		return Snapshot{"widgets": TableRows{KeyOf(id): Row{"id": id, "name": "A"}}}
	}

	// act
	diff, err := Diff(givenRead(), givenRead(), PrimaryKeys{"widgets": "id"})

	// assert
	require.NoError(t, err)
	assert.True(t, diff.IsEmpty())
	assert.Empty(t, diff.Compact())
}

func Test_Diff_Should_Classify_A_New_Row_As_Insert(t *testing.T) {
	// arrange
	before := givenWidgetsSnapshot()
	after := before.Clone()
	after["widgets"][int64(3)] = Row{"id": int64(3), "name": "C", "color": "grey"}

	// act
	diff, err := Diff(before, after, widgetKeys)

	// assert
	require.NoError(t, err)
	assert.Equal(t, DiffResult{
		"widgets": {
			Inserts: []Row{{"id": int64(3), "name": "C", "color": "grey"}},
			Updates: []Row{},
			Deletes: []Row{},
		},
	}, diff)
	assert.Equal(t, CompactDiff{"widgets": {1, 0, 0}}, diff.Compact())
}

func Test_Diff_Should_Report_Only_Changed_Columns_Plus_Primary_Key(t *testing.T) {
	// arrange
	before := givenWidgetsSnapshot()
	after := before.Clone()
	after["widgets"][int64(1)]["name"] = "B"

	// act
	diff, err := Diff(before, after, widgetKeys)

	// assert
	require.NoError(t, err)
	assert.Equal(t, DiffResult{
		"widgets": {
			Inserts: []Row{},
			Updates: []Row{{"id": int64(1), "name": "B"}},
			Deletes: []Row{},
		},
	}, diff)
	assert.Equal(t, []string{"widgets"}, diff.Tables(), "unchanged tables must not appear")
}

func Test_Diff_Should_Classify_A_Missing_Row_As_Delete(t *testing.T) {
	// arrange
	before := givenWidgetsSnapshot()
	after := before.Clone()
	delete(after["widgets"], int64(2))

	// act
	diff, err := Diff(before, after, widgetKeys)

	// assert
	require.NoError(t, err)
	assert.Equal(t, []Row{{"id": int64(2), "name": "B", "color": "blue"}}, diff["widgets"].Deletes)
	assert.Equal(t, CompactDiff{"widgets": {0, 0, 1}}, diff.Compact())
}

func Test_Diff_Should_Order_Rows_By_Primary_Key(t *testing.T) {
	// arrange
	before := Snapshot{"widgets": TableRows{}}
	after := Snapshot{"widgets": TableRows{}}
	for _, id := range []int64{10, 2, 7, 1} {
		after["widgets"][id] = Row{"id": id}
	}

	// act
	diff, err := Diff(before, after, widgetKeys)

	// assert
	require.NoError(t, err)
	ids := make([]any, 0)
	for _, row := range diff["widgets"].Inserts {
		ids = append(ids, row["id"])
	}
	assert.Equal(t, []any{int64(1), int64(2), int64(7), int64(10)}, ids)
}

func Test_Diff_Should_Fail_On_Schema_Drift(t *testing.T) {
	// arrange
	before := givenWidgetsSnapshot()
	after := before.Clone()
	after["sprockets"] = TableRows{}

	// act
	_, err := Diff(before, after, widgetKeys)

	// assert
	assert.ErrorIs(t, err, ErrSchemaDrift)
}

func Test_Diff_Should_Fail_When_The_Primary_Key_Of_An_Updated_Table_Is_Unknown(t *testing.T) {
	// arrange
	before := givenWidgetsSnapshot()
	after := before.Clone()
	after["widgets"][int64(1)]["color"] = "green"

	// act
	_, err := Diff(before, after, PrimaryKeys{})

	// assert
	assert.ErrorIs(t, err, ErrSchema)
}

func Test_Diff_Should_Compare_Values_Exactly(t *testing.T) {
	// arrange
	instant := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	before := Snapshot{"widgets": TableRows{
		int64(1): Row{"id": int64(1), "price": 1.0, "blob": []byte{1, 2}, "made": instant},
	}}
	after := Snapshot{"widgets": TableRows{
		int64(1): Row{"id": int64(1), "price": 1.0000001, "blob": []byte{1, 2}, "made": instant.In(time.FixedZone("CEST", 7200))},
	}}

	// act
	diff, err := Diff(before, after, widgetKeys)

	// assert
	require.NoError(t, err)
	assert.Equal(t, []Row{{"id": int64(1), "price": 1.0000001}}, diff["widgets"].Updates)
}

func Test_Diff_Should_Not_Mutate_Its_Inputs(t *testing.T) {
	// arrange
	before := givenWidgetsSnapshot()
	after := before.Clone()
	after["widgets"][int64(1)]["name"] = "Z"
	beforeCopy := before.Clone()

	// act
	_, err := Diff(before, after, widgetKeys)

	// assert
	require.NoError(t, err)
	assert.Equal(t, beforeCopy, before)
	assert.Equal(t, "Z", after["widgets"][int64(1)]["name"])
	assert.Len(t, after["widgets"][int64(1)], 3)
}

func Test_ValuesEqual(t *testing.T) {
	assert.True(t, ValuesEqual(nil, nil))
	assert.True(t, ValuesEqual("a", "a"))
	assert.True(t, ValuesEqual([]byte("x"), []byte("x")))
	assert.False(t, ValuesEqual([]byte("x"), "x"))
	assert.False(t, ValuesEqual(int64(1), int32(1)))
	assert.False(t, ValuesEqual(nil, ""))
}
