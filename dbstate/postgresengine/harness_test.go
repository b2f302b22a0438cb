package postgresengine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/dbstate-harness-go/dbstate"
	. "github.com/AntonStoeckl/dbstate-harness-go/dbstate/postgresengine"
	"github.com/AntonStoeckl/dbstate-harness-go/testutil/postgresengine/helper"
	. "github.com/AntonStoeckl/dbstate-harness-go/testutil/postgresengine/helper/postgreswrapper"
)

func Test_Harness_Widgets_Rename_Shows_Up_As_A_Minimal_Update(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	h, wrapper := GivenHarness(t)

	// arrange
	_, err := h.Load(ctxWithTimeout, dbstate.Table("widgets"), dbstate.Cols{"id": 1, "name": "A"})
	require.NoError(t, err, "error loading the fixture")

	// act
	GivenStatementExecuted(t, wrapper, `UPDATE widgets SET name = 'B' WHERE id = 1`)
	diff, err := h.Diff(ctxWithTimeout)

	// assert
	require.NoError(t, err)
	rendered, err := diff.JSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"widgets": {"inserts": [], "updates": [{"id": 1, "name": "B"}], "deletes": []}}`, string(rendered))
}

func Test_Harness_Reset_Is_Idempotent(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	h, _ := GivenHarness(t)
	store := h.Store()

	// act
	require.NoError(t, store.ResetAll(ctxWithTimeout))
	first, err := store.Dump(ctxWithTimeout)
	require.NoError(t, err)
	require.NoError(t, store.ResetAll(ctxWithTimeout))
	second, err := store.Dump(ctxWithTimeout)
	require.NoError(t, err)

	// assert
	assert.Equal(t, 0, first.RowCount())
	assert.Equal(t, first, second)
}

func Test_Harness_Load_Then_Dump_Contains_Exactly_The_Fixture(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	h, _ := GivenHarness(t)

	// act
	_, err := h.Load(
		ctxWithTimeout,
		dbstate.Table("widgets"),
		dbstate.Cols{"id": 1, "name": "A", "color": "red"},
		dbstate.Vals{2, "B"},
	)
	require.NoError(t, err)
	snapshot, err := h.Store().Dump(ctxWithTimeout)

	// assert
	require.NoError(t, err)
	assert.Equal(t, 2, snapshot.RowCount())
	require.Len(t, snapshot["widgets"], 2)
	for _, key := range snapshot["widgets"].SortedKeys() {
		row := snapshot["widgets"][key]
		assert.Len(t, row, 3, "every column must be dumped")
	}
	assert.Empty(t, snapshot["participants"])
	assert.Empty(t, snapshot["tips"])
}

func Test_Harness_Diff_Without_Changes_Is_Empty(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	h, _ := GivenHarness(t)
	_, err := h.Load(ctxWithTimeout, dbstate.Table("widgets"), dbstate.Cols{"id": 1, "name": "A"})
	require.NoError(t, err)

	// act
	compact, err := h.DiffCompact(ctxWithTimeout)

	// assert
	require.NoError(t, err)
	assert.Empty(t, compact)
}

func Test_Harness_Classifies_Inserts_Updates_And_Deletes(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	h, wrapper := GivenHarness(t)
	alice := helper.GivenUniqueParticipantID(t, "alice")
	bob := helper.GivenUniqueParticipantID(t, "bob")
	carl := helper.GivenUniqueParticipantID(t, "carl")

	_, err := h.Load(ctxWithTimeout, helper.TipsFixture(
		time.Now().UTC(),
		helper.Tip{Tipper: alice, Tippee: bob, Amount: "1.00", Card: helper.GoodCard},
		helper.Tip{Tipper: carl, Tippee: bob, Amount: "3.00", Card: helper.BadCard},
	)...)
	require.NoError(t, err)

	// act
	GivenStatementExecuted(t, wrapper, `UPDATE tips SET amount = 2.00 WHERE tipper = $1`, alice)
	GivenStatementExecuted(t, wrapper, `DELETE FROM tips WHERE tipper = $1`, carl)
	GivenStatementExecuted(t, wrapper, `INSERT INTO tips (ctime, tipper, tippee, amount) VALUES (now(), $1, $2, 0.25)`, bob, alice)
	compact, err := h.DiffCompact(ctxWithTimeout)

	// assert
	require.NoError(t, err)
	assert.Equal(t, dbstate.CompactDiff{"tips": {1, 1, 1}}, compact)
}

func Test_TipsFixture_Sets_Last_Bill_Result_From_Card_Status(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	h, _ := GivenHarness(t)
	alice := helper.GivenUniqueParticipantID(t, "alice")
	bob := helper.GivenUniqueParticipantID(t, "bob")
	carl := helper.GivenUniqueParticipantID(t, "carl")

	// act
	_, err := h.Load(ctxWithTimeout, helper.TipsFixture(
		time.Now().UTC(),
		helper.Tip{Tipper: alice, Tippee: bob, Amount: "1.00", Card: helper.GoodCard},
		helper.Tip{Tipper: carl, Tippee: alice, Amount: "0.50", Card: helper.BadCard},
	)...)
	require.NoError(t, err)

	// assert
	baseline, ok := h.Baseline()
	require.True(t, ok)
	participants := baseline["participants"]
	require.Len(t, participants, 3)
	assert.Equal(t, "", participants[alice]["last_bill_result"])
	assert.Nil(t, participants[bob]["last_bill_result"])
	assert.Equal(t, helper.FailedBillResult, participants[carl]["last_bill_result"])
	assert.Len(t, baseline["tips"], 2)
}

func Test_Harness_Load_Rejects_Injection_And_Writes_Nothing(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	h, _ := GivenHarness(t)

	// act
	_, err := h.Load(
		ctxWithTimeout,
		dbstate.Table("widgets"),
		dbstate.Cols{"id": 1, "name": "A"},
		dbstate.Cols{`name") VALUES ('x'); DROP TABLE widgets; --`: "x"},
	)
	snapshot, dumpErr := h.Store().Dump(ctxWithTimeout)

	// assert
	assert.ErrorIs(t, err, dbstate.ErrInvalidIdentifier)
	require.NoError(t, dumpErr)
	assert.Equal(t, 0, snapshot.RowCount())
}

func Test_Harness_Load_Rejects_Unknown_Tables(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	h, _ := GivenHarness(t)

	// act
	_, err := h.Load(ctxWithTimeout, dbstate.Table("gadgets"), dbstate.Cols{"id": 1})

	// assert
	assert.ErrorIs(t, err, dbstate.ErrUnknownTable)
}

func Test_Reset_Without_Confirmation_Leaves_Data_Untouched(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	h, wrapper := GivenHarness(t)
	_, err := h.Load(ctxWithTimeout, dbstate.Table("widgets"), dbstate.Cols{"id": 1, "name": "A"})
	require.NoError(t, err)

	unconfirmed := CreateWrapperWithTestConfig(t, WithEnvLookup(func(string) (string, bool) { return "", false }))
	defer unconfirmed.Close()

	// act
	err = unconfirmed.GetStore().ResetAll(ctxWithTimeout)
	snapshot, dumpErr := wrapper.GetStore().Dump(ctxWithTimeout)

	// assert
	assert.ErrorIs(t, err, dbstate.ErrSafetyViolation)
	require.NoError(t, dumpErr)
	assert.Len(t, snapshot["widgets"], 1)
}

func Test_Harness_Close_Wipes_The_Store(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	h, wrapper := GivenHarness(t)
	_, err := h.Load(ctxWithTimeout, dbstate.Table("widgets"), dbstate.Cols{"id": 1, "name": "A"})
	require.NoError(t, err)

	// act
	require.NoError(t, h.Close(ctxWithTimeout))
	snapshot, err := wrapper.GetStore().Dump(ctxWithTimeout)

	// assert
	require.NoError(t, err)
	assert.Equal(t, 0, snapshot.RowCount())
	assert.Equal(t, StateClosed, h.State())
}

func Test_Harness_LoadYAML(t *testing.T) {
	// setup
	ctxWithTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	h, _ := GivenHarness(t)

	// act
	_, err := h.LoadYAML(ctxWithTimeout, []byte(`
- widgets
- {id: 1, name: A, color: red}
- [2, B]
`))

	// assert
	require.NoError(t, err)
	baseline, _ := h.Baseline()
	assert.Len(t, baseline["widgets"], 2)
}
