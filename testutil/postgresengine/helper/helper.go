package helper

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/AntonStoeckl/dbstate-harness-go/dbstate"
)

// Card states of a tipper in a Tip.
const (
	NoCard CardStatus = iota
	GoodCard
	BadCard
)

// CardStatus is the billing state of a participant's credit card.
type CardStatus int

// FailedBillResult is what a participant with a declined card has in last_bill_result.
const FailedBillResult = "Failure!"

// Tip is one tipper to tippee relation for TipsFixture.
type Tip struct {
	Tipper string
	Tippee string
	Amount string
	Card   CardStatus
}

// GivenUniqueID returns a new time-ordered UUIDv7; it fails the test when none can be generated.
func GivenUniqueID(t testing.TB) uuid.UUID {
	id, err := uuid.NewV7()
	assert.NoError(t, err, "error in arranging test data")

	return id
}

// GivenUniqueParticipantID returns a participant id that no other test uses.
func GivenUniqueParticipantID(t testing.TB, prefix string) string {
	return prefix + "_" + GivenUniqueID(t).String()[24:]
}

// GivenResetConfirmed sets the confirmation token for the duration of the test.
func GivenResetConfirmed(t testing.TB) {
	t.Setenv(dbstate.ConfirmationEnvVar, dbstate.ConfirmationPhrase)
}

// TipsFixture builds participants and tips for the given tips.
//
// Every tipper and tippee becomes a participant, in order of first appearance.
// A tipper's last_bill_result is "" for a good card and FailedBillResult for a bad one;
// participants without card information do not get the column at all.
func TipsFixture(now time.Time, tips ...Tip) dbstate.Fixture {
	cards := make(map[string]CardStatus)
	order := make([]string, 0)

	tipRecords := make([]dbstate.FixtureItem, 0, len(tips))

	for _, tip := range tips {
		if _, seen := cards[tip.Tipper]; !seen {
			order = append(order, tip.Tipper)
		}
		cards[tip.Tipper] = tip.Card

		if _, seen := cards[tip.Tippee]; !seen {
			order = append(order, tip.Tippee)
			cards[tip.Tippee] = NoCard
		}

		tipRecords = append(tipRecords, dbstate.Cols{
			"ctime":  now,
			"mtime":  now,
			"tipper": tip.Tipper,
			"tippee": tip.Tippee,
			"amount": tip.Amount,
		})
	}

	fixture := dbstate.NewFixture().Table("participants")

	for _, participantID := range order {
		record := map[string]any{"id": participantID}

		switch cards[participantID] {
		case GoodCard:
			record["last_bill_result"] = ""
		case BadCard:
			record["last_bill_result"] = FailedBillResult
		case NoCard:
		}

		fixture = fixture.Record(record)
	}

	fixture = fixture.Table("tips")

	return append(fixture, tipRecords...)
}
