package db_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"

	"ms-settlement/internal/models"
	settlementdb "ms-settlement/internal/settlement/db"
)

func setupTestDB(t *testing.T) (*settlementdb.DB, *bun.DB) {
	sqldb, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	ctx := context.Background()
	for _, model := range []interface{}{
		(*models.Ticket)(nil),
		(*models.Listing)(nil),
	} {
		_, err = bunDB.NewCreateTable().Model(model).Exec(ctx)
		require.NoError(t, err)
	}

	return &settlementdb.DB{Bun: bunDB}, bunDB
}

func TestTicketRoundTrip(t *testing.T) {
	d, bunDB := setupTestDB(t)
	defer bunDB.Close()

	ticket := models.Ticket{
		TicketUUID:    "tix-1",
		EventID:       "concert",
		TicketTypeID:  "ga",
		Owner:         "buyer",
		OriginalOwner: "buyer",
		OriginalPrice: 1_000_000,
		RowNumber:     4,
		ColumnNumber:  12,
		PurchasedAt:   1_700_000_000,
	}
	require.NoError(t, d.CreateTicket(ticket))

	got, err := d.GetTicketByUUID("tix-1")
	require.NoError(t, err)
	assert.Equal(t, ticket.Owner, got.Owner)
	assert.Equal(t, ticket.RowNumber, got.RowNumber)
}

func TestUpdateTicketOnlyTouchesMutableFields(t *testing.T) {
	d, bunDB := setupTestDB(t)
	defer bunDB.Close()

	require.NoError(t, d.CreateTicket(models.Ticket{
		TicketUUID:    "tix-1",
		EventID:       "concert",
		Owner:         "buyer",
		OriginalOwner: "buyer",
		OriginalPrice: 1_000_000,
	}))

	updated := models.Ticket{
		TicketUUID:    "tix-1",
		Owner:         "reseller",
		ResaleCount:   1,
		IsCheckedIn:   true,
		OriginalOwner: "tampered", // must be ignored by the column list
		OriginalPrice: 999,
	}
	require.NoError(t, d.UpdateTicket(updated))

	got, err := d.GetTicketByUUID("tix-1")
	require.NoError(t, err)
	assert.Equal(t, "reseller", got.Owner)
	assert.Equal(t, uint8(1), got.ResaleCount)
	assert.True(t, got.IsCheckedIn)
	assert.Equal(t, "buyer", got.OriginalOwner)
	assert.Equal(t, int64(1_000_000), got.OriginalPrice)
}

func TestGetTicketsByOwner(t *testing.T) {
	d, bunDB := setupTestDB(t)
	defer bunDB.Close()

	for _, uuid := range []string{"tix-1", "tix-2"} {
		require.NoError(t, d.CreateTicket(models.Ticket{
			TicketUUID: uuid, EventID: "concert", Owner: "buyer",
		}))
	}
	require.NoError(t, d.CreateTicket(models.Ticket{
		TicketUUID: "tix-3", EventID: "concert", Owner: "other",
	}))

	tickets, err := d.GetTicketsByOwner("buyer")
	require.NoError(t, err)
	assert.Len(t, tickets, 2)
}

func TestListingLifecycle(t *testing.T) {
	d, bunDB := setupTestDB(t)
	defer bunDB.Close()

	listing := models.Listing{
		TicketUUID:     "tix-1",
		OriginalSeller: "seller",
		Price:          5_000_000,
		ListedAt:       1_700_000_000,
		IsActive:       true,
	}
	require.NoError(t, d.CreateListing(listing))

	got, err := d.GetListing("tix-1")
	require.NoError(t, err)
	assert.Equal(t, listing.Price, got.Price)

	require.NoError(t, d.RemoveListing("tix-1"))
	_, err = d.GetListing("tix-1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}
