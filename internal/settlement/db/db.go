package db

import (
	"context"

	"github.com/uptrace/bun"

	"ms-settlement/internal/models"
)

type DB struct {
	Bun bun.IDB
}

// ---------------- TICKETS ----------------

func (d *DB) GetTicketByUUID(ticketUUID string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := d.Bun.NewSelect().
		Model(&ticket).
		Where("ticket_uuid = ?", ticketUUID).
		Limit(1).
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (d *DB) CreateTicket(ticket models.Ticket) error {
	_, err := d.Bun.NewInsert().Model(&ticket).Exec(context.Background())
	return err
}

// UpdateTicket writes the mutable ticket fields. Provenance fields (event,
// original owner, original price, seat) are immutable after purchase.
func (d *DB) UpdateTicket(ticket models.Ticket) error {
	_, err := d.Bun.NewUpdate().
		Model(&ticket).
		Column("owner", "resale_count", "is_checked_in").
		Where("ticket_uuid = ?", ticket.TicketUUID).
		Exec(context.Background())
	return err
}

func (d *DB) GetTicketsByOwner(owner string) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := d.Bun.NewSelect().
		Model(&tickets).
		Where("owner = ?", owner).
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

// ---------------- LISTINGS ----------------

func (d *DB) GetListing(ticketUUID string) (*models.Listing, error) {
	var listing models.Listing
	err := d.Bun.NewSelect().
		Model(&listing).
		Where("ticket_uuid = ?", ticketUUID).
		Limit(1).
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

func (d *DB) CreateListing(listing models.Listing) error {
	_, err := d.Bun.NewInsert().Model(&listing).Exec(context.Background())
	return err
}

// RemoveListing consumes a listing: it is deleted atomically with the buy or
// cancellation that closes it.
func (d *DB) RemoveListing(ticketUUID string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.Listing)(nil)).
		Where("ticket_uuid = ?", ticketUUID).
		Exec(context.Background())
	return err
}
