package db

import (
	"context"

	"github.com/uptrace/bun"

	"ms-settlement/internal/models"
)

type DB struct {
	Bun bun.IDB
}

func (d *DB) GetEventByID(id string) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("id = ?", id).
		Limit(1).
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (d *DB) CreateEvent(event models.Event) error {
	_, err := d.Bun.NewInsert().Model(&event).Exec(context.Background())
	return err
}

func (d *DB) UpdateEventStatus(id string, status uint8) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Event)(nil)).
		Set("status = ?", status).
		Where("id = ?", id).
		Exec(context.Background())
	return err
}

func (d *DB) GetTicketType(eventID, typeID string) (*models.TicketType, error) {
	var ticketType models.TicketType
	err := d.Bun.NewSelect().
		Model(&ticketType).
		Where("event_id = ? AND type_id = ?", eventID, typeID).
		Limit(1).
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return &ticketType, nil
}

func (d *DB) CreateTicketType(ticketType models.TicketType) error {
	_, err := d.Bun.NewInsert().Model(&ticketType).Exec(context.Background())
	return err
}

func (d *DB) UpdateTicketType(ticketType models.TicketType) error {
	_, err := d.Bun.NewUpdate().
		Model(&ticketType).
		Column("tier_name", "price", "total_supply", "minted", "color").
		Where("event_id = ? AND type_id = ?", ticketType.EventID, ticketType.TypeID).
		Exec(context.Background())
	return err
}

func (d *DB) GetCheckInAuthority(eventID, operator string) (*models.CheckInAuthority, error) {
	var authority models.CheckInAuthority
	err := d.Bun.NewSelect().
		Model(&authority).
		Where("event_id = ? AND operator = ?", eventID, operator).
		Limit(1).
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return &authority, nil
}

func (d *DB) UpsertCheckInAuthority(authority models.CheckInAuthority) error {
	_, err := d.Bun.NewInsert().
		Model(&authority).
		On("CONFLICT (event_id, operator) DO UPDATE").
		Set("is_active = EXCLUDED.is_active").
		Exec(context.Background())
	return err
}
