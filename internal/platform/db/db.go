package db

import (
	"context"

	"github.com/uptrace/bun"

	"ms-settlement/internal/models"
)

type DB struct {
	Bun bun.IDB
}

func (d *DB) GetConfig() (*models.PlatformConfig, error) {
	var config models.PlatformConfig
	err := d.Bun.NewSelect().
		Model(&config).
		Where("id = ?", models.PlatformConfigID).
		Limit(1).
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return &config, nil
}

func (d *DB) CreateConfig(config models.PlatformConfig) error {
	_, err := d.Bun.NewInsert().Model(&config).Exec(context.Background())
	return err
}

func (d *DB) UpdateConfig(config models.PlatformConfig) error {
	_, err := d.Bun.NewUpdate().
		Model(&config).
		Column("fee_receiver", "fee_amount", "update_authority", "backend_authority",
			"event_admin", "escrow_account", "listing_deposit", "is_paused").
		Where("id = ?", config.ID).
		Exec(context.Background())
	return err
}

func (d *DB) GetNonceTracker() (*models.NonceTrackerRecord, error) {
	var rec models.NonceTrackerRecord
	err := d.Bun.NewSelect().
		Model(&rec).
		Where("id = ?", models.NonceTrackerID).
		Limit(1).
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (d *DB) CreateNonceTracker(rec models.NonceTrackerRecord) error {
	_, err := d.Bun.NewInsert().Model(&rec).Exec(context.Background())
	return err
}

func (d *DB) SaveNonceTracker(rec models.NonceTrackerRecord) error {
	_, err := d.Bun.NewUpdate().
		Model(&rec).
		Column("cursor", "capacity", "slots").
		Where("id = ?", rec.ID).
		Exec(context.Background())
	return err
}
