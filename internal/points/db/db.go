package db

import (
	"context"

	"github.com/uptrace/bun"

	"ms-settlement/internal/models"
)

type DB struct {
	Bun bun.IDB
}

func (d *DB) GetLedgerConfig() (*models.PointsLedgerConfig, error) {
	var config models.PointsLedgerConfig
	err := d.Bun.NewSelect().
		Model(&config).
		Where("id = ?", models.PointsLedgerConfigID).
		Limit(1).
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return &config, nil
}

func (d *DB) CreateLedgerConfig(config models.PointsLedgerConfig) error {
	_, err := d.Bun.NewInsert().Model(&config).Exec(context.Background())
	return err
}

func (d *DB) GetWalletPoints(wallet string) (*models.WalletPoints, error) {
	var wp models.WalletPoints
	err := d.Bun.NewSelect().
		Model(&wp).
		Where("wallet = ?", wallet).
		Limit(1).
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return &wp, nil
}

func (d *DB) UpsertWalletPoints(wp models.WalletPoints) error {
	_, err := d.Bun.NewInsert().
		Model(&wp).
		On("CONFLICT (wallet) DO UPDATE").
		Set("points = EXCLUDED.points").
		Exec(context.Background())
	return err
}

func (d *DB) ListAuthorizedCallers() ([]models.PointsAuthorizedCaller, error) {
	var callers []models.PointsAuthorizedCaller
	err := d.Bun.NewSelect().
		Model(&callers).
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return callers, nil
}

func (d *DB) AddAuthorizedCaller(caller models.PointsAuthorizedCaller) error {
	_, err := d.Bun.NewInsert().Model(&caller).Exec(context.Background())
	return err
}

func (d *DB) RemoveAuthorizedCaller(authority string) error {
	_, err := d.Bun.NewDelete().
		Model((*models.PointsAuthorizedCaller)(nil)).
		Where("authority = ?", authority).
		Exec(context.Background())
	return err
}
