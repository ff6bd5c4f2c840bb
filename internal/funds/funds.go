package funds

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"ms-settlement/internal/models"
)

// DB moves balances between accounts. Settlement hands it the transaction
// handle so transfers commit or roll back together with record mutation.
type DB struct {
	Bun bun.IDB
}

func (d *DB) GetAccount(address string) (*models.Account, error) {
	var account models.Account
	err := d.Bun.NewSelect().
		Model(&account).
		Where("address = ?", address).
		Limit(1).
		Scan(context.Background())
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// Deposit credits an account, creating it if needed. Used by the funding
// endpoint and tests; settlement only moves existing balances.
func (d *DB) Deposit(address string, amount int64) error {
	if amount < 0 {
		return models.ErrArithmeticOverflow
	}
	account := models.Account{Address: address, Balance: amount}
	_, err := d.Bun.NewInsert().
		Model(&account).
		On("CONFLICT (address) DO UPDATE").
		Set("balance = balance + EXCLUDED.balance").
		Exec(context.Background())
	return err
}

// Transfer pushes amount from one account to another. The debit fails with
// ErrInsufficientFunds if the sender cannot cover it; the credit creates the
// destination account on first use. A zero amount is a legal no-op so a
// price exactly equal to the platform fee settles cleanly.
func (d *DB) Transfer(from, to string, amount int64) error {
	if amount < 0 {
		return models.ErrArithmeticOverflow
	}
	if amount == 0 {
		return nil
	}

	sender, err := d.GetAccount(from)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ErrInsufficientFunds
		}
		return fmt.Errorf("load sender account: %w", err)
	}
	if sender.Balance < amount {
		return models.ErrInsufficientFunds
	}

	_, err = d.Bun.NewUpdate().
		Model((*models.Account)(nil)).
		Set("balance = balance - ?", amount).
		Where("address = ?", from).
		Exec(context.Background())
	if err != nil {
		return fmt.Errorf("debit %s: %w", from, err)
	}

	return d.Deposit(to, amount)
}
