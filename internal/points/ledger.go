package points

import (
	"database/sql"
	"errors"
	"fmt"
	"math"

	"ms-settlement/internal/models"
)

// MaxAuthorizedCallers bounds the ledger's caller allow-list.
const MaxAuthorizedCallers = 10

// Ledger-local errors. These never unify with the settlement error set: the
// core calls the ledger behind a best-effort boundary and only logs them.
var (
	ErrLedgerUnauthorized      = errors.New("ledger caller not authorized")
	ErrPointsOverflow          = errors.New("points overflow")
	ErrInsufficientPoints      = errors.New("insufficient points")
	ErrMaxAuthorizedCallers    = errors.New("authorized caller limit reached")
	ErrCallerAlreadyAuthorized = errors.New("caller already authorized")
	ErrCallerNotAuthorized     = errors.New("caller not authorized")
)

type DBLayer interface {
	GetLedgerConfig() (*models.PointsLedgerConfig, error)
	CreateLedgerConfig(config models.PointsLedgerConfig) error
	GetWalletPoints(wallet string) (*models.WalletPoints, error)
	UpsertWalletPoints(wp models.WalletPoints) error
	ListAuthorizedCallers() ([]models.PointsAuthorizedCaller, error)
	AddAuthorizedCaller(caller models.PointsAuthorizedCaller) error
	RemoveAuthorizedCaller(authority string) error
}

// Ledger is the external points collaborator: per-wallet balances plus an
// allow-list of callers that may mutate them.
type Ledger struct {
	DB DBLayer
}

func NewLedger(db DBLayer) *Ledger {
	return &Ledger{DB: db}
}

func (l *Ledger) Initialize(admin string) error {
	if _, err := l.DB.GetLedgerConfig(); err == nil {
		return fmt.Errorf("points ledger already initialized")
	}
	return l.DB.CreateLedgerConfig(models.PointsLedgerConfig{
		ID:    models.PointsLedgerConfigID,
		Admin: admin,
	})
}

func (l *Ledger) isAuthorized(authority string) (bool, error) {
	config, err := l.DB.GetLedgerConfig()
	if err != nil {
		return false, fmt.Errorf("load ledger config: %w", err)
	}
	if authority == config.Admin {
		return true, nil
	}
	callers, err := l.DB.ListAuthorizedCallers()
	if err != nil {
		return false, fmt.Errorf("load authorized callers: %w", err)
	}
	for _, c := range callers {
		if c.Authority == authority {
			return true, nil
		}
	}
	return false, nil
}

// UpdatePoints applies a signed delta to a wallet balance. The caller must
// present a valid capability signature and its authority must be the ledger
// admin or on the allow-list. The balance is overflow-checked and may not go
// negative.
func (l *Ledger) UpdatePoints(wallet string, delta int64, authority string, signature []byte) (int64, error) {
	if !verifyCapability(authority, wallet, delta, signature) {
		return 0, ErrLedgerUnauthorized
	}
	ok, err := l.isAuthorized(authority)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrLedgerUnauthorized
	}

	current := int64(0)
	wp, err := l.DB.GetWalletPoints(wallet)
	if err == nil {
		current = wp.Points
	} else if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("load wallet points: %w", err)
	}

	if delta > 0 && current > math.MaxInt64-delta {
		return 0, ErrPointsOverflow
	}
	next := current + delta
	if next < 0 {
		return 0, ErrInsufficientPoints
	}

	if err := l.DB.UpsertWalletPoints(models.WalletPoints{Wallet: wallet, Points: next}); err != nil {
		return 0, fmt.Errorf("store wallet points: %w", err)
	}
	return next, nil
}

func (l *Ledger) GetPoints(wallet string) (int64, error) {
	wp, err := l.DB.GetWalletPoints(wallet)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return wp.Points, nil
}

// AuthorizeCaller adds an authority to the allow-list (admin only).
func (l *Ledger) AuthorizeCaller(admin, authority string) error {
	config, err := l.DB.GetLedgerConfig()
	if err != nil {
		return fmt.Errorf("load ledger config: %w", err)
	}
	if admin != config.Admin {
		return ErrLedgerUnauthorized
	}

	callers, err := l.DB.ListAuthorizedCallers()
	if err != nil {
		return fmt.Errorf("load authorized callers: %w", err)
	}
	for _, c := range callers {
		if c.Authority == authority {
			return ErrCallerAlreadyAuthorized
		}
	}
	if len(callers) >= MaxAuthorizedCallers {
		return ErrMaxAuthorizedCallers
	}

	return l.DB.AddAuthorizedCaller(models.PointsAuthorizedCaller{Authority: authority})
}

// RevokeCaller removes an authority from the allow-list (admin only).
func (l *Ledger) RevokeCaller(admin, authority string) error {
	config, err := l.DB.GetLedgerConfig()
	if err != nil {
		return fmt.Errorf("load ledger config: %w", err)
	}
	if admin != config.Admin {
		return ErrLedgerUnauthorized
	}

	callers, err := l.DB.ListAuthorizedCallers()
	if err != nil {
		return fmt.Errorf("load authorized callers: %w", err)
	}
	found := false
	for _, c := range callers {
		if c.Authority == authority {
			found = true
			break
		}
	}
	if !found {
		return ErrCallerNotAuthorized
	}

	return l.DB.RemoveAuthorizedCaller(authority)
}
