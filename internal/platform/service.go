package platform

import (
	"fmt"

	"ms-settlement/internal/models"
	"ms-settlement/internal/nonce"
)

type DBLayer interface {
	GetConfig() (*models.PlatformConfig, error)
	CreateConfig(config models.PlatformConfig) error
	UpdateConfig(config models.PlatformConfig) error
	CreateNonceTracker(rec models.NonceTrackerRecord) error
}

type Service struct {
	DB DBLayer
}

func NewService(db DBLayer) *Service {
	return &Service{DB: db}
}

// InitParams are the deploy-time platform settings. The deployer becomes the
// update authority, mirroring the usual bootstrap-then-hand-to-multisig flow.
type InitParams struct {
	FeeReceiver      string `json:"fee_receiver"`
	FeeAmount        int64  `json:"fee_amount"`
	BackendAuthority string `json:"backend_authority"`
	EventAdmin       string `json:"event_admin"`
	EscrowAccount    string `json:"escrow_account"`
	ListingDeposit   int64  `json:"listing_deposit"`
	NonceTrackerSize int    `json:"nonce_tracker_size"`
}

// Initialize creates the platform config row and the zeroed nonce tracker.
func (s *Service) Initialize(deployer string, params InitParams) error {
	if _, err := s.DB.GetConfig(); err == nil {
		return fmt.Errorf("platform already initialized")
	}

	config := models.PlatformConfig{
		ID:               models.PlatformConfigID,
		FeeReceiver:      params.FeeReceiver,
		FeeAmount:        params.FeeAmount,
		UpdateAuthority:  deployer,
		BackendAuthority: params.BackendAuthority,
		EventAdmin:       params.EventAdmin,
		EscrowAccount:    params.EscrowAccount,
		ListingDeposit:   params.ListingDeposit,
		IsPaused:         false,
	}
	if err := s.DB.CreateConfig(config); err != nil {
		return fmt.Errorf("create platform config: %w", err)
	}

	tracker := nonce.New(params.NonceTrackerSize)
	rec, err := tracker.ToRecord()
	if err != nil {
		return err
	}
	if err := s.DB.CreateNonceTracker(*rec); err != nil {
		return fmt.Errorf("create nonce tracker: %w", err)
	}

	return nil
}

// UpdateParams carries optional config updates; nil fields are untouched.
type UpdateParams struct {
	FeeReceiver      *string `json:"fee_receiver,omitempty"`
	FeeAmount        *int64  `json:"fee_amount,omitempty"`
	BackendAuthority *string `json:"backend_authority,omitempty"`
	EventAdmin       *string `json:"event_admin,omitempty"`
	ListingDeposit   *int64  `json:"listing_deposit,omitempty"`
}

func (s *Service) UpdateConfig(authority string, params UpdateParams) (*models.PlatformConfig, error) {
	config, err := s.DB.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("load platform config: %w", err)
	}
	if config.UpdateAuthority != authority {
		return nil, models.ErrUnauthorized
	}

	if params.FeeReceiver != nil {
		config.FeeReceiver = *params.FeeReceiver
	}
	if params.FeeAmount != nil {
		config.FeeAmount = *params.FeeAmount
	}
	if params.BackendAuthority != nil {
		config.BackendAuthority = *params.BackendAuthority
	}
	if params.EventAdmin != nil {
		config.EventAdmin = *params.EventAdmin
	}
	if params.ListingDeposit != nil {
		config.ListingDeposit = *params.ListingDeposit
	}

	if err := s.DB.UpdateConfig(*config); err != nil {
		return nil, fmt.Errorf("update platform config: %w", err)
	}
	return config, nil
}

func (s *Service) TogglePause(authority string) (bool, error) {
	config, err := s.DB.GetConfig()
	if err != nil {
		return false, fmt.Errorf("load platform config: %w", err)
	}
	if config.UpdateAuthority != authority {
		return false, models.ErrUnauthorized
	}

	config.IsPaused = !config.IsPaused
	if err := s.DB.UpdateConfig(*config); err != nil {
		return false, fmt.Errorf("update platform config: %w", err)
	}
	return config.IsPaused, nil
}

func (s *Service) TransferAuthority(current, next string) error {
	config, err := s.DB.GetConfig()
	if err != nil {
		return fmt.Errorf("load platform config: %w", err)
	}
	if config.UpdateAuthority != current {
		return models.ErrUnauthorized
	}

	config.UpdateAuthority = next
	if err := s.DB.UpdateConfig(*config); err != nil {
		return fmt.Errorf("update platform config: %w", err)
	}
	return nil
}
