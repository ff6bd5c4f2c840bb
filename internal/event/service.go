package event

import (
	"fmt"
	"math"

	"ms-settlement/internal/models"
)

type DBLayer interface {
	GetEventByID(id string) (*models.Event, error)
	CreateEvent(event models.Event) error
	UpdateEventStatus(id string, status uint8) error
	GetTicketType(eventID, typeID string) (*models.TicketType, error)
	CreateTicketType(ticketType models.TicketType) error
	UpdateTicketType(ticketType models.TicketType) error
	GetCheckInAuthority(eventID, operator string) (*models.CheckInAuthority, error)
	UpsertCheckInAuthority(authority models.CheckInAuthority) error
}

type PlatformDBLayer interface {
	GetConfig() (*models.PlatformConfig, error)
}

type Service struct {
	DB       DBLayer
	Platform PlatformDBLayer
}

func NewService(db DBLayer, platformDB PlatformDBLayer) *Service {
	return &Service{DB: db, Platform: platformDB}
}

type CreateEventParams struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Symbol            string `json:"symbol"`
	Organizer         string `json:"organizer"`
	MetadataURI       string `json:"metadata_uri"`
	StartTime         int64  `json:"start_time"`
	EndTime           int64  `json:"end_time"`
	TicketReleaseTime int64  `json:"ticket_release_time"`
	StopSaleBefore    int64  `json:"stop_sale_before"`
	ResaleFeeRate     uint16 `json:"resale_fee_rate"`
	MaxResaleTimes    uint8  `json:"max_resale_times"`
}

// CreateEvent records a new event in Active status. Only the platform event
// admin may create events; the named organizer owns later mutations.
func (s *Service) CreateEvent(caller string, params CreateEventParams) (*models.Event, error) {
	config, err := s.Platform.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("load platform config: %w", err)
	}
	if caller != config.EventAdmin {
		return nil, models.ErrUnauthorized
	}
	if params.ID == "" {
		return nil, fmt.Errorf("event id is required")
	}
	// Resale fee above 100% would let the fee computation exceed the price.
	if params.ResaleFeeRate > 10_000 {
		return nil, models.ErrArithmeticOverflow
	}

	event := models.Event{
		ID:                params.ID,
		Name:              params.Name,
		Symbol:            params.Symbol,
		Organizer:         params.Organizer,
		MetadataURI:       params.MetadataURI,
		StartTime:         params.StartTime,
		EndTime:           params.EndTime,
		TicketReleaseTime: params.TicketReleaseTime,
		StopSaleBefore:    params.StopSaleBefore,
		ResaleFeeRate:     params.ResaleFeeRate,
		MaxResaleTimes:    params.MaxResaleTimes,
		Status:            models.EventStatusActive,
	}
	if err := s.DB.CreateEvent(event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return &event, nil
}

func (s *Service) UpdateEventStatus(caller, eventID string, status uint8) error {
	if status > models.EventStatusDisabled {
		return models.ErrInvalidEventStatus
	}
	event, err := s.DB.GetEventByID(eventID)
	if err != nil {
		return fmt.Errorf("event %s not found: %w", eventID, err)
	}
	if event.Organizer != caller {
		return models.ErrUnauthorized
	}
	return s.DB.UpdateEventStatus(eventID, status)
}

type CreateTicketTypeParams struct {
	TypeID      string `json:"type_id"`
	TierName    string `json:"tier_name"`
	Price       int64  `json:"price"`
	TotalSupply uint32 `json:"total_supply"`
	Color       uint32 `json:"color"`
}

func (s *Service) CreateTicketType(caller, eventID string, params CreateTicketTypeParams) (*models.TicketType, error) {
	event, err := s.DB.GetEventByID(eventID)
	if err != nil {
		return nil, fmt.Errorf("event %s not found: %w", eventID, err)
	}
	if event.Organizer != caller {
		return nil, models.ErrUnauthorized
	}
	if params.Price < 0 {
		return nil, models.ErrArithmeticOverflow
	}

	ticketType := models.TicketType{
		EventID:     eventID,
		TypeID:      params.TypeID,
		TierName:    params.TierName,
		Price:       params.Price,
		TotalSupply: params.TotalSupply,
		Minted:      0,
		Color:       params.Color,
	}
	if err := s.DB.CreateTicketType(ticketType); err != nil {
		return nil, fmt.Errorf("create ticket type: %w", err)
	}
	return &ticketType, nil
}

// BatchMintTickets raises a ticket type's supply (lazy minting).
func (s *Service) BatchMintTickets(caller, eventID, typeID string, quantity uint32) (uint32, error) {
	event, err := s.DB.GetEventByID(eventID)
	if err != nil {
		return 0, fmt.Errorf("event %s not found: %w", eventID, err)
	}
	if event.Organizer != caller {
		return 0, models.ErrUnauthorized
	}

	ticketType, err := s.DB.GetTicketType(eventID, typeID)
	if err != nil {
		return 0, fmt.Errorf("ticket type %s not found: %w", typeID, err)
	}
	if ticketType.TotalSupply > math.MaxUint32-quantity {
		return 0, models.ErrArithmeticOverflow
	}
	ticketType.TotalSupply += quantity

	if err := s.DB.UpdateTicketType(*ticketType); err != nil {
		return 0, fmt.Errorf("update ticket type: %w", err)
	}
	return ticketType.TotalSupply, nil
}

// SetCheckInOperator grants or revokes a check-in capability for an event.
// Allowed for the platform event admin and the event organizer.
func (s *Service) SetCheckInOperator(caller, eventID, operator string, active bool) error {
	config, err := s.Platform.GetConfig()
	if err != nil {
		return fmt.Errorf("load platform config: %w", err)
	}
	event, err := s.DB.GetEventByID(eventID)
	if err != nil {
		return fmt.Errorf("event %s not found: %w", eventID, err)
	}
	if caller != config.EventAdmin && caller != event.Organizer {
		return models.ErrUnauthorized
	}

	return s.DB.UpsertCheckInAuthority(models.CheckInAuthority{
		EventID:  eventID,
		Operator: operator,
		IsActive: active,
	})
}
