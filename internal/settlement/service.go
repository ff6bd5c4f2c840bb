package settlement

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"ms-settlement/internal/authz"
	eventdb "ms-settlement/internal/event/db"
	"ms-settlement/internal/funds"
	"ms-settlement/internal/logger"
	"ms-settlement/internal/models"
	"ms-settlement/internal/nonce"
	platformdb "ms-settlement/internal/platform/db"
	"ms-settlement/internal/points"
	settlementdb "ms-settlement/internal/settlement/db"
)

// DefaultGracePeriod is how long before event start check-in opens.
const DefaultGracePeriod = 3600

type EventPublisher interface {
	PublishTicketPurchased(ticket models.Ticket) error
	PublishTicketResold(ticket models.Ticket) error
	PublishTicketListed(listing models.Listing) error
	PublishListingCancelled(listing models.Listing) error
	PublishTicketCheckedIn(ticket models.Ticket) error
}

// PointsClient is the capability-holding caller into the points ledger.
// Every call through it is best-effort: failures are logged, never returned.
type PointsClient interface {
	UpdatePoints(wallet string, delta int64) (int64, error)
}

type PassGenerator interface {
	GenerateEntryPass(ticket models.Ticket) ([]byte, error)
}

// RecordLocker serializes conflicting requests on the same records before
// the transaction opens. Whoever commits first wins; the loser sees a
// precondition error, never corrupted state.
type RecordLocker interface {
	LockRecords(keys []string, token string) (bool, error)
	UnlockRecords(keys []string, token string) error
}

// Service is the settlement engine. Each request runs as one bun transaction
// spanning validation, fund transfers, and record mutation; the only
// non-atomic elements are the post-commit points and Kafka calls.
type Service struct {
	Bun         *bun.DB
	Logger      *logger.Logger
	Publisher   EventPublisher
	Points      PointsClient
	Pass        PassGenerator
	Locks       RecordLocker
	GracePeriod int64
	Now         func() int64
}

func NewService(bunDB *bun.DB, log *logger.Logger) *Service {
	return &Service{
		Bun:         bunDB,
		Logger:      log,
		GracePeriod: DefaultGracePeriod,
		Now:         func() int64 { return time.Now().Unix() },
	}
}

// stores bundles the per-transaction db layers.
type stores struct {
	platform *platformdb.DB
	event    *eventdb.DB
	tickets  *settlementdb.DB
	funds    *funds.DB
}

func newStores(idb bun.IDB) stores {
	return stores{
		platform: &platformdb.DB{Bun: idb},
		event:    &eventdb.DB{Bun: idb},
		tickets:  &settlementdb.DB{Bun: idb},
		funds:    &funds.DB{Bun: idb},
	}
}

func (s *Service) runInTx(fn func(st stores) error) error {
	return s.Bun.RunInTx(context.Background(), nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(newStores(tx))
	})
}

func (s *Service) lock(keys []string) (string, error) {
	if s.Locks == nil {
		return "", nil
	}
	token := uuid.New().String()
	ok, err := s.Locks.LockRecords(keys, token)
	if err != nil {
		return "", fmt.Errorf("record lock error: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("records busy: %v", keys)
	}
	return token, nil
}

func (s *Service) unlock(keys []string, token string) {
	if s.Locks == nil || token == "" {
		return
	}
	_ = s.Locks.UnlockRecords(keys, token)
}

// Purchase settles a primary sale: validates the backend authorization,
// consumes the nonce, splits the price between platform and organizer, and
// creates the ticket record. Points accrual and event publication happen
// after commit and cannot fail the purchase.
func (s *Service) Purchase(caller, eventID, typeID string, auth models.AuthorizationData, signature []byte) (*models.Ticket, error) {
	now := s.Now()

	lockKeys := []string{"nonce_tracker"}
	token, err := s.lock(lockKeys)
	if err != nil {
		return nil, err
	}
	defer s.unlock(lockKeys, token)

	var ticket models.Ticket
	err = s.runInTx(func(st stores) error {
		config, err := st.platform.GetConfig()
		if err != nil {
			return fmt.Errorf("load platform config: %w", err)
		}
		if config.IsPaused {
			return models.ErrPlatformPaused
		}

		if err := authz.Verify(config.BackendAuthority, auth, signature, caller, now); err != nil {
			return err
		}

		event, err := st.event.GetEventByID(eventID)
		if err != nil {
			return fmt.Errorf("event %s not found: %w", eventID, err)
		}
		if !event.IsActive() {
			return models.ErrEventNotActive
		}
		if now < event.TicketReleaseTime {
			return models.ErrSalesNotStarted
		}
		if now > event.StartTime-event.StopSaleBefore {
			return models.ErrSalesEnded
		}

		ticketType, err := st.event.GetTicketType(eventID, typeID)
		if err != nil {
			return fmt.Errorf("ticket type %s not found: %w", typeID, err)
		}
		if !ticketType.HasAvailableSupply() {
			return models.ErrInsufficientSupply
		}
		if ticketType.Price > auth.MaxPrice {
			return models.ErrPriceMismatch
		}

		tracker, err := s.loadTracker(st)
		if err != nil {
			return err
		}
		if tracker.IsUsed(auth.Nonce, caller, now) {
			return models.ErrNonceAlreadyUsed
		}

		split, err := SplitPrimary(ticketType.Price, config.FeeAmount)
		if err != nil {
			return err
		}
		if err := st.funds.Transfer(caller, config.FeeReceiver, split.PlatformFee); err != nil {
			return err
		}
		if err := st.funds.Transfer(caller, event.Organizer, split.Net); err != nil {
			return err
		}

		ticketType.Minted++
		if err := st.event.UpdateTicketType(*ticketType); err != nil {
			return fmt.Errorf("update ticket type: %w", err)
		}

		ticketUUID := auth.TicketUUID
		if ticketUUID == "" {
			ticketUUID = uuid.New().String()
		}
		ticket = models.Ticket{
			TicketUUID:    ticketUUID,
			EventID:       eventID,
			TicketTypeID:  typeID,
			Owner:         caller,
			OriginalOwner: caller,
			OriginalPrice: ticketType.Price,
			ResaleCount:   0,
			IsCheckedIn:   false,
			RowNumber:     auth.RowNumber,
			ColumnNumber:  auth.ColumnNumber,
			PurchasedAt:   now,
		}
		if s.Pass != nil {
			// The entry pass is a convenience artifact; a failed render
			// must not block settlement.
			if pass, err := s.Pass.GenerateEntryPass(ticket); err == nil {
				ticket.PassCode = pass
			} else {
				s.logSettlement("PURCHASE", ticket.TicketUUID, fmt.Sprintf("pass generation failed (non-critical): %v", err))
			}
		}
		if err := st.tickets.CreateTicket(ticket); err != nil {
			return fmt.Errorf("create ticket: %w", err)
		}

		tracker.MarkUsed(auth.Nonce, caller, now)
		return s.saveTracker(st, tracker)
	})
	if err != nil {
		return nil, err
	}

	s.applyPoints("PURCHASE", caller, points.PurchasePoints(ticket.OriginalPrice))

	if s.Publisher != nil {
		if err := s.Publisher.PublishTicketPurchased(ticket); err != nil {
			s.logKafka("PUBLISH", "ticket.purchased", err)
		}
	}
	s.logSettlement("PURCHASE", ticket.TicketUUID, fmt.Sprintf("sold to %s for %d", caller, ticket.OriginalPrice))

	return &ticket, nil
}

// BuyListed settles a resale: the authorization must reference the listed
// ticket, the price splits three ways (platform, organizer resale fee,
// seller net), ownership moves to the buyer, and the listing is consumed.
// The seller also gets the listing deposit back.
func (s *Service) BuyListed(caller, ticketUUID string, auth models.AuthorizationData, signature []byte) (*models.Ticket, error) {
	now := s.Now()

	lockKeys := []string{"ticket:" + ticketUUID, "nonce_tracker"}
	token, err := s.lock(lockKeys)
	if err != nil {
		return nil, err
	}
	defer s.unlock(lockKeys, token)

	var (
		ticket  models.Ticket
		listing models.Listing
	)
	err = s.runInTx(func(st stores) error {
		config, err := st.platform.GetConfig()
		if err != nil {
			return fmt.Errorf("load platform config: %w", err)
		}
		if config.IsPaused {
			return models.ErrPlatformPaused
		}

		listingPtr, err := st.tickets.GetListing(ticketUUID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return models.ErrListingNotActive
			}
			return fmt.Errorf("load listing: %w", err)
		}
		listing = *listingPtr
		if !listing.IsActive {
			return models.ErrListingNotActive
		}

		if auth.ResaleTicket != ticketUUID {
			return models.ErrInvalidTicketReference
		}
		if err := authz.Verify(config.BackendAuthority, auth, signature, caller, now); err != nil {
			return err
		}

		ticketPtr, err := st.tickets.GetTicketByUUID(ticketUUID)
		if err != nil {
			return fmt.Errorf("ticket %s not found: %w", ticketUUID, err)
		}
		ticket = *ticketPtr

		event, err := st.event.GetEventByID(ticket.EventID)
		if err != nil {
			return fmt.Errorf("event %s not found: %w", ticket.EventID, err)
		}

		tracker, err := s.loadTracker(st)
		if err != nil {
			return err
		}
		if tracker.IsUsed(auth.Nonce, caller, now) {
			return models.ErrNonceAlreadyUsed
		}

		if listing.Price > auth.MaxPrice {
			return models.ErrPriceMismatch
		}

		split, err := SplitResale(listing.Price, config.FeeAmount, event.ResaleFeeRate)
		if err != nil {
			return err
		}
		if err := st.funds.Transfer(caller, config.FeeReceiver, split.PlatformFee); err != nil {
			return err
		}
		if err := st.funds.Transfer(caller, event.Organizer, split.OrganizerFee); err != nil {
			return err
		}
		if err := st.funds.Transfer(caller, listing.OriginalSeller, split.Net); err != nil {
			return err
		}
		// Listing deposit goes back to the seller when the listing closes.
		if err := st.funds.Transfer(config.EscrowAccount, listing.OriginalSeller, config.ListingDeposit); err != nil {
			return err
		}

		if ticket.ResaleCount == ^uint8(0) {
			return models.ErrArithmeticOverflow
		}
		ticket.Owner = caller
		ticket.ResaleCount++
		if err := st.tickets.UpdateTicket(ticket); err != nil {
			return fmt.Errorf("update ticket: %w", err)
		}
		if err := st.tickets.RemoveListing(ticketUUID); err != nil {
			return fmt.Errorf("remove listing: %w", err)
		}

		tracker.MarkUsed(auth.Nonce, caller, now)
		return s.saveTracker(st, tracker)
	})
	if err != nil {
		return nil, err
	}

	// Resale re-basing: the seller loses the points of the original purchase
	// price, the buyer earns points on the resale price. Both calls are
	// independent and best-effort; the ledger may reject a deduction that
	// would go negative, which is logged and ignored.
	s.applyPoints("RESALE", listing.OriginalSeller, -points.PurchasePoints(ticket.OriginalPrice))
	s.applyPoints("RESALE", caller, points.PurchasePoints(listing.Price))

	if s.Publisher != nil {
		if err := s.Publisher.PublishTicketResold(ticket); err != nil {
			s.logKafka("PUBLISH", "ticket.resold", err)
		}
	}
	s.logSettlement("RESALE", ticket.TicketUUID, fmt.Sprintf("resold to %s for %d", caller, listing.Price))

	return &ticket, nil
}

func (s *Service) GetTicket(ticketUUID string) (*models.Ticket, error) {
	st := newStores(s.Bun)
	ticket, err := st.tickets.GetTicketByUUID(ticketUUID)
	if err != nil {
		return nil, fmt.Errorf("ticket %s not found: %w", ticketUUID, err)
	}
	return ticket, nil
}

func (s *Service) loadTracker(st stores) (*nonce.Tracker, error) {
	rec, err := st.platform.GetNonceTracker()
	if err != nil {
		return nil, fmt.Errorf("load nonce tracker: %w", err)
	}
	return nonce.FromRecord(rec)
}

func (s *Service) saveTracker(st stores, tracker *nonce.Tracker) error {
	rec, err := tracker.ToRecord()
	if err != nil {
		return err
	}
	if err := st.platform.SaveNonceTracker(*rec); err != nil {
		return fmt.Errorf("save nonce tracker: %w", err)
	}
	return nil
}

// applyPoints is the best-effort boundary around the points ledger: its
// errors are logged and discarded so a ledger outage can never block
// settlement.
func (s *Service) applyPoints(action, wallet string, delta int64) {
	if s.Points == nil || delta == 0 {
		return
	}
	if _, err := s.Points.UpdatePoints(wallet, delta); err != nil {
		s.logPoints(action, wallet, fmt.Sprintf("update %+d failed (non-critical): %v", delta, err))
		return
	}
	s.logPoints(action, wallet, fmt.Sprintf("points %+d applied", delta))
}

func (s *Service) logSettlement(action, ticketUUID, message string) {
	if s.Logger != nil {
		s.Logger.LogSettlement(action, ticketUUID, message)
	}
}

func (s *Service) logPoints(action, wallet, message string) {
	if s.Logger != nil {
		s.Logger.LogPoints(action, wallet, message)
	}
}

func (s *Service) logKafka(action, topic string, err error) {
	if s.Logger != nil {
		s.Logger.LogKafka(action, topic, fmt.Sprintf("publish failed: %v", err))
	}
}
