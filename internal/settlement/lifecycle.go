package settlement

import (
	"database/sql"
	"errors"
	"fmt"

	"ms-settlement/internal/models"
	"ms-settlement/internal/points"
)

// List puts an owned ticket up for resale. Custody moves to the platform
// escrow identity so the seller cannot double-list or transfer out-of-band
// while the listing is active; the seller pays the listing deposit, returned
// when the listing closes.
func (s *Service) List(caller, ticketUUID string, price int64) (*models.Listing, error) {
	now := s.Now()
	if price < 0 {
		return nil, models.ErrArithmeticOverflow
	}

	lockKeys := []string{"ticket:" + ticketUUID}
	token, err := s.lock(lockKeys)
	if err != nil {
		return nil, err
	}
	defer s.unlock(lockKeys, token)

	var listing models.Listing
	err = s.runInTx(func(st stores) error {
		config, err := st.platform.GetConfig()
		if err != nil {
			return fmt.Errorf("load platform config: %w", err)
		}

		ticket, err := st.tickets.GetTicketByUUID(ticketUUID)
		if err != nil {
			return fmt.Errorf("ticket %s not found: %w", ticketUUID, err)
		}
		if ticket.Owner != caller {
			return models.ErrNotTicketOwner
		}

		event, err := st.event.GetEventByID(ticket.EventID)
		if err != nil {
			return fmt.Errorf("event %s not found: %w", ticket.EventID, err)
		}
		if ticket.IsCheckedIn {
			return models.ErrCannotResellTicket
		}
		if ticket.ResaleCount >= event.MaxResaleTimes {
			return models.ErrResaleLimitReached
		}
		if now >= event.StartTime {
			return models.ErrSalesEnded
		}

		if err := st.funds.Transfer(caller, config.EscrowAccount, config.ListingDeposit); err != nil {
			return err
		}

		ticket.Owner = config.EscrowAccount
		if err := st.tickets.UpdateTicket(*ticket); err != nil {
			return fmt.Errorf("update ticket: %w", err)
		}

		listing = models.Listing{
			TicketUUID:     ticketUUID,
			OriginalSeller: caller,
			Price:          price,
			ListedAt:       now,
			IsActive:       true,
		}
		if err := st.tickets.CreateListing(listing); err != nil {
			return fmt.Errorf("create listing: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.Publisher != nil {
		if err := s.Publisher.PublishTicketListed(listing); err != nil {
			s.logKafka("PUBLISH", "ticket.listed", err)
		}
	}
	s.logSettlement("LIST", ticketUUID, fmt.Sprintf("listed by %s for %d", caller, price))

	return &listing, nil
}

// CancelListing returns custody to the original seller and removes the
// listing. No fees move and no points-ledger calls are made; only the
// seller's own deposit comes back.
func (s *Service) CancelListing(caller, ticketUUID string) error {
	lockKeys := []string{"ticket:" + ticketUUID}
	token, err := s.lock(lockKeys)
	if err != nil {
		return err
	}
	defer s.unlock(lockKeys, token)

	var listing models.Listing
	err = s.runInTx(func(st stores) error {
		config, err := st.platform.GetConfig()
		if err != nil {
			return fmt.Errorf("load platform config: %w", err)
		}

		listingPtr, err := st.tickets.GetListing(ticketUUID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return models.ErrListingNotActive
			}
			return fmt.Errorf("load listing: %w", err)
		}
		listing = *listingPtr
		if listing.OriginalSeller != caller {
			return models.ErrUnauthorized
		}

		ticket, err := st.tickets.GetTicketByUUID(ticketUUID)
		if err != nil {
			return fmt.Errorf("ticket %s not found: %w", ticketUUID, err)
		}
		ticket.Owner = listing.OriginalSeller
		if err := st.tickets.UpdateTicket(*ticket); err != nil {
			return fmt.Errorf("update ticket: %w", err)
		}
		if err := st.tickets.RemoveListing(ticketUUID); err != nil {
			return fmt.Errorf("remove listing: %w", err)
		}

		return st.funds.Transfer(config.EscrowAccount, listing.OriginalSeller, config.ListingDeposit)
	})
	if err != nil {
		return err
	}

	if s.Publisher != nil {
		if err := s.Publisher.PublishListingCancelled(listing); err != nil {
			s.logKafka("PUBLISH", "listing.cancelled", err)
		}
	}
	s.logSettlement("CANCEL", ticketUUID, fmt.Sprintf("listing cancelled by %s", caller))

	return nil
}

// CheckIn marks a ticket as redeemed. The operator needs an active check-in
// capability for the event, the time must fall inside
// [start_time - grace, end_time] (both ends inclusive), and the flag only
// ever goes false -> true. The owner earns the check-in points award.
func (s *Service) CheckIn(operator, ticketUUID string) (*models.Ticket, error) {
	now := s.Now()

	lockKeys := []string{"ticket:" + ticketUUID}
	token, err := s.lock(lockKeys)
	if err != nil {
		return nil, err
	}
	defer s.unlock(lockKeys, token)

	var ticket models.Ticket
	err = s.runInTx(func(st stores) error {
		ticketPtr, err := st.tickets.GetTicketByUUID(ticketUUID)
		if err != nil {
			return fmt.Errorf("ticket %s not found: %w", ticketUUID, err)
		}
		ticket = *ticketPtr

		authority, err := st.event.GetCheckInAuthority(ticket.EventID, operator)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return models.ErrCheckInOperatorNotAuthorized
			}
			return fmt.Errorf("load check-in authority: %w", err)
		}
		if !authority.IsActive {
			return models.ErrCheckInOperatorNotAuthorized
		}

		if ticket.IsCheckedIn {
			return models.ErrAlreadyCheckedIn
		}

		event, err := st.event.GetEventByID(ticket.EventID)
		if err != nil {
			return fmt.Errorf("event %s not found: %w", ticket.EventID, err)
		}
		if now < event.StartTime-s.GracePeriod || now > event.EndTime {
			return models.ErrInvalidCheckInTime
		}

		ticket.IsCheckedIn = true
		return st.tickets.UpdateTicket(ticket)
	})
	if err != nil {
		return nil, err
	}

	s.applyPoints("CHECKIN", ticket.Owner, points.CheckInPointsAward)

	if s.Publisher != nil {
		if err := s.Publisher.PublishTicketCheckedIn(ticket); err != nil {
			s.logKafka("PUBLISH", "ticket.checkedin", err)
		}
	}
	s.logSettlement("CHECKIN", ticketUUID, fmt.Sprintf("checked in by operator %s", operator))

	return &ticket, nil
}
