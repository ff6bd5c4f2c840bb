package settlement_test

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"

	"ms-settlement/internal/authz"
	"ms-settlement/internal/funds"
	"ms-settlement/internal/models"
	"ms-settlement/internal/nonce"
	platformdb "ms-settlement/internal/platform/db"
	"ms-settlement/internal/settlement"
)

const (
	baseNow       = int64(1_700_000_000)
	eventStart    = baseNow + 7_200
	eventEnd      = baseNow + 14_400
	platformFee   = int64(100_000)
	deposit       = int64(20_000)
	gaPrice       = int64(1_000_000)
	vipPrice      = int64(600_000_000)
	startingFunds = int64(1_000_000_000)
)

type pointsCall struct {
	Wallet string
	Delta  int64
}

type pointsRecorder struct {
	Calls []pointsCall
	Err   error
}

func (p *pointsRecorder) UpdatePoints(wallet string, delta int64) (int64, error) {
	if p.Err != nil {
		return 0, p.Err
	}
	p.Calls = append(p.Calls, pointsCall{Wallet: wallet, Delta: delta})
	return delta, nil
}

type publisherRecorder struct {
	Topics []string
}

func (p *publisherRecorder) PublishTicketPurchased(models.Ticket) error {
	p.Topics = append(p.Topics, "ticket.purchased")
	return nil
}

func (p *publisherRecorder) PublishTicketResold(models.Ticket) error {
	p.Topics = append(p.Topics, "ticket.resold")
	return nil
}

func (p *publisherRecorder) PublishTicketListed(models.Listing) error {
	p.Topics = append(p.Topics, "ticket.listed")
	return nil
}

func (p *publisherRecorder) PublishListingCancelled(models.Listing) error {
	p.Topics = append(p.Topics, "listing.cancelled")
	return nil
}

func (p *publisherRecorder) PublishTicketCheckedIn(models.Ticket) error {
	p.Topics = append(p.Topics, "ticket.checkedin")
	return nil
}

type fixture struct {
	svc    *settlement.Service
	bunDB  *bun.DB
	funds  *funds.DB
	signer ed25519.PrivateKey
	points *pointsRecorder
	pub    *publisherRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	sqldb, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { sqldb.Close() })

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	ctx := context.Background()
	for _, model := range []interface{}{
		(*models.PlatformConfig)(nil),
		(*models.NonceTrackerRecord)(nil),
		(*models.Event)(nil),
		(*models.TicketType)(nil),
		(*models.Ticket)(nil),
		(*models.Listing)(nil),
		(*models.CheckInAuthority)(nil),
		(*models.Account)(nil),
	} {
		_, err := bunDB.NewCreateTable().Model(model).Exec(ctx)
		require.NoError(t, err)
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	pdb := &platformdb.DB{Bun: bunDB}
	require.NoError(t, pdb.CreateConfig(models.PlatformConfig{
		ID:               models.PlatformConfigID,
		FeeReceiver:      "treasury",
		FeeAmount:        platformFee,
		UpdateAuthority:  "admin",
		BackendAuthority: hex.EncodeToString(pub),
		EventAdmin:       "admin",
		EscrowAccount:    "escrow",
		ListingDeposit:   deposit,
	}))

	rec, err := nonce.New(16).ToRecord()
	require.NoError(t, err)
	require.NoError(t, pdb.CreateNonceTracker(*rec))

	_, err = bunDB.NewInsert().Model(&models.Event{
		ID:                "concert",
		Name:              "Concert",
		Organizer:         "organizer",
		StartTime:         eventStart,
		EndTime:           eventEnd,
		TicketReleaseTime: baseNow - 1_000,
		StopSaleBefore:    600,
		ResaleFeeRate:     500, // 5%
		MaxResaleTimes:    2,
		Status:            models.EventStatusActive,
	}).Exec(ctx)
	require.NoError(t, err)

	for _, tt := range []models.TicketType{
		{EventID: "concert", TypeID: "ga", TierName: "General", Price: gaPrice, TotalSupply: 10},
		{EventID: "concert", TypeID: "vip", TierName: "VIP", Price: vipPrice, TotalSupply: 5},
		{EventID: "concert", TypeID: "soldout", TierName: "Sold Out", Price: gaPrice, TotalSupply: 0},
	} {
		_, err = bunDB.NewInsert().Model(&tt).Exec(ctx)
		require.NoError(t, err)
	}

	for _, authority := range []models.CheckInAuthority{
		{EventID: "concert", Operator: "gatekeeper", IsActive: true},
		{EventID: "concert", Operator: "revoked", IsActive: false},
	} {
		_, err = bunDB.NewInsert().Model(&authority).Exec(ctx)
		require.NoError(t, err)
	}

	fundsDB := &funds.DB{Bun: bunDB}
	require.NoError(t, fundsDB.Deposit("buyer", startingFunds))
	require.NoError(t, fundsDB.Deposit("reseller", startingFunds))

	points := &pointsRecorder{}
	publisher := &publisherRecorder{}

	svc := settlement.NewService(bunDB, nil)
	svc.Points = points
	svc.Publisher = publisher
	svc.Now = func() int64 { return baseNow }

	return &fixture{
		svc:    svc,
		bunDB:  bunDB,
		funds:  fundsDB,
		signer: priv,
		points: points,
		pub:    publisher,
	}
}

func (f *fixture) authFor(buyer, typeID, ticketUUID string, nonceVal uint64) (models.AuthorizationData, []byte) {
	auth := models.AuthorizationData{
		Buyer:        buyer,
		TicketTypeID: typeID,
		TicketUUID:   ticketUUID,
		MaxPrice:     vipPrice,
		ValidUntil:   f.svc.Now() + 60,
		Nonce:        nonceVal,
	}
	return auth, authz.Sign(f.signer, auth)
}

func (f *fixture) resaleAuthFor(buyer, ticketUUID string, maxPrice int64, nonceVal uint64) (models.AuthorizationData, []byte) {
	auth := models.AuthorizationData{
		Buyer:        buyer,
		TicketUUID:   ticketUUID,
		MaxPrice:     maxPrice,
		ValidUntil:   f.svc.Now() + 60,
		Nonce:        nonceVal,
		ResaleTicket: ticketUUID,
	}
	return auth, authz.Sign(f.signer, auth)
}

func (f *fixture) balance(t *testing.T, address string) int64 {
	t.Helper()
	account, err := f.funds.GetAccount(address)
	if errors.Is(err, sql.ErrNoRows) {
		return 0
	}
	require.NoError(t, err)
	return account.Balance
}

func TestPurchase(t *testing.T) {
	f := newFixture(t)

	auth, sig := f.authFor("buyer", "ga", "tix-1", 1)
	ticket, err := f.svc.Purchase("buyer", "concert", "ga", auth, sig)
	require.NoError(t, err)

	assert.Equal(t, "tix-1", ticket.TicketUUID)
	assert.Equal(t, "buyer", ticket.Owner)
	assert.Equal(t, "buyer", ticket.OriginalOwner)
	assert.Equal(t, gaPrice, ticket.OriginalPrice)
	assert.False(t, ticket.IsCheckedIn)

	// 1.00 unit price, 0.10 platform fee, 0.90 to the organizer.
	assert.Equal(t, startingFunds-gaPrice, f.balance(t, "buyer"))
	assert.Equal(t, platformFee, f.balance(t, "treasury"))
	assert.Equal(t, gaPrice-platformFee, f.balance(t, "organizer"))

	var ticketType models.TicketType
	err = f.bunDB.NewSelect().Model(&ticketType).
		Where("event_id = ? AND type_id = ?", "concert", "ga").
		Scan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint32(1), ticketType.Minted)

	// A 1-unit purchase earns zero points; no ledger call is made.
	assert.Empty(t, f.points.Calls)
	assert.Equal(t, []string{"ticket.purchased"}, f.pub.Topics)
}

func TestPurchasePointsAward(t *testing.T) {
	f := newFixture(t)

	auth, sig := f.authFor("buyer", "vip", "tix-vip", 1)
	_, err := f.svc.Purchase("buyer", "concert", "vip", auth, sig)
	require.NoError(t, err)

	// 600 units -> 60 -> capped at 50.
	require.Len(t, f.points.Calls, 1)
	assert.Equal(t, pointsCall{Wallet: "buyer", Delta: 50}, f.points.Calls[0])
}

func TestPurchaseNonceReplay(t *testing.T) {
	f := newFixture(t)

	auth, sig := f.authFor("buyer", "ga", "tix-1", 7)
	_, err := f.svc.Purchase("buyer", "concert", "ga", auth, sig)
	require.NoError(t, err)

	auth2, sig2 := f.authFor("buyer", "ga", "tix-2", 7)
	_, err = f.svc.Purchase("buyer", "concert", "ga", auth2, sig2)
	assert.ErrorIs(t, err, models.ErrNonceAlreadyUsed)
}

func TestPurchaseNonceReusableAfterExpiry(t *testing.T) {
	f := newFixture(t)

	auth, sig := f.authFor("buyer", "ga", "tix-1", 7)
	_, err := f.svc.Purchase("buyer", "concert", "ga", auth, sig)
	require.NoError(t, err)

	f.svc.Now = func() int64 { return baseNow + nonce.ExpirySeconds }
	auth2, sig2 := f.authFor("buyer", "ga", "tix-2", 7)
	_, err = f.svc.Purchase("buyer", "concert", "ga", auth2, sig2)
	assert.NoError(t, err)
}

func TestPurchaseExpiredAuthorization(t *testing.T) {
	f := newFixture(t)

	auth, sig := f.authFor("buyer", "ga", "tix-1", 1)
	f.svc.Now = func() int64 { return auth.ValidUntil + 1 }
	_, err := f.svc.Purchase("buyer", "concert", "ga", auth, sig)
	assert.ErrorIs(t, err, models.ErrAuthorizationExpired)
}

func TestPurchaseWrongCaller(t *testing.T) {
	f := newFixture(t)

	auth, sig := f.authFor("buyer", "ga", "tix-1", 1)
	_, err := f.svc.Purchase("reseller", "concert", "ga", auth, sig)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestPurchaseTamperedAuthorization(t *testing.T) {
	f := newFixture(t)

	auth, sig := f.authFor("buyer", "ga", "tix-1", 1)
	auth.MaxPrice = vipPrice * 2
	_, err := f.svc.Purchase("buyer", "concert", "ga", auth, sig)
	assert.ErrorIs(t, err, models.ErrInvalidSignature)
}

func TestPurchaseWhilePaused(t *testing.T) {
	f := newFixture(t)

	_, err := f.bunDB.NewUpdate().Model((*models.PlatformConfig)(nil)).
		Set("is_paused = ?", true).
		Where("id = ?", models.PlatformConfigID).
		Exec(context.Background())
	require.NoError(t, err)

	auth, sig := f.authFor("buyer", "ga", "tix-1", 1)
	_, err = f.svc.Purchase("buyer", "concert", "ga", auth, sig)
	assert.ErrorIs(t, err, models.ErrPlatformPaused)
}

func TestPurchaseSalesWindow(t *testing.T) {
	f := newFixture(t)

	f.svc.Now = func() int64 { return baseNow - 2_000 } // before release
	auth, sig := f.authFor("buyer", "ga", "tix-1", 1)
	_, err := f.svc.Purchase("buyer", "concert", "ga", auth, sig)
	assert.ErrorIs(t, err, models.ErrSalesNotStarted)

	f.svc.Now = func() int64 { return eventStart - 599 } // inside stop-sale margin
	auth, sig = f.authFor("buyer", "ga", "tix-1", 2)
	_, err = f.svc.Purchase("buyer", "concert", "ga", auth, sig)
	assert.ErrorIs(t, err, models.ErrSalesEnded)

	f.svc.Now = func() int64 { return eventStart - 600 } // boundary is sellable
	auth, sig = f.authFor("buyer", "ga", "tix-1", 3)
	_, err = f.svc.Purchase("buyer", "concert", "ga", auth, sig)
	assert.NoError(t, err)
}

func TestPurchaseEventNotActive(t *testing.T) {
	f := newFixture(t)

	_, err := f.bunDB.NewUpdate().Model((*models.Event)(nil)).
		Set("status = ?", models.EventStatusDisabled).
		Where("id = ?", "concert").
		Exec(context.Background())
	require.NoError(t, err)

	auth, sig := f.authFor("buyer", "ga", "tix-1", 1)
	_, err = f.svc.Purchase("buyer", "concert", "ga", auth, sig)
	assert.ErrorIs(t, err, models.ErrEventNotActive)
}

func TestPurchasePriceAboveCeiling(t *testing.T) {
	f := newFixture(t)

	auth := models.AuthorizationData{
		Buyer:        "buyer",
		TicketTypeID: "ga",
		TicketUUID:   "tix-1",
		MaxPrice:     gaPrice - 1,
		ValidUntil:   baseNow + 60,
		Nonce:        1,
	}
	sig := authz.Sign(f.signer, auth)
	_, err := f.svc.Purchase("buyer", "concert", "ga", auth, sig)
	assert.ErrorIs(t, err, models.ErrPriceMismatch)
}

func TestPurchaseSupplyExhausted(t *testing.T) {
	f := newFixture(t)

	auth, sig := f.authFor("buyer", "soldout", "tix-1", 1)
	_, err := f.svc.Purchase("buyer", "concert", "soldout", auth, sig)
	assert.ErrorIs(t, err, models.ErrInsufficientSupply)
}

func TestPurchaseInsufficientFundsRollsBack(t *testing.T) {
	f := newFixture(t)

	auth, sig := f.authFor("broke", "ga", "tix-1", 1)
	_, err := f.svc.Purchase("broke", "concert", "ga", auth, sig)
	assert.ErrorIs(t, err, models.ErrInsufficientFunds)

	// Nothing from the failed settlement survives.
	assert.Equal(t, int64(0), f.balance(t, "treasury"))
	var count int
	count, err = f.bunDB.NewSelect().Model((*models.Ticket)(nil)).Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)

	var ticketType models.TicketType
	err = f.bunDB.NewSelect().Model(&ticketType).
		Where("event_id = ? AND type_id = ?", "concert", "ga").
		Scan(context.Background())
	require.NoError(t, err)
	assert.Zero(t, ticketType.Minted)

	// The nonce was not consumed either; a funded retry succeeds.
	require.NoError(t, f.funds.Deposit("broke", startingFunds))
	_, err = f.svc.Purchase("broke", "concert", "ga", auth, sig)
	assert.NoError(t, err)
}

func TestPurchaseSurvivesPointsOutage(t *testing.T) {
	f := newFixture(t)
	f.points.Err = errors.New("ledger unreachable")

	auth, sig := f.authFor("buyer", "vip", "tix-vip", 1)
	ticket, err := f.svc.Purchase("buyer", "concert", "vip", auth, sig)
	require.NoError(t, err)
	assert.Equal(t, "buyer", ticket.Owner)
	assert.Equal(t, startingFunds-vipPrice, f.balance(t, "buyer"))
}
