package points

// Client binds a capability to the ledger so the settlement core can apply
// deltas without handling keys or signatures itself.
type Client struct {
	Ledger     *Ledger
	Capability Capability
}

func NewClient(ledger *Ledger, capability Capability) *Client {
	return &Client{Ledger: ledger, Capability: capability}
}

func (c *Client) UpdatePoints(wallet string, delta int64) (int64, error) {
	signature := c.Capability.Sign(wallet, delta)
	return c.Ledger.UpdatePoints(wallet, delta, c.Capability.Authority, signature)
}
