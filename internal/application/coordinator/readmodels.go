package coordinator

import (
	"sort"
	"strings"

	"carbonmarket/internal/domain"
)

// MarketFilter narrows the marketplace view. Zero value matches every available listing.
type MarketFilter struct {
	ProjectType domain.ProjectType
	Query       string
}

func (f MarketFilter) match(l domain.Listing) bool {
	if !l.Available() {
		return false
	}
	if f.ProjectType != "" && l.ProjectType != f.ProjectType {
		return false
	}
	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	for _, field := range []string{l.Location, l.Description, l.SellerName, string(l.ProjectType)} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// BuyerStats summarizes the session buyer's purchases.
type BuyerStats struct {
	Orders       int     `json:"orders"`
	OffsetTonnes int     `json:"offsetTonnes"`
	Spend        float64 `json:"spend"`
}

// SellerStats summarizes the session seller's listings and sales.
type SellerStats struct {
	ActiveListings int     `json:"activeListings"`
	SoldListings   int     `json:"soldListings"`
	CreditsSold    int     `json:"creditsSold"`
	Revenue        float64 `json:"revenue"`
	// MarketActivity counts every available listing on the marketplace.
	MarketActivity int `json:"marketActivity"`
}

type DealType string

const (
	DealSale     DealType = "SALE"
	DealPurchase DealType = "PURCHASE"
)

// Deal is an order seen from the session user's side.
type Deal struct {
	domain.Order
	Type DealType `json:"type"`
}

// AvailableListings returns the cached listings a buyer can still purchase, newest first.
func (c *Coordinator) AvailableListings(f MarketFilter) []domain.Listing {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := []domain.Listing{}
	for _, l := range c.state.Listings {
		if f.match(l) {
			out = append(out, l)
		}
	}
	return out
}

// BuyerOrders returns the session user's purchases. Empty when logged out.
func (c *Coordinator) BuyerOrders() []domain.Order {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := []domain.Order{}
	if c.state.User == nil {
		return out
	}
	for _, o := range c.state.Orders {
		if o.BuyerID == c.state.User.ID {
			out = append(out, o)
		}
	}
	return out
}

// SellerListings returns every listing owned by the session user, sold ones included.
func (c *Coordinator) SellerListings() []domain.Listing {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := []domain.Listing{}
	if c.state.User == nil {
		return out
	}
	for _, l := range c.state.Listings {
		if l.SellerID == c.state.User.ID {
			out = append(out, l)
		}
	}
	return out
}

func (c *Coordinator) BuyerStats() BuyerStats {
	var s BuyerStats
	for _, o := range c.BuyerOrders() {
		s.Orders++
		s.OffsetTonnes += o.Amount
		s.Spend += o.TotalPrice
	}
	return s
}

func (c *Coordinator) SellerStats() SellerStats {
	var s SellerStats
	for _, l := range c.SellerListings() {
		if l.Available() {
			s.ActiveListings++
		} else {
			s.SoldListings++
		}
	}

	s.MarketActivity = len(c.AvailableListings(MarketFilter{}))

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state.User == nil {
		return s
	}
	for _, o := range c.state.Orders {
		if o.SellerID == c.state.User.ID {
			s.CreditsSold += o.Amount
			s.Revenue += o.TotalPrice
		}
	}
	return s
}

// Deals merges the session user's sales and purchases, newest first.
func (c *Coordinator) Deals() []Deal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := []Deal{}
	if c.state.User == nil {
		return out
	}
	uid := c.state.User.ID
	for _, o := range c.state.Orders {
		if o.SellerID == uid {
			out = append(out, Deal{Order: o, Type: DealSale})
		}
		if o.BuyerID == uid {
			out = append(out, Deal{Order: o, Type: DealPurchase})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Listing returns the cached listing with id, sold or not.
func (c *Coordinator) Listing(id string) (*domain.Listing, bool) {
	l := c.cachedListing(id)
	return l, l != nil
}
