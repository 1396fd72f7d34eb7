package service

import (
	"context"
	"errors"
	"time"

	"github.com/atinyakov/securebank/internal/models"
)

// ErrNotAuthenticated is returned by the guard when the session flag is absent.
var ErrNotAuthenticated = errors.New("not authenticated")

// DateLayout renders dates as "Monday, January 2, 2006".
const DateLayout = "Monday, January 2, 2006"

// Card entrance animation: each card starts CardStagger after the previous
// one and fades in over CardTransition.
const (
	CardStagger    = 100 * time.Millisecond
	CardTransition = 400 * time.Millisecond
)

// Card is a dashboard summary tile.
type Card struct {
	Title string `json:"title"`
	Value string `json:"value"`
	// Delay is when the card's entrance transition starts.
	Delay time.Duration `json:"delay"`
}

// DashboardView is what the dashboard renders for an authenticated client.
type DashboardView struct {
	Date       string        `json:"date"`
	Cards      []Card        `json:"cards"`
	Transition time.Duration `json:"transition"`
}

// DefaultCards are the summary tiles of the demo dashboard.
var DefaultCards = []Card{
	{Title: "Total Balance", Value: "$24,562.00"},
	{Title: "Monthly Income", Value: "$8,350.00"},
	{Title: "Monthly Expenses", Value: "$3,245.00"},
	{Title: "Savings Goal", Value: "68%"},
}

// DashboardGuard gates the dashboard on the session flag.
type DashboardGuard struct {
	store KeyValue
	cards []Card
	now   func() time.Time
}

// NewDashboardGuard returns a guard reading the session flag from store.
func NewDashboardGuard(store KeyValue) *DashboardGuard {
	return &DashboardGuard{store: store, cards: DefaultCards, now: time.Now}
}

// Check returns the dashboard view, or ErrNotAuthenticated if the client has
// no session flag.
func (g *DashboardGuard) Check(ctx context.Context) (DashboardView, error) {
	if _, ok, err := g.store.GetItem(ctx, models.SessionFlagKey); err != nil {
		return DashboardView{}, err
	} else if !ok {
		return DashboardView{}, ErrNotAuthenticated
	}

	cards := make([]Card, len(g.cards))
	for i, c := range g.cards {
		c.Delay = time.Duration(i) * CardStagger
		cards[i] = c
	}
	return DashboardView{
		Date:       g.now().Format(DateLayout),
		Cards:      cards,
		Transition: CardTransition,
	}, nil
}

// Logout clears the session flag. The remembered user ID is kept.
func (g *DashboardGuard) Logout(ctx context.Context) error {
	return g.store.RemoveItem(ctx, models.SessionFlagKey)
}
