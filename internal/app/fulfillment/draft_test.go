package fulfillment

import (
	"github.com/YelzhanWeb/fulfillment/internal/domain"
	"github.com/shopspring/decimal"
)

func (s *ServiceSuite) TestDraft_CommitWritesEverythingAtOnce() {
	s.seed("ORD-1", domain.StatusProcessing)

	draft, err := s.service.OpenDraft(s.ctx, "ORD-1")
	s.Require().NoError(err)

	s.Require().NoError(draft.Increment(0))
	s.Require().NoError(draft.SetQuantity(1, 5))
	draft.AddItem(domain.LineItem{Name: "Belt", UnitPrice: decimal.NewFromInt(10), Quantity: 1})
	draft.SetContact("Aigerim S.", "+7 701 111 2233", "Dostyk 5")

	stored, _ := s.orders.FindByID(s.ctx, "ORD-1")
	s.Len(stored.Items, 2)
	s.Equal("Abay 10", stored.Address)

	order, err := s.service.Commit(s.ctx, draft, "manager")
	s.Require().NoError(err)
	s.Len(order.Items, 3)
	s.Equal(2, order.Items[0].Quantity)
	s.Equal(5, order.Items[1].Quantity)
	s.Equal("Dostyk 5", order.Address)
	s.True(order.Total.Equal(decimal.NewFromInt(120*2 + 15*5 + 10)))
	s.Equal(order.Version, draft.Version())
}

func (s *ServiceSuite) TestDraft_QuantityRules() {
	s.seed("ORD-1", domain.StatusNew)
	draft, err := s.service.OpenDraft(s.ctx, "ORD-1")
	s.Require().NoError(err)

	s.Require().NoError(draft.Decrement(0))
	s.Equal(1, draft.Items[0].Quantity)

	s.ErrorIs(draft.SetQuantity(0, 0), domain.ErrValidation)
	s.Equal(1, draft.Items[0].Quantity)

	s.ErrorIs(draft.Increment(7), domain.ErrValidation)

	s.Require().NoError(draft.RemoveItem(1))
	s.ErrorIs(draft.RemoveItem(0), domain.ErrValidation)
	s.Len(draft.Items, 1)
}

func (s *ServiceSuite) TestDraft_StaleCommitRejected() {
	s.seed("ORD-1", domain.StatusNew)

	draft, err := s.service.OpenDraft(s.ctx, "ORD-1")
	s.Require().NoError(err)
	draft.SetContact("Someone Else", "+7 777", "Elsewhere 1")

	_, err = s.service.Transition(s.ctx, "ORD-1", domain.StatusProcessing, "system")
	s.Require().NoError(err)

	_, err = s.service.Commit(s.ctx, draft, "manager")
	s.ErrorIs(err, domain.ErrStaleDraft)

	stored, _ := s.orders.FindByID(s.ctx, "ORD-1")
	s.Equal("Abay 10", stored.Address)
}

func (s *ServiceSuite) TestDraft_TerminalOrderCannotBeOpened() {
	s.seed("ORD-1", domain.StatusCancelled)
	_, err := s.service.OpenDraft(s.ctx, "ORD-1")
	s.ErrorIs(err, domain.ErrValidation)
}
