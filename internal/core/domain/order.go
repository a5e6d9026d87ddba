package domain

import (
	"fmt"
	"time"
)

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusAssigned  OrderStatus = "assigned"
	StatusReady     OrderStatus = "ready"
	StatusInTransit OrderStatus = "in_transit"
	StatusArrived   OrderStatus = "arrived"
	StatusDelivered OrderStatus = "delivered"
)

// progressStatuses are the targets an assigned agent may set. They are
// mutually reachable: no ordering between them is enforced.
var progressStatuses = map[OrderStatus]struct{}{
	StatusReady:     {},
	StatusInTransit: {},
	StatusArrived:   {},
	StatusDelivered: {},
}

// IsProgress reports whether s is a status an agent may set through a
// status update.
func (s OrderStatus) IsProgress() bool {
	_, ok := progressStatuses[s]
	return ok
}

// IsTerminal reports whether no transition leaves s.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusDelivered
}

// Valid reports whether s is any known status.
func (s OrderStatus) Valid() bool {
	return s == StatusPending || s == StatusAssigned || s.IsProgress()
}

// CanTransitionTo reports whether a status update from s to next is allowed.
// pending -> assigned is not a status update; it only happens through Assign.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if !next.IsProgress() {
		return false
	}
	return s == StatusAssigned || (s.IsProgress() && !s.IsTerminal())
}

// CartItem is a single line of an order.
type CartItem struct {
	Name  string  `json:"name" bson:"name"`
	Price float64 `json:"price" bson:"price"`
}

// Order is the aggregate root of the delivery lifecycle.
//
// Invariant: DeliveryAgent and DeliveryAgentName are set if and only if
// Status is not pending.
type Order struct {
	ID                string      `json:"id" bson:"_id"`
	Name              string      `json:"name" bson:"name"`
	Phone             string      `json:"phone" bson:"phone"`
	Address           string      `json:"address" bson:"address"`
	Cart              []CartItem  `json:"cart" bson:"cart"`
	TotalPrice        float64     `json:"totalPrice" bson:"total_price"`
	DeliveryPrice     float64     `json:"deliveryPrice" bson:"delivery_price"`
	Status            OrderStatus `json:"status" bson:"status"`
	DeliveryAgent     *string     `json:"deliveryAgent" bson:"delivery_agent"`
	DeliveryAgentName *string     `json:"deliveryAgentName" bson:"delivery_agent_name"`
	CreatedAt         time.Time   `json:"createdAt" bson:"created_at"`
	Version           uint64      `json:"-" bson:"version"`
}

// Clone returns a deep copy so callers can mutate without touching stored state.
func (o Order) Clone() Order {
	c := o
	if o.Cart != nil {
		c.Cart = append([]CartItem(nil), o.Cart...)
	}
	if o.DeliveryAgent != nil {
		v := *o.DeliveryAgent
		c.DeliveryAgent = &v
	}
	if o.DeliveryAgentName != nil {
		v := *o.DeliveryAgentName
		c.DeliveryAgentName = &v
	}
	return c
}

// Validate checks the agent/status invariant.
func (o *Order) Validate() error {
	if !o.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvariantViolation, o.Status)
	}
	hasAgent := o.DeliveryAgent != nil && o.DeliveryAgentName != nil
	noAgent := o.DeliveryAgent == nil && o.DeliveryAgentName == nil
	switch {
	case o.Status == StatusPending && !noAgent:
		return fmt.Errorf("%w: pending order %s has an agent", ErrInvariantViolation, o.ID)
	case o.Status != StatusPending && !hasAgent:
		return fmt.Errorf("%w: %s order %s has no agent", ErrInvariantViolation, o.Status, o.ID)
	}
	return nil
}

// AssignedTo reports whether the order is held by the agent with phone.
func (o *Order) AssignedTo(phone string) bool {
	return o.DeliveryAgent != nil && *o.DeliveryAgent == phone
}

// Assign binds a pending order to an agent.
func (o *Order) Assign(agentPhone, agentName string) error {
	if o.Status != StatusPending {
		return ErrAlreadyAssigned
	}
	o.Status = StatusAssigned
	o.DeliveryAgent = &agentPhone
	o.DeliveryAgentName = &agentName
	return nil
}

// Advance applies a status update requested by the agent with agentPhone.
// On error the order is left untouched.
func (o *Order) Advance(agentPhone string, next OrderStatus) error {
	if !next.IsProgress() {
		return fmt.Errorf("%w: %q is not a delivery status", ErrInvalidTransition, next)
	}
	if o.Status == StatusPending {
		return fmt.Errorf("%w: order %s is not assigned", ErrInvalidTransition, o.ID)
	}
	if !o.AssignedTo(agentPhone) {
		return ErrNotOwner
	}
	if !o.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: from %s to %s", ErrInvalidTransition, o.Status, next)
	}
	o.Status = next
	return nil
}
