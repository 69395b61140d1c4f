package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for the engine's business rules.
var (
	ErrNotFound         = errors.New("not found")
	ErrLineNotFound     = errors.New("cart line not found")
	ErrCannotRemove     = errors.New("cannot remove more than the cart line holds")
	ErrEmptyCart        = errors.New("cart is empty")
	ErrCouponNotFound   = errors.New("coupon not found")
	ErrCouponExhausted  = errors.New("coupon has no remaining uses")
	ErrInvalidSignature = errors.New("invalid gateway signature")
)

// ValidationError reports bad or missing user input.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// InsufficientStockError rejects a reservation that would push an ingredient
// negative. It names the first ingredient that failed.
type InsufficientStockError struct {
	IngredientID   int64
	IngredientName string
	Requested      int
}

func (e InsufficientStockError) Error() string {
	name := e.IngredientName
	if name == "" {
		name = fmt.Sprintf("ingredient %d", e.IngredientID)
	}
	return fmt.Sprintf("insufficient stock of %s for %d unit(s)", name, e.Requested)
}

// PaymentDeclinedError carries the gateway's non-success response code.
type PaymentDeclinedError struct {
	Code string
}

func (e PaymentDeclinedError) Error() string {
	return fmt.Sprintf("payment declined by gateway (code %s)", e.Code)
}

// NotFoundError wraps ErrNotFound with the resource that was missing.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func (e NotFoundError) Unwrap() error {
	return ErrNotFound
}
