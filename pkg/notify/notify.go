// Package notify sends low stock alerts to the devices registered by a shop owner.
package notify

import (
	"context"
	"fmt"
	"strconv"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

// Notifier dispatches low stock alerts. Callers treat failures as non-fatal.
type Notifier interface {
	LowStock(ctx context.Context, accountID uint, productName string, quantity int) error
}

// Noop drops every alert. It is used when push credentials are not configured.
type Noop struct{}

func (Noop) LowStock(context.Context, uint, string, int) error { return nil }

// TokenLookup returns the device tokens registered by an account
type TokenLookup func(ctx context.Context, accountID uint) ([]string, error)

// multicastSender is the part of the messaging client used here
type multicastSender interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// Firebase sends alerts through Firebase Cloud Messaging
type Firebase struct {
	client multicastSender
	tokens TokenLookup
	log    *zap.Logger
}

// LowStock sends one multicast message to every device of the account. Accounts
// without registered devices are skipped.
func (f *Firebase) LowStock(ctx context.Context, accountID uint, productName string, quantity int) error {
	tokens, err := f.tokens(ctx, accountID)
	if err != nil {
		return fmt.Errorf("notify: lookup device tokens: %w", err)
	}
	if len(tokens) == 0 {
		f.log.Debug("No device tokens registered, skipping low stock alert", zap.Uint("account_id", accountID))
		return nil
	}

	msg := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: "Low stock",
			Body:  fmt.Sprintf("%s has only %d units left", productName, quantity),
		},
		Data: map[string]string{
			"type":         "low_stock",
			"product_name": productName,
			"quantity":     strconv.Itoa(quantity),
		},
	}

	resp, err := f.client.SendEachForMulticast(ctx, msg)
	if err != nil {
		return fmt.Errorf("notify: send: %w", err)
	}
	if resp.FailureCount > 0 {
		f.log.Warn("Some low stock alerts were not delivered",
			zap.Uint("account_id", accountID),
			zap.Int("success", resp.SuccessCount),
			zap.Int("failure", resp.FailureCount))
		if resp.SuccessCount == 0 {
			return fmt.Errorf("notify: all %d deliveries failed", resp.FailureCount)
		}
	}
	return nil
}
