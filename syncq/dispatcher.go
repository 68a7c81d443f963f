package syncq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/offcache/offcache/metrics"
	"github.com/offcache/offcache/notify"

	"github.com/rs/zerolog/log"
)

// Sync task tags dispatched by the platform.
const (
	TagTransactionSync    = "transaction-sync"
	TagPropertyAlertCheck = "property-alert-check"
)

// PropertyAlert is one matched alert from the alert-check endpoint.
type PropertyAlert struct {
	PropertyID    string  `json:"propertyId"`
	PropertyTitle string  `json:"propertyTitle"`
	MaxPrice      float64 `json:"maxPrice"`
}

// AlertNotifier shows a user notification for a matched alert.
type AlertNotifier interface {
	Show(ctx context.Context, n notify.Notification) error
}

// Dispatcher executes background sync tasks by tag. A task runs to
// completion or failure within one invocation; retry scheduling is the
// platform's job, not the dispatcher's.
type Dispatcher struct {
	// BaseURL is the origin the sync endpoints live on.
	BaseURL  string
	Client   *http.Client
	Store    PendingStore
	Notifier AlertNotifier
	Metrics  *metrics.Metrics
}

// Dispatch runs the task named by tag. Unknown tags are a no-op.
func (d *Dispatcher) Dispatch(ctx context.Context, tag string) error {
	log.Debug().Str("tag", tag).Msg("Background sync triggered")
	switch tag {
	case TagTransactionSync:
		return d.syncTransactions(ctx)
	case TagPropertyAlertCheck:
		return d.checkPropertyAlerts(ctx)
	default:
		log.Debug().Str("tag", tag).Msg("Ignoring unknown sync tag")
		return nil
	}
}

// syncTransactions drains the pending store. Each item is submitted
// individually and removed only after a confirmed success; one item's
// failure never aborts the remaining queue.
func (d *Dispatcher) syncTransactions(ctx context.Context) error {
	transactions, err := d.Store.List()
	if err != nil {
		return fmt.Errorf("list pending transactions: %w", err)
	}
	log.Debug().Int("pending", len(transactions)).Msg("Syncing offline transactions")

	for _, t := range transactions {
		if err := d.submitTransaction(ctx, t); err != nil {
			log.Warn().Err(err).Str("id", t.ID).Msg("Could not sync transaction")
			d.Metrics.SyncItem(TagTransactionSync, "failed")
			continue
		}
		if err := d.Store.Remove(t.ID); err != nil {
			log.Error().Err(err).Str("id", t.ID).Msg("Could not remove synced transaction")
			continue
		}
		d.Metrics.SyncItem(TagTransactionSync, "synced")
		log.Debug().Str("id", t.ID).Msg("Transaction synced")
	}
	return nil
}

func (d *Dispatcher) submitTransaction(ctx context.Context, t Transaction) error {
	body, err := json.Marshal(t)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.BaseURL+"/api/transactions", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := d.client().Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", res.StatusCode)
	}
	return nil
}

// checkPropertyAlerts asks the API for matched alerts and renders one
// notification per match.
func (d *Dispatcher) checkPropertyAlerts(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.BaseURL+"/api/property-alerts/check", nil)
	if err != nil {
		return err
	}
	res, err := d.client().Do(req)
	if err != nil {
		return fmt.Errorf("property alert check: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		return fmt.Errorf("property alert check: unexpected status %d", res.StatusCode)
	}

	var alerts []PropertyAlert
	if err := json.NewDecoder(res.Body).Decode(&alerts); err != nil {
		return fmt.Errorf("property alert check: %w", err)
	}
	log.Debug().Int("alerts", len(alerts)).Msg("Property alerts matched")

	for _, alert := range alerts {
		n := notify.Notification{
			Title: "Property Alert",
			Body:  fmt.Sprintf("New property found under €%.0f: %s", alert.MaxPrice, alert.PropertyTitle),
			Tag:   "property-alert",
			URL:   "/house-search?property=" + alert.PropertyID,
		}
		if d.Notifier == nil {
			continue
		}
		if err := d.Notifier.Show(ctx, n); err != nil {
			log.Warn().Err(err).Str("property", alert.PropertyID).Msg("Could not show alert notification")
			d.Metrics.SyncItem(TagPropertyAlertCheck, "failed")
			continue
		}
		d.Metrics.SyncItem(TagPropertyAlertCheck, "notified")
	}
	return nil
}

func (d *Dispatcher) client() *http.Client {
	if d.Client != nil {
		return d.Client
	}
	return http.DefaultClient
}
