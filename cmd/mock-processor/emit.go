package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/josh-kwaku/marketplace-payments/internal/bus"
	"github.com/josh-kwaku/marketplace-payments/internal/config"
	"github.com/josh-kwaku/marketplace-payments/internal/domain"
	"github.com/josh-kwaku/marketplace-payments/internal/events"
)

// emitCmd plays the upstream services whose events the dispatcher fans out.
// It uses the same BUS_* environment as the other processes.
func emitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "emit",
		Short: "Publish an upstream event onto the bus",
	}
	cmd.AddCommand(emitOrderCreatedCmd())
	cmd.AddCommand(emitLowStockCmd())
	return cmd
}

func emitOrderCreatedCmd() *cobra.Command {
	var (
		ev        domain.OrderCreatedEvent
		producers string
		total     string
		address   string
	)

	cmd := &cobra.Command{
		Use:   "order-created",
		Short: "Publish " + domain.SubjectOrderCreated,
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := decimal.NewFromString(total)
			if err != nil {
				return fmt.Errorf("order-created: --total: %w", err)
			}
			ev.TotalAmount = amount
			ev.ProducerIDs = splitList(producers)
			ev.OrderDate = time.Now().UTC()
			if address != "" {
				ev.Address = &address
			}
			return emit(cmd, domain.SubjectOrderCreated, ev)
		},
	}

	cmd.Flags().StringVar(&ev.OrderID, "order", "order-1", "Order id")
	cmd.Flags().StringVar(&producers, "producers", "p1,p2", "Comma-separated producer ids, in order")
	cmd.Flags().StringVar(&ev.ClientName, "client", "Ada", "Client name")
	cmd.Flags().StringVar(&address, "address", "", "Delivery address")
	cmd.Flags().StringVar(&total, "total", "42.50", "Order total")
	cmd.Flags().IntVar(&ev.ItemCount, "items", 1, "Item count")

	return cmd
}

func emitLowStockCmd() *cobra.Command {
	var ev domain.LowStockEvent

	cmd := &cobra.Command{
		Use:   "low-stock",
		Short: "Publish " + domain.SubjectLowStock,
		RunE: func(cmd *cobra.Command, args []string) error {
			return emit(cmd, domain.SubjectLowStock, ev)
		},
	}

	cmd.Flags().StringVar(&ev.ProducerID, "producer", "p1", "Producer id")
	cmd.Flags().StringVar(&ev.ProductOfferID, "offer", "offer-1", "Product offer id")
	cmd.Flags().IntVar(&ev.AvailableQuantity, "available", 2, "Available quantity")
	cmd.Flags().IntVar(&ev.MinimumThreshold, "threshold", 5, "Minimum threshold")

	return cmd
}

func emit(cmd *cobra.Command, subject string, payload any) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	b, err := bus.Open(cfg.BusOptions(), slog.Default())
	if err != nil {
		return err
	}
	defer b.Close()

	if err := events.NewPublisher(b).WithTimeout(cfg.PublishTimeout).Publish(cmd.Context(), subject, payload); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "published %s\n", subject)
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
