package main

import (
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"orderdesk/dashboard/internal/domain"
	"orderdesk/dashboard/internal/listing"
)

func newOrdersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List and manage extracted orders",
	}
	cmd.AddCommand(
		newOrdersListCmd(a),
		newOrdersWatchCmd(a),
		newOrdersStatsCmd(a),
		newOrdersShowCmd(a),
		newOrdersDeleteCmd(a),
	)
	return cmd
}

func newOrdersListCmd(a *app) *cobra.Command {
	var (
		page, limit int
		syncStatus  string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List orders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filters := domain.NewFilters(map[string]string{
				domain.FilterPage:  strconv.Itoa(page),
				domain.FilterLimit: strconv.Itoa(limit),
			})
			if syncStatus != "" {
				filters[domain.FilterSyncStatus] = syncStatus
			}
			result, err := a.orders.List(cmd.Context(), filters)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"items":      result.Items,
				"pagination": result.Pagination.Resolve(),
			})
		},
	}
	cmd.Flags().IntVar(&page, "page", domain.DefaultPage, "page number")
	cmd.Flags().IntVar(&limit, "limit", domain.DefaultLimit, "page size")
	cmd.Flags().StringVar(&syncStatus, "sync-status", "", "filter by sync status")
	return cmd
}

func newOrdersWatchCmd(a *app) *cobra.Command {
	var (
		limit      int
		syncStatus string
		interval   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the order list, paging and filtering from stdin",
		Long:  "Prints one JSON snapshot per change and polls in the background.\n" + watchHelp,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			initial := nonEmpty(map[string]string{
				domain.FilterLimit:      strconv.Itoa(limit),
				domain.FilterSyncStatus: syncStatus,
			})
			return watchList(cmd, a, "orders", a.orders.List, initial, interval)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", domain.DefaultLimit, "page size")
	cmd.Flags().StringVar(&syncStatus, "sync-status", "", "filter by sync status")
	cmd.Flags().DurationVar(&interval, "interval", listing.DefaultPollInterval, "background poll interval")
	return cmd
}

func newOrdersStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show order totals and sync state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := a.orders.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats)
		},
	}
}

func newOrdersShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show [id]",
		Short: "Show an order with resolved display fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			order, err := a.orders.Get(cmd.Context(), domain.ID(args[0]))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), order)
		},
	}
}

func newOrdersDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete an order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.orders.Delete(cmd.Context(), domain.ID(args[0])); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]string{"deleted": args[0]})
		},
	}
}
