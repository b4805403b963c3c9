package main

import (
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"orderdesk/dashboard/internal/domain"
	"orderdesk/dashboard/internal/listing"
)

func newEmailsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "emails",
		Short: "List, inspect and act on ingested emails",
	}
	cmd.AddCommand(
		newEmailsListCmd(a),
		newEmailsWatchCmd(a),
		newEmailsStatsCmd(a),
		newEmailsShowCmd(a),
		newEmailsDeleteCmd(a),
		newEmailsReprocessCmd(a),
		newEmailsConvertCmd(a),
		newEmailsUploadCmd(a),
	)
	return cmd
}

func newEmailsListCmd(a *app) *cobra.Command {
	var (
		page, limit            int
		status, priority, from string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List emails",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filters := domain.NewFilters(map[string]string{
				domain.FilterPage:     strconv.Itoa(page),
				domain.FilterLimit:    strconv.Itoa(limit),
				domain.FilterStatus:   status,
				domain.FilterPriority: priority,
				domain.FilterFrom:     from,
			})
			result, err := a.emails.List(cmd.Context(), filters)
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
	cmd.Flags().StringVar(&status, "status", "", "filter by processing status")
	cmd.Flags().StringVar(&priority, "priority", "", "filter by priority")
	cmd.Flags().StringVar(&from, "from", "", "filter by sender")
	return cmd
}

func newEmailsWatchCmd(a *app) *cobra.Command {
	var (
		limit                  int
		status, priority, from string
		interval               time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the email list, paging and filtering from stdin",
		Long:  "Prints one JSON snapshot per change and polls in the background.\n" + watchHelp,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			initial := nonEmpty(map[string]string{
				domain.FilterLimit:    strconv.Itoa(limit),
				domain.FilterStatus:   status,
				domain.FilterPriority: priority,
				domain.FilterFrom:     from,
			})
			return watchList(cmd, a, "emails", a.emails.List, initial, interval)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", domain.DefaultLimit, "page size")
	cmd.Flags().StringVar(&status, "status", "", "filter by processing status")
	cmd.Flags().StringVar(&priority, "priority", "", "filter by priority")
	cmd.Flags().StringVar(&from, "from", "", "filter by sender")
	cmd.Flags().DurationVar(&interval, "interval", listing.DefaultPollInterval, "background poll interval")
	return cmd
}

func newEmailsStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show email counts by status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := a.emails.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats)
		},
	}
}

func newEmailsShowCmd(a *app) *cobra.Command {
	var active int
	cmd := &cobra.Command{
		Use:   "show [trackingId]",
		Short: "Show an email and its extracted orders",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view, err := a.emails.Detail(cmd.Context(), args[0], active)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), view)
		},
	}
	cmd.Flags().IntVar(&active, "active", 0, "index of the order to select")
	return cmd
}

func newEmailsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [trackingId]",
		Short: "Delete an email",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.emails.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]string{"deleted": args[0]})
		},
	}
}

func newEmailsReprocessCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reprocess [trackingId]",
		Short: "Run AI extraction again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outcome, err := a.emails.Reprocess(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), outcome)
		},
	}
}

func newEmailsConvertCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "convert [trackingId]",
		Short: "Mark an email as an order without AI extraction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outcome, err := a.emails.Convert(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), outcome)
		},
	}
}

func newEmailsUploadCmd(a *app) *cobra.Command {
	var (
		req   domain.UploadRequest
		files []string
	)
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Submit a simulated email with attachments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pending := domain.PendingAttachments{MaxSize: domain.MaxFileSize}
			for _, path := range files {
				f, err := readAttachment(path)
				if err != nil {
					return err
				}
				if rejected := pending.Add(f); len(rejected) > 0 {
					return rejected[0]
				}
			}
			req.Attachments = pending.Files()

			result, err := a.uploads.Upload(cmd.Context(), req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVar(&req.From, "from", "", "sender address (required)")
	cmd.Flags().StringVar(&req.To, "to", "", "recipient address")
	cmd.Flags().StringVar(&req.Subject, "subject", "", "subject (required)")
	cmd.Flags().StringVar(&req.Body, "body", "", "plain text body")
	cmd.Flags().StringSliceVarP(&files, "attach", "a", nil, "attachment file path, repeatable")
	return cmd
}

// readAttachment 读取本地文件，按扩展名推断 Content-Type，推断不出时按内容嗅探
func readAttachment(path string) (domain.UploadFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.UploadFile{}, fmt.Errorf("read attachment: %w", err)
	}
	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return domain.UploadFile{
		Filename:    filepath.Base(path),
		ContentType: contentType,
		Size:        int64(len(data)),
		Data:        data,
	}, nil
}
