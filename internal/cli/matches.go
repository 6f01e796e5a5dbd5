package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/riskibarqy/livescore/internal/app"
	"github.com/riskibarqy/livescore/internal/usecase"
	"github.com/spf13/cobra"
)

var matchesCmd = &cobra.Command{
	Use:   "matches",
	Short: "List current and upcoming matches",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		feed, err := app.NewFeed(cfg, logger, nil)
		if err != nil {
			return err
		}
		defer feed.Release()

		service := usecase.NewMatchService(feed, nil, usecase.MatchServiceConfig{ListingTTL: cfg.ListingCacheTTL}, logger)
		return printMatches(cmd.Context(), cmd.OutOrStdout(), service)
	},
}

func printMatches(ctx context.Context, out io.Writer, service *usecase.MatchService) error {
	items, err := service.ListMatches(ctx)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		_, err := fmt.Fprintln(out, "no matches")
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPHASE\tMATCH\tFORMAT\tSTATUS")
	for _, item := range items {
		fmt.Fprintf(w, "%s\t%s\t%s v %s\t%s\t%s\n",
			item.MatchID,
			item.Phase(),
			teamLabel(item.Team1.ShortName, item.Team1.Name),
			teamLabel(item.Team2.ShortName, item.Team2.Name),
			item.Format,
			item.Status,
		)
	}
	return w.Flush()
}

func teamLabel(short, name string) string {
	if short != "" {
		return short
	}
	if name != "" {
		return name
	}
	return "TBA"
}
