package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/riskibarqy/livescore/internal/app"
	"github.com/riskibarqy/livescore/internal/domain/commentary"
	"github.com/riskibarqy/livescore/internal/domain/match"
	"github.com/riskibarqy/livescore/internal/platform/logging"
	"github.com/riskibarqy/livescore/internal/usecase"
	"github.com/spf13/cobra"
)

var (
	watchOverLimit      int
	watchExitOnComplete bool
)

var watchCmd = &cobra.Command{
	Use:   "watch <matchID>",
	Short: "Follow a match and print the over history on every change",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		feed, err := app.NewFeed(cfg, logger, nil)
		if err != nil {
			return err
		}
		defer feed.Release()

		return runWatch(cmd.Context(), cmd.OutOrStdout(), feed, args[0], watchOptions{
			Cadence:        usecase.NewCadence(app.CadenceConfig(cfg)),
			FetchTimeout:   cfg.FetchTimeout,
			OverLimit:      watchOverLimit,
			ExitOnComplete: watchExitOnComplete,
			Logger:         logger,
		})
	},
}

func init() {
	watchCmd.Flags().IntVarP(&watchOverLimit, "overs", "n", 6, "number of recent overs to print (0 for all)")
	watchCmd.Flags().BoolVar(&watchExitOnComplete, "exit-on-complete", false, "stop once the match is complete")
}

type watchOptions struct {
	Cadence        usecase.Cadence
	FetchTimeout   time.Duration
	OverLimit      int
	ExitOnComplete bool
	Clock          usecase.Clock
	Logger         *logging.Logger
}

// runWatch attaches one visible viewer to matchID and renders every committed
// update until ctx ends.
func runWatch(ctx context.Context, out io.Writer, feed match.Feed, matchID string, opts watchOptions) error {
	log := opts.Logger
	if log == nil {
		log = logging.NewNop()
	}

	registry := usecase.NewWatchRegistry(usecase.WatchRegistryConfig{
		Feed:         feed,
		Cadence:      opts.Cadence,
		FetchTimeout: opts.FetchTimeout,
		Clock:        opts.Clock,
		Logger:       log,
	})
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := registry.Shutdown(shutdownCtx); err != nil {
			log.Warn("watch registry shutdown failed", "error", err)
		}
	}()

	viewer, err := registry.Watch(ctx, matchID, true)
	if err != nil {
		return err
	}
	defer viewer.Close()

	session := viewer.Session()
	updates := make(chan usecase.Update, 1)
	unsubscribe := session.Subscribe(func(update usecase.Update) {
		// Keep only the newest update; each one carries the full state.
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- update:
		default:
		}
	})
	defer unsubscribe()

	printer := newOverPrinter(out, opts.OverLimit)
	if snapshot, ok := session.CurrentSnapshot(); ok {
		if err := printer.printState(snapshot, session.LifecyclePhase(), session.OverHistory()); err != nil {
			return err
		}
		if opts.ExitOnComplete && session.LifecyclePhase() == match.PhaseComplete {
			return nil
		}
	} else if err := session.LoadError(); err != nil {
		if err := printer.printFailure(usecase.Update{Kind: usecase.UpdateLoadFailed, Err: err}); err != nil {
			return err
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-session.Done():
			return usecase.ErrSessionClosed
		case update := <-updates:
			if update.Kind == usecase.UpdateLoadFailed {
				if err := printer.printFailure(update); err != nil {
					return err
				}
				continue
			}
			if err := printer.printState(update.Snapshot, update.Phase, update.Overs); err != nil {
				return err
			}
			if opts.ExitOnComplete && update.Phase == match.PhaseComplete {
				return nil
			}
		}
	}
}

type overPrinter struct {
	out   io.Writer
	limit int

	header   lipgloss.Style
	wicket   lipgloss.Style
	boundary lipgloss.Style
	failure  lipgloss.Style
}

func newOverPrinter(out io.Writer, limit int) *overPrinter {
	// Colors are only emitted when out is a terminal.
	renderer := lipgloss.NewRenderer(out)
	return &overPrinter{
		out:      out,
		limit:    limit,
		header:   renderer.NewStyle().Bold(true),
		wicket:   renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff5555")),
		boundary: renderer.NewStyle().Foreground(lipgloss.Color("#50fa7b")),
		failure:  renderer.NewStyle().Foreground(lipgloss.Color("#ffb86c")),
	}
}

func (p *overPrinter) printState(snapshot match.Snapshot, phase match.Phase, overs []commentary.Over) error {
	if _, err := fmt.Fprintln(p.out, p.header.Render(headline(snapshot, phase))); err != nil {
		return err
	}
	if snapshot.Header.Status != "" {
		fmt.Fprintln(p.out, snapshot.Header.Status)
	}

	if len(overs) == 0 {
		_, err := fmt.Fprintln(p.out, "no overs yet")
		return err
	}
	if p.limit > 0 && len(overs) > p.limit {
		overs = overs[:p.limit]
	}

	w := tabwriter.NewWriter(p.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "OVER\tBOWLER\tBALLS\tRUNS\tSCORE\t")
	for _, over := range overs {
		marker := ""
		if over.InProgress {
			marker = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d/%d\t%s\n",
			commentary.FormatOverNumber(over.Number),
			over.Bowler,
			p.balls(over),
			over.OverRuns,
			over.CumulativeScore,
			over.CumulativeWickets,
			marker,
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(p.out)
	return err
}

func (p *overPrinter) printFailure(update usecase.Update) error {
	msg := "provider unavailable"
	if update.Err != nil {
		msg = update.Err.Error()
	}
	_, err := fmt.Fprintln(p.out, p.failure.Render("load failed: "+msg))
	return err
}

// balls renders the over's deliveries, falling back to the provider summary
// for overs rebuilt without ball commentary.
func (p *overPrinter) balls(over commentary.Over) string {
	if len(over.Balls) == 0 {
		return over.Summary
	}
	tokens := make([]string, 0, len(over.Balls))
	for _, ball := range over.Balls {
		token := ball.Token
		switch {
		case ball.Wicket:
			token = p.wicket.Render(token)
		case !ball.IsExtra() && (ball.Runs == 4 || ball.Runs == 6):
			token = p.boundary.Render(token)
		}
		tokens = append(tokens, token)
	}
	return strings.Join(tokens, " ")
}

func headline(snapshot match.Snapshot, phase match.Phase) string {
	h := snapshot.Header
	title := fmt.Sprintf("%s v %s", teamLabel(h.Team1.ShortName, h.Team1.Name), teamLabel(h.Team2.ShortName, h.Team2.Name))
	if !snapshot.HasInnings() {
		return fmt.Sprintf("%s [%s]", title, phase)
	}
	live := snapshot.Live
	return fmt.Sprintf("%s [%s] %s %d/%d (%s ov)", title, phase, live.BattingTeam, live.Score, live.Wickets, live.Overs)
}
