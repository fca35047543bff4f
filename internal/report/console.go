package report

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"tabot/internal/execution"
	"tabot/internal/model"
	"tabot/internal/strategy"
)

// Console renders the loop as plain text tables.
type Console struct {
	mu sync.Mutex
	w  io.Writer

	// Verbose also prints progress and votes that did not trade.
	Verbose bool
}

// NewConsole writes to w (usually os.Stdout).
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func money(v float64) string { return humanize.CommafWithDigits(v, 2) }

func (c *Console) Snapshot(ctx context.Context, s strategy.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sum := s.Summary
	fmt.Fprintf(c.w, "\n%s  %s @ %s  next close %s\n",
		s.Strategy, strings.ToUpper(string(s.Market)), s.Timeframe, humanize.Time(s.NextClose))

	tw := tabwriter.NewWriter(c.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ASSET\tWALLET\tAVAILABLE\tUNREALIZED\tEQUITY\tPOSITIONS")
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n", sum.Asset, money(sum.WalletBalance),
		money(sum.AvailableBalance), money(sum.UnrealizedPnL), money(sum.Equity), sum.OpenPositions)
	tw.Flush()

	if len(sum.Positions) == 0 {
		return
	}
	tw = tabwriter.NewWriter(c.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tSIDE\tQTY\tENTRY\tMARK\tPNL")
	for _, p := range sum.Positions {
		fmt.Fprintf(tw, "%s\t%s\t%g\t%g\t%g\t%s\n", p.Symbol, p.Direction.Side(), p.Quantity,
			p.EntryPrice, p.MarkPrice, money(p.UnrealizedPnL()))
	}
	tw.Flush()
}

func (c *Console) Progress(ctx context.Context, p strategy.Progress) {
	if !c.Verbose {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, "  [%d/%d] %s\n", p.Index+1, p.Total, p.Symbol)
}

func (c *Console) Decision(ctx context.Context, d strategy.Decision) {
	if d.Outcome == strategy.OutcomeHold && (d.Vote.Value == 0 || !c.Verbose) {
		return
	}
	if d.Outcome == strategy.OutcomeSkipped && !c.Verbose {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, "  "+formatDecision(d))
}

func formatDecision(d strategy.Decision) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s :: ", d.Symbol)
	if len(d.Vote.Reasons) > 0 {
		b.WriteString(strings.Join(d.Vote.Reasons, " ** "))
		b.WriteString("  ")
	}
	fmt.Fprintf(&b, "vote %+.2f", d.Vote.Value)

	switch d.Outcome {
	case strategy.OutcomeError:
		fmt.Fprintf(&b, "  => error: %s", d.ErrText())
	case strategy.OutcomeSkipped:
		fmt.Fprintf(&b, "  => skipped: %s", d.Reason)
	case strategy.OutcomeHold:
		b.WriteString("  => hold")
	case strategy.OutcomeTraded:
		action := "Buy"
		if d.Vote.Direction() == model.Bearish {
			action = "Sell"
		}
		r := d.Result
		fmt.Fprintf(&b, "  => %s %s", action, r.Status)
		if r.Status == execution.StatusPlaced {
			fmt.Fprintf(&b, " qty %g @ %g sl %g tp %g", r.Quantity, r.Reference, r.Levels.StopLoss, r.Levels.TakeProfit)
		} else if d.Err != nil {
			fmt.Fprintf(&b, ": %s", d.ErrText())
		}
	}
	return b.String()
}
