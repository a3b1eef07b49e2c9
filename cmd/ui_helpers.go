// Copyright (c) 2025 LOXTR
// Licensed under the MIT License. See LICENSE file in the project root for details.

package cmd

import (
	"fmt"
	"io"
	"sync"
	"time"

	"atomicgo.dev/cursor"
	"github.com/pterm/pterm"

	"loxtr/console/internal/credits"
)

var (
	spinnerFrames = []string{"|", "/", "-", "\\"}
	brailleFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
)

// startInlineSpinner animates frames followed by text on a single line until
// the returned stop function is called; stop clears the line.
func startInlineSpinner(w io.Writer, text string, frames []string, interval time.Duration) func() {
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		i := 0
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			line := fmt.Sprintf("%s %s", frames[i%len(frames)], text)
			select {
			case <-stop:
				fmt.Fprintf(w, "\r%*s\r", len(line), "")
				return
			case <-ticker.C:
				fmt.Fprintf(w, "\r%s", line)
				i++
			}
		}
	}()
	return func() {
		close(stop)
		wg.Wait()
	}
}

// pendingArea is a removable multi-line area with a spinner, shown while an
// enrichment step runs. Messages rotate every tick.
type pendingArea struct {
	area *pterm.AreaPrinter
	stop chan struct{}
	wg   sync.WaitGroup
}

func startPendingArea(messages []string) *pendingArea {
	p := &pendingArea{stop: make(chan struct{})}
	cursor.Hide()
	area, err := pterm.DefaultArea.WithRemoveWhenDone(true).Start()
	if err != nil {
		cursor.Show()
		return p
	}
	p.area = area
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		t := time.NewTicker(120 * time.Millisecond)
		defer t.Stop()
		i := 0
		for {
			select {
			case <-t.C:
				i++
				msg := messages[(i/7)%len(messages)]
				area.Update(pterm.NewStyle(pterm.FgLightCyan).Sprintf("%s %s", brailleFrames[i%len(brailleFrames)], msg))
			case <-p.stop:
				return
			}
		}
	}()
	return p
}

func (p *pendingArea) Stop() {
	if p.area == nil {
		return
	}
	close(p.stop)
	p.wg.Wait()
	p.area.Stop()
	p.area = nil
	cursor.Show()
}

func bandStyle(b credits.Band) *pterm.Style {
	switch b {
	case credits.BandGreen:
		return pterm.NewStyle(pterm.FgGreen, pterm.Bold)
	case credits.BandYellow:
		return pterm.NewStyle(pterm.FgYellow, pterm.Bold)
	default:
		return pterm.NewStyle(pterm.FgRed, pterm.Bold)
	}
}

func printBalance(b credits.Balance) {
	style := bandStyle(credits.BandFor(b.Current, b.Limit))
	pterm.Println(pterm.NewStyle(pterm.FgLightCyan).Sprint("→ Credits: ") +
		style.Sprintf("%d", b.Current) + fmt.Sprintf(" / %d (%s plan)", b.Limit, b.Plan))
	rows := [][]string{
		{"Used today", "Used this week", "Used this month", "Remaining this month"},
		{
			fmt.Sprint(b.Stats.UsedToday),
			fmt.Sprint(b.Stats.UsedThisWeek),
			fmt.Sprint(b.Stats.UsedThisMonth),
			fmt.Sprint(b.Stats.RemainingThisMonth),
		},
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
	if !b.NextRefillDate.IsZero() {
		pterm.Println("  Next refill: " + b.NextRefillDate.Format("2 Jan 2006"))
	}
	switch {
	case b.Warnings.ZeroBalance:
		pterm.Error.Println("You are out of credits.")
	case b.Warnings.LowBalance:
		pterm.Warning.Println("Your credit balance is low.")
	}
	if b.Warnings.HighUsage {
		pterm.Info.Println("Usage this month is higher than usual.")
	}
}

func printUpgradePrompt(p credits.UpgradePrompt) {
	pterm.DefaultBox.
		WithTitle(pterm.NewStyle(pterm.FgYellow, pterm.Bold).Sprint("Upgrade required")).
		Println(p.Message)
}
