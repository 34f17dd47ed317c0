package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/wonny/tradegate/internal/contracts"
	"github.com/wonny/tradegate/internal/signals"
)

// Common output helpers so every command prints the same way

const (
	doubleLine = "═══════════════════════════════════════════════════════════"
	singleLine = "───────────────────────────────────────────────────────────"
)

// PrintHeader prints a boxed title
func PrintHeader(w io.Writer, title string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, doubleLine)
	fmt.Fprintf(w, "  %s\n", title)
	fmt.Fprintln(w, singleLine)
}

// PrintSeparator prints a visual separator
func PrintSeparator(w io.Writer) {
	fmt.Fprintln(w, singleLine)
}

// PrintWarning prints a warning message
func PrintWarning(w io.Writer, message string) {
	fmt.Fprintf(w, "⚠️  %s\n", message)
}

// PrintSuccess prints a success message
func PrintSuccess(w io.Writer, message string) {
	fmt.Fprintf(w, "✅ %s\n", message)
}

// PrintFailure prints a failure message
func PrintFailure(w io.Writer, message string) {
	fmt.Fprintf(w, "❌ %s\n", message)
}

// writeJSON prints v as indented JSON
func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printDecision renders a composite signal and its risk verdict
func printDecision(w io.Writer, sig *contracts.CompositeSignal, ra *contracts.RiskAssessment) {
	PrintHeader(w, fmt.Sprintf("%s %s @ %s", sig.Symbol, sig.Timeframe, sig.AsOf.Format("2006-01-02 15:04")))

	fmt.Fprintf(w, "  Direction  : %s (strength %.2f, confidence %.2f)\n", sig.Direction, sig.Strength, sig.Confidence)
	fmt.Fprintf(w, "  Volatility : %s\n", sig.Volatility)
	fmt.Fprintf(w, "  Order      : %s\n", sig.OrderType)
	if sig.Exits != nil {
		fmt.Fprintf(w, "  Stop-loss  : %.4f (%.2f%%)\n", sig.Exits.StopLossPrice, sig.Exits.StopLossDistance*100)
		fmt.Fprintf(w, "  Take-profit: %.4f (%.2f%%)\n", sig.Exits.TakeProfitPrice, sig.Exits.TakeProfitDistance*100)
	}

	PrintSeparator(w)
	sources := make([]string, 0, len(sig.Reasoning.Components))
	for src := range sig.Reasoning.Components {
		sources = append(sources, string(src))
	}
	sort.Strings(sources)
	for _, src := range sources {
		c := sig.Reasoning.Components[contracts.Source(src)]
		if !c.Available {
			fmt.Fprintf(w, "  %-10s : unavailable (%s)\n", src, c.Note)
			continue
		}
		fmt.Fprintf(w, "  %-10s : %s conf %.2f weight %.2f\n", src, c.Direction, c.Confidence, c.Weight)
	}
	fmt.Fprintf(w, "  Scores     : buy %.3f sell %.3f hold %.3f\n",
		sig.Reasoning.BuyScore, sig.Reasoning.SellScore, sig.Reasoning.HoldScore)

	PrintSeparator(w)
	if ra.Approved {
		PrintSuccess(w, ra.Reason)
		fmt.Fprintf(w, "  Size       : %.4f of equity (%.2f)\n", ra.RecommendedSize, ra.TradeValue)
		fmt.Fprintf(w, "  Venues     : %s\n", strings.Join(ra.ApprovedVenues, ", "))
	} else {
		PrintFailure(w, fmt.Sprintf("%s [%s]", ra.Reason, ra.Gate))
	}
	fmt.Fprintf(w, "  Risk level : %s (quality %.2f)\n", ra.RiskLevel, ra.SignalQuality)
	for _, c := range ra.Conditions {
		fmt.Fprintf(w, "  - %s\n", c)
	}
	fmt.Fprintln(w, doubleLine)
}

// printVerdict renders the technical verdict
func printVerdict(w io.Writer, series *contracts.PriceSeries, v signals.Verdict) {
	PrintHeader(w, fmt.Sprintf("%s %s: %d bars", series.Symbol, series.Timeframe, series.Len()))

	keys := make([]string, 0, len(v.Values))
	for k := range v.Values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-13s: %.4f\n", k, v.Values[k])
	}

	PrintSeparator(w)
	for _, s := range v.Components {
		fmt.Fprintf(w, "  %-18s %-5s strength %.2f  %s\n", s.Source, s.Direction, s.Strength, s.Reason)
	}

	if len(v.Patterns) > 0 {
		PrintSeparator(w)
		for _, p := range v.Patterns {
			fmt.Fprintf(w, "  %-22s bias %-5s conf %.2f bars %d-%d\n", p.Type, p.Bias, p.Confidence, p.Start, p.End)
		}
	}

	PrintSeparator(w)
	if v.Available {
		fmt.Fprintf(w, "  Technical  : %s (strength %.2f, confidence %.2f)\n", v.Signal.Direction, v.Signal.Strength, v.Signal.Confidence)
	} else {
		PrintWarning(w, "technical verdict unavailable: "+v.Signal.Reason)
	}
	fmt.Fprintln(w, doubleLine)
}

// writeCompactJSON prints v as a single JSON line
func writeCompactJSON(w io.Writer, v interface{}) error {
	return json.NewEncoder(w).Encode(v)
}
