package reporting

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ducminhle1904/trade-risk-gate/internal/gate"
	"github.com/ducminhle1904/trade-risk-gate/pkg/types"
)

// DefaultConsoleReporter implements console output functionality
type DefaultConsoleReporter struct{}

// NewDefaultConsoleReporter creates a new console reporter
func NewDefaultConsoleReporter() *DefaultConsoleReporter {
	return &DefaultConsoleReporter{}
}

// OutputResult prints one validation result to console
func (r *DefaultConsoleReporter) OutputResult(req types.TradeRequest, result gate.ValidationResult) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("TRADE VALIDATION")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"📊 Symbol", req.Symbol},
		{"↕️ Side", string(req.Side)},
		{"💰 Notional", fmt.Sprintf("$%.2f", req.Notional)},
		{"🎯 Risk Score", fmt.Sprintf("%.1f / 100", result.RiskScore)},
		{"⚖️ Decision", decisionLabel(result)},
		{"⏱ Elapsed", result.Elapsed.String()},
	})

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 15, WidthMax: 15, Align: text.AlignLeft},
		{Number: 2, WidthMin: 30, WidthMax: 50, Align: text.AlignLeft},
	})

	t.Render()
	fmt.Println()

	r.printChecks(result)
	r.printChecklist(result)

	fmt.Printf("💡 %s\n", result.Recommendation)
}

// printChecks renders the per-check breakdown table
func (r *DefaultConsoleReporter) printChecks(result gate.ValidationResult) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("CHECK BREAKDOWN")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Check", "Score", "Passed", "Recommendation"})

	for _, check := range result.Checks {
		passed := "✅"
		if !check.Passed {
			passed = "❌"
		}
		t.AppendRow(table.Row{check.Name, fmt.Sprintf("%.1f", check.Score), passed, check.Recommendation})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, WidthMax: 60},
	})
	t.Render()
	fmt.Println()
}

// printChecklist renders the prevention checklist
func (r *DefaultConsoleReporter) printChecklist(result gate.ValidationResult) {
	if len(result.PreventionChecklist) == 0 {
		return
	}
	fmt.Println("📋 PREVENTION CHECKLIST")
	fmt.Println(strings.Repeat("-", 50))
	for _, item := range result.PreventionChecklist {
		fmt.Printf("  • %s\n", item)
	}
	fmt.Println()
}

// decisionLabel formats the decision with its severity emoji
func decisionLabel(result gate.ValidationResult) string {
	switch result.Decision {
	case gate.DecisionApprove:
		return "✅ APPROVE"
	case gate.DecisionWarn:
		return "⚠️ WARN"
	default:
		if result.CircuitBreached {
			return "🚨 BLOCK (circuit breaker)"
		}
		return "🚨 BLOCK"
	}
}
