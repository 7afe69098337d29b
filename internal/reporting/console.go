package reporting

import (
	"fmt"
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// ConsoleReporter renders the end-of-day summary tables.
type ConsoleReporter struct{}

func NewConsoleReporter() *ConsoleReporter {
	return &ConsoleReporter{}
}

// PrintDailySummary renders the day's aggregate and per-strategy tables.
func (r *ConsoleReporter) PrintDailySummary(sum Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("DAILY SUMMARY")
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"🔄 Total Trades", sum.TotalTrades},
		{"✅ Winning Trades", fmt.Sprintf("%d (%.1f%%)", sum.WinningTrades, sum.WinRate())},
		{"❌ Losing Trades", sum.LosingTrades},
		{"💰 Total P&L", fmt.Sprintf("$%s", sum.TotalPnL.StringFixed(2))},
	})

	if sum.TotalTrades > 0 {
		t.AppendSeparator()
		t.AppendRows([]table.Row{
			{"📈 Best Trade", fmt.Sprintf("$%s", sum.BestTrade.StringFixed(2))},
			{"📉 Worst Trade", fmt.Sprintf("$%s", sum.WorstTrade.StringFixed(2))},
		})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 18, WidthMax: 18, Align: text.AlignLeft},
		{Number: 2, WidthMin: 20, WidthMax: 30, Align: text.AlignLeft},
	})

	t.Render()
	fmt.Println()

	if len(sum.ByStrategy) == 0 {
		return
	}

	st := table.NewWriter()
	st.SetOutputMirror(os.Stdout)
	st.SetTitle("BY STRATEGY")
	st.SetStyle(table.StyleRounded)
	st.AppendHeader(table.Row{"Strategy", "Trades", "Wins", "P&L"})

	names := make([]string, 0, len(sum.ByStrategy))
	for name := range sum.ByStrategy {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ss := sum.ByStrategy[name]
		st.AppendRow(table.Row{name, ss.Trades, ss.Wins, fmt.Sprintf("$%s", ss.PnL.StringFixed(2))})
	}

	st.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
	})

	st.Render()
	fmt.Println()
}
