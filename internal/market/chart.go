package market

import (
	"bytes"
	"fmt"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

const (
	colorBackground    = "#060c1b"
	colorTextPrimary   = "#eceff4"
	colorTextSecondary = "#9ca3af"
	colorBull          = "#34d399"
	colorBear          = "#f87171"
	colorFlat          = "#a78bfa"

	chartWidthPx  = 1200
	chartHeightPx = 420
)

// BuildVolumeChart plots the topN markets by 24h volume, colored by 24h change.
func BuildVolumeChart(rows []Row, topN int) *charts.Bar {
	ranked := ApplyView(rows, Query{SortKey: SortVolume24hUSD, SortDir: Desc})
	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeWesteros,
			Width:           fmt.Sprintf("%dpx", chartWidthPx),
			Height:          fmt.Sprintf("%dpx", chartHeightPx),
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:      fmt.Sprintf("Top %d markets by 24h volume", len(ranked)),
			Left:       "left",
			TitleStyle: &opts.TextStyle{Color: colorTextPrimary},
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{
			AxisLabel: &opts.AxisLabel{Show: opts.Bool(true), Color: colorTextSecondary, Rotate: 45},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			AxisLabel: &opts.AxisLabel{Show: opts.Bool(true), Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.15)}},
		}),
	)
	xAxis := make([]string, len(ranked))
	vols := make([]opts.BarData, len(ranked))
	for i, r := range ranked {
		xAxis[i] = r.Symbol
		color := colorFlat
		switch ChangeTier(r.Change24hPct) {
		case TierPositive:
			color = colorBull
		case TierNegative:
			color = colorBear
		}
		vols[i] = opts.BarData{
			Name:  FormatUSDMagnitude(r.Volume24hUSD),
			Value: r.Volume24hUSD,
			ItemStyle: &opts.ItemStyle{
				Color:   color,
				Opacity: opts.Float(0.8),
			},
		}
	}
	bar.SetXAxis(xAxis)
	bar.AddSeries("Volume 24h", vols)
	return bar
}

// RenderVolumeChart returns the chart as a standalone HTML page.
func RenderVolumeChart(rows []Row, topN int) ([]byte, error) {
	var buf bytes.Buffer
	if err := BuildVolumeChart(rows, topN).Render(&buf); err != nil {
		return nil, fmt.Errorf("render volume chart: %w", err)
	}
	return buf.Bytes(), nil
}
