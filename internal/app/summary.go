package app

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"lighterdash/internal/market"
)

type StartupSummary struct {
	Env             string
	HTTPAddr        string
	EngineBase      string
	StreamURL       string
	AccountInterval time.Duration
	MarketsInterval time.Duration
	DefaultQuery    market.Query
	Presets         []string
	AccountDB       string
	MarketDB        string
	Retention       time.Duration
}

func (s *StartupSummary) Print() {
	s.Fprint(os.Stdout)
}

func (s *StartupSummary) Fprint(w io.Writer) {
	if s == nil {
		return
	}
	title := "启动配置摘要 (STARTUP SUMMARY)"
	fmt.Fprintln(w, strings.Repeat("=", 80))
	fmt.Fprintf(w, "%*s\n", 40+len(title)/2, title)
	fmt.Fprintln(w, strings.Repeat("=", 80))

	fmt.Fprintln(w, "[引擎 (ENGINE)]")
	fmt.Fprintf(w, "  环境: %s\n", fallbackText(s.Env))
	fmt.Fprintf(w, "  REST: %s\n", fallbackText(s.EngineBase))
	if s.StreamURL != "" {
		fmt.Fprintf(w, "  行情流: %s\n", s.StreamURL)
	} else {
		fmt.Fprintln(w, "  行情流: (关闭)")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[刷新 (REFRESH)]")
	fmt.Fprintf(w, "  账户: 每 %s\n", s.AccountInterval)
	fmt.Fprintf(w, "  行情: 每 %s\n", s.MarketsInterval)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[行情视图 (MARKETS VIEW)]")
	q := s.DefaultQuery
	fmt.Fprintf(w, "  默认排序: %s %s\n", fallbackText(string(q.SortKey)), q.SortDir)
	fmt.Fprintf(w, "  默认过滤: %s\n", q.Filter)
	fmt.Fprintf(w, "  预设: %s\n", formatList(s.Presets))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "[存储 (STORAGE)]")
	if s.AccountDB == "" {
		fmt.Fprintln(w, "  (未启用)")
	} else {
		fmt.Fprintf(w, "  账户快照: %s\n", s.AccountDB)
		fmt.Fprintf(w, "  行情磁带: %s\n", s.MarketDB)
		fmt.Fprintf(w, "  保留时长: %s\n", s.Retention)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "  HTTP: %s\n", fallbackText(s.HTTPAddr))
	fmt.Fprintln(w, strings.Repeat("=", 80))
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "(无)"
	}
	return strings.Join(items, ", ")
}

func fallbackText(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}
