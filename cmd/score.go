package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ioc-radar/backend/internal/model"
	"github.com/ioc-radar/backend/internal/relevance"
)

type scoreOptions struct {
	alertsPath  string
	iocsPath    string
	industry    string
	rangeValue  string
	page        int
	pageSize    int
	profilePath string
}

// scoreResult - score 명령 출력
type scoreResult struct {
	Items    []model.ScoredAlert  `json:"items"`
	Page     model.PageInfo       `json:"page"`
	Stats    model.DashboardStats `json:"stats"`
	Industry string               `json:"industry,omitempty"`
	Range    string               `json:"range"`
}

var scoreOpts scoreOptions

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Rank alerts from JSON files against a set of IOCs",
	Long: `Offline ranking using the same scoring rules as the personalized dashboard.
--alerts is a JSON array of alerts ({id, summary, description, cvss, published})
and --iocs a JSON array of IOCs ({ip, server, os, security_solutions}).
The selected page is printed as JSON on stdout.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScore(scoreOpts, time.Now(), cmd.OutOrStdout())
	},
}

func init() {
	f := scoreCmd.Flags()
	f.StringVar(&scoreOpts.alertsPath, "alerts", "", "Path to a JSON array of alerts")
	f.StringVar(&scoreOpts.iocsPath, "iocs", "", "Path to a JSON array of IOCs")
	f.StringVar(&scoreOpts.industry, "industry", "", "Client industry for the industry bonus")
	f.StringVar(&scoreOpts.rangeValue, "range", "all", "Date range: today, week, month, year or all")
	f.IntVar(&scoreOpts.page, "page", 1, "Page number (1-based)")
	f.IntVar(&scoreOpts.pageSize, "page-size", relevance.DefaultPageSize, "Items per page (max 100)")
	f.StringVar(&scoreOpts.profilePath, "profile", "", "Scoring profile YAML (defaults to built-in weights)")
	_ = scoreCmd.MarkFlagRequired("alerts")
	_ = scoreCmd.MarkFlagRequired("iocs")
	rootCmd.AddCommand(scoreCmd)
}

func runScore(opts scoreOptions, now time.Time, out io.Writer) error {
	r, err := relevance.ParseRange(opts.rangeValue)
	if err != nil {
		return err
	}
	profile, err := relevance.LoadProfile(opts.profilePath)
	if err != nil {
		return err
	}

	var alerts []model.Alert
	if err := readJSONFile(opts.alertsPath, &alerts); err != nil {
		return err
	}
	var iocs []model.IOC
	if err := readJSONFile(opts.iocsPath, &iocs); err != nil {
		return err
	}

	industry := relevance.NormalizeIndustry(opts.industry)
	keywords := relevance.ExtractKeywords(iocs)
	ranked := relevance.NewScorer(profile).Rank(alerts, keywords, industry)
	ranked = relevance.FilterByRange(ranked, r, now)

	stats := model.DashboardStats{
		TotalIOCs:      len(iocs),
		TotalAlerts:    len(relevance.FilterByRange(alerts, r, now)),
		RelevantAlerts: len(ranked),
	}
	for _, a := range ranked {
		stats.Severity.Add(a.CVSS)
	}

	p := relevance.Paginate(ranked, opts.page, opts.pageSize)
	result := scoreResult{
		Items: p.Items,
		Page: model.PageInfo{
			Page:       p.Page,
			PageSize:   p.PageSize,
			Total:      p.Total,
			TotalPages: p.TotalPages,
		},
		Stats:    stats,
		Industry: industry,
		Range:    string(r),
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// readJSONFile - 읽기/파싱 오류는 파일 경로와 함께 반환
func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
