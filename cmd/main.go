package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"

	"github.com/xhad/bidwatch/internal/logger"
	"github.com/xhad/bidwatch/internal/models"
	"github.com/xhad/bidwatch/internal/types"
	cfgPkg "github.com/xhad/bidwatch/pkg/config"
	"github.com/xhad/bidwatch/pkg/fetcher"
	"github.com/xhad/bidwatch/pkg/segmenter"
	"github.com/xhad/bidwatch/pkg/store"
	"github.com/xhad/bidwatch/server"
)

type Options struct {
	ConfigPath string
	InputPath  string
	HTML       bool
	Fetch      bool
	DataPath   string
	Region     string
	AllRegions bool
	Serve      bool
	Addr       string
}

func main() {
	opts := parseFlags()

	if err := run(opts); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() Options {
	var opts Options

	flag.StringVar(&opts.ConfigPath, "config", "", "Path to config file")
	flag.StringVar(&opts.InputPath, "input", "", "Path to pasted page content (text or HTML)")
	flag.BoolVar(&opts.HTML, "html", false, "Treat the input file as search-page HTML")
	flag.BoolVar(&opts.Fetch, "fetch", false, "Fetch the search page over HTTP instead of reading a file")
	flag.StringVar(&opts.DataPath, "data", "", "Override the JSON store path")
	flag.StringVar(&opts.Region, "region", "", "Override the configured region filter")
	flag.BoolVar(&opts.AllRegions, "all-regions", false, "Keep records from every region")
	flag.BoolVar(&opts.Serve, "serve", false, "Serve the viewer API instead of ingesting")
	flag.StringVar(&opts.Addr, "addr", "", "Viewer API listen address")
	flag.Parse()

	return opts
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("records"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func run(opts Options) error {
	config, err := cfgPkg.LoadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}
	if opts.DataPath != "" {
		config.Storage.JSONPath = opts.DataPath
	}
	if opts.Region != "" {
		config.Crawler.Region = opts.Region
	}
	if opts.Addr != "" {
		config.Server.Addr = opts.Addr
	}

	if errs := config.Validate(); len(errs) > 0 {
		for _, e := range errs {
			color.Red("config error: %v", e)
		}
		return fmt.Errorf("invalid configuration")
	}

	zlog, err := logger.New(config.Logging.Level)
	if err != nil {
		return err
	}
	defer zlog.Sync()

	st, closeStore, err := openStore(config)
	if err != nil {
		return err
	}
	defer closeStore()

	if opts.Serve {
		srv := server.New(server.Config{Addr: config.Server.Addr}, st, zlog)
		return srv.ListenAndServe()
	}

	records, err := ingest(opts, config, zlog)
	if err != nil {
		return err
	}

	if !opts.AllRegions {
		records = filterProvince(records, config.Crawler.Region)
	}

	zlog.Info("parse.complete",
		zap.Int("total", len(records)),
		zap.String("region", config.Crawler.Region))

	if len(records) == 0 {
		// A run with nothing to ingest is "no matches", not a failure.
		color.Yellow("\n未解析到数据，请检查输入内容格式")
		return nil
	}

	printSummary(records)

	if st.IsFirstRun() {
		now := time.Now()
		metadata := models.RunMetadata{
			LastFullCrawl: &now,
			TotalCount:    len(records),
			Keywords:      config.Crawler.Keywords,
			Region:        config.Crawler.Region,
		}
		if err := st.Save(records, metadata); err != nil {
			zlog.Error("data.save_failed", zap.Error(err))
			return fmt.Errorf("failed to save records: %w", err)
		}
		zlog.Info("data.saved", zap.String("mode", "full"), zap.Int("count", len(records)))
		color.Green("\n✓ 已保存 %d 条数据（全量）", len(records))
		return nil
	}

	added, err := st.Append(records)
	if err != nil {
		zlog.Error("data.append_failed", zap.Error(err))
		return fmt.Errorf("failed to append records: %w", err)
	}
	zlog.Info("data.appended", zap.Int("count", added))
	if added == 0 {
		color.Yellow("\n无新增数据（全部为重复项）")
	} else {
		color.Green("\n✓ 已追加 %d 条新数据", added)
	}
	return nil
}

func openStore(config *cfgPkg.Config) (types.Store, func(), error) {
	if config.Storage.PostgresURL != "" {
		ps, err := store.NewPostgresStore(store.PostgresConfig{
			ConnString: config.Storage.PostgresURL,
			TableName:  config.Storage.PostgresTable,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize postgres store: %w", err)
		}
		return ps, ps.Close, nil
	}

	return store.NewJSONStore(config.Storage.JSONPath), func() {}, nil
}

func ingest(opts Options, config *cfgPkg.Config, zlog *zap.Logger) ([]models.NoticeRecord, error) {
	if opts.Fetch {
		f, err := fetcher.NewWithConfig(fetcher.Config{
			SearchURL:       config.Crawler.SearchURL,
			Keywords:        config.Crawler.Keywords,
			DefaultProvince: config.Crawler.Region,
			RateLimit:       config.Crawler.RateLimit,
			Timeout:         time.Duration(config.Crawler.TimeoutSeconds) * time.Second,
			OnProgress: func(url string) {
				zlog.Info("fetch.page", zap.String("url", url))
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize fetcher: %w", err)
		}
		return f.Fetch(context.Background(), f.SearchURL())
	}

	if opts.InputPath == "" {
		return nil, fmt.Errorf("no input: pass -input <file> or -fetch")
	}

	content, err := os.ReadFile(opts.InputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}

	if opts.HTML {
		f, err := fetcher.NewWithConfig(fetcher.Config{
			SearchURL:       config.Crawler.SearchURL,
			Keywords:        config.Crawler.Keywords,
			DefaultProvince: config.Crawler.Region,
		})
		if err != nil {
			return nil, err
		}
		return f.ParseSearchPage(bytes.NewReader(content))
	}

	seg := segmenter.NewWithConfig(segmenter.Config{
		Keywords:        config.Crawler.Keywords,
		DefaultProvince: config.Crawler.Region,
		SourceURL:       config.Crawler.SearchURL,
	})
	return seg.Parse(string(content)), nil
}

func filterProvince(records []models.NoticeRecord, province string) []models.NoticeRecord {
	if province == "" {
		return records
	}
	kept := make([]models.NoticeRecord, 0, len(records))
	for _, rec := range records {
		if rec.Province == province {
			kept = append(kept, rec)
		}
	}
	return kept
}

func printSummary(records []models.NoticeRecord) {
	regionStats := map[string]int{}
	categoryStats := map[string]int{}

	bar := getProgressBar(len(records), "整理记录...")
	for _, rec := range records {
		regionStats[rec.Province]++
		categoryStats[string(rec.Category)]++
		bar.Add(1)
	}
	bar.Finish()

	color.Green("\n✓ 成功解析 %d 条项目\n", len(records))

	color.Cyan("地区分布：")
	for _, line := range sortedCounts(regionStats) {
		fmt.Println("  " + line)
	}

	color.Cyan("信息类型分布：")
	for _, line := range sortedCounts(categoryStats) {
		fmt.Println("  " + line)
	}

	color.Cyan("前5条项目预览：")
	for i, rec := range records {
		if i >= 5 {
			break
		}
		fmt.Printf("%d. %s\n", i+1, rec.Title)
		fmt.Printf("   类型: %s  地区: %s %s\n", rec.Category, rec.Province, rec.City)
		fmt.Printf("   预算: %s  截止: %s\n", orUnknown(rec.BudgetAmount), orUnknown(rec.BiddingDeadline.String()))
	}
}

func sortedCounts(stats map[string]int) []string {
	type kv struct {
		key   string
		count int
	}
	pairs := make([]kv, 0, len(stats))
	for k, v := range stats {
		pairs = append(pairs, kv{k, v})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].count == pairs[j].count {
			return pairs[i].key < pairs[j].key
		}
		return pairs[i].count > pairs[j].count
	})

	lines := make([]string, 0, len(pairs))
	for _, p := range pairs {
		lines = append(lines, fmt.Sprintf("%s: %d 条", p.key, p.count))
	}
	return lines
}

func orUnknown(s string) string {
	if s == "" {
		return "未知"
	}
	return s
}
