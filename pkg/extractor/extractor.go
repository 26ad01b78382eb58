// Package extractor pulls typed fields out of one record's body lines.
//
// The listing rows are loosely formatted label:value fragments; every
// rule here is independent and order-insensitive across lines, and a
// value that fails to parse leaves its field empty instead of dropping
// the record.
package extractor

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xhad/bidwatch/internal/models"
)

// Provinces is the fixed set of first-level administrative regions. A
// body line consisting of exactly one of these sets the record's
// province.
var Provinces = []string{
	"四川", "北京", "上海", "天津", "重庆", "河北", "山西", "辽宁", "吉林",
	"黑龙江", "江苏", "浙江", "安徽", "福建", "江西", "山东", "河南", "湖北",
	"湖南", "广东", "海南", "贵州", "云南", "陕西", "甘肃", "青海", "台湾",
	"内蒙古", "广西", "西藏", "宁夏", "新疆",
}

// DefaultCities are the city names scanned for in titles when no
// explicit region signal exists. First match in list order wins.
var DefaultCities = []string{
	"成都", "绵阳", "德阳", "眉山", "乐山", "南充", "宜宾", "泸州", "达州",
	"内江", "自贡", "攀枝花", "广元", "遂宁", "广安", "雅安", "巴中", "资阳",
	"凉山", "甘孜", "阿坝",
}

var (
	budgetPattern   = regexp.MustCompile(`采购预算：(\S+)`)
	awardPattern    = regexp.MustCompile(`中标金额：(\S+)`)
	methodPattern   = regexp.MustCompile(`采购方式：(\S+)`)
	deadlinePattern = regexp.MustCompile(`截止时间：(\S+)`)
	awardDatePat    = regexp.MustCompile(`中标日期：(\S+)`)

	isoDatePattern  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	cnDatePattern   = regexp.MustCompile(`(\d{4})年(\d{1,2})月(\d{1,2})日`)
	bareDatePattern = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})$`)
)

type Config struct {
	DefaultProvince string
	Cities          []string
}

type Extractor struct {
	config    Config
	provinces map[string]struct{}
}

func NewWithConfig(config Config) *Extractor {
	if config.DefaultProvince == "" {
		config.DefaultProvince = "四川"
	}
	if len(config.Cities) == 0 {
		config.Cities = DefaultCities
	}

	provinces := make(map[string]struct{}, len(Provinces))
	for _, p := range Provinces {
		provinces[p] = struct{}{}
	}

	return &Extractor{config: config, provinces: provinces}
}

// ParseDate parses the two accepted date forms: numeric YYYY-MM-DD
// (first 10 characters) and the 年月日 form. The second return value
// is false when neither matches; callers leave the field empty.
func ParseDate(s string) (models.Date, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return models.Date{}, false
	}

	if isoDatePattern.MatchString(s) {
		if t, err := time.Parse("2006-01-02", s[:10]); err == nil {
			return models.Date{Time: t}, true
		}
	}

	if m := cnDatePattern.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		if month >= 1 && month <= 12 && day >= 1 && day <= 31 {
			return models.NewDate(year, time.Month(month), day), true
		}
	}

	return models.Date{}, false
}

// parseDeadline keeps the 详见内容 sentinel verbatim; any other
// unparseable value yields an empty deadline.
func parseDeadline(value string) models.Deadline {
	if d, ok := ParseDate(value); ok {
		return models.Deadline{Date: d}
	}
	if value == models.SeeDetails {
		return models.DeadlineFromRaw(value)
	}
	return models.Deadline{}
}

// budgetLabels returns the budget label patterns in precedence order
// for the record's category.
func budgetLabels(category models.Category) []*regexp.Regexp {
	if category == models.CategoryAwardResult {
		return []*regexp.Regexp{awardPattern, budgetPattern}
	}
	return []*regexp.Regexp{budgetPattern, awardPattern}
}

// Apply extracts budget, procurement method, deadline, province and
// publish date from the body lines into rec. First match wins for
// every field; later lines never overwrite an already-set value.
func (e *Extractor) Apply(rec *models.NoticeRecord, lines []string) {
	budgets := budgetLabels(rec.Category)

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if rec.BudgetAmount == "" {
			for _, pattern := range budgets {
				if m := pattern.FindStringSubmatch(line); m != nil {
					rec.BudgetAmount = m[1]
					break
				}
			}
		}

		if rec.ProcurementType == "" {
			if m := methodPattern.FindStringSubmatch(line); m != nil {
				rec.ProcurementType = m[1]
			}
		}

		if rec.BiddingDeadline.IsZero() {
			if m := deadlinePattern.FindStringSubmatch(line); m != nil {
				rec.BiddingDeadline = parseDeadline(m[1])
			} else if m := awardDatePat.FindStringSubmatch(line); m != nil {
				rec.BiddingDeadline = parseDeadline(m[1])
			}
		}

		if rec.Province == "" {
			if _, ok := e.provinces[line]; ok {
				rec.Province = line
			}
		}

		if rec.PublishDate.IsZero() {
			if m := bareDatePattern.FindStringSubmatch(line); m != nil {
				if d, ok := ParseDate(m[1]); ok {
					rec.PublishDate = d
				}
			}
		}
	}

	if rec.Province == "" {
		rec.Province = e.config.DefaultProvince
	}
	if rec.City == "" {
		rec.City = e.CityFromTitle(rec.Title)
	}
}

// CityFromTitle scans the title for known city-name substrings. The
// first hit in list order wins; no hit leaves the city empty.
func (e *Extractor) CityFromTitle(title string) string {
	for _, city := range e.config.Cities {
		if strings.Contains(title, city) {
			return city
		}
	}
	return ""
}
