package extractor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/xhad/bidwatch/internal/models"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"iso", "2026-02-06", "2026-02-06", true},
		{"iso with time", "2026-02-06 17:00", "2026-02-06", true},
		{"chinese", "2026年2月6日", "2026-02-06", true},
		{"chinese padded", "2026年12月31日", "2026-12-31", true},
		{"sentinel", "详见内容", "", false},
		{"garbage", "尽快", "", false},
		{"empty", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := ParseDate(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, d.Format("2006-01-02"))
			} else {
				assert.True(t, d.IsZero())
			}
		})
	}
}

func TestApplyExtractsFields(t *testing.T) {
	e := NewWithConfig(Config{})
	rec := models.NoticeRecord{Category: models.CategoryTenderAnnouncement, Title: "某项目"}

	e.Apply(&rec, []string{
		"采购预算：27218.16万元",
		"采购方式：比选 截止时间：2026-02-06",
		"四川",
		"2026-02-02",
	})

	assert.Equal(t, "27218.16万元", rec.BudgetAmount)
	assert.Equal(t, "比选", rec.ProcurementType)
	assert.Equal(t, "2026-02-06", rec.BiddingDeadline.Date.Format("2006-01-02"))
	assert.Equal(t, "四川", rec.Province)
	assert.Equal(t, "2026-02-02", rec.PublishDate.Format("2006-01-02"))
}

func TestApplyAwardCategoryPrefersAwardAmount(t *testing.T) {
	e := NewWithConfig(Config{})
	rec := models.NoticeRecord{Category: models.CategoryAwardResult, Title: "某项目"}

	e.Apply(&rec, []string{"中标金额：5万元"})

	assert.Equal(t, "5万元", rec.BudgetAmount)
}

func TestApplyFirstMatchWins(t *testing.T) {
	e := NewWithConfig(Config{})
	rec := models.NoticeRecord{Category: models.CategoryTenderAnnouncement, Title: "某项目"}

	e.Apply(&rec, []string{
		"采购预算：10万元",
		"采购预算：99万元",
	})

	assert.Equal(t, "10万元", rec.BudgetAmount)
}

func TestApplyKeepsSentinelVerbatim(t *testing.T) {
	e := NewWithConfig(Config{})
	rec := models.NoticeRecord{Category: models.CategoryTenderAnnouncement, Title: "某项目"}

	e.Apply(&rec, []string{"截止时间：详见内容"})

	assert.Equal(t, models.SeeDetails, rec.BiddingDeadline.Raw)
	assert.Equal(t, models.SeeDetails, rec.BiddingDeadline.String())
	assert.True(t, rec.BiddingDeadline.Date.IsZero())
}

func TestApplyUnparseableDeadlineLeftEmpty(t *testing.T) {
	e := NewWithConfig(Config{})
	rec := models.NoticeRecord{Category: models.CategoryTenderAnnouncement, Title: "某项目"}

	e.Apply(&rec, []string{"截止时间：尽快"})

	assert.True(t, rec.BiddingDeadline.IsZero())
}

func TestApplyDefaultsProvince(t *testing.T) {
	e := NewWithConfig(Config{DefaultProvince: "广东"})
	rec := models.NoticeRecord{Category: models.CategoryTenderAnnouncement, Title: "某项目"}

	e.Apply(&rec, []string{"采购预算：10万元"})

	assert.Equal(t, "广东", rec.Province)
}

func TestCityFromTitle(t *testing.T) {
	e := NewWithConfig(Config{})

	assert.Equal(t, "成都", e.CityFromTitle("成都市锦江区文化宣传栏采购项目"))
	assert.Equal(t, "绵阳", e.CityFromTitle("绵阳市涪城区户外广告牌制作安装项目"))
	assert.Empty(t, e.CityFromTitle("某县道路施工项目"))
}

func TestCityFromTitleListOrderWins(t *testing.T) {
	e := NewWithConfig(Config{Cities: []string{"成都", "眉山"}})

	// Both names occur; the first configured city wins.
	assert.Equal(t, "成都", e.CityFromTitle("眉山天府新区成都科创生态岛项目"))
}

func TestExpiredUsesDateGranularity(t *testing.T) {
	rec := models.NoticeRecord{
		BiddingDeadline: models.Deadline{Date: models.NewDate(2026, time.February, 6)},
	}

	sameDay := time.Date(2026, time.February, 6, 23, 0, 0, 0, time.UTC)
	assert.False(t, rec.Expired(sameDay))

	nextDay := time.Date(2026, time.February, 7, 0, 0, 0, 0, time.UTC)
	assert.True(t, rec.Expired(nextDay))
}

func TestExpiredSentinelNeverExpires(t *testing.T) {
	rec := models.NoticeRecord{BiddingDeadline: models.DeadlineFromRaw(models.SeeDetails)}
	assert.False(t, rec.Expired(time.Now()))
}
