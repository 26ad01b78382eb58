package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/bidwatch/internal/models"
)

func testRecord(id string) models.NoticeRecord {
	rec := models.NoticeRecord{
		ID:              id,
		Title:           "项目" + id,
		Category:        models.CategoryTenderAnnouncement,
		PublishDate:     models.NewDate(2026, time.February, 1),
		Province:        "四川",
		City:            "成都",
		BudgetAmount:    "150万元",
		ProcurementType: "公开招标",
		BiddingDeadline: models.Deadline{Date: models.NewDate(2026, time.February, 20)},
		MatchedKeywords: []string{"文化", "宣传"},
		KeywordLocation: []string{"正文"},
		SourceURL:       "https://www.bidcenter.com.cn/mock/" + id,
	}
	rec.Normalize()
	return rec
}

func TestIsFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bidding_data.json")
	s := NewJSONStore(path)

	assert.True(t, s.IsFirstRun())

	err := s.Save([]models.NoticeRecord{testRecord("1")}, models.RunMetadata{TotalCount: 1})
	require.NoError(t, err)

	assert.False(t, s.IsFirstRun())
}

func TestIsFirstRunEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bidding_data.json")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	assert.True(t, NewJSONStore(path).IsFirstRun())
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bidding_data.json")
	s := NewJSONStore(path)

	records := []models.NoticeRecord{testRecord("1"), testRecord("2")}
	now := time.Now().Truncate(time.Second)
	metadata := models.RunMetadata{
		LastFullCrawl: &now,
		TotalCount:    2,
		Keywords:      []string{"广告", "标识"},
		Region:        "四川",
	}

	require.NoError(t, s.Save(records, metadata))

	loaded, loadedMeta, err := s.Load()
	require.NoError(t, err)

	require.Len(t, loaded, 2)
	assert.Equal(t, records[0].ID, loaded[0].ID)
	assert.Equal(t, records[0].Title, loaded[0].Title)
	assert.Equal(t, records[0].Category, loaded[0].Category)
	assert.Equal(t, records[0].BudgetAmount, loaded[0].BudgetAmount)
	assert.Equal(t, records[0].MatchedKeywords, loaded[0].MatchedKeywords)
	assert.Equal(t, records[0].KeywordLocation, loaded[0].KeywordLocation)
	assert.Equal(t, "2026-02-01", loaded[0].PublishDate.Format("2006-01-02"))
	assert.Equal(t, "2026-02-20", loaded[0].BiddingDeadline.Date.Format("2006-01-02"))

	assert.Equal(t, 2, loadedMeta.TotalCount)
	assert.Equal(t, []string{"广告", "标识"}, loadedMeta.Keywords)
	assert.Equal(t, "四川", loadedMeta.Region)
	require.NotNil(t, loadedMeta.LastFullCrawl)
}

func TestSentinelSurvivesRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bidding_data.json")
	s := NewJSONStore(path)

	rec := testRecord("1")
	rec.BudgetAmount = models.SeeDetails
	rec.BiddingDeadline = models.DeadlineFromRaw(models.SeeDetails)

	require.NoError(t, s.Save([]models.NoticeRecord{rec}, models.RunMetadata{TotalCount: 1}))

	loaded, _, err := s.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	assert.Equal(t, models.SeeDetails, loaded[0].BudgetAmount)
	assert.Equal(t, models.SeeDetails, loaded[0].BiddingDeadline.Raw)
	assert.Equal(t, models.SeeDetails, loaded[0].BiddingDeadline.String())
}

func TestLoadMissingFile(t *testing.T) {
	s := NewJSONStore(filepath.Join(t.TempDir(), "missing.json"))

	records, metadata, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Zero(t, metadata.TotalCount)
}

func TestLoadDefaultsMissingOptionalFields(t *testing.T) {
	// An older document without keyword_location, has_attachments or
	// detail_url must still load with those fields defaulted.
	path := filepath.Join(t.TempDir(), "bidding_data.json")
	old := `{
  "metadata": {"total_count": 1},
  "data": [{
    "id": "1",
    "title": "项目A",
    "info_type": "招标公告",
    "publish_date": "2026-02-01",
    "province": "四川",
    "source_url": "https://example.com/1",
    "crawled_at": "2026-02-01T08:00:00Z"
  }]
}`
	require.NoError(t, os.WriteFile(path, []byte(old), 0o644))

	loaded, _, err := NewJSONStore(path).Load()
	require.NoError(t, err)
	require.Len(t, loaded, 1)

	assert.NotNil(t, loaded[0].KeywordLocation)
	assert.NotNil(t, loaded[0].MatchedKeywords)
	assert.NotNil(t, loaded[0].Attachments)
	assert.False(t, loaded[0].HasAttachments)
	assert.Equal(t, "https://example.com/1", loaded[0].DetailURL)
}

func TestSaveCreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "bidding_data.json")
	s := NewJSONStore(path)

	require.NoError(t, s.Save([]models.NoticeRecord{testRecord("1")}, models.RunMetadata{TotalCount: 1}))

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestAppendWithDedup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bidding_data.json")
	s := NewJSONStore(path)

	require.NoError(t, s.Save([]models.NoticeRecord{testRecord("1")}, models.RunMetadata{TotalCount: 1}))

	added, err := s.Append([]models.NoticeRecord{testRecord("1"), testRecord("2")})
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	loaded, metadata, err := s.Load()
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
	assert.Equal(t, 2, metadata.TotalCount)
	assert.NotNil(t, metadata.LastIncrementalCrawl)
}

func TestAppendIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bidding_data.json")
	s := NewJSONStore(path)

	batch := []models.NoticeRecord{testRecord("1"), testRecord("2")}

	added, err := s.Append(batch)
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	added, err = s.Append(batch)
	require.NoError(t, err)
	assert.Equal(t, 0, added)

	loaded, _, err := s.Load()
	require.NoError(t, err)
	assert.Len(t, loaded, 2)
}

func TestAppendAllDuplicatesDoesNotWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bidding_data.json")
	s := NewJSONStore(path)

	require.NoError(t, s.Save([]models.NoticeRecord{testRecord("1")}, models.RunMetadata{TotalCount: 1}))

	before, err := os.ReadFile(path)
	require.NoError(t, err)

	added, err := s.Append([]models.NoticeRecord{testRecord("1")})
	require.NoError(t, err)
	assert.Equal(t, 0, added)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestAppendOnEmptyStoreBehavesLikeSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bidding_data.json")
	s := NewJSONStore(path)

	added, err := s.Append([]models.NoticeRecord{testRecord("1"), testRecord("2")})
	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.False(t, s.IsFirstRun())
}

func TestLastCrawlTimePrefersIncremental(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bidding_data.json")
	s := NewJSONStore(path)

	full := time.Date(2026, time.February, 1, 8, 0, 0, 0, time.UTC)
	incremental := time.Date(2026, time.February, 3, 8, 0, 0, 0, time.UTC)

	require.NoError(t, s.Save(nil, models.RunMetadata{
		LastFullCrawl:        &full,
		LastIncrementalCrawl: &incremental,
	}))

	got, ok, err := s.LastCrawlTime()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, incremental, got.UTC())
}

func TestLastCrawlTimeAbsent(t *testing.T) {
	s := NewJSONStore(filepath.Join(t.TempDir(), "missing.json"))

	_, ok, err := s.LastCrawlTime()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSaveFailsOnUnwritablePath(t *testing.T) {
	dir := t.TempDir()
	// Make the parent a file so MkdirAll/WriteFile must fail.
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	s := NewJSONStore(filepath.Join(blocker, "bidding_data.json"))
	err := s.Save([]models.NoticeRecord{testRecord("1")}, models.RunMetadata{})
	assert.Error(t, err)
}
