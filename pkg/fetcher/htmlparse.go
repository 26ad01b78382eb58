package fetcher

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/xhad/bidwatch/internal/models"
	"github.com/xhad/bidwatch/pkg/extractor"
)

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// ParseSearchPage extracts notice records from the search results DOM.
// Cells that lack a title anchor or carry an unrecognized category are
// skipped; everything else degrades field by field.
func (f *Fetcher) ParseSearchPage(r io.Reader) ([]models.NoticeRecord, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse search page: %w", err)
	}

	now := time.Now()
	var records []models.NoticeRecord

	doc.Find("div.ssjg-list_cell").Each(func(i int, cell *goquery.Selection) {
		category := models.Category(strings.TrimSpace(cell.Find("span.ssjg-leixing").Text()))
		if !category.Valid() {
			return
		}

		anchor := cell.Find("a.ssjg-title")
		if anchor.Length() == 0 {
			return
		}

		title := strings.TrimSpace(anchor.AttrOr("title", ""))
		if title == "" {
			title = strings.TrimSpace(anchor.Text())
		}
		if title == "" {
			return
		}

		detailURL := strings.TrimSpace(anchor.AttrOr("href", ""))
		if strings.HasPrefix(detailURL, "//") {
			detailURL = "https:" + detailURL
		}

		id := strings.TrimSpace(anchor.AttrOr("tid", ""))
		if id == "" {
			id = fmt.Sprintf("browser_%d_%d", now.Unix(), i)
		}

		rec := models.NoticeRecord{
			ID:        id,
			Title:     title,
			Category:  category,
			SourceURL: detailURL,
			DetailURL: detailURL,
			CrawledAt: now,
		}

		// The title span repeats the annotation text ("...在内容中")
		// that the text path reads from the trailing parenthetical.
		spanText := cell.Find("span.ssjg-title").Text()

		rec.BudgetAmount = cleanCellText(cell.Find("i.yusuan").Text())
		rec.ProcurementType = strings.TrimSpace(cell.Find("i.fangshi").Text())

		deadline := strings.TrimSpace(cell.Find("i.jiezhi").Text())
		if deadline == "" {
			deadline = models.SeeDetails
		}
		rec.BiddingDeadline = models.ParseDeadline(deadline)

		region := strings.TrimSpace(cell.Find("span.diqu").AttrOr("title", ""))
		if region == "" {
			region = f.config.DefaultProvince
		}
		rec.Province = region
		rec.City = f.extractor.CityFromTitle(title)

		if published := strings.TrimSpace(cell.Find("span.ssjg-shijian").Text()); published != "" {
			if d, ok := extractor.ParseDate(published); ok {
				rec.PublishDate = d
			}
		}

		rec.MatchedKeywords = f.matcher.Match(title + " " + spanText)
		rec.KeywordLocation, rec.LocationDisplay, rec.HasAttachments, rec.HasTenderDocs =
			f.matcher.Locate(title, spanText, len(rec.MatchedKeywords) > 0)

		if cell.Find("span.fujian-label").Length() > 0 {
			rec.HasAttachments = true
		}

		rec.Normalize()
		records = append(records, rec)
	})

	return records, nil
}

func cleanCellText(s string) string {
	s = tagPattern.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
