package models

import (
	"encoding/json"
	"strings"
	"time"
)

// Category is the notice kind shown on the search listing. Only lines
// starting with one of these values open a new record during parsing.
type Category string

const (
	CategoryTenderAnnouncement Category = "招标公告"
	CategoryAwardResult        Category = "中标结果"
	CategoryTenderAmendment    Category = "招标变更"
	CategoryProcurementInfo    Category = "采购信息"
	CategoryPlannedProject     Category = "拟在建项目"
	CategoryAuctionTransfer    Category = "拍卖转让"
	CategoryTenderPreview      Category = "招标预告"
)

// Categories lists every recognized category in matching order.
var Categories = []Category{
	CategoryTenderAnnouncement,
	CategoryAwardResult,
	CategoryTenderAmendment,
	CategoryProcurementInfo,
	CategoryPlannedProject,
	CategoryAuctionTransfer,
	CategoryTenderPreview,
}

// Valid reports whether c is one of the recognized categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// SeeDetails is the placeholder the listing shows when a budget or
// deadline is only available on the detail page. It must survive a
// save/load round trip verbatim.
const SeeDetails = "详见内容"

// Date is a calendar date without a time-of-day component. The zero
// value marshals to an empty string instead of failing, since many
// listing rows carry no parseable date.
type Date struct {
	time.Time
}

// NewDate builds a Date from year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(d.Format("2006-01-02"))
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	// Older documents stored full ISO timestamps; keep only the date part.
	if len(s) > 10 {
		s = s[:10]
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		// Tolerate unparseable dates in old documents rather than
		// rejecting the whole record.
		d.Time = time.Time{}
		return nil
	}
	d.Time = t
	return nil
}

// Deadline holds either a parsed calendar date or the verbatim
// "详见内容" sentinel. Exactly one of Date and Raw is set; both empty
// means the source gave no usable deadline.
type Deadline struct {
	Date Date
	Raw  string
}

// DeadlineFromRaw keeps a sentinel literal without parsing it.
func DeadlineFromRaw(raw string) Deadline {
	return Deadline{Raw: raw}
}

// IsZero reports whether neither a date nor a sentinel is present.
func (d Deadline) IsZero() bool {
	return d.Date.IsZero() && d.Raw == ""
}

// String renders the deadline the way the listing showed it.
func (d Deadline) String() string {
	if d.Raw != "" {
		return d.Raw
	}
	if !d.Date.IsZero() {
		return d.Date.Format("2006-01-02")
	}
	return ""
}

func (d Deadline) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Deadline) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*d = ParseDeadline(s)
	return nil
}

// ParseDeadline classifies a stored deadline string: a date when it
// parses as one, otherwise the literal is kept as-is.
func ParseDeadline(s string) Deadline {
	s = strings.TrimSpace(s)
	if s == "" {
		return Deadline{}
	}
	raw := s
	if len(raw) > 10 {
		raw = raw[:10]
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return Deadline{Date: Date{t}}
	}
	return Deadline{Raw: s}
}

// NoticeRecord is one structured procurement notice produced by the
// pipeline. Field names in the persisted document match the historical
// data format, so older files keep loading.
type NoticeRecord struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	RawTitle string   `json:"raw_title,omitempty"`
	Category Category `json:"info_type"`

	PublishDate Date `json:"publish_date"`

	Province string `json:"province"`
	City     string `json:"city,omitempty"`
	District string `json:"district,omitempty"`

	OwnerUnit       string `json:"owner_unit,omitempty"`
	BudgetAmount    string `json:"budget_amount,omitempty"`
	ProcurementType string `json:"procurement_type,omitempty"`

	BiddingDeadline Deadline `json:"bidding_deadline"`

	MatchedKeywords []string `json:"keywords_matched"`
	KeywordLocation []string `json:"keyword_location"`
	LocationDisplay string   `json:"keyword_location_display,omitempty"`

	ProjectAddress string   `json:"project_address,omitempty"`
	Attachments    []string `json:"attachments"`
	HasAttachments bool     `json:"has_attachments"`
	HasTenderDocs  bool     `json:"has_bidding_docs"`

	SourceURL string    `json:"source_url"`
	DetailURL string    `json:"detail_url"`
	CrawledAt time.Time `json:"crawled_at"`
}

// Normalize fills defaults that older persisted documents or partially
// extracted records may lack. DetailURL falls back to SourceURL and
// CrawledAt is stamped when unset.
func (r *NoticeRecord) Normalize() {
	if r.MatchedKeywords == nil {
		r.MatchedKeywords = []string{}
	}
	if r.KeywordLocation == nil {
		r.KeywordLocation = []string{}
	}
	if r.Attachments == nil {
		r.Attachments = []string{}
	}
	if r.DetailURL == "" {
		r.DetailURL = r.SourceURL
	}
	if r.CrawledAt.IsZero() {
		r.CrawledAt = time.Now()
	}
}

// Expired reports whether the bidding deadline lies strictly before
// now, at date granularity. Records with a sentinel or no deadline are
// never expired.
func (r *NoticeRecord) Expired(now time.Time) bool {
	if r.BiddingDeadline.Date.IsZero() {
		return false
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return r.BiddingDeadline.Date.Before(today)
}

// RunMetadata travels with the record collection in the persisted
// document and is owned by the store.
type RunMetadata struct {
	LastFullCrawl        *time.Time `json:"last_full_crawl,omitempty"`
	LastIncrementalCrawl *time.Time `json:"last_incremental_crawl,omitempty"`
	TotalCount           int        `json:"total_count"`
	Keywords             []string   `json:"keywords,omitempty"`
	Region               string     `json:"region,omitempty"`
}
