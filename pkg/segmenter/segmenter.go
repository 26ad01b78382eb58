// Package segmenter turns a pasted search-results blob into discrete
// notice records.
//
// The scanner is a two-state machine: either no record is open, or one
// is. A line whose leading text matches a recognized category label
// opens a record; every other line folds into the open record's body.
// Leading lines seen before any opener are discarded on purpose, since
// a copied page always starts with navigation chrome.
package segmenter

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/xhad/bidwatch/internal/models"
	"github.com/xhad/bidwatch/pkg/extractor"
	"github.com/xhad/bidwatch/pkg/matcher"
)

// annotationPattern captures a trailing parenthetical like
// "(广告,标识在内容中)" that the listing appends to titles.
var annotationPattern = regexp.MustCompile(`\s*\(([^)]*)\)\s*$`)

// Block is one isolated record's raw text, tagged with its category.
type Block struct {
	Category   models.Category
	Title      string // display title, annotation stripped
	RawTitle   string // title as it appeared on the opener line
	Annotation string // trailing parenthetical text, "" when absent
	Lines      []string
}

type Config struct {
	Keywords        []string
	DefaultProvince string
	Cities          []string
	SourceURL       string // fallback source_url for extracted records
}

type Segmenter struct {
	config    Config
	extractor *extractor.Extractor
	matcher   *matcher.Matcher
}

func NewWithConfig(config Config) *Segmenter {
	return &Segmenter{
		config: config,
		extractor: extractor.NewWithConfig(extractor.Config{
			DefaultProvince: config.DefaultProvince,
			Cities:          config.Cities,
		}),
		matcher: matcher.New(config.Keywords),
	}
}

// Segment splits content into per-record blocks. Every opened record
// is emitted exactly once; a record still open at end of input is
// closed and emitted, and records with an empty title are dropped as
// false matches.
func (s *Segmenter) Segment(content string) []Block {
	var blocks []Block
	var current *Block

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if category, rest, ok := matchOpener(line); ok {
			if current != nil && current.Title != "" {
				blocks = append(blocks, *current)
			}

			title, annotation := splitAnnotation(rest)
			current = &Block{
				Category:   category,
				Title:      title,
				RawTitle:   rest,
				Annotation: annotation,
			}
			continue
		}

		if current != nil {
			current.Lines = append(current.Lines, line)
		}
	}

	if current != nil && current.Title != "" {
		blocks = append(blocks, *current)
	}

	return blocks
}

// Parse runs the full conversion: segment, extract fields, match
// keywords and tag their location. Records that fail field parsing are
// still returned with the affected fields left empty.
func (s *Segmenter) Parse(content string) []models.NoticeRecord {
	blocks := s.Segment(content)
	now := time.Now()

	records := make([]models.NoticeRecord, 0, len(blocks))
	for i, block := range blocks {
		rec := models.NoticeRecord{
			Category: block.Category,
			Title:    block.Title,
		}
		if block.Annotation != "" {
			rec.RawTitle = block.RawTitle
		}

		s.extractor.Apply(&rec, block.Lines)

		body := strings.Join(block.Lines, "\n")
		rec.MatchedKeywords = s.matcher.Match(block.RawTitle + " " + body)

		matchedOutsideTitle := len(s.matcher.Match(block.Annotation+" "+body)) > 0
		rec.KeywordLocation, rec.LocationDisplay, rec.HasAttachments, rec.HasTenderDocs =
			s.matcher.Locate(block.Title, block.Annotation, matchedOutsideTitle)

		if rec.ID == "" {
			rec.ID = fmt.Sprintf("browser_%d_%d", now.Unix(), i)
		}
		if rec.SourceURL == "" {
			rec.SourceURL = s.config.SourceURL
		}
		rec.CrawledAt = now
		rec.Normalize()

		records = append(records, rec)
	}

	return records
}

// IsRelevant reports whether a record matched any configured keyword.
func (s *Segmenter) IsRelevant(rec models.NoticeRecord) bool {
	return len(rec.MatchedKeywords) > 0
}

func matchOpener(line string) (models.Category, string, bool) {
	for _, category := range models.Categories {
		if strings.HasPrefix(line, string(category)) {
			rest := strings.TrimSpace(line[len(category):])
			return category, rest, true
		}
	}
	return "", "", false
}

func splitAnnotation(title string) (string, string) {
	if m := annotationPattern.FindStringSubmatch(title); m != nil {
		stripped := strings.TrimSpace(title[:len(title)-len(m[0])])
		return stripped, strings.TrimSpace(m[1])
	}
	return title, ""
}
