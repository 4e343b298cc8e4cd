package models

// Searchable field names per entity, as accepted in the "fields" parameter.
var (
	AlertSearchFields     = []string{"title", "description", "keywords", "platforms", "severity", "status"}
	PostSearchFields      = []string{"title", "content", "source", "sourceUrl", "platform", "sentiment"}
	CaseStudySearchFields = []string{"title", "summary", "status", "dateRange"}
)

// FieldValues exposes alert fields to in-memory filtering.
func (a Alert) FieldValues(field string) []string {
	switch field {
	case "title":
		return []string{a.Title}
	case "description":
		return []string{a.Description}
	case "keywords":
		return a.Keywords
	case "platforms":
		return a.Platforms
	case "severity":
		return []string{a.Severity}
	case "status":
		return []string{a.Status}
	}
	return nil
}

// FieldValues exposes post fields to in-memory filtering.
func (p Post) FieldValues(field string) []string {
	switch field {
	case "title":
		return []string{p.Title}
	case "content":
		return []string{p.Content}
	case "source":
		return []string{p.Source}
	case "platform":
		return []string{p.Platform}
	case "sentiment":
		return []string{p.Sentiment}
	case "sourceUrl":
		return []string{p.SourceURL}
	}
	return nil
}

// FieldValues exposes case study fields to in-memory filtering.
func (c CaseStudy) FieldValues(field string) []string {
	switch field {
	case "title":
		return []string{c.Title}
	case "summary":
		return []string{c.Summary}
	case "status":
		return []string{c.Status}
	case "dateRange":
		return []string{c.DateRange}
	}
	return nil
}
