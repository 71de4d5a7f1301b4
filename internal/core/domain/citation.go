package domain

// SourceTypeAnnualFiling is the citation source type for the 10-K corpus.
const SourceTypeAnnualFiling = "10-K"

// Citation is the provenance record attached to every surfaced result.
// Section and SourceLocator stay null when the passage metadata lacks them.
type Citation struct {
	SourceType    string  `json:"source_type"`
	Entity        string  `json:"entity"`
	Year          string  `json:"year"`
	Section       *string `json:"section"`
	SourceLocator *string `json:"source_locator"`
}

// AttachCitation builds the citation for one surfaced result. Missing
// metadata degrades to null markers, never to an error.
func AttachCitation(result RetrievalResult, sourceType, entity, year string) Citation {
	c := Citation{
		SourceType: sourceType,
		Entity:     entity,
		Year:       year,
	}
	if section := result.Metadata.Section; section != "" {
		c.Section = &section
	}
	if locator := result.Metadata.SourceLocator; locator != "" {
		c.SourceLocator = &locator
	}
	return c
}

// CitedResult is a retrieval result with its citation attached, the shape
// every outward adapter surfaces.
type CitedResult struct {
	RetrievalResult
	Citation Citation `json:"citation"`
}

// CiteResults attaches citations to a ranked result list. fallbackEntity
// fills in when passage metadata lacks the entity; axisYear pins the
// citation year for comparison passes, empty means the passage's own year.
func CiteResults(results []RetrievalResult, sourceType, fallbackEntity, axisYear string) []CitedResult {
	out := make([]CitedResult, 0, len(results))
	for _, result := range results {
		entity := result.Metadata.Entity
		if entity == "" {
			entity = fallbackEntity
		}
		year := axisYear
		if year == "" {
			year = result.Metadata.Year
		}
		out = append(out, CitedResult{
			RetrievalResult: result,
			Citation:        AttachCitation(result, sourceType, entity, year),
		})
	}
	return out
}
