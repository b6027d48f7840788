package analyzer

// Improvement flags one weakness of an analyzed keyword.
type Improvement struct {
	Issue      string `json:"issue"`
	Suggestion string `json:"suggestion"`
}

// KeywordSuggestion is one related keyword proposed for targeting.
type KeywordSuggestion struct {
	Keyword      string  `json:"keyword"`
	SearchVolume float64 `json:"search_volume"`
	Competition  float64 `json:"competition"`
}

// Recommendations is the advisory output for one stored keyword.
type Recommendations struct {
	Keyword            string              `json:"keyword"`
	Improvements       []Improvement       `json:"improvements"`
	RelatedSuggestions []KeywordSuggestion `json:"related_suggestions"`
	AdSuggestions      []KeywordSuggestion `json:"ad_suggestions"`
}

// GetRecommendations builds advice from previously stored data; nothing is
// re-collected here. A keyword that was never analyzed yields an empty
// structure rather than an error.
func (a *Analyzer) GetRecommendations(keyword string, category *string) (*Recommendations, error) {
	rec := &Recommendations{Keyword: keyword}

	data, err := a.store.GetKeyword(keyword, category)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return rec, nil
	}

	if data.SearchVolume < 50 {
		rec.Improvements = append(rec.Improvements, Improvement{
			Issue:      "low search volume",
			Suggestion: "consider broader or more popular variations of this keyword",
		})
	}
	if data.Competition > 70 {
		rec.Improvements = append(rec.Improvements, Improvement{
			Issue:      "high competition",
			Suggestion: "target longtail variations where competition is lower",
		})
	}
	if len(data.Related) < 5 {
		rec.Improvements = append(rec.Improvements, Improvement{
			Issue:      "few related keywords",
			Suggestion: "re-run analysis with a higher depth to expand the keyword graph",
		})
	}

	for _, related := range data.Related {
		if len(rec.RelatedSuggestions) >= 5 && len(rec.AdSuggestions) >= 3 {
			break
		}
		relData, err := a.store.GetKeyword(related.Keyword, nil)
		if err != nil {
			a.log.WithError(err).WithField("keyword", related.Keyword).Warn("failed to load related keyword data")
			continue
		}
		if relData == nil {
			continue
		}

		if len(rec.RelatedSuggestions) < 5 &&
			relData.SearchVolume > 20 && relData.Competition < 60 {
			rec.RelatedSuggestions = append(rec.RelatedSuggestions, KeywordSuggestion{
				Keyword:      related.Keyword,
				SearchVolume: relData.SearchVolume,
				Competition:  relData.Competition,
			})
		}

		if len(rec.AdSuggestions) < 3 &&
			relData.SearchVolume > 50 && relData.Competition < 70 {
			isAd, err := a.store.IsAdKeyword(related.Keyword)
			if err != nil {
				a.log.WithError(err).WithField("keyword", related.Keyword).Warn("ad keyword check failed")
				continue
			}
			if !isAd {
				rec.AdSuggestions = append(rec.AdSuggestions, KeywordSuggestion{
					Keyword:      related.Keyword,
					SearchVolume: relData.SearchVolume,
					Competition:  relData.Competition,
				})
			}
		}
	}
	return rec, nil
}
