package metrics

import "time"

// RecordArticleFetched records a stored article, flagging empty extractions.
func RecordArticleFetched(source string, empty bool) {
	ArticlesFetchedTotal.WithLabelValues(source).Inc()
	if empty {
		ArticlesEmptyTotal.WithLabelValues(source).Inc()
	}
}

// RecordFetchError records an article fetch failure for a source.
func RecordFetchError(source string) {
	FetchErrorsTotal.WithLabelValues(source).Inc()
}

// RecordCandidates records how many candidate URLs discovery produced.
func RecordCandidates(source, mode string, count int) {
	CandidatesDiscoveredTotal.WithLabelValues(source, mode).Add(float64(count))
}

// RecordSourceScrape records the duration of one source's scrape pass.
func RecordSourceScrape(source string, duration time.Duration) {
	SourceScrapeDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordEmbedding records how an embedding was resolved.
func RecordEmbedding(cacheHit bool) {
	outcome := "computed"
	if cacheHit {
		outcome = "hit"
	}
	EmbeddingsComputedTotal.WithLabelValues(outcome).Inc()
}

// RecordClusterPass records a clustering pass and its outcomes.
func RecordClusterPass(mode string, duration time.Duration, created, attached int) {
	ClusterPassDuration.WithLabelValues(mode).Observe(duration.Seconds())
	GroupsCreatedTotal.Add(float64(created))
	ArticlesAttachedTotal.Add(float64(attached))
}

// RecordObjectified records one story objectification attempt.
func RecordObjectified(success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	StoriesObjectifiedTotal.WithLabelValues(status).Inc()
	ObjectifyDuration.Observe(duration.Seconds())
}

// RecordBackendUpload records one delivery attempt.
func RecordBackendUpload(status string) {
	BackendUploadsTotal.WithLabelValues(status).Inc()
}
