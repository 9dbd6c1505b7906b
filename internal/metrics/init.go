package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, vol := range []string{"media", "cache", "database", "unknown"} {
		for _, op := range []string{"stat", "open", "readdir", "write"} {
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
			FilesystemRetryDuration.WithLabelValues(op, vol)
		}
	}

	for _, op := range []string{
		"catalog.upsert_movie", "catalog.upsert_show",
		"catalog.delete_missing_movies", "catalog.delete_missing_shows",
		"catalog.get_movie", "catalog.get_show", "catalog.list_movies", "catalog.list_shows",
		"catalog.get_missing_data", "catalog.mark_missing_data",
		"processqueue.create_or_update", "processqueue.update", "processqueue.finalize",
		"processqueue.get", "processqueue.reset_interrupted",
		"tmdbcache.get", "tmdbcache.put", "intros.get", "intros.upsert",
	} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
		DBBusyTotal.WithLabelValues(op)
		DBRetrySuccess.WithLabelValues(op)
		DBRetryExhausted.WithLabelValues(op)
	}

	for _, lib := range []string{"movies", "tv"} {
		ScannerRunsTotal.WithLabelValues(lib)
		ScannerDirsProcessed.WithLabelValues(lib)
		ScannerSkippedUnchanged.WithLabelValues(lib)
		ScannerRowsDeleted.WithLabelValues(lib)
		ScannerErrors.WithLabelValues(lib)
	}

	for _, op := range []string{
		"probe_duration", "probe_dimensions", "probe_color", "enumerate_streams",
		"render_frame", "render_sprite_sheet", "render_clip", "extract_chapters",
	} {
		AdapterInvocationsTotal.WithLabelValues(op, "success")
		AdapterInvocationsTotal.WithLabelValues(op, "error")
		AdapterDuration.WithLabelValues(op)
	}

	for _, op := range []string{"avif_encode", "png_optimize", "blurhash"} {
		PostprocessOperationsTotal.WithLabelValues(op, "success")
		PostprocessOperationsTotal.WithLabelValues(op, "error")
		PostprocessDuration.WithLabelValues(op)
	}

	for _, root := range []string{"general", "frames", "spritesheet", "video_clips"} {
		CacheHitsTotal.WithLabelValues(root)
		CacheMissesTotal.WithLabelValues(root)
		CacheEvictionRunsTotal.WithLabelValues(root)
		CacheEvictedFilesTotal.WithLabelValues(root)
		CacheSizeBytes.WithLabelValues(root)
	}

	for _, kind := range []string{"sprite", "vtt", "clip", "avif", "blurhash", "blurhash_cache_hit"} {
		CoalesceProducerTotal.WithLabelValues(kind)
		CoalesceWaiterTotal.WithLabelValues(kind)
		CoalesceWaitTimeoutTotal.WithLabelValues(kind)
	}
}
