package config

const (
	delimiter = "."

	Prefix = "config"

	RetryPrefix         = Prefix + delimiter + "retry"
	RetryMaxAttempts    = RetryPrefix + delimiter + "max_attempts"
	RetryRetriableCodes = RetryPrefix + delimiter + "retriable_codes"
	RetryBackoffBase    = RetryPrefix + delimiter + "backoff_base"
	RetryMaxBackoff     = RetryPrefix + delimiter + "max_backoff"
	RetryJitterFactor   = RetryPrefix + delimiter + "jitter_factor"
	RetryIdempotent     = RetryPrefix + delimiter + "idempotent"

	TimeoutPrefix = Prefix + delimiter + "timeout"
	// TimeoutDuration unset or zero means attempts are unbounded.
	TimeoutDuration = TimeoutPrefix + delimiter + "duration"

	BackpressurePrefix        = Prefix + delimiter + "backpressure"
	BackpressureMaxConcurrent = BackpressurePrefix + delimiter + "max_concurrent"
	BackpressureOrdered       = BackpressurePrefix + delimiter + "ordered"

	FairnessPrefix             = Prefix + delimiter + "fairness"
	FairnessWeights            = FairnessPrefix + delimiter + "weights"
	FairnessMaxBufferPerStream = FairnessPrefix + delimiter + "max_buffer_per_stream"

	RateLimitPrefix          = Prefix + delimiter + "ratelimit"
	RateLimitTokensPerSecond = RateLimitPrefix + delimiter + "tokens_per_second"
	RateLimitBurstTokens     = RateLimitPrefix + delimiter + "burst_tokens"

	BatchPrefix   = Prefix + delimiter + "batch"
	BatchMaxUnits = BatchPrefix + delimiter + "max_units"
	BatchMaxDelay = BatchPrefix + delimiter + "max_delay"

	EffectPrefix = Prefix + delimiter + "effect"

	EffectPoolHandlerPrefix     = EffectPrefix + delimiter + "pool" + delimiter + "handler"
	EffectPoolHandlerBufferSize = EffectPoolHandlerPrefix + delimiter + "buffer_size"
	EffectPoolHandlerNumWorkers = EffectPoolHandlerPrefix + delimiter + "num_workers"

	EffectLogHandlerPrefix     = EffectPrefix + delimiter + "log" + delimiter + "handler"
	EffectLogHandlerBufferSize = EffectLogHandlerPrefix + delimiter + "buffer_size"
)
