package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDiscovery()
	c.normalizeExtraction()
	c.normalizePipeline()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ArtifactsDir) == "" {
		c.Paths.ArtifactsDir = defaultArtifactsDir
	}
	if c.Paths.ArtifactsDir, err = expandPath(c.Paths.ArtifactsDir); err != nil {
		return fmt.Errorf("paths.artifacts_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeDiscovery() {
	if c.Discovery.SearchAPIKey == "" {
		if value, ok := os.LookupEnv("SCRIBE_SEARCH_API_KEY"); ok {
			c.Discovery.SearchAPIKey = value
		}
	}
	c.Discovery.SearchBaseURL = strings.TrimRight(strings.TrimSpace(c.Discovery.SearchBaseURL), "/")
	if c.Discovery.StrategyTimeout <= 0 {
		c.Discovery.StrategyTimeout = defaultStrategyTimeout
	}
	if c.Discovery.MaxResults <= 0 {
		c.Discovery.MaxResults = defaultMaxResults
	}
	domains := make([]string, 0, len(c.Discovery.AggregatorDomains))
	for _, domain := range c.Discovery.AggregatorDomains {
		domain = strings.ToLower(strings.TrimSpace(domain))
		if domain != "" {
			domains = append(domains, domain)
		}
	}
	c.Discovery.AggregatorDomains = domains
}

func (c *Config) normalizeExtraction() {
	if c.Extraction.FetchTimeout <= 0 {
		c.Extraction.FetchTimeout = defaultFetchTimeout
	}
	if c.Extraction.MaxResponseBytes <= 0 {
		c.Extraction.MaxResponseBytes = defaultMaxResponseMB * 1024 * 1024
	}
	if strings.TrimSpace(c.Extraction.UserAgent) == "" {
		c.Extraction.UserAgent = defaultUserAgent
	}
	c.Extraction.ArchiveBaseURL = strings.TrimSpace(c.Extraction.ArchiveBaseURL)
	if c.Extraction.ArchiveBaseURL == "" {
		c.Extraction.ArchiveBaseURL = defaultArchiveBaseURL
	}
	if c.Extraction.MinLiveLength <= 0 {
		c.Extraction.MinLiveLength = defaultMinLiveLength
	}
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.Workers <= 0 {
		c.Pipeline.Workers = defaultWorkers
	}
	if c.Pipeline.MaxCandidates <= 0 {
		c.Pipeline.MaxCandidates = defaultMaxCandidates
	}
	if c.Pipeline.TimeBudgetSeconds <= 0 {
		c.Pipeline.TimeBudgetSeconds = defaultTimeBudget
	}
	if c.Pipeline.CandidateDelayMS < 0 {
		c.Pipeline.CandidateDelayMS = defaultCandidateDelayMS
	}
	c.Pipeline.Acceptance = strings.ToLower(strings.TrimSpace(c.Pipeline.Acceptance))
	if c.Pipeline.Acceptance == "" {
		c.Pipeline.Acceptance = defaultAcceptance
	}
	if c.Pipeline.PollInterval <= 0 {
		c.Pipeline.PollInterval = defaultPollInterval
	}
	if c.Pipeline.ErrorRetryInterval <= 0 {
		c.Pipeline.ErrorRetryInterval = defaultErrorRetry
	}
	if c.Pipeline.HeartbeatInterval <= 0 {
		c.Pipeline.HeartbeatInterval = defaultHeartbeatEvery
	}
	if c.Pipeline.HeartbeatTimeout <= 0 {
		c.Pipeline.HeartbeatTimeout = defaultHeartbeatExpiry
	}
	if c.Pipeline.RetryCooldown < 0 {
		c.Pipeline.RetryCooldown = defaultRetryCooldown
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
