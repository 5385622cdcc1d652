package config

const (
	defaultDataDir          = "~/.local/share/scribe"
	defaultArtifactsDir     = "~/.local/share/scribe/artifacts"
	defaultLogDir           = "~/.local/share/scribe/logs"
	defaultAPIBind          = "127.0.0.1:7519"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultUserAgent        = "Scribe/0.1"
	defaultArchiveBaseURL   = "https://archive.org/wayback/available"
	defaultFetchTimeout     = 20
	defaultMaxResponseMB    = 10
	defaultMinLiveLength    = 300
	defaultStrategyTimeout  = 15
	defaultMaxResults       = 8
	defaultWorkers          = 2
	defaultMaxCandidates    = 5
	defaultTimeBudget       = 120
	defaultCandidateDelayMS = 1500
	defaultAcceptance       = "acceptable"
	defaultPollInterval     = 5
	defaultErrorRetry       = 10
	defaultHeartbeatEvery   = 15
	defaultHeartbeatExpiry  = 120
	defaultRetryCooldown    = 300
)

// defaultAggregatorDomains is the curated allow-list for site-scoped discovery.
// These are tried first; historically they carry the highest transcript yield.
var defaultAggregatorDomains = []string{
	"podscribe.app",
	"happyscribe.com",
	"podgist.com",
	"rev.com",
	"steno.fm",
}

// defaultQueryTemplates feed the broad web search strategy. %s placeholders
// are, in order, the work item title and its secondary descriptor.
var defaultQueryTemplates = []string{
	`"%s" "%s" transcript`,
	`%s %s full transcript`,
	`%s %s full text`,
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:      defaultDataDir,
			ArtifactsDir: defaultArtifactsDir,
			LogDir:       defaultLogDir,
			APIBind:      defaultAPIBind,
		},
		Discovery: Discovery{
			AggregatorDomains: append([]string(nil), defaultAggregatorDomains...),
			QueryTemplates:    append([]string(nil), defaultQueryTemplates...),
			StrategyTimeout:   defaultStrategyTimeout,
			MaxResults:        defaultMaxResults,
		},
		Extraction: Extraction{
			FetchTimeout:     defaultFetchTimeout,
			MaxResponseBytes: defaultMaxResponseMB * 1024 * 1024,
			UserAgent:        defaultUserAgent,
			ArchiveEnabled:   true,
			ArchiveBaseURL:   defaultArchiveBaseURL,
			MinLiveLength:    defaultMinLiveLength,
		},
		Quality: Quality{
			RejectBelow:      0.3,
			GoodAbove:        0.6,
			ExcellentAbove:   0.8,
			LengthWeight:     0.35,
			LexicalWeight:    0.15,
			StructuralWeight: 0.5,
			MinLength:        300,
			SaturationLength: 12000,
		},
		Pipeline: Pipeline{
			Workers:            defaultWorkers,
			MaxCandidates:      defaultMaxCandidates,
			TimeBudgetSeconds:  defaultTimeBudget,
			CandidateDelayMS:   defaultCandidateDelayMS,
			Acceptance:         defaultAcceptance,
			PollInterval:       defaultPollInterval,
			ErrorRetryInterval: defaultErrorRetry,
			HeartbeatInterval:  defaultHeartbeatEvery,
			HeartbeatTimeout:   defaultHeartbeatExpiry,
			RetryCooldown:      defaultRetryCooldown,
		},
		Notifications: Notifications{
			RequestTimeout: 10,
			Completed:      true,
			Failed:         true,
			Errors:         true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
