package discovery

// Method identifies which strategy produced a candidate.
type Method string

const (
	MethodDirect     Method = "direct"
	MethodSiteSearch Method = "site_search"
	MethodWebSearch  Method = "web_search"
	MethodPlatform   Method = "platform"
)

// Candidate is a hypothesized source URL that might contain the target
// artifact. Candidates are ephemeral; only the accepted one's provenance is
// persisted by the ledger.
type Candidate struct {
	SourceDomain string
	URL          string
	Method       Method
	Rank         int
}
