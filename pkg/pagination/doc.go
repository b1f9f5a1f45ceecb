// Package pagination follows Canvas-style paginated listings.
//
// Canvas returns list endpoints one page at a time and advertises the next
// page in an RFC 8288 Link header (rel="next"). The next link already embeds
// the original query, so the initial parameters are sent only once.
//
// Example usage:
//
//	fetcher := pagination.NewFetcher(session, pagination.DefaultConfig())
//	items, err := fetcher.FetchAll(ctx, pagination.Request{
//		Resource: "courses",
//		URL:      session.URL("courses"),
//		Query:    url.Values{"include[]": {"term"}},
//	})
//
// The fetcher:
//   - Sends per_page plus the caller's query on the first request only
//   - Decodes every page as a JSON array and accumulates the raw elements
//   - Stops exactly when a response carries no rel="next" link
//   - Maps non-2xx answers through Request.MapError (generic *client.APIError by default)
package pagination
