// Package prober performs the external existence check for one identifier.
//
// A probe is a single HTTP GET against the configured base URL. The first
// <title> element of the response is extracted with goquery and compared
// against a set of placeholder titles the remote side serves for missing
// items. Anything that goes wrong on the wire (timeouts, refused
// connections, 5xx or 429 responses, unparsable bodies) is logged at WARN
// and reported as NotFound. No retry is attempted: a scan resumes by
// position, so a re-run over the same range probes the candidate again.
//
// Basic usage:
//
//	client := prober.NewClient(prober.Options{
//		BaseURL:           "https://www.youtube.com/watch?v=",
//		Timeout:           15 * time.Second,
//		PlaceholderTitles: []string{"- YouTube", "Video - YouTube"},
//	}, log)
//	outcome := client.Probe(ctx, "dQw4w9WgXcQ")
//	if outcome.Found() {
//		fmt.Println(outcome.Title)
//	}
package prober
