// Package webui serves the browser front end for hdrconv.
//
// The server exposes a single embedded HTML page plus a small JSON API:
// uploads start a job in the jobs store, the page polls job status every
// 500ms, and a running job can be cancelled. Finished outputs can be
// downloaded from the job's output route.
package webui
