// Package jimeng drives image and video generation jobs on the Jimeng web API.
//
// A generation is a short pipeline: make sure the account has credit, submit
// a draft describing the job, then poll the job history until it leaves the
// queued state. The Client performs each step; GenerateImages and
// GenerateVideo run the whole pipeline for one account credential.
//
// The credential never appears in this package's API. It is attached by the
// http.RoundTripper handed to NewClient, which keeps one credential fixed for
// the lifetime of a Client.
package jimeng
