// Package types provides the OpenAI API wire types used for server-side
// request decoding and response encoding.
//
// The types cover the subset of the chat completions, images and models
// APIs that the proxy serves. Field names and JSON shapes follow the OpenAI
// API so that stock OpenAI SDK clients work unchanged. Optional request
// fields use pointers; unions use the raw-message pattern with As*/From*
// accessors so that unknown variants survive decoding.
package types
