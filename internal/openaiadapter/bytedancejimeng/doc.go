// Package bytedancejimeng adapts OpenAI requests to the Jimeng generation
// engine, enabling OpenAI SDK clients to create images and videos through the
// chat completions API.
//
// The adapter handles:
//
//   - Model selection: the model string "name:WxH" selects the upstream model
//     and the target size. Names starting with "jimeng-video" produce videos,
//     everything else produces images.
//
//   - Prompting: the last message becomes the prompt. Image parts of that
//     message and extra_body.file_paths become video reference frames.
//
//   - Responses: results are returned as Markdown image links, either in one
//     buffered completion or as a stream of chunks framed by a progress chunk
//     and a completion chunk.
//
//   - Retry: the whole generation is retried a bounded number of times with a
//     fixed delay, reusing the credential of the incoming request.
//
// # Adapters
//
// CreateChatCompletionAdapter: OpenAI CreateChatCompletion → Jimeng generation
//
// MediaAdapter: OpenAI images/videos generations → Jimeng generation
package bytedancejimeng
