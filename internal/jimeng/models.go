package jimeng

import (
	"maps"
	"slices"
)

// MediaKind selects the generation pipeline.
type MediaKind string

const (
	KindImage MediaKind = "image"
	KindVideo MediaKind = "video"
)

// Default public model names per kind.
const (
	DefaultImageModel = "jimeng-3.0"
	DefaultVideoModel = "jimeng-video-3.0"
)

var imageModels = map[string]string{
	"jimeng-3.1":     "high_aes_general_v30l_art_fangzhou:general_v3.0_18b",
	"jimeng-3.0":     "high_aes_general_v30l:general_v3.0_18b",
	"jimeng-2.1":     "high_aes_general_v21_L:general_v2.1_L",
	"jimeng-2.0-pro": "high_aes_general_v20_L:general_v2.0_L",
	"jimeng-2.0":     "high_aes_general_v20:general_v2.0",
	"jimeng-1.4":     "high_aes_general_v14:general_v1.4",
	"jimeng-xl-pro":  "text2img_xl_sft",
}

var videoModels = map[string]string{
	"jimeng-video-3.0-pro": "dreamina_ic_generate_video_model_vgfm_3.0_pro",
	"jimeng-video-3.0":     "dreamina_ic_generate_video_model_vgfm_3.0",
	"jimeng-video-2.0":     "dreamina_ic_generate_video_model_vgfm_lite",
	"jimeng-video-2.0-pro": "dreamina_ic_generate_video_model_vgfm1.0",
}

// ResolveModel maps a public model name to the upstream model id.
// Unknown names resolve to the default model of the kind.
func ResolveModel(kind MediaKind, name string) string {
	table, fallback := imageModels, DefaultImageModel
	if kind == KindVideo {
		table, fallback = videoModels, DefaultVideoModel
	}

	if id, ok := table[name]; ok {
		return id
	}
	return table[fallback]
}

// Models returns the public model names of a kind in sorted order.
func Models(kind MediaKind) []string {
	table := imageModels
	if kind == KindVideo {
		table = videoModels
	}
	return slices.Sorted(maps.Keys(table))
}
