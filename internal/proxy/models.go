package proxy

import (
	"net/http"

	"github.com/jimengproxy/jimeng-proxy/internal/jimeng"
	"github.com/jimengproxy/jimeng-proxy/internal/openaiadapter/types"
)

const modelOwner = "jimeng-proxy"

// modelsHandler lists the image and video models. Image models accept a
// ":WIDTHxHEIGHT" suffix, which is not enumerated.
func modelsHandler() http.HandlerFunc {
	resp := types.ListModelsResponse{Object: "list"}
	for _, kind := range []jimeng.MediaKind{jimeng.KindImage, jimeng.KindVideo} {
		for _, id := range jimeng.Models(kind) {
			resp.Data = append(resp.Data, types.Model{ID: id, Object: "model", OwnedBy: modelOwner})
		}
	}

	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(r.Context(), w, resp, http.StatusOK)
	}
}
