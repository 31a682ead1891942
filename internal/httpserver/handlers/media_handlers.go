package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"trafficdesk/internal/media"

	"go.uber.org/zap"
)

// SignUpload signs the parameters the browser sends with a direct upload.
func SignUpload(signer *media.Signer, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var params map[string]string
		if err := decodeJSON(r, &params); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if params == nil {
			params = map[string]string{}
		}
		if strings.Contains(params["folder"], "..") {
			http.Error(w, "invalid folder", http.StatusBadRequest)
			return
		}
		respondJSON(w, signer.Sign(media.ActionUpload, params))
	}
}

// SignDestroy issues the signature DestroyMedia expects for one public id.
func SignDestroy(signer *media.Signer, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			PublicID string `json:"public_id"`
		}
		if err := decodeJSON(r, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.PublicID == "" {
			http.Error(w, "public_id required", http.StatusBadRequest)
			return
		}
		respondJSON(w, signer.Sign(media.ActionDestroy, map[string]string{"public_id": req.PublicID}))
	}
}

type destroyReq struct {
	PublicID  string `json:"public_id"`
	Timestamp int64  `json:"timestamp"`
	Signature string `json:"signature"`
}

// DestroyMedia removes a stored image once its destroy signature checks out.
func DestroyMedia(signer *media.Signer, store media.Store, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req destroyReq
		if err := decodeJSON(r, &req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.PublicID == "" {
			http.Error(w, "public_id required", http.StatusBadRequest)
			return
		}
		if err := signer.Verify(media.ActionDestroy, map[string]string{"public_id": req.PublicID}, req.Timestamp, req.Signature); err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		err := store.Delete(r.Context(), req.PublicID)
		switch {
		case errors.Is(err, media.ErrNotFound):
			respondJSON(w, map[string]any{"result": "not found"})
		case err != nil:
			serverError(w, lg, "media destroy failed", err)
		default:
			lg.Infow("media destroyed", "public_id", req.PublicID)
			respondJSON(w, map[string]any{"result": "ok"})
		}
	}
}

// ServeMedia streams a stored object by public id.
func ServeMedia(store media.Store, lg *zap.SugaredLogger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/media/")
		rc, ct, err := store.Open(r.Context(), id)
		if err != nil {
			if errors.Is(err, media.ErrNotFound) {
				http.Error(w, "not found", http.StatusNotFound)
				return
			}
			serverError(w, lg, "media read failed", err)
			return
		}
		defer rc.Close()
		w.Header().Set("Content-Type", ct)
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Content-Security-Policy", "default-src 'none'; sandbox")
		w.Header().Set("Cache-Control", "public, max-age=86400")
		_, _ = io.Copy(w, rc)
	}
}
